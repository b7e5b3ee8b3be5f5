package session

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/syncplay-go/client/privacy"
	"github.com/syncplay-go/client/protocol"
	"github.com/syncplay-go/client/syncerr"
)

// LoadMediaByName resolves name to a local path or trusted URL, loads it
// into the active player backend, and either notifies the server with a
// Set.file (notifyServer) or arms the suppress-next-file-update one-shot so
// the pump's own detection of the resulting file change doesn't re-echo it
// (spec §4.L), grounded on controller.rs's load_media_by_name.
func (o *Orchestrator) LoadMediaByName(ctx context.Context, name string, notifyServer bool) error {
	o.mu.Lock()
	backend := o.backend
	o.mu.Unlock()
	if backend == nil {
		return syncerr.New(syncerr.NotConnected, "no active player")
	}

	target := name
	if privacy.IsURL(name) {
		o.cfgMu.Lock()
		enforce, trusted := o.cfg.EnforceURLTrust, o.cfg.TrustedDomains
		o.cfgMu.Unlock()
		if err := privacy.EnforceURLTrust(name, enforce, trusted); err != nil {
			return syncerr.Wrap(syncerr.UntrustedUrl, "load media "+name, err)
		}
	} else if name != privacy.HiddenFilename {
		o.cfgMu.Lock()
		dirs := o.cfg.Player.MediaDirectories
		o.cfgMu.Unlock()
		resolved, ok := resolveMediaPath(dirs, name)
		if !ok {
			return syncerr.New(syncerr.FileNotFound, "file not found in media directories: "+name)
		}
		target = resolved
	}

	if err := backend.LoadFile(ctx, target); err != nil {
		return syncerr.Wrap(syncerr.PlayerIpc, "load file", err)
	}
	o.st.SetFile(name, 0, 0)

	if notifyServer {
		o.sendFileUpdate(name, 0)
	} else {
		o.suppressMu.Lock()
		o.suppressNextFile = true
		o.suppressMu.Unlock()
	}
	return nil
}

// resolveMediaPath first tries an exact join against each directory, then
// falls back to a case-insensitive one-level directory scan, matching
// controller.rs's resolve_media_path.
func resolveMediaPath(dirs []string, filename string) (string, bool) {
	for _, dir := range dirs {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, filename)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}

	lowerTarget := strings.ToLower(filename)
	for _, dir := range dirs {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() && strings.ToLower(e.Name()) == lowerTarget {
				return filepath.Join(dir, e.Name()), true
			}
		}
	}
	return "", false
}

// sendFileUpdate applies the configured privacy transforms and a
// filesystem size lookup (when the backend exposes a local path), then
// sends Set.file, matching controller.rs's send_file_update.
func (o *Orchestrator) sendFileUpdate(filename string, duration float64) {
	if filename == "" {
		return
	}

	var size int64
	o.mu.Lock()
	backend := o.backend
	o.mu.Unlock()
	if backend != nil {
		st := backend.GetState()
		if st.Duration != nil {
			duration = *st.Duration
		}
		if st.Path != nil {
			if info, err := os.Stat(*st.Path); err == nil {
				size = info.Size()
			}
		}
	}

	o.cfgMu.Lock()
	privacyCfg := o.cfg.Privacy
	o.cfgMu.Unlock()

	sentName := privacy.TransformFilename(privacyCfg.FilenamePrivacyMode, filename)
	sentSize := privacy.TransformSize(privacyCfg.FilesizePrivacyMode, size)

	o.st.SetFile(filename, size, duration)

	dur := duration
	_ = o.sendTransport(&protocol.Message{Set: &protocol.SetMsg{File: &protocol.SetFile{
		Name: sentName, Size: &sentSize, Duration: &dur,
	}}})
}

// Package player defines the capability interface Backend implementations
// satisfy (spec §4.I), plus player-kind detection from an executable path
// or filesystem probe. The interface and detection heuristic are grounded
// directly on original_source/src-tauri/src/player/backend.rs's
// PlayerBackend trait and player_kind_from_path function.
package player

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Kind identifies which driver a Backend implements.
type Kind int

const (
	Unknown Kind = iota
	MPV
	MPVNet
	VLC
	IINA
	MPlayer
	MPCHC
	MPCBE
)

func (k Kind) String() string {
	switch k {
	case MPV:
		return "MPV"
	case MPVNet:
		return "mpv.net"
	case VLC:
		return "VLC"
	case IINA:
		return "IINA"
	case MPlayer:
		return "MPlayer"
	case MPCHC:
		return "MPC-HC"
	case MPCBE:
		return "MPC-BE"
	default:
		return "Unknown"
	}
}

// DetectKind classifies a player executable's Kind from a case-insensitive
// substring match on its path, matching player_kind_from_path.
func DetectKind(path string) Kind {
	lower := strings.ToLower(path)
	switch {
	case strings.Contains(lower, "mpvnet"), strings.Contains(lower, "mpv.net"):
		return MPVNet
	case strings.Contains(lower, "mpv"):
		return MPV
	case strings.Contains(lower, "vlc"):
		return VLC
	case strings.Contains(lower, "iina"):
		return IINA
	case strings.Contains(lower, "mpc-hc"), strings.Contains(lower, "mpchc"):
		return MPCHC
	case strings.Contains(lower, "mpc-be"):
		return MPCBE
	case strings.Contains(lower, "mplayer"):
		return MPlayer
	default:
		return Unknown
	}
}

// State is the cached player state the capability interface exposes
// (spec §4.I's get_state() shape). Pointer fields are nil when unknown.
type State struct {
	Filename *string
	Path     *string
	Position *float64
	Duration *float64
	Paused   *bool
	Speed    *float64
}

// Backend is the capability interface every player driver implements
// (spec §4.I), directly grounded on the original Rust PlayerBackend trait.
type Backend interface {
	Kind() Kind
	Name() string
	GetState() State
	PollState(ctx context.Context) error
	SetPosition(ctx context.Context, seconds float64) error
	SetPaused(ctx context.Context, paused bool) error
	SetSpeed(ctx context.Context, rate float64) error
	LoadFile(ctx context.Context, pathOrURL string) error
	ShowOSD(text string, durationMs int) error
}

// DetectedPlayer is one filesystem-probe result (additive supplement over
// spec.md, pulled from original_source's detection.rs — see SPEC_FULL.md
// §4.I).
type DetectedPlayer struct {
	Name string
	Path string
}

// candidatePaths lists well-known per-OS install locations to probe in
// addition to PATH lookup, per original_source/src-tauri/src/player/detection.rs.
func candidatePaths() map[Kind][]string {
	switch runtime.GOOS {
	case "windows":
		return map[Kind][]string{
			MPV:     {`C:\Program Files\mpv\mpv.exe`},
			VLC:     {`C:\Program Files\VideoLAN\VLC\vlc.exe`, `C:\Program Files (x86)\VideoLAN\VLC\vlc.exe`},
			MPlayer: {`C:\Program Files\MPlayer\mplayer.exe`},
			MPCHC:   {`C:\Program Files\MPC-HC\mpc-hc64.exe`, `C:\Program Files (x86)\MPC-HC\mpc-hc.exe`},
			MPCBE:   {`C:\Program Files\MPC-BE\mpc-be64.exe`},
		}
	case "darwin":
		return map[Kind][]string{
			MPV:  {"/Applications/mpv.app/Contents/MacOS/mpv", "/opt/homebrew/bin/mpv", "/usr/local/bin/mpv"},
			VLC:  {"/Applications/VLC.app/Contents/MacOS/VLC"},
			IINA: {"/Applications/IINA.app/Contents/MacOS/IINA"},
		}
	default:
		return map[Kind][]string{
			MPV:     {"/usr/bin/mpv", "/usr/local/bin/mpv"},
			VLC:     {"/usr/bin/vlc", "/usr/local/bin/vlc"},
			MPlayer: {"/usr/bin/mplayer"},
		}
	}
}

// lookPath and statExists are overridable for tests.
var lookPath = exec.LookPath
var statExists = func(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// DetectInstalled enumerates player executables found on PATH plus the
// short list of well-known per-OS install locations (supplementing
// spec.md's single-path substring match, per SPEC_FULL.md §4.I).
func DetectInstalled() []DetectedPlayer {
	names := map[Kind]string{
		MPV: "mpv", VLC: "vlc", MPlayer: "mplayer",
	}
	if runtime.GOOS == "windows" {
		names[MPVNet] = "mpvnet"
		names[MPCHC] = "mpc-hc64"
		names[MPCBE] = "mpc-be64"
	}
	if runtime.GOOS == "darwin" {
		names[IINA] = "iina"
	}

	seen := make(map[Kind]bool)
	var out []DetectedPlayer

	for kind, exe := range names {
		if path, err := lookPath(exe); err == nil {
			out = append(out, DetectedPlayer{Name: kind.String(), Path: path})
			seen[kind] = true
		}
	}
	for kind, paths := range candidatePaths() {
		if seen[kind] {
			continue
		}
		for _, p := range paths {
			if statExists(p) {
				out = append(out, DetectedPlayer{Name: kind.String(), Path: p})
				seen[kind] = true
				break
			}
		}
	}
	return out
}

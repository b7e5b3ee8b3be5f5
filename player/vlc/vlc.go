// Package vlc drives VLC's line-oriented RC (remote-control) interface,
// grounded directly on original_source/src-tauri/src/player/vlc_rc.rs:
// VLC is spawned with --extraintf rc --rc-fake-tty --quiet, its stdin is
// written commands, and a background goroutine parses "key: value" lines
// from stdout into the cached player.State.
package vlc

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/syncplay-go/client/player"
)

// rcArgs matches vlc_rc.rs's VLC_ARGS.
var rcArgs = []string{"--extraintf", "rc", "--rc-fake-tty", "--quiet"}

// Backend implements player.Backend by spawning and remote-controlling a
// VLC subprocess.
type Backend struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser

	mu    sync.Mutex
	state player.State
}

var _ player.Backend = (*Backend)(nil)

// Start spawns VLC at playerPath with the given extra args and optional
// initial file, matching VlcBackend::start.
func Start(playerPath string, args []string, initialFile string) (*Backend, error) {
	full := append(append([]string{}, rcArgs...), args...)
	if initialFile != "" {
		full = append(full, initialFile)
	}

	cmd := exec.Command(playerPath, full...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("capture vlc stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("capture vlc stdout: %w", err)
	}
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start vlc: %w", err)
	}

	b := &Backend{cmd: cmd, stdin: stdin}
	go b.readLoop(stdout)
	return b, nil
}

func (b *Backend) Kind() player.Kind { return player.VLC }
func (b *Backend) Name() string      { return "VLC" }

func (b *Backend) GetState() player.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Backend) readLoop(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		b.handleLine(line)
	}
}

// handleLine parses the "key: value" / "key value" lines VLC's RC
// interface emits, matching vlc_rc.rs's handle_line exactly.
func (b *Backend) handleLine(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case strings.HasPrefix(line, "time:"):
		if v, err := strconv.ParseFloat(strings.TrimSpace(line[len("time:"):]), 64); err == nil {
			b.state.Position = &v
		}
	case strings.HasPrefix(line, "length:"):
		if v, err := strconv.ParseFloat(strings.TrimSpace(line[len("length:"):]), 64); err == nil {
			b.state.Duration = &v
		}
	case strings.HasPrefix(line, "state "):
		setPausedFromStateWord(&b.state, strings.TrimSpace(line[len("state "):]))
	case strings.HasPrefix(line, "state:"):
		setPausedFromStateWord(&b.state, strings.TrimSpace(line[len("state:"):]))
	case strings.HasPrefix(line, "rate:"):
		if v, err := strconv.ParseFloat(strings.TrimSpace(line[len("rate:"):]), 64); err == nil {
			b.state.Speed = &v
		}
	case strings.HasPrefix(line, "file:"):
		value := strings.TrimSpace(line[len("file:"):])
		name := filepath.Base(value)
		b.state.Path = &value
		b.state.Filename = &name
	}
}

func setPausedFromStateWord(s *player.State, word string) {
	switch word {
	case "playing":
		v := false
		s.Paused = &v
	case "paused", "stopped":
		v := true
		s.Paused = &v
	}
}

func (b *Backend) send(command string) error {
	_, err := io.WriteString(b.stdin, command+"\n")
	return err
}

// PollState issues "status" and "get_meta filename", matching
// VlcBackend::poll_state.
func (b *Backend) PollState(ctx context.Context) error {
	_ = b.send("status")
	_ = b.send("get_meta filename")
	return nil
}

func (b *Backend) SetPosition(ctx context.Context, seconds float64) error {
	return b.send(fmt.Sprintf("seek %v", seconds))
}

func (b *Backend) SetPaused(ctx context.Context, paused bool) error {
	b.mu.Lock()
	current := false
	if b.state.Paused != nil {
		current = *b.state.Paused
	}
	b.mu.Unlock()

	if paused && !current {
		return b.send("pause")
	}
	if !paused && current {
		return b.send("play")
	}
	return nil
}

func (b *Backend) SetSpeed(ctx context.Context, rate float64) error {
	return b.send(fmt.Sprintf("rate %v", rate))
}

func (b *Backend) LoadFile(ctx context.Context, pathOrURL string) error {
	return b.send("add " + pathOrURL)
}

// ShowOSD sends a "display" RC command; VLC's RC display has no duration
// parameter, matching vlc_rc.rs (duration_ms is accepted but unused).
func (b *Backend) ShowOSD(text string, _ int) error {
	return b.send("display " + strings.ReplaceAll(text, `"`, "'"))
}

// Package mplayer drives MPlayer's slave-mode query/response protocol,
// grounded directly on
// original_source/src-tauri/src/player/mplayer_slave.rs: spawned with
// -slave -idle -quiet, it is polled with get_* queries and replies with
// ANS_* lines parsed into the cached player.State.
package mplayer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/syncplay-go/client/player"
)

// slaveArgs matches mplayer_slave.rs's MPLAYER_ARGS.
var slaveArgs = []string{
	"-slave", "-idle", "-quiet", "-nomsgcolor",
	"-msglevel", "all=1:global=4:cplayer=4",
	"-af-add", "scaletempo",
}

// Backend implements player.Backend by spawning and slave-controlling an
// MPlayer subprocess.
type Backend struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser

	mu    sync.Mutex
	state player.State
}

var _ player.Backend = (*Backend)(nil)

// Start spawns MPlayer at playerPath with the given extra args and
// optional initial file, matching MplayerBackend::start.
func Start(playerPath string, args []string, initialFile string) (*Backend, error) {
	full := append(append([]string{}, slaveArgs...), args...)
	if initialFile != "" {
		full = append(full, initialFile)
	}

	cmd := exec.Command(playerPath, full...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("capture mplayer stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("capture mplayer stdout: %w", err)
	}
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start mplayer: %w", err)
	}

	b := &Backend{cmd: cmd, stdin: stdin}
	go b.readLoop(stdout)
	return b, nil
}

func (b *Backend) Kind() player.Kind { return player.MPlayer }
func (b *Backend) Name() string      { return "MPlayer" }

func (b *Backend) GetState() player.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Backend) readLoop(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		b.handleLine(line)
	}
}

// handleLine parses ANS_* reply lines, matching mplayer_slave.rs's
// parse_response/handle_line.
func (b *Backend) handleLine(line string) {
	line = strings.TrimSpace(line)

	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case strings.HasPrefix(line, "ANS_TIME_POSITION="):
		if v, err := strconv.ParseFloat(line[len("ANS_TIME_POSITION="):], 64); err == nil {
			b.state.Position = &v
		}
	case strings.HasPrefix(line, "ANS_LENGTH="):
		if v, err := strconv.ParseFloat(line[len("ANS_LENGTH="):], 64); err == nil {
			b.state.Duration = &v
		}
	case strings.HasPrefix(line, "ANS_FILENAME="):
		v := strings.Trim(line[len("ANS_FILENAME="):], `"`)
		b.state.Path = &v
	case strings.HasPrefix(line, "ANS_FILE_NAME="):
		v := strings.Trim(line[len("ANS_FILE_NAME="):], `"`)
		b.state.Filename = &v
	case strings.HasPrefix(line, "ANS_PATH="):
		v := strings.Trim(line[len("ANS_PATH="):], `"`)
		b.state.Path = &v
	case strings.HasPrefix(line, "ANS_pause="):
		if v, ok := parseBoolWord(line[len("ANS_pause="):]); ok {
			b.state.Paused = &v
		}
	case strings.HasPrefix(line, "ANS_speed="):
		if v, err := strconv.ParseFloat(line[len("ANS_speed="):], 64); err == nil {
			b.state.Speed = &v
		}
	}
}

func parseBoolWord(w string) (bool, bool) {
	switch strings.TrimSpace(w) {
	case "yes", "true", "1":
		return true, true
	case "no", "false", "0":
		return false, true
	default:
		return false, false
	}
}

func (b *Backend) send(command string) error {
	_, err := io.WriteString(b.stdin, command+"\n")
	return err
}

// PollState issues the five get_* queries, matching
// MplayerBackend::poll_state.
func (b *Backend) PollState(ctx context.Context) error {
	_ = b.send("get_time_pos")
	_ = b.send("get_time_length")
	_ = b.send("get_file_name")
	_ = b.send("get_property pause")
	_ = b.send("get_property speed")
	return nil
}

func (b *Backend) SetPosition(ctx context.Context, seconds float64) error {
	return b.send(fmt.Sprintf("seek %v 2", seconds))
}

func (b *Backend) SetPaused(ctx context.Context, paused bool) error {
	b.mu.Lock()
	current := false
	if b.state.Paused != nil {
		current = *b.state.Paused
	}
	b.mu.Unlock()

	if paused != current {
		return b.send("pause")
	}
	return nil
}

func (b *Backend) SetSpeed(ctx context.Context, rate float64) error {
	return b.send(fmt.Sprintf("set_property speed %v", rate))
}

func (b *Backend) LoadFile(ctx context.Context, pathOrURL string) error {
	return b.send(fmt.Sprintf(`loadfile "%s" 0`, pathOrURL))
}

func (b *Backend) ShowOSD(text string, _ int) error {
	return b.send(fmt.Sprintf(`osd_show_text "%s"`, strings.ReplaceAll(text, `"`, "'")))
}

// Quit sends MPlayer's shutdown command, matching
// MplayerBackend::shutdown.
func (b *Backend) Quit() error {
	return b.send("quit")
}

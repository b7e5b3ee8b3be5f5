// Package mpcweb drives MPC-HC/MPC-BE's web interface, grounded directly
// on original_source/src-tauri/src/player/mpc_web.rs: the player is
// spawned with its web server enabled, polled by fetching
// /variables.html and parsing its "key=value" lines, and controlled by
// GET requests against /command.html?wm_command=<id>.
package mpcweb

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/syncplay-go/client/player"
)

const defaultPort = 13579

// pollRateLimit bounds how often PollState is allowed to hit
// /variables.html; the player state pump calls it every 500ms per active
// session, and several sessions against the same local player instance
// could otherwise hammer its HTTP server.
const pollRateLimit = 2 // polls/second, burst 1

// Wm* constants name the MPC-HC/MPC-BE web command IDs used by
// mpc_web.rs's send_command calls.
const (
	wmOpenFile = 0xA0000000
	wmPlay     = 0xA0000004
	wmPause    = 0xA0000005
	wmSeek     = 0xA0002000
	wmSetSpeed = 0xA0004008
	wmShowOSD  = 0xA0005000
)

// Backend implements player.Backend against MPC-HC/MPC-BE's HTTP web
// interface.
type Backend struct {
	kind    player.Kind
	cmd     *exec.Cmd
	client  *http.Client
	port    int
	pollLim *rate.Limiter

	mu    sync.Mutex
	state player.State
}

var _ player.Backend = (*Backend)(nil)

// Start launches playerPath (MPC-HC or MPC-BE, with its web interface
// already enabled by the caller's configuration) and returns a Backend
// that talks to it over HTTP, matching MpcWebBackend::start.
func Start(kind player.Kind, playerPath string, args []string, initialFile string) (*Backend, error) {
	full := append([]string{}, args...)
	if initialFile != "" {
		full = append(full, initialFile)
	}

	cmd := exec.Command(playerPath, full...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start mpc: %w", err)
	}

	return &Backend{
		kind:    kind,
		cmd:     cmd,
		client:  &http.Client{Timeout: 5 * time.Second},
		port:    defaultPort,
		pollLim: rate.NewLimiter(rate.Limit(pollRateLimit), 1),
	}, nil
}

func (b *Backend) Kind() player.Kind { return b.kind }
func (b *Backend) Name() string      { return b.kind.String() }

func (b *Backend) GetState() player.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Backend) baseURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", b.port)
}

func (b *Backend) getVariables(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL()+"/variables.html", nil)
	if err != nil {
		return "", err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch mpc variables: %w", err)
	}
	defer resp.Body.Close()

	buf := make([]byte, 0, 4096)
	chunk := make([]byte, 4096)
	for {
		n, rerr := resp.Body.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if rerr != nil {
			break
		}
	}
	return string(buf), nil
}

func (b *Backend) sendCommand(ctx context.Context, command int, value string) error {
	u := fmt.Sprintf("%s/command.html?wm_command=%d", b.baseURL(), command)
	if value != "" {
		u += "&p1=" + url.QueryEscape(value)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

// parseVariables parses variables.html's "key=value" lines into a
// player.State, matching mpc_web.rs's parse_variables exactly.
func parseVariables(text string) player.State {
	var state player.State
	for _, line := range strings.Split(text, "\n") {
		parts := strings.SplitN(line, "=", 2)
		key := strings.TrimSpace(parts[0])
		value := ""
		if len(parts) == 2 {
			value = strings.TrimSpace(parts[1])
		}
		switch key {
		case "position":
			if v, err := strconv.ParseFloat(value, 64); err == nil {
				state.Position = &v
			}
		case "duration":
			if v, err := strconv.ParseFloat(value, 64); err == nil {
				state.Duration = &v
			}
		case "filepath":
			v := value
			name := filepath.Base(value)
			state.Path = &v
			state.Filename = &name
		case "paused":
			switch value {
			case "1", "true", "yes":
				v := true
				state.Paused = &v
			case "0", "false", "no":
				v := false
				state.Paused = &v
			}
		case "speed":
			if v, err := strconv.ParseFloat(value, 64); err == nil {
				state.Speed = &v
			}
		}
	}
	return state
}

// PollState fetches variables.html and replaces the cached state wholesale,
// matching MpcWebBackend::poll_state. Callers typically invoke this from a
// ticker (the player state pump polls every 500ms); pollLim bounds how
// often that actually reaches the player's HTTP server.
func (b *Backend) PollState(ctx context.Context) error {
	if b.pollLim != nil {
		if err := b.pollLim.Wait(ctx); err != nil {
			return err
		}
	}
	text, err := b.getVariables(ctx)
	if err != nil {
		return err
	}
	state := parseVariables(text)

	b.mu.Lock()
	b.state = state
	b.mu.Unlock()
	return nil
}

func (b *Backend) SetPosition(ctx context.Context, seconds float64) error {
	return b.sendCommand(ctx, wmSeek, strconv.FormatFloat(seconds, 'f', -1, 64))
}

func (b *Backend) SetPaused(ctx context.Context, paused bool) error {
	if paused {
		return b.sendCommand(ctx, wmPause, "")
	}
	return b.sendCommand(ctx, wmPlay, "")
}

func (b *Backend) SetSpeed(ctx context.Context, rate float64) error {
	return b.sendCommand(ctx, wmSetSpeed, strconv.FormatFloat(rate, 'f', -1, 64))
}

func (b *Backend) LoadFile(ctx context.Context, pathOrURL string) error {
	return b.sendCommand(ctx, wmOpenFile, pathOrURL)
}

// ShowOSD fires the OSD command asynchronously, matching mpc_web.rs's
// show_osd (which spawns the request rather than awaiting it, since the
// trait method is synchronous).
func (b *Backend) ShowOSD(text string, _ int) error {
	message := strings.ReplaceAll(text, `"`, "'")
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = b.sendCommand(ctx, wmShowOSD, message)
	}()
	return nil
}

// Package mpv drives MPV (and MPV-compatible players: mpv.net, IINA) over
// its JSON-IPC socket: one write goroutine drains an outbound command
// channel, one read goroutine parses newline-delimited JSON-IPC messages
// and fans them out to either a pending request's reply channel (by
// request_id) or into the cached State (property-change events). The
// actor-goroutine-plus-rolling-ID idiom is the usual shape for
// request/response multiplexed over a single stream.
package mpv

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"runtime"
	"sync"
	"time"

	"github.com/syncplay-go/client/player"
	"github.com/syncplay-go/client/syncerr"
)

// DefaultSocketPath returns the per-OS default MPV IPC path used when the
// shell doesn't supply one explicitly (original_source's mpv_backend.rs
// default-resolution behavior, per SPEC_FULL.md §4.I).
func DefaultSocketPath() string {
	if runtime.GOOS == "windows" {
		return `\\.\pipe\mpvsocket`
	}
	return "/tmp/mpvsocket"
}

// property ids observed at connect time, matching mpv_ipc.rs's
// observe_properties list.
const (
	propTimePos  = 1
	propPause    = 2
	propFilename = 3
	propDuration = 4
	propPath     = 5
	propSpeed    = 6
)

var observedProperties = []struct {
	id   int
	name string
}{
	{propTimePos, "time-pos"},
	{propPause, "pause"},
	{propFilename, "filename"},
	{propDuration, "duration"},
	{propPath, "path"},
	{propSpeed, "speed"},
}

type command struct {
	Command   []any `json:"command"`
	RequestID uint64 `json:"request_id,omitempty"`
}

type response struct {
	RequestID *uint64         `json:"request_id"`
	Error     string          `json:"error"`
	Data      json.RawMessage `json:"data"`
}

type event struct {
	Event string          `json:"event"`
	ID    *int            `json:"id"`
	Data  json.RawMessage `json:"data"`
	Reason string         `json:"reason"`
}

// Backend implements player.Backend against an MPV JSON-IPC endpoint.
type Backend struct {
	socketPath string
	conn       net.Conn

	mu    sync.Mutex
	state player.State

	nextID  uint64
	pending sync.Map // uint64 -> chan response

	writeCh chan command
	done    chan struct{}
}

var _ player.Backend = (*Backend)(nil)

// Dial connects to an MPV JSON-IPC socket/pipe at socketPath (or
// DefaultSocketPath() if empty) and starts the read/write actor
// goroutines, matching MpvIpc::connect.
func Dial(ctx context.Context, socketPath string) (*Backend, error) {
	if socketPath == "" {
		socketPath = DefaultSocketPath()
	}
	conn, err := dial(ctx, socketPath)
	if err != nil {
		return nil, syncerr.Wrap(syncerr.PlayerIpc, "connect mpv ipc "+socketPath, err)
	}

	b := &Backend{
		socketPath: socketPath,
		conn:       conn,
		nextID:     1,
		writeCh:    make(chan command, 16),
		done:       make(chan struct{}),
	}

	go b.writeLoop()
	go b.readLoop()

	for _, p := range observedProperties {
		b.send(command{Command: []any{"observe_property", p.id, p.name}})
	}
	return b, nil
}

func (b *Backend) Kind() player.Kind { return player.MPV }
func (b *Backend) Name() string      { return "MPV" }

func (b *Backend) GetState() player.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Backend) writeLoop() {
	enc := json.NewEncoder(&lfWriter{b.conn})
	for {
		select {
		case cmd := <-b.writeCh:
			_ = enc.Encode(cmd)
		case <-b.done:
			return
		}
	}
}

// lfWriter writes MPV IPC's bare-newline framing (mpv_ipc.rs writes the
// JSON payload then a separate "\n", which json.Encoder.Encode already
// appends — this wrapper exists so both line endings stay explicit and
// future framing quirks have one place to land).
type lfWriter struct{ w net.Conn }

func (l *lfWriter) Write(p []byte) (int, error) { return l.w.Write(p) }

func (b *Backend) readLoop() {
	defer close(b.done)
	scanner := bufio.NewScanner(b.conn)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var probe struct {
			Event *string `json:"event"`
		}
		if err := json.Unmarshal(line, &probe); err != nil {
			continue
		}

		if probe.Event != nil {
			var ev event
			if err := json.Unmarshal(line, &ev); err == nil {
				b.handleEvent(ev)
			}
			continue
		}

		var resp response
		if err := json.Unmarshal(line, &resp); err == nil && resp.RequestID != nil {
			if ch, ok := b.pending.LoadAndDelete(*resp.RequestID); ok {
				ch.(chan response) <- resp
			}
		}
	}
}

func (b *Backend) handleEvent(ev event) {
	if ev.Event != "property-change" || ev.ID == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	switch *ev.ID {
	case propTimePos:
		var v float64
		if json.Unmarshal(ev.Data, &v) == nil {
			b.state.Position = &v
		}
	case propPause:
		var v bool
		if json.Unmarshal(ev.Data, &v) == nil {
			b.state.Paused = &v
		}
	case propFilename:
		var v string
		if json.Unmarshal(ev.Data, &v) == nil {
			b.state.Filename = &v
		}
	case propDuration:
		var v float64
		if json.Unmarshal(ev.Data, &v) == nil {
			b.state.Duration = &v
		}
	case propPath:
		var v string
		if json.Unmarshal(ev.Data, &v) == nil {
			b.state.Path = &v
		}
	case propSpeed:
		var v float64
		if json.Unmarshal(ev.Data, &v) == nil {
			b.state.Speed = &v
		}
	}
}

func (b *Backend) send(cmd command) {
	select {
	case b.writeCh <- cmd:
	case <-b.done:
	}
}

// sendSync assigns a rolling request_id and blocks for the matching
// reply, matching MpvIpc::send_command_async.
func (b *Backend) sendSync(ctx context.Context, cmd command) (response, error) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.mu.Unlock()

	cmd.RequestID = id
	replyCh := make(chan response, 1)
	b.pending.Store(id, replyCh)

	select {
	case b.writeCh <- cmd:
	case <-b.done:
		b.pending.Delete(id)
		return response{}, syncerr.New(syncerr.PlayerIpc, "mpv ipc closed")
	}

	select {
	case resp := <-replyCh:
		if resp.Error != "" && resp.Error != "success" {
			return resp, syncerr.New(syncerr.PlayerIpc, "mpv error: "+resp.Error)
		}
		return resp, nil
	case <-ctx.Done():
		b.pending.Delete(id)
		return response{}, ctx.Err()
	case <-b.done:
		return response{}, syncerr.New(syncerr.PlayerIpc, "mpv ipc closed")
	}
}

func (b *Backend) PollState(ctx context.Context) error {
	// Properties are observed once at connect time; poll is a no-op here
	// because updates already arrive as property-change events.
	return nil
}

func (b *Backend) SetPosition(ctx context.Context, seconds float64) error {
	_, err := b.sendSync(ctx, command{Command: []any{"seek", seconds, "absolute"}})
	return err
}

func (b *Backend) SetPaused(ctx context.Context, paused bool) error {
	_, err := b.sendSync(ctx, command{Command: []any{"set_property", "pause", paused}})
	return err
}

func (b *Backend) SetSpeed(ctx context.Context, rate float64) error {
	_, err := b.sendSync(ctx, command{Command: []any{"set_property", "speed", rate}})
	return err
}

func (b *Backend) LoadFile(ctx context.Context, pathOrURL string) error {
	_, err := b.sendSync(ctx, command{Command: []any{"loadfile", pathOrURL, "replace"}})
	return err
}

func (b *Backend) ShowOSD(text string, durationMs int) error {
	if durationMs <= 0 {
		durationMs = 2000
	}
	b.send(command{Command: []any{"show-text", text, durationMs}})
	return nil
}

// Close shuts down the IPC connection.
func (b *Backend) Close() error {
	return b.conn.Close()
}

var dialTimeout = 3 * time.Second

func dial(ctx context.Context, path string) (net.Conn, error) {
	if runtime.GOOS == "windows" {
		return dialWindowsPipe(ctx, path)
	}
	d := net.Dialer{Timeout: dialTimeout}
	return d.DialContext(ctx, "unix", path)
}

// Package pump implements the player state pump (spec §4.J): a 500ms
// poll/reconcile loop that reads the active player.Backend, emits its
// state to the shell, and propagates file/position/pause changes to the
// server with the suppression windows the orchestrator needs to avoid
// echoing its own programmatic actions back as user intent.
//
// Grounded directly on
// original_source/src-tauri/src/player/controller.rs's
// spawn_player_state_loop, which this package mirrors tick-for-tick.
package pump

import (
	"context"
	"time"
)

// Interval is the fixed tick period named in spec §4.J.
const Interval = 500 * time.Millisecond

// Snapshot is the subset of player.State the pump reasons about between
// ticks. Kept separate from player.State so this package has no import
// dependency on player.
type Snapshot struct {
	Filename string
	Duration float64
	Position float64
	Paused   bool
	HasState bool // false until the player has reported both position and pause state
}

// Hooks is the orchestrator-side surface the pump drives. Every method is
// called from the pump's own goroutine; implementations must be safe for
// that single-caller usage but need not be reentrant.
type Hooks interface {
	// Poll asks the active backend to refresh and returns its state.
	Poll(ctx context.Context) (Snapshot, error)

	// Connected reports whether the session has an active server
	// connection; the pump does nothing past the state-emit step when false.
	Connected() bool

	// TakeSuppressUnpauseCheck consumes and clears the one-shot flag the
	// orchestrator sets before it unpauses the player itself (e.g. autoplay).
	TakeSuppressUnpauseCheck() bool

	// InstaplayAllowed evaluates the configured unpause policy against
	// current room/readiness state (spec §4.J step 3, §4.K.3's conditions).
	InstaplayAllowed() bool

	// ForcePause is called to push the player back to paused when instaplay
	// forbids an unpause the user just performed.
	ForcePause(ctx context.Context)

	// IsReady reports the local user's current ready flag.
	IsReady() bool

	// SendManualReady sends Set.ready{isReady:true,manuallyInitiated:true}.
	SendManualReady()

	// TakeSuppressNextFileUpdate consumes and clears the one-shot flag the
	// orchestrator sets after it loads media itself.
	TakeSuppressNextFileUpdate() bool

	// SendFileUpdate propagates a detected file change to the server, with
	// privacy transforms and a filesystem size lookup applied by the caller.
	SendFileUpdate(filename string, duration float64)

	// SendPlaystate reports a changed local playstate; the orchestrator
	// records it for the playstate of its next outbound State reply rather
	// than sending a message of its own.
	SendPlaystate(position float64, paused bool)

	// AdvancePlaylist is invoked once per end-of-file transition.
	AdvancePlaylist()
}

// Pump runs the fixed-interval poll/reconcile loop against one Hooks
// implementation. Not safe for concurrent Run calls.
type Pump struct {
	hooks Hooks

	interval time.Duration
	lastSent Snapshot
	eofSent  bool
}

func New(hooks Hooks) *Pump {
	return &Pump{hooks: hooks, interval: Interval}
}

// SetInterval overrides the tick period; used by tests to run many ticks
// without a real 500ms wait.
func (p *Pump) SetInterval(d time.Duration) { p.interval = d }

// Run blocks, ticking until ctx is cancelled.
func (p *Pump) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// tick runs exactly one poll/reconcile cycle, matching
// spawn_player_state_loop's loop body.
func (p *Pump) tick(ctx context.Context) {
	st, _ := p.hooks.Poll(ctx)
	if !st.HasState {
		return
	}

	if !p.hooks.Connected() {
		return
	}

	if p.lastSent.HasState && p.lastSent.Paused && !st.Paused {
		suppressed := p.hooks.TakeSuppressUnpauseCheck()
		if !suppressed && !p.hooks.InstaplayAllowed() {
			p.hooks.ForcePause(ctx)
			if !p.hooks.IsReady() {
				p.hooks.SendManualReady()
			}
			return
		}
	}

	if fileInfoChanged(st, p.lastSent) {
		p.eofSent = false
		if !p.hooks.TakeSuppressNextFileUpdate() {
			p.hooks.SendFileUpdate(st.Filename, st.Duration)
		}
	}

	if shouldSendState(st, p.lastSent) {
		p.hooks.SendPlaystate(st.Position, st.Paused)
		p.lastSent = st
	}

	if !p.eofSent && st.Duration > 0 {
		threshold := st.Duration - 0.2
		if threshold < 0 {
			threshold = st.Duration
		}
		if st.Position >= threshold {
			p.eofSent = true
			p.hooks.AdvancePlaylist()
		}
	}
}

// fileInfoChanged matches controller.rs's file_info_changed.
func fileInfoChanged(current, prev Snapshot) bool {
	if !prev.HasState {
		return true
	}
	return current.Filename != prev.Filename || current.Duration != prev.Duration
}

// shouldSendState matches controller.rs's should_send_state.
func shouldSendState(current, prev Snapshot) bool {
	if !prev.HasState {
		return true
	}
	if current.Paused != prev.Paused || current.Filename != prev.Filename {
		return true
	}
	return absf(current.Position-prev.Position) >= 0.5
}

func absf(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

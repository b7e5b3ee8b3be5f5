package session

import (
	"context"

	"github.com/syncplay-go/client/config"
	"github.com/syncplay-go/client/protocol"
	"github.com/syncplay-go/client/pump"
)

// The methods below implement pump.Hooks, the seam pump.Pump drives every
// tick (spec §4.J). Kept in their own file since they form one cohesive
// contract distinct from the shell-facing dispatch surface.
var _ pump.Hooks = (*Orchestrator)(nil)

func (o *Orchestrator) Poll(ctx context.Context) (pump.Snapshot, error) {
	o.mu.Lock()
	backend := o.backend
	o.mu.Unlock()
	if backend == nil {
		return pump.Snapshot{}, nil
	}

	_ = backend.PollState(ctx)
	st := backend.GetState()

	// HasState only becomes true once the backend has reported the two
	// fields the sync decision actually depends on; right after a backend
	// is spawned GetState returns all-nil and a tick must not treat that as
	// "paused at position 0".
	snap := pump.Snapshot{HasState: st.Position != nil && st.Paused != nil}
	if st.Filename != nil {
		snap.Filename = *st.Filename
	}
	if st.Duration != nil {
		snap.Duration = *st.Duration
	}
	if st.Position != nil {
		snap.Position = *st.Position
	}
	if st.Paused != nil {
		snap.Paused = *st.Paused
	}

	o.emit(Event{Kind: PlayerStateChanged, PlayerState: PlayerStateSnapshot{
		Filename: st.Filename, Position: st.Position, Duration: st.Duration,
		Paused: st.Paused, Speed: st.Speed,
	}})
	return snap, nil
}

func (o *Orchestrator) Connected() bool { return o.isConnected() }

func (o *Orchestrator) TakeSuppressUnpauseCheck() bool {
	o.suppressMu.Lock()
	defer o.suppressMu.Unlock()
	v := o.suppressUnpause
	o.suppressUnpause = false
	return v
}

// InstaplayAllowed evaluates the configured unpause gating policy (spec
// §4.J step 3, §4.K.3), grounded on original_source's
// instaplay_conditions_met/all_other_users_ready.
func (o *Orchestrator) InstaplayAllowed() bool {
	o.cfgMu.Lock()
	autoplay := o.cfg.Autoplay
	o.cfgMu.Unlock()

	switch autoplay.UnpauseAction {
	case config.UnpauseAlways:
		return true
	case config.UnpauseIfAlreadyReady:
		return o.st.Ready()
	case config.UnpauseIfMinUsersReady:
		if !o.allOtherUsersReady() {
			return false
		}
		if autoplay.MinUsers > 0 {
			return len(o.st.UsersInRoom(o.roomSnapshot())) >= autoplay.MinUsers
		}
		return true
	default: // config.UnpauseIfOthersReady
		return o.allOtherUsersReady()
	}
}

func (o *Orchestrator) allOtherUsersReady() bool {
	username := o.st.Username()
	for uname, u := range o.st.UsersInRoom(o.roomSnapshot()) {
		if uname == username {
			continue
		}
		if !u.IsReady {
			return false
		}
	}
	return true
}

func (o *Orchestrator) ForcePause(ctx context.Context) {
	o.mu.Lock()
	backend := o.backend
	o.mu.Unlock()
	if backend != nil {
		_ = backend.SetPaused(ctx, true)
	}
}

func (o *Orchestrator) IsReady() bool { return o.st.Ready() }

func (o *Orchestrator) SendManualReady() {
	o.st.SetReady(true)
	_ = o.sendTransport(&protocol.Message{Set: &protocol.SetMsg{Ready: &protocol.SetReady{
		IsReady:           protocol.NullOpt[bool]{Known: true, Value: true},
		ManuallyInitiated: true,
	}}})
}

func (o *Orchestrator) TakeSuppressNextFileUpdate() bool {
	o.suppressMu.Lock()
	defer o.suppressMu.Unlock()
	v := o.suppressNextFile
	o.suppressNextFile = false
	return v
}

func (o *Orchestrator) SendFileUpdate(filename string, duration float64) {
	o.sendFileUpdate(filename, duration)
}

// SendPlaystate records the local playstate to echo back on the next State
// reply and marks the client-side ignoring-on-the-fly counter, since this
// hook only fires on a genuine change (pump.shouldSendState), never on a
// periodic no-op tick (spec §4.K.4).
func (o *Orchestrator) SendPlaystate(position float64, paused bool) {
	o.lastPlaystateMu.Lock()
	o.lastPlaystate = &localPlaystate{position: position, paused: paused}
	o.lastPlaystateMu.Unlock()

	o.ignoreMu.Lock()
	o.ignoringClient++
	o.ignoreMu.Unlock()
}

func (o *Orchestrator) AdvancePlaylist() {
	o.plMu.Lock()
	o.pl.Next()
	idx, hasIdx := o.pl.CurrentIndex()
	items := o.pl.Items()
	o.plMu.Unlock()

	o.publishPlaylist()

	if !hasIdx || idx >= len(items) {
		return
	}
	name := items[idx]

	_ = o.sendTransport(&protocol.Message{Set: &protocol.SetMsg{PlaylistIndex: &protocol.SetPlaylistIndex{
		User:  o.st.Username(),
		Index: protocol.NullOpt[int]{Known: true, Value: idx},
	}}})

	_ = o.LoadMediaByName(context.Background(), name, true)
}

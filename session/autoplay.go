package session

import (
	"context"
	"time"
)

// autoplayCountdownTicks is the 3-second countdown spec §4.K.3 names.
const autoplayCountdownTicks = 3

// evaluateAutoplay starts or cancels the autoplay countdown based on the
// current snapshot of conditions (spec §4.K.3). Called whenever List,
// Set.ready, or the 1-second room-warning tick observes a state change.
func (o *Orchestrator) evaluateAutoplay(ctx context.Context) {
	if o.autoplayConditionsMet() {
		o.startAutoplay(ctx)
	} else {
		o.cancelAutoplay()
	}
}

// autoplayConditionsMet checks: autoplay enabled, room has at least
// min_users, every user in the room is ready (including self), optionally
// every user shares the same filename, and the local player is paused.
func (o *Orchestrator) autoplayConditionsMet() bool {
	o.cfgMu.Lock()
	cfg := o.cfg.Autoplay
	o.cfgMu.Unlock()

	if !cfg.Enabled {
		return false
	}

	room := o.roomSnapshot()
	users := o.st.UsersInRoom(room)
	if len(users) < cfg.MinUsers {
		return false
	}

	var refFile string
	first := true
	for _, u := range users {
		if !u.IsReady {
			return false
		}
		if cfg.RequireSameFilename {
			if first {
				refFile, first = u.File, false
			} else if u.File != refFile {
				return false
			}
		}
	}

	o.mu.Lock()
	backend := o.backend
	o.mu.Unlock()
	if backend == nil {
		return false
	}
	st := backend.GetState()
	return st.Paused != nil && *st.Paused
}

// startAutoplay begins the countdown if one isn't already running. The
// countdown goroutine re-validates conditions every second and silently
// self-cancels the moment any of them stops holding (spec §4.K.3).
func (o *Orchestrator) startAutoplay(parent context.Context) {
	o.autoplayMu.Lock()
	if o.autoplayCancel != nil {
		o.autoplayMu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(parent)
	o.autoplayCancel = cancel
	o.autoplayMu.Unlock()

	go func() {
		defer func() {
			o.autoplayMu.Lock()
			o.autoplayCancel = nil
			o.autoplayMu.Unlock()
		}()

		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		remaining := autoplayCountdownTicks
		for remaining > 0 {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !o.autoplayConditionsMet() {
					return
				}
				remaining--
			}
		}

		o.mu.Lock()
		backend := o.backend
		o.mu.Unlock()
		if backend == nil {
			return
		}
		o.suppressMu.Lock()
		o.suppressUnpause = true
		o.suppressMu.Unlock()
		_ = backend.SetPaused(ctx, false)
	}()
}

func (o *Orchestrator) cancelAutoplay() {
	o.autoplayMu.Lock()
	defer o.autoplayMu.Unlock()
	if o.autoplayCancel != nil {
		o.autoplayCancel()
		o.autoplayCancel = nil
	}
}

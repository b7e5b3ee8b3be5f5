package session

import (
	"context"
	"time"
)

// fileDurationTolerance is the slack (seconds) before two users' reported
// durations for "the same file" are treated as a mismatch (spec §4.K.6).
const fileDurationTolerance = 2.5

// roomWarningLoop runs once a second for the lifetime of ctx, re-deriving
// the alone/file-difference/not-ready room warnings and re-checking
// autoplay conditions (spec §4.K.6, §4.K.3).
func (o *Orchestrator) roomWarningLoop(ctx context.Context) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !o.isConnected() {
				continue
			}
			o.checkRoomWarnings()
			o.evaluateAutoplay(ctx)
		}
	}
}

// checkRoomWarnings re-derives the three boolean conditions and emits a
// system-chat message (plus an OSD for file differences) only on the
// rising edge of each — spec §4.K.6's "edge-transitions emit" rule.
func (o *Orchestrator) checkRoomWarnings() {
	username := o.st.Username()
	room := o.roomSnapshot()
	users := o.st.UsersInRoom(room)

	myFile, mySize, myDur, haveMyFile := o.st.File()

	others := 0
	fileDiff := false
	notReady := false
	for uname, u := range users {
		if uname == username {
			continue
		}
		others++
		if !u.IsReady {
			notReady = true
		}
		if haveMyFile && u.HasFile {
			if u.File != myFile || u.FileSize != mySize || absDuration(u.FileDuration-myDur) > fileDurationTolerance {
				fileDiff = true
			}
		}
	}
	alone := others == 0

	o.cfgMu.Lock()
	osdOnRoomEvents := o.cfg.OSD.ShowOnRoomEvents
	o.cfgMu.Unlock()

	o.roomWarnMu.Lock()
	defer o.roomWarnMu.Unlock()

	if alone != o.wasAlone {
		o.wasAlone = alone
		if alone {
			o.postSystem("You are alone in the room.")
		}
	}
	if fileDiff != o.hadFileDiff {
		o.hadFileDiff = fileDiff
		if fileDiff {
			o.postSystem("Other users in the room are playing a different file.")
			if osdOnRoomEvents {
				o.showOSD("File differences detected in room")
			}
		}
	}
	if notReady != o.hadNotReady {
		o.hadNotReady = notReady
		if notReady {
			o.postSystem("Some users in the room are not ready.")
		}
	}
}

func absDuration(d float64) float64 {
	if d < 0 {
		return -d
	}
	return d
}

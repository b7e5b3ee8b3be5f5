// Package sync implements the pure playback-synchronisation decision
// function (spec §4.F): given the local player's position/pause state, the
// server-asserted global position, and the toggles in config, it returns an
// ordered list of Action the caller must apply in order.
//
// The package is deliberately shaped like a tiny standalone math package:
// plain structs, no I/O, no locks, easy to unit test in isolation.
package sync

import "time"

// Thresholds holds the tunable constants from spec §4.F, each overridable
// via config.
type Thresholds struct {
	RewindThreshold      float64 // seconds
	FastforwardThreshold float64
	FFExtra              float64
	FFReset              float64
	FFBehind             float64
	SlowdownThreshold    float64
	SlowdownReset        float64
	SlowdownRate         float64
}

// DefaultThresholds returns the constants named in spec §4.F.
func DefaultThresholds() Thresholds {
	return Thresholds{
		RewindThreshold:      4.0,
		FastforwardThreshold: 5.0,
		FFExtra:              0.25,
		FFReset:              3.0,
		FFBehind:             1.75,
		SlowdownThreshold:    1.5,
		SlowdownReset:        0.1,
		SlowdownRate:         0.95,
	}
}

// ActionKind enumerates the actions Engine.Decide can return.
type ActionKind int

const (
	None ActionKind = iota
	SetPaused
	Seek
	Slowdown
	ResetSpeed
)

// Action is one ordered instruction the caller applies to the player.
// Only the field matching Kind is meaningful.
type Action struct {
	Kind     ActionKind
	Paused   bool    // SetPaused
	Position float64 // Seek
}

// Toggles are the per-call feature gates; AllowFastforward additionally
// comes from the caller (spec: only allowed on some call sites), the rest
// mirror user-configurable sync behaviours.
type Toggles struct {
	RewindEnabled      bool
	FastforwardEnabled bool
	SlowEnabled        bool
	AllowFastforward   bool
}

// Inputs are the per-decision observed state, spec §4.F's parameter list.
type Inputs struct {
	LocalPosition  float64
	LocalPaused    bool
	GlobalPosition float64
	GlobalPaused   bool
	MessageAge     float64
	DoSeek         bool
	Toggles        Toggles
}

// Engine holds the small amount of state that persists across Decide calls:
// the fast-forward "behind since" timer and the slowdown-active flag. Not
// safe for concurrent use — the orchestrator calls Decide from a single
// goroutine per spec §5 ("Sync actions ... applied strictly in list order").
type Engine struct {
	thresholds  Thresholds
	behindSince *time.Time // nil when not currently counting down
	slowdownOn  bool

	now func() time.Time // overridable for tests
}

func NewEngine(t Thresholds) *Engine {
	return &Engine{thresholds: t, now: time.Now}
}

// Decide runs the §4.F procedure and returns the ordered action list.
// Calling Decide again with the identical Inputs and unchanged internal
// state yields an identical action list (spec property 4).
func (e *Engine) Decide(in Inputs) []Action {
	t := e.thresholds
	now := e.now()

	adjustedGlobal := in.GlobalPosition
	if !in.GlobalPaused {
		adjustedGlobal += in.MessageAge
	}
	diff := in.LocalPosition - adjustedGlobal

	var actions []Action

	if in.LocalPaused != in.GlobalPaused {
		actions = append(actions, Action{Kind: SetPaused, Paused: in.GlobalPaused})
	}

	if in.DoSeek {
		actions = append(actions, Action{Kind: Seek, Position: adjustedGlobal})
		e.slowdownOn = false
		return actions
	}

	if in.LocalPaused == in.GlobalPaused {
		switch {
		case in.Toggles.RewindEnabled && diff > t.RewindThreshold:
			actions = append(actions, Action{Kind: Seek, Position: adjustedGlobal})
			e.slowdownOn = false
			e.behindSince = nil

		case in.Toggles.AllowFastforward && in.Toggles.FastforwardEnabled:
			if diff < -t.FFBehind {
				if e.behindSince == nil {
					e.behindSince = &now
				}
				if now.Sub(*e.behindSince) > time.Duration((t.FastforwardThreshold-t.FFBehind)*float64(time.Second)) &&
					diff < -t.FastforwardThreshold {
					actions = append(actions, Action{Kind: Seek, Position: adjustedGlobal + t.FFExtra})
					damped := now.Add(time.Duration(t.FFReset * float64(time.Second)))
					e.behindSince = &damped
				}
			} else {
				e.behindSince = nil
			}

		case in.Toggles.SlowEnabled && !in.GlobalPaused && absf(diff) > t.SlowdownThreshold && !e.slowdownOn:
			actions = append(actions, Action{Kind: Slowdown})
			e.slowdownOn = true

		case e.slowdownOn && absf(diff) < t.SlowdownReset:
			actions = append(actions, Action{Kind: ResetSpeed})
			e.slowdownOn = false

		case e.slowdownOn && !in.Toggles.SlowEnabled:
			actions = append(actions, Action{Kind: ResetSpeed})
			e.slowdownOn = false
		}
	}

	if len(actions) == 0 {
		actions = append(actions, Action{Kind: None})
	}
	return actions
}

func absf(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// SetClock overrides the internal time source for deterministic tests.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// LocalState tracks the last-seen local-player position/pause, as reported
// by the player state pump, so UpdateFromPlayer can detect edge-triggered
// pause changes and seeks (spec §3's Local playback state record).
type LocalState struct {
	Position    float64
	Paused      bool
	Initialized bool
}

// UpdateFromPlayer folds a fresh (pos, paused) player sample into the
// state, returning whether this sample represents a user-driven pause
// change or a user-driven seek, per spec §3's exact tuple definition.
// Both are false until the first sample has been folded in (Initialized).
func (l *LocalState) UpdateFromPlayer(pos float64, paused bool, globalPosition float64, globalPaused bool) (pauseChange, seeked bool) {
	prevPos, prevPaused, wasInitialized := l.Position, l.Paused, l.Initialized

	pauseChange = wasInitialized && paused != prevPaused && globalPaused != paused
	seeked = wasInitialized && absf(prevPos-pos) > 1.0 && absf(globalPosition-pos) > 1.0

	l.Position = pos
	l.Paused = paused
	l.Initialized = true
	return pauseChange, seeked
}

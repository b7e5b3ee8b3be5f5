package session

import (
	"context"

	"github.com/syncplay-go/client/player"
)

// fakeBackend is a minimal player.Backend double for exercising
// orchestrator logic without a real player process.
type fakeBackend struct {
	paused   bool
	position float64
	speed    float64
	osdCalls []string

	// noState makes GetState report nothing yet, simulating a backend that
	// has just been spawned and hasn't parsed its first status update.
	noState bool
}

var _ player.Backend = (*fakeBackend)(nil)

func (f *fakeBackend) Kind() player.Kind { return player.MPV }
func (f *fakeBackend) Name() string      { return "fake" }

func (f *fakeBackend) GetState() player.State {
	if f.noState {
		return player.State{}
	}
	paused := f.paused
	pos := f.position
	speed := f.speed
	return player.State{Paused: &paused, Position: &pos, Speed: &speed}
}

func (f *fakeBackend) PollState(ctx context.Context) error { return nil }

func (f *fakeBackend) SetPosition(ctx context.Context, seconds float64) error {
	f.position = seconds
	return nil
}

func (f *fakeBackend) SetPaused(ctx context.Context, paused bool) error {
	f.paused = paused
	return nil
}

func (f *fakeBackend) SetSpeed(ctx context.Context, rate float64) error {
	f.speed = rate
	return nil
}

func (f *fakeBackend) LoadFile(ctx context.Context, pathOrURL string) error { return nil }

func (f *fakeBackend) ShowOSD(text string, durationMs int) error {
	f.osdCalls = append(f.osdCalls, text)
	return nil
}

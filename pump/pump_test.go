package pump

import (
	"context"
	"testing"
	"time"
)

type fakeHooks struct {
	snapshots []Snapshot
	idx       int

	connected          bool
	suppressUnpause    bool
	instaplayAllowed   bool
	forcePauseCalled   int
	ready              bool
	manualReadySent    int
	suppressFileUpdate bool
	fileUpdates        []Snapshot
	playstates         []Snapshot
	advances           int
}

func (f *fakeHooks) Poll(ctx context.Context) (Snapshot, error) {
	if f.idx >= len(f.snapshots) {
		return Snapshot{}, nil
	}
	s := f.snapshots[f.idx]
	f.idx++
	return s, nil
}

func (f *fakeHooks) Connected() bool { return f.connected }

func (f *fakeHooks) TakeSuppressUnpauseCheck() bool {
	v := f.suppressUnpause
	f.suppressUnpause = false
	return v
}

func (f *fakeHooks) InstaplayAllowed() bool { return f.instaplayAllowed }

func (f *fakeHooks) ForcePause(ctx context.Context) { f.forcePauseCalled++ }

func (f *fakeHooks) IsReady() bool { return f.ready }

func (f *fakeHooks) SendManualReady() { f.manualReadySent++ }

func (f *fakeHooks) TakeSuppressNextFileUpdate() bool {
	v := f.suppressFileUpdate
	f.suppressFileUpdate = false
	return v
}

func (f *fakeHooks) SendFileUpdate(filename string, duration float64) {
	f.fileUpdates = append(f.fileUpdates, Snapshot{Filename: filename, Duration: duration, HasState: true})
}

func (f *fakeHooks) SendPlaystate(position float64, paused bool) {
	f.playstates = append(f.playstates, Snapshot{Position: position, Paused: paused, HasState: true})
}

func (f *fakeHooks) AdvancePlaylist() { f.advances++ }

func TestTickSendsFileUpdateAndPlaystateOnFirstTick(t *testing.T) {
	h := &fakeHooks{connected: true, snapshots: []Snapshot{
		{Filename: "a.mkv", Duration: 100, Position: 0, Paused: false, HasState: true},
	}}
	p := New(h)
	p.tick(context.Background())

	if len(h.fileUpdates) != 1 {
		t.Fatalf("expected 1 file update, got %d", len(h.fileUpdates))
	}
	if len(h.playstates) != 1 {
		t.Fatalf("expected 1 playstate send, got %d", len(h.playstates))
	}
}

func TestTickSkipsServerSideWorkWhenDisconnected(t *testing.T) {
	h := &fakeHooks{connected: false, snapshots: []Snapshot{
		{Filename: "a.mkv", Duration: 100, Position: 0, Paused: false, HasState: true},
	}}
	p := New(h)
	p.tick(context.Background())

	if len(h.fileUpdates) != 0 || len(h.playstates) != 0 {
		t.Fatalf("expected no server-facing work while disconnected")
	}
}

func TestUnpauseBlockedByInstaplayForcesRepauseAndManualReady(t *testing.T) {
	h := &fakeHooks{connected: true, instaplayAllowed: false, ready: false, snapshots: []Snapshot{
		{Filename: "a.mkv", Duration: 100, Position: 10, Paused: true, HasState: true},
		{Filename: "a.mkv", Duration: 100, Position: 10, Paused: false, HasState: true},
	}}
	p := New(h)
	p.tick(context.Background())
	p.tick(context.Background())

	if h.forcePauseCalled != 1 {
		t.Fatalf("expected ForcePause called once, got %d", h.forcePauseCalled)
	}
	if h.manualReadySent != 1 {
		t.Fatalf("expected one manual ready send, got %d", h.manualReadySent)
	}
}

func TestSuppressedUnpauseSkipsInstaplayCheck(t *testing.T) {
	h := &fakeHooks{connected: true, instaplayAllowed: false, suppressUnpause: true, snapshots: []Snapshot{
		{Filename: "a.mkv", Duration: 100, Position: 10, Paused: true, HasState: true},
		{Filename: "a.mkv", Duration: 100, Position: 10, Paused: false, HasState: true},
	}}
	p := New(h)
	p.tick(context.Background())
	p.tick(context.Background())

	if h.forcePauseCalled != 0 {
		t.Fatalf("expected suppressed unpause check to skip ForcePause, got %d calls", h.forcePauseCalled)
	}
}

func TestEndOfFileAdvancesPlaylistOnce(t *testing.T) {
	h := &fakeHooks{connected: true, snapshots: []Snapshot{
		{Filename: "a.mkv", Duration: 100, Position: 99.9, Paused: false, HasState: true},
		{Filename: "a.mkv", Duration: 100, Position: 99.9, Paused: false, HasState: true},
	}}
	p := New(h)
	p.tick(context.Background())
	p.tick(context.Background())

	if h.advances != 1 {
		t.Fatalf("expected exactly one playlist advance, got %d", h.advances)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	h := &fakeHooks{connected: true}
	p := New(h)
	p.SetInterval(time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := p.Run(ctx); err == nil {
		t.Fatalf("expected Run to return an error on context cancellation")
	}
}

package vlc

import (
	"context"
	"io"
	"testing"
	"time"
)

func backendForLineParsing() *Backend {
	return &Backend{}
}

func TestHandleLineParsesTimeLengthRateFile(t *testing.T) {
	b := backendForLineParsing()
	b.handleLine("time: 42")
	b.handleLine("length: 120")
	b.handleLine("rate: 1.5")
	b.handleLine("file: /movies/The Matrix.mkv")

	st := b.GetState()
	if st.Position == nil || *st.Position != 42 {
		t.Fatalf("expected position 42, got %+v", st.Position)
	}
	if st.Duration == nil || *st.Duration != 120 {
		t.Fatalf("expected duration 120, got %+v", st.Duration)
	}
	if st.Speed == nil || *st.Speed != 1.5 {
		t.Fatalf("expected speed 1.5, got %+v", st.Speed)
	}
	if st.Filename == nil || *st.Filename != "The Matrix.mkv" {
		t.Fatalf("expected filename 'The Matrix.mkv', got %+v", st.Filename)
	}
}

func TestHandleLineParsesStateWord(t *testing.T) {
	b := backendForLineParsing()
	b.handleLine("state playing")
	st := b.GetState()
	if st.Paused == nil || *st.Paused {
		t.Fatalf("expected not paused after 'state playing', got %+v", st.Paused)
	}

	b.handleLine("state paused")
	st = b.GetState()
	if st.Paused == nil || !*st.Paused {
		t.Fatalf("expected paused after 'state paused', got %+v", st.Paused)
	}
}

func TestSetPausedOnlySendsOnTransition(t *testing.T) {
	pr, pw := io.Pipe()
	b := &Backend{stdin: pw}
	ready := false
	go func() {
		buf := make([]byte, 64)
		for {
			n, err := pr.Read(buf)
			if n > 0 {
				ready = true
			}
			if err != nil {
				return
			}
		}
	}()

	paused := true
	b.state.Paused = &paused
	if err := b.SetPaused(context.Background(), true); err != nil {
		t.Fatalf("SetPaused: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if ready {
		t.Fatalf("expected no command sent when already in desired pause state")
	}
}

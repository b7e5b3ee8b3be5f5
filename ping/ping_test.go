package ping

import "testing"

func TestRTTAveragesAndEvicts(t *testing.T) {
	w := NewWindow()
	for i := 0; i < windowSize+5; i++ {
		w.RecordSample(1.0)
	}
	if got := w.RTT(); got != 1.0 {
		t.Fatalf("expected average 1.0, got %v", got)
	}

	w2 := NewWindow()
	for i := 0; i < windowSize; i++ {
		w2.RecordSample(0)
	}
	w2.RecordSample(10) // evicts one 0, window becomes 9 zeros + 10
	got := w2.RTT()
	want := 10.0 / float64(windowSize)
	if got != want {
		t.Fatalf("expected %v after eviction, got %v", want, got)
	}
}

func TestRTTEmptyWindow(t *testing.T) {
	w := NewWindow()
	if got := w.RTT(); got != 0 {
		t.Fatalf("expected 0 for empty window, got %v", got)
	}
}

func TestReceiveMessageClampsNegativeDelay(t *testing.T) {
	w := NewWindow()
	future := NewTimestamp() + 1000
	got := w.ReceiveMessage(future, 0)
	if got != 0 {
		t.Fatalf("expected clamped 0 delay, got %v", got)
	}
	if w.ForwardDelay() != 0 {
		t.Fatalf("expected stored forward delay 0, got %v", w.ForwardDelay())
	}
}

func TestReceiveMessageComputesHalfRoundTrip(t *testing.T) {
	w := NewWindow()
	now := NewTimestamp()
	clientCalc := now - 1.0 // 1 second ago
	serverRTT := 0.2
	got := w.ReceiveMessage(clientCalc, serverRTT)
	// delay ~= (1.0 - 0.2)/2 = 0.4, allow small timing slop
	if got < 0.3 || got > 0.5 {
		t.Fatalf("expected ~0.4s forward delay, got %v", got)
	}
}

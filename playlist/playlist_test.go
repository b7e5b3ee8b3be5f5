package playlist

import "testing"

func TestCurrentIndexNilWhenEmpty(t *testing.T) {
	p := New()
	if _, ok := p.CurrentIndex(); ok {
		t.Fatalf("expected no current index on empty playlist")
	}
}

func TestAddFirstItemBecomesCurrent(t *testing.T) {
	p := New()
	p.Add("a.mkv")
	idx, ok := p.CurrentIndex()
	if !ok || idx != 0 {
		t.Fatalf("expected current=0, got %v ok=%v", idx, ok)
	}
}

func TestNextWrapsByDefault(t *testing.T) {
	p := New()
	p.Add("a")
	p.Add("b")
	p.Add("c")
	p.SetCurrentIndex(2)
	p.Next()
	idx, _ := p.CurrentIndex()
	if idx != 0 {
		t.Fatalf("expected wrap to 0, got %d", idx)
	}
}

func TestNextHoldsAtEndWhenLooping(t *testing.T) {
	p := New()
	p.Add("a")
	p.Add("b")
	p.SetLoop(true)
	p.SetCurrentIndex(1)
	p.Next()
	idx, _ := p.CurrentIndex()
	if idx != 1 {
		t.Fatalf("expected to hold at last index, got %d", idx)
	}
}

func TestPreviousWrapsToEnd(t *testing.T) {
	p := New()
	p.Add("a")
	p.Add("b")
	p.Add("c")
	p.SetCurrentIndex(0)
	p.Previous()
	idx, _ := p.CurrentIndex()
	if idx != 2 {
		t.Fatalf("expected wrap to len-1=2, got %d", idx)
	}
}

func TestRemoveBeforeCurrentDecrements(t *testing.T) {
	p := New()
	p.Add("a")
	p.Add("b")
	p.Add("c")
	p.SetCurrentIndex(2) // "c"
	p.Remove(0)          // remove "a"
	idx, _ := p.CurrentIndex()
	if idx != 1 {
		t.Fatalf("expected current to decrement to 1, got %d", idx)
	}
	if p.Items()[idx] != "c" {
		t.Fatalf("expected current item still 'c', got %q", p.Items()[idx])
	}
}

func TestRemoveAtCurrentSnapsToNewEnd(t *testing.T) {
	p := New()
	p.Add("a")
	p.Add("b")
	p.Add("c")
	p.SetCurrentIndex(2) // "c", last item
	p.Remove(2)
	idx, ok := p.CurrentIndex()
	if !ok || idx != 1 {
		t.Fatalf("expected current snapped to new end (1), got %v ok=%v", idx, ok)
	}
}

func TestRemoveLastItemClearsCurrent(t *testing.T) {
	p := New()
	p.Add("only")
	p.Remove(0)
	if _, ok := p.CurrentIndex(); ok {
		t.Fatalf("expected current cleared to none")
	}
	if p.Len() != 0 {
		t.Fatalf("expected empty playlist")
	}
}

func TestReorderPreservesLogicalCurrentItem(t *testing.T) {
	p := New()
	p.Add("a")
	p.Add("b")
	p.Add("c")
	p.SetCurrentIndex(1) // "b"
	p.Reorder(0, 2)      // move "a" to the end: b, c, a
	idx, ok := p.CurrentIndex()
	if !ok {
		t.Fatalf("expected current to remain set")
	}
	if p.Items()[idx] != "b" {
		t.Fatalf("expected current item to still be 'b', got %q at idx %d (%v)", p.Items()[idx], idx, p.Items())
	}
}

func TestReorderOutOfRangeIsNoop(t *testing.T) {
	p := New()
	p.Add("a")
	p.Add("b")
	before := p.Items()
	p.Reorder(0, 5)
	after := p.Items()
	if len(before) != len(after) || before[0] != after[0] || before[1] != after[1] {
		t.Fatalf("expected no-op on out-of-range reorder, got %v", after)
	}
}

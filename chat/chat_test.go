package chat

import "testing"

func TestRingEvictsOldestAfterCapacity(t *testing.T) {
	r := NewRing(3)
	for i := 0; i < 5; i++ {
		r.Add(Entry{Text: string(rune('a' + i))})
	}
	got := r.GetMessages()
	if len(got) != 3 {
		t.Fatalf("expected 3 retained, got %d", len(got))
	}
	if got[0].Text != "c" || got[1].Text != "d" || got[2].Text != "e" {
		t.Fatalf("expected last 3 in insertion order, got %+v", got)
	}
}

func TestRingSizeIsMinOfNAndCapacity(t *testing.T) {
	r := NewRing(1000)
	for i := 0; i < 10; i++ {
		r.Add(Entry{Text: "x"})
	}
	if r.Len() != 10 {
		t.Fatalf("expected 10, got %d", r.Len())
	}
}

func TestAddAssignsUUIDWhenEmpty(t *testing.T) {
	r := NewRing(10)
	r.Add(Entry{Text: "hi"})
	got := r.GetMessages()
	if got[0].ID == "" {
		t.Fatalf("expected a generated ID")
	}
}

func TestGetRecent(t *testing.T) {
	r := NewRing(10)
	for i := 0; i < 5; i++ {
		r.Add(Entry{Text: string(rune('a' + i))})
	}
	recent := r.GetRecent(2)
	if len(recent) != 2 || recent[0].Text != "d" || recent[1].Text != "e" {
		t.Fatalf("expected last 2, got %+v", recent)
	}
	if len(r.GetRecent(100)) != 5 {
		t.Fatalf("expected all entries when n exceeds length")
	}
}

func TestParseCommand(t *testing.T) {
	cases := []struct {
		in   string
		kind CommandKind
		arg  string
	}{
		{"/room movie-night", ChangeRoom, "movie-night"},
		{"/r x", ChangeRoom, "x"},
		{"/list", ListUsers, ""},
		{"/l", ListUsers, ""},
		{"/help", Help, ""},
		{"/?", Help, ""},
		{"/ready", Ready, ""},
		{"/unready", Unready, ""},
		{"/bogus foo", Unknown, "/bogus foo"},
		{"hello there", NotCommand, ""},
	}
	for _, c := range cases {
		got := ParseCommand(c.in)
		if got.Kind != c.kind {
			t.Errorf("ParseCommand(%q).Kind = %v, want %v", c.in, got.Kind, c.kind)
		}
		if c.kind == ChangeRoom && got.Arg != c.arg {
			t.Errorf("ParseCommand(%q).Arg = %q, want %q", c.in, got.Arg, c.arg)
		}
	}
}

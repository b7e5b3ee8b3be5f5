package mplayer

import "testing"

func TestHandleLineParsesAnswers(t *testing.T) {
	b := &Backend{}
	b.handleLine(`ANS_TIME_POSITION=12.500000`)
	b.handleLine(`ANS_LENGTH=90.000000`)
	b.handleLine(`ANS_FILE_NAME="movie.mkv"`)
	b.handleLine(`ANS_pause=yes`)
	b.handleLine(`ANS_speed=1.000000`)

	st := b.GetState()
	if st.Position == nil || *st.Position != 12.5 {
		t.Fatalf("expected position 12.5, got %+v", st.Position)
	}
	if st.Duration == nil || *st.Duration != 90 {
		t.Fatalf("expected duration 90, got %+v", st.Duration)
	}
	if st.Filename == nil || *st.Filename != "movie.mkv" {
		t.Fatalf("expected filename movie.mkv, got %+v", st.Filename)
	}
	if st.Paused == nil || !*st.Paused {
		t.Fatalf("expected paused=true, got %+v", st.Paused)
	}
	if st.Speed == nil || *st.Speed != 1.0 {
		t.Fatalf("expected speed 1.0, got %+v", st.Speed)
	}
}

func TestParseBoolWord(t *testing.T) {
	cases := []struct {
		in   string
		want bool
		ok   bool
	}{
		{"yes", true, true},
		{"1", true, true},
		{"no", false, true},
		{"0", false, true},
		{"garbage", false, false},
	}
	for _, c := range cases {
		got, ok := parseBoolWord(c.in)
		if ok != c.ok || (ok && got != c.want) {
			t.Errorf("parseBoolWord(%q) = (%v,%v), want (%v,%v)", c.in, got, ok, c.want, c.ok)
		}
	}
}

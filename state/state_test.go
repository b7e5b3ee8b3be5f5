package state

import (
	"testing"
	"time"
)

func TestUpsertAndRemoveUser(t *testing.T) {
	s := New()
	s.UpsertUser(User{Username: "alice", Room: "movie-night"})
	u, ok := s.User("alice")
	if !ok || u.Room != "movie-night" {
		t.Fatalf("expected alice in movie-night, got %+v ok=%v", u, ok)
	}
	s.RemoveUser("alice")
	if _, ok := s.User("alice"); ok {
		t.Fatalf("expected alice removed")
	}
}

func TestUsersInRoomFiltersCorrectly(t *testing.T) {
	s := New()
	s.UpsertUser(User{Username: "alice", Room: "a"})
	s.UpsertUser(User{Username: "bob", Room: "b"})
	s.UpsertUser(User{Username: "carol", Room: "a"})

	got := s.UsersInRoom("a")
	if len(got) != 2 {
		t.Fatalf("expected 2 users in room a, got %d", len(got))
	}
	if _, ok := got["bob"]; ok {
		t.Fatalf("expected bob excluded from room a")
	}
}

func TestUsersReturnsCopyNotLiveMap(t *testing.T) {
	s := New()
	s.UpsertUser(User{Username: "alice"})
	snap := s.Users()
	snap["alice"] = User{Username: "mutated"}
	got, _ := s.User("alice")
	if got.Username != "alice" {
		t.Fatalf("expected internal map unaffected by caller mutation, got %+v", got)
	}
}

func TestFileSetAndClear(t *testing.T) {
	s := New()
	s.SetFile("movie.mkv", 1024, 90.5)
	name, size, dur, ok := s.File()
	if !ok || name != "movie.mkv" || size != 1024 || dur != 90.5 {
		t.Fatalf("unexpected file state: %q %d %v %v", name, size, dur, ok)
	}
	s.ClearFile()
	_, _, _, ok = s.File()
	if ok {
		t.Fatalf("expected file cleared")
	}
}

func TestGlobalPlaystateMessageAge(t *testing.T) {
	ts := time.Now().Add(-2 * time.Second)
	g := GlobalPlaystate{Position: 10, ReceivedAt: ts}
	age := g.MessageAge(ts.Add(2 * time.Second))
	if age < 1.9 || age > 2.1 {
		t.Fatalf("expected ~2s message age, got %v", age)
	}
}

func TestGlobalPlaystateRoundTrip(t *testing.T) {
	s := New()
	g := GlobalPlaystate{Position: 42, Paused: true, SetBy: "alice", ReceivedAt: time.Now()}
	s.SetGlobalPlaystate(g)
	got := s.GlobalPlaystate()
	if got.Position != 42 || !got.Paused || got.SetBy != "alice" {
		t.Fatalf("unexpected playstate %+v", got)
	}
}

package protocol

import (
	"strings"
	"testing"
)

func roundTrip(t *testing.T, msg *Message) *Message {
	t.Helper()
	data, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(data[:len(data)-1]) // strip trailing LF
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return got
}

func TestRoundTripHello(t *testing.T) {
	motd := "hi"
	msg := &Message{Hello: &HelloMsg{
		Username:    "u",
		Room:        &RoomRef{Name: "r"},
		Version:     "1.2.255",
		RealVersion: "1.7.4",
		Features:    &FeatureBag{Chat: true, ReadyState: true},
		Motd:        &motd,
	}}
	got := roundTrip(t, msg)
	if got.Hello == nil || got.Hello.Username != "u" || got.Hello.Room.Name != "r" {
		t.Fatalf("round trip mismatch: %+v", got.Hello)
	}
	if got.Hello.Motd == nil || *got.Hello.Motd != "hi" {
		t.Fatalf("motd not preserved: %+v", got.Hello.Motd)
	}
}

func TestRoundTripSetReadyNullIsReady(t *testing.T) {
	line := []byte(`{"Set":{"ready":{"isReady":null}}}`)
	got, err := Decode(line)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got = roundTrip(t, got)
	if !got.Set.Ready.IsReady.Known || !got.Set.Ready.IsReady.Null {
		t.Fatalf("expected known+null isReady, got %+v", got.Set.Ready.IsReady)
	}
	if got.Set.Ready.IsReady.HasValue() {
		t.Fatalf("null isReady must not report HasValue")
	}
}

func TestRoundTripSetReadyFalseDistinctFromNull(t *testing.T) {
	line := []byte(`{"Set":{"ready":{"isReady":false}}}`)
	got, err := Decode(line)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got = roundTrip(t, got)
	if got.Set.Ready.IsReady.Null {
		t.Fatalf("isReady:false must not decode as null")
	}
	if !got.Set.Ready.IsReady.HasValue() || got.Set.Ready.IsReady.Value != false {
		t.Fatalf("expected HasValue=true, Value=false, got %+v", got.Set.Ready.IsReady)
	}
}

func TestRoundTripPlaylistIndexNull(t *testing.T) {
	line := []byte(`{"Set":{"playlistIndex":{"index":null}}}`)
	got, err := Decode(line)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got = roundTrip(t, got)
	if !got.Set.PlaylistIndex.Index.Known || !got.Set.PlaylistIndex.Index.Null {
		t.Fatalf("expected null index, got %+v", got.Set.PlaylistIndex.Index)
	}
}

func TestRoundTripUserEventOverflow(t *testing.T) {
	line := []byte(`{"Set":{"user":{"alice":{"event":{"joined":true,"someNewFlag":42}}}}}`)
	got, err := Decode(line)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got = roundTrip(t, got)
	ev := got.Set.User["alice"].Event
	if !ev.Joined {
		t.Fatalf("expected joined=true")
	}
	if ev.Overflow["someNewFlag"].(float64) != 42 {
		t.Fatalf("expected overflow field preserved, got %+v", ev.Overflow)
	}
}

func TestListNullMeansEmpty(t *testing.T) {
	got, err := Decode([]byte(`{"List":null}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got.List.Rooms) != 0 {
		t.Fatalf("expected empty rooms, got %+v", got.List.Rooms)
	}
	data, err := Encode(&Message{List: &ListMsg{}})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if strings.TrimSpace(string(data)) != `{"List":null}` {
		t.Fatalf("expected null list on encode, got %s", data)
	}
}

func TestChatBareString(t *testing.T) {
	got, err := Decode([]byte(`{"Chat":"hello everyone"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Chat.Raw != "hello everyone" {
		t.Fatalf("expected raw chat text, got %+v", got.Chat)
	}
}

func TestChatStructured(t *testing.T) {
	got, err := Decode([]byte(`{"Chat":{"username":"bob","message":"hi"}}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Chat.Username != "bob" || got.Chat.Message != "hi" {
		t.Fatalf("expected structured chat, got %+v", got.Chat)
	}
}

func TestEnvelopeMustHaveExactlyOneKey(t *testing.T) {
	_, err := Decode([]byte(`{"Hello":{},"Chat":{}}`))
	if err == nil {
		t.Fatalf("expected error for multi-key envelope")
	}
}

func TestUnknownTagFails(t *testing.T) {
	_, err := Decode([]byte(`{"Bogus":{}}`))
	if err == nil {
		t.Fatalf("expected error for unknown tag")
	}
}

func TestIgnoringOnTheFlyRoundTrip(t *testing.T) {
	server := uint32(3)
	msg := &Message{State: &StateMsg{IgnoringOnTheFly: &IgnoringOnTheFly{Server: &server}}}
	got := roundTrip(t, msg)
	if got.State.IgnoringOnTheFly == nil || got.State.IgnoringOnTheFly.Server == nil || *got.State.IgnoringOnTheFly.Server != 3 {
		t.Fatalf("round trip mismatch: %+v", got.State.IgnoringOnTheFly)
	}
	if got.State.IgnoringOnTheFly.Client != nil {
		t.Fatalf("expected client counter absent, got %+v", got.State.IgnoringOnTheFly.Client)
	}
}

func TestReaderSkipsEmptyLinesAndStripsCR(t *testing.T) {
	r := NewReader(strings.NewReader("\r\n{\"TLS\":{\"startTLS\":\"true\"}}\r\n\n"))
	msg, err := r.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if msg.TLS == nil || msg.TLS.StartTLS != "true" {
		t.Fatalf("expected TLS message, got %+v", msg)
	}
}

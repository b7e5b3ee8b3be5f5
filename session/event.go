package session

import (
	"time"

	"github.com/syncplay-go/client/chat"
	"github.com/syncplay-go/client/config"
	"github.com/syncplay-go/client/state"
)

// EventKind tags one Event published on Orchestrator.Events(), spec §6.5.
type EventKind int

const (
	ConnectionStatusChanged EventKind = iota
	TLSStatusChanged
	UserListUpdated
	PlaylistUpdated
	ChatMessageReceived
	PlayerStateChanged
	PingUpdated
	ConfigUpdated
)

// TLSStatus is the small enum spec §6.5 names for tls-status-changed.
type TLSStatus int

const (
	TLSUnknown TLSStatus = iota
	TLSPending
	TLSEnabled
	TLSUnsupported
)

func (s TLSStatus) String() string {
	switch s {
	case TLSPending:
		return "pending"
	case TLSEnabled:
		return "enabled"
	case TLSUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// PlaylistSnapshot is the payload for PlaylistUpdated.
type PlaylistSnapshot struct {
	Items        []string
	CurrentIndex *int
}

// PlayerStateSnapshot is the payload for PlayerStateChanged; pointer fields
// mirror player.State's "nil means unknown" convention.
type PlayerStateSnapshot struct {
	Filename *string
	Position *float64
	Duration *float64
	Paused   *bool
	Speed    *float64
}

// Event is one item the orchestrator publishes upward to the shell. Only
// the field(s) matching Kind are meaningful, the same discriminated-struct
// shape transport.Event uses.
type Event struct {
	Kind EventKind

	Connected bool   // ConnectionStatusChanged
	Server    string // ConnectionStatusChanged

	TLSStatus TLSStatus // TLSStatusChanged

	Users []state.User // UserListUpdated

	Playlist PlaylistSnapshot // PlaylistUpdated

	ChatTimestamp   time.Time // ChatMessageReceived
	ChatUsername    string    // ChatMessageReceived
	ChatMessage     string    // ChatMessageReceived
	ChatMessageType string    // ChatMessageReceived

	PlayerState PlayerStateSnapshot // PlayerStateChanged

	PingRTTMs float64 // PingUpdated

	Config *config.Config // ConfigUpdated
}

func chatEntryEvent(e chat.Entry) Event {
	return Event{
		Kind:            ChatMessageReceived,
		ChatTimestamp:   e.Ts,
		ChatUsername:    e.Username,
		ChatMessage:     e.Text,
		ChatMessageType: e.Kind.String(),
	}
}

// Package protocol implements the Syncplay wire grammar: a newline-delimited
// JSON stream of single-key tagged messages (Hello, Set, State, Chat, Error,
// TLS, List) plus the tolerant field-level decoding the server's JSON
// occasionally requires (present/null/absent all mean different things).
package protocol

import (
	"encoding/json"
	"fmt"
)

// Opt is a two-level optional: Known reports whether a value was set (see
// Set), and Value holds it. Opt has no JSON (un)marshalling of its own;
// wire fields that must tell absent, null and present-with-value apart
// use NullOpt instead.
type Opt[T any] struct {
	Known bool
	Value T
}

func Set[T any](v T) Opt[T] { return Opt[T]{Known: true, Value: v} }

// NullOpt is a value that is present-but-null vs. present-with-value vs.
// entirely absent. Used for fields like ready.isReady and
// playlistIndex.index where the server sends an explicit JSON null that
// must not be confused with the field being omitted.
type NullOpt[T any] struct {
	Known bool // field key present in the object
	Null  bool // value was JSON null
	Value T    // valid only if Known && !Null
}

func (n *NullOpt[T]) UnmarshalJSON(data []byte) error {
	n.Known = true
	if string(data) == "null" {
		n.Null = true
		var zero T
		n.Value = zero
		return nil
	}
	return json.Unmarshal(data, &n.Value)
}

func (n NullOpt[T]) MarshalJSON() ([]byte, error) {
	if n.Null {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// HasValue reports whether the field was present with a non-null value.
func (n NullOpt[T]) HasValue() bool { return n.Known && !n.Null }

// Message is the decoded, tagged form of one protocol line. Exactly one of
// the pointer fields is non-nil after Decode, matching the "single top
// level key" envelope rule.
type Message struct {
	Hello *HelloMsg
	Set   *SetMsg
	State *StateMsg
	Chat  *ChatMsg
	Error *ErrorMsg
	TLS   *TLSMsg
	List  *ListMsg
}

// HelloMsg is both the client's handshake request and the server's reply.
type HelloMsg struct {
	Username    string       `json:"username,omitempty"`
	Password    string       `json:"password,omitempty"`
	Room        *RoomRef     `json:"room,omitempty"`
	Version     string       `json:"version,omitempty"`
	RealVersion string       `json:"realversion,omitempty"`
	Features    *FeatureBag  `json:"features,omitempty"`
	Motd        *string      `json:"motd,omitempty"`
}

// RoomRef names a room (used inside Hello).
type RoomRef struct {
	Name string `json:"name"`
}

// FeatureBag is the fixed capability set this client advertises (spec §6.3).
// Any server feature set beyond these keys is ignored, per spec's design
// note that feature negotiation is intentionally stubbed.
type FeatureBag struct {
	SharedPlaylists bool `json:"sharedPlaylists"`
	Chat            bool `json:"chat"`
	ReadyState      bool `json:"readyState"`
	ManagedRooms    bool `json:"managedRooms"`
	PersistentRooms bool `json:"persistentRooms"`
}

// ListMsg carries the full user roster, keyed by room then username.
// A bare `{"List": null}` line is a valid request/response meaning "empty".
type ListMsg struct {
	Rooms map[string]map[string]ListUser `json:"-"`
}

// ListUser is one user entry inside a List reply.
type ListUser struct {
	File        *FileInfo `json:"file,omitempty"`
	IsReady     NullOpt[bool] `json:"isReady"`
	IsController bool `json:"controller,omitempty"`
}

// FileInfo is file metadata as carried on the wire (set/user.file, List).
type FileInfo struct {
	Name     string  `json:"name,omitempty"`
	Size     *int64  `json:"size,omitempty"`
	Duration *float64 `json:"duration,omitempty"`
}

// ChatMsg is either a structured {username,message} entry or bare text,
// per spec §4.K.2.
type ChatMsg struct {
	Username string `json:"username,omitempty"`
	Message  string `json:"message,omitempty"`
	Raw      string `json:"-"` // set when the payload was a bare JSON string
}

// ErrorMsg is a server-originated error string.
type ErrorMsg struct {
	Message string `json:"-"`
}

// TLSMsg is the startTLS negotiation envelope.
type TLSMsg struct {
	StartTLS string `json:"startTLS"`
}

// SetMsg is the large grab-bag "Set" message; each field is a sub-command.
type SetMsg struct {
	Room             *SetRoom             `json:"room,omitempty"`
	File             *SetFile             `json:"file,omitempty"`
	User             map[string]*SetUser  `json:"user,omitempty"`
	Ready            *SetReady            `json:"ready,omitempty"`
	PlaylistChange   *SetPlaylistChange   `json:"playlistChange,omitempty"`
	PlaylistIndex    *SetPlaylistIndex    `json:"playlistIndex,omitempty"`
	ControllerAuth   *SetControllerAuth   `json:"controllerAuth,omitempty"`
	NewControlledRoom *SetNewControlledRoom `json:"newControlledRoom,omitempty"`
	Features         *FeatureBag          `json:"features,omitempty"`
}

type SetRoom struct {
	Name string `json:"name"`
}

type SetFile struct {
	Name     string   `json:"name,omitempty"`
	Size     *int64   `json:"size,omitempty"`
	Duration *float64 `json:"duration,omitempty"`
}

// SetUser carries per-user mutations keyed by username in SetMsg.User.
// Event is an open object: known keys joined/left plus an overflow map so
// unrecognised event keys never fail decoding (spec §4.C).
type SetUser struct {
	Room    string         `json:"room,omitempty"`
	File    *FileInfo      `json:"file,omitempty"`
	Event   *SetUserEvent  `json:"event,omitempty"`
}

type SetUserEvent struct {
	Joined   bool           `json:"joined,omitempty"`
	Left     bool           `json:"left,omitempty"`
	Overflow map[string]any `json:"-"`
}

func (e *SetUserEvent) UnmarshalJSON(data []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["joined"]; ok {
		_ = json.Unmarshal(v, &e.Joined)
		delete(raw, "joined")
	}
	if v, ok := raw["left"]; ok {
		_ = json.Unmarshal(v, &e.Left)
		delete(raw, "left")
	}
	if len(raw) > 0 {
		e.Overflow = map[string]any{}
		for k, v := range raw {
			var val any
			_ = json.Unmarshal(v, &val)
			e.Overflow[k] = val
		}
	}
	return nil
}

func (e SetUserEvent) MarshalJSON() ([]byte, error) {
	m := map[string]any{}
	for k, v := range e.Overflow {
		m[k] = v
	}
	if e.Joined {
		m["joined"] = true
	}
	if e.Left {
		m["left"] = true
	}
	return json.Marshal(m)
}

// SetReady mirrors Syncplay's ready.isReady, which may be absent (treat as
// "manual bump", §4.K.2), present-null ("unknown"), or present-with-value.
type SetReady struct {
	IsReady            NullOpt[bool] `json:"isReady"`
	ManuallyInitiated  bool          `json:"manuallyInitiated,omitempty"`
	Username           string        `json:"username,omitempty"`
}

type SetPlaylistChange struct {
	User  string   `json:"user,omitempty"`
	Files []string `json:"files"`
}

// SetPlaylistIndex carries the new current index; Index is null when there
// is no current item (spec §4.C: "playlistIndex.index=null must decode to
// 'no index'").
type SetPlaylistIndex struct {
	User  string         `json:"user,omitempty"`
	Index NullOpt[int]   `json:"index"`
}

type SetControllerAuth struct {
	Room     string `json:"room,omitempty"`
	Password string `json:"password,omitempty"`
	User     string `json:"user,omitempty"`
	Success  bool   `json:"success,omitempty"`
}

type SetNewControlledRoom struct {
	RoomName string `json:"roomName"`
	Password string `json:"password"`
}

// StateMsg is the periodic state exchange: local playstate, ping timing,
// and the ignoring-on-the-fly echo-suppression counters.
type StateMsg struct {
	Playstate *Playstate `json:"playstate,omitempty"`
	Ping      *PingInfo  `json:"ping,omitempty"`
	IgnoringOnTheFly *IgnoringOnTheFly `json:"ignoringOnTheFly,omitempty"`
}

type Playstate struct {
	Position float64 `json:"position"`
	Paused   bool    `json:"paused"`
	DoSeek   bool    `json:"doSeek,omitempty"`
	SetBy    *string `json:"setBy,omitempty"`
}

type PingInfo struct {
	LatencyCalculation       float64  `json:"latencyCalculation,omitempty"`
	ClientLatencyCalculation float64  `json:"clientLatencyCalculation,omitempty"`
	ClientRtt                float64  `json:"clientRtt,omitempty"`
	ServerRtt                float64  `json:"serverRtt,omitempty"`
}

type IgnoringOnTheFly struct {
	Server *uint32 `json:"server,omitempty"`
	Client *uint32 `json:"client,omitempty"`
}

// --- Hello/List/Chat/Error/unmarshal/marshal plumbing ---

func (m *HelloMsg) clone() *HelloMsg {
	if m == nil {
		return nil
	}
	c := *m
	return &c
}

// validateEnvelope ensures exactly one tag key is present, per the "never
// untagged-fallback" design note.
func validateEnvelope(raw map[string]json.RawMessage) (string, json.RawMessage, error) {
	if len(raw) != 1 {
		return "", nil, fmt.Errorf("envelope must have exactly one key, got %d", len(raw))
	}
	for k, v := range raw {
		return k, v, nil
	}
	return "", nil, fmt.Errorf("empty envelope")
}

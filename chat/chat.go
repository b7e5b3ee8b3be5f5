// Package chat implements the bounded chat ring and slash-command parser.
// The fixed-capacity-with-eviction ring shape is a front-eviction FIFO,
// simplified from a per-sender playback queue into a single queue.
package chat

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind tags the origin/purpose of a chat entry.
type Kind int

const (
	User Kind = iota
	System
	Server
	Error
)

// String renders the messageType value spec §6.5 names for the
// chat-message-received event.
func (k Kind) String() string {
	switch k {
	case User:
		return "user"
	case System:
		return "system"
	case Server:
		return "server"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Entry is one chat-ring item. ID is additive over spec.md (see
// SPEC_FULL.md §3) so a desktop UI has a stable react-key per row.
type Entry struct {
	ID       string
	Ts       time.Time
	Username string // empty for non-user kinds
	Text     string
	Kind     Kind
}

// DefaultCapacity is the ring size spec §3 names ("default 1000").
const DefaultCapacity = 1000

// Ring is a bounded FIFO of chat Entry values. Not safe for concurrent use
// without external synchronisation — callers (session.Orchestrator) guard
// it with a mutex of their own.
type Ring struct {
	capacity int
	entries  []Entry
}

func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{capacity: capacity}
}

// Add appends an entry, stamping it with a fresh UUID if ID is empty, and
// evicts from the front once capacity is exceeded.
func (r *Ring) Add(e Entry) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	r.entries = append(r.entries, e)
	if over := len(r.entries) - r.capacity; over > 0 {
		r.entries = r.entries[over:]
	}
}

// GetMessages returns a copy of all retained entries, oldest first.
func (r *Ring) GetMessages() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// GetRecent returns a copy of the last n entries (or all, if fewer exist).
func (r *Ring) GetRecent(n int) []Entry {
	if n >= len(r.entries) {
		return r.GetMessages()
	}
	if n <= 0 {
		return nil
	}
	start := len(r.entries) - n
	out := make([]Entry, n)
	copy(out, r.entries[start:])
	return out
}

// Len reports the number of retained entries.
func (r *Ring) Len() int { return len(r.entries) }

// Command is a parsed slash command (spec §4.G).
type Command struct {
	Kind CommandKind
	Arg  string // room name for ChangeRoom; raw text for Unknown
}

type CommandKind int

const (
	NotCommand CommandKind = iota
	ChangeRoom
	ListUsers
	Help
	Ready
	Unready
	Unknown
)

// ParseCommand recognises the slash-commands named in spec §4.G. Input not
// starting with "/" is NotCommand.
func ParseCommand(text string) Command {
	if !strings.HasPrefix(text, "/") {
		return Command{Kind: NotCommand}
	}
	fields := strings.SplitN(text, " ", 2)
	head := strings.ToLower(fields[0])
	var arg string
	if len(fields) > 1 {
		arg = strings.TrimSpace(fields[1])
	}
	switch head {
	case "/room", "/r":
		return Command{Kind: ChangeRoom, Arg: arg}
	case "/list", "/l":
		return Command{Kind: ListUsers}
	case "/help", "/h", "/?":
		return Command{Kind: Help}
	case "/ready":
		return Command{Kind: Ready}
	case "/unready":
		return Command{Kind: Unready}
	default:
		return Command{Kind: Unknown, Arg: text}
	}
}

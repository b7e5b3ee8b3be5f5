package protocol

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/syncplay-go/client/syncerr"
)

// Reader decodes one framed Syncplay message per line from an underlying
// byte stream. It keeps no state beyond the bufio.Scanner's line buffer —
// the spec's "no internal buffering beyond what the stream layer needs for
// line boundaries".
type Reader struct {
	scanner *bufio.Scanner
}

func NewReader(r io.Reader) *Reader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1<<20)
	return &Reader{scanner: s}
}

// ReadMessage blocks for the next non-empty line and decodes it. It returns
// io.EOF when the stream is exhausted. A single malformed line is returned
// as a *syncerr.Error with Kind FramingMalformed/UnknownMessage; the caller
// decides whether to skip it and keep reading (spec §7: "a single malformed
// line is logged and skipped without tearing down the session").
func (r *Reader) ReadMessage() (*Message, error) {
	for r.scanner.Scan() {
		line := strings.TrimRight(r.scanner.Text(), "\r")
		if line == "" {
			continue
		}
		return Decode([]byte(line))
	}
	if err := r.scanner.Err(); err != nil {
		return nil, syncerr.Wrap(syncerr.Io, "read frame", err)
	}
	return nil, io.EOF
}

// Decode parses exactly one line into a tagged Message.
func Decode(line []byte) (*Message, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, syncerr.Wrap(syncerr.FramingMalformed, "invalid json", err)
	}
	tag, payload, err := validateEnvelope(raw)
	if err != nil {
		return nil, syncerr.Wrap(syncerr.FramingMalformed, "invalid envelope", err)
	}

	msg := &Message{}
	switch tag {
	case "Hello":
		var h HelloMsg
		if err := json.Unmarshal(payload, &h); err != nil {
			return nil, syncerr.Wrap(syncerr.FramingMalformed, "Hello", err)
		}
		msg.Hello = &h
	case "Set":
		var s SetMsg
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, syncerr.Wrap(syncerr.FramingMalformed, "Set", err)
		}
		msg.Set = &s
	case "State":
		var s StateMsg
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, syncerr.Wrap(syncerr.FramingMalformed, "State", err)
		}
		msg.State = &s
	case "Chat":
		c, err := decodeChat(payload)
		if err != nil {
			return nil, err
		}
		msg.Chat = c
	case "Error":
		e, err := decodeError(payload)
		if err != nil {
			return nil, err
		}
		msg.Error = e
	case "TLS":
		var t TLSMsg
		if err := json.Unmarshal(payload, &t); err != nil {
			return nil, syncerr.Wrap(syncerr.FramingMalformed, "TLS", err)
		}
		msg.TLS = &t
	case "List":
		l, err := decodeList(payload)
		if err != nil {
			return nil, err
		}
		msg.List = l
	default:
		return nil, syncerr.New(syncerr.UnknownMessage, fmt.Sprintf("unknown tag %q", tag))
	}
	return msg, nil
}

func decodeChat(payload json.RawMessage) (*ChatMsg, error) {
	trimmed := strings.TrimSpace(string(payload))
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, syncerr.Wrap(syncerr.FramingMalformed, "Chat", err)
		}
		return &ChatMsg{Raw: s}, nil
	}
	var c ChatMsg
	if err := json.Unmarshal(payload, &c); err != nil {
		return nil, syncerr.Wrap(syncerr.FramingMalformed, "Chat", err)
	}
	return &c, nil
}

func decodeError(payload json.RawMessage) (*ErrorMsg, error) {
	trimmed := strings.TrimSpace(string(payload))
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, syncerr.Wrap(syncerr.FramingMalformed, "Error", err)
		}
		return &ErrorMsg{Message: s}, nil
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &obj); err != nil {
		return nil, syncerr.Wrap(syncerr.FramingMalformed, "Error", err)
	}
	return &ErrorMsg{Message: obj.Message}, nil
}

func decodeList(payload json.RawMessage) (*ListMsg, error) {
	trimmed := strings.TrimSpace(string(payload))
	if trimmed == "null" {
		return &ListMsg{Rooms: map[string]map[string]ListUser{}}, nil
	}
	var rooms map[string]map[string]ListUser
	if err := json.Unmarshal(payload, &rooms); err != nil {
		return nil, syncerr.Wrap(syncerr.FramingMalformed, "List", err)
	}
	return &ListMsg{Rooms: rooms}, nil
}

// Encode serialises msg to canonical single-key JSON and appends LF.
func Encode(msg *Message) ([]byte, error) {
	tag, payload, err := pick(msg)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(map[string]json.RawMessage{tag: payload})
	if err != nil {
		return nil, syncerr.Wrap(syncerr.FramingMalformed, "encode", err)
	}
	body = append(body, '\n')
	return body, nil
}

func pick(msg *Message) (string, json.RawMessage, error) {
	marshal := func(v any) (json.RawMessage, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, syncerr.Wrap(syncerr.FramingMalformed, "encode payload", err)
		}
		return b, nil
	}
	switch {
	case msg.Hello != nil:
		b, err := marshal(msg.Hello)
		return "Hello", b, err
	case msg.Set != nil:
		b, err := marshal(msg.Set)
		return "Set", b, err
	case msg.State != nil:
		b, err := marshal(msg.State)
		return "State", b, err
	case msg.Chat != nil:
		if msg.Chat.Raw != "" && msg.Chat.Username == "" && msg.Chat.Message == "" {
			b, err := marshal(msg.Chat.Raw)
			return "Chat", b, err
		}
		b, err := marshal(msg.Chat)
		return "Chat", b, err
	case msg.Error != nil:
		b, err := marshal(struct {
			Message string `json:"message"`
		}{msg.Error.Message})
		return "Error", b, err
	case msg.TLS != nil:
		b, err := marshal(msg.TLS)
		return "TLS", b, err
	case msg.List != nil:
		if len(msg.List.Rooms) == 0 {
			return "List", json.RawMessage("null"), nil
		}
		b, err := marshal(msg.List.Rooms)
		return "List", b, err
	default:
		return "", nil, syncerr.New(syncerr.FramingMalformed, "empty message: no variant set")
	}
}

// Writer serialises outbound messages to an underlying io.Writer. Separated
// from Reader so transport.Transport's actor goroutine can own the Writer
// as sole writer while one Reader runs on a background goroutine.
type Writer struct {
	w io.Writer
}

func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

func (w *Writer) WriteMessage(msg *Message) error {
	data, err := Encode(msg)
	if err != nil {
		return err
	}
	_, err = w.w.Write(data)
	if err != nil {
		return syncerr.Wrap(syncerr.Io, "write frame", err)
	}
	return nil
}

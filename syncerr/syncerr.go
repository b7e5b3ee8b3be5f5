// Package syncerr defines the error taxonomy shared across the client.
//
// Components wrap underlying causes (I/O errors, JSON errors, exec errors)
// in a Error so callers can branch on Kind with errors.Is/errors.As without
// parsing message strings.
package syncerr

import "fmt"

// Kind classifies an Error for programmatic handling.
type Kind int

const (
	Io Kind = iota
	TlsHandshake
	FramingMalformed
	FramingTooLong
	UnknownMessage
	NotConnected
	PlayerIpc
	PlayerSpawn
	FileNotFound
	UntrustedUrl
	ConfigInvalid
	ConfigPersistenceFailed
	ProtocolErrorServerMessage
)

func (k Kind) String() string {
	switch k {
	case Io:
		return "io"
	case TlsHandshake:
		return "tls_handshake"
	case FramingMalformed:
		return "framing_malformed"
	case FramingTooLong:
		return "framing_too_long"
	case UnknownMessage:
		return "unknown_message"
	case NotConnected:
		return "not_connected"
	case PlayerIpc:
		return "player_ipc"
	case PlayerSpawn:
		return "player_spawn"
	case FileNotFound:
		return "file_not_found"
	case UntrustedUrl:
		return "untrusted_url"
	case ConfigInvalid:
		return "config_invalid"
	case ConfigPersistenceFailed:
		return "config_persistence_failed"
	case ProtocolErrorServerMessage:
		return "protocol_error"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned by client components.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Kind, letting
// callers write errors.Is(err, syncerr.New(syncerr.NotConnected, "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Package transport owns the single full-duplex TCP/TLS byte stream to a
// Syncplay server. One actor goroutine multiplexes outbound commands,
// inbound decoded frames, and a diagnostic idle tick; writes are
// serialised so Send never reorders against a prior Send on the same
// transport.
package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/syncplay-go/client/protocol"
	"github.com/syncplay-go/client/syncerr"
)

// State is the transport's connection lifecycle state (spec §4.B).
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	TlsPending
	Authenticated
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case TlsPending:
		return "tls_pending"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// EventKind tags an Event delivered on Transport.Events().
type EventKind int

const (
	EventMessage EventKind = iota
	EventDisconnected
)

// Event is one item the transport actor publishes to its consumer.
type Event struct {
	Kind    EventKind
	Message *protocol.Message // set when Kind == EventMessage
	Err     error             // set when Kind == EventDisconnected and non-nil
}

// idleTick is the diagnostic-only tick interval named in spec §4.B.
const idleTick = 10 * time.Second

type sendCmd struct {
	msg   *protocol.Message
	reply chan error
}

type upgradeTlsCmd struct {
	domain string
	reply  chan error
}

// Transport multiplexes outbound Send/UpgradeTls/Disconnect commands
// against one underlying stream. Not safe to share a single instance's
// methods concurrently with Dial/Close beyond what's documented per
// method; the actor goroutine is the sole owner of the conn.
type Transport struct {
	mu    sync.Mutex
	state State
	conn  net.Conn

	sendCh    chan sendCmd
	upgradeCh chan upgradeTlsCmd
	closeCh   chan struct{}
	closeOnce sync.Once

	events chan Event
	done   chan struct{}
}

// Dial connects to addr (host:port) over plaintext TCP and starts the
// actor goroutine. The connection is upgraded to TLS later via
// UpgradeTls, matching the protocol's in-band startTLS negotiation.
func Dial(ctx context.Context, addr string) (*Transport, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, syncerr.Wrap(syncerr.Io, "dial "+addr, err)
	}

	t := &Transport{
		state:     Connected,
		conn:      conn,
		sendCh:    make(chan sendCmd),
		upgradeCh: make(chan upgradeTlsCmd),
		closeCh:   make(chan struct{}),
		events:    make(chan Event, 32),
		done:      make(chan struct{}),
	}

	go t.run(conn)
	return t, nil
}

// Events returns the channel the transport publishes inbound messages and
// the terminal disconnect event on. Closed once the actor exits.
func (t *Transport) Events() <-chan Event { return t.events }

// State returns the current lifecycle state.
func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Transport) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// Send enqueues msg for write. Blocks until the actor has attempted the
// write (or the transport has shut down), so callers observe write
// errors promptly; ordering against prior Sends is preserved because the
// actor is the sole writer.
func (t *Transport) Send(msg *protocol.Message) error {
	reply := make(chan error, 1)
	select {
	case t.sendCh <- sendCmd{msg: msg, reply: reply}:
	case <-t.done:
		return syncerr.New(syncerr.NotConnected, "transport closed")
	}
	select {
	case err := <-reply:
		return err
	case <-t.done:
		return syncerr.New(syncerr.NotConnected, "transport closed")
	}
}

// UpgradeTls performs the in-band TLS upgrade described in spec §4.B:
// take the plaintext conn out of the framed wrapper, handshake against
// domain using platform root CAs, then re-wrap in the same codec.
func (t *Transport) UpgradeTls(domain string) error {
	reply := make(chan error, 1)
	select {
	case t.upgradeCh <- upgradeTlsCmd{domain: domain, reply: reply}:
	case <-t.done:
		return syncerr.New(syncerr.NotConnected, "transport closed")
	}
	select {
	case err := <-reply:
		return err
	case <-t.done:
		return syncerr.New(syncerr.NotConnected, "transport closed")
	}
}

// Close shuts the transport down; safe to call more than once.
func (t *Transport) Close() {
	t.closeOnce.Do(func() {
		close(t.closeCh)
	})
}

// run is the single actor goroutine: it owns conn, the frame reader
// goroutine feeding inbound, and dispatches sendCh/upgradeCh/idle tick.
func (t *Transport) run(conn net.Conn) {
	defer close(t.done)
	defer close(t.events)

	reader := protocol.NewReader(conn)
	writer := protocol.NewWriter(conn)

	var readerDone chan struct{}
	inbound := make(chan *protocol.Message)
	var readErrCh chan error
	stopReader := make(chan struct{})

	// startReader creates a fresh readErrCh (and readerDone) per generation
	// so a stale error from a reader stopped for a TLS upgrade can never be
	// delivered on a later generation's readErrCh case.
	startReader := func(r *protocol.Reader) {
		readerDone = make(chan struct{})
		errCh := make(chan error, 1)
		readErrCh = errCh
		go func(done chan struct{}) {
			defer close(done)
			for {
				msg, err := r.ReadMessage()
				if errors.Is(err, syncerr.New(syncerr.FramingMalformed, "")) || errors.Is(err, syncerr.New(syncerr.UnknownMessage, "")) {
					log.Printf("[transport] skipping bad frame: %v", err)
					continue
				}
				if err != nil {
					select {
					case errCh <- err:
					case <-stopReader:
					}
					return
				}
				select {
				case inbound <- msg:
				case <-stopReader:
					return
				}
			}
		}(readerDone)
	}
	startReader(reader)

	ticker := time.NewTicker(idleTick)
	defer ticker.Stop()

	var finalErr error

loop:
	for {
		select {
		case cmd := <-t.sendCh:
			cmd.reply <- writer.WriteMessage(cmd.msg)

		case cmd := <-t.upgradeCh:
			// The reader is usually blocked in a read; an expired deadline
			// unblocks it so it can observe stopReader.
			close(stopReader)
			conn.SetReadDeadline(time.Now())
			<-readerDone
			conn.SetReadDeadline(time.Time{})
			stopReader = make(chan struct{})

			t.setState(TlsPending)
			tlsConn := tls.Client(conn, &tls.Config{ServerName: cmd.domain})
			if err := tlsConn.HandshakeContext(context.Background()); err != nil {
				// A failed handshake is a hard fallback to plaintext, not a
				// fatal error: stay on the original conn so Send/Hello can
				// still proceed over it. The stopped reader's scanner is
				// spent, so a fresh one is started.
				reader = protocol.NewReader(conn)
				startReader(reader)
				t.setState(Connected)
				cmd.reply <- syncerr.Wrap(syncerr.TlsHandshake, "tls handshake with "+cmd.domain, err)
				continue
			}
			conn = tlsConn
			reader = protocol.NewReader(conn)
			writer = protocol.NewWriter(conn)
			startReader(reader)
			t.setState(Connected)
			cmd.reply <- nil

		case msg := <-inbound:
			select {
			case t.events <- Event{Kind: EventMessage, Message: msg}:
			case <-t.closeCh:
				break loop
			}

		case err := <-readErrCh:
			finalErr = err
			break loop

		case <-ticker.C:
			log.Printf("[transport] idle tick, state=%s", t.State())

		case <-t.closeCh:
			break loop
		}
	}

	close(stopReader)
	conn.Close()

	if finalErr != nil {
		t.events <- Event{Kind: EventDisconnected, Err: fmt.Errorf("transport closed: %w", finalErr)}
	} else {
		t.events <- Event{Kind: EventDisconnected}
	}
	t.setState(Disconnected)
}

// Package session implements the session orchestrator (spec §4.K): the
// component that owns the transport, the active player backend, and every
// piece of small per-package state (chat ring, playlist, ping window, sync
// engine), and drives them according to the connect/dispatch/disconnect
// choreography spec §4.K lays out. It is the single place in this codebase
// where stdlib sync.Mutex and the domain sync-decision package both appear,
// hence the import alias below.
package session

import (
	"context"
	"net"
	"os/exec"
	"strconv"
	"strings"
	stdsync "sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/syncplay-go/client/chat"
	"github.com/syncplay-go/client/config"
	"github.com/syncplay-go/client/ping"
	"github.com/syncplay-go/client/player"
	"github.com/syncplay-go/client/player/mpcweb"
	"github.com/syncplay-go/client/player/mplayer"
	"github.com/syncplay-go/client/player/mpv"
	"github.com/syncplay-go/client/player/vlc"
	"github.com/syncplay-go/client/playlist"
	"github.com/syncplay-go/client/protocol"
	"github.com/syncplay-go/client/pump"
	"github.com/syncplay-go/client/state"
	syncengine "github.com/syncplay-go/client/sync"
	"github.com/syncplay-go/client/syncerr"
	"github.com/syncplay-go/client/transport"
)

// clientVersion is advertised in Hello.realversion.
const clientVersion = "1.0.0"

// protocolVersion is advertised in Hello.version (the protocol dialect this
// client speaks, not its own release).
const protocolVersion = "1.2.255"

type localPlaystate struct {
	position float64
	paused   bool
}

// Orchestrator is the session-lifetime owner of the transport, the player
// backend, and every small per-domain package instance. One Orchestrator
// serves one shell (desktop UI or cmd/syncplay-bot); Connect/Disconnect may
// be called repeatedly across its lifetime.
type Orchestrator struct {
	cfgMu stdsync.Mutex
	cfg   *config.Config

	st   *state.State
	pl   *playlist.Playlist
	plMu stdsync.Mutex

	chatRing *chat.Ring
	chatMu   stdsync.Mutex

	pingWin *ping.Window

	engineMu stdsync.Mutex
	engine   *syncengine.Engine

	events chan Event

	mu        stdsync.Mutex
	tr        *transport.Transport
	backend   player.Backend
	cancel    context.CancelFunc
	connected bool
	roomName  string
	serverAddr string
	serverPassword string
	helloSent bool

	ignoreMu       stdsync.Mutex
	ignoringServer uint32
	ignoringClient uint32

	suppressMu       stdsync.Mutex
	suppressUnpause  bool
	suppressNextFile bool

	lastPlaystateMu stdsync.Mutex
	lastPlaystate   *localPlaystate

	autoplayMu     stdsync.Mutex
	autoplayCancel context.CancelFunc

	roomWarnMu  stdsync.Mutex
	wasAlone    bool
	hadFileDiff bool
	hadNotReady bool
}

// New builds an Orchestrator around cfg. Call ConnectToServer to open a session.
func New(cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		st:      state.New(),
		pl:      playlist.New(),
		chatRing: chat.NewRing(chat.DefaultCapacity),
		pingWin: ping.NewWindow(),
		engine:  syncengine.NewEngine(thresholdsFromConfig(cfg.Sync)),
		events:  make(chan Event, 64),
	}
}

func thresholdsFromConfig(s config.Sync) syncengine.Thresholds {
	return syncengine.Thresholds{
		RewindThreshold:      s.RewindThreshold,
		FastforwardThreshold: s.FastforwardThreshold,
		FFExtra:              s.FFExtra,
		FFReset:              s.FFReset,
		FFBehind:             s.FFBehind,
		SlowdownThreshold:    s.SlowdownThreshold,
		SlowdownReset:        s.SlowdownReset,
		SlowdownRate:         s.SlowdownRate,
	}
}

// Events returns the channel the shell should drain for UI updates.
func (o *Orchestrator) Events() <-chan Event { return o.events }

func (o *Orchestrator) emit(e Event) {
	select {
	case o.events <- e:
	default:
	}
}

func (o *Orchestrator) isConnected() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.connected
}

// GetConnectionStatus reports whether a server session is currently active
// (spec §6.4).
func (o *Orchestrator) GetConnectionStatus() bool { return o.isConnected() }

func parseRoom(spec string) (name, password string) {
	if idx := strings.Index(spec, ":"); idx >= 0 {
		return spec[:idx], spec[idx+1:]
	}
	return spec, ""
}

// ConnectToServer implements spec §4.K.1's seven-step connect
// choreography: dial the transport, start the player backend, start the
// supervised background tasks, and send either a startTLS request or
// Hello depending on useTLS.
func (o *Orchestrator) ConnectToServer(ctx context.Context, host string, port int, username, roomSpec, serverPassword string, useTLS bool) error {
	o.mu.Lock()
	if o.connected || o.tr != nil {
		o.mu.Unlock()
		return syncerr.New(syncerr.NotConnected, "already connected")
	}
	o.mu.Unlock()

	roomName, roomPassword := parseRoom(roomSpec)
	o.st.SetUsername(username)
	o.st.SetRoom(roomName)

	o.mu.Lock()
	o.roomName = roomName
	o.serverPassword = serverPassword
	o.mu.Unlock()

	if roomPassword != "" {
		o.cfgMu.Lock()
		o.cfg.Rooms[roomName] = roomPassword
		o.cfgMu.Unlock()
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	tr, err := transport.Dial(ctx, addr)
	if err != nil {
		return err
	}

	if err := o.startPlayerBackend(ctx); err != nil {
		tr.Close()
		return err
	}

	sessionCtx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(sessionCtx)

	o.mu.Lock()
	o.tr = tr
	o.cancel = cancel
	o.connected = true
	o.serverAddr = addr
	o.helloSent = false
	o.mu.Unlock()

	p := pump.New(o)
	g.Go(func() error { return o.dispatchLoop(gctx) })
	g.Go(func() error { return p.Run(gctx) })
	g.Go(func() error { return o.roomWarningLoop(gctx) })

	go func() {
		_ = g.Wait()
		o.Disconnect()
	}()

	if useTLS {
		o.emit(Event{Kind: TLSStatusChanged, TLSStatus: TLSPending})
		if err := o.sendTransport(&protocol.Message{TLS: &protocol.TLSMsg{StartTLS: "send"}}); err != nil {
			return err
		}
		return nil
	}
	return o.sendHello()
}

// startPlayerBackend detects the configured player's Kind and dials/spawns
// the matching driver, retrying MPV's IPC dial per spec §5's timeout note
// (the player process needs time to create its named pipe/socket).
func (o *Orchestrator) startPlayerBackend(ctx context.Context) error {
	path := o.cfg.Player.PlayerPath
	kind := player.DetectKind(path)

	switch kind {
	case player.MPV, player.MPVNet, player.IINA:
		socketPath := o.cfg.Player.MpvSocketPath
		if socketPath == "" {
			socketPath = mpv.DefaultSocketPath()
		}
		args := append([]string{"--idle=yes", "--input-ipc-server=" + socketPath}, o.cfg.Player.PlayerArguments...)
		cmd := exec.Command(path, args...)
		if err := cmd.Start(); err != nil {
			return syncerr.Wrap(syncerr.PlayerSpawn, "start "+path, err)
		}

		var backend *mpv.Backend
		var dialErr error
		for attempt := 0; attempt < 10; attempt++ {
			backend, dialErr = mpv.Dial(ctx, socketPath)
			if dialErr == nil {
				break
			}
			time.Sleep(200 * time.Millisecond)
		}
		if dialErr != nil {
			return syncerr.Wrap(syncerr.PlayerIpc, "dial mpv socket", dialErr)
		}
		o.mu.Lock()
		o.backend = backend
		o.mu.Unlock()

	case player.VLC:
		b, err := vlc.Start(path, o.cfg.Player.PlayerArguments, "")
		if err != nil {
			return syncerr.Wrap(syncerr.PlayerSpawn, "start vlc", err)
		}
		o.mu.Lock()
		o.backend = b
		o.mu.Unlock()

	case player.MPlayer:
		b, err := mplayer.Start(path, o.cfg.Player.PlayerArguments, "")
		if err != nil {
			return syncerr.Wrap(syncerr.PlayerSpawn, "start mplayer", err)
		}
		o.mu.Lock()
		o.backend = b
		o.mu.Unlock()

	case player.MPCHC, player.MPCBE:
		b, err := mpcweb.Start(kind, path, o.cfg.Player.PlayerArguments, "")
		if err != nil {
			return syncerr.Wrap(syncerr.PlayerSpawn, "start "+kind.String(), err)
		}
		o.mu.Lock()
		o.backend = b
		o.mu.Unlock()

	default:
		return syncerr.New(syncerr.PlayerSpawn, "unsupported or undetected player path: "+path)
	}
	return nil
}

// sendHello builds and sends the client Hello, then — if the configured
// ready-at-start preference is set — follows it with Set.ready, matching
// spec §4.K.1 step 6.
func (o *Orchestrator) sendHello() error {
	o.mu.Lock()
	password := o.serverPassword
	o.mu.Unlock()

	msg := &protocol.Message{Hello: &protocol.HelloMsg{
		Username:    o.st.Username(),
		Password:    password,
		Room:        &protocol.RoomRef{Name: o.st.Room()},
		Version:     protocolVersion,
		RealVersion: clientVersion,
		Features: &protocol.FeatureBag{
			SharedPlaylists: true,
			Chat:            true,
			ReadyState:      true,
		},
	}}
	if err := o.sendTransport(msg); err != nil {
		return err
	}
	o.mu.Lock()
	o.helloSent = true
	o.mu.Unlock()

	o.cfgMu.Lock()
	readyAtStart := o.cfg.ReadyAtStart
	o.cfgMu.Unlock()
	if readyAtStart {
		_ = o.sendTransport(&protocol.Message{Set: &protocol.SetMsg{Ready: &protocol.SetReady{
			IsReady:           protocol.NullOpt[bool]{Known: true, Value: true},
			ManuallyInitiated: false,
		}}})
	}
	return nil
}

func (o *Orchestrator) sendTransport(msg *protocol.Message) error {
	o.mu.Lock()
	tr := o.tr
	o.mu.Unlock()
	if tr == nil {
		return syncerr.New(syncerr.NotConnected, "not connected")
	}
	return tr.Send(msg)
}

// DisconnectFromServer is the shell-facing name for Disconnect (spec §6.4).
func (o *Orchestrator) DisconnectFromServer() { o.Disconnect() }

// Disconnect implements spec §4.K.7's cleanup list. Idempotent.
func (o *Orchestrator) Disconnect() {
	o.mu.Lock()
	if o.tr == nil && !o.connected {
		o.mu.Unlock()
		return
	}
	cancel := o.cancel
	tr := o.tr
	backend := o.backend
	o.cancel = nil
	o.tr = nil
	o.backend = nil
	o.connected = false
	o.mu.Unlock()

	o.cancelAutoplay()

	if cancel != nil {
		cancel()
	}
	if tr != nil {
		tr.Close()
	}
	if q, ok := backend.(interface{ Quit() error }); ok {
		_ = q.Quit()
	}

	o.st.ResetSession()
	o.plMu.Lock()
	o.pl = playlist.New()
	o.plMu.Unlock()

	o.roomWarnMu.Lock()
	o.wasAlone, o.hadFileDiff, o.hadNotReady = false, false, false
	o.roomWarnMu.Unlock()

	o.emit(Event{Kind: UserListUpdated, Users: nil})
	o.emit(Event{Kind: PlaylistUpdated})
	o.emit(Event{Kind: TLSStatusChanged, TLSStatus: TLSUnknown})
	o.emit(Event{Kind: ConnectionStatusChanged, Connected: false})
	o.postSystem("Disconnected from server")
}

// SendChatMessage dispatches slash-commands locally or forwards plain text
// as a Chat message (spec §4.G, §6.4).
func (o *Orchestrator) SendChatMessage(text string) error {
	cmd := chat.ParseCommand(text)
	switch cmd.Kind {
	case chat.ChangeRoom:
		return o.ChangeRoom(cmd.Arg)
	case chat.ListUsers:
		return o.sendTransport(&protocol.Message{List: &protocol.ListMsg{}})
	case chat.Help:
		o.postSystem("Commands: /room <name>[:password], /list, /ready, /unready, /help")
		return nil
	case chat.Ready:
		return o.SetReady(true)
	case chat.Unready:
		return o.SetReady(false)
	case chat.Unknown:
		o.postSystem("Unknown command: " + text)
		return nil
	default:
		return o.sendTransport(&protocol.Message{Chat: &protocol.ChatMsg{Raw: text}})
	}
}

// ChangeRoom moves the local user to a new room, optionally presenting a
// remembered or supplied controller password (spec §4.K.5).
func (o *Orchestrator) ChangeRoom(spec string) error {
	roomName, password := parseRoom(spec)
	if password == "" {
		o.cfgMu.Lock()
		password = o.cfg.Rooms[roomName]
		o.cfgMu.Unlock()
	}

	o.mu.Lock()
	o.roomName = roomName
	o.mu.Unlock()
	o.st.SetRoom(roomName)

	if err := o.sendTransport(&protocol.Message{Set: &protocol.SetMsg{Room: &protocol.SetRoom{Name: roomName}}}); err != nil {
		return err
	}
	if password != "" {
		return o.sendTransport(&protocol.Message{Set: &protocol.SetMsg{ControllerAuth: &protocol.SetControllerAuth{
			Room: roomName, Password: password,
		}}})
	}
	return nil
}

// SetReady sends a manually-initiated ready-state change (spec §6.4).
func (o *Orchestrator) SetReady(ready bool) error {
	o.st.SetReady(ready)
	return o.sendTransport(&protocol.Message{Set: &protocol.SetMsg{Ready: &protocol.SetReady{
		IsReady:           protocol.NullOpt[bool]{Known: true, Value: ready},
		ManuallyInitiated: true,
	}}})
}

// UpdatePlaylist applies a local playlist mutation and republishes the full
// list to the server (spec §4.H, §6.4).
func (o *Orchestrator) UpdatePlaylist(action, arg string) error {
	o.plMu.Lock()
	switch action {
	case "add":
		o.pl.Add(arg)
	case "remove":
		idx, err := strconv.Atoi(arg)
		if err != nil {
			o.plMu.Unlock()
			return syncerr.New(syncerr.ConfigInvalid, "invalid playlist index")
		}
		o.pl.Remove(idx)
	case "next":
		o.pl.Next()
	case "previous":
		o.pl.Previous()
	case "set_current":
		idx, err := strconv.Atoi(arg)
		if err != nil {
			o.plMu.Unlock()
			return syncerr.New(syncerr.ConfigInvalid, "invalid playlist index")
		}
		o.pl.SetCurrentIndex(idx)
	default:
		o.plMu.Unlock()
		return syncerr.New(syncerr.ConfigInvalid, "unknown playlist action "+action)
	}
	items := o.pl.Items()
	o.plMu.Unlock()

	o.publishPlaylist()
	return o.sendTransport(&protocol.Message{Set: &protocol.SetMsg{PlaylistChange: &protocol.SetPlaylistChange{
		User: o.st.Username(), Files: items,
	}}})
}

func (o *Orchestrator) publishPlaylist() {
	o.plMu.Lock()
	idx, ok := o.pl.CurrentIndex()
	items := o.pl.Items()
	o.plMu.Unlock()

	var ptr *int
	if ok {
		ptr = &idx
	}
	o.emit(Event{Kind: PlaylistUpdated, Playlist: PlaylistSnapshot{Items: items, CurrentIndex: ptr}})
}

// GetConfig returns a copy of the current configuration (spec §6.4).
func (o *Orchestrator) GetConfig() *config.Config {
	o.cfgMu.Lock()
	defer o.cfgMu.Unlock()
	c := *o.cfg
	return &c
}

// UpdateConfig replaces the configuration, persists it, and rebuilds the
// sync engine's thresholds (spec §6.4).
func (o *Orchestrator) UpdateConfig(cfg *config.Config) error {
	o.cfgMu.Lock()
	o.cfg = cfg
	o.cfgMu.Unlock()

	o.engineMu.Lock()
	o.engine = syncengine.NewEngine(thresholdsFromConfig(cfg.Sync))
	o.engineMu.Unlock()

	if err := config.Save(cfg); err != nil {
		return syncerr.Wrap(syncerr.ConfigPersistenceFailed, "save config", err)
	}
	o.emit(Event{Kind: ConfigUpdated, Config: cfg})
	return nil
}

// GetConfigPath reports where the configuration is persisted (spec §6.4).
func (o *Orchestrator) GetConfigPath() string { return config.Path() }

// DetectAvailablePlayers probes for locally-installed player executables
// (spec §4.I, §6.4).
func (o *Orchestrator) DetectAvailablePlayers() []player.DetectedPlayer {
	return player.DetectInstalled()
}

func (o *Orchestrator) postSystem(text string) {
	o.appendChat(chat.Entry{Ts: time.Now(), Text: text, Kind: chat.System})
}

func (o *Orchestrator) postChatError(text string) {
	o.appendChat(chat.Entry{Ts: time.Now(), Text: text, Kind: chat.Error})
}

func (o *Orchestrator) appendChat(e chat.Entry) {
	o.chatMu.Lock()
	o.chatRing.Add(e)
	recent := o.chatRing.GetRecent(1)
	o.chatMu.Unlock()
	if len(recent) == 1 {
		o.emit(chatEntryEvent(recent[0]))
	}
}

func (o *Orchestrator) showOSD(text string) {
	o.mu.Lock()
	backend := o.backend
	o.mu.Unlock()
	if backend != nil {
		_ = backend.ShowOSD(text, 3000)
	}
}

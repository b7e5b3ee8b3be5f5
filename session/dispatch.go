package session

import (
	"context"
	"strings"
	"time"

	"github.com/syncplay-go/client/chat"
	"github.com/syncplay-go/client/config"
	"github.com/syncplay-go/client/playlist"
	"github.com/syncplay-go/client/protocol"
	"github.com/syncplay-go/client/state"
	syncengine "github.com/syncplay-go/client/sync"
	"github.com/syncplay-go/client/transport"
)

// dispatchLoop ranges over the transport's event channel for the lifetime
// of ctx, handling inbound messages (spec §4.K.2) and the terminal
// disconnect event.
func (o *Orchestrator) dispatchLoop(ctx context.Context) error {
	o.mu.Lock()
	tr := o.tr
	o.mu.Unlock()
	if tr == nil {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-tr.Events():
			if !ok {
				return nil
			}
			switch ev.Kind {
			case transport.EventMessage:
				o.handleMessage(ctx, ev.Message)
			case transport.EventDisconnected:
				return ev.Err
			}
		}
	}
}

// handleMessage dispatches on whichever field of msg is populated. A single
// malformed or unsupported message never tears down the session (spec §7).
func (o *Orchestrator) handleMessage(ctx context.Context, msg *protocol.Message) {
	switch {
	case msg.Hello != nil:
		o.handleHello(msg.Hello)
	case msg.List != nil:
		o.handleList(ctx, msg.List)
	case msg.Chat != nil:
		o.handleChat(msg.Chat)
	case msg.State != nil:
		o.handleState(ctx, msg.State)
	case msg.Set != nil:
		o.handleSet(ctx, msg.Set)
	case msg.Error != nil:
		o.handleError(msg.Error)
	case msg.TLS != nil:
		o.handleTLS(msg.TLS)
	}
}

func (o *Orchestrator) handleHello(in *protocol.HelloMsg) {
	o.st.SetServerVersion(in.RealVersion)

	o.postSystem("Hello " + o.st.Username())
	if in.Motd != nil && *in.Motd != "" {
		o.postSystem(*in.Motd)
	}

	_ = o.sendTransport(&protocol.Message{List: &protocol.ListMsg{}})

	o.mu.Lock()
	room := o.roomName
	o.mu.Unlock()
	o.cfgMu.Lock()
	password, known := o.cfg.Rooms[room]
	o.cfgMu.Unlock()
	if known && password != "" {
		_ = o.sendTransport(&protocol.Message{Set: &protocol.SetMsg{ControllerAuth: &protocol.SetControllerAuth{
			Room: room, Password: password,
		}}})
	}

	o.emit(Event{Kind: ConnectionStatusChanged, Connected: true, Server: o.serverAddrSnapshot()})
}

func (o *Orchestrator) serverAddrSnapshot() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.serverAddr
}

func (o *Orchestrator) handleList(ctx context.Context, in *protocol.ListMsg) {
	username := o.st.Username()
	for roomName, users := range in.Rooms {
		for uname, u := range users {
			existing, _ := o.st.User(uname)
			existing.Username = uname
			existing.Room = roomName
			existing.IsController = u.IsController
			if u.IsReady.HasValue() {
				existing.IsReady = u.IsReady.Value
			}
			if u.File != nil {
				existing.File = u.File.Name
				if u.File.Size != nil {
					existing.FileSize = *u.File.Size
				}
				if u.File.Duration != nil {
					existing.FileDuration = *u.File.Duration
				}
				existing.HasFile = true
			}
			o.st.UpsertUser(existing)
			if uname == username {
				o.st.SetReady(existing.IsReady)
			}
		}
	}

	o.publishUsers()
	o.evaluateAutoplay(ctx)
}

func (o *Orchestrator) publishUsers() {
	users := o.st.Users()
	list := make([]state.User, 0, len(users))
	for _, u := range users {
		list = append(list, u)
	}
	o.emit(Event{Kind: UserListUpdated, Users: list})
}

func (o *Orchestrator) handleChat(in *protocol.ChatMsg) {
	var entry chat.Entry
	entry.Ts = time.Now()
	if in.Raw != "" {
		entry.Text = in.Raw
		entry.Kind = chat.Server
	} else {
		entry.Username = in.Username
		entry.Text = in.Message
		entry.Kind = chat.User
	}
	o.appendChat(entry)
}

func (o *Orchestrator) handleError(in *protocol.ErrorMsg) {
	if strings.Contains(strings.ToLower(in.Message), "starttls") {
		o.mu.Lock()
		sent := o.helloSent
		o.mu.Unlock()
		if !sent {
			_ = o.sendHello()
		}
		return
	}
	o.postChatError(in.Message)
}

func (o *Orchestrator) handleTLS(in *protocol.TLSMsg) {
	o.mu.Lock()
	tr := o.tr
	o.mu.Unlock()
	if tr == nil {
		return
	}

	if in.StartTLS != "true" {
		o.emit(Event{Kind: TLSStatusChanged, TLSStatus: TLSUnsupported})
		_ = o.sendHello()
		return
	}

	domain, _, err := splitHostPort(o.serverAddrSnapshot())
	if err != nil {
		domain = o.serverAddrSnapshot()
	}
	if err := tr.UpgradeTls(domain); err != nil {
		o.emit(Event{Kind: TLSStatusChanged, TLSStatus: TLSUnsupported})
		_ = o.sendHello()
		return
	}
	o.emit(Event{Kind: TLSStatusChanged, TLSStatus: TLSEnabled})
	_ = o.sendHello()
}

// handleState implements spec §4.K.2's State branch: ignoring-on-the-fly
// bookkeeping, ping/forward-delay update, sync-engine decision + action
// application, then an outbound State reply.
func (o *Orchestrator) handleState(ctx context.Context, in *protocol.StateMsg) {
	if in.IgnoringOnTheFly != nil {
		o.ignoreMu.Lock()
		if in.IgnoringOnTheFly.Server != nil {
			o.ignoringServer = *in.IgnoringOnTheFly.Server
		}
		if in.IgnoringOnTheFly.Client != nil && *in.IgnoringOnTheFly.Client == o.ignoringClient {
			o.ignoringClient = 0
		}
		o.ignoreMu.Unlock()
	}

	if in.Ping != nil {
		o.pingWin.ReceiveMessage(in.Ping.ClientLatencyCalculation, in.Ping.ServerRtt)
		o.pingWin.RecordSample(in.Ping.ServerRtt)
		o.emit(Event{Kind: PingUpdated, PingRTTMs: o.pingWin.RTT() * 1000})
	}

	if in.Playstate != nil {
		setBy := ""
		if in.Playstate.SetBy != nil {
			setBy = *in.Playstate.SetBy
		}
		o.st.SetGlobalPlaystate(state.GlobalPlaystate{
			Position:   in.Playstate.Position,
			Paused:     in.Playstate.Paused,
			SetBy:      setBy,
			ReceivedAt: time.Now(),
		})
		o.applyIncomingPlaystate(ctx, in.Playstate, setBy)
	}

	o.sendStateReply()
}

func (o *Orchestrator) applyIncomingPlaystate(ctx context.Context, ps *protocol.Playstate, setBy string) {
	o.mu.Lock()
	backend := o.backend
	o.mu.Unlock()
	if backend == nil {
		return
	}
	st := backend.GetState()
	if st.Position == nil || st.Paused == nil {
		return
	}

	messageAge := o.pingWin.ForwardDelay()
	o.cfgMu.Lock()
	sc := o.cfg.Sync
	o.cfgMu.Unlock()

	o.engineMu.Lock()
	actions := o.engine.Decide(syncengine.Inputs{
		LocalPosition:  *st.Position,
		LocalPaused:    *st.Paused,
		GlobalPosition: ps.Position,
		GlobalPaused:   ps.Paused,
		MessageAge:     messageAge,
		DoSeek:         ps.DoSeek,
		Toggles: syncengine.Toggles{
			RewindEnabled:      sc.RewindEnabled,
			FastforwardEnabled: sc.FastforwardEnabled,
			SlowEnabled:        sc.SlowdownEnabled,
			AllowFastforward:   setBy != o.st.Username(),
		},
	})
	o.engineMu.Unlock()
	o.applySyncActions(ctx, backend, actions, setBy)
}

func (o *Orchestrator) applySyncActions(ctx context.Context, backend interface {
	SetPosition(ctx context.Context, seconds float64) error
	SetPaused(ctx context.Context, paused bool) error
	SetSpeed(ctx context.Context, rate float64) error
}, actions []syncengine.Action, setBy string) {
	o.cfgMu.Lock()
	showOSD := o.cfg.OSD.ShowOnSync
	o.cfgMu.Unlock()

	for _, a := range actions {
		switch a.Kind {
		case syncengine.SetPaused:
			_ = backend.SetPaused(ctx, a.Paused)
			if setBy != "" && setBy != o.st.Username() {
				word := "unpaused"
				if a.Paused {
					word = "paused"
				}
				o.postSystem(setBy + " " + word + " playback")
			}
		case syncengine.Seek:
			_ = backend.SetPosition(ctx, a.Position)
			if setBy != "" && setBy != o.st.Username() {
				o.postSystem("Rewinding/seeking due to " + setBy)
				if showOSD {
					o.showOSD("Seek synced to " + setBy)
				}
			}
		case syncengine.Slowdown:
			o.cfgMu.Lock()
			rate := o.cfg.Sync.SlowdownRate
			o.cfgMu.Unlock()
			_ = backend.SetSpeed(ctx, rate)
		case syncengine.ResetSpeed:
			_ = backend.SetSpeed(ctx, 1.0)
		}
	}
}

// sendStateReply implements spec §4.K.4's ignoring-on-the-fly echo
// contract: suppress our own playstate when we are the one waiting on an
// echo, always echo back whichever ignoringOnTheFly counters are pending,
// and reset the server-side counter once the reply is sent.
func (o *Orchestrator) sendStateReply() {
	o.ignoreMu.Lock()
	serverCounter := o.ignoringServer
	clientCounter := o.ignoringClient
	o.ignoreMu.Unlock()

	var ign *protocol.IgnoringOnTheFly
	if serverCounter != 0 || clientCounter != 0 {
		ign = &protocol.IgnoringOnTheFly{}
		if serverCounter != 0 {
			s := serverCounter
			ign.Server = &s
		}
		if clientCounter != 0 {
			c := clientCounter
			ign.Client = &c
		}
	}

	var playstate *protocol.Playstate
	suppressOwn := clientCounter > 0 && serverCounter == 0
	if !suppressOwn {
		o.lastPlaystateMu.Lock()
		lp := o.lastPlaystate
		o.lastPlaystateMu.Unlock()
		if lp != nil {
			name := o.st.Username()
			playstate = &protocol.Playstate{Position: lp.position, Paused: lp.paused, SetBy: &name}
		}
	}

	_ = o.sendTransport(&protocol.Message{State: &protocol.StateMsg{
		Playstate:        playstate,
		IgnoringOnTheFly: ign,
		Ping: &protocol.PingInfo{
			ClientLatencyCalculation: pingTimestamp(),
		},
	}})

	o.ignoreMu.Lock()
	o.ignoringServer = 0
	o.ignoreMu.Unlock()
}

func (o *Orchestrator) handleSet(ctx context.Context, in *protocol.SetMsg) {
	if in.Room != nil {
		o.mu.Lock()
		o.roomName = in.Room.Name
		o.mu.Unlock()
		o.st.SetRoom(in.Room.Name)
	}

	if in.File != nil {
		o.suppressMu.Lock()
		o.suppressNextFile = true
		o.suppressMu.Unlock()
		_ = o.LoadMediaByName(ctx, in.File.Name, false)
	}

	for uname, su := range in.User {
		if su.Event != nil && su.Event.Left {
			o.st.RemoveUser(uname)
			continue
		}
		existing, _ := o.st.User(uname)
		existing.Username = uname
		if su.Room != "" {
			existing.Room = su.Room
		}
		if su.File != nil {
			existing.File = su.File.Name
			if su.File.Size != nil {
				existing.FileSize = *su.File.Size
			}
			if su.File.Duration != nil {
				existing.FileDuration = *su.File.Duration
			}
			existing.HasFile = true
		}
		o.st.UpsertUser(existing)
	}
	if len(in.User) > 0 {
		o.publishUsers()
	}

	if in.Ready != nil {
		if in.Ready.IsReady.HasValue() {
			if in.Ready.Username == "" || in.Ready.Username == o.st.Username() {
				o.st.SetReady(in.Ready.IsReady.Value)
			}
			if u, ok := o.st.User(in.Ready.Username); ok {
				u.IsReady = in.Ready.IsReady.Value
				o.st.UpsertUser(u)
			}
		}
		o.publishUsers()
		o.evaluateAutoplay(ctx)
	}

	if in.PlaylistChange != nil {
		o.plMu.Lock()
		o.pl = playlist.New()
		for _, f := range in.PlaylistChange.Files {
			o.pl.Add(f)
		}
		o.plMu.Unlock()
		o.publishPlaylist()
	}

	if in.PlaylistIndex != nil {
		o.plMu.Lock()
		if in.PlaylistIndex.Index.HasValue() {
			o.pl.SetCurrentIndex(in.PlaylistIndex.Index.Value)
		}
		o.plMu.Unlock()
		o.publishPlaylist()
	}

	if in.ControllerAuth != nil {
		o.handleControllerAuth(in.ControllerAuth)
	}
	if in.NewControlledRoom != nil {
		o.handleNewControlledRoom(in.NewControlledRoom)
	}
}

func (o *Orchestrator) handleControllerAuth(a *protocol.SetControllerAuth) {
	if !a.Success {
		o.postChatError("Controller authentication failed for room " + a.Room)
		return
	}
	if a.Room == o.roomSnapshot() {
		u, _ := o.st.User(o.st.Username())
		u.Username = o.st.Username()
		u.IsController = true
		o.st.UpsertUser(u)
		o.publishUsers()
	}
	o.cfgMu.Lock()
	_, exists := o.cfg.Rooms[a.Room]
	if !exists {
		o.cfg.Rooms[a.Room] = a.Password
	}
	cfg := o.cfg
	o.cfgMu.Unlock()
	if !exists {
		_ = config.Save(cfg)
	}
}

func (o *Orchestrator) roomSnapshot() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.roomName
}

func (o *Orchestrator) handleNewControlledRoom(n *protocol.SetNewControlledRoom) {
	o.mu.Lock()
	o.roomName = n.RoomName
	o.mu.Unlock()
	o.st.SetRoom(n.RoomName)

	_ = o.sendTransport(&protocol.Message{Set: &protocol.SetMsg{Room: &protocol.SetRoom{Name: n.RoomName}}})
	_ = o.sendTransport(&protocol.Message{List: &protocol.ListMsg{}})
	_ = o.sendTransport(&protocol.Message{Set: &protocol.SetMsg{ControllerAuth: &protocol.SetControllerAuth{
		Room: n.RoomName, Password: n.Password,
	}}})
}

func pingTimestamp() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

func splitHostPort(addr string) (string, string, error) {
	idx := strings.LastIndex(addr, ":")
	if idx < 0 {
		return addr, "", nil
	}
	return addr[:idx], addr[idx+1:], nil
}

// Command syncplay-bot is a headless harness around session.Orchestrator:
// it connects under a given username, stays in the room printing every
// event the orchestrator publishes, and disconnects cleanly on
// SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/syncplay-go/client/config"
	"github.com/syncplay-go/client/session"
)

var (
	cfgFile  string
	host     string
	port     int
	username string
	roomSpec string
	password string
	useTLS   bool
	chatText string
)

var rootCmd = &cobra.Command{
	Use:   "syncplay-bot",
	Short: "Headless Syncplay client",
	Long:  "syncplay-bot connects to a Syncplay server without a desktop UI, for scripting and integration testing.",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect and stay in the room, printing events until interrupted",
	Run: func(cmd *cobra.Command, args []string) {
		runBot()
	},
}

var sayCmd = &cobra.Command{
	Use:   "say [message]",
	Short: "Connect, post one chat message, then disconnect",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		chatText = args[0]
		sayAndExit()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("syncplay-bot dev")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is the per-user syncplay config path)")
	rootCmd.PersistentFlags().StringVar(&host, "host", "", "server host (overrides config)")
	rootCmd.PersistentFlags().IntVar(&port, "port", 0, "server port (overrides config)")
	rootCmd.PersistentFlags().StringVar(&username, "username", "", "username (overrides config)")
	rootCmd.PersistentFlags().StringVar(&roomSpec, "room", "", "room name, optionally room:password")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "server password")
	rootCmd.PersistentFlags().BoolVar(&useTLS, "tls", false, "upgrade to TLS after connecting")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(sayCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig merges the flags onto the persisted config, following the
// breeze-agent pattern of flags overriding a loaded file.
func loadConfig() *config.Config {
	cfg := config.LoadOrDefault(cfgFile)
	if host != "" {
		cfg.Server.Host = host
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if username != "" {
		cfg.Server.Username = username
	}
	return cfg
}

func connectOrchestrator(ctx context.Context, cfg *config.Config) (*session.Orchestrator, error) {
	o := session.New(cfg)
	room := roomSpec
	if room == "" {
		room = "bot"
	}
	err := o.ConnectToServer(ctx, cfg.Server.Host, cfg.Server.Port, cfg.Server.Username, room, password, useTLS)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// runBot connects and prints every event until SIGINT/SIGTERM.
func runBot() {
	cfg := loadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	o, err := connectOrchestrator(ctx, cfg)
	if err != nil {
		log.Fatalf("[syncplay-bot] connect: %v", err)
	}
	defer o.Disconnect()

	log.Printf("[syncplay-bot] connected as %s to %s:%d", cfg.Server.Username, cfg.Server.Host, cfg.Server.Port)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[syncplay-bot] shutting down")
			return
		case ev, ok := <-o.Events():
			if !ok {
				log.Printf("[syncplay-bot] event stream closed")
				return
			}
			printEvent(ev)
		}
	}
}

// sayAndExit connects, posts one chat message, gives the server a moment
// to relay it back through the event stream, then disconnects.
func sayAndExit() {
	cfg := loadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	o, err := connectOrchestrator(ctx, cfg)
	if err != nil {
		log.Fatalf("[syncplay-bot] connect: %v", err)
	}
	defer o.Disconnect()

	if err := o.SendChatMessage(chatText); err != nil {
		log.Fatalf("[syncplay-bot] send chat: %v", err)
	}

	timeout := time.After(2 * time.Second)
	for {
		select {
		case <-timeout:
			return
		case ev, ok := <-o.Events():
			if !ok {
				return
			}
			printEvent(ev)
		}
	}
}

func printEvent(ev session.Event) {
	switch ev.Kind {
	case session.ConnectionStatusChanged:
		log.Printf("[syncplay-bot] connection status: connected=%v server=%s", ev.Connected, ev.Server)
	case session.TLSStatusChanged:
		log.Printf("[syncplay-bot] tls status: %s", ev.TLSStatus)
	case session.UserListUpdated:
		log.Printf("[syncplay-bot] users: %d in room", len(ev.Users))
	case session.PlaylistUpdated:
		log.Printf("[syncplay-bot] playlist: %d item(s)", len(ev.Playlist.Items))
	case session.ChatMessageReceived:
		log.Printf("[%s] <%s> %s", ev.ChatMessageType, ev.ChatUsername, ev.ChatMessage)
	case session.PlayerStateChanged:
		log.Printf("[syncplay-bot] player state updated")
	case session.PingUpdated:
		log.Printf("[syncplay-bot] ping: %.0fms", ev.PingRTTMs)
	case session.ConfigUpdated:
		log.Printf("[syncplay-bot] config updated")
	}
}

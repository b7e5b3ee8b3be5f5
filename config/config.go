// Package config implements the structured user-preference model:
// sync thresholds, privacy modes, autoplay policy, player paths, trusted
// domains, and the recent/public server lists. Loading/merging follows a
// viper-based layered config pattern; persistence uses a per-OS config
// directory via os.UserConfigDir.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"

	"github.com/syncplay-go/client/privacy"
)

// Server is a remembered or currently-targeted Syncplay server.
type Server struct {
	Host     string `mapstructure:"host" json:"host"`
	Port     int    `mapstructure:"port" json:"port"`
	Username string `mapstructure:"username" json:"username"`
}

// ServerEntry is one entry in the recent/public server lists.
type ServerEntry struct {
	Host string `mapstructure:"host" json:"host"`
	Port int    `mapstructure:"port" json:"port"`
	Name string `mapstructure:"name" json:"name"`
}

// Sync holds the sync-engine thresholds and feature toggles (spec §4.F),
// overridable by the user.
type Sync struct {
	RewindThreshold      float64 `mapstructure:"rewind_threshold" json:"rewind_threshold"`
	FastforwardThreshold float64 `mapstructure:"fastforward_threshold" json:"fastforward_threshold"`
	FFExtra              float64 `mapstructure:"ff_extra" json:"ff_extra"`
	FFReset              float64 `mapstructure:"ff_reset" json:"ff_reset"`
	FFBehind             float64 `mapstructure:"ff_behind" json:"ff_behind"`
	SlowdownThreshold    float64 `mapstructure:"slowdown_threshold" json:"slowdown_threshold"`
	SlowdownReset        float64 `mapstructure:"slowdown_reset" json:"slowdown_reset"`
	SlowdownRate         float64 `mapstructure:"slowdown_rate" json:"slowdown_rate"`
	RewindEnabled        bool    `mapstructure:"rewind_enabled" json:"rewind_enabled"`
	FastforwardEnabled   bool    `mapstructure:"fastforward_enabled" json:"fastforward_enabled"`
	SlowdownEnabled      bool    `mapstructure:"slowdown_enabled" json:"slowdown_enabled"`
}

// Privacy holds the filename/filesize sharing modes (spec §4.M).
type Privacy struct {
	FilenamePrivacyMode privacy.Mode `mapstructure:"filename_privacy_mode" json:"filename_privacy_mode"`
	FilesizePrivacyMode privacy.Mode `mapstructure:"filesize_privacy_mode" json:"filesize_privacy_mode"`
}

// UnpauseAction is the instaplay gating policy the player state pump
// consults before letting a user-driven unpause through (spec §4.J step 3,
// §4.K.3), supplementing spec.md with
// original_source/src-tauri/src/config/settings.rs's UnpauseAction enum.
type UnpauseAction int

const (
	UnpauseIfOthersReady UnpauseAction = iota
	UnpauseAlways
	UnpauseIfAlreadyReady
	UnpauseIfMinUsersReady
)

// Autoplay holds the autoplay-countdown gating policy (spec §4.K).
type Autoplay struct {
	Enabled             bool          `mapstructure:"enabled" json:"enabled"`
	MinUsers            int           `mapstructure:"min_users" json:"min_users"`
	RequireSameFilename bool          `mapstructure:"require_same_filename" json:"require_same_filename"`
	UnpauseAction       UnpauseAction `mapstructure:"unpause_action" json:"unpause_action"`
}

// Player holds the locally-configured player executable and media search
// path (supplements spec.md per SPEC_FULL.md §4.L, grounded on
// original_source's PlayerConfig).
type Player struct {
	PlayerPath       string   `mapstructure:"player_path" json:"player_path"`
	MpvSocketPath    string   `mapstructure:"mpv_socket_path" json:"mpv_socket_path"`
	MediaDirectories []string `mapstructure:"media_directories" json:"media_directories"`
	PlayerArguments  []string `mapstructure:"player_arguments" json:"player_arguments"`
}

// OSD holds on-screen-display toggles.
type OSD struct {
	ShowOnSync       bool `mapstructure:"show_on_sync" json:"show_on_sync"`
	ShowOnRoomEvents bool `mapstructure:"show_on_room_events" json:"show_on_room_events"`
}

// Config is the full structured preference set (spec §4.L).
type Config struct {
	Server               Server            `mapstructure:"server" json:"server"`
	Sync                 Sync              `mapstructure:"sync" json:"sync"`
	Privacy              Privacy           `mapstructure:"privacy" json:"privacy"`
	Autoplay             Autoplay          `mapstructure:"autoplay" json:"autoplay"`
	Player               Player            `mapstructure:"player" json:"player"`
	OSD                  OSD               `mapstructure:"osd" json:"osd"`
	ReadyAtStart         bool              `mapstructure:"ready_at_start" json:"ready_at_start"`
	AutosaveJoinsToList  bool              `mapstructure:"autosave_joins_to_list" json:"autosave_joins_to_list"`
	TrustedDomains       []string          `mapstructure:"trusted_domains" json:"trusted_domains"`
	EnforceURLTrust      bool              `mapstructure:"enforce_url_trust" json:"enforce_url_trust"`
	RecentServers        []ServerEntry     `mapstructure:"recent_servers" json:"recent_servers"`
	Rooms                map[string]string `mapstructure:"rooms" json:"rooms"`
	PublicServers        []ServerEntry     `mapstructure:"public_servers" json:"public_servers"`
}

// recentServersCap bounds the recent-servers MRU list.
const recentServersCap = 10

// Default returns the baseline configuration: hand-filled sane defaults.
func Default() *Config {
	return &Config{
		Sync: Sync{
			RewindThreshold:      4.0,
			FastforwardThreshold: 5.0,
			FFExtra:              0.25,
			FFReset:              3.0,
			FFBehind:             1.75,
			SlowdownThreshold:    1.5,
			SlowdownReset:        0.1,
			SlowdownRate:         0.95,
			RewindEnabled:        true,
			FastforwardEnabled:   true,
			SlowdownEnabled:      true,
		},
		Autoplay: Autoplay{
			Enabled:             true,
			MinUsers:            2,
			RequireSameFilename: true,
			UnpauseAction:       UnpauseIfOthersReady,
		},
		Player: Player{
			PlayerPath: "mpv",
		},
		OSD: OSD{
			ShowOnSync:       true,
			ShowOnRoomEvents: true,
		},
		Rooms: make(map[string]string),
	}
}

// Load reads configuration from cfgFile (if non-empty) or the default
// config path, merging onto Default() via the usual
// viper.SetConfigFile / viper.ReadInConfig / viper.Unmarshal sequence.
func Load(cfgFile string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("json")
		v.AddConfigPath(configDir())
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("SYNCPLAY")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Rooms == nil {
		cfg.Rooms = make(map[string]string)
	}
	return cfg, nil
}

// Save persists cfg as indented JSON to Path(), chmod'd 0600 since it may
// carry secrets (here, remembered room passwords).
func Save(cfg *Config) error {
	mu.Lock()
	defer mu.Unlock()
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Path returns the on-disk location Load/Save use by default.
func Path() string {
	return filepath.Join(configDir(), "config.json")
}

func configDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "syncplay-client")
}

// AddRecentServer inserts/moves entry to the front of RecentServers,
// deduping by (host, port) and trimming to recentServersCap (spec §4.L).
func (c *Config) AddRecentServer(entry ServerEntry) {
	out := make([]ServerEntry, 0, len(c.RecentServers)+1)
	out = append(out, entry)
	for _, e := range c.RecentServers {
		if e.Host == entry.Host && e.Port == entry.Port {
			continue
		}
		out = append(out, e)
	}
	if len(out) > recentServersCap {
		out = out[:recentServersCap]
	}
	c.RecentServers = out
}

// mu guards concurrent Load/Save of the process-wide config path; the
// orchestrator is the sole caller but may invoke GetConfig/UpdateConfig
// from multiple dispatch paths (spec §6.4).
var mu sync.Mutex

// LoadOrDefault loads the on-disk config, falling back to Default() on
// any error (used by callers that must never fail to produce a Config).
func LoadOrDefault(cfgFile string) *Config {
	mu.Lock()
	defer mu.Unlock()
	cfg, err := Load(cfgFile)
	if err != nil {
		return Default()
	}
	return cfg
}

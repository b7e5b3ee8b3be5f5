package config

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultHasSyncThresholdsMatchingEngine(t *testing.T) {
	cfg := Default()
	if cfg.Sync.RewindThreshold != 4.0 || cfg.Sync.FastforwardThreshold != 5.0 {
		t.Fatalf("unexpected default sync thresholds: %+v", cfg.Sync)
	}
	if !cfg.Sync.RewindEnabled || !cfg.Sync.FastforwardEnabled || !cfg.Sync.SlowdownEnabled {
		t.Fatalf("expected all sync toggles enabled by default")
	}
}

func TestDefaultRoomsMapIsNonNil(t *testing.T) {
	cfg := Default()
	if cfg.Rooms == nil {
		t.Fatalf("expected non-nil Rooms map")
	}
}

func TestAddRecentServerDedupsByHostPort(t *testing.T) {
	cfg := Default()
	cfg.AddRecentServer(ServerEntry{Host: "a.example.com", Port: 8999, Name: "A"})
	cfg.AddRecentServer(ServerEntry{Host: "b.example.com", Port: 8999, Name: "B"})
	cfg.AddRecentServer(ServerEntry{Host: "a.example.com", Port: 8999, Name: "A renamed"})

	if len(cfg.RecentServers) != 2 {
		t.Fatalf("expected 2 entries after dedup, got %d: %+v", len(cfg.RecentServers), cfg.RecentServers)
	}
	if cfg.RecentServers[0].Name != "A renamed" {
		t.Fatalf("expected most recent add first, got %+v", cfg.RecentServers[0])
	}
}

func TestAddRecentServerCapsAtTen(t *testing.T) {
	cfg := Default()
	for i := 0; i < 15; i++ {
		cfg.AddRecentServer(ServerEntry{Host: "host", Port: i})
	}
	if len(cfg.RecentServers) != recentServersCap {
		t.Fatalf("expected cap of %d, got %d", recentServersCap, len(cfg.RecentServers))
	}
	if cfg.RecentServers[0].Port != 14 {
		t.Fatalf("expected most recent port 14 first, got %d", cfg.RecentServers[0].Port)
	}
}

func TestPathEndsInSyncplayClientConfigJSON(t *testing.T) {
	p := Path()
	if p == "" {
		t.Fatalf("expected non-empty config path")
	}
	if want := filepath.Join("syncplay-client", "config.json"); !strings.HasSuffix(p, want) {
		t.Fatalf("expected config path ending in %q, got %q", want, p)
	}
}

package data

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "convoy_event.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	return path
}

func TestLoadEventConfigOverrides(t *testing.T) {
	path := writeYAML(t, `
event:
  min_players: 2
  max_players: 4
dome:
  radius: 60
  exit_time_limit_sec: 15
phases:
  - duration_sec: 30
    max_economy: 50
  - duration_sec: 60
    max_economy: 90
    spawn_hostiles: true
    hostile_count: 3
`)
	cfg := LoadEventConfig(path, zap.NewNop())
	if cfg.Event.MinPlayers != 2 || cfg.Event.MaxPlayers != 4 {
		t.Fatalf("player bounds not applied: %+v", cfg.Event)
	}
	if len(cfg.Phases) != 2 {
		t.Fatalf("expected phases to be replaced, got %d", len(cfg.Phases))
	}
	if !cfg.Phases[1].SpawnHostiles || cfg.Phases[1].HostileCount != 3 {
		t.Fatalf("unexpected phase 2: %+v", cfg.Phases[1])
	}
	if cfg.Dome.ExitTimeLimit() != 15*time.Second {
		t.Fatalf("expected 15s exit limit, got %s", cfg.Dome.ExitTimeLimit())
	}
	// keys absent from the file keep their defaults
	if cfg.Economy.CurrencyName != "RP" {
		t.Fatalf("expected default currency, got %q", cfg.Economy.CurrencyName)
	}
}

func TestLoadEventConfigFallsBack(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.yaml") }},
		{"malformed yaml", func(t *testing.T) string { return writeYAML(t, "phases: [oops") }},
		{"no phases", func(t *testing.T) string { return writeYAML(t, "phases: []\n") }},
		{"bad bounds", func(t *testing.T) string {
			return writeYAML(t, "event:\n  min_players: 9\n  max_players: 2\nphases:\n  - duration_sec: 10\n")
		}},
	}
	def := DefaultEventConfig()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoadEventConfig(tt.path(t), zap.NewNop())
			if len(cfg.Phases) != len(def.Phases) || cfg.Event.MinPlayers != def.Event.MinPlayers {
				t.Fatalf("expected default config, got %+v", cfg)
			}
		})
	}
}

func TestDefaultEventConfigIsValid(t *testing.T) {
	if err := DefaultEventConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestShippedEventConfigMatchesDefaults(t *testing.T) {
	cfg, err := loadEventConfig(filepath.Join("..", "..", "data", "yaml", "convoy_event.yaml"))
	if err != nil {
		t.Fatalf("load shipped config: %v", err)
	}
	def := DefaultEventConfig()
	if len(cfg.Phases) != len(def.Phases) || cfg.Phases[2] != def.Phases[2] {
		t.Fatalf("shipped phases differ from defaults: %+v", cfg.Phases)
	}
	if cfg.Dome != def.Dome || cfg.Economy != def.Economy {
		t.Fatalf("shipped dome/economy differ from defaults")
	}
}

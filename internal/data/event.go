package data

import (
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Prefab paths used when the YAML omits them.
const (
	DefaultConvoyPrefab  = "assets/prefabs/npc/vehicles/van/van.prefab"
	DefaultHostilePrefab = "assets/prefabs/npc/scientist/scientist.prefab"
	DefaultSpecialItem   = "metal.facemask"
)

// EventConfig is the immutable convoy event definition (convoy_event.yaml).
// A snapshot is taken when an event starts; reloading never touches a running event.
type EventConfig struct {
	Event   EventSettings   `yaml:"event"`
	Convoy  ConvoySettings  `yaml:"convoy"`
	Dome    DomeSettings    `yaml:"dome"`
	Economy EconomySettings `yaml:"economy"`
	UI      UISettings      `yaml:"ui"`
	Phases  []PhaseSettings `yaml:"phases"`
}

type EventSettings struct {
	Enabled          bool    `yaml:"enabled"`
	StartCooldownSec float64 `yaml:"start_cooldown_sec"`
	MinPlayers       int     `yaml:"min_players"`
	MaxPlayers       int     `yaml:"max_players"`
	AutoStart        bool    `yaml:"auto_start"`
	AnnounceToServer bool    `yaml:"announce_to_server"`
}

type ConvoySettings struct {
	Health         float64 `yaml:"health"`
	Speed          float64 `yaml:"speed"` // units per second
	WaypointCount  int     `yaml:"waypoint_count"`
	WaypointRadius float64 `yaml:"waypoint_radius"`
	Prefab         string  `yaml:"prefab"`
	HostilePrefab  string  `yaml:"hostile_prefab"`
	SpecialItem    string  `yaml:"special_item"` // item shortname; identity is tracked per instance
}

type DomeSettings struct {
	Radius              float64 `yaml:"radius"`
	InventoryProtection bool    `yaml:"inventory_protection"`
	ExitWarningDistance float64 `yaml:"exit_warning_distance"`
	ExitTimeLimitSec    float64 `yaml:"exit_time_limit_sec"`
	ZoneID              string  `yaml:"zone_id"`
	PVPEnabled          bool    `yaml:"pvp_enabled"`
}

type EconomySettings struct {
	AccrualRate        int     `yaml:"accrual_rate"`
	AccrualIntervalSec float64 `yaml:"accrual_interval_sec"`
	UseWallet          bool    `yaml:"use_wallet"`
	CurrencyName       string  `yaml:"currency_name"`
}

type UISettings struct {
	MainColor      string `yaml:"main_color"`
	SecondaryColor string `yaml:"secondary_color"`
	TextColor      string `yaml:"text_color"`
}

// PhaseSettings is one difficulty tier.
type PhaseSettings struct {
	DurationSec   int  `yaml:"duration_sec"`
	MaxEconomy    int  `yaml:"max_economy"`
	SpawnHostiles bool `yaml:"spawn_hostiles"`
	HostileCount  int  `yaml:"hostile_count"`
}

func (p PhaseSettings) Duration() time.Duration {
	return time.Duration(p.DurationSec) * time.Second
}

func (e EventSettings) StartCooldown() time.Duration { return secs(e.StartCooldownSec) }
func (d DomeSettings) ExitTimeLimit() time.Duration  { return secs(d.ExitTimeLimitSec) }
func (e EconomySettings) AccrualInterval() time.Duration {
	return secs(e.AccrualIntervalSec)
}

func secs(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

// DefaultEventConfig returns the built-in event definition.
func DefaultEventConfig() *EventConfig {
	return &EventConfig{
		Event: EventSettings{
			Enabled:          true,
			StartCooldownSec: 3600,
			MinPlayers:       3,
			MaxPlayers:       20,
			AutoStart:        true,
			AnnounceToServer: true,
		},
		Convoy: ConvoySettings{
			Health:         5000,
			Speed:          8,
			WaypointCount:  8,
			WaypointRadius: 200,
			Prefab:         DefaultConvoyPrefab,
			HostilePrefab:  DefaultHostilePrefab,
			SpecialItem:    DefaultSpecialItem,
		},
		Dome: DomeSettings{
			Radius:              100,
			InventoryProtection: true,
			ExitWarningDistance: 50,
			ExitTimeLimitSec:    20,
			ZoneID:              "ConvoyDome",
			PVPEnabled:          true,
		},
		Economy: EconomySettings{
			AccrualRate:        5,
			AccrualIntervalSec: 1,
			UseWallet:          true,
			CurrencyName:       "RP",
		},
		UI: UISettings{
			MainColor:      "#FF6B35",
			SecondaryColor: "#004E89",
			TextColor:      "#FFFFFF",
		},
		Phases: []PhaseSettings{
			{DurationSec: 120, MaxEconomy: 200},
			{DurationSec: 180, MaxEconomy: 300},
			{DurationSec: 180, MaxEconomy: 300, SpawnHostiles: true, HostileCount: 12},
		},
	}
}

// LoadEventConfig reads convoy_event.yaml. Any failure (missing file, bad
// YAML, invalid values) falls back to DefaultEventConfig with a warning.
func LoadEventConfig(path string, log *zap.Logger) *EventConfig {
	cfg, err := loadEventConfig(path)
	if err != nil {
		log.Warn("活動設定無效，使用預設值", zap.String("path", path), zap.Error(err))
		return DefaultEventConfig()
	}
	return cfg
}

func loadEventConfig(path string) (*EventConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read event config: %w", err)
	}
	cfg := DefaultEventConfig()
	// phases replace the defaults wholesale rather than merging by index
	cfg.Phases = nil
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse event config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values the event state machine relies on.
func (c *EventConfig) Validate() error {
	var errs []error
	if len(c.Phases) == 0 {
		errs = append(errs, errors.New("no phases configured"))
	}
	for i, p := range c.Phases {
		if p.DurationSec <= 0 {
			errs = append(errs, fmt.Errorf("phase %d: duration must be positive", i+1))
		}
		if p.MaxEconomy < 0 {
			errs = append(errs, fmt.Errorf("phase %d: max economy must not be negative", i+1))
		}
		if p.SpawnHostiles && p.HostileCount < 0 {
			errs = append(errs, fmt.Errorf("phase %d: hostile count must not be negative", i+1))
		}
	}
	if c.Event.MinPlayers < 0 || c.Event.MaxPlayers < 1 || c.Event.MinPlayers > c.Event.MaxPlayers {
		errs = append(errs, fmt.Errorf("invalid player bounds min=%d max=%d", c.Event.MinPlayers, c.Event.MaxPlayers))
	}
	if c.Convoy.WaypointCount < 1 {
		errs = append(errs, errors.New("waypoint count must be at least 1"))
	}
	if c.Convoy.Speed <= 0 {
		errs = append(errs, errors.New("convoy speed must be positive"))
	}
	if c.Dome.Radius <= 0 {
		errs = append(errs, errors.New("dome radius must be positive"))
	}
	if c.Dome.ExitTimeLimitSec <= 0 {
		errs = append(errs, errors.New("dome exit time limit must be positive"))
	}
	if c.Economy.AccrualIntervalSec <= 0 {
		errs = append(errs, errors.New("accrual interval must be positive"))
	}
	if c.Economy.AccrualRate < 0 {
		errs = append(errs, errors.New("accrual rate must not be negative"))
	}
	return errors.Join(errs...)
}

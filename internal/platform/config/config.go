// Package config loads the server configuration from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the item server.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	DBPath     string `yaml:"db_path"`
	GameID     string `yaml:"game_id"`
	LogLevel   string `yaml:"log_level"`

	// Simulation
	TickMs          int `yaml:"tick_ms"`
	RespawnTimeMs   int `yaml:"respawn_time_ms"`
	PopTimeMs       int `yaml:"pop_time_ms"`
	SnapshotEveryMs int `yaml:"snapshot_every_ms"`

	// Network
	ClientSendBuffer     int `yaml:"client_send_buffer"`
	MaxMessagesPerSecond int `yaml:"max_messages_per_second"`

	// TemplatesFile is an optional YAML file of item templates.
	TemplatesFile string `yaml:"templates_file"`

	// Mission contents seeded on an empty database.
	Players    []PlayerSeed `yaml:"players"`
	Placements []string     `yaml:"placements"` // Template names placed as editor items
}

// PlayerSeed is a player created when the mission starts fresh.
type PlayerSeed struct {
	ID    string         `yaml:"id"`
	Name  string         `yaml:"name"`
	Items map[string]int `yaml:"items"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		ListenAddr: ":8080",
		DBPath:     "data/items.db",
		GameID:     "MISSION_1",
		LogLevel:   "info",

		TickMs:          32,
		RespawnTimeMs:   20 * 1000,
		PopTimeMs:       10 * 1000,
		SnapshotEveryMs: 5000,

		ClientSendBuffer:     64,
		MaxMessagesPerSecond: 20,
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Validate rejects configurations the item timers cannot honor.
func (c Config) Validate() error {
	var errs []error
	if c.TickMs <= 0 {
		errs = append(errs, errors.New("tick_ms must be positive"))
	}
	if c.RespawnTimeMs <= 0 {
		errs = append(errs, errors.New("respawn_time_ms must be positive"))
	}
	// The pop fade starts one second before deletion.
	if c.PopTimeMs < 1000 {
		errs = append(errs, errors.New("pop_time_ms must be at least 1000"))
	}
	if c.SnapshotEveryMs <= 0 {
		errs = append(errs, errors.New("snapshot_every_ms must be positive"))
	}
	if c.ClientSendBuffer <= 0 {
		errs = append(errs, errors.New("client_send_buffer must be positive"))
	}
	seen := make(map[string]bool)
	for _, p := range c.Players {
		if p.ID == "" {
			errs = append(errs, errors.New("player id is required"))
			continue
		}
		if seen[p.ID] {
			errs = append(errs, fmt.Errorf("duplicate player %s", p.ID))
		}
		seen[p.ID] = true
	}
	return errors.Join(errs...)
}

// Tick returns the tick interval.
func (c Config) Tick() time.Duration {
	return time.Duration(c.TickMs) * time.Millisecond
}

// RespawnTime returns the static item respawn delay.
func (c Config) RespawnTime() time.Duration {
	return time.Duration(c.RespawnTimeMs) * time.Millisecond
}

// PopTime returns the dynamic item lifetime.
func (c Config) PopTime() time.Duration {
	return time.Duration(c.PopTimeMs) * time.Millisecond
}

// SnapshotEvery returns the inventory snapshot interval.
func (c Config) SnapshotEvery() time.Duration {
	return time.Duration(c.SnapshotEveryMs) * time.Millisecond
}

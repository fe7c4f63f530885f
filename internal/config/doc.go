// Package config handles configuration loading, saving, and schema definition.
package config

import "time"

// Config is the top-level apbridge configuration.
// Uses json tags in camelCase to match the JSON config file format; env tags
// let APBRIDGE_* variables override the file. Durations are written like
// "16ms" or "15s".
type Config struct {
	Server ServerConfig `json:"server" envPrefix:"APBRIDGE_"`
	Slot   SlotConfig   `json:"slot" envPrefix:"APBRIDGE_"`
	Bridge BridgeConfig `json:"bridge" envPrefix:"APBRIDGE_"`
	Redis  RedisConfig  `json:"redis" envPrefix:"APBRIDGE_REDIS_"`
}

// ServerConfig says where to connect.
type ServerConfig struct {
	URL              string   `json:"url,omitempty" env:"URL"`
	HandshakeTimeout Duration `json:"handshakeTimeout,omitempty" env:"HANDSHAKE_TIMEOUT"`
}

// SlotConfig holds the Connect parameters.
type SlotConfig struct {
	Game          string   `json:"game,omitempty" env:"GAME"`
	Name          string   `json:"name,omitempty" env:"NAME"`
	Password      string   `json:"password,omitempty" env:"PASSWORD"`
	ItemsHandling *int     `json:"itemsHandling,omitempty" env:"ITEMS_HANDLING"`
	Tags          []string `json:"tags,omitempty" env:"TAGS"`
	ClientUUID    string   `json:"clientUuid,omitempty" env:"CLIENT_UUID"`
}

// BridgeConfig tunes the host side.
type BridgeConfig struct {
	Capacity     int      `json:"capacity,omitempty" env:"CAPACITY"`
	TickInterval Duration `json:"tickInterval,omitempty" env:"TICK"`
}

// RedisConfig holds the data package cache settings. An empty URL disables
// the cache.
type RedisConfig struct {
	URL      string   `json:"url,omitempty" env:"URL"`
	Password string   `json:"password,omitempty" env:"PASSWORD"`
	DB       int      `json:"db,omitempty" env:"DB"`
	TTL      Duration `json:"ttl,omitempty" env:"TTL"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			URL:              "localhost:38281",
			HandshakeTimeout: Duration(15 * time.Second),
		},
		Slot: SlotConfig{
			Tags: []string{"AP"},
		},
		Bridge: BridgeConfig{
			Capacity:     1000,
			TickInterval: Duration(16 * time.Millisecond),
		},
	}
}

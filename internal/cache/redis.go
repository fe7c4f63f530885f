// Package cache keeps Archipelago data packages in Redis so a reconnect does
// not have to download static game metadata again.
//
// Graceful fallback: if Redis is unavailable, lookups miss and stores are
// skipped instead of failing the handshake.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dayuer/apbridge-go/internal/protocol"
)

// KeyDataPackage prefixes data package entries.
const KeyDataPackage = "dp:"

// DefaultTTL is how long an entry lives when Config.TTL is zero.
const DefaultTTL = 7 * 24 * time.Hour

// Config holds Redis connection settings.
type Config struct {
	URL      string // redis://host:port
	Password string
	DB       int
	TTL      time.Duration
}

// Cache is a data package cache. The zero value and a nil *Cache are valid
// and always miss.
type Cache struct {
	mu     sync.RWMutex
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis. It never fails: when the URL is empty or the server
// does not answer, the returned Cache is unavailable.
func New(ctx context.Context, cfg Config) *Cache {
	c := &Cache{ttl: cfg.TTL}
	if c.ttl <= 0 {
		c.ttl = DefaultTTL
	}
	if cfg.URL == "" {
		log.Println("[Cache] URL not configured, data packages will not be cached")
		return c
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		log.Printf("[Cache] ❌ Invalid URL: %v", err)
		return c
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	opts.DB = cfg.DB
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.MaxRetries = 3

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Printf("[Cache] ❌ Connection failed: %v", err)
		client.Close()
		return c
	}

	c.client = client
	log.Println("[Cache] ✅ Connected")
	return c
}

func (c *Cache) get() *redis.Client {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

// Available reports whether Redis is connected.
func (c *Cache) Available() bool {
	return c.get() != nil
}

// Close closes the Redis connection.
func (c *Cache) Close() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		c.client.Close()
		c.client = nil
		log.Println("[Cache] Connection closed")
	}
}

// DataPackageKey returns the Redis key of one game's data package.
func DataPackageKey(game, checksum string) string {
	return fmt.Sprintf("%s%s:%s", KeyDataPackage, game, checksum)
}

// Lookup returns the cached data package of game at checksum.
func (c *Cache) Lookup(ctx context.Context, game, checksum string) (protocol.GameData, bool) {
	client := c.get()
	if client == nil || checksum == "" {
		return protocol.GameData{}, false
	}
	key := DataPackageKey(game, checksum)
	raw, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[Cache] lookup failed (%s): %v", key, err)
		}
		return protocol.GameData{}, false
	}
	var data protocol.GameData
	if err := json.Unmarshal(raw, &data); err != nil {
		log.Printf("[Cache] lookup parse failed (%s): %v", key, err)
		return protocol.GameData{}, false
	}
	return data, true
}

// Store caches data under its own checksum. Data without a checksum cannot be
// validated later and is skipped.
func (c *Cache) Store(ctx context.Context, game string, data protocol.GameData) bool {
	client := c.get()
	if client == nil || data.Checksum == "" {
		return false
	}
	key := DataPackageKey(game, data.Checksum)
	raw, err := json.Marshal(data)
	if err != nil {
		log.Printf("[Cache] store marshal failed (%s): %v", key, err)
		return false
	}
	if err := client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		log.Printf("[Cache] store failed (%s): %v", key, err)
		return false
	}
	return true
}

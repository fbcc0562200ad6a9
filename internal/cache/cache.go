package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/0xknstntn/news-checker/internal/model"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives a cache key from a namespace and the parts that identify a
// request, e.g. Key("search", engine, query, "8", "7").
func Key(namespace string, parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return "newscheck:v1:" + namespace + ":" + hex.EncodeToString(hash[:16])
}

// GetJSON decodes a cached JSON value into out. A decode failure counts as a miss.
func GetJSON(c Cache, key string, out any) bool {
	if c == nil {
		return false
	}
	data, ok := c.Get(key)
	if !ok {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

// SetJSON stores v as JSON
func SetJSON(c Cache, key string, v any, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(key, data, ttl)
}

// New builds the cache described by cfg. It returns nil when caching is disabled.
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return nil
	}
	memory := NewMemoryCache(cfg.MemoryTTL, 10*time.Minute)
	if cfg.DiskDir == "" {
		return memory
	}
	return NewLayeredCache(memory, NewDiskCache(cfg.DiskDir, cfg.DiskTTL))
}

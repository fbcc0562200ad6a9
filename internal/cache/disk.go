package cache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// DiskCache implements persistent disk-based caching.
// Each entry is an 8-byte expiry (unix nanoseconds) followed by the zstd-compressed value.
type DiskCache struct {
	dir string
	ttl time.Duration

	initOnce sync.Once
	encoder  *zstd.Encoder
	decoder  *zstd.Decoder
	initErr  error
}

// NewDiskCache creates a new disk cache
func NewDiskCache(dir string, ttl time.Duration) *DiskCache {
	return &DiskCache{
		dir: dir,
		ttl: ttl,
	}
}

// codecs lazily creates the shared zstd encoder and decoder
func (c *DiskCache) codecs() error {
	c.initOnce.Do(func() {
		c.encoder, c.initErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if c.initErr != nil {
			return
		}
		c.decoder, c.initErr = zstd.NewReader(nil)
	})
	return c.initErr
}

// Get retrieves a value from the disk cache
func (c *DiskCache) Get(key string) ([]byte, bool) {
	if c.codecs() != nil {
		return nil, false
	}

	path := c.path(key)
	data, err := os.ReadFile(path)
	if err != nil || len(data) < 8 {
		return nil, false
	}

	expiresAt := time.Unix(0, int64(binary.BigEndian.Uint64(data[:8])))
	if time.Now().After(expiresAt) {
		_ = os.Remove(path)
		return nil, false
	}

	value, err := c.decoder.DecodeAll(data[8:], nil)
	if err != nil {
		_ = os.Remove(path)
		return nil, false
	}
	return value, true
}

// Set stores a value in the disk cache
func (c *DiskCache) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.codecs(); err != nil {
		return fmt.Errorf("init zstd: %w", err)
	}
	if ttl == 0 {
		ttl = c.ttl
	}

	header := make([]byte, 8, 8+len(value)/2)
	binary.BigEndian.PutUint64(header, uint64(time.Now().Add(ttl).UnixNano()))
	data := c.encoder.EncodeAll(value, header)

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	// Write then rename so readers never see a partial entry
	tmp, err := os.CreateTemp(c.dir, "entry-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path(key)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename cache file: %w", err)
	}

	return nil
}

// Delete removes a value from the disk cache
func (c *DiskCache) Delete(key string) error {
	err := os.Remove(c.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Clear removes all cached files
func (c *DiskCache) Clear() error {
	return os.RemoveAll(c.dir)
}

// path generates the file path for a cache key
func (c *DiskCache) path(key string) string {
	return filepath.Join(c.dir, sanitize(key)+".zst")
}

// sanitize replaces path-hostile characters in keys
func sanitize(key string) string {
	out := []byte(key)
	for i, b := range out {
		switch b {
		case ':', '/', '\\':
			out[i] = '_'
		}
	}
	return string(out)
}

// Package cache mirrors the message store into a local durable
// key-value cache so histories survive restarts. Writes are
// full-snapshot overwrites; last write wins.
package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/gidvion/chat-core/internal/model"
	"github.com/gidvion/chat-core/pkg/logger"
	"github.com/gidvion/chat-core/pkg/metrics"
)

// Fixed cache keys. Messages round-trip as a single JSON array with
// RFC3339Nano timestamps; the selected model is a bare string.
const (
	keyMessages      = "chat-messages"
	keySelectedModel = "gidvion-selected-model"
)

// Cache is the sqlite-backed durable cache.
type Cache struct {
	db     *sql.DB
	logger *logger.Logger
}

// Open opens (creating if needed) the cache database at path. Use
// ":memory:" for an ephemeral cache.
func Open(path string, log *logger.Logger) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	// Single connection: the bridge serializes writes anyway and this
	// avoids SQLITE_BUSY on concurrent snapshot writes.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS cache (
		key   TEXT PRIMARY KEY,
		value BLOB NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache table: %w", err)
	}

	return &Cache{db: db, logger: log}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// SaveMessages overwrites the cached snapshot with msgs. Callers must
// pass a snapshot taken from the live store at write time, never a
// retained copy.
func (c *Cache) SaveMessages(msgs []model.Message) error {
	data, err := json.Marshal(msgs)
	if err != nil {
		metrics.CacheWritesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("marshal messages: %w", err)
	}
	if err := c.put(keyMessages, data); err != nil {
		metrics.CacheWritesTotal.WithLabelValues("error").Inc()
		return err
	}
	metrics.CacheWritesTotal.WithLabelValues("ok").Inc()
	return nil
}

// LoadMessages returns the cached snapshot. A missing or malformed
// payload yields an empty history: the cache is a convenience, never a
// startup failure.
func (c *Cache) LoadMessages() []model.Message {
	data, err := c.get(keyMessages)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			c.logger.Warn("failed to read cached messages", zap.Error(err))
		}
		return nil
	}

	var msgs []model.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		c.logger.Warn("discarding malformed message cache", zap.Error(err))
		return nil
	}
	return msgs
}

// SaveSelectedModel persists the picker's model choice.
func (c *Cache) SaveSelectedModel(id string) error {
	return c.put(keySelectedModel, []byte(id))
}

// LoadSelectedModel returns the persisted model choice, or "" when none
// is stored.
func (c *Cache) LoadSelectedModel() string {
	data, err := c.get(keySelectedModel)
	if err != nil {
		return ""
	}
	return string(data)
}

func (c *Cache) put(key string, value []byte) error {
	_, err := c.db.Exec(
		`INSERT INTO cache (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("write cache key %q: %w", key, err)
	}
	return nil
}

func (c *Cache) get(key string) ([]byte, error) {
	var value []byte
	err := c.db.QueryRow(`SELECT value FROM cache WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return nil, err
	}
	return value, nil
}

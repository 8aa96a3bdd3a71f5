// Package redis stores per-user history lists in Redis.
// Each user is one list; new entries are pushed to the head and the list is
// trimmed to capacity in the same transaction.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/custodia-labs/regdocs/internal/core/domain"
	"github.com/custodia-labs/regdocs/internal/core/ports/driven"
	"github.com/custodia-labs/regdocs/internal/logger"
)

const (
	// DefaultKeyPrefix namespaces history keys.
	DefaultKeyPrefix = "regdocs:history:"

	pingTimeout = 3 * time.Second
)

var log = logger.Component("history")

// Config addresses a Redis server.
type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// HistoryStore implements driven.HistoryStore on Redis lists.
type HistoryStore struct {
	client goredis.Cmdable
	closer func() error
	prefix string
}

var _ driven.HistoryStore = (*HistoryStore)(nil)

// NewHistoryStore connects to Redis and verifies the connection.
func NewHistoryStore(ctx context.Context, cfg Config) (*HistoryStore, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, domain.NewProviderError("redis", "ping", 0, err)
	}
	store := NewHistoryStoreWithClient(client, cfg.KeyPrefix)
	store.closer = client.Close
	return store, nil
}

// NewHistoryStoreWithClient wraps an existing client. Close does not close it.
func NewHistoryStoreWithClient(client goredis.Cmdable, prefix string) *HistoryStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &HistoryStore{client: client, prefix: prefix}
}

func (h *HistoryStore) key(userID string) string {
	return h.prefix + userID
}

// Get returns the user's entries, most recent first.
// Entries that no longer decode are skipped.
func (h *HistoryStore) Get(ctx context.Context, userID string) ([]domain.HistoryEntry, error) {
	raw, err := h.client.LRange(ctx, h.key(userID), 0, -1).Result()
	if err != nil {
		return nil, domain.NewProviderError("redis", "get history", 0, err)
	}
	return decodeEntries(raw), nil
}

func decodeEntries(raw []string) []domain.HistoryEntry {
	entries := make([]domain.HistoryEntry, 0, len(raw))
	for _, item := range raw {
		var e domain.HistoryEntry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			log.Warn("skipping undecodable history entry: %v", err)
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

// Append pushes entry to the head of the list and trims it to capacity.
func (h *HistoryStore) Append(ctx context.Context, userID string, entry domain.HistoryEntry, capacity int) error {
	if capacity <= 0 {
		capacity = domain.DefaultHistoryCapacity
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshalling history entry: %w", err)
	}
	key := h.key(userID)
	_, err = h.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.LPush(ctx, key, data)
		pipe.LTrim(ctx, key, 0, int64(capacity-1))
		return nil
	})
	if err != nil {
		return domain.NewProviderError("redis", "append history", 0, err)
	}
	return nil
}

// Close closes the client when the store created it.
func (h *HistoryStore) Close() error {
	if h.closer == nil {
		return nil
	}
	return h.closer()
}

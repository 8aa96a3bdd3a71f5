package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/regdocs/internal/core/domain"
)

// setupRedis connects to REGDOCS_TEST_REDIS_ADDR, skipping when unset.
func setupRedis(t *testing.T) *HistoryStore {
	t.Helper()
	addr := os.Getenv("REGDOCS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("REGDOCS_TEST_REDIS_ADDR not set")
	}
	store, err := NewHistoryStore(context.Background(), Config{
		Addr:      addr,
		KeyPrefix: "regdocs-test:" + uuid.NewString() + ":",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestHistoryStore_AppendAndTrim(t *testing.T) {
	h := setupRedis(t)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		require.NoError(t, h.Append(ctx, "alice", domain.HistoryEntry{
			Kind:  domain.HistoryKindSearch,
			Query: fmt.Sprintf("q%d", i),
		}, 2))
	}

	got, err := h.Get(ctx, "alice")

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "q3", got[0].Query)
	assert.Equal(t, "q2", got[1].Query)
}

func TestHistoryStore_UnknownUserIsEmpty(t *testing.T) {
	got, err := setupRedis(t).Get(context.Background(), "nobody")

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNewHistoryStore_UnreachableServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := NewHistoryStore(ctx, Config{Addr: "127.0.0.1:1"})

	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
}

func TestDecodeEntries_SkipsGarbage(t *testing.T) {
	got := decodeEntries([]string{
		`{"kind":"upload","documentId":"d1"}`,
		`not json`,
		`{"kind":"bookmark","documentId":"d2"}`,
	})

	require.Len(t, got, 2)
	assert.Equal(t, domain.HistoryKindUpload, got[0].Kind)
	assert.Equal(t, "d2", got[1].DocumentID)
}

func TestNewHistoryStoreWithClient_DefaultPrefix(t *testing.T) {
	h := NewHistoryStoreWithClient(nil, "")

	assert.Equal(t, DefaultKeyPrefix+"alice", h.key("alice"))
	assert.NoError(t, h.Close())
}

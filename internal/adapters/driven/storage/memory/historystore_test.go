package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/regdocs/internal/core/domain"
)

func TestHistoryStore_AppendOrderAndCap(t *testing.T) {
	store := NewHistoryStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		entry := domain.HistoryEntry{Kind: domain.HistoryKindSearch, Query: fmt.Sprintf("q%d", i)}
		require.NoError(t, store.Append(ctx, "alice", entry, 3))
	}

	entries, err := store.Get(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "q4", entries[0].Query)
	assert.Equal(t, "q2", entries[2].Query)
}

func TestHistoryStore_UsersAreIsolated(t *testing.T) {
	store := NewHistoryStore()
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, "alice", domain.HistoryEntry{Query: "a"}, 10))

	bob, err := store.Get(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, bob)
	assert.NotNil(t, bob)
}

func TestHistoryStore_GetReturnsCopy(t *testing.T) {
	store := NewHistoryStore()
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, "alice", domain.HistoryEntry{Query: "a"}, 10))

	entries, _ := store.Get(ctx, "alice")
	entries[0].Query = "changed"

	again, _ := store.Get(ctx, "alice")
	assert.Equal(t, "a", again[0].Query)
	assert.NoError(t, store.Close())
}

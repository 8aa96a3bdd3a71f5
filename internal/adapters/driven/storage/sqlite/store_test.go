package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/regdocs/internal/core/domain"
	"github.com/custodia-labs/regdocs/internal/core/ports/driven"
)

// setupTestStore creates a store in a temporary directory closed at test end.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })
	return store
}

func TestNewStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	store, err := NewStore(dir)

	require.NoError(t, err)
	defer store.Close()
	assert.Equal(t, filepath.Join(dir, DBFileName), store.Path())
	assert.FileExists(t, store.Path())
}

func TestNewStore_ReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	first, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.DocumentStore().SaveDocument(ctx, testDocument("kept", time.Now())))
	require.NoError(t, first.Close())

	second, err := NewStore(dir)
	require.NoError(t, err)
	defer second.Close()

	_, err = second.DocumentStore().GetDocument(ctx, "kept")
	assert.NoError(t, err)
}

func TestMigrate_RecordsVersions(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	extra := fstest.MapFS{
		"001_initial.up.sql": {Data: []byte("SELECT 1;")},
		"002_notes.up.sql":   {Data: []byte("CREATE TABLE notes (id TEXT);")},
		"002_notes.down.sql": {Data: []byte("DROP TABLE notes;")},
		"readme.txt":         {Data: []byte("ignored")},
	}

	require.NoError(t, store.migrate(ctx, extra))
	require.NoError(t, store.migrate(ctx, extra))

	var version int
	require.NoError(t, store.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 2, version)
	_, err := store.db.Exec("INSERT INTO notes (id) VALUES ('x')")
	assert.NoError(t, err)
}

func TestMigrate_FailureRollsBack(t *testing.T) {
	store := setupTestStore(t)
	bad := fstest.MapFS{"009_broken.up.sql": {Data: []byte("CREATE TABLE ok (id TEXT); NOT SQL;")}}

	err := store.migrate(context.Background(), bad)

	assert.ErrorContains(t, err, "009_broken.up.sql")
	var n int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = 9").Scan(&n))
	assert.Zero(t, n)
}

func TestFloat32Blobs(t *testing.T) {
	in := []float32{0, 1.5, -2.25, 3.4e38}
	assert.Equal(t, in, bytesToFloat32Slice(float32SliceToBytes(in)))
	assert.Empty(t, bytesToFloat32Slice(nil))
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?, ?, ?", placeholders(3))
}

func TestTimeLayoutSortsAsText(t *testing.T) {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	later := base.Add(500 * time.Millisecond)
	assert.Less(t, formatTime(base), formatTime(later))
	assert.True(t, parseTime(formatTime(later)).Equal(later))
	assert.True(t, parseTime("garbage").IsZero())
}

func testDocument(id string, at time.Time) *domain.Document {
	return &domain.Document{
		ID:            id,
		Title:         "Title " + id,
		Filename:      id + ".pdf",
		SourceKind:    domain.SourceKindUpload,
		MIMEType:      "application/pdf",
		Jurisdiction:  "CO",
		DocumentTypes: []string{"licensing"},
		Status:        domain.StatusUploaded,
		Progress:      domain.ProgressUploaded,
		UploadedBy:    "alice",
		CreatedAt:     at,
		UpdatedAt:     at,
	}
}

func vectorRecord(docID string, index int, values []float32, extra map[string]any) driven.VectorRecord {
	md := map[string]any{
		domain.MetaDocumentID: docID,
		domain.MetaChunkIndex: index,
	}
	for k, v := range extra {
		md[k] = v
	}
	return driven.VectorRecord{ID: fmt.Sprintf("%s_chunk_%d", docID, index), Values: values, Metadata: md}
}

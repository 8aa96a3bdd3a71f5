package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/regdocs/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/regdocs/internal/core/domain"
	"github.com/custodia-labs/regdocs/internal/core/ports/driven"
)

func orphanRecord(id, owner string) driven.VectorRecord {
	md := map[string]any{}
	if owner != "" {
		md[domain.MetaDocumentID] = owner
	}
	return driven.VectorRecord{ID: id, Values: []float32{1, 0, 0}, Metadata: md}
}

func TestRepair_ReprocessedDocumentVerifiesClean(t *testing.T) {
	f := newIngestionFixture(t, IngestionConfig{})
	text, pages := threePageText(-1)
	f.extractor.set(text, pages...)
	doc := f.upload(t)
	require.NoError(t, f.svc.Ingest(context.Background(), doc.ID))

	require.NoError(t, f.svc.Reprocess(context.Background(), doc.ID))
	f.svc.Wait()

	repair := NewRepairService(f.store, f.vectors, RepairConfig{Namespace: testNamespace, PageSize: 2})

	report, err := repair.VerifyContent(context.Background(), []string{doc.ID}, 0)
	require.NoError(t, err)
	require.Len(t, report.Documents, 1)
	match := report.Documents[0]
	assert.Empty(t, match.Skipped)
	assert.Equal(t, 5, match.Checked)
	assert.Equal(t, 5, match.Matched)
	assert.Equal(t, 1.0, match.Agreement())

	orphans, err := repair.FindOrphans(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, orphans.Scanned)
	assert.Empty(t, orphans.OrphanIDs)
}

func TestRepair_FindOrphans(t *testing.T) {
	store := memory.NewDocumentStore()
	vectors := memory.NewVectorIndex()
	ctx := context.Background()
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "live", Status: domain.StatusCompleted}))
	require.NoError(t, vectors.Upsert(ctx, testNamespace, []driven.VectorRecord{
		orphanRecord("live_chunk_0", "live"),
		orphanRecord("live_chunk_1", "live"),
		orphanRecord("gone_chunk_0", "gone"),
		orphanRecord("gone_chunk_1", "gone"),
		orphanRecord("lost_chunk_7", ""),
		orphanRecord("mystery", ""),
	}))
	repair := NewRepairService(store, vectors, RepairConfig{Namespace: testNamespace, PageSize: 4})

	report, err := repair.FindOrphans(ctx)

	require.NoError(t, err)
	assert.Equal(t, 6, report.Scanned)
	assert.ElementsMatch(t, []string{"gone_chunk_0", "gone_chunk_1", "lost_chunk_7", "mystery"}, report.OrphanIDs)
	assert.Equal(t, []string{"gone", "lost"}, report.OrphanDocumentIDs)
}

func TestRepair_PurgeOrphansInBatches(t *testing.T) {
	tests := []struct {
		name        string
		batchSize   int
		wantBatches int
	}{
		{"small batches", 2, 3},
		{"one batch", 10, 1},
		{"config default", 0, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewDocumentStore()
			vectors := memory.NewVectorIndex()
			ctx := context.Background()
			require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "live", Status: domain.StatusCompleted}))
			records := []driven.VectorRecord{orphanRecord("live_chunk_0", "live")}
			for i := 0; i < 5; i++ {
				records = append(records, orphanRecord(domain.ChunkID("gone", i), "gone"))
			}
			require.NoError(t, vectors.Upsert(ctx, testNamespace, records))
			repair := NewRepairService(store, vectors, RepairConfig{Namespace: testNamespace, BatchSize: 3})

			report, err := repair.PurgeOrphans(ctx, tt.batchSize)

			require.NoError(t, err)
			assert.Equal(t, 5, report.Deleted)
			assert.Equal(t, tt.wantBatches, report.Batches)
			assert.Equal(t, 1, vectors.Count(testNamespace))

			again, err := repair.FindOrphans(ctx)
			require.NoError(t, err)
			assert.Empty(t, again.OrphanIDs)
		})
	}
}

type failingDelete struct {
	driven.VectorIndex
	err error
}

func (f *failingDelete) Delete(context.Context, string, []string) error { return f.err }

func TestRepair_PurgeOrphansDeleteFailure(t *testing.T) {
	vectors := memory.NewVectorIndex()
	ctx := context.Background()
	require.NoError(t, vectors.Upsert(ctx, testNamespace, []driven.VectorRecord{orphanRecord("gone_chunk_0", "gone")}))
	boom := errors.New("index offline")
	repair := NewRepairService(memory.NewDocumentStore(), &failingDelete{VectorIndex: vectors, err: boom},
		RepairConfig{Namespace: testNamespace})

	report, err := repair.PurgeOrphans(ctx, 0)

	assert.ErrorIs(t, err, boom)
	require.NotNil(t, report)
	assert.Equal(t, 0, report.Deleted)
	assert.Len(t, report.OrphanIDs, 1)
}

func TestRepair_VerifyContentDetectsMismatches(t *testing.T) {
	store := memory.NewDocumentStore()
	vectors := memory.NewVectorIndex()
	ctx := context.Background()
	content := "Licenses renew yearly. Fees are due."
	doc := &domain.Document{ID: "doc", Title: "Rules", Status: domain.StatusCompleted, Content: &content}
	require.NoError(t, store.SaveDocument(ctx, doc))

	good := domain.Chunk{DocumentID: "doc", Index: 0, Text: "Licenses renew yearly.", StartChar: 0, EndChar: 22}
	shifted := domain.Chunk{DocumentID: "doc", Index: 1, Text: "Fees are due.", StartChar: 22, EndChar: 35}
	outside := domain.Chunk{DocumentID: "doc", Index: 2, Text: "Beyond.", StartChar: 30, EndChar: 90}
	var records []driven.VectorRecord
	for _, c := range []domain.Chunk{good, shifted, outside} {
		records = append(records, driven.VectorRecord{ID: c.ID(), Values: []float32{1}, Metadata: domain.ChunkMetadata(doc, c)})
	}
	require.NoError(t, vectors.Upsert(ctx, testNamespace, records))
	repair := NewRepairService(store, vectors, RepairConfig{Namespace: testNamespace})

	report, err := repair.VerifyContent(ctx, nil, 0)

	require.NoError(t, err)
	require.Len(t, report.Documents, 1)
	m := report.Documents[0]
	assert.Equal(t, "Rules", m.Title)
	assert.Equal(t, 3, m.Checked)
	assert.Equal(t, 1, m.Matched)
	assert.Equal(t, []string{"doc_chunk_1", "doc_chunk_2"}, m.MismatchedIDs)
	assert.InDelta(t, 1.0/3, m.Agreement(), 1e-9)
}

func TestRepair_VerifyContentSkips(t *testing.T) {
	store := memory.NewDocumentStore()
	ctx := context.Background()
	content := "Indexed nowhere."
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "pending", Status: domain.StatusExtracting}))
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "empty", Status: domain.StatusCompleted, Content: &content}))
	repair := NewRepairService(store, memory.NewVectorIndex(), RepairConfig{Namespace: testNamespace})

	report, err := repair.VerifyContent(ctx, []string{"pending", "empty", "missing"}, 3)

	require.NoError(t, err)
	require.Len(t, report.Documents, 3)
	assert.Equal(t, "no extracted content", report.Documents[0].Skipped)
	assert.Equal(t, "no indexed chunks", report.Documents[1].Skipped)
	assert.Equal(t, "document not found", report.Documents[2].Skipped)
	checked, matched := report.Totals()
	assert.Zero(t, checked)
	assert.Zero(t, matched)
}

func TestSample(t *testing.T) {
	records := make([]driven.VectorRecord, 10)
	for i := range records {
		records[i].ID = domain.ChunkID("d", i)
	}

	assert.Len(t, sample(records, 0), 10)
	assert.Len(t, sample(records, 20), 10)

	got := sample(records, 3)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"d_chunk_0", "d_chunk_3", "d_chunk_6"}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestRepair_MarkStale(t *testing.T) {
	store := memory.NewDocumentStore()
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	docs := []domain.Document{
		{ID: "stuck-embedding", Status: domain.StatusEmbedding, Progress: 40, UpdatedAt: now.Add(-2 * time.Hour)},
		{ID: "stuck-uploaded", Status: domain.StatusUploaded, UpdatedAt: now.Add(-45 * time.Minute)},
		{ID: "active", Status: domain.StatusChunking, UpdatedAt: now.Add(-5 * time.Minute)},
		{ID: "done", Status: domain.StatusCompleted, UpdatedAt: now.Add(-48 * time.Hour)},
	}
	for i := range docs {
		require.NoError(t, store.SaveDocument(ctx, &docs[i]))
	}
	repair := NewRepairService(store, memory.NewVectorIndex(), RepairConfig{Namespace: testNamespace})
	repair.now = func() time.Time { return now }

	report, err := repair.MarkStale(ctx, 30*time.Minute)

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"stuck-embedding", "stuck-uploaded"}, report.DocumentIDs)
	assert.Equal(t, 30*time.Minute, report.OlderThan)

	stuck, err := store.GetDocument(ctx, "stuck-embedding")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, stuck.Status)
	assert.Equal(t, 40, stuck.Progress)
	assert.Contains(t, stuck.ErrorMessage, "EMBEDDING")
	assert.Equal(t, now, stuck.UpdatedAt)

	for id, want := range map[string]domain.ProcessingStatus{"active": domain.StatusChunking, "done": domain.StatusCompleted} {
		d, err := store.GetDocument(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, d.Status, id)
	}

	again, err := repair.MarkStale(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Empty(t, again.DocumentIDs)
}

func TestRepair_MarkStaleRejectsNonPositiveTimeout(t *testing.T) {
	repair := NewRepairService(memory.NewDocumentStore(), memory.NewVectorIndex(), RepairConfig{})

	_, err := repair.MarkStale(context.Background(), 0)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

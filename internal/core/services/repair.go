package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/custodia-labs/regdocs/internal/core/domain"
	"github.com/custodia-labs/regdocs/internal/core/ports/driven"
	"github.com/custodia-labs/regdocs/internal/core/ports/driving"
	"github.com/custodia-labs/regdocs/internal/logger"
)

// Ensure RepairService implements the interface.
var _ driving.RepairService = (*RepairService)(nil)

// RepairConfig tunes the repair tooling.
type RepairConfig struct {
	Namespace string

	// PageSize is the number of vector records fetched per List call.
	PageSize int

	// BatchSize is the default number of orphans deleted per call.
	BatchSize int
}

func (c RepairConfig) withDefaults() RepairConfig {
	if c.Namespace == "" {
		c.Namespace = "documents"
	}
	if c.PageSize <= 0 {
		c.PageSize = 500
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	return c
}

// ActivityChecker reports documents an in-process pipeline is working on.
type ActivityChecker interface {
	IsRunning(documentID string) bool
}

// RepairService reconciles the vector index with the document store.
type RepairService struct {
	docStore driven.DocumentStore
	vectors  driven.VectorIndex
	activity ActivityChecker
	cfg      RepairConfig
	log      logger.Logger
	now      func() time.Time
}

// NewRepairService creates a repair service.
func NewRepairService(docStore driven.DocumentStore, vectors driven.VectorIndex, cfg RepairConfig) *RepairService {
	return &RepairService{
		docStore: docStore,
		vectors:  vectors,
		cfg:      cfg.withDefaults(),
		log:      logger.Component("repair"),
		now:      time.Now,
	}
}

// SetActivityChecker makes MarkStale leave documents that are still being
// ingested by this process alone.
func (s *RepairService) SetActivityChecker(a ActivityChecker) {
	s.activity = a
}

// FindOrphans scans the whole index and reports records whose document is gone.
// Document existence is checked once per page.
func (s *RepairService) FindOrphans(ctx context.Context) (*domain.OrphanReport, error) {
	report := &domain.OrphanReport{}
	missing := make(map[string]bool)

	err := s.eachPage(ctx, driven.VectorFilter{}, func(records []driven.VectorRecord) error {
		report.Scanned += len(records)

		owners := make([]string, 0, len(records))
		for _, r := range records {
			owners = appendUnique(owners, ownerOf(r))
		}
		exists, err := s.docStore.ExistingIDs(ctx, owners)
		if err != nil {
			return fmt.Errorf("check documents: %w", err)
		}
		for _, r := range records {
			owner := ownerOf(r)
			if exists[owner] {
				continue
			}
			report.OrphanIDs = append(report.OrphanIDs, r.ID)
			missing[owner] = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for id := range missing {
		if id != "" {
			report.OrphanDocumentIDs = append(report.OrphanDocumentIDs, id)
		}
	}
	sort.Strings(report.OrphanDocumentIDs)
	s.log.Info("scanned %d vectors, %d orphans from %d documents",
		report.Scanned, len(report.OrphanIDs), len(report.OrphanDocumentIDs))
	return report, nil
}

// PurgeOrphans finds orphans and deletes them in batches of at most batchSize.
func (s *RepairService) PurgeOrphans(ctx context.Context, batchSize int) (*domain.PurgeReport, error) {
	if batchSize <= 0 {
		batchSize = s.cfg.BatchSize
	}
	found, err := s.FindOrphans(ctx)
	if err != nil {
		return nil, err
	}

	report := &domain.PurgeReport{OrphanReport: *found}
	for start := 0; start < len(found.OrphanIDs); start += batchSize {
		end := min(start+batchSize, len(found.OrphanIDs))
		if err := s.vectors.Delete(ctx, s.cfg.Namespace, found.OrphanIDs[start:end]); err != nil {
			return report, fmt.Errorf("delete orphans: %w", err)
		}
		report.Deleted += end - start
		report.Batches++
	}
	s.log.Info("purged %d orphans in %d batches", report.Deleted, report.Batches)
	return report, nil
}

// VerifyContent checks that stored chunk offsets still locate the chunk text
// in each document's content. Up to sampleSize chunks are checked per
// document, spread evenly; sampleSize <= 0 checks every chunk.
func (s *RepairService) VerifyContent(ctx context.Context, documentIDs []string, sampleSize int) (*domain.VerifyReport, error) {
	docs, err := s.verifyTargets(ctx, documentIDs)
	if err != nil {
		return nil, err
	}

	report := &domain.VerifyReport{CheckedAt: s.now()}
	for i := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if docs[i].Status == "" {
			report.Documents = append(report.Documents, domain.ContentMatch{
				DocumentID: docs[i].ID,
				Skipped:    "document not found",
			})
			continue
		}
		match, err := s.verifyDocument(ctx, &docs[i], sampleSize)
		if err != nil {
			return nil, err
		}
		report.Documents = append(report.Documents, match)
	}
	checked, matched := report.Totals()
	s.log.Info("verified %d documents: %d/%d chunks match", len(report.Documents), matched, checked)
	return report, nil
}

// MarkStale fails documents stuck in a non-terminal state whose last update
// is older than olderThan.
func (s *RepairService) MarkStale(ctx context.Context, olderThan time.Duration) (*domain.StaleReport, error) {
	if olderThan <= 0 {
		return nil, fmt.Errorf("%w: stale timeout must be positive", domain.ErrInvalidInput)
	}
	docs, err := s.docStore.ListDocuments(ctx, driven.DocumentFilter{
		Statuses: []domain.ProcessingStatus{
			domain.StatusUploaded, domain.StatusExtracting, domain.StatusChunking, domain.StatusEmbedding,
		},
		UpdatedBefore: s.now().Add(-olderThan),
	})
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	report := &domain.StaleReport{OlderThan: olderThan, DocumentIDs: []string{}}
	for i := range docs {
		doc := &docs[i]
		if !doc.Status.CanTransitionTo(domain.StatusFailed) {
			continue
		}
		if s.activity != nil && s.activity.IsRunning(doc.ID) {
			s.log.Debug("document %s: slow but still running, not marked", doc.ID)
			continue
		}
		doc.ErrorMessage = fmt.Sprintf("ingestion stalled in %s with no progress for %s", doc.Status, olderThan)
		doc.Status = domain.StatusFailed
		doc.UpdatedAt = s.now()
		if err := s.docStore.SaveDocument(ctx, doc); err != nil {
			return report, fmt.Errorf("mark %s failed: %w", doc.ID, err)
		}
		s.log.Warn("document %s marked failed: %s", doc.ID, doc.ErrorMessage)
		report.DocumentIDs = append(report.DocumentIDs, doc.ID)
	}
	return report, nil
}

// verifyTargets resolves the documents to verify. Unknown ids are returned
// with an empty status.
func (s *RepairService) verifyTargets(ctx context.Context, ids []string) ([]domain.Document, error) {
	if len(ids) == 0 {
		docs, err := s.docStore.ListDocuments(ctx, driven.DocumentFilter{
			Statuses: []domain.ProcessingStatus{domain.StatusCompleted},
		})
		if err != nil {
			return nil, fmt.Errorf("list documents: %w", err)
		}
		return docs, nil
	}

	docs := make([]domain.Document, 0, len(ids))
	for _, id := range ids {
		doc, err := s.docStore.GetDocument(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			docs = append(docs, domain.Document{ID: id})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get document %s: %w", id, err)
		}
		docs = append(docs, *doc)
	}
	return docs, nil
}

func (s *RepairService) verifyDocument(ctx context.Context, doc *domain.Document, sampleSize int) (domain.ContentMatch, error) {
	match := domain.ContentMatch{DocumentID: doc.ID, Title: doc.Title}
	if doc.Content == nil {
		match.Skipped = "no extracted content"
		return match, nil
	}

	var records []driven.VectorRecord
	err := s.eachPage(ctx, driven.Eq(domain.MetaDocumentID, doc.ID), func(page []driven.VectorRecord) error {
		records = append(records, page...)
		return nil
	})
	if err != nil {
		return match, err
	}
	if len(records) == 0 {
		match.Skipped = "no indexed chunks"
		return match, nil
	}

	content := *doc.Content
	for _, r := range sample(records, sampleSize) {
		match.Checked++
		c, err := domain.ChunkFromMetadata(r.Metadata)
		if err == nil && c.StartChar >= 0 && c.StartChar <= c.EndChar && c.EndChar <= len(content) &&
			content[c.StartChar:c.EndChar] == c.Text {
			match.Matched++
			continue
		}
		match.MismatchedIDs = append(match.MismatchedIDs, r.ID)
	}
	if len(match.MismatchedIDs) > 0 {
		s.log.Warn("document %s: %d of %d sampled chunks do not match content",
			doc.ID, len(match.MismatchedIDs), match.Checked)
	}
	return match, nil
}

// eachPage lists the namespace page by page.
func (s *RepairService) eachPage(ctx context.Context, filter driven.VectorFilter, fn func([]driven.VectorRecord) error) error {
	opts := driven.ListOptions{Filter: filter, Limit: s.cfg.PageSize}
	for {
		page, err := s.vectors.List(ctx, s.cfg.Namespace, opts)
		if err != nil {
			return fmt.Errorf("list vectors: %w", err)
		}
		if len(page.Records) > 0 {
			if err := fn(page.Records); err != nil {
				return err
			}
		}
		if page.NextCursor == "" {
			return nil
		}
		opts.Cursor = page.NextCursor
	}
}

// ownerOf returns the document a record belongs to, from metadata or its id.
func ownerOf(r driven.VectorRecord) string {
	if id := domain.MetaString(r.Metadata, domain.MetaDocumentID); id != "" {
		return id
	}
	id, _, _ := domain.ParseChunkID(r.ID)
	return id
}

// sample picks up to n records spread evenly across records.
func sample(records []driven.VectorRecord, n int) []driven.VectorRecord {
	if n <= 0 || n >= len(records) {
		return records
	}
	out := make([]driven.VectorRecord, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, records[i*len(records)/n])
	}
	return out
}

package services

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/regdocs/internal/core/domain"
	"github.com/custodia-labs/regdocs/internal/core/ports/driven"
	"github.com/custodia-labs/regdocs/internal/core/ports/driving"
	"github.com/custodia-labs/regdocs/internal/logger"
)

// Ensure IngestionService implements the interface.
var _ driving.IngestionService = (*IngestionService)(nil)

// IngestionConfig tunes the ingestion pipeline.
type IngestionConfig struct {
	// Namespace is the vector index namespace chunks are written to.
	Namespace string

	// Concurrency is the number of chunks embedded in parallel per batch.
	Concurrency int

	// ProgressEvery persists progress after this many attempted chunks.
	ProgressEvery int

	// Retry is the per-chunk retry policy for embedding and upsert.
	Retry RetryPolicy

	// HistoryCapacity caps per-user upload history.
	HistoryCapacity int
}

// IngestionConfigFromSettings derives pipeline configuration from settings.
func IngestionConfigFromSettings(s *domain.AppSettings) IngestionConfig {
	retry := DefaultRetryPolicy()
	if s.Ingestion.MaxAttempts > 0 {
		retry.MaxAttempts = s.Ingestion.MaxAttempts
	}
	if s.Ingestion.RetryBaseDelay > 0 {
		retry.BaseDelay = s.Ingestion.RetryBaseDelay
	}
	return IngestionConfig{
		Namespace:       s.Vector.Namespace,
		Concurrency:     s.Ingestion.Concurrency,
		ProgressEvery:   s.Ingestion.ProgressEvery,
		Retry:           retry,
		HistoryCapacity: s.History.Capacity,
	}
}

func (c IngestionConfig) withDefaults() IngestionConfig {
	if c.Namespace == "" {
		c.Namespace = "documents"
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.ProgressEvery <= 0 {
		c.ProgressEvery = 10
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry = DefaultRetryPolicy()
	}
	if c.HistoryCapacity <= 0 {
		c.HistoryCapacity = domain.DefaultHistoryCapacity
	}
	return c
}

// IngestionService drives documents from upload to searchable chunks.
//
// Each document moves UPLOADED -> EXTRACTING -> CHUNKING -> EMBEDDING ->
// COMPLETED, or to FAILED from any non-terminal state. Chunks that fail to
// embed after retries are skipped; a document with at least one stored chunk
// completes, a document with none fails.
type IngestionService struct {
	docStore  driven.DocumentStore
	extractor driven.Extractor
	chunker   driven.Chunker
	embedder  driven.EmbeddingService
	vectors   driven.VectorIndex
	history   driven.HistoryStore
	cfg       IngestionConfig
	log       logger.Logger

	now func() time.Time
	wg  sync.WaitGroup

	mu      sync.Mutex
	running map[string]struct{}
}

// NewIngestionService creates an ingestion service.
// The embedder may be nil, in which case documents with text fail at EMBEDDING.
// The history store may be nil, which disables upload history.
func NewIngestionService(
	docStore driven.DocumentStore,
	extractor driven.Extractor,
	chunker driven.Chunker,
	embedder driven.EmbeddingService,
	vectors driven.VectorIndex,
	history driven.HistoryStore,
	cfg IngestionConfig,
) *IngestionService {
	return &IngestionService{
		docStore:  docStore,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		vectors:   vectors,
		history:   history,
		cfg:       cfg.withDefaults(),
		log:       logger.Component("ingestion"),
		now:       time.Now,
		running:   make(map[string]struct{}),
	}
}

// Upload records a new document in UPLOADED state and stores its raw source.
func (s *IngestionService) Upload(ctx context.Context, req driving.UploadRequest) (*domain.Document, error) {
	hasContent, hasURL := len(req.Content) > 0, req.URL != ""
	if hasContent == hasURL {
		return nil, fmt.Errorf("%w: exactly one of file content or URL is required", domain.ErrInvalidInput)
	}

	now := s.now()
	doc := &domain.Document{
		ID:            uuid.New().String(),
		Title:         strings.TrimSpace(req.Title),
		Filename:      req.Filename,
		MIMEType:      req.MIMEType,
		Jurisdiction:  strings.ToUpper(strings.TrimSpace(req.Jurisdiction)),
		DocumentTypes: normaliseTypes(req.DocumentTypes),
		Status:        domain.StatusUploaded,
		Progress:      domain.ProgressUploaded,
		UploadedBy:    req.UserID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if hasURL {
		doc.SourceKind = domain.SourceKindURL
		doc.SourceURL = req.URL
	} else {
		doc.SourceKind = domain.SourceKindUpload
		if doc.MIMEType == "" {
			doc.MIMEType = detectMIMEType(req.Filename, req.Content)
		}
	}
	if doc.Title == "" {
		doc.Title = defaultTitle(req)
	}

	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	if hasContent {
		if err := s.docStore.SaveSource(ctx, doc.ID, req.Content); err != nil {
			return nil, fmt.Errorf("save source: %w", err)
		}
	}

	s.log.Info("uploaded document %s (%s)", doc.ID, doc.Title)
	s.recordUpload(ctx, req.UserID, doc)
	return doc, nil
}

// Submit starts ingestion of a document as an independent background task.
func (s *IngestionService) Submit(ctx context.Context, documentID string) {
	taskCtx := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.Ingest(taskCtx, documentID); err != nil {
			s.log.Warn("document %s: %v", documentID, err)
		}
	}()
}

// Wait blocks until all submitted ingestions finish.
func (s *IngestionService) Wait() {
	s.wg.Wait()
}

// Ingest runs the pipeline for an UPLOADED document synchronously.
func (s *IngestionService) Ingest(ctx context.Context, documentID string) error {
	if !s.acquire(documentID) {
		return fmt.Errorf("%w: %s", domain.ErrIngestionInProgress, documentID)
	}
	defer s.release(documentID)

	doc, err := s.docStore.GetDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("get document: %w", err)
	}
	if doc.Status != domain.StatusUploaded {
		return fmt.Errorf("%w: document %s is %s", domain.ErrInvalidTransition, documentID, doc.Status)
	}

	logger.Section("Ingest " + documentID)

	// 1. Extract canonical text
	if err := s.advance(ctx, doc, domain.StatusExtracting, domain.ProgressExtracting); err != nil {
		return err
	}
	ex, err := s.extract(ctx, doc)
	if err != nil {
		return s.fail(ctx, doc, err)
	}
	s.log.Debug("document %s: %d bytes extracted by %s", doc.ID, len(ex.Text), ex.Extractor)
	if ex.Title != "" && doc.SourceKind == domain.SourceKindURL && doc.Title == doc.SourceURL {
		doc.Title = ex.Title
	}

	// 2. Persist text immediately so offsets always refer to stored content
	text := ex.Text
	doc.Content = &text
	if err := s.advance(ctx, doc, domain.StatusChunking, domain.ProgressChunking); err != nil {
		return s.fail(ctx, doc, err)
	}
	chunks, err := s.chunker.Chunk(ctx, doc.ID, ex)
	if err != nil {
		return s.fail(ctx, doc, fmt.Errorf("chunk: %w", err))
	}
	doc.TotalChunks = len(chunks)
	doc.ProcessedChunks = 0

	// 3. Embed and store chunks
	if err := s.advance(ctx, doc, domain.StatusEmbedding, domain.ProgressEmbeddingStart); err != nil {
		return s.fail(ctx, doc, err)
	}
	if len(chunks) == 0 {
		return s.complete(ctx, doc)
	}
	if s.embedder == nil {
		return s.fail(ctx, doc, domain.ErrEmbeddingUnavailable)
	}

	processed, err := s.embedChunks(ctx, doc, chunks)
	if err != nil {
		return s.fail(ctx, doc, err)
	}
	if processed == 0 {
		return s.fail(ctx, doc, domain.ErrNoChunksEmbedded)
	}
	if processed < len(chunks) {
		s.log.Warn("document %s: %d of %d chunks stored", doc.ID, processed, len(chunks))
	}
	return s.complete(ctx, doc)
}

// Reprocess purges a terminal document's chunks, resets it and resubmits it.
func (s *IngestionService) Reprocess(ctx context.Context, documentID string) error {
	if s.IsRunning(documentID) {
		return fmt.Errorf("%w: %s", domain.ErrIngestionInProgress, documentID)
	}
	doc, err := s.docStore.GetDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("get document: %w", err)
	}
	if !doc.Status.IsTerminal() {
		return fmt.Errorf("%w: document %s is %s", domain.ErrIngestionInProgress, documentID, doc.Status)
	}

	// Old chunks must be gone before any new chunk is written.
	if err := s.purgeChunks(ctx, documentID); err != nil {
		return fmt.Errorf("purge chunks: %w", err)
	}

	doc.Status = domain.StatusUploaded
	doc.Progress = domain.ProgressUploaded
	doc.TotalChunks = 0
	doc.ProcessedChunks = 0
	doc.ErrorMessage = ""
	doc.Content = nil
	doc.UpdatedAt = s.now()
	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("reset document: %w", err)
	}

	s.log.Info("reprocessing document %s", documentID)
	s.Submit(ctx, documentID)
	return nil
}

// Delete removes a document and its chunks. A vector index failure is logged
// and left for orphan repair; the document itself is still removed.
func (s *IngestionService) Delete(ctx context.Context, documentID string) error {
	if s.IsRunning(documentID) {
		return fmt.Errorf("%w: %s", domain.ErrIngestionInProgress, documentID)
	}
	if _, err := s.docStore.GetDocument(ctx, documentID); err != nil {
		return fmt.Errorf("get document: %w", err)
	}
	if err := s.purgeChunks(ctx, documentID); err != nil {
		s.log.Warn("document %s: chunks left for orphan repair: %v", documentID, err)
	}
	if err := s.docStore.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	s.log.Info("deleted document %s", documentID)
	return nil
}

// Status returns the pollable ingestion status.
func (s *IngestionService) Status(ctx context.Context, documentID string) (*domain.IngestionStatus, error) {
	doc, err := s.docStore.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	st := domain.StatusOf(doc)
	return &st, nil
}

// Get returns a document.
func (s *IngestionService) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	return s.docStore.GetDocument(ctx, documentID)
}

// List returns all documents, newest first.
func (s *IngestionService) List(ctx context.Context) ([]domain.Document, error) {
	return s.docStore.ListDocuments(ctx, driven.DocumentFilter{})
}

func (s *IngestionService) extract(ctx context.Context, doc *domain.Document) (*domain.Extraction, error) {
	in := driven.ExtractInput{
		Filename: doc.Filename,
		MIMEType: doc.MIMEType,
		URL:      doc.SourceURL,
	}
	if doc.SourceKind == domain.SourceKindUpload {
		content, err := s.docStore.GetSource(ctx, doc.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: load source: %w", domain.ErrExtractionFailed, err)
		}
		in.Content = content
	}

	ex, err := s.extractor.Extract(ctx, in)
	if err != nil {
		if errors.Is(err, domain.ErrExtractionFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrExtractionFailed, err)
	}
	if ex == nil || strings.TrimSpace(ex.Text) == "" {
		return nil, fmt.Errorf("%w: no text found", domain.ErrExtractionFailed)
	}
	return ex, nil
}

// embedChunks embeds and upserts chunks in small parallel batches.
// It returns the number of chunks stored. Progress is persisted from this
// goroutine only, so it never goes backwards.
func (s *IngestionService) embedChunks(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) (int, error) {
	total := len(chunks)
	processed, attempted, lastPersisted := 0, 0, 0

	for start := 0; start < total; start += s.cfg.Concurrency {
		if err := ctx.Err(); err != nil {
			return processed, err
		}

		batch := chunks[start:min(total, start+s.cfg.Concurrency)]
		results := make([]error, len(batch))
		var wg sync.WaitGroup
		for i := range batch {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i] = s.storeChunk(ctx, doc, batch[i])
			}()
		}
		wg.Wait()

		for i, err := range results {
			attempted++
			if err != nil {
				s.log.Error("document %s: chunk %d skipped: %v", doc.ID, batch[i].Index, err)
				continue
			}
			processed++
		}

		if attempted-lastPersisted >= s.cfg.ProgressEvery || attempted == total {
			doc.ProcessedChunks = processed
			s.setProgress(doc, domain.EmbeddingProgress(attempted, total))
			if err := s.save(ctx, doc); err != nil {
				if errors.Is(err, domain.ErrIngestionAborted) {
					return processed, err
				}
				s.log.Warn("document %s: progress not saved: %v", doc.ID, err)
			}
			lastPersisted = attempted
		}
	}
	return processed, nil
}

// storeChunk embeds one chunk and upserts it, retrying transient failures.
func (s *IngestionService) storeChunk(ctx context.Context, doc *domain.Document, c domain.Chunk) error {
	var vec []float32
	err := retry(ctx, s.cfg.Retry, func(ctx context.Context) error {
		var err error
		vec, err = s.embedder.Embed(ctx, c.Text)
		return err
	})
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}

	record := driven.VectorRecord{
		ID:       c.ID(),
		Values:   vec,
		Metadata: domain.ChunkMetadata(doc, c),
	}
	err = retry(ctx, s.cfg.Retry, func(ctx context.Context) error {
		return s.vectors.Upsert(ctx, s.cfg.Namespace, []driven.VectorRecord{record})
	})
	if err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}

func (s *IngestionService) purgeChunks(ctx context.Context, documentID string) error {
	return s.vectors.DeleteByFilter(ctx, s.cfg.Namespace, driven.Eq(domain.MetaDocumentID, documentID))
}

// advance moves doc to next and persists it.
func (s *IngestionService) advance(ctx context.Context, doc *domain.Document, next domain.ProcessingStatus, progress int) error {
	if !doc.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, doc.Status, next)
	}
	doc.Status = next
	s.setProgress(doc, progress)
	return s.save(ctx, doc)
}

func (s *IngestionService) complete(ctx context.Context, doc *domain.Document) error {
	if err := s.advance(ctx, doc, domain.StatusCompleted, domain.ProgressCompleted); err != nil {
		return s.fail(ctx, doc, err)
	}
	s.log.Info("document %s completed: %d/%d chunks", doc.ID, doc.ProcessedChunks, doc.TotalChunks)
	return nil
}

// fail marks doc FAILED and returns cause wrapped with the document id.
// The state is persisted even when ctx has been cancelled.
// The stored message is the user-facing one; cause is only logged.
func (s *IngestionService) fail(ctx context.Context, doc *domain.Document, cause error) error {
	if errors.Is(cause, domain.ErrIngestionAborted) {
		s.log.Warn("document %s: run abandoned: %v", doc.ID, cause)
		return fmt.Errorf("ingest %s: %w", doc.ID, cause)
	}
	if doc.Status.CanTransitionTo(domain.StatusFailed) {
		doc.Status = domain.StatusFailed
		doc.ErrorMessage = failureMessage(cause)
		if err := s.save(context.WithoutCancel(ctx), doc); err != nil {
			s.log.Error("document %s: failed state not saved: %v", doc.ID, err)
		}
	}
	s.log.Error("document %s failed: %v", doc.ID, cause)
	return fmt.Errorf("ingest %s: %w", doc.ID, cause)
}

// failureMessage maps a pipeline failure to the message stored on the
// document. Extractor output, transport errors and provider bodies stay in
// the log.
func failureMessage(cause error) string {
	switch {
	case errors.Is(cause, domain.ErrExtractionFailed):
		return "Text could not be extracted from this document."
	case errors.Is(cause, domain.ErrNoChunksEmbedded):
		return "None of the document's chunks could be indexed."
	case errors.Is(cause, domain.ErrEmbeddingUnavailable),
		errors.Is(cause, domain.ErrRateLimited),
		errors.Is(cause, domain.ErrVectorIndexUnavailable):
		return domain.UserMessage(cause)
	case errors.Is(cause, context.Canceled), errors.Is(cause, context.DeadlineExceeded):
		return "Processing was interrupted. Reprocess the document to try again."
	default:
		return "Processing failed. Reprocess the document to try again."
	}
}

// setProgress raises progress but never lowers it.
func (s *IngestionService) setProgress(doc *domain.Document, p int) {
	if p > doc.Progress {
		doc.Progress = p
	}
}

// save persists doc unless the stored copy was already moved to a terminal
// state by another writer, such as the stale sweep.
func (s *IngestionService) save(ctx context.Context, doc *domain.Document) error {
	stored, err := s.docStore.GetDocument(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("reload document: %w", err)
	}
	if stored.Status.IsTerminal() {
		return fmt.Errorf("%w: document %s is already %s", domain.ErrIngestionAborted, doc.ID, stored.Status)
	}
	doc.UpdatedAt = s.now()
	return s.docStore.SaveDocument(ctx, doc)
}

func (s *IngestionService) recordUpload(ctx context.Context, userID string, doc *domain.Document) {
	if s.history == nil || userID == "" {
		return
	}
	entry := domain.HistoryEntry{
		Kind:       domain.HistoryKindUpload,
		DocumentID: doc.ID,
		Title:      doc.Title,
		At:         doc.CreatedAt,
	}
	if err := s.history.Append(ctx, userID, entry, s.cfg.HistoryCapacity); err != nil {
		s.log.Warn("upload history not recorded: %v", err)
	}
}

func (s *IngestionService) acquire(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.running[id]; busy {
		return false
	}
	s.running[id] = struct{}{}
	return true
}

func (s *IngestionService) release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, id)
}

// IsRunning reports whether this process is ingesting the document.
func (s *IngestionService) IsRunning(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, busy := s.running[id]
	return busy
}

// detectMIMEType guesses the content type from the extension, then the bytes.
func detectMIMEType(filename string, content []byte) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); t != "" {
		return t
	}
	return http.DetectContentType(content)
}

func defaultTitle(req driving.UploadRequest) string {
	if req.Filename != "" {
		base := filepath.Base(req.Filename)
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	return req.URL
}

func normaliseTypes(types []string) []string {
	seen := make(map[string]bool, len(types))
	out := make([]string, 0, len(types))
	for _, t := range types {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

package services

import (
	"context"
	"strings"
	"sync"

	"github.com/custodia-labs/regdocs/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/regdocs/internal/core/domain"
	"github.com/custodia-labs/regdocs/internal/core/ports/driven"
)

// --- Test doubles shared by the service tests ---

// stubExtractor returns a fixed extraction, or err.
type stubExtractor struct {
	mu    sync.Mutex
	ex    *domain.Extraction
	err   error
	calls int
	last  driven.ExtractInput
}

func (s *stubExtractor) Name() string { return "stub" }

func (s *stubExtractor) Supports(driven.ExtractInput) bool { return true }

func (s *stubExtractor) Extract(_ context.Context, in driven.ExtractInput) (*domain.Extraction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.last = in
	if s.err != nil {
		return nil, s.err
	}
	ex := *s.ex
	ex.Extractor = "stub"
	return &ex, nil
}

func (s *stubExtractor) set(text string, pages ...domain.Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ex = &domain.Extraction{Text: text, Pages: pages}
}

// stubEmbedder returns a vector derived from the text. Texts containing a
// substring in failOn fail permanently; texts in flaky fail transiently once.
type stubEmbedder struct {
	mu     sync.Mutex
	vector func(text string) []float32
	failOn []string
	flaky  map[string]int
	calls  int
}

func newStubEmbedder() *stubEmbedder {
	return &stubEmbedder{flaky: make(map[string]int)}
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	for _, f := range s.failOn {
		if strings.Contains(text, f) {
			return nil, domain.NewProviderError("stub", "embed", 400, assertErr("rejected"))
		}
	}
	for marker, n := range s.flaky {
		if n > 0 && strings.Contains(text, marker) {
			s.flaky[marker] = n - 1
			return nil, domain.NewProviderError("stub", "embed", 429, assertErr("slow down"))
		}
	}
	if s.vector != nil {
		return s.vector(text), nil
	}
	return []float32{1, float32(len(text) % 7), 0.5}, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := s.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int              { return 3 }
func (s *stubEmbedder) ModelName() string            { return "stub-embed" }
func (s *stubEmbedder) Ping(_ context.Context) error { return nil }
func (s *stubEmbedder) Close() error                 { return nil }

func (s *stubEmbedder) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// stubLLM returns a canned answer and records prompts.
type stubLLM struct {
	mu      sync.Mutex
	answer  string
	errs    []error
	prompts []string
}

func (s *stubLLM) Generate(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return "", err
	}
	return s.answer, nil
}

func (s *stubLLM) ModelName() string            { return "stub-llm" }
func (s *stubLLM) Ping(_ context.Context) error { return nil }
func (s *stubLLM) Close() error                 { return nil }

func (s *stubLLM) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

// recordingDocStore records every saved snapshot so tests can replay the
// sequence a status poller would observe.
type recordingDocStore struct {
	*memory.DocumentStore
	mu        sync.Mutex
	snapshots map[string][]domain.Document
	saveErr   error
}

func newRecordingDocStore() *recordingDocStore {
	return &recordingDocStore{
		DocumentStore: memory.NewDocumentStore(),
		snapshots:     make(map[string][]domain.Document),
	}
}

func (r *recordingDocStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	r.mu.Lock()
	if r.saveErr != nil {
		r.mu.Unlock()
		return r.saveErr
	}
	r.snapshots[doc.ID] = append(r.snapshots[doc.ID], *doc)
	r.mu.Unlock()
	return r.DocumentStore.SaveDocument(ctx, doc)
}

func (r *recordingDocStore) history(id string) []domain.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Document(nil), r.snapshots[id]...)
}

// failingVectors wraps a vector index and fails selected operations.
type failingVectors struct {
	driven.VectorIndex
	mu               sync.Mutex
	deleteFilterErr  error
	queryErr         error
	upsertErrFor     map[string]error
	deleteFilterCall int
}

func (f *failingVectors) Upsert(ctx context.Context, ns string, records []driven.VectorRecord) error {
	f.mu.Lock()
	for _, r := range records {
		if err, ok := f.upsertErrFor[r.ID]; ok {
			f.mu.Unlock()
			return err
		}
	}
	f.mu.Unlock()
	return f.VectorIndex.Upsert(ctx, ns, records)
}

func (f *failingVectors) Query(
	ctx context.Context, ns string, vec []float32, topK int, filter driven.VectorFilter,
) ([]driven.VectorMatch, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.VectorIndex.Query(ctx, ns, vec, topK, filter)
}

func (f *failingVectors) DeleteByFilter(ctx context.Context, ns string, filter driven.VectorFilter) error {
	f.mu.Lock()
	f.deleteFilterCall++
	err := f.deleteFilterErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.VectorIndex.DeleteByFilter(ctx, ns, filter)
}

// stubPromptStore serves a single template.
type stubPromptStore struct {
	template string
	err      error
}

func (s *stubPromptStore) Load(string) (string, error) { return s.template, s.err }
func (s *stubPromptStore) Reload()                     {}

// stubReferenceSource returns data or err and counts calls.
type stubReferenceSource struct {
	name  string
	data  *domain.ReferenceData
	errs  []error
	calls int
}

func (s *stubReferenceSource) Name() string { return s.name }

func (s *stubReferenceSource) Fetch(_ context.Context) (*domain.ReferenceData, error) {
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		if len(s.errs) > 1 {
			s.errs = s.errs[1:]
		}
		if err != nil {
			return nil, err
		}
	}
	return s.data, nil
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

var (
	_ driven.Extractor        = (*stubExtractor)(nil)
	_ driven.EmbeddingService = (*stubEmbedder)(nil)
	_ driven.LLMService       = (*stubLLM)(nil)
	_ driven.DocumentStore    = (*recordingDocStore)(nil)
	_ driven.VectorIndex      = (*failingVectors)(nil)
	_ driven.PromptStore      = (*stubPromptStore)(nil)
	_ driven.ReferenceSource  = (*stubReferenceSource)(nil)
)

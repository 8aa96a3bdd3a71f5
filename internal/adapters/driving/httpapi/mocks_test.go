package httpapi

import (
	"context"
	"sync"

	"github.com/custodia-labs/regdocs/internal/core/domain"
	"github.com/custodia-labs/regdocs/internal/core/ports/driving"
)

type mockIngestion struct {
	mu        sync.Mutex
	docs      map[string]*domain.Document
	uploads   []driving.UploadRequest
	submitted []string
	err       error
}

var _ driving.IngestionService = (*mockIngestion)(nil)

func newMockIngestion() *mockIngestion {
	return &mockIngestion{docs: map[string]*domain.Document{}}
}

func (m *mockIngestion) Upload(_ context.Context, req driving.UploadRequest) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if len(req.Content) == 0 && req.URL == "" {
		return nil, domain.ErrInvalidInput
	}
	m.uploads = append(m.uploads, req)
	title := req.Title
	if title == "" {
		title = req.Filename
	}
	doc := &domain.Document{ID: "doc-new", Title: title, Filename: req.Filename, SourceURL: req.URL,
		Jurisdiction: req.Jurisdiction, DocumentTypes: req.DocumentTypes, Status: domain.StatusUploaded, UploadedBy: req.UserID}
	m.docs[doc.ID] = doc
	return doc, nil
}

func (m *mockIngestion) Submit(_ context.Context, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitted = append(m.submitted, id)
}

func (m *mockIngestion) Ingest(context.Context, string) error { return m.err }

func (m *mockIngestion) Reprocess(_ context.Context, id string) error {
	doc, err := m.Get(context.Background(), id)
	if err != nil {
		return err
	}
	if !doc.Status.IsTerminal() {
		return domain.ErrIngestionInProgress
	}
	doc.Status = domain.StatusUploaded
	doc.Progress = 0
	return nil
}

func (m *mockIngestion) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.docs, id)
	return nil
}

func (m *mockIngestion) Status(ctx context.Context, id string) (*domain.IngestionStatus, error) {
	doc, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	st := domain.StatusOf(doc)
	return &st, nil
}

func (m *mockIngestion) Get(_ context.Context, id string) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	doc, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

func (m *mockIngestion) List(context.Context) ([]domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.Document, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, *d)
	}
	return out, nil
}

func (m *mockIngestion) Wait() {}

type mockSearch struct {
	resp    *domain.SearchResponse
	err     error
	gotOpts domain.SearchOptions
}

func (m *mockSearch) Search(_ context.Context, _ string, opts domain.SearchOptions) (*domain.SearchResponse, error) {
	m.gotOpts = opts
	return m.resp, m.err
}

type mockHistory struct {
	entries map[string][]domain.HistoryEntry
}

func (m *mockHistory) Recent(_ context.Context, user string, kind domain.HistoryKind) ([]domain.HistoryEntry, error) {
	if user == "" {
		return nil, domain.ErrInvalidInput
	}
	var out []domain.HistoryEntry
	for _, e := range m.entries[user] {
		if kind == "" || e.Kind == kind {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockHistory) Record(_ context.Context, user string, e domain.HistoryEntry) error {
	m.entries[user] = append([]domain.HistoryEntry{e}, m.entries[user]...)
	return nil
}

func (m *mockHistory) Bookmark(ctx context.Context, user, docID string) error {
	if docID == "missing" {
		return domain.ErrNotFound
	}
	return m.Record(ctx, user, domain.HistoryEntry{Kind: domain.HistoryKindBookmark, DocumentID: docID})
}

type mockReference struct {
	data *domain.ReferenceData
	err  error
}

func (m *mockReference) Verticals(context.Context) ([]domain.Vertical, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.data.Verticals, nil
}

func (m *mockReference) DocumentTypes(context.Context) ([]domain.DocumentType, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.data.DocumentTypes, nil
}

func (m *mockReference) Data(context.Context) (*domain.ReferenceData, domain.ReferenceTier, error) {
	return m.data, domain.ReferenceTierStatic, m.err
}

package mcp

import (
	"context"

	"github.com/custodia-labs/regdocs/internal/core/domain"
	"github.com/custodia-labs/regdocs/internal/core/ports/driving"
)

// mockSearchService records the last call.
type mockSearchService struct {
	resp     *domain.SearchResponse
	err      error
	gotQuery string
	gotOpts  domain.SearchOptions
}

func (m *mockSearchService) Search(_ context.Context, query string, opts domain.SearchOptions) (*domain.SearchResponse, error) {
	m.gotQuery = query
	m.gotOpts = opts
	return m.resp, m.err
}

// mockIngestionService serves documents from a map.
type mockIngestionService struct {
	docs map[string]*domain.Document
	err  error
}

var _ driving.IngestionService = (*mockIngestionService)(nil)

func (m *mockIngestionService) Upload(context.Context, driving.UploadRequest) (*domain.Document, error) {
	return nil, m.err
}

func (m *mockIngestionService) Submit(context.Context, string) {}

func (m *mockIngestionService) Ingest(context.Context, string) error { return m.err }

func (m *mockIngestionService) Reprocess(context.Context, string) error { return m.err }

func (m *mockIngestionService) Delete(context.Context, string) error { return m.err }

func (m *mockIngestionService) Status(ctx context.Context, id string) (*domain.IngestionStatus, error) {
	doc, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	st := domain.StatusOf(doc)
	return &st, nil
}

func (m *mockIngestionService) Get(_ context.Context, id string) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	doc, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

func (m *mockIngestionService) List(context.Context) ([]domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.Document
	for _, d := range m.docs {
		out = append(out, *d)
	}
	return out, nil
}

func (m *mockIngestionService) Wait() {}

func strPtr(s string) *string { return &s }

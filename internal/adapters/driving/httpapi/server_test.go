package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/regdocs/internal/core/domain"
)

type fixture struct {
	server    *Server
	ingestion *mockIngestion
	search    *mockSearch
	history   *mockHistory
	reference *mockReference
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		ingestion: newMockIngestion(),
		search:    &mockSearch{},
		history:   &mockHistory{entries: map[string][]domain.HistoryEntry{}},
		reference: &mockReference{data: &domain.ReferenceData{
			Verticals:     []domain.Vertical{{ID: "cannabis", Name: "Cannabis", Jurisdictions: []string{"CO"}}},
			DocumentTypes: []domain.DocumentType{{ID: "licensing", Name: "Licensing"}},
		}},
	}
	s, err := NewServer(&Ports{Ingestion: f.ingestion, Search: f.search, History: f.history, Reference: f.reference}, opts...)
	require.NoError(t, err)
	f.server = s
	return f
}

func (f *fixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func multipartUpload(t *testing.T, filename string, content []byte, fields map[string][]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, vs := range fields {
		for _, v := range vs {
			require.NoError(t, w.WriteField(k, v))
		}
	}
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestNewServer_Validation(t *testing.T) {
	_, err := NewServer(&Ports{Search: &mockSearch{}})
	assert.ErrorIs(t, err, ErrMissingIngestionService)

	_, err = NewServer(&Ports{Ingestion: newMockIngestion()})
	assert.ErrorIs(t, err, ErrMissingSearchService)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpload_Multipart(t *testing.T) {
	f := newFixture(t)
	req := multipartUpload(t, "rules.txt", []byte("Licenses renew yearly."), map[string][]string{
		"title":          {"CO Rules"},
		"jurisdiction":   {"co"},
		"document_types": {"licensing, packaging", "testing"},
	})
	req.Header.Set(UserHeader, "alice")

	rec := f.do(t, req)

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	doc := decode[documentDTO](t, rec)
	assert.Equal(t, "doc-new", doc.ID)
	assert.Equal(t, "UPLOADED", doc.Status)

	require.Len(t, f.ingestion.uploads, 1)
	up := f.ingestion.uploads[0]
	assert.Equal(t, "rules.txt", up.Filename)
	assert.Equal(t, []byte("Licenses renew yearly."), up.Content)
	assert.Equal(t, []string{"licensing", "packaging", "testing"}, up.DocumentTypes)
	assert.Equal(t, "alice", up.UserID)
	assert.Equal(t, []string{"doc-new"}, f.ingestion.submitted)
}

func TestUpload_URL(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, jsonRequest(http.MethodPost, "/api/documents",
		`{"url":"https://example.gov/rules","jurisdiction":"MI","document_types":["licensing"]}`))

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Equal(t, "https://example.gov/rules", f.ingestion.uploads[0].URL)
	assert.Empty(t, f.ingestion.uploads[0].UserID)
}

func TestUpload_Rejections(t *testing.T) {
	tests := []struct {
		name string
		req  func(t *testing.T) *http.Request
		code int
	}{
		{"missing url", func(*testing.T) *http.Request {
			return jsonRequest(http.MethodPost, "/api/documents", `{"title":"x"}`)
		}, http.StatusBadRequest},
		{"bad json", func(*testing.T) *http.Request {
			return jsonRequest(http.MethodPost, "/api/documents", `{`)
		}, http.StatusBadRequest},
		{"too large", func(t *testing.T) *http.Request {
			return multipartUpload(t, "big.txt", bytes.Repeat([]byte("a"), 64), nil)
		}, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, WithMaxUploadBytes(32))
			rec := f.do(t, tt.req(t))
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[errorBody](t, rec).Error)
			assert.Empty(t, f.ingestion.submitted)
		})
	}
}

func TestDocuments_ListGetStatusDelete(t *testing.T) {
	f := newFixture(t)
	f.ingestion.docs["d1"] = &domain.Document{ID: "d1", Title: "One", Status: domain.StatusEmbedding,
		Progress: 60, TotalChunks: 10, ProcessedChunks: 5}

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]documentDTO](t, rec), 1)

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/api/documents/d1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "One", decode[documentDTO](t, rec).Title)

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/api/documents/d1/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[statusDTO](t, rec)
	assert.Equal(t, "EMBEDDING", st.Status)
	assert.Equal(t, 60, st.Progress)
	assert.Equal(t, 5, st.ProcessedChunks)

	rec = f.do(t, httptest.NewRequest(http.MethodPost, "/api/documents/d1/reprocess", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, httptest.NewRequest(http.MethodDelete, "/api/documents/d1", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/api/documents/d1/status", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, domain.UserMessage(domain.ErrNotFound), decode[errorBody](t, rec).Error)
}

func TestReprocess(t *testing.T) {
	f := newFixture(t)
	f.ingestion.docs["d1"] = &domain.Document{ID: "d1", Status: domain.StatusFailed, Progress: 20}

	rec := f.do(t, httptest.NewRequest(http.MethodPost, "/api/documents/d1/reprocess", nil))

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "UPLOADED", decode[statusDTO](t, rec).Status)
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	f.search.resp = &domain.SearchResponse{
		Query:  "renewal",
		Answer: "Yearly [Source 1].",
		Citations: []domain.Citation{{SourceNumber: 1, DocumentID: "d1", StartChar: 10, EndChar: 40,
			Highlight: domain.Span{Start: 12, End: 30}, HighlightText: "renews yearly"}},
		RelatedDocuments: []domain.RelatedDocument{{DocumentID: "d1", MatchCount: 2}},
	}
	req := jsonRequest(http.MethodPost, "/api/search",
		`{"query":"renewal","top_k":4,"min_similarity":0.5,"jurisdictions":["CO"]}`)
	req.Header.Set(UserHeader, "alice")

	rec := f.do(t, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[searchResponseDTO](t, rec)
	assert.Equal(t, "Yearly [Source 1].", resp.Answer)
	require.Len(t, resp.Citations, 1)
	assert.Equal(t, spanDTO{Start: 12, End: 30}, resp.Citations[0].Highlight)
	assert.Equal(t, 2, resp.RelatedDocuments[0].MatchCount)
	assert.Equal(t, []string{}, resp.DocumentTypes)
	assert.Equal(t, domain.SearchOptions{TopK: 4, MinSimilarity: 0.5, Jurisdictions: []string{"CO"}, UserID: "alice"}, f.search.gotOpts)
}

func TestSearch_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"invalid", domain.ErrInvalidInput, http.StatusBadRequest},
		{"rate limited", domain.NewProviderError("openai", "embed", 429, errors.New("slow down")), http.StatusTooManyRequests},
		{"provider down", domain.NewProviderError("openai", "chat", 503, errors.New("secret detail")), http.StatusBadGateway},
		{"generation", &domain.GenerationError{Err: errors.New("x")}, http.StatusBadGateway},
		{"not configured", domain.ErrLLMUnavailable, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.search.err = tt.err

			rec := f.do(t, jsonRequest(http.MethodPost, "/api/search", `{"query":"q"}`))

			assert.Equal(t, tt.code, rec.Code)
			body := decode[errorBody](t, rec)
			assert.Equal(t, domain.UserMessage(tt.err), body.Error)
			assert.NotContains(t, body.Error, "secret")
		})
	}
}

func TestHistoryAndBookmarks(t *testing.T) {
	f := newFixture(t)
	f.history.entries["alice"] = []domain.HistoryEntry{
		{Kind: domain.HistoryKindSearch, Query: "renewal"},
		{Kind: domain.HistoryKindUpload, DocumentID: "d1"},
	}

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/api/history/alice?kind=search", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decode[[]domain.HistoryEntry](t, rec)
	require.Len(t, entries, 1)
	assert.Equal(t, "renewal", entries[0].Query)

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/api/history/bob", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/api/history/alice?kind=nope", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, jsonRequest(http.MethodPost, "/api/history/alice/bookmarks", `{"document_id":"d9"}`))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, domain.HistoryKindBookmark, f.history.entries["alice"][0].Kind)

	rec = f.do(t, jsonRequest(http.MethodPost, "/api/history/alice/bookmarks", `{"document_id":"missing"}`))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, jsonRequest(http.MethodPost, "/api/history/alice/bookmarks", `{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReference(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/api/reference/verticals", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cannabis", decode[[]domain.Vertical](t, rec)[0].ID)

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/api/reference/document-types", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "licensing", decode[[]domain.DocumentType](t, rec)[0].ID)

	f.reference.err = domain.NewProviderError("reference", "fetch", 502, errors.New("x"))
	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/api/reference/verticals", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestOptionalRoutesAbsent(t *testing.T) {
	s, err := NewServer(&Ports{Ingestion: newMockIngestion(), Search: &mockSearch{}})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reference/verticals", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWithMount(t *testing.T) {
	mounted := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	f := newFixture(t, WithMount("/mcp", mounted))

	assert.Equal(t, http.StatusTeapot, f.do(t, httptest.NewRequest(http.MethodPost, "/mcp", nil)).Code)
	assert.Equal(t, http.StatusTeapot, f.do(t, httptest.NewRequest(http.MethodGet, "/mcp/session", nil)).Code)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitList([]string{"a, b", " c ", ""}))
	assert.Nil(t, splitList(nil))
}

package cli

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/regdocs/internal/core/domain"
	"github.com/custodia-labs/regdocs/internal/core/ports/driving"
)

var testTime = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// mockIngestionService keeps documents in memory. Submit and Reprocess
// move a document straight to finalStatus.
type mockIngestionService struct {
	mu           sync.Mutex
	docs         map[string]*domain.Document
	uploads      []driving.UploadRequest
	submitted    []string
	reprocessed  []string
	deleted      []string
	waits        int
	finalStatus  domain.ProcessingStatus
	finalMessage string
	err          error
}

func newMockIngestionService() *mockIngestionService {
	content := "Licenses renew every year."
	return &mockIngestionService{
		docs: map[string]*domain.Document{
			"doc-1": {
				ID:              "doc-1",
				Title:           "Retail Rules",
				Filename:        "rules.pdf",
				MIMEType:        "application/pdf",
				Jurisdiction:    "CO",
				DocumentTypes:   []string{"licensing"},
				Status:          domain.StatusCompleted,
				Progress:        100,
				TotalChunks:     4,
				ProcessedChunks: 4,
				Content:         &content,
				UploadedBy:      "alice",
				CreatedAt:       testTime,
				UpdatedAt:       testTime,
			},
		},
		finalStatus: domain.StatusCompleted,
	}
}

func (m *mockIngestionService) Upload(_ context.Context, req driving.UploadRequest) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.uploads = append(m.uploads, req)
	title := req.Title
	if title == "" {
		title = req.Filename
	}
	if title == "" {
		title = req.URL
	}
	doc := &domain.Document{
		ID:            "doc-new",
		Title:         title,
		Filename:      req.Filename,
		SourceURL:     req.URL,
		Jurisdiction:  req.Jurisdiction,
		DocumentTypes: req.DocumentTypes,
		Status:        domain.StatusUploaded,
		UploadedBy:    req.UserID,
	}
	m.docs[doc.ID] = doc
	return doc, nil
}

func (m *mockIngestionService) finish(id string) {
	doc, ok := m.docs[id]
	if !ok {
		return
	}
	doc.Status = m.finalStatus
	doc.Progress = 100
	doc.TotalChunks = 3
	doc.ProcessedChunks = 3
	doc.ErrorMessage = m.finalMessage
}

func (m *mockIngestionService) Submit(_ context.Context, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitted = append(m.submitted, id)
	m.finish(id)
}

func (m *mockIngestionService) Ingest(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finish(id)
	return m.err
}

func (m *mockIngestionService) Reprocess(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.docs[id]; !ok {
		return domain.ErrNotFound
	}
	m.reprocessed = append(m.reprocessed, id)
	m.finish(id)
	return nil
}

func (m *mockIngestionService) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.docs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.docs, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockIngestionService) Status(_ context.Context, id string) (*domain.IngestionStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	doc, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	st := domain.StatusOf(doc)
	return &st, nil
}

func (m *mockIngestionService) Get(_ context.Context, id string) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	doc, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (m *mockIngestionService) List(_ context.Context) ([]domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	docs := make([]domain.Document, 0, len(m.docs))
	for _, d := range m.docs {
		docs = append(docs, *d)
	}
	return docs, nil
}

func (m *mockIngestionService) Wait() {
	m.mu.Lock()
	m.waits++
	m.mu.Unlock()
}

type mockSearchService struct {
	resp      *domain.SearchResponse
	err       error
	gotQuery  string
	gotOpts   domain.SearchOptions
	callCount int
}

func (m *mockSearchService) Search(_ context.Context, query string, opts domain.SearchOptions) (*domain.SearchResponse, error) {
	m.callCount++
	m.gotQuery = query
	m.gotOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	return m.resp, nil
}

func sampleResponse() *domain.SearchResponse {
	return &domain.SearchResponse{
		Query:         "renewal fees",
		Jurisdictions: []string{"CO"},
		Answer:        "Licenses renew every year [Source 1].",
		Citations: []domain.Citation{{
			SourceNumber:  1,
			DocumentID:    "doc-1",
			DocumentTitle: "Retail Rules",
			ChunkIndex:    0,
			PageNumber:    3,
			SectionTitle:  "Renewals",
			Text:          "Licenses renew every year.",
			StartChar:     120,
			EndChar:       146,
			Highlight:     domain.Span{Start: 120, End: 146},
			HighlightText: "Licenses renew every year.",
			Score:         0.91,
		}},
		RelatedDocuments: []domain.RelatedDocument{
			{DocumentID: "doc-1", Title: "Retail Rules", Jurisdiction: "CO", Score: 0.91, MatchCount: 2},
		},
	}
}

type mockRepairService struct {
	orphans *domain.OrphanReport
	purge   *domain.PurgeReport
	verify  *domain.VerifyReport
	stale   *domain.StaleReport
	err     error

	gotBatchSize int
	gotIDs       []string
	gotSample    int
	gotOlderThan time.Duration
}

func (m *mockRepairService) FindOrphans(context.Context) (*domain.OrphanReport, error) {
	return m.orphans, m.err
}

func (m *mockRepairService) PurgeOrphans(_ context.Context, batchSize int) (*domain.PurgeReport, error) {
	m.gotBatchSize = batchSize
	return m.purge, m.err
}

func (m *mockRepairService) VerifyContent(_ context.Context, ids []string, sampleSize int) (*domain.VerifyReport, error) {
	m.gotIDs = ids
	m.gotSample = sampleSize
	return m.verify, m.err
}

func (m *mockRepairService) MarkStale(_ context.Context, olderThan time.Duration) (*domain.StaleReport, error) {
	m.gotOlderThan = olderThan
	if m.err != nil {
		return nil, m.err
	}
	if m.stale == nil {
		return &domain.StaleReport{OlderThan: olderThan}, nil
	}
	return m.stale, nil
}

type mockReferenceService struct {
	err error
}

func (m *mockReferenceService) Verticals(context.Context) ([]domain.Vertical, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []domain.Vertical{{ID: "cannabis", Name: "Cannabis", Jurisdictions: []string{"CA", "CO"}}}, nil
}

func (m *mockReferenceService) DocumentTypes(context.Context) ([]domain.DocumentType, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []domain.DocumentType{
		{ID: "licensing", Name: "Licensing", Description: "License applications and renewals"},
		{ID: "packaging", Name: "Packaging"},
	}, nil
}

func (m *mockReferenceService) Data(ctx context.Context) (*domain.ReferenceData, domain.ReferenceTier, error) {
	v, _ := m.Verticals(ctx)
	t, _ := m.DocumentTypes(ctx)
	return &domain.ReferenceData{Verticals: v, DocumentTypes: t}, domain.ReferenceTierStatic, m.err
}

type mockHistoryService struct {
	entries   map[string][]domain.HistoryEntry
	bookmarks []string
	err       error
}

func newMockHistoryService() *mockHistoryService {
	return &mockHistoryService{entries: make(map[string][]domain.HistoryEntry)}
}

func (m *mockHistoryService) Recent(_ context.Context, user string, kind domain.HistoryKind) ([]domain.HistoryEntry, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.HistoryEntry
	for _, e := range m.entries[user] {
		if kind == "" || e.Kind == kind {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockHistoryService) Record(_ context.Context, user string, entry domain.HistoryEntry) error {
	if m.err != nil {
		return m.err
	}
	if entry.At.IsZero() {
		entry.At = testTime
	}
	m.entries[user] = append([]domain.HistoryEntry{entry}, m.entries[user]...)
	return nil
}

func (m *mockHistoryService) Bookmark(ctx context.Context, user, documentID string) error {
	if m.err != nil {
		return m.err
	}
	m.bookmarks = append(m.bookmarks, documentID)
	return m.Record(ctx, user, domain.HistoryEntry{Kind: domain.HistoryKindBookmark, DocumentID: documentID})
}

type mockSettingsService struct {
	settings    domain.AppSettings
	validateErr error
	pingErr     error
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) SetEmbeddingProvider(p domain.AIProvider, model, apiKey string) error {
	m.settings.Embedding.Provider = p
	m.settings.Embedding.Model = model
	m.settings.Embedding.APIKey = apiKey
	return nil
}

func (m *mockSettingsService) SetLLMProvider(p domain.AIProvider, model, apiKey string) error {
	m.settings.LLM.Provider = p
	m.settings.LLM.Model = model
	m.settings.LLM.APIKey = apiKey
	return nil
}

func (m *mockSettingsService) Validate() error                 { return m.validateErr }
func (m *mockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }
func (m *mockSettingsService) ValidateEmbeddingConfig() error  { return m.pingErr }
func (m *mockSettingsService) ValidateLLMConfig() error        { return m.pingErr }

type mockReportWriter struct {
	verify  *domain.VerifyReport
	orphans *domain.OrphanReport
}

func (m *mockReportWriter) WriteVerify(w io.Writer, r *domain.VerifyReport) error {
	m.verify = r
	_, err := io.WriteString(w, "verify")
	return err
}

func (m *mockReportWriter) WriteOrphans(w io.Writer, r *domain.OrphanReport) error {
	m.orphans = r
	_, err := io.WriteString(w, "orphans")
	return err
}

type testServices struct {
	ingestion *mockIngestionService
	search    *mockSearchService
	repair    *mockRepairService
	reference *mockReferenceService
	history   *mockHistoryService
	settings  *mockSettingsService
	reports   *mockReportWriter
}

// setupTestServices installs mock services and returns them with a
// cleanup function that restores the previous wiring.
func setupTestServices() (*testServices, func()) {
	ts := &testServices{
		ingestion: newMockIngestionService(),
		search:    &mockSearchService{resp: sampleResponse()},
		repair:    &mockRepairService{},
		reference: &mockReferenceService{},
		history:   newMockHistoryService(),
		settings:  &mockSettingsService{settings: domain.DefaultAppSettings()},
		reports:   &mockReportWriter{},
	}

	prev := Services{
		Ingestion:       ingestionService,
		Search:          searchService,
		Repair:          repairService,
		Reference:       referenceService,
		History:         historyService,
		Settings:        settingsService,
		Scheduler:       scheduler,
		SchedulerConfig: schedulerConfig,
		ReportWriter:    reportWriter,
	}
	prevUser := userID
	prevInterval := pollInterval

	SetServices(Services{
		Ingestion:    ts.ingestion,
		Search:       ts.search,
		Repair:       ts.repair,
		Reference:    ts.reference,
		History:      ts.history,
		Settings:     ts.settings,
		ReportWriter: ts.reports,
	})
	userID = "alice"
	pollInterval = time.Millisecond

	return ts, func() {
		SetServices(prev)
		userID = prevUser
		pollInterval = prevInterval
	}
}

// clearServices removes every service for the not-configured paths.
func clearServices() func() {
	_, cleanup := setupTestServices()
	SetServices(Services{})
	return cleanup
}

// resetFlags puts every flag in the command tree back to its default so
// values do not leak between test executions.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	prevUser := userID
	resetFlags(rootCmd)
	userID = prevUser

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

// captureCmd returns a bare command whose output goes to the buffer.
func captureCmd() (*bytes.Buffer, *cobra.Command) {
	buf := new(bytes.Buffer)
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	return buf, cmd
}

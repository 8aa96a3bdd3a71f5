package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/regdocs/internal/core/domain"
	"github.com/custodia-labs/regdocs/internal/core/ports/driven"
	"github.com/custodia-labs/regdocs/internal/core/ports/driving"
	"github.com/custodia-labs/regdocs/internal/logger"
)

// Ensure SearchService implements the interfaces.
var (
	_ driving.SearchService   = (*SearchService)(nil)
	_ driven.PromptStoreAware = (*SearchService)(nil)
)

// SearchConfig tunes retrieval and answer generation.
type SearchConfig struct {
	Namespace         string
	TopK              int
	MinSimilarity     float64
	FallbackCitations int
	MaxTokens         int
	Temperature       float64
	Retry             RetryPolicy
	HistoryCapacity   int
}

// SearchConfigFromSettings derives search configuration from settings.
func SearchConfigFromSettings(s *domain.AppSettings) SearchConfig {
	retry := DefaultRetryPolicy()
	if s.Ingestion.MaxAttempts > 0 {
		retry.MaxAttempts = s.Ingestion.MaxAttempts
	}
	return SearchConfig{
		Namespace:         s.Vector.Namespace,
		TopK:              s.Retrieval.TopK,
		MinSimilarity:     s.Retrieval.MinSimilarity,
		FallbackCitations: s.Retrieval.FallbackCitations,
		MaxTokens:         s.Retrieval.MaxTokens,
		Temperature:       s.Retrieval.Temperature,
		Retry:             retry,
		HistoryCapacity:   s.History.Capacity,
	}
}

func (c SearchConfig) withDefaults() SearchConfig {
	if c.Namespace == "" {
		c.Namespace = "documents"
	}
	if c.TopK <= 0 {
		c.TopK = domain.DefaultTopK
	}
	if c.MinSimilarity <= 0 {
		c.MinSimilarity = domain.DefaultMinSimilarity
	}
	if c.FallbackCitations <= 0 {
		c.FallbackCitations = domain.DefaultFallbackCitations
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 1024
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry = DefaultRetryPolicy()
	}
	if c.HistoryCapacity <= 0 {
		c.HistoryCapacity = domain.DefaultHistoryCapacity
	}
	return c
}

// SearchService answers questions from the indexed documents with citations.
type SearchService struct {
	docStore    driven.DocumentStore
	vectors     driven.VectorIndex
	embedder    driven.EmbeddingService
	llm         driven.LLMService
	history     driven.HistoryStore
	promptStore driven.PromptStore
	cfg         SearchConfig
	log         logger.Logger
	now         func() time.Time
}

// NewSearchService creates a search service.
// The embedder and llm may be nil; searching then fails with the matching
// unavailable error. The history store may be nil.
func NewSearchService(
	docStore driven.DocumentStore,
	vectors driven.VectorIndex,
	embedder driven.EmbeddingService,
	llm driven.LLMService,
	history driven.HistoryStore,
	cfg SearchConfig,
) *SearchService {
	return &SearchService{
		docStore: docStore,
		vectors:  vectors,
		embedder: embedder,
		llm:      llm,
		history:  history,
		cfg:      cfg.withDefaults(),
		log:      logger.Component("search"),
		now:      time.Now,
	}
}

// SetPromptStore sets the prompt store for the answer prompt.
func (s *SearchService) SetPromptStore(store driven.PromptStore) {
	s.promptStore = store
}

// Search retrieves the chunks nearest to query, asks the LLM for an answer
// grounded in them and resolves the answer's source markers into citations.
//
// Filter directives in the query ("state:CO", "type:licensing") are merged
// into opts. When no chunk survives the similarity floor and the document
// existence check, a fixed answer is returned without calling the LLM.
func (s *SearchService) Search(ctx context.Context, query string, opts domain.SearchOptions) (*domain.SearchResponse, error) {
	logger.Section("Search")

	d := parseDirectives(query)
	if d.Query == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidInput)
	}
	resp := &domain.SearchResponse{
		Query:         d.Query,
		Jurisdictions: appendUnique(upperAll(opts.Jurisdictions), d.Jurisdictions...),
		DocumentTypes: appendUnique(normaliseTypes(opts.DocumentTypes), d.DocumentTypes...),
	}
	s.log.Debug("query %q jurisdictions=%v types=%v", resp.Query, resp.Jurisdictions, resp.DocumentTypes)

	chunks, err := s.retrieve(ctx, resp, opts)
	if err != nil {
		return nil, err
	}

	if len(chunks) == 0 {
		s.log.Info("no relevant chunks for %q", resp.Query)
		resp.Answer = domain.NoRelevantInformationAnswer
		resp.NoResults = true
		resp.Citations = []domain.Citation{}
		resp.RelatedDocuments = []domain.RelatedDocument{}
		s.record(ctx, opts.UserID, resp)
		return resp, nil
	}

	answer, err := s.generate(ctx, resp.Query, chunks)
	if err != nil {
		return nil, err
	}

	resp.Answer = answer
	resp.Citations = resolveCitations(answer, chunks, s.cfg.FallbackCitations)
	resp.RelatedDocuments = relatedDocuments(chunks)
	s.log.Info("answered %q with %d citations from %d documents",
		resp.Query, len(resp.Citations), len(resp.RelatedDocuments))
	s.record(ctx, opts.UserID, resp)
	return resp, nil
}

// retrieve embeds the query, queries the index and drops chunks that score
// below the floor or whose document no longer exists.
func (s *SearchService) retrieve(ctx context.Context, resp *domain.SearchResponse, opts domain.SearchOptions) ([]domain.RetrievedChunk, error) {
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	topK := s.cfg.TopK
	if opts.TopK > 0 {
		topK = opts.TopK
	}
	floor := s.cfg.MinSimilarity
	if opts.MinSimilarity > 0 {
		floor = opts.MinSimilarity
	}

	var vec []float32
	err := retry(ctx, s.cfg.Retry, func(ctx context.Context) error {
		var err error
		vec, err = s.embedder.Embed(ctx, resp.Query)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var filter driven.VectorFilter
	filter = filter.And(domain.MetaJurisdiction, resp.Jurisdictions...)
	filter = filter.And(domain.MetaDocumentTypes, resp.DocumentTypes...)

	matches, err := s.vectors.Query(ctx, s.cfg.Namespace, vec, topK, filter)
	if err != nil {
		return nil, fmt.Errorf("query vectors: %w", err)
	}

	chunks := make([]domain.RetrievedChunk, 0, len(matches))
	for _, m := range matches {
		if m.Score < floor {
			continue
		}
		c, err := domain.ChunkFromMetadata(m.Metadata)
		if err != nil {
			s.log.Warn("vector %s skipped: %v", m.ID, err)
			continue
		}
		chunks = append(chunks, domain.RetrievedChunk{
			Chunk:        c,
			Title:        domain.MetaString(m.Metadata, domain.MetaTitle),
			Jurisdiction: domain.MetaString(m.Metadata, domain.MetaJurisdiction),
			Score:        m.Score,
		})
	}
	if len(chunks) == 0 {
		return chunks, nil
	}
	return s.dropOrphans(ctx, chunks)
}

// dropOrphans removes chunks whose owning document has been deleted.
func (s *SearchService) dropOrphans(ctx context.Context, chunks []domain.RetrievedChunk) ([]domain.RetrievedChunk, error) {
	ids := make([]string, 0, len(chunks))
	for _, c := range chunks {
		ids = appendUnique(ids, c.DocumentID)
	}
	exists, err := s.docStore.ExistingIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("check documents: %w", err)
	}

	kept := chunks[:0]
	for _, c := range chunks {
		if !exists[c.DocumentID] {
			s.log.Warn("orphaned chunk %s dropped: document %s not found", c.ID(), c.DocumentID)
			continue
		}
		kept = append(kept, c)
	}
	return kept, nil
}

func (s *SearchService) generate(ctx context.Context, question string, chunks []domain.RetrievedChunk) (string, error) {
	if s.llm == nil {
		return "", domain.ErrLLMUnavailable
	}

	prompt := renderAnswerPrompt(s.answerTemplate(), question, chunks)
	gen := driven.GenerateOptions{MaxTokens: s.cfg.MaxTokens, Temperature: s.cfg.Temperature}

	var answer string
	err := retry(ctx, s.cfg.Retry, func(ctx context.Context) error {
		var err error
		answer, err = s.llm.Generate(ctx, prompt, gen)
		return err
	})
	if err != nil {
		s.log.Error("generation failed: %v", err)
		return "", &domain.GenerationError{Err: err}
	}
	return answer, nil
}

func (s *SearchService) answerTemplate() string {
	if s.promptStore == nil {
		return defaultAnswerPrompt
	}
	t, err := s.promptStore.Load(driven.PromptAnswer)
	if err != nil || t == "" {
		s.log.Warn("answer prompt unavailable, using default: %v", err)
		return defaultAnswerPrompt
	}
	return t
}

func (s *SearchService) record(ctx context.Context, userID string, resp *domain.SearchResponse) {
	if s.history == nil || userID == "" {
		return
	}
	entry := domain.HistoryEntry{
		Kind:          domain.HistoryKindSearch,
		Query:         resp.Query,
		Answer:        resp.Answer,
		CitationCount: len(resp.Citations),
		At:            s.now(),
	}
	if err := s.history.Append(ctx, userID, entry, s.cfg.HistoryCapacity); err != nil {
		s.log.Warn("search history not recorded: %v", err)
	}
}

// relatedDocuments collapses chunks into one entry per document, keeping the
// best score and counting matches, ordered by score.
func relatedDocuments(chunks []domain.RetrievedChunk) []domain.RelatedDocument {
	index := make(map[string]int)
	var docs []domain.RelatedDocument
	for _, c := range chunks {
		i, ok := index[c.DocumentID]
		if !ok {
			index[c.DocumentID] = len(docs)
			docs = append(docs, domain.RelatedDocument{
				DocumentID:   c.DocumentID,
				Title:        c.Title,
				Jurisdiction: c.Jurisdiction,
				Score:        c.Score,
				MatchCount:   1,
			})
			continue
		}
		docs[i].MatchCount++
		if c.Score > docs[i].Score {
			docs[i].Score = c.Score
		}
	}
	sort.SliceStable(docs, func(a, b int) bool {
		return docs[a].Score > docs[b].Score
	})
	return docs
}

func upperAll(values []string) []string {
	var out []string
	for _, v := range values {
		out = appendUnique(out, strings.ToUpper(strings.TrimSpace(v)))
	}
	return out
}

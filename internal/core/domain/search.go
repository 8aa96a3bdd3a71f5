package domain

// NoRelevantInformationAnswer is returned when no chunk survives retrieval.
// The answer generator is not invoked in that case.
const NoRelevantInformationAnswer = "I couldn't find any relevant information in the uploaded documents to answer that question."

// Retrieval defaults.
const (
	DefaultTopK              = 8
	DefaultMinSimilarity     = 0.3
	DefaultFallbackCitations = 3
)

// SearchOptions configures a retrieval request.
type SearchOptions struct {
	// TopK is the number of nearest chunks requested from the vector index.
	TopK int

	// MinSimilarity drops chunks scoring below the floor.
	MinSimilarity float64

	// Jurisdictions restricts results to these jurisdictions (empty = all).
	Jurisdictions []string

	// DocumentTypes restricts results to documents of these types (empty = all).
	DocumentTypes []string

	// UserID, when set, records the search in the user's history.
	UserID string
}

// RetrievedChunk is a chunk returned by the vector index with its score.
type RetrievedChunk struct {
	Chunk
	Title        string
	Jurisdiction string
	Score        float64
}

// Span is a half-open byte range [Start, End).
type Span struct {
	Start int
	End   int
}

// Len returns the span length.
func (s Span) Len() int {
	return s.End - s.Start
}

// Citation ties a part of the answer to an exact span of a source document.
type Citation struct {
	// SourceNumber is the 1-based "[Source N]" number used in the prompt.
	SourceNumber int

	DocumentID    string
	DocumentTitle string
	ChunkIndex    int
	PageNumber    int
	SectionTitle  string

	// Text is the full chunk text.
	Text string

	// StartChar and EndChar locate the chunk in the document content.
	StartChar int
	EndChar   int

	// Highlight locates the most relevant span in the document content.
	Highlight Span

	// HighlightText is content[Highlight.Start:Highlight.End].
	HighlightText string

	Score float64
}

// RelatedDocument is a document that contributed retrieved chunks.
type RelatedDocument struct {
	DocumentID   string
	Title        string
	Jurisdiction string

	// Score is the best chunk score for the document.
	Score float64

	// MatchCount is the number of retrieved chunks from the document.
	MatchCount int
}

// SearchResponse is the result of a question over the document corpus.
type SearchResponse struct {
	// Query is the question with filter directives removed.
	Query string

	// Jurisdictions and DocumentTypes are the filters that were applied.
	Jurisdictions []string
	DocumentTypes []string

	Answer           string
	Citations        []Citation
	RelatedDocuments []RelatedDocument

	// NoResults is true when nothing relevant was found.
	NoResults bool
}

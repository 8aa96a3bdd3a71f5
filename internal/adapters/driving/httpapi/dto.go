package httpapi

import (
	"time"

	"github.com/custodia-labs/regdocs/internal/core/domain"
)

type documentDTO struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Filename        string    `json:"filename,omitempty"`
	SourceURL       string    `json:"source_url,omitempty"`
	MIMEType        string    `json:"mime_type,omitempty"`
	Jurisdiction    string    `json:"jurisdiction,omitempty"`
	DocumentTypes   []string  `json:"document_types,omitempty"`
	Status          string    `json:"status"`
	Progress        int       `json:"progress"`
	TotalChunks     int       `json:"total_chunks"`
	ProcessedChunks int       `json:"processed_chunks"`
	Error           string    `json:"error,omitempty"`
	UploadedBy      string    `json:"uploaded_by,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toDocumentDTO(d *domain.Document) documentDTO {
	return documentDTO{
		ID:              d.ID,
		Title:           d.Title,
		Filename:        d.Filename,
		SourceURL:       d.SourceURL,
		MIMEType:        d.MIMEType,
		Jurisdiction:    d.Jurisdiction,
		DocumentTypes:   d.DocumentTypes,
		Status:          d.Status.String(),
		Progress:        d.Progress,
		TotalChunks:     d.TotalChunks,
		ProcessedChunks: d.ProcessedChunks,
		Error:           d.ErrorMessage,
		UploadedBy:      d.UploadedBy,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

type statusDTO struct {
	DocumentID      string    `json:"document_id"`
	Status          string    `json:"status"`
	Progress        int       `json:"progress"`
	TotalChunks     int       `json:"total_chunks"`
	ProcessedChunks int       `json:"processed_chunks"`
	Error           string    `json:"error,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toStatusDTO(s *domain.IngestionStatus) statusDTO {
	return statusDTO{
		DocumentID:      s.DocumentID,
		Status:          s.Status.String(),
		Progress:        s.Progress,
		TotalChunks:     s.TotalChunks,
		ProcessedChunks: s.ProcessedChunks,
		Error:           s.ErrorMessage,
		UpdatedAt:       s.UpdatedAt,
	}
}

// urlUploadRequest is the JSON body for registering a web page.
type urlUploadRequest struct {
	URL           string   `json:"url"`
	Title         string   `json:"title"`
	Jurisdiction  string   `json:"jurisdiction"`
	DocumentTypes []string `json:"document_types"`
}

type searchRequest struct {
	Query         string   `json:"query"`
	TopK          int      `json:"top_k"`
	MinSimilarity float64  `json:"min_similarity"`
	Jurisdictions []string `json:"jurisdictions"`
	DocumentTypes []string `json:"document_types"`
}

type spanDTO struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type citationDTO struct {
	SourceNumber  int     `json:"source_number"`
	DocumentID    string  `json:"document_id"`
	DocumentTitle string  `json:"document_title"`
	ChunkIndex    int     `json:"chunk_index"`
	PageNumber    int     `json:"page_number"`
	SectionTitle  string  `json:"section_title,omitempty"`
	Text          string  `json:"text"`
	StartChar     int     `json:"start_char"`
	EndChar       int     `json:"end_char"`
	Highlight     spanDTO `json:"highlight"`
	HighlightText string  `json:"highlight_text"`
	Score         float64 `json:"score"`
}

type relatedDTO struct {
	DocumentID   string  `json:"document_id"`
	Title        string  `json:"title"`
	Jurisdiction string  `json:"jurisdiction,omitempty"`
	Score        float64 `json:"score"`
	MatchCount   int     `json:"match_count"`
}

type searchResponseDTO struct {
	Query            string        `json:"query"`
	Jurisdictions    []string      `json:"jurisdictions"`
	DocumentTypes    []string      `json:"document_types"`
	Answer           string        `json:"answer"`
	Citations        []citationDTO `json:"citations"`
	RelatedDocuments []relatedDTO  `json:"related_documents"`
	NoResults        bool          `json:"no_results"`
}

func toSearchResponseDTO(r *domain.SearchResponse) searchResponseDTO {
	out := searchResponseDTO{
		Query:            r.Query,
		Jurisdictions:    nonNil(r.Jurisdictions),
		DocumentTypes:    nonNil(r.DocumentTypes),
		Answer:           r.Answer,
		Citations:        make([]citationDTO, len(r.Citations)),
		RelatedDocuments: make([]relatedDTO, len(r.RelatedDocuments)),
		NoResults:        r.NoResults,
	}
	for i, c := range r.Citations {
		out.Citations[i] = citationDTO{
			SourceNumber:  c.SourceNumber,
			DocumentID:    c.DocumentID,
			DocumentTitle: c.DocumentTitle,
			ChunkIndex:    c.ChunkIndex,
			PageNumber:    c.PageNumber,
			SectionTitle:  c.SectionTitle,
			Text:          c.Text,
			StartChar:     c.StartChar,
			EndChar:       c.EndChar,
			Highlight:     spanDTO{Start: c.Highlight.Start, End: c.Highlight.End},
			HighlightText: c.HighlightText,
			Score:         c.Score,
		}
	}
	for i, d := range r.RelatedDocuments {
		out.RelatedDocuments[i] = relatedDTO{
			DocumentID:   d.DocumentID,
			Title:        d.Title,
			Jurisdiction: d.Jurisdiction,
			Score:        d.Score,
			MatchCount:   d.MatchCount,
		}
	}
	return out
}

type bookmarkRequest struct {
	DocumentID string `json:"document_id"`
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

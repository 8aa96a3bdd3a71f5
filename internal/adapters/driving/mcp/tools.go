package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/regdocs/internal/core/domain"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Question      string   `json:"question" jsonschema:"the compliance question; may contain directives such as state:CO or type:licensing"`
	Jurisdictions []string `json:"jurisdictions,omitempty" jsonschema:"restrict to these jurisdictions, e.g. CO"`
	DocumentTypes []string `json:"document_types,omitempty" jsonschema:"restrict to these document types, e.g. licensing"`
	TopK          int      `json:"top_k,omitempty" jsonschema:"number of passages to retrieve (default 8)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Answer    string           `json:"answer"`
	NoResults bool             `json:"no_results"`
	Citations []CitationOutput `json:"citations"`
	Related   []RelatedOutput  `json:"related_documents"`
}

// CitationOutput is one resolved citation.
type CitationOutput struct {
	Source     int     `json:"source"`
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	Page       int     `json:"page"`
	Section    string  `json:"section,omitempty"`
	StartChar  int     `json:"start_char"`
	EndChar    int     `json:"end_char"`
	Highlight  string  `json:"highlight"`
	Score      float64 `json:"score"`
	URI        string  `json:"uri"`
}

// RelatedOutput is a document that contributed passages.
type RelatedOutput struct {
	DocumentID   string  `json:"document_id"`
	Title        string  `json:"title"`
	Jurisdiction string  `json:"jurisdiction,omitempty"`
	Score        float64 `json:"score"`
	Matches      int     `json:"matches"`
}

// StatusInput is the input schema for the document_status tool.
type StatusInput struct {
	DocumentID string `json:"document_id" jsonschema:"the document identifier returned at upload"`
}

// StatusOutput is the output schema for the document_status tool.
type StatusOutput struct {
	DocumentID      string `json:"document_id"`
	Status          string `json:"status"`
	Progress        int    `json:"progress"`
	TotalChunks     int    `json:"total_chunks"`
	ProcessedChunks int    `json:"processed_chunks"`
	Error           string `json:"error,omitempty"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Answer a compliance question from uploaded regulatory documents, with citations to exact passages",
	}, s.handleSearch)

	if s.ports.Ingestion != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "document_status",
			Description: "Report the ingestion status and progress of an uploaded document",
		}, s.handleStatus)
	}
}

func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	resp, err := s.ports.Search.Search(ctx, input.Question, domain.SearchOptions{
		TopK:          input.TopK,
		Jurisdictions: input.Jurisdictions,
		DocumentTypes: input.DocumentTypes,
	})
	if err != nil {
		return nil, SearchOutput{}, errors.New(domain.UserMessage(err))
	}

	out := SearchOutput{
		Answer:    resp.Answer,
		NoResults: resp.NoResults,
		Citations: make([]CitationOutput, len(resp.Citations)),
		Related:   make([]RelatedOutput, len(resp.RelatedDocuments)),
	}
	for i, c := range resp.Citations {
		out.Citations[i] = CitationOutput{
			Source:     c.SourceNumber,
			DocumentID: c.DocumentID,
			Title:      c.DocumentTitle,
			Page:       c.PageNumber,
			Section:    c.SectionTitle,
			StartChar:  c.StartChar,
			EndChar:    c.EndChar,
			Highlight:  c.HighlightText,
			Score:      c.Score,
			URI:        documentURI(c.DocumentID),
		}
	}
	for i, d := range resp.RelatedDocuments {
		out.Related[i] = RelatedOutput{
			DocumentID:   d.DocumentID,
			Title:        d.Title,
			Jurisdiction: d.Jurisdiction,
			Score:        d.Score,
			Matches:      d.MatchCount,
		}
	}
	return nil, out, nil
}

func (s *Server) handleStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	st, err := s.ports.Ingestion.Status(ctx, input.DocumentID)
	if err != nil {
		return nil, StatusOutput{}, errors.New(domain.UserMessage(err))
	}
	return nil, StatusOutput{
		DocumentID:      st.DocumentID,
		Status:          st.Status.String(),
		Progress:        st.Progress,
		TotalChunks:     st.TotalChunks,
		ProcessedChunks: st.ProcessedChunks,
		Error:           st.ErrorMessage,
	}, nil
}

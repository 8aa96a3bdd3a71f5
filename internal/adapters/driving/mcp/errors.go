// Package mcp exposes regdocs to AI assistants over the Model Context Protocol.
// Tools answer compliance questions with citations and report ingestion
// status; resources list documents and serve their extracted text.
package mcp

import "errors"

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")

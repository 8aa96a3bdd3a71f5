package mcp

import (
	"github.com/custodia-labs/regdocs/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server calls.
type Ports struct {
	// Search answers questions. Required.
	Search driving.SearchService

	// Ingestion reports document status and content. Optional; without it
	// the document_status tool and document resources are not registered.
	Ingestion driving.IngestionService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	return nil
}

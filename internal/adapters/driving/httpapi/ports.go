package httpapi

import (
	"github.com/custodia-labs/regdocs/internal/core/ports/driving"
)

// Ports holds the services the API is built on.
type Ports struct {
	// Ingestion is required.
	Ingestion driving.IngestionService

	// Search is required.
	Search driving.SearchService

	// History is optional. Without it uploads are not recorded and the
	// history routes are not registered.
	History driving.HistoryService

	// Reference is optional. Without it the reference routes are not registered.
	Reference driving.ReferenceService
}

// Validate checks that required ports are set.
func (p *Ports) Validate() error {
	if p.Ingestion == nil {
		return ErrMissingIngestionService
	}
	if p.Search == nil {
		return ErrMissingSearchService
	}
	return nil
}

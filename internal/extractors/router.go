package extractors

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/regdocs/internal/core/domain"
	"github.com/custodia-labs/regdocs/internal/core/ports/driven"
	"github.com/custodia-labs/regdocs/internal/logger"
)

// Ensure Router implements the interface.
var _ driven.Extractor = (*Router)(nil)

// Router tries each supporting extractor in order and falls back to the next
// when one fails or returns no text.
type Router struct {
	extractors []driven.Extractor
	fallback   driven.Extractor
	log        logger.Logger
}

// NewRouter creates a router. Extractors are tried in order; fallback, when
// non-nil, is tried last regardless of Supports.
func NewRouter(fallback driven.Extractor, extractors ...driven.Extractor) *Router {
	return &Router{extractors: extractors, fallback: fallback, log: logger.Component("extract")}
}

// Name identifies the router in logs.
func (r *Router) Name() string {
	return "router"
}

// Supports reports whether any extractor can handle the input.
func (r *Router) Supports(in driven.ExtractInput) bool {
	if r.fallback != nil {
		return true
	}
	for _, e := range r.extractors {
		if e.Supports(in) {
			return true
		}
	}
	return false
}

// Extract returns the first non-empty extraction.
func (r *Router) Extract(ctx context.Context, in driven.ExtractInput) (*domain.Extraction, error) {
	candidates := make([]driven.Extractor, 0, len(r.extractors)+1)
	for _, e := range r.extractors {
		if e.Supports(in) {
			candidates = append(candidates, e)
		}
	}
	if r.fallback != nil {
		candidates = append(candidates, r.fallback)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no extractor for %q (%s)", domain.ErrExtractionFailed, in.Filename, in.MIMEType)
	}

	var errs []error
	for _, e := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ex, err := e.Extract(ctx, in)
		switch {
		case err != nil:
			r.log.Warn("extractor %s failed: %v", e.Name(), err)
			errs = append(errs, fmt.Errorf("%s: %w", e.Name(), err))
			continue
		case ex == nil || strings.TrimSpace(ex.Text) == "":
			r.log.Warn("extractor %s returned no text", e.Name())
			errs = append(errs, fmt.Errorf("%s: no text", e.Name()))
			continue
		}
		if ex.Extractor == "" {
			ex.Extractor = e.Name()
		}
		r.log.Debug("extracted %d bytes with %s", len(ex.Text), ex.Extractor)
		return ex, nil
	}
	return nil, fmt.Errorf("%w: %w", domain.ErrExtractionFailed, errors.Join(errs...))
}

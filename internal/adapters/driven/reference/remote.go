package reference

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/custodia-labs/regdocs/internal/adapters/driven/providerhttp"
	"github.com/custodia-labs/regdocs/internal/core/domain"
	"github.com/custodia-labs/regdocs/internal/core/ports/driven"
)

// DefaultTimeout bounds a remote fetch.
const DefaultTimeout = 5 * time.Second

// RemoteSource fetches the reference table as JSON from one URL.
// Retries are the caller's concern.
type RemoteSource struct {
	client *providerhttp.Client
}

var _ driven.ReferenceSource = (*RemoteSource)(nil)

// NewRemoteSource creates a source for url.
func NewRemoteSource(url string, timeout time.Duration) *RemoteSource {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &RemoteSource{client: providerhttp.New("reference", url, timeout)}
}

// Name identifies the source in logs.
func (s *RemoteSource) Name() string {
	return "remote"
}

// Fetch downloads and validates the table. An empty table is an error so
// the static tier takes over.
func (s *RemoteSource) Fetch(ctx context.Context) (*domain.ReferenceData, error) {
	var data domain.ReferenceData
	if err := s.client.Do(ctx, "fetch", http.MethodGet, "", nil, &data); err != nil {
		return nil, err
	}
	if len(data.Verticals) == 0 && len(data.DocumentTypes) == 0 {
		return nil, fmt.Errorf("%w: remote reference table is empty", domain.ErrInvalidInput)
	}
	if err := Validate(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

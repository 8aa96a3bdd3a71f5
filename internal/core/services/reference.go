package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/regdocs/internal/core/domain"
	"github.com/custodia-labs/regdocs/internal/core/ports/driven"
	"github.com/custodia-labs/regdocs/internal/core/ports/driving"
	"github.com/custodia-labs/regdocs/internal/logger"
)

// Ensure ReferenceService implements the interface.
var _ driving.ReferenceService = (*ReferenceService)(nil)

// referenceCacheTTL is how long a remote answer is reused.
const referenceCacheTTL = 5 * time.Minute

// ReferenceService serves reference data from an authoritative remote source,
// falling back to a static table when the remote is missing or unreachable.
type ReferenceService struct {
	remote driven.ReferenceSource
	static driven.ReferenceSource
	retry  RetryPolicy
	log    logger.Logger
	now    func() time.Time

	mu       sync.Mutex
	cached   *domain.ReferenceData
	cachedAt time.Time
}

// NewReferenceService creates a reference service. remote may be nil.
func NewReferenceService(remote, static driven.ReferenceSource, retry RetryPolicy) *ReferenceService {
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryPolicy()
	}
	return &ReferenceService{
		remote: remote,
		static: static,
		retry:  retry,
		log:    logger.Component("reference"),
		now:    time.Now,
	}
}

// Verticals returns the known industry verticals.
func (s *ReferenceService) Verticals(ctx context.Context) ([]domain.Vertical, error) {
	data, _, err := s.Data(ctx)
	if err != nil {
		return nil, err
	}
	return data.Verticals, nil
}

// DocumentTypes returns the known document classifications.
func (s *ReferenceService) DocumentTypes(ctx context.Context) ([]domain.DocumentType, error) {
	data, _, err := s.Data(ctx)
	if err != nil {
		return nil, err
	}
	return data.DocumentTypes, nil
}

// Data returns the reference table and the tier that served it.
// Remote answers are cached briefly; static answers are never cached so the
// remote is retried on the next call.
func (s *ReferenceService) Data(ctx context.Context) (*domain.ReferenceData, domain.ReferenceTier, error) {
	if s.remote != nil {
		if data := s.fromCache(); data != nil {
			return data, domain.ReferenceTierRemote, nil
		}

		var data *domain.ReferenceData
		err := retry(ctx, s.retry, func(ctx context.Context) error {
			var err error
			data, err = s.remote.Fetch(ctx)
			return err
		})
		if err == nil {
			s.store(data)
			return data, domain.ReferenceTierRemote, nil
		}
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		s.log.Warn("%s unavailable, using %s: %v", s.remote.Name(), s.staticName(), err)
	}

	if s.static == nil {
		return nil, "", domain.ErrReferenceUnavailable
	}
	data, err := s.static.Fetch(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", domain.ErrReferenceUnavailable, s.static.Name(), err)
	}
	return data, domain.ReferenceTierStatic, nil
}

func (s *ReferenceService) fromCache() *domain.ReferenceData {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached == nil || s.now().Sub(s.cachedAt) > referenceCacheTTL {
		return nil
	}
	return s.cached
}

func (s *ReferenceService) store(data *domain.ReferenceData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = data
	s.cachedAt = s.now()
}

func (s *ReferenceService) staticName() string {
	if s.static == nil {
		return "nothing"
	}
	return s.static.Name()
}

// Package qdrant implements driven.VectorIndex over the Qdrant REST API.
// Each namespace is one collection using cosine distance.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/regdocs/internal/adapters/driven/providerhttp"
	"github.com/custodia-labs/regdocs/internal/adapters/driven/vector"
	"github.com/custodia-labs/regdocs/internal/core/domain"
	"github.com/custodia-labs/regdocs/internal/core/ports/driven"
)

const (
	// DefaultURL is a local Qdrant server.
	DefaultURL = "http://localhost:6333"

	// DefaultTimeout bounds each request.
	DefaultTimeout = 15 * time.Second

	// DefaultPageSize is used by List when no limit is given.
	DefaultPageSize = 256

	// RecordIDKey is the payload field holding the original record id.
	RecordIDKey = "record_id"

	provider = "qdrant"
)

// pointNamespace seeds the UUIDv5 point ids derived from record ids.
var pointNamespace = uuid.MustParse("6f1c2b7e-4a0d-5c39-9e52-3b8d4f7a1c60")

// Config configures the Qdrant index.
type Config struct {
	URL    string
	APIKey string

	// CollectionPrefix is prepended to namespaces to form collection names.
	CollectionPrefix string

	Timeout time.Duration
}

// Index is a driven.VectorIndex backed by Qdrant collections.
type Index struct {
	client *providerhttp.Client
	prefix string

	mu      sync.Mutex
	ensured map[string]bool
}

var _ driven.VectorIndex = (*Index)(nil)

// New creates a Qdrant index. Collections are created on first upsert.
func New(cfg Config) *Index {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	client := providerhttp.New(provider, cfg.URL, cfg.Timeout)
	if cfg.APIKey != "" {
		client.Header.Set("api-key", cfg.APIKey)
	}
	return &Index{client: client, prefix: cfg.CollectionPrefix, ensured: make(map[string]bool)}
}

// PointID maps a record id onto the UUID Qdrant requires.
func PointID(recordID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(recordID)).String()
}

type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

type scoredPoint struct {
	ID      any            `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

type qFilter struct {
	Must []qCondition `json:"must"`
}

type qCondition struct {
	Key   string `json:"key"`
	Match qMatch `json:"match"`
}

type qMatch struct {
	Any []string `json:"any"`
}

func toFilter(f driven.VectorFilter) *qFilter {
	if f.IsEmpty() {
		return nil
	}
	out := &qFilter{}
	for _, c := range f.Conditions {
		out.Must = append(out.Must, qCondition{Key: c.Field, Match: qMatch{Any: c.Values}})
	}
	return out
}

func (ix *Index) collection(namespace string) string {
	return "/collections/" + url.PathEscape(ix.prefix+namespace)
}

// ensureCollection creates the namespace's collection if it is missing.
func (ix *Index) ensureCollection(ctx context.Context, namespace string, dimensions int) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.ensured[namespace] {
		return nil
	}
	err := ix.client.Do(ctx, "get collection", http.MethodGet, ix.collection(namespace), nil, nil)
	if isNotFound(err) {
		body := map[string]any{"vectors": map[string]any{"size": dimensions, "distance": "Cosine"}}
		err = ix.client.Do(ctx, "create collection", http.MethodPut, ix.collection(namespace), body, nil)
	}
	if err != nil {
		return err
	}
	ix.ensured[namespace] = true
	return nil
}

func (ix *Index) forget(namespace string) {
	ix.mu.Lock()
	delete(ix.ensured, namespace)
	ix.mu.Unlock()
}

func isNotFound(err error) bool {
	var pe *domain.ProviderError
	return errors.As(err, &pe) && pe.StatusCode == http.StatusNotFound
}

// Upsert inserts or replaces records.
func (ix *Index) Upsert(ctx context.Context, namespace string, records []driven.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	points := make([]point, 0, len(records))
	for _, r := range records {
		if r.ID == "" || len(r.Values) == 0 {
			return fmt.Errorf("%w: vector record needs an id and values", domain.ErrInvalidInput)
		}
		payload := vector.CloneMetadata(r.Metadata)
		if payload == nil {
			payload = map[string]any{}
		}
		payload[RecordIDKey] = r.ID
		points = append(points, point{ID: PointID(r.ID), Vector: r.Values, Payload: payload})
	}
	if err := ix.ensureCollection(ctx, namespace, len(records[0].Values)); err != nil {
		return err
	}
	return ix.client.Do(ctx, "upsert", http.MethodPut,
		ix.collection(namespace)+"/points?wait=true", map[string]any{"points": points}, nil)
}

// Query returns up to topK records most similar to vec that match filter.
// A missing collection has no matches.
func (ix *Index) Query(
	ctx context.Context, namespace string, vec []float32, topK int, filter driven.VectorFilter,
) ([]driven.VectorMatch, error) {
	if topK <= 0 {
		return []driven.VectorMatch{}, nil
	}
	req := map[string]any{"vector": vec, "limit": topK, "with_payload": true}
	if f := toFilter(filter); f != nil {
		req["filter"] = f
	}
	var resp struct {
		Result []scoredPoint `json:"result"`
	}
	err := ix.client.Do(ctx, "query", http.MethodPost, ix.collection(namespace)+"/points/search", req, &resp)
	if isNotFound(err) {
		return []driven.VectorMatch{}, nil
	}
	if err != nil {
		return nil, err
	}
	matches := make([]driven.VectorMatch, 0, len(resp.Result))
	for _, p := range resp.Result {
		id, md := splitPayload(p)
		matches = append(matches, driven.VectorMatch{ID: id, Score: p.Score, Metadata: md})
	}
	return vector.Rank(matches, topK), nil
}

// splitPayload separates the record id from the stored metadata.
func splitPayload(p scoredPoint) (string, map[string]any) {
	md := make(map[string]any, len(p.Payload))
	for k, v := range p.Payload {
		if k != RecordIDKey {
			md[k] = v
		}
	}
	id, _ := p.Payload[RecordIDKey].(string)
	if id == "" {
		id = fmt.Sprint(p.ID)
	}
	return id, md
}

// Delete removes records by ID. Missing IDs are ignored.
func (ix *Index) Delete(ctx context.Context, namespace string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	points := make([]string, len(ids))
	for i, id := range ids {
		points[i] = PointID(id)
	}
	return ix.deletePoints(ctx, namespace, map[string]any{"points": points})
}

// DeleteByFilter removes every record matching filter.
func (ix *Index) DeleteByFilter(ctx context.Context, namespace string, filter driven.VectorFilter) error {
	if filter.IsEmpty() {
		return fmt.Errorf("%w: delete by filter needs at least one condition", domain.ErrInvalidInput)
	}
	return ix.deletePoints(ctx, namespace, map[string]any{"filter": toFilter(filter)})
}

func (ix *Index) deletePoints(ctx context.Context, namespace string, body map[string]any) error {
	err := ix.client.Do(ctx, "delete", http.MethodPost, ix.collection(namespace)+"/points/delete?wait=true", body, nil)
	if isNotFound(err) {
		return nil
	}
	return err
}

// DeleteAll drops the namespace's collection.
func (ix *Index) DeleteAll(ctx context.Context, namespace string) error {
	ix.forget(namespace)
	err := ix.client.Do(ctx, "delete collection", http.MethodDelete, ix.collection(namespace), nil, nil)
	if isNotFound(err) {
		return nil
	}
	return err
}

// List scrolls through records in point id order. Values are omitted.
func (ix *Index) List(ctx context.Context, namespace string, opts driven.ListOptions) (driven.VectorPage, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	req := map[string]any{"limit": limit, "with_payload": true, "with_vector": false}
	if f := toFilter(opts.Filter); f != nil {
		req["filter"] = f
	}
	if opts.Cursor != "" {
		req["offset"] = opts.Cursor
	}
	var resp struct {
		Result struct {
			Points         []scoredPoint `json:"points"`
			NextPageOffset any           `json:"next_page_offset"`
		} `json:"result"`
	}
	err := ix.client.Do(ctx, "list", http.MethodPost, ix.collection(namespace)+"/points/scroll", req, &resp)
	if isNotFound(err) {
		return driven.VectorPage{}, nil
	}
	if err != nil {
		return driven.VectorPage{}, err
	}
	page := driven.VectorPage{Records: make([]driven.VectorRecord, 0, len(resp.Result.Points))}
	for _, p := range resp.Result.Points {
		id, md := splitPayload(p)
		page.Records = append(page.Records, driven.VectorRecord{ID: id, Metadata: md})
	}
	if next := resp.Result.NextPageOffset; next != nil {
		page.NextCursor = fmt.Sprint(next)
	}
	return page, nil
}

// Close is a no-op; requests hold no connections open between calls.
func (ix *Index) Close() error {
	return nil
}

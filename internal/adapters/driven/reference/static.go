// Package reference provides the reference data tiers: an embedded static
// table and a remote authoritative JSON endpoint.
package reference

import (
	"context"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/regdocs/internal/core/domain"
	"github.com/custodia-labs/regdocs/internal/core/ports/driven"
)

//go:embed reference.yaml
var embeddedTable []byte

// StaticSource serves a reference table parsed once from YAML.
type StaticSource struct {
	data *domain.ReferenceData
}

var _ driven.ReferenceSource = (*StaticSource)(nil)

// NewStaticSource parses the table built into the binary.
func NewStaticSource() (*StaticSource, error) {
	return ParseStatic(embeddedTable)
}

// ParseStatic parses a YAML reference table. Every vertical and document
// type needs an id, and ids must be unique within their list.
func ParseStatic(raw []byte) (*StaticSource, error) {
	var data domain.ReferenceData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse reference table: %w", err)
	}
	if err := Validate(&data); err != nil {
		return nil, err
	}
	return &StaticSource{data: &data}, nil
}

// Validate checks ids are present and unique.
func Validate(data *domain.ReferenceData) error {
	seen := make(map[string]bool)
	for _, v := range data.Verticals {
		if v.ID == "" || seen["v:"+v.ID] {
			return fmt.Errorf("%w: vertical id %q missing or duplicated", domain.ErrInvalidInput, v.ID)
		}
		seen["v:"+v.ID] = true
	}
	for _, t := range data.DocumentTypes {
		if t.ID == "" || seen["t:"+t.ID] {
			return fmt.Errorf("%w: document type id %q missing or duplicated", domain.ErrInvalidInput, t.ID)
		}
		seen["t:"+t.ID] = true
	}
	return nil
}

// Name identifies the source in logs.
func (s *StaticSource) Name() string {
	return "static"
}

// Fetch returns a copy of the table so callers cannot mutate it.
func (s *StaticSource) Fetch(_ context.Context) (*domain.ReferenceData, error) {
	out := &domain.ReferenceData{
		Verticals:     make([]domain.Vertical, len(s.data.Verticals)),
		DocumentTypes: append([]domain.DocumentType(nil), s.data.DocumentTypes...),
	}
	for i, v := range s.data.Verticals {
		v.Jurisdictions = append([]string(nil), v.Jurisdictions...)
		out.Verticals[i] = v
	}
	return out, nil
}

package domain

// Vertical is an industry vertical the portal serves (e.g. cannabis, alcohol).
type Vertical struct {
	ID            string   `json:"id" yaml:"id"`
	Name          string   `json:"name" yaml:"name"`
	Jurisdictions []string `json:"jurisdictions" yaml:"jurisdictions"`
}

// DocumentType is a classification users can attach to documents.
type DocumentType struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description"`
}

// ReferenceData is the full reference table.
type ReferenceData struct {
	Verticals     []Vertical     `json:"verticals" yaml:"verticals"`
	DocumentTypes []DocumentType `json:"documentTypes" yaml:"document_types"`
}

// ReferenceTier identifies which tier answered a reference lookup.
type ReferenceTier string

// Reference tiers, in lookup order.
const (
	ReferenceTierRemote ReferenceTier = "remote"
	ReferenceTierStatic ReferenceTier = "static"
)

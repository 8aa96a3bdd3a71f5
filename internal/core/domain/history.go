package domain

import "time"

// HistoryKind classifies a history entry.
type HistoryKind string

// Available history kinds.
const (
	HistoryKindSearch   HistoryKind = "search"
	HistoryKindUpload   HistoryKind = "upload"
	HistoryKindBookmark HistoryKind = "bookmark"
)

// DefaultHistoryCapacity caps each user's history list.
const DefaultHistoryCapacity = 50

// HistoryEntry is one item in a user's recent activity.
type HistoryEntry struct {
	Kind HistoryKind `json:"kind"`

	// Query is the search question for search entries.
	Query string `json:"query,omitempty"`

	// DocumentID and Title identify the document for upload and bookmark entries.
	DocumentID string `json:"documentId,omitempty"`
	Title      string `json:"title,omitempty"`

	// Answer and CitationCount snapshot a search result.
	Answer        string `json:"answer,omitempty"`
	CitationCount int    `json:"citationCount,omitempty"`

	At time.Time `json:"at"`
}

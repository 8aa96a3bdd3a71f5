package tui

import "errors"

// ErrMissingStatusSource is returned when no status source is provided.
var ErrMissingStatusSource = errors.New("tui: status source is required")

// ErrMissingDocumentID is returned when no document is given to follow.
var ErrMissingDocumentID = errors.New("tui: document id is required")

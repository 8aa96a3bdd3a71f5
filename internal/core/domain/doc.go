// Package domain holds the regdocs entities and the rules that need no
// infrastructure: document lifecycle transitions, chunk identity and
// offsets, search options and responses, history and settings.
//
// It imports only the standard library.
package domain

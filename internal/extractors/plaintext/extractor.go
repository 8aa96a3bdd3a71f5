// Package plaintext passes text through unchanged and, as a last resort,
// salvages printable runs from binary files.
package plaintext

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/regdocs/internal/core/domain"
	"github.com/custodia-labs/regdocs/internal/core/ports/driven"
	"github.com/custodia-labs/regdocs/internal/extractors"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// MinRun is the shortest printable run kept when salvaging binary input.
const MinRun = 4

// Extractor handles text files and acts as the router's fallback.
type Extractor struct{}

// New creates a new plaintext extractor.
func New() *Extractor {
	return &Extractor{}
}

// Name identifies the extractor in logs.
func (e *Extractor) Name() string {
	return "plaintext"
}

// Supports reports whether the input looks like text.
func (e *Extractor) Supports(in driven.ExtractInput) bool {
	if len(in.Content) == 0 {
		return false
	}
	return isText(in)
}

// Extract returns text input with normalised line endings, or the printable
// runs of anything else. Markdown headings become sections.
func (e *Extractor) Extract(_ context.Context, in driven.ExtractInput) (*domain.Extraction, error) {
	if len(in.Content) == 0 {
		return nil, fmt.Errorf("%w: empty input", domain.ErrExtractionFailed)
	}
	if isText(in) {
		text := strings.ReplaceAll(string(bytes.ToValidUTF8(in.Content, nil)), "\r\n", "\n")
		return &domain.Extraction{
			Text:      text,
			Sections:  markdownSections(text),
			Extractor: e.Name(),
		}, nil
	}

	text := salvage(in.Content)
	if text == "" {
		return nil, fmt.Errorf("%w: no printable text in %q", domain.ErrExtractionFailed, in.Filename)
	}
	return &domain.Extraction{Text: text, Extractor: e.Name() + "-salvage"}, nil
}

func isText(in driven.ExtractInput) bool {
	mimeType := strings.ToLower(in.MIMEType)
	if strings.HasPrefix(mimeType, "text/") || extractors.MIMEIs(mimeType, "application/json", "application/xml") {
		return true
	}
	if extractors.HasExt(in.Filename, ".txt", ".md", ".markdown", ".csv") {
		return true
	}
	if bytes.HasPrefix(in.Content, []byte("%PDF-")) {
		return false
	}
	return utf8.Valid(in.Content) && bytes.IndexByte(in.Content, 0) < 0
}

// salvage keeps runs of at least MinRun printable ASCII characters, one per line.
func salvage(content []byte) string {
	var runs []string
	start := -1
	flush := func(end int) {
		if start >= 0 && end-start >= MinRun {
			if run := strings.TrimSpace(string(content[start:end])); len(run) >= MinRun {
				runs = append(runs, run)
			}
		}
		start = -1
	}
	for i, c := range content {
		if c < utf8.RuneSelf && (unicode.IsPrint(rune(c)) || c == '\t') {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(content))
	return strings.Join(runs, "\n")
}

// markdownSections records ATX headings ("# Title") as sections.
func markdownSections(text string) []domain.Section {
	var sections []domain.Section
	offset := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		trimmed := strings.TrimRight(line, "\n")
		if level := len(trimmed) - len(strings.TrimLeft(trimmed, "#")); level >= 1 && level <= 6 &&
			len(trimmed) > level && trimmed[level] == ' ' {
			if title := strings.TrimSpace(trimmed[level:]); title != "" {
				sections = append(sections, domain.Section{Title: title, StartChar: offset})
			}
		}
		offset += len(line)
	}
	return sections
}

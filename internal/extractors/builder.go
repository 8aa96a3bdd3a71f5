package extractors

import (
	"strings"

	"github.com/custodia-labs/regdocs/internal/core/domain"
)

// Builder accumulates text blocks separated by blank lines while recording
// page and section offsets into the final string.
type Builder struct {
	sb        strings.Builder
	pages     []domain.Page
	sections  []domain.Section
	pageNum   int
	pageStart int
}

// Len returns the number of bytes written so far.
func (b *Builder) Len() int {
	return b.sb.Len()
}

// Block appends a paragraph. Empty blocks are skipped.
func (b *Builder) Block(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if b.sb.Len() > 0 {
		b.sb.WriteString("\n\n")
	}
	if b.pageStart < 0 {
		b.pageStart = b.sb.Len()
	}
	b.sb.WriteString(text)
}

// Heading appends a paragraph and records it as a section start.
func (b *Builder) Heading(title string) {
	title = strings.Join(strings.Fields(title), " ")
	if title == "" {
		return
	}
	b.Block(title)
	b.sections = append(b.sections, domain.Section{Title: title, StartChar: b.sb.Len() - len(title)})
}

// StartPage closes the current page, if any, and begins page number n.
// A page without blocks gets an empty span.
func (b *Builder) StartPage(n int) {
	b.closePage()
	b.pageNum = n
	b.pageStart = -1
}

func (b *Builder) closePage() {
	if b.pageNum == 0 {
		return
	}
	start := b.pageStart
	if start < 0 {
		start = b.sb.Len()
	}
	b.pages = append(b.pages, domain.Page{Number: b.pageNum, StartChar: start, EndChar: b.sb.Len()})
	b.pageNum = 0
}

// Extraction returns the accumulated text and structure.
func (b *Builder) Extraction(extractor string) *domain.Extraction {
	b.closePage()
	return &domain.Extraction{
		Text:      b.sb.String(),
		Pages:     b.pages,
		Sections:  b.sections,
		Extractor: extractor,
	}
}

// TitleFromName turns a file name into a readable title.
func TitleFromName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	return strings.TrimSpace(name)
}

// HasExt reports whether filename ends with one of exts (case-insensitive).
func HasExt(filename string, exts ...string) bool {
	lower := strings.ToLower(filename)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// MIMEIs reports whether mimeType, ignoring parameters, equals one of types.
func MIMEIs(mimeType string, types ...string) bool {
	base := strings.ToLower(strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0]))
	for _, t := range types {
		if base == t {
			return true
		}
	}
	return false
}

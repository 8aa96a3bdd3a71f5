// Package chunker splits extracted document text into chunks whose offsets
// index the source text exactly, with surrounding context kept separately.
package chunker

import (
	"context"
	"unicode/utf8"

	"github.com/custodia-labs/regdocs/internal/core/domain"
	"github.com/custodia-labs/regdocs/internal/core/ports/driven"
)

// DefaultChunkSize is the default target chunk length in bytes.
const DefaultChunkSize = 1000

// DefaultContextRadius is the default amount of context kept on each side.
const DefaultContextRadius = 200

// DefaultChunkOverlap is the default overlap between consecutive chunks.
const DefaultChunkOverlap = 0

// Name is the registry name of the boundary-preserving chunker.
const Name = "enhanced"

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// Processor splits text into chunks near a target size, preferring paragraph
// and then sentence boundaries inside a tolerance window around the target.
type Processor struct {
	chunkSize          int
	contextRadius      int
	overlap            int
	preserveSentences  bool
	preserveParagraphs bool
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the target chunk size in bytes.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithContextRadius sets how much surrounding text is captured on each side.
func WithContextRadius(radius int) Option {
	return func(p *Processor) {
		if radius >= 0 {
			p.contextRadius = radius
		}
	}
}

// WithOverlap sets how far each chunk starts before the previous one ended.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithPreserveSentences toggles snapping to sentence boundaries.
func WithPreserveSentences(v bool) Option {
	return func(p *Processor) {
		p.preserveSentences = v
	}
}

// WithPreserveParagraphs toggles snapping to paragraph boundaries.
func WithPreserveParagraphs(v bool) Option {
	return func(p *Processor) {
		p.preserveParagraphs = v
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize:          DefaultChunkSize,
		contextRadius:      DefaultContextRadius,
		overlap:            DefaultChunkOverlap,
		preserveSentences:  true,
		preserveParagraphs: true,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return Name
}

// Chunk splits ex.Text into chunks. Empty text produces no chunks.
// Offsets are recorded where the boundary search lands and are never adjusted
// afterwards, so ex.Text[c.StartChar:c.EndChar] == c.Text for every chunk.
func (p *Processor) Chunk(ctx context.Context, documentID string, ex *domain.Extraction) ([]domain.Chunk, error) {
	if ex == nil || ex.Text == "" {
		return nil, nil
	}

	text := ex.Text
	n := len(text)
	chunks := make([]domain.Chunk, 0, n/p.chunkSize+1)

	start := 0
	for index := 0; start < n; index++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := p.boundary(text, start)

		chunks = append(chunks, domain.Chunk{
			DocumentID:    documentID,
			Index:         index,
			Text:          text[start:end],
			StartChar:     start,
			EndChar:       end,
			ContextBefore: text[runeCeil(text, start-p.contextRadius):start],
			ContextAfter:  text[end:runeFloor(text, end+p.contextRadius)],
			PageNumber:    domain.PageAt(ex.Pages, start),
			SectionTitle:  domain.SectionAt(ex.Sections, start),
		})

		if end >= n {
			break
		}

		next := runeFloor(text, end-p.overlap)
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks, nil
}

// boundary returns the end offset of the chunk beginning at start.
func (p *Processor) boundary(text string, start int) int {
	n := len(text)
	target := start + p.chunkSize
	if target >= n {
		return n
	}

	tolerance := p.chunkSize / 5
	lo := max(start+1, target-tolerance)
	hi := min(n-1, target+tolerance)

	if p.preserveParagraphs {
		if b, ok := nearest(text, lo, hi, target, isParagraphBoundary); ok {
			return b
		}
	}
	if p.preserveSentences {
		if b, ok := nearest(text, lo, hi, target, isSentenceBoundary); ok {
			return b
		}
	}

	// Hard cutoff, kept on a rune boundary.
	end := runeFloor(text, target)
	if end <= start {
		end = runeCeil(text, target)
	}
	return end
}

// nearest finds the offset in [lo, hi] closest to target that satisfies isBoundary.
// Ties go to the earlier offset.
func nearest(text string, lo, hi, target int, isBoundary func(string, int) bool) (int, bool) {
	best, found := 0, false
	for b := lo; b <= hi; b++ {
		if !isBoundary(text, b) {
			continue
		}
		if !found || abs(b-target) < abs(best-target) {
			best, found = b, true
		}
		if b > target {
			break
		}
	}
	return best, found
}

// isParagraphBoundary reports whether b is the first offset after a blank line.
func isParagraphBoundary(text string, b int) bool {
	if b <= 1 || b >= len(text) || text[b-1] != '\n' || isNewline(text[b]) {
		return false
	}
	j := b - 2
	for j >= 0 && (text[j] == ' ' || text[j] == '\t' || text[j] == '\r') {
		j--
	}
	return j >= 0 && text[j] == '\n'
}

// isSentenceBoundary reports whether b is the first non-space offset after
// sentence-ending punctuation, optionally followed by closing quotes or brackets.
func isSentenceBoundary(text string, b int) bool {
	if b <= 1 || b >= len(text) || !isSpace(text[b-1]) || isSpace(text[b]) {
		return false
	}
	j := b - 1
	for j >= 0 && isSpace(text[j]) {
		j--
	}
	for j >= 0 && isCloser(text[j]) {
		j--
	}
	return j >= 0 && (text[j] == '.' || text[j] == '!' || text[j] == '?')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func isNewline(c byte) bool {
	return c == '\n' || c == '\r'
}

func isCloser(c byte) bool {
	return c == '"' || c == '\'' || c == ')' || c == ']'
}

// runeFloor clamps i into [0, len(text)] and moves it back to a rune start.
func runeFloor(text string, i int) int {
	if i <= 0 {
		return 0
	}
	if i >= len(text) {
		return len(text)
	}
	for i > 0 && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}

// runeCeil clamps i into [0, len(text)] and moves it forward to a rune start.
func runeCeil(text string, i int) int {
	if i <= 0 {
		return 0
	}
	for i < len(text) && !utf8.RuneStart(text[i]) {
		i++
	}
	if i > len(text) {
		return len(text)
	}
	return i
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

package services

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/custodia-labs/regdocs/internal/core/domain"
)

// markerPattern matches "[Source 1]", "[Source 1, 2]" and "[Sources 1 and 3]".
var markerPattern = regexp.MustCompile(`(?i)\[\s*sources?\s+(\d+(?:\s*(?:,|and|&)\s*\d+)*)\s*\]`)

var markerNumber = regexp.MustCompile(`\d+`)

// sourceUse is one source number cited by the answer with the text citing it.
type sourceUse struct {
	Number int
	Text   string
}

// parseMarkers returns the cited source numbers in order of first appearance,
// each with the answer sentences that cite it.
func parseMarkers(answer string) []sourceUse {
	var uses []sourceUse
	position := make(map[int]int)
	previous := ""
	for _, sp := range sentenceSpans(answer) {
		sentence := answer[sp.Start:sp.End]
		plain := strings.TrimSpace(markerPattern.ReplaceAllString(sentence, ""))
		matches := markerPattern.FindAllStringSubmatch(sentence, -1)
		if len(matches) == 0 {
			previous = plain
			continue
		}
		// A marker standing alone after a full stop cites the preceding sentence.
		if plain == "" || plain == "." {
			plain = previous
		}
		previous = plain
		for _, m := range matches {
			for _, digits := range markerNumber.FindAllString(m[1], -1) {
				n, err := strconv.Atoi(digits)
				if err != nil {
					continue
				}
				if i, ok := position[n]; ok {
					uses[i].Text += " " + plain
					continue
				}
				position[n] = len(uses)
				uses = append(uses, sourceUse{Number: n, Text: plain})
			}
		}
	}
	return uses
}

// resolveCitations maps "[Source N]" markers in answer to the numbered chunks.
// Numbers outside the source list are ignored. When the answer cites nothing
// usable, the top fallback chunks are cited against the whole answer.
func resolveCitations(answer string, sources []domain.RetrievedChunk, fallback int) []domain.Citation {
	var citations []domain.Citation
	for _, use := range parseMarkers(answer) {
		if use.Number < 1 || use.Number > len(sources) {
			continue
		}
		citations = append(citations, newCitation(use.Number, sources[use.Number-1], use.Text))
	}
	if len(citations) > 0 {
		return citations
	}

	n := min(fallback, len(sources))
	for i := 0; i < n; i++ {
		citations = append(citations, newCitation(i+1, sources[i], answer))
	}
	return citations
}

func newCitation(number int, rc domain.RetrievedChunk, answerText string) domain.Citation {
	rel := PickMostRelevantSpan(rc.Text, answerText)
	return domain.Citation{
		SourceNumber:  number,
		DocumentID:    rc.DocumentID,
		DocumentTitle: rc.Title,
		ChunkIndex:    rc.Index,
		PageNumber:    rc.PageNumber,
		SectionTitle:  rc.SectionTitle,
		Text:          rc.Text,
		StartChar:     rc.StartChar,
		EndChar:       rc.EndChar,
		Highlight:     domain.Span{Start: rc.StartChar + rel.Start, End: rc.StartChar + rel.End},
		HighlightText: rc.Text[rel.Start:rel.End],
		Score:         rc.Score,
	}
}

// PickMostRelevantSpan returns the span of chunkText, relative to chunkText,
// that best supports answerText. The sentence sharing the most distinct terms
// with the answer is chosen, joined with an adjacent sentence that scores at
// least half as well. With no overlap the whole trimmed chunk is returned.
// The span always lies within chunkText.
func PickMostRelevantSpan(chunkText, answerText string) domain.Span {
	whole := trimmedSpan(chunkText, domain.Span{Start: 0, End: len(chunkText)})
	terms := termSet(answerText)
	sentences := sentenceSpans(chunkText)
	if len(terms) == 0 || len(sentences) == 0 {
		return whole
	}

	scores := make([]int, len(sentences))
	best := 0
	for i, sp := range sentences {
		scores[i] = overlap(chunkText[sp.Start:sp.End], terms)
		if scores[i] > scores[best] {
			best = i
		}
	}
	if scores[best] == 0 {
		return whole
	}

	span := sentences[best]
	threshold := max(1, (scores[best]+1)/2)
	switch {
	case best+1 < len(sentences) && scores[best+1] >= threshold:
		span.End = sentences[best+1].End
	case best > 0 && scores[best-1] >= threshold:
		span.Start = sentences[best-1].Start
	}
	return span
}

// sentenceSpans splits text into trimmed sentence spans. A sentence ends at
// '.', '!' or '?' followed by whitespace, or at a blank line.
func sentenceSpans(text string) []domain.Span {
	var spans []domain.Span
	start := 0
	emit := func(end int) {
		sp := trimmedSpan(text, domain.Span{Start: start, End: end})
		if sp.Len() > 0 {
			spans = append(spans, sp)
		}
		start = end
	}
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case (c == '.' || c == '!' || c == '?') && (i+1 == len(text) || isSpaceByte(text[i+1])):
			emit(i + 1)
		case c == '\n' && i+1 < len(text) && text[i+1] == '\n':
			emit(i)
		}
	}
	if start < len(text) {
		emit(len(text))
	}
	return spans
}

func trimmedSpan(text string, sp domain.Span) domain.Span {
	for sp.Start < sp.End && isSpaceByte(text[sp.Start]) {
		sp.Start++
	}
	for sp.End > sp.Start && isSpaceByte(text[sp.End-1]) {
		sp.End--
	}
	return sp
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

// termSet returns the distinct significant terms of s.
func termSet(s string) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, w := range tokenize(s) {
		terms[w] = struct{}{}
	}
	return terms
}

// overlap counts distinct terms of s that appear in terms.
func overlap(s string, terms map[string]struct{}) int {
	seen := make(map[string]struct{})
	for _, w := range tokenize(s) {
		if _, ok := terms[w]; ok {
			seen[w] = struct{}{}
		}
	}
	return len(seen)
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) < 3 && !isNumber(f) {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		if markerWord(f) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func isNumber(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

func markerWord(s string) bool {
	return s == "source" || s == "sources"
}

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {}, "you": {}, "all": {},
	"any": {}, "can": {}, "has": {}, "have": {}, "had": {}, "was": {}, "were": {}, "this": {},
	"that": {}, "these": {}, "those": {}, "with": {}, "from": {}, "into": {}, "their": {},
	"there": {}, "they": {}, "them": {}, "which": {}, "what": {}, "when": {}, "where": {},
	"who": {}, "whom": {}, "will": {}, "would": {}, "shall": {}, "should": {}, "may": {},
	"must": {}, "been": {}, "being": {}, "its": {}, "than": {}, "then": {}, "also": {},
	"such": {}, "each": {}, "other": {}, "does": {}, "did": {}, "our": {}, "your": {},
	"about": {}, "under": {}, "upon": {}, "per": {},
}

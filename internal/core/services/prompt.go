package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/regdocs/internal/core/domain"
)

// defaultAnswerPrompt is used when no prompt store is configured or the
// stored template is unusable. Placeholders: sources block, question.
const defaultAnswerPrompt = `You are a compliance research assistant. Answer the question using only the numbered sources below.
Cite every statement with the marker of the source it comes from, for example [Source 1] or [Source 2, 3].
Do not cite sources that do not support the statement. If the sources do not answer the question, say so.

Sources:
%s

Question: %s

Answer:`

// buildSourcesBlock renders retrieved chunks as numbered sources in
// relevance order. Context windows are included to help the model but are
// never part of a citation.
func buildSourcesBlock(chunks []domain.RetrievedChunk) string {
	var b strings.Builder
	for i, c := range chunks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Source %d] %s", i+1, c.Title)
		if c.Jurisdiction != "" {
			fmt.Fprintf(&b, " (%s)", c.Jurisdiction)
		}
		fmt.Fprintf(&b, ", page %d", c.PageNumber)
		if c.SectionTitle != "" {
			fmt.Fprintf(&b, ", section %q", c.SectionTitle)
		}
		b.WriteString("\n")
		if before := strings.TrimSpace(c.ContextBefore); before != "" {
			fmt.Fprintf(&b, "Preceding context: ...%s\n", before)
		}
		fmt.Fprintf(&b, "Excerpt: %s\n", strings.TrimSpace(c.Text))
		if after := strings.TrimSpace(c.ContextAfter); after != "" {
			fmt.Fprintf(&b, "Following context: %s...\n", after)
		}
	}
	return b.String()
}

// renderAnswerPrompt fills template with the sources block and question.
// Templates without exactly two %s placeholders fall back to the default.
func renderAnswerPrompt(template, question string, chunks []domain.RetrievedChunk) string {
	if strings.Count(template, "%s") != 2 || strings.Count(template, "%") != 2 {
		template = defaultAnswerPrompt
	}
	return fmt.Sprintf(template, buildSourcesBlock(chunks), question)
}

// Package pdf extracts text from PDF files with poppler's pdftotext.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/custodia-labs/regdocs/internal/core/domain"
	"github.com/custodia-labs/regdocs/internal/core/ports/driven"
	"github.com/custodia-labs/regdocs/internal/extractors"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// DefaultBinary is the pdftotext executable looked up on PATH.
const DefaultBinary = "pdftotext"

// CommandRunner runs an external command with stdin and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes name with args, feeding stdin and capturing stdout.
func (ExecRunner) Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return stdout.Bytes(), nil
}

// Extractor converts PDFs page by page.
type Extractor struct {
	runner CommandRunner
	binary string
}

// New creates a PDF extractor. A nil runner uses ExecRunner and an empty
// binary uses DefaultBinary.
func New(runner CommandRunner, binary string) *Extractor {
	if runner == nil {
		runner = ExecRunner{}
	}
	if binary == "" {
		binary = DefaultBinary
	}
	return &Extractor{runner: runner, binary: binary}
}

// Name identifies the extractor in logs.
func (e *Extractor) Name() string {
	return "pdf"
}

// Supports reports whether the input is a PDF.
func (e *Extractor) Supports(in driven.ExtractInput) bool {
	if len(in.Content) == 0 {
		return false
	}
	return extractors.MIMEIs(in.MIMEType, "application/pdf") ||
		extractors.HasExt(in.Filename, ".pdf") ||
		bytes.HasPrefix(in.Content, []byte("%PDF-"))
}

// Extract runs pdftotext in layout mode reading stdin and writing stdout.
// Pages are split on form feeds and joined with a blank line.
func (e *Extractor) Extract(ctx context.Context, in driven.ExtractInput) (*domain.Extraction, error) {
	out, err := e.runner.Run(ctx, in.Content, e.binary, "-layout", "-enc", "UTF-8", "-", "-")
	if err != nil {
		return nil, err
	}
	return splitPages(string(out)), nil
}

// splitPages builds page spans from form-feed separated output.
// The empty tail after the final form feed is not a page.
func splitPages(out string) *domain.Extraction {
	out = strings.ReplaceAll(out, "\r\n", "\n")
	raw := strings.Split(out, "\f")
	if len(raw) > 1 && strings.TrimSpace(raw[len(raw)-1]) == "" {
		raw = raw[:len(raw)-1]
	}

	var b extractors.Builder
	for i, page := range raw {
		b.StartPage(i + 1)
		b.Block(trimLines(page))
	}
	return b.Extraction("pdf")
}

// trimLines strips trailing spaces from every line and drops leading and
// trailing blank lines.
func trimLines(page string) string {
	lines := strings.Split(page, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.Trim(strings.Join(lines, "\n"), "\n")
}

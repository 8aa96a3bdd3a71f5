// Package xlsx renders repair reports as Excel workbooks.
package xlsx

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/custodia-labs/regdocs/internal/core/domain"
	"github.com/custodia-labs/regdocs/internal/core/ports/driven"
)

// Sheet names.
const (
	SheetSummary   = "Summary"
	SheetDocuments = "Documents"
	SheetOrphans   = "Orphans"
)

// Writer implements driven.ReportWriter.
type Writer struct{}

var _ driven.ReportWriter = Writer{}

// NewWriter returns an XLSX report writer.
func NewWriter() Writer {
	return Writer{}
}

// WriteVerify writes a summary sheet and one row per document.
func (Writer) WriteVerify(w io.Writer, report *domain.VerifyReport) error {
	if report == nil {
		return fmt.Errorf("%w: nil verify report", domain.ErrInvalidInput)
	}
	b, err := newBook(SheetSummary)
	if err != nil {
		return err
	}
	defer b.f.Close()

	checked, matched := report.Totals()
	agreement := 0.0
	if checked > 0 {
		agreement = float64(matched) / float64(checked)
	}
	b.rows(SheetSummary, [][]any{
		{"Checked at", report.CheckedAt.UTC().Format(time.RFC3339)},
		{"Documents", len(report.Documents)},
		{"Chunks checked", checked},
		{"Chunks matched", matched},
		{"Agreement", agreement},
	})
	b.percent(SheetSummary, "B5")

	b.sheet(SheetDocuments)
	b.header(SheetDocuments, "Document ID", "Title", "Checked", "Matched", "Agreement", "Mismatched chunks", "Skipped")
	for i, d := range report.Documents {
		b.row(SheetDocuments, i+2, d.DocumentID, d.Title, d.Checked, d.Matched, d.Agreement(),
			strings.Join(d.MismatchedIDs, ", "), d.Skipped)
	}
	if n := len(report.Documents); n > 0 {
		b.percent(SheetDocuments, fmt.Sprintf("E2:E%d", n+1))
	}
	return b.write(w)
}

// WriteOrphans writes a summary sheet and one row per orphan vector.
func (Writer) WriteOrphans(w io.Writer, report *domain.OrphanReport) error {
	if report == nil {
		return fmt.Errorf("%w: nil orphan report", domain.ErrInvalidInput)
	}
	b, err := newBook(SheetSummary)
	if err != nil {
		return err
	}
	defer b.f.Close()

	b.rows(SheetSummary, [][]any{
		{"Vectors scanned", report.Scanned},
		{"Orphan vectors", len(report.OrphanIDs)},
		{"Missing documents", strings.Join(report.OrphanDocumentIDs, ", ")},
	})

	b.sheet(SheetOrphans)
	b.header(SheetOrphans, "Vector ID", "Document ID")
	for i, id := range report.OrphanIDs {
		owner := ""
		if docID, _, ok := domain.ParseChunkID(id); ok {
			owner = docID
		}
		b.row(SheetOrphans, i+2, id, owner)
	}
	return b.write(w)
}

// book wraps an excelize file and keeps the first error, so sheet-building
// code stays linear.
type book struct {
	f   *excelize.File
	err error
}

func newBook(first string) (*book, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", first); err != nil {
		f.Close()
		return nil, fmt.Errorf("xlsx: %w", err)
	}
	return &book{f: f}, nil
}

func (b *book) sheet(name string) {
	if b.err == nil {
		_, b.err = b.f.NewSheet(name)
	}
}

func (b *book) row(sheet string, n int, values ...any) {
	if b.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		b.err = err
		return
	}
	b.err = b.f.SetSheetRow(sheet, cell, &values)
}

func (b *book) rows(sheet string, rows [][]any) {
	for i, r := range rows {
		b.row(sheet, i+1, r...)
	}
}

func (b *book) header(sheet string, titles ...string) {
	values := make([]any, len(titles))
	for i, t := range titles {
		values[i] = t
	}
	b.row(sheet, 1, values...)
	if b.err != nil {
		return
	}
	style, err := b.f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDE6F0"}, Pattern: 1},
	})
	if err != nil {
		b.err = err
		return
	}
	last, _ := excelize.CoordinatesToCellName(len(titles), 1)
	b.err = b.f.SetCellStyle(sheet, "A1", last, style)
	if b.err == nil {
		b.err = b.f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	}
}

// percent formats a cell or range as a whole percentage.
func (b *book) percent(sheet, ref string) {
	if b.err != nil {
		return
	}
	style, err := b.f.NewStyle(&excelize.Style{NumFmt: 9})
	if err != nil {
		b.err = err
		return
	}
	from, to, _ := strings.Cut(ref, ":")
	if to == "" {
		to = from
	}
	b.err = b.f.SetCellStyle(sheet, from, to, style)
}

func (b *book) write(w io.Writer) error {
	if b.err != nil {
		return fmt.Errorf("xlsx: %w", b.err)
	}
	if _, err := b.f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx: write: %w", err)
	}
	return nil
}

// Package docx extracts paragraphs and headings from Word documents.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/regdocs/internal/core/domain"
	"github.com/custodia-labs/regdocs/internal/core/ports/driven"
	"github.com/custodia-labs/regdocs/internal/extractors"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// MIMEType is the OOXML word-processing content type.
const MIMEType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Extractor reads word/document.xml from a DOCX archive.
type Extractor struct{}

// New creates a new DOCX extractor.
func New() *Extractor {
	return &Extractor{}
}

// Name identifies the extractor in logs.
func (e *Extractor) Name() string {
	return "docx"
}

// Supports reports whether the input is a DOCX file.
func (e *Extractor) Supports(in driven.ExtractInput) bool {
	return len(in.Content) > 0 && (extractors.MIMEIs(in.MIMEType, MIMEType) || extractors.HasExt(in.Filename, ".docx"))
}

// Extract returns one block per paragraph. Heading1-3 styles and the
// document title become sections.
func (e *Extractor) Extract(_ context.Context, in driven.ExtractInput) (*domain.Extraction, error) {
	reader, err := zip.NewReader(bytes.NewReader(in.Content), int64(len(in.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: not a docx archive: %w", domain.ErrInvalidInput, err)
	}

	body, err := readPart(reader, "word/document.xml")
	if err != nil {
		return nil, err
	}
	var doc documentXML
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: parse document.xml: %w", domain.ErrInvalidInput, err)
	}

	var b extractors.Builder
	for _, p := range doc.Body.Paragraphs {
		text := p.text()
		if isHeading(p.Props.Style.Val) {
			b.Heading(text)
		} else {
			b.Block(text)
		}
	}

	ex := b.Extraction(e.Name())
	if core, err := readPart(reader, "docProps/core.xml"); err == nil {
		var props coreXML
		if xml.Unmarshal(core, &props) == nil {
			ex.Title = strings.TrimSpace(props.Title)
		}
	}
	return ex, nil
}

func readPart(reader *zip.Reader, name string) ([]byte, error) {
	f, err := reader.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: missing %s", domain.ErrInvalidInput, name)
	}
	defer f.Close()
	return io.ReadAll(f)
}

func isHeading(style string) bool {
	switch strings.ToLower(style) {
	case "title", "heading1", "heading2", "heading3":
		return true
	default:
		return false
	}
}

// documentXML represents the parts of word/document.xml we read.
type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Props struct {
		Style struct {
			Val string `xml:"val,attr"`
		} `xml:"pStyle"`
	} `xml:"pPr"`
	Runs []run `xml:"r"`
}

type run struct {
	Text []string   `xml:"t"`
	Tabs []struct{} `xml:"tab"`
}

func (p paragraph) text() string {
	var sb strings.Builder
	for _, r := range p.Runs {
		for range r.Tabs {
			sb.WriteByte(' ')
		}
		for _, t := range r.Text {
			sb.WriteString(t)
		}
	}
	return sb.String()
}

// coreXML represents docProps/core.xml.
type coreXML struct {
	Title string `xml:"title"`
}

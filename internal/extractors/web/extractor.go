// Package web fetches URL sources and extracts readable text from HTML.
package web

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/custodia-labs/regdocs/internal/core/domain"
	"github.com/custodia-labs/regdocs/internal/core/ports/driven"
	"github.com/custodia-labs/regdocs/internal/extractors"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Default configuration values.
const (
	DefaultTimeout  = 20 * time.Second
	DefaultMaxBytes = 10 << 20
	userAgent       = "regdocs/1.0 (+https://github.com/custodia-labs/regdocs)"
)

// blockSelector lists the elements whose text becomes a paragraph.
const blockSelector = "h1,h2,h3,h4,h5,h6,p,li,pre,blockquote,td,th,dt,dd"

// Config holds configuration for the web extractor.
type Config struct {
	// Timeout bounds each fetch (default: 20s).
	Timeout time.Duration

	// MaxBytes caps the response size (default: 10 MiB).
	MaxBytes int64

	// HTTPClient overrides the client used for fetching.
	HTTPClient *http.Client
}

// Extractor handles URL sources and uploaded HTML files.
type Extractor struct {
	client   *http.Client
	maxBytes int64
}

// New creates a web extractor.
func New(cfg Config) *Extractor {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Extractor{client: client, maxBytes: cfg.MaxBytes}
}

// Name identifies the extractor in logs.
func (e *Extractor) Name() string {
	return "web"
}

// Supports reports whether the input is a URL or an HTML upload.
func (e *Extractor) Supports(in driven.ExtractInput) bool {
	if in.URL != "" {
		return true
	}
	return len(in.Content) > 0 &&
		(extractors.MIMEIs(in.MIMEType, "text/html", "application/xhtml+xml") ||
			extractors.HasExt(in.Filename, ".html", ".htm", ".xhtml"))
}

// Extract fetches URL sources, then converts HTML to paragraphs.
// h1-h3 headings become sections.
func (e *Extractor) Extract(ctx context.Context, in driven.ExtractInput) (*domain.Extraction, error) {
	content, contentType := in.Content, in.MIMEType
	if len(content) == 0 && in.URL != "" {
		var err error
		content, contentType, err = e.fetch(ctx, in.URL)
		if err != nil {
			return nil, err
		}
	}

	switch {
	case extractors.MIMEIs(contentType, "text/plain"):
		text := strings.ReplaceAll(string(content), "\r\n", "\n")
		return &domain.Extraction{Text: text, Extractor: e.Name()}, nil
	case contentType == "" || extractors.MIMEIs(contentType, "text/html", "application/xhtml+xml"):
		return parseHTML(content)
	default:
		return nil, fmt.Errorf("%w: unsupported content type %s", domain.ErrUnsupportedType, contentType)
	}
}

func (e *Extractor) fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, "", domain.NewProviderError("web", "fetch", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", domain.NewProviderError("web", "fetch", resp.StatusCode, fmt.Errorf("GET %s: %s", url, resp.Status))
	}
	if resp.ContentLength > e.maxBytes {
		return nil, "", fmt.Errorf("%w: page is %d bytes, limit %d", domain.ErrInvalidInput, resp.ContentLength, e.maxBytes)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBytes+1))
	if err != nil {
		return nil, "", domain.NewProviderError("web", "fetch", 0, err)
	}
	if int64(len(body)) > e.maxBytes {
		return nil, "", fmt.Errorf("%w: page exceeds %d bytes", domain.ErrInvalidInput, e.maxBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	return body, contentType, nil
}

// parseHTML keeps block-level text from main or article when present,
// otherwise from the body. Nested blocks are read once through their outermost element.
func parseHTML(content []byte) (*domain.Extraction, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script,style,noscript,svg,nav,header,footer,form").Remove()

	root := doc.Find("main, article").First()
	if root.Length() == 0 {
		root = doc.Find("body")
	}
	if root.Length() == 0 {
		root = doc.Selection
	}

	var b extractors.Builder
	root.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		if s.ParentsFiltered(blockSelector).Length() > 0 {
			return
		}
		text := strings.Join(strings.Fields(s.Text()), " ")
		switch goquery.NodeName(s) {
		case "h1", "h2", "h3":
			b.Heading(text)
		default:
			b.Block(text)
		}
	})
	if b.Len() == 0 {
		b.Block(strings.Join(strings.Fields(root.Text()), " "))
	}

	ex := b.Extraction("web")
	ex.Title = strings.TrimSpace(doc.Find("title").First().Text())
	return ex, nil
}

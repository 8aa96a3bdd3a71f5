package pdf

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/regdocs/internal/core/domain"
	"github.com/custodia-labs/regdocs/internal/core/ports/driven"
)

type fakeRunner struct {
	out   string
	err   error
	name  string
	args  []string
	stdin []byte
}

func (f *fakeRunner) Run(_ context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	f.stdin, f.name, f.args = stdin, name, args
	return []byte(f.out), f.err
}

func TestExtractor_Supports(t *testing.T) {
	e := New(&fakeRunner{}, "")
	tests := []struct {
		name string
		in   driven.ExtractInput
		want bool
	}{
		{"mime", driven.ExtractInput{MIMEType: "application/pdf", Content: []byte("x")}, true},
		{"extension", driven.ExtractInput{Filename: "Rules.PDF", Content: []byte("x")}, true},
		{"magic", driven.ExtractInput{Content: []byte("%PDF-1.7 ...")}, true},
		{"text", driven.ExtractInput{Filename: "a.txt", MIMEType: "text/plain", Content: []byte("x")}, false},
		{"url", driven.ExtractInput{URL: "https://example.com/a.pdf"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Supports(tt.in))
		})
	}
}

func TestExtractor_SplitsPages(t *testing.T) {
	runner := &fakeRunner{out: "Page one text.   \n\n\fPage two\nsecond line\n\f\n\fPage four.\n\f"}
	e := New(runner, "")

	ex, err := e.Extract(context.Background(), driven.ExtractInput{Content: []byte("%PDF-1.4")})

	require.NoError(t, err)
	assert.Equal(t, "pdftotext", runner.name)
	assert.Equal(t, []string{"-layout", "-enc", "UTF-8", "-", "-"}, runner.args)
	assert.Equal(t, []byte("%PDF-1.4"), runner.stdin)
	assert.Equal(t, "Page one text.\n\nPage two\nsecond line\n\nPage four.", ex.Text)
	assert.Equal(t, "pdf", ex.Extractor)

	require.Len(t, ex.Pages, 4)
	for _, p := range ex.Pages {
		assert.LessOrEqual(t, p.StartChar, p.EndChar)
	}
	assert.Equal(t, "Page one text.", ex.Text[ex.Pages[0].StartChar:ex.Pages[0].EndChar])
	assert.Equal(t, "Page two\nsecond line", ex.Text[ex.Pages[1].StartChar:ex.Pages[1].EndChar])
	assert.Equal(t, 3, ex.Pages[2].Number)
	assert.Equal(t, ex.Pages[2].StartChar, ex.Pages[2].EndChar)
	assert.Equal(t, "Page four.", ex.Text[ex.Pages[3].StartChar:ex.Pages[3].EndChar])
	assert.Equal(t, 4, domain.PageAt(ex.Pages, len(ex.Text)-1))
}

func TestExtractor_RunnerFailure(t *testing.T) {
	e := New(&fakeRunner{err: errors.New("exit status 1")}, "/opt/bin/pdftotext")

	_, err := e.Extract(context.Background(), driven.ExtractInput{Content: []byte("%PDF")})

	assert.ErrorContains(t, err, "exit status 1")
}

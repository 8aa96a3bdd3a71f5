package chunker

import (
	"context"
	"math/rand/v2"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/regdocs/internal/core/domain"
)

// pieces mixes words, sentence enders with closers, CRLF and blank lines,
// and multibyte runes of every UTF-8 width.
var pieces = []string{
	"licence", "fee", "the", "renewal", "§ 12-43.4", " ", " ", " ", "\t",
	". ", "! ", "? ", ".) ", ".\" ", "?' ", ".] ", "...",
	"\n", "\r\n", "\n\n", "\r\n\r\n", "\n \n", "\f",
	"é", "ñ", "日本語", "🙂", "Ω", " ",
}

func randomText(r *rand.Rand, maxPieces int) string {
	var b strings.Builder
	for range r.IntN(maxPieces + 1) {
		b.WriteString(pieces[r.IntN(len(pieces))])
	}
	return b.String()
}

// requireChunkInvariants checks every structural guarantee of the chunker for
// one run: exact offsets on rune boundaries, gapless coverage, forward
// progress, bounded length and adjacent context.
func requireChunkInvariants(t *testing.T, text string, chunkSize, radius int, chunks []domain.Chunk) {
	t.Helper()
	if text == "" {
		require.Empty(t, chunks)
		return
	}
	require.NotEmpty(t, chunks)
	require.Equal(t, 0, chunks[0].StartChar)
	require.Equal(t, len(text), chunks[len(chunks)-1].EndChar)

	maxLen := chunkSize + max(chunkSize/5, utf8.UTFMax)
	for i, c := range chunks {
		require.Equal(t, i, c.Index)
		require.Less(t, c.StartChar, c.EndChar, "chunk %d is empty", i)
		require.Equal(t, text[c.StartChar:c.EndChar], c.Text, "chunk %d", i)
		require.True(t, utf8.ValidString(c.Text), "chunk %d splits a rune", i)
		require.LessOrEqual(t, len(c.Text), maxLen, "chunk %d too long", i)

		require.LessOrEqual(t, len(c.ContextBefore), radius)
		require.LessOrEqual(t, len(c.ContextAfter), radius)
		require.True(t, strings.HasSuffix(text[:c.StartChar], c.ContextBefore), "chunk %d context before", i)
		require.True(t, strings.HasPrefix(text[c.EndChar:], c.ContextAfter), "chunk %d context after", i)
		require.True(t, utf8.ValidString(c.ContextBefore) && utf8.ValidString(c.ContextAfter))

		if i > 0 {
			prev := chunks[i-1]
			require.Greater(t, c.StartChar, prev.StartChar, "chunk %d does not advance", i)
			require.LessOrEqual(t, c.StartChar, prev.EndChar, "gap before chunk %d", i)
		}
	}
}

func TestChunk_RandomTextKeepsInvariants(t *testing.T) {
	r := rand.New(rand.NewPCG(20, 26))
	for n := 0; n < 3000; n++ {
		text := randomText(r, 400)
		size := 1 + r.IntN(300)
		radius := r.IntN(80)
		overlap := r.IntN(size + 10)
		p := New(WithChunkSize(size), WithContextRadius(radius), WithOverlap(overlap),
			WithPreserveSentences(r.IntN(2) == 0), WithPreserveParagraphs(r.IntN(2) == 0))

		chunks, err := p.Chunk(context.Background(), "doc", &domain.Extraction{Text: text})
		require.NoError(t, err)
		requireChunkInvariants(t, text, p.chunkSize, p.contextRadius, chunks)
	}
}

func FuzzChunk(f *testing.F) {
	f.Add("Licenses renew yearly. Fees are due.\r\n\r\nSection 2 (a) \"Quoted.\" Next", uint16(10), uint8(3), uint8(5), uint8(3))
	f.Add("日本語のテキスト。🙂🙂🙂 é é é", uint16(1), uint8(0), uint8(2), uint8(0))
	f.Add(strings.Repeat("word ", 300), uint16(1000), uint8(200), uint8(200), uint8(1))
	f.Add("", uint16(5), uint8(1), uint8(1), uint8(2))

	f.Fuzz(func(t *testing.T, text string, size uint16, overlap, radius, flags uint8) {
		if !utf8.ValidString(text) {
			t.Skip()
		}
		p := New(WithChunkSize(int(size)), WithOverlap(int(overlap)), WithContextRadius(int(radius)),
			WithPreserveSentences(flags&1 != 0), WithPreserveParagraphs(flags&2 != 0))

		chunks, err := p.Chunk(context.Background(), "doc", &domain.Extraction{Text: text})
		require.NoError(t, err)
		requireChunkInvariants(t, text, p.chunkSize, p.contextRadius, chunks)
	})
}

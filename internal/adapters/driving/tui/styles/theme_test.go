package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/regdocs/internal/core/domain"
)

func TestDefaultTheme_ColoursAreDistinct(t *testing.T) {
	theme := DefaultTheme()

	seen := make(map[string]bool)
	for _, c := range []string{
		string(theme.Primary), string(theme.Secondary), string(theme.Muted),
		string(theme.Success), string(theme.Warning), string(theme.Error),
	} {
		assert.NotEmpty(t, c)
		assert.False(t, seen[c], "duplicate colour %s", c)
		seen[c] = true
	}
}

func TestNewStyles_NilTheme(t *testing.T) {
	styles := NewStyles(nil)

	require.NotNil(t, styles)
	assert.Equal(t, DefaultTheme(), styles.Theme())
}

func TestStyles_Status(t *testing.T) {
	s := DefaultStyles()
	theme := s.Theme()

	tests := []struct {
		status domain.ProcessingStatus
		want   lipgloss.Color
	}{
		{domain.StatusCompleted, theme.Success},
		{domain.StatusFailed, theme.Error},
		{domain.StatusUploaded, theme.Muted},
		{domain.StatusEmbedding, theme.Warning},
		{domain.StatusExtracting, theme.Warning},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.Status(tt.status).GetForeground(), tt.status)
	}
}

func TestStyles_Gradient(t *testing.T) {
	from, to := DefaultStyles().Gradient()
	assert.Equal(t, "#7C3AED", from)
	assert.Equal(t, "#06B6D4", to)
}

package cli

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/regdocs/internal/core/domain"
)

func TestMaskAPIKey(t *testing.T) {
	for in, want := range map[string]string{
		"":                      "****",
		"abc123":                "****",
		"12345678":              "****",
		"sk-1234567890abcdef":   "sk-1...cdef",
		"sk-ant-api03-abcdwxyz": "sk-a...wxyz",
	} {
		assert.Equal(t, want, maskAPIKey(in), in)
	}
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"", 2}, {"1", 1}, {"3", 3}, {" 3 ", 3}, {"0", 2}, {"4", 2}, {"-1", 2}, {"two", 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseChoice(tt.input, 3, 2), "input %q", tt.input)
	}
}

// executeWithInput runs the CLI with stdin replaced by input.
func executeWithInput(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	rootCmd.SetIn(strings.NewReader(input))
	defer rootCmd.SetIn(os.Stdin)
	return execute(t, args...)
}

func TestSettingsEmbeddingCmd_Interactive(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := executeWithInput(t, "2\n\nsk-test-key\n", "settings", "embedding")

	require.NoError(t, err)
	assert.Contains(t, out, "Select embedding provider")
	assert.Contains(t, out, "Validating configuration... OK")
	assert.Equal(t, domain.EmbeddingSettings{
		Provider: domain.AIProviderOpenAI, Model: "text-embedding-3-small", APIKey: "sk-test-key",
	}, ts.settings.settings.Embedding)
}

func TestSettingsLLMCmd_Flags(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	t.Setenv("REGDOCS_TEST_ANTHROPIC_KEY", "sk-ant-from-env")

	out, err := execute(t, "settings", "llm", "--provider", "Anthropic", "--api-key-env", "REGDOCS_TEST_ANTHROPIC_KEY")

	require.NoError(t, err)
	assert.NotContains(t, out, "Select")
	assert.Equal(t, domain.AIProviderAnthropic, ts.settings.settings.LLM.Provider)
	assert.Equal(t, domain.DefaultLLMModels()[domain.AIProviderAnthropic], ts.settings.settings.LLM.Model)
	assert.Equal(t, "sk-ant-from-env", ts.settings.settings.LLM.APIKey)
}

func TestSettingsProviderCmd_Errors(t *testing.T) {
	t.Run("unsupported provider", func(t *testing.T) {
		_, cleanup := setupTestServices()
		defer cleanup()

		_, err := execute(t, "settings", "embedding", "--provider", "anthropic")

		assert.ErrorIs(t, err, domain.ErrUnsupportedType)
	})

	t.Run("missing api key", func(t *testing.T) {
		_, cleanup := setupTestServices()
		defer cleanup()

		_, err := execute(t, "settings", "llm", "--provider", "openai", "--api-key-env", "REGDOCS_TEST_UNSET_KEY")

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("provider unreachable", func(t *testing.T) {
		ts, cleanup := setupTestServices()
		defer cleanup()
		ts.settings.pingErr = domain.ErrLLMUnavailable

		out, err := execute(t, "settings", "llm", "--provider", "ollama", "--model", "llama3.1")

		assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
		assert.Contains(t, out, "FAILED")
		assert.Equal(t, "llama3.1", ts.settings.settings.LLM.Model)
	})

	t.Run("service not configured", func(t *testing.T) {
		cleanup := clearServices()
		defer cleanup()

		_, err := execute(t, "settings", "llm", "--provider", "ollama")

		assert.ErrorContains(t, err, "settings service not configured")
	})
}

func TestSettingsWizardCmd(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := executeWithInput(t, "1\nmxbai-embed-large\n3\n\nsk-ant-key\n", "settings", "wizard")

	require.NoError(t, err)
	assert.Contains(t, out, "Step 1 of 2")
	assert.Contains(t, out, "Step 2 of 2")
	assert.Contains(t, out, "All settings are valid and saved.")
	assert.Equal(t, domain.AIProviderOllama, ts.settings.settings.Embedding.Provider)
	assert.Equal(t, "mxbai-embed-large", ts.settings.settings.Embedding.Model)
	assert.Equal(t, domain.AIProviderAnthropic, ts.settings.settings.LLM.Provider)
	assert.Equal(t, "sk-ant-key", ts.settings.settings.LLM.APIKey)
}

func TestSettingsShowCmd(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.settings.settings.Embedding = domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI, Model: "text-embedding-3-small", APIKey: "sk-1234567890abcdef"}
	ts.settings.settings.History.Backend = domain.HistoryBackendRedis
	ts.settings.settings.History.RedisAddr = "localhost:6379"

	out, err := execute(t, "settings", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "Provider: OpenAI (cloud)")
	assert.Contains(t, out, "[LLM]\n  Status: not configured")
	assert.Contains(t, out, "API Key: sk-1...cdef")
	assert.Contains(t, out, "Top K: 8")
	assert.Contains(t, out, "Backend: sqlite")
	assert.Contains(t, out, "Redis: localhost:6379 db 0")
	assert.Contains(t, out, "Remote: (not set, static table only)")
	assert.Contains(t, out, "Address: 127.0.0.1:8080")
	assert.Contains(t, out, "Configuration is valid.")
}

func TestSettingsShowCmd_InvalidConfig(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.settings.validateErr = errors.New("embedding provider not configured")

	out, err := execute(t, "settings", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "Warning: embedding provider not configured")
	assert.Contains(t, out, "regdocs settings wizard")
}

func TestSettingsShowCmd_ServiceNotConfigured(t *testing.T) {
	cleanup := clearServices()
	defer cleanup()

	_, err := execute(t, "settings", "show")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "settings service not configured")
}

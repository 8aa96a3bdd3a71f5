package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/regdocs/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change application settings",
	Long: `Without a subcommand, prints the effective settings: AI providers,
retrieval, vector index, history, reference data and server address.`,
	Args: cobra.NoArgs,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Choose the embedding and LLM providers interactively",
	Args:  cobra.NoArgs,
	RunE:  runSettingsWizard,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Set the embedding provider",
	Long: `Sets the provider that embeds document chunks and questions. Prompts
for anything not given by flags, then pings the provider.

Changing the embedding model invalidates existing vectors; reprocess
documents afterwards.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error { return runProviderStep(cmd, embeddingStep) },
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Set the LLM provider",
	Long: `Sets the provider that writes cited answers. Prompts for anything not
given by flags, then pings the provider.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error { return runProviderStep(cmd, llmStep) },
}

var (
	settingsProvider  string
	settingsModel     string
	settingsAPIKeyEnv string
)

func init() {
	for _, c := range []*cobra.Command{settingsEmbeddingCmd, settingsLLMCmd} {
		c.Flags().StringVar(&settingsProvider, "provider", "", "provider name (ollama, openai, anthropic)")
		c.Flags().StringVar(&settingsModel, "model", "", "model name (default depends on provider)")
		c.Flags().StringVar(&settingsAPIKeyEnv, "api-key-env", "", "read the API key from this environment variable")
	}
	settingsCmd.AddCommand(settingsShowCmd, settingsWizardCmd, settingsEmbeddingCmd, settingsLLMCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	s, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	section := func(title string, lines ...string) {
		cmd.Printf("[%s]\n", title)
		for _, l := range lines {
			cmd.Printf("  %s\n", l)
		}
		cmd.Println()
	}

	section("Embedding", providerLines(s.Embedding.Provider, s.Embedding.Model, s.Embedding.BaseURL,
		s.Embedding.APIKey, s.Embedding.IsConfigured())...)
	section("LLM", providerLines(s.LLM.Provider, s.LLM.Model, s.LLM.BaseURL,
		s.LLM.APIKey, s.LLM.IsConfigured())...)
	section("Retrieval",
		fmt.Sprintf("Top K: %d", s.Retrieval.TopK),
		fmt.Sprintf("Min similarity: %.2f", s.Retrieval.MinSimilarity),
		fmt.Sprintf("Chunk size: %d (context %d)", s.Chunker.ChunkSize, s.Chunker.ContextRadius))

	vector := []string{fmt.Sprintf("Backend: %s", s.Vector.Backend), fmt.Sprintf("Namespace: %s", s.Vector.Namespace)}
	if s.Vector.Backend == domain.VectorBackendQdrant {
		vector = append(vector, "Qdrant URL: "+s.Vector.QdrantURL)
	}
	section("Vector Index", vector...)

	history := []string{fmt.Sprintf("Backend: %s (capacity %d)", s.History.Backend, s.History.Capacity)}
	if s.History.Backend == domain.HistoryBackendRedis {
		history = append(history, fmt.Sprintf("Redis: %s db %d", s.History.RedisAddr, s.History.RedisDB))
	}
	section("History", history...)

	remote := "Remote: (not set, static table only)"
	if s.Reference.URL != "" {
		remote = fmt.Sprintf("Remote: %s (static fallback)", s.Reference.URL)
	}
	section("Reference Data", remote)
	section("Server", "Address: "+s.Server.Addr)

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'regdocs settings wizard' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}
	return nil
}

func providerLines(p domain.AIProvider, model, baseURL, apiKey string, configured bool) []string {
	if p == "" {
		return []string{"Status: not configured"}
	}
	lines := []string{"Provider: " + p.Description(), "Model: " + model}
	if p.IsLocal() {
		lines = append(lines, "Base URL: "+baseURL)
	}
	if p.RequiresAPIKey() {
		key := "(not set)"
		if apiKey != "" {
			key = maskAPIKey(apiKey)
		}
		lines = append(lines, "API Key: "+key)
	}
	status := "configured"
	if !configured {
		status = "not configured"
	}
	return append(lines, "Status: "+status)
}

// providerStep describes one provider choice for the wizard and the
// embedding/llm subcommands.
type providerStep struct {
	kind      string
	providers []domain.AIProvider
	models    map[domain.AIProvider]string
	save      func(domain.AIProvider, string, string) error
	validate  func() error
}

func embeddingStep() providerStep {
	return providerStep{
		kind:      "embedding",
		providers: domain.AllEmbeddingProviders(),
		models:    domain.DefaultEmbeddingModels(),
		save:      settingsService.SetEmbeddingProvider,
		validate:  settingsService.ValidateEmbeddingConfig,
	}
}

func llmStep() providerStep {
	return providerStep{
		kind:      "LLM",
		providers: domain.AllLLMProviders(),
		models:    domain.DefaultLLMModels(),
		save:      settingsService.SetLLMProvider,
		validate:  settingsService.ValidateLLMConfig,
	}
}

func runProviderStep(cmd *cobra.Command, newStep func() providerStep) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	return configureProvider(cmd, bufio.NewReader(cmd.InOrStdin()), newStep())
}

func configureProvider(cmd *cobra.Command, reader *bufio.Reader, step providerStep) error {
	provider := domain.AIProvider(strings.ToLower(settingsProvider))
	if provider == "" {
		cmd.Printf("Select %s provider\n", step.kind)
		for i, p := range step.providers {
			cmd.Printf("  %d. %s\n", i+1, p.Description())
		}
		cmd.Print("Enter choice [1]: ")
		provider = step.providers[parseChoice(readLine(reader), len(step.providers), 1)-1]
	} else if !containsProvider(step.providers, provider) {
		return fmt.Errorf("%w: %s provider %q", domain.ErrUnsupportedType, step.kind, settingsProvider)
	}

	model := settingsModel
	if model == "" && settingsProvider == "" {
		cmd.Printf("Enter model name [%s]: ", step.models[provider])
		model = readLine(reader)
	}
	if model == "" {
		model = step.models[provider]
	}

	var apiKey string
	if provider.RequiresAPIKey() {
		if settingsAPIKeyEnv != "" {
			apiKey = os.Getenv(settingsAPIKeyEnv)
		} else {
			cmd.Print("Enter API key: ")
			apiKey = readPassword(reader)
			cmd.Println()
		}
		if apiKey == "" {
			return fmt.Errorf("%w: %s requires an API key", domain.ErrInvalidInput, provider.Description())
		}
	}

	if err := step.save(provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure %s provider: %w", step.kind, err)
	}
	cmd.Print("Validating configuration... ")
	if err := step.validate(); err != nil {
		cmd.Println("FAILED")
		return fmt.Errorf("%s configuration validation failed: %w", step.kind, err)
	}
	cmd.Println("OK")
	cmd.Printf("%s provider configured: %s (%s)\n\n", step.kind, provider.Description(), model)
	return nil
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Println("Step 1 of 2: embeddings index documents and match questions to passages.")
	if err := configureProvider(cmd, reader, embeddingStep()); err != nil {
		return err
	}
	cmd.Println("Step 2 of 2: the LLM writes answers that cite the retrieved passages.")
	if err := configureProvider(cmd, reader, llmStep()); err != nil {
		return err
	}

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("All settings are valid and saved.")
	}
	return nil
}

func containsProvider(list []domain.AIProvider, p domain.AIProvider) bool {
	for _, x := range list {
		if x == p {
			return true
		}
	}
	return false
}

func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

// parseChoice returns the 1-based choice, or defaultVal for anything out of range.
func parseChoice(input string, maxVal, defaultVal int) int {
	val, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo on a terminal and falls back to a plain line.
func readPassword(reader *bufio.Reader) string {
	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		if password, err := term.ReadPassword(fd); err == nil {
			return string(password)
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

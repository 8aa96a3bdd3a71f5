// Command regdocs is a citation-accurate search portal for compliance documents.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/regdocs/internal/adapters/driven/ai"
	"github.com/custodia-labs/regdocs/internal/adapters/driven/config/file"
	"github.com/custodia-labs/regdocs/internal/adapters/driven/reference"
	"github.com/custodia-labs/regdocs/internal/adapters/driven/report/xlsx"
	"github.com/custodia-labs/regdocs/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/regdocs/internal/adapters/driven/storage/redis"
	"github.com/custodia-labs/regdocs/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/regdocs/internal/adapters/driven/vector/qdrant"
	"github.com/custodia-labs/regdocs/internal/adapters/driving/cli"
	"github.com/custodia-labs/regdocs/internal/core/domain"
	"github.com/custodia-labs/regdocs/internal/core/ports/driven"
	"github.com/custodia-labs/regdocs/internal/core/services"
	"github.com/custodia-labs/regdocs/internal/extractors"
	"github.com/custodia-labs/regdocs/internal/extractors/docx"
	"github.com/custodia-labs/regdocs/internal/extractors/pdf"
	"github.com/custodia-labs/regdocs/internal/extractors/plaintext"
	"github.com/custodia-labs/regdocs/internal/extractors/web"
	"github.com/custodia-labs/regdocs/internal/logger"
	"github.com/custodia-labs/regdocs/internal/postprocessors"
	"github.com/custodia-labs/regdocs/internal/postprocessors/chunker"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var log = logger.Component("main")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", domain.UserMessage(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// A missing .env is fine; keys may come from the environment or config.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("failed to load .env: %v", err)
	}

	configDir, err := file.DefaultDir()
	if err != nil {
		return err
	}
	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return fmt.Errorf("failed to open config: %w", err)
	}
	promptStore, err := file.NewPromptStore(filepath.Join(configDir, "prompts"))
	if err != nil {
		return fmt.Errorf("failed to open prompts: %w", err)
	}

	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	store, err := sqlite.NewStore(filepath.Join(configDir, "data"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	// AI services stay nil when unconfigured so settings commands still work.
	aiServices, err := ai.NewServices(*settings)
	if err != nil {
		log.Warn("%v", err)
		aiServices = &ai.Services{}
	}
	defer aiServices.Close()

	vectors, err := newVectorIndex(settings, store)
	if err != nil {
		return err
	}
	defer vectors.Close()

	history, err := newHistoryStore(ctx, settings, store)
	if err != nil {
		return err
	}
	defer history.Close()

	chunks, err := newChunker(settings)
	if err != nil {
		return err
	}

	extractor := extractors.NewRouter(plaintext.New(),
		pdf.New(nil, ""),
		docx.New(),
		web.New(web.Config{}),
	)

	docStore := store.DocumentStore()
	ingestionService := services.NewIngestionService(docStore, extractor, chunks,
		aiServices.Embedding, vectors, history, services.IngestionConfigFromSettings(settings))

	searchService := services.NewSearchService(docStore, vectors,
		aiServices.Embedding, aiServices.LLM, history, services.SearchConfigFromSettings(settings))
	searchService.SetPromptStore(promptStore)

	repairService := services.NewRepairService(docStore, vectors, services.RepairConfig{
		Namespace: settings.Vector.Namespace,
	})
	repairService.SetActivityChecker(ingestionService)

	static, err := reference.NewStaticSource()
	if err != nil {
		return fmt.Errorf("failed to load reference table: %w", err)
	}
	var remote driven.ReferenceSource
	if settings.Reference.URL != "" {
		remote = reference.NewRemoteSource(settings.Reference.URL, settings.Reference.Timeout)
	}
	referenceService := services.NewReferenceService(remote, static, services.DefaultRetryPolicy())

	schedulerConfig := settingsService.GetSchedulerConfig()
	scheduler := services.NewScheduler(schedulerConfig, store.SchedulerStore(), repairService,
		settings.Ingestion.StaleAfter)

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		Ingestion:       ingestionService,
		Search:          searchService,
		Repair:          repairService,
		Reference:       referenceService,
		History:         services.NewHistoryService(history, docStore, settings.History.Capacity),
		Settings:        settingsService,
		Scheduler:       scheduler,
		SchedulerConfig: schedulerConfig,
		ReportWriter:    xlsx.NewWriter(),
	})

	return cli.Execute(ctx)
}

func newVectorIndex(settings *domain.AppSettings, store *sqlite.Store) (driven.VectorIndex, error) {
	switch settings.Vector.Backend {
	case domain.VectorBackendSQLite, "":
		return store.VectorIndex(), nil
	case domain.VectorBackendMemory:
		return memory.NewVectorIndex(), nil
	case domain.VectorBackendQdrant:
		return qdrant.New(qdrant.Config{
			URL:              settings.Vector.QdrantURL,
			APIKey:           settings.Vector.QdrantAPIKey,
			CollectionPrefix: "regdocs_",
		}), nil
	default:
		return nil, fmt.Errorf("%w: vector backend %q", domain.ErrUnsupportedType, settings.Vector.Backend)
	}
}

func newHistoryStore(ctx context.Context, settings *domain.AppSettings, store *sqlite.Store) (driven.HistoryStore, error) {
	switch settings.History.Backend {
	case domain.HistoryBackendSQLite, "":
		return store.HistoryStore(), nil
	case domain.HistoryBackendMemory:
		return memory.NewHistoryStore(), nil
	case domain.HistoryBackendRedis:
		h, err := redis.NewHistoryStore(ctx, redis.Config{
			Addr:     settings.History.RedisAddr,
			Password: settings.History.RedisPassword,
			DB:       settings.History.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return h, nil
	default:
		return nil, fmt.Errorf("%w: history backend %q", domain.ErrUnsupportedType, settings.History.Backend)
	}
}

func newChunker(settings *domain.AppSettings) (driven.Chunker, error) {
	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry)
	return registry.Build(chunker.Name, postprocessors.ConfigFromSettings(settings.Chunker))
}

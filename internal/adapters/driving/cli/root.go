// Package cli implements the regdocs command line.
package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/regdocs/internal/core/domain"
	"github.com/custodia-labs/regdocs/internal/core/ports/driven"
	"github.com/custodia-labs/regdocs/internal/core/ports/driving"
	"github.com/custodia-labs/regdocs/internal/logger"
)

// version is set at build time with -ldflags.
var version = "dev"

var (
	verbose bool
	userID  string
)

// Services wired in by main.
var (
	ingestionService driving.IngestionService
	searchService    driving.SearchService
	repairService    driving.RepairService
	referenceService driving.ReferenceService
	historyService   driving.HistoryService
	settingsService  driving.SettingsService
	scheduler        driving.Scheduler
	reportWriter     driven.ReportWriter
	schedulerConfig  domain.SchedulerConfig
)

// Services holds everything the commands call into.
type Services struct {
	Ingestion       driving.IngestionService
	Search          driving.SearchService
	Repair          driving.RepairService
	Reference       driving.ReferenceService
	History         driving.HistoryService
	Settings        driving.SettingsService
	Scheduler       driving.Scheduler
	SchedulerConfig domain.SchedulerConfig
	ReportWriter    driven.ReportWriter
}

// SetServices wires services into the commands.
func SetServices(s Services) {
	ingestionService = s.Ingestion
	searchService = s.Search
	repairService = s.Repair
	referenceService = s.Reference
	historyService = s.History
	settingsService = s.Settings
	scheduler = s.Scheduler
	schedulerConfig = s.SchedulerConfig
	reportWriter = s.ReportWriter
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

var rootCmd = &cobra.Command{
	Use:   "regdocs",
	Short: "Citation-accurate search over compliance documents",
	Long: `regdocs ingests regulatory documents (PDF, Word, text, web pages),
indexes them by jurisdiction and document type, and answers questions
with citations pointing at the exact passages they came from.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug logging")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", os.Getenv("USER"), "user recorded in history")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

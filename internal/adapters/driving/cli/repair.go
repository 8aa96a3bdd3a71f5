package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/regdocs/internal/core/domain"
)

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Check and repair index consistency",
	Long: `Tools for keeping the vector index consistent with the document store:
find and purge orphaned chunks, verify chunk text against the stored
content, and fail documents stuck mid-ingestion.`,
}

var repairOrphansCmd = &cobra.Command{
	Use:   "orphans",
	Short: "Find (and optionally purge) chunks whose document no longer exists",
	Args:  cobra.NoArgs,
	RunE:  runRepairOrphans,
}

var repairVerifyCmd = &cobra.Command{
	Use:   "verify [doc-id...]",
	Short: "Check indexed chunk text against document content",
	Long: `Compares each indexed chunk's text with the document content at the
chunk's offsets. With no ids every completed document is checked.`,
	RunE: runRepairVerify,
}

var repairStaleCmd = &cobra.Command{
	Use:   "stale",
	Short: "Fail documents stuck in a processing state",
	Args:  cobra.NoArgs,
	RunE:  runRepairStale,
}

var (
	repairPurge     bool
	repairBatchSize int
	repairXLSX      string
	repairSample    int
	repairOlderThan time.Duration
)

func init() {
	repairOrphansCmd.Flags().BoolVar(&repairPurge, "purge", false, "delete the orphaned chunks")
	repairOrphansCmd.Flags().IntVar(&repairBatchSize, "batch-size", 0, "chunks deleted per batch (0 = default)")
	repairOrphansCmd.Flags().StringVar(&repairXLSX, "xlsx", "", "also write the report to this Excel file")
	repairVerifyCmd.Flags().IntVar(&repairSample, "sample", 0, "chunks checked per document (0 = all)")
	repairVerifyCmd.Flags().StringVar(&repairXLSX, "xlsx", "", "also write the report to this Excel file")
	repairStaleCmd.Flags().DurationVar(&repairOlderThan, "older-than", 30*time.Minute, "fail documents without progress for this long")

	repairCmd.AddCommand(repairOrphansCmd)
	repairCmd.AddCommand(repairVerifyCmd)
	repairCmd.AddCommand(repairStaleCmd)
	rootCmd.AddCommand(repairCmd)
}

func runRepairOrphans(cmd *cobra.Command, _ []string) error {
	if repairService == nil {
		return errors.New("repair service not configured")
	}
	ctx := commandContext(cmd)

	var report *domain.OrphanReport
	if repairPurge {
		purged, err := repairService.PurgeOrphans(ctx, repairBatchSize)
		if purged != nil {
			cmd.Printf("Deleted %d orphaned chunks in %d batches.\n", purged.Deleted, purged.Batches)
			report = &purged.OrphanReport
		}
		if err != nil {
			return fmt.Errorf("failed to purge orphans: %w", err)
		}
	} else {
		found, err := repairService.FindOrphans(ctx)
		if err != nil {
			return fmt.Errorf("failed to find orphans: %w", err)
		}
		report = found
	}

	cmd.Printf("Scanned %d chunks, %d orphaned", report.Scanned, len(report.OrphanIDs))
	if len(report.OrphanDocumentIDs) > 0 {
		cmd.Printf(" from %d missing documents", len(report.OrphanDocumentIDs))
	}
	cmd.Println(".")
	for _, id := range report.OrphanDocumentIDs {
		cmd.Printf("  %s\n", id)
	}
	if len(report.OrphanIDs) > 0 && !repairPurge {
		cmd.Println("Run with --purge to delete them.")
	}

	return writeXLSX(cmd, func(f *os.File) error { return reportWriter.WriteOrphans(f, report) })
}

func runRepairVerify(cmd *cobra.Command, args []string) error {
	if repairService == nil {
		return errors.New("repair service not configured")
	}

	report, err := repairService.VerifyContent(commandContext(cmd), args, repairSample)
	if err != nil {
		return fmt.Errorf("failed to verify content: %w", err)
	}

	for _, m := range report.Documents {
		title := m.Title
		if title == "" {
			title = m.DocumentID
		}
		if m.Skipped != "" {
			cmd.Printf("  %-40s skipped: %s\n", title, m.Skipped)
			continue
		}
		cmd.Printf("  %-40s %d/%d chunks match (%.0f%%)\n", title, m.Matched, m.Checked, m.Agreement()*100)
		for _, id := range m.MismatchedIDs {
			cmd.Printf("      mismatch: %s\n", id)
		}
	}
	checked, matched := report.Totals()
	agreement := 1.0
	if checked > 0 {
		agreement = float64(matched) / float64(checked)
	}
	cmd.Printf("\nOverall: %d/%d chunks match (%.1f%%)\n", matched, checked, agreement*100)

	return writeXLSX(cmd, func(f *os.File) error { return reportWriter.WriteVerify(f, report) })
}

func runRepairStale(cmd *cobra.Command, _ []string) error {
	if repairService == nil {
		return errors.New("repair service not configured")
	}

	report, err := repairService.MarkStale(commandContext(cmd), repairOlderThan)
	if err != nil {
		return fmt.Errorf("failed to mark stale documents: %w", err)
	}

	if len(report.DocumentIDs) == 0 {
		cmd.Printf("No documents stuck for more than %s.\n", report.OlderThan)
		return nil
	}
	cmd.Printf("Marked %d documents FAILED:\n", len(report.DocumentIDs))
	for _, id := range report.DocumentIDs {
		cmd.Printf("  %s\n", id)
	}
	return nil
}

// writeXLSX writes a report to the --xlsx path when one was given.
func writeXLSX(cmd *cobra.Command, write func(*os.File) error) error {
	if repairXLSX == "" {
		return nil
	}
	if reportWriter == nil {
		return errors.New("report writer not configured")
	}
	f, err := os.Create(repairXLSX)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	cmd.Printf("Report written to %s\n", repairXLSX)
	return nil
}

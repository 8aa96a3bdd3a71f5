package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/regdocs/internal/adapters/driving/tui"
	"github.com/custodia-labs/regdocs/internal/core/domain"
	"github.com/custodia-labs/regdocs/internal/core/ports/driving"
)

// pollInterval is how often plain output re-reads the status.
var pollInterval = 500 * time.Millisecond

var (
	uploadURL          string
	uploadTitle        string
	uploadJurisdiction string
	uploadTypes        []string
	uploadPlain        bool
	statusJSON         bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload [file]",
	Short: "Upload and ingest a document",
	Long: `Uploads a PDF, Word, text or HTML file (or a web page with --url) and
ingests it: the text is extracted, chunked, embedded and indexed.

Progress is shown as a live bar when stdout is a terminal.`,
	Example: `  regdocs upload rules.pdf --jurisdiction CO --type licensing
  regdocs upload --url https://example.gov/rules --type packaging,testing`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUpload,
}

var statusCmd = &cobra.Command{
	Use:   "status [doc-id]",
	Short: "Show ingestion status",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	uploadCmd.Flags().StringVar(&uploadURL, "url", "", "fetch a web page instead of a file")
	uploadCmd.Flags().StringVar(&uploadTitle, "title", "", "document title (defaults to the file name)")
	uploadCmd.Flags().StringVarP(&uploadJurisdiction, "jurisdiction", "j", "", "jurisdiction, e.g. CO")
	uploadCmd.Flags().StringSliceVarP(&uploadTypes, "type", "t", nil, "document types, e.g. licensing,packaging")
	uploadCmd.Flags().BoolVar(&uploadPlain, "plain", false, "print progress lines instead of a progress bar")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")

	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(statusCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}
	if (len(args) == 1) == (uploadURL != "") {
		return errors.New("give either a file or --url")
	}

	req := driving.UploadRequest{
		Title:         uploadTitle,
		URL:           uploadURL,
		Jurisdiction:  uploadJurisdiction,
		DocumentTypes: uploadTypes,
		UserID:        userID,
	}
	if len(args) == 1 {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		req.Filename = filepath.Base(args[0])
		req.Content = content
	}

	ctx := commandContext(cmd)
	doc, err := ingestionService.Upload(ctx, req)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	cmd.Printf("Uploaded %s (%s)\n", doc.Title, doc.ID)

	ingestionService.Submit(ctx, doc.ID)

	var final *domain.IngestionStatus
	if !uploadPlain && isTerminal(cmd.OutOrStdout()) {
		m, err := tui.RunProgress(ctx, ingestionService, doc.ID, doc.Title, os.Stdin, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if m.Hidden() {
			cmd.Println("Still ingesting; waiting for it to finish...")
		}
		ingestionService.Wait()
	} else {
		if _, err := waitPlain(ctx, cmd, doc.ID); err != nil {
			return err
		}
		ingestionService.Wait()
	}

	final, err = ingestionService.Status(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}
	return reportOutcome(cmd, final)
}

// waitPlain prints a line per status change until ingestion ends.
func waitPlain(ctx context.Context, cmd *cobra.Command, id string) (*domain.IngestionStatus, error) {
	var last domain.IngestionStatus
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		st, err := ingestionService.Status(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get status: %w", err)
		}
		if st.Status != last.Status || st.Progress != last.Progress {
			cmd.Printf("  %-10s %3d%%", st.Status, st.Progress)
			if st.TotalChunks > 0 {
				cmd.Printf("  %d/%d chunks", st.ProcessedChunks, st.TotalChunks)
			}
			cmd.Println()
			last = *st
		}
		if st.Status.IsTerminal() {
			return st, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func reportOutcome(cmd *cobra.Command, st *domain.IngestionStatus) error {
	switch st.Status {
	case domain.StatusCompleted:
		if st.TotalChunks > 0 && st.ProcessedChunks < st.TotalChunks {
			cmd.Printf("Completed with %d of %d chunks indexed.\n", st.ProcessedChunks, st.TotalChunks)
		} else {
			cmd.Printf("Completed: %d chunks indexed.\n", st.ProcessedChunks)
		}
		return nil
	case domain.StatusFailed:
		return fmt.Errorf("ingestion failed: %s", st.ErrorMessage)
	default:
		cmd.Printf("Document is %s (%d%%).\n", st.Status, st.Progress)
		return nil
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	st, err := ingestionService.Status(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	if statusJSON {
		return printJSON(cmd, map[string]any{
			"document_id":      st.DocumentID,
			"status":           st.Status,
			"progress":         st.Progress,
			"total_chunks":     st.TotalChunks,
			"processed_chunks": st.ProcessedChunks,
			"error":            st.ErrorMessage,
			"updated_at":       st.UpdatedAt,
		})
	}

	cmd.Printf("Document: %s\n", st.DocumentID)
	cmd.Printf("  Status:   %s\n", st.Status)
	cmd.Printf("  Progress: %d%%\n", st.Progress)
	cmd.Printf("  Chunks:   %d/%d\n", st.ProcessedChunks, st.TotalChunks)
	if st.ErrorMessage != "" {
		cmd.Printf("  Error:    %s\n", st.ErrorMessage)
	}
	cmd.Printf("  Updated:  %s\n", st.UpdatedAt.Format(timeLayout))
	return nil
}

// Helper functions.

const timeLayout = "2006-01-02 15:04:05"

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

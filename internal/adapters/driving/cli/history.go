package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/regdocs/internal/core/domain"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show your recent searches, uploads and bookmarks",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var bookmarkCmd = &cobra.Command{
	Use:   "bookmark [doc-id]",
	Short: "Bookmark a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runBookmark,
}

var (
	historyKind string
	historyJSON bool
)

func init() {
	historyCmd.Flags().StringVar(&historyKind, "kind", "", "only show search, upload or bookmark entries")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(bookmarkCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	if historyService == nil {
		return errors.New("history service not configured")
	}

	kind := domain.HistoryKind(historyKind)
	switch kind {
	case "", domain.HistoryKindSearch, domain.HistoryKindUpload, domain.HistoryKindBookmark:
	default:
		return fmt.Errorf("unknown kind %q: use search, upload or bookmark", historyKind)
	}

	entries, err := historyService.Recent(commandContext(cmd), userID, kind)
	if err != nil {
		return fmt.Errorf("failed to get history: %w", err)
	}
	if historyJSON {
		if entries == nil {
			entries = []domain.HistoryEntry{}
		}
		return printJSON(cmd, entries)
	}

	if len(entries) == 0 {
		cmd.Println("No history.")
		return nil
	}
	for _, e := range entries {
		cmd.Printf("  %s  %-8s ", e.At.Local().Format(timeLayout), e.Kind)
		switch e.Kind {
		case domain.HistoryKindSearch:
			cmd.Printf("%q (%d citations)\n", e.Query, e.CitationCount)
		default:
			cmd.Printf("%s  %s\n", e.DocumentID, e.Title)
		}
	}
	return nil
}

func runBookmark(cmd *cobra.Command, args []string) error {
	if historyService == nil {
		return errors.New("history service not configured")
	}

	if err := historyService.Bookmark(commandContext(cmd), userID, args[0]); err != nil {
		return fmt.Errorf("failed to bookmark: %w", err)
	}
	cmd.Printf("Bookmarked %s.\n", args[0])
	return nil
}

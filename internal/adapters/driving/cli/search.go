package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/regdocs/internal/core/domain"
)

var (
	searchTopK          int
	searchMinSimilarity float64
	searchJurisdictions []string
	searchTypes         []string
	searchJSON          bool
)

var searchCmd = &cobra.Command{
	Use:   "search [question]",
	Short: "Ask a question across uploaded documents",
	Long: `Answers a compliance question from the indexed documents. Every claim in
the answer cites a numbered source, resolved to the document, page and
exact passage it came from.

Filters can be given as flags or inline: "state:CO type:licensing renewal fees".`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "passages to retrieve (0 = configured default)")
	searchCmd.Flags().Float64Var(&searchMinSimilarity, "min-similarity", 0, "similarity floor (0 = configured default)")
	searchCmd.Flags().StringSliceVarP(&searchJurisdictions, "jurisdiction", "j", nil, "restrict to jurisdictions")
	searchCmd.Flags().StringSliceVarP(&searchTypes, "type", "t", nil, "restrict to document types")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if searchService == nil {
		return errors.New("search service not configured")
	}

	opts := domain.SearchOptions{
		TopK:          searchTopK,
		MinSimilarity: searchMinSimilarity,
		Jurisdictions: searchJurisdictions,
		DocumentTypes: searchTypes,
		UserID:        userID,
	}

	resp, err := searchService.Search(commandContext(cmd), query, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return printJSON(cmd, resp)
	}
	outputSearchText(cmd, resp)
	return nil
}

func outputSearchText(cmd *cobra.Command, resp *domain.SearchResponse) {
	if len(resp.Jurisdictions) > 0 || len(resp.DocumentTypes) > 0 {
		cmd.Printf("Filters: %s\n\n", describeFilters(resp))
	}

	cmd.Println(resp.Answer)
	if resp.NoResults {
		return
	}

	if len(resp.Citations) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for i := range resp.Citations {
			c := &resp.Citations[i]
			title := c.DocumentTitle
			if title == "" {
				title = c.DocumentID
			}
			cmd.Printf("  [%d] %s, page %d", c.SourceNumber, title, c.PageNumber)
			if c.SectionTitle != "" {
				cmd.Printf(", %s", c.SectionTitle)
			}
			cmd.Printf(" (%.2f)\n", c.Score)
			cmd.Printf("      chars %d-%d: %q\n", c.Highlight.Start, c.Highlight.End, c.HighlightText)
		}
	}

	if len(resp.RelatedDocuments) > 0 {
		cmd.Println()
		cmd.Println("Related documents:")
		for _, d := range resp.RelatedDocuments {
			cmd.Printf("  %s  %s", d.DocumentID, d.Title)
			if d.Jurisdiction != "" {
				cmd.Printf(" [%s]", d.Jurisdiction)
			}
			cmd.Printf("  %d matches, best %.2f\n", d.MatchCount, d.Score)
		}
	}
}

func describeFilters(resp *domain.SearchResponse) string {
	var parts []string
	if len(resp.Jurisdictions) > 0 {
		parts = append(parts, "jurisdiction "+strings.Join(resp.Jurisdictions, ", "))
	}
	if len(resp.DocumentTypes) > 0 {
		parts = append(parts, "type "+strings.Join(resp.DocumentTypes, ", "))
	}
	return strings.Join(parts, "; ")
}

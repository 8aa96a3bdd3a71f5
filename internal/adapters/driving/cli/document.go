package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage uploaded documents",
	Long:  `List, inspect, delete or reprocess uploaded documents.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show document info",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentContentCmd = &cobra.Command{
	Use:   "content [doc-id]",
	Short: "Print the extracted text",
	Long:  `Prints the extracted text that citation offsets refer to.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentContent,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document and its index entries",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentDelete,
}

var documentReprocessCmd = &cobra.Command{
	Use:   "reprocess [doc-id]",
	Short: "Re-ingest a completed or failed document",
	Long: `Removes the document's indexed chunks and runs ingestion again from the
stored source. Only documents that are COMPLETED or FAILED can be reprocessed.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocumentReprocess,
}

var documentListJSON bool

func init() {
	documentListCmd.Flags().BoolVar(&documentListJSON, "json", false, "output as JSON")

	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentContentCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	documentCmd.AddCommand(documentReprocessCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	docs, err := ingestionService.List(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if documentListJSON {
		return printJSON(cmd, docs)
	}

	if len(docs) == 0 {
		cmd.Println("No documents uploaded.")
		return nil
	}

	for i := range docs {
		cmd.Printf("  %s  %-10s %3d%%  %s", docs[i].ID, docs[i].Status, docs[i].Progress, docs[i].Title)
		if docs[i].Jurisdiction != "" {
			cmd.Printf(" [%s]", docs[i].Jurisdiction)
		}
		cmd.Println()
	}

	cmd.Printf("\nTotal: %d documents\n", len(docs))
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	doc, err := ingestionService.Get(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  Title:        %s\n", doc.Title)
	if doc.Filename != "" {
		cmd.Printf("  File:         %s (%s)\n", doc.Filename, doc.MIMEType)
	}
	if doc.SourceURL != "" {
		cmd.Printf("  URL:          %s\n", doc.SourceURL)
	}
	cmd.Printf("  Jurisdiction: %s\n", doc.Jurisdiction)
	cmd.Printf("  Types:        %s\n", strings.Join(doc.DocumentTypes, ", "))
	cmd.Printf("  Status:       %s (%d%%)\n", doc.Status, doc.Progress)
	cmd.Printf("  Chunks:       %d/%d\n", doc.ProcessedChunks, doc.TotalChunks)
	if doc.ErrorMessage != "" {
		cmd.Printf("  Error:        %s\n", doc.ErrorMessage)
	}
	if doc.UploadedBy != "" {
		cmd.Printf("  Uploaded by:  %s\n", doc.UploadedBy)
	}
	cmd.Printf("  Created:      %s\n", doc.CreatedAt.Format(timeLayout))
	cmd.Printf("  Updated:      %s\n", doc.UpdatedAt.Format(timeLayout))
	return nil
}

func runDocumentContent(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	doc, err := ingestionService.Get(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}
	if doc.Content == nil {
		return fmt.Errorf("document %s has no extracted text yet (%s)", doc.ID, doc.Status)
	}

	cmd.Println(*doc.Content)
	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	if err := ingestionService.Delete(commandContext(cmd), args[0]); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	cmd.Printf("Document %s deleted.\n", args[0])
	return nil
}

func runDocumentReprocess(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	ctx := commandContext(cmd)
	docID := args[0]
	cmd.Printf("Reprocessing document %s...\n", docID)

	if err := ingestionService.Reprocess(ctx, docID); err != nil {
		return fmt.Errorf("failed to reprocess document: %w", err)
	}
	ingestionService.Wait()

	st, err := ingestionService.Status(ctx, docID)
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}
	return reportOutcome(cmd, st)
}

package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/regdocs/internal/adapters/driving/inbox"
	"github.com/custodia-labs/regdocs/internal/core/domain"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Upload documents dropped into a directory",
	Long: `Watches a directory and uploads every PDF, Word, text, Markdown or HTML
file that is added or changed. Hidden files and subdirectories are ignored.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

var (
	watchJurisdiction string
	watchTypes        []string
	watchExisting     bool
	watchSettle       time.Duration
)

func init() {
	watchCmd.Flags().StringVarP(&watchJurisdiction, "jurisdiction", "j", "", "jurisdiction applied to every upload")
	watchCmd.Flags().StringSliceVarP(&watchTypes, "type", "t", nil, "document types applied to every upload")
	watchCmd.Flags().BoolVar(&watchExisting, "existing", false, "also upload files already in the directory")
	watchCmd.Flags().DurationVar(&watchSettle, "settle", inbox.DefaultSettle, "wait for writes to stop before uploading")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	w, err := inbox.New(ingestionService, inbox.Config{
		Dir:           args[0],
		Jurisdiction:  watchJurisdiction,
		DocumentTypes: watchTypes,
		UserID:        userID,
		Settle:        watchSettle,
		ScanExisting:  watchExisting,
	})
	if err != nil {
		return err
	}
	w.OnUpload = func(d *domain.Document) {
		cmd.Printf("Uploaded %s (%s)\n", d.Title, d.ID)
	}

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", args[0])
	err = w.Run(commandContext(cmd))
	ingestionService.Wait()
	return err
}

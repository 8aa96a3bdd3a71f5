package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/regdocs/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/regdocs/internal/adapters/driving/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serves the JSON API for uploads, status polling, search, history and
reference data. Maintenance tasks (stale sweep, orphan purge) run in the
background while the server is up.

With --mcp the Model Context Protocol endpoint is mounted at /mcp.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	serveAddr string
	serveMCP  bool
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from settings)")
	serveCmd.Flags().BoolVar(&serveMCP, "mcp", false, "mount the MCP endpoint at /mcp")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if ingestionService == nil || searchService == nil {
		return errors.New("ingestion and search services not configured")
	}
	ctx := commandContext(cmd)

	addr := serveAddr
	if addr == "" && settingsService != nil {
		if s, err := settingsService.Get(); err == nil {
			addr = s.Server.Addr
		}
	}
	if addr == "" {
		addr = "127.0.0.1:8080"
	}

	var opts []httpapi.Option
	if serveMCP {
		mcpServer, err := mcp.NewServer(&mcp.Ports{Search: searchService, Ingestion: ingestionService})
		if err != nil {
			return err
		}
		opts = append(opts, httpapi.WithMount("/mcp", mcpServer.Handler()))
	}

	server, err := httpapi.NewServer(&httpapi.Ports{
		Ingestion: ingestionService,
		Search:    searchService,
		History:   historyService,
		Reference: referenceService,
	}, opts...)
	if err != nil {
		return err
	}

	stop := startScheduler(ctx)
	defer stop()

	cmd.Printf("regdocs API listening on http://%s\n", addr)
	err = server.Run(ctx, addr)
	ingestionService.Wait()
	return err
}

// startScheduler runs background maintenance when enabled and returns a
// function that stops it.
func startScheduler(ctx context.Context) func() {
	if scheduler == nil || !schedulerConfig.Enabled {
		return func() {}
	}
	schedulerCtx, cancel := context.WithCancel(ctx)
	go func() {
		if err := scheduler.Start(schedulerCtx); err != nil {
			// Scheduler errors should not take the server down.
			fmt.Fprintf(os.Stderr, "scheduler stopped: %v\n", err)
		}
	}()
	return func() {
		cancel()
		if err := scheduler.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "scheduler stop error: %v\n", err)
		}
	}
}

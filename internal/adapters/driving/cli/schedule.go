package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/regdocs/internal/core/domain"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Show maintenance task state and recent runs",
	Long: `Lists the background maintenance tasks run by 'regdocs serve' and
'regdocs mcp serve' (stale ingestion sweep, orphan vector purge) with
their next run time and recent results.`,
	Args: cobra.NoArgs,
	RunE: runSchedule,
}

var scheduleRunCmd = &cobra.Command{
	Use:       "run <task-id>",
	Short:     "Run a maintenance task now",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{domain.TaskIDStaleSweep, domain.TaskIDOrphanPurge},
	RunE:      runScheduleNow,
}

var scheduleHistory int

func init() {
	scheduleCmd.Flags().IntVar(&scheduleHistory, "history", 5, "recent runs shown per task")
	scheduleCmd.AddCommand(scheduleRunCmd)
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	if scheduler == nil {
		return errors.New("scheduler not configured")
	}
	status, err := scheduler.Status(commandContext(cmd), scheduleHistory)
	if err != nil {
		return fmt.Errorf("failed to load schedule: %w", err)
	}
	if !schedulerConfig.Enabled {
		cmd.Println("Scheduler is disabled in settings.")
	}
	if len(status) == 0 {
		cmd.Println("No scheduled tasks yet. They are created the first time 'regdocs serve' runs.")
		return nil
	}

	for _, st := range status {
		t := st.Task
		state := "ok"
		if !t.Healthy() {
			state = "failing: " + t.LastError
		}
		cmd.Printf("%s (%s) every %s, %s\n", t.ID, t.Name, t.Interval, state)
		cmd.Printf("  Last run: %s\n", formatWhen(t.LastRun))
		if t.NextRun.IsZero() {
			cmd.Println("  Next run: due")
		} else {
			cmd.Printf("  Next run: %s\n", formatWhen(t.NextRun))
		}
		for _, r := range st.Recent {
			outcome := fmt.Sprintf("%d items", r.ItemsProcessed)
			if !r.Success {
				outcome = "error: " + r.Error
			}
			cmd.Printf("    %s  %-8s %s\n", r.StartedAt.Format(time.DateTime), r.Duration().Round(time.Millisecond), outcome)
		}
	}
	return nil
}

func runScheduleNow(cmd *cobra.Command, args []string) error {
	if scheduler == nil {
		return errors.New("scheduler not configured")
	}
	result, err := scheduler.RunNow(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("failed to run %s: %w", args[0], err)
	}
	if !result.Success {
		return fmt.Errorf("%s failed: %s", args[0], result.Error)
	}
	cmd.Printf("%s processed %d items in %s\n", args[0], result.ItemsProcessed, result.Duration().Round(time.Millisecond))
	return nil
}

func formatWhen(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format(time.DateTime)
}

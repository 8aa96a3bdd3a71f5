package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var referenceCmd = &cobra.Command{
	Use:   "reference",
	Short: "Show reference data",
	Long:  `Lists the verticals and document types documents can be classified with.`,
}

var referenceVerticalsCmd = &cobra.Command{
	Use:   "verticals",
	Short: "List verticals and their jurisdictions",
	Args:  cobra.NoArgs,
	RunE:  runReferenceVerticals,
}

var referenceTypesCmd = &cobra.Command{
	Use:   "types",
	Short: "List document types",
	Args:  cobra.NoArgs,
	RunE:  runReferenceTypes,
}

var referenceJSON bool

func init() {
	referenceCmd.PersistentFlags().BoolVar(&referenceJSON, "json", false, "output as JSON")
	referenceCmd.AddCommand(referenceVerticalsCmd)
	referenceCmd.AddCommand(referenceTypesCmd)
	rootCmd.AddCommand(referenceCmd)
}

func runReferenceVerticals(cmd *cobra.Command, _ []string) error {
	if referenceService == nil {
		return errors.New("reference service not configured")
	}

	verticals, err := referenceService.Verticals(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to load verticals: %w", err)
	}
	if referenceJSON {
		return printJSON(cmd, verticals)
	}

	for _, v := range verticals {
		cmd.Printf("  %-12s %s\n", v.ID, v.Name)
		if len(v.Jurisdictions) > 0 {
			cmd.Printf("  %-12s %s\n", "", strings.Join(v.Jurisdictions, " "))
		}
	}
	return nil
}

func runReferenceTypes(cmd *cobra.Command, _ []string) error {
	if referenceService == nil {
		return errors.New("reference service not configured")
	}

	types, err := referenceService.DocumentTypes(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to load document types: %w", err)
	}
	if referenceJSON {
		return printJSON(cmd, types)
	}

	for _, t := range types {
		cmd.Printf("  %-12s %s", t.ID, t.Name)
		if t.Description != "" {
			cmd.Printf(": %s", t.Description)
		}
		cmd.Println()
	}
	return nil
}

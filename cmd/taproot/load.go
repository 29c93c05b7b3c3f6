package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var flagSnapshots []string

var loadCmd = &cobra.Command{
	Use:   "load <qualified-name>...",
	Short: "Materialize declarations from attached snapshots",
	Long:  "Attaches the given snapshots and loads each named declaration with its transitive layout dependencies, printing the deserialization log.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLoad,
}

func init() {
	loadCmd.Flags().StringSliceVar(&flagSnapshots, "snapshot", nil, "snapshot label or UUID to attach (repeatable)")
	loadCmd.MarkFlagRequired("snapshot")
}

func runLoad(cmd *cobra.Command, args []string) error {
	engine, err := openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx := context.Background()
	loader, err := engine.Attach(ctx, flagSnapshots...)
	if err != nil {
		return outputError("load", err)
	}

	for _, name := range args {
		if _, err := loader.Materialize(ctx, name); err != nil {
			return outputError("load", err)
		}
	}

	report := CLILoadReport{
		Pending:    loader.Pending(),
		Unresolved: loader.Unresolved(),
	}
	for _, entry := range loader.DeserializationLog() {
		report.Log = append(report.Log, entry.String())
	}

	if err := outputResult(CLIResult{Command: "load", Results: report}); err != nil {
		return err
	}
	if unresolved := report.Unresolved; flagFormat == "text" && len(unresolved) > 0 {
		fmt.Fprintf(os.Stderr, "%d unresolved layout dependencies\n", len(unresolved))
	}
	return nil
}

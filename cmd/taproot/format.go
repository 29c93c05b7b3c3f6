package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// outputResult writes a result in the selected format to stdout.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}

// outputResultText dispatches to the appropriate text formatter based on
// the result type. It writes to os.Stdout.
func outputResultText(result CLIResult) error {
	w := io.Writer(os.Stdout)

	switch v := result.Results.(type) {
	case []CLIDecl:
		formatDeclsText(w, v)
	case []CLISnapshot:
		formatSnapshotsText(w, v)
	case CLISnapshot:
		formatSnapshotsText(w, []CLISnapshot{v})
	case CLILoadReport:
		formatLoadReportText(w, v)
	case nil:
		// No output.
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// formatDeclsText formats CLIDecl results as aligned columns.
func formatDeclsText(w io.Writer, decls []CLIDecl) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tKIND\tLINES\tFINGERPRINT")
	for _, d := range decls {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d-%d\t%s\n",
			d.ID, d.QualifiedName, d.Kind, d.StartLine, d.EndLine, d.Fingerprint[:12])
	}
	tw.Flush()
}

// formatSnapshotsText formats CLISnapshot results as aligned columns.
func formatSnapshotsText(w io.Writer, snaps []CLISnapshot) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUUID\tLABEL\tPRODUCER\tCREATED\tHEADERS\tSTALE")
	for _, s := range snaps {
		stale := ""
		if s.Stale {
			stale = "stale"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%s\n",
			s.ID, s.UUID, s.Label, s.Producer,
			s.CreatedAt.Format("2006-01-02 15:04:05"), s.Headers, stale)
	}
	tw.Flush()
}

// formatLoadReportText prints the deserialization log line by line, then
// pending and unresolved names.
func formatLoadReportText(w io.Writer, report CLILoadReport) {
	for _, line := range report.Log {
		fmt.Fprintln(w, line)
	}
	if len(report.Pending) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Pending (name only):")
		for _, name := range report.Pending {
			fmt.Fprintf(w, "  %s\n", name)
		}
	}
	if len(report.Unresolved) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Unresolved:")
		for _, name := range report.Unresolved {
			fmt.Fprintf(w, "  %s\n", name)
		}
	}
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}

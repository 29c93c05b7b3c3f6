package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jward/taproot"
	"github.com/spf13/cobra"
)

var (
	flagDB     string
	flagFormat string
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "taproot",
	Short:         "Incremental precompiled-declaration cache for C-family headers",
	Long:          "Taproot parses headers with tree-sitter, stores their declarations in a SQLite database keyed by qualified name, and loads them back lazily by completeness demand.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
	// No Run — prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: .taproot/store.db relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")

	rootCmd.AddCommand(emitCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(declsCmd)
	rootCmd.AddCommand(snapshotsCmd)
	rootCmd.AddCommand(dropCmd)
}

var (
	flagLabel   string
	flagSerial  bool
	flagInclude []string
)

var emitCmd = &cobra.Command{
	Use:   "emit <header>...",
	Short: "Emit a snapshot from one or more headers",
	Long:  "Parses the given headers and writes their declarations and completeness edges to the database as a new snapshot.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runEmit,
}

func init() {
	emitCmd.Flags().StringVar(&flagLabel, "label", "", "snapshot label (reusable; attach resolves to the latest)")
	emitCmd.Flags().BoolVar(&flagSerial, "serial", false, "emit headers one at a time instead of in parallel")
	emitCmd.Flags().StringSliceVar(&flagInclude, "include", nil, "directory searched for relative header paths (repeatable)")
}

func runEmit(cmd *cobra.Command, args []string) error {
	start := time.Now()

	paths := make([]string, len(args))
	for i, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return fmt.Errorf("resolving path %q: %w", arg, err)
		}
		if _, err := os.Stat(abs); err != nil {
			// Relative paths may still resolve against --include dirs;
			// the engine reports the ones that don't.
			if len(flagInclude) > 0 && !filepath.IsAbs(arg) {
				paths[i] = arg
				continue
			}
			return fmt.Errorf("header not found: %s", abs)
		}
		paths[i] = abs
	}

	dbPath, err := databasePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}

	opts := []taproot.Option{taproot.WithParallel(!flagSerial)}
	if len(flagInclude) > 0 {
		opts = append(opts, taproot.WithIncludeDirs(flagInclude...))
	}
	engine, err := taproot.New(dbPath, opts...)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	defer engine.Close()

	snap, err := engine.EmitSnapshot(context.Background(), flagLabel, paths)
	if err != nil {
		return outputError("emit", err)
	}

	fmt.Fprintf(os.Stderr, "Emitted snapshot %s (%d headers) in %s\n",
		snap.UUID, len(paths), time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)

	result := toCLISnapshot(snap)
	result.Headers = len(paths)
	return outputResult(CLIResult{Command: "emit", Results: result})
}

// databasePath resolves the store location from the --db flag or the
// default under the repo root.
func databasePath() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting cwd: %w", err)
	}
	return resolveDBPath(findRepoRoot(cwd)), nil
}

// openEngine opens an engine over an existing database.
func openEngine() (*taproot.Engine, error) {
	dbPath, err := databasePath()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'taproot emit' first)", dbPath)
	}
	return taproot.New(dbPath)
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root without finding .git.
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from the --db flag or the default.
func resolveDBPath(repoRoot string) string {
	if flagDB != "" {
		if filepath.IsAbs(flagDB) {
			return flagDB
		}
		return filepath.Join(repoRoot, flagDB)
	}
	return filepath.Join(repoRoot, ".taproot", "store.db")
}

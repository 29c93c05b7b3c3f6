package main

import (
	"context"
	"fmt"

	"github.com/jward/taproot"
	"github.com/spf13/cobra"
)

var flagDeclsSnapshot string

var declsCmd = &cobra.Command{
	Use:   "decls",
	Short: "List stored declarations in a snapshot",
	Args:  cobra.NoArgs,
	RunE:  runDecls,
}

func init() {
	declsCmd.Flags().StringVar(&flagDeclsSnapshot, "snapshot", "", "snapshot label or UUID")
	declsCmd.MarkFlagRequired("snapshot")
}

func runDecls(cmd *cobra.Command, args []string) error {
	engine, err := openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	snap, err := resolveSnapshot(engine, flagDeclsSnapshot)
	if err != nil {
		return outputError("decls", err)
	}

	decls, err := engine.Store().DeclsBySnapshot(snap.ID)
	if err != nil {
		return outputError("decls", err)
	}

	out := make([]CLIDecl, len(decls))
	for i, d := range decls {
		out[i] = toCLIDecl(d)
	}
	return outputResult(CLIResult{Command: "decls", Results: out})
}

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List emitted snapshots",
	Args:  cobra.NoArgs,
	RunE:  runSnapshots,
}

func runSnapshots(cmd *cobra.Command, args []string) error {
	engine, err := openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	snaps, err := engine.Store().Snapshots()
	if err != nil {
		return outputError("snapshots", err)
	}

	ctx := context.Background()
	out := make([]CLISnapshot, len(snaps))
	for i, snap := range snaps {
		out[i] = toCLISnapshot(snap)

		headers, err := engine.Store().HeadersBySnapshot(snap.ID)
		if err != nil {
			return outputError("snapshots", err)
		}
		out[i].Headers = len(headers)

		stale, err := engine.Stale(ctx, snap.ID)
		if err != nil {
			return outputError("snapshots", err)
		}
		out[i].Stale = len(stale) > 0
	}
	return outputResult(CLIResult{Command: "snapshots", Results: out})
}

var dropCmd = &cobra.Command{
	Use:   "drop <snapshot>",
	Short: "Delete a snapshot and its orphaned header data",
	Args:  cobra.ExactArgs(1),
	RunE:  runDrop,
}

func runDrop(cmd *cobra.Command, args []string) error {
	engine, err := openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	snap, err := resolveSnapshot(engine, args[0])
	if err != nil {
		return outputError("drop", err)
	}
	if err := engine.DeleteSnapshot(snap.ID); err != nil {
		return outputError("drop", err)
	}
	return outputResult(CLIResult{Command: "drop", Results: toCLISnapshot(snap)})
}

// resolveSnapshot looks a snapshot up by label first, then UUID. A reused
// label resolves to the latest snapshot carrying it.
func resolveSnapshot(engine *taproot.Engine, ref string) (*taproot.Snapshot, error) {
	snap, err := engine.Store().SnapshotByLabel(ref)
	if err != nil {
		return nil, fmt.Errorf("resolving snapshot %q: %w", ref, err)
	}
	if snap == nil {
		snap, err = engine.Store().SnapshotByUUID(ref)
		if err != nil {
			return nil, fmt.Errorf("resolving snapshot %q: %w", ref, err)
		}
	}
	if snap == nil {
		return nil, fmt.Errorf("snapshot not found: %s", ref)
	}
	return snap, nil
}

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"asbuild/internal/incr"
	"asbuild/internal/project"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [path]",
	Short: "Remove the persisted build snapshot",
	Long:  "Remove the snapshot of the current project, or every snapshot with --all, so the next build starts from scratch.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runClean,
}

func runClean(cmd *cobra.Command, args []string) error {
	all, err := cmd.Flags().GetBool("all")
	if err != nil {
		return err
	}
	cacheDir, err := cmd.Flags().GetString("cache-dir")
	if err != nil {
		return err
	}
	store, err := openStore(cacheDir)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if all {
		if err := store.DropAll(); err != nil {
			return fmt.Errorf("failed to remove snapshots in %q: %w", store.Dir(), err)
		}
		fmt.Fprintf(out, "removed all snapshots in %s\n", store.Dir())
		return nil
	}

	dir := "."
	if len(args) > 0 && args[0] != "" {
		dir = args[0]
	}
	p, ok, err := project.Load(dir)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New(noManifestMessage)
	}
	if err := store.Drop(p.Key); err != nil {
		return fmt.Errorf("failed to remove snapshot of %s: %w", p.Name(), err)
	}
	fmt.Fprintf(out, "removed snapshot of %s\n", p.Name())
	return nil
}

func openStore(dir string) (*incr.Store, error) {
	if dir != "" {
		return incr.NewStore(dir)
	}
	return incr.OpenStore("asbuild")
}

func init() {
	cleanCmd.Flags().Bool("all", false, "remove the snapshots of every project")
	cleanCmd.Flags().String("cache-dir", "", "snapshot store directory (default $XDG_CACHE_HOME/asbuild)")
}

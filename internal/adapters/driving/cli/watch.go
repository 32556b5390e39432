package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-kb/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Import a directory and keep it in sync",
	Long: `Import every file under a directory, then watch it and apply changes
as files are created, edited, or removed. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := requireCorpus(); err != nil {
		return err
	}
	ctx := cmd.Context()

	w := watcher.New(args[0])
	defer w.Close() //nolint:errcheck

	// Start watching before the scan so edits made during it are not lost.
	changes, err := w.Watch(ctx)
	if err != nil {
		return err
	}

	initial, err := w.Scan(ctx)
	if err != nil {
		return err
	}

	st := newStyles(cmd.OutOrStdout())
	report := func(o watcher.Outcome) {
		if o.Action == watcher.ActionUnchanged {
			return
		}
		printOutcome(cmd, st, o)
	}

	syncer := watcher.NewSyncer(corpusService)
	if err := syncer.SyncAll(ctx, initial, report); err != nil {
		return err
	}

	cmd.Printf("Watching %s for changes (Ctrl+C to stop)\n", w.Root())
	return syncer.Run(ctx, changes, report)
}

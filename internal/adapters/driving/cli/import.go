package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-kb/internal/watcher"
)

var importCmd = &cobra.Command{
	Use:   "import <path>...",
	Short: "Import files or directories",
	Long: `Import Markdown, text and HTML files into the knowledge base.

Directories are walked recursively; hidden files and directories are skipped.
Re-importing an unchanged file is a no-op, a changed file replaces the stored
document. Documents are keyed by file name, so two files with the same name
in different directories cannot both be imported.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	if err := requireCorpus(); err != nil {
		return err
	}
	ctx := cmd.Context()

	var changes []watcher.Change
	for _, path := range args {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("import: %w", err)
		}
		if info.IsDir() {
			found, err := watcher.New(path).Scan(ctx)
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}
			changes = append(changes, found...)
			continue
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("import: %w", err)
		}
		changes = append(changes, watcher.Change{Type: watcher.ChangeCreated, Path: path, Content: content})
	}

	st := newStyles(cmd.OutOrStdout())
	counts := make(map[string]int)
	report := func(o watcher.Outcome) {
		counts[o.Action]++
		printOutcome(cmd, st, o)
	}

	if err := watcher.NewSyncer(corpusService).SyncAll(ctx, changes, report); err != nil {
		return err
	}

	cmd.Printf("\n%s imported, %s replaced, %s unchanged, %s skipped\n",
		plural(counts[watcher.ActionImported], "file"),
		plural(counts[watcher.ActionReplaced], "file"),
		plural(counts[watcher.ActionUnchanged], "file"),
		plural(counts[watcher.ActionSkipped], "file"))

	if failed := counts[watcher.ActionFailed]; failed > 0 {
		return fmt.Errorf("%d of %d files failed to import", failed, len(changes))
	}
	return nil
}

func printOutcome(cmd *cobra.Command, st styles, o watcher.Outcome) {
	switch o.Action {
	case watcher.ActionFailed:
		cmd.Printf("  %s %s: %v\n", st.Error.Render(fmt.Sprintf("%-9s", o.Action)), o.Path, o.Err)
	case watcher.ActionSkipped:
		cmd.Printf("  %s %s\n", st.Muted.Render(fmt.Sprintf("%-9s", o.Action)), o.Path)
	case watcher.ActionImported, watcher.ActionReplaced:
		cmd.Printf("  %s %s (%s)\n", st.Success.Render(fmt.Sprintf("%-9s", o.Action)), o.Path, plural(o.Chunks, "chunk"))
	default:
		cmd.Printf("  %-9s %s\n", o.Action, o.Path)
	}
}

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex [chunk-id]",
	Short: "Repair or rebuild the search indexes",
	Long: `Bring the search indexes in line with the stored chunks.

Without arguments, re-indexes every chunk whose index entries are missing or
stale. With a chunk id, re-indexes that chunk. With --rebuild, discards every
vector and re-embeds the corpus, which is needed after switching embedding
models.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReindex,
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Permanently remove deleted documents and chunks",
	Args:  cobra.NoArgs,
	RunE:  runPurge,
}

var reindexRebuild bool

func init() {
	reindexCmd.Flags().BoolVar(&reindexRebuild, "rebuild", false, "Discard all vectors and re-embed the corpus")
	rootCmd.AddCommand(reindexCmd)
	rootCmd.AddCommand(purgeCmd)
}

func runReindex(cmd *cobra.Command, args []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}
	if reindexRebuild && len(args) > 0 {
		return fmt.Errorf("%w: --rebuild takes no chunk id", domain.ErrInvalidArgument)
	}
	ctx := cmd.Context()

	var (
		report domain.IndexReport
		err    error
	)
	switch {
	case reindexRebuild:
		report, err = indexService.Rebuild(ctx)
	case len(args) == 1:
		report, err = indexService.Reindex(ctx, args[0])
	default:
		report, err = indexService.RepairStale(ctx)
	}
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}

	cmd.Printf("Indexed %d, skipped %d, removed %d.\n", report.Indexed, report.Skipped, report.Removed)
	if report.VectorPending > 0 {
		st := newStyles(cmd.OutOrStdout())
		cmd.Println(st.Warning.Render(fmt.Sprintf("%s still waiting for embeddings.", plural(report.VectorPending, "chunk"))))
	}

	stats := indexService.Stats()
	provider := stats.ProviderID
	if provider == "" {
		provider = "none"
	}
	cmd.Printf("Lexical entries: %d\n", stats.LexicalEntries)
	cmd.Printf("Vector entries:  %d (provider %s)\n", stats.VectorEntries, provider)
	return nil
}

func runPurge(cmd *cobra.Command, _ []string) error {
	if err := requireCorpus(); err != nil {
		return err
	}

	n, err := corpusService.Purge(cmd.Context())
	if err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}

	cmd.Printf("Purged %s.\n", plural(n, "row"))
	return nil
}

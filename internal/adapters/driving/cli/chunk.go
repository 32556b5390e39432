package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

var chunkCmd = &cobra.Command{
	Use:   "chunk",
	Short: "View and edit chunks",
	Long: `View and edit the heading-scoped chunks of a document.

Edits are indexed before the command returns.`,
}

var chunkShowCmd = &cobra.Command{
	Use:   "show <chunk-id>",
	Short: "Print a chunk",
	Args:  cobra.ExactArgs(1),
	RunE:  runChunkShow,
}

var chunkAddCmd = &cobra.Command{
	Use:   "add <doc-id> <heading-path>",
	Short: "Append a section to a document",
	Long: `Append a section to a document.

The heading path excludes the document title, e.g. "Operations > Backups".
The marker level defaults to the depth of the path.`,
	Args: cobra.ExactArgs(2),
	RunE: runChunkAdd,
}

var chunkEditCmd = &cobra.Command{
	Use:   "edit <chunk-id>",
	Short: "Replace a chunk body",
	Args:  cobra.ExactArgs(1),
	RunE:  runChunkEdit,
}

var chunkDeleteCmd = &cobra.Command{
	Use:   "delete <chunk-id>",
	Short: "Delete a chunk",
	Args:  cobra.ExactArgs(1),
	RunE:  runChunkDelete,
}

// Flags for add and edit.
var (
	chunkBody     string
	chunkBodyFile string
	chunkLevel    int
	chunkVersion  int64
)

func init() {
	for _, c := range []*cobra.Command{chunkAddCmd, chunkEditCmd} {
		c.Flags().StringVar(&chunkBody, "body", "", "Chunk body text")
		c.Flags().StringVar(&chunkBodyFile, "body-file", "", "Read the body from a file, - for stdin")
		c.MarkFlagsMutuallyExclusive("body", "body-file")
	}
	chunkAddCmd.Flags().IntVar(&chunkLevel, "level", 0, "Heading marker level 1-6 (default: path depth)")
	chunkEditCmd.Flags().Int64Var(&chunkVersion, "version", 0, "Fail unless the chunk is at this version")

	chunkCmd.AddCommand(chunkShowCmd)
	chunkCmd.AddCommand(chunkAddCmd)
	chunkCmd.AddCommand(chunkEditCmd)
	chunkCmd.AddCommand(chunkDeleteCmd)
	rootCmd.AddCommand(chunkCmd)
}

func runChunkShow(cmd *cobra.Command, args []string) error {
	if err := requireCorpus(); err != nil {
		return err
	}

	c, err := corpusService.GetChunk(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get chunk: %w", err)
	}

	st := newStyles(cmd.OutOrStdout())
	cmd.Println(st.Muted.Render(fmt.Sprintf("chunk %s  document %s  version %d", c.ID, c.DocumentID, c.Version)))
	fmt.Fprintln(cmd.OutOrStdout(), c.Render())
	return nil
}

func runChunkAdd(cmd *cobra.Command, args []string) error {
	if err := requireCorpus(); err != nil {
		return err
	}

	path := domain.ParseTopicPath(args[1])
	if len(path) == 0 {
		return fmt.Errorf("%w: heading path is required", domain.ErrInvalidArgument)
	}
	body, err := readBody(cmd)
	if err != nil {
		return err
	}

	chunks, err := corpusService.AddChunks(cmd.Context(), args[0], []domain.ChunkDraft{{
		HeadingPath: path,
		MarkerLevel: chunkLevel,
		Body:        body,
	}})
	if err != nil {
		return fmt.Errorf("failed to add chunk: %w", err)
	}

	for i := range chunks {
		cmd.Printf("Added %s (%s)\n", chunks[i].ID, domain.FormatTopicPath(chunks[i].HeadingPath))
	}
	return nil
}

func runChunkEdit(cmd *cobra.Command, args []string) error {
	if err := requireCorpus(); err != nil {
		return err
	}
	if !cmd.Flags().Changed("body") && !cmd.Flags().Changed("body-file") {
		return fmt.Errorf("%w: --body or --body-file is required", domain.ErrInvalidArgument)
	}

	body, err := readBody(cmd)
	if err != nil {
		return err
	}

	c, err := corpusService.UpdateChunk(cmd.Context(), args[0], chunkVersion, body)
	if errors.Is(err, domain.ErrConflict) {
		return fmt.Errorf("chunk %s changed since version %d, show it again and retry: %w", args[0], chunkVersion, err)
	}
	if err != nil {
		return fmt.Errorf("failed to update chunk: %w", err)
	}

	cmd.Printf("Chunk %s updated to version %d.\n", c.ID, c.Version)
	return nil
}

func runChunkDelete(cmd *cobra.Command, args []string) error {
	if err := requireCorpus(); err != nil {
		return err
	}

	if err := corpusService.DeleteChunk(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to delete chunk: %w", err)
	}

	cmd.Printf("Chunk %s deleted.\n", args[0])
	return nil
}

func readBody(cmd *cobra.Command) (string, error) {
	switch chunkBodyFile {
	case "":
		return chunkBody, nil
	case "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	default:
		data, err := os.ReadFile(chunkBodyFile)
		if err != nil {
			return "", fmt.Errorf("reading body: %w", err)
		}
		return string(data), nil
	}
}

package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var documentCmd = &cobra.Command{
	Use:     "document",
	Aliases: []string{"doc"},
	Short:   "Manage imported documents",
	Long:    `List, view, export, or delete imported documents.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentShowCmd = &cobra.Command{
	Use:   "show <doc-id>",
	Short: "Show a document and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentShow,
}

var documentExportCmd = &cobra.Command{
	Use:   "export <doc-id>",
	Short: "Export a document as Markdown",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentExport,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete <doc-id>",
	Short: "Delete a document and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentDelete,
}

// exportOutput is a flag for the export command.
var exportOutput string

func init() {
	documentExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to a file instead of stdout")

	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentShowCmd)
	documentCmd.AddCommand(documentExportCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if err := requireCorpus(); err != nil {
		return err
	}

	docs, err := corpusService.ListDocuments(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents imported yet. Run 'sercha-kb import <path>'.")
		return nil
	}

	st := newStyles(cmd.OutOrStdout())
	for i := range docs {
		cmd.Printf("  %s\n", st.Title.Render(docs[i].Title))
		cmd.Printf("    ID:       %s\n", docs[i].ID)
		cmd.Printf("    File:     %s\n", docs[i].Filename)
		cmd.Printf("    Updated:  %s\n", docs[i].UpdatedAt.Format("2006-01-02 15:04:05"))
		cmd.Println()
	}

	cmd.Printf("Total: %s\n", plural(len(docs), "document"))
	return nil
}

func runDocumentShow(cmd *cobra.Command, args []string) error {
	if err := requireCorpus(); err != nil {
		return err
	}
	ctx := cmd.Context()

	doc, err := corpusService.GetDocument(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}
	chunks, err := corpusService.ListChunks(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("failed to list chunks: %w", err)
	}

	st := newStyles(cmd.OutOrStdout())
	cmd.Printf("Document: %s\n\n", st.Title.Render(doc.Title))
	cmd.Printf("  ID:        %s\n", doc.ID)
	cmd.Printf("  File:      %s\n", doc.Filename)
	cmd.Printf("  SHA-256:   %s\n", doc.SourceHash)
	cmd.Printf("  Imported:  %s\n", doc.ImportedAt.Format("2006-01-02 15:04:05"))
	cmd.Printf("  Updated:   %s\n", doc.UpdatedAt.Format("2006-01-02 15:04:05"))
	cmd.Printf("\n  Chunks (%d):\n", len(chunks))

	for i := range chunks {
		c := &chunks[i]
		label := "(root)"
		if !c.IsRoot() {
			label = strings.Repeat("  ", c.Level()-1) + c.Title
		}
		cmd.Printf("    %s %s\n", label, st.Muted.Render(fmt.Sprintf("[%s v%d]", c.ID, c.Version)))
	}
	return nil
}

func runDocumentExport(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	markdown, err := retrievalService.Export(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to export document: %w", err)
	}

	if exportOutput == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), markdown)
		return err
	}
	if err := os.WriteFile(exportOutput, []byte(markdown), 0o644); err != nil { //nolint:gosec // user-chosen output file
		return fmt.Errorf("failed to write %s: %w", exportOutput, err)
	}
	cmd.Printf("Exported to %s\n", exportOutput)
	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if err := requireCorpus(); err != nil {
		return err
	}

	report, err := corpusService.DeleteDocument(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	cmd.Printf("Document %s deleted, %d index entries removed.\n", args[0], report.Removed)
	return nil
}

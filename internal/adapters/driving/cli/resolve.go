package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <query>",
	Short: "Find the topics that answer a question",
	Long: `Resolve a free-text question to ranked topics without their content.

Pass a topic id or topic path from the output to 'sercha-kb get' to read it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResolve,
}

var (
	resolveLimit int
	resolveFiles []string
	resolveJSON  bool
)

func init() {
	resolveCmd.Flags().IntVarP(&resolveLimit, "limit", "n", 0, "Maximum number of topics (default from settings)")
	resolveCmd.Flags().StringSliceVarP(&resolveFiles, "file", "f", nil, "Only topics from files whose name contains this value")
	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "Print JSON")
	rootCmd.AddCommand(resolveCmd)
}

// topicJSON is the --json shape of a topic candidate.
type topicJSON struct {
	TopicID     string   `json:"topic_id"`
	DocumentID  string   `json:"document_id"`
	Filename    string   `json:"filename"`
	HeadingPath []string `json:"heading_path"`
	Title       string   `json:"title"`
	FusedRank   int      `json:"fused_rank"`
	Score       float64  `json:"score"`
	LexicalRank int      `json:"lexical_rank,omitempty"`
	VectorRank  int      `json:"vector_rank,omitempty"`
}

type resolveJSONOutput struct {
	Topics         []topicJSON `json:"topics"`
	Degraded       bool        `json:"degraded"`
	DegradedReason string      `json:"degraded_reason,omitempty"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	if resolutionService == nil {
		return errors.New("resolution service not configured")
	}

	res, err := resolutionService.Resolve(cmd.Context(), domain.ResolveRequest{
		Query:     strings.Join(args, " "),
		Limit:     resolveLimit,
		Filenames: resolveFiles,
	})
	if err != nil {
		return fmt.Errorf("resolve failed: %w", err)
	}

	if resolveJSON {
		out := resolveJSONOutput{
			Topics:         make([]topicJSON, 0, len(res.Topics)),
			Degraded:       res.Degraded,
			DegradedReason: res.DegradedReason,
		}
		for i := range res.Topics {
			t := &res.Topics[i]
			out.Topics = append(out.Topics, topicJSON{
				TopicID:     t.TopicID,
				DocumentID:  t.DocumentID,
				Filename:    t.Filename,
				HeadingPath: t.HeadingPath,
				Title:       t.Title,
				FusedRank:   t.FusedRank,
				Score:       t.Score,
				LexicalRank: t.LexicalRank,
				VectorRank:  t.VectorRank,
			})
		}
		return printJSON(cmd.OutOrStdout(), out)
	}

	st := newStyles(cmd.OutOrStdout())
	if res.Degraded {
		cmd.Println(st.Warning.Render("Keyword matches only: " + res.DegradedReason))
		cmd.Println()
	}
	if len(res.Topics) == 0 {
		cmd.Println("No matching topics.")
		return nil
	}

	for i := range res.Topics {
		t := &res.Topics[i]
		cmd.Printf("%2d. %s\n", t.FusedRank, st.Title.Render(domain.FormatTopicPath(t.HeadingPath)))
		cmd.Printf("    %s\n", st.Muted.Render(fmt.Sprintf("id %s  file %s  score %.4f", t.TopicID, t.Filename, t.Score)))
	}
	return nil
}

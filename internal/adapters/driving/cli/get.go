package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

var getCmd = &cobra.Command{
	Use:   "get <topic>...",
	Short: "Print the content under topics",
	Long: `Print the content under each topic, including nested sections.

A topic is a topic id from 'sercha-kb resolve' or a topic path such as
"runbook > Retries". Each topic is answered independently; unknown topics
are reported as not found.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGet,
}

var getJSON bool

func init() {
	getCmd.Flags().BoolVar(&getJSON, "json", false, "Print JSON")
	rootCmd.AddCommand(getCmd)
}

type docJSON struct {
	TopicID     string   `json:"topic_id"`
	HeadingPath []string `json:"heading_path"`
	Content     string   `json:"content"`
	Status      string   `json:"status"`
}

func runGet(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	results, err := retrievalService.GetDocs(cmd.Context(), args)
	if err != nil {
		return fmt.Errorf("get failed: %w", err)
	}

	if getJSON {
		out := make([]docJSON, 0, len(results))
		for _, r := range results {
			path := r.HeadingPath
			if path == nil {
				path = []string{}
			}
			out = append(out, docJSON{TopicID: r.TopicID, HeadingPath: path, Content: r.Content, Status: string(r.Status)})
		}
		return printJSON(cmd.OutOrStdout(), out)
	}

	st := newStyles(cmd.OutOrStdout())
	missing := 0
	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(cmd.OutOrStdout())
		}
		if r.Status != domain.DocStatusOK {
			missing++
			cmd.Println(st.Warning.Render("not found: " + r.TopicID))
			continue
		}
		fmt.Fprintln(cmd.OutOrStdout(), st.Muted.Render("<!-- "+domain.FormatTopicPath(r.HeadingPath)+" -->"))
		fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(r.Content, "\n"))
	}

	if missing == len(results) {
		return fmt.Errorf("%w: no topic matched", domain.ErrNotFound)
	}
	return nil
}

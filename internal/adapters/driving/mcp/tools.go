package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/logger"
)

// Tool names.
const (
	ToolResolveKeywords = "resolve-keywords"
	ToolGetDocs         = "get-docs"
)

// ResolveInput is the input schema for the resolve-keywords tool.
type ResolveInput struct {
	Query     string   `json:"query" jsonschema:"free-text question or keywords"`
	Limit     int      `json:"limit,omitempty" jsonschema:"maximum number of topics to return (default 5, max 50)"`
	Filenames []string `json:"filenames,omitempty" jsonschema:"only return topics from documents whose filename contains one of these values"`
}

// ResolveOutput is the output schema for the resolve-keywords tool.
type ResolveOutput struct {
	Topics         []TopicOutput `json:"topics"`
	Degraded       bool          `json:"degraded"`
	DegradedReason string        `json:"degraded_reason,omitempty"`
}

// TopicOutput represents a single ranked topic.
type TopicOutput struct {
	TopicID     string   `json:"topic_id"`
	DocumentID  string   `json:"document_id"`
	Filename    string   `json:"filename"`
	HeadingPath []string `json:"heading_path"`
	Title       string   `json:"title"`
	FusedRank   int      `json:"fused_rank"`
	Score       float64  `json:"score"`
	LexicalRank int      `json:"lexical_rank"`
	VectorRank  int      `json:"vector_rank"`
}

// GetDocsInput is the input schema for the get-docs tool.
type GetDocsInput struct {
	TopicIDs []string `json:"topic_ids" jsonschema:"topic ids from resolve-keywords, or topic paths such as 'guide > Setup'"`
}

// GetDocsOutput is the output schema for the get-docs tool.
type GetDocsOutput struct {
	Results []DocOutput `json:"results"`
}

// DocOutput is the content under one requested topic.
type DocOutput struct {
	TopicID     string   `json:"topic_id"`
	HeadingPath []string `json:"heading_path"`
	Content     string   `json:"content"`
	Status      string   `json:"status"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: ToolResolveKeywords,
		Description: "Find the knowledge base topics that best match a question. " +
			"Returns ranked topic ids and heading paths without body text.",
	}, s.handleResolve)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: ToolGetDocs,
		Description: "Return the full Markdown content under each requested topic, " +
			"including all nested subsections.",
	}, s.handleGetDocs)
}

// handleResolve handles the resolve-keywords tool invocation.
func (s *Server) handleResolve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ResolveInput,
) (*mcp.CallToolResult, ResolveOutput, error) {
	result, err := s.ports.Resolution.Resolve(ctx, domain.ResolveRequest{
		Query:     input.Query,
		Limit:     input.Limit,
		Filenames: input.Filenames,
	})
	if err != nil {
		logger.Debug("mcp: %s failed: %v", ToolResolveKeywords, err)
		return nil, ResolveOutput{}, err
	}

	output := ResolveOutput{
		Topics:         make([]TopicOutput, len(result.Topics)),
		Degraded:       result.Degraded,
		DegradedReason: result.DegradedReason,
	}
	for i := range result.Topics {
		t := &result.Topics[i]
		output.Topics[i] = TopicOutput{
			TopicID:     t.TopicID,
			DocumentID:  t.DocumentID,
			Filename:    t.Filename,
			HeadingPath: nonNil(t.HeadingPath),
			Title:       t.Title,
			FusedRank:   t.FusedRank,
			Score:       t.Score,
			LexicalRank: t.LexicalRank,
			VectorRank:  t.VectorRank,
		}
	}

	return nil, output, nil
}

// handleGetDocs handles the get-docs tool invocation.
func (s *Server) handleGetDocs(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetDocsInput,
) (*mcp.CallToolResult, GetDocsOutput, error) {
	results, err := s.ports.Retrieval.GetDocs(ctx, input.TopicIDs)
	if err != nil {
		logger.Debug("mcp: %s failed: %v", ToolGetDocs, err)
		return nil, GetDocsOutput{}, err
	}

	output := GetDocsOutput{Results: make([]DocOutput, len(results))}
	for i := range results {
		output.Results[i] = DocOutput{
			TopicID:     results[i].TopicID,
			HeadingPath: nonNil(results[i].HeadingPath),
			Content:     results[i].Content,
			Status:      string(results[i].Status),
		}
	}

	return nil, output, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

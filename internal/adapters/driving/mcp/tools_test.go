package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

func TestServer_handleResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("maps topics and ranks", func(t *testing.T) {
		resolution := &mockResolutionService{result: &domain.ResolveResult{
			Topics: []domain.TopicCandidate{
				{
					TopicID:     "c-evict",
					DocumentID:  "d-1",
					Filename:    "ops-guide.md",
					HeadingPath: []string{"ops-guide", "Caching", "Eviction"},
					Title:       "Eviction",
					FusedRank:   1,
					Score:       2.0 / 61,
					LexicalRank: 1,
					VectorRank:  1,
				},
				{
					TopicID:     "c-root",
					DocumentID:  "d-1",
					Filename:    "ops-guide.md",
					HeadingPath: []string{"ops-guide"},
					Title:       "ops-guide",
					FusedRank:   2,
					Score:       1.0 / 62,
					LexicalRank: 2,
				},
			},
		}}
		server := newTestServer(t, &Ports{Resolution: resolution})

		_, output, err := server.handleResolve(ctx, nil, ResolveInput{
			Query:     "evict",
			Limit:     2,
			Filenames: []string{"ops"},
		})

		require.NoError(t, err)
		assert.Equal(t, domain.ResolveRequest{Query: "evict", Limit: 2, Filenames: []string{"ops"}}, resolution.lastReq)
		require.Len(t, output.Topics, 2)
		assert.Equal(t, TopicOutput{
			TopicID:     "c-evict",
			DocumentID:  "d-1",
			Filename:    "ops-guide.md",
			HeadingPath: []string{"ops-guide", "Caching", "Eviction"},
			Title:       "Eviction",
			FusedRank:   1,
			Score:       2.0 / 61,
			LexicalRank: 1,
			VectorRank:  1,
		}, output.Topics[0])
		assert.Equal(t, 0, output.Topics[1].VectorRank)
		assert.False(t, output.Degraded)
	})

	t.Run("no match is an empty list", func(t *testing.T) {
		server := newTestServer(t, &Ports{})

		_, output, err := server.handleResolve(ctx, nil, ResolveInput{Query: "zz_no_such_term"})

		require.NoError(t, err)
		assert.NotNil(t, output.Topics)
		assert.Empty(t, output.Topics)
	})

	t.Run("passes degraded flag through", func(t *testing.T) {
		resolution := &mockResolutionService{result: &domain.ResolveResult{
			Degraded:       true,
			DegradedReason: "query embedding failed",
		}}
		server := newTestServer(t, &Ports{Resolution: resolution})

		_, output, err := server.handleResolve(ctx, nil, ResolveInput{Query: "cache"})

		require.NoError(t, err)
		assert.True(t, output.Degraded)
		assert.Equal(t, "query embedding failed", output.DegradedReason)
	})

	t.Run("returns error on invalid argument", func(t *testing.T) {
		resolution := &mockResolutionService{
			err: fmt.Errorf("%w: query must not be empty", domain.ErrInvalidArgument),
		}
		server := newTestServer(t, &Ports{Resolution: resolution})

		_, _, err := server.handleResolve(ctx, nil, ResolveInput{})

		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})
}

func TestServer_handleGetDocs(t *testing.T) {
	ctx := context.Background()

	t.Run("returns results in request order", func(t *testing.T) {
		retrieval := &mockRetrievalService{results: []domain.DocResult{
			{
				TopicID:     "c-cache",
				HeadingPath: []string{"ops-guide", "Caching"},
				Content:     "## Caching\nbody\n",
				Status:      domain.DocStatusOK,
			},
			{TopicID: "missing-id", Status: domain.DocStatusNotFound},
		}}
		server := newTestServer(t, &Ports{Retrieval: retrieval})

		_, output, err := server.handleGetDocs(ctx, nil, GetDocsInput{TopicIDs: []string{"c-cache", "missing-id"}})

		require.NoError(t, err)
		assert.Equal(t, []string{"c-cache", "missing-id"}, retrieval.lastKeys)
		assert.Equal(t, []DocOutput{
			{
				TopicID:     "c-cache",
				HeadingPath: []string{"ops-guide", "Caching"},
				Content:     "## Caching\nbody\n",
				Status:      "ok",
			},
			{TopicID: "missing-id", HeadingPath: []string{}, Status: "not_found"},
		}, output.Results)
	})

	t.Run("returns error on failure", func(t *testing.T) {
		retrieval := &mockRetrievalService{err: errors.New("store closed")}
		server := newTestServer(t, &Ports{Retrieval: retrieval})

		_, _, err := server.handleGetDocs(ctx, nil, GetDocsInput{TopicIDs: []string{"x"}})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "store closed")
	})
}

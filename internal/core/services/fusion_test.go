package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func fusedIDs(hits []FusedHit) []string {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ChunkID
	}
	return ids
}

func TestFuse_PinnedOrdering(t *testing.T) {
	hits := Fuse([]string{"a", "b", "c"}, []string{"b", "a", "d"}, 60)

	assert.Equal(t, []string{"a", "b", "c", "d"}, fusedIDs(hits))

	assert.InDelta(t, 1.0/61+1.0/62, hits[0].Score, 1e-12)
	assert.Equal(t, hits[0].Score, hits[1].Score)
	assert.InDelta(t, 1.0/63, hits[2].Score, 1e-12)
	assert.InDelta(t, 1.0/63, hits[3].Score, 1e-12)

	assert.Equal(t, 1, hits[0].LexicalRank)
	assert.Equal(t, 2, hits[0].VectorRank)
	assert.Equal(t, 3, hits[2].LexicalRank)
	assert.Zero(t, hits[2].VectorRank)
	assert.Zero(t, hits[3].LexicalRank)
	assert.Equal(t, 3, hits[3].VectorRank)
}

func TestFuse_AbsentContributesNothing(t *testing.T) {
	hits := Fuse([]string{"a"}, nil, 60)

	assert.Len(t, hits, 1)
	assert.InDelta(t, 1.0/61, hits[0].Score, 1e-12)
}

func TestFuse_LexicalPresenceWinsTie(t *testing.T) {
	hits := Fuse([]string{"m"}, []string{"k"}, 60)

	assert.Equal(t, []string{"m", "k"}, fusedIDs(hits))
	assert.Equal(t, hits[0].Score, hits[1].Score)
}

func TestRankLess(t *testing.T) {
	assert.True(t, rankLess(1, 2))
	assert.True(t, rankLess(5, 0))
	assert.False(t, rankLess(0, 5))
	assert.False(t, rankLess(0, 0))
}

func TestFuse_BothListsBeatOneList(t *testing.T) {
	hits := Fuse([]string{"solo", "both"}, []string{"both"}, 60)

	assert.Equal(t, []string{"both", "solo"}, fusedIDs(hits))
}

func TestFuse_DuplicateIDsCountOnce(t *testing.T) {
	hits := Fuse([]string{"a", "a"}, nil, 60)

	assert.Len(t, hits, 1)
	assert.InDelta(t, 1.0/61, hits[0].Score, 1e-12)
}

func TestFuse_DefaultK(t *testing.T) {
	assert.Equal(t, Fuse([]string{"a"}, nil, 60), Fuse([]string{"a"}, nil, 0))
}

func TestFuse_Empty(t *testing.T) {
	assert.Empty(t, Fuse(nil, nil, 60))
}

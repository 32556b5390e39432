package services

import "sort"

// DefaultRRFK is the reciprocal rank fusion smoothing constant.
const DefaultRRFK = 60

// FusedHit is one entry of a fused ranking.
type FusedHit struct {
	ChunkID string
	Score   float64

	// LexicalRank and VectorRank are 1-based; 0 means absent from that list.
	LexicalRank int
	VectorRank  int
}

// Fuse merges a lexical and a vector ranking with reciprocal rank fusion.
// A chunk at 1-based rank r contributes 1/(k+r); absence contributes nothing.
// Ties are broken by lexical rank, then vector rank (absent sorts last),
// then chunk id.
func Fuse(lexical, vector []string, k int) []FusedHit {
	if k <= 0 {
		k = DefaultRRFK
	}

	byID := make(map[string]*FusedHit, len(lexical)+len(vector))
	order := make([]*FusedHit, 0, len(lexical)+len(vector))
	hit := func(id string) *FusedHit {
		h, ok := byID[id]
		if !ok {
			h = &FusedHit{ChunkID: id}
			byID[id] = h
			order = append(order, h)
		}
		return h
	}

	for i, id := range lexical {
		h := hit(id)
		if h.LexicalRank != 0 {
			continue
		}
		h.LexicalRank = i + 1
		h.Score += 1 / float64(k+i+1)
	}
	for i, id := range vector {
		h := hit(id)
		if h.VectorRank != 0 {
			continue
		}
		h.VectorRank = i + 1
		h.Score += 1 / float64(k+i+1)
	}

	fused := make([]FusedHit, len(order))
	for i, h := range order {
		fused[i] = *h
	}
	sort.Slice(fused, func(i, j int) bool {
		a, b := fused[i], fused[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.LexicalRank != b.LexicalRank {
			return rankLess(a.LexicalRank, b.LexicalRank)
		}
		if a.VectorRank != b.VectorRank {
			return rankLess(a.VectorRank, b.VectorRank)
		}
		return a.ChunkID < b.ChunkID
	})
	return fused
}

// rankLess orders 1-based ranks ascending with 0 (absent) last.
func rankLess(a, b int) bool {
	if a == 0 {
		return false
	}
	if b == 0 {
		return true
	}
	return a < b
}

// Package lexical provides an in-memory BM25F keyword index over chunk
// titles and bodies, persisted through a driven.IndexStore.
package lexical

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-kb/internal/logger"
)

// Params holds the BM25F parameters.
type Params struct {
	K1          float64
	B           float64
	TitleWeight float64
	BodyWeight  float64
}

// ParamsFromSettings converts lexical settings, falling back to defaults
// for unset values.
func ParamsFromSettings(s domain.LexicalSettings) Params {
	d := domain.DefaultAppSettings().Lexical
	p := Params{K1: s.K1, B: s.B, TitleWeight: s.TitleWeight, BodyWeight: s.BodyWeight}
	if p.K1 <= 0 {
		p.K1 = d.K1
	}
	if p.B < 0 || p.B > 1 {
		p.B = d.B
	}
	if p.TitleWeight <= 0 {
		p.TitleWeight = d.TitleWeight
	}
	if p.BodyWeight <= 0 {
		p.BodyWeight = d.BodyWeight
	}
	return p
}

// Index implements driven.LexicalIndex.
//
// mu guards the in-memory state and is held only for map updates. writeMu
// serialises writers across the memory update and its persistence so the
// store never ends up behind the in-memory index.
type Index struct {
	mu       sync.RWMutex
	writeMu  sync.Mutex
	store    driven.IndexStore
	tok      *Tokenizer
	params   Params
	entries  map[string]domain.LexicalEntry
	postings map[string]map[string]struct{}

	// removed holds the version each deleted chunk was deleted at.
	removed map[string]int64

	titleTotal int
	bodyTotal  int
}

var _ driven.LexicalIndex = (*Index)(nil)

// New creates an empty index. store may be nil for a purely in-memory index.
func New(store driven.IndexStore, params Params) *Index {
	return &Index{
		store:    store,
		tok:      NewTokenizer(),
		params:   params,
		entries:  make(map[string]domain.LexicalEntry),
		postings: make(map[string]map[string]struct{}),
		removed:  make(map[string]int64),
	}
}

// Load replaces the in-memory state with the persisted entries.
func (idx *Index) Load(ctx context.Context) error {
	if idx.store == nil {
		return nil
	}
	entries, err := idx.store.LoadLexical(ctx)
	if err != nil {
		return fmt.Errorf("loading lexical index: %w", err)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries = make(map[string]domain.LexicalEntry, len(entries))
	idx.postings = make(map[string]map[string]struct{})
	idx.removed = make(map[string]int64)
	idx.titleTotal, idx.bodyTotal = 0, 0
	for _, e := range entries {
		idx.applyLocked(e)
	}
	logger.Debug("lexical index loaded: %d entries, %d terms", len(idx.entries), len(idx.postings))
	return nil
}

// Put indexes a chunk under its document's title. Tokenisation happens
// before the lock is taken. An entry built from an older version than the
// indexed one is ignored, as is any version at or below the one the chunk
// was deleted at.
func (idx *Index) Put(ctx context.Context, chunk domain.Chunk, documentTitle string) error {
	entry := idx.Analyze(chunk, documentTitle)

	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	idx.mu.Lock()
	if v, ok := idx.removed[chunk.ID]; ok && entry.Version <= v {
		idx.mu.Unlock()
		logger.Debug("lexical index: ignoring %s v%d, deleted at v%d", chunk.ID, entry.Version, v)
		return nil
	}
	if cur, ok := idx.entries[chunk.ID]; ok && cur.Version > entry.Version {
		idx.mu.Unlock()
		logger.Debug("lexical index: ignoring %s v%d, have v%d", chunk.ID, entry.Version, cur.Version)
		return nil
	}
	idx.removeLocked(chunk.ID)
	idx.applyLocked(entry)
	idx.mu.Unlock()

	if idx.store != nil {
		if err := idx.store.SaveLexical(ctx, entry); err != nil {
			return fmt.Errorf("persisting lexical entry %s: %w", chunk.ID, err)
		}
	}
	return nil
}

// Analyze builds the lexical entry for a chunk without indexing it.
// The title field holds the document title followed by the chunk's own
// heading, so the root chunk is found by the document title alone.
func (idx *Index) Analyze(chunk domain.Chunk, documentTitle string) domain.LexicalEntry {
	titleTF, titleLen := idx.tok.Frequencies(strings.TrimSpace(documentTitle + " " + chunk.Title))
	bodyTF, bodyLen := idx.tok.Frequencies(chunk.Body)
	return domain.LexicalEntry{
		ChunkID:  chunk.ID,
		Version:  chunk.Version,
		TitleTF:  titleTF,
		BodyTF:   bodyTF,
		TitleLen: titleLen,
		BodyLen:  bodyLen,
	}
}

// Remove drops a chunk from the index. A non-zero version is the version
// the chunk was deleted at; later Puts at or below it are ignored.
func (idx *Index) Remove(ctx context.Context, chunkID string, version int64) error {
	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	idx.mu.Lock()
	idx.removeLocked(chunkID)
	if version > idx.removed[chunkID] {
		idx.removed[chunkID] = version
	}
	idx.mu.Unlock()

	if idx.store != nil {
		if err := idx.store.DeleteLexical(ctx, chunkID); err != nil {
			return fmt.Errorf("removing lexical entry %s: %w", chunkID, err)
		}
	}
	return nil
}

// Version returns the chunk version an entry was built from.
func (idx *Index) Version(chunkID string) (int64, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	e, ok := idx.entries[chunkID]
	return e.Version, ok
}

// IDs returns the ids of all indexed chunks.
func (idx *Index) IDs() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	ids := make([]string, 0, len(idx.entries))
	for id := range idx.entries {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of indexed chunks.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Search ranks chunks with BM25F and returns at most k hits.
// Ties are broken by higher version, then by chunk id.
func (idx *Index) Search(_ context.Context, query string, k int) ([]driven.SearchHit, error) {
	if k <= 0 {
		return nil, nil
	}
	terms := unique(idx.tok.Tokens(query))
	if len(terms) == 0 {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	n := len(idx.entries)
	if n == 0 {
		return nil, nil
	}
	avgTitle := math.Max(float64(idx.titleTotal)/float64(n), 1)
	avgBody := math.Max(float64(idx.bodyTotal)/float64(n), 1)
	p := idx.params

	scores := make(map[string]float64)
	for _, term := range terms {
		posting := idx.postings[term]
		if len(posting) == 0 {
			continue
		}
		df := float64(len(posting))
		idf := math.Log(1 + (float64(n)-df+0.5)/(df+0.5))

		for id := range posting {
			e := idx.entries[id]
			// BM25F: length-normalise each field, weight, then saturate once.
			tf := p.TitleWeight*fieldTF(e.TitleTF[term], e.TitleLen, avgTitle, p.B) +
				p.BodyWeight*fieldTF(e.BodyTF[term], e.BodyLen, avgBody, p.B)
			if tf == 0 {
				continue
			}
			scores[id] += idf * tf * (p.K1 + 1) / (tf + p.K1)
		}
	}

	hits := make([]driven.SearchHit, 0, len(scores))
	for id, score := range scores {
		hits = append(hits, driven.SearchHit{ChunkID: id, Score: score, Version: idx.entries[id].Version})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].Version != hits[j].Version {
			return hits[i].Version > hits[j].Version
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func fieldTF(tf, length int, avg, b float64) float64 {
	if tf == 0 {
		return 0
	}
	return float64(tf) / (1 - b + b*float64(length)/avg)
}

func (idx *Index) applyLocked(e domain.LexicalEntry) {
	idx.entries[e.ChunkID] = e
	idx.titleTotal += e.TitleLen
	idx.bodyTotal += e.BodyLen
	for term := range e.TitleTF {
		idx.post(term, e.ChunkID)
	}
	for term := range e.BodyTF {
		idx.post(term, e.ChunkID)
	}
}

func (idx *Index) post(term, id string) {
	set, ok := idx.postings[term]
	if !ok {
		set = make(map[string]struct{})
		idx.postings[term] = set
	}
	set[id] = struct{}{}
}

func (idx *Index) removeLocked(id string) {
	e, ok := idx.entries[id]
	if !ok {
		return
	}
	delete(idx.entries, id)
	idx.titleTotal -= e.TitleLen
	idx.bodyTotal -= e.BodyLen
	for _, tf := range []map[string]int{e.TitleTF, e.BodyTF} {
		for term := range tf {
			if set, ok := idx.postings[term]; ok {
				delete(set, id)
				if len(set) == 0 {
					delete(idx.postings, term)
				}
			}
		}
	}
}

func unique(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := terms[:0]
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Package index maintains the searchable passage corpus: a BM25 index over
// document chunks, optionally fused with embedding similarity via
// reciprocal-rank fusion.
package index

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve"

	"github.com/docuchat/docuchat/models"
)

const rrfK = 60 // reciprocal-rank-fusion constant

// Embedder turns texts into vectors. A nil Embedder degrades the index to
// BM25-only search.
type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// Chunk is one indexable unit of a document.
type Chunk struct {
	ID         string `json:"id"`
	DocumentID int64  `json:"document_id"`
	Title      string `json:"title"`
	Text       string `json:"text"`
	ChunkIndex int    `json:"chunk_index"`
}

type embedVec struct {
	chunkID string
	vec     []float32
}

type searchHit struct {
	chunkID string
	score   float64
	rank    int
}

// Index is safe for concurrent use. Vectors and chunk metadata are held in
// memory and rebuilt from the store at startup; the BM25 side lives in bleve,
// on disk when a path is configured.
type Index struct {
	mu       sync.RWMutex
	bleve    bleve.Index
	meta     map[string]Chunk
	vectors  []embedVec
	embedder Embedder
}

// Open creates or reopens the index. An empty path keeps everything in memory.
func Open(path string, embedder Embedder) (*Index, error) {
	var bl bleve.Index
	var err error
	if path == "" {
		bl, err = bleve.NewMemOnly(bleve.NewIndexMapping())
	} else if _, statErr := os.Stat(path); statErr == nil {
		bl, err = bleve.Open(path)
	} else {
		bl, err = bleve.New(path, bleve.NewIndexMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("open bleve index: %w", err)
	}
	return &Index{
		bleve:    bl,
		meta:     make(map[string]Chunk),
		embedder: embedder,
	}, nil
}

// Close releases the underlying bleve index.
func (ix *Index) Close() error { return ix.bleve.Close() }

// Add indexes chunks with optional precomputed vectors keyed by chunk id.
func (ix *Index) Add(chunks []Chunk, vectors map[string][]float32) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, c := range chunks {
		if err := ix.bleve.Index(c.ID, c); err != nil {
			return fmt.Errorf("index chunk %s: %w", c.ID, err)
		}
		ix.meta[c.ID] = c
		if v, ok := vectors[c.ID]; ok && len(v) > 0 {
			ix.vectors = append(ix.vectors, embedVec{chunkID: c.ID, vec: v})
		}
	}
	return nil
}

// Remove drops the given chunks from both the BM25 and vector sides.
// Missing ids are ignored so removal stays idempotent.
func (ix *Index) Remove(chunkIDs []string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	drop := make(map[string]struct{}, len(chunkIDs))
	for _, id := range chunkIDs {
		drop[id] = struct{}{}
		if err := ix.bleve.Delete(id); err != nil {
			return fmt.Errorf("delete chunk %s: %w", id, err)
		}
		delete(ix.meta, id)
	}
	kept := ix.vectors[:0]
	for _, v := range ix.vectors {
		if _, gone := drop[v.chunkID]; !gone {
			kept = append(kept, v)
		}
	}
	ix.vectors = kept
	return nil
}

// Count returns the number of indexed chunks.
func (ix *Index) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.meta)
}

// Contains reports whether a chunk id is already indexed.
func (ix *Index) Contains(chunkID string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.meta[chunkID]
	return ok
}

// Retrieve returns the top-k passages for a standalone question. BM25 and
// vector rankings are fused with RRF when an embedder is configured; an
// embedding failure falls back to the BM25 ranking rather than failing the
// request.
func (ix *Index) Retrieve(ctx context.Context, query string, k int) ([]models.Passage, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query required")
	}
	if k <= 0 {
		k = 2
	}

	bmHits, err := ix.bm25Search(query, k)
	if err != nil {
		return nil, err
	}

	hits := bmHits
	if ix.embedder != nil {
		if qvecs, embErr := ix.embedder.CreateEmbedding(ctx, []string{query}); embErr == nil && len(qvecs) == 1 {
			vecHits := ix.vectorSearch(qvecs[0], k)
			hits = fuseRRF(bmHits, vecHits, k)
		} else if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	passages := make([]models.Passage, 0, len(hits))
	for i, h := range hits {
		c := ix.meta[h.chunkID]
		passages = append(passages, models.Passage{
			DocID:   c.ID,
			Title:   c.Title,
			Content: c.Text,
			Score:   h.score,
			Rank:    i + 1,
		})
	}
	return passages, nil
}

func (ix *Index) bm25Search(q string, k int) ([]searchHit, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	query := bleve.NewQueryStringQuery(q)
	searchReq := bleve.NewSearchRequestOptions(query, k*3, 0, false)
	res, err := ix.bleve.Search(searchReq)
	if err != nil {
		return nil, fmt.Errorf("bm25 search: %w", err)
	}
	var out []searchHit
	for i, hit := range res.Hits {
		out = append(out, searchHit{chunkID: hit.ID, score: hit.Score, rank: i + 1})
		if len(out) >= k {
			break
		}
	}
	return out, nil
}

func (ix *Index) vectorSearch(q []float32, k int) []searchHit {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	type scored struct {
		id    string
		score float64
	}
	var scoreds []scored
	for _, v := range ix.vectors {
		scoreds = append(scoreds, scored{id: v.chunkID, score: cosine(q, v.vec)})
	}
	sort.Slice(scoreds, func(i, j int) bool { return scoreds[i].score > scoreds[j].score })
	var out []searchHit
	for i, sc := range scoreds {
		out = append(out, searchHit{chunkID: sc.id, score: sc.score, rank: i + 1})
		if len(out) >= k {
			break
		}
	}
	return out
}

func fuseRRF(a, b []searchHit, k int) []searchHit {
	fused := map[string]float64{}
	add := func(list []searchHit) {
		for _, h := range list {
			fused[h.chunkID] += 1.0 / float64(rrfK+h.rank)
		}
	}
	add(a)
	add(b)

	out := make([]searchHit, 0, len(fused))
	for id, score := range fused {
		out = append(out, searchHit{chunkID: id, score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].chunkID < out[j].chunkID
	})
	if len(out) > k {
		out = out[:k]
	}
	for i := range out {
		out[i].rank = i + 1
	}
	return out
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		ai := float64(a[i])
		bi := float64(b[i])
		dot += ai * bi
		na += ai * ai
		nb += bi * bi
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

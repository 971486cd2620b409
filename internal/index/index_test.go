package index

import (
	"context"
	"fmt"
	"testing"
)

type stubEmbedder struct {
	vecs map[string][]float32
	err  error
}

func (s *stubEmbedder) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, ok := s.vecs[t]
		if !ok {
			v = []float32{0, 0, 1}
		}
		out[i] = v
	}
	return out, nil
}

func testChunks() []Chunk {
	return []Chunk{
		{ID: "a#000", DocumentID: 1, Title: "policy.txt", Text: "Refunds are processed within 14 days of the request.", ChunkIndex: 0},
		{ID: "a#001", DocumentID: 1, Title: "policy.txt", Text: "Digital goods are not eligible for refunds once downloaded.", ChunkIndex: 1},
		{ID: "b#000", DocumentID: 2, Title: "shipping.txt", Text: "Shipping takes three to five business days within the EU.", ChunkIndex: 0},
	}
}

func TestRetrieveBM25Only(t *testing.T) {
	ix, err := Open("", nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer ix.Close()

	if err := ix.Add(testChunks(), nil); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if ix.Count() != 3 {
		t.Fatalf("expected 3 chunks indexed, got %d", ix.Count())
	}

	passages, err := ix.Retrieve(context.Background(), "refund policy", 2)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(passages) == 0 || len(passages) > 2 {
		t.Fatalf("expected 1-2 passages got %d", len(passages))
	}
	for i, p := range passages {
		if p.Rank != i+1 {
			t.Fatalf("passage %d has rank %d", i, p.Rank)
		}
		if p.Title == "shipping.txt" {
			t.Fatalf("shipping chunk should not outrank refund chunks: %+v", passages)
		}
	}
}

func TestRetrieveEmptyQuery(t *testing.T) {
	ix, err := Open("", nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer ix.Close()

	if _, err := ix.Retrieve(context.Background(), "   ", 2); err == nil {
		t.Fatalf("expected error for blank query")
	}
}

func TestRetrieveHybridPrefersVectorMatch(t *testing.T) {
	emb := &stubEmbedder{vecs: map[string][]float32{
		"delivery time": {1, 0, 0},
	}}
	ix, err := Open("", emb)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer ix.Close()

	vectors := map[string][]float32{
		"a#000": {0, 1, 0},
		"a#001": {0, 0.9, 0.1},
		"b#000": {1, 0, 0}, // aligned with the query vector
	}
	if err := ix.Add(testChunks(), vectors); err != nil {
		t.Fatalf("Add: %v", err)
	}

	passages, err := ix.Retrieve(context.Background(), "delivery time", 2)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(passages) == 0 {
		t.Fatalf("expected hits")
	}
	if passages[0].Title != "shipping.txt" {
		t.Fatalf("expected vector side to pull shipping chunk first, got %+v", passages[0])
	}
}

func TestRetrieveEmbedderFailureFallsBackToBM25(t *testing.T) {
	emb := &stubEmbedder{err: fmt.Errorf("embedding endpoint down")}
	ix, err := Open("", emb)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer ix.Close()

	if err := ix.Add(testChunks(), nil); err != nil {
		t.Fatalf("Add: %v", err)
	}
	passages, err := ix.Retrieve(context.Background(), "refund", 2)
	if err != nil {
		t.Fatalf("Retrieve should fall back to BM25: %v", err)
	}
	if len(passages) == 0 {
		t.Fatalf("expected BM25 hits despite embedder failure")
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	ix, err := Open("", nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer ix.Close()

	if err := ix.Add(testChunks(), map[string][]float32{"a#000": {1, 0}}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := ix.Remove([]string{"a#000", "a#001"}); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if ix.Count() != 1 {
		t.Fatalf("expected 1 chunk left, got %d", ix.Count())
	}
	// Removing ids that are already gone must not fail.
	if err := ix.Remove([]string{"a#000", "never-there"}); err != nil {
		t.Fatalf("repeat Remove: %v", err)
	}

	passages, err := ix.Retrieve(context.Background(), "refund", 2)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	for _, p := range passages {
		if p.Title == "policy.txt" {
			t.Fatalf("removed chunks still retrievable: %+v", p)
		}
	}
}

func TestFuseRRFOrdersByCombinedRank(t *testing.T) {
	a := []searchHit{{chunkID: "x", rank: 1}, {chunkID: "y", rank: 2}}
	b := []searchHit{{chunkID: "y", rank: 1}, {chunkID: "z", rank: 2}}

	fused := fuseRRF(a, b, 3)
	if len(fused) != 3 {
		t.Fatalf("expected 3 fused hits got %d", len(fused))
	}
	// y appears in both lists and must come out on top.
	if fused[0].chunkID != "y" {
		t.Fatalf("expected y first, got %s", fused[0].chunkID)
	}
	if fused[0].rank != 1 || fused[2].rank != 3 {
		t.Fatalf("ranks not reassigned: %+v", fused)
	}
}

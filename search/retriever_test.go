package search

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/clipmind/clipmind/index"
	"github.com/stretchr/testify/assert"
)

type stubEmbedder struct {
	vectors map[string][]float32
	fail    bool
}

func (m *stubEmbedder) GetEmbedding(_ context.Context, text string) ([]float32, error) {
	if m.fail {
		return nil, errors.New("embedding backend down")
	}
	for key, vec := range m.vectors {
		if strings.Contains(text, key) {
			return vec, nil
		}
	}
	return []float32{1, 0, 0}, nil
}

func ingestFixture(t *testing.T, store *index.Store, embedder *stubEmbedder) {
	t.Helper()
	pipeline := index.NewPipeline(index.ProvideChunker(300, 50), embedder, store)
	_, err := pipeline.Ingest(context.Background(), "vid-1", []index.TranscriptSegment{
		{Text: "deploying services with kubernetes", StartTS: 0, EndTS: 12},
		{Text: "kubernetes autoscaling in depth", StartTS: 12, EndTS: 24},
		{Text: "a recipe for sourdough bread", StartTS: 24, EndTS: 36},
	}, nil)
	if err != nil {
		t.Fatalf("Fixture ingest failed: %v", err)
	}
}

func TestSearchEmptyStoreReturnsNoResults(t *testing.T) {
	store := index.NewStore()
	retriever := NewRetriever(store, &stubEmbedder{}, Options{})

	results, err := retriever.Search(context.Background(), "unknown-video", "anything", 5)
	assert.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchReturnsOnlyOwnVideoChunks(t *testing.T) {
	store := index.NewStore()
	embedder := &stubEmbedder{}
	pipeline := index.NewPipeline(index.ProvideChunker(300, 50), embedder, store)
	ctx := context.Background()

	_, err := pipeline.Ingest(ctx, "vid-a",
		[]index.TranscriptSegment{{Text: "shared keyword topic", StartTS: 0, EndTS: 5}}, nil)
	assert.NoError(t, err)
	_, err = pipeline.Ingest(ctx, "vid-b",
		[]index.TranscriptSegment{{Text: "shared keyword topic", StartTS: 0, EndTS: 5}}, nil)
	assert.NoError(t, err)

	retriever := NewRetriever(store, embedder, Options{})
	results, err := retriever.Search(ctx, "vid-a", "shared keyword", 10)
	assert.NoError(t, err)

	for _, r := range results {
		assert.Equal(t, "vid-a", r.Chunk.VideoID)
	}
}

func TestSearchFusesBothEngines(t *testing.T) {
	store := index.NewStore()
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"autoscaling": {0, 1, 0},
		"sourdough":   {0, 0, 1},
	}}
	ingestFixture(t, store, embedder)

	// Query embedding matches the autoscaling chunk; the term "kubernetes"
	// matches two chunks. The chunk ranked by both engines must come first.
	embedder.vectors["kubernetes autoscaling question"] = []float32{0, 1, 0}
	retriever := NewRetriever(store, embedder, Options{})

	results, err := retriever.Search(context.Background(), "vid-1", "kubernetes autoscaling question", 3)
	assert.NoError(t, err)
	if len(results) == 0 {
		t.Fatal("Expected fused results")
	}
	assert.Contains(t, results[0].Chunk.Text, "autoscaling")

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].FusedScore, results[i].FusedScore,
			"Results must be ordered by fused score")
	}
}

func TestSearchTopKTruncates(t *testing.T) {
	store := index.NewStore()
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"kubernetes": {0, 1, 0},
	}}
	ingestFixture(t, store, embedder)

	retriever := NewRetriever(store, embedder, Options{})
	results, err := retriever.Search(context.Background(), "vid-1", "kubernetes", 2)
	assert.NoError(t, err)
	assert.LessOrEqual(t, len(results), 2)

	// The bread chunk matches neither engine strongly; it must not displace
	// the two kubernetes chunks.
	for _, r := range results {
		assert.NotContains(t, r.Chunk.Text, "sourdough")
	}
}

func TestSearchDegradesToKeywordOnEmbedFailure(t *testing.T) {
	store := index.NewStore()
	embedder := &stubEmbedder{}
	ingestFixture(t, store, embedder)

	embedder.fail = true
	retriever := NewRetriever(store, embedder, Options{})

	results, err := retriever.Search(context.Background(), "vid-1", "kubernetes", 5)
	assert.NoError(t, err, "Embed failure must not fail the query")
	if len(results) == 0 {
		t.Fatal("Keyword-only fallback should still return matches")
	}
	for _, r := range results {
		assert.Contains(t, strings.ToLower(r.Chunk.Text), "kubernetes")
	}
}

func TestFuseDeterministicTieBreak(t *testing.T) {
	a := &index.Chunk{ChunkID: "aaa", StartTS: 10}
	b := &index.Chunk{ChunkID: "bbb", StartTS: 10}

	// Same single-engine rank profile by symmetry: a ranked 1 by text, b
	// ranked 1 by vector, equal weights.
	fused := fuse(
		[]index.Hit{{Chunk: a, Score: 1}},
		[]index.Hit{{Chunk: b, Score: 1}},
		Options{TextWeight: 1, VectorWeight: 1, RRFK: 60},
	)

	if len(fused) != 2 {
		t.Fatalf("Expected 2 fused results, got %d", len(fused))
	}
	assert.Equal(t, "aaa", fused[0].Chunk.ChunkID, "Equal scores tie-break on chunk id")
}

package search

import (
	"context"
	"sort"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/SaiNageswarS/go-collection-boot/async"
	"github.com/clipmind/clipmind/index"
	"github.com/clipmind/clipmind/llm"
	"go.uber.org/zap"
)

// Fusion parameters.
const (
	rrfK               = 60  // rank-damping constant from the RRF paper
	textSearchWeight   = 1.0 // per-engine weights
	vectorSearchWeight = 1.0
	textK              = 20 // # of hits to keep from each engine
	vecK               = 20
)

// ScoredChunk is one fused retrieval result.
type ScoredChunk struct {
	Chunk      *index.Chunk
	FusedScore float64
}

// Options tune the fusion. Zero values fall back to the defaults above.
type Options struct {
	TextWeight   float64
	VectorWeight float64
	RRFK         int
}

// Retriever fuses keyword and vector rankings over a video's index entry.
//
// Scores from the two engines live on different scales (BM25 vs cosine), so
// we fuse by rank, not by raw score:
//
//	fused(c) = w_kw / (k0 + rank_kw(c)) + w_vec / (k0 + rank_vec(c))
//
// A chunk ranked by only one engine keeps that engine's term alone; the
// missing rank contributes nothing. Relative rank is stable across index
// rebuilds and embedding retrains, which is exactly the property we need
// when merging heterogeneous lists.
type Retriever struct {
	store    *index.Store
	embedder llm.Embedder
	opts     Options
}

func NewRetriever(store *index.Store, embedder llm.Embedder, opts Options) *Retriever {
	if opts.TextWeight == 0 {
		opts.TextWeight = textSearchWeight
	}
	if opts.VectorWeight == 0 {
		opts.VectorWeight = vectorSearchWeight
	}
	if opts.RRFK == 0 {
		opts.RRFK = rrfK
	}
	return &Retriever{store: store, embedder: embedder, opts: opts}
}

// Search returns the fused top-k chunks for a query against one video.
// A video with no indexed chunks yields an empty result, not an error;
// callers must handle "no context" explicitly.
func (r *Retriever) Search(ctx context.Context, videoID, query string, topK int) ([]ScoredChunk, error) {
	entry, ok := r.store.Get(videoID)
	if !ok || entry.Len() == 0 {
		logger.Info("No index entry for video", zap.String("videoId", videoID))
		return nil, nil
	}

	// Fire the keyword search while the query embedding is computed.
	textTask := async.Go(func() ([]index.Hit, error) {
		return entry.TermSearch(query, textK), nil
	})

	emb, err := r.embedder.GetEmbedding(ctx, query)
	if err != nil {
		// Degrade to keyword-only rather than failing the whole query.
		logger.Error("Failed to embed query, falling back to keyword ranking", zap.Error(err))
		emb = nil
	}

	var vecHits []index.Hit
	if emb != nil {
		vecHits = entry.VectorSearch(emb, vecK)
	}

	textHits, _ := async.Await(textTask)

	fused := fuse(textHits, vecHits, r.opts)
	if topK > 0 && len(fused) > topK {
		fused = fused[:topK]
	}
	return fused, nil
}

// fuse converts each hit list to id→rank (1-based) and combines them with
// weighted reciprocal-rank fusion.
func fuse(textHits, vecHits []index.Hit, opts Options) []ScoredChunk {
	combined := make(map[string]*ScoredChunk)

	for i, h := range textHits {
		combined[h.Chunk.ChunkID] = &ScoredChunk{
			Chunk:      h.Chunk,
			FusedScore: opts.TextWeight / float64(opts.RRFK+i+1),
		}
	}
	for i, h := range vecHits {
		score := opts.VectorWeight / float64(opts.RRFK+i+1)
		if sc, seen := combined[h.Chunk.ChunkID]; seen {
			sc.FusedScore += score
		} else {
			combined[h.Chunk.ChunkID] = &ScoredChunk{Chunk: h.Chunk, FusedScore: score}
		}
	}

	out := make([]ScoredChunk, 0, len(combined))
	for _, sc := range combined {
		out = append(out, *sc)
	}

	// Ties break by earlier start timestamp, then lower chunk id.
	sort.Slice(out, func(i, j int) bool {
		if out[i].FusedScore != out[j].FusedScore {
			return out[i].FusedScore > out[j].FusedScore
		}
		if out[i].Chunk.StartTS != out[j].Chunk.StartTS {
			return out[i].Chunk.StartTS < out[j].Chunk.StartTS
		}
		return out[i].Chunk.ChunkID < out[j].Chunk.ChunkID
	})
	return out
}

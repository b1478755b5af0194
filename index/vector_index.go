package index

import "math"

// vectorIndex holds L2-normalized chunk embeddings and ranks by inner product
// (equivalent to cosine similarity). Brute force is fine at per-video scale.
type vectorIndex struct {
	vectors [][]float32
}

func buildVectorIndex(chunks []Chunk) *vectorIndex {
	idx := &vectorIndex{vectors: make([][]float32, len(chunks))}
	for i, c := range chunks {
		idx.vectors[i] = normalize(c.Embedding)
	}
	return idx
}

func (idx *vectorIndex) search(chunks []Chunk, query []float32, limit int) []Hit {
	if len(chunks) == 0 || len(query) == 0 {
		return nil
	}
	q := normalize(query)

	hits := make([]Hit, 0, len(chunks))
	for i := range chunks {
		if len(idx.vectors[i]) == 0 {
			continue
		}
		hits = append(hits, Hit{Chunk: &chunks[i], Score: dot(idx.vectors[i], q)})
	}
	sortHits(hits)

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

func dot(a, b []float32) float64 {
	n := min(len(a), len(b))
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

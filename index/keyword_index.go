package index

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// BM25 parameters.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// keywordIndex is an inverted index over chunk text scored with BM25.
// It is built once per ingest and never mutated afterwards.
type keywordIndex struct {
	postings  map[string]map[int]int // term -> chunk ordinal -> term frequency
	docLens   []int
	avgDocLen float64
}

func buildKeywordIndex(chunks []Chunk) *keywordIndex {
	idx := &keywordIndex{
		postings: make(map[string]map[int]int),
		docLens:  make([]int, len(chunks)),
	}

	totalLen := 0
	for i, c := range chunks {
		terms := tokenize(c.Text)
		idx.docLens[i] = len(terms)
		totalLen += len(terms)
		for _, t := range terms {
			if idx.postings[t] == nil {
				idx.postings[t] = make(map[int]int)
			}
			idx.postings[t][i]++
		}
	}
	if len(chunks) > 0 {
		idx.avgDocLen = float64(totalLen) / float64(len(chunks))
	}
	return idx
}

// search scores every chunk containing at least one query term and returns the
// top limit ordinals with their BM25 scores, best first.
func (idx *keywordIndex) search(chunks []Chunk, query string, limit int) []Hit {
	n := len(chunks)
	if n == 0 {
		return nil
	}

	scores := make(map[int]float64)
	for _, term := range tokenize(query) {
		docs, ok := idx.postings[term]
		if !ok {
			continue
		}
		df := len(docs)
		idf := math.Log(1 + (float64(n)-float64(df)+0.5)/(float64(df)+0.5))
		for ord, tf := range docs {
			norm := 1 - bm25B + bm25B*float64(idx.docLens[ord])/idx.avgDocLen
			scores[ord] += idf * float64(tf) * (bm25K1 + 1) / (float64(tf) + bm25K1*norm)
		}
	}

	hits := make([]Hit, 0, len(scores))
	for ord, score := range scores {
		hits = append(hits, Hit{Chunk: &chunks[ord], Score: score})
	}
	sortHits(hits)

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// Hit is one ranked chunk from a single engine.
type Hit struct {
	Chunk *Chunk
	Score float64
}

// sortHits orders by score descending; ties break by earlier start timestamp,
// then by lower chunk id, so rankings are deterministic.
func sortHits(hits []Hit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].Chunk.StartTS != hits[j].Chunk.StartTS {
			return hits[i].Chunk.StartTS < hits[j].Chunk.StartTS
		}
		return hits[i].Chunk.ChunkID < hits[j].Chunk.ChunkID
	})
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

package index

import (
	"context"
	"fmt"
	"sync"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/SaiNageswarS/go-collection-boot/async"
	"github.com/clipmind/clipmind/llm"
	"go.uber.org/zap"
)

// Entry is the immutable pair of keyword and vector indexes for one video.
// Both indexes are built before the entry becomes visible to readers, so a
// query never observes a half-indexed video.
type Entry struct {
	VideoID string
	chunks  []Chunk
	keyword *keywordIndex
	vector  *vectorIndex
}

// TermSearch ranks chunks by BM25 relevance to the query.
func (e *Entry) TermSearch(query string, limit int) []Hit {
	return e.keyword.search(e.chunks, query, limit)
}

// VectorSearch ranks chunks by cosine similarity to the query embedding.
func (e *Entry) VectorSearch(embedding []float32, limit int) []Hit {
	return e.vector.search(e.chunks, embedding, limit)
}

// Chunks returns the full chunk set in ingestion order. The slice is shared;
// callers must not mutate it.
func (e *Entry) Chunks() []Chunk {
	return e.chunks
}

// ChunkByID returns the chunk with the given id, if indexed.
func (e *Entry) ChunkByID(id string) (*Chunk, bool) {
	for i := range e.chunks {
		if e.chunks[i].ChunkID == id {
			return &e.chunks[i], true
		}
	}
	return nil, false
}

func (e *Entry) Len() int { return len(e.chunks) }

// Store maps video ids to their index entries. Entries are replaced by
// pointer swap: readers hold either the old complete entry or the new one,
// never a mix. This is the copy-on-write policy from the concurrency model.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

func NewStore() *Store {
	return &Store{entries: make(map[string]*Entry)}
}

func (s *Store) Get(videoID string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[videoID]
	return e, ok
}

// Put publishes a fully built entry, replacing any prior entry for the video.
func (s *Store) Put(e *Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.VideoID] = e
}

// Delete drops a video's entry when its session is cleared.
func (s *Store) Delete(videoID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, videoID)
}

// Pipeline chunks extraction output, embeds every chunk and builds both
// indexes in one atomic publish. Re-ingestion for the same video id fully
// replaces the prior entry; there is no incremental merge.
type Pipeline struct {
	chunker  *Chunker
	embedder llm.Embedder
	store    *Store
}

func NewPipeline(chunker *Chunker, embedder llm.Embedder, store *Store) *Pipeline {
	return &Pipeline{chunker: chunker, embedder: embedder, store: store}
}

func (p *Pipeline) Ingest(ctx context.Context, videoID string, segments []TranscriptSegment, frames []FrameSummary) (*Entry, error) {
	transcriptChunks := p.chunker.ChunkTranscript(videoID, segments)
	frameChunks := p.chunker.ChunkFrameSummaries(videoID, frames)

	chunks := make([]Chunk, 0, len(transcriptChunks)+len(frameChunks))
	chunks = append(chunks, transcriptChunks...)
	chunks = append(chunks, frameChunks...)
	for i := range chunks {
		chunks[i].Seq = i
	}

	logger.Info("Ingesting video chunks",
		zap.String("videoId", videoID),
		zap.Int("transcriptChunks", len(transcriptChunks)),
		zap.Int("frameChunks", len(frameChunks)))

	// Embed all chunks before anything is published. A single embedding
	// failure aborts the whole ingest so readers never see a partial index.
	embedTasks := make([]<-chan async.Result[[]float32], len(chunks))
	for i := range chunks {
		text := chunks[i].Text
		embedTasks[i] = async.Go(func() ([]float32, error) {
			return p.embedder.GetEmbedding(ctx, text)
		})
	}

	embeddings, err := async.AwaitAll(embedTasks...)
	if err != nil {
		logger.Error("Failed to embed chunks", zap.String("videoId", videoID), zap.Error(err))
		return nil, fmt.Errorf("embed chunks for %s: %w", videoID, err)
	}
	for i := range chunks {
		chunks[i].Embedding = embeddings[i]
	}

	entry := &Entry{
		VideoID: videoID,
		chunks:  chunks,
		keyword: buildKeywordIndex(chunks),
		vector:  buildVectorIndex(chunks),
	}

	p.store.Put(entry)
	logger.Info("Index entry published", zap.String("videoId", videoID), zap.Int("chunks", len(chunks)))
	return entry, nil
}

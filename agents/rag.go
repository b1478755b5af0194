package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/clipmind/clipmind/llm"
	"github.com/clipmind/clipmind/prompts"
	"github.com/clipmind/clipmind/search"
	"go.uber.org/zap"
)

// NoRelevantContentAnswer is returned when retrieval finds nothing; the agent
// must say so rather than hallucinate.
const NoRelevantContentAnswer = "No relevant content found in the video for this question."

// RAGAgent answers questions about a video grounded in retrieved chunks.
type RAGAgent struct {
	retriever *search.Retriever
	llmClient llm.LLMClient
	topK      int
}

func NewRAGAgent(retriever *search.Retriever, llmClient llm.LLMClient, topK int) *RAGAgent {
	if topK <= 0 {
		topK = 5
	}
	return &RAGAgent{retriever: retriever, llmClient: llmClient, topK: topK}
}

func (a *RAGAgent) Kind() Kind { return KindRAG }

func (a *RAGAgent) Handle(ctx context.Context, req *Request) (*Response, error) {
	results, err := a.retriever.Search(ctx, req.VideoID, req.Query, a.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieval: %w", err)
	}

	if len(results) == 0 {
		logger.Info("Retrieval returned no chunks",
			zap.String("videoId", req.VideoID), zap.String("query", req.Query))
		return &Response{Agent: KindRAG, Answer: NoRelevantContentAnswer}, nil
	}

	systemPrompt, err := prompts.RenderRAGAnswerPrompt(buildDocContext(results))
	if err != nil {
		return nil, err
	}

	answer, err := llm.GenerateText(ctx, a.llmClient,
		[]llm.Message{{Role: "user", Content: req.Query}},
		llm.WithSystemPrompt(systemPrompt),
		llm.WithTemperature(0.3))
	if err != nil {
		logger.Error("RAG answer generation failed", zap.Error(err))
		return nil, err
	}

	citations := make([]Citation, 0, len(results))
	for _, r := range results {
		citations = append(citations, Citation{
			ChunkID: r.Chunk.ChunkID,
			StartTS: r.Chunk.StartTS,
			EndTS:   r.Chunk.EndTS,
			Source:  r.Chunk.Source,
		})
	}

	return &Response{Agent: KindRAG, Answer: answer, Citations: citations}, nil
}

// buildDocContext formats retrieved chunks into the context blocks the answer
// prompt expects, each tagged with its source and time range.
func buildDocContext(results []search.ScoredChunk) string {
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "### Segment [%.0fs-%.0fs] (%s, score %.4f)\n%s\n",
			r.Chunk.StartTS, r.Chunk.EndTS, r.Chunk.Source, r.FusedScore, r.Chunk.Text)
		b.WriteString("------------------------------------------------------------\n")
	}
	return b.String()
}

package agents

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/clipmind/clipmind/index"
	"github.com/clipmind/clipmind/llm"
	"github.com/clipmind/clipmind/prompts"
	"go.uber.org/zap"
)

// NothingToSummarizeAnswer is returned when the video has no indexed
// transcript content.
const NothingToSummarizeAnswer = "No relevant information found to summarize."

// SummaryAgent produces a whole-video summary from the full ordered chunk
// set, not a retrieved top-k.
type SummaryAgent struct {
	store     *index.Store
	llmClient llm.LLMClient
}

func NewSummaryAgent(store *index.Store, llmClient llm.LLMClient) *SummaryAgent {
	return &SummaryAgent{store: store, llmClient: llmClient}
}

func (a *SummaryAgent) Kind() Kind { return KindSummary }

func (a *SummaryAgent) Handle(ctx context.Context, req *Request) (*Response, error) {
	entry, ok := a.store.Get(req.VideoID)
	if !ok || entry.Len() == 0 {
		logger.Info("No indexed content to summarize", zap.String("videoId", req.VideoID))
		return &Response{Agent: KindSummary, Answer: NothingToSummarizeAnswer}, nil
	}

	// Transcript chunks only, in playback order; frame summaries repeat the
	// same spans visually and would double-weight them.
	chunks := make([]index.Chunk, 0, entry.Len())
	for _, c := range entry.Chunks() {
		if c.Source == index.SourceTranscript {
			chunks = append(chunks, c)
		}
	}
	if len(chunks) == 0 {
		return &Response{Agent: KindSummary, Answer: NothingToSummarizeAnswer}, nil
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Seq < chunks[j].Seq })

	var b strings.Builder
	for _, c := range chunks {
		fmt.Fprintf(&b, "[%.0fs-%.0fs] %s\n\n", c.StartTS, c.EndTS, c.Text)
	}

	systemPrompt, err := prompts.RenderSummaryPrompt()
	if err != nil {
		return nil, err
	}

	answer, err := llm.GenerateText(ctx, a.llmClient,
		[]llm.Message{{Role: "user", Content: b.String()}},
		llm.WithSystemPrompt(systemPrompt),
		llm.WithTemperature(0.3))
	if err != nil {
		logger.Error("Summary generation failed", zap.Error(err))
		return nil, err
	}

	return &Response{Agent: KindSummary, Answer: answer}, nil
}

package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/clipmind/clipmind/llm"
	"github.com/clipmind/clipmind/prompts"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReportAgent composes the whole-video summary and the session's Q&A history
// into a structured markdown document. Rendering the document (PDF etc.) is
// delegated to an external collaborator via the returned handle.
type ReportAgent struct {
	summary   *SummaryAgent
	llmClient llm.LLMClient
}

func NewReportAgent(summary *SummaryAgent, llmClient llm.LLMClient) *ReportAgent {
	return &ReportAgent{summary: summary, llmClient: llmClient}
}

func (a *ReportAgent) Kind() Kind { return KindReport }

func (a *ReportAgent) Handle(ctx context.Context, req *Request) (*Response, error) {
	// Step 1: whole-video summary.
	summaryResp, err := a.summary.Handle(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("summary step: %w", err)
	}
	if summaryResp.Answer == NothingToSummarizeAnswer {
		return &Response{Agent: KindReport, Answer: summaryResp.Answer}, nil
	}

	// Step 2: turn summary + Q&A history into a structured document.
	var b strings.Builder
	b.WriteString("Summary:\n")
	b.WriteString(summaryResp.Answer)
	b.WriteString("\n\nQuestion/answer history:\n")
	if len(req.PriorTurns) == 0 {
		b.WriteString("(none)\n")
	}
	for _, turn := range req.PriorTurns {
		fmt.Fprintf(&b, "Q: %s\nA: %s\n\n", turn.UserInput, turn.Answer)
	}

	systemPrompt, err := prompts.RenderReportPrompt(req.VideoID)
	if err != nil {
		return nil, err
	}

	markdown, err := llm.GenerateText(ctx, a.llmClient,
		[]llm.Message{{Role: "user", Content: b.String()}},
		llm.WithSystemPrompt(systemPrompt),
		llm.WithTemperature(0.3))
	if err != nil {
		logger.Error("Report generation failed", zap.Error(err))
		return nil, err
	}

	handle := fmt.Sprintf("report://%s/%s", req.VideoID, uuid.New().String())
	logger.Info("Report document composed",
		zap.String("videoId", req.VideoID), zap.String("handle", handle))

	return &Response{Agent: KindReport, Answer: markdown, DocumentURI: handle}, nil
}

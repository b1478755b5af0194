package agents

import (
	"context"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/clipmind/clipmind/llm"
	"go.uber.org/zap"
)

// GeneralAgent answers questions that need no video context.
type GeneralAgent struct {
	llmClient llm.LLMClient
}

func NewGeneralAgent(llmClient llm.LLMClient) *GeneralAgent {
	return &GeneralAgent{llmClient: llmClient}
}

func (a *GeneralAgent) Kind() Kind { return KindGeneral }

func (a *GeneralAgent) Handle(ctx context.Context, req *Request) (*Response, error) {
	messages := make([]llm.Message, 0, len(req.PriorTurns)*2+1)
	for _, turn := range req.PriorTurns {
		messages = append(messages,
			llm.Message{Role: "user", Content: turn.UserInput},
			llm.Message{Role: "assistant", Content: turn.Answer})
	}
	messages = append(messages, llm.Message{Role: "user", Content: req.Query})

	answer, err := llm.GenerateText(ctx, a.llmClient, messages,
		llm.WithSystemPrompt("You are a helpful assistant for a video analysis application."))
	if err != nil {
		logger.Error("General agent inference failed", zap.Error(err))
		return nil, err
	}

	return &Response{Agent: KindGeneral, Answer: answer}, nil
}

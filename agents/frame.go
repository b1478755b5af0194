package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/SaiNageswarS/go-collection-boot/async"
	"github.com/clipmind/clipmind/index"
	"github.com/clipmind/clipmind/llm"
	"github.com/clipmind/clipmind/prompts"
	"github.com/clipmind/clipmind/tools"
	"go.uber.org/zap"
)

// FrameProcessingAgent drives the visual branch: extract grouped frames from
// the video, then have the vision model describe each group.
type FrameProcessingAgent struct {
	gateway     *tools.Gateway
	vision      llm.LLMClient
	callTimeout time.Duration
}

func NewFrameProcessingAgent(gateway *tools.Gateway, vision llm.LLMClient, callTimeout time.Duration) *FrameProcessingAgent {
	return &FrameProcessingAgent{gateway: gateway, vision: vision, callTimeout: callTimeout}
}

func (a *FrameProcessingAgent) Kind() Kind { return KindFrameProcessing }

func (a *FrameProcessingAgent) Handle(ctx context.Context, req *Request) (*Response, error) {
	result, err := a.gateway.Invoke(ctx, tools.ToolCall{
		Tool:    tools.ToolFrameExtract,
		VideoID: req.VideoID,
		Params:  map[string]any{"media_uri": req.MediaURI},
		Timeout: a.callTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("frame extraction: %w", err)
	}

	logger.Info("Frames extracted",
		zap.String("videoId", req.VideoID), zap.Int("groups", len(result.Frames)))

	summaries, err := SummarizeFrameGroups(ctx, a.vision, result.Frames)
	if err != nil {
		return nil, fmt.Errorf("frame summarization: %w", err)
	}

	return &Response{
		Agent:          KindFrameProcessing,
		FrameSummaries: summaries,
	}, nil
}

// SummarizeFrameGroups asks the vision model to describe every frame group in
// parallel. One failed group fails the whole batch; the workflow owns retries
// at the job level.
func SummarizeFrameGroups(ctx context.Context, vision llm.LLMClient, groups []tools.FrameGroup) ([]index.FrameSummary, error) {
	tasks := make([]<-chan async.Result[index.FrameSummary], len(groups))
	for i, group := range groups {
		g := group
		tasks[i] = async.Go(func() (index.FrameSummary, error) {
			prompt, err := prompts.RenderFrameSummaryPrompt(g.StartTS, g.EndTS, g.URI)
			if err != nil {
				return index.FrameSummary{}, err
			}

			summary, err := llm.GenerateText(ctx, vision,
				[]llm.Message{{Role: "user", Content: prompt}},
				llm.WithTemperature(0.3))
			if err != nil {
				return index.FrameSummary{}, err
			}

			return index.FrameSummary{
				Summary: summary,
				StartTS: g.StartTS,
				EndTS:   g.EndTS,
			}, nil
		})
	}

	return async.AwaitAll(tasks...)
}

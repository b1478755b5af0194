package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/clipmind/clipmind/tools"
	"go.uber.org/zap"
)

// AudioProcessingAgent drives the audio branch: extract the audio track from
// the uploaded video, then transcribe it into timed segments.
type AudioProcessingAgent struct {
	gateway     *tools.Gateway
	callTimeout time.Duration
}

func NewAudioProcessingAgent(gateway *tools.Gateway, callTimeout time.Duration) *AudioProcessingAgent {
	return &AudioProcessingAgent{gateway: gateway, callTimeout: callTimeout}
}

func (a *AudioProcessingAgent) Kind() Kind { return KindAudioProcessing }

func (a *AudioProcessingAgent) Handle(ctx context.Context, req *Request) (*Response, error) {
	extractResult, err := a.gateway.Invoke(ctx, tools.ToolCall{
		Tool:    tools.ToolAudioExtract,
		VideoID: req.VideoID,
		Params:  map[string]any{"media_uri": req.MediaURI},
		Timeout: a.callTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("audio extraction: %w", err)
	}

	logger.Info("Audio track extracted",
		zap.String("videoId", req.VideoID), zap.String("audioUri", extractResult.OutputURI))

	transcribeResult, err := a.gateway.Invoke(ctx, tools.ToolCall{
		Tool:    tools.ToolTranscribe,
		VideoID: req.VideoID,
		Params:  map[string]any{"audio_uri": extractResult.OutputURI},
		Timeout: a.callTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("transcription: %w", err)
	}

	logger.Info("Transcription complete",
		zap.String("videoId", req.VideoID), zap.Int("segments", len(transcribeResult.Transcript)))

	return &Response{
		Agent:      KindAudioProcessing,
		Transcript: transcribeResult.Transcript,
	}, nil
}

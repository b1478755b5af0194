package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/SaiNageswarS/go-collection-boot/async"
	"github.com/clipmind/clipmind/agents"
	"github.com/clipmind/clipmind/index"
	"github.com/clipmind/clipmind/llm"
	"github.com/clipmind/clipmind/tools"
	"go.uber.org/zap"
)

const (
	defaultCallTimeout = 5 * time.Minute
	defaultBusyRetries = 5
	defaultBusyBackoff = 2 * time.Second
)

// Orchestrator runs the video processing pipeline as an explicit state
// machine: queued, extracting_audio, extracting_frames (concurrent branches),
// transcribing, summarizing, indexing, ready. Any step failure moves the job
// to failed with the originating step recorded.
type Orchestrator struct {
	gateway  *tools.Gateway
	vision   llm.LLMClient
	pipeline *index.Pipeline
	jobs     Store

	callTimeout time.Duration
	busyRetries int
	busyBackoff time.Duration

	mu      sync.Mutex
	running map[string]bool
	cancels map[string]chan struct{}
}

type OrchestratorOption func(*Orchestrator)

func WithCallTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.callTimeout = d }
}

func WithBusyRetry(attempts int, backoff time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		o.busyRetries = attempts
		o.busyBackoff = backoff
	}
}

func ProvideOrchestrator(gateway *tools.Gateway, vision llm.LLMClient, pipeline *index.Pipeline, jobs Store, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		gateway:     gateway,
		vision:      vision,
		pipeline:    pipeline,
		jobs:        jobs,
		callTimeout: defaultCallTimeout,
		busyRetries: defaultBusyRetries,
		busyBackoff: defaultBusyBackoff,
		running:     make(map[string]bool),
		cancels:     make(map[string]chan struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start launches the pipeline for a job. Starting a running or terminal job
// is a no-op returning its current state. A job persisted in an intermediate
// state with no run in this process was stranded by a restart; it is
// re-queued and runs from the beginning, since the in-memory index it was
// building died with the old process. The returned channel resolves with the
// job's terminal state.
func (o *Orchestrator) Start(ctx context.Context, jobID string) (<-chan async.Result[State], error) {
	job, err := o.jobs.FindOneByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	if o.running[jobID] || job.State.Terminal() {
		o.mu.Unlock()
		state := job.State
		return async.Go(func() (State, error) { return state, nil }), nil
	}
	if job.State != StateQueued {
		logger.Info("Re-queueing stranded job",
			zap.String("jobId", job.ID), zap.String("previousState", string(job.State)))
		job.State = StateQueued
		job.StepHistory = nil
		job.FailedStep = ""
		job.Err = ""
	}
	cancel := make(chan struct{})
	o.running[jobID] = true
	o.cancels[jobID] = cancel
	o.mu.Unlock()

	return async.Go(func() (State, error) {
		defer func() {
			o.mu.Lock()
			delete(o.running, jobID)
			delete(o.cancels, jobID)
			o.mu.Unlock()
		}()
		return o.run(ctx, job, cancel)
	}), nil
}

// Cancel requests a best-effort stop. The in-flight step drains; the job is
// failed with reason cancelled before the next step begins. Cancelling a
// terminal or unknown job is a no-op.
func (o *Orchestrator) Cancel(jobID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if cancel, ok := o.cancels[jobID]; ok {
		select {
		case <-cancel:
		default:
			close(cancel)
		}
	}
}

// Status returns the job's current persisted state.
func (o *Orchestrator) Status(ctx context.Context, jobID string) (*Job, error) {
	return o.jobs.FindOneByID(ctx, jobID)
}

func (o *Orchestrator) run(ctx context.Context, job *Job, cancel <-chan struct{}) (State, error) {
	logger.Info("Workflow started",
		zap.String("jobId", job.ID), zap.String("videoId", job.VideoID))

	// Both extraction branches launch together. Audio is awaited first, so
	// the observable state passes through extracting_audio before
	// extracting_frames even while the calls overlap.
	o.transition(ctx, job, StateExtractingAudio)

	job.beginStep(StepExtractAudio)
	job.beginStep(StepExtractFrames)
	o.save(ctx, job)

	audioTask := async.Go(func() (*tools.ToolResult, error) {
		return o.invokeWithBusyRetry(ctx, tools.ToolCall{
			Tool:    tools.ToolAudioExtract,
			VideoID: job.VideoID,
			Params:  map[string]any{"media_uri": job.MediaURI},
			Timeout: o.callTimeout,
		})
	})
	framesTask := async.Go(func() (*tools.ToolResult, error) {
		return o.invokeWithBusyRetry(ctx, tools.ToolCall{
			Tool:    tools.ToolFrameExtract,
			VideoID: job.VideoID,
			Params:  map[string]any{"media_uri": job.MediaURI},
			Timeout: o.callTimeout,
		})
	})

	audioResult, audioErr := async.Await(audioTask)
	job.endStep(StepExtractAudio, audioErr)
	if audioErr == nil {
		o.transition(ctx, job, StateExtractingFrames)
	}

	framesResult, framesErr := async.Await(framesTask)
	job.endStep(StepExtractFrames, framesErr)

	if cancelled(cancel) {
		// Audio is awaited first; once it succeeded the frames branch was the
		// one still in flight when the cancel landed.
		step := StepExtractAudio
		if audioErr == nil {
			step = StepExtractFrames
		}
		return o.fail(ctx, job, step, errors.New(CancelledReason))
	}
	if audioErr != nil {
		return o.fail(ctx, job, StepExtractAudio, audioErr)
	}
	if framesErr != nil {
		return o.fail(ctx, job, StepExtractFrames, framesErr)
	}

	// Transcription requires the extracted audio artifact.
	o.transition(ctx, job, StateTranscribing)
	job.beginStep(StepTranscribe)
	o.save(ctx, job)

	transcribeResult, err := o.invokeWithBusyRetry(ctx, tools.ToolCall{
		Tool:    tools.ToolTranscribe,
		VideoID: job.VideoID,
		Params:  map[string]any{"audio_uri": audioResult.OutputURI},
		Timeout: o.callTimeout,
	})
	job.endStep(StepTranscribe, err)
	if cancelled(cancel) {
		return o.fail(ctx, job, StepTranscribe, errors.New(CancelledReason))
	}
	if err != nil {
		return o.fail(ctx, job, StepTranscribe, err)
	}

	// Vision summaries for every extracted frame group.
	o.transition(ctx, job, StateSummarizing)
	job.beginStep(StepSummarize)
	o.save(ctx, job)

	frameSummaries, err := agents.SummarizeFrameGroups(ctx, o.vision, framesResult.Frames)
	job.endStep(StepSummarize, err)
	if cancelled(cancel) {
		return o.fail(ctx, job, StepSummarize, errors.New(CancelledReason))
	}
	if err != nil {
		return o.fail(ctx, job, StepSummarize, err)
	}

	// Chunk, embed and publish the searchable index atomically.
	o.transition(ctx, job, StateIndexing)
	job.beginStep(StepIndex)
	o.save(ctx, job)

	_, err = o.pipeline.Ingest(ctx, job.VideoID, transcribeResult.Transcript, frameSummaries)
	job.endStep(StepIndex, err)
	if cancelled(cancel) {
		return o.fail(ctx, job, StepIndex, errors.New(CancelledReason))
	}
	if err != nil {
		return o.fail(ctx, job, StepIndex, err)
	}

	o.transition(ctx, job, StateReady)
	logger.Info("Workflow completed",
		zap.String("jobId", job.ID), zap.String("videoId", job.VideoID))
	return StateReady, nil
}

// invokeWithBusyRetry retries Busy rejections with linear backoff. All other
// errors pass through; the gateway already retries transient failures.
func (o *Orchestrator) invokeWithBusyRetry(ctx context.Context, call tools.ToolCall) (*tools.ToolResult, error) {
	var result *tools.ToolResult
	var err error
	for attempt := 0; attempt <= o.busyRetries; attempt++ {
		result, err = o.gateway.Invoke(ctx, call)
		if err == nil || !tools.IsBusy(err) {
			return result, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(o.busyBackoff):
		}
	}
	return result, err
}

func (o *Orchestrator) transition(ctx context.Context, job *Job, state State) {
	job.State = state
	job.UpdatedAt = time.Now()
	o.save(ctx, job)
	logger.Info("Workflow state transition",
		zap.String("jobId", job.ID), zap.String("state", string(state)))
}

func (o *Orchestrator) fail(ctx context.Context, job *Job, step string, cause error) (State, error) {
	job.State = StateFailed
	job.FailedStep = step
	job.Err = cause.Error()
	job.UpdatedAt = time.Now()
	o.save(ctx, job)
	logger.Error("Workflow failed",
		zap.String("jobId", job.ID), zap.String("step", step), zap.Error(cause))
	return StateFailed, cause
}

func (o *Orchestrator) save(ctx context.Context, job *Job) {
	if err := o.jobs.Save(ctx, job); err != nil {
		logger.Error("Failed to persist job", zap.String("jobId", job.ID), zap.Error(err))
	}
}

func cancelled(cancel <-chan struct{}) bool {
	select {
	case <-cancel:
		return true
	default:
		return false
	}
}

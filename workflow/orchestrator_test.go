package workflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/SaiNageswarS/go-collection-boot/async"
	"github.com/clipmind/clipmind/index"
	"github.com/clipmind/clipmind/llm"
	"github.com/clipmind/clipmind/tools"
	"github.com/stretchr/testify/assert"
)

type fakeVision struct{}

func (f *fakeVision) GenerateInference(_ context.Context, _ []llm.Message, callback func(chunk string) error, _ ...llm.LLMOption) error {
	return callback("two people talking at a desk")
}

func (f *fakeVision) GetModel() string { return "fake-vision" }

type fakeEmbedder struct{}

func (f *fakeEmbedder) GetEmbedding(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

// toolTransport serves canned extraction results and records every call.
type toolTransport struct {
	mu    sync.Mutex
	calls []string

	failTool string
	failErr  error

	gate      chan struct{}
	gateTool  string
	started   chan struct{}
	startOnce sync.Once
}

func (t *toolTransport) Do(ctx context.Context, _ string, call tools.ToolCall) (*tools.ToolResult, error) {
	if t.gate != nil && call.Tool == t.gateTool {
		if t.started != nil {
			t.startOnce.Do(func() { close(t.started) })
		}
		select {
		case <-t.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	t.mu.Lock()
	t.calls = append(t.calls, call.Tool)
	t.mu.Unlock()

	if call.Tool == t.failTool {
		return nil, t.failErr
	}

	switch call.Tool {
	case tools.ToolAudioExtract:
		return &tools.ToolResult{Status: "ok", OutputURI: "audio://" + call.VideoID}, nil
	case tools.ToolFrameExtract:
		return &tools.ToolResult{Status: "ok", Frames: []tools.FrameGroup{
			{URI: "frames://" + call.VideoID + "/0", StartTS: 0, EndTS: 5},
			{URI: "frames://" + call.VideoID + "/1", StartTS: 5, EndTS: 10},
		}}, nil
	case tools.ToolTranscribe:
		return &tools.ToolResult{Status: "ok", Transcript: []index.TranscriptSegment{
			{Text: "hello and welcome", StartTS: 0, EndTS: 5},
			{Text: "today we cover indexes", StartTS: 5, EndTS: 10},
		}}, nil
	}
	return nil, &tools.ToolError{Tool: call.Tool, Code: tools.CodePermanent, Message: "unknown tool"}
}

func (t *toolTransport) called(tool string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, c := range t.calls {
		if c == tool {
			return true
		}
	}
	return false
}

func newTestOrchestrator(transport tools.Transport) (*Orchestrator, *MemoryStore, *index.Store) {
	gateway := tools.NewGateway(transport, map[string]string{
		tools.ToolAudioExtract: "http://audio",
		tools.ToolFrameExtract: "http://frames",
		tools.ToolTranscribe:   "http://transcribe",
	}, tools.WithBaseBackoff(time.Millisecond))

	store := index.NewStore()
	pipeline := index.NewPipeline(index.ProvideChunker(300, 50), &fakeEmbedder{}, store)
	jobs := NewMemoryStore()
	orch := ProvideOrchestrator(gateway, &fakeVision{}, pipeline, jobs,
		WithBusyRetry(2, time.Millisecond))
	return orch, jobs, store
}

func queueJob(t *testing.T, jobs *MemoryStore) *Job {
	t.Helper()
	job := NewJob("vid-1", "sess-1", "video://vid-1")
	if err := jobs.Save(context.Background(), job); err != nil {
		t.Fatalf("Failed to save job: %v", err)
	}
	return job
}

func TestRunHappyPath(t *testing.T) {
	transport := &toolTransport{}
	orch, jobs, store := newTestOrchestrator(transport)
	job := queueJob(t, jobs)

	task, err := orch.Start(context.Background(), job.ID)
	assert.NoError(t, err)

	state, err := async.Await(task)
	assert.NoError(t, err)
	assert.Equal(t, StateReady, state)

	saved, err := jobs.FindOneByID(context.Background(), job.ID)
	assert.NoError(t, err)
	assert.Equal(t, StateReady, saved.State)
	for _, step := range saved.StepHistory {
		assert.Equal(t, "done", step.Status, "Step %s should be done", step.Name)
	}

	entry, ok := store.Get("vid-1")
	if !ok {
		t.Fatal("Index entry not published after successful run")
	}

	var transcriptChunks, frameChunks int
	for _, c := range entry.Chunks() {
		switch c.Source {
		case index.SourceTranscript:
			transcriptChunks++
		case index.SourceFrameSummary:
			frameChunks++
		}
	}
	assert.Greater(t, transcriptChunks, 0, "Transcript chunks should be indexed")
	assert.Equal(t, 2, frameChunks, "One chunk per frame group")
}

func TestRunFrameBranchFailure(t *testing.T) {
	transport := &toolTransport{
		failTool: tools.ToolFrameExtract,
		failErr:  &tools.ToolError{Tool: tools.ToolFrameExtract, Code: tools.CodePermanent, Message: "corrupt container"},
	}
	orch, jobs, store := newTestOrchestrator(transport)
	job := queueJob(t, jobs)

	task, err := orch.Start(context.Background(), job.ID)
	assert.NoError(t, err)

	_, runErr := async.Await(task)
	assert.Error(t, runErr)

	saved, _ := jobs.FindOneByID(context.Background(), job.ID)
	assert.Equal(t, StateFailed, saved.State)
	assert.Equal(t, StepExtractFrames, saved.FailedStep)
	assert.NotEmpty(t, saved.Err)

	assert.False(t, transport.called(tools.ToolTranscribe),
		"Transcription must not run when a required branch failed")
	if _, ok := store.Get("vid-1"); ok {
		t.Error("No index entry should be published for a failed job")
	}
}

func TestRunAudioBranchFailure(t *testing.T) {
	transport := &toolTransport{
		failTool: tools.ToolAudioExtract,
		failErr:  &tools.ToolError{Tool: tools.ToolAudioExtract, Code: tools.CodePermanent, Message: "no audio stream"},
	}
	orch, jobs, _ := newTestOrchestrator(transport)
	job := queueJob(t, jobs)

	task, _ := orch.Start(context.Background(), job.ID)
	_, runErr := async.Await(task)
	assert.Error(t, runErr)

	saved, _ := jobs.FindOneByID(context.Background(), job.ID)
	assert.Equal(t, StateFailed, saved.State)
	assert.Equal(t, StepExtractAudio, saved.FailedStep)
}

func TestStartIsIdempotent(t *testing.T) {
	transport := &toolTransport{}
	orch, jobs, _ := newTestOrchestrator(transport)
	job := queueJob(t, jobs)

	task, err := orch.Start(context.Background(), job.ID)
	assert.NoError(t, err)
	state, err := async.Await(task)
	assert.NoError(t, err)
	assert.Equal(t, StateReady, state)

	callsAfterFirstRun := len(transport.calls)

	again, err := orch.Start(context.Background(), job.ID)
	assert.NoError(t, err)
	state, err = async.Await(again)
	assert.NoError(t, err)
	assert.Equal(t, StateReady, state, "Restart of a finished job reports its current state")
	assert.Equal(t, callsAfterFirstRun, len(transport.calls), "Restart must not re-run tool calls")
}

func TestStartUnknownJob(t *testing.T) {
	orch, _, _ := newTestOrchestrator(&toolTransport{})

	_, err := orch.Start(context.Background(), "no-such-job")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestCancelFailsJobBetweenSteps(t *testing.T) {
	gate := make(chan struct{})
	started := make(chan struct{})
	transport := &toolTransport{gate: gate, gateTool: tools.ToolAudioExtract, started: started}
	orch, jobs, _ := newTestOrchestrator(transport)
	job := queueJob(t, jobs)

	task, err := orch.Start(context.Background(), job.ID)
	assert.NoError(t, err)

	// Cancel while the audio extraction is in flight, then let it drain.
	<-started
	orch.Cancel(job.ID)
	close(gate)

	_, runErr := async.Await(task)
	assert.Error(t, runErr)

	saved, _ := jobs.FindOneByID(context.Background(), job.ID)
	assert.Equal(t, StateFailed, saved.State)
	assert.Equal(t, CancelledReason, saved.Err)
	assert.Equal(t, StepExtractAudio, saved.FailedStep)

	assert.False(t, transport.called(tools.ToolTranscribe),
		"No further steps may start after cancellation")
}

func TestCancelDuringFramesRecordsFramesStep(t *testing.T) {
	gate := make(chan struct{})
	started := make(chan struct{})
	transport := &toolTransport{gate: gate, gateTool: tools.ToolFrameExtract, started: started}
	orch, jobs, _ := newTestOrchestrator(transport)
	job := queueJob(t, jobs)

	task, err := orch.Start(context.Background(), job.ID)
	assert.NoError(t, err)

	// Audio completes on its own; cancel while frame extraction is the branch
	// still in flight.
	<-started
	orch.Cancel(job.ID)
	close(gate)

	_, runErr := async.Await(task)
	assert.Error(t, runErr)

	saved, _ := jobs.FindOneByID(context.Background(), job.ID)
	assert.Equal(t, StateFailed, saved.State)
	assert.Equal(t, CancelledReason, saved.Err)
	assert.Equal(t, StepExtractFrames, saved.FailedStep,
		"The failing step must be the one in flight when the cancel landed")
}

func TestStartRequeuesStrandedJob(t *testing.T) {
	transport := &toolTransport{}
	orch, jobs, store := newTestOrchestrator(transport)

	// A job left mid-pipeline by a dead process: persisted state is
	// intermediate but nothing is running here.
	job := NewJob("vid-1", "sess-1", "video://vid-1")
	job.State = StateTranscribing
	job.StepHistory = []Step{{Name: StepExtractAudio, Status: "done"}}
	assert.NoError(t, jobs.Save(context.Background(), job))

	task, err := orch.Start(context.Background(), job.ID)
	assert.NoError(t, err)

	state, err := async.Await(task)
	assert.NoError(t, err)
	assert.Equal(t, StateReady, state)

	saved, _ := jobs.FindOneByID(context.Background(), job.ID)
	assert.Equal(t, StateReady, saved.State)
	assert.True(t, transport.called(tools.ToolAudioExtract),
		"A re-queued job runs from the beginning")
	if _, ok := store.Get("vid-1"); !ok {
		t.Error("Re-run should publish the index entry")
	}
}

func TestStartDoesNotRequeueFailedJob(t *testing.T) {
	transport := &toolTransport{}
	orch, jobs, _ := newTestOrchestrator(transport)

	job := NewJob("vid-1", "sess-1", "video://vid-1")
	job.State = StateFailed
	job.Err = "corrupt container"
	assert.NoError(t, jobs.Save(context.Background(), job))

	task, err := orch.Start(context.Background(), job.ID)
	assert.NoError(t, err)

	state, err := async.Await(task)
	assert.NoError(t, err)
	assert.Equal(t, StateFailed, state, "Terminal jobs only report their state")
	assert.False(t, transport.called(tools.ToolAudioExtract))
}

func TestCancelUnknownJobIsNoop(t *testing.T) {
	orch, _, _ := newTestOrchestrator(&toolTransport{})
	orch.Cancel("no-such-job")
}

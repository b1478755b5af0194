package services

import (
	"context"
	"testing"
	"time"

	"github.com/clipmind/clipmind/index"
	"github.com/clipmind/clipmind/tools"
	"github.com/clipmind/clipmind/workflow"
	"github.com/stretchr/testify/assert"
)

type extractionTransport struct{}

func (t *extractionTransport) Do(_ context.Context, _ string, call tools.ToolCall) (*tools.ToolResult, error) {
	switch call.Tool {
	case tools.ToolAudioExtract:
		return &tools.ToolResult{Status: "ok", OutputURI: "audio://" + call.VideoID}, nil
	case tools.ToolFrameExtract:
		return &tools.ToolResult{Status: "ok", Frames: []tools.FrameGroup{
			{URI: "frames://0", StartTS: 0, EndTS: 5},
		}}, nil
	case tools.ToolTranscribe:
		return &tools.ToolResult{Status: "ok", Transcript: []index.TranscriptSegment{
			{Text: "welcome to the demo", StartTS: 0, EndTS: 5},
		}}, nil
	}
	return nil, &tools.ToolError{Tool: call.Tool, Code: tools.CodePermanent, Message: "unknown tool"}
}

func newTestUploadService() (*UploadService, *memSessions, *workflow.MemoryStore, *index.Store) {
	gateway := tools.NewGateway(&extractionTransport{}, map[string]string{
		tools.ToolAudioExtract: "http://audio",
		tools.ToolFrameExtract: "http://frames",
		tools.ToolTranscribe:   "http://transcribe",
	})

	store := index.NewStore()
	pipeline := index.NewPipeline(index.ProvideChunker(300, 50), &constEmbedder{}, store)
	jobs := workflow.NewMemoryStore()
	orch := workflow.ProvideOrchestrator(gateway, &cannedLLM{response: "a demo screen"}, pipeline, jobs)

	sessions := newMemSessions()
	return ProvideUploadService(sessions, jobs, orch), sessions, jobs, store
}

func TestUploadStartsProcessing(t *testing.T) {
	svc, sessions, jobs, store := newTestUploadService()
	ctx := context.Background()

	job, err := svc.Upload(ctx, "sess-1", "video://demo.mp4")
	assert.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.NotEmpty(t, job.VideoID)

	session, err := sessions.FindOneByID(ctx, "sess-1")
	assert.NoError(t, err)
	if session == nil {
		t.Fatal("Upload must create the session")
	}
	assert.Equal(t, job.VideoID, session.VideoID)
	assert.Equal(t, "video://demo.mp4", session.MediaURI)

	assert.Eventually(t, func() bool {
		saved, err := jobs.FindOneByID(ctx, job.ID)
		return err == nil && saved.State == workflow.StateReady
	}, 5*time.Second, 10*time.Millisecond, "Job should reach ready")

	if _, ok := store.Get(job.VideoID); !ok {
		t.Error("Index entry should be published once the job is ready")
	}
}

func TestSecondUploadReplacesSessionVideo(t *testing.T) {
	svc, sessions, jobs, _ := newTestUploadService()
	ctx := context.Background()

	first, err := svc.Upload(ctx, "sess-1", "video://one.mp4")
	assert.NoError(t, err)
	assert.Eventually(t, func() bool {
		saved, err := jobs.FindOneByID(ctx, first.ID)
		return err == nil && saved.State.Terminal()
	}, 5*time.Second, 10*time.Millisecond)

	second, err := svc.Upload(ctx, "sess-1", "video://two.mp4")
	assert.NoError(t, err)
	assert.NotEqual(t, first.VideoID, second.VideoID)

	session, _ := sessions.FindOneByID(ctx, "sess-1")
	assert.Equal(t, second.VideoID, session.VideoID)
	assert.Equal(t, "video://two.mp4", session.MediaURI)
}

func TestUploadStatus(t *testing.T) {
	svc, _, _, _ := newTestUploadService()
	ctx := context.Background()

	job, err := svc.Upload(ctx, "sess-1", "video://demo.mp4")
	assert.NoError(t, err)

	status, err := svc.Status(ctx, job.ID)
	assert.NoError(t, err)
	assert.Equal(t, job.ID, status.ID)

	_, err = svc.Status(ctx, "no-such-job")
	assert.ErrorIs(t, err, workflow.ErrJobNotFound)
}

package services

import (
	"context"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/SaiNageswarS/go-collection-boot/async"
	"github.com/clipmind/clipmind/db"
	"github.com/clipmind/clipmind/workflow"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionStore is the slice of the session repository the services need.
type SessionStore interface {
	Save(ctx context.Context, session *db.SessionModel) error
	FindOneByID(ctx context.Context, sessionID string) (*db.SessionModel, error)
}

// UploadService accepts a video for a session and kicks off the processing
// workflow. One video per session; a second upload replaces the first once
// its pipeline publishes a fresh index.
type UploadService struct {
	sessions     SessionStore
	jobs         workflow.Store
	orchestrator *workflow.Orchestrator
}

func ProvideUploadService(sessions SessionStore, jobs workflow.Store, orchestrator *workflow.Orchestrator) *UploadService {
	return &UploadService{sessions: sessions, jobs: jobs, orchestrator: orchestrator}
}

// Upload registers the media with the session, persists a queued job and
// starts it. The returned job is already past queued by the time the caller
// observes it only if the pipeline moved fast; callers poll Status.
func (s *UploadService) Upload(ctx context.Context, sessionID, mediaURI string) (*workflow.Job, error) {
	session, err := s.sessions.FindOneByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		session = db.NewSessionModel()
		session.ID = sessionID
	}

	videoID := uuid.New().String()
	session.VideoID = videoID
	session.MediaURI = mediaURI
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	job := workflow.NewJob(videoID, sessionID, mediaURI)
	if err := s.jobs.Save(ctx, job); err != nil {
		return nil, err
	}

	// The pipeline outlives the upload request.
	task, err := s.orchestrator.Start(context.WithoutCancel(ctx), job.ID)
	if err != nil {
		return nil, err
	}
	go func() { _, _ = async.Await(task) }()

	logger.Info("Upload accepted",
		zap.String("sessionId", sessionID), zap.String("videoId", videoID), zap.String("jobId", job.ID))
	return job, nil
}

// Status reports the current workflow state for a job.
func (s *UploadService) Status(ctx context.Context, jobID string) (*workflow.Job, error) {
	return s.jobs.FindOneByID(ctx, jobID)
}

// Cancel requests a best-effort stop of a running job.
func (s *UploadService) Cancel(jobID string) {
	s.orchestrator.Cancel(jobID)
}

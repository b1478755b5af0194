package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State of a workflow job. Transitions are one-directional except failed,
// which is reachable from any non-terminal state.
type State string

const (
	StateQueued           State = "queued"
	StateExtractingAudio  State = "extracting_audio"
	StateExtractingFrames State = "extracting_frames"
	StateTranscribing     State = "transcribing"
	StateSummarizing      State = "summarizing"
	StateIndexing         State = "indexing"
	StateReady            State = "ready"
	StateFailed           State = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateReady || s == StateFailed
}

// CancelledReason is recorded on jobs failed by cancellation.
const CancelledReason = "cancelled"

// Step names recorded in the job history.
const (
	StepExtractAudio  = "extract_audio"
	StepExtractFrames = "extract_frames"
	StepTranscribe    = "transcribe"
	StepSummarize     = "summarize_frames"
	StepIndex         = "index"
)

// Step is one entry in a job's history.
type Step struct {
	Name       string    `json:"name" bson:"name"`
	Status     string    `json:"status" bson:"status"` // running, done, failed
	StartedAt  time.Time `json:"startedAt" bson:"startedAt"`
	FinishedAt time.Time `json:"finishedAt,omitempty" bson:"finishedAt,omitempty"`
	Err        string    `json:"error,omitempty" bson:"error,omitempty"`
}

// Job tracks one video's processing pipeline from upload to queryable index.
// Mutated only by the orchestrator; retained until the owning session is
// cleared.
type Job struct {
	ID          string    `json:"jobId" bson:"_id"`
	VideoID     string    `json:"videoId" bson:"videoId"`
	SessionID   string    `json:"sessionId" bson:"sessionId"`
	MediaURI    string    `json:"mediaUri" bson:"mediaUri"`
	State       State     `json:"state" bson:"state"`
	StepHistory []Step    `json:"stepHistory" bson:"stepHistory"`
	FailedStep  string    `json:"failedStep,omitempty" bson:"failedStep,omitempty"`
	Err         string    `json:"error,omitempty" bson:"error,omitempty"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

func NewJob(videoID, sessionID, mediaURI string) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.New().String(),
		VideoID:   videoID,
		SessionID: sessionID,
		MediaURI:  mediaURI,
		State:     StateQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (j *Job) beginStep(name string) {
	j.StepHistory = append(j.StepHistory, Step{
		Name:      name,
		Status:    "running",
		StartedAt: time.Now(),
	})
	j.UpdatedAt = time.Now()
}

func (j *Job) endStep(name string, err error) {
	for i := len(j.StepHistory) - 1; i >= 0; i-- {
		if j.StepHistory[i].Name != name {
			continue
		}
		j.StepHistory[i].FinishedAt = time.Now()
		if err != nil {
			j.StepHistory[i].Status = "failed"
			j.StepHistory[i].Err = err.Error()
		} else {
			j.StepHistory[i].Status = "done"
		}
		break
	}
	j.UpdatedAt = time.Now()
}

// ErrJobNotFound is returned by stores when the job id is unknown.
var ErrJobNotFound = errors.New("workflow job not found")

// Store persists workflow jobs. The in-memory implementation below serves
// tests and single-process deployments; db.JobRepository backs it with Mongo.
type Store interface {
	Save(ctx context.Context, job *Job) error
	FindOneByID(ctx context.Context, jobID string) (*Job, error)
	FindByVideoID(ctx context.Context, videoID string) (*Job, error)
}

// MemoryStore keeps jobs in a process-local map.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*Job)}
}

func (s *MemoryStore) Save(_ context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *job
	copied.StepHistory = append([]Step(nil), job.StepHistory...)
	s.jobs[job.ID] = &copied
	return nil
}

func (s *MemoryStore) FindOneByID(_ context.Context, jobID string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	copied := *job
	copied.StepHistory = append([]Step(nil), job.StepHistory...)
	return &copied, nil
}

func (s *MemoryStore) FindByVideoID(_ context.Context, videoID string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *Job
	for _, job := range s.jobs {
		if job.VideoID != videoID {
			continue
		}
		if latest == nil || job.CreatedAt.After(latest.CreatedAt) {
			latest = job
		}
	}
	if latest == nil {
		return nil, ErrJobNotFound
	}
	copied := *latest
	copied.StepHistory = append([]Step(nil), latest.StepHistory...)
	return &copied, nil
}

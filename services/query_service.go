package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/clipmind/clipmind/agents"
	"github.com/clipmind/clipmind/db"
	"github.com/clipmind/clipmind/index"
	"github.com/clipmind/clipmind/router"
	"github.com/clipmind/clipmind/workflow"
	"go.uber.org/zap"
)

// QueryResult is the user-facing outcome of one conversational turn.
type QueryResult struct {
	Answer      string
	AgentUsed   agents.Kind
	Citations   []agents.Citation
	DocumentURI string
	Confidence  string
}

// QueryService routes one user query through the supervisor, runs the planned
// agent pipeline and records the turn on the session.
type QueryService struct {
	supervisor *router.Supervisor
	registry   map[agents.Kind]agents.Agent
	pipeline   *index.Pipeline
	store      *index.Store
	sessions   SessionStore
	jobs       workflow.Store
}

func ProvideQueryService(supervisor *router.Supervisor, registry map[agents.Kind]agents.Agent,
	pipeline *index.Pipeline, store *index.Store, sessions SessionStore, jobs workflow.Store) *QueryService {
	return &QueryService{
		supervisor: supervisor,
		registry:   registry,
		pipeline:   pipeline,
		store:      store,
		sessions:   sessions,
		jobs:       jobs,
	}
}

func (s *QueryService) Query(ctx context.Context, sessionID, query string) (*QueryResult, error) {
	session, err := s.sessions.FindOneByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		session = db.NewSessionModel()
		session.ID = sessionID
	}

	priorTurns := make([]agents.Turn, 0, len(session.Turns))
	turnLines := make([]string, 0, len(session.Turns))
	for _, t := range session.Turns {
		priorTurns = append(priorTurns, agents.Turn{
			UserInput:     t.UserInput,
			Answer:        t.Answer,
			AgentUsed:     t.AgentUsed,
			CitedChunkIDs: t.CitedChunkIds,
		})
		turnLines = append(turnLines, fmt.Sprintf("Q: %s\nA: %s", t.UserInput, t.Answer))
	}

	plan := s.supervisor.Route(ctx, query, router.Context{
		HasUploadedMedia: session.VideoID != "",
		PriorTurns:       turnLines,
	})

	req := &agents.Request{
		SessionID:  sessionID,
		VideoID:    session.VideoID,
		Query:      query,
		MediaURI:   session.MediaURI,
		PriorTurns: priorTurns,
	}

	result, err := s.executePlan(ctx, plan, req)
	if err != nil {
		return nil, err
	}

	session.Turns = append(session.Turns, db.TurnModel{
		UserInput:     query,
		AgentUsed:     string(result.AgentUsed),
		CitedChunkIds: citedChunkIDs(result.Citations),
		Answer:        result.Answer,
	})
	if err := s.sessions.Save(ctx, session); err != nil {
		logger.Error("Failed to persist session turn",
			zap.String("sessionId", sessionID), zap.Error(err))
	}

	return result, nil
}

// executePlan runs extraction agents first, feeds their output through the
// indexing pipeline, then lets the final answering agent produce the answer.
func (s *QueryService) executePlan(ctx context.Context, plan router.Plan, req *agents.Request) (*QueryResult, error) {
	var segments []index.TranscriptSegment
	var frames []index.FrameSummary

	var answering agents.Agent
	for _, kind := range plan.Agents {
		agent, ok := s.registry[kind]
		if !ok {
			return nil, fmt.Errorf("no agent registered for kind %s", kind)
		}
		if agent.Kind().Answering() {
			answering = agent
			continue
		}

		resp, err := agent.Handle(ctx, req)
		if err != nil {
			return nil, err
		}
		segments = append(segments, resp.Transcript...)
		frames = append(frames, resp.FrameSummaries...)
	}

	if len(segments) > 0 || len(frames) > 0 {
		if _, err := s.pipeline.Ingest(ctx, req.VideoID, segments, frames); err != nil {
			return nil, err
		}
	}

	if answering == nil {
		return nil, errors.New("plan has no answering agent")
	}

	// Grounded agents against a video whose index is not published yet get a
	// processing notice instead of a misleading empty-index answer.
	if answering.Kind().NeedsMedia() {
		if _, ok := s.store.Get(req.VideoID); !ok {
			if answer, stillProcessing := s.processingNotice(ctx, req.VideoID); stillProcessing {
				return &QueryResult{
					Answer:     answer,
					AgentUsed:  answering.Kind(),
					Confidence: plan.Confidence,
				}, nil
			}
		}
	}

	resp, err := answering.Handle(ctx, req)
	if err != nil {
		return nil, err
	}

	return &QueryResult{
		Answer:      resp.Answer,
		AgentUsed:   resp.Agent,
		Citations:   resp.Citations,
		DocumentURI: resp.DocumentURI,
		Confidence:  plan.Confidence,
	}, nil
}

func (s *QueryService) processingNotice(ctx context.Context, videoID string) (string, bool) {
	job, err := s.jobs.FindByVideoID(ctx, videoID)
	if err != nil || job.State.Terminal() {
		return "", false
	}
	return fmt.Sprintf("The video is still being processed (state: %s). Please retry shortly.", job.State), true
}

func citedChunkIDs(citations []agents.Citation) []string {
	ids := make([]string, 0, len(citations))
	for _, c := range citations {
		ids = append(ids, c.ChunkID)
	}
	return ids
}

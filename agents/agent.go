package agents

import (
	"context"

	"github.com/clipmind/clipmind/index"
)

// Kind identifies one specialized agent. The set is closed: adding an agent
// means adding a variant here and an implementation of Agent.
type Kind string

const (
	KindGeneral         Kind = "general"
	KindFrameProcessing Kind = "frame_processing"
	KindAudioProcessing Kind = "audio_processing"
	KindRAG             Kind = "rag"
	KindSummary         Kind = "summary"
	KindReport          Kind = "report"
)

// NeedsMedia reports whether the agent requires an uploaded video.
func (k Kind) NeedsMedia() bool {
	return k != KindGeneral
}

// Answering reports whether the agent produces a user-facing answer, as
// opposed to intermediate extraction output.
func (k Kind) Answering() bool {
	switch k {
	case KindFrameProcessing, KindAudioProcessing:
		return false
	}
	return true
}

// Turn is one prior exchange from the session store.
type Turn struct {
	UserInput     string
	Answer        string
	AgentUsed     string
	CitedChunkIDs []string
}

// Request is the value object handed to an agent. Agents are stateless; all
// state lives in the workflow job or the session store.
type Request struct {
	SessionID  string
	VideoID    string
	Query      string
	MediaURI   string // set for extraction agents
	PriorTurns []Turn
}

// Citation points an answer at an indexed chunk.
type Citation struct {
	ChunkID string
	StartTS float64
	EndTS   float64
	Source  index.SourceKind
}

// Response is the value object an agent returns. Extraction agents populate
// Transcript or FrameSummaries; answering agents populate Answer.
type Response struct {
	Agent          Kind
	Answer         string
	Citations      []Citation
	DocumentURI    string // report handle, rendered externally
	Transcript     []index.TranscriptSegment
	FrameSummaries []index.FrameSummary
}

// Agent is the single capability every variant implements.
type Agent interface {
	Kind() Kind
	Handle(ctx context.Context, req *Request) (*Response, error)
}

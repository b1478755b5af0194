package router

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/clipmind/clipmind/agents"
	"github.com/clipmind/clipmind/llm"
	"github.com/clipmind/clipmind/prompts"
	"go.uber.org/zap"
)

// Context is the session state the router consults before planning.
type Context struct {
	HasUploadedMedia bool
	PriorTurns       []string
}

// Plan is an ordered list of agents to invoke. The last agent is always an
// answering agent.
type Plan struct {
	Agents        []agents.Kind
	Confidence    string // "high" or "low"
	Justification string
}

const (
	ConfidenceHigh = "high"
	ConfidenceLow  = "low"
)

// Supervisor classifies an incoming request and selects the agent pipeline
// that satisfies it. Classification failures never fail the request: the
// router falls back to the general agent at low confidence.
type Supervisor struct {
	classifier llm.LLMClient
}

func NewSupervisor(classifier llm.LLMClient) *Supervisor {
	return &Supervisor{classifier: classifier}
}

func (s *Supervisor) Route(ctx context.Context, query string, sctx Context) Plan {
	systemPrompt, err := prompts.RenderSupervisorPrompt(sctx.HasUploadedMedia, sctx.PriorTurns)
	if err != nil {
		logger.Error("Failed to render supervisor prompt", zap.Error(err))
		return fallbackPlan("classifier prompt unavailable")
	}

	raw, err := llm.GenerateText(ctx, s.classifier,
		[]llm.Message{{Role: "user", Content: query}},
		llm.WithSystemPrompt(systemPrompt),
		llm.WithTemperature(0))
	if err != nil {
		logger.Error("Supervisor classification failed", zap.Error(err))
		return fallbackPlan("classification failed")
	}

	label, ok := parseRoutingLabel(raw)
	if !ok {
		logger.Log.Warn("Supervisor returned unparseable routing decision", zap.String("raw", raw))
		return fallbackPlan("unparseable routing decision")
	}

	plan, ok := planForLabel(label)
	if !ok {
		logger.Log.Warn("Unknown routing label, defaulting to general agent", zap.String("label", label))
		return fallbackPlan("unknown label " + label)
	}

	// Video-dependent agents are off limits without uploaded media.
	if !sctx.HasUploadedMedia {
		for _, kind := range plan.Agents {
			if kind.NeedsMedia() {
				logger.Info("No uploaded media, falling back to general agent", zap.String("label", label))
				return fallbackPlan("no uploaded media for " + label)
			}
		}
	}

	logger.Info("Routing decision", zap.String("label", label), zap.Any("plan", plan.Agents))
	return plan
}

func fallbackPlan(reason string) Plan {
	return Plan{
		Agents:        []agents.Kind{agents.KindGeneral},
		Confidence:    ConfidenceLow,
		Justification: reason,
	}
}

func planForLabel(label string) (Plan, bool) {
	switch label {
	case "general_question":
		return Plan{Agents: []agents.Kind{agents.KindGeneral}, Confidence: ConfidenceHigh, Justification: "classified as " + label}, true
	case "frame_processing":
		// Processing requests run both extraction branches, then answer with
		// a summary of the freshly indexed video.
		return Plan{Agents: []agents.Kind{agents.KindFrameProcessing, agents.KindAudioProcessing, agents.KindSummary}, Confidence: ConfidenceHigh, Justification: "classified as " + label}, true
	case "audio_processing":
		return Plan{Agents: []agents.Kind{agents.KindAudioProcessing, agents.KindSummary}, Confidence: ConfidenceHigh, Justification: "classified as " + label}, true
	case "rag":
		return Plan{Agents: []agents.Kind{agents.KindRAG}, Confidence: ConfidenceHigh, Justification: "classified as " + label}, true
	case "summary":
		return Plan{Agents: []agents.Kind{agents.KindSummary}, Confidence: ConfidenceHigh, Justification: "classified as " + label}, true
	case "report":
		return Plan{Agents: []agents.Kind{agents.KindReport}, Confidence: ConfidenceHigh, Justification: "classified as " + label}, true
	}
	return Plan{}, false
}

// parseRoutingLabel extracts the "next" label from the classifier output,
// tolerating markdown code fences and single-quoted pseudo-JSON.
func parseRoutingLabel(raw string) (string, bool) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.ReplaceAll(cleaned, "'", `"`)

	var decision struct {
		Next string `json:"next"`
	}
	if err := json.Unmarshal([]byte(cleaned), &decision); err != nil {
		return "", false
	}
	if decision.Next == "" {
		return "", false
	}
	return decision.Next, true
}

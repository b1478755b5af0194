package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderSupervisorPromptListsAllLabels(t *testing.T) {
	prompt, err := RenderSupervisorPrompt(true, []string{"Q: hi\nA: hello"})
	assert.NoError(t, err)

	for _, label := range []string{
		"general_question", "frame_processing", "audio_processing", "rag", "summary", "report",
	} {
		if !strings.Contains(prompt, label) {
			t.Errorf("Supervisor prompt missing label %s", label)
		}
	}
	assert.Contains(t, prompt, `{"next"`)
	assert.Contains(t, prompt, "Q: hi")
}

func TestRenderRAGAnswerPromptEmbedsContext(t *testing.T) {
	prompt, err := RenderRAGAnswerPrompt("### Segment [0s-10s]\nhello world")
	assert.NoError(t, err)
	assert.Contains(t, prompt, "hello world")
}

func TestRenderFrameSummaryPrompt(t *testing.T) {
	prompt, err := RenderFrameSummaryPrompt(5, 10, "frames://vid/1")
	assert.NoError(t, err)
	assert.Contains(t, prompt, "frames://vid/1")
}

func TestRenderSummaryPrompt(t *testing.T) {
	prompt, err := RenderSummaryPrompt()
	assert.NoError(t, err)
	assert.NotEmpty(t, prompt)
}

func TestRenderReportPrompt(t *testing.T) {
	prompt, err := RenderReportPrompt("vid-1")
	assert.NoError(t, err)
	assert.NotEmpty(t, prompt)
}

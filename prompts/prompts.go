package prompts

import (
	"bytes"
	"embed"
	"text/template"
)

//go:embed templates/*
var templatesFS embed.FS

func render(name string, data any) (string, error) {
	content, err := templatesFS.ReadFile("templates/" + name)
	if err != nil {
		return "", err
	}

	tmpl, err := template.New(name).Parse(string(content))
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderSupervisorPrompt renders the routing system prompt. The label set is
// closed; the model must answer with a JSON object {"next": "<label>"}.
func RenderSupervisorPrompt(hasUploadedMedia bool, priorTurns []string) (string, error) {
	return render("supervisor_system.md", struct {
		HasUploadedMedia bool
		PriorTurns       []string
	}{hasUploadedMedia, priorTurns})
}

// RenderRAGAnswerPrompt renders the grounded-answer system prompt with the
// retrieved context blocks.
func RenderRAGAnswerPrompt(context string) (string, error) {
	return render("rag_answer_system.md", struct {
		Context string
	}{context})
}

// RenderSummaryPrompt renders the whole-video summarization system prompt.
func RenderSummaryPrompt() (string, error) {
	return render("summary_system.md", nil)
}

// RenderFrameSummaryPrompt renders the user prompt asking the vision model to
// describe one grouped span of frames.
func RenderFrameSummaryPrompt(startTS, endTS float64, frameURI string) (string, error) {
	return render("frame_summary_user.md", struct {
		StartTS  float64
		EndTS    float64
		FrameURI string
	}{startTS, endTS, frameURI})
}

// RenderReportPrompt renders the system prompt that turns a summary and Q&A
// history into a structured markdown report.
func RenderReportPrompt(videoID string) (string, error) {
	return render("report_system.md", struct {
		VideoID string
	}{videoID})
}

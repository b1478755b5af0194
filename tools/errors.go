package tools

import "fmt"

// Error codes surfaced by the gateway.
const (
	CodeBusy      = "busy"
	CodeTimeout   = "timeout"
	CodeTransient = "transient"
	CodePermanent = "permanent"
	CodeExhausted = "retries_exhausted"
)

// ToolError classifies a failed tool invocation. Transient errors are retried
// at the gateway boundary; permanent errors are surfaced immediately.
type ToolError struct {
	Tool      string
	Code      string
	Message   string
	Transient bool
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s: %s: %s", e.Tool, e.Code, e.Message)
}

// NewBusyError marks a duplicate concurrent invoke for the same
// (video, tool) key. Callers treat it as retryable.
func NewBusyError(tool string) *ToolError {
	return &ToolError{Tool: tool, Code: CodeBusy, Message: "another call in flight for this key", Transient: true}
}

// IsTransient reports whether err is a retryable ToolError.
func IsTransient(err error) bool {
	te, ok := err.(*ToolError)
	return ok && te.Transient
}

// IsBusy reports whether err is the gateway's duplicate-in-flight rejection.
func IsBusy(err error) bool {
	te, ok := err.(*ToolError)
	return ok && te.Code == CodeBusy
}

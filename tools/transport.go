package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/clipmind/clipmind/index"
)

// ToolCall is one request to an external extraction service. Not persisted
// beyond the call's lifetime.
type ToolCall struct {
	Tool    string         `json:"tool_name"`
	VideoID string         `json:"video_id"`
	Params  map[string]any `json:"params,omitempty"`
	Timeout time.Duration  `json:"-"`
}

// FrameGroup is one grouped span of extracted frames.
type FrameGroup struct {
	URI     string  `json:"uri"`
	StartTS float64 `json:"startTs"`
	EndTS   float64 `json:"endTs"`
}

// ToolResult is the uniform response shape of every tool service.
type ToolResult struct {
	Status     string                    `json:"status"`
	OutputURI  string                    `json:"output_uri,omitempty"`
	Transcript []index.TranscriptSegment `json:"transcript,omitempty"`
	Frames     []FrameGroup              `json:"frames,omitempty"`
	Err        string                    `json:"error,omitempty"`
}

// Transport carries a single attempt to a tool service. Implementations must
// classify failures as transient or permanent via ToolError.
type Transport interface {
	Do(ctx context.Context, endpoint string, call ToolCall) (*ToolResult, error)
}

// HTTPTransport posts tool calls as JSON to the service endpoint.
type HTTPTransport struct {
	httpClient *http.Client
}

func NewHTTPTransport() *HTTPTransport {
	return &HTTPTransport{httpClient: &http.Client{}}
}

func (t *HTTPTransport) Do(ctx context.Context, endpoint string, call ToolCall) (*ToolResult, error) {
	jsonData, err := json.Marshal(call)
	if err != nil {
		return nil, &ToolError{Tool: call.Tool, Code: CodePermanent, Message: fmt.Sprintf("marshal request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, &ToolError{Tool: call.Tool, Code: CodePermanent, Message: fmt.Sprintf("create request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		code := CodeTransient
		if errors.Is(err, context.DeadlineExceeded) {
			code = CodeTimeout
		}
		return nil, &ToolError{Tool: call.Tool, Code: code, Message: err.Error(), Transient: true}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ToolError{Tool: call.Tool, Code: CodeTransient, Message: err.Error(), Transient: true}
	}

	if resp.StatusCode >= 500 {
		return nil, &ToolError{Tool: call.Tool, Code: CodeTransient, Message: fmt.Sprintf("status %d: %s", resp.StatusCode, string(body)), Transient: true}
	}
	if resp.StatusCode != http.StatusOK {
		// Malformed payload, unsupported format, unknown tool.
		return nil, &ToolError{Tool: call.Tool, Code: CodePermanent, Message: fmt.Sprintf("status %d: %s", resp.StatusCode, string(body))}
	}

	var result ToolResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &ToolError{Tool: call.Tool, Code: CodePermanent, Message: fmt.Sprintf("unmarshal response: %v", err)}
	}

	if result.Status == "error" {
		return nil, &ToolError{Tool: call.Tool, Code: CodePermanent, Message: result.Err}
	}
	return &result, nil
}

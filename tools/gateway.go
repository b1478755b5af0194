package tools

import (
	"context"
	"sync"
	"time"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"go.uber.org/zap"
)

// Well-known tool names.
const (
	ToolAudioExtract = "audio_extract"
	ToolFrameExtract = "frame_extract"
	ToolTranscribe   = "transcribe"
)

const (
	defaultMaxAttempts = 3
	defaultBaseBackoff = 500 * time.Millisecond
	defaultTimeout     = 5 * time.Minute
)

// Gateway is the uniform client boundary to external extraction services.
// Transient failures are retried with exponential backoff up to MaxAttempts;
// permanent failures are surfaced immediately. At most one call per
// (video, tool) key is in flight: duplicates are rejected with a Busy error.
type Gateway struct {
	transport   Transport
	endpoints   map[string]string // tool name -> service URL
	maxAttempts int
	baseBackoff time.Duration

	mu       sync.Mutex
	inFlight map[string]struct{}
}

type GatewayOption func(*Gateway)

func WithMaxAttempts(n int) GatewayOption {
	return func(g *Gateway) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

func WithBaseBackoff(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		if d > 0 {
			g.baseBackoff = d
		}
	}
}

func NewGateway(transport Transport, endpoints map[string]string, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		transport:   transport,
		endpoints:   endpoints,
		maxAttempts: defaultMaxAttempts,
		baseBackoff: defaultBaseBackoff,
		inFlight:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Invoke runs one tool call to completion, owning retries and the per-key
// in-flight lock.
func (g *Gateway) Invoke(ctx context.Context, call ToolCall) (*ToolResult, error) {
	endpoint, ok := g.endpoints[call.Tool]
	if !ok {
		return nil, &ToolError{Tool: call.Tool, Code: CodePermanent, Message: "unknown tool"}
	}

	key := call.VideoID + "/" + call.Tool
	if !g.acquire(key) {
		logger.Log.Warn("Duplicate tool call rejected", zap.String("key", key))
		return nil, NewBusyError(call.Tool)
	}
	defer g.release(key)

	timeout := call.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	var lastErr error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		result, err := g.transport.Do(attemptCtx, endpoint, call)
		cancel()

		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsTransient(err) {
			logger.Error("Tool call failed permanently",
				zap.String("tool", call.Tool), zap.String("videoId", call.VideoID), zap.Error(err))
			return nil, err
		}

		logger.Log.Warn("Tool call failed, will retry",
			zap.String("tool", call.Tool), zap.Int("attempt", attempt), zap.Error(err))

		if attempt == g.maxAttempts {
			break
		}
		if err := sleepCtx(ctx, g.backoff(attempt)); err != nil {
			return nil, &ToolError{Tool: call.Tool, Code: CodePermanent, Message: "cancelled while backing off"}
		}
	}

	// Retries exhausted: the transient failure hardens into a permanent one.
	te, _ := lastErr.(*ToolError)
	msg := "max attempts reached"
	if te != nil {
		msg = te.Message
	}
	return nil, &ToolError{Tool: call.Tool, Code: CodeExhausted, Message: msg}
}

func (g *Gateway) acquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inFlight[key]; busy {
		return false
	}
	g.inFlight[key] = struct{}{}
	return true
}

func (g *Gateway) release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inFlight, key)
}

func (g *Gateway) backoff(attempt int) time.Duration {
	d := g.baseBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

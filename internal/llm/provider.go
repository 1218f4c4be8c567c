// Package llm defines the engine's contract for talking to an external
// text-generation endpoint (spec component 5, "LLM Client").
package llm

import "context"

// Options configures a single generation request.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
	// Seed is derived by the caller as masterSeed + callCounter*1000 so that
	// replays can request the same text from a deterministic model. Backends
	// that do not honor seeds simply ignore it; determinism in that case
	// comes from the replay cache, not from the backend.
	Seed int64
	// Deadline is a per-call limit in milliseconds. The Client does not set
	// it and the bundled providers do not read it; the Client bounds each
	// call through Request.Deadline on the context instead.
	Deadline int64
}

// Result is what a Provider returns for one generation request.
type Result struct {
	Text       string
	TokenCount int
}

// Provider is the minimal contract a text-generation backend must satisfy.
// It deliberately has no notion of tool calls or streaming: the autonomous
// engine only ever needs one blocking round trip per call.
type Provider interface {
	Generate(ctx context.Context, prompt string, opts Options) (Result, error)
}

// ReasonCode classifies why a call fell back to canned content.
type ReasonCode string

const (
	ReasonTimeout     ReasonCode = "LLM_TIMEOUT"
	ReasonUnavailable ReasonCode = "LLM_UNAVAILABLE"
	ReasonLLMError    ReasonCode = "LLM_ERROR"
	ReasonParseError  ReasonCode = "PARSE_ERROR"
)

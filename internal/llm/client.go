package llm

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"wayfarer/internal/observability"
)

var tracer = otel.Tracer("wayfarer/llm")

// startSpan opens a span for a traced operation and returns a closer that
// records the error (if any) and ends the span, mirroring the usual
// tracer.Start/span.End pairing.
func startSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error)) {
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		kvs = append(kvs, attribute.String(k, fmt.Sprint(v)))
	}
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(kvs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}
}

// DefaultDeadline is the call abort deadline used when a Request does not
// specify one, per spec §4.5.
const DefaultDeadline = 120 * time.Second

// maxFallbackTextLen bounds the truncated fallback text kept in a
// FallbackEntry so logs and replay files stay bounded.
const maxFallbackTextLen = 240

// CallRecord is the LLM call record of spec §3, logged for every call
// (live or replayed) before Generate returns.
type CallRecord struct {
	Frame        int
	Subsystem    string
	Seed         int64
	Prompt       string
	Model        string
	Parameters   map[string]any
	Response     string
	TokenUsage   int
	Duration     time.Duration
	UsedFallback bool
}

// FallbackEntry is the structured context recorded whenever a call falls
// back to canned content (spec §4.5, §4.6).
type FallbackEntry struct {
	Subsystem    string
	Operation    string
	Reason       ReasonCode
	PromptLength int
	FallbackText string
	Frame        int
}

// Recorder persists CallRecords for replay (spec §4.15).
type Recorder interface {
	LogLLMCall(rec CallRecord)
}

// FallbackRecorder is implemented by the Fallback Logger (spec §4.6).
type FallbackRecorder interface {
	LogFallback(entry FallbackEntry)
}

// Cache is consulted first during replay, keyed by (frame, subsystem, seed),
// so the real endpoint is never contacted (spec §4.5).
type Cache interface {
	Lookup(frame int, subsystem string, seed int64) (Result, bool)
}

// Request is one generation request plus the bookkeeping the engine needs
// to record it and fall back on failure.
type Request struct {
	Frame       int
	Subsystem   string
	Operation   string
	Prompt      string
	Model       string
	Temperature float64
	MaxTokens   int
	Deadline    time.Duration
	// Fallback produces canned text when the call cannot complete. If nil, a
	// short generic line is used.
	Fallback func() string
}

// Client wraps a Provider with seeding, deadlines, fallback handling and
// call recording, matching spec component 5.
type Client struct {
	Provider   Provider
	Fallback   FallbackRecorder
	Recorder   Recorder
	Cache      Cache
	MasterSeed int64

	callCounter int64
}

// NewClient constructs a Client. recorder and cache may be nil (cache is nil
// outside of replay; recorder may be nil if replay logging is disabled).
func NewClient(provider Provider, fallback FallbackRecorder, recorder Recorder, cache Cache, masterSeed int64) *Client {
	return &Client{Provider: provider, Fallback: fallback, Recorder: recorder, Cache: cache, MasterSeed: masterSeed}
}

// nextSeed derives the per-call seed deterministically from the master seed
// and an internal call counter, per spec §4.1.
func (c *Client) nextSeed() int64 {
	n := atomic.AddInt64(&c.callCounter, 1)
	return c.MasterSeed + n*1000
}

// Generate performs one generation request. The returned Result always has
// usable Text: on timeout, unavailability, or parse error it is filled with
// fallback content and Result.UsedFallback is true. Generate itself returns
// a non-nil error only when req.Fallback is nil and no generic fallback can
// be produced, which never happens with the built-in generic fallback.
func (c *Client) Generate(ctx context.Context, req Request) (Result, error) {
	seed := c.nextSeed()
	deadline := req.Deadline
	if deadline <= 0 {
		deadline = DefaultDeadline
	}

	if c.Cache != nil {
		if cached, ok := c.Cache.Lookup(req.Frame, req.Subsystem, seed); ok {
			c.record(req, seed, cached, 0, false)
			return cached, nil
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	callCtx, endSpan := startSpan(callCtx, "llm.generate", map[string]any{
		"subsystem": req.Subsystem,
		"operation": req.Operation,
		"frame":     req.Frame,
		"seed":      seed,
	})

	opts := Options{Model: req.Model, Temperature: req.Temperature, MaxTokens: req.MaxTokens, Seed: seed}

	start := time.Now()
	res, err := c.Provider.Generate(callCtx, req.Prompt, opts)
	dur := time.Since(start)

	if err == nil && strings.TrimSpace(res.Text) == "" {
		err = errEmptyResponse
	}

	if err != nil {
		reason := classifyFailure(callCtx, err)
		fallbackText := c.produceFallback(req)
		res = Result{Text: fallbackText, TokenCount: EstimateTokens(fallbackText)}
		c.logFallback(req, reason, fallbackText)
		c.record(req, seed, res, dur, true)
		observability.LoggerWithTrace(callCtx).Warn().Str("subsystem", req.Subsystem).Str("operation", req.Operation).
			Str("reason", string(reason)).Err(err).Msg("llm_fallback")
		endSpan(err)
		return res, nil
	}
	endSpan(nil)

	c.record(req, seed, res, dur, false)
	return res, nil
}

func (c *Client) produceFallback(req Request) string {
	if req.Fallback != nil {
		return truncate(req.Fallback(), maxFallbackTextLen)
	}
	return truncate(genericFallback(req.Subsystem), maxFallbackTextLen)
}

func (c *Client) logFallback(req Request, reason ReasonCode, text string) {
	if c.Fallback == nil {
		return
	}
	c.Fallback.LogFallback(FallbackEntry{
		Subsystem:    req.Subsystem,
		Operation:    req.Operation,
		Reason:       reason,
		PromptLength: len(req.Prompt),
		FallbackText: text,
		Frame:        req.Frame,
	})
}

func (c *Client) record(req Request, seed int64, res Result, dur time.Duration, usedFallback bool) {
	if c.Recorder == nil {
		return
	}
	c.Recorder.LogLLMCall(CallRecord{
		Frame:        req.Frame,
		Subsystem:    req.Subsystem,
		Seed:         seed,
		Prompt:       req.Prompt,
		Model:        req.Model,
		Parameters:   map[string]any{"temperature": req.Temperature, "max_tokens": req.MaxTokens},
		Response:     res.Text,
		TokenUsage:   res.TokenCount,
		Duration:     dur,
		UsedFallback: usedFallback,
	})
}

var errEmptyResponse = &llmError{"empty response"}

type llmError struct{ msg string }

func (e *llmError) Error() string { return e.msg }

func classifyFailure(ctx context.Context, err error) ReasonCode {
	if ctx.Err() != nil {
		return ReasonTimeout
	}
	if _, ok := err.(*llmError); ok {
		return ReasonParseError
	}
	return ReasonUnavailable
}

func genericFallback(subsystem string) string {
	return "(" + subsystem + " is momentarily quiet.)"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// EstimateTokens is a cheap heuristic (chars/4) used when the provider does
// not report usage, matching the teacher's heuristic fallback approach.
func EstimateTokens(s string) int {
	if len(s) == 0 {
		return 0
	}
	n := len(s) / 4
	if n == 0 {
		n = 1
	}
	return n
}

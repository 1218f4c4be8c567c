// Package testkit provides deterministic test harnesses for the engine:
// a fake LLM provider, an N-frame loop driver, and invariant checks,
// grounded on the teacher's internal/testhelpers.FakeProvider pattern.
package testkit

import (
	"context"

	"wayfarer/internal/llm"
)

// FakeProvider is a Provider that returns a fixed response or error,
// mirroring the teacher's FakeProvider (internal/testhelpers/fakes.go)
// narrowed from chat+streaming to the engine's single blocking call.
type FakeProvider struct {
	Resp llm.Result
	Err  error

	// Responses, if non-empty, is consumed round-robin across successive
	// calls instead of always returning Resp — useful for scripting a
	// sequence of distinct replies (e.g. group-conversation turns).
	Responses []string
	calls     int
}

// Generate implements llm.Provider.
func (f *FakeProvider) Generate(ctx context.Context, prompt string, opts llm.Options) (llm.Result, error) {
	if f.Err != nil {
		return llm.Result{}, f.Err
	}
	f.calls++
	if len(f.Responses) > 0 {
		text := f.Responses[(f.calls-1)%len(f.Responses)]
		return llm.Result{Text: text, TokenCount: llm.EstimateTokens(text)}, nil
	}
	return f.Resp, nil
}

// Calls returns how many times Generate has been invoked.
func (f *FakeProvider) Calls() int { return f.calls }

// RecordingRecorder collects llm.CallRecords in memory, for assertions
// against call count/ordering without a full replay.Logger.
type RecordingRecorder struct {
	Records []llm.CallRecord
}

func (r *RecordingRecorder) LogLLMCall(rec llm.CallRecord) {
	r.Records = append(r.Records, rec)
}

// RecordingFallback collects llm.FallbackEntrys in memory.
type RecordingFallback struct {
	Entries []llm.FallbackEntry
}

func (r *RecordingFallback) LogFallback(entry llm.FallbackEntry) {
	r.Entries = append(r.Entries, entry)
}

package replay

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wayfarer/internal/game"
	"wayfarer/internal/llm"
)

func TestNew_GeneratesIDWhenEmpty(t *testing.T) {
	t.Parallel()
	l := New("", "gpt", "fantasy", 7)
	assert.NotEmpty(t, l.ID)
	assert.Equal(t, DefaultCheckpointInterval, l.CheckpointInterval)
}

func TestNew_KeepsProvidedID(t *testing.T) {
	t.Parallel()
	l := New("fixed-id", "gpt", "fantasy", 7)
	assert.Equal(t, "fixed-id", l.ID)
}

func TestLogger_LogEvent_DropsOutOfOrderFrames(t *testing.T) {
	t.Parallel()
	l := New("", "", "", 1)
	l.LogEvent(5, "a", map[string]any{}, "")
	l.LogEvent(2, "b", map[string]any{}, "")
	l.LogEvent(6, "c", map[string]any{}, "")

	doc := l.Build()
	require.Len(t, doc.Events, 2)
	assert.Equal(t, "a", doc.Events[0].Type)
	assert.Equal(t, "c", doc.Events[1].Type)
}

func TestLogger_LogEvent_ClonesPayload(t *testing.T) {
	t.Parallel()
	l := New("", "", "", 1)
	payload := map[string]any{"k": "v"}
	l.LogEvent(1, "kind", payload, "actor")
	payload["k"] = "mutated"

	doc := l.Build()
	assert.Equal(t, "v", doc.Events[0].Data["k"])
}

func TestLogger_LogLLMCall_RecordsFields(t *testing.T) {
	t.Parallel()
	l := New("", "", "", 1)
	l.LogLLMCall(llm.CallRecord{Frame: 3, Subsystem: "dialogue", Seed: 99, Prompt: "p", Response: "r", TokenUsage: 10, UsedFallback: true})

	doc := l.Build()
	require.Len(t, doc.LLMCalls, 1)
	assert.Equal(t, "dialogue", doc.LLMCalls[0].Subsystem)
	assert.True(t, doc.LLMCalls[0].Fallback)
}

func TestLogger_LogCheckpoint_SetsInitialStateOnFirstCall(t *testing.T) {
	t.Parallel()
	l := New("", "", "", 1)
	snap := game.StateSnapshot{SessionID: "s"}
	l.LogCheckpoint(0, snap)

	assert.True(t, l.initialStateSet)
	assert.Equal(t, "s", l.initialState.SessionID)
}

func TestLogger_LogCheckpoint_OnlyRecordsOnInterval(t *testing.T) {
	t.Parallel()
	l := New("", "", "", 1)
	l.CheckpointInterval = 10

	l.LogCheckpoint(0, game.StateSnapshot{Frame: 0})
	l.LogCheckpoint(5, game.StateSnapshot{Frame: 5})
	l.LogCheckpoint(10, game.StateSnapshot{Frame: 10})
	l.LogCheckpoint(10, game.StateSnapshot{Frame: 10})

	doc := l.Build()
	require.Len(t, doc.Checkpoints, 2)
	assert.Equal(t, 0, doc.Checkpoints[0].Frame)
	assert.Equal(t, 10, doc.Checkpoints[1].Frame)
}

func TestLogger_SaveLoad_RoundTrips(t *testing.T) {
	t.Parallel()
	l := New("rid", "gpt-x", "noir", 42)
	l.SetInitialState(game.StateSnapshot{SessionID: "rid", Seed: 42})
	l.LogEvent(1, "game_started", map[string]any{"seed": int64(42)}, "")
	l.LogLLMCall(llm.CallRecord{Frame: 1, Subsystem: "decider", Seed: 42})
	l.LogCheckpoint(0, game.StateSnapshot{SessionID: "rid", Seed: 42, Frame: 0})

	path := filepath.Join(t.TempDir(), "test.replay.gz")
	require.NoError(t, l.Save(path))

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, FormatVersion, doc.Header.Version)
	assert.Equal(t, int64(42), doc.Header.GameSeed)
	require.Len(t, doc.Events, 1)
	require.Len(t, doc.LLMCalls, 1)
	require.Len(t, doc.Checkpoints, 1)
}

func TestLoad_CorruptFileReturnsError(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "bad.replay.gz")
	require.NoError(t, os.WriteFile(path, []byte("not gzip data"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_MissingFileReturnsError(t *testing.T) {
	t.Parallel()
	_, err := Load(filepath.Join(t.TempDir(), "missing.replay.gz"))
	require.Error(t, err)
}

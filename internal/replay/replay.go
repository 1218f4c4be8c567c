// Package replay implements the Replay Logger and Replay Continuation
// (spec components 15 and 16): an append-only record of every event and
// LLM call plus periodic checkpoints, serialized to a gzip-compressed JSON
// file, and the machinery to reload that file and resume play.
package replay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"

	"wayfarer/internal/game"
	"wayfarer/internal/llm"
)

// FormatVersion is the header.version of every file this package writes.
const FormatVersion = "1.0.0"

// DefaultCheckpointInterval is how many frames elapse between automatic
// checkpoints (spec §4.15 "periodic checkpoint snapshots").
const DefaultCheckpointInterval = 50

// EventRecord is one entry of the replay file's `events` array (spec §6).
type EventRecord struct {
	Frame       int            `json:"frame"`
	Type        string         `json:"type"`
	Data        map[string]any `json:"data"`
	CharacterID string         `json:"characterId,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// LLMCallRecord is one entry of the replay file's `llmCalls` array.
type LLMCallRecord struct {
	Frame     int    `json:"frame"`
	Subsystem string `json:"subsystem"`
	Seed      int64  `json:"seed"`
	Prompt    string `json:"prompt"`
	Response  string `json:"response"`
	Tokens    int    `json:"tokens"`
	Fallback  bool   `json:"fallback"`
}

// CheckpointRecord is one entry of the replay file's `checkpoints` array.
type CheckpointRecord struct {
	Frame         int                `json:"frame"`
	StateSnapshot game.StateSnapshot `json:"stateSnapshot"`
}

// Header is the replay file's `header` object.
type Header struct {
	Version        string    `json:"version"`
	Timestamp      time.Time `json:"timestamp"`
	GameSeed       int64     `json:"gameSeed"`
	Model          string    `json:"model"`
	Theme          string    `json:"theme"`
	FrameCount     int       `json:"frameCount"`
	EventCount     int       `json:"eventCount"`
	LLMCallCount   int       `json:"llmCallCount"`
	CheckpointCount int      `json:"checkpointCount"`
}

// File is the full replay document of spec §6.
type File struct {
	Header       Header              `json:"header"`
	InitialState game.StateSnapshot  `json:"initialState"`
	Events       []EventRecord       `json:"events"`
	LLMCalls     []LLMCallRecord     `json:"llmCalls"`
	Checkpoints  []CheckpointRecord  `json:"checkpoints"`
}

// Logger implements game.EventRecorder, game.CheckpointRecorder and
// llm.Recorder, appending every event, LLM call and checkpoint in memory
// (spec §4.15) until Save serializes them to disk.
//
// Logger is session-owned, not a singleton (Design Notes §9): one Logger
// exists per Session, constructed at bootstrap alongside everything else.
type Logger struct {
	ID    string
	Model string
	Theme string
	Seed  int64

	initialState    game.StateSnapshot
	initialStateSet bool

	events      []EventRecord
	llmCalls    []LLMCallRecord
	checkpoints []CheckpointRecord

	lastFrame int

	CheckpointInterval int
}

// New constructs a Logger. id should be a uuid.NewString() value; callers
// that don't care pass "" and New generates one.
func New(id, model, theme string, seed int64) *Logger {
	if id == "" {
		id = uuid.NewString()
	}
	return &Logger{ID: id, Model: model, Theme: theme, Seed: seed, CheckpointInterval: DefaultCheckpointInterval}
}

// SetInitialState records the snapshot taken immediately after world
// generation, before any frame runs (spec §6 `initialState`).
func (l *Logger) SetInitialState(snapshot game.StateSnapshot) {
	l.initialState = snapshot
	l.initialStateSet = true
}

// LogEvent satisfies game.EventRecorder. Frames must be monotonically
// non-decreasing (spec §4.15 invariant); a frame regression is a
// programming error and is dropped rather than corrupting the log.
func (l *Logger) LogEvent(frame int, kind string, payload map[string]any, actorID string) {
	if frame < l.lastFrame {
		return
	}
	l.lastFrame = frame
	cp := make(map[string]any, len(payload))
	for k, v := range payload {
		cp[k] = v
	}
	l.events = append(l.events, EventRecord{Frame: frame, Type: kind, Data: cp, CharacterID: actorID, Timestamp: time.Now()})
}

// LogLLMCall satisfies llm.Recorder.
func (l *Logger) LogLLMCall(rec llm.CallRecord) {
	l.llmCalls = append(l.llmCalls, LLMCallRecord{
		Frame: rec.Frame, Subsystem: rec.Subsystem, Seed: rec.Seed,
		Prompt: rec.Prompt, Response: rec.Response, Tokens: rec.TokenUsage, Fallback: rec.UsedFallback,
	})
}

// LogCheckpoint satisfies game.CheckpointRecorder. It only actually records
// a checkpoint every CheckpointInterval frames, plus always on frame 0 (the
// initial state doubles as the first checkpoint).
func (l *Logger) LogCheckpoint(frame int, snapshot game.StateSnapshot) {
	if !l.initialStateSet {
		l.SetInitialState(snapshot)
	}
	interval := l.CheckpointInterval
	if interval <= 0 {
		interval = DefaultCheckpointInterval
	}
	if frame != 0 && frame%interval != 0 {
		return
	}
	if len(l.checkpoints) > 0 && l.checkpoints[len(l.checkpoints)-1].Frame == frame {
		return
	}
	l.checkpoints = append(l.checkpoints, CheckpointRecord{Frame: frame, StateSnapshot: snapshot})
}

// Build assembles the in-memory File document without writing it to disk.
func (l *Logger) Build() File {
	return File{
		Header: Header{
			Version: FormatVersion, Timestamp: time.Now(), GameSeed: l.Seed,
			Model: l.Model, Theme: l.Theme, FrameCount: l.lastFrame,
			EventCount: len(l.events), LLMCallCount: len(l.llmCalls), CheckpointCount: len(l.checkpoints),
		},
		InitialState: l.initialState,
		Events:       l.events,
		LLMCalls:     l.llmCalls,
		Checkpoints:  l.checkpoints,
	}
}

// Save serializes the accumulated log to a gzip-compressed JSON file at
// path (spec §6 "`./replays/<sessionId>.replay.gz`").
func (l *Logger) Save(path string) error {
	doc := l.Build()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	enc := json.NewEncoder(gz)
	if err := enc.Encode(doc); err != nil {
		gz.Close()
		return fmt.Errorf("replay: encode: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("replay: close gzip writer: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("replay: write %s: %w", path, err)
	}
	return nil
}

// Load reads and decompresses a replay file written by Save.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("replay: read %s: %w", path, err)
	}
	gz, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	defer gz.Close()
	var doc File
	if err := json.NewDecoder(gz).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	return &doc, nil
}

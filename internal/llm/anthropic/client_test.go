package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wayfarer/internal/config"
	"wayfarer/internal/llm"
)

func TestGenerate_ReturnsConcatenatedTextBlocks(t *testing.T) {
	t.Parallel()
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		defer r.Body.Close()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"m","content":[{"type":"text","text":"hello "},{"type":"text","text":"world"}],"stop_reason":"end_turn","usage":{"input_tokens":3,"output_tokens":2}}`))
	}))
	t.Cleanup(srv.Close)

	client := New(config.AnthropicConfig{APIKey: "k", Model: "m", BaseURL: srv.URL}, srv.Client())
	res, err := client.Generate(context.Background(), "hi", llm.Options{})
	require.NoError(t, err)
	assert.Equal(t, "hello world", res.Text)
	assert.Equal(t, 5, res.TokenCount)
	assert.Equal(t, "/v1/messages", gotPath)
}

func TestGenerate_ForwardsRequestedModelAndMaxTokens(t *testing.T) {
	t.Parallel()
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_2","type":"message","role":"assistant","model":"m","content":[{"type":"text","text":"ok"}],"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":1}}`))
	}))
	t.Cleanup(srv.Close)

	client := New(config.AnthropicConfig{APIKey: "k", Model: "default-model", BaseURL: srv.URL}, srv.Client())
	_, err := client.Generate(context.Background(), "hi", llm.Options{Model: "override-model", MaxTokens: 64})
	require.NoError(t, err)
	assert.Equal(t, "override-model", gotBody["model"])
	assert.Equal(t, float64(64), gotBody["max_tokens"])
}

func TestGenerate_EstimatesTokensWhenUsageZero(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_3","type":"message","role":"assistant","model":"m","content":[{"type":"text","text":"hello there"}],"stop_reason":"end_turn","usage":{"input_tokens":0,"output_tokens":0}}`))
	}))
	t.Cleanup(srv.Close)

	client := New(config.AnthropicConfig{APIKey: "k", Model: "m", BaseURL: srv.URL}, srv.Client())
	res, err := client.Generate(context.Background(), "hi", llm.Options{})
	require.NoError(t, err)
	assert.Greater(t, res.TokenCount, 0)
}

func TestNew_DefaultsModelAndMaxTokensWhenUnset(t *testing.T) {
	t.Parallel()
	client := New(config.AnthropicConfig{APIKey: "k"}, nil)
	assert.NotEmpty(t, client.model)
	assert.Equal(t, defaultMaxTokens, client.maxTokens)
}

package openai

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

func TestGenerate_ReturnsTextAndTokenCount(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello there"}}],"usage":{"total_tokens":12}}`))
	}))
	t.Cleanup(srv.Close)

	client := New(config.OpenAIConfig{APIKey: "k", Model: "test-model", BaseURL: srv.URL}, srv.Client())
	res, err := client.Generate(context.Background(), "hi", llm.Options{})
	require.NoError(t, err)
	assert.Equal(t, "hello there", res.Text)
	assert.Equal(t, 12, res.TokenCount)
}

func TestGenerate_EstimatesTokensWhenUsageMissing(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hi"}}]}`))
	}))
	t.Cleanup(srv.Close)

	client := New(config.OpenAIConfig{APIKey: "k", Model: "test-model", BaseURL: srv.URL}, srv.Client())
	res, err := client.Generate(context.Background(), "hi", llm.Options{})
	require.NoError(t, err)
	assert.Greater(t, res.TokenCount, 0)
}

func TestGenerate_NoChoicesIsError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	t.Cleanup(srv.Close)

	client := New(config.OpenAIConfig{APIKey: "k", Model: "test-model", BaseURL: srv.URL}, srv.Client())
	_, err := client.Generate(context.Background(), "hi", llm.Options{})
	assert.Error(t, err)
}

func TestNew_DefaultsModelWhenUnset(t *testing.T) {
	t.Parallel()
	client := New(config.OpenAIConfig{APIKey: "k"}, nil)
	assert.Equal(t, "gpt-4o-mini", client.model)
}

func TestGenerate_ForwardsRequestedModelAndSeed(t *testing.T) {
	t.Parallel()
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dec := make(map[string]any)
		defer r.Body.Close()
		_ = json.NewDecoder(r.Body).Decode(&dec)
		gotBody = dec
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	t.Cleanup(srv.Close)

	client := New(config.OpenAIConfig{APIKey: "k", Model: "default-model", BaseURL: srv.URL}, srv.Client())
	_, err := client.Generate(context.Background(), "hi", llm.Options{Model: "override-model", Seed: 5})
	require.NoError(t, err)
	assert.Equal(t, "override-model", gotBody["model"])
	assert.Equal(t, float64(5), gotBody["seed"])
}

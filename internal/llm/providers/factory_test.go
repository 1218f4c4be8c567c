package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wayfarer/internal/config"
)

func TestBuild_DefaultsToOpenAIWhenUnset(t *testing.T) {
	t.Parallel()
	p, err := Build(config.Config{}, nil)
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestBuild_SelectsOpenAI(t *testing.T) {
	t.Parallel()
	p, err := Build(config.Config{LLM: config.LLMConfig{Provider: "OpenAI"}}, nil)
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestBuild_SelectsAnthropic(t *testing.T) {
	t.Parallel()
	p, err := Build(config.Config{LLM: config.LLMConfig{Provider: "anthropic"}}, nil)
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestBuild_SelectsGoogle(t *testing.T) {
	t.Parallel()
	p, err := Build(config.Config{LLM: config.LLMConfig{Provider: "google"}}, nil)
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestBuild_UnsupportedProviderIsError(t *testing.T) {
	t.Parallel()
	_, err := Build(config.Config{LLM: config.LLMConfig{Provider: "carrier-pigeon"}}, nil)
	assert.Error(t, err)
}

func TestBuild_ProviderNameIsTrimmedAndCaseInsensitive(t *testing.T) {
	t.Parallel()
	p, err := Build(config.Config{LLM: config.LLMConfig{Provider: "  ANTHROPIC  "}}, nil)
	require.NoError(t, err)
	assert.NotNil(t, p)
}

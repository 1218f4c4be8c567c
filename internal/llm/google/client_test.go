package google

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wayfarer/internal/config"
)

func TestNew_DefaultsModelWhenUnset(t *testing.T) {
	t.Parallel()
	client, err := New(config.GoogleConfig{APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "gemini-1.5-flash", client.model)
}

func TestNew_KeepsConfiguredModel(t *testing.T) {
	t.Parallel()
	client, err := New(config.GoogleConfig{APIKey: "k", Model: "gemini-2.0-pro"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.0-pro", client.model)
}

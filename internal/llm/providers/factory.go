// Package providers selects and constructs the configured llm.Provider
// backend, grounded on the teacher's provider factory pattern.
package providers

import (
	"fmt"
	"net/http"
	"strings"

	"wayfarer/internal/config"
	"wayfarer/internal/llm"
	"wayfarer/internal/llm/anthropic"
	"wayfarer/internal/llm/google"
	openaillm "wayfarer/internal/llm/openai"
)

// Build constructs an llm.Provider based on the configured provider name.
func Build(cfg config.Config, httpClient *http.Client) (llm.Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.LLM.Provider)) {
	case "", "openai":
		return openaillm.New(cfg.OpenAIDirect, httpClient), nil
	case "anthropic":
		return anthropic.New(cfg.LLM.Anthropic, httpClient), nil
	case "google":
		return google.New(cfg.LLM.Google, httpClient)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.LLM.Provider)
	}
}

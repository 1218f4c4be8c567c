// Package google adapts the Gemini GenerateContent API to llm.Provider.
package google

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	genai "google.golang.org/genai"

	"wayfarer/internal/config"
	"wayfarer/internal/llm"
)

// Client is a single-shot llm.Provider over the Gemini SDK.
type Client struct {
	client *genai.Client
	model  string
}

// New constructs a Client from configuration.
func New(cfg config.GoogleConfig, httpClient *http.Client) (*Client, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gemini-1.5-flash"
	}

	httpOpts := genai.HTTPOptions{}
	if cfg.Timeout > 0 {
		t := time.Duration(cfg.Timeout) * time.Second
		httpOpts.Timeout = &t
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      strings.TrimSpace(cfg.APIKey),
		HTTPClient:  httpClient,
		HTTPOptions: httpOpts,
	})
	if err != nil {
		return nil, fmt.Errorf("init google client: %w", err)
	}
	return &Client{client: client, model: model}, nil
}

// Generate implements llm.Provider. Like Anthropic, Gemini does not accept
// an explicit seed through this SDK surface; determinism across replays
// relies on the replay cache.
func (c *Client) Generate(ctx context.Context, prompt string, opts llm.Options) (llm.Result, error) {
	model := opts.Model
	if model == "" {
		model = c.model
	}
	cfg := &genai.GenerateContentConfig{}
	if opts.Temperature > 0 {
		t := float32(opts.Temperature)
		cfg.Temperature = &t
	}
	if opts.MaxTokens > 0 {
		m := int32(opts.MaxTokens)
		cfg.MaxOutputTokens = m
	}

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	resp, err := c.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return llm.Result{}, err
	}

	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			text.WriteString(part.Text)
		}
	}
	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	if tokens == 0 {
		tokens = llm.EstimateTokens(text.String())
	}
	return llm.Result{Text: text.String(), TokenCount: tokens}, nil
}

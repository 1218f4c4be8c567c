// Package openai adapts the OpenAI chat-completions API to llm.Provider.
package openai

import (
	"context"
	"net/http"
	"strings"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"wayfarer/internal/config"
	"wayfarer/internal/llm"
)

// Client is a thin, single-shot llm.Provider over the OpenAI SDK. Unlike the
// teacher's streaming/tool-calling client, the engine only ever needs one
// blocking completion per call.
type Client struct {
	sdk   sdk.Client
	model string
}

// New constructs a Client from configuration.
func New(cfg config.OpenAIConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithHTTPClient(httpClient),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(base, "/")))
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Client{sdk: sdk.NewClient(opts...), model: model}
}

// Generate implements llm.Provider.
func (c *Client) Generate(ctx context.Context, prompt string, opts llm.Options) (llm.Result, error) {
	model := opts.Model
	if model == "" {
		model = c.model
	}
	params := sdk.ChatCompletionNewParams{
		Model: sdk.ChatModel(model),
		Messages: []sdk.ChatCompletionMessageParamUnion{
			sdk.UserMessage(prompt),
		},
	}
	if opts.Temperature > 0 {
		params.Temperature = sdk.Float(opts.Temperature)
	}
	if opts.MaxTokens > 0 {
		params.MaxTokens = sdk.Int(int64(opts.MaxTokens))
	}
	if opts.Seed != 0 {
		params.Seed = sdk.Int(opts.Seed)
	}

	comp, err := c.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		return llm.Result{}, err
	}
	if len(comp.Choices) == 0 {
		return llm.Result{}, errNoChoices
	}
	text := comp.Choices[0].Message.Content
	tokens := int(comp.Usage.TotalTokens)
	if tokens == 0 {
		tokens = llm.EstimateTokens(text)
	}
	return llm.Result{Text: text, TokenCount: tokens}, nil
}

var errNoChoices = &noChoicesError{}

type noChoicesError struct{}

func (*noChoicesError) Error() string { return "openai: no choices in response" }

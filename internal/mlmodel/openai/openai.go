// Package openai adapts github.com/openai/openai-go to the mlmodel.Client
// port.
//
// Grounded on features/model/openai/client.go's ChatClient seam — an
// interface wrapping the single completion call the adapter needs, so
// tests can substitute a fake instead of a live API — carried over from
// go-openai's CreateChatCompletion shape to openai-go's
// Chat.Completions.New, and trimmed to single-turn completions.
package openai

import (
	"context"
	"errors"
	"strings"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/param"

	"github.com/cutstock/optima/internal/mlmodel"
)

// ChatCompletionsClient is the subset of openai-go's client the adapter
// uses. Satisfied by the real SDK's Chat.Completions service.
type ChatCompletionsClient interface {
	New(ctx context.Context, body sdk.ChatCompletionNewParams) (*sdk.ChatCompletion, error)
}

// Client implements mlmodel.Client on top of OpenAI Chat Completions.
type Client struct {
	chat         ChatCompletionsClient
	defaultModel string
	maxTokens    int
}

// New builds an OpenAI-backed advisory client.
func New(chat ChatCompletionsClient, defaultModel string, maxTokens int) (*Client, error) {
	if chat == nil {
		return nil, errors.New("openai: chat completions client is required")
	}
	if strings.TrimSpace(defaultModel) == "" {
		return nil, errors.New("openai: default model is required")
	}
	if maxTokens <= 0 {
		maxTokens = 512
	}
	return &Client{chat: chat, defaultModel: defaultModel, maxTokens: maxTokens}, nil
}

// Complete issues one chat completion call with a single user turn.
func (c *Client) Complete(ctx context.Context, req mlmodel.Request) (mlmodel.Response, error) {
	modelID := req.Model
	if modelID == "" {
		modelID = c.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	messages := make([]sdk.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, sdk.SystemMessage(req.System))
	}
	messages = append(messages, sdk.UserMessage(req.Prompt))

	params := sdk.ChatCompletionNewParams{
		Model:               modelID,
		Messages:            messages,
		MaxCompletionTokens: param.NewOpt(int64(maxTokens)),
	}
	if req.Temperature > 0 {
		params.Temperature = param.NewOpt(float64(req.Temperature))
	}

	resp, err := c.chat.New(ctx, params)
	if err != nil {
		return mlmodel.Response{}, err
	}
	return translate(resp), nil
}

func translate(resp *sdk.ChatCompletion) mlmodel.Response {
	var text string
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
	}
	return mlmodel.Response{
		Text: text,
		Usage: mlmodel.TokenUsage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
		},
	}
}

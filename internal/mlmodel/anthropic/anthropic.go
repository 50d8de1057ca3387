// Package anthropic adapts github.com/anthropics/anthropic-sdk-go to the
// mlmodel.Client port.
//
// Grounded on features/model/anthropic/client.go's MessagesClient seam
// (an interface satisfied by *sdk.MessageService so tests can substitute a
// fake) and its single-text-block request/response translation, trimmed
// to single-turn completions — the advisory never streams or calls tools.
package anthropic

import (
	"context"
	"errors"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/cutstock/optima/internal/mlmodel"
)

// MessagesClient is the subset of *sdk.MessageService the adapter uses.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Client implements mlmodel.Client on top of Anthropic Claude Messages.
type Client struct {
	msg          MessagesClient
	defaultModel string
	maxTokens    int
}

// New builds an Anthropic-backed advisory client.
func New(msg MessagesClient, defaultModel string, maxTokens int) (*Client, error) {
	if msg == nil {
		return nil, errors.New("anthropic: messages client is required")
	}
	if strings.TrimSpace(defaultModel) == "" {
		return nil, errors.New("anthropic: default model is required")
	}
	if maxTokens <= 0 {
		maxTokens = 512
	}
	return &Client{msg: msg, defaultModel: defaultModel, maxTokens: maxTokens}, nil
}

// Complete issues one Messages API call with a single user turn.
func (c *Client) Complete(ctx context.Context, req mlmodel.Request) (mlmodel.Response, error) {
	modelID := req.Model
	if modelID == "" {
		modelID = c.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	params := sdk.MessageNewParams{
		MaxTokens: int64(maxTokens),
		Model:     sdk.Model(modelID),
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature > 0 {
		params.Temperature = sdk.Float(float64(req.Temperature))
	}

	msg, err := c.msg.New(ctx, params)
	if err != nil {
		return mlmodel.Response{}, err
	}
	return translate(msg), nil
}

func translate(msg *sdk.Message) mlmodel.Response {
	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return mlmodel.Response{
		Text: sb.String(),
		Usage: mlmodel.TokenUsage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}
}

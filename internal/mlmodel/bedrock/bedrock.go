// Package bedrock adapts github.com/aws/aws-sdk-go-v2/service/bedrockruntime
// to the mlmodel.Client port using the Bedrock Converse API.
//
// Grounded on features/model/bedrock/client.go's RuntimeClient seam (an
// interface matching *bedrockruntime.Client so tests can substitute a
// fake), trimmed to a single text turn with no tool configuration — the
// advisory only ever asks one JSON-structured question per call.
package bedrock

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/cutstock/optima/internal/mlmodel"
)

// RuntimeClient is the subset of *bedrockruntime.Client the adapter uses.
type RuntimeClient interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Client implements mlmodel.Client on top of AWS Bedrock Converse.
type Client struct {
	runtime      RuntimeClient
	defaultModel string
}

// New builds a Bedrock-backed advisory client.
func New(runtime RuntimeClient, defaultModel string) (*Client, error) {
	if runtime == nil {
		return nil, errors.New("bedrock: runtime client is required")
	}
	if strings.TrimSpace(defaultModel) == "" {
		return nil, errors.New("bedrock: default model is required")
	}
	return &Client{runtime: runtime, defaultModel: defaultModel}, nil
}

// Complete issues one Converse call with a single user turn.
func (c *Client) Complete(ctx context.Context, req mlmodel.Request) (mlmodel.Response, error) {
	modelID := req.Model
	if modelID == "" {
		modelID = c.defaultModel
	}

	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(modelID),
		Messages: []brtypes.Message{
			{
				Role:    brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: req.Prompt}},
			},
		},
	}
	if req.System != "" {
		input.System = []brtypes.SystemContentBlock{&brtypes.SystemContentBlockMemberText{Value: req.System}}
	}
	if req.MaxTokens > 0 || req.Temperature > 0 {
		cfg := &brtypes.InferenceConfiguration{}
		if req.MaxTokens > 0 {
			mt := int32(req.MaxTokens)
			cfg.MaxTokens = &mt
		}
		if req.Temperature > 0 {
			cfg.Temperature = aws.Float32(req.Temperature)
		}
		input.InferenceConfig = cfg
	}

	out, err := c.runtime.Converse(ctx, input)
	if err != nil {
		return mlmodel.Response{}, err
	}
	return translate(out), nil
}

func translate(out *bedrockruntime.ConverseOutput) mlmodel.Response {
	var sb strings.Builder
	if msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage); ok {
		for _, block := range msg.Value.Content {
			if text, ok := block.(*brtypes.ContentBlockMemberText); ok {
				sb.WriteString(text.Value)
			}
		}
	}
	resp := mlmodel.Response{Text: sb.String()}
	if out.Usage != nil {
		if out.Usage.InputTokens != nil {
			resp.Usage.InputTokens = int(*out.Usage.InputTokens)
		}
		if out.Usage.OutputTokens != nil {
			resp.Usage.OutputTokens = int(*out.Usage.OutputTokens)
		}
	}
	return resp
}

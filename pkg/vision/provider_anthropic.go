package vision

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider implements Provider for Anthropic Claude.
type AnthropicProvider struct {
	client anthropic.Client
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(apiKey string) *AnthropicProvider {
	return &AnthropicProvider{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
	}
}

// Provider returns the provider name.
func (p *AnthropicProvider) Provider() string {
	return "anthropic"
}

// Complete makes an API call to Anthropic Claude.
func (p *AnthropicProvider) Complete(ctx context.Context, request Request) (*Response, error) {
	messages := []anthropic.MessageParam{}

	for _, turn := range request.History {
		switch turn.Role {
		case RoleUser:
			messages = append(messages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(turn.Content),
			))
		case RoleAssistant:
			messages = append(messages, anthropic.MessageParam{
				Role: anthropic.MessageParamRoleAssistant,
				Content: []anthropic.ContentBlockParamUnion{
					anthropic.NewTextBlock(turn.Content),
				},
			})
		}
	}

	// The new user turn carries the image, when present, ahead of the text
	// instruction.
	blocks := []anthropic.ContentBlockParamUnion{}
	if request.Image != nil {
		blocks = append(blocks, anthropic.NewImageBlockBase64(
			request.Image.MediaType,
			base64.StdEncoding.EncodeToString(request.Image.Data),
		))
	}
	blocks = append(blocks, anthropic.NewTextBlock(request.Prompt))
	messages = append(messages, anthropic.NewUserMessage(blocks...))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(request.Model),
		Messages:  messages,
		MaxTokens: int64(request.MaxTokens),
	}

	if request.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: request.SystemPrompt},
		}
	}

	if request.Temperature > 0 {
		params.Temperature = anthropic.Float(request.Temperature)
	}

	response, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	content := ""
	for _, block := range response.Content {
		if b, ok := block.AsAny().(anthropic.TextBlock); ok {
			content += b.Text
		}
	}

	return &Response{
		Content: content,
		Usage: &TokenUsage{
			InputTokens:  int(response.Usage.InputTokens),
			OutputTokens: int(response.Usage.OutputTokens),
		},
	}, nil
}

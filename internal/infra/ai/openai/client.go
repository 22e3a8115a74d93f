package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	domain "github.com/bryanwahyu/exewatch/internal/domain/ai"
	"github.com/bryanwahyu/exewatch/internal/infra/ai/prompt"
)

const maxTokens = 1024

type Client struct {
	*openai.Client
	Model string
}

var _ domain.Client = (*Client)(nil)

func NewClient(apiKey, model string) *Client {
	return &Client{Client: openai.NewClient(apiKey), Model: model}
}

func (c *Client) Summarize(ctx context.Context, req domain.SummaryRequest) (string, error) {
	model := c.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	chatReq := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.GetSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: prompt.GetUserPrompt(req)},
		},
	}
	// Reasoning models (o1/o3/o4/gpt-5*) take MaxCompletionTokens instead of MaxTokens
	if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
		chatReq.MaxCompletionTokens = maxTokens
	} else {
		chatReq.MaxTokens = maxTokens
	}

	resp, err := c.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

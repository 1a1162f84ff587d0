package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Message is one chat message sent to the provider.
type Message struct {
	Role    string
	Content string
}

// ChatClient is the black-box AI capability: given structured messages,
// return raw content or fail. Tests inject fakes.
type ChatClient interface {
	Chat(ctx context.Context, model string, messages []Message) (string, error)
}

// OpenAIClient implements ChatClient on the OpenAI chat completion API.
type OpenAIClient struct {
	client  *openai.Client
	timeout time.Duration
}

// NewOpenAIClient creates a ChatClient backed by OpenAI.
func NewOpenAIClient(apiKey string, timeout time.Duration) *OpenAIClient {
	return &OpenAIClient{
		client:  openai.NewClient(apiKey),
		timeout: timeout,
	}
}

// Chat sends the messages and returns the first choice's content. The call is
// bounded by the configured timeout; a timeout surfaces as an error, never a
// retry.
func (c *OpenAIClient) Chat(ctx context.Context, model string, messages []Message) (string, error) {
	if c.client == nil {
		return "", fmt.Errorf("OpenAI client not initialized")
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	chatMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		role := m.Role
		if role == "" {
			role = openai.ChatMessageRoleUser
		}
		chatMessages[i] = openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		}
	}

	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:       model,
			Messages:    chatMessages,
			Temperature: 0.3,
		},
	)
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	return resp.Choices[0].Message.Content, nil
}

package llm

import (
	"context"
	"errors"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// DefaultNarratorBaseURL is the OpenRouter endpoint, which fronts Claude and
// other chat models behind the OpenAI protocol.
const DefaultNarratorBaseURL = "https://openrouter.ai/api/v1"

// ChatNarrator writes prose through an OpenAI-compatible chat completion API.
type ChatNarrator struct {
	client *openai.Client
	model  string
	policy Policy
	log    *zap.Logger
}

// NewChatNarrator creates a narrator client. An empty baseURL targets
// OpenRouter.
func NewChatNarrator(apiKey, baseURL, model string, policy Policy, log *zap.Logger) *ChatNarrator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL == "" {
		baseURL = DefaultNarratorBaseURL
	}
	cfg.BaseURL = baseURL

	return &ChatNarrator{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		policy: policy,
		log:    log.With(zap.String("model", model)),
	}
}

// Generate returns the assistant reply to prompt, capped at maxTokens.
func (n *ChatNarrator) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	return n.policy.Do(ctx, n.log, "narrator", func(ctx context.Context) (string, error) {
		resp, err := n.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: n.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			MaxTokens:   maxTokens,
			Temperature: 0.9,
		})
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("no choices in response")
		}
		return resp.Choices[0].Message.Content, nil
	})
}

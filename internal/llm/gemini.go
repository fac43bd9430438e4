package llm

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Gemini answers rules prompts with JSON.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
	policy Policy
	log    *zap.Logger
}

// NewGemini connects to the Gemini API.
func NewGemini(ctx context.Context, apiKey, modelName string, policy Policy, log *zap.Logger) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	// Ask for JSON; replies are still validated by the caller.
	model.ResponseMIMEType = "application/json"

	return &Gemini{
		client: client,
		model:  model,
		policy: policy,
		log:    log.With(zap.String("model", modelName)),
	}, nil
}

// Generate sends prompt and returns the concatenated text parts of the first
// candidate.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	return g.policy.Do(ctx, g.log, "gemini", func(ctx context.Context) (string, error) {
		resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return "", err
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return "", fmt.Errorf("no content returned from Gemini")
		}
		return textOf(resp), nil
	})
}

// Close releases the underlying client.
func (g *Gemini) Close() error {
	return g.client.Close()
}

func textOf(resp *genai.GenerateContentResponse) string {
	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text += string(txt)
		}
	}
	return text
}

// Package generation calls the chat completion endpoint with a single
// self-contained prompt.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/aiox-platform/ragchat/internal/metrics"
)

// ErrGenerationService wraps failed or empty completion calls.
var ErrGenerationService = errors.New("generation service error")

// EmptyResponse replaces a completion that carried no text.
const EmptyResponse = "No response generated."

const summaryTemperature = 0.3

// Generator turns a prompt into answer text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
}

// OpenAIGenerator is a Generator and a memory summarizer backed by
// CreateChatCompletion. Conversation state lives in the prompt, so every
// call sends exactly one user message.
type OpenAIGenerator struct {
	client      *openai.Client
	model       string
	temperature float32
}

func NewOpenAIGenerator(cfg Config) *OpenAIGenerator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIGenerator{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.complete(ctx, prompt, g.temperature)
}

// Summarize runs the summarization prompt at a lower temperature.
func (g *OpenAIGenerator) Summarize(ctx context.Context, prompt string) (string, error) {
	return g.complete(ctx, prompt, summaryTemperature)
}

func (g *OpenAIGenerator) complete(ctx context.Context, prompt string, temperature float32) (string, error) {
	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	metrics.GenerationRequestDuration.WithLabelValues(g.model).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(g.model, "error").Inc()
		return "", fmt.Errorf("chat completion failed: %v: %w", err, ErrGenerationService)
	}

	if len(resp.Choices) == 0 {
		metrics.GenerationRequestsTotal.WithLabelValues(g.model, "error").Inc()
		return "", fmt.Errorf("chat completion returned no choices: %w", ErrGenerationService)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(g.model, "success").Inc()
	return normalize(resp.Choices[0].Message), nil
}

// normalize prefers the plain content, then the text parts of structured
// content, then EmptyResponse.
func normalize(msg openai.ChatCompletionMessage) string {
	if strings.TrimSpace(msg.Content) != "" {
		return msg.Content
	}

	var b strings.Builder
	for _, part := range msg.MultiContent {
		if part.Type == openai.ChatMessagePartTypeText {
			b.WriteString(part.Text)
		}
	}
	if text := b.String(); strings.TrimSpace(text) != "" {
		return text
	}
	return EmptyResponse
}

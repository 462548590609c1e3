package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/triage-ai/ehr-gateway/internal/disclosure"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	DefaultModel       = "gemini-2.5-flash"
	DefaultTemperature = float32(0.6)
)

// generator is the subset of *genai.Models used here.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GenAIConsumer answers through the Gemini API.
type GenAIConsumer struct {
	models      generator
	model       string
	temperature float32
	logger      *zap.Logger
}

// NewGenAIConsumer creates a consumer backed by a Gemini API client.
func NewGenAIConsumer(ctx context.Context, apiKey, model string, temperature float32, logger *zap.Logger) (*GenAIConsumer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("NewGenAIConsumer: API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("NewGenAIConsumer: %w", err)
	}
	return newGenAIConsumer(client.Models, model, temperature, logger), nil
}

func newGenAIConsumer(models generator, model string, temperature float32, logger *zap.Logger) *GenAIConsumer {
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GenAIConsumer{
		models:      models,
		model:       model,
		temperature: temperature,
		logger:      logger,
	}
}

func (c *GenAIConsumer) Answer(ctx context.Context, question string, dc disclosure.Context) (string, error) {
	p, err := BuildPrompt(question, dc)
	if err != nil {
		return "", fmt.Errorf("Answer: %w", err)
	}

	// The context travels with the system instruction; the question is the
	// only user turn.
	contents := []*genai.Content{
		genai.NewContentFromText(p.Question, genai.RoleUser),
	}
	system := genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromText(p.System),
		genai.NewPartFromText(p.Context),
	}, genai.RoleUser)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: system,
		Temperature:       genai.Ptr(c.temperature),
	}

	resp, err := c.models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("Answer: generate: %w", err)
	}

	answer := strings.TrimSpace(resp.Text())
	if answer == "" {
		return "", fmt.Errorf("Answer: %w", ErrEmptyAnswer)
	}

	c.logger.Debug("model answered",
		zap.String("model", c.model),
		zap.Strings("categories", disclosure.Strings(dc.Keys())),
		zap.Int("answer_len", len(answer)),
	)
	return answer, nil
}

var _ Consumer = (*GenAIConsumer)(nil)

package services

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

const DefaultGeminiModel = "gemini-2.0-flash"

type genaiBackend struct {
	client *genai.Client
	model  string
}

func (b *genaiBackend) Generate(ctx context.Context, prompt string, temperature float32, maxOutputTokens int32) (*genai.GenerateContentResponse, error) {
	model := b.client.GenerativeModel(b.model)
	model.SetTemperature(temperature)
	model.SetMaxOutputTokens(maxOutputTokens)
	return model.GenerateContent(ctx, genai.Text(prompt))
}

func (b *genaiBackend) Close() error {
	return b.client.Close()
}

// NewGeminiCompletionClient returns a client whose backend is a Gemini
// model reached with apiKey. The connection opens on the first Complete.
func NewGeminiCompletionClient(apiKey, model string, opts CompletionOptions, log zerolog.Logger) (*CompletionClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	factory := func(ctx context.Context) (generator, error) {
		// the connection outlives the request that happened to open it
		client, err := genai.NewClient(context.WithoutCancel(ctx), option.WithAPIKey(apiKey))
		if err != nil {
			return nil, fmt.Errorf("failed to create GenAI client: %w", err)
		}
		return &genaiBackend{client: client, model: model}, nil
	}
	return newCompletionClient(factory, opts, log), nil
}

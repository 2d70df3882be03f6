package ai

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	appErrors "github.com/unclebandit/emailace-backend/internal/errors"
	"github.com/unclebandit/emailace-backend/internal/logger"
)

// Request is one structured generation call.
type Request struct {
	Prompt      string
	Schema      *genai.Schema
	Temperature float32
}

// Model returns the JSON text produced for a request.
type Model interface {
	GenerateJSON(ctx context.Context, req Request) (string, error)
}

type GeminiClient struct {
	client     *genai.Client
	model      string
	maxRetries int
	log        *logger.Logger
}

func NewGeminiClient(ctx context.Context, apiKey, model string, maxRetries int, log *logger.Logger) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, appErrors.NewConfiguration("gemini", "GEMINI_API_KEY must be set", nil)
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	if maxRetries < 1 {
		maxRetries = 1
	}
	if log == nil {
		log = logger.Nop()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, appErrors.NewConfiguration("gemini", "failed to create gemini client", err)
	}

	return &GeminiClient{
		client:     client,
		model:      model,
		maxRetries: maxRetries,
		log:        log.WithComponent("gemini"),
	}, nil
}

// GenerateJSON asks for an application/json response constrained by req.Schema
// and retries until maxRetries attempts or ctx is done.
func (g *GeminiClient) GenerateJSON(ctx context.Context, req Request) (string, error) {
	temperature := req.Temperature
	cfg := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		MaxOutputTokens:  2048,
		ResponseMIMEType: "application/json",
		ResponseSchema:   req.Schema,
	}

	var lastErr error
	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		text, err := g.generate(ctx, req.Prompt, cfg)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", fmt.Errorf("gemini: %w", ctx.Err())
		}
		if attempt < g.maxRetries {
			g.log.Warn().Err(err).Int("attempt", attempt).Msg("gemini call failed, retrying")
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("gemini: %w", ctx.Err())
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}
	}
	return "", fmt.Errorf("gemini: failed after %d attempts: %w", g.maxRetries, lastErr)
}

func (g *GeminiClient) generate(ctx context.Context, prompt string, cfg *genai.GenerateContentConfig) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", fmt.Errorf("empty response")
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("no text content in response")
	}
	return ExtractJSON(text), nil
}

// Package gemini adapts the Google generative AI client to the knowledge assistant.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/googleapis/gax-go/v2/apierror"
	"github.com/sawatantra/api/shared/config"
	internal_errors "github.com/sawatantra/api/shared/errors"
	"github.com/sawatantra/api/shared/logger"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

type Client struct {
	client   *genai.Client
	embedder *genai.EmbeddingModel
	model    *genai.GenerativeModel
}

// New returns a client for the configured models. It returns Disabled when no
// API key is configured so the rest of the API keeps working.
func New(ctx context.Context, apiKey string, cfg config.Assistant) (Assistant, error) {
	if apiKey == "" {
		logger.Log.Warn("gemini api key is not configured, knowledge assistant is disabled")
		return Disabled{}, nil
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{
		client:   client,
		embedder: client.EmbeddingModel(cfg.EmbedModel),
		model:    client.GenerativeModel(cfg.GenerateModel),
	}, nil
}

// Assistant is the union of the embedding and generation capabilities.
type Assistant interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Generate(ctx context.Context, prompt string) (string, error)
	Close() error
}

func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	res, err := c.embedder.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, classify("embed", err)
	}
	if res == nil || res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, errors.New("gemini: empty embedding")
	}
	out := make([]float64, len(res.Embedding.Values))
	for i, v := range res.Embedding.Values {
		out[i] = float64(v)
	}
	return out, nil
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", classify("generate", err)
	}
	return responseText(resp), nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		// first candidate only
		break
	}
	return sb.String()
}

// classify maps provider rate limiting to ErrAssistantBusy and wraps everything else.
func classify(op string, err error) error {
	if IsRateLimited(err) {
		logger.Log.Warn("gemini rate limited", "op", op, "error", err)
		return internal_errors.ErrAssistantBusy
	}
	return fmt.Errorf("gemini %s: %w", op, err)
}

func IsRateLimited(err error) bool {
	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPCode() == http.StatusTooManyRequests {
			return true
		}
		if apiErr.GRPCStatus().Code().String() == "ResourceExhausted" {
			return true
		}
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) && gErr.Code == http.StatusTooManyRequests {
		return true
	}
	return false
}

// Disabled answers every call with ErrAssistantDisabled.
type Disabled struct{}

func (Disabled) Embed(context.Context, string) ([]float64, error) {
	return nil, internal_errors.ErrAssistantDisabled
}

func (Disabled) Generate(context.Context, string) (string, error) {
	return "", internal_errors.ErrAssistantDisabled
}

func (Disabled) Close() error { return nil }

package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/geogrub/internal/domain"
	"github.com/kailas-cloud/geogrub/internal/metrics"
)

const (
	defaultMaxTokens = 200
	// maxReviewChars bounds a single review in the prompt.
	maxReviewChars = 600

	systemPrompt = "You summarize restaurant reviews for someone deciding where to eat. " +
		"Reply with two or three plain sentences covering food, service and value. " +
		"Do not invent details that are not in the reviews."
)

var errEmptyCompletion = errors.New("empty completion")

// Summarizer condenses a place's reviews through an OpenAI-compatible chat API.
type Summarizer struct {
	client    *openai.Client
	model     string
	maxTokens int
	provider  string
	logger    *zap.Logger
}

// Config holds the summary provider settings.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Provider  string
	Logger    *zap.Logger
}

// NewSummarizer creates an OpenAI-compatible review summarizer.
func NewSummarizer(cfg *Config) *Summarizer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	provider := cfg.Provider
	if provider == "" {
		provider = "openai"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Summarizer{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		maxTokens: maxTokens,
		provider:  provider,
		logger:    logger,
	}
}

// Summarize returns a short summary of the reviews.
func (s *Summarizer) Summarize(ctx context.Context, place string, reviews []domain.Review) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:     s.model,
		MaxTokens: s.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(place, reviews)},
		},
	}

	start := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		err = parseAPIError(err)
		metrics.ObserveProviderRequest(s.provider, "summarize", start, err)
		return "", err
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		err = fmt.Errorf("%w: %w", errEmptyCompletion, domain.ErrProviderTransport)
		metrics.ObserveProviderRequest(s.provider, "summarize", start, err)
		return "", err
	}

	metrics.ObserveProviderRequest(s.provider, "summarize", start, nil)
	s.logger.Debug("Reviews summarized",
		zap.String("place", place),
		zap.Int("reviews", len(reviews)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (s *Summarizer) HealthCheck(ctx context.Context) error {
	if _, err := s.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func buildPrompt(place string, reviews []domain.Review) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Reviews of %s:\n", place)
	for i, r := range reviews {
		text := strings.TrimSpace(r.Text)
		if len(text) > maxReviewChars {
			text = text[:maxReviewChars] + "..."
		}
		fmt.Fprintf(&b, "%d. (%d/5) %s\n", i+1, r.Rating, text)
	}
	return b.String()
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrProviderTransport for correct 502 mapping.
func parseAPIError(err error) error {
	wrap := domain.ErrProviderTransport

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return fmt.Errorf("summary API error %d: %s: %w", reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("summary API error %d: %w", reqErr.HTTPStatusCode, wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("summary API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("summary request failed: %v: %w", err, wrap)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}

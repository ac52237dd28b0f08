package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/bryanwahyu/docimpact/internal/domain/ai"
	"github.com/bryanwahyu/docimpact/internal/logger"
)

const (
	defaultModel     = "gpt-4o-mini"
	defaultMaxTokens = 2048
)

// Client implements ai.Client on the OpenAI chat completion API. Calls go
// through a circuit breaker; HTTP 429 maps to ai.ErrQuotaExceeded.
type Client struct {
	*openai.Client
	Model     string
	MaxTokens int

	breaker *gobreaker.CircuitBreaker
}

func NewClient(apiKey, model string, maxTokens int) *Client {
	return NewClientWithBaseURL(apiKey, "", model, maxTokens)
}

// NewClientWithBaseURL targets an OpenAI-compatible endpoint when baseURL is set.
func NewClientWithBaseURL(apiKey, baseURL, model string, maxTokens int) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = defaultModel
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openai",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
		// quota errors are not an outage
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ai.ErrQuotaExceeded)
		},
	})
	return &Client{Client: openai.NewClientWithConfig(cfg), Model: model, MaxTokens: maxTokens, breaker: cb}
}

func (c *Client) Complete(ctx context.Context, messages []ai.Message, jsonMode bool) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:    c.Model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	if jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if isReasoningModel(c.Model) {
		req.MaxCompletionTokens = c.MaxTokens
	} else {
		req.MaxTokens = c.MaxTokens
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.CreateChatCompletion(ctx, req)
		if err != nil {
			return nil, mapError(err)
		}
		if len(resp.Choices) == 0 {
			return nil, errors.New("chat completion returned no choices")
		}
		return resp.Choices[0].Message.Content, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("%w: %v", ai.ErrUnavailable, err)
	}
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

func isReasoningModel(model string) bool {
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

func mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %s", ai.ErrQuotaExceeded, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", ai.ErrQuotaExceeded, reqErr.Err)
	}
	return fmt.Errorf("failed to create chat completion: %w", err)
}

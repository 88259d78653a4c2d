package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ComplianceRelish/lexassist-backend/internal/logger"
)

// OpenAIClient wraps the chat-completion API with retry and JSON-mode
// decoding. Every LLM pass in the system goes through here.
type OpenAIClient interface {
	CompleteJSON(ctx context.Context, system, user string, out any) error
}

type openAIClient struct {
	log        *logger.Logger
	client     *openai.Client
	model      string
	maxRetries int
}

func NewOpenAIClient(log *logger.Logger) (OpenAIClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL := strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")); baseURL != "" {
		cfg.BaseURL = baseURL
	}

	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = openai.GPT4o
	}

	maxRetries := 4
	if v := os.Getenv("OPENAI_MAX_RETRIES"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed >= 0 {
			maxRetries = parsed
		}
	}

	return &openAIClient{
		log:        log.With("service", "OpenAIClient"),
		client:     openai.NewClientWithConfig(cfg),
		model:      model,
		maxRetries: maxRetries,
	}, nil
}

func isRetryableHTTP(code int) bool {
	if code == 408 || code == 429 {
		return true
	}
	return code >= 500 && code <= 599
}

func isRetryableErr(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return isRetryableHTTP(apiErr.HTTPStatusCode)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

func (c *openAIClient) CompleteJSON(ctx context.Context, system, user string, out any) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			backoff += time.Duration(rand.Intn(500)) * time.Millisecond
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			c.log.Warn("retrying openai call", "attempt", attempt, "error", lastErr)
		}

		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: user},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if isRetryableErr(err) {
				lastErr = err
				continue
			}
			return fmt.Errorf("openai completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("openai returned no choices")
			continue
		}

		content := strings.TrimSpace(resp.Choices[0].Message.Content)
		if err := json.Unmarshal([]byte(content), out); err != nil {
			// Model occasionally wraps JSON in a fence despite JSON mode.
			trimmed := strings.TrimPrefix(content, "```json")
			trimmed = strings.TrimPrefix(trimmed, "```")
			trimmed = strings.TrimSuffix(trimmed, "```")
			if err2 := json.Unmarshal([]byte(strings.TrimSpace(trimmed)), out); err2 != nil {
				lastErr = fmt.Errorf("decode openai json: %w", err)
				continue
			}
		}
		return nil
	}
	return fmt.Errorf("openai call failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/insightlab/backend/internal/logger"
)

const (
	defaultBaseURL     = "https://api.together.xyz"
	defaultModel       = "mistralai/Mixtral-8x7B-Instruct-v0.1"
	defaultTemperature = 0.1
	defaultMaxTokens   = 3000
)

// HTTPClient speaks the OpenAI-compatible /v1/chat/completions API.
type HTTPClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

var _ Client = &HTTPClient{}

func NewHTTPClient(baseURL, apiKey, model string) *HTTPClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 300 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *HTTPClient) Complete(ctx context.Context, messages []Message, opts ...Option) (string, error) {
	options := &Options{
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
		Model:       c.model,
	}
	for _, opt := range opts {
		opt(options)
	}

	request := chatCompletionRequest{
		Model:       options.Model,
		Temperature: options.Temperature,
		MaxTokens:   options.MaxTokens,
		Messages:    make([]chatMessage, len(messages)),
	}
	for i, msg := range messages {
		request.Messages[i] = chatMessage{Role: msg.Role, Content: msg.Content}
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/chat/completions", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		logger.Error("Completion request failed", map[string]interface{}{
			"duration": elapsed.String(),
			"error":    err.Error(),
		})
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	logger.Debug("Completion request finished", map[string]interface{}{
		"model":    options.Model,
		"messages": len(messages),
		"status":   resp.StatusCode,
		"duration": elapsed.String(),
	})

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("completion API returned status %d, body: %s", resp.StatusCode, string(body))
	}

	var completion chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("completion API returned no choices")
	}
	return completion.Choices[0].Message.Content, nil
}

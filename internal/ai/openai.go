package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	DefaultOpenAIURL   = "https://api.openai.com/v1/chat/completions"
	DefaultOpenAIModel = "gpt-4o-mini"
)

// OpenAI is a client for the OpenAI chat completions API
type OpenAI struct {
	apiKey      string
	apiURL      string
	model       string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
}

// NewOpenAI creates a new OpenAI client
func NewOpenAI(apiKey, model string) *OpenAI {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAI{
		apiKey:      apiKey,
		apiURL:      DefaultOpenAIURL,
		model:       model,
		maxTokens:   60,
		temperature: 0.7,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Message represents a message in the chat conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents a request to the chat completions API
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

// ChatResponse represents a response from the chat completions API
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete generates an example sentence for the term
func (c *OpenAI) Complete(ctx context.Context, term, definition string) (string, error) {
	request := ChatRequest{
		Model: c.model,
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: Prompt(term, definition)},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	requestData, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(requestData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var response ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}
	if response.Error != nil {
		return "", fmt.Errorf("API error: %s", response.Error.Message)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response choices returned")
	}

	example := clean(response.Choices[0].Message.Content)
	if example == "" {
		return "", fmt.Errorf("empty example returned")
	}
	return example, nil
}

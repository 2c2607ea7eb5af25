package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultAPIURL  = "https://api.deepseek.com/v1/chat/completions"
	defaultModel   = "deepseek-chat"
	defaultTimeout = 120 * time.Second
)

// Client speaks the DeepSeek chat-completions API (OpenAI-compatible JSON).
// A call is a single blocking round-trip with a bounded timeout; failed
// calls are NOT retried, the error surfaces to the caller immediately.
type Client struct {
	apiKey     string
	apiURL     string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
}

// ChatRequest is one completion request: a system persona plus the full
// prompt text. Temperature and MaxTokens are set per call site.
type ChatRequest struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiRequest struct {
	Model       string       `json:"model"`
	Messages    []apiMessage `json:"messages"`
	Temperature float64      `json:"temperature"`
	MaxTokens   int          `json:"max_tokens"`
}

type apiResponse struct {
	Choices []struct {
		Message apiMessage `json:"message"`
	} `json:"choices"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func NewClient(logger *zap.Logger) *Client {
	apiURL := os.Getenv("DEEPSEEK_API_URL")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	model := os.Getenv("DEEPSEEK_MODEL")
	if model == "" {
		model = defaultModel
	}

	return &Client{
		apiKey:     os.Getenv("DEEPSEEK_API_KEY"),
		apiURL:     apiURL,
		model:      model,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
}

func (c *Client) Model() string {
	return c.model
}

// Chat sends one completion request and returns the assistant text. Any
// non-200 status is an error; the response body is included for diagnosis.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (string, error) {
	body, err := json.Marshal(apiRequest{
		Model: c.model,
		Messages: []apiMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.logger.Debug("sending chat completion request",
		zap.String("model", c.model),
		zap.Int("prompt_chars", len(req.Prompt)),
		zap.Int("max_tokens", req.MaxTokens))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("deepseek request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read deepseek response: %w", err)
	}

	c.logger.Debug("chat completion response", zap.Int("status", resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("deepseek API status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed apiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode deepseek response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		if parsed.Error.Message != "" {
			return "", fmt.Errorf("deepseek API error: %s", parsed.Error.Message)
		}
		return "", fmt.Errorf("deepseek response contained no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}

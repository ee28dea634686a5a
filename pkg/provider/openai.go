package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAI calls any chat-completions-compatible API with bearer-token
// auth. Pointing the base URL at Groq, DeepSeek, or a local server
// works unchanged; set the name so pool logs tell them apart.
type OpenAI struct {
	name    string
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// OpenAIOption configures an OpenAI-compatible provider.
type OpenAIOption func(*OpenAI)

// WithOpenAIModel sets the model, e.g. "gpt-4o-mini".
func WithOpenAIModel(model string) OpenAIOption {
	return func(o *OpenAI) { o.model = model }
}

// WithOpenAIBaseURL overrides the API base URL (no trailing slash
// needed); use it for compatible backends.
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(o *OpenAI) { o.baseURL = strings.TrimRight(url, "/") }
}

// WithOpenAIName overrides the provider name reported to the pool.
func WithOpenAIName(name string) OpenAIOption {
	return func(o *OpenAI) { o.name = name }
}

// WithOpenAIHTTPClient overrides the HTTP client.
func WithOpenAIHTTPClient(c *http.Client) OpenAIOption {
	return func(o *OpenAI) { o.client = c }
}

// NewOpenAI creates an OpenAI-compatible provider.
func NewOpenAI(apiKey string, opts ...OpenAIOption) *OpenAI {
	o := &OpenAI{
		name:    "openai",
		apiKey:  apiKey,
		model:   "gpt-4o-mini",
		baseURL: defaultOpenAIBaseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Name implements Provider.
func (o *OpenAI) Name() string { return o.name }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete implements Provider.
func (o *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body := chatRequest{
		Model:       o.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", NewError(o.name, "complete", fmt.Errorf("marshal request: %w", err), false)
	}

	endpoint := o.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", NewError(o.name, "complete", err, false)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", NewError(o.name, "complete", ctx.Err(), false)
		}
		return "", NewError(o.name, "complete", err, true)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg := readChatError(resp.Body)
		retryable := isRetryableStatus(resp.StatusCode) || isRetryableMessage(msg)
		return "", NewError(o.name, "complete",
			fmt.Errorf("status %d: %s", resp.StatusCode, msg), retryable)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", NewError(o.name, "complete", fmt.Errorf("decode response: %w", err), true)
	}
	if len(out.Choices) == 0 {
		return "", NewError(o.name, "complete", fmt.Errorf("empty response"), true)
	}
	return out.Choices[0].Message.Content, nil
}

func readChatError(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return "unreadable error body"
	}
	var e chatErrorResponse
	if json.Unmarshal(data, &e) == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return strings.TrimSpace(string(data))
}

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// ErrMissingAPIKey is returned by Send when no API key is configured
var ErrMissingAPIKey = errors.New("missing API key")

// ErrEmptyReply is returned when the provider answered without any text
var ErrEmptyReply = errors.New("empty reply")

// APIError is a non-2xx answer from a provider
type APIError struct {
	Provider   Provider
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API returned %d: %s", e.Provider.Name(), e.StatusCode, e.Body)
}

// maxTokens caps the length of a reply for providers that require a limit
const maxTokens = 4096

type providerInfo struct {
	envKey  string
	baseURL string
	model   string
}

var providerInfos = map[Provider]providerInfo{
	Claude: {envKey: "ANTHROPIC_API_KEY", baseURL: "https://api.anthropic.com", model: "claude-sonnet-4-20250514"},
	Grok:   {envKey: "XAI_API_KEY", baseURL: "https://api.x.ai", model: "grok-4"},
	OpenAI: {envKey: "OPENAI_API_KEY", baseURL: "https://api.openai.com", model: "gpt-5"},
	Gemini: {envKey: "GEMINI_API_KEY", baseURL: "https://generativelanguage.googleapis.com", model: "gemini-2.5-pro"},
}

// HTTPClient talks to one provider's HTTPS API
type HTTPClient struct {
	provider Provider
	apiKey   string
	baseURL  string
	model    string
	http     *http.Client
}

// ClientOption configures an HTTPClient
type ClientOption func(*HTTPClient)

// WithAPIKey overrides the key read from the environment
func WithAPIKey(key string) ClientOption {
	return func(c *HTTPClient) { c.apiKey = key }
}

// WithBaseURL points the client at another endpoint
func WithBaseURL(u string) ClientOption {
	return func(c *HTTPClient) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithModel overrides the provider's default model
func WithModel(m string) ClientOption {
	return func(c *HTTPClient) { c.model = m }
}

// WithHTTPClient sets the underlying http.Client
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *HTTPClient) { c.http = h }
}

// NewClient creates a client for p. The API key is read from the
// provider's environment variable unless WithAPIKey is given.
func NewClient(p Provider, opts ...ClientOption) *HTTPClient {
	info := providerInfos[p]
	c := &HTTPClient{
		provider: p,
		apiKey:   os.Getenv(info.envKey),
		baseURL:  info.baseURL,
		model:    info.model,
		http:     &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Provider returns the provider this client talks to
func (c *HTTPClient) Provider() Provider {
	return c.provider
}

// Send posts the conversation and returns the assistant's reply
func (c *HTTPClient) Send(ctx context.Context, messages []Message) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: set %s", ErrMissingAPIKey, providerInfos[c.provider].envKey)
	}

	switch c.provider {
	case Claude:
		return c.sendAnthropic(ctx, messages)
	case Gemini:
		return c.sendGemini(ctx, messages)
	default:
		return c.sendChatCompletions(ctx, messages)
	}
}

type anthropicRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []chatMsg `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (c *HTTPClient) sendAnthropic(ctx context.Context, messages []Message) (string, error) {
	body := anthropicRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages:  toChatMsgs(messages),
	}
	headers := map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": "2023-06-01",
	}

	var resp anthropicResponse
	if err := c.post(ctx, c.baseURL+"/v1/messages", headers, body, &resp); err != nil {
		return "", err
	}

	var b strings.Builder
	for _, part := range resp.Content {
		if part.Type == "text" {
			b.WriteString(part.Text)
		}
	}
	if b.Len() == 0 {
		return "", ErrEmptyReply
	}
	return b.String(), nil
}

type chatMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func toChatMsgs(messages []Message) []chatMsg {
	out := make([]chatMsg, len(messages))
	for i, m := range messages {
		out[i] = chatMsg{Role: m.Role, Content: m.Content}
	}
	return out
}

type chatCompletionsRequest struct {
	Model    string    `json:"model"`
	Messages []chatMsg `json:"messages"`
}

type chatCompletionsResponse struct {
	Choices []struct {
		Message chatMsg `json:"message"`
	} `json:"choices"`
}

// sendChatCompletions serves OpenAI and xAI, which share the same wire format
func (c *HTTPClient) sendChatCompletions(ctx context.Context, messages []Message) (string, error) {
	body := chatCompletionsRequest{
		Model:    c.model,
		Messages: toChatMsgs(messages),
	}
	headers := map[string]string{
		"Authorization": "Bearer " + c.apiKey,
	}

	var resp chatCompletionsResponse
	if err := c.post(ctx, c.baseURL+"/v1/chat/completions", headers, body, &resp); err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyReply
	}
	return resp.Choices[0].Message.Content, nil
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (c *HTTPClient) sendGemini(ctx context.Context, messages []Message) (string, error) {
	body := geminiRequest{Contents: make([]geminiContent, len(messages))}
	for i, m := range messages {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		body.Contents[i] = geminiContent{Role: role, Parts: []geminiPart{{Text: m.Content}}}
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	headers := map[string]string{
		"x-goog-api-key": c.apiKey,
	}

	var resp geminiResponse
	if err := c.post(ctx, endpoint, headers, body, &resp); err != nil {
		return "", err
	}

	var b strings.Builder
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			b.WriteString(part.Text)
		}
		if b.Len() > 0 {
			break
		}
	}
	if b.Len() == 0 {
		return "", ErrEmptyReply
	}
	return b.String(), nil
}

func (c *HTTPClient) post(ctx context.Context, endpoint string, headers map[string]string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", c.provider.Name(), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read %s response: %w", c.provider.Name(), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Provider: c.provider, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", c.provider.Name(), err)
	}
	return nil
}

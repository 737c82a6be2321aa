// Package llm provides a provider-agnostic client for the generative
// text endpoint that performs the issue analysis.
package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// maxResponseSize limits the response body to prevent memory exhaustion.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// defaultTimeout bounds each completion call. There is no internal
// retry: a timeout surfaces as a transport failure at this boundary.
const defaultTimeout = 60 * time.Second

// Client sends completion requests to a single configured provider.
type Client struct {
	provider    Provider
	endpoint    string
	model       string
	apiKey      string
	temperature *float64
	maxTokens   int
	httpClient  *http.Client
	logger      *slog.Logger
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`    // "system" or "user"
	Content string `json:"content"` // Message content
}

// Request defines a completion request.
type Request struct {
	// System is the fixed system instruction.
	System string

	// Prompt is the rendered context prompt.
	Prompt string

	// JSONOnly hints the endpoint to respond with a JSON object.
	JSONOnly bool
}

// Response contains the completion result.
type Response struct {
	// Content is the generated text.
	Content string

	// Model is the model that produced it.
	Model string

	// FinishReason indicates why generation stopped.
	FinishReason string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(client *Client) {
		client.logger = logger
	}
}

// WithTemperature sets an explicit sampling temperature.
func WithTemperature(t float64) ClientOption {
	return func(client *Client) {
		client.temperature = &t
	}
}

// WithMaxTokens limits response length.
func WithMaxTokens(n int) ClientOption {
	return func(client *Client) {
		client.maxTokens = n
	}
}

// NewClient creates a client for the named provider. The API key is
// held by the client and passed to the provider per request — nothing
// here reads ambient process state.
func NewClient(providerName, endpoint, model, apiKey string, opts ...ClientOption) (*Client, error) {
	provider := GetProvider(providerName)
	if provider == nil {
		return nil, fmt.Errorf("unknown provider %q (registered: %v)", providerName, ListProviders())
	}

	c := &Client{
		provider: provider,
		endpoint: endpoint,
		model:    model,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Complete sends one completion request and returns the raw result.
// It does not interpret the content.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	if req.Prompt == "" {
		return nil, NewMalformedError(fmt.Errorf("prompt is required"))
	}

	messages := []Message{
		{Role: "system", Content: req.System},
		{Role: "user", Content: req.Prompt},
	}

	body, err := c.provider.BuildRequestBody(c.model, messages, c.temperature, c.maxTokens, req.JSONOnly)
	if err != nil {
		return nil, NewMalformedError(fmt.Errorf("build request body: %w", err))
	}

	url := c.provider.BuildURL(c.endpoint)
	c.logger.Debug("Sending completion request",
		"provider", c.provider.Name(),
		"model", c.model,
		"url", url,
		"prompt_chars", len(req.Prompt))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, NewTransportError(fmt.Errorf("create HTTP request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.provider.SetHeaders(httpReq, c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, NewTransportError(fmt.Errorf("HTTP request failed: %w", err))
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, NewTransportError(fmt.Errorf("read response body: %w", err))
	}

	if httpResp.StatusCode != http.StatusOK {
		preview := string(respBody)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		return nil, NewTransportError(fmt.Errorf("endpoint error (status %d): %s", httpResp.StatusCode, preview))
	}

	resp, err := c.provider.ParseResponse(respBody)
	if err != nil {
		return nil, NewMalformedError(err)
	}
	if resp.Content == "" {
		return nil, NewMalformedError(fmt.Errorf("response envelope contained no text content"))
	}
	return resp, nil
}

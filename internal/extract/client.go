package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// VisionModel is the narrow capability the pipeline needs from the
// upstream oracle: one request in, raw response text out. Keeping it to
// a single method lets tests swap the transport without touching the
// rasterizer, builder, or parser.
type VisionModel interface {
	Complete(ctx context.Context, req *Request) (string, error)
}

const (
	defaultBaseURL   = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
	maxTokens        = 4096
)

// ClaudeClient calls the Anthropic Messages API with page images and a
// schema instruction. It performs exactly one attempt per Complete call;
// retry policy belongs to the caller.
type ClaudeClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client

	Stats *CallStats
}

func NewClaudeClient(apiKey, model, baseURL string, timeout time.Duration) *ClaudeClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &ClaudeClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		Stats: NewCallStats(time.Hour),
	}
}

// Model returns the configured model identifier.
func (c *ClaudeClient) Model() string { return c.model }

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type anthropicMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends one extraction request and returns the raw response
// text. The request is never mutated. Failures map onto the error
// taxonomy in errors.go.
func (c *ClaudeClient) Complete(ctx context.Context, req *Request) (string, error) {
	start := time.Now()
	text, err := c.complete(ctx, req)
	if c.Stats != nil {
		c.Stats.Record(time.Since(start).Milliseconds(), Outcome(err))
	}
	return text, err
}

func (c *ClaudeClient) complete(ctx context.Context, req *Request) (string, error) {
	content := make([]contentBlock, 0, len(req.Pages)+1)
	for _, page := range req.Pages {
		content = append(content, contentBlock{
			Type: "image",
			Source: &imageSource{
				Type:      "base64",
				MediaType: "image/png",
				Data:      base64.StdEncoding.EncodeToString(page.PNG),
			},
		})
	}
	content = append(content, contentBlock{
		Type: "text",
		Text: "Extract the purchase order information as specified in your instructions. This is a PDF document converted to images.",
	})

	reqBody := anthropicRequest{
		Model:       c.model,
		MaxTokens:   maxTokens,
		Temperature: 0,
		System:      req.Instruction,
		Messages: []anthropicMessage{
			{Role: "user", Content: content},
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &TransportError{Err: fmt.Errorf("read response: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", &AuthError{StatusCode: resp.StatusCode, Message: string(respBody)}
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", &ThrottledError{
			RetryAfter: parseRetryAfter(resp.Header),
			Message:    string(respBody),
		}
	case resp.StatusCode != http.StatusOK:
		return "", &UpstreamError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", &UpstreamError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("undecodable body: %v", err)}
	}
	if apiResp.Error != nil {
		return "", &UpstreamError{StatusCode: resp.StatusCode, Message: apiResp.Error.Type + ": " + apiResp.Error.Message}
	}
	if len(apiResp.Content) == 0 {
		return "", &UpstreamError{StatusCode: resp.StatusCode, Message: "empty content in response"}
	}

	return apiResp.Content[0].Text, nil
}

func parseRetryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

// Close releases resources.
func (c *ClaudeClient) Close() {
	c.httpClient.CloseIdleConnections()
}

package openrouter

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	// NoChoicesContent is the caller-visible degraded answer used when
	// upstream returns a completion without choices.
	NoChoicesContent = "Error: No response from AI."

	// MockContent is returned by both call paths when no API key is
	// configured. Development-mode affordance, not an error path.
	MockContent = "This is a mock response because OPENROUTER_API_KEY is missing in backend env."

	maxRetries = 3
)

type Config struct {
	APIKey    string
	BaseURL   string
	SiteURL   string
	AppName   string
	Timeout   time.Duration
	RetryBase time.Duration
}

// Client talks to the OpenRouter API. Safe for concurrent use.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limits     rateLimitCell
}

var _ Provider = &Client{}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.RetryBase == 0 {
		cfg.RetryBase = 2 * time.Second
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// RateLimit returns a copy of the last observed quota snapshot.
func (c *Client) RateLimit() RateLimit {
	return c.limits.snapshot()
}

// ChatCompletion sends the full turn list and returns the first choice's
// text. 429s and timeouts are retried with exponential backoff (2s, 4s, 8s);
// other upstream errors surface immediately, classified.
func (c *Client) ChatCompletion(ctx context.Context, model string, messages []Message) (string, error) {
	if c.cfg.APIKey == "" {
		return MockContent, nil
	}

	payload := chatRequest{Model: model, Messages: messages}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		resp, err := c.post(ctx, "/chat/completions", body)
		if err != nil {
			if isTimeout(err) {
				if attempt < maxRetries-1 {
					if err := c.backoff(ctx, attempt); err != nil {
						return "", err
					}
					continue
				}
				return "", &TimeoutError{}
			}
			return "", fmt.Errorf("openrouter request failed: %w", err)
		}

		c.limits.observe(resp.Header)

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return "", fmt.Errorf("read response: %w", readErr)
		}

		if resp.StatusCode == http.StatusOK {
			var completion completionResponse
			if err := json.Unmarshal(respBody, &completion); err != nil {
				return "", fmt.Errorf("unmarshal response: %w", err)
			}
			if len(completion.Choices) == 0 {
				return NoChoicesContent, nil
			}
			return completion.Choices[0].Message.Content, nil
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			if attempt < maxRetries-1 {
				if err := c.backoff(ctx, attempt); err != nil {
					return "", err
				}
				continue
			}
			return "", &RateLimitError{}
		}

		return "", classifyStatus(resp.StatusCode, model, respBody)
	}

	return "", &RateLimitError{}
}

// ChatCompletionStream opens a streaming completion. Frames without textual
// delta content are skipped; the upstream "[DONE]" marker closes the channel.
func (c *Client) ChatCompletionStream(ctx context.Context, model string, messages []Message) (<-chan StreamChunk, error) {
	out := make(chan StreamChunk)

	if c.cfg.APIKey == "" {
		go func() {
			defer close(out)
			select {
			case out <- StreamChunk{Content: MockContent}:
			case <-ctx.Done():
			}
		}()
		return out, nil
	}

	payload := chatRequest{Model: model, Messages: messages, Stream: true}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	resp, err := c.post(ctx, "/chat/completions", body)
	if err != nil {
		if isTimeout(err) {
			return nil, &TimeoutError{}
		}
		return nil, fmt.Errorf("openrouter request failed: %w", err)
	}

	c.limits.observe(resp.Header)

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, &RateLimitError{}
		}
		return nil, classifyStatus(resp.StatusCode, model, respBody)
	}

	go c.consumeStream(ctx, resp.Body, out)
	return out, nil
}

func (c *Client) consumeStream(ctx context.Context, body io.ReadCloser, out chan<- StreamChunk) {
	defer body.Close()
	defer close(out)

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 512*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			return
		}

		var delta streamDelta
		if err := json.Unmarshal([]byte(data), &delta); err != nil {
			// Skip malformed keep-alive frames rather than killing the stream
			continue
		}
		if len(delta.Choices) == 0 || delta.Choices[0].Delta.Content == "" {
			continue
		}

		select {
		case out <- StreamChunk{Content: delta.Choices[0].Delta.Content}:
		case <-ctx.Done():
			return
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		streamErr := error(err)
		if isTimeout(err) {
			streamErr = &TimeoutError{}
		}
		select {
		case out <- StreamChunk{Err: streamErr}:
		case <-ctx.Done():
		}
	}
}

func (c *Client) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	url := strings.TrimRight(c.cfg.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("HTTP-Referer", c.cfg.SiteURL)
	req.Header.Set("X-Title", c.cfg.AppName)
	return c.httpClient.Do(req)
}

// backoff sleeps for RetryBase * 2^attempt, honoring cancellation. No lock is
// held while sleeping.
func (c *Client) backoff(ctx context.Context, attempt int) error {
	delay := c.cfg.RetryBase * (1 << attempt)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func classifyStatus(status int, model string, body []byte) error {
	switch status {
	case http.StatusNotFound:
		return &ModelNotFoundError{Model: model}
	case http.StatusBadRequest:
		return &InvalidModelError{Model: model}
	default:
		return &UpstreamError{Status: status, Body: string(body)}
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

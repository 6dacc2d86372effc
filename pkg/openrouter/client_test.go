package openrouter

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestClient(baseURL string) *Client {
	return NewClient(Config{
		APIKey:    "test-key",
		BaseURL:   baseURL,
		RetryBase: time.Millisecond,
	})
}

func completionBody(content string) string {
	return fmt.Sprintf(`{"choices":[{"message":{"role":"assistant","content":%q}}]}`, content)
}

func TestChatCompletionReturnsMockWithoutKey(t *testing.T) {
	client := NewClient(Config{})

	reply, err := client.ChatCompletion(context.Background(), "any-model", []Message{TextMessage("user", "hi")})

	assert.NoError(t, err)
	assert.Equal(t, MockContent, reply)
}

func TestChatCompletionSuccess(t *testing.T) {
	var gotAuth, gotReferer, gotTitle string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReferer = r.Header.Get("HTTP-Referer")
		gotTitle = r.Header.Get("X-Title")
		w.Header().Set("x-ratelimit-remaining", "49")
		w.Header().Set("x-ratelimit-limit", "50")
		w.Header().Set("x-ratelimit-reset", "60s")
		fmt.Fprint(w, completionBody("Hello there"))
	}))
	defer srv.Close()

	client := NewClient(Config{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		SiteURL: "http://localhost:3000",
		AppName: "Madlen AI",
	})

	reply, err := client.ChatCompletion(context.Background(), "meta-llama/llama-3.3-70b-instruct:free", []Message{TextMessage("user", "hi")})

	assert.NoError(t, err)
	assert.Equal(t, "Hello there", reply)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "http://localhost:3000", gotReferer)
	assert.Equal(t, "Madlen AI", gotTitle)

	limits := client.RateLimit()
	assert.Equal(t, "49", limits.Remaining)
	assert.Equal(t, "50", limits.Limit)
	assert.Equal(t, "60s", limits.Reset)
}

func TestChatCompletionNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	reply, err := newTestClient(srv.URL).ChatCompletion(context.Background(), "m", nil)

	assert.NoError(t, err)
	assert.Equal(t, NoChoicesContent, reply)
}

func TestChatCompletionRetriesAfter429(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, completionBody("recovered"))
	}))
	defer srv.Close()

	reply, err := newTestClient(srv.URL).ChatCompletion(context.Background(), "m", nil)

	assert.NoError(t, err)
	assert.Equal(t, "recovered", reply)
	assert.Equal(t, int32(3), calls.Load())
}

func TestChatCompletionRateLimitExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).ChatCompletion(context.Background(), "m", nil)

	var rateLimited *RateLimitError
	assert.ErrorAs(t, err, &rateLimited)
	assert.Equal(t, int32(3), calls.Load())
}

func TestChatCompletionBackoffHonorsCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(Config{
		APIKey:    "test-key",
		BaseURL:   srv.URL,
		RetryBase: time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := client.ChatCompletion(ctx, "m", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChatCompletionClassifiesStatuses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{
			name:   "404 maps to unknown model",
			status: http.StatusNotFound,
			check: func(t *testing.T, err error) {
				var target *ModelNotFoundError
				assert.ErrorAs(t, err, &target)
				assert.Equal(t, "m", target.Model)
			},
		},
		{
			name:   "400 maps to invalid model",
			status: http.StatusBadRequest,
			check: func(t *testing.T, err error) {
				var target *InvalidModelError
				assert.ErrorAs(t, err, &target)
			},
		},
		{
			name:   "500 maps to upstream error",
			status: http.StatusInternalServerError,
			check: func(t *testing.T, err error) {
				var target *UpstreamError
				assert.ErrorAs(t, err, &target)
				assert.Equal(t, http.StatusInternalServerError, target.Status)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL).ChatCompletion(context.Background(), "m", nil)
			tt.check(t, err)
		})
	}
}

func TestChatCompletionStreamAccumulates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n")
		fmt.Fprint(w, ": keep-alive comment\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo!\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	chunks, err := newTestClient(srv.URL).ChatCompletionStream(context.Background(), "m", nil)
	assert.NoError(t, err)

	var full string
	for chunk := range chunks {
		assert.NoError(t, chunk.Err)
		full += chunk.Content
	}
	assert.Equal(t, "Hello!", full)
}

func TestChatCompletionStreamMockWithoutKey(t *testing.T) {
	client := NewClient(Config{})

	chunks, err := client.ChatCompletionStream(context.Background(), "m", nil)
	assert.NoError(t, err)

	var full string
	for chunk := range chunks {
		full += chunk.Content
	}
	assert.Equal(t, MockContent, full)
}

func TestChatCompletionStreamRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).ChatCompletionStream(context.Background(), "m", nil)

	var rateLimited *RateLimitError
	assert.ErrorAs(t, err, &rateLimited)
}

func TestChatCompletionStreamObservesRateLimitHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-ratelimit-remaining", "7")
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	chunks, err := client.ChatCompletionStream(context.Background(), "m", nil)
	assert.NoError(t, err)
	for range chunks {
	}

	assert.Equal(t, "7", client.RateLimit().Remaining)
}

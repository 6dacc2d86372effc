package openrouter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
)

const (
	modelsTimeout = 15 * time.Second
	maxCatalog    = 15
)

// fallbackFreeModels is a resilience mechanism, not sample data: it is the
// catalog served whenever the upstream listing fails or yields nothing.
var fallbackFreeModels = []ModelInfo{
	{
		ID:            "meta-llama/llama-3.3-70b-instruct:free",
		Name:          "Llama 3.3 70B Instruct",
		Provider:      "Meta",
		ContextLength: 131072,
		IsFree:        true,
	},
	{
		ID:            "google/gemma-2-9b-it:free",
		Name:          "Gemma 2 9B",
		Provider:      "Google",
		ContextLength: 8192,
		IsFree:        true,
	},
	{
		ID:            "mistralai/mistral-7b-instruct:free",
		Name:          "Mistral 7B Instruct",
		Provider:      "Mistral AI",
		ContextLength: 32768,
		IsFree:        true,
	},
	{
		ID:            "deepseek/deepseek-chat:free",
		Name:          "DeepSeek Chat",
		Provider:      "DeepSeek",
		ContextLength: 65536,
		IsFree:        true,
	},
}

// FallbackModels returns a copy of the static free-model catalog.
func FallbackModels() []ModelInfo {
	out := make([]ModelInfo, len(fallbackFreeModels))
	copy(out, fallbackFreeModels)
	return out
}

// ListModels fetches the upstream model listing and filters it down to free
// models (prompt price is the literal zero value), sorted by context length
// descending and capped at 15. Any failure yields the static fallback.
func (c *Client) ListModels(ctx context.Context) []ModelInfo {
	ctx, cancel := context.WithTimeout(ctx, modelsTimeout)
	defer cancel()

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/models"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return FallbackModels()
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return FallbackModels()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return FallbackModels()
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return FallbackModels()
	}

	var listing modelsResponse
	if err := json.Unmarshal(body, &listing); err != nil {
		return FallbackModels()
	}

	free := make([]ModelInfo, 0, len(listing.Data))
	for _, m := range listing.Data {
		if !isFreePrice(m.Pricing.Prompt) {
			continue
		}
		name := m.Name
		if name == "" {
			name = m.ID
		}
		contextLength := m.ContextLength
		if contextLength == 0 {
			contextLength = 4096
		}
		free = append(free, ModelInfo{
			ID:            m.ID,
			Name:          name,
			Provider:      ProviderFromModelID(m.ID),
			ContextLength: contextLength,
			IsFree:        true,
		})
	}

	if len(free) == 0 {
		return FallbackModels()
	}

	sort.SliceStable(free, func(i, j int) bool {
		return free[i].ContextLength > free[j].ContextLength
	})
	if len(free) > maxCatalog {
		free = free[:maxCatalog]
	}
	return free
}

// isFreePrice reports whether a prompt price field is the literal zero value.
// Prices that fail numeric parsing are treated as not-free, never as errors.
func isFreePrice(price string) bool {
	if price == "0" {
		return true
	}
	f, err := strconv.ParseFloat(price, 64)
	if err != nil {
		return false
	}
	return f == 0
}

// ProviderFromModelID derives a display provider from the model id's
// namespace prefix ("meta-llama/llama-3.3" -> "Meta Llama"). Ids without a
// namespace yield "Unknown".
func ProviderFromModelID(id string) string {
	prefix, _, found := strings.Cut(id, "/")
	if !found {
		return "Unknown"
	}
	words := strings.Split(strings.ReplaceAll(prefix, "-", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

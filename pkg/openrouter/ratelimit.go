package openrouter

import (
	"net/http"
	"sync/atomic"
)

// RateLimit is the last observed upstream quota snapshot. Header values are
// kept as opaque strings; last write wins.
type RateLimit struct {
	Remaining string `json:"requests_remaining"`
	Limit     string `json:"requests_limit"`
	Reset     string `json:"reset"`
}

// rateLimitCell is an atomic-swap holder for the snapshot. Updates are whole
// struct replacements, so readers never observe a torn write.
type rateLimitCell struct {
	current atomic.Pointer[RateLimit]
}

func (c *rateLimitCell) observe(h http.Header) {
	remaining := h.Get("x-ratelimit-remaining")
	limit := h.Get("x-ratelimit-limit")
	reset := h.Get("x-ratelimit-reset")
	if remaining == "" && limit == "" && reset == "" {
		return
	}
	c.current.Store(&RateLimit{
		Remaining: remaining,
		Limit:     limit,
		Reset:     reset,
	})
}

func (c *rateLimitCell) snapshot() RateLimit {
	if rl := c.current.Load(); rl != nil {
		return *rl
	}
	return RateLimit{}
}

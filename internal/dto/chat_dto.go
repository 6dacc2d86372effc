package dto

import (
	"time"

	"github.com/google/uuid"
)

// ChatRequest is the inbound chat turn. Image is an optional URL or data URI
// for multimodal models.
type ChatRequest struct {
	Message string  `json:"message" validate:"required"`
	Model   string  `json:"model" validate:"required"`
	Image   *string `json:"image"`
}

type MessageResponse struct {
	Id        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Model     *string   `json:"model,omitempty"`
	ImageURL  *string   `json:"image_url,omitempty"`
}

type SessionResponse struct {
	Id        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Preview   string    `json:"preview,omitempty"`
}

type AIModelDTO struct {
	Id            string `json:"id"`
	Name          string `json:"name"`
	Provider      string `json:"provider"`
	IsFree        bool   `json:"isFree"`
	ContextWindow int    `json:"contextWindow"`
}

// StreamFrame is one server-sent-event body. Exactly one terminal frame with
// Done=true ends the stream; Content and Error are mutually exclusive.
type StreamFrame struct {
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
	Done    bool   `json:"done"`
}

type RateLimitResponse struct {
	RequestsRemaining string `json:"requests_remaining"`
	RequestsLimit     string `json:"requests_limit"`
	Reset             string `json:"reset"`
}

type ModelUsageResponse struct {
	Model      string `json:"model"`
	Turns      int64  `json:"turns"`
	ReplyChars int64  `json:"reply_chars"`
}

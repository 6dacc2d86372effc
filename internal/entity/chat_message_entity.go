package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"
)

// ChatMessage is one turn of a session. Model is set only on assistant
// messages; ImageURL (URL or data URI) only on user messages.
type ChatMessage struct {
	Id            uuid.UUID
	ChatSessionId uuid.UUID
	Role          string
	Content       string
	Model         *string
	ImageURL      *string
	CreatedAt     time.Time
}

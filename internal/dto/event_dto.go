package dto

import "github.com/google/uuid"

// UsageRecordedMessage is the payload published to the in-process bus after
// every completed assistant turn.
type UsageRecordedMessage struct {
	UserId     string    `json:"user_id"`
	SessionId  uuid.UUID `json:"session_id"`
	Model      string    `json:"model"`
	ReplyChars int       `json:"reply_chars"`
	Streamed   bool      `json:"streamed"`
}

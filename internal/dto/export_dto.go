package dto

import (
	"time"

	"github.com/google/uuid"
)

// ExportDocument is the JSON export shape of one session.
type ExportDocument struct {
	Id        uuid.UUID          `json:"id"`
	Title     string             `json:"title"`
	CreatedAt time.Time          `json:"created_at"`
	Messages  []*MessageResponse `json:"messages"`
}

// ExportResponse is an already-rendered download.
type ExportResponse struct {
	Filename    string
	ContentType string
	Body        []byte
}

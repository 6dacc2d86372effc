package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// UsageStat is one completed chat turn, recorded by the usage consumer from
// the in-process event bus.
type UsageStat struct {
	Id         uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId     string         `gorm:"type:text;not null;index"`
	Model      string         `gorm:"type:text;not null;index"`
	ReplyChars int            `gorm:"not null;default:0"`
	Details    datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt  time.Time      `gorm:"autoCreateTime"`
}

func (UsageStat) TableName() string {
	return "usage_stats"
}

// ModelUsage is the aggregate row returned by the stats query.
type ModelUsage struct {
	Model      string `json:"model"`
	Turns      int64  `json:"turns"`
	ReplyChars int64  `json:"reply_chars"`
}

package model

import "time"

type User struct {
	Id        string    `gorm:"type:text;primaryKey"`
	Email     *string   `gorm:"type:text"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (User) TableName() string {
	return "users"
}

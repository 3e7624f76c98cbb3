package user

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID int64 `gorm:"primaryKey"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Username     string `gorm:"uniqueIndex"`
	Email        string
	PasswordHash string
}

type Session struct {
	Token  uuid.UUID `gorm:"primaryKey;type:uuid"`
	UserID int64     `gorm:"index"`

	CreatedAt time.Time
	Expires   time.Time
}

func (s *Session) TableName() string {
	return "user_sessions"
}

func (s *Session) Expired(now time.Time) bool {
	return !s.Expires.After(now)
}

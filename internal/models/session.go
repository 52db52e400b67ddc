package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Supported languages.
const (
	LangEnglish = "en"
	LangAmharic = "am"
)

// Message senders.
const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// Session is one end user's conversation profile. At most one session per
// UserID is active at a time; deactivation is one-way.
type Session struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID            string    `gorm:"size:64;index;not null"`
	Language          string    `gorm:"size:2;not null"`
	AgeRange          string    `gorm:"size:16"`
	Gender            string    `gorm:"size:8"`
	InterestArea      string    `gorm:"size:32"`
	Region            *string   `gorm:"size:32"`
	Latitude          *float64
	Longitude         *float64
	IsActive          bool   `gorm:"not null;index"`
	ConversationState string `gorm:"size:32;not null"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Messages          []Message `gorm:"constraint:OnDelete:CASCADE"`
}

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Lang returns the session language, defaulting to English.
func (s *Session) Lang() string {
	if s.Language == LangAmharic {
		return LangAmharic
	}
	return LangEnglish
}

// RegionCode returns the stored region or an empty string.
func (s *Session) RegionCode() string {
	if s.Region == nil {
		return ""
	}
	return *s.Region
}

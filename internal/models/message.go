package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Message is one immutable conversation turn. The auto-increment ID breaks
// ties between messages created within the same clock tick.
type Message struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	SessionID  uuid.UUID `gorm:"type:uuid;not null;index:idx_messages_session_created,priority:1"`
	Sender     string    `gorm:"size:8;not null;index"`
	Text       string    `gorm:"type:text;not null"`
	Language   string    `gorm:"size:2"`
	CreatedAt  time.Time `gorm:"index:idx_messages_session_created,priority:2"`
	LLMContext datatypes.JSON
}

type Feedback struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	MessageID uint      `gorm:"not null;index"`
	Message   *Message  `gorm:"constraint:OnDelete:CASCADE"`
	Rating    string    `gorm:"size:32;not null"`
	CreatedAt time.Time
}

func (f *Feedback) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

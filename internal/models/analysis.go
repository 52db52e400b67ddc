package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AnalysisRecord holds the columns shared by every background analysis
// snapshot. Records are append-only.
type AnalysisRecord struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	SessionID        uuid.UUID `gorm:"type:uuid;not null;index"`
	MessagesAnalyzed int       `gorm:"not null"`
	ConfidenceScore  *float64
	AnalysisContext  datatypes.JSON
	CreatedAt        time.Time `gorm:"index"`
}

// Base exposes the shared columns of any record that embeds AnalysisRecord.
func (r *AnalysisRecord) Base() *AnalysisRecord { return r }

func (r *AnalysisRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

type Classification struct {
	AnalysisRecord
	Session *Session `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Intent  string   `gorm:"size:32;not null;index"`
}

type Emotion struct {
	AnalysisRecord
	Session        *Session                           `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	EmotionRatings datatypes.JSONType[map[string]int] `gorm:"not null"`
	PrimaryEmotion string                             `gorm:"size:32;not null;index"`
}

// Summary lists the emotions rated above zero with their rating labels.
func (e *Emotion) Summary() string {
	ratings := e.EmotionRatings.Data()
	var parts []string
	for _, c := range EmotionChoices {
		r := ratings[c.Code]
		if r > 0 {
			parts = append(parts, fmt.Sprintf("%s: %s", c.EN, EmotionRatingLabel(r)))
		}
	}
	if len(parts) == 0 {
		return "No emotions detected"
	}
	return strings.Join(parts, ", ")
}

type RiskAssessment struct {
	AnalysisRecord
	Session        *Session `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	RiskLevel      string   `gorm:"size:32;not null;index"`
	RiskIndicators datatypes.JSONSlice[string]
	SeverityScore  *float64 `gorm:"index"`
}

// Summary renders the risk label with a coarse severity band.
func (r *RiskAssessment) Summary() string {
	label := RiskLevelChoices.Label(r.RiskLevel, LangEnglish)
	if r.SeverityScore == nil {
		return label
	}
	switch s := *r.SeverityScore; {
	case s >= 0.8:
		return label + " (High Severity)"
	case s >= 0.5:
		return label + " (Medium Severity)"
	case s >= 0.2:
		return label + " (Low Severity)"
	}
	return label
}

type MythAssessment struct {
	AnalysisRecord
	Session            *Session `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	MessageID          uint     `gorm:"not null;index"`
	Message            *Message `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	MythType           string   `gorm:"size:32;not null;index"`
	MythDetected       bool     `gorm:"not null;index"`
	SpecificMyth       string   `gorm:"type:text"`
	SeverityLevel      string   `gorm:"size:16;index"`
	CorrectionProvided bool     `gorm:"not null"`
}

func (m *MythAssessment) Summary() string {
	if !m.MythDetected {
		return "No myth detected"
	}
	label := MythChoices.Label(m.MythType, LangEnglish)
	if m.SeverityLevel == "" {
		return label
	}
	return fmt.Sprintf("%s (%s%s Impact)", label, m.SeverityLevel[:1], strings.ToLower(m.SeverityLevel[1:]))
}

func (m *MythAssessment) IsCultural() bool { return strings.HasPrefix(m.MythType, "CULTURAL_") }

func (m *MythAssessment) IsMedical() bool { return strings.HasPrefix(m.MythType, "MEDICAL_") }

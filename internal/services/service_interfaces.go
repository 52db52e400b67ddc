package services

import (
	"context"
	"errors"

	"srh_chat_go_backend/internal/models"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrAnalysisNotFound = errors.New("analysis record not found")
	ErrSessionConflict  = errors.New("could not settle on an active session")
	ErrUnknownKind      = errors.New("unknown analysis kind")
)

// AnalysisKind names one of the background analyzers and its record table.
type AnalysisKind string

const (
	KindIntent  AnalysisKind = "intent"
	KindEmotion AnalysisKind = "emotion"
	KindRisk    AnalysisKind = "risk"
	KindMyth    AnalysisKind = "myth"
)

// SessionStore is the data-access surface the conversation core needs.
type SessionStore interface {
	GetOrCreateActiveSession(ctx context.Context, userID string) (*models.Session, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (*models.Session, error)
	UpdateSessionFields(ctx context.Context, session *models.Session, fields map[string]interface{}) error
	DeactivateSession(ctx context.Context, session *models.Session) error

	AppendMessage(ctx context.Context, session *models.Session, sender, text, lang string, llmContext map[string]interface{}) (*models.Message, error)
	RecentMessages(ctx context.Context, sessionID uuid.UUID, limit int, sender string) ([]models.Message, error)
	CountUserMessages(ctx context.Context, sessionID uuid.UUID) (int, error)
	ClearMessages(ctx context.Context, sessionID uuid.UUID) error
	LastBotMessage(ctx context.Context, sessionID uuid.UUID) (*models.Message, error)
	LatestUserMessage(ctx context.Context, sessionID uuid.UUID) (*models.Message, error)
	SaveFeedback(ctx context.Context, messageID uint, rating string) (*models.Feedback, error)

	SaveAnalysisRecord(ctx context.Context, record interface{}) error
	CountAnalysisRecords(ctx context.Context, kind AnalysisKind, sessionID uuid.UUID) (int, error)
	ListAnalyses(ctx context.Context, sessionID uuid.UUID) (*SessionAnalyses, error)
	MarkMythCorrectionProvided(ctx context.Context, assessmentID uuid.UUID) error
}

// SessionAnalyses groups every analysis record of one session, newest first.
type SessionAnalyses struct {
	Classifications []models.Classification `json:"classifications"`
	Emotions        []models.Emotion        `json:"emotions"`
	RiskAssessments []models.RiskAssessment `json:"risk_assessments"`
	MythAssessments []models.MythAssessment `json:"myth_assessments"`
}

// Completer turns a prompt into text. It never returns an error: transport
// failures surface as a user-safe string.
type Completer interface {
	Complete(ctx context.Context, prompt string, temperature float32) string
}

// Geolocator resolves the caller's approximate position. clientIP may be
// empty, in which case the provider uses the request origin.
type Geolocator interface {
	DetectLocation(ctx context.Context, clientIP string) (*Location, error)
}

// Replier delivers one outgoing message to the user's transport.
type Replier interface {
	Reply(ctx context.Context, msg OutgoingMessage) error
}

// ResultSink receives finished analysis results for live monitoring.
type ResultSink interface {
	Publish(topic string, msg interface{}) int
}

// AnalysisScheduler starts background analysis after a turn. Dispatch must
// not block on the analyses themselves.
type AnalysisScheduler interface {
	Dispatch(ctx context.Context, session *models.Session)
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"srh_chat_go_backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// getOrCreateAttempts bounds how often a lost create race is re-read.
const getOrCreateAttempts = 3

// DefaultSessionStore implements SessionStore on gorm.
type DefaultSessionStore struct {
	db  *gorm.DB
	log zerolog.Logger
}

func NewSessionStoreDB(db *gorm.DB, log zerolog.Logger) SessionStore {
	return &DefaultSessionStore{db: db, log: log.With().Str("component", "session_store").Logger()}
}

// GetOrCreateActiveSession returns the user's active session, creating one if
// none exists. Concurrent callers racing on creation are settled by the
// partial unique index on (user_id) WHERE is_active: the loser re-reads the
// winner's row.
func (s *DefaultSessionStore) GetOrCreateActiveSession(ctx context.Context, userID string) (*models.Session, error) {
	for attempt := 0; attempt < getOrCreateAttempts; attempt++ {
		var session models.Session
		err := s.db.WithContext(ctx).
			Where("user_id = ? AND is_active = ?", userID, true).
			First(&session).Error
		if err == nil {
			return &session, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to load active session: %w", err)
		}

		session = models.Session{
			UserID:            userID,
			Language:          models.LangEnglish,
			IsActive:          true,
			ConversationState: string(StateLanguageSelect),
		}
		err = s.db.WithContext(ctx).Create(&session).Error
		if err == nil {
			s.log.Info().Str("userID", userID).Str("sessionID", session.ID.String()).Msg("Created session")
			return &session, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
		s.log.Debug().Str("userID", userID).Int("attempt", attempt).Msg("Lost session create race, re-reading")
	}
	return nil, ErrSessionConflict
}

func (s *DefaultSessionStore) GetSession(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	var session models.Session
	err := s.db.WithContext(ctx).Where("id = ?", sessionID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// UpdateSessionFields writes the given columns and mirrors them onto session.
func (s *DefaultSessionStore) UpdateSessionFields(ctx context.Context, session *models.Session, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Model(session).Updates(fields).Error
}

// DeactivateSession flips the active flag. Messages and records are kept.
func (s *DefaultSessionStore) DeactivateSession(ctx context.Context, session *models.Session) error {
	err := s.db.WithContext(ctx).Model(session).Update("is_active", false).Error
	if err != nil {
		return fmt.Errorf("failed to deactivate session: %w", err)
	}
	s.log.Info().Str("sessionID", session.ID.String()).Msg("Deactivated session")
	return nil
}

func (s *DefaultSessionStore) AppendMessage(ctx context.Context, session *models.Session, sender, text, lang string, llmContext map[string]interface{}) (*models.Message, error) {
	msg := &models.Message{
		SessionID: session.ID,
		Sender:    sender,
		Text:      text,
		Language:  lang,
	}
	if llmContext != nil {
		raw, err := json.Marshal(llmContext)
		if err != nil {
			return nil, fmt.Errorf("failed to encode message context: %w", err)
		}
		msg.LLMContext = datatypes.JSON(raw)
	}
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, fmt.Errorf("failed to save %s message: %w", sender, err)
	}
	return msg, nil
}

// RecentMessages returns up to limit of the newest messages in chronological
// order. An empty sender matches both roles.
func (s *DefaultSessionStore) RecentMessages(ctx context.Context, sessionID uuid.UUID, limit int, sender string) ([]models.Message, error) {
	var messages []models.Message
	q := s.db.WithContext(ctx).Where("session_id = ?", sessionID)
	if sender != "" {
		q = q.Where("sender = ?", sender)
	}
	if err := q.Order("created_at desc, id desc").Limit(limit).Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("failed to load recent messages: %w", err)
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *DefaultSessionStore) CountUserMessages(ctx context.Context, sessionID uuid.UUID) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("session_id = ? AND sender = ?", sessionID, models.SenderUser).
		Count(&count).Error
	return int(count), err
}

// ClearMessages deletes a session's history but not the session itself.
func (s *DefaultSessionStore) ClearMessages(ctx context.Context, sessionID uuid.UUID) error {
	res := s.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&models.Message{})
	if res.Error != nil {
		return fmt.Errorf("failed to clear messages: %w", res.Error)
	}
	s.log.Info().Str("sessionID", sessionID.String()).Int64("deleted", res.RowsAffected).Msg("Cleared chat history")
	return nil
}

func (s *DefaultSessionStore) LastBotMessage(ctx context.Context, sessionID uuid.UUID) (*models.Message, error) {
	return s.latestBy(ctx, sessionID, models.SenderBot)
}

func (s *DefaultSessionStore) LatestUserMessage(ctx context.Context, sessionID uuid.UUID) (*models.Message, error) {
	return s.latestBy(ctx, sessionID, models.SenderUser)
}

// latestBy returns nil, nil when the session has no message from sender.
func (s *DefaultSessionStore) latestBy(ctx context.Context, sessionID uuid.UUID, sender string) (*models.Message, error) {
	var msg models.Message
	err := s.db.WithContext(ctx).
		Where("session_id = ? AND sender = ?", sessionID, sender).
		Order("created_at desc, id desc").
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *DefaultSessionStore) SaveFeedback(ctx context.Context, messageID uint, rating string) (*models.Feedback, error) {
	fb := &models.Feedback{MessageID: messageID, Rating: rating}
	if err := s.db.WithContext(ctx).Create(fb).Error; err != nil {
		return nil, fmt.Errorf("failed to save feedback: %w", err)
	}
	return fb, nil
}

func (s *DefaultSessionStore) SaveAnalysisRecord(ctx context.Context, record interface{}) error {
	if _, err := kindOf(record); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(record).Error
}

func (s *DefaultSessionStore) CountAnalysisRecords(ctx context.Context, kind AnalysisKind, sessionID uuid.UUID) (int, error) {
	model, err := kind.model()
	if err != nil {
		return 0, err
	}
	var count int64
	err = s.db.WithContext(ctx).Model(model).Where("session_id = ?", sessionID).Count(&count).Error
	return int(count), err
}

func (s *DefaultSessionStore) ListAnalyses(ctx context.Context, sessionID uuid.UUID) (*SessionAnalyses, error) {
	out := &SessionAnalyses{}
	q := s.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("created_at desc").Session(&gorm.Session{})
	if err := q.Find(&out.Classifications).Error; err != nil {
		return nil, err
	}
	if err := q.Find(&out.Emotions).Error; err != nil {
		return nil, err
	}
	if err := q.Find(&out.RiskAssessments).Error; err != nil {
		return nil, err
	}
	if err := q.Find(&out.MythAssessments).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// MarkMythCorrectionProvided is the only update analysis records allow.
func (s *DefaultSessionStore) MarkMythCorrectionProvided(ctx context.Context, assessmentID uuid.UUID) error {
	res := s.db.WithContext(ctx).Model(&models.MythAssessment{}).
		Where("id = ?", assessmentID).
		Update("correction_provided", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAnalysisNotFound
	}
	return nil
}

func (k AnalysisKind) model() (interface{}, error) {
	switch k {
	case KindIntent:
		return &models.Classification{}, nil
	case KindEmotion:
		return &models.Emotion{}, nil
	case KindRisk:
		return &models.RiskAssessment{}, nil
	case KindMyth:
		return &models.MythAssessment{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, k)
}

func kindOf(record interface{}) (AnalysisKind, error) {
	switch record.(type) {
	case *models.Classification:
		return KindIntent, nil
	case *models.Emotion:
		return KindEmotion, nil
	case *models.RiskAssessment:
		return KindRisk, nil
	case *models.MythAssessment:
		return KindMyth, nil
	}
	return "", fmt.Errorf("%w: %T", ErrUnknownKind, record)
}

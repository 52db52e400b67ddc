package services

import (
	"context"
	"sync"
	"testing"

	"srh_chat_go_backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func newTestStore(t *testing.T) SessionStore {
	return NewSessionStoreDB(newTestDB(t), zerolog.Nop())
}

func TestGetOrCreateActiveSession_Concurrent(t *testing.T) {
	db := newTestDB(t)
	store := NewSessionStoreDB(db, zerolog.Nop())
	ctx := context.Background()

	const callers = 10
	ids := make([]uuid.UUID, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := store.GetOrCreateActiveSession(ctx, "tg-42")
			if assert.NoError(t, err) {
				ids[i] = s.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	var active int64
	require.NoError(t, db.Model(&models.Session{}).Where("user_id = ? AND is_active = ?", "tg-42", true).Count(&active).Error)
	assert.Equal(t, int64(1), active)
}

func TestGetOrCreateActiveSession_Defaults(t *testing.T) {
	store := newTestStore(t)
	s, err := store.GetOrCreateActiveSession(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, models.LangEnglish, s.Language)
	assert.True(t, s.IsActive)
	assert.Equal(t, string(StateLanguageSelect), s.ConversationState)
}

func TestDeactivateSession_NextContactGetsFreshSession(t *testing.T) {
	db := newTestDB(t)
	store := NewSessionStoreDB(db, zerolog.Nop())
	ctx := context.Background()

	first, err := store.GetOrCreateActiveSession(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, store.DeactivateSession(ctx, first))

	second, err := store.GetOrCreateActiveSession(ctx, "u1")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	var total int64
	require.NoError(t, db.Model(&models.Session{}).Where("user_id = ?", "u1").Count(&total).Error)
	assert.Equal(t, int64(2), total, "deactivated sessions are kept")

	old, err := store.GetSession(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, old.IsActive)
}

func TestGetSession_NotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetSession(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestUpdateSessionFields(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	s, err := store.GetOrCreateActiveSession(ctx, "u1")
	require.NoError(t, err)

	region := "AMHARA"
	require.NoError(t, store.UpdateSessionFields(ctx, s, map[string]interface{}{
		"age_range": "A20_24",
		"region":    region,
	}))
	assert.Equal(t, "A20_24", s.AgeRange)

	reloaded, err := store.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "A20_24", reloaded.AgeRange)
	assert.Equal(t, region, reloaded.RegionCode())
}

func TestMessages_OrderLimitAndFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	s, err := store.GetOrCreateActiveSession(ctx, "u1")
	require.NoError(t, err)

	for _, m := range []struct{ sender, text string }{
		{models.SenderUser, "q1"}, {models.SenderBot, "a1"},
		{models.SenderUser, "q2"}, {models.SenderBot, "a2"},
		{models.SenderUser, "q3"},
	} {
		_, err := store.AppendMessage(ctx, s, m.sender, m.text, "en", nil)
		require.NoError(t, err)
	}

	recent, err := store.RecentMessages(ctx, s.ID, 3, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"q2", "a2", "q3"}, texts(recent))

	users, err := store.RecentMessages(ctx, s.ID, 10, models.SenderUser)
	require.NoError(t, err)
	assert.Equal(t, []string{"q1", "q2", "q3"}, texts(users))

	n, err := store.CountUserMessages(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	bot, err := store.LastBotMessage(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "a2", bot.Text)

	latest, err := store.LatestUserMessage(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "q3", latest.Text)
}

func TestAppendMessage_StoresPrompt(t *testing.T) {
	db := newTestDB(t)
	store := NewSessionStoreDB(db, zerolog.Nop())
	ctx := context.Background()
	s, err := store.GetOrCreateActiveSession(ctx, "u1")
	require.NoError(t, err)

	msg, err := store.AppendMessage(ctx, s, models.SenderBot, "answer", "en", map[string]interface{}{"prompt": "the prompt"})
	require.NoError(t, err)

	var got models.Message
	require.NoError(t, db.First(&got, msg.ID).Error)
	assert.JSONEq(t, `{"prompt":"the prompt"}`, string(got.LLMContext))
}

func TestClearMessages_KeepsSessionAndProfile(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	s, err := store.GetOrCreateActiveSession(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, store.UpdateSessionFields(ctx, s, map[string]interface{}{"gender": "F"}))
	_, err = store.AppendMessage(ctx, s, models.SenderUser, "q1", "en", nil)
	require.NoError(t, err)

	require.NoError(t, store.ClearMessages(ctx, s.ID))

	n, err := store.CountUserMessages(ctx, s.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	bot, err := store.LastBotMessage(ctx, s.ID)
	require.NoError(t, err)
	assert.Nil(t, bot)

	reloaded, err := store.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.IsActive)
	assert.Equal(t, "F", reloaded.Gender)
}

func TestSaveFeedback_ToleratesDuplicates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	s, err := store.GetOrCreateActiveSession(ctx, "u1")
	require.NoError(t, err)
	msg, err := store.AppendMessage(ctx, s, models.SenderBot, "a1", "en", nil)
	require.NoError(t, err)

	first, err := store.SaveFeedback(ctx, msg.ID, "VERY_HELPFUL")
	require.NoError(t, err)
	second, err := store.SaveFeedback(ctx, msg.ID, "NOT_HELPFUL")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestAnalysisRecords(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	s, err := store.GetOrCreateActiveSession(ctx, "u1")
	require.NoError(t, err)
	msg, err := store.AppendMessage(ctx, s, models.SenderUser, "q1", "en", nil)
	require.NoError(t, err)

	conf := 0.9
	intent := &models.Classification{Intent: "ASK_INFO"}
	intent.SessionID = s.ID
	intent.ConfidenceScore = &conf
	intent.MessagesAnalyzed = 1
	require.NoError(t, store.SaveAnalysisRecord(ctx, intent))

	emotion := &models.Emotion{EmotionRatings: datatypes.NewJSONType(map[string]int{"FEAR": 2}), PrimaryEmotion: "FEAR"}
	emotion.SessionID = s.ID
	require.NoError(t, store.SaveAnalysisRecord(ctx, emotion))

	myth := &models.MythAssessment{MessageID: msg.ID, MythType: "NO_MYTH"}
	myth.SessionID = s.ID
	require.NoError(t, store.SaveAnalysisRecord(ctx, myth))

	assert.ErrorIs(t, store.SaveAnalysisRecord(ctx, &models.Message{}), ErrUnknownKind)

	n, err := store.CountAnalysisRecords(ctx, KindIntent, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = store.CountAnalysisRecords(ctx, KindRisk, s.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	_, err = store.CountAnalysisRecords(ctx, AnalysisKind("bogus"), s.ID)
	assert.ErrorIs(t, err, ErrUnknownKind)

	all, err := store.ListAnalyses(ctx, s.ID)
	require.NoError(t, err)
	assert.Len(t, all.Classifications, 1)
	assert.Len(t, all.Emotions, 1)
	assert.Empty(t, all.RiskAssessments)
	require.Len(t, all.MythAssessments, 1)
	assert.Equal(t, 2, all.Emotions[0].EmotionRatings.Data()["FEAR"])

	require.NoError(t, store.MarkMythCorrectionProvided(ctx, myth.ID))
	all, err = store.ListAnalyses(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, all.MythAssessments[0].CorrectionProvided)

	assert.ErrorIs(t, store.MarkMythCorrectionProvided(ctx, uuid.New()), ErrAnalysisNotFound)
}

func texts(messages []models.Message) []string {
	out := make([]string, len(messages))
	for i, m := range messages {
		out[i] = m.Text
	}
	return out
}

package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"srh_chat_go_backend/internal/models"
	"srh_chat_go_backend/internal/utils/broker"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// scriptedCompleter answers every prompt with the same text and keeps the
// prompts it saw.
type scriptedCompleter struct {
	mu      sync.Mutex
	answer  string
	prompts []string
}

func (c *scriptedCompleter) Complete(ctx context.Context, prompt string, temperature float32) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, prompt)
	return c.answer
}

func (c *scriptedCompleter) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.prompts)
}

const everyKindAnswer = `Here you go:
{"intent": "ASK_INFO", "confidence": 0.8, "reasoning": "asks a question",
 "emotion_ratings": {"FEAR": 2, "CONFUSION": 1}, "primary_emotion": "FEAR",
 "risk_level": "NEUTRAL", "risk_indicators": [], "severity_score": 0.1, "confidence_score": 0.9,
 "myth_detected": false, "myth_type": "NO_MYTH"}
Thanks.`

func seedConversation(t *testing.T, store SessionStore, userQuestions int) *models.Session {
	t.Helper()
	ctx := context.Background()
	s, err := store.GetOrCreateActiveSession(ctx, "analysis-user")
	require.NoError(t, err)
	for i := 1; i <= userQuestions; i++ {
		_, err := store.AppendMessage(ctx, s, models.SenderUser, fmt.Sprintf("question %02d", i), "en", nil)
		require.NoError(t, err)
		_, err = store.AppendMessage(ctx, s, models.SenderBot, fmt.Sprintf("answer %02d", i), "en", nil)
		require.NoError(t, err)
	}
	return s
}

func TestAnalyzer_EmotionAtTwentyUsesLastTenUserMessages(t *testing.T) {
	store := newTestStore(t)
	s := seedConversation(t, store, 20)
	completer := &scriptedCompleter{answer: everyKindAnswer}

	a := NewAnalyzer(EmotionKind{}, store, completer, nil, zerolog.Nop())
	event, err := a.Run(context.Background(), s)
	require.NoError(t, err)
	require.NotNil(t, event)

	assert.Equal(t, 10, event.MessagesAnalyzed)
	assert.Equal(t, 20, event.TotalMessages)
	assert.Equal(t, "FEAR", event.Label)

	require.Len(t, completer.prompts, 1)
	prompt := completer.prompts[0]
	assert.Contains(t, prompt, "Message 1: question 11")
	assert.Contains(t, prompt, "Message 10: question 20")
	assert.NotContains(t, prompt, "question 10")
	assert.NotContains(t, prompt, "answer", "only user messages are analyzed")
}

func TestAnalyzer_NoDuplicateRunForSameThreshold(t *testing.T) {
	store := newTestStore(t)
	s := seedConversation(t, store, 5)
	completer := &scriptedCompleter{answer: everyKindAnswer}
	a := NewAnalyzer(IntentKind{}, store, completer, nil, zerolog.Nop())
	ctx := context.Background()

	first, err := a.Run(ctx, s)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := a.Run(ctx, s)
	require.NoError(t, err)
	assert.Nil(t, second)

	n, err := store.CountAnalysisRecords(ctx, KindIntent, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, completer.calls())
}

func TestAnalyzer_BelowFirstThresholdDoesNotCallModel(t *testing.T) {
	store := newTestStore(t)
	s := seedConversation(t, store, 2)
	completer := &scriptedCompleter{answer: everyKindAnswer}

	event, err := NewAnalyzer(RiskKind{}, store, completer, nil, zerolog.Nop()).Run(context.Background(), s)
	require.NoError(t, err)
	assert.Nil(t, event)
	assert.Zero(t, completer.calls())
}

func TestAnalyzer_MalformedResponseIsNotPersisted(t *testing.T) {
	for name, answer := range map[string]string{
		"no object":   "I cannot classify this conversation.",
		"broken json": `{"intent": "ASK_INFO", "confidence": }`,
		"reversed":    "} nothing {",
	} {
		t.Run(name, func(t *testing.T) {
			store := newTestStore(t)
			s := seedConversation(t, store, 5)
			a := NewAnalyzer(IntentKind{}, store, &scriptedCompleter{answer: answer}, nil, zerolog.Nop())

			event, err := a.Run(context.Background(), s)
			assert.ErrorIs(t, err, ErrMalformedAnalysis)
			assert.Nil(t, event)

			n, err := store.CountAnalysisRecords(context.Background(), KindIntent, s.ID)
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestAnalyzer_MythAnchorsOnLatestUserMessage(t *testing.T) {
	store := newTestStore(t)
	s := seedConversation(t, store, 2)
	ctx := context.Background()
	completer := &scriptedCompleter{answer: `{"myth_detected": true, "myth_type": "MEDICAL_STI",
		"confidence_score": 0.7, "specific_myth": "washing prevents HIV", "severity_level": "HIGH"}`}

	event, err := NewAnalyzer(MythKind{}, store, completer, nil, zerolog.Nop()).Run(ctx, s)
	require.NoError(t, err)
	require.NotNil(t, event)

	latest, err := store.LatestUserMessage(ctx, s.ID)
	require.NoError(t, err)
	all, err := store.ListAnalyses(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, all.MythAssessments, 1)
	myth := all.MythAssessments[0]
	assert.Equal(t, latest.ID, myth.MessageID)
	assert.True(t, myth.MythDetected)
	assert.Equal(t, "HIGH", myth.SeverityLevel)
	assert.Equal(t, 2, myth.MessagesAnalyzed)
	assert.Contains(t, string(myth.AnalysisContext), "washing prevents HIV")
	assert.Contains(t, string(myth.AnalysisContext), `"total_user_messages":2`)
}

func TestAnalyzer_PublishesToSink(t *testing.T) {
	store := newTestStore(t)
	s := seedConversation(t, store, 3)
	b := broker.NewBroker(4)
	ch := b.Subscribe(broker.TopicAnalysis)

	event, err := NewAnalyzer(RiskKind{}, store, &scriptedCompleter{answer: everyKindAnswer}, b, zerolog.Nop()).
		Run(context.Background(), s)
	require.NoError(t, err)

	got := <-ch
	published, ok := got.(*AnalysisEvent)
	require.True(t, ok)
	assert.Equal(t, event.RecordID, published.RecordID)
	assert.Equal(t, KindRisk, published.Kind)
	assert.Equal(t, s.UserID, published.UserID)
}

func TestValidate_Coercions(t *testing.T) {
	in := AnalysisInput{Language: "en"}
	decode := func(t *testing.T, raw string) map[string]interface{} {
		obj, err := extractJSONObject(raw)
		require.NoError(t, err)
		return obj
	}

	t.Run("intent outside set becomes OTHER", func(t *testing.T) {
		out := IntentKind{}.Validate(decode(t, `{"intent": "GREETING", "confidence": 1.7}`), in)
		assert.Equal(t, "OTHER", out.Label)
		assert.Equal(t, 0.5, out.Confidence)
	})

	t.Run("emotion ratings and primary", func(t *testing.T) {
		out := EmotionKind{}.Validate(decode(t,
			`{"emotion_ratings": {"FEAR": 1, "SHAME": 2, "ANGER": 5, "SADNESS": 1.5}, "primary_emotion": "JOY", "confidence": 0.6}`), in)
		record := out.Record.(*models.Emotion)
		ratings := record.EmotionRatings.Data()
		assert.Equal(t, 1, ratings["FEAR"])
		assert.Equal(t, 2, ratings["SHAME"])
		assert.Zero(t, ratings["ANGER"])
		assert.Zero(t, ratings["SADNESS"])
		assert.Len(t, ratings, len(models.EmotionChoices))
		assert.Equal(t, "SHAME", record.PrimaryEmotion)
		assert.Equal(t, 0.6, out.Confidence)
	})

	t.Run("emotion ties pick the first listed", func(t *testing.T) {
		out := EmotionKind{}.Validate(decode(t, `{"emotion_ratings": {"CONFUSION": 2, "FEAR": 2}}`), in)
		assert.Equal(t, "FEAR", out.Label)
	})

	t.Run("risk level and severity", func(t *testing.T) {
		out := RiskKind{}.Validate(decode(t,
			`{"risk_level": "PANIC", "severity_score": 3, "risk_indicators": ["alone", 4, ""], "confidence_score": -1}`), in)
		record := out.Record.(*models.RiskAssessment)
		assert.Equal(t, "NEUTRAL", record.RiskLevel)
		require.NotNil(t, record.SeverityScore)
		assert.Equal(t, 1.0, *record.SeverityScore)
		assert.Equal(t, []string{"alone"}, []string(record.RiskIndicators))
		assert.Equal(t, 0.5, out.Confidence)
	})

	t.Run("risk without severity", func(t *testing.T) {
		out := RiskKind{}.Validate(decode(t, `{"risk_level": "CRISIS"}`), in)
		record := out.Record.(*models.RiskAssessment)
		assert.Nil(t, record.SeverityScore)
		assert.False(t, IsHighRisk(record))
	})

	t.Run("myth detection needs a category", func(t *testing.T) {
		out := MythKind{}.Validate(decode(t, `{"myth_detected": true, "myth_type": "WHATEVER", "severity_level": "EXTREME"}`), in)
		record := out.Record.(*models.MythAssessment)
		assert.Equal(t, "NO_MYTH", record.MythType)
		assert.False(t, record.MythDetected)
		assert.Empty(t, record.SeverityLevel)
	})
}

func TestExtractJSONObject_TakesOutermostSpan(t *testing.T) {
	obj, err := extractJSONObject("```json\n{\"a\": {\"b\": 1}}\n```")
	require.NoError(t, err)
	assert.Contains(t, obj, "a")
}

func TestAnalysisDispatcher_RunsEveryKindAndDrains(t *testing.T) {
	store := newTestStore(t)
	s := seedConversation(t, store, 6)
	completer := &scriptedCompleter{answer: everyKindAnswer}
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	d := NewDefaultAnalysisDispatcher(store, completer, nil, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	d.Dispatch(ctx, s)
	cancel() // runs are detached from the turn's context
	d.Wait()

	for _, kind := range []AnalysisKind{KindIntent, KindEmotion, KindRisk, KindMyth} {
		n, err := store.CountAnalysisRecords(context.Background(), kind, s.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n, kind)
	}
	assert.Equal(t, 4, completer.calls())
}

// blockingCompleter holds every call until release is closed.
type blockingCompleter struct {
	started chan struct{}
	release chan struct{}
}

func (c *blockingCompleter) Complete(ctx context.Context, prompt string, temperature float32) string {
	c.started <- struct{}{}
	<-c.release
	return `{"intent": "ASK_INFO", "confidence": 0.9}`
}

func TestAnalysisDispatcher_SkipsKindAlreadyInFlight(t *testing.T) {
	store := newTestStore(t)
	s := seedConversation(t, store, 5)
	completer := &blockingCompleter{started: make(chan struct{}, 4), release: make(chan struct{})}

	d := NewAnalysisDispatcher(zerolog.Nop(), NewAnalyzer(IntentKind{}, store, completer, nil, zerolog.Nop()))
	d.Dispatch(context.Background(), s)
	<-completer.started
	d.Dispatch(context.Background(), s)
	close(completer.release)
	d.Wait()

	assert.Len(t, completer.started, 0, "second dispatch must not reach the model")
	n, err := store.CountAnalysisRecords(context.Background(), KindIntent, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNumberedMessages(t *testing.T) {
	got := numberedMessages([]models.Message{{Text: "a"}, {Text: "b"}})
	assert.Equal(t, "Message 1: a\nMessage 2: b\n", got)
	assert.True(t, strings.HasSuffix(got, "\n"))
}

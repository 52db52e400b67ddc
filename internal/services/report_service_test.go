package services

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"srh_chat_go_backend/internal/models"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func extractText(t *testing.T, raw []byte) string {
	t.Helper()
	r, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	require.NoError(t, err)

	var content strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		require.NoError(t, err)
		content.WriteString(text)
	}
	return content.String()
}

func TestWriteSessionReport(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	s := seedConversation(t, store, 6)
	msg, err := store.LatestUserMessage(ctx, s.ID)
	require.NoError(t, err)

	conf := 0.9
	severity := 0.85
	require.NoError(t, store.SaveAnalysisRecord(ctx, &models.Classification{
		AnalysisRecord: models.AnalysisRecord{SessionID: s.ID, MessagesAnalyzed: 5, ConfidenceScore: &conf},
		Intent:         "ASK_INFO",
	}))
	require.NoError(t, store.SaveAnalysisRecord(ctx, &models.RiskAssessment{
		AnalysisRecord: models.AnalysisRecord{SessionID: s.ID, MessagesAnalyzed: 6},
		RiskLevel:      "SELF_HARM",
		RiskIndicators: datatypes.JSONSlice[string]{"hopelessness"},
		SeverityScore:  &severity,
	}))
	require.NoError(t, store.SaveAnalysisRecord(ctx, &models.MythAssessment{
		AnalysisRecord: models.AnalysisRecord{SessionID: s.ID, MessagesAnalyzed: 1},
		MessageID:      msg.ID,
		MythType:       "CULTURAL_MENSTRUATION",
		MythDetected:   true,
		SpecificMyth:   "periods are unclean",
		SeverityLevel:  "HIGH",
	}))

	var buf bytes.Buffer
	require.NoError(t, NewReportService(store, zerolog.Nop()).WriteSessionReport(ctx, s.ID, &buf))
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

	text := extractText(t, buf.Bytes())
	assert.Contains(t, text, "Session Analysis Report")
	assert.Contains(t, text, s.ID.String())
	assert.Contains(t, text, "analysis-user")
	assert.Contains(t, text, "Ask for Information")
	assert.Contains(t, text, "hopelessness")
	assert.Contains(t, text, "periods are unclean")
}

func TestWriteSessionReport_UnknownSession(t *testing.T) {
	store := newTestStore(t)
	var buf bytes.Buffer
	err := NewReportService(store, zerolog.Nop()).WriteSessionReport(context.Background(), uuid.New(), &buf)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Zero(t, buf.Len())
}

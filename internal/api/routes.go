package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"srh_chat_go_backend/internal/auth"
	apperrors "srh_chat_go_backend/internal/errors"
	"srh_chat_go_backend/internal/models"
	"srh_chat_go_backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// EventHandler runs one transport event through the conversation.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev services.Event, reply services.Replier) error
}

// Pinger reports database reachability.
type Pinger interface {
	PingContext(ctx context.Context) error
}

func SetupRoutes(r *gin.Engine, conversation EventHandler, store services.SessionStore, reports *services.ReportService, authn *auth.Authenticator, db Pinger) {
	r.GET("/healthz", healthHandler(db))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.POST("/chat/events", chatEventHandler(conversation))
	}

	admin := api.Group("/admin", authn.AdminMiddleware())
	{
		admin.GET("/sessions/:id/analyses", getAnalysesHandler(store))
		admin.GET("/sessions/:id/report.pdf", getReportHandler(reports))
		admin.POST("/myths/:id/correction", markMythCorrectedHandler(store))
	}
}

func healthHandler(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			if err := db.PingContext(c.Request.Context()); err != nil {
				apperrors.HandleError(c, apperrors.New503Error("Database unavailable", err))
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// sseReplier streams each outgoing message as one "message" event.
type sseReplier struct {
	c *gin.Context
}

func (r sseReplier) Reply(ctx context.Context, msg services.OutgoingMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.c.SSEvent("message", msg)
	r.c.Writer.Flush()
	return nil
}

func chatEventHandler(conversation EventHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var ev services.Event
		if err := c.ShouldBindJSON(&ev); err != nil {
			apperrors.HandleError(c, apperrors.New400Error("Invalid event: "+err.Error()))
			return
		}
		ev.ClientIP = c.ClientIP()

		log := zerolog.Ctx(c.Request.Context())
		c.Header("Cache-Control", "no-cache")
		c.Header("X-Accel-Buffering", "no")
		if err := conversation.HandleEvent(c.Request.Context(), ev, sseReplier{c: c}); err != nil {
			log.Error().Err(err).Str("userID", ev.UserID).Msg("Event handling failed")
		}
		c.SSEvent("end", "")
		c.Writer.Flush()
	}
}

func sessionIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apperrors.HandleError(c, apperrors.New400Error("Invalid id"))
		return uuid.Nil, false
	}
	return id, true
}

type classificationView struct {
	models.Classification
	Summary string `json:"summary"`
}

type emotionView struct {
	models.Emotion
	Summary string `json:"summary"`
}

type riskView struct {
	models.RiskAssessment
	Summary string `json:"summary"`
}

type mythView struct {
	models.MythAssessment
	Summary    string `json:"summary"`
	IsCultural bool   `json:"is_cultural"`
	IsMedical  bool   `json:"is_medical"`
}

func getAnalysesHandler(store services.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := sessionIDParam(c)
		if !ok {
			return
		}
		session, err := store.GetSession(c.Request.Context(), id)
		if err != nil {
			handleStoreError(c, err)
			return
		}
		analyses, err := store.ListAnalyses(c.Request.Context(), id)
		if err != nil {
			apperrors.HandleError(c, apperrors.New500Error(err))
			return
		}
		total, err := store.CountUserMessages(c.Request.Context(), id)
		if err != nil {
			apperrors.HandleError(c, apperrors.New500Error(err))
			return
		}

		classifications := make([]classificationView, len(analyses.Classifications))
		for i, r := range analyses.Classifications {
			classifications[i] = classificationView{r, models.IntentChoices.Label(r.Intent, models.LangEnglish)}
		}
		emotions := make([]emotionView, len(analyses.Emotions))
		for i := range analyses.Emotions {
			emotions[i] = emotionView{analyses.Emotions[i], analyses.Emotions[i].Summary()}
		}
		risks := make([]riskView, len(analyses.RiskAssessments))
		for i := range analyses.RiskAssessments {
			risks[i] = riskView{analyses.RiskAssessments[i], analyses.RiskAssessments[i].Summary()}
		}
		myths := make([]mythView, len(analyses.MythAssessments))
		for i := range analyses.MythAssessments {
			m := &analyses.MythAssessments[i]
			myths[i] = mythView{*m, m.Summary(), m.IsCultural(), m.IsMedical()}
		}

		c.JSON(http.StatusOK, gin.H{
			"session": gin.H{
				"id":                  session.ID,
				"user_id":             session.UserID,
				"language":            session.Lang(),
				"is_active":           session.IsActive,
				"conversation_state":  session.ConversationState,
				"total_user_messages": total,
			},
			"classifications":  classifications,
			"emotions":         emotions,
			"risk_assessments": risks,
			"myth_assessments": myths,
		})
	}
}

func getReportHandler(reports *services.ReportService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := sessionIDParam(c)
		if !ok {
			return
		}
		var buf bytes.Buffer
		if err := reports.WriteSessionReport(c.Request.Context(), id, &buf); err != nil {
			handleStoreError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="session-%s.pdf"`, id))
		c.Data(http.StatusOK, "application/pdf", buf.Bytes())
	}
}

func markMythCorrectedHandler(store services.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := sessionIDParam(c)
		if !ok {
			return
		}
		if err := store.MarkMythCorrectionProvided(c.Request.Context(), id); err != nil {
			handleStoreError(c, err)
			return
		}
		zerolog.Ctx(c.Request.Context()).Info().
			Str("mythID", id.String()).
			Str("by", c.GetString(auth.ContextSubject)).
			Msg("Marked myth correction provided")
		c.JSON(http.StatusOK, gin.H{"id": id, "correction_provided": true})
	}
}

func handleStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		apperrors.HandleError(c, apperrors.New404Error("Session not found"))
	case errors.Is(err, services.ErrAnalysisNotFound):
		apperrors.HandleError(c, apperrors.New404Error("Analysis record not found"))
	default:
		apperrors.HandleError(c, apperrors.New500Error(err))
	}
}

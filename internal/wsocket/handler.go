package wsocket

import (
	"context"
	"net/http"
	"time"

	"srh_chat_go_backend/internal/services"
	"srh_chat_go_backend/internal/utils/broker"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// EventHandler runs one chat event through the conversation.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev services.Event, reply services.Replier) error
}

type Handler struct {
	conversation EventHandler
	broker       *broker.Broker
	upgrader     websocket.Upgrader
	log          zerolog.Logger
}

// Frame is the envelope of every server-sent websocket message.
type Frame struct {
	Type     string                    `json:"type"`
	Message  *services.OutgoingMessage `json:"message,omitempty"`
	Analysis *services.AnalysisEvent   `json:"analysis,omitempty"`
	Error    string                    `json:"error,omitempty"`
}

const (
	FrameMessage  = "message"
	FrameEnd      = "end"
	FrameError    = "error"
	FrameAnalysis = "analysis"
)

func NewHandler(conversation EventHandler, messageBroker *broker.Broker, upgrader websocket.Upgrader, log zerolog.Logger) *Handler {
	return &Handler{
		conversation: conversation,
		broker:       messageBroker,
		upgrader:     upgrader,
		log:          log.With().Str("component", "wsocket").Logger(),
	}
}

// IncomingEvent is what a chat client sends. The user comes from the
// connection, not the frame.
type IncomingEvent struct {
	Kind services.EventKind `json:"kind"`
	Text string             `json:"text,omitempty"`
	Data string             `json:"data,omitempty"`
}

type socketReplier struct {
	conn *websocket.Conn
}

func (r socketReplier) Reply(ctx context.Context, msg services.OutgoingMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return writeFrame(r.conn, Frame{Type: FrameMessage, Message: &msg})
}

func writeFrame(conn *websocket.Conn, f Frame) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(f)
}

// HandleChat serves one user's conversation. Events are handled one at a
// time and every event is answered with its replies followed by an end frame.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request, clientIP string) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "No user_id provided", http.StatusBadRequest)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("Upgrade failed")
		return
	}
	defer conn.Close()

	log := h.log.With().Str("userID", userID).Logger()
	log.Debug().Msg("Chat socket opened")
	ctx, cancel := context.WithCancel(log.WithContext(r.Context()))
	defer cancel()

	reply := socketReplier{conn: conn}
	for {
		var in IncomingEvent
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Msg("Chat socket read failed")
			}
			return
		}

		switch in.Kind {
		case services.EventText, services.EventCallback, services.EventMedia:
		default:
			if err := writeFrame(conn, Frame{Type: FrameError, Error: "unknown event kind"}); err != nil {
				return
			}
			continue
		}

		ev := services.Event{UserID: userID, Kind: in.Kind, Text: in.Text, Data: in.Data, ClientIP: clientIP}
		if err := h.conversation.HandleEvent(ctx, ev, reply); err != nil {
			log.Error().Err(err).Str("kind", string(in.Kind)).Msg("Event handling failed")
		}
		if err := writeFrame(conn, Frame{Type: FrameEnd}); err != nil {
			log.Debug().Err(err).Msg("Chat socket write failed")
			return
		}
	}
}

// HandleMonitor streams every saved analysis to an admin dashboard until the
// client goes away.
func (h *Handler) HandleMonitor(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("Upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events := h.broker.Subscribe(broker.TopicAnalysis)
	defer h.broker.Unsubscribe(broker.TopicAnalysis, events)
	h.log.Info().Int("subscribers", h.broker.Subscribers(broker.TopicAnalysis)).Msg("Monitor connected")

	// The read loop only notices closes and answers pings.
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-events:
			if !ok {
				return
			}
			event, ok := msg.(*services.AnalysisEvent)
			if !ok {
				continue
			}
			if err := writeFrame(conn, Frame{Type: FrameAnalysis, Analysis: event}); err != nil {
				h.log.Debug().Err(err).Msg("Monitor write failed")
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

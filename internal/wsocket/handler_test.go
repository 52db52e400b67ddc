package wsocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"srh_chat_go_backend/internal/services"
	"srh_chat_go_backend/internal/utils/broker"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockEventHandler struct {
	mock.Mock
}

func (m *MockEventHandler) HandleEvent(ctx context.Context, ev services.Event, reply services.Replier) error {
	args := m.Called(ctx, ev, reply)
	return args.Error(0)
}

func newTestServer(t *testing.T, conversation EventHandler, b *broker.Broker) *httptest.Server {
	t.Helper()
	h := NewHandler(conversation, b, websocket.Upgrader{}, zerolog.Nop())
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/chat", func(w http.ResponseWriter, r *http.Request) {
		h.HandleChat(w, r, "127.0.0.1")
	})
	mux.HandleFunc("/ws/monitor", h.HandleMonitor)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestHandleChat_RepliesThenEnd(t *testing.T) {
	conversation := &MockEventHandler{}
	conversation.On("HandleEvent", mock.Anything, services.Event{
		UserID:   "tg-7",
		Kind:     services.EventCallback,
		Data:     "LANG|am",
		ClientIP: "127.0.0.1",
	}, mock.Anything).Run(func(args mock.Arguments) {
		reply := args.Get(2).(services.Replier)
		ctx := args.Get(0).(context.Context)
		require.NoError(t, reply.Reply(ctx, services.OutgoingMessage{Text: "ቋንቋ ተመርጧል"}))
	}).Return(nil)

	srv := newTestServer(t, conversation, broker.NewBroker(1))
	conn := dial(t, srv, "/ws/chat?user_id=tg-7")

	require.NoError(t, conn.WriteJSON(IncomingEvent{Kind: services.EventCallback, Data: "LANG|am"}))

	var first, second Frame
	require.NoError(t, conn.ReadJSON(&first))
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, FrameMessage, first.Type)
	require.NotNil(t, first.Message)
	assert.Equal(t, "ቋንቋ ተመርጧል", first.Message.Text)
	assert.Equal(t, FrameEnd, second.Type)
	conversation.AssertExpectations(t)
}

func TestHandleChat_UnknownKind(t *testing.T) {
	conversation := &MockEventHandler{}
	srv := newTestServer(t, conversation, broker.NewBroker(1))
	conn := dial(t, srv, "/ws/chat?user_id=tg-7")

	require.NoError(t, conn.WriteJSON(map[string]string{"kind": "voice"}))
	var f Frame
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, FrameError, f.Type)
	conversation.AssertNotCalled(t, "HandleEvent", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleChat_RequiresUser(t *testing.T) {
	srv := newTestServer(t, &MockEventHandler{}, broker.NewBroker(1))
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleMonitor_StreamsAnalyses(t *testing.T) {
	b := broker.NewBroker(4)
	srv := newTestServer(t, &MockEventHandler{}, b)
	conn := dial(t, srv, "/ws/monitor")

	require.Eventually(t, func() bool { return b.Subscribers(broker.TopicAnalysis) == 1 }, 2*time.Second, 10*time.Millisecond)

	event := &services.AnalysisEvent{
		Kind:      services.KindRisk,
		RecordID:  uuid.New(),
		SessionID: uuid.New(),
		UserID:    "tg-9",
		Label:     "SELF_HARM",
		Summary:   "Self-Harm/Suicide Risk (High Severity)",
	}
	b.Publish(broker.TopicAnalysis, "not an event")
	b.Publish(broker.TopicAnalysis, event)

	var f Frame
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, FrameAnalysis, f.Type)
	require.NotNil(t, f.Analysis)
	assert.Equal(t, event.RecordID, f.Analysis.RecordID)
	assert.Equal(t, "SELF_HARM", f.Analysis.Label)

	conn.Close()
	assert.Eventually(t, func() bool { return b.Subscribers(broker.TopicAnalysis) == 0 }, 2*time.Second, 10*time.Millisecond)
}

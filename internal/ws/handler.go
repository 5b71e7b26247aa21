package ws

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"chatcore/internal/security"
	"chatcore/internal/service"
)

func normalizeAllowedOrigins(origins []string) map[string]struct{} {
	res := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		o := strings.TrimSpace(strings.ToLower(origin))
		if o != "" {
			res[o] = struct{}{}
		}
	}
	return res
}

func makeCheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := normalizeAllowedOrigins(allowedOrigins)

	return func(r *http.Request) bool {
		origin := strings.TrimSpace(strings.ToLower(r.Header.Get("Origin")))
		if origin == "" {
			// Non-browser clients send no Origin header.
			return true
		}
		if _, ok := allowed[origin]; ok {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return false
		}
		normalized := strings.ToLower(fmt.Sprintf("%s://%s", u.Scheme, u.Host))
		_, ok := allowed[normalized]
		return ok
	}
}

// extractToken pulls the session token from the handshake: the "token"
// cookie set by the identity service, or a Bearer header for non-browser
// clients.
func extractToken(r *http.Request) (string, error) {
	if c, err := r.Cookie("token"); err == nil && c.Value != "" {
		return c.Value, nil
	}

	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		token := strings.TrimSpace(authHeader[len("Bearer "):])
		if token != "" {
			return token, nil
		}
	}

	return "", fmt.Errorf("no token found")
}

// MakeHandler returns the HTTP handler for the /ws endpoint. Each connection
// runs Connecting -> Authenticated -> Active -> Closed:
//   - the handshake must carry a verifiable session token, or the connection
//     is rejected before anything is registered;
//   - once active, the session is registered in the hub and a presence event
//     goes out to everyone;
//   - sendMessage events persist via the chat service and are pushed live to
//     the receiver when online;
//   - disconnect compare-and-deletes the session and broadcasts offline.
func MakeHandler(
	hub *Hub,
	tokens *security.TokenService,
	chat *service.ChatService,
	log *zap.SugaredLogger,
	allowedOrigins []string,
) http.HandlerFunc {
	checkOrigin := makeCheckOrigin(allowedOrigins)
	upgrader := websocket.Upgrader{CheckOrigin: checkOrigin}

	return func(w http.ResponseWriter, r *http.Request) {
		tokenStr, err := extractToken(r)
		if err != nil {
			http.Error(w, "authentication error", http.StatusUnauthorized)
			return
		}
		userID, err := tokens.VerifyUserID(tokenStr)
		if err != nil {
			http.Error(w, "authentication error", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		client := NewClient(uuid.NewString(), userID, conn)

		// Single session per user: a reconnect displaces the previous
		// connection, which gets closed rather than silently starved.
		if prev := hub.Register(userID, client); prev != nil {
			log.Infow("superseding session", "userId", userID, "socketId", prev.ID)
			_ = prev.Close()
		}
		log.Infow("client connected", "userId", userID, "socketId", client.ID)
		hub.Broadcast(map[string]any{"type": "presence", "userId": userID, "online": true})

		defer func() {
			// Only the connection still registered announces offline; a
			// superseded one finding a newer session stays quiet.
			if hub.Unregister(userID, client) {
				hub.Broadcast(map[string]any{"type": "presence", "userId": userID, "online": false})
			}
			_ = conn.Close()
			log.Infow("client disconnected", "userId", userID, "socketId", client.ID)
		}()

		for {
			var payload map[string]any
			if err := conn.ReadJSON(&payload); err != nil {
				break
			}
			msgType, _ := payload["type"].(string)
			switch msgType {

			case "sendMessage":
				receiverID, _ := payload["receiverId"].(string)
				text, _ := payload["text"].(string)
				ackID, _ := payload["ackId"].(string)

				// Deliberately not the request context: a send in flight
				// when the sender disconnects still completes and still
				// reaches the receiver.
				conv, msg, err := chat.Send(context.Background(), service.SendInput{
					SenderID:   userID,
					ReceiverID: receiverID,
					Text:       text,
				})
				if err != nil {
					log.Warnw("send failed", "userId", userID, "error", err)
					sendFailure(client, ackID, err)
					continue
				}

				_ = client.Send(map[string]any{
					"type":           "messageSent",
					"conversationId": conv.ID,
					"message":        msg,
				})
				if ackID != "" {
					_ = client.Send(map[string]any{
						"type":           "ack",
						"ackId":          ackID,
						"ok":             true,
						"conversationId": conv.ID,
						"message":        msg,
					})
				}

				if receiver, ok := hub.Lookup(msg.ReceiverID); ok {
					_ = receiver.Send(map[string]any{
						"type":           "receiveMessage",
						"conversationId": conv.ID,
						"message":        msg,
					})
				}

			default:
				log.Debugw("unknown event type", "type", msgType, "userId", userID)
			}
		}
	}
}

// sendFailure reports a failed send to the sending connection only; the
// receiver never observes partial state.
func sendFailure(c *Client, ackID string, err error) {
	if ackID != "" {
		_ = c.Send(map[string]any{
			"type":  "ack",
			"ackId": ackID,
			"ok":    false,
			"error": err.Error(),
		})
		return
	}
	_ = c.Send(map[string]any{"type": "error", "message": err.Error()})
}

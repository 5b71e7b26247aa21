package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"chatcore/internal/domain"
	"chatcore/internal/service"
	"chatcore/internal/ws"
)

type messageSendRequest struct {
	ReceiverID string         `json:"receiverId"`
	Text       string         `json:"text"`
	Media      []domain.Media `json:"media,omitempty"`
	ReplyTo    string         `json:"replyTo,omitempty"`
}

// handleSendMessage is the REST twin of the sendMessage socket event, for
// clients without a live connection. It shares the same engine: the message
// is persisted and, when the receiver is online, pushed to their session.
func handleSendMessage(chatSvc *service.ChatService, hub *ws.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req messageSendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		conv, msg, err := chatSvc.Send(r.Context(), service.SendInput{
			SenderID:   CurrentUserID(r),
			ReceiverID: req.ReceiverID,
			Text:       req.Text,
			Media:      req.Media,
			ReplyTo:    req.ReplyTo,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		if receiver, ok := hub.Lookup(msg.ReceiverID); ok {
			_ = receiver.Send(map[string]any{
				"type":           "receiveMessage",
				"conversationId": conv.ID,
				"message":        msg,
			})
		}

		writeJSON(w, http.StatusCreated, map[string]any{
			"conversationId": conv.ID,
			"message":        msg,
		})
	}
}

func handleListMessages(chatSvc *service.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conversationID := chi.URLParam(r, "conversationID")
		limit := queryInt(r, "limit", 0)

		var before time.Time
		if v := r.URL.Query().Get("before"); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "before must be RFC3339"})
				return
			}
			before = t
		}

		msgs, err := chatSvc.ListMessages(r.Context(), conversationID, limit, before)
		if err != nil {
			writeError(w, err)
			return
		}
		if msgs == nil {
			msgs = []*domain.Message{}
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}

type markSeenRequest struct {
	ConversationID string `json:"conversationId"`
}

func handleMarkSeen(chatSvc *service.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req markSeenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		lastSeenID, err := chatSvc.MarkSeen(r.Context(), req.ConversationID, CurrentUserID(r))
		if err != nil {
			writeError(w, err)
			return
		}

		resp := map[string]any{"success": true}
		if lastSeenID != "" {
			resp["lastSeenMessageId"] = lastSeenID
		} else {
			resp["lastSeenMessageId"] = nil
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"chatcore/internal/service"
)

type conversationCreateRequest struct {
	UserID string `json:"userId"`
}

// handleCreateConversation resolves (or lazily creates) the direct
// conversation between the caller and the target user.
func handleCreateConversation(chatSvc *service.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req conversationCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		conv, err := chatSvc.ResolveDirect(r.Context(), CurrentUserID(r), req.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, conv)
	}
}

func handleChatList(listSvc *service.ChatListService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryInt(r, "limit", 0)
		offset := queryInt(r, "offset", 0)

		summaries, err := listSvc.ListForUser(r.Context(), CurrentUserID(r), limit, offset)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, summaries)
	}
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

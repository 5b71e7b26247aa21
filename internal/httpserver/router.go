package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"chatcore/internal/config"
	"chatcore/internal/domain"
	"chatcore/internal/security"
	"chatcore/internal/service"
	"chatcore/internal/ws"
)

// NewRouter constructs the main HTTP router and wires routes, services, and
// middleware.
func NewRouter(
	cfg *config.Config,
	convRepo domain.ConversationRepository,
	msgRepo domain.MessageRepository,
	profiles service.ProfileDirectory,
	hub *ws.Hub,
	tokenSvc *security.TokenService,
	log *zap.SugaredLogger,
) http.Handler {
	r := chi.NewRouter()

	// Middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Services
	chatSvc := service.NewChatService(convRepo, msgRepo, cfg.DefaultPageSize)
	listSvc := service.NewChatListService(convRepo, msgRepo, profiles, cfg.DefaultPageSize)

	// Health endpoints
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("PONG"))
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	// Authenticated REST surface
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(tokenSvc))

		r.Post("/conversations", handleCreateConversation(chatSvc))
		r.Get("/chats", handleChatList(listSvc))
		r.Get("/conversations/{conversationID}/messages", handleListMessages(chatSvc))
		r.Post("/messages", handleSendMessage(chatSvc, hub))
		r.Post("/messages/seen", handleMarkSeen(chatSvc))
	})

	// Real-time endpoint; does its own handshake auth.
	r.Get("/ws", ws.MakeHandler(hub, tokenSvc, chatSvc, log, cfg.CORSOrigins))

	return r
}

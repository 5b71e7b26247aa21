package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"chatcore/internal/config"
	"chatcore/internal/domain"
	"chatcore/internal/httpserver"
	"chatcore/internal/logger"
	"chatcore/internal/profile"
	"chatcore/internal/security"
	"chatcore/internal/store/memory"
	mongostore "chatcore/internal/store/mongo"
	"chatcore/internal/ws"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.Debug)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zlog.Sync()

	// Store backend: MongoDB when configured, otherwise in-memory (dev only).
	var (
		convRepo   domain.ConversationRepository
		msgRepo    domain.MessageRepository
		disconnect func(context.Context) error
	)
	if cfg.MongoURI != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		client, err := mongostore.Open(ctx, cfg.MongoURI)
		cancel()
		if err != nil {
			zlog.Fatalw("failed to open mongo", "error", err)
		}
		db := client.Database(cfg.MongoDB)

		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		err = mongostore.EnsureIndexes(ctx, db)
		cancel()
		if err != nil {
			zlog.Fatalw("failed to ensure indexes", "error", err)
		}

		convRepo = mongostore.NewConversationRepo(db)
		msgRepo = mongostore.NewMessageRepo(db)
		disconnect = client.Disconnect
	} else {
		zlog.Warnw("MONGO_URI not set, using in-memory store")
		convRepo = memory.NewConversationRepo()
		msgRepo = memory.NewMessageRepo()
	}

	tokenSvc := security.NewTokenService(cfg.JWTSecret, 24*time.Hour)
	profiles := profile.NewClient(cfg.UserServiceURL)
	hub := ws.NewHub()

	router := httpserver.NewRouter(cfg, convRepo, msgRepo, profiles, hub, tokenSvc, zlog)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zlog.Infow("chat server listening", "addr", cfg.HTTPAddr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatalw("server error", "error", err)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	zlog.Infow("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zlog.Errorw("graceful shutdown failed", "error", err)
	}
	if disconnect != nil {
		if err := disconnect(ctx); err != nil {
			zlog.Errorw("store disconnect failed", "error", err)
		}
	}
}

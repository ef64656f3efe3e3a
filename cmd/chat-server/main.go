package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"linkup-chat/internal/broadcast"
	"linkup-chat/internal/config"
	"linkup-chat/internal/domain"
	"linkup-chat/internal/handler"
	"linkup-chat/internal/identity"
	"linkup-chat/internal/middleware"
	"linkup-chat/internal/observability"
	"linkup-chat/internal/repository/postgres"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.Load()

	observability.InitLogger(cfg.LogLevel, cfg.LogFormat)

	slog.Info("starting chat server", slog.String("broadcast_backend", cfg.BroadcastBackend))

	connCtx, connCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer connCancel()

	db, err := config.NewPostgresConnection(cfg)
	if err != nil {
		slog.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	if err := db.PingContext(connCtx); err != nil {
		slog.Error("database ping failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("connected to postgresql")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel, backendCheck, backendClose := buildBroadcastBackend(ctx, cfg)
	defer backendClose()

	messageStore := postgres.NewMessageStore(db)
	profileRepo := postgres.NewProfileRepository(db)
	tokenRepo := postgres.NewAuthTokenRepository(db)

	identityService := identity.NewService(profileRepo, tokenRepo)

	go startTokenCleanup(ctx, tokenRepo)
	slog.Info("token cleanup task started")

	authHandler := handler.NewAuthHandler(identityService)
	roomHandler := handler.NewRoomHandler(messageStore)
	wsHandler := handler.NewWebSocketHandler(messageStore, channel, identityService, cfg.AllowedOrigins)

	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.CORS(middleware.ParseOrigins(cfg.AllowedOrigins)))
	r.Use(middleware.Metrics())

	r.Get("/health", handler.Health)
	r.Get("/health/ready", handler.Ready(db, cfg.BroadcastBackend, backendCheck))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.OpenAPIValidator(middleware.DefaultOpenAPIValidatorConfig()))

		authLimiter := middleware.NewRateLimiter(ctx, 5, 10)
		apiLimiter := middleware.NewRateLimiter(ctx, 20, 50)

		r.Group(func(r chi.Router) {
			r.Use(authLimiter.Middleware())
			r.Post("/auth/register", authHandler.Register)
			r.Post("/auth/login", authHandler.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(identityService))
			r.Use(apiLimiter.Middleware())

			r.Get("/auth/me", authHandler.Me)
			r.Post("/auth/logout", authHandler.Logout)
			r.Get("/rooms/direct", roomHandler.DirectRoom)
			r.Get("/rooms/{room}/messages", roomHandler.GetMessages)
		})
	})

	// Auth handled internally to support query param tokens
	r.Get("/ws/rooms/{room}", wsHandler.HandleConnection)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("chat server listening", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", slog.String("error", err.Error()))
	}

	cancel()

	time.Sleep(100 * time.Millisecond)

	slog.Info("server stopped gracefully")
}

// buildBroadcastBackend wires the configured Channel implementation and
// returns it with a readiness probe and a close func.
func buildBroadcastBackend(ctx context.Context, cfg *config.Config) (broadcast.Channel, func(context.Context) error, func()) {
	switch cfg.BroadcastBackend {
	case "redis":
		client, err := broadcast.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			slog.Error("failed to connect to redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		slog.Info("connected to redis")
		check := func(ctx context.Context) error { return client.Ping(ctx).Err() }
		return broadcast.NewRedisChannel(client), check, func() { _ = client.Close() }

	case "amqp":
		dialCtx, dialCancel := context.WithTimeout(ctx, 60*time.Second)
		defer dialCancel()

		amqpChannel, err := broadcast.NewAMQPChannelWithRetry(dialCtx, cfg.RabbitMQURL)
		if err != nil {
			slog.Error("failed to connect to rabbitmq", slog.String("error", err.Error()))
			os.Exit(1)
		}
		slog.Info("connected to rabbitmq")
		check := func(context.Context) error {
			if amqpChannel.IsClosed() {
				return broadcast.ErrConnectionClosed
			}
			return nil
		}
		return amqpChannel, check, func() { _ = amqpChannel.Close() }

	default:
		hub := broadcast.NewHub()
		go func() {
			if err := hub.Run(ctx); err != nil && err != context.Canceled {
				slog.Error("hub error", slog.String("error", err.Error()))
			}
		}()
		slog.Info("in-process broadcast hub started")
		return hub, nil, func() {}
	}
}

// startTokenCleanup runs a background task to delete expired auth tokens
func startTokenCleanup(ctx context.Context, repo domain.AuthTokenRepository) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("stopping token cleanup task")
			return
		case <-ticker.C:
			cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			count, err := repo.DeleteExpired(cleanupCtx)
			if err != nil {
				slog.Error("token cleanup failed", slog.String("error", err.Error()))
			} else {
				slog.Info("token cleanup completed",
					slog.Int64("tokens_deleted", count))
			}
			cancel()
		}
	}
}

// Package main is the entry point for the chat session daemon.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/gidvion/chat-core/internal/backend"
	"github.com/gidvion/chat-core/internal/cache"
	"github.com/gidvion/chat-core/internal/chat"
	"github.com/gidvion/chat-core/internal/config"
	"github.com/gidvion/chat-core/internal/events"
	"github.com/gidvion/chat-core/internal/handler"
	"github.com/gidvion/chat-core/internal/llm"
	"github.com/gidvion/chat-core/internal/middleware"
	"github.com/gidvion/chat-core/internal/model"
	"github.com/gidvion/chat-core/internal/registry"
	"github.com/gidvion/chat-core/internal/store"
	"github.com/gidvion/chat-core/pkg/logger"
	"github.com/gidvion/chat-core/pkg/tracing"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting chat session daemon")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "chat-core", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Optional NATS event mirror.
	var natsClient *events.Client
	if cfg.NATSURL != "" {
		natsClient, err = events.Connect(events.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Error("failed to connect to NATS", zap.Error(err))
			os.Exit(1)
		}
		defer natsClient.Close()
	}
	mirror := events.NewMirror(natsClient)
	if err := mirror.EnsureStream(ctx); err != nil {
		log.Error("failed to ensure event stream", zap.Error(err))
		os.Exit(1)
	}

	// Backend: a remote HTTP gateway by default, or in-process inference
	// against the configured LLM provider.
	var be backend.Client
	switch cfg.BackendMode {
	case "local":
		provider := llm.Provider(cfg.DefaultLLM)
		apiKey := cfg.AnthropicAPIKey
		if provider == llm.ProviderOpenAI {
			apiKey = cfg.OpenAIAPIKey
		}
		llmClient, err := llm.NewClient(provider, apiKey)
		if err != nil {
			log.Error("failed to create LLM client", zap.Error(err))
			os.Exit(1)
		}
		be = backend.NewLocal(llmClient, model.User{ID: "local", Username: "local"})
	default:
		var opts []backend.GatewayOption
		if cfg.BackendAuthToken != "" {
			opts = append(opts, backend.WithAuthToken(cfg.BackendAuthToken))
		}
		be = backend.NewGateway(cfg.BackendURL, opts...)
	}

	st := store.New()
	reg := registry.New()
	c, err := cache.Open(cfg.CachePath, log)
	if err != nil {
		log.Error("failed to open cache", zap.Error(err))
		os.Exit(1)
	}
	defer c.Close()

	session := chat.New(st, reg, be, c, mirror, log, chat.Options{
		SentDelay:      cfg.SentDelay,
		HealthInterval: cfg.HealthCheckInterval,
	})
	if err := session.Open(ctx); err != nil {
		log.Error("failed to open session", zap.Error(err))
		os.Exit(1)
	}
	defer session.Close()

	healthHandler := handler.NewHealthHandler(session)
	sessionHandler := handler.NewSessionHandler(session)
	conversationHandler := handler.NewConversationHandler(session, log)
	messageHandler := handler.NewMessageHandler(session, log)
	streamHandler := handler.NewStreamHandler(session, log)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS())

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Get("/session", sessionHandler.Snapshot)
		r.Get("/models", sessionHandler.Models)
		r.Put("/models/selected", sessionHandler.SelectModel)

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", conversationHandler.List)
			r.Post("/", conversationHandler.Create)
			r.Get("/active/export", conversationHandler.Export)

			r.Route("/{id}", func(r chi.Router) {
				r.Post("/select", conversationHandler.Select)
				r.Delete("/", conversationHandler.Delete)
			})
		})

		r.Route("/messages", func(r chi.Router) {
			r.Get("/", messageHandler.List)
			r.Post("/", messageHandler.Send)
			r.Get("/tree", messageHandler.Tree)
			r.Post("/{id}/retry", messageHandler.Retry)
			r.Post("/{id}/reactions", messageHandler.React)
		})

		r.Get("/stream", streamHandler.Stream)
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

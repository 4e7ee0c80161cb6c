// Package main is the entry point for the conversation engine server.
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
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/eleccia/chatbot-engine/internal/config"
	"github.com/eleccia/chatbot-engine/internal/content"
	"github.com/eleccia/chatbot-engine/internal/handler"
	"github.com/eleccia/chatbot-engine/internal/llm"
	"github.com/eleccia/chatbot-engine/internal/middleware"
	natsclient "github.com/eleccia/chatbot-engine/internal/nats"
	"github.com/eleccia/chatbot-engine/internal/service"
	"github.com/eleccia/chatbot-engine/internal/session"
	"github.com/eleccia/chatbot-engine/internal/store"
	"github.com/eleccia/chatbot-engine/pkg/logger"
	"github.com/eleccia/chatbot-engine/pkg/tracing"
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

	log.Info("starting conversation engine")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "chatbot-engine", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// NATS carries archive events for downstream consumers.
	natsClient, err := natsclient.Connect(ctx, natsclient.Config{
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

	streamManager := natsclient.NewStreamManager(natsClient)
	if err := streamManager.EnsureStream(ctx); err != nil {
		log.Error("failed to ensure archive stream", zap.Error(err))
		os.Exit(1)
	}

	// Session store: Redis when configured, in-process otherwise.
	var sessions session.Store
	if cfg.RedisURL != "" {
		redisStore, err := session.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			log.Error("failed to connect to Redis", zap.Error(err))
			os.Exit(1)
		}
		defer redisStore.Close()
		sessions = redisStore
		log.Info("using Redis session store")
	} else {
		sessions = session.NewMemoryStore()
		log.Info("using in-memory session store")
	}

	repo, err := store.NewSQLite(cfg.SQLitePath)
	if err != nil {
		log.Error("failed to open conversation store", zap.Error(err))
		os.Exit(1)
	}
	defer repo.Close()

	var llmClient llm.Client
	switch {
	case cfg.DefaultLLM == string(llm.ProviderOpenAI) && cfg.OpenAIAPIKey != "":
		llmClient, err = llm.NewClient(llm.ProviderOpenAI, cfg.OpenAIAPIKey)
	case cfg.AnthropicAPIKey != "":
		llmClient, err = llm.NewClient(llm.ProviderAnthropic, cfg.AnthropicAPIKey)
	case cfg.OpenAIAPIKey != "":
		llmClient, err = llm.NewClient(llm.ProviderOpenAI, cfg.OpenAIAPIKey)
	}
	if err != nil {
		log.Warn("failed to create LLM client, free-text answers disabled", zap.Error(err))
		llmClient = nil
	}

	catalog := content.NewCatalog(cfg.ContentDir, llmClient, log)

	// Engine wiring.
	locks := session.NewKeyedLocks()
	archiver := service.NewArchiver(sessions, repo, streamManager, log)
	controller := service.NewController(catalog, repo, cfg.ProviderTimeout, log)
	engine := service.NewEngine(sessions, locks, controller, archiver, cfg.SessionTTL, log)
	sweeper := service.NewSweeper(sessions, engine, cfg.SweepInterval, cfg.SweepThreshold, log)

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	go sweeper.Run(sweepCtx)

	webhookHandler := handler.NewWebhookHandler(engine, cfg.WhatsAppVerifyToken, log)
	adminHandler := handler.NewAdminHandler(engine, sweeper, repo, catalog, log)
	healthHandler := handler.NewHealthHandler(sessions, repo, natsClient)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	// Channel webhooks.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		r.Post("/webhook/telegram", webhookHandler.Telegram)
		r.Get("/webhook/whatsapp", webhookHandler.WhatsAppVerify)
		r.Post("/webhook/whatsapp", webhookHandler.WhatsApp)
		r.Post("/api/chat", webhookHandler.Chat)
	})

	// Operator surface.
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RequireScope(middleware.ScopeAdmin))
		r.Use(middleware.SubjectRateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Get("/stats", adminHandler.Stats)
		r.Post("/sweep", adminHandler.RunSweep)
		r.Post("/content/reload", adminHandler.ReloadContent)
		r.Route("/sessions/{userID}", func(r chi.Router) {
			r.Get("/", adminHandler.GetSession)
			r.Get("/conversations", adminHandler.ListConversations)
			r.Post("/finalize", adminHandler.FinalizeSession)
			r.Post("/reset", adminHandler.ResetSession)
		})
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

	log.Info("shutting down")
	stopSweeper()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	log.Info("server stopped")
}

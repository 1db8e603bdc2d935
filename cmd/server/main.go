package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"go-chat-memory/internal/chat"
	"go-chat-memory/internal/config"
	"go-chat-memory/internal/db"
	"go-chat-memory/internal/embeddings"
	"go-chat-memory/internal/features"
	"go-chat-memory/internal/llm"
	"go-chat-memory/internal/logger"
	"go-chat-memory/internal/memory"
	myMiddleware "go-chat-memory/internal/middleware"
	"go-chat-memory/internal/vectorstore"
)

const (
	bootstrapWait   = 30 * time.Second
	shutdownTimeout = 10 * time.Second
	llmMaxTokens    = 2000
)

func main() {
	var addr, logLevel string

	rootCmd := &cobra.Command{
		Use:   "chat-server",
		Short: "Real-time chat relay with a consent-gated memory layer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, addr, logLevel)
		},
		SilenceUsage: true,
	}
	rootCmd.Flags().StringVar(&addr, "addr", "", "http service address (overrides CHAT_HTTP_ADDR)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level (overrides CHAT_LOG_LEVEL)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, addr, logLevel string) error {
	log := logger.New("chat-server")

	// 1. Config & Flags
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("could not read .env")
	}
	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("❌ Failed to load configuration")
		return err
	}
	if cmd.Flags().Changed("addr") {
		cfg.HTTPAddr = addr
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	logger.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Optional sinks (Platform Layer)
	var hubOpts []chat.HubOption
	if cfg.DBDSN != "" {
		database, err := db.NewDatabase(ctx, cfg.DBDSN)
		if err != nil {
			log.Error().Err(err).Msg("❌ Failed to connect to DB")
			return err
		}
		defer database.Close()
		if err := database.AutoMigrate(ctx); err != nil {
			log.Error().Err(err).Msg("❌ Migration failed")
			return err
		}
		log.Info().Msg("✅ Connected to PostgreSQL archive")
		hubOpts = append(hubOpts, chat.WithArchiver(chat.NewRepository(database.Conn)))
	}

	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Error().Err(err).Msg("❌ Failed to connect to Redis")
			return err
		}
		defer redisClient.Close()
		log.Info().Str("channel", cfg.RedisChannel).Msg("✅ Connected to Redis mirror")
		hubOpts = append(hubOpts, chat.WithMirror(chat.NewRedisMirror(redisClient, cfg.RedisChannel)))
	}

	// 3. AI collaborators
	vectors, err := vectorstore.New(vectorstore.Options{
		Backend:        cfg.VectorStore,
		WeaviateScheme: cfg.WeaviateScheme,
		WeaviateHost:   cfg.WeaviateHost,
		WeaviateAPIKey: cfg.WeaviateAPIKey,
	}, log)
	if err != nil {
		log.Error().Err(err).Msg("❌ Vector store unavailable")
		return err
	}
	collections := memory.Collections{Individual: cfg.IndividualClass, Group: cfg.GroupClass}
	if err := vectorstore.Bootstrap(ctx, vectors, bootstrapWait, log, collections.Individual, collections.Group); err != nil {
		// Not fatal: every memory write ensures the collections again.
		log.Warn().Err(err).Msg("⚠️ Vector store not ready; memory endpoints will return 503 until it is")
	}

	embedder, err := embeddings.New(embeddings.Options{
		Provider:   cfg.EmbedProvider,
		Model:      cfg.EmbedModel,
		OllamaURL:  cfg.OllamaURL,
		Dimensions: cfg.EmbedDimensions,
		CacheSize:  cfg.EmbedCacheSize,
		Timeout:    cfg.EmbedTimeout,
	})
	if err != nil {
		log.Error().Err(err).Msg("❌ Embedding provider unavailable")
		return err
	}
	defer embeddings.Close(embedder)

	completer, err := llm.New(llm.Options{
		Provider:      cfg.LLMProvider,
		Model:         cfg.LLMModel,
		AnthropicKey:  cfg.AnthropicAPIKey,
		OpenAIKey:     cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		MaxTokens:     llmMaxTokens,
		Timeout:       cfg.LLMTimeout,
	}, log)
	if err != nil {
		log.Error().Err(err).Msg("❌ LLM provider unavailable")
		return err
	}

	// 4. Chat core
	messageLog := chat.NewMessageLog(cfg.AIEnabledDefault)
	hub := chat.NewHub(messageLog, log.With().Str("component", "hub").Logger(), hubOpts...)
	chatHandler := chat.NewHandler(hub, log)

	// 5. Memory & features
	memLog := log.With().Str("component", "memory").Logger()
	memorySvc := memory.NewService(
		messageLog,
		memory.NewDistiller(completer, memLog),
		memory.NewStore(vectors, embedder, collections, cfg.VectorTimeout, cfg.EmbedTimeout, memLog),
		memory.NewRetriever(vectors, embedder, completer, cfg.VectorTimeout, cfg.EmbedTimeout, memLog),
		collections,
		memLog,
	)
	memoryHandler := memory.NewHandler(memorySvc, memLog)

	featureLog := log.With().Str("component", "features").Logger()
	featureHandler := features.NewHandler(features.NewService(messageLog, completer, featureLog), featureLog)

	// 6. Define Routes
	router := newRouter(log, chatHandler, memoryHandler, featureHandler)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("🚀 Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Stack().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Stack().Err(err).Msg("HTTP server failed")
		return err
	}
}

func newRouter(log zerolog.Logger, chatHandler *chat.Handler, memoryHandler *memory.Handler, featureHandler *features.Handler) http.Handler {
	requests := myMiddleware.NewRequestLogger(log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requests.Handle)
	r.Use(requests.Recover)

	r.Get("/healthz", chatHandler.Health)
	r.Handle("/metrics", promhttp.Handler())

	// WebSocket (Real-time)
	r.Get("/ws", chatHandler.ServeWs)

	r.Route("/api", func(r chi.Router) {
		r.Get("/messages", chatHandler.GetMessages)
		r.Post("/messages/read", chatHandler.MarkRead)
		r.Get("/consent", chatHandler.GetConsent)
		r.Post("/consent", chatHandler.SetConsent)

		r.Route("/memory", func(r chi.Router) {
			r.Post("/individual/refresh", memoryHandler.RefreshIndividual)
			r.Post("/group/refresh", memoryHandler.RefreshGroup)
			r.Post("/individual/search", memoryHandler.SearchIndividual)
			r.Post("/group/search", memoryHandler.SearchGroup)
		})

		r.Route("/features", func(r chi.Router) {
			r.Post("/summarize", featureHandler.Summarize)
			r.Post("/prioritize", featureHandler.Prioritize)
			r.Post("/moderate", featureHandler.Moderate)
			r.Post("/smart-replies", featureHandler.SmartReplies)
			r.Post("/tasks", featureHandler.ExtractTasks)
			r.Post("/reminders/suggest", featureHandler.SuggestReminders)
			r.Post("/reminders", featureHandler.CreateReminder)
			r.Post("/translate", featureHandler.Translate)
			r.Post("/translate/batch", featureHandler.TranslateBatch)
		})
	})
	return r
}

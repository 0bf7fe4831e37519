package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/skillswap/voicesearch/internal/config"
	dbRedis "github.com/skillswap/voicesearch/internal/db/redis"
	logpkg "github.com/skillswap/voicesearch/internal/logger"
	"github.com/skillswap/voicesearch/internal/metrics"
	historyrepo "github.com/skillswap/voicesearch/internal/repository/history"
	"github.com/skillswap/voicesearch/internal/repository/resultcache"
	"github.com/skillswap/voicesearch/internal/transport/backends"
	chiTransport "github.com/skillswap/voicesearch/internal/transport/chi"
	openaiSpeech "github.com/skillswap/voicesearch/internal/transport/openai"
	audiouc "github.com/skillswap/voicesearch/internal/usecase/audio"
	healthuc "github.com/skillswap/voicesearch/internal/usecase/health"
	historyuc "github.com/skillswap/voicesearch/internal/usecase/history"
	searchuc "github.com/skillswap/voicesearch/internal/usecase/search"
	"github.com/skillswap/voicesearch/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting voicesearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("cache_addrs", cfg.Cache.Addrs),
		zap.String("history_path", cfg.History.Path),
	)

	// Cache store
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Cache.Addrs,
		Password: cfg.Cache.Password,
		DB:       cfg.Cache.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create cache store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Cache store not ready", zap.Error(err))
	}
	logger.Info("Connected to cache store")

	// History store
	histRepo, err := historyrepo.New(cfg.History.Path)
	if err != nil {
		logger.Fatal("Failed to open history store", zap.Error(err))
	}
	defer func() { _ = histRepo.Close() }()

	// Register search metrics explicitly (no init())
	metrics.RegisterSearchMetrics()

	// Result cache
	cache := resultcache.New(
		store,
		time.Duration(cfg.Cache.TTLSec)*time.Second,
		metrics.ResultCacheTotal,
		logger,
	)

	// Transcription + audio normalization
	transcriber := openaiSpeech.NewTranscriber(&openaiSpeech.Config{
		APIKey:   cfg.Speech.APIKey,
		BaseURL:  cfg.Speech.BaseURL,
		Model:    cfg.Speech.Model,
		Language: cfg.Speech.Language,
		Logger:   logger,
	})
	normalizer := audiouc.New(transcriber, audiouc.Config{
		MaxBytes:   cfg.Speech.MaxAudioBytes(),
		SampleRate: cfg.Speech.SampleRate,
		FFmpegPath: cfg.Speech.FFmpegPath,
	}, logger)

	// Backend dispatcher
	dispatcher := backends.New(backends.Config{
		ProjectsURL: cfg.Backends.ProjectsURL,
		UsersURL:    cfg.Backends.UsersURL,
		Timeout:     time.Duration(cfg.Backends.TimeoutSec) * time.Second,
		Logger:      logger,
	})

	// Use case services
	searchSvc := searchuc.New(normalizer, dispatcher, cache, histRepo).
		WithCacheKeyPrefix(cfg.Cache.KeyPrefix).
		WithPagination(cfg.Search.DefaultPageSize, cfg.Search.MaxPageSize)
	historySvc := historyuc.New(histRepo)
	healthSvc := healthuc.New(store, histRepo)

	// HTTP server
	server := chiTransport.NewServer(searchSvc, historySvc, healthSvc, logger).
		WithMaxAudioBytes(cfg.Speech.MaxAudioBytes())

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.AuthMiddleware(cfg.Auth.JWTSecret, logger))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]any{
						"success": false,
						"message": "internal error",
						"error":   "internal_error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}

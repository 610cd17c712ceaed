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

	"github.com/kailas-cloud/dietwatch/internal/config"
	"github.com/kailas-cloud/dietwatch/internal/db"
	"github.com/kailas-cloud/dietwatch/internal/db/memory"
	dbValkey "github.com/kailas-cloud/dietwatch/internal/db/valkey"
	"github.com/kailas-cloud/dietwatch/internal/domain"
	"github.com/kailas-cloud/dietwatch/internal/domain/prompt"
	domroster "github.com/kailas-cloud/dietwatch/internal/domain/roster"
	"github.com/kailas-cloud/dietwatch/internal/domain/speech"
	logpkg "github.com/kailas-cloud/dietwatch/internal/logger"
	"github.com/kailas-cloud/dietwatch/internal/metrics"
	budgetrepo "github.com/kailas-cloud/dietwatch/internal/repository/budget"
	rosterrepo "github.com/kailas-cloud/dietwatch/internal/repository/roster"
	"github.com/kailas-cloud/dietwatch/internal/repository/speechcache"
	chiTransport "github.com/kailas-cloud/dietwatch/internal/transport/chi"
	"github.com/kailas-cloud/dietwatch/internal/transport/extractive"
	"github.com/kailas-cloud/dietwatch/internal/transport/kokkai"
	openaiSum "github.com/kailas-cloud/dietwatch/internal/transport/openai"
	budgetuc "github.com/kailas-cloud/dietwatch/internal/usecase/budget"
	digestuc "github.com/kailas-cloud/dietwatch/internal/usecase/digest"
	healthuc "github.com/kailas-cloud/dietwatch/internal/usecase/health"
	"github.com/kailas-cloud/dietwatch/internal/usecase/speaker"
	"github.com/kailas-cloud/dietwatch/internal/version"
)

const serviceName = "dietwatch"

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, serviceName, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting dietwatch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("roster_source", cfg.Roster.Source),
		zap.String("cache_driver", cfg.Cache.Driver),
		zap.String("summarizer", cfg.Summarizer.Provider),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterSpeechMetrics()
	metrics.RegisterSummarizerMetrics()

	ctx := context.Background()

	userAgent := cfg.Speech.UserAgent
	if userAgent == "" {
		userAgent = version.UserAgent(serviceName)
	}

	store := buildStore(ctx, cfg.Cache, logger)
	if store != nil {
		defer store.Close()
	}

	rosterSource := rosterrepo.NewSource(
		buildRosterLoader(cfg.Roster, userAgent, time.Duration(cfg.Speech.TimeoutSec)*time.Second),
		time.Duration(cfg.Roster.RefreshSec)*time.Second,
		logger,
		domroster.WithPriorityParties(cfg.Roster.PriorityParties),
	)
	if ix, err := rosterSource.Load(ctx); err != nil {
		// Not fatal: the source retries on the next request.
		logger.Warn("Roster not loaded at startup", zap.Error(err))
	} else {
		logger.Info("Roster loaded", zap.Int("legislators", ix.Len()))
	}

	var searcher speech.Searcher = kokkai.New(kokkai.Config{
		BaseURL:    cfg.Speech.BaseURL,
		PageSize:   cfg.Speech.PageSize,
		Timeout:    time.Duration(cfg.Speech.TimeoutSec) * time.Second,
		RatePerSec: cfg.Speech.RatePerSec,
		UserAgent:  userAgent,
		Logger:     logger,
	})
	if store != nil {
		searcher = speechcache.New(
			searcher, store, time.Duration(cfg.Cache.TTLSec)*time.Second, metrics.SpeechCacheTotal, logger,
			speechcache.WithPageSize(cfg.Speech.PageSize),
		)
	}

	summarizer, builder := buildSummarizer(ctx, cfg.Summarizer, store, logger)

	digestSvc := digestuc.New(
		rosterSource,
		speaker.NewResolver(speaker.WithMaxSpeakers(cfg.Roster.MaxSpeakers)),
		searcher,
		summarizer,
		builder,
		digestuc.WithConcurrency(cfg.Speech.MaxConcurrency),
		digestuc.WithLogger(logger),
	)

	// Pass nil interfaces, not typed nil pointers, when a component is absent.
	var cachePinger healthuc.CachePinger
	if store != nil {
		cachePinger = store
	}
	var summarizerChecker healthuc.SummarizerChecker
	if hc, ok := summarizer.(domain.HealthChecker); ok {
		summarizerChecker = hc
	}
	healthSvc := healthuc.New(rosterSource, cachePinger, summarizerChecker)

	server := chiTransport.NewServer(rosterSource, digestSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware("/metrics"))
	server.Mount(r)

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

// buildStore returns the speech cache backend, or nil when caching is off.
func buildStore(ctx context.Context, cfg config.CacheConfig, logger *zap.Logger) db.Store {
	switch cfg.Driver {
	case "none":
		return nil
	case "memory":
		return memory.NewStore()
	case "valkey", "redis":
		store, err := dbValkey.NewStore(dbValkey.Config{
			Addrs:    cfg.Addrs,
			Password: cfg.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Cache not ready", zap.Error(err))
		}
		logger.Info("Connected to cache", zap.Strings("addrs", cfg.Addrs))
		return store
	default:
		logger.Fatal("Unknown cache driver", zap.String("driver", cfg.Driver))
		return nil
	}
}

func buildRosterLoader(cfg config.RosterConfig, userAgent string, timeout time.Duration) rosterrepo.Loader {
	if cfg.Source == "html" {
		return rosterrepo.NewHTMLLoader(cfg.URL, cfg.Encoding, userAgent, timeout)
	}
	return rosterrepo.NewCSVLoader(cfg.Path, cfg.Encoding)
}

// buildSummarizer picks the model-backed or the offline summarizer. The offline one
// cannot produce a stance score, so its prompt omits the instruction.
func buildSummarizer(
	ctx context.Context, cfg config.SummarizerConfig, store db.Store, logger *zap.Logger,
) (domain.Summarizer, *prompt.Builder) {
	builder := prompt.NewBuilder(cfg.MaxRecords, cfg.MaxChars)
	if cfg.Provider == "extractive" {
		return extractive.New(cfg.Sentences), builder.WithoutStanceScore()
	}
	base := openaiSum.NewSummarizer(&openaiSum.Config{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Timeout:     time.Duration(cfg.TimeoutSec) * time.Second,
		Provider:    cfg.Provider,
		Logger:      logger,
	})

	if cfg.Budget.DailyTokenLimit == 0 && cfg.Budget.MonthlyTokenLimit == 0 {
		return base, builder
	}
	tracker := budgetuc.NewTracker(
		cfg.Provider, cfg.Budget.DailyTokenLimit, cfg.Budget.MonthlyTokenLimit,
		budgetuc.Action(cfg.Budget.Action), logger,
	)
	if store != nil {
		tracker.WithStore(ctx, budgetrepo.New(store, 48*time.Hour, 62*24*time.Hour))
	}
	logger.Info("Summarization budget enabled",
		zap.Int64("daily_token_limit", cfg.Budget.DailyTokenLimit),
		zap.Int64("monthly_token_limit", cfg.Budget.MonthlyTokenLimit),
		zap.String("action", cfg.Budget.Action),
	)
	return budgetuc.NewSummarizer(base, cfg.Provider, tracker, logger), builder
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.String("path", r.URL.Path),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.ErrorCodeInternalError,
						Message: "internal error",
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

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

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

package main

import (
	"context"
	"net/http"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/ytqm/ytqm/internal/auth"
	"github.com/ytqm/ytqm/internal/cache"
	"github.com/ytqm/ytqm/internal/chatwatch"
	"github.com/ytqm/ytqm/internal/database"
	"github.com/ytqm/ytqm/internal/handlers"
	"github.com/ytqm/ytqm/internal/memstore"
	"github.com/ytqm/ytqm/internal/middleware"
	"github.com/ytqm/ytqm/internal/store"
)

func main() {
	logger := logrus.New()
	if os.Getenv("LOG_LEVEL") == "debug" {
		logger.SetLevel(logrus.DebugLevel)
	}

	ctx := context.Background()

	var st store.Store
	if os.Getenv("DATABASE_URL") != "" || os.Getenv("PG_HOST") != "" {
		db, err := database.Connect(ctx)
		if err != nil {
			logger.Fatalf("database connect failed: %v", err)
		}
		defer db.Close()
		st = db
	} else {
		logger.Warn("no database configured, using in-memory store; state is lost on restart")
		st = memstore.New()
	}

	tokens, err := auth.NewTokens(tokenTTL(logger))
	if err != nil {
		logger.Fatalf("auth init failed: %v", err)
	}

	var overlay *cache.Overlay
	if os.Getenv("REDIS_ADDR") != "" {
		rdb, err := cache.Connect(ctx)
		if err != nil {
			logger.Fatalf("redis connect failed: %v", err)
		}
		overlay = cache.NewOverlay(rdb, cache.DefaultTTL)
	}

	var watcher *chatwatch.Watcher
	if key := os.Getenv("YOUTUBE_API_KEY"); key != "" {
		watcher = chatwatch.New(st, chatwatch.NewYouTubeSource(key), logger, os.Getenv("POLLER_ID"))
	} else {
		logger.Warn("YOUTUBE_API_KEY not set, chat polling disabled")
	}

	srv := handlers.NewServer(logger, st, tokens, overlay, watcher)

	mux := http.NewServeMux()
	mux.Handle("/", middleware.LogMiddleware(logger)(srv.Routes()))
	mux.Handle("/metrics", promhttp.Handler())

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
}

// tokenTTL reads TOKEN_EXPIRE_TIME; "never", "0" or unset means issued
// tokens do not expire.
func tokenTTL(logger *logrus.Logger) time.Duration {
	raw := os.Getenv("TOKEN_EXPIRE_TIME")
	if raw == "" || raw == "never" || raw == "0" {
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		logger.Fatalf("failed to parse token expire time: %v", err)
	}
	return d
}

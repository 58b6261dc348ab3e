// Command server runs the TallerMendoza HTTP API: the appointment
// scheduler and queue engine described in SPEC_FULL.md, fronted by
// gin and backed by PostgreSQL.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/acaldeo/TallerMendoza/internal/api"
	"github.com/acaldeo/TallerMendoza/internal/clock"
	"github.com/acaldeo/TallerMendoza/internal/config"
	"github.com/acaldeo/TallerMendoza/internal/directory"
	"github.com/acaldeo/TallerMendoza/internal/engine"
	"github.com/acaldeo/TallerMendoza/internal/models"
	"github.com/acaldeo/TallerMendoza/internal/notifier"
	"github.com/acaldeo/TallerMendoza/internal/store"
)

const (
	exitOK            = 0
	exitStartupFailed = 1
	exitConfigError   = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config error", "error", err)
		return exitConfigError
	}

	db, err := store.Connect(cfg.DSN(), cfg.Workers)
	if err != nil {
		log.Error("failed to open database", "error", err)
		return exitStartupFailed
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		log.Error("database unreachable", "error", err)
		return exitStartupFailed
	}

	pgStore := store.NewPostgres(db)
	dir := directory.New(db)
	sysClock := clock.System{}

	mem := notifier.NewMemory(notifier.DefaultQueueSize, func(t models.Turn) {
		log.Info("turn created", "turn_id", t.ID, "workshop_id", t.WorkshopID, "turn_number", t.TurnNumber)
	}, log)
	defer mem.Close()

	notif := buildNotifier(cfg, log, mem)

	eng := engine.New(pgStore, sysClock, notif, engine.WithLogger(log))
	handler := api.New(eng, dir, log)
	router := handler.Router(api.RequireRole("ADMIN"))

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("taller-mendoza listening", "addr", cfg.HTTPAddr)
		serverErr <- srv.ListenAndServe()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err)
			return exitStartupFailed
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
	}

	return exitOK
}

// buildNotifier always includes the in-memory notifier mem, and fans
// out to Redis as well when REDIS_URL is configured.
func buildNotifier(cfg config.App, log *slog.Logger, mem *notifier.Memory) notifier.Notifier {
	if cfg.RedisURL == "" {
		return mem
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Warn("invalid REDIS_URL, falling back to in-memory notifier only", "error", err)
		return mem
	}
	rdb := redis.NewClient(opt)
	redisNotifier := notifier.NewRedis(rdb, cfg.NotifierStream, log)

	return notifier.Multi{mem, redisNotifier}
}

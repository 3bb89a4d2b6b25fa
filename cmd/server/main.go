package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/partflow/internal/config"
	"github.com/JonMunkholm/partflow/internal/core"
	"github.com/JonMunkholm/partflow/internal/logging"
	"github.com/JonMunkholm/partflow/internal/notify"
	"github.com/JonMunkholm/partflow/internal/store"
	"github.com/JonMunkholm/partflow/internal/web"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	if err := run(cfg); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer st.Close()
	slog.Info("connected to database", "backend", cfg.Database.Backend())

	publisher, closePublisher, err := newPublisher(ctx, cfg.Notify)
	if err != nil {
		return err
	}
	defer closePublisher()

	service, err := core.NewService(st, publisher, core.OptionsFromConfig(cfg))
	if err != nil {
		return err
	}

	server := web.NewServer(service, cfg)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := service.ImportStatus(); status.Active > 0 {
			slog.Info("waiting for imports to complete", "active", status.Active)
			if err := service.WaitForImports(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			}
		}
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// newPublisher sends notifications to Redis when configured and always to the log.
func newPublisher(ctx context.Context, cfg config.NotifyConfig) (notify.Publisher, func(), error) {
	logSink := notify.LogPublisher{}
	if cfg.RedisAddr == "" {
		slog.Info("REDIS_ADDR not set, notifications go to the log only")
		return logSink, func() {}, nil
	}

	redisPub, err := notify.NewRedisPublisher(ctx, notify.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		Channel:  cfg.Channel,
	})
	if err != nil {
		return nil, nil, err
	}
	slog.Info("publishing notifications to redis", "addr", cfg.RedisAddr, "channel", cfg.Channel)

	closeFn := func() {
		if err := redisPub.Close(); err != nil {
			slog.Warn("close redis publisher", "error", err)
		}
	}
	return notify.Multi{redisPub, logSink}, closeFn, nil
}

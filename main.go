// entry point of the application
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"

	"retreivr/internal/archive"
	"retreivr/internal/config"
	"retreivr/internal/copier"
	"retreivr/internal/depmanager"
	"retreivr/internal/downloader"
	"retreivr/internal/media"
	"retreivr/internal/notify"
	"retreivr/internal/observability"
	"retreivr/internal/source"
	httpserver "retreivr/pkg/http/server"
	"retreivr/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.New()
	if err != nil {
		slog.Error("config new", slog.Any("error", err))
		stop()
		os.Exit(1)
	}

	log, err := logger.New(&logger.Options{
		AddSource: true,
		Level:     cfg.App.LogLevel,
		LogDir:    cfg.Dir.Logs,
	})
	if err != nil {
		slog.WarnContext(ctx, "logger level invalid; defaulting to info", slog.Any("error", err))
	}

	if err := cfg.Dir.EnsureDirs(); err != nil {
		log.Error("ensure dirs", slog.Any("error", err))
		stop()
		os.Exit(1)
	}

	metrics := observability.New()

	if cfg.Metrics.Port != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler())

		metricsSrv := httpserver.New(mux, httpserver.Options{Addr: cfg.Metrics.Port})
		defer func() {
			if err := metricsSrv.Shutdown(); err != nil {
				log.Error("metrics endpoint shutdown", slog.Any("error", err))
			}
		}()

		log.InfoContext(ctx, "metrics endpoint listening", slog.String("addr", cfg.Metrics.Port))
	}

	log.InfoContext(ctx, "checking ffmpeg install. it may take some time...")

	ffmpegBin, err := depmanager.New(log, cfg).EnsureFFmpeg(ctx)
	if err != nil {
		log.Error("ffmpeg unavailable", slog.Any("error", err))
		stop()
		os.Exit(1)
	}

	runner := media.ExecRunner{Bin: ffmpegBin}
	engine := downloader.NewEngine(log, cfg, downloader.NewYTdlp(log, cfg), metrics)
	embedder := media.NewEmbedder(log, runner, cfg.Dir.Thumbs)
	converter := media.NewConverter(log, runner)
	clients := source.NewClients(log, cfg.Run.Accounts)
	notifier := notify.New(log, cfg.Run.Telegram)

	coordinator := archive.New(log, cfg, engine, embedder, converter,
		copier.New(log, metrics), clients, notifier, metrics)

	log.InfoContext(ctx, "retreivr started", slog.Int("playlists", len(cfg.Run.Playlists)))

	if err := coordinator.Run(ctx); err != nil {
		log.Error("run failed", slog.Any("error", err))
		stop()
		os.Exit(1)
	}

	log.InfoContext(ctx, "retreivr finished")
}

// entry point of the application
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"ytbatch/internal/config"
	"ytbatch/internal/depmanager"
	"ytbatch/internal/engine"
	httprouter "ytbatch/internal/infrastructure/delivery/http"
	"ytbatch/internal/observability"
	"ytbatch/internal/storage"
	httpserver "ytbatch/pkg/http/server"
	"ytbatch/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
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
		Format:    cfg.App.LogFormat,
	})
	if err != nil {
		log.WarnContext(ctx, "logger options invalid; using defaults", slog.Any("error", err))
	}

	metrics := observability.New(prometheus.DefaultRegisterer)
	depMgr := depmanager.New(log, cfg, metrics)

	log.InfoContext(ctx, "checking if yt-dlp and ffmpeg are available. it may take some time...")

	depMgr.Start(ctx)

	if version, err := depMgr.Version(ctx); err != nil {
		log.WarnContext(ctx, "yt-dlp version unknown", slog.Any("error", err))
	} else {
		log.InfoContext(ctx, "yt-dlp ready", slog.String("version", version))
	}

	journal := storage.New(log, cfg, metrics)
	eng := engine.New(log, cfg, depMgr, engine.Sinks(journal, engine.NewLogSink(log)), metrics)

	// HTTP Server
	router := httprouter.New(log, cfg, eng, journal, depMgr, metrics, prometheus.DefaultGatherer)

	httpSrv, err := httpserver.New(router, httpserver.Options{
		Addr:            cfg.HTTP.Port,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	})
	if err != nil {
		log.ErrorContext(ctx, "http server listen", slog.Any("error", err))
		stop()
		os.Exit(1)
	}

	log.InfoContext(ctx, "ytbatch started",
		slog.String("addr", httpSrv.Addr()),
		slog.String("downloads", cfg.Dir.Downloads))

	// Waiting for shutdown signal
	select {
	case <-ctx.Done():
	case err := <-httpSrv.Notify():
		log.ErrorContext(ctx, "http server failed", slog.Any("error", err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	eng.Stop()

	if err := eng.Wait(shutdownCtx); err != nil {
		log.ErrorContext(shutdownCtx, "batch did not stop in time", slog.Any("error", err))
	}

	if err := httpSrv.Shutdown(); err != nil {
		log.ErrorContext(shutdownCtx, "http server shutdown", slog.Any("error", err))
	}

	log.InfoContext(shutdownCtx, "ytbatch shut down gracefully")
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"

	apihttp "clipstream/internal/api/http"
	"clipstream/internal/app"
	"clipstream/internal/metrics"
	"clipstream/internal/repository/memory"
	mongorepo "clipstream/internal/repository/mongo"
	"clipstream/internal/services/download"
	"clipstream/internal/services/download/extract"
	"clipstream/internal/services/download/ffmpeg"
	"clipstream/internal/services/download/ffprobe"
	"clipstream/internal/telemetry"
	"clipstream/internal/urlinfo"
)

func main() {
	// A missing .env file is fine; env vars win either way.
	_ = godotenv.Load()

	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "clipstream")
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", "clipstream"),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.Int64("maxFileSizeMB", cfg.MaxFileSizeMB),
		slog.Int64("fallbackFileSizeMB", cfg.FallbackFileSizeMB),
		slog.Int64("uploadLimitMB", cfg.UploadLimitMB),
	)

	checkTools(logger, cfg.YtDlpPath, cfg.FFMPEGPath, cfg.FFProbePath)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var history apihttp.HistoryStore
	var disconnectMongo func()
	if cfg.MongoURI != "" {
		ctx, cancel := context.WithTimeout(rootCtx, 10*time.Second)
		mongoClient, err := mongorepo.Connect(ctx, cfg.MongoURI, options.Client().SetMonitor(otelmongo.NewMonitor()))
		if err != nil {
			logger.Error("mongo connect failed", slog.String("error", err.Error()))
			cancel()
			os.Exit(1)
		}
		if err := mongoClient.Ping(ctx, readpref.Primary()); err != nil {
			logger.Error("mongo ping failed", slog.String("error", err.Error()))
			cancel()
			os.Exit(1)
		}
		repo := mongorepo.NewHistoryRepository(mongoClient, cfg.MongoDatabase)
		if err := repo.EnsureIndexes(ctx); err != nil {
			logger.Warn("mongo ensure indexes failed", slog.String("error", err.Error()))
		}
		cancel()
		history = repo
		disconnectMongo = func() {
			if err := mongoClient.Disconnect(context.Background()); err != nil {
				logger.Warn("mongo disconnect error", slog.String("error", err.Error()))
			}
		}
	} else {
		logger.Info("no MONGO_URI configured, keeping download history in memory")
		history = memory.NewHistoryStore(0)
	}

	transcoder := ffmpeg.New(cfg.FFMPEGPath, cfg.UploadLimitMB)
	pipeline := download.NewPipeline(
		download.PipelineConfig{
			MaxFileSizeMB:      cfg.MaxFileSizeMB,
			FallbackFileSizeMB: cfg.FallbackFileSizeMB,
			UploadLimitMB:      cfg.UploadLimitMB,
		},
		extract.New(cfg.YtDlpPath),
		ffprobe.New(cfg.FFProbePath),
		transcoder,
		transcoder,
		logger,
	)

	manager := download.NewManager(pipeline, logger)
	manager.Start(rootCtx)

	// Task workspaces live under the system temp dir; stop admitting work
	// when that filesystem runs low.
	diskGuard := &download.DiskGuard{
		Dir:          os.TempDir(),
		MinFreeBytes: cfg.MinFreeDiskMB * 1_000_000,
		Logger:       logger,
	}
	go diskGuard.Run(rootCtx)

	handler := apihttp.NewServer(manager,
		apihttp.WithLogger(logger),
		apihttp.WithAllowlist(urlinfo.NewAllowlist(cfg.Allowlist)),
		apihttp.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		apihttp.WithHistory(history),
		apihttp.WithDiskStatus(diskGuard),
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0, // downloads can take minutes
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("server started", slog.String("addr", cfg.HTTPAddr))

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Let the in-flight task finish; queued tasks are abandoned.
	manager.Stop()
	select {
	case <-manager.Done():
	case <-shutdownCtx.Done():
		logger.Warn("worker did not stop in time, abandoning")
	}

	handler.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", slog.String("error", err.Error()))
	}
	if disconnectMongo != nil {
		disconnectMongo()
	}

	logger.Info("server stopped")
}

// checkTools verifies the external binaries resolve. A missing tool is a
// warning, not a startup failure, so dry runs work without the toolchain.
func checkTools(logger *slog.Logger, tools ...string) {
	for _, tool := range tools {
		if _, err := exec.LookPath(tool); err != nil {
			logger.Warn("external tool not found in PATH", slog.String("tool", tool))
		}
	}
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

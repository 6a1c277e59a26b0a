package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/voxmood/emotion-audio-service/internal/analysis"
	"github.com/voxmood/emotion-audio-service/internal/capture"
	"github.com/voxmood/emotion-audio-service/internal/config"
	"github.com/voxmood/emotion-audio-service/internal/metrics"
	"github.com/voxmood/emotion-audio-service/internal/server"
	"github.com/voxmood/emotion-audio-service/internal/session"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "emotion-audio-service"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	autoStart := flag.Bool("start", false, "Start a recording session immediately")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.Float64("chunk_interval", cfg.Capture.ChunkInterval),
		slog.Int("min_chunk_bytes", cfg.Capture.MinChunkBytes),
		slog.Int("sample_rate", cfg.Capture.SampleRate),
		slog.String("analysis_endpoint", cfg.Analysis.Endpoint),
		slog.Float64("cool_down", cfg.Analysis.CoolDown),
		slog.Int("flush_threshold", cfg.Analysis.FlushThreshold),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Initialize the analysis backend client
	client, err := analysis.NewClient(analysis.Config{
		BaseURL: cfg.Analysis.Endpoint,
		APIKey:  cfg.Analysis.APIKey,
		Timeout: cfg.Analysis.GetTimeoutDuration(),
	})
	if err != nil {
		logger.Error("Failed to create analysis client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Analysis client initialized",
		slog.String("endpoint", cfg.Analysis.Endpoint),
	)

	// Microphone capture via the system default device
	deviceFactory := func(onSamples func([]float32)) (capture.Device, error) {
		return capture.NewMalgoDevice(cfg.Capture.SampleRate, onSamples)
	}

	// Initialize the session controller
	controller := session.NewController(logger, deviceFactory, client, session.Config{
		Recorder: capture.Config{
			ChunkInterval: cfg.Capture.GetChunkIntervalDuration(),
			SettleDelay:   cfg.Capture.GetSettleDelayDuration(),
			MinChunkBytes: cfg.Capture.MinChunkBytes,
			SampleRate:    cfg.Capture.SampleRate,
		},
		Queue: analysis.QueueConfig{
			MinChunkBytes:   cfg.Capture.MinChunkBytes,
			CoolDown:        cfg.Analysis.GetCoolDownDuration(),
			RescheduleDelay: cfg.Analysis.GetRescheduleDelayDuration(),
			FlushThreshold:  cfg.Analysis.FlushThreshold,
		},
		EndSessionTimeout: cfg.Analysis.GetEndSessionTimeoutDuration(),
	}, emotionLogger{logger: logger}, appMetrics)
	logger.Info("Session controller initialized")

	// Initialize HTTP API server (if enabled)
	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = server.NewHTTPServer(cfg.HTTP, logger, cfg, controller, appMetrics)
		logger.Info("HTTP API server initialized",
			slog.String("address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
		)

		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Optionally begin recording right away
	if *autoStart {
		sessionID, err := controller.Start()
		if err != nil {
			logger.Error("Failed to start recording session", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("Recording session started", slog.String("session_id", sessionID))
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...")

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server first (stop accepting new requests)
	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
		}
	}

	// End any active session and drain the analysis queue
	controller.Close()

	// Get final statistics
	stats := client.GetStats()
	logger.Info("Final analysis statistics",
		slog.Uint64("total_requests", stats.TotalRequests),
		slog.Uint64("failed_requests", stats.FailedRequests),
		slog.Float64("success_rate", stats.SuccessRate),
	)

	logger.Info("Service stopped")
}

// emotionLogger reports detection results and status transitions through the
// structured log, the primary surface when the HTTP API is disabled.
type emotionLogger struct {
	logger *slog.Logger
}

func (e emotionLogger) OnResult(result *analysis.Result) {
	e.logger.Info("Emotion detected",
		slog.String("session_id", result.SessionID),
		slog.String("emotion", string(result.Emotion)),
		slog.Float64("confidence", result.Confidence),
		slog.Duration("elapsed", result.Elapsed),
	)
}

func (e emotionLogger) OnStatusChange(status session.Status) {
	e.logger.Debug("Session status changed", slog.String("status", string(status)))
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}

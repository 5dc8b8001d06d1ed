package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"dispatch/cmd"
	httpin "dispatch/internal/adapters/in/http"
	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/telemetry"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
)

const shutdownTimeout = 15 * time.Second

func main() {
	configs := getConfigs()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics, shutdownMetrics, err := telemetry.InitMeterProvider(configs.ServiceVersion)
	if err != nil {
		log.Fatalf("Error starting metrics: %v", err)
	}
	shutdownTracing := func(context.Context) error { return nil }
	if configs.TracingEnabled {
		shutdownTracing, err = telemetry.InitTracerProvider(ctx, configs.OTLPEndpoint, configs.ServiceVersion)
		if err != nil {
			log.Fatalf("Error starting tracing: %v", err)
		}
	}

	app, err := cmd.NewCompositionRoot(ctx, configs, logger)
	if err != nil {
		log.Fatalf("Error building application: %v", err)
	}

	manager := app.NewJobManager()
	if err := manager.StartAll(); err != nil {
		log.Fatalf("Error starting jobs: %v", err)
	}

	server := startWebServer(ctx, app, configs.HTTPPort, metrics, logger)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	manager.StopAll()
	if pending := app.PendingNotifications(); pending > 0 {
		logger.Warn("notifications left unsent, they are resent after restart", "pending", pending)
	}
	if err := app.Close(); err != nil {
		logger.Error("close failed", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("tracer shutdown failed", "error", err)
	}
	if err := shutdownMetrics(shutdownCtx); err != nil {
		logger.Error("meter shutdown failed", "error", err)
	}
}

func getConfigs() cmd.Config {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load(".env")

	config := cmd.Config{
		HTTPPort:               envOr("HTTP_PORT", "8080"),
		Storage:                envOr("STORAGE", cmd.StorageMemory),
		DBHost:                 os.Getenv("DB_HOST"),
		DBPort:                 envOr("DB_PORT", "5432"),
		DBUser:                 os.Getenv("DB_USER"),
		DBPassword:             os.Getenv("DB_PASSWORD"),
		DBName:                 os.Getenv("DB_NAME"),
		DBSslMode:              os.Getenv("DB_SSLMODE"),
		SQLitePath:             envOr("SQLITE_PATH", "dispatch.db"),
		NotifyTransport:        envOr("NOTIFY_TRANSPORT", cmd.TransportLog),
		KafkaBrokers:           os.Getenv("KAFKA_BROKERS"),
		KafkaNotificationTopic: os.Getenv("KAFKA_NOTIFICATION_TOPIC"),
		CommandTimeout:         durationEnv("COMMAND_TIMEOUT", commands.DefaultCommandTimeout),
		NotificationFlushSpec:  os.Getenv("NOTIFICATION_FLUSH_SPEC"),
		AnalyticsCatchUpSpec:   os.Getenv("ANALYTICS_CATCHUP_SPEC"),
		OTLPEndpoint:           os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TracingEnabled:         boolEnv("TRACING_ENABLED"),
		ServiceVersion:         envOr("SERVICE_VERSION", "dev"),
	}
	return config
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("Error parsing %s: %v", key, err)
	}
	return d
}

func boolEnv(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}

func startWebServer(ctx context.Context, app *cmd.CompositionRoot, port string, metrics http.Handler, logger *slog.Logger) *http.Server {
	doc, err := httpin.LoadOpenAPI(ctx)
	if err != nil {
		log.Fatalf("Error loading openapi document: %v", err)
	}
	validate, err := httpin.RequestValidator(doc)
	if err != nil {
		log.Fatalf("Error building request validator: %v", err)
	}

	e := httpin.NewEcho(httpin.NewServer(app.Handlers(), logger), httpin.Options{
		Metrics:  metrics,
		Validate: validate,
		Health:   app.Health,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%s", port),
		Handler:           httpin.Instrument(e),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Error serving http: %v", err)
		}
	}()
	return server
}

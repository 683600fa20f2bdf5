package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Metana-Inc/sessions-analytics-to-supabase/internal/analytics"
	"github.com/Metana-Inc/sessions-analytics-to-supabase/internal/auth"
	"github.com/Metana-Inc/sessions-analytics-to-supabase/internal/db"
	"github.com/Metana-Inc/sessions-analytics-to-supabase/internal/notifications"
	syncer "github.com/Metana-Inc/sessions-analytics-to-supabase/internal/sync"
	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Config holds the application configuration loaded from environment variables
type Config struct {
	Env             string // Environment (development/production)
	LogLevel        string // Log level (debug, info, warn, error)
	SentryDSN       string // Sentry DSN for error tracking
	PropertyID      string // GA4 property to report on
	RunLogPath      string // File that records one line per completed run
	SlackWebhookURL string // Optional webhook for run summaries
}

func main() {
	// Load .env files - .env.local takes priority for development
	godotenv.Load(".env.local", ".env")

	config := &Config{
		Env:             getEnvWithDefault("APP_ENV", "development"),
		LogLevel:        getEnvWithDefault("LOG_LEVEL", "info"),
		SentryDSN:       os.Getenv("SENTRY_DSN"),
		PropertyID:      os.Getenv("GA_PROPERTY_ID"),
		RunLogPath:      getEnvWithDefault("RUN_LOG_PATH", "logfile.log"),
		SlackWebhookURL: os.Getenv("SLACK_WEBHOOK_URL"),
	}

	setupLogging(config)

	// Initialise Sentry for error tracking
	if config.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              config.SentryDSN,
			Environment:      config.Env,
			AttachStacktrace: true,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialise Sentry")
		}
	} else {
		log.Warn().Msg("Sentry DSN not configured, error tracking disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config); err != nil {
		sentry.CaptureException(err)
		sentry.Flush(2 * time.Second)
		log.Fatal().Err(err).Msg("Sync run failed")
	}

	sentry.Flush(2 * time.Second)
}

// run wires the credential provider, analytics client and database
// together and performs one sync run.
func run(ctx context.Context, config *Config) error {
	if config.PropertyID == "" {
		return fmt.Errorf("GA_PROPERTY_ID environment variable is required")
	}

	// Connect to PostgreSQL
	pgDB, err := db.InitFromEnvWithRetry(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}
	defer pgDB.Close()
	log.Info().Msg("Connected to PostgreSQL database")

	// Obtain analytics credentials, running the browser flow if needed
	authConfig, err := auth.NewConfigFromEnv()
	if err != nil {
		return err
	}
	tokenSource, err := auth.TokenSource(ctx, authConfig)
	if err != nil {
		return fmt.Errorf("failed to obtain analytics credentials: %w", err)
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	httpClient.Timeout = 30 * time.Second
	fetcher := analytics.New(config.PropertyID, httpClient)

	runner := syncer.NewRunner(pgDB, fetcher)
	summary, runErr := runner.Run(ctx)

	if notifier := notifications.NewSlackNotifier(config.SlackWebhookURL); notifier != nil {
		if runErr != nil {
			notifier.NotifyRunFailed(ctx, summary, runErr)
		} else {
			notifier.NotifyRunComplete(ctx, summary)
		}
	}

	appendRunLog(config.RunLogPath, summary, runErr)

	return runErr
}

// appendRunLog adds one timestamped line to the local run log. Failure
// to write the line is logged but never fails the run.
func appendRunLog(path string, summary syncer.Summary, runErr error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to open run log file")
		return
	}
	defer f.Close()

	status := "completed"
	if runErr != nil {
		status = "failed"
	}
	line := fmt.Sprintf("Sync %s at %s (days_synced=%d days_failed=%d)\n",
		status, time.Now().Format(time.RFC3339), summary.DaysSynced, summary.DaysFailed)

	if _, err := f.WriteString(line); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to append to run log file")
	}
}

// getEnvWithDefault retrieves an environment variable or returns a default value if not set
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// setupLogging configures the logging system
func setupLogging(config *Config) {
	level, err := zerolog.ParseLevel(config.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Use console writer in development
	if config.Env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		log.Logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Str("service", "sessions-analytics-sync").
			Logger()
	}
}

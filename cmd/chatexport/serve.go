package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/chatexport/internal/api"
	"github.com/MikeSquared-Agency/chatexport/internal/capture"
	"github.com/MikeSquared-Agency/chatexport/internal/config"
	"github.com/MikeSquared-Agency/chatexport/internal/hermes"
	"github.com/MikeSquared-Agency/chatexport/internal/processor"
	"github.com/MikeSquared-Agency/chatexport/internal/slack"
	"github.com/MikeSquared-Agency/chatexport/internal/store"
	"github.com/MikeSquared-Agency/chatexport/internal/timeparse"
	"github.com/MikeSquared-Agency/chatexport/internal/transcript"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the capture service",
	Long: `Runs the HTTP API and the NATS batch consumer. Configuration is read
from the environment and an optional .env file.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	setupLogging(cfg.LogLevel, os.Stdout)

	slog.Info("chatexport starting", "port", cfg.Port, "version", version)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		slog.Warn("unknown timezone, using local time", "timezone", cfg.Timezone, "error", err)
	}
	policy, ok := cfg.Policy()
	if !ok {
		slog.Warn("unknown merge policy, using earliest", "policy", cfg.MergePolicy)
	}

	normalizer := transcript.NewNormalizer(timeparse.NewResolver(loc, nil))
	merger := transcript.NewMerger(policy)
	registry := capture.NewRegistry(normalizer, merger)

	// Database (optional, transcripts stay in memory without it)
	var transcripts processor.TranscriptStore
	if cfg.DatabaseURL != "" {
		db, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		transcripts = db
		slog.Info("database connected")
	} else {
		slog.Warn("DATABASE_URL not set, transcripts are kept in memory only")
	}

	// NATS/Hermes
	hermesClient, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer hermesClient.Close()
	slog.Info("NATS connected", "url", cfg.NatsURL)

	// Slack poster (optional)
	var notifier processor.Notifier
	if cfg.SlackToken != "" && cfg.SlackChannel != "" {
		notifier = slack.NewPoster(cfg.SlackToken, cfg.SlackChannel, slog.Default())
		slog.Info("slack poster ready", "channel", cfg.SlackChannel)
	} else {
		slog.Warn("slack not configured, export summaries are logged only")
	}

	proc := processor.New(registry, transcripts, hermesClient, notifier, slog.Default())

	if err := hermesClient.Subscribe(hermes.SubjectBatchCaptured, proc.HandleBatchCaptured); err != nil {
		return fmt.Errorf("subscribe to batch events: %w", err)
	}

	srv := api.NewServer(cfg.Port, cfg.APIToken, normalizer, merger, proc)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	if err := hermesClient.Publish("swarm.agent.chatexport.registered", map[string]any{
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"port":         cfg.Port,
		"merge_policy": policy.String(),
		"timezone":     loc.String(),
	}); err != nil {
		slog.Warn("failed to publish registration", "error", err)
	}

	slog.Info("chatexport ready", "port", cfg.Port, "merge_policy", policy.String())

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown", "error", err)
	}
	slog.Info("chatexport stopped")
	return nil
}

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/chatexport/internal/capture"
	"github.com/MikeSquared-Agency/chatexport/internal/config"
	"github.com/MikeSquared-Agency/chatexport/internal/export"
	"github.com/MikeSquared-Agency/chatexport/internal/timeparse"
	"github.com/MikeSquared-Agency/chatexport/internal/transcript"
)

var (
	exportOutput string
	exportFormat string
	exportTZ     string
	exportPolicy string
	exportFile   string
)

var exportCmd = &cobra.Command{
	Use:   "export [DIR]",
	Short: "Merge saved pass files into one transcript",
	Long: `Reads every *.jsonl record dump and *.html pane snapshot under DIR in
lexical order, treating each file as one scroll pass, and writes the merged
transcript as JSON or plain text.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write the transcript to this file instead of stdout")
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "output format: json or text")
	exportCmd.Flags().StringVar(&exportTZ, "tz", "", "timezone for wall-clock text (default CHATEXPORT_TIMEZONE)")
	exportCmd.Flags().StringVar(&exportPolicy, "policy", "", "duplicate survivor policy: earliest or complete")
	exportCmd.Flags().StringVar(&exportFile, "file", "", "process a single pass file instead of a directory")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	setupLogging(cfg.LogLevel, cmd.ErrOrStderr())

	if exportFormat != "json" && exportFormat != "text" {
		return fmt.Errorf("unknown format %q", exportFormat)
	}
	if len(args) == 0 && exportFile == "" {
		return errors.New("a pass directory or --file is required")
	}
	if exportTZ != "" {
		cfg.Timezone = exportTZ
	}
	if exportPolicy != "" {
		cfg.MergePolicy = exportPolicy
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	policy, ok := cfg.Policy()
	if !ok {
		return fmt.Errorf("unknown merge policy %q", cfg.MergePolicy)
	}

	normalizer := transcript.NewNormalizer(timeparse.NewResolver(loc, nil))
	session := capture.NewSession(uuid.New(), normalizer, transcript.NewMerger(policy))

	runCfg := capture.RunnerConfig{SingleFile: exportFile}
	if len(args) > 0 {
		runCfg.Dir = args[0]
	}
	passes, err := capture.NewRunner(runCfg, session, nil, slog.Default()).Run(cmd.Context())
	if err != nil {
		return err
	}

	failed := 0
	for _, p := range passes {
		if p.Error != "" {
			failed++
		}
	}
	msgs := session.Transcript()
	slog.Info("export merged",
		"session_id", session.ID,
		"passes", len(passes),
		"failed", failed,
		"messages", len(msgs),
		"merge_policy", policy.String(),
	)

	if exportOutput == "" {
		return writeTranscript(cmd.OutOrStdout(), session.ID, msgs)
	}

	f, err := os.Create(exportOutput)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := writeTranscript(f, session.ID, msgs); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	cmd.PrintErrf("wrote %d messages to %s\n", len(msgs), exportOutput)
	return nil
}

func writeTranscript(w io.Writer, id uuid.UUID, msgs []transcript.NormalizedMessage) error {
	if exportFormat == "text" {
		return export.WriteText(w, msgs)
	}
	return export.WriteJSON(w, export.NewDocument(id.String(), msgs, time.Now()))
}

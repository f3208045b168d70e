package capture

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/MikeSquared-Agency/chatexport/internal/snapshot"
	"github.com/MikeSquared-Agency/chatexport/internal/transcript"
)

// RunnerConfig holds the offline export configuration.
type RunnerConfig struct {
	Dir        string // directory of pass files, read in lexical order
	SingleFile string // process a single file only
}

// PassSummary describes one pass file read by the runner.
type PassSummary struct {
	Path    string `json:"path"`
	Source  Source `json:"source"`
	Records int    `json:"records"`
	Added   int    `json:"added"`
	Error   string `json:"error,omitempty"`
}

// Runner replays pass files from disk into a session: JSONL record dumps
// and saved HTML snapshots.
type Runner struct {
	cfg     RunnerConfig
	session *Session
	parser  *snapshot.Parser
	logger  *slog.Logger
}

// NewRunner creates an offline runner feeding the given session.
func NewRunner(cfg RunnerConfig, s *Session, p *snapshot.Parser, logger *slog.Logger) *Runner {
	if p == nil {
		p = snapshot.NewParser(snapshot.DefaultSelectors())
	}
	return &Runner{cfg: cfg, session: s, parser: p, logger: logger}
}

// Run ingests every discovered pass file. A file that cannot be read is
// recorded in its summary and skipped.
func (r *Runner) Run(ctx context.Context) ([]PassSummary, error) {
	files, err := r.discoverFiles()
	if err != nil {
		return nil, fmt.Errorf("discover files: %w", err)
	}
	r.logger.Info("pass files discovered", "files", len(files))

	var summaries []PassSummary
	for _, path := range files {
		select {
		case <-ctx.Done():
			r.logger.Info("export interrupted", "processed", len(summaries))
			return summaries, ctx.Err()
		default:
		}

		source := sourceForPath(path)
		ps := PassSummary{Path: path, Source: source}

		records, err := r.readPass(path, source)
		if err != nil {
			r.logger.Warn("failed to read pass file", "path", path, "error", err)
			ps.Error = err.Error()
			summaries = append(summaries, ps)
			continue
		}

		stats := r.session.Ingest(source, records)
		ps.Records = stats.Records
		ps.Added = stats.Added
		summaries = append(summaries, ps)

		r.logger.Info("pass ingested",
			"path", path,
			"source", source,
			"records", stats.Records,
			"added", stats.Added,
			"total", stats.Total,
		)
	}

	return summaries, nil
}

func (r *Runner) readPass(path string, source Source) ([]transcript.RawRecord, error) {
	if source == SourceSnapshot {
		return r.parser.ParseFile(path)
	}
	return ReadRecordsFile(path)
}

func (r *Runner) discoverFiles() ([]string, error) {
	if r.cfg.SingleFile != "" {
		if _, err := os.Stat(r.cfg.SingleFile); err != nil {
			return nil, fmt.Errorf("single file not found: %s", r.cfg.SingleFile)
		}
		return []string{r.cfg.SingleFile}, nil
	}

	info, err := os.Stat(r.cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("stat dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", r.cfg.Dir)
	}

	var files []string
	err = filepath.Walk(r.cfg.Dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip errors
		}
		if !info.IsDir() && isPassFile(info.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		r.logger.Warn("error walking pass dir", "dir", r.cfg.Dir, "error", err)
	}

	sort.Strings(files)
	return files, nil
}

func isPassFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jsonl", ".html", ".htm":
		return true
	}
	return false
}

func sourceForPath(path string) Source {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return SourceSnapshot
	}
	return SourceFile
}

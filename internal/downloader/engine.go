package downloader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"retreivr/internal/config"
	"retreivr/internal/consts"
	"retreivr/internal/entity"
	"retreivr/internal/errs"
	"retreivr/internal/observability"
)

// Engine retries extraction across the attempt plan until one attempt leaves
// a finished media file in the scratch directory.
type Engine struct {
	log       *slog.Logger
	cfg       *config.Config
	attempter Attempter
	metrics   *observability.Metrics
}

// NewEngine creates the fallback engine around an attempt runner.
func NewEngine(log *slog.Logger, cfg *config.Config, attempter Attempter, metrics *observability.Metrics) *Engine {
	return &Engine{
		log:       log.With(slog.String("package", "downloader")),
		cfg:       cfg,
		attempter: attempter,
		metrics:   metrics,
	}
}

// Download produces a path to a finished local media file for the item, or
// errs.ErrExtractionExhausted once the whole plan has been consumed without
// success. The scratch directory is wiped before every individual attempt: a
// frozen or undersized partial is evidence of an active block, so a fresh
// attempt must never resume one.
func (e *Engine) Download(ctx context.Context, item *entity.Item, scratchDir string) (string, error) {
	log := e.log.With(slog.String("video_id", item.ID))
	plan := BuildPlan(e.cfg.Run.Strictness, e.cfg.Run.YTdlp.Format)

	for pass := 1; pass <= consts.MaxPasses; pass++ {
		log.InfoContext(ctx, "download pass",
			slog.Int("pass", pass), slog.Int("max_passes", consts.MaxPasses))

		for _, step := range plan.Steps {
			stepLog := log.With(slog.String("client", step.Label()))

			for retry := range consts.StepRetries {
				if err := ctx.Err(); err != nil {
					return "", fmt.Errorf("download cancelled: %w", err)
				}

				if IsPartialStalled(scratchDir, item.ID) {
					stepLog.WarnContext(ctx, "stalled partial detected, wiping scratch dir")
					e.metrics.StalledPartials.Inc()
				}

				if err := resetScratch(scratchDir); err != nil {
					return "", fmt.Errorf("reset scratch dir: %w", err)
				}

				e.metrics.ExtractionAttempts.WithLabelValues(step.Label()).Inc()

				err := e.attempter.Attempt(ctx, item.URL, scratchDir, step)
				if err != nil {
					stepLog.WarnContext(ctx, "extraction attempt failed",
						slog.Int("retry", retry+1), slog.Any("error", err))

					continue
				}

				path, err := findOutput(scratchDir, item.ID)
				if err != nil {
					stepLog.WarnContext(ctx, "extractor produced no usable output",
						slog.Int("retry", retry+1))

					continue
				}

				e.metrics.ExtractionSuccesses.WithLabelValues(step.Label()).Inc()
				stepLog.InfoContext(ctx, "download succeeded",
					slog.String("file", filepath.Base(path)))

				return path, nil
			}
		}

		log.WarnContext(ctx, "all extractors failed this pass", slog.Int("pass", pass))
	}

	return "", fmt.Errorf("%w: %s", errs.ErrExtractionExhausted, item.ID)
}

func resetScratch(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}

	return os.MkdirAll(dir, 0o755)
}

// findOutput scans the scratch directory for a finished file named with the
// video's identifier, preferring the webm container over the mp4 fallback.
// The first match per extension wins; the engine does not keep searching for
// a better result.
func findOutput(scratchDir, videoID string) (string, error) {
	entries, err := os.ReadDir(scratchDir)
	if err != nil {
		return "", fmt.Errorf("scan scratch dir: %w", err)
	}

	for _, ext := range []string{consts.ExtWebM, consts.ExtMP4} {
		suffix := "." + ext
		for _, entry := range entries {
			name := entry.Name()
			if strings.HasPrefix(name, videoID) && strings.HasSuffix(name, suffix) {
				return filepath.Join(scratchDir, name), nil
			}
		}
	}

	return "", fmt.Errorf("%w: %s", errs.ErrNoOutput, videoID)
}

// Package copier relocates finished files to their destination on background
// workers so the next item's extraction can start immediately. All workers
// dispatched during a run are joined before the run concludes.
package copier

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"retreivr/internal/observability"
)

// Callback receives the copy outcome exactly once per dispatched item.
type Callback func(ok bool, dst string)

// Worker dispatches and joins background copies.
type Worker struct {
	log     *slog.Logger
	metrics *observability.Metrics
	wg      sync.WaitGroup
}

// New creates a copy worker pool. There is no cap on outstanding copies;
// extraction dominates wall-clock time, so the outstanding count stays small.
func New(log *slog.Logger, metrics *observability.Metrics) *Worker {
	return &Worker{
		log:     log.With(slog.String("package", "copier")),
		metrics: metrics,
	}
}

// Dispatch starts the relocation on its own goroutine and returns
// immediately. The callback runs on that goroutine once the copy finishes.
func (w *Worker) Dispatch(ctx context.Context, src, dst string, callback Callback) {
	w.wg.Add(1)
	w.metrics.CopiesInFlight.Inc()

	go func() {
		defer w.wg.Done()
		defer w.metrics.CopiesInFlight.Dec()

		err := copyFile(src, dst)
		if err != nil {
			w.log.ErrorContext(ctx, "copy failed",
				slog.String("src", src), slog.String("dst", dst), slog.Any("error", err))
			w.metrics.CopyFailures.Inc()
		}

		callback(err == nil, dst)
	}()
}

// Join blocks until every dispatched copy has finished and its callback has
// returned.
func (w *Worker) Join() {
	w.wg.Wait()
}

// copyFile creates the destination tree, copies bytes and preserves the
// source's modification time.
func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create destination dir: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)

		return fmt.Errorf("copy bytes: %w", err)
	}

	if err := out.Close(); err != nil {
		_ = os.Remove(dst)

		return fmt.Errorf("close destination: %w", err)
	}

	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("preserve mtime: %w", err)
	}

	return nil
}

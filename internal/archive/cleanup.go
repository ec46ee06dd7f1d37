package archive

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
)

// purgeStaleScratch removes leftovers from previous runs. The run lock is
// held, so anything under the temp-downloads root or the thumbs directory at
// run start is an orphan from a crashed or killed process.
func (c *Coordinator) purgeStaleScratch(ctx context.Context, log *slog.Logger) {
	log = log.With(slog.String("action", "purge_stale_scratch"))

	removed := 0

	for _, root := range []string{c.cfg.Dir.TempDownloads, c.cfg.Dir.Thumbs} {
		entries, err := os.ReadDir(root)
		if err != nil {
			if !os.IsNotExist(err) {
				log.WarnContext(ctx, "scratch root unreadable",
					slog.String("root", root), slog.Any("error", err))
			}

			continue
		}

		for _, entry := range entries {
			path := filepath.Join(root, entry.Name())
			if err := os.RemoveAll(path); err != nil {
				log.WarnContext(ctx, "stale scratch removal failed",
					slog.String("path", path), slog.Any("error", err))

				continue
			}

			removed++
		}
	}

	if removed > 0 {
		log.InfoContext(ctx, "stale scratch removed", slog.Int("count", removed))
	}
}

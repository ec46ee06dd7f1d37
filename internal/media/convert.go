package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"retreivr/internal/consts"
	"retreivr/internal/errs"
)

// Converter repackages a finished file into a different container via stream
// copy. Conversions known to produce broken files are refused.
type Converter struct {
	log    *slog.Logger
	runner Runner
}

// NewConverter creates a container converter.
func NewConverter(log *slog.Logger, runner Runner) *Converter {
	return &Converter{
		log:    log.With(slog.String("package", "media")),
		runner: runner,
	}
}

// Convert produces a file with the desired extension and returns its path.
// Matching extensions are a no-op. An mp4 source with a webm target is
// refused: a stream copy across those containers commonly yields an invalid
// file. On success the original is deleted; on failure it is retained and
// returned unchanged. Conversion failure is never fatal.
func (c *Converter) Convert(ctx context.Context, path, desiredExt string) (string, error) {
	if desiredExt == "" {
		return path, nil
	}

	currentExt := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if currentExt == desiredExt {
		return path, nil
	}

	if currentExt == consts.ExtMP4 && desiredExt == consts.ExtWebM {
		c.log.WarnContext(ctx, "skipping mp4 to webm container copy to avoid invalid file",
			slog.String("path", filepath.Base(path)))

		return path, fmt.Errorf("%w: %s to %s", errs.ErrConversionRefused, currentExt, desiredExt)
	}

	converted := strings.TrimSuffix(path, filepath.Ext(path)) + "." + desiredExt

	if err := c.runner.Run(ctx, "-y", "-i", path, "-c", "copy", converted); err != nil {
		_ = os.Remove(converted)

		return path, fmt.Errorf("convert to %s: %w", desiredExt, err)
	}

	if err := os.Remove(path); err != nil {
		c.log.WarnContext(ctx, "could not remove pre-conversion file", slog.Any("error", err))
	}

	c.log.InfoContext(ctx, "container converted",
		slog.String("from", currentExt), slog.String("to", desiredExt))

	return converted, nil
}

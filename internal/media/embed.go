package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"retreivr/internal/consts"
	"retreivr/internal/entity"
	"retreivr/internal/errs"
	"retreivr/pkg/fsname"
)

// Embedder rewrites a finished media file in place with embedded tags and,
// when available, a cover image. The container format is preserved; streams
// are copied without re-encoding.
type Embedder struct {
	log       *slog.Logger
	runner    Runner
	client    *http.Client
	thumbsDir string
}

// NewEmbedder creates a metadata embedder.
func NewEmbedder(log *slog.Logger, runner Runner, thumbsDir string) *Embedder {
	return &Embedder{
		log:       log.With(slog.String("package", "media")),
		runner:    runner,
		client:    &http.Client{Timeout: consts.ThumbnailTimeout},
		thumbsDir: thumbsDir,
	}
}

// Embed tags the file in place. Any failure leaves the original untouched and
// is reported for logging only; embedding is never fatal to the run.
func (e *Embedder) Embed(ctx context.Context, path string, item *entity.Item) error {
	log := e.log.With(slog.String("video_id", item.ID))

	thumbPath := e.fetchThumbnail(ctx, item)
	defer func() {
		if thumbPath != "" {
			_ = os.Remove(thumbPath)
		}
	}()

	ext := filepath.Ext(path)
	if ext == "" {
		ext = "." + consts.ExtWebM
	}

	// The tagged copy lives in the same directory as the original so the
	// final replace is an atomic same-filesystem rename.
	tmp, err := os.CreateTemp(filepath.Dir(path), "*.tagged"+ext)
	if err != nil {
		return fmt.Errorf("%w: create temp: %w", errs.ErrEmbedFailed, err)
	}

	tmpPath := tmp.Name()
	_ = tmp.Close()

	args := buildEmbedArgs(path, tmpPath, thumbPath, item)

	if err := e.runner.Run(ctx, args...); err != nil {
		_ = os.Remove(tmpPath)

		return fmt.Errorf("%w: %w", errs.ErrEmbedFailed, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)

		return fmt.Errorf("%w: replace original: %w", errs.ErrEmbedFailed, err)
	}

	log.InfoContext(ctx, "metadata embedded")

	return nil
}

// buildEmbedArgs assembles the ffmpeg invocation: optional cover attachment,
// metadata key/value pairs, stream copy into the temp output.
func buildEmbedArgs(input, output, thumbPath string, item *entity.Item) []string {
	args := []string{"-y", "-i", input}

	if thumbPath != "" {
		args = append(args,
			"-attach", thumbPath,
			"-metadata:s:t", "mimetype=image/jpeg",
			"-metadata:s:t", "filename=cover.jpg",
		)
	}

	title := item.Title
	if title == "" {
		title = item.ID
	}
	args = append(args, "-metadata", "title="+title)

	if item.Channel != "" {
		args = append(args, "-metadata", "artist="+item.Channel)
	}

	if date := fsname.NormalizeDate(item.UploadDate); date != "" {
		args = append(args, "-metadata", "date="+date)
	}

	if item.Description != "" {
		args = append(args, "-metadata", "description="+item.Description)
	}

	if len(item.Tags) > 0 {
		args = append(args, "-metadata", "keywords="+strings.Join(item.Tags, ", "))
	}

	args = append(args, "-metadata", fmt.Sprintf("comment=YouTubeID=%s URL=%s", item.ID, item.URL))

	return append(args, "-c", "copy", output)
}

// fetchThumbnail downloads the cover image to the thumbs directory. Best
// effort only: any failure returns "" and the absence of a cover is not an
// error.
func (e *Embedder) fetchThumbnail(ctx context.Context, item *entity.Item) string {
	if item.ThumbnailURL == "" {
		return ""
	}

	log := e.log.With(slog.String("video_id", item.ID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.ThumbnailURL, nil)
	if err != nil {
		log.WarnContext(ctx, "thumbnail request build failed", slog.Any("error", err))

		return ""
	}

	resp, err := e.client.Do(req)
	if err != nil {
		log.WarnContext(ctx, "thumbnail download failed", slog.Any("error", err))

		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.WarnContext(ctx, "thumbnail download failed", slog.Int("status", resp.StatusCode))

		return ""
	}

	if err := os.MkdirAll(e.thumbsDir, 0o755); err != nil {
		return ""
	}

	path := filepath.Join(e.thumbsDir, item.ID+".jpg")

	file, err := os.Create(path)
	if err != nil {
		return ""
	}
	defer file.Close()

	if _, err := io.Copy(file, resp.Body); err != nil {
		_ = os.Remove(path)

		return ""
	}

	return path
}

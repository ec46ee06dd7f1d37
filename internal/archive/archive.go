// Package archive sequences one archiver run: it walks the configured
// playlists, gates every item on the dedup ledger, drives extraction and
// post-processing, hands finished files to the background copier and joins
// every outstanding copy before the summary goes out.
//
// Extraction is strictly sequential across items; only the destination copy
// overlaps with the next item's work.
package archive

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"retreivr/internal/config"
	"retreivr/internal/copier"
	"retreivr/internal/entity"
	"retreivr/internal/errs"
	"retreivr/internal/ledger"
	"retreivr/internal/notify"
	"retreivr/internal/observability"
	"retreivr/internal/runlock"
	"retreivr/internal/source"
	"retreivr/pkg/fsname"
)

// Downloader produces a finished local media file for an item.
type Downloader interface {
	Download(ctx context.Context, item *entity.Item, scratchDir string) (string, error)
}

// Embedder tags a finished file in place.
type Embedder interface {
	Embed(ctx context.Context, path string, item *entity.Item) error
}

// Converter repackages a finished file into the desired container.
type Converter interface {
	Convert(ctx context.Context, path, desiredExt string) (string, error)
}

// Copier relocates finished files on background workers.
type Copier interface {
	Dispatch(ctx context.Context, src, dst string, callback copier.Callback)
	Join()
}

// Coordinator runs the archiver end to end.
type Coordinator struct {
	log        *slog.Logger
	cfg        *config.Config
	downloader Downloader
	embedder   Embedder
	converter  Converter
	copier     Copier
	clients    map[string]source.Client
	notifier   notify.Notifier
	metrics    *observability.Metrics
}

// New wires the run coordinator.
func New(
	log *slog.Logger,
	cfg *config.Config,
	downloader Downloader,
	embedder Embedder,
	converter Converter,
	cp Copier,
	clients map[string]source.Client,
	notifier notify.Notifier,
	metrics *observability.Metrics,
) *Coordinator {
	return &Coordinator{
		log:        log.With(slog.String("package", "archive")),
		cfg:        cfg,
		downloader: downloader,
		embedder:   embedder,
		converter:  converter,
		copier:     cp,
		clients:    clients,
		notifier:   notifier,
		metrics:    metrics,
	}
}

// Run executes one full archiver run. A run lock already held by another
// process skips the run silently; every other error class is contained to
// the playlist or item it hit.
func (c *Coordinator) Run(ctx context.Context) error {
	lock, err := runlock.New(c.cfg.Dir.LockPath)
	if err != nil {
		return err
	}

	if err := lock.Acquire(); err != nil {
		if errors.Is(err, errs.ErrLockHeld) {
			c.log.InfoContext(ctx, "another run is in progress, skipping")

			return nil
		}

		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			c.log.Warn("run lock release failed", slog.Any("error", err))
		}
	}()

	log := c.log.With(slog.String("run_id", uuid.NewString()[:8]))
	log.InfoContext(ctx, "run started", slog.Int("playlists", len(c.cfg.Run.Playlists)))

	c.purgeStaleScratch(ctx, log)

	led, err := ledger.Open(c.cfg.Dir.DBPath)
	if err != nil {
		return err
	}
	defer led.Close()

	summary := &Summary{}
	unusable := make(map[string]bool)

	for _, pl := range c.cfg.Run.Playlists {
		if err := ctx.Err(); err != nil {
			break
		}

		c.runPlaylist(ctx, log, pl, led, summary, unusable)
	}

	c.copier.Join()

	succeeded, failed := summary.Counts()
	log.InfoContext(ctx, "run finished",
		slog.Int("archived", succeeded), slog.Int("failed", failed))

	if err := c.notifier.Notify(ctx, summary.Format()); err != nil {
		log.Warn("summary notification failed", slog.Any("error", err))
	}

	return nil
}

// runPlaylist archives every pending item of one playlist. Source failures
// are contained here: a playlist that cannot be listed is recorded as a
// failure and the run moves on.
func (c *Coordinator) runPlaylist(
	ctx context.Context,
	log *slog.Logger,
	pl config.Playlist,
	led *ledger.Ledger,
	summary *Summary,
	unusable map[string]bool,
) {
	log = log.With(slog.String("playlist_id", pl.PlaylistID))

	if unusable[pl.Account] {
		log.WarnContext(ctx, "account marked unusable, skipping playlist",
			slog.String("account", pl.Account))
		summary.AddFailure("playlist " + pl.PlaylistID)

		return
	}

	client, ok := c.clients[pl.Account]
	if !ok {
		log.ErrorContext(ctx, "no source client for account",
			slog.String("account", pl.Account))
		summary.AddFailure("playlist " + pl.PlaylistID)

		return
	}

	entries, err := client.ListItems(ctx, pl.PlaylistID)
	if err != nil {
		if errors.Is(err, errs.ErrAuth) {
			unusable[pl.Account] = true
		}

		log.ErrorContext(ctx, "playlist listing failed", slog.Any("error", err))
		summary.AddFailure("playlist " + pl.PlaylistID)

		return
	}

	log.InfoContext(ctx, "playlist listed", slog.Int("entries", len(entries)))

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return
		}

		has, err := led.Has(ctx, entry.VideoID)
		if err != nil {
			log.Warn("ledger lookup failed, treating as pending",
				slog.String("video_id", entry.VideoID), slog.Any("error", err))
		}

		if has {
			c.metrics.ItemsSkipped.Inc()

			continue
		}

		item, err := client.VideoMetadata(ctx, entry.VideoID)
		if err != nil {
			if errors.Is(err, errs.ErrAuth) {
				unusable[pl.Account] = true
				log.ErrorContext(ctx, "account authorization failed, abandoning playlist",
					slog.Any("error", err))
				summary.AddFailure("playlist " + pl.PlaylistID)

				return
			}

			log.WarnContext(ctx, "metadata fetch failed, skipping item",
				slog.String("video_id", entry.VideoID), slog.Any("error", err))

			continue
		}

		item.PlaylistID = pl.PlaylistID
		item.PlaylistEntryID = entry.PlaylistEntryID

		c.runItem(ctx, log, pl, client, item, summary)
	}
}

// runItem takes one item from extraction through copy dispatch. Only the
// extraction outcome is known when it returns; the copy callback finishes
// the item later.
func (c *Coordinator) runItem(
	ctx context.Context,
	log *slog.Logger,
	pl config.Playlist,
	client source.Client,
	item *entity.Item,
	summary *Summary,
) {
	log = log.With(slog.String("video_id", item.ID))
	log.InfoContext(ctx, "archiving item", slog.Any("item", item))

	done := c.metrics.ItemTimer()
	name := fsname.Pretty(item.Title, item.Channel, item.UploadDate)
	scratch := filepath.Join(c.cfg.Dir.TempDownloads, item.ID)

	path, err := c.downloader.Download(ctx, item, scratch)
	if err != nil {
		log.ErrorContext(ctx, "extraction failed permanently", slog.Any("error", err))
		summary.AddFailure(name)
		c.metrics.ItemsFailed.Inc()
		done()

		if err := os.RemoveAll(scratch); err != nil {
			log.Warn("scratch dir cleanup failed", slog.Any("error", err))
		}

		return
	}

	if err := c.embedder.Embed(ctx, path, item); err != nil {
		log.WarnContext(ctx, "metadata embedding failed, keeping untagged file",
			slog.Any("error", err))
		c.metrics.EmbedFailures.Inc()
	}

	path, err = c.converter.Convert(ctx, path, c.cfg.Run.FinalFormat)
	if err != nil {
		if errors.Is(err, errs.ErrConversionRefused) {
			c.metrics.ConversionsRefused.Inc()
		} else {
			log.WarnContext(ctx, "container conversion failed, keeping original",
				slog.Any("error", err))
			c.metrics.ConversionFailures.Inc()
		}
	}

	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	dst := filepath.Join(pl.Folder, destName(c.cfg.Run.FilenameTemplate, item, ext))

	c.copier.Dispatch(ctx, path, dst, func(ok bool, dst string) {
		defer func() {
			if err := os.RemoveAll(scratch); err != nil {
				log.Warn("scratch dir cleanup failed", slog.Any("error", err))
			}

			done()
		}()

		if !ok {
			summary.AddFailure(name)
			c.metrics.ItemsFailed.Inc()

			return
		}

		summary.AddSuccess(name)
		c.metrics.ItemsSucceeded.Inc()
		c.recordArchived(ctx, log, pl, client, item, dst)
	})
}

// recordArchived persists the download record after a successful copy and,
// when requested, removes the archived entry from the playlist. It opens its
// own ledger connection: completions run concurrently and must never contend
// on a shared one.
func (c *Coordinator) recordArchived(
	ctx context.Context,
	log *slog.Logger,
	pl config.Playlist,
	client source.Client,
	item *entity.Item,
	dst string,
) {
	led, err := ledger.Open(c.cfg.Dir.DBPath)
	if err != nil {
		log.ErrorContext(ctx, "ledger open failed, item will be retried next run",
			slog.Any("error", err))
		c.metrics.LedgerWriteFailures.Inc()

		return
	}
	defer led.Close()

	err = led.Insert(ctx, ledger.Record{
		VideoID:      item.ID,
		PlaylistID:   item.PlaylistID,
		DownloadedAt: time.Now().UTC(),
		Filepath:     dst,
	})
	if err != nil {
		log.ErrorContext(ctx, "ledger insert failed, item may be re-downloaded",
			slog.Any("error", err))
		c.metrics.LedgerWriteFailures.Inc()
	}

	if pl.RemoveAfterDownload && item.PlaylistEntryID != "" {
		if err := client.RemoveEntry(ctx, item.PlaylistEntryID); err != nil {
			log.WarnContext(ctx, "playlist entry removal failed", slog.Any("error", err))
		}
	}
}

// destName renders the destination file name. The template recognizes the
// %(title)s, %(uploader)s, %(upload_date)s and %(ext)s placeholders; without
// one the pretty display name plus a short identifier suffix keeps names
// unique across same-titled uploads.
func destName(template string, item *entity.Item, ext string) string {
	if template == "" {
		id := item.ID
		if len(id) > 8 {
			id = id[:8]
		}

		return fsname.Pretty(item.Title, item.Channel, item.UploadDate) + "_" + id + "." + ext
	}

	return strings.NewReplacer(
		"%(title)s", fsname.Sanitize(item.Title),
		"%(uploader)s", fsname.Sanitize(item.Channel),
		"%(upload_date)s", item.UploadDate,
		"%(ext)s", ext,
	).Replace(template)
}

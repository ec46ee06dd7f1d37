package archive

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gofrs/flock"

	"retreivr/internal/config"
	"retreivr/internal/copier"
	"retreivr/internal/entity"
	"retreivr/internal/errs"
	"retreivr/internal/ledger"
	"retreivr/internal/observability"
	"retreivr/internal/source"
)

// Prometheus collectors register on the default registry, so the metrics are
// created once for the whole test binary.
var testMetrics = observability.New()

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type fakeDownloader struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (d *fakeDownloader) Download(_ context.Context, item *entity.Item, scratchDir string) (string, error) {
	d.mu.Lock()
	d.calls = append(d.calls, item.ID)
	d.mu.Unlock()

	if d.err != nil {
		return "", d.err
	}

	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(scratchDir, item.ID+".webm")
	if err := os.WriteFile(path, []byte("media-bytes"), 0o644); err != nil {
		return "", err
	}

	return path, nil
}

func (d *fakeDownloader) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.calls)
}

type nopEmbedder struct{}

func (nopEmbedder) Embed(context.Context, string, *entity.Item) error { return nil }

type nopConverter struct{}

func (nopConverter) Convert(_ context.Context, path, _ string) (string, error) { return path, nil }

type fakeClient struct {
	mu        sync.Mutex
	entries   []entity.Entry
	listErr   error
	listCalls int
	meta      map[string]entity.Item
	removed   []string
}

func (c *fakeClient) ListItems(context.Context, string) ([]entity.Entry, error) {
	c.mu.Lock()
	c.listCalls++
	c.mu.Unlock()

	if c.listErr != nil {
		return nil, c.listErr
	}

	return c.entries, nil
}

func (c *fakeClient) VideoMetadata(_ context.Context, videoID string) (*entity.Item, error) {
	item, ok := c.meta[videoID]
	if !ok {
		return nil, errs.ErrNoMetadata
	}

	return &item, nil
}

func (c *fakeClient) RemoveEntry(_ context.Context, entryID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removed = append(c.removed, entryID)

	return nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *fakeNotifier) Notify(_ context.Context, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)

	return nil
}

func (n *fakeNotifier) last(t *testing.T) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()

	if len(n.messages) == 0 {
		t.Fatal("no notification sent")
	}

	return n.messages[len(n.messages)-1]
}

func testConfig(t *testing.T, playlists []config.Playlist) *config.Config {
	t.Helper()

	data := t.TempDir()
	cfg := &config.Config{}
	cfg.Dir.TempDownloads = filepath.Join(data, "temp_downloads")
	cfg.Dir.DBPath = filepath.Join(data, "db.sqlite")
	cfg.Dir.LockPath = filepath.Join(data, "run.lock")
	cfg.Run.Playlists = playlists

	return cfg
}

func testItem(id string) entity.Item {
	return entity.Item{
		ID:         id,
		Title:      "Title " + id,
		Channel:    "Channel",
		UploadDate: "20230115",
		URL:        "https://example.invalid/watch?v=" + id,
	}
}

func clientsMap(c *fakeClient) map[string]source.Client {
	return map[string]source.Client{"main": c}
}

func clientsFor(m map[string]*fakeClient) map[string]source.Client {
	out := make(map[string]source.Client, len(m))
	for name, c := range m {
		out[name] = c
	}

	return out
}

func TestRunArchivesPendingItems(t *testing.T) {
	dest := t.TempDir()
	cfg := testConfig(t, []config.Playlist{
		{PlaylistID: "PL1", Folder: dest, Account: "main"},
	})

	client := &fakeClient{
		entries: []entity.Entry{{VideoID: "vid00000001"}, {VideoID: "vid00000002"}},
		meta: map[string]entity.Item{
			"vid00000001": testItem("vid00000001"),
			"vid00000002": testItem("vid00000002"),
		},
	}
	dl := &fakeDownloader{}
	notifier := &fakeNotifier{}

	coord := New(discardLogger(), cfg, dl, nopEmbedder{}, nopConverter{},
		copier.New(discardLogger(), testMetrics), clientsMap(client), notifier, testMetrics)

	if err := coord.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	led, err := ledger.Open(cfg.Dir.DBPath)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	defer led.Close()

	count, err := led.Count(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("ledger rows = %d; want 2", count)
	}

	message := notifier.last(t)
	if !strings.Contains(message, "2 archived, 0 failed") {
		t.Errorf("summary message = %q", message)
	}
	if !strings.Contains(message, "Title vid00000001 - Channel (01-2023)") {
		t.Errorf("summary missing display name: %q", message)
	}

	want := filepath.Join(dest, "Title vid00000001 - Channel (01-2023)_vid00000.webm")
	if _, err := os.Stat(want); err != nil {
		t.Errorf("destination file missing: %v", err)
	}

	for _, id := range []string{"vid00000001", "vid00000002"} {
		scratch := filepath.Join(cfg.Dir.TempDownloads, id)
		if _, err := os.Stat(scratch); !os.IsNotExist(err) {
			t.Errorf("scratch dir %s not purged", scratch)
		}
	}
}

func TestRunSkipsLedgeredItems(t *testing.T) {
	cfg := testConfig(t, []config.Playlist{
		{PlaylistID: "PL1", Folder: t.TempDir(), Account: "main"},
	})

	seedLedger(t, cfg.Dir.DBPath, "vid00000001")

	client := &fakeClient{
		entries: []entity.Entry{{VideoID: "vid00000001"}, {VideoID: "vid00000002"}},
		meta: map[string]entity.Item{
			"vid00000001": testItem("vid00000001"),
			"vid00000002": testItem("vid00000002"),
		},
	}
	dl := &fakeDownloader{}
	notifier := &fakeNotifier{}

	coord := New(discardLogger(), cfg, dl, nopEmbedder{}, nopConverter{},
		copier.New(discardLogger(), testMetrics), clientsMap(client), notifier, testMetrics)

	if err := coord.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	dl.mu.Lock()
	defer dl.mu.Unlock()
	if len(dl.calls) != 1 || dl.calls[0] != "vid00000002" {
		t.Errorf("download calls = %v; want only vid00000002", dl.calls)
	}
}

func TestRunExhaustedExtraction(t *testing.T) {
	cfg := testConfig(t, []config.Playlist{
		{PlaylistID: "PL1", Folder: t.TempDir(), Account: "main"},
	})

	client := &fakeClient{
		entries: []entity.Entry{{VideoID: "vid00000001"}},
		meta:    map[string]entity.Item{"vid00000001": testItem("vid00000001")},
	}
	dl := &fakeDownloader{err: errs.ErrExtractionExhausted}
	notifier := &fakeNotifier{}

	coord := New(discardLogger(), cfg, dl, nopEmbedder{}, nopConverter{},
		copier.New(discardLogger(), testMetrics), clientsMap(client), notifier, testMetrics)

	if err := coord.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	led, err := ledger.Open(cfg.Dir.DBPath)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	defer led.Close()

	count, err := led.Count(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("ledger rows = %d; want 0", count)
	}

	message := notifier.last(t)
	if !strings.Contains(message, "0 archived, 1 failed") {
		t.Errorf("summary message = %q", message)
	}

	scratch := filepath.Join(cfg.Dir.TempDownloads, "vid00000001")
	if _, err := os.Stat(scratch); !os.IsNotExist(err) {
		t.Errorf("scratch dir %s not purged after permanent failure", scratch)
	}
}

func TestRunCopyFailureWritesNoRecord(t *testing.T) {
	cfg := testConfig(t, []config.Playlist{
		{PlaylistID: "PL1", Folder: t.TempDir(), Account: "main"},
	})

	client := &fakeClient{
		entries: []entity.Entry{{VideoID: "vid00000001"}},
		meta:    map[string]entity.Item{"vid00000001": testItem("vid00000001")},
	}
	dl := &vanishingDownloader{}
	notifier := &fakeNotifier{}

	coord := New(discardLogger(), cfg, dl, nopEmbedder{}, nopConverter{},
		copier.New(discardLogger(), testMetrics), clientsMap(client), notifier, testMetrics)

	if err := coord.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	led, err := ledger.Open(cfg.Dir.DBPath)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	defer led.Close()

	count, err := led.Count(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("ledger rows after copy failure = %d; want 0", count)
	}

	if message := notifier.last(t); !strings.Contains(message, "0 archived, 1 failed") {
		t.Errorf("summary message = %q", message)
	}
}

// vanishingDownloader reports success but the file it names does not exist,
// so the destination copy fails.
type vanishingDownloader struct{}

func (vanishingDownloader) Download(_ context.Context, item *entity.Item, scratchDir string) (string, error) {
	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		return "", err
	}

	return filepath.Join(scratchDir, item.ID+".webm"), nil
}

func TestRunRemoveAfterDownload(t *testing.T) {
	cfg := testConfig(t, []config.Playlist{
		{PlaylistID: "PL1", Folder: t.TempDir(), Account: "main", RemoveAfterDownload: true},
	})

	client := &fakeClient{
		entries: []entity.Entry{{VideoID: "vid00000001", PlaylistEntryID: "entry-1"}},
		meta:    map[string]entity.Item{"vid00000001": testItem("vid00000001")},
	}
	dl := &fakeDownloader{}
	notifier := &fakeNotifier{}

	coord := New(discardLogger(), cfg, dl, nopEmbedder{}, nopConverter{},
		copier.New(discardLogger(), testMetrics), clientsMap(client), notifier, testMetrics)

	if err := coord.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	if len(client.removed) != 1 || client.removed[0] != "entry-1" {
		t.Errorf("removed entries = %v; want [entry-1]", client.removed)
	}
}

func TestRunPlaylistListingFailureContinues(t *testing.T) {
	dest := t.TempDir()
	cfg := testConfig(t, []config.Playlist{
		{PlaylistID: "PL-broken", Folder: dest, Account: "broken"},
		{PlaylistID: "PL-good", Folder: dest, Account: "good"},
	})

	broken := &fakeClient{listErr: errs.ErrSourceFetch}
	good := &fakeClient{
		entries: []entity.Entry{{VideoID: "vid00000001"}},
		meta:    map[string]entity.Item{"vid00000001": testItem("vid00000001")},
	}
	dl := &fakeDownloader{}
	notifier := &fakeNotifier{}

	coord := New(discardLogger(), cfg, dl, nopEmbedder{}, nopConverter{},
		copier.New(discardLogger(), testMetrics),
		clientsFor(map[string]*fakeClient{"broken": broken, "good": good}),
		notifier, testMetrics)

	if err := coord.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if dl.callCount() != 1 {
		t.Errorf("download calls = %d; want 1", dl.callCount())
	}

	message := notifier.last(t)
	if !strings.Contains(message, "playlist PL-broken") {
		t.Errorf("summary missing broken playlist: %q", message)
	}
	if !strings.Contains(message, "1 archived, 1 failed") {
		t.Errorf("summary message = %q", message)
	}
}

func TestRunAuthFailureMarksAccountUnusable(t *testing.T) {
	dest := t.TempDir()
	cfg := testConfig(t, []config.Playlist{
		{PlaylistID: "PL1", Folder: dest, Account: "main"},
		{PlaylistID: "PL2", Folder: dest, Account: "main"},
	})

	client := &fakeClient{listErr: errs.ErrAuth}
	notifier := &fakeNotifier{}

	coord := New(discardLogger(), cfg, &fakeDownloader{}, nopEmbedder{}, nopConverter{},
		copier.New(discardLogger(), testMetrics), clientsMap(client), notifier, testMetrics)

	if err := coord.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	client.mu.Lock()
	calls := client.listCalls
	client.mu.Unlock()
	if calls != 1 {
		t.Errorf("listing attempts = %d; want 1 (account marked unusable)", calls)
	}

	if message := notifier.last(t); !strings.Contains(message, "0 archived, 2 failed") {
		t.Errorf("summary message = %q", message)
	}
}

func TestRunLockHeldSkipsSilently(t *testing.T) {
	cfg := testConfig(t, []config.Playlist{
		{PlaylistID: "PL1", Folder: t.TempDir(), Account: "main"},
	})

	held := flock.New(cfg.Dir.LockPath)
	locked, err := held.TryLock()
	if err != nil || !locked {
		t.Fatalf("pre-acquire lock: locked=%v err=%v", locked, err)
	}
	defer held.Unlock()

	client := &fakeClient{
		entries: []entity.Entry{{VideoID: "vid00000001"}},
		meta:    map[string]entity.Item{"vid00000001": testItem("vid00000001")},
	}
	dl := &fakeDownloader{}
	notifier := &fakeNotifier{}

	coord := New(discardLogger(), cfg, dl, nopEmbedder{}, nopConverter{},
		copier.New(discardLogger(), testMetrics), clientsMap(client), notifier, testMetrics)

	if err := coord.Run(context.Background()); err != nil {
		t.Fatalf("Run with held lock: %v", err)
	}

	if dl.callCount() != 0 {
		t.Errorf("download calls = %d; want 0", dl.callCount())
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.messages) != 0 {
		t.Errorf("notifications = %v; want none", notifier.messages)
	}
}

func TestRunPurgesStaleScratch(t *testing.T) {
	cfg := testConfig(t, nil)
	cfg.Dir.Thumbs = filepath.Join(filepath.Dir(cfg.Dir.TempDownloads), "thumbs")

	stale := filepath.Join(cfg.Dir.TempDownloads, "vidStale0001")
	if err := os.MkdirAll(stale, 0o755); err != nil {
		t.Fatalf("mkdir stale scratch: %v", err)
	}
	if err := os.WriteFile(filepath.Join(stale, "vidStale0001.webm.part"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write stale partial: %v", err)
	}

	staleThumb := filepath.Join(cfg.Dir.Thumbs, "vidStale0001.jpg")
	if err := os.MkdirAll(cfg.Dir.Thumbs, 0o755); err != nil {
		t.Fatalf("mkdir thumbs: %v", err)
	}
	if err := os.WriteFile(staleThumb, []byte("x"), 0o644); err != nil {
		t.Fatalf("write stale thumb: %v", err)
	}

	coord := New(discardLogger(), cfg, &fakeDownloader{}, nopEmbedder{}, nopConverter{},
		copier.New(discardLogger(), testMetrics), clientsMap(&fakeClient{}), &fakeNotifier{}, testMetrics)

	if err := coord.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("stale scratch dir %s not purged", stale)
	}
	if _, err := os.Stat(staleThumb); !os.IsNotExist(err) {
		t.Errorf("stale thumbnail %s not purged", staleThumb)
	}
}

func TestDestName(t *testing.T) {
	item := &entity.Item{
		ID:         "dQw4w9WgXcQ",
		Title:      "Never / Gonna",
		Channel:    "Rick",
		UploadDate: "20091025",
	}

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{
			name:     "default pretty name with id suffix",
			template: "",
			want:     "Never Gonna - Rick (10-2009)_dQw4w9Wg.webm",
		},
		{
			name:     "template placeholders",
			template: "%(upload_date)s - %(title)s by %(uploader)s.%(ext)s",
			want:     "20091025 - Never Gonna by Rick.webm",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := destName(tt.template, item, "webm"); got != tt.want {
				t.Errorf("destName = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestSummaryFormat(t *testing.T) {
	s := &Summary{}
	s.AddSuccess("First - Channel (01-2023)")
	s.AddSuccess("Second - Channel (02-2023)")
	s.AddFailure("Third - Channel")

	got := s.Format()

	if !strings.Contains(got, "2 archived, 1 failed") {
		t.Errorf("Format = %q", got)
	}
	if !strings.Contains(got, "- First - Channel (01-2023)") {
		t.Errorf("Format missing success entry: %q", got)
	}
	if !strings.Contains(got, "- Third - Channel") {
		t.Errorf("Format missing failure entry: %q", got)
	}
}

func seedLedger(t *testing.T, path, videoID string) {
	t.Helper()

	led, err := ledger.Open(path)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	defer led.Close()

	if err := led.Insert(context.Background(), ledger.Record{VideoID: videoID}); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}
}

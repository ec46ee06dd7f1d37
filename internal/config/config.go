// Package config handles application configuration loading and management.
//
// Infrastructure knobs come from environment variables; the domain
// configuration (playlists, accounts, output preferences) comes from a TOML
// file referenced by RETREIVR_CONFIG_FILE.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

// Config holds the application configuration.
type Config struct {
	App        App
	Dir        Dir
	Metrics    Metrics
	DepManager DepManager
	Run        Run `env:"-"`
}

// App holds application-wide configuration.
type App struct {
	LogLevel string `env:"RETREIVR_APP_LOG_LEVEL" envDefault:"info"`
	// ConfigFile is the TOML file holding the domain configuration.
	ConfigFile string `env:"RETREIVR_CONFIG_FILE" envDefault:"./config/config.toml"`
	// JSRuntime is an optional "name:path" JavaScript runtime hint for the
	// extraction layer. When empty, deno then node are probed on PATH.
	JSRuntime string `env:"RETREIVR_JS_RUNTIME" envDefault:""`
}

// Dir holds directory and file paths. Empty values are derived from Data.
type Dir struct {
	Data          string `env:"RETREIVR_DIR_DATA"           envDefault:"./data"`
	Logs          string `env:"RETREIVR_DIR_LOG"            envDefault:""` // <data>/logs
	TempDownloads string `env:"RETREIVR_DIR_TEMP_DOWNLOADS" envDefault:""` // <data>/temp_downloads
	YTdlpTemp     string `env:"RETREIVR_DIR_YTDLP_TEMP"     envDefault:""` // <data>/tmp/yt-dlp
	Thumbs        string `env:"RETREIVR_DIR_THUMBS"         envDefault:""` // <data>/tmp/yt-dlp/thumbs
	Bins          string `env:"RETREIVR_DIR_BINS"           envDefault:"./bins"`
	DBPath        string `env:"RETREIVR_DB_PATH"            envDefault:""` // <data>/database/db.sqlite
	LockPath      string `env:"RETREIVR_LOCK_PATH"          envDefault:""` // <data>/tmp/retreivr.lock

	// CookieFile, when set, is passed through to yt-dlp.
	// see: https://github.com/yt-dlp/yt-dlp/wiki/FAQ#how-do-i-pass-cookies-to-yt-dlp
	CookieFile string `env:"RETREIVR_COOKIE_FILE" envDefault:""`
}

// Metrics holds the optional Prometheus scrape endpoint configuration.
type Metrics struct {
	// Port is the listen address of the metrics endpoint, e.g. ":9090".
	// Empty disables the endpoint.
	Port string `env:"RETREIVR_METRICS_PORT" envDefault:""`
}

// DepManager holds external binary provisioning configuration.
type DepManager struct {
	// FFmpegBin, when set, is used directly instead of probing or downloading.
	FFmpegBin string `env:"RETREIVR_FFMPEG_BIN" envDefault:""`
	// UseSystemBinaries prefers binaries already on PATH over downloading.
	UseSystemBinaries bool `env:"RETREIVR_USE_SYSTEM_BINARIES" envDefault:"true"`

	FFmpegSHA256SumsURL string `env:"RETREIVR_FFMPEG_SHA256SUMS_URL" envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/checksums.sha256"`                        //nolint:lll
	FFmpegLinuxARM64    string `env:"RETREIVR_FFMPEG_LINUX_ARM64" envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/ffmpeg-master-latest-linuxarm64-gpl.tar.xz"` //nolint:lll
	FFmpegLinuxAMD64    string `env:"RETREIVR_FFMPEG_LINUX_AMD64" envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/ffmpeg-master-latest-linux64-gpl.tar.xz"`    //nolint:lll
}

// Run is the domain configuration loaded from the TOML config file.
type Run struct {
	// FinalFormat, when set, is the container extension every archived file
	// is remuxed to ("webm", "mp4", "mkv"). Empty keeps the downloaded
	// container.
	FinalFormat string `toml:"final_format"`
	// FilenameTemplate recognizes %(title)s, %(uploader)s, %(upload_date)s
	// and %(ext)s placeholders. Empty uses the built-in pretty name.
	FilenameTemplate string `toml:"filename_template"`
	// Strictness selects the attempt-plan format ladder: "strict" (default)
	// or "relaxed".
	Strictness string `toml:"strictness"`

	YTdlp     YTdlpOverrides     `toml:"ytdlp"`
	Telegram  Telegram           `toml:"telegram"`
	Accounts  map[string]Account `toml:"accounts"`
	Playlists []Playlist         `toml:"playlists"`
}

// YTdlpOverrides lists the recognized yt-dlp option overrides. Every option
// is explicit; there is no pass-through of arbitrary keys.
type YTdlpOverrides struct {
	// Format replaces the attempt plan's primary format selector.
	Format string `toml:"format"`
	// SocketTimeoutSec overrides the per-request network timeout.
	SocketTimeoutSec int `toml:"socket_timeout_sec"`
	// Retries overrides yt-dlp's internal retry count.
	Retries int `toml:"retries"`
}

// Telegram holds the end-of-run notification credentials. Both fields must be
// set for notifications to be sent.
type Telegram struct {
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}

// Account holds a playlist-source account with its token file.
type Account struct {
	Token string `toml:"token"`
}

// Playlist is one subscribed playlist.
type Playlist struct {
	PlaylistID          string `toml:"playlist_id"`
	Folder              string `toml:"folder"`
	Account             string `toml:"account"`
	RemoveAfterDownload bool   `toml:"remove_after_download"`
}

// New loads configuration from environment variables plus the TOML config
// file, derives defaulted paths and validates the result.
func New() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Dir.resolve(); err != nil {
		return nil, fmt.Errorf("resolve dirs: %w", err)
	}

	if err := cfg.LoadRunFile(cfg.App.ConfigFile); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadRunFile reads and validates the TOML domain configuration.
func (c *Config) LoadRunFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	run := Run{}
	if err := toml.Unmarshal(data, &run); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if err := run.validate(); err != nil {
		return fmt.Errorf("validate config file: %w", err)
	}

	c.Run = run

	return nil
}

func (r *Run) validate() error {
	switch r.FinalFormat {
	case "", "webm", "mp4", "mkv":
	default:
		return fmt.Errorf("unknown final_format %q", r.FinalFormat)
	}

	switch r.Strictness {
	case "", "strict", "relaxed":
	default:
		return fmt.Errorf("unknown strictness %q", r.Strictness)
	}

	for i, pl := range r.Playlists {
		if pl.PlaylistID == "" {
			return fmt.Errorf("playlist %d: playlist_id is required", i)
		}

		if pl.Folder == "" {
			return fmt.Errorf("playlist %q: folder is required", pl.PlaylistID)
		}

		if _, ok := r.Accounts[pl.Account]; !ok {
			return fmt.Errorf("playlist %q: unknown account %q", pl.PlaylistID, pl.Account)
		}
	}

	return nil
}

// resolve fills derived defaults and converts all paths to absolute form.
func (d *Dir) resolve() error {
	var err error
	if d.Data, err = filepath.Abs(d.Data); err != nil {
		return fmt.Errorf("data: %w", err)
	}

	defaults := []struct {
		field *string
		parts []string
	}{
		{&d.Logs, []string{"logs"}},
		{&d.TempDownloads, []string{"temp_downloads"}},
		{&d.YTdlpTemp, []string{"tmp", "yt-dlp"}},
		{&d.Thumbs, []string{"tmp", "yt-dlp", "thumbs"}},
		{&d.DBPath, []string{"database", "db.sqlite"}},
		{&d.LockPath, []string{"tmp", "retreivr.lock"}},
	}

	for _, def := range defaults {
		if *def.field == "" {
			*def.field = filepath.Join(append([]string{d.Data}, def.parts...)...)
			continue
		}

		if *def.field, err = filepath.Abs(*def.field); err != nil {
			return fmt.Errorf("%s: %w", *def.field, err)
		}
	}

	if d.Bins, err = filepath.Abs(d.Bins); err != nil {
		return fmt.Errorf("bins: %w", err)
	}

	if d.CookieFile != "" {
		if d.CookieFile, err = filepath.Abs(d.CookieFile); err != nil {
			return fmt.Errorf("cookie file: %w", err)
		}
	}

	return nil
}

// EnsureDirs creates every directory the run needs up front.
func (d *Dir) EnsureDirs() error {
	for _, dir := range []string{
		d.Data,
		d.Logs,
		d.TempDownloads,
		d.YTdlpTemp,
		d.Thumbs,
		filepath.Dir(d.DBPath),
		filepath.Dir(d.LockPath),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	return nil
}

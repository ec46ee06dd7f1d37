package downloader

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/lrstanley/go-ytdlp"

	"retreivr/internal/config"
	"retreivr/internal/consts"
)

// outputTemplate names scratch outputs by video identifier so the engine can
// discover them by prefix scan.
const outputTemplate = "%(id)s.%(ext)s"

// YTdlp runs extraction attempts through yt-dlp.
type YTdlp struct {
	log       *slog.Logger
	cfg       *config.Config
	jsRuntime string
}

// NewYTdlp creates a yt-dlp backed attempt runner.
func NewYTdlp(log *slog.Logger, cfg *config.Config) *YTdlp {
	runtime := ResolveJSRuntime(cfg.App.JSRuntime)
	if runtime != "" {
		log.Info("js runtime resolved", slog.String("runtime", runtime))
	}

	return &YTdlp{
		log:       log.With(slog.String("package", "downloader"), slog.String("attempter", "ytdlp")),
		cfg:       cfg,
		jsRuntime: runtime,
	}
}

var _ Attempter = (*YTdlp)(nil)

// Attempt invokes yt-dlp once with the step's client identity, header set and
// format selector. The caller owns scratch-dir lifecycle and output
// discovery.
func (d *YTdlp) Attempt(ctx context.Context, url, scratchDir string, step Step) error {
	socketTimeout := consts.SocketTimeout.Seconds()
	if d.cfg.Run.YTdlp.SocketTimeoutSec > 0 {
		socketTimeout = float64(d.cfg.Run.YTdlp.SocketTimeoutSec)
	}

	retries := consts.TransferRetries
	if d.cfg.Run.YTdlp.Retries > 0 {
		retries = d.cfg.Run.YTdlp.Retries
	}

	command := ytdlp.New().
		Format(step.Format).
		Output(filepath.Join(scratchDir, outputTemplate)).
		Paths("temp:"+d.cfg.Dir.YTdlpTemp).
		CacheDir(d.cfg.Dir.YTdlpTemp).
		NoPlaylist().
		Quiet().
		Continue().
		SocketTimeout(socketTimeout).
		Retries(strconv.Itoa(retries)).
		ForceIPv4().
		RemoteComponents("ejs:github")

	for key, value := range step.Headers {
		command = command.AddHeaders(key + ":" + value)
	}

	if step.Client != "" {
		command = command.ExtractorArgs("youtube:player_client=" + step.Client)
	}

	if d.cfg.Dir.CookieFile != "" {
		command = command.Cookies(d.cfg.Dir.CookieFile)
	}

	if d.jsRuntime != "" {
		command = command.JSRuntime(d.jsRuntime)
	}

	res, err := command.Run(ctx, url)
	if err != nil {
		return fmt.Errorf("ytdlp run: %w", err)
	}

	d.log.DebugContext(ctx, "ytdlp attempt finished",
		slog.String("client", step.Label()),
		slog.Int("exit_code", res.ExitCode))

	return nil
}

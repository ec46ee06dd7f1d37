// Package notify delivers the end-of-run summary over Telegram. When no
// credentials are configured a noop notifier is returned, so callers never
// branch on configuration.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"retreivr/internal/config"
	"retreivr/internal/consts"
)

// Notifier consumes a single free-text summary string at end of run.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

const telegramAPIBase = "https://api.telegram.org"

// New builds a Telegram-backed notifier, or a noop one when credentials are
// missing.
func New(log *slog.Logger, cfg config.Telegram) Notifier {
	if cfg.BotToken == "" || cfg.ChatID == "" {
		return noop{}
	}

	return &telegram{
		log:     log.With(slog.String("package", "notify")),
		client:  &http.Client{Timeout: consts.NotifyTimeout},
		apiBase: telegramAPIBase,
		token:   cfg.BotToken,
		chatID:  cfg.ChatID,
	}
}

type noop struct{}

func (noop) Notify(context.Context, string) error { return nil }

type telegram struct {
	log     *slog.Logger
	client  *http.Client
	apiBase string
	token   string
	chatID  string
}

func (t *telegram) Notify(ctx context.Context, message string) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage?chat_id=%s&text=%s",
		t.apiBase, t.token, url.QueryEscape(t.chatID), url.QueryEscape(message))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("send notification: status %d", resp.StatusCode)
	}

	return nil
}

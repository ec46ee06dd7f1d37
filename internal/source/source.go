// Package source talks to the playlist provider: it lists playlist items,
// fetches per-video descriptive metadata and removes archived entries.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"retreivr/internal/config"
	"retreivr/internal/entity"
)

// Client is the playlist-source surface the run coordinator consumes.
type Client interface {
	// ListItems returns every entry of the playlist, in playlist order.
	ListItems(ctx context.Context, playlistID string) ([]entity.Entry, error)
	// VideoMetadata returns descriptive metadata for a video, or
	// errs.ErrNoMetadata when the source knows nothing about it.
	VideoMetadata(ctx context.Context, videoID string) (*entity.Item, error)
	// RemoveEntry deletes a playlist entry after successful archiving.
	RemoveEntry(ctx context.Context, entryID string) error
}

// credentials mirrors the token file written by the one-time authorization
// flow. Only the access token is consumed here; refreshing is the flow's job.
type credentials struct {
	Token string `json:"token"`
}

// NewClients builds one source client per configured account. Accounts that
// fail to initialize are skipped with a logged error so one broken account
// never aborts the whole run.
func NewClients(log *slog.Logger, accounts map[string]config.Account) map[string]Client {
	clients := make(map[string]Client, len(accounts))

	for name, account := range accounts {
		if account.Token == "" {
			log.Error("account has no token path configured, skipping",
				slog.String("account", name))

			continue
		}

		client, err := NewYouTube(account.Token)
		if err != nil {
			log.Error("source client init failed, skipping account",
				slog.String("account", name), slog.Any("error", err))

			continue
		}

		clients[name] = client
	}

	return clients
}

func loadCredentials(path string) (*credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}

	creds := &credentials{}
	if err := json.Unmarshal(data, creds); err != nil {
		return nil, fmt.Errorf("parse token file: %w", err)
	}

	if creds.Token == "" {
		return nil, fmt.Errorf("token file %s has no token", path)
	}

	return creds, nil
}

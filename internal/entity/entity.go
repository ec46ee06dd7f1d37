// Package entity defines the core entities used in the application.
package entity

import "log/slog"

// Item is one playlist entry with its descriptive metadata, as returned by
// the playlist source. Immutable once fetched for a run.
type Item struct {
	ID              string   `json:"id"`
	PlaylistID      string   `json:"playlistId"`
	PlaylistEntryID string   `json:"playlistEntryId,omitempty"` // handle for remove-after-download
	Title           string   `json:"title"`
	Channel         string   `json:"channel"`
	UploadDate      string   `json:"uploadDate"` // YYYYMMDD or empty
	Description     string   `json:"description"`
	Tags            []string `json:"tags,omitempty"`
	URL             string   `json:"url"`
	ThumbnailURL    string   `json:"thumbnailUrl,omitempty"`
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (i Item) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", i.ID),
		slog.String("playlist_id", i.PlaylistID),
		slog.String("title", i.Title),
		slog.String("channel", i.Channel),
		slog.String("upload_date", i.UploadDate),
		slog.String("url", i.URL),
	)
}

// Entry is a playlist membership reference: the video plus the playlist-item
// handle needed to remove it from the playlist after archiving.
type Entry struct {
	VideoID         string `json:"videoId"`
	PlaylistEntryID string `json:"playlistEntryId,omitempty"`
}

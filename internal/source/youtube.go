package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"retreivr/internal/consts"
	"retreivr/internal/entity"
	"retreivr/internal/errs"
)

const defaultAPIBase = "https://www.googleapis.com/youtube/v3"

const watchURLPrefix = "https://www.youtube.com/watch?v="

// YouTube is a Data API v3 client for one account.
type YouTube struct {
	client  *http.Client
	apiBase string
	token   string
}

var _ Client = (*YouTube)(nil)

// NewYouTube builds a client from a token file.
func NewYouTube(tokenPath string) (*YouTube, error) {
	creds, err := loadCredentials(tokenPath)
	if err != nil {
		return nil, err
	}

	return &YouTube{
		client:  &http.Client{Timeout: consts.SourceTimeout},
		apiBase: defaultAPIBase,
		token:   creds.Token,
	}, nil
}

type playlistItemsResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		ID             string `json:"id"`
		ContentDetails struct {
			VideoID string `json:"videoId"`
		} `json:"contentDetails"`
	} `json:"items"`
}

// ListItems pages through the playlist and returns every entry.
func (y *YouTube) ListItems(ctx context.Context, playlistID string) ([]entity.Entry, error) {
	var (
		entries []entity.Entry
		page    string
	)

	for {
		params := url.Values{
			"part":       {"snippet,contentDetails"},
			"playlistId": {playlistID},
			"maxResults": {strconv.Itoa(consts.SourcePageSize)},
		}
		if page != "" {
			params.Set("pageToken", page)
		}

		resp := playlistItemsResponse{}
		if err := y.get(ctx, "/playlistItems", params, &resp); err != nil {
			return nil, fmt.Errorf("list playlist %s: %w", playlistID, err)
		}

		for _, item := range resp.Items {
			if item.ContentDetails.VideoID == "" {
				continue
			}

			entries = append(entries, entity.Entry{
				VideoID:         item.ContentDetails.VideoID,
				PlaylistEntryID: item.ID,
			})
		}

		page = resp.NextPageToken
		if page == "" {
			return entries, nil
		}
	}
}

type videosResponse struct {
	Items []struct {
		Snippet struct {
			Title        string   `json:"title"`
			ChannelTitle string   `json:"channelTitle"`
			PublishedAt  string   `json:"publishedAt"`
			Description  string   `json:"description"`
			Tags         []string `json:"tags"`
			Thumbnails   map[string]struct {
				URL string `json:"url"`
			} `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
}

// thumbnailPreference orders thumbnail qualities best first.
var thumbnailPreference = []string{"maxres", "standard", "high", "medium", "default"}

// VideoMetadata fetches descriptive metadata for one video.
func (y *YouTube) VideoMetadata(ctx context.Context, videoID string) (*entity.Item, error) {
	params := url.Values{
		"part": {"snippet,contentDetails"},
		"id":   {videoID},
	}

	resp := videosResponse{}
	if err := y.get(ctx, "/videos", params, &resp); err != nil {
		return nil, fmt.Errorf("video metadata %s: %w", videoID, err)
	}

	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("%w: %s", errs.ErrNoMetadata, videoID)
	}

	snippet := resp.Items[0].Snippet

	// publishedAt is RFC 3339; the compact date is its first ten characters
	// with the hyphens stripped.
	uploadDate := snippet.PublishedAt
	if len(uploadDate) >= 10 {
		uploadDate = strings.ReplaceAll(uploadDate[:10], "-", "")
	}

	var thumbURL string
	for _, quality := range thumbnailPreference {
		if thumb, ok := snippet.Thumbnails[quality]; ok && thumb.URL != "" {
			thumbURL = thumb.URL

			break
		}
	}

	return &entity.Item{
		ID:           videoID,
		Title:        snippet.Title,
		Channel:      snippet.ChannelTitle,
		UploadDate:   uploadDate,
		Description:  snippet.Description,
		Tags:         snippet.Tags,
		URL:          watchURLPrefix + videoID,
		ThumbnailURL: thumbURL,
	}, nil
}

// RemoveEntry deletes a playlist entry.
func (y *YouTube) RemoveEntry(ctx context.Context, entryID string) error {
	endpoint := y.apiBase + "/playlistItems?id=" + url.QueryEscape(entryID)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+y.token)

	resp, err := y.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrSourceFetch, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if err := statusError(resp.StatusCode); err != nil {
		return fmt.Errorf("remove entry %s: %w", entryID, err)
	}

	return nil
}

func (y *YouTube) get(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		y.apiBase+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+y.token)

	resp, err := y.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrSourceFetch, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %w", errs.ErrSourceFetch, err)
	}

	return nil
}

// statusError maps HTTP statuses onto the error taxonomy: credential problems
// are ErrAuth so the coordinator can mark the account unusable, everything
// else non-2xx is a plain fetch failure.
func statusError(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", errs.ErrAuth, status)
	case status < 200 || status >= 300:
		return fmt.Errorf("%w: status %d", errs.ErrSourceFetch, status)
	default:
		return nil
	}
}

// Package chatwatch polls a room's YouTube live chat and feeds keyword
// matches into the room as queue entries. At most one poller works a
// room at a time, enforced by the store's poll lease.
package chatwatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ErrChatEnded means the stream's live chat is no longer available.
var ErrChatEnded = errors.New("live chat ended")

// Message is one chat message relevant to keyword matching.
type Message struct {
	AuthorChannelID string
	AuthorName      string
	Text            string
	PublishedAt     time.Time
}

// Page is one poll cycle's worth of messages plus the cursor and the
// server-suggested wait before the next cycle.
type Page struct {
	Messages      []Message
	NextPageToken string
	PollInterval  time.Duration
}

// Source abstracts the live chat API so the watcher can be tested
// without YouTube.
type Source interface {
	// ResolveLiveChatID maps a video id to its active live chat id.
	// Returns ErrChatEnded when the video has no active chat.
	ResolveLiveChatID(ctx context.Context, videoID string) (string, error)

	// Messages fetches one page of chat messages from the cursor.
	// Returns ErrChatEnded when the chat has been closed.
	Messages(ctx context.Context, liveChatID, pageToken string) (*Page, error)
}

const defaultAPIBase = "https://www.googleapis.com/youtube/v3"

// YouTubeSource implements Source against the YouTube Data API v3.
type YouTubeSource struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewYouTubeSource builds a source using the given API key.
func NewYouTubeSource(apiKey string) *YouTubeSource {
	return &YouTubeSource{
		apiKey:  apiKey,
		baseURL: defaultAPIBase,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// NewYouTubeSourceAt is like NewYouTubeSource with the API base
// overridden, for tests.
func NewYouTubeSourceAt(apiKey, baseURL string, client *http.Client) *YouTubeSource {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &YouTubeSource{apiKey: apiKey, baseURL: baseURL, client: client}
}

func (s *YouTubeSource) get(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("key", s.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusNotFound {
		return ErrChatEnded
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("youtube api: unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (s *YouTubeSource) ResolveLiveChatID(ctx context.Context, videoID string) (string, error) {
	var body struct {
		Items []struct {
			LiveStreamingDetails struct {
				ActiveLiveChatID string `json:"activeLiveChatId"`
			} `json:"liveStreamingDetails"`
		} `json:"items"`
	}

	params := url.Values{}
	params.Set("part", "liveStreamingDetails")
	params.Set("id", videoID)
	if err := s.get(ctx, "/videos", params, &body); err != nil {
		return "", err
	}

	if len(body.Items) == 0 || body.Items[0].LiveStreamingDetails.ActiveLiveChatID == "" {
		return "", ErrChatEnded
	}
	return body.Items[0].LiveStreamingDetails.ActiveLiveChatID, nil
}

func (s *YouTubeSource) Messages(ctx context.Context, liveChatID, pageToken string) (*Page, error) {
	var body struct {
		NextPageToken         string `json:"nextPageToken"`
		PollingIntervalMillis int64  `json:"pollingIntervalMillis"`
		OfflineAt             string `json:"offlineAt"`
		Items                 []struct {
			Snippet struct {
				DisplayMessage string    `json:"displayMessage"`
				PublishedAt    time.Time `json:"publishedAt"`
			} `json:"snippet"`
			AuthorDetails struct {
				ChannelID   string `json:"channelId"`
				DisplayName string `json:"displayName"`
			} `json:"authorDetails"`
		} `json:"items"`
	}

	params := url.Values{}
	params.Set("liveChatId", liveChatID)
	params.Set("part", "snippet,authorDetails")
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}
	if err := s.get(ctx, "/liveChat/messages", params, &body); err != nil {
		return nil, err
	}

	if body.OfflineAt != "" {
		return nil, ErrChatEnded
	}

	page := &Page{
		NextPageToken: body.NextPageToken,
		PollInterval:  time.Duration(body.PollingIntervalMillis) * time.Millisecond,
	}
	for _, item := range body.Items {
		page.Messages = append(page.Messages, Message{
			AuthorChannelID: item.AuthorDetails.ChannelID,
			AuthorName:      item.AuthorDetails.DisplayName,
			Text:            item.Snippet.DisplayMessage,
			PublishedAt:     item.Snippet.PublishedAt,
		})
	}
	return page, nil
}

// Package youtube provides a client for the YouTube playlist-items API.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"

	"github.com/knakkis/bandbox/internal/domain/track"
)

const (
	defaultBaseURL    = "https://www.googleapis.com/youtube/v3/"
	defaultRatePerSec = 5
	pageSize          = 50
)

// FetchError represents a non-success response from the catalog API.
// Fetching is all-or-nothing per playlist: pages already retrieved are
// discarded when any page fails.
type FetchError struct {
	StatusCode int
	Status     string
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("playlist items request failed: %s", e.Status)
}

// Client is a YouTube Data API client for playlist items. It does not
// retry; retry policy, if any, belongs to the caller.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Config represents YouTube client configuration.
type Config struct {
	BaseURL    string  // API base URL (default: Google API endpoint)
	RatePerSec float64 // Page request pacing
}

// New creates a new YouTube client.
func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	perSec := cfg.RatePerSec
	if perSec <= 0 {
		perSec = defaultRatePerSec
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(perSec), 1),
	}
}

// playlistItemsResponse represents one page of the playlistItems API.
type playlistItemsResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title      string `json:"title"`
			Thumbnails struct {
				Default struct {
					URL string `json:"url"`
				} `json:"default"`
			} `json:"thumbnails"`
		} `json:"snippet"`
		ContentDetails struct {
			VideoID string `json:"videoId"`
		} `json:"contentDetails"`
	} `json:"items"`
	NextPageToken string `json:"nextPageToken"`
}

// PlaylistItems retrieves the complete ordered track list for a
// playlist, following continuation tokens page by page. Pages are
// requested sequentially, never in parallel, to preserve ordering and
// bound request volume.
func (c *Client) PlaylistItems(ctx context.Context, playlistID, apiKey string) ([]track.Track, error) {
	if playlistID == "" {
		return nil, errors.New("playlist id is required")
	}
	if apiKey == "" {
		return nil, errors.New("api key is required")
	}

	var tracks []track.Track
	pageToken := ""

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(err, "rate limiter wait failed")
		}

		page, err := c.fetchPage(ctx, playlistID, apiKey, pageToken)
		if err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			tracks = append(tracks, track.Track{
				ID:        item.ID,
				Title:     item.Snippet.Title,
				VideoID:   item.ContentDetails.VideoID,
				Thumbnail: item.Snippet.Thumbnails.Default.URL,
			})
		}

		if page.NextPageToken == "" {
			return tracks, nil
		}
		pageToken = page.NextPageToken
	}
}

func (c *Client) fetchPage(ctx context.Context, playlistID, apiKey, pageToken string) (*playlistItemsResponse, error) {
	params := url.Values{}
	params.Set("part", "snippet,contentDetails")
	params.Set("maxResults", strconv.Itoa(pageSize))
	params.Set("playlistId", playlistID)
	params.Set("key", apiKey)
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	reqURL := c.baseURL + "playlistItems?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "playlist items request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	var page playlistItemsResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, errors.Wrap(err, "failed to parse response")
	}

	return &page, nil
}

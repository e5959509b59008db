// Package store provides a client for the managed row-store backing
// the configuration panel (config_settings and playlists tables),
// speaking the PostgREST-style REST dialect the service exposes.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"

	"github.com/knakkis/bandbox/internal/domain/playlist"
)

// Errors
var (
	ErrNotFound = errors.New("row not found")
)

// StatusError represents a non-success response from the row store.
type StatusError struct {
	StatusCode int
	Status     string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("store request failed: %s", e.Status)
}

// Settings represents the single config_settings row.
type Settings struct {
	ID        string `mapstructure:"id" json:"id,omitempty"`
	ChannelID string `mapstructure:"channel_id" json:"channel_id"`
	APIKey    string `mapstructure:"api_key" json:"api_key"`
}

// Client is a row-store REST client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	mu        sync.RWMutex
	authToken string // signed-in user token, set and cleared by the login handlers
}

// Config represents store client configuration.
type Config struct {
	URL    string // Service base URL
	APIKey string // Anonymous service key
}

// New creates a new store client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("store URL is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("store API key is required")
	}

	return &Client{
		baseURL:    cfg.URL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// SetAuthToken installs a signed-in user token used for writes. An
// empty token falls back to the anonymous key. Safe to call while
// other goroutines issue requests.
func (c *Client) SetAuthToken(token string) {
	c.mu.Lock()
	c.authToken = token
	c.mu.Unlock()
}

// bearerToken returns the token to authorize the next request with.
func (c *Client) bearerToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.authToken != "" {
		return c.authToken
	}
	return c.apiKey
}

// Settings reads the config_settings row with first-matching-row
// semantics. Returns ErrNotFound when the table is empty.
func (c *Client) Settings(ctx context.Context) (*Settings, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("limit", "1")

	body, err := c.do(ctx, http.MethodGet, "config_settings", query, nil, "")
	if err != nil {
		return nil, err
	}

	var rows []Settings
	if err := decodeRows(body, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

// SaveSettings upserts the config_settings row.
func (c *Client) SaveSettings(ctx context.Context, s Settings) error {
	row := map[string]any{
		"channel_id": s.ChannelID,
		"api_key":    s.APIKey,
	}
	if s.ID != "" {
		row["id"] = s.ID
	}

	_, err := c.do(ctx, http.MethodPost, "config_settings", nil, row, "resolution=merge-duplicates")
	return err
}

// playlistRow mirrors the playlists table shape.
type playlistRow struct {
	ID          string    `mapstructure:"id"`
	Name        string    `mapstructure:"name"`
	PlaylistID  string    `mapstructure:"playlist_id"`
	IsListenNow bool      `mapstructure:"is_listen_now"`
	CreatedAt   time.Time `mapstructure:"created_at"`
}

func (r playlistRow) toDomain() playlist.Playlist {
	return playlist.Playlist{
		ID:          r.ID,
		Name:        r.Name,
		PlaylistID:  r.PlaylistID,
		IsListenNow: r.IsListenNow,
		CreatedAt:   r.CreatedAt,
	}
}

// Playlists returns all playlists ordered by creation time.
func (c *Client) Playlists(ctx context.Context) ([]playlist.Playlist, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("order", "created_at.asc")

	body, err := c.do(ctx, http.MethodGet, "playlists", query, nil, "")
	if err != nil {
		return nil, err
	}

	var rows []playlistRow
	if err := decodeRows(body, &rows); err != nil {
		return nil, err
	}

	result := make([]playlist.Playlist, len(rows))
	for i, r := range rows {
		result[i] = r.toDomain()
	}
	return result, nil
}

// ListenNow returns the playlist flagged "listen now", or ErrNotFound.
func (c *Client) ListenNow(ctx context.Context) (*playlist.Playlist, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("is_listen_now", "eq.true")
	query.Set("limit", "1")

	body, err := c.do(ctx, http.MethodGet, "playlists", query, nil, "")
	if err != nil {
		return nil, err
	}

	var rows []playlistRow
	if err := decodeRows(body, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	p := rows[0].toDomain()
	return &p, nil
}

// AddPlaylist inserts a new playlist and returns the stored row.
func (c *Client) AddPlaylist(ctx context.Context, name, playlistID string) (*playlist.Playlist, error) {
	if name == "" || playlistID == "" {
		return nil, errors.New("playlist name and id are required")
	}

	row := map[string]any{
		"id":            uuid.NewString(),
		"name":          name,
		"playlist_id":   playlistID,
		"is_listen_now": false,
		"created_at":    time.Now().UTC().Format(time.RFC3339),
	}

	body, err := c.do(ctx, http.MethodPost, "playlists", nil, row, "return=representation")
	if err != nil {
		return nil, err
	}

	var rows []playlistRow
	if err := decodeRows(body, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("insert returned no rows")
	}
	p := rows[0].toDomain()
	return &p, nil
}

// RemovePlaylist deletes a playlist by row ID.
func (c *Client) RemovePlaylist(ctx context.Context, id string) error {
	query := url.Values{}
	query.Set("id", "eq."+id)

	_, err := c.do(ctx, http.MethodDelete, "playlists", query, nil, "")
	return err
}

// UpdatePlaylist updates a playlist's mutable fields by row ID.
func (c *Client) UpdatePlaylist(ctx context.Context, p playlist.Playlist) error {
	query := url.Values{}
	query.Set("id", "eq."+p.ID)

	row := map[string]any{
		"name":          p.Name,
		"playlist_id":   p.PlaylistID,
		"is_listen_now": p.IsListenNow,
	}

	_, err := c.do(ctx, http.MethodPatch, "playlists", query, row, "")
	return err
}

// SetListenNow flags one playlist as "listen now". The at-most-one
// invariant is maintained here, not by the store: first clear the flag
// on every other row, then set it on the target.
func (c *Client) SetListenNow(ctx context.Context, id string) error {
	clearQuery := url.Values{}
	clearQuery.Set("id", "neq."+id)
	if _, err := c.do(ctx, http.MethodPatch, "playlists", clearQuery, map[string]any{"is_listen_now": false}, ""); err != nil {
		return err
	}

	setQuery := url.Values{}
	setQuery.Set("id", "eq."+id)
	_, err := c.do(ctx, http.MethodPatch, "playlists", setQuery, map[string]any{"is_listen_now": true}, "")
	return err
}

func (c *Client) do(ctx context.Context, method, table string, query url.Values, body any, prefer string) ([]byte, error) {
	reqURL := c.baseURL + "/rest/v1/" + table
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode request body")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.bearerToken())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "store request failed")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	return data, nil
}

// decodeRows decodes a JSON row array into a typed slice. Rows come
// back as loose maps; mapstructure bridges them to the typed shape,
// parsing timestamp strings along the way.
func decodeRows(data []byte, out any) error {
	if len(data) == 0 {
		return nil
	}

	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "failed to parse rows")
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeHookFunc(time.RFC3339),
		Result:     out,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create row decoder")
	}
	if err := decoder.Decode(raw); err != nil {
		return errors.Wrap(err, "failed to decode rows")
	}
	return nil
}

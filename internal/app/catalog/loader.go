// Package catalog loads playable queues from the configured playlists:
// the "listen now" playlist for the landing page, or the concatenation
// of every configured playlist.
package catalog

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/knakkis/bandbox/internal/app/queue"
	"github.com/knakkis/bandbox/internal/domain/track"
	"github.com/knakkis/bandbox/internal/infra/store"
	"github.com/knakkis/bandbox/internal/infra/youtube"
)

// Errors
var (
	ErrNoAPIKey    = errors.New("video API key is not configured")
	ErrNoListenNow = errors.New("no listen-now playlist configured")
	ErrNoPlaylists = errors.New("no playlists configured")
	ErrNoTracks    = errors.New("no tracks found")
)

// Loader materializes queues from the store's playlist references.
// Every failure leaves the queue exactly as it was: the queue is only
// touched once a complete track list is in hand.
type Loader struct {
	store *store.Client
	yt    *youtube.Client
	queue *queue.Manager

	mu       sync.Mutex
	settings *store.Settings // cached config_settings row
}

// NewLoader creates a new catalog loader.
func NewLoader(storeClient *store.Client, yt *youtube.Client, q *queue.Manager) *Loader {
	return &Loader{
		store: storeClient,
		yt:    yt,
		queue: q,
	}
}

// Settings returns the config_settings row, reading it from the store
// on first use.
func (l *Loader) Settings(ctx context.Context) (*store.Settings, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.settings != nil {
		cp := *l.settings
		return &cp, nil
	}

	s, err := l.store.Settings(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load settings")
	}
	l.settings = s

	cp := *s
	return &cp, nil
}

// InvalidateSettings drops the cached settings row. Called after the
// configuration panel saves new settings.
func (l *Loader) InvalidateSettings() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.settings = nil
}

// PlayListenNow loads the playlist flagged "listen now" and starts
// playing it from its first track.
func (l *Loader) PlayListenNow(ctx context.Context) error {
	apiKey, err := l.apiKey(ctx)
	if err != nil {
		return err
	}

	pl, err := l.store.ListenNow(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNoListenNow
		}
		return errors.Wrap(err, "failed to load listen-now playlist")
	}

	tracks, err := l.yt.PlaylistItems(ctx, pl.PlaylistID, apiKey)
	if err != nil {
		return errors.Wrapf(err, "failed to fetch playlist %s", pl.PlaylistID)
	}
	if len(tracks) == 0 {
		return ErrNoTracks
	}

	zlog.Info().Msgf("catalog: loaded listen-now playlist: name=%s tracks=%d", pl.Name, len(tracks))

	l.queue.ReplaceQueue(tracks)
	l.queue.SetPlaylist(pl)
	l.queue.PlayTrack(tracks[0])
	return nil
}

// PlayAllPlaylists concatenates every configured playlist, in playlist
// order, and starts playing from the first track. Playlists are
// fetched strictly one at a time to keep ordering deterministic.
func (l *Loader) PlayAllPlaylists(ctx context.Context) error {
	apiKey, err := l.apiKey(ctx)
	if err != nil {
		return err
	}

	playlists, err := l.store.Playlists(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to load playlists")
	}
	if len(playlists) == 0 {
		return ErrNoPlaylists
	}

	var all []track.Track
	for _, pl := range playlists {
		tracks, err := l.yt.PlaylistItems(ctx, pl.PlaylistID, apiKey)
		if err != nil {
			return errors.Wrapf(err, "failed to fetch playlist %s", pl.PlaylistID)
		}
		all = append(all, tracks...)
	}
	if len(all) == 0 {
		return ErrNoTracks
	}

	zlog.Info().Msgf("catalog: loaded all playlists: playlists=%d tracks=%d", len(playlists), len(all))

	l.queue.ReplaceQueue(all)
	l.queue.SetPlaylist(nil)
	l.queue.PlayTrack(all[0])
	return nil
}

func (l *Loader) apiKey(ctx context.Context) (string, error) {
	s, err := l.Settings(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrNoAPIKey
		}
		return "", err
	}
	if s.APIKey == "" {
		return "", ErrNoAPIKey
	}
	return s.APIKey, nil
}

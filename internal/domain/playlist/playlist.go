// Package playlist provides the Playlist domain entity.
package playlist

import "time"

// Playlist represents a playlist reference stored in the configuration
// panel. PlaylistID points at the external catalog; the core treats the
// whole record as read-only metadata attached to a queue.
type Playlist struct {
	ID          string    // Row ID
	Name        string    // Display name
	PlaylistID  string    // External catalog playlist reference
	IsListenNow bool      // Flagged for single-playlist playback from the landing page
	CreatedAt   time.Time // Insertion time, used for stable ordering
}

// ListenNow returns the first playlist flagged "listen now", or nil.
// At most one playlist carries the flag; the store caller maintains
// that invariant.
func ListenNow(playlists []Playlist) *Playlist {
	for i := range playlists {
		if playlists[i].IsListenNow {
			return &playlists[i]
		}
	}
	return nil
}

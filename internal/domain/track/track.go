// Package track provides the Track domain entity.
package track

// Track represents a single playable item backed by externally hosted
// video content. Tracks are immutable once fetched; identity is the
// catalog item ID, which is stable across loads of the same playlist.
type Track struct {
	ID        string // Catalog item ID (unique within a queue)
	Title     string // Track title
	VideoID   string // External video content reference
	Thumbnail string // Thumbnail URL
}

// Same reports whether two tracks refer to the same catalog item.
// Comparison is by ID only: the same conceptual track may arrive with
// different non-identity fields across fetches.
func (t Track) Same(other Track) bool {
	return t.ID == other.ID
}

// IndexOf returns the index of the track with the given ID in tracks,
// or -1 if absent.
func IndexOf(tracks []Track, id string) int {
	for i, t := range tracks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Package queue provides the play-queue state machine: the ordered
// queue, the current selection, shuffle state, and the playing flag.
package queue

import (
	"context"
	"math/rand"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/knakkis/bandbox/internal/domain/playlist"
	"github.com/knakkis/bandbox/internal/domain/track"
)

// Manager owns the single queue/selection/playing triple. Every
// component reads and writes it through these operations; transitions
// are atomic with respect to each other.
type Manager struct {
	mu sync.RWMutex

	tracks   []track.Track // Active queue (iterated for next/previous)
	original []track.Track // Pre-shuffle order, for reversible shuffle

	current  *track.Track
	playing  bool
	shuffled bool

	playlist *playlist.Playlist // Read-only metadata for the current queue

	rng *rand.Rand

	// Events
	eventCh chan Event
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager creates a new queue manager.
func NewManager() *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		tracks:   make([]track.Track, 0),
		original: make([]track.Track, 0),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		eventCh:  make(chan Event, 16),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Events returns the event channel.
func (m *Manager) Events() <-chan Event {
	return m.eventCh
}

// ReplaceQueue replaces both the active and original queue with tracks
// and clears shuffle. The selection is untouched unless the new queue is
// empty, in which case no track may stay selected and playing drops to
// false.
func (m *Manager) ReplaceQueue(tracks []track.Track) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := make([]track.Track, len(tracks))
	copy(next, tracks)

	m.tracks = next
	m.original = make([]track.Track, len(next))
	copy(m.original, next)
	m.shuffled = false

	if len(m.tracks) == 0 {
		m.current = nil
		m.playing = false
	}

	m.sendEventLocked(Event{Type: EventQueueReplaced, Track: m.currentCopyLocked(), Playing: m.playing})
}

// PlayTrack selects the given track and starts playing. The track need
// not be in the queue (explicit user selection from a listing).
func (m *Manager) PlayTrack(t track.Track) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = &t
	m.playing = true
	m.sendEventLocked(Event{Type: EventTrackChanged, Track: m.currentCopyLocked(), Playing: m.playing})
}

// PlayNext advances the selection to the next track, wrapping
// circularly. No-op if the queue is empty or nothing is selected.
func (m *Manager) PlayNext() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advanceLocked(+1)
}

// PlayPrevious moves the selection to the previous track, wrapping
// circularly. No-op if the queue is empty or nothing is selected.
func (m *Manager) PlayPrevious() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advanceLocked(-1)
}

// advanceLocked moves the selection by delta positions in the active
// queue. Lookup is by track ID: the selected value may have arrived
// from a different fetch than the queue entries.
// Must be called with lock held.
func (m *Manager) advanceLocked(delta int) {
	if len(m.tracks) == 0 || m.current == nil {
		return
	}

	idx := track.IndexOf(m.tracks, m.current.ID)
	if idx < 0 {
		return
	}

	n := len(m.tracks)
	next := m.tracks[((idx+delta)%n+n)%n]

	m.current = &next
	m.playing = true
	m.sendEventLocked(Event{Type: EventTrackChanged, Track: m.currentCopyLocked(), Playing: m.playing})
}

// ToggleShuffle flips shuffle state.
//
// On: the queue in effect before the toggle is saved as the original
// order, the current selection is pinned at index 0, and the remainder
// is uniformly permuted.
//
// Off: the active queue is restored from the saved original, except the
// current selection keeps the ordinal slot it occupies in the shuffled
// queue (removed from its original position and spliced in at the
// shuffled index). Keeping the visual queue position stable while
// unshuffling mid-playback is intentional.
func (m *Manager) ToggleShuffle() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.shuffled {
		saved := make([]track.Track, len(m.tracks))
		copy(saved, m.tracks)

		remaining := make([]track.Track, 0, len(m.tracks))
		for _, t := range m.tracks {
			if m.current != nil && t.ID == m.current.ID {
				continue
			}
			remaining = append(remaining, t)
		}
		m.shuffleLocked(remaining)

		next := make([]track.Track, 0, len(saved))
		if m.current != nil {
			next = append(next, *m.current)
		}
		next = append(next, remaining...)

		m.original = saved
		m.tracks = next
		m.shuffled = true
	} else {
		restored := make([]track.Track, len(m.original))
		copy(restored, m.original)

		if m.current != nil {
			shuffledIdx := track.IndexOf(m.tracks, m.current.ID)
			origIdx := track.IndexOf(restored, m.current.ID)
			if shuffledIdx >= 0 && origIdx >= 0 {
				restored = append(restored[:origIdx], restored[origIdx+1:]...)
				if shuffledIdx > len(restored) {
					shuffledIdx = len(restored)
				}
				restored = append(restored[:shuffledIdx], append([]track.Track{*m.current}, restored[shuffledIdx:]...)...)
			}
		}

		m.tracks = restored
		m.shuffled = false
	}

	zlog.Debug().Msgf("queue: shuffle toggled: shuffled=%v size=%d", m.shuffled, len(m.tracks))

	m.sendEventLocked(Event{Type: EventQueueReplaced, Track: m.currentCopyLocked(), Playing: m.playing})
}

// shuffleLocked applies a uniform random permutation in place
// (Fisher-Yates, backward pass, inclusive upper bound).
// Must be called with lock held.
func (m *Manager) shuffleLocked(tracks []track.Track) {
	for i := len(tracks) - 1; i > 0; i-- {
		j := m.rng.Intn(i + 1)
		tracks[i], tracks[j] = tracks[j], tracks[i]
	}
}

// SetPlaying sets the playing flag verbatim. The selection is untouched.
func (m *Manager) SetPlaying(playing bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.playing == playing {
		return
	}
	m.playing = playing
	m.sendEventLocked(Event{Type: EventPlayStateChanged, Track: m.currentCopyLocked(), Playing: m.playing})
}

// SetPlaylist attaches playlist metadata to the current queue. A nil
// playlist marks an aggregate (all-playlists) queue.
func (m *Manager) SetPlaylist(p *playlist.Playlist) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p == nil {
		m.playlist = nil
		return
	}
	cp := *p
	m.playlist = &cp
}

// CurrentPlaylist returns the playlist metadata attached to the queue,
// or nil for an aggregate queue.
func (m *Manager) CurrentPlaylist() *playlist.Playlist {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.playlist == nil {
		return nil
	}
	cp := *m.playlist
	return &cp
}

// Current returns the currently selected track.
func (m *Manager) Current() (*track.Track, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t := m.currentCopyLocked()
	return t, t != nil
}

// Snapshot returns the selection and the playing flag read together
// under the lock, so callers never observe a torn pair.
func (m *Manager) Snapshot() (*track.Track, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentCopyLocked(), m.playing
}

// IsPlaying returns the playing flag.
func (m *Manager) IsPlaying() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.playing
}

// IsShuffled returns true if the active queue is shuffled.
func (m *Manager) IsShuffled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.shuffled
}

// Size returns the number of tracks in the active queue.
func (m *Manager) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tracks)
}

// Tracks returns a copy of the active queue.
func (m *Manager) Tracks() []track.Track {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]track.Track, len(m.tracks))
	copy(result, m.tracks)
	return result
}

// OriginalTracks returns a copy of the saved pre-shuffle queue.
func (m *Manager) OriginalTracks() []track.Track {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]track.Track, len(m.original))
	copy(result, m.original)
	return result
}

// Close closes the manager and releases resources. Operations invoked
// after Close still mutate state but emit no events. Idempotent.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	m.cancel()
	close(m.eventCh)
}

// currentCopyLocked returns a copy of the current selection, or nil.
// Must be called with lock held.
func (m *Manager) currentCopyLocked() *track.Track {
	if m.current == nil {
		return nil
	}
	cp := *m.current
	return &cp
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (m *Manager) sendEventLocked(e Event) {
	if m.closed {
		return
	}
	select {
	case m.eventCh <- e:
	case <-m.ctx.Done():
	default:
		// Channel full, drop event
	}
}

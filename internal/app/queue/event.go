package queue

import "github.com/knakkis/bandbox/internal/domain/track"

// EventType represents a queue event type.
type EventType int

const (
	EventTrackChanged     EventType = iota // Selection moved to a different track
	EventPlayStateChanged                  // Playing flag flipped (selection unchanged)
	EventQueueReplaced                     // Queue contents or order replaced
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackChanged:
		return "track_changed"
	case EventPlayStateChanged:
		return "play_state_changed"
	case EventQueueReplaced:
		return "queue_replaced"
	default:
		return "unknown"
	}
}

// Event represents a queue state transition. Track and Playing are read
// together under the manager lock, so observers always see a consistent
// (track, playing) pair.
type Event struct {
	Type    EventType
	Track   *track.Track // Selection after the transition (nil if none)
	Playing bool         // Playing flag after the transition
}

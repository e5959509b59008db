package player

import "context"

// Widget is the narrow imperative surface of the external embeddable
// video player. Implementations live at the transport boundary; the
// controller never depends on construction or rendering details.
type Widget interface {
	// LoadVideo loads the given external content reference from the
	// given offset in seconds.
	LoadVideo(videoID string, startSeconds float64) error
	Play() error
	Pause() error
	Destroy() error
}

// EventType represents a widget notification type.
type EventType int

const (
	EventReady     EventType = iota // Widget instance reported ready
	EventPlaying                    // Playback started
	EventPaused                     // Playback paused
	EventBuffering                  // Buffering (no state change)
	EventEnded                      // Current content finished
	EventError                      // Playback error for the current content
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventReady:
		return "ready"
	case EventPlaying:
		return "playing"
	case EventPaused:
		return "paused"
	case EventBuffering:
		return "buffering"
	case EventEnded:
		return "ended"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event represents an asynchronous widget notification.
type Event struct {
	Type EventType
	Code int // Provider error code, set for EventError
}

// Loader produces a widget instance. Loading is asynchronous on the
// provider side (remote script, remote page); readiness is signaled as
// EventReady on the returned event stream.
type Loader interface {
	Load(ctx context.Context) (Widget, <-chan Event, error)
}

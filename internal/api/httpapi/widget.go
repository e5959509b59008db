package httpapi

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/knakkis/bandbox/internal/app/player"
)

// Embed player state codes reported by the widget's stateChange
// notifications.
const (
	stateEnded     = 0
	statePlaying   = 1
	statePaused    = 2
	stateBuffering = 3
)

// command is one imperative instruction for the in-browser widget,
// delivered on the command stream.
type command struct {
	Action       string  `json:"action"` // init, load, play, pause, destroy
	VideoID      string  `json:"videoId,omitempty"`
	StartSeconds float64 `json:"startSeconds,omitempty"`
}

// remoteWidget bridges the playback session controller to the embed
// widget running in the visitor's page: widget calls broadcast
// commands to connected pages, and notifications posted by the page
// surface on the event stream. It implements both player.Widget and
// player.Loader.
type remoteWidget struct {
	mu          sync.Mutex
	subscribers map[chan command]struct{}
	events      chan player.Event
}

func newRemoteWidget() *remoteWidget {
	return &remoteWidget{
		subscribers: make(map[chan command]struct{}),
		events:      make(chan player.Event, 16),
	}
}

// Load implements player.Loader. The bridge itself is always
// available; readiness arrives once a page connects, constructs the
// embed, and posts its ready notification.
func (w *remoteWidget) Load(_ context.Context) (player.Widget, <-chan player.Event, error) {
	w.broadcast(command{Action: "init"})
	return w, w.events, nil
}

func (w *remoteWidget) LoadVideo(videoID string, startSeconds float64) error {
	w.broadcast(command{Action: "load", VideoID: videoID, StartSeconds: startSeconds})
	return nil
}

func (w *remoteWidget) Play() error {
	w.broadcast(command{Action: "play"})
	return nil
}

func (w *remoteWidget) Pause() error {
	w.broadcast(command{Action: "pause"})
	return nil
}

func (w *remoteWidget) Destroy() error {
	w.broadcast(command{Action: "destroy"})
	return nil
}

// subscribe registers a connected page. The returned channel receives
// broadcast commands until unsubscribe.
func (w *remoteWidget) subscribe() chan command {
	ch := make(chan command, 16)
	w.mu.Lock()
	w.subscribers[ch] = struct{}{}
	w.mu.Unlock()
	return ch
}

func (w *remoteWidget) unsubscribe(ch chan command) {
	w.mu.Lock()
	delete(w.subscribers, ch)
	w.mu.Unlock()
}

// broadcast fans a command out to every connected page. With no page
// connected the command is dropped; the controller's guarded calls
// tolerate that.
func (w *remoteWidget) broadcast(cmd command) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.subscribers) == 0 {
		zlog.Debug().Msgf("httpapi: no page connected, dropping widget command: %s", cmd.Action)
		return
	}
	for ch := range w.subscribers {
		select {
		case ch <- cmd:
		default:
			// Slow page, drop rather than block the controller.
		}
	}
}

// widgetEventPayload is the loose JSON shape pages post to the event
// sink.
type widgetEventPayload struct {
	Event string `mapstructure:"event"` // ready, stateChange, error
	Data  int    `mapstructure:"data"`  // player state code for stateChange
	Code  int    `mapstructure:"code"`  // provider error code for error
}

// decodeWidgetEvent maps a posted notification onto a typed player
// event. Unknown notifications are rejected rather than guessed at.
func decodeWidgetEvent(raw map[string]any) (player.Event, error) {
	var payload widgetEventPayload
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &payload,
	})
	if err != nil {
		return player.Event{}, errors.Wrap(err, "failed to create event decoder")
	}
	if err := decoder.Decode(raw); err != nil {
		return player.Event{}, errors.Wrap(err, "failed to decode widget event")
	}

	switch payload.Event {
	case "ready":
		return player.Event{Type: player.EventReady}, nil
	case "error":
		return player.Event{Type: player.EventError, Code: payload.Code}, nil
	case "stateChange":
		switch payload.Data {
		case statePlaying:
			return player.Event{Type: player.EventPlaying}, nil
		case statePaused:
			return player.Event{Type: player.EventPaused}, nil
		case stateEnded:
			return player.Event{Type: player.EventEnded}, nil
		case stateBuffering:
			return player.Event{Type: player.EventBuffering}, nil
		default:
			return player.Event{}, errors.Newf("unknown player state: %d", payload.Data)
		}
	default:
		return player.Event{}, errors.Newf("unknown widget event: %q", payload.Event)
	}
}

// deliver pushes a decoded event to the session controller without
// blocking the HTTP handler.
func (w *remoteWidget) deliver(e player.Event) {
	select {
	case w.events <- e:
	default:
		zlog.Warn().Msgf("httpapi: widget event channel full, dropping %s", e.Type)
	}
}

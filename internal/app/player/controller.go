// Package player provides the playback session controller: it bridges
// the queue state machine to the external video widget and feeds the
// widget's asynchronous notifications back into the queue.
package player

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/knakkis/bandbox/internal/app/queue"
)

// Config holds controller configuration.
type Config struct {
	MaxRetries   int           // Widget load retries after the first attempt
	RetryDelay   time.Duration // Fixed delay between load attempts
	ReadyTimeout time.Duration // Bound on waiting for the ready notification
}

// Controller observes queue state and drives the widget to match. It is
// the only writer of widget commands; the queue manager stays the only
// owner of selection and play state.
type Controller struct {
	queue  *queue.Manager
	loader Loader
	init   *initializer

	widget Widget
	ready  bool
}

// NewController creates a new playback session controller.
func NewController(q *queue.Manager, loader Loader, cfg Config) *Controller {
	return &Controller{
		queue:  q,
		loader: loader,
		init:   newInitializer(loader, cfg),
	}
}

// InitState returns the widget initialization state.
func (c *Controller) InitState() InitState {
	return c.init.State()
}

// Run initializes the widget and processes queue and widget events
// until ctx is canceled. It returns ErrInit when the widget never
// loads; a widget that loads but never reports ready leaves the
// controller running degraded (playback actions become no-ops until a
// late ready notification arrives).
func (c *Controller) Run(ctx context.Context) error {
	w, widgetEvents, err := c.init.run(ctx)
	switch {
	case err == nil:
		c.widget = w
		c.ready = true
		c.applyCurrent()
	case errors.Is(err, ErrReadyTimeout):
		zlog.Warn().Msg("player: widget loaded but never reported ready; playback disabled")
		c.widget = w
	default:
		zlog.Error().Msgf("player: widget initialization failed: %v", err)
		return err
	}

	defer c.teardown()

	queueEvents := c.queue.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-queueEvents:
			if !ok {
				return nil
			}
			c.onQueueEvent(e)
		case e, ok := <-widgetEvents:
			if !ok {
				widgetEvents = nil
				continue
			}
			c.onWidgetEvent(e)
		}
	}
}

// onQueueEvent reacts to a queue transition. The (track, playing) pair
// is re-read from the manager rather than trusted from the event, so a
// burst of transitions always converges on the latest state.
func (c *Controller) onQueueEvent(e queue.Event) {
	switch e.Type {
	case queue.EventTrackChanged:
		c.applyCurrent()
	case queue.EventPlayStateChanged:
		_, playing := c.queue.Snapshot()
		if playing {
			c.callWidget("playVideo", func(w Widget) error { return w.Play() })
		} else {
			c.callWidget("pauseVideo", func(w Widget) error { return w.Pause() })
		}
	case queue.EventQueueReplaced:
		// Order changed, selection did not; nothing to drive.
	}
}

// onWidgetEvent consumes an asynchronous widget notification.
func (c *Controller) onWidgetEvent(e Event) {
	switch e.Type {
	case EventReady:
		// Late ready after a degraded start.
		if !c.ready {
			zlog.Info().Msg("player: widget ready")
			c.ready = true
			c.init.markReady()
			c.applyCurrent()
		}
	case EventPlaying:
		c.queue.SetPlaying(true)
	case EventPaused:
		c.queue.SetPlaying(false)
	case EventBuffering:
		// No state change.
	case EventEnded:
		c.queue.PlayNext()
	case EventError:
		zlog.Error().Msgf("player: widget error: code=%d", e.Code)
		c.queue.SetPlaying(false)
		// Skip the failing track rather than stall.
		c.queue.PlayNext()
	}
}

// applyCurrent loads the selected track into the widget from the start
// and matches the playing flag.
func (c *Controller) applyCurrent() {
	tr, playing := c.queue.Snapshot()
	if tr == nil || tr.VideoID == "" {
		return
	}

	c.callWidget("loadVideoById", func(w Widget) error { return w.LoadVideo(tr.VideoID, 0) })

	if playing {
		c.callWidget("playVideo", func(w Widget) error { return w.Play() })
	}
}

// callWidget guards every widget call: skipped while the widget is
// absent or not ready, and call failures are logged, never propagated.
func (c *Controller) callWidget(name string, fn func(Widget) error) {
	if c.widget == nil || !c.ready {
		return
	}
	if err := fn(c.widget); err != nil {
		zlog.Error().Msgf("player: widget call %s failed: %v", name, err)
	}
}

// teardown destroys the widget instance. Destruction failures are
// logged, never propagated.
func (c *Controller) teardown() {
	if c.widget == nil {
		return
	}
	if err := c.widget.Destroy(); err != nil {
		zlog.Error().Msgf("player: widget destroy failed: %v", err)
	}
	c.widget = nil
	c.ready = false
}

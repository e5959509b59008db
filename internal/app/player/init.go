package player

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// Errors
var (
	ErrInit         = errors.New("widget failed to initialize")
	ErrReadyTimeout = errors.New("widget ready signal timed out")
)

// InitState represents the widget initialization state.
type InitState int

const (
	InitIdle     InitState = iota // Not started
	InitRetrying                  // Attempt in progress (attempt counter tracks which)
	InitReady                     // Widget loaded and reported ready
	InitFailed                    // Gave up, or ready signal never arrived
)

// String returns the string representation of the state.
func (s InitState) String() string {
	switch s {
	case InitIdle:
		return "idle"
	case InitRetrying:
		return "retrying"
	case InitReady:
		return "ready"
	case InitFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// initializer drives widget loading as a small explicit state machine:
// Idle -> Retrying(n) -> Ready | Failed. Pending delays are cancelable
// through the context.
type initializer struct {
	loader       Loader
	maxRetries   int
	retryDelay   time.Duration
	readyTimeout time.Duration

	mu      sync.Mutex
	state   InitState
	attempt int
}

func newInitializer(loader Loader, cfg Config) *initializer {
	return &initializer{
		loader:       loader,
		maxRetries:   cfg.MaxRetries,
		retryDelay:   cfg.RetryDelay,
		readyTimeout: cfg.ReadyTimeout,
		state:        InitIdle,
	}
}

// State returns the current initialization state.
func (i *initializer) State() InitState {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// markReady records a ready signal observed after run already returned
// degraded, so State agrees with the session actually driving the
// widget.
func (i *initializer) markReady() {
	i.mu.Lock()
	i.state = InitReady
	i.mu.Unlock()
}

func (i *initializer) setState(s InitState, attempt int) {
	i.mu.Lock()
	i.state = s
	i.attempt = attempt
	i.mu.Unlock()
}

// run attempts to load the widget, retrying failed loads up to
// maxRetries times with a fixed delay. A load that succeeds but never
// reports ready within readyTimeout returns the widget together with
// ErrReadyTimeout: the caller stays degraded but may still observe a
// late ready notification on the event stream.
func (i *initializer) run(ctx context.Context) (Widget, <-chan Event, error) {
	for attempt := 0; ; attempt++ {
		i.setState(InitRetrying, attempt)
		if attempt > 0 {
			zlog.Info().Msgf("player: retrying widget initialization (attempt %d/%d)", attempt, i.maxRetries)
		}

		w, events, err := i.loader.Load(ctx)
		if err == nil {
			if werr := i.awaitReady(ctx, events); werr != nil {
				i.setState(InitFailed, attempt)
				return w, events, werr
			}
			i.setState(InitReady, attempt)
			return w, events, nil
		}

		if ctx.Err() != nil {
			i.setState(InitFailed, attempt)
			return nil, nil, errors.Wrap(ctx.Err(), "widget initialization canceled")
		}

		zlog.Warn().Msgf("player: widget load failed: %v", err)

		if attempt >= i.maxRetries {
			i.setState(InitFailed, attempt)
			return nil, nil, errors.WithDetailf(ErrInit, "gave up after %d retries", i.maxRetries)
		}

		select {
		case <-time.After(i.retryDelay):
		case <-ctx.Done():
			i.setState(InitFailed, attempt)
			return nil, nil, errors.Wrap(ctx.Err(), "widget initialization canceled")
		}
	}
}

// awaitReady consumes the event stream until the ready notification
// arrives or the bounded timeout elapses.
func (i *initializer) awaitReady(ctx context.Context, events <-chan Event) error {
	timer := time.NewTimer(i.readyTimeout)
	defer timer.Stop()

	for {
		select {
		case e, ok := <-events:
			if !ok {
				return ErrReadyTimeout
			}
			if e.Type == EventReady {
				return nil
			}
			// Pre-ready notifications carry no state; drop them.
		case <-timer.C:
			return ErrReadyTimeout
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "widget initialization canceled")
		}
	}
}

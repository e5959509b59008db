package player

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knakkis/bandbox/internal/app/queue"
	"github.com/knakkis/bandbox/internal/domain/track"
)

type fakeWidget struct {
	mu         sync.Mutex
	calls      []string
	loadErr    error
	destroyErr error
	destroyed  bool
}

func (w *fakeWidget) record(call string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, call)
}

func (w *fakeWidget) LoadVideo(videoID string, startSeconds float64) error {
	w.record("load:" + videoID)
	return w.loadErr
}

func (w *fakeWidget) Play() error {
	w.record("play")
	return nil
}

func (w *fakeWidget) Pause() error {
	w.record("pause")
	return nil
}

func (w *fakeWidget) Destroy() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.destroyed = true
	return w.destroyErr
}

func (w *fakeWidget) callList() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	result := make([]string, len(w.calls))
	copy(result, w.calls)
	return result
}

func (w *fakeWidget) wasDestroyed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.destroyed
}

type fakeLoader struct {
	mu       sync.Mutex
	widget   *fakeWidget
	events   chan Event
	failures int // Load calls to fail before succeeding
	loads    int
	silent   bool // do not emit ready on load
}

func newFakeLoader(failures int) *fakeLoader {
	return &fakeLoader{
		widget:   &fakeWidget{},
		events:   make(chan Event, 16),
		failures: failures,
	}
}

func (l *fakeLoader) Load(ctx context.Context) (Widget, <-chan Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.loads++
	if l.loads <= l.failures {
		return nil, nil, errors.New("script load failed")
	}
	if !l.silent {
		l.events <- Event{Type: EventReady}
	}
	return l.widget, l.events, nil
}

func (l *fakeLoader) loadCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads
}

func testConfig() Config {
	return Config{
		MaxRetries:   3,
		RetryDelay:   5 * time.Millisecond,
		ReadyTimeout: 100 * time.Millisecond,
	}
}

func startController(t *testing.T, q *queue.Manager, loader Loader) (*Controller, context.CancelFunc, chan error) {
	t.Helper()

	c := NewController(q, loader, testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	return c, cancel, done
}

func TestController_LoadsSelectedTrack(t *testing.T) {
	q := queue.NewManager()
	defer q.Close()

	loader := newFakeLoader(0)
	_, cancel, done := startController(t, q, loader)
	defer cancel()

	tracks := []track.Track{
		{ID: "a", VideoID: "vid-a"},
		{ID: "b", VideoID: "vid-b"},
	}
	q.ReplaceQueue(tracks)
	q.PlayTrack(tracks[0])

	require.Eventually(t, func() bool {
		calls := loader.widget.callList()
		return len(calls) >= 2 && calls[0] == "load:vid-a" && calls[1] == "play"
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.True(t, loader.widget.wasDestroyed())
}

func TestController_PlayPauseFollowsFlag(t *testing.T) {
	q := queue.NewManager()
	defer q.Close()

	loader := newFakeLoader(0)
	_, cancel, _ := startController(t, q, loader)
	defer cancel()

	tracks := []track.Track{{ID: "a", VideoID: "vid-a"}}
	q.ReplaceQueue(tracks)
	q.PlayTrack(tracks[0])

	require.Eventually(t, func() bool {
		return len(loader.widget.callList()) >= 2
	}, time.Second, 5*time.Millisecond)

	q.SetPlaying(false)
	require.Eventually(t, func() bool {
		calls := loader.widget.callList()
		return len(calls) > 0 && calls[len(calls)-1] == "pause"
	}, time.Second, 5*time.Millisecond)

	q.SetPlaying(true)
	require.Eventually(t, func() bool {
		calls := loader.widget.callList()
		return len(calls) > 0 && calls[len(calls)-1] == "play"
	}, time.Second, 5*time.Millisecond)
}

func TestController_EndedAdvancesAndWraps(t *testing.T) {
	// Ended on the last track of a 5-track queue selects index 0 and
	// keeps playing.
	q := queue.NewManager()
	defer q.Close()

	loader := newFakeLoader(0)
	_, cancel, _ := startController(t, q, loader)
	defer cancel()

	tracks := []track.Track{
		{ID: "a", VideoID: "vid-a"},
		{ID: "b", VideoID: "vid-b"},
		{ID: "c", VideoID: "vid-c"},
		{ID: "d", VideoID: "vid-d"},
		{ID: "e", VideoID: "vid-e"},
	}
	q.ReplaceQueue(tracks)
	q.PlayTrack(tracks[4])

	require.Eventually(t, func() bool {
		return len(loader.widget.callList()) >= 2
	}, time.Second, 5*time.Millisecond)

	loader.events <- Event{Type: EventEnded}

	require.Eventually(t, func() bool {
		cur, ok := q.Current()
		return ok && cur.ID == "a"
	}, time.Second, 5*time.Millisecond)
	assert.True(t, q.IsPlaying())

	require.Eventually(t, func() bool {
		calls := loader.widget.callList()
		for _, call := range calls {
			if call == "load:vid-a" {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
}

func TestController_ErrorSkipsFailingTrack(t *testing.T) {
	q := queue.NewManager()
	defer q.Close()

	loader := newFakeLoader(0)
	_, cancel, _ := startController(t, q, loader)
	defer cancel()

	tracks := []track.Track{
		{ID: "a", VideoID: "vid-a"},
		{ID: "b", VideoID: "vid-b"},
	}
	q.ReplaceQueue(tracks)
	q.PlayTrack(tracks[0])

	require.Eventually(t, func() bool {
		return len(loader.widget.callList()) >= 2
	}, time.Second, 5*time.Millisecond)

	loader.events <- Event{Type: EventError, Code: 150}

	require.Eventually(t, func() bool {
		cur, ok := q.Current()
		return ok && cur.ID == "b"
	}, time.Second, 5*time.Millisecond)
	assert.True(t, q.IsPlaying())
}

func TestController_WidgetStateFeedsQueue(t *testing.T) {
	q := queue.NewManager()
	defer q.Close()

	loader := newFakeLoader(0)
	_, cancel, _ := startController(t, q, loader)
	defer cancel()

	tracks := []track.Track{{ID: "a", VideoID: "vid-a"}}
	q.ReplaceQueue(tracks)
	q.PlayTrack(tracks[0])

	loader.events <- Event{Type: EventPaused}
	require.Eventually(t, func() bool {
		return !q.IsPlaying()
	}, time.Second, 5*time.Millisecond)

	loader.events <- Event{Type: EventPlaying}
	require.Eventually(t, func() bool {
		return q.IsPlaying()
	}, time.Second, 5*time.Millisecond)

	// Buffering carries no state change.
	loader.events <- Event{Type: EventBuffering}
	time.Sleep(20 * time.Millisecond)
	assert.True(t, q.IsPlaying())
}

func TestController_RetriesThenSucceeds(t *testing.T) {
	q := queue.NewManager()
	defer q.Close()

	loader := newFakeLoader(2)
	c, cancel, _ := startController(t, q, loader)
	defer cancel()

	require.Eventually(t, func() bool {
		return c.InitState() == InitReady
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 3, loader.loadCount())
}

func TestController_GivesUpAfterRetries(t *testing.T) {
	q := queue.NewManager()
	defer q.Close()

	loader := newFakeLoader(10)
	c, cancel, done := startController(t, q, loader)
	defer cancel()

	err := <-done
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInit))
	assert.Equal(t, InitFailed, c.InitState())
	assert.Equal(t, 4, loader.loadCount()) // first attempt + 3 retries
}

func TestController_ReadyTimeoutDegrades(t *testing.T) {
	q := queue.NewManager()
	defer q.Close()

	loader := newFakeLoader(0)
	loader.silent = true
	c, cancel, done := startController(t, q, loader)
	defer cancel()

	require.Eventually(t, func() bool {
		return c.InitState() == InitFailed
	}, time.Second, 5*time.Millisecond)

	// Playback actions are no-ops while degraded.
	tracks := []track.Track{{ID: "a", VideoID: "vid-a"}}
	q.ReplaceQueue(tracks)
	q.PlayTrack(tracks[0])
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, loader.widget.callList())

	// A late ready notification recovers the session.
	loader.events <- Event{Type: EventReady}
	require.Eventually(t, func() bool {
		calls := loader.widget.callList()
		return len(calls) >= 2 && calls[0] == "load:vid-a" && calls[1] == "play"
	}, time.Second, 5*time.Millisecond)

	// State reporting recovers with it.
	require.Eventually(t, func() bool {
		return c.InitState() == InitReady
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestController_WidgetCallFailureIsContained(t *testing.T) {
	q := queue.NewManager()
	defer q.Close()

	loader := newFakeLoader(0)
	loader.widget.loadErr = errors.New("embed gone")
	_, cancel, done := startController(t, q, loader)
	defer cancel()

	tracks := []track.Track{{ID: "a", VideoID: "vid-a"}}
	q.ReplaceQueue(tracks)
	q.PlayTrack(tracks[0])

	require.Eventually(t, func() bool {
		return len(loader.widget.callList()) >= 1
	}, time.Second, 5*time.Millisecond)

	// The session keeps running after the failed call.
	cancel()
	require.NoError(t, <-done)
}

func TestController_DestroyFailureIsSwallowed(t *testing.T) {
	q := queue.NewManager()
	defer q.Close()

	loader := newFakeLoader(0)
	loader.widget.destroyErr = errors.New("already gone")
	_, cancel, done := startController(t, q, loader)

	require.Eventually(t, func() bool {
		return loader.loadCount() == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.True(t, loader.widget.wasDestroyed())
}

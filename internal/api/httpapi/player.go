package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/knakkis/bandbox/internal/app/catalog"
	"github.com/knakkis/bandbox/internal/domain/track"
)

func (s *Server) handlePlayListenNow(w http.ResponseWriter, r *http.Request) {
	if err := s.loader.PlayListenNow(r.Context()); err != nil {
		writeCatalogError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePlayAll(w http.ResponseWriter, r *http.Request) {
	if err := s.loader.PlayAllPlaylists(r.Context()); err != nil {
		writeCatalogError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePlayTrack(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID        string `json:"id"`
		Title     string `json:"title"`
		VideoID   string `json:"videoId"`
		Thumbnail string `json:"thumbnail"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.ID == "" || body.VideoID == "" {
		writeError(w, http.StatusBadRequest, "id and videoId are required")
		return
	}

	s.queue.PlayTrack(track.Track{
		ID:        body.ID,
		Title:     body.Title,
		VideoID:   body.VideoID,
		Thumbnail: body.Thumbnail,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	s.queue.PlayNext()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePrevious(w http.ResponseWriter, r *http.Request) {
	s.queue.PlayPrevious()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleShuffle(w http.ResponseWriter, r *http.Request) {
	s.queue.ToggleShuffle()
	writeJSON(w, http.StatusOK, map[string]any{"shuffled": s.queue.IsShuffled()})
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	s.queue.SetPlaying(true)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.queue.SetPlaying(false)
	w.WriteHeader(http.StatusNoContent)
}

// trackJSON is the wire shape of a track.
type trackJSON struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	VideoID   string `json:"videoId"`
	Thumbnail string `json:"thumbnail"`
}

func toTrackJSON(t track.Track) trackJSON {
	return trackJSON{ID: t.ID, Title: t.Title, VideoID: t.VideoID, Thumbnail: t.Thumbnail}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	cur, playing := s.queue.Snapshot()

	state := map[string]any{
		"playing":  playing,
		"shuffled": s.queue.IsShuffled(),
		"queueLen": s.queue.Size(),
	}
	if cur != nil {
		state["track"] = toTrackJSON(*cur)
	}
	if pl := s.queue.CurrentPlaylist(); pl != nil {
		state["playlist"] = map[string]any{"id": pl.ID, "name": pl.Name}
	}

	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	tracks := s.queue.Tracks()
	out := make([]trackJSON, len(tracks))
	for i, t := range tracks {
		out[i] = toTrackJSON(t)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleCommands streams widget commands to a connected page as
// newline-delimited JSON. The stream stays open until the page
// disconnects.
func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ch := s.widget.subscribe()
	defer s.widget.unsubscribe(ch)

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	encoder := json.NewEncoder(w)
	for {
		select {
		case <-r.Context().Done():
			return
		case cmd := <-ch:
			if err := encoder.Encode(cmd); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// handleWidgetEvents is the sink for notifications posted by the page
// hosting the embed widget.
func (s *Server) handleWidgetEvents(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	e, err := decodeWidgetEvent(raw)
	if err != nil {
		zlog.Warn().Msgf("httpapi: rejected widget event: %v", err)
		writeError(w, http.StatusBadRequest, "unrecognized widget event")
		return
	}

	s.widget.deliver(e)
	w.WriteHeader(http.StatusAccepted)
}

// writeCatalogError maps load failures onto responses. Playback keeps
// its non-crashing containment guarantee: a failed load changes
// nothing.
func writeCatalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrNoAPIKey),
		errors.Is(err, catalog.ErrNoListenNow),
		errors.Is(err, catalog.ErrNoPlaylists),
		errors.Is(err, catalog.ErrNoTracks):
		writeError(w, http.StatusConflict, err.Error())
	default:
		zlog.Error().Msgf("httpapi: catalog load failed: %v", err)
		writeError(w, http.StatusBadGateway, "catalog load failed")
	}
}

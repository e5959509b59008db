// Package httpapi provides the JSON HTTP surface: sign-in for the
// configuration panel, settings and playlist CRUD, player controls,
// and the bridge to the in-browser embed widget.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/knakkis/bandbox/internal/app/catalog"
	"github.com/knakkis/bandbox/internal/app/queue"
	"github.com/knakkis/bandbox/internal/domain/playlist"
	"github.com/knakkis/bandbox/internal/infra/auth"
	"github.com/knakkis/bandbox/internal/infra/store"
)

// Server holds the API handlers and their collaborators.
type Server struct {
	queue   *queue.Manager
	loader  *catalog.Loader
	store   *store.Client
	auth    *auth.Client
	current *auth.CurrentUser
	widget  *remoteWidget
}

// NewServer creates the API server. The returned widget bridge is the
// player.Loader to run the session controller against.
func NewServer(q *queue.Manager, loader *catalog.Loader, storeClient *store.Client, authClient *auth.Client) *Server {
	return &Server{
		queue:   q,
		loader:  loader,
		store:   storeClient,
		auth:    authClient,
		current: auth.NewCurrentUser(),
		widget:  newRemoteWidget(),
	}
}

// WidgetLoader returns the bridge the playback session controller
// loads its widget through.
func (s *Server) WidgetLoader() *remoteWidget {
	return s.widget
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)

	mux.HandleFunc("GET /api/settings", s.requireAuth(s.handleGetSettings))
	mux.HandleFunc("PUT /api/settings", s.requireAuth(s.handleSaveSettings))
	mux.HandleFunc("GET /api/playlists", s.requireAuth(s.handleListPlaylists))
	mux.HandleFunc("POST /api/playlists", s.requireAuth(s.handleAddPlaylist))
	mux.HandleFunc("DELETE /api/playlists/{id}", s.requireAuth(s.handleRemovePlaylist))
	mux.HandleFunc("POST /api/playlists/{id}/listen-now", s.requireAuth(s.handleSetListenNow))

	mux.HandleFunc("POST /api/player/listen-now", s.handlePlayListenNow)
	mux.HandleFunc("POST /api/player/all", s.handlePlayAll)
	mux.HandleFunc("POST /api/player/track", s.handlePlayTrack)
	mux.HandleFunc("POST /api/player/next", s.handleNext)
	mux.HandleFunc("POST /api/player/previous", s.handlePrevious)
	mux.HandleFunc("POST /api/player/shuffle", s.handleShuffle)
	mux.HandleFunc("POST /api/player/play", s.handlePlay)
	mux.HandleFunc("POST /api/player/pause", s.handlePause)
	mux.HandleFunc("GET /api/player/state", s.handleState)
	mux.HandleFunc("GET /api/player/queue", s.handleQueue)

	mux.HandleFunc("GET /api/player/commands", s.handleCommands)
	mux.HandleFunc("POST /api/player/events", s.handleWidgetEvents)

	return mux
}

// requireAuth guards the configuration panel routes: the bearer token
// must match the signed-in session.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := s.current.Get()
		if session == nil {
			writeError(w, http.StatusUnauthorized, "not signed in")
			return
		}
		if bearerToken(r) != session.Token.AccessToken {
			writeError(w, http.StatusUnauthorized, "invalid session token")
			return
		}
		next(w, r)
	}
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := s.auth.SignIn(r.Context(), creds.Email, creds.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		zlog.Error().Msgf("httpapi: sign-in failed: %v", err)
		writeError(w, http.StatusBadGateway, "identity provider unavailable")
		return
	}

	s.current.Set(session)
	s.store.SetAuthToken(session.Token.AccessToken)

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": session.Token.AccessToken,
		"email":        session.Email,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if session := s.current.Get(); session != nil {
		// The local session ends regardless of the provider call.
		if err := s.auth.SignOut(r.Context(), session.Token.AccessToken); err != nil {
			zlog.Warn().Msgf("httpapi: sign-out failed: %v", err)
		}
	}
	s.current.Set(nil)
	s.store.SetAuthToken("")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.loader.Settings(r.Context())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusOK, store.Settings{})
			return
		}
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var settings store.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.store.SaveSettings(r.Context(), settings); err != nil {
		writeStoreError(w, err)
		return
	}
	s.loader.InvalidateSettings()
	w.WriteHeader(http.StatusNoContent)
}

// playlistJSON is the wire shape of a playlist reference.
type playlistJSON struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	PlaylistID  string    `json:"playlist_id"`
	IsListenNow bool      `json:"is_listen_now"`
	CreatedAt   time.Time `json:"created_at"`
}

func toPlaylistJSON(p playlist.Playlist) playlistJSON {
	return playlistJSON{
		ID:          p.ID,
		Name:        p.Name,
		PlaylistID:  p.PlaylistID,
		IsListenNow: p.IsListenNow,
		CreatedAt:   p.CreatedAt,
	}
}

func (s *Server) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	playlists, err := s.store.Playlists(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}

	out := make([]playlistJSON, len(playlists))
	for i, p := range playlists {
		out[i] = toPlaylistJSON(p)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddPlaylist(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name       string `json:"name"`
		PlaylistID string `json:"playlist_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Name == "" || body.PlaylistID == "" {
		writeError(w, http.StatusBadRequest, "name and playlist_id are required")
		return
	}

	p, err := s.store.AddPlaylist(r.Context(), body.Name, body.PlaylistID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlaylistJSON(*p))
}

func (s *Server) handleRemovePlaylist(w http.ResponseWriter, r *http.Request) {
	if err := s.store.RemovePlaylist(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetListenNow(w http.ResponseWriter, r *http.Request) {
	if err := s.store.SetListenNow(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zlog.Error().Msgf("httpapi: failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"code": status, "message": message})
}

// writeStoreError reports a persistence failure without reflecting any
// partial write locally.
func writeStoreError(w http.ResponseWriter, err error) {
	zlog.Error().Msgf("httpapi: store request failed: %v", err)

	var statusErr *store.StatusError
	if errors.As(err, &statusErr) {
		writeError(w, http.StatusBadGateway, "store request failed")
		return
	}
	writeError(w, http.StatusInternalServerError, "internal error")
}

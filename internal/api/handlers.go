package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pbaille/divino/internal/domain"
	domainerrors "github.com/pbaille/divino/internal/errors"
	"github.com/pbaille/divino/internal/navigation"
	"github.com/pbaille/divino/internal/ranking"
)

// MenuRequest is the body of POST /sessions/{id}/menu
type MenuRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// SearchRequest is the body of POST /sessions/{id}/search
type SearchRequest struct {
	Query string `json:"query" validate:"required,max=200"`
}

// WineRequest names a wine on screen or in the cellar
type WineRequest struct {
	WineID string `json:"wine_id" validate:"required"`
}

// FavoriteRequest toggles a wine; an empty id means the selected wine
type FavoriteRequest struct {
	WineID string `json:"wine_id,omitempty"`
}

// AskRequest is the body of POST /sessions/{id}/ask
type AskRequest struct {
	Question string `json:"question" validate:"required,max=500"`
}

// AskResponse carries the sommelier's reply
type AskResponse struct {
	Answer string `json:"answer"`
}

// FavoriteResponse reports the membership after a toggle
type FavoriteResponse struct {
	InCellar bool        `json:"in_cellar"`
	Session  SessionView `json:"session"`
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Sessions: s.sessions.Len()}, s.logger)
}

func (s *Server) handleListCellar(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, cellarViews(s.cellar), s.logger)
}

func (s *Server) handleListRecent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.recent.List(), s.logger)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Create()
	if err != nil {
		handleError(w, err, s.logger)
		return
	}
	writeJSON(w, http.StatusCreated, newSessionView(sess.ID(), sess.State(), s.cellar, ranking.DefaultSortMode), s.logger)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.respond(w, r, sess, sess.State(), nil)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "id")
	if !s.sessions.Delete(sid) {
		handleError(w, domainerrors.NotFoundf("session %s not found", sid), s.logger)
		return
	}
	if s.limiter != nil {
		s.limiter.Forget(sid)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		handleError(w, domainerrors.Validation("invalid multipart form"), s.logger)
		return
	}
	mode, err := domain.ParseScanMode(r.FormValue("mode"))
	if err != nil {
		handleError(w, domainerrors.ValidationWithDetails("validation failed", map[string]string{"mode": "must be one of: bottle menu wall"}), s.logger)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		handleError(w, domainerrors.ValidationWithDetails("validation failed", map[string]string{"image": "is required"}), s.logger)
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		handleError(w, domainerrors.Validation("unreadable image"), s.logger)
		return
	}

	state, err := sess.Scan(r.Context(), image, header.Header.Get("Content-Type"), mode)
	s.respond(w, r, sess, state, err)
}

func (s *Server) handleMenu(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req MenuRequest
	if !s.decode(w, r, &req) {
		return
	}
	state, err := sess.ImportMenu(r.Context(), req.URL)
	s.respond(w, r, sess, state, err)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req SearchRequest
	if !s.decode(w, r, &req) {
		return
	}
	state, err := sess.Search(r.Context(), req.Query)
	s.respond(w, r, sess, state, err)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req WineRequest
	if !s.decode(w, r, &req) {
		return
	}
	state, err := sess.Select(req.WineID)
	s.respond(w, r, sess, state, err)
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	s.navigate(w, r, (*navigation.Session).Back)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.navigate(w, r, (*navigation.Session).Home)
}

func (s *Server) handleCellar(w http.ResponseWriter, r *http.Request) {
	s.navigate(w, r, (*navigation.Session).ShowCellar)
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.respond(w, r, sess, sess.DismissError(), nil)
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	state, err := sess.Similar(r.Context())
	s.respond(w, r, sess, state, err)
}

func (s *Server) handleFavorite(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req FavoriteRequest
	if r.ContentLength != 0 && !s.decode(w, r, &req) {
		return
	}

	inCellar, err := sess.ToggleFavorite(r.Context(), req.WineID)
	if err != nil {
		var domainErr *domainerrors.Error
		if !errors.As(err, &domainErr) {
			err = domainerrors.Wrap(err, domainerrors.CodeInternal, "cellar update failed")
		}
		handleError(w, err, s.logger)
		return
	}
	writeJSON(w, http.StatusOK, FavoriteResponse{
		InCellar: inCellar,
		Session:  newSessionView(sess.ID(), sess.State(), s.cellar, sortMode(r)),
	}, s.logger)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req AskRequest
	if !s.decode(w, r, &req) {
		return
	}
	answer, err := sess.Ask(r.Context(), req.Question)
	if err != nil {
		handleError(w, err, s.logger)
		return
	}
	writeJSON(w, http.StatusOK, AskResponse{Answer: answer}, s.logger)
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req WineRequest
	if !s.decode(w, r, &req) {
		return
	}
	state, err := sess.GenerateImage(r.Context(), req.WineID)
	s.respond(w, r, sess, state, err)
}

func (s *Server) navigate(w http.ResponseWriter, r *http.Request, move func(*navigation.Session) (navigation.Context, error)) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	state, err := move(sess)
	s.respond(w, r, sess, state, err)
}

// session resolves the {id} path parameter, writing 404 when unknown
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*navigation.Session, bool) {
	sid := chi.URLParam(r, "id")
	sess, ok := s.sessions.Get(sid)
	if !ok {
		handleError(w, domainerrors.NotFoundf("session %s not found", sid), s.logger)
		return nil, false
	}
	return sess, true
}

// decode reads a JSON body into dst and validates it
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		handleError(w, domainerrors.Validation("invalid request body"), s.logger)
		return false
	}
	if err := s.validator.Validate(dst); err != nil {
		handleError(w, err, s.logger)
		return false
	}
	return true
}

// respond writes the session view, or the error when the intent was refused
func (s *Server) respond(w http.ResponseWriter, r *http.Request, sess *navigation.Session, state navigation.Context, err error) {
	if err != nil {
		handleError(w, err, s.logger)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(sess.ID(), state, s.cellar, sortMode(r)), s.logger)
}

// sortMode reads ?sort=, falling back to the default on bad input
func sortMode(r *http.Request) ranking.SortMode {
	mode, err := ranking.ParseSortMode(r.URL.Query().Get("sort"))
	if err != nil {
		return ranking.DefaultSortMode
	}
	return mode
}

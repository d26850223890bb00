package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/topicnav/internal/navigator"
	"github.com/ethpandaops/topicnav/internal/playback"
	"github.com/ethpandaops/topicnav/internal/session"
	"github.com/ethpandaops/topicnav/internal/timestamp"
)

// SelectionRequest is the body of a selection update.
type SelectionRequest struct {
	Selected   bool `json:"selected"`
	Subscribed bool `json:"subscribed"`
}

// SessionsHandler serves the session-scoped navigation endpoints.
type SessionsHandler struct {
	manager session.Manager
	logger  logrus.FieldLogger
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(manager session.Manager, logger logrus.FieldLogger) *SessionsHandler {
	return &SessionsHandler{
		manager: manager,
		logger:  logger.WithField("handler", "sessions"),
	}
}

// Create handles POST /api/v1/sessions.
func (h *SessionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	s, err := h.manager.Create(r.Context())
	if err != nil {
		h.writeSessionError(w, err)

		return
	}

	h.logger.WithField("session", s.ID()).Debug("Created session")

	writeJSON(w, h.logger, http.StatusCreated, s.Info())
}

// Get handles GET /api/v1/sessions/{id}.
func (h *SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	writeJSON(w, h.logger, http.StatusOK, s.Info())
}

// Delete handles DELETE /api/v1/sessions/{id}.
func (h *SessionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Delete(r.Context(), r.PathValue("id")); err != nil {
		// The session is gone either way once Delete returns.
		if !errors.Is(err, session.ErrSessionNotFound) {
			h.logger.WithError(err).WithField("session", r.PathValue("id")).Warn("Session closed with errors")
			w.WriteHeader(http.StatusNoContent)

			return
		}

		h.writeSessionError(w, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Seek handles POST /api/v1/sessions/{id}/seek with a {sec, nsec} body.
func (h *SessionsHandler) Seek(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var target timestamp.Time
	if err := decodeBody(r, w, &target); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid seek request: "+err.Error())

		return
	}

	if !target.IsValid() {
		writeError(w, h.logger, http.StatusBadRequest, "nsec must be within [0, 1e9)")

		return
	}

	if err := s.Seek(target); err != nil {
		h.writeSessionError(w, err)

		return
	}

	writeJSON(w, h.logger, http.StatusOK, s.Info())
}

// Selection handles PUT /api/v1/sessions/{id}/selection/{topic...}.
func (h *SessionsHandler) Selection(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	if err := decodeBody(r, w, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid selection request: "+err.Error())

		return
	}

	h.serveState(w, r, func(s *session.Session, ctx context.Context, topic string) (navigator.State, error) {
		return s.SetSelection(ctx, topic, req.Selected, req.Subscribed)
	})
}

// Next handles POST /api/v1/sessions/{id}/next/{topic...}.
func (h *SessionsHandler) Next(w http.ResponseWriter, r *http.Request) {
	h.serveState(w, r, (*session.Session).Next)
}

// Previous handles POST /api/v1/sessions/{id}/previous/{topic...}.
func (h *SessionsHandler) Previous(w http.ResponseWriter, r *http.Request) {
	h.serveState(w, r, (*session.Session).Previous)
}

// State handles GET /api/v1/sessions/{id}/state/{topic...}.
func (h *SessionsHandler) State(w http.ResponseWriter, r *http.Request) {
	h.serveState(w, r, (*session.Session).State)
}

func (h *SessionsHandler) serveState(
	w http.ResponseWriter,
	r *http.Request,
	op func(s *session.Session, ctx context.Context, topic string) (navigator.State, error),
) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	state, err := op(s, r.Context(), topicParam(r))
	if err != nil {
		h.writeSessionError(w, err)

		return
	}

	writeJSON(w, h.logger, http.StatusOK, state)
}

func (h *SessionsHandler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.manager.Get(r.PathValue("id"))
	if err != nil {
		h.writeSessionError(w, err)

		return nil, false
	}

	return s, true
}

func (h *SessionsHandler) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrSessionClosed):
		writeError(w, h.logger, http.StatusNotFound, session.ErrSessionNotFound.Error())
	case errors.Is(err, session.ErrTopicNotFound):
		writeError(w, h.logger, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrTooManySessions):
		writeError(w, h.logger, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, playback.ErrSeekOutOfRange):
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
	default:
		h.logger.WithError(err).Error("Session request failed")
		writeError(w, h.logger, http.StatusInternalServerError, "internal server error")
	}
}

// topicParam returns the unescaped topic of the route. Topic names starting
// with a slash arrive escaped, as in /next/%2Fcamera.
func topicParam(r *http.Request) string {
	return r.PathValue("topic")
}

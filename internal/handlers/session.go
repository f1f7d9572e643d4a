package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jwebster45206/novel-engine/pkg/engine"
	"github.com/jwebster45206/novel-engine/pkg/reveal"
	"github.com/jwebster45206/novel-engine/pkg/session"
	"github.com/jwebster45206/novel-engine/pkg/state"
	"github.com/jwebster45206/novel-engine/pkg/storage"
	"github.com/jwebster45206/novel-engine/pkg/story"
)

// SessionHandler runs playback sessions over HTTP. The engine is stateless
// between requests: each interaction loads the session, rehydrates the
// engine from its snapshot, applies one event, and stores the snapshot back.
//
// Routes:
//
//	POST   /v1/sessions               - Start a new playback session
//	GET    /v1/sessions/{id}          - Current presentation view
//	PATCH  /v1/sessions/{id}          - Update text speed / reset state
//	DELETE /v1/sessions/{id}          - End the session
//	POST   /v1/sessions/{id}/advance  - Advance dialogue
//	POST   /v1/sessions/{id}/choice   - Select a choice
type SessionHandler struct {
	store        storage.Store
	logger       *slog.Logger
	defaultSpeed reveal.Speed
}

func NewSessionHandler(store storage.Store, defaultSpeed reveal.Speed, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		store:        store,
		logger:       logger,
		defaultSpeed: defaultSpeed,
	}
}

type CreateSessionRequest struct {
	Story     string             `json:"story"`
	TextSpeed string             `json:"text_speed,omitempty"`
	SeedState *state.PlayerState `json:"seed_state,omitempty"`
}

type ChoiceRequest struct {
	ChoiceID string `json:"choice_id"`
}

type PatchSessionRequest struct {
	TextSpeed  string `json:"text_speed,omitempty"`
	ResetState bool   `json:"reset_state,omitempty"`
}

// SessionResponse is the engine's presentation view plus session identity.
// TextSpeed is the session's configured tier; the server itself always
// reveals instantly and leaves the typewriter pacing to the client.
type SessionResponse struct {
	ID        uuid.UUID    `json:"id"`
	StoryFile string       `json:"story_file"`
	View      *engine.View `json:"view"`
}

func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/sessions"), "/")
	if path == "" {
		if r.Method != http.MethodPost {
			respondError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h.handleCreate(w, r)
		return
	}

	parts := strings.SplitN(path, "/", 2)
	id, err := uuid.Parse(parts[0])
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid session ID format")
		return
	}

	if len(parts) == 2 {
		if r.Method != http.MethodPost {
			respondError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		switch parts[1] {
		case "advance":
			h.handleAdvance(w, r, id)
		case "choice":
			h.handleChoice(w, r, id)
		default:
			respondError(w, h.logger, http.StatusNotFound, "Unknown session action")
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.handleRead(w, r, id)
	case http.MethodPatch:
		h.handlePatch(w, r, id)
	case http.MethodDelete:
		h.handleDelete(w, r, id)
	default:
		respondError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *SessionHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Story == "" {
		respondError(w, h.logger, http.StatusBadRequest, "story is required")
		return
	}

	graph, err := h.store.GetStory(r.Context(), req.Story)
	if err != nil {
		if errors.Is(err, story.ErrMalformedDocument) {
			respondError(w, h.logger, http.StatusUnprocessableEntity, err.Error())
			return
		}
		respondError(w, h.logger, http.StatusNotFound, "Story not found")
		return
	}

	speed := h.defaultSpeed
	if req.TextSpeed != "" {
		speed = reveal.ParseSpeed(req.TextSpeed)
	}

	sess := session.New(req.Story, speed)
	sess.Act = graph.Act

	e := engine.New(graph, sess.ID, h.store, serverScheduler(), req.SeedState, h.logger)
	e.Start(r.Context())
	sess.Engine = e.Snapshot()

	if err := h.store.SaveSession(r.Context(), sess); err != nil {
		h.logger.Error("Failed to save session", "session_id", sess.ID, "error", err)
		respondError(w, h.logger, http.StatusInternalServerError, "Failed to save session")
		return
	}

	h.logger.Info("Session created", "session_id", sess.ID, "story", req.Story, "act", graph.Act)
	respondJSON(w, h.logger, http.StatusCreated, h.response(sess, e))
}

func (h *SessionHandler) handleRead(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	sess, e, ok := h.rehydrate(w, r, id)
	if !ok {
		return
	}
	respondJSON(w, h.logger, http.StatusOK, h.response(sess, e))
}

func (h *SessionHandler) handleAdvance(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	sess, e, ok := h.rehydrate(w, r, id)
	if !ok {
		return
	}

	e.Advance(r.Context())
	if !h.persist(w, r, sess, e) {
		return
	}
	respondJSON(w, h.logger, http.StatusOK, h.response(sess, e))
}

func (h *SessionHandler) handleChoice(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req ChoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ChoiceID == "" {
		respondError(w, h.logger, http.StatusBadRequest, "choice_id is required")
		return
	}

	sess, e, ok := h.rehydrate(w, r, id)
	if !ok {
		return
	}

	// Invalid selections are absorbed by the engine; the response simply
	// reflects the unchanged view.
	e.SelectChoice(r.Context(), req.ChoiceID)
	if !h.persist(w, r, sess, e) {
		return
	}
	respondJSON(w, h.logger, http.StatusOK, h.response(sess, e))
}

func (h *SessionHandler) handlePatch(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req PatchSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}

	sess, e, ok := h.rehydrate(w, r, id)
	if !ok {
		return
	}

	if req.TextSpeed != "" {
		sess.TextSpeed = reveal.ParseSpeed(req.TextSpeed)
	}
	if req.ResetState {
		e.ResetState()
	}

	if !h.persist(w, r, sess, e) {
		return
	}
	respondJSON(w, h.logger, http.StatusOK, h.response(sess, e))
}

func (h *SessionHandler) handleDelete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.store.DeleteSession(r.Context(), id); err != nil {
		h.logger.Error("Failed to delete session", "session_id", id, "error", err)
		respondError(w, h.logger, http.StatusInternalServerError, "Failed to delete session")
		return
	}
	respondJSON(w, h.logger, http.StatusNoContent, nil)
}

// rehydrate loads the session and rebuilds its engine. On failure it writes
// the error response and returns ok=false.
func (h *SessionHandler) rehydrate(w http.ResponseWriter, r *http.Request, id uuid.UUID) (*session.Session, *engine.Engine, bool) {
	sess, err := h.store.LoadSession(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to load session", "session_id", id, "error", err)
		respondError(w, h.logger, http.StatusInternalServerError, "Failed to load session")
		return nil, nil, false
	}
	if sess == nil {
		respondError(w, h.logger, http.StatusNotFound, "Session not found")
		return nil, nil, false
	}

	graph, err := h.store.GetStory(r.Context(), sess.StoryFile)
	if err != nil {
		h.logger.Error("Failed to load story for session", "session_id", id, "story", sess.StoryFile, "error", err)
		respondError(w, h.logger, http.StatusConflict, "Story document no longer available")
		return nil, nil, false
	}

	e, err := engine.Resume(graph, sess.Engine, sess.ID, h.store, serverScheduler(), h.logger)
	if err != nil {
		h.logger.Error("Failed to resume engine", "session_id", id, "error", err)
		respondError(w, h.logger, http.StatusConflict, "Session no longer matches its story document")
		return nil, nil, false
	}
	return sess, e, true
}

func (h *SessionHandler) persist(w http.ResponseWriter, r *http.Request, sess *session.Session, e *engine.Engine) bool {
	sess.Engine = e.Snapshot()
	if err := h.store.SaveSession(r.Context(), sess); err != nil {
		h.logger.Error("Failed to save session", "session_id", sess.ID, "error", err)
		respondError(w, h.logger, http.StatusInternalServerError, "Failed to save session")
		return false
	}
	return true
}

func (h *SessionHandler) response(sess *session.Session, e *engine.Engine) SessionResponse {
	v := e.View()
	// The typewriter runs client-side; report the session's configured tier
	// rather than the server's instant scheduler.
	v.TextSpeed = sess.TextSpeed
	return SessionResponse{
		ID:        sess.ID,
		StoryFile: sess.StoryFile,
		View:      &v,
	}
}

// serverScheduler returns the reveal scheduler used for request-scoped
// engines. The API has no render loop to pace a typewriter, so text is
// always fully revealed in responses.
func serverScheduler() *reveal.Scheduler {
	return reveal.NewScheduler(reveal.SpeedFast)
}

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/novel-engine/pkg/storage"
	"github.com/jwebster45206/novel-engine/pkg/story"
)

// StoryHandler serves the story document library.
// Routes:
//
//	GET /v1/stories        - List playable story files
//	GET /v1/stories/{file} - Return one story, normalized to canonical form
type StoryHandler struct {
	store  storage.Store
	logger *slog.Logger
}

func NewStoryHandler(store storage.Store, logger *slog.Logger) *StoryHandler {
	return &StoryHandler{
		store:  store,
		logger: logger,
	}
}

func (h *StoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		respondError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	filename := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/stories"), "/")
	if filename == "" {
		h.handleList(w, r)
		return
	}
	h.handleGet(w, r, filename)
}

func (h *StoryHandler) handleList(w http.ResponseWriter, r *http.Request) {
	names, err := h.store.ListStories(r.Context())
	if err != nil {
		h.logger.Error("Failed to list stories", "error", err)
		respondError(w, h.logger, http.StatusInternalServerError, "Failed to list stories")
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string][]string{"stories": names})
}

func (h *StoryHandler) handleGet(w http.ResponseWriter, r *http.Request, filename string) {
	graph, err := h.store.GetStory(r.Context(), filename)
	if err != nil {
		if errors.Is(err, story.ErrMalformedDocument) {
			respondError(w, h.logger, http.StatusUnprocessableEntity, err.Error())
			return
		}
		respondError(w, h.logger, http.StatusNotFound, "Story not found")
		return
	}
	respondJSON(w, h.logger, http.StatusOK, graph)
}

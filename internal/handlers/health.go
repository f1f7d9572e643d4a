package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/jwebster45206/novel-engine/pkg/storage"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Storage   string    `json:"storage"`
}

type HealthHandler struct {
	store  storage.Store
	logger *slog.Logger
}

func NewHealthHandler(store storage.Store, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		store:  store,
		logger: logger,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		respondError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Service:   "novel-engine",
		Storage:   "ok",
	}

	status := http.StatusOK
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Warn("Storage ping failed during health check", "error", err)
		resp.Status = "degraded"
		resp.Storage = err.Error()
		status = http.StatusServiceUnavailable
	}

	respondJSON(w, h.logger, status, resp)
}

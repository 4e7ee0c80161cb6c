package handler

import (
	"context"
	"net/http"
	"time"

	natsclient "github.com/eleccia/chatbot-engine/internal/nats"
	"github.com/eleccia/chatbot-engine/internal/session"
	"github.com/eleccia/chatbot-engine/internal/store"
)

// HealthHandler reports liveness and readiness of the engine dependencies.
type HealthHandler struct {
	sessions session.Store
	repo     store.Repository
	nats     *natsclient.Client
}

func NewHealthHandler(sessions session.Store, repo store.Repository, nats *natsclient.Client) *HealthHandler {
	return &HealthHandler{
		sessions: sessions,
		repo:     repo,
		nats:     nats,
	}
}

// Live handles GET /health/live.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /health/ready.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := h.sessions.Ping(ctx); err != nil {
		checks["session_store"] = err.Error()
		healthy = false
	} else {
		checks["session_store"] = "ok"
	}

	if err := h.repo.Ping(ctx); err != nil {
		checks["conversations"] = err.Error()
		healthy = false
	} else {
		checks["conversations"] = "ok"
	}

	if h.nats != nil {
		if h.nats.IsConnected() {
			checks["nats"] = "ok"
		} else {
			checks["nats"] = "disconnected"
			healthy = false
		}
	}

	status := http.StatusOK
	overall := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}
	writeJSON(w, status, map[string]interface{}{
		"status": overall,
		"checks": checks,
	})
}

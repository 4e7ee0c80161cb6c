package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/eleccia/chatbot-engine/internal/middleware"
	"github.com/eleccia/chatbot-engine/internal/model"
	"github.com/eleccia/chatbot-engine/internal/service"
	"github.com/eleccia/chatbot-engine/internal/session"
	"github.com/eleccia/chatbot-engine/internal/store"
	"github.com/eleccia/chatbot-engine/pkg/logger"
)

// ContentReloader re-reads the content catalog from disk.
type ContentReloader interface {
	Reload() error
}

// AdminHandler exposes the operator surface: inspect, reset and finalize
// live sessions, trigger a sweep, reload content, and read store stats.
// All routes sit behind JWT auth with the admin scope.
type AdminHandler struct {
	engine  *service.Engine
	sweeper *service.Sweeper
	repo    store.Repository
	content ContentReloader
	logger  *logger.Logger
}

func NewAdminHandler(engine *service.Engine, sweeper *service.Sweeper, repo store.Repository, content ContentReloader, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		engine:  engine,
		sweeper: sweeper,
		repo:    repo,
		content: content,
		logger:  log,
	}
}

// GetSession handles GET /admin/sessions/{userID}.
func (h *AdminHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if err := middleware.ValidateUserID(userID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := h.engine.Inspect(r.Context(), userID)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "no active session")
			return
		}
		h.logger.WithUser(userID).Error("inspecting session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

type finalizeRequest struct {
	Reason       string `json:"reason,omitempty"`
	Error        bool   `json:"error,omitempty"`
	MensajeError string `json:"mensaje_error,omitempty"`
}

// FinalizeSession handles POST /admin/sessions/{userID}/finalize.
func (h *AdminHandler) FinalizeSession(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if err := middleware.ValidateUserID(userID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req finalizeRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	conv, err := h.engine.FinalizeNow(r.Context(), userID, req.Reason, req.Error, req.MensajeError)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "no active session")
			return
		}
		h.logger.WithUser(userID).Error("finalizing session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.logger.WithUser(userID).Info("session finalized by operator",
		zap.String("subject", middleware.GetSubject(r.Context())),
		zap.String("conversation_id", conv.ID),
	)
	writeJSON(w, http.StatusOK, conv)
}

// ResetSession handles POST /admin/sessions/{userID}/reset.
func (h *AdminHandler) ResetSession(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if err := middleware.ValidateUserID(userID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := h.engine.Reset(r.Context(), userID)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "no active session")
			return
		}
		h.logger.WithUser(userID).Error("resetting session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// ListConversations handles GET /admin/sessions/{userID}/conversations,
// returning the user's archived history.
func (h *AdminHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if err := middleware.ValidateUserID(userID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	convs, err := h.repo.ConversationsByUser(r.Context(), userID, limit)
	if err != nil {
		h.logger.WithUser(userID).Error("listing conversations", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if convs == nil {
		convs = []model.ArchivedConversation{}
	}
	writeJSON(w, http.StatusOK, convs)
}

// RunSweep handles POST /admin/sweep.
func (h *AdminHandler) RunSweep(w http.ResponseWriter, r *http.Request) {
	swept, err := h.sweeper.Sweep(r.Context())
	if err != nil {
		h.logger.Error("manual sweep failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"swept": swept})
}

// ReloadContent handles POST /admin/content/reload. It re-reads the CSV
// catalogs so content updates take effect without a restart.
func (h *AdminHandler) ReloadContent(w http.ResponseWriter, r *http.Request) {
	if err := h.content.Reload(); err != nil {
		h.logger.Error("reloading content catalog", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.logger.Info("content catalog reloaded")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}

// Stats handles GET /admin/stats.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.Stats(r.Context())
	if err != nil {
		h.logger.Error("reading store stats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func isNotFound(err error) bool {
	return errors.Is(err, service.ErrNoActiveSession) ||
		errors.Is(err, session.ErrNotFound)
}

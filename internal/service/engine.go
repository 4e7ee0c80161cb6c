package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eleccia/chatbot-engine/internal/model"
	"github.com/eleccia/chatbot-engine/internal/session"
	"github.com/eleccia/chatbot-engine/pkg/logger"
	"github.com/eleccia/chatbot-engine/pkg/metrics"
)

// Engine drives a full conversation turn: load-or-create the session under
// the per-user lock, run the controller, accumulate the transcript, and
// write the session back in a single put so a turn is never half-visible.
type Engine struct {
	store      session.Store
	locks      *session.KeyedLocks
	controller *Controller
	archiver   *Archiver
	ttl        time.Duration
	logger     *logger.Logger
}

func NewEngine(store session.Store, locks *session.KeyedLocks, controller *Controller, archiver *Archiver, ttl time.Duration, log *logger.Logger) *Engine {
	if ttl <= 0 {
		ttl = session.DefaultTTL
	}
	return &Engine{
		store:      store,
		locks:      locks,
		controller: controller,
		archiver:   archiver,
		ttl:        ttl,
		logger:     log,
	}
}

// TurnInput is one inbound user message, already normalized by the channel
// handler.
type TurnInput struct {
	UserID         string
	Canal          string
	Text           string
	NumeroTelefono string
	Usuario        string
}

// HandleMessage processes one user message and returns the bot reply.
func (e *Engine) HandleMessage(ctx context.Context, in TurnInput) (string, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return "Por favor, envía un mensaje con texto.", nil
	}

	unlock := e.locks.Lock(in.UserID)
	defer unlock()

	sess, err := e.store.Get(ctx, in.UserID)
	switch {
	case err == nil:
	case errors.Is(err, session.ErrNotFound):
		return e.startConversation(ctx, in)
	default:
		metrics.StoreErrors.WithLabelValues("session").Inc()
		return "", fmt.Errorf("loading session: %w", err)
	}

	if in.NumeroTelefono != "" {
		sess.NumeroTelefono = in.NumeroTelefono
	}
	if in.Usuario != "" {
		sess.Usuario = in.Usuario
	}

	stage := sess.Stage
	session.Append(sess, model.SenderUser, text, intentFor(stage))
	res := e.controller.Handle(ctx, sess, text)
	session.Append(sess, model.SenderBot, res.Reply, "")

	if err := e.store.Put(ctx, sess.UserID, sess, e.ttl); err != nil {
		metrics.StoreErrors.WithLabelValues("session").Inc()
		return "", fmt.Errorf("saving session: %w", err)
	}
	metrics.RecordTurn(sess.Canal, string(stage))

	if res.End {
		if _, err := e.archiver.Finalize(ctx, in.UserID, res.Reason, false, ""); err != nil {
			// The session was just written, so ErrNoActiveSession cannot
			// happen here; any failure means the durable write did not land
			// and the session stays alive for a later retry.
			e.logger.WithUser(in.UserID).Error("finalize after farewell failed", zap.Error(err))
		}
	}
	return res.Reply, nil
}

// startConversation creates a fresh session and returns the welcome screen.
func (e *Engine) startConversation(ctx context.Context, in TurnInput) (string, error) {
	sess := model.NewSession(in.UserID, in.Canal)
	sess.NumeroTelefono = in.NumeroTelefono
	sess.Usuario = in.Usuario

	welcome := msgBienvenida + "\n\n" + mainMenuText
	session.Append(sess, model.SenderBot, welcome, "bienvenida")

	if err := e.store.Put(ctx, sess.UserID, sess, e.ttl); err != nil {
		metrics.StoreErrors.WithLabelValues("session").Inc()
		return "", fmt.Errorf("creating session: %w", err)
	}
	metrics.ActiveSessions.Inc()
	metrics.RecordTurn(sess.Canal, string(model.StageMain))
	e.logger.WithContext("", sess.Canal, sess.UserID).Info("conversation started")
	return welcome, nil
}

// FinalizeIdle archives a session that expired by inactivity. Invoked by the
// expiration sweeper.
func (e *Engine) FinalizeIdle(ctx context.Context, userID string) error {
	unlock := e.locks.Lock(userID)
	defer unlock()
	_, err := e.archiver.Finalize(ctx, userID, model.ReasonIdleTimeout, false, "")
	return err
}

// FinalizeNow archives the user's session immediately with the given reason.
func (e *Engine) FinalizeNow(ctx context.Context, userID, reason string, hadError bool, errMsg string) (*model.ArchivedConversation, error) {
	if reason == "" {
		reason = model.ReasonAdminReset
	}
	unlock := e.locks.Lock(userID)
	defer unlock()
	return e.archiver.Finalize(ctx, userID, reason, hadError, errMsg)
}

// Reset archives and discards the user's current session so the next message
// starts a fresh conversation.
func (e *Engine) Reset(ctx context.Context, userID string) (*model.ArchivedConversation, error) {
	return e.FinalizeNow(ctx, userID, model.ReasonAdminReset, false, "")
}

// Inspect returns a copy of the user's live session.
func (e *Engine) Inspect(ctx context.Context, userID string) (*model.Session, error) {
	unlock := e.locks.Lock(userID)
	defer unlock()
	return e.store.Get(ctx, userID)
}

// Stats reports aggregate numbers over the live session store.
func (e *Engine) Stats(ctx context.Context) (session.Stats, error) {
	return e.store.Stats(ctx)
}

func intentFor(stage model.Stage) string {
	if _, ok := staticMenus[stage]; ok {
		return "navegacion_menu"
	}
	return "consulta_informacion"
}

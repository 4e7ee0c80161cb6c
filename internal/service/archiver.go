package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eleccia/chatbot-engine/internal/model"
	natsclient "github.com/eleccia/chatbot-engine/internal/nats"
	"github.com/eleccia/chatbot-engine/internal/session"
	"github.com/eleccia/chatbot-engine/pkg/logger"
	"github.com/eleccia/chatbot-engine/pkg/metrics"
)

// ErrNoActiveSession is returned by Finalize when the user has no live
// session to archive.
var ErrNoActiveSession = errors.New("no active session")

// ConversationStore persists finalized conversations durably.
type ConversationStore interface {
	SaveConversation(ctx context.Context, conv *model.ArchivedConversation) error
}

// ArchiveEvents publishes archive notifications for downstream consumers.
type ArchiveEvents interface {
	PublishArchived(ctx context.Context, conv *model.ArchivedConversation) (uint64, error)
	PublishError(ctx context.Context, event *natsclient.EngineErrorEvent) (uint64, error)
}

// Archiver moves a finished session out of the ephemeral store into the
// durable conversation record. The order is strict: the durable write must
// succeed before the session is deleted, so a crash in between leaves the
// session alive (and re-archivable) rather than lost.
type Archiver struct {
	store  session.Store
	repo   ConversationStore
	events ArchiveEvents
	logger *logger.Logger
	now    func() time.Time
}

func NewArchiver(store session.Store, repo ConversationStore, events ArchiveEvents, log *logger.Logger) *Archiver {
	return &Archiver{
		store:  store,
		repo:   repo,
		events: events,
		logger: log,
		now:    time.Now,
	}
}

// Finalize archives the user's session with the given termination reason and
// removes it from the session store. The returned record is what was
// persisted. Callers hold the per-user lock.
func (a *Archiver) Finalize(ctx context.Context, userID, reason string, hadError bool, errMsg string) (*model.ArchivedConversation, error) {
	sess, err := a.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrNoActiveSession
		}
		metrics.StoreErrors.WithLabelValues("session").Inc()
		return nil, fmt.Errorf("loading session for archive: %w", err)
	}

	now := a.now().UTC()
	duration := now.Sub(sess.StartedAt)
	flujo, err := model.BuildFlujo(sess, reason, duration)
	if err != nil {
		return nil, fmt.Errorf("building flujo document: %w", err)
	}

	conv := &model.ArchivedConversation{
		ID:            uuid.NewString(),
		UserID:        sess.UserID,
		Canal:         sess.Canal,
		Flujo:         flujo,
		FechaInicio:   sess.StartedAt,
		FechaFin:      now,
		DuracionTotal: int64(duration.Seconds()),
		NumMensajes:   sess.MessageCount,
		Error:         hadError,
	}
	if sess.NumeroTelefono != "" {
		conv.NumeroTelefono = &sess.NumeroTelefono
	}
	if sess.Usuario != "" {
		conv.Usuario = &sess.Usuario
	}
	if errMsg != "" {
		conv.MensajeError = &errMsg
	}

	if err := a.repo.SaveConversation(ctx, conv); err != nil {
		metrics.ArchiveFailures.Inc()
		metrics.StoreErrors.WithLabelValues("conversations").Inc()
		if a.events != nil {
			ev := &natsclient.EngineErrorEvent{
				UserID:    userID,
				Canal:     sess.Canal,
				Reason:    "archive_persist_failed",
				CreatedAt: now,
			}
			if _, pubErr := a.events.PublishError(ctx, ev); pubErr != nil {
				a.logger.WithUser(userID).Warn("publishing error event", zap.Error(pubErr))
			}
		}
		return nil, fmt.Errorf("persisting conversation %s: %w", conv.ID, err)
	}

	if err := a.store.Delete(ctx, userID); err != nil {
		// The archive is durable; a failed delete only risks the sweeper
		// producing an idle-timeout duplicate later.
		metrics.StoreErrors.WithLabelValues("session").Inc()
		a.logger.WithUser(userID).Error("deleting archived session", zap.Error(err))
	}

	metrics.ActiveSessions.Dec()
	metrics.RecordArchive(reason)
	a.logger.WithUser(userID).Info("conversation archived",
		zap.String("conversation_id", conv.ID),
		zap.String("reason", reason),
		zap.Int("num_mensajes", conv.NumMensajes),
		zap.Int64("duracion_total", conv.DuracionTotal),
	)

	if a.events != nil {
		if _, err := a.events.PublishArchived(ctx, conv); err != nil {
			a.logger.WithUser(userID).Warn("publishing archive event", zap.Error(err))
		}
	}
	return conv, nil
}

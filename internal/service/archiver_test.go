package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eleccia/chatbot-engine/internal/model"
	natsclient "github.com/eleccia/chatbot-engine/internal/nats"
	"github.com/eleccia/chatbot-engine/internal/session"
	"github.com/eleccia/chatbot-engine/pkg/logger"
)

type fakeConversations struct {
	saved   []*model.ArchivedConversation
	saveErr error
}

func (f *fakeConversations) SaveConversation(ctx context.Context, conv *model.ArchivedConversation) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, conv)
	return nil
}

type fakeEvents struct {
	published []*model.ArchivedConversation
	errors    []*natsclient.EngineErrorEvent
	err       error
}

func (f *fakeEvents) PublishArchived(ctx context.Context, conv *model.ArchivedConversation) (uint64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.published = append(f.published, conv)
	return uint64(len(f.published)), nil
}

func (f *fakeEvents) PublishError(ctx context.Context, event *natsclient.EngineErrorEvent) (uint64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.errors = append(f.errors, event)
	return uint64(len(f.errors)), nil
}

func newTestArchiver(st session.Store, repo *fakeConversations, events *fakeEvents) *Archiver {
	log, _ := logger.New("error")
	var ev ArchiveEvents
	if events != nil {
		ev = events
	}
	return NewArchiver(st, repo, ev, log)
}

func seedSession(t *testing.T, st session.Store, userID string) *model.Session {
	t.Helper()
	sess := model.NewSession(userID, "whatsapp")
	sess.NumeroTelefono = "51999888777"
	sess.Usuario = "María"
	session.Append(sess, model.SenderBot, "bienvenida", "")
	session.Append(sess, model.SenderUser, "adios", "")
	require.NoError(t, st.Put(context.Background(), userID, sess, time.Minute))
	return sess
}

func TestFinalizeArchivesAndDeletes(t *testing.T) {
	st := session.NewMemoryStore()
	repo := &fakeConversations{}
	events := &fakeEvents{}
	a := newTestArchiver(st, repo, events)
	ctx := context.Background()

	seedSession(t, st, "u1")

	conv, err := a.Finalize(ctx, "u1", model.ReasonUserExit, false, "")
	require.NoError(t, err)
	require.Len(t, repo.saved, 1)
	assert.Equal(t, conv, repo.saved[0])

	assert.NotEmpty(t, conv.ID)
	assert.Equal(t, "u1", conv.UserID)
	assert.Equal(t, "whatsapp", conv.Canal)
	require.NotNil(t, conv.NumeroTelefono)
	assert.Equal(t, "51999888777", *conv.NumeroTelefono)
	require.NotNil(t, conv.Usuario)
	assert.Equal(t, "María", *conv.Usuario)
	assert.Equal(t, 2, conv.NumMensajes)
	assert.False(t, conv.Error)
	assert.False(t, conv.FechaFin.Before(conv.FechaInicio))

	var flujo map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(conv.Flujo), &flujo))
	assert.Equal(t, model.ReasonUserExit, flujo["motivo_finalizacion"])
	assert.Len(t, flujo["mensajes"], 2)

	// Session is gone once the archive is durable.
	_, err = st.Get(ctx, "u1")
	assert.ErrorIs(t, err, session.ErrNotFound)

	// The archive event carries the persisted record.
	require.Len(t, events.published, 1)
	assert.Equal(t, conv.ID, events.published[0].ID)
}

func TestFinalizePersistFailureKeepsSession(t *testing.T) {
	st := session.NewMemoryStore()
	repo := &fakeConversations{saveErr: errors.New("disk full")}
	events := &fakeEvents{}
	a := newTestArchiver(st, repo, events)
	ctx := context.Background()

	seedSession(t, st, "u1")

	_, err := a.Finalize(ctx, "u1", model.ReasonUserExit, false, "")
	require.Error(t, err)

	// The session must survive a failed durable write.
	sess, err := st.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, sess.MessageCount)

	require.Len(t, events.errors, 1)
	assert.Equal(t, "u1", events.errors[0].UserID)
	assert.Equal(t, "archive_persist_failed", events.errors[0].Reason)
	assert.Empty(t, events.published)
}

func TestFinalizeWithoutSession(t *testing.T) {
	st := session.NewMemoryStore()
	a := newTestArchiver(st, &fakeConversations{}, nil)

	_, err := a.Finalize(context.Background(), "nadie", model.ReasonIdleTimeout, false, "")
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestFinalizeRecordsError(t *testing.T) {
	st := session.NewMemoryStore()
	repo := &fakeConversations{}
	a := newTestArchiver(st, repo, nil)

	seedSession(t, st, "u1")

	conv, err := a.Finalize(context.Background(), "u1", model.ReasonAdminReset, true, "provider caído")
	require.NoError(t, err)
	assert.True(t, conv.Error)
	require.NotNil(t, conv.MensajeError)
	assert.Equal(t, "provider caído", *conv.MensajeError)
}

func TestFinalizeEventFailureDoesNotFailArchive(t *testing.T) {
	st := session.NewMemoryStore()
	repo := &fakeConversations{}
	events := &fakeEvents{err: errors.New("nats down")}
	a := newTestArchiver(st, repo, events)

	seedSession(t, st, "u1")

	_, err := a.Finalize(context.Background(), "u1", model.ReasonUserExit, false, "")
	assert.NoError(t, err)
	assert.Len(t, repo.saved, 1)
}

package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eleccia/chatbot-engine/internal/model"
)

func TestMemoryStoreGetMissing(t *testing.T) {
	st := NewMemoryStore()

	_, err := st.Get(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStorePutGet(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	sess := model.NewSession("u1", "telegram")
	require.NoError(t, st.Put(ctx, "u1", sess, time.Minute))

	got, err := st.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, model.StageMain, got.Stage)
}

func TestMemoryStoreSingleSessionPerUser(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	first := model.NewSession("u1", "telegram")
	first.Stage = model.StageProcesosElectorales
	require.NoError(t, st.Put(ctx, "u1", first, time.Minute))

	second := model.NewSession("u1", "whatsapp")
	require.NoError(t, st.Put(ctx, "u1", second, time.Minute))

	got, err := st.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "whatsapp", got.Canal)
	assert.Equal(t, model.StageMain, got.Stage)

	stats, err := st.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ActiveSessions)
}

func TestMemoryStoreExpiry(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	now := time.Now()
	st.SetClock(func() time.Time { return now })

	require.NoError(t, st.Put(ctx, "u1", model.NewSession("u1", "telegram"), 30*time.Minute))

	now = now.Add(30*time.Minute + time.Second)
	_, err := st.Get(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreGetRenewsTTL(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	now := time.Now()
	st.SetClock(func() time.Time { return now })

	require.NoError(t, st.Put(ctx, "u1", model.NewSession("u1", "telegram"), 30*time.Minute))

	// Reads just before expiry keep the session alive indefinitely.
	for i := 0; i < 3; i++ {
		now = now.Add(29 * time.Minute)
		_, err := st.Get(ctx, "u1")
		require.NoError(t, err)
	}

	now = now.Add(29 * time.Minute)
	_, err := st.Get(ctx, "u1")
	assert.NoError(t, err)
}

func TestMemoryStoreDeleteIdempotent(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, "u1", model.NewSession("u1", "telegram"), time.Minute))
	require.NoError(t, st.Delete(ctx, "u1"))
	require.NoError(t, st.Delete(ctx, "u1"))

	_, err := st.Get(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreKeysNearExpiry(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	now := time.Now()
	st.SetClock(func() time.Time { return now })

	require.NoError(t, st.Put(ctx, "fresh", model.NewSession("fresh", "telegram"), 30*time.Minute))
	require.NoError(t, st.Put(ctx, "stale", model.NewSession("stale", "telegram"), 30*time.Minute))

	// Advance so "stale" has under five minutes left; re-put "fresh" to
	// reset its window.
	now = now.Add(26 * time.Minute)
	require.NoError(t, st.Put(ctx, "fresh", model.NewSession("fresh", "telegram"), 30*time.Minute))

	keys, err := st.KeysNearExpiry(ctx, 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []string{"stale"}, keys)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	sess := model.NewSession("u1", "telegram")
	require.NoError(t, st.Put(ctx, "u1", sess, time.Minute))

	// Mutating the original after Put must not affect the stored session.
	sess.Stage = model.StageAwaitingQuestion

	got, err := st.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, model.StageMain, got.Stage)

	// Mutating what Get returned must not affect the stored session either.
	got.Stage = model.StageAwaitingQuestion
	again, err := st.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, model.StageMain, again.Stage)
}

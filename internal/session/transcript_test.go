package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eleccia/chatbot-engine/internal/model"
)

func TestAppendAccumulatesInOrder(t *testing.T) {
	sess := model.NewSession("u1", "telegram")

	Append(sess, model.SenderUser, "hola", "navegacion_menu")
	Append(sess, model.SenderBot, "bienvenido", "")
	Append(sess, model.SenderUser, "1", "navegacion_menu")

	require.Len(t, sess.Transcript, 3)
	assert.Equal(t, model.SenderUser, sess.Transcript[0].Sender)
	assert.Equal(t, "hola", sess.Transcript[0].Content)
	assert.Equal(t, model.SenderBot, sess.Transcript[1].Sender)
	assert.Equal(t, "1", sess.Transcript[2].Content)
	assert.Equal(t, 3, sess.MessageCount)
}

func TestAppendUpdatesActivity(t *testing.T) {
	sess := model.NewSession("u1", "telegram")
	before := time.Now().UTC()

	Append(sess, model.SenderUser, "hola", "")

	assert.False(t, sess.LastActivityAt.Before(before))
	assert.False(t, sess.Transcript[0].Timestamp.IsZero())
}

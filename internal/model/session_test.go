package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionDefaults(t *testing.T) {
	sess := NewSession("u1", "telegram")

	assert.Equal(t, "u1", sess.UserID)
	assert.Equal(t, "telegram", sess.Canal)
	assert.Equal(t, StageMain, sess.Stage)
	assert.Empty(t, sess.Transcript)
	assert.Zero(t, sess.MessageCount)
	assert.False(t, sess.StartedAt.IsZero())
}

func TestCloneIsDeep(t *testing.T) {
	sess := NewSession("u1", "telegram")
	sess.Transcript = append(sess.Transcript, Message{
		Sender:    SenderUser,
		Content:   "hola",
		Timestamp: time.Now().UTC(),
	})
	sess.Context.Flow = []string{"procesos_electorales"}
	sess.Context.Candidatos = []Candidate{{Nombres: "Juan", ApellidoPaterno: "Pérez"}}

	clone := sess.Clone()
	clone.Transcript[0].Content = "cambiado"
	clone.Context.Flow[0] = "otro"
	clone.Context.Candidatos[0].Nombres = "María"

	assert.Equal(t, "hola", sess.Transcript[0].Content)
	assert.Equal(t, "procesos_electorales", sess.Context.Flow[0])
	assert.Equal(t, "Juan", sess.Context.Candidatos[0].Nombres)
}

func TestStageValid(t *testing.T) {
	assert.True(t, StageMain.Valid())
	assert.True(t, StageAwaitingAnotherQuestion.Valid())
	assert.False(t, Stage("unknown").Valid())
}

func TestCandidateFullName(t *testing.T) {
	c := Candidate{Nombres: "Juan Carlos", ApellidoPaterno: "Pérez", ApellidoMaterno: "García"}
	assert.Equal(t, "Juan Carlos Pérez García", c.FullName())

	noMaterno := Candidate{Nombres: "Ana", ApellidoPaterno: "Lima"}
	assert.Equal(t, "Ana Lima", noMaterno.FullName())
}

func TestClearSelections(t *testing.T) {
	sess := NewSession("u1", "telegram")
	sess.Context.Flow = []string{"servicios_digitales"}
	sess.Context.FinalChoice = "tramite"
	sess.Context.Servicios = []ServiceInfo{{Nombre: "Multas"}}
	sess.Context.Candidatos = []Candidate{{Nombres: "Juan"}}
	sess.Context.Candidato = &Candidate{Nombres: "Juan"}
	sess.Context.Elecciones = []string{"EG.2021"}
	sess.Context.Hitos = []Milestone{{Nombre: "Inscripción"}}

	sess.Context.ClearSelections()

	assert.Empty(t, sess.Context.Servicios)
	assert.Empty(t, sess.Context.Candidatos)
	assert.Nil(t, sess.Context.Candidato)
	assert.Empty(t, sess.Context.Elecciones)
	assert.Empty(t, sess.Context.Hitos)

	// Flow and final choice survive; they describe the conversation, not a
	// pending selection.
	assert.Equal(t, []string{"servicios_digitales"}, sess.Context.Flow)
	assert.Equal(t, "tramite", sess.Context.FinalChoice)
}

func TestBuildFlujo(t *testing.T) {
	sess := NewSession("u1", "whatsapp")
	sess.Stage = StageAwaitingAnotherQuestion
	sess.Context.Flow = []string{"servicios_digitales", "tramite"}
	sess.Transcript = []Message{
		{Sender: SenderBot, Content: "bienvenido"},
		{Sender: SenderUser, Content: "4"},
	}

	flujo, err := BuildFlujo(sess, ReasonUserNoMore, 95*time.Second)
	require.NoError(t, err)

	assert.Contains(t, flujo, `"user_id":"u1"`)
	assert.Contains(t, flujo, `"canal":"whatsapp"`)
	assert.Contains(t, flujo, `"estado_final":"awaiting_another_question"`)
	assert.Contains(t, flujo, `"motivo_finalizacion":"`+ReasonUserNoMore+`"`)
	assert.Contains(t, flujo, `"num_mensajes":2`)
	assert.Contains(t, flujo, `"duracion_total":95`)
	assert.Contains(t, flujo, `"bienvenido"`)
}

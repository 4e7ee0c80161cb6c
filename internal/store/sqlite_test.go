package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eleccia/chatbot-engine/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func seedCandidate(t *testing.T, st *SQLiteStore, nombres, paterno, materno string, procesos ...string) {
	t.Helper()
	res, err := st.db.Exec(
		`INSERT INTO candidatos (nombres, apellido_paterno, apellido_materno) VALUES (?, ?, ?)`,
		nombres, paterno, materno,
	)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	for _, proceso := range procesos {
		_, err := st.db.Exec(
			`INSERT INTO participaciones (candidato_id, proceso, cargo, organizacion, resultado)
			 VALUES (?, ?, 'Congresista', 'Partido X', 'Electo')`,
			id, proceso,
		)
		require.NoError(t, err)
	}
}

func seedMilestone(t *testing.T, st *SQLiteStore, proceso, nombre, fecha, descripcion string) {
	t.Helper()
	_, err := st.db.Exec(
		`INSERT INTO hitos_electorales (proceso, nombre, fecha, descripcion) VALUES (?, ?, ?, ?)`,
		proceso, nombre, fecha, descripcion,
	)
	require.NoError(t, err)
}

func TestSaveAndListConversations(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	tel := "51999888777"
	now := time.Now().UTC().Truncate(time.Second)
	conv := &model.ArchivedConversation{
		ID:             "conv-1",
		UserID:         "u1",
		NumeroTelefono: &tel,
		Canal:          "whatsapp",
		Flujo:          `{"mensajes":[]}`,
		FechaInicio:    now.Add(-2 * time.Minute),
		FechaFin:       now,
		DuracionTotal:  120,
		NumMensajes:    6,
	}
	require.NoError(t, st.SaveConversation(ctx, conv))

	got, err := st.ConversationsByUser(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "conv-1", got[0].ID)
	assert.Equal(t, "whatsapp", got[0].Canal)
	require.NotNil(t, got[0].NumeroTelefono)
	assert.Equal(t, tel, *got[0].NumeroTelefono)
	assert.Nil(t, got[0].Usuario)
	assert.Equal(t, int64(120), got[0].DuracionTotal)
	assert.Equal(t, conv.FechaFin, got[0].FechaFin)

	got, err = st.ConversationsByUser(ctx, "otro", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFindCandidatesByNameAndSurname(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seedCandidate(t, st, "Juan Carlos", "Pérez", "García", "EG.2021")
	seedCandidate(t, st, "Juan", "Pérez", "López", "ERM.2022")
	seedCandidate(t, st, "Ana", "Quispe", "Mamani", "EG.2021")

	found, err := st.FindCandidates(ctx, "Juan Pérez")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = st.FindCandidates(ctx, "Ana Quispe")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Ana", found[0].Nombres)

	// A single token is not enough to search.
	found, err = st.FindCandidates(ctx, "Juan")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestFindCandidatesBySurnames(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seedCandidate(t, st, "Juan Carlos", "Pérez", "García", "EG.2021")
	seedCandidate(t, st, "Juan", "Pérez", "López", "ERM.2022")

	found, err := st.FindCandidatesBySurnames(ctx, "Juan", "Pérez", "García")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "García", found[0].ApellidoMaterno)
}

func TestElectionsAndDetail(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seedCandidate(t, st, "Juan Carlos", "Pérez", "García", "EG.2021", "ERM.2022")
	candidate := model.Candidate{Nombres: "Juan Carlos", ApellidoPaterno: "Pérez", ApellidoMaterno: "García"}

	elections, err := st.ElectionsForCandidate(ctx, candidate)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"EG.2021", "ERM.2022"}, elections)

	detail, err := st.CandidateElectionDetail(ctx, candidate, "EG.2021")
	require.NoError(t, err)
	assert.Contains(t, detail, "Congresista")
	assert.Contains(t, detail, "Partido X")

	// An unknown election yields an empty detail, not an error.
	detail, err = st.CandidateElectionDetail(ctx, candidate, "EG.1999")
	require.NoError(t, err)
	assert.Empty(t, detail)
}

func TestSearchMilestones(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seedMilestone(t, st, "EG.2026", "Inscripción de fórmulas presidenciales", "2025-12-23", "")
	seedMilestone(t, st, "EG.2026", "Sorteo de miembros de mesa", "2026-02-15", "")
	seedMilestone(t, st, "EG.2021", "Inscripción de fórmulas presidenciales", "2020-12-22", "")

	hitos, err := st.SearchMilestones(ctx, "EG.2026", "inscripción de candidatos")
	require.NoError(t, err)
	require.Len(t, hitos, 1)
	assert.Equal(t, "EG.2026", hitos[0].Proceso)
	assert.Contains(t, hitos[0].Nombre, "Inscripción")

	hitos, err = st.SearchMilestones(ctx, "EG.2026", "zzz")
	require.NoError(t, err)
	assert.Empty(t, hitos)
}

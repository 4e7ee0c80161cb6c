// Package model defines data structures for the conversation engine.
package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Stage is the current position in the dialogue state machine. The set of
// stages is closed; anything outside it is rejected on write.
type Stage string

const (
	StageMain                     Stage = "main"
	StageProcesosElectorales      Stage = "procesos_electorales"
	StageOrganizacionesPoliticas  Stage = "organizaciones_politicas"
	StageInformacionInstitucional Stage = "informacion_institucional"
	StageServiciosDigitales       Stage = "servicios_digitales"
	StageServiciosCiudadano       Stage = "servicios_ciudadano"
	StagePleno                    Stage = "pleno"

	StageAwaitingQuestion           Stage = "awaiting_question"
	StageAwaitingTramiteQuery       Stage = "awaiting_tramite_query"
	StageAwaitingTramiteSelection   Stage = "awaiting_tramite_selection"
	StageAwaitingProcesoElectoral   Stage = "awaiting_proceso_electoral"
	StageAwaitingHitoConsulta       Stage = "awaiting_hito_consulta"
	StageAwaitingHitoSelection      Stage = "awaiting_hito_selection"
	StageAwaitingPoliticoNombres    Stage = "awaiting_politico_nombres"
	StageAwaitingSegundoApellido    Stage = "awaiting_politico_segundo_apellido"
	StageAwaitingCandidatoSelection Stage = "awaiting_candidato_selection"
	StageAwaitingEleccionSelection  Stage = "awaiting_eleccion_candidato_selection"
	StageAwaitingAnotherQuestion    Stage = "awaiting_another_question"
)

var allStages = map[Stage]struct{}{
	StageMain:                       {},
	StageProcesosElectorales:        {},
	StageOrganizacionesPoliticas:    {},
	StageInformacionInstitucional:   {},
	StageServiciosDigitales:         {},
	StageServiciosCiudadano:         {},
	StagePleno:                      {},
	StageAwaitingQuestion:           {},
	StageAwaitingTramiteQuery:       {},
	StageAwaitingTramiteSelection:   {},
	StageAwaitingProcesoElectoral:   {},
	StageAwaitingHitoConsulta:       {},
	StageAwaitingHitoSelection:      {},
	StageAwaitingPoliticoNombres:    {},
	StageAwaitingSegundoApellido:    {},
	StageAwaitingCandidatoSelection: {},
	StageAwaitingEleccionSelection:  {},
	StageAwaitingAnotherQuestion:    {},
}

// Valid reports whether s belongs to the closed stage set.
func (s Stage) Valid() bool {
	_, ok := allStages[s]
	return ok
}

// Sender identifies who produced a transcript message.
type Sender string

const (
	SenderUser Sender = "usuario"
	SenderBot  Sender = "bot"
)

// Message is a single transcript entry. Immutable once appended.
type Message struct {
	Sender    Sender    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Intent    string    `json:"intent,omitempty"`
}

// ServiceInfo is a digital-service catalog entry.
type ServiceInfo struct {
	Nombre      string `json:"nombre"`
	Descripcion string `json:"descripcion"`
	Enlace      string `json:"enlace"`
}

// Candidate is a politician record from the electoral repository.
type Candidate struct {
	Nombres         string `json:"nombres"`
	ApellidoPaterno string `json:"apellido_paterno"`
	ApellidoMaterno string `json:"apellido_materno"`
}

// FullName returns the display name for the candidate.
func (c Candidate) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{c.Nombres, c.ApellidoPaterno, c.ApellidoMaterno} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Milestone is an entry of an electoral timetable (hito electoral).
type Milestone struct {
	Proceso     string `json:"proceso"`
	Nombre      string `json:"nombre"`
	Fecha       string `json:"fecha"`
	Descripcion string `json:"descripcion"`
}

// PlenoMember is a member of the institutional board.
type PlenoMember struct {
	Cargo       string `json:"cargo"`
	Nombre      string `json:"nombre"`
	Descripcion string `json:"descripcion"`
}

// SessionContext carries stage-scoped working data. Written only by the
// dialogue controller, read back on the next turn. Candidate lists are a
// cache of a prior search; they are bounded and cleared when the stage that
// produced them is left.
type SessionContext struct {
	Flow             []string      `json:"flow,omitempty"`
	FinalChoice      string        `json:"final_choice,omitempty"`
	ProcesoElectoral string        `json:"proceso_electoral,omitempty"`
	NombresPolitico  string        `json:"nombres_politico,omitempty"`
	PrimerApellido   string        `json:"primer_apellido,omitempty"`
	Servicios        []ServiceInfo `json:"servicios,omitempty"`
	Hitos            []Milestone   `json:"hitos,omitempty"`
	Candidatos       []Candidate   `json:"candidatos,omitempty"`
	Candidato        *Candidate    `json:"candidato,omitempty"`
	Elecciones       []string      `json:"elecciones,omitempty"`
}

// ClearSelections drops every cached candidate list from the context.
func (c *SessionContext) ClearSelections() {
	c.Servicios = nil
	c.Hitos = nil
	c.Candidatos = nil
	c.Candidato = nil
	c.Elecciones = nil
}

// Session is the ephemeral per-user dialogue state. At most one exists per
// user at any time; it is owned by the session store while active.
type Session struct {
	UserID         string         `json:"user_id"`
	NumeroTelefono string         `json:"numero_telefono,omitempty"`
	Usuario        string         `json:"usuario,omitempty"`
	Canal          string         `json:"canal"`
	Stage          Stage          `json:"stage"`
	Context        SessionContext `json:"context"`
	Transcript     []Message      `json:"transcript"`
	StartedAt      time.Time      `json:"started_at"`
	LastActivityAt time.Time      `json:"last_activity_at"`
	MessageCount   int            `json:"message_count"`
}

// NewSession creates a session at the initial stage.
func NewSession(userID, canal string) *Session {
	now := time.Now().UTC()
	return &Session{
		UserID:         userID,
		Canal:          canal,
		Stage:          StageMain,
		StartedAt:      now,
		LastActivityAt: now,
	}
}

// Clone returns a deep copy of the session. Stores hand out clones so a
// caller mutating its copy never leaks a half-written turn to a concurrent
// reader.
func (s *Session) Clone() *Session {
	data, err := json.Marshal(s)
	if err != nil {
		// Session contains only JSON-encodable fields.
		panic(err)
	}
	var out Session
	if err := json.Unmarshal(data, &out); err != nil {
		panic(err)
	}
	return &out
}

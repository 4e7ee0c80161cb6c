package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Termination reasons recorded on archived conversations.
const (
	ReasonUserExit    = "usuario finalizó la conversación"
	ReasonUserNoMore  = "usuario confirmó que no tiene más consultas"
	ReasonIdleTimeout = "conversación expirada por inactividad"
	ReasonAdminReset  = "reinicio administrativo"
)

// ArchivedConversation is the durable record produced exactly once per
// completed session. Field names follow the downstream reporting schema.
type ArchivedConversation struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	NumeroTelefono *string   `json:"numero_telefono"`
	Usuario        *string   `json:"usuario"`
	Canal          string    `json:"canal"`
	Flujo          string    `json:"flujo"`
	FechaInicio    time.Time `json:"fecha_inicio"`
	FechaFin       time.Time `json:"fecha_fin"`
	DuracionTotal  int64     `json:"duracion_total"`
	NumMensajes    int       `json:"num_mensajes"`
	Error          bool      `json:"error"`
	MensajeError   *string   `json:"mensaje_error"`
}

// flujoDocument is the serialized conversation flow stored in Flujo.
type flujoDocument struct {
	UserID             string    `json:"user_id"`
	Canal              string    `json:"canal"`
	Mensajes           []Message `json:"mensajes"`
	EstadoFinal        Stage     `json:"estado_final"`
	Flow               []string  `json:"flow,omitempty"`
	MotivoFinalizacion string    `json:"motivo_finalizacion"`
	NumMensajes        int       `json:"num_mensajes"`
	DuracionTotal      int64     `json:"duracion_total"`
}

// BuildFlujo serializes the full transcript plus closing metadata.
func BuildFlujo(s *Session, reason string, duration time.Duration) (string, error) {
	doc := flujoDocument{
		UserID:             s.UserID,
		Canal:              s.Canal,
		Mensajes:           s.Transcript,
		EstadoFinal:        s.Stage,
		Flow:               s.Context.Flow,
		MotivoFinalizacion: reason,
		NumMensajes:        len(s.Transcript),
		DuracionTotal:      int64(duration.Seconds()),
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to serialize flujo: %w", err)
	}
	return string(data), nil
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/eleccia/chatbot-engine/internal/model"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL mode for concurrent readers alongside the archive writer.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS conversaciones (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		numero_telefono TEXT,
		usuario TEXT,
		canal TEXT NOT NULL DEFAULT 'telegram',
		flujo TEXT NOT NULL,
		fecha_inicio INTEGER NOT NULL,
		fecha_fin INTEGER NOT NULL,
		duracion_total INTEGER NOT NULL,
		num_mensajes INTEGER NOT NULL,
		error INTEGER NOT NULL DEFAULT 0,
		mensaje_error TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_conversaciones_user ON conversaciones(user_id, fecha_inicio);

	CREATE TABLE IF NOT EXISTS candidatos (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		nombres TEXT NOT NULL,
		apellido_paterno TEXT NOT NULL,
		apellido_materno TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_candidatos_apellidos ON candidatos(apellido_paterno, apellido_materno);

	CREATE TABLE IF NOT EXISTS participaciones (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		candidato_id INTEGER NOT NULL REFERENCES candidatos(id),
		proceso TEXT NOT NULL,
		cargo TEXT NOT NULL,
		organizacion TEXT NOT NULL,
		resultado TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_participaciones_candidato ON participaciones(candidato_id);

	CREATE TABLE IF NOT EXISTS hitos_electorales (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		proceso TEXT NOT NULL,
		nombre TEXT NOT NULL,
		fecha TEXT NOT NULL,
		descripcion TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_hitos_proceso ON hitos_electorales(proceso);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// SaveConversation persists an archived conversation.
func (s *SQLiteStore) SaveConversation(ctx context.Context, conv *model.ArchivedConversation) error {
	query := `
		INSERT INTO conversaciones
			(id, user_id, numero_telefono, usuario, canal, flujo,
			 fecha_inicio, fecha_fin, duracion_total, num_mensajes, error, mensaje_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		conv.ID,
		conv.UserID,
		conv.NumeroTelefono,
		conv.Usuario,
		conv.Canal,
		conv.Flujo,
		conv.FechaInicio.Unix(),
		conv.FechaFin.Unix(),
		conv.DuracionTotal,
		conv.NumMensajes,
		conv.Error,
		conv.MensajeError,
	)
	if err != nil {
		return fmt.Errorf("save conversation for %s: %w", conv.UserID, err)
	}
	return nil
}

// ConversationsByUser returns the most recent archives for a user.
func (s *SQLiteStore) ConversationsByUser(ctx context.Context, userID string, limit int) ([]model.ArchivedConversation, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, user_id, numero_telefono, usuario, canal, flujo,
		       fecha_inicio, fecha_fin, duracion_total, num_mensajes, error, mensaje_error
		FROM conversaciones
		WHERE user_id = ?
		ORDER BY fecha_inicio DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query conversations for %s: %w", userID, err)
	}
	defer rows.Close()

	var out []model.ArchivedConversation
	for rows.Next() {
		var conv model.ArchivedConversation
		var inicio, fin int64
		if err := rows.Scan(
			&conv.ID, &conv.UserID, &conv.NumeroTelefono, &conv.Usuario,
			&conv.Canal, &conv.Flujo, &inicio, &fin,
			&conv.DuracionTotal, &conv.NumMensajes, &conv.Error, &conv.MensajeError,
		); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		conv.FechaInicio = time.Unix(inicio, 0).UTC()
		conv.FechaFin = time.Unix(fin, 0).UTC()
		out = append(out, conv)
	}
	return out, rows.Err()
}

// FindCandidates searches politicians by free-text name input. The first
// token is matched against given names, the second against the paternal
// surname; extra tokens narrow by maternal surname.
func (s *SQLiteStore) FindCandidates(ctx context.Context, query string) ([]model.Candidate, error) {
	tokens := strings.Fields(strings.TrimSpace(query))
	if len(tokens) < 2 {
		return nil, nil
	}

	nombres := tokens[0]
	apellidoPaterno := tokens[1]
	if len(tokens) >= 3 {
		// nombre + dos apellidos: the last two tokens are the surnames.
		nombres = strings.Join(tokens[:len(tokens)-2], " ")
		apellidoPaterno = tokens[len(tokens)-2]
		return s.FindCandidatesBySurnames(ctx, nombres, apellidoPaterno, tokens[len(tokens)-1])
	}

	q := `
		SELECT nombres, apellido_paterno, apellido_materno
		FROM candidatos
		WHERE nombres LIKE ? AND apellido_paterno LIKE ?
		ORDER BY apellido_paterno, apellido_materno, nombres
		LIMIT 50`

	return s.scanCandidates(ctx, q, like(nombres), like(apellidoPaterno))
}

// FindCandidatesBySurnames refines a search with both surnames.
func (s *SQLiteStore) FindCandidatesBySurnames(ctx context.Context, nombres, apellidoPaterno, apellidoMaterno string) ([]model.Candidate, error) {
	q := `
		SELECT nombres, apellido_paterno, apellido_materno
		FROM candidatos
		WHERE nombres LIKE ? AND apellido_paterno LIKE ? AND apellido_materno LIKE ?
		ORDER BY apellido_paterno, apellido_materno, nombres
		LIMIT 50`

	return s.scanCandidates(ctx, q, like(nombres), like(apellidoPaterno), like(apellidoMaterno))
}

func (s *SQLiteStore) scanCandidates(ctx context.Context, query string, args ...any) ([]model.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	var out []model.Candidate
	for rows.Next() {
		var c model.Candidate
		if err := rows.Scan(&c.Nombres, &c.ApellidoPaterno, &c.ApellidoMaterno); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ElectionsForCandidate lists the processes a candidate participated in.
func (s *SQLiteStore) ElectionsForCandidate(ctx context.Context, c model.Candidate) ([]string, error) {
	query := `
		SELECT DISTINCT p.proceso
		FROM participaciones p
		JOIN candidatos ca ON ca.id = p.candidato_id
		WHERE ca.nombres = ? AND ca.apellido_paterno = ? AND ca.apellido_materno = ?
		ORDER BY p.proceso DESC`

	rows, err := s.db.QueryContext(ctx, query, c.Nombres, c.ApellidoPaterno, c.ApellidoMaterno)
	if err != nil {
		return nil, fmt.Errorf("query elections: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var proceso string
		if err := rows.Scan(&proceso); err != nil {
			return nil, fmt.Errorf("scan election: %w", err)
		}
		out = append(out, proceso)
	}
	return out, rows.Err()
}

// CandidateElectionDetail returns a formatted participation detail.
func (s *SQLiteStore) CandidateElectionDetail(ctx context.Context, c model.Candidate, eleccion string) (string, error) {
	query := `
		SELECT p.cargo, p.organizacion, COALESCE(p.resultado, '')
		FROM participaciones p
		JOIN candidatos ca ON ca.id = p.candidato_id
		WHERE ca.nombres = ? AND ca.apellido_paterno = ? AND ca.apellido_materno = ?
		  AND p.proceso = ?
		LIMIT 1`

	var cargo, organizacion, resultado string
	err := s.db.QueryRowContext(ctx, query, c.Nombres, c.ApellidoPaterno, c.ApellidoMaterno, eleccion).
		Scan(&cargo, &organizacion, &resultado)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query candidate detail: %w", err)
	}

	detail := fmt.Sprintf("👤 **%s**\n\n🗳️ **Proceso:** %s\n💼 **Cargo:** %s\n🏛️ **Organización:** %s",
		c.FullName(), eleccion, cargo, organizacion)
	if resultado != "" {
		detail += "\n📊 **Resultado:** " + resultado
	}
	return detail, nil
}

// SearchMilestones searches the electoral timetable of a process by keyword.
// An empty query returns the full timetable.
func (s *SQLiteStore) SearchMilestones(ctx context.Context, proceso, query string) ([]model.Milestone, error) {
	q := `
		SELECT proceso, nombre, fecha, COALESCE(descripcion, '')
		FROM hitos_electorales
		WHERE proceso = ?`
	args := []any{proceso}

	var conds []string
	for _, t := range strings.Fields(strings.ToLower(strings.TrimSpace(query))) {
		// Short tokens are connectives ("de", "la") and would match
		// nearly every row.
		if len([]rune(t)) < 3 {
			continue
		}
		conds = append(conds, "(LOWER(nombre) LIKE ? OR LOWER(descripcion) LIKE ?)")
		args = append(args, like(t), like(t))
	}
	if len(conds) > 0 {
		q += " AND (" + strings.Join(conds, " OR ") + ")"
	}
	q += " ORDER BY fecha LIMIT 10"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query milestones: %w", err)
	}
	defer rows.Close()

	var out []model.Milestone
	for rows.Next() {
		var m model.Milestone
		if err := rows.Scan(&m.Proceso, &m.Nombre, &m.Fecha, &m.Descripcion); err != nil {
			return nil, fmt.Errorf("scan milestone: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func like(s string) string {
	return "%" + strings.TrimSpace(s) + "%"
}

// Package store provides durable persistence: the conversation archive and
// read-only electoral lookups.
package store

import (
	"context"

	"github.com/eleccia/chatbot-engine/internal/model"
)

// Repository defines durable storage consumed by the engine.
type Repository interface {
	// SaveConversation persists an archived conversation. It is the only
	// write the engine performs; failure must be surfaced, never treated
	// as success.
	SaveConversation(ctx context.Context, conv *model.ArchivedConversation) error

	// ConversationsByUser returns the most recent archived conversations
	// for a user, newest first.
	ConversationsByUser(ctx context.Context, userID string, limit int) ([]model.ArchivedConversation, error)

	// FindCandidates searches politicians by free-text name input
	// (at least one given name and one surname).
	FindCandidates(ctx context.Context, query string) ([]model.Candidate, error)

	// FindCandidatesBySurnames refines a search with both surnames.
	FindCandidatesBySurnames(ctx context.Context, nombres, apellidoPaterno, apellidoMaterno string) ([]model.Candidate, error)

	// ElectionsForCandidate lists the electoral processes a candidate
	// participated in.
	ElectionsForCandidate(ctx context.Context, c model.Candidate) ([]string, error)

	// CandidateElectionDetail returns the formatted participation detail
	// for a candidate in one election, or "" when none exists.
	CandidateElectionDetail(ctx context.Context, c model.Candidate, eleccion string) (string, error)

	// SearchMilestones searches the electoral timetable of a process.
	SearchMilestones(ctx context.Context, proceso, query string) ([]model.Milestone, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}

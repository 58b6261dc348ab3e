// Package store encapsulates the relational back end and exposes only
// the locking primitives and queries the engine needs. See
// SPEC_FULL.md §4.2.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/acaldeo/TallerMendoza/internal/models"
)

// TimestampField names which Turn timestamp column UpdateTurnState
// writes, alongside the new state.
type TimestampField string

const (
	TimestampStarted   TimestampField = "started_at"
	TimestampFinalized TimestampField = "finalized_at"
	TimestampCancelled TimestampField = "cancelled_at"
	TimestampNone      TimestampField = ""
)

// Store opens transactions. Everything else is transaction-scoped.
type Store interface {
	BeginTx(ctx context.Context) (Tx, error)

	// ListNonTerminal and ListByPlateSubstring are read-only and do
	// not require a transaction.
	ListNonTerminal(ctx context.Context, workshopID uuid.UUID) ([]models.Turn, error)
	ListByPlateSubstring(ctx context.Context, workshopID uuid.UUID, plateQuery string) ([]models.Turn, error)
}

// Tx is a single business transaction: one or more locks, reads and
// writes, followed by Commit or Rollback. Implementations must
// guarantee the underlying resource (connection, mutex) is released on
// every exit path.
type Tx interface {
	// LockWorkshop acquires a pessimistic write lock on the Workshop
	// row. Returns apperr NOT_FOUND if absent.
	LockWorkshop(ctx context.Context, id uuid.UUID) (models.Workshop, error)

	// LockTurn acquires a pessimistic write lock on the Turn row.
	// Returns apperr NOT_FOUND if absent.
	LockTurn(ctx context.Context, id uuid.UUID) (models.Turn, error)

	// MaxTurnNumber returns the highest turn_number ever issued in the
	// workshop, including terminal rows, or 0 if none exist.
	MaxTurnNumber(ctx context.Context, workshopID uuid.UUID) (int64, error)

	// CountInService returns the number of IN_SERVICE turns in the
	// workshop.
	CountInService(ctx context.Context, workshopID uuid.UUID) (int, error)

	// FindNonTerminalByPlate returns the unique non-terminal turn for
	// (workshopID, plate), or ok=false if none exists.
	FindNonTerminalByPlate(ctx context.Context, workshopID uuid.UUID, plate string) (models.Turn, bool, error)

	// OldestWaiting returns the oldest WAITING turn in the workshop
	// (created_at ASC, turn_number ASC), locked for update, or
	// ok=false if none exists.
	OldestWaiting(ctx context.Context, workshopID uuid.UUID) (models.Turn, bool, error)

	InsertTurn(ctx context.Context, t models.Turn) error

	// UpdateTurnState transitions a turn to newState and, if field is
	// non-empty, stamps the named timestamp column with ts.
	UpdateTurnState(ctx context.Context, id uuid.UUID, newState models.TurnState, field TimestampField, ts time.Time) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// TurnState is the finite set of states a Turn can occupy. WAITING and
// IN_SERVICE are non-terminal; FINALIZED and CANCELLED are terminal and
// never transition again.
type TurnState string

const (
	StateWaiting   TurnState = "WAITING"
	StateInService TurnState = "IN_SERVICE"
	StateFinalized TurnState = "FINALIZED"
	StateCancelled TurnState = "CANCELLED"
)

// Terminal reports whether s is a terminal state.
func (s TurnState) Terminal() bool {
	return s == StateFinalized || s == StateCancelled
}

// Turn is a single customer appointment within one workshop.
type Turn struct {
	ID          uuid.UUID
	WorkshopID  uuid.UUID
	TurnNumber  int64
	Customer    string
	Phone       string
	VehicleModel string
	Plate       string
	Problem     string
	State       TurnState

	CreatedAt   time.Time
	StartedAt   *time.Time
	FinalizedAt *time.Time
	CancelledAt *time.Time
}

// NewTurnInput is the payload accepted by QueueEngine.Create. Field
// validation (length, regex, required-ness) is the HTTP layer's job;
// the engine re-validates only the plate normalisation and the
// invariants it owns.
type NewTurnInput struct {
	Customer     string
	Phone        string
	VehicleModel string
	Plate        string
	Problem      string
}

// TurnSummary is the non-PII projection returned by Status: just enough
// to render a queue board.
type TurnSummary struct {
	TurnNumber int64     `json:"numeroTurno"`
	State      TurnState `json:"estado"`
}

// TurnDetail is the full projection returned by List, including
// timestamps at second precision.
type TurnDetail struct {
	ID           uuid.UUID  `json:"id"`
	TurnNumber   int64      `json:"numeroTurno"`
	Customer     string     `json:"nombreCliente"`
	Phone        string     `json:"telefono"`
	VehicleModel string     `json:"modeloVehiculo"`
	Plate        string     `json:"patente"`
	Problem      string     `json:"descripcionProblema"`
	State        TurnState  `json:"estado"`
	CreatedAt    time.Time  `json:"creadoEn"`
	StartedAt    *time.Time `json:"inicioEn,omitempty"`
	FinalizedAt  *time.Time `json:"finalizadoEn,omitempty"`
	CancelledAt  *time.Time `json:"canceladoEn,omitempty"`
}

// Summary projects a Turn down to its queue-board representation.
func (t Turn) Summary() TurnSummary {
	return TurnSummary{TurnNumber: t.TurnNumber, State: t.State}
}

// Detail projects a Turn down to its full customer-lookup representation.
// Timestamps are truncated to second precision per the ISO-8601 contract.
func (t Turn) Detail() TurnDetail {
	return TurnDetail{
		ID:           t.ID,
		TurnNumber:   t.TurnNumber,
		Customer:     t.Customer,
		Phone:        t.Phone,
		VehicleModel: t.VehicleModel,
		Plate:        t.Plate,
		Problem:      t.Problem,
		State:        t.State,
		CreatedAt:    t.CreatedAt.Truncate(time.Second),
		StartedAt:    truncatePtr(t.StartedAt),
		FinalizedAt:  truncatePtr(t.FinalizedAt),
		CancelledAt:  truncatePtr(t.CancelledAt),
	}
}

func truncatePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.Truncate(time.Second)
	return &v
}

// ListFilter is the optional filter accepted by QueueEngine.List.
type ListFilter struct {
	// Plate is a free-text, case-insensitive substring match. When
	// empty, List returns non-terminal turns only; when set, it
	// returns all matching turns including terminal ones.
	Plate string
}

// Package engine implements the appointment scheduler and queue
// engine: the core state machine described in SPEC_FULL.md §4.1. It is
// pure business logic — all I/O goes through the store.Store and
// notifier.Notifier interfaces it is constructed with.
package engine

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/acaldeo/TallerMendoza/internal/apperr"
	"github.com/acaldeo/TallerMendoza/internal/clock"
	"github.com/acaldeo/TallerMendoza/internal/models"
	"github.com/acaldeo/TallerMendoza/internal/notifier"
	"github.com/acaldeo/TallerMendoza/internal/store"
)

// Engine owns the turn state machine, the per-workshop numbering
// invariant, the capacity invariant, and the promotion rule. A single
// Engine value is safe for concurrent use by multiple request
// goroutines: all serialisation happens inside Store transactions via
// the Workshop row lock.
type Engine struct {
	store    store.Store
	clock    clock.Clock
	notifier notifier.Notifier
	log      *slog.Logger
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithLogger overrides the default logger (slog.Default()).
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// New builds an Engine over the given Store, Clock and Notifier.
func New(s store.Store, c clock.Clock, n notifier.Notifier, opts ...Option) *Engine {
	e := &Engine{
		store:    s,
		clock:    c,
		notifier: n,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// normalisePlate trims and upper-cases a plate, per SPEC_FULL.md §3.
func normalisePlate(plate string) string {
	return strings.ToUpper(strings.TrimSpace(plate))
}

// Create assigns the next turn_number for the workshop and admits the
// turn into service or into the waiting line depending on current
// occupancy. See SPEC_FULL.md §4.1 "Create".
func (e *Engine) Create(ctx context.Context, workshopID uuid.UUID, in models.NewTurnInput) (models.Turn, error) {
	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return models.Turn{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	workshop, err := tx.LockWorkshop(ctx, workshopID)
	if err != nil {
		return models.Turn{}, err
	}

	plate := normalisePlate(in.Plate)
	if plate == "" {
		return models.Turn{}, apperr.New(apperr.Validation, "plate must not be empty")
	}

	if existing, found, err := tx.FindNonTerminalByPlate(ctx, workshopID, plate); err != nil {
		return models.Turn{}, err
	} else if found {
		return models.Turn{}, apperr.New(apperr.DuplicatePlate, "plate already has an active turn").
			WithPayload(map[string]int64{"numeroTurno": existing.TurnNumber})
	}

	maxNumber, err := tx.MaxTurnNumber(ctx, workshopID)
	if err != nil {
		return models.Turn{}, err
	}

	inService, err := tx.CountInService(ctx, workshopID)
	if err != nil {
		return models.Turn{}, err
	}

	now := e.clock.Now()
	turn := models.Turn{
		ID:           uuid.New(),
		WorkshopID:   workshopID,
		TurnNumber:   maxNumber + 1,
		Customer:     in.Customer,
		Phone:        in.Phone,
		VehicleModel: in.VehicleModel,
		Plate:        plate,
		Problem:      in.Problem,
		CreatedAt:    now,
	}

	if inService < workshop.Capacity {
		turn.State = models.StateInService
		turn.StartedAt = &now
	} else {
		turn.State = models.StateWaiting
	}

	if err := tx.InsertTurn(ctx, turn); err != nil {
		return models.Turn{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Turn{}, err
	}

	e.notifier.TurnCreated(detachedContext(ctx), turn)

	return turn, nil
}

// Finalize transitions an IN_SERVICE turn to FINALIZED and promotes the
// oldest WAITING turn, if any, into the freed slot. See SPEC_FULL.md
// §4.1 "Finalize".
func (e *Engine) Finalize(ctx context.Context, turnID uuid.UUID) error {
	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	turn, err := tx.LockTurn(ctx, turnID)
	if err != nil {
		return err
	}
	if turn.State != models.StateInService {
		return apperr.New(apperr.StateConflict, "turn is not in service")
	}

	// Lock the parent Workshop before any further Turn lock inside
	// this transaction, to coordinate with Create/Cancel.
	workshop, err := tx.LockWorkshop(ctx, turn.WorkshopID)
	if err != nil {
		return err
	}

	now := e.clock.Now()
	if err := tx.UpdateTurnState(ctx, turn.ID, models.StateFinalized, store.TimestampFinalized, now); err != nil {
		return err
	}

	if err := e.promote(ctx, tx, workshop, now); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Cancel transitions a non-terminal turn to CANCELLED, after verifying
// the presented plate matches the stored one. See SPEC_FULL.md §4.1
// "Cancel".
func (e *Engine) Cancel(ctx context.Context, turnID uuid.UUID, presentedPlate string) error {
	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	turn, err := tx.LockTurn(ctx, turnID)
	if err != nil {
		return err
	}

	workshop, err := tx.LockWorkshop(ctx, turn.WorkshopID)
	if err != nil {
		return err
	}

	if normalisePlate(presentedPlate) != turn.Plate {
		return apperr.New(apperr.Forbidden, "plate does not match turn")
	}
	if turn.State.Terminal() {
		return apperr.New(apperr.StateConflict, "turn is already terminal")
	}

	priorState := turn.State
	now := e.clock.Now()
	if err := tx.UpdateTurnState(ctx, turn.ID, models.StateCancelled, store.TimestampCancelled, now); err != nil {
		return err
	}

	if priorState == models.StateInService {
		if err := e.promote(ctx, tx, workshop, now); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// CancelByPlate looks up the unique non-terminal turn for (workshopID,
// presentedPlate) and cancels it. See SPEC_FULL.md §4.1
// "CancelByPlate".
func (e *Engine) CancelByPlate(ctx context.Context, workshopID uuid.UUID, presentedPlate string) (int64, error) {
	plate := normalisePlate(presentedPlate)

	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return 0, err
	}

	workshop, err := tx.LockWorkshop(ctx, workshopID)
	if err != nil {
		_ = tx.Rollback(ctx)
		return 0, err
	}

	turn, found, err := tx.FindNonTerminalByPlate(ctx, workshopID, plate)
	if err != nil {
		_ = tx.Rollback(ctx)
		return 0, err
	}
	if !found {
		_ = tx.Rollback(ctx)
		return 0, apperr.New(apperr.NotFound, "no active turn for that plate")
	}

	priorState := turn.State
	now := e.clock.Now()
	if err := tx.UpdateTurnState(ctx, turn.ID, models.StateCancelled, store.TimestampCancelled, now); err != nil {
		_ = tx.Rollback(ctx)
		return 0, err
	}

	if priorState == models.StateInService {
		if err := e.promote(ctx, tx, workshop, now); err != nil {
			_ = tx.Rollback(ctx)
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	return turn.TurnNumber, nil
}

// StatusResult is the payload returned by Status.
type StatusResult struct {
	Name      string
	Capacity  int
	InService []models.TurnSummary
	Waiting   []models.TurnSummary
}

// Status returns the non-terminal turns for a workshop, split by
// state, alongside its display name and capacity. Read-only: takes no
// lock, so it may observe a turn mid-transition; this is acceptable
// per SPEC_FULL.md §5.
func (e *Engine) Status(ctx context.Context, workshopID uuid.UUID, directory WorkshopLookup) (StatusResult, error) {
	workshop, err := directory.Get(ctx, workshopID)
	if err != nil {
		return StatusResult{}, err
	}

	turns, err := e.store.ListNonTerminal(ctx, workshopID)
	if err != nil {
		return StatusResult{}, err
	}

	result := StatusResult{Name: workshop.Name, Capacity: workshop.Capacity}
	for _, t := range turns {
		switch t.State {
		case models.StateInService:
			result.InService = append(result.InService, t.Summary())
		case models.StateWaiting:
			result.Waiting = append(result.Waiting, t.Summary())
		}
	}
	return result, nil
}

// List returns turn details for a workshop: non-terminal only when
// filter.Plate is empty, or all turns matching the plate substring
// (including terminal ones) otherwise.
func (e *Engine) List(ctx context.Context, workshopID uuid.UUID, filter models.ListFilter) ([]models.TurnDetail, error) {
	var turns []models.Turn
	var err error
	if strings.TrimSpace(filter.Plate) == "" {
		turns, err = e.store.ListNonTerminal(ctx, workshopID)
	} else {
		turns, err = e.store.ListByPlateSubstring(ctx, workshopID, filter.Plate)
	}
	if err != nil {
		return nil, err
	}

	details := make([]models.TurnDetail, 0, len(turns))
	for _, t := range turns {
		details = append(details, t.Detail())
	}
	return details, nil
}

// WorkshopLookup is the subset of directory.Directory the engine needs
// for Status. Kept as a narrow interface here so engine never depends
// on the directory package's concrete storage.
type WorkshopLookup interface {
	Get(ctx context.Context, id uuid.UUID) (models.Workshop, error)
}

// promote moves the oldest WAITING turn into IN_SERVICE, if one
// exists and the workshop's IN_SERVICE count is below its capacity.
// Called from inside Finalize/Cancel, at most once per freed slot; after
// a capacity cut it promotes nothing until occupancy drops below the
// new capacity.
func (e *Engine) promote(ctx context.Context, tx store.Tx, workshop models.Workshop, now time.Time) error {
	inService, err := tx.CountInService(ctx, workshop.ID)
	if err != nil {
		return err
	}
	if inService >= workshop.Capacity {
		return nil
	}
	t, found, err := tx.OldestWaiting(ctx, workshop.ID)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	return tx.UpdateTurnState(ctx, t.ID, models.StateInService, store.TimestampStarted, now)
}

// detachedContext strips the deadline/cancellation of ctx while
// keeping its values, so a post-commit Notifier call is never aborted
// by the HTTP request that triggered it finishing first.
func detachedContext(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

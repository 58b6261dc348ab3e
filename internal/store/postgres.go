package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/google/uuid"

	"github.com/acaldeo/TallerMendoza/internal/apperr"
	"github.com/acaldeo/TallerMendoza/internal/models"
)

// Connect opens a pooled connection to PostgreSQL via the pgx stdlib
// driver. maxOpenConns mirrors the "worker thread count" configuration
// key: one DB connection is held per concurrently-executing request at
// most.
func Connect(dsn string, maxOpenConns int) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if maxOpenConns <= 0 {
		maxOpenConns = 10
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxOpenConns / 2)
	db.SetConnMaxLifetime(15 * time.Minute)

	return db, nil
}

// Postgres is the production Store, backed by *sql.DB.
type Postgres struct {
	db *sql.DB
}

// NewPostgres wraps an already-open *sql.DB.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// BeginTx opens a Read-Committed transaction. Isolation level is not
// the correctness anchor here — the FOR UPDATE row locks are.
func (p *Postgres) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := p.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, apperr.Wrap(err, "begin transaction")
	}
	return &postgresTx{tx: tx}, nil
}

func (p *Postgres) ListNonTerminal(ctx context.Context, workshopID uuid.UUID) ([]models.Turn, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, workshop_id, turn_number, customer_name, phone, vehicle_model,
		       plate, problem, state, created_at, started_at, finalized_at, cancelled_at
		FROM turns
		WHERE workshop_id = $1 AND state IN ('WAITING','IN_SERVICE')
		ORDER BY turn_number ASC
	`, workshopID)
	if err != nil {
		return nil, apperr.Wrap(err, "list non-terminal turns")
	}
	defer rows.Close()
	return scanTurns(rows)
}

func (p *Postgres) ListByPlateSubstring(ctx context.Context, workshopID uuid.UUID, plateQuery string) ([]models.Turn, error) {
	needle := "%" + strings.ToUpper(strings.TrimSpace(plateQuery)) + "%"
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, workshop_id, turn_number, customer_name, phone, vehicle_model,
		       plate, problem, state, created_at, started_at, finalized_at, cancelled_at
		FROM turns
		WHERE workshop_id = $1 AND plate LIKE $2
		ORDER BY turn_number ASC
	`, workshopID, needle)
	if err != nil {
		return nil, apperr.Wrap(err, "list turns by plate substring")
	}
	defer rows.Close()
	return scanTurns(rows)
}

type postgresTx struct {
	tx *sql.Tx
}

func (t *postgresTx) LockWorkshop(ctx context.Context, id uuid.UUID) (models.Workshop, error) {
	var w models.Workshop
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, name, address, logo, capacity, created_at
		FROM workshops WHERE id = $1 FOR UPDATE
	`, id).Scan(&w.ID, &w.Name, &w.Address, &w.Logo, &w.Capacity, &w.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Workshop{}, apperr.New(apperr.NotFound, "workshop not found")
	}
	if err != nil {
		return models.Workshop{}, apperr.Wrap(err, "lock workshop")
	}
	return w, nil
}

func (t *postgresTx) LockTurn(ctx context.Context, id uuid.UUID) (models.Turn, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT id, workshop_id, turn_number, customer_name, phone, vehicle_model,
		       plate, problem, state, created_at, started_at, finalized_at, cancelled_at
		FROM turns WHERE id = $1 FOR UPDATE
	`, id)
	turn, err := scanTurn(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Turn{}, apperr.New(apperr.NotFound, "turn not found")
	}
	if err != nil {
		return models.Turn{}, apperr.Wrap(err, "lock turn")
	}
	return turn, nil
}

func (t *postgresTx) MaxTurnNumber(ctx context.Context, workshopID uuid.UUID) (int64, error) {
	var max sql.NullInt64
	err := t.tx.QueryRowContext(ctx, `
		SELECT MAX(turn_number) FROM turns WHERE workshop_id = $1
	`, workshopID).Scan(&max)
	if err != nil {
		return 0, apperr.Wrap(err, "max turn number")
	}
	return max.Int64, nil
}

func (t *postgresTx) CountInService(ctx context.Context, workshopID uuid.UUID) (int, error) {
	var count int
	err := t.tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM turns WHERE workshop_id = $1 AND state = 'IN_SERVICE'
	`, workshopID).Scan(&count)
	if err != nil {
		return 0, apperr.Wrap(err, "count in-service turns")
	}
	return count, nil
}

func (t *postgresTx) FindNonTerminalByPlate(ctx context.Context, workshopID uuid.UUID, plate string) (models.Turn, bool, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT id, workshop_id, turn_number, customer_name, phone, vehicle_model,
		       plate, problem, state, created_at, started_at, finalized_at, cancelled_at
		FROM turns
		WHERE workshop_id = $1 AND plate = $2 AND state IN ('WAITING','IN_SERVICE')
		FOR UPDATE
	`, workshopID, plate)
	turn, err := scanTurn(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Turn{}, false, nil
	}
	if err != nil {
		return models.Turn{}, false, apperr.Wrap(err, "find non-terminal turn by plate")
	}
	return turn, true, nil
}

func (t *postgresTx) OldestWaiting(ctx context.Context, workshopID uuid.UUID) (models.Turn, bool, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT id, workshop_id, turn_number, customer_name, phone, vehicle_model,
		       plate, problem, state, created_at, started_at, finalized_at, cancelled_at
		FROM turns
		WHERE workshop_id = $1 AND state = 'WAITING'
		ORDER BY created_at ASC, turn_number ASC
		LIMIT 1
		FOR UPDATE
	`, workshopID)
	turn, err := scanTurn(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Turn{}, false, nil
	}
	if err != nil {
		return models.Turn{}, false, apperr.Wrap(err, "oldest waiting turn")
	}
	return turn, true, nil
}

func (t *postgresTx) InsertTurn(ctx context.Context, turn models.Turn) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO turns (id, workshop_id, turn_number, customer_name, phone, vehicle_model,
		                    plate, problem, state, created_at, started_at, finalized_at, cancelled_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, turn.ID, turn.WorkshopID, turn.TurnNumber, turn.Customer, turn.Phone, turn.VehicleModel,
		turn.Plate, turn.Problem, turn.State, turn.CreatedAt, turn.StartedAt, turn.FinalizedAt, turn.CancelledAt)
	if err != nil {
		return apperr.Wrap(err, "insert turn")
	}
	return nil
}

func (t *postgresTx) UpdateTurnState(ctx context.Context, id uuid.UUID, newState models.TurnState, field TimestampField, ts time.Time) error {
	var query string
	switch field {
	case TimestampStarted:
		query = `UPDATE turns SET state=$1, started_at=$2 WHERE id=$3`
	case TimestampFinalized:
		query = `UPDATE turns SET state=$1, finalized_at=$2 WHERE id=$3`
	case TimestampCancelled:
		query = `UPDATE turns SET state=$1, cancelled_at=$2 WHERE id=$3`
	case TimestampNone:
		_, err := t.tx.ExecContext(ctx, `UPDATE turns SET state=$1 WHERE id=$2`, newState, id)
		if err != nil {
			return apperr.Wrap(err, "update turn state")
		}
		return nil
	default:
		return apperr.Newf(apperr.Internal, "unknown timestamp field %q", field)
	}
	_, err := t.tx.ExecContext(ctx, query, newState, ts, id)
	if err != nil {
		return apperr.Wrap(err, "update turn state")
	}
	return nil
}

func (t *postgresTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(); err != nil {
		return apperr.Wrap(err, "commit transaction")
	}
	return nil
}

func (t *postgresTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return apperr.Wrap(err, "rollback transaction")
	}
	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTurn(row scanner) (models.Turn, error) {
	var t models.Turn
	err := row.Scan(
		&t.ID, &t.WorkshopID, &t.TurnNumber, &t.Customer, &t.Phone, &t.VehicleModel,
		&t.Plate, &t.Problem, &t.State, &t.CreatedAt, &t.StartedAt, &t.FinalizedAt, &t.CancelledAt,
	)
	return t, err
}

func scanTurns(rows *sql.Rows) ([]models.Turn, error) {
	var out []models.Turn
	for rows.Next() {
		t, err := scanTurn(rows)
		if err != nil {
			return nil, apperr.Wrap(err, "scan turn")
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(err, "iterate turns")
	}
	return out, nil
}

// Package directory implements the façade over Workshop rows: read-only
// lookups used by the Status/List endpoints and external admin display,
// plus the administrative Create/UpdateCapacity/Delete commands.
// See SPEC_FULL.md §4.3. The engine's own reads during Create/Finalize/
// Cancel go through store.Tx locks, never through this package.
package directory

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/acaldeo/TallerMendoza/internal/apperr"
	"github.com/acaldeo/TallerMendoza/internal/models"
)

// Directory is the read/admin façade over workshops(...).
type Directory struct {
	db *sql.DB
}

// New wraps an already-open *sql.DB.
func New(db *sql.DB) *Directory {
	return &Directory{db: db}
}

// Get returns a single workshop by id, or apperr NOT_FOUND.
func (d *Directory) Get(ctx context.Context, id uuid.UUID) (models.Workshop, error) {
	var w models.Workshop
	err := d.db.QueryRowContext(ctx, `
		SELECT id, name, address, logo, capacity, created_at FROM workshops WHERE id = $1
	`, id).Scan(&w.ID, &w.Name, &w.Address, &w.Logo, &w.Capacity, &w.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Workshop{}, apperr.New(apperr.NotFound, "workshop not found")
	}
	if err != nil {
		return models.Workshop{}, apperr.Wrap(err, "get workshop")
	}
	return w, nil
}

// List returns every workshop, ordered by name, for admin display.
func (d *Directory) List(ctx context.Context) ([]models.Workshop, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, name, address, logo, capacity, created_at FROM workshops ORDER BY name ASC
	`)
	if err != nil {
		return nil, apperr.Wrap(err, "list workshops")
	}
	defer rows.Close()

	var out []models.Workshop
	for rows.Next() {
		var w models.Workshop
		if err := rows.Scan(&w.ID, &w.Name, &w.Address, &w.Logo, &w.Capacity, &w.CreatedAt); err != nil {
			return nil, apperr.Wrap(err, "scan workshop")
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(err, "iterate workshops")
	}
	return out, nil
}

// Create inserts a new workshop. Capacity defaults to
// models.DefaultCapacity when capacity is 0 or negative.
func (d *Directory) Create(ctx context.Context, name string, address, logo *string, capacity int) (models.Workshop, error) {
	if capacity <= 0 {
		capacity = models.DefaultCapacity
	}
	w := models.Workshop{
		ID:        uuid.New(),
		Name:      name,
		Address:   address,
		Logo:      logo,
		Capacity:  capacity,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO workshops (id, name, address, logo, capacity, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, w.ID, w.Name, w.Address, w.Logo, w.Capacity, w.CreatedAt)
	if err != nil {
		return models.Workshop{}, apperr.Wrap(err, "create workshop")
	}
	return w, nil
}

// UpdateCapacity changes a workshop's capacity. Per SPEC_FULL.md §4.3,
// this has no retroactive effect on turns already IN_SERVICE: shrinking
// below the current occupancy is allowed, and the engine simply stops
// promoting until occupancy drops back under the new capacity.
func (d *Directory) UpdateCapacity(ctx context.Context, id uuid.UUID, capacity int) error {
	if capacity < 1 {
		return apperr.New(apperr.Validation, "capacity must be >= 1")
	}
	res, err := d.db.ExecContext(ctx, `UPDATE workshops SET capacity = $1 WHERE id = $2`, capacity, id)
	if err != nil {
		return apperr.Wrap(err, "update capacity")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Wrap(err, "update capacity")
	}
	if n == 0 {
		return apperr.New(apperr.NotFound, "workshop not found")
	}
	return nil
}

// Delete destroys a workshop and cascades to its turns, per
// SPEC_FULL.md §4.5. Users and email-config rows of the workshop are
// out of this module's scope; only the turns cascade is modelled here.
func (d *Directory) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Wrap(err, "begin delete workshop")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM turns WHERE workshop_id = $1`, id); err != nil {
		return apperr.Wrap(err, "cascade delete turns")
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM workshops WHERE id = $1`, id)
	if err != nil {
		return apperr.Wrap(err, "delete workshop")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Wrap(err, "delete workshop")
	}
	if n == 0 {
		return apperr.New(apperr.NotFound, "workshop not found")
	}
	if err := tx.Commit(); err != nil {
		return apperr.Wrap(err, "commit delete workshop")
	}
	return nil
}

// Package models holds the data types shared across the store, engine,
// directory and API layers.
package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultCapacity is used by the directory when a new workshop is
// created without an explicit capacity.
const DefaultCapacity = 3

// Workshop is an independent service unit: its own queue, capacity and
// turn-numbering space.
type Workshop struct {
	ID        uuid.UUID
	Name      string
	Address   *string
	Logo      *string
	Capacity  int
	CreatedAt time.Time
}

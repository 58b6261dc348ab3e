// Package notifier implements the fire-and-forget side channel invoked
// after a successful Create commit. See SPEC_FULL.md §4.4.
package notifier

import (
	"context"

	"github.com/acaldeo/TallerMendoza/internal/models"
)

// Notifier is called after a Turn is committed into the store. Calls
// are best-effort: implementations must never block the caller on
// anything beyond enqueueing, and must never surface an error back
// into the business transaction — TurnCreated has no error return for
// exactly that reason.
type Notifier interface {
	TurnCreated(ctx context.Context, turn models.Turn)
}

package notifier

import (
	"context"

	"github.com/acaldeo/TallerMendoza/internal/models"
)

// Multi fans a single TurnCreated call out to every delegate, in
// order. Lets a deployment run the in-memory queue and the Redis
// stream side by side without the engine knowing about either.
type Multi []Notifier

// TurnCreated implements Notifier.
func (m Multi) TurnCreated(ctx context.Context, turn models.Turn) {
	for _, n := range m {
		n.TurnCreated(ctx, turn)
	}
}

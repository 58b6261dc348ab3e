package notifier

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/acaldeo/TallerMendoza/internal/models"
)

// Redis publishes a TurnCreated event onto a Redis Stream via XAdd, so
// an out-of-process worker (email dispatch, SMS, a dashboard) can
// subscribe without the engine knowing it exists. The call is
// fire-and-forget: XAdd errors are logged at WARN and never returned.
type Redis struct {
	client *redis.Client
	stream string
	log    *slog.Logger
}

// NewRedis builds a Redis notifier writing to the given stream key.
func NewRedis(client *redis.Client, stream string, log *slog.Logger) *Redis {
	if log == nil {
		log = slog.Default()
	}
	return &Redis{client: client, stream: stream, log: log}
}

// TurnCreated implements Notifier.
func (r *Redis) TurnCreated(ctx context.Context, turn models.Turn) {
	_, err := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		Values: map[string]interface{}{
			"turn_id":     turn.ID.String(),
			"workshop_id": turn.WorkshopID.String(),
			"event":       "turn.created",
			"created_at":  turn.CreatedAt.UTC().Format(time.RFC3339),
		},
	}).Result()
	if err != nil {
		r.log.Warn("notifier: XAdd failed", "turn_id", turn.ID, "stream", r.stream, "error", err)
	}
}

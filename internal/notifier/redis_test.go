package notifier_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/acaldeo/TallerMendoza/internal/models"
	"github.com/acaldeo/TallerMendoza/internal/notifier"
)

func TestRedis_TurnCreated_PublishesXAdd(t *testing.T) {
	rdb, mock := redismock.NewClientMock()

	turn := models.Turn{
		ID:         uuid.New(),
		WorkshopID: uuid.New(),
		TurnNumber: 7,
		CreatedAt:  time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
	}

	mock.ExpectXAdd(&redis.XAddArgs{
		Stream: "turnos.stream",
		Values: map[string]interface{}{
			"turn_id":     turn.ID.String(),
			"workshop_id": turn.WorkshopID.String(),
			"event":       "turn.created",
			"created_at":  turn.CreatedAt.Format(time.RFC3339),
		},
	}).SetVal("1-1")

	n := notifier.NewRedis(rdb, "turnos.stream", nil)
	n.TurnCreated(context.Background(), turn)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedis_TurnCreated_LogsOnFailureWithoutPanicking(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	turn := models.Turn{ID: uuid.New(), WorkshopID: uuid.New(), CreatedAt: time.Now().UTC()}

	mock.ExpectXAdd(&redis.XAddArgs{
		Stream: "turnos.stream",
		Values: map[string]interface{}{
			"turn_id":     turn.ID.String(),
			"workshop_id": turn.WorkshopID.String(),
			"event":       "turn.created",
			"created_at":  turn.CreatedAt.Format(time.RFC3339),
		},
	}).SetErr(assertableErr{})

	n := notifier.NewRedis(rdb, "turnos.stream", nil)
	assert.NotPanics(t, func() {
		n.TurnCreated(context.Background(), turn)
	})
}

type assertableErr struct{}

func (assertableErr) Error() string { return "redis unavailable" }

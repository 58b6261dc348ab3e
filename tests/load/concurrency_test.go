package load

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acaldeo/TallerMendoza/internal/apperr"
	"github.com/acaldeo/TallerMendoza/internal/clock"
	"github.com/acaldeo/TallerMendoza/internal/engine"
	"github.com/acaldeo/TallerMendoza/internal/models"
	"github.com/acaldeo/TallerMendoza/internal/notifier"
	"github.com/acaldeo/TallerMendoza/internal/store"
)

type noopNotifier struct{}

func (noopNotifier) TurnCreated(ctx context.Context, turn models.Turn) {}

var _ notifier.Notifier = noopNotifier{}

// TestConcurrentTurnCreation hammers a single workshop with concurrent
// Create calls and checks the invariants from SPEC_FULL.md §8 (P1, P2,
// P3) hold once every goroutine has returned.
func TestConcurrentTurnCreation(t *testing.T) {
	mem := store.NewMemory()
	workshopID := uuid.New()
	const capacity = 5
	mem.PutWorkshop(models.Workshop{ID: workshopID, Name: "Taller Concurrente", Capacity: capacity})

	eng := engine.New(mem, clock.System{}, noopNotifier{})

	const n = 200
	var wg sync.WaitGroup
	wg.Add(n)

	errs := make([]error, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			_, err := eng.Create(context.Background(), workshopID, models.NewTurnInput{
				Customer:     "Load Test #" + strconv.Itoa(i),
				Phone:        "12345678",
				VehicleModel: "Civic",
				Plate:        "PLATE" + strconv.Itoa(i),
				Problem:      "oil change",
			})
			errs[i] = err
		}(i)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("load test timed out")
	}

	for _, err := range errs {
		require.NoError(t, err)
	}

	ctx := context.Background()
	turns, err := mem.ListNonTerminal(ctx, workshopID)
	require.NoError(t, err)
	require.Len(t, turns, n)

	seenNumbers := map[int64]bool{}
	inService := 0
	for _, turn := range turns {
		assert.False(t, seenNumbers[turn.TurnNumber], "P1 violated: duplicate turn_number %d", turn.TurnNumber)
		seenNumbers[turn.TurnNumber] = true
		if turn.State == models.StateInService {
			inService++
		}
	}
	for i := int64(1); i <= int64(n); i++ {
		assert.True(t, seenNumbers[i], "P2 violated: missing turn_number %d", i)
	}
	assert.LessOrEqual(t, inService, capacity, "P3 violated: in-service count exceeds capacity")
	assert.Equal(t, capacity, inService, "exactly capacity turns should have been admitted immediately")
}

// TestConcurrentFinalizeNeverDoublePromotes races many Finalize calls
// against one another and checks exactly one promotion happens per
// freed slot (never two waiters promoted for one finalize).
func TestConcurrentFinalizeNeverDoublePromotes(t *testing.T) {
	mem := store.NewMemory()
	workshopID := uuid.New()
	const capacity = 3
	mem.PutWorkshop(models.Workshop{ID: workshopID, Name: "Taller Concurrente 2", Capacity: capacity})

	eng := engine.New(mem, clock.System{}, noopNotifier{})
	ctx := context.Background()

	const total = 30
	ids := make([]uuid.UUID, 0, total)
	for i := 0; i < total; i++ {
		turn, err := eng.Create(ctx, workshopID, models.NewTurnInput{
			Customer: "C", Phone: "12345678", VehicleModel: "V",
			Plate: "P" + strconv.Itoa(i), Problem: "p",
		})
		require.NoError(t, err)
		ids = append(ids, turn.ID)
	}

	inServiceIDs := ids[:capacity]
	var wg sync.WaitGroup
	wg.Add(len(inServiceIDs))
	for _, id := range inServiceIDs {
		go func(id uuid.UUID) {
			defer wg.Done()
			_ = eng.Finalize(ctx, id)
		}(id)
	}
	wg.Wait()

	turns, err := mem.ListNonTerminal(ctx, workshopID)
	require.NoError(t, err)
	inService := 0
	for _, turn := range turns {
		if turn.State == models.StateInService {
			inService++
		}
	}
	assert.Equal(t, capacity, inService, "P3/P4: exactly capacity turns should be in service after promotions settle")
}

// TestConcurrentFinalizeOnSameTurnNeverDoublePromotes races many
// Finalize calls against the *same* turn id. Store.LockTurn must hold
// the turn lock for the whole transaction so only one caller observes
// IN_SERVICE and promotes a waiter; every other caller must see the
// turn already FINALIZED and fail with STATE_CONFLICT.
func TestConcurrentFinalizeOnSameTurnNeverDoublePromotes(t *testing.T) {
	mem := store.NewMemory()
	workshopID := uuid.New()
	const capacity = 1
	mem.PutWorkshop(models.Workshop{ID: workshopID, Name: "Taller Concurrente 3", Capacity: capacity})

	eng := engine.New(mem, clock.System{}, noopNotifier{})
	ctx := context.Background()

	inService, err := eng.Create(ctx, workshopID, models.NewTurnInput{
		Customer: "C", Phone: "12345678", VehicleModel: "V", Plate: "INS", Problem: "p",
	})
	require.NoError(t, err)

	const waiters = 10
	for i := 0; i < waiters; i++ {
		_, err := eng.Create(ctx, workshopID, models.NewTurnInput{
			Customer: "C", Phone: "12345678", VehicleModel: "V",
			Plate: "W" + strconv.Itoa(i), Problem: "p",
		})
		require.NoError(t, err)
	}

	const racers = 20
	var wg sync.WaitGroup
	wg.Add(racers)
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		go func(i int) {
			defer wg.Done()
			errs[i] = eng.Finalize(ctx, inService.ID)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		assert.True(t, apperr.Is(err, apperr.StateConflict), "expected STATE_CONFLICT for a losing racer, got %v", err)
	}
	assert.Equal(t, 1, successes, "exactly one Finalize call should succeed on a given turn")

	turns, err := mem.ListNonTerminal(ctx, workshopID)
	require.NoError(t, err)
	inServiceCount := 0
	for _, turn := range turns {
		if turn.State == models.StateInService {
			inServiceCount++
		}
	}
	assert.Equal(t, capacity, inServiceCount, "I2/P3 violated: more turns in service than capacity after the race settles")
}

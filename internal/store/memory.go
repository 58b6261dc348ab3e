package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/acaldeo/TallerMendoza/internal/apperr"
	"github.com/acaldeo/TallerMendoza/internal/models"
)

// Memory is an in-process Store used by engine unit tests, the
// concurrency/load tests, and local development without a running
// PostgreSQL instance. It honours the same per-row serialisation
// Postgres's FOR UPDATE locks give: LockWorkshop and LockTurn each
// block until any other open transaction holding the same row's lock
// has committed or rolled back.
type Memory struct {
	mu        sync.Mutex
	workshops map[uuid.UUID]models.Workshop
	turns     map[uuid.UUID]models.Turn

	workshopLocks map[uuid.UUID]*sync.Mutex
	turnLocks     map[uuid.UUID]*sync.Mutex
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		workshops:     make(map[uuid.UUID]models.Workshop),
		turns:         make(map[uuid.UUID]models.Turn),
		workshopLocks: make(map[uuid.UUID]*sync.Mutex),
		turnLocks:     make(map[uuid.UUID]*sync.Mutex),
	}
}

// PutWorkshop seeds or replaces a workshop. Test/admin helper; not part
// of the Store interface.
func (m *Memory) PutWorkshop(w models.Workshop) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workshops[w.ID] = w
}

// Workshop returns a snapshot of the workshop, for test assertions.
func (m *Memory) Workshop(id uuid.UUID) (models.Workshop, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workshops[id]
	return w, ok
}

func (m *Memory) workshopLock(id uuid.UUID) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.workshopLocks[id]
	if !ok {
		l = &sync.Mutex{}
		m.workshopLocks[id] = l
	}
	return l
}

func (m *Memory) turnLock(id uuid.UUID) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.turnLocks[id]
	if !ok {
		l = &sync.Mutex{}
		m.turnLocks[id] = l
	}
	return l
}

func (m *Memory) BeginTx(ctx context.Context) (Tx, error) {
	return &memoryTx{store: m}, nil
}

func (m *Memory) ListNonTerminal(ctx context.Context, workshopID uuid.UUID) ([]models.Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Turn
	for _, t := range m.turns {
		if t.WorkshopID == workshopID && !t.State.Terminal() {
			out = append(out, t)
		}
	}
	sortByTurnNumber(out)
	return out, nil
}

func (m *Memory) ListByPlateSubstring(ctx context.Context, workshopID uuid.UUID, plateQuery string) ([]models.Turn, error) {
	needle := strings.ToUpper(strings.TrimSpace(plateQuery))
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Turn
	for _, t := range m.turns {
		if t.WorkshopID == workshopID && strings.Contains(t.Plate, needle) {
			out = append(out, t)
		}
	}
	sortByTurnNumber(out)
	return out, nil
}

func sortByTurnNumber(turns []models.Turn) {
	sort.Slice(turns, func(i, j int) bool { return turns[i].TurnNumber < turns[j].TurnNumber })
}

// memoryTx implements Tx over Memory. A transaction locks at most one
// workshop and at most one turn (each acquired by its first Lock* call)
// for its whole lifetime, mirroring Postgres's row locks held until
// COMMIT/ROLLBACK. Writes are staged in pending and only applied to the
// shared store on Commit, so a Rollback after a partial sequence of
// writes discards them the same way an aborted Postgres transaction
// would.
type memoryTx struct {
	store *Memory

	lockedWorkshop *uuid.UUID
	lockedTurn     *uuid.UUID
	done           bool
	pending        map[uuid.UUID]models.Turn
}

func (t *memoryTx) lockWorkshopOnce(id uuid.UUID) {
	if t.lockedWorkshop != nil && *t.lockedWorkshop == id {
		return
	}
	t.store.workshopLock(id).Lock()
	t.lockedWorkshop = &id
}

func (t *memoryTx) lockTurnOnce(id uuid.UUID) {
	if t.lockedTurn != nil && *t.lockedTurn == id {
		return
	}
	t.store.turnLock(id).Lock()
	t.lockedTurn = &id
}

func (t *memoryTx) LockWorkshop(ctx context.Context, id uuid.UUID) (models.Workshop, error) {
	t.lockWorkshopOnce(id)

	t.store.mu.Lock()
	w, ok := t.store.workshops[id]
	t.store.mu.Unlock()
	if !ok {
		return models.Workshop{}, apperr.New(apperr.NotFound, "workshop not found")
	}
	return w, nil
}

// view returns the turn a transaction would see for id: its own
// uncommitted write if there is one, otherwise the committed value.
func (t *memoryTx) view(id uuid.UUID) (models.Turn, bool) {
	if turn, ok := t.pending[id]; ok {
		return turn, true
	}
	turn, ok := t.store.turns[id]
	return turn, ok
}

// snapshot returns every turn visible to this transaction: committed
// turns overlaid with this transaction's own pending writes.
func (t *memoryTx) snapshot() map[uuid.UUID]models.Turn {
	out := make(map[uuid.UUID]models.Turn, len(t.store.turns)+len(t.pending))
	for id, turn := range t.store.turns {
		out[id] = turn
	}
	for id, turn := range t.pending {
		out[id] = turn
	}
	return out
}

func (t *memoryTx) stage(turn models.Turn) {
	if t.pending == nil {
		t.pending = make(map[uuid.UUID]models.Turn)
	}
	t.pending[turn.ID] = turn
}

// LockTurn holds a per-turn mutex for the lifetime of the transaction,
// mirroring Postgres's SELECT ... FOR UPDATE on the turns row: a second
// transaction calling LockTurn on the same id blocks until this one
// commits or rolls back, and then observes the now-current row instead
// of the stale state it would have seen had it raced ahead.
func (t *memoryTx) LockTurn(ctx context.Context, id uuid.UUID) (models.Turn, error) {
	t.lockTurnOnce(id)

	t.store.mu.Lock()
	turn, ok := t.view(id)
	t.store.mu.Unlock()
	if !ok {
		return models.Turn{}, apperr.New(apperr.NotFound, "turn not found")
	}
	return turn, nil
}

func (t *memoryTx) MaxTurnNumber(ctx context.Context, workshopID uuid.UUID) (int64, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	var max int64
	for _, turn := range t.snapshot() {
		if turn.WorkshopID == workshopID && turn.TurnNumber > max {
			max = turn.TurnNumber
		}
	}
	return max, nil
}

func (t *memoryTx) CountInService(ctx context.Context, workshopID uuid.UUID) (int, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	count := 0
	for _, turn := range t.snapshot() {
		if turn.WorkshopID == workshopID && turn.State == models.StateInService {
			count++
		}
	}
	return count, nil
}

func (t *memoryTx) FindNonTerminalByPlate(ctx context.Context, workshopID uuid.UUID, plate string) (models.Turn, bool, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, turn := range t.snapshot() {
		if turn.WorkshopID == workshopID && turn.Plate == plate && !turn.State.Terminal() {
			return turn, true, nil
		}
	}
	return models.Turn{}, false, nil
}

func (t *memoryTx) OldestWaiting(ctx context.Context, workshopID uuid.UUID) (models.Turn, bool, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	var best models.Turn
	found := false
	for _, turn := range t.snapshot() {
		if turn.WorkshopID != workshopID || turn.State != models.StateWaiting {
			continue
		}
		if !found {
			best, found = turn, true
			continue
		}
		if turn.CreatedAt.Before(best.CreatedAt) ||
			(turn.CreatedAt.Equal(best.CreatedAt) && turn.TurnNumber < best.TurnNumber) {
			best = turn
		}
	}
	return best, found, nil
}

func (t *memoryTx) InsertTurn(ctx context.Context, turn models.Turn) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.stage(turn)
	return nil
}

func (t *memoryTx) UpdateTurnState(ctx context.Context, id uuid.UUID, newState models.TurnState, field TimestampField, ts time.Time) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	turn, ok := t.view(id)
	if !ok {
		return apperr.New(apperr.NotFound, "turn not found")
	}
	turn.State = newState
	switch field {
	case TimestampStarted:
		turn.StartedAt = &ts
	case TimestampFinalized:
		turn.FinalizedAt = &ts
	case TimestampCancelled:
		turn.CancelledAt = &ts
	case TimestampNone:
	}
	t.stage(turn)
	return nil
}

func (t *memoryTx) Commit(ctx context.Context) error {
	t.store.mu.Lock()
	for id, turn := range t.pending {
		t.store.turns[id] = turn
	}
	t.store.mu.Unlock()
	t.unlock()
	return nil
}

func (t *memoryTx) Rollback(ctx context.Context) error {
	t.pending = nil
	t.unlock()
	return nil
}

func (t *memoryTx) unlock() {
	if t.done {
		return
	}
	if t.lockedWorkshop != nil {
		t.store.workshopLock(*t.lockedWorkshop).Unlock()
	}
	if t.lockedTurn != nil {
		t.store.turnLock(*t.lockedTurn).Unlock()
	}
	t.done = true
}

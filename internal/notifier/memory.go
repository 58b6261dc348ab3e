package notifier

import (
	"context"
	"log/slog"

	"github.com/acaldeo/TallerMendoza/internal/models"
)

// DefaultQueueSize is the default capacity of Memory's bounded queue.
const DefaultQueueSize = 256

// Memory is a bounded in-memory Notifier: a single background
// goroutine drains a channel of turns and hands each to a delegate. On
// overflow the oldest pending item is dropped to make room for the new
// one, and the drop is logged at WARN — this implementation never
// blocks the committing request.
type Memory struct {
	queue    chan models.Turn
	delegate func(models.Turn)
	log      *slog.Logger
	done     chan struct{}
}

// NewMemory starts a Memory notifier with the given queue size. deliver
// is called for every turn that survives the queue (on the background
// goroutine, never on the caller's goroutine).
func NewMemory(queueSize int, deliver func(models.Turn), log *slog.Logger) *Memory {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if log == nil {
		log = slog.Default()
	}
	m := &Memory{
		queue:    make(chan models.Turn, queueSize),
		delegate: deliver,
		log:      log,
		done:     make(chan struct{}),
	}
	go m.run()
	return m
}

func (m *Memory) run() {
	defer close(m.done)
	for turn := range m.queue {
		m.delegate(turn)
	}
}

// TurnCreated enqueues turn, dropping the oldest queued turn if the
// queue is full.
func (m *Memory) TurnCreated(ctx context.Context, turn models.Turn) {
	select {
	case m.queue <- turn:
		return
	default:
	}

	// Queue full: drop the oldest pending item to make room.
	select {
	case dropped := <-m.queue:
		m.log.Warn("notifier queue full, dropping oldest pending turn",
			"dropped_turn_id", dropped.ID, "new_turn_id", turn.ID)
	default:
	}

	select {
	case m.queue <- turn:
	default:
		m.log.Warn("notifier queue still full after drop, discarding turn", "turn_id", turn.ID)
	}
}

// Close stops accepting new turns and waits for the background
// goroutine to drain the queue.
func (m *Memory) Close() {
	close(m.queue)
	<-m.done
}

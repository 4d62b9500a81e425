package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/errs"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/models"
	"go.uber.org/zap"
)

// QueuedIncident is a report captured while the backend was
// unreachable, held until connectivity returns.
type QueuedIncident struct {
	ID       string                       `json:"id"`
	Report   models.ReportIncidentRequest `json:"report"`
	QueuedAt time.Time                    `json:"queued_at"`
}

// Queue holds pending reports in a single storage slot. Every
// mutation reads the whole list, changes it in memory and writes the
// whole list back, so the slot is always a complete snapshot.
type Queue struct {
	mu      sync.Mutex
	storage Storage
	logger  *zap.Logger
}

func NewQueue(storage Storage, logger *zap.Logger) *Queue {
	return &Queue{storage: storage, logger: logger}
}

const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func newQueueID() string {
	suffix := make([]byte, 9)
	for i := range suffix {
		suffix[i] = idAlphabet[rand.Intn(len(idAlphabet))]
	}
	return fmt.Sprintf("offline-%d-%s", time.Now().UnixMilli(), suffix)
}

// Enqueue appends a report and returns the queued copy with its
// generated id.
func (q *Queue) Enqueue(ctx context.Context, report models.ReportIncidentRequest) (QueuedIncident, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.load(ctx)
	if err != nil {
		return QueuedIncident{}, err
	}

	queued := QueuedIncident{
		ID:       newQueueID(),
		Report:   report,
		QueuedAt: time.Now(),
	}
	items = append(items, queued)

	if err := q.store(ctx, items); err != nil {
		return QueuedIncident{}, err
	}
	q.logger.Info("incident queued for later submission",
		zap.String("queue_id", queued.ID),
		zap.Int("queue_depth", len(items)))
	return queued, nil
}

// ListAll returns every queued report in enqueue order.
func (q *Queue) ListAll(ctx context.Context) ([]QueuedIncident, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.load(ctx)
}

// Remove deletes the report with the given id. Removing an id that is
// not present is a no-op.
func (q *Queue) Remove(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.load(ctx)
	if err != nil {
		return err
	}

	kept := items[:0]
	for _, item := range items {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(items) {
		return nil
	}
	if len(kept) == 0 {
		return q.storage.Delete(ctx, SlotKey)
	}
	return q.store(ctx, kept)
}

// Count reports how many submissions are waiting.
func (q *Queue) Count(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	items, err := q.load(ctx)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// Clear drops every queued report.
func (q *Queue) Clear(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.storage.Delete(ctx, SlotKey)
}

func (q *Queue) load(ctx context.Context) ([]QueuedIncident, error) {
	raw, err := q.storage.Get(ctx, SlotKey)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var items []QueuedIncident
	if err := json.Unmarshal(raw, &items); err != nil {
		// A corrupt slot would wedge the queue forever; start fresh
		// and surface the loss in the log.
		q.logger.Error("discarding unreadable offline queue slot", zap.Error(err))
		return nil, nil
	}
	return items, nil
}

func (q *Queue) store(ctx context.Context, items []QueuedIncident) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return q.storage.Set(ctx, SlotKey, raw)
}

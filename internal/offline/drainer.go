package offline

import (
	"context"

	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/models"
	"go.uber.org/zap"
)

// Submitter delivers a queued report to the live submission path.
type Submitter interface {
	Submit(ctx context.Context, report models.ReportIncidentRequest) error
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, report models.ReportIncidentRequest) error

func (f SubmitterFunc) Submit(ctx context.Context, report models.ReportIncidentRequest) error {
	return f(ctx, report)
}

// Drainer flushes the offline queue when connectivity returns.
// Delivery is at-least-once: a report is removed from the queue only
// after its submission succeeds, so a crash between the two leaves it
// queued for the next drain.
type Drainer struct {
	queue     *Queue
	submitter Submitter
	logger    *zap.Logger
}

func NewDrainer(queue *Queue, submitter Submitter, logger *zap.Logger) *Drainer {
	return &Drainer{queue: queue, submitter: submitter, logger: logger}
}

// Run drains once per signal on online until the channel closes or the
// context ends. Signals arriving mid-drain coalesce into the next one.
func (d *Drainer) Run(ctx context.Context, online <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-online:
			if !ok {
				return
			}
			if err := d.Drain(ctx); err != nil {
				d.logger.Warn("offline queue drain interrupted", zap.Error(err))
			}
		}
	}
}

// Drain submits every queued report in order. A report that fails stays
// queued and the drain moves on to the next; the queue is untouched
// when it is already empty.
func (d *Drainer) Drain(ctx context.Context) error {
	items, err := d.queue.ListAll(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	d.logger.Info("draining offline incident queue", zap.Int("pending", len(items)))
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.submitter.Submit(ctx, item.Report); err != nil {
			d.logger.Warn("queued incident submission failed, keeping it queued",
				zap.String("queue_id", item.ID),
				zap.Error(err))
			continue
		}
		if err := d.queue.Remove(ctx, item.ID); err != nil {
			// The report went through; a failed remove only risks a
			// duplicate submission on the next drain.
			d.logger.Warn("failed to remove submitted incident from queue",
				zap.String("queue_id", item.ID),
				zap.Error(err))
			continue
		}
		d.logger.Info("queued incident submitted", zap.String("queue_id", item.ID))
	}
	return nil
}

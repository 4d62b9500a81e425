package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/models"
	"go.uber.org/zap"
)

// Channel carries every incident change event.
const Channel = "rahi:incident-changes"

// Publisher fans incident change events out over redis pub/sub. It
// satisfies repository.EventPublisher.
type Publisher struct {
	client *redis.Client
	logger *zap.Logger
}

func NewPublisher(client *redis.Client, logger *zap.Logger) *Publisher {
	return &Publisher{client: client, logger: logger}
}

// Publish is best effort. A write that changed the database must not
// fail because the fan-out did, so errors only get logged.
func (p *Publisher) Publish(ctx context.Context, event models.ChangeEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to encode change event", zap.Error(err))
		return
	}
	if err := p.client.Publish(ctx, Channel, payload).Err(); err != nil {
		p.logger.Warn("failed to publish change event", zap.Error(err))
	}
}

// Subscription is one consumer's handle on the change feed. Close it
// to stop delivery; Events is closed once the feed drops the consumer.
type Subscription struct {
	Events <-chan models.ChangeEvent

	cancel    func()
	closeOnce sync.Once
}

func (s *Subscription) Close() {
	s.closeOnce.Do(s.cancel)
}

// Feed distributes change events to any number of subscribers. One
// redis subscription backs all of them.
type Feed struct {
	client *redis.Client
	logger *zap.Logger

	mu   sync.Mutex
	subs map[int]chan models.ChangeEvent
	next int
}

func NewFeed(client *redis.Client, logger *zap.Logger) *Feed {
	return &Feed{
		client: client,
		logger: logger,
		subs:   make(map[int]chan models.ChangeEvent),
	}
}

// Subscribe registers a consumer. Slow consumers miss events rather
// than stall the feed.
func (f *Feed) Subscribe() *Subscription {
	ch := make(chan models.ChangeEvent, 16)

	f.mu.Lock()
	id := f.next
	f.next++
	f.subs[id] = ch
	f.mu.Unlock()

	return &Subscription{
		Events: ch,
		cancel: func() {
			f.mu.Lock()
			if existing, ok := f.subs[id]; ok {
				delete(f.subs, id)
				close(existing)
			}
			f.mu.Unlock()
		},
	}
}

// Run consumes the redis channel until ctx ends, re-subscribing with a
// short backoff whenever the connection drops.
func (f *Feed) Run(ctx context.Context) {
	for {
		if err := f.consume(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			f.logger.Warn("change feed disconnected, retrying", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}

func (f *Feed) consume(ctx context.Context) error {
	pubsub := f.client.Subscribe(ctx, Channel)
	defer pubsub.Close()

	// Fail fast if the subscribe itself did not go through.
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			return err
		}
		var event models.ChangeEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			f.logger.Warn("dropping undecodable change event", zap.Error(err))
			continue
		}
		f.broadcast(event)
	}
}

func (f *Feed) broadcast(event models.ChangeEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, ch := range f.subs {
		select {
		case ch <- event:
		default:
			f.logger.Debug("subscriber behind, dropping event", zap.Int("subscriber", id))
		}
	}
}

package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/models"
	"go.uber.org/zap"
)

func TestPublishReachesSubscribers(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := NewFeed(client, zap.NewNop())
	go feed.Run(ctx)

	sub := feed.Subscribe()
	defer sub.Close()

	// Give the feed a moment to establish its subscription.
	time.Sleep(100 * time.Millisecond)

	publisher := NewPublisher(client, zap.NewNop())
	event := models.ChangeEvent{
		Kind: "insert",
		Incident: models.IncidentResponse{
			ID:     uuid.New(),
			Status: models.StatusPending,
		},
		At: time.Now().UTC(),
	}
	publisher.Publish(ctx, event)

	select {
	case got := <-sub.Events:
		assert.Equal(t, "insert", got.Kind)
		assert.Equal(t, event.Incident.ID, got.Incident.ID)
		assert.Equal(t, models.StatusPending, got.Incident.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber never received the event")
	}
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	feed := NewFeed(client, zap.NewNop())
	sub := feed.Subscribe()

	sub.Close()
	sub.Close()

	_, open := <-sub.Events
	assert.False(t, open)
}

func TestBroadcastSkipsClosedSubscribers(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	feed := NewFeed(client, zap.NewNop())
	closed := feed.Subscribe()
	closed.Close()
	live := feed.Subscribe()
	defer live.Close()

	feed.broadcast(models.ChangeEvent{Kind: "update"})

	select {
	case got := <-live.Events:
		assert.Equal(t, "update", got.Kind)
	case <-time.After(time.Second):
		t.Fatal("live subscriber missed the broadcast")
	}

	require.NotPanics(t, func() { feed.broadcast(models.ChangeEvent{Kind: "update"}) })
}

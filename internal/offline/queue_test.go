package offline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/models"
	"go.uber.org/zap"
)

func testReport(transcript string) models.ReportIncidentRequest {
	lat, lng := 28.61, 77.20
	return models.ReportIncidentRequest{
		VoiceTranscript: transcript,
		IncidentType:    "breakdown",
		LocationLat:     &lat,
		LocationLng:     &lng,
	}
}

func TestQueueEnqueueAssignsOfflineIDs(t *testing.T) {
	queue := NewQueue(NewMemoryStorage(), zap.NewNop())

	queued, err := queue.Enqueue(context.Background(), testReport("flat tyre"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(queued.ID, "offline-"))
	assert.False(t, queued.QueuedAt.IsZero())

	other, err := queue.Enqueue(context.Background(), testReport("engine smoke"))
	require.NoError(t, err)
	assert.NotEqual(t, queued.ID, other.ID)
}

func TestQueuePreservesEnqueueOrder(t *testing.T) {
	queue := NewQueue(NewMemoryStorage(), zap.NewNop())

	for _, transcript := range []string{"first", "second", "third"} {
		_, err := queue.Enqueue(context.Background(), testReport(transcript))
		require.NoError(t, err)
	}

	items, err := queue.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "first", items[0].Report.VoiceTranscript)
	assert.Equal(t, "second", items[1].Report.VoiceTranscript)
	assert.Equal(t, "third", items[2].Report.VoiceTranscript)
}

func TestQueueRemoveIsIdempotent(t *testing.T) {
	queue := NewQueue(NewMemoryStorage(), zap.NewNop())

	queued, err := queue.Enqueue(context.Background(), testReport("stalled truck"))
	require.NoError(t, err)

	require.NoError(t, queue.Remove(context.Background(), queued.ID))
	count, err := queue.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// Second removal of the same id is a no-op, not an error.
	require.NoError(t, queue.Remove(context.Background(), queued.ID))
	require.NoError(t, queue.Remove(context.Background(), "offline-0-nosuchid"))
}

func TestQueueClear(t *testing.T) {
	queue := NewQueue(NewMemoryStorage(), zap.NewNop())
	for i := 0; i < 3; i++ {
		_, err := queue.Enqueue(context.Background(), testReport("x"))
		require.NoError(t, err)
	}
	require.NoError(t, queue.Clear(context.Background()))
	count, err := queue.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestRedisStorageRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	queue := NewQueue(NewRedisStorage(client), zap.NewNop())

	queued, err := queue.Enqueue(context.Background(), testReport("spun out near toll"))
	require.NoError(t, err)

	items, err := queue.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, queued.ID, items[0].ID)
	assert.Equal(t, "spun out near toll", items[0].Report.VoiceTranscript)

	// The slot is the only key touched.
	assert.True(t, mr.Exists(SlotKey))

	require.NoError(t, queue.Remove(context.Background(), queued.ID))
	assert.False(t, mr.Exists(SlotKey))
}

// recordingSubmitter persists nothing; it just counts deliveries and
// fails the transcripts it is told to.
type recordingSubmitter struct {
	mu        sync.Mutex
	submitted []string
	failFor   map[string]bool
}

func (s *recordingSubmitter) Submit(ctx context.Context, report models.ReportIncidentRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFor[report.VoiceTranscript] {
		return errors.New("still unreachable")
	}
	s.submitted = append(s.submitted, report.VoiceTranscript)
	return nil
}

func TestDrainerRoundTrip(t *testing.T) {
	queue := NewQueue(NewMemoryStorage(), zap.NewNop())
	for _, transcript := range []string{"one", "two", "three"} {
		_, err := queue.Enqueue(context.Background(), testReport(transcript))
		require.NoError(t, err)
	}
	count, err := queue.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, count)

	submitter := &recordingSubmitter{}
	drainer := NewDrainer(queue, submitter, zap.NewNop())
	require.NoError(t, drainer.Drain(context.Background()))

	assert.Equal(t, []string{"one", "two", "three"}, submitter.submitted)
	count, err = queue.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestDrainerKeepsFailedSubmissionsQueued(t *testing.T) {
	queue := NewQueue(NewMemoryStorage(), zap.NewNop())
	for _, transcript := range []string{"good", "bad", "also good"} {
		_, err := queue.Enqueue(context.Background(), testReport(transcript))
		require.NoError(t, err)
	}

	submitter := &recordingSubmitter{failFor: map[string]bool{"bad": true}}
	drainer := NewDrainer(queue, submitter, zap.NewNop())
	require.NoError(t, drainer.Drain(context.Background()))

	// The failure did not block the item behind it.
	assert.Equal(t, []string{"good", "also good"}, submitter.submitted)

	items, err := queue.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "bad", items[0].Report.VoiceTranscript)

	// Next drain picks it up once submission works again.
	submitter.failFor = nil
	require.NoError(t, drainer.Drain(context.Background()))
	count, err := queue.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestDrainerNoOpOnEmptyQueue(t *testing.T) {
	queue := NewQueue(NewMemoryStorage(), zap.NewNop())
	submitter := &recordingSubmitter{}
	drainer := NewDrainer(queue, submitter, zap.NewNop())

	require.NoError(t, drainer.Drain(context.Background()))
	assert.Empty(t, submitter.submitted)
}

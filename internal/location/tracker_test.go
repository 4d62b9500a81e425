package location

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/errs"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/geocode"
	"go.uber.org/zap"
)

type fakeSource struct {
	current    Fix
	currentErr error
	watchErr   error
	fixes      chan Fix
	errors     chan error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		current: Fix{Lat: 28.61, Lng: 77.20, AccuracyMeters: 5},
		fixes:   make(chan Fix, 8),
		errors:  make(chan error, 8),
	}
}

func (s *fakeSource) Current(ctx context.Context, opts Options) (Fix, error) {
	if s.currentErr != nil {
		return Fix{}, s.currentErr
	}
	return s.current, nil
}

func (s *fakeSource) Watch(ctx context.Context, opts Options) (<-chan Fix, <-chan error, error) {
	if s.watchErr != nil {
		return nil, nil, s.watchErr
	}
	return s.fixes, s.errors, nil
}

type fixedGeocoder struct{ address string }

func (g fixedGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) string {
	return g.address
}

func TestDefaultOptions(t *testing.T) {
	assert.True(t, DefaultOptions.HighAccuracy)
	assert.Equal(t, 15*time.Second, DefaultOptions.Timeout)
	assert.Equal(t, time.Duration(0), DefaultOptions.MaximumAge)
}

func TestTrackerDeliversImmediateFix(t *testing.T) {
	source := newFakeSource()
	tracker := NewTracker(source, fixedGeocoder{address: "NH48, Gurugram, Haryana, India"}, zap.NewNop())

	require.NoError(t, tracker.Start(context.Background()))

	select {
	case fix := <-tracker.Fixes():
		assert.Equal(t, 28.61, fix.Lat)
		assert.Equal(t, 77.20, fix.Lng)
	case <-time.After(time.Second):
		t.Fatal("no fix delivered")
	}

	tracker.Stop()
	assert.Equal(t, "NH48, Gurugram, Haryana, India", tracker.Address())
	require.NotNil(t, tracker.LastFix())
	assert.Equal(t, 28.61, tracker.LastFix().Lat)
}

func TestTrackerStartFailsWhenUnsupported(t *testing.T) {
	source := newFakeSource()
	source.watchErr = errs.ErrUnsupported
	tracker := NewTracker(source, fixedGeocoder{}, zap.NewNop())

	err := tracker.Start(context.Background())
	assert.ErrorIs(t, err, errs.ErrUnsupported)
}

func TestTrackerReportsAcquisitionErrors(t *testing.T) {
	source := newFakeSource()
	source.currentErr = errs.ErrTimeout
	tracker := NewTracker(source, fixedGeocoder{address: geocode.AddressUnavailable}, zap.NewNop())

	require.NoError(t, tracker.Start(context.Background()))
	source.errors <- errs.ErrPermissionDenied

	var got []error
	for i := 0; i < 2; i++ {
		select {
		case err := <-tracker.Errors():
			got = append(got, err)
		case <-time.After(time.Second):
			t.Fatal("expected two errors")
		}
	}
	hasTimeout, hasDenied := false, false
	for _, err := range got {
		if errors.Is(err, errs.ErrTimeout) {
			hasTimeout = true
		}
		if errors.Is(err, errs.ErrPermissionDenied) {
			hasDenied = true
		}
	}
	assert.True(t, hasTimeout)
	assert.True(t, hasDenied)

	tracker.Stop()
}

func TestTrackerAddressDegradesToPlaceholder(t *testing.T) {
	source := newFakeSource()
	tracker := NewTracker(source, fixedGeocoder{address: geocode.AddressUnavailable}, zap.NewNop())

	// Placeholder before any fix.
	assert.Equal(t, geocode.AddressUnavailable, tracker.Address())

	require.NoError(t, tracker.Start(context.Background()))
	<-tracker.Fixes()
	tracker.Stop()

	// A failed lookup leaves the placeholder in place.
	assert.Equal(t, geocode.AddressUnavailable, tracker.Address())
}

func TestTrackerWatchFixesFlowThrough(t *testing.T) {
	source := newFakeSource()
	tracker := NewTracker(source, fixedGeocoder{address: "Outer Ring Road, Bengaluru"}, zap.NewNop())

	require.NoError(t, tracker.Start(context.Background()))
	<-tracker.Fixes() // the immediate reading

	source.fixes <- Fix{Lat: 12.97, Lng: 77.59, AccuracyMeters: 12}
	select {
	case fix := <-tracker.Fixes():
		assert.Equal(t, 12.97, fix.Lat)
	case <-time.After(time.Second):
		t.Fatal("watch fix not delivered")
	}

	tracker.Stop()
	last := tracker.LastFix()
	require.NotNil(t, last)
	assert.Equal(t, 12.97, last.Lat)
}

func TestTrackerStopIsIdempotent(t *testing.T) {
	source := newFakeSource()
	tracker := NewTracker(source, fixedGeocoder{address: geocode.AddressUnavailable}, zap.NewNop())

	require.NoError(t, tracker.Start(context.Background()))
	tracker.Stop()
	tracker.Stop()

	// Channels drain and then report closed after teardown.
	for range tracker.Fixes() {
	}
	_, open := <-tracker.Fixes()
	assert.False(t, open)
	for range tracker.Errors() {
	}
	_, open = <-tracker.Errors()
	assert.False(t, open)
}

package location

import (
	"context"
	"sync"
	"time"

	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/geocode"
	"go.uber.org/zap"
)

// Fix is a single position reading.
type Fix struct {
	Lat            float64
	Lng            float64
	AccuracyMeters float64
	At             time.Time
}

// Options mirror the position request parameters. MaximumAge of zero
// means a cached fix is never acceptable.
type Options struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaximumAge   time.Duration
}

// DefaultOptions always requests a fresh high-accuracy fix.
var DefaultOptions = Options{
	HighAccuracy: true,
	Timeout:      15 * time.Second,
	MaximumAge:   0,
}

// PositionSource is the capability port for a positioning device. A
// host without one returns errs.ErrUnsupported from Watch; individual
// readings fail with the taxonomy in internal/errs.
type PositionSource interface {
	// Current requests one immediate fix.
	Current(ctx context.Context, opts Options) (Fix, error)
	// Watch starts continuous delivery until ctx is cancelled. Errors
	// are reported on the second channel and never close the first.
	Watch(ctx context.Context, opts Options) (<-chan Fix, <-chan error, error)
}

// Tracker owns a position watch plus the reverse-geocode side-channel.
// Fixes and errors stream to the consumer; the display address is
// last-write-wins and may transiently lag the newest fix.
type Tracker struct {
	source   PositionSource
	geocoder geocode.Geocoder
	opts     Options
	logger   *zap.Logger

	fixes  chan Fix
	errors chan error

	mu      sync.Mutex
	address string
	lastFix *Fix

	cancel   context.CancelFunc
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewTracker(source PositionSource, geocoder geocode.Geocoder, logger *zap.Logger) *Tracker {
	return &Tracker{
		source:   source,
		geocoder: geocoder,
		opts:     DefaultOptions,
		logger:   logger,
		fixes:    make(chan Fix, 8),
		errors:   make(chan error, 8),
		address:  geocode.AddressUnavailable,
	}
}

// Start requests one immediate fix and then a continuous watch. It
// returns an error only when the host has no positioning capability;
// per-reading failures flow through Errors.
func (t *Tracker) Start(ctx context.Context) error {
	watchCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	watchFixes, watchErrs, err := t.source.Watch(watchCtx, t.opts)
	if err != nil {
		cancel()
		return err
	}

	// Immediate reading so the caller is not waiting on the watch
	// cadence for a first fix.
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		fix, err := t.source.Current(watchCtx, t.opts)
		if err != nil {
			t.reportError(err)
			return
		}
		t.handleFix(watchCtx, fix)
	}()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		for {
			select {
			case fix, ok := <-watchFixes:
				if !ok {
					return
				}
				t.handleFix(watchCtx, fix)
			case err, ok := <-watchErrs:
				if !ok {
					return
				}
				t.reportError(err)
			case <-watchCtx.Done():
				return
			}
		}
	}()

	return nil
}

// Fixes delivers each position reading in arrival order.
func (t *Tracker) Fixes() <-chan Fix { return t.fixes }

// Errors delivers acquisition failures; none of them stop the watch.
func (t *Tracker) Errors() <-chan error { return t.errors }

// Address returns the current display address. Before the first
// successful lookup, and after any failed one, it is the
// "Address not available" placeholder.
func (t *Tracker) Address() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.address
}

// LastFix returns the most recent reading, or nil before the first.
func (t *Tracker) LastFix() *Fix {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lastFix == nil {
		return nil
	}
	fix := *t.lastFix
	return &fix
}

// Stop tears the watch down. Idempotent; guaranteed to release the
// underlying watch and every in-flight geocode goroutine.
func (t *Tracker) Stop() {
	t.stopOnce.Do(func() {
		if t.cancel != nil {
			t.cancel()
		}
		t.wg.Wait()
		close(t.fixes)
		close(t.errors)
	})
}

func (t *Tracker) handleFix(ctx context.Context, fix Fix) {
	if fix.At.IsZero() {
		fix.At = time.Now()
	}

	t.mu.Lock()
	f := fix
	t.lastFix = &f
	t.mu.Unlock()

	select {
	case t.fixes <- fix:
	case <-ctx.Done():
		return
	default:
		// Consumer lagging; the newest fix matters more than a full
		// history, so drop rather than block the watch.
		t.logger.Debug("dropping position fix, consumer behind")
	}

	// Address lookup runs off the fix path; a failed or slow lookup
	// never affects the position stream.
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		address := t.geocoder.ReverseGeocode(ctx, fix.Lat, fix.Lng)
		t.mu.Lock()
		t.address = address
		t.mu.Unlock()
	}()
}

func (t *Tracker) reportError(err error) {
	select {
	case t.errors <- err:
	default:
		t.logger.Warn("dropping location error, consumer behind", zap.Error(err))
	}
}

package syncer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"homeserve/internal/domain"
)

// Fetcher pulls a fresh booking snapshot from the service of record.
type Fetcher func(ctx context.Context) ([]domain.Booking, error)

// Snapshot is the synchronizer's last view of the booking list. When a fetch
// fails and stale retention is on, the previous bookings are kept with Stale
// set and Err recording the failure, instead of being replaced by an empty
// list.
type Snapshot struct {
	Bookings  []domain.Booking
	FetchedAt time.Time
	Stale     bool
	Err       error
}

// LifecycleEvent abstracts the app-state listener the screens used to hook
// individually. The synchronizer owns the policy for what an event implies.
type LifecycleEvent int

const (
	EventForeground LifecycleEvent = iota
	EventBackground
)

type Config struct {
	// ForegroundMinInterval throttles foreground-driven refetches; bursts
	// of lifecycle events collapse into one fetch.
	ForegroundMinInterval time.Duration
	KeepStaleSnapshot     bool
}

// Refresher governs when a fresh snapshot is pulled: explicit refresh,
// post-mutation refresh, and app-foreground. The policy is uniform: every
// foreground event implies a refetch, subject only to the throttle.
type Refresher struct {
	fetch     Fetcher
	limiter   *rate.Limiter
	keepStale bool
	log       *zap.Logger
	now       func() time.Time

	mu   sync.Mutex
	snap Snapshot
}

func NewRefresher(fetch Fetcher, cfg Config, log *zap.Logger) *Refresher {
	if log == nil {
		log = zap.NewNop()
	}
	interval := cfg.ForegroundMinInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Refresher{
		fetch:     fetch,
		limiter:   rate.NewLimiter(rate.Every(interval), 1),
		keepStale: cfg.KeepStaleSnapshot,
		log:       log,
		now:       time.Now,
	}
}

// Refresh is the unconditional pull: explicit pull-to-refresh and the
// mandatory refetch after any mutation this client issued.
func (r *Refresher) Refresh(ctx context.Context) (Snapshot, error) {
	bookings, err := r.fetch(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	if err != nil {
		r.log.Warn("snapshot fetch failed", zap.Error(err))
		if r.keepStale && !r.snap.FetchedAt.IsZero() {
			r.snap.Stale = true
			r.snap.Err = err
		} else {
			r.snap = Snapshot{Bookings: nil, FetchedAt: r.now(), Err: err}
		}
		return r.snap, err
	}

	r.snap = Snapshot{Bookings: bookings, FetchedAt: r.now()}
	r.log.Debug("snapshot refreshed", zap.Int("bookings", len(bookings)))
	return r.snap, nil
}

// HandleLifecycle applies the foreground policy. It reports whether a fetch
// actually ran; throttled events return the current snapshot untouched.
func (r *Refresher) HandleLifecycle(ctx context.Context, event LifecycleEvent) (Snapshot, bool, error) {
	if event != EventForeground {
		return r.Snapshot(), false, nil
	}
	if !r.limiter.Allow() {
		return r.Snapshot(), false, nil
	}
	snap, err := r.Refresh(ctx)
	return snap, true, err
}

// Snapshot returns the current view without fetching.
func (r *Refresher) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap
}

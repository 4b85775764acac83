// Package scheduler implements the Crawl Scheduler (component C4): it
// owns the visited set and in-flight task set, dispatches URLs to a
// bounded pool of Worker Supervisors, and drives completions back into
// persistence and further enqueues.
//
// All mutation of history/pending happens on one controller goroutine
// (Scheduler.Run), mirroring the teacher's worker-pool design in
// internal/engine/scheduler.go but replacing the queue-of-workers
// shape with a single event loop that owns the bookkeeping outright —
// per spec this needs no mutex, since nothing but the controller
// goroutine ever touches history or pending.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/linkwatch/linkwatch/internal/gateway"
	"github.com/linkwatch/linkwatch/internal/observability"
	"github.com/linkwatch/linkwatch/internal/types"
	"github.com/linkwatch/linkwatch/internal/urlutil"
)

// Supervisor is the subset of supervisor.Supervisor the scheduler
// depends on, so tests can substitute a fake worker.
type Supervisor interface {
	RunWithTimeout(ctx context.Context, timeout time.Duration, url, parent, userAgent string) (*types.FetchResult, error)
}

// Config bundles the scheduler's tunables.
type Config struct {
	StartURL        string
	UserAgent       string
	Concurrency     int
	ObtainerTimeout time.Duration
}

// Seed is one entry of the Lifecycle Controller's startup seeding set.
type Seed struct {
	URL    string
	Parent string
}

// Scheduler is the Crawl Scheduler. Construct with New, Enqueue the
// seed set, then call Run — it blocks until the crawl is quiescent or
// ctx is cancelled.
type Scheduler struct {
	startURL    string
	userAgent   string
	concurrency int
	obtainerTO  time.Duration

	supervisor Supervisor
	store      gateway.Gateway
	logger     *slog.Logger

	// ctx is the cancellation context Run was invoked with. enqueue's
	// goroutines load it for every dispatch, so a cancelled crawl
	// actually cancels in-flight worker processes instead of only
	// stopping new dispatches. Holds context.Background() until Run
	// stores the real one; no dispatch happens before that.
	// atomic.Pointer because it is written once by Run's goroutine and
	// read concurrently by every dispatch goroutine.
	ctx atomic.Pointer[context.Context]

	history map[string]struct{}
	pending map[string]struct{}

	// active is the true worker-pool occupancy: incremented only once a
	// dispatch goroutine has acquired sem and is about to run an
	// obtainer, decremented when it releases sem. pending tracks the
	// broader "not yet completed" set (including goroutines still
	// blocked waiting for a semaphore slot) and is used only to detect
	// quiescence; active is what the pool-bound invariant and the
	// progress line's occupancy field are about.
	active atomic.Int64

	sem        chan struct{}
	completeCh chan completion

	metrics *observability.Metrics

	// seeds holds Enqueue's seed set until Run actually dispatches them.
	// Enqueue is documented to run before Run, so dispatching straight
	// from Enqueue would spawn worker goroutines that read s.ctx before
	// Run has stored the real cancellation context — those goroutines
	// would be stuck with context.Background() for their whole
	// lifetime, immune to the very cancellation they're meant to honor.
	seeds []Seed

	wg sync.WaitGroup
}

type completion struct {
	url    string
	result *types.FetchResult
	err    error
}

// New constructs a Scheduler. supervisor and store must already be
// ready for use.
func New(cfg Config, supervisor Supervisor, store gateway.Gateway, logger *slog.Logger) *Scheduler {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	s := &Scheduler{
		startURL:    cfg.StartURL,
		userAgent:   cfg.UserAgent,
		concurrency: cfg.Concurrency,
		obtainerTO:  cfg.ObtainerTimeout,
		supervisor:  supervisor,
		store:       store,
		logger:      logger.With("component", "scheduler"),
		history:     make(map[string]struct{}),
		pending:     make(map[string]struct{}),
		sem:         make(chan struct{}, cfg.Concurrency),
		completeCh:  make(chan completion),
	}
	bg := context.Background()
	s.ctx.Store(&bg)
	return s
}

// SetMetrics attaches a metrics sink. Optional; nil-safe if never
// called.
func (s *Scheduler) SetMetrics(m *observability.Metrics) {
	s.metrics = m
}

// Enqueue records the Lifecycle Controller's seed set. Must be called
// before Run; actual dispatch is deferred to Run so no worker goroutine
// starts before the real cancellation context is in place.
func (s *Scheduler) Enqueue(seeds ...Seed) {
	s.seeds = append(s.seeds, seeds...)
}

// Run drives the controller loop until pending is empty, or ctx is
// cancelled. It is the only goroutine that ever mutates history or
// pending.
func (s *Scheduler) Run(ctx context.Context) {
	s.ctx.Store(&ctx)
	for _, seed := range s.seeds {
		s.enqueue(seed.URL, seed.Parent)
	}
	s.seeds = nil

	for len(s.pending) > 0 {
		select {
		case <-ctx.Done():
			s.drainAndWait()
			return
		case c := <-s.completeCh:
			s.onComplete(c)
		}
	}
}

// drainAndWait runs after cancellation. In-flight dispatch goroutines
// still need to send their completion on completeCh before they can
// exit (it is unbuffered), so this keeps reading and discarding until
// wg.Wait confirms every goroutine has returned — otherwise a worker
// finishing after ctx.Done would block forever trying to send and the
// process would never shut down.
func (s *Scheduler) drainAndWait() {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	for {
		select {
		case <-done:
			return
		case <-s.completeCh:
		}
	}
}

// enqueue is §4.4 step 1: add to history (checked-and-set atomically
// since this only ever runs on the controller goroutine), then submit
// a task bounded by the semaphore.
func (s *Scheduler) enqueue(url, parent string) {
	url = urlutil.StripFragment(url)
	if _, seen := s.history[url]; seen {
		return
	}
	s.history[url] = struct{}{}
	s.pending[url] = struct{}{}
	if s.metrics != nil {
		s.metrics.URLsDispatched.Add(1)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.sem <- struct{}{}
		s.active.Add(1)
		defer func() {
			s.active.Add(-1)
			<-s.sem
		}()

		ctx := *s.ctx.Load()
		result, err := s.supervisor.RunWithTimeout(ctx, s.obtainerTO, url, parent, s.userAgent)
		select {
		case s.completeCh <- completion{url: url, result: result, err: err}:
		case <-ctx.Done():
		}
	}()
}

// onComplete is §4.4 step 2.
func (s *Scheduler) onComplete(c completion) {
	defer delete(s.pending, c.url)

	if c.err != nil {
		s.logger.Warn("worker failed, url skipped", "url", c.url, "error", c.err)
		return
	}

	result := c.result
	if err := s.store.Upsert(result, s.startURL); err != nil {
		s.logger.Error("upsert failed", "url", c.url, "error", err)
	}
	if err := s.store.InvalidateChildren(result.URL, s.startURL); err != nil {
		s.logger.Error("invalidate children failed", "url", c.url, "error", err)
	}

	occupancy := int(s.active.Load())
	printProgress(result, occupancy)
	if s.metrics != nil {
		s.metrics.RecordCompletion(result.ResponseCode, result.ResponseSize)
		s.metrics.PoolOccupancy.Store(int64(occupancy))
	}

	for _, link := range result.Links {
		link = urlutil.StripFragment(link)
		_, seen := s.history[link]
		if seen || !urlutil.IsUnderStartURL(link, s.startURL) {
			if s.metrics != nil {
				s.metrics.URLsFiltered.Add(1)
			}
			continue
		}
		s.enqueue(link, result.URL)
	}
}

// printProgress emits the one-line stdout record the external
// interface contract specifies.
func printProgress(r *types.FetchResult, poolOccupancy int) {
	line := fmt.Sprintf("%s: %d, %.2fM, %.2fs, %d, %d, %s",
		r.ProcessName, r.ResponseCode, r.SizeMB(), r.DurationSeconds(), len(r.Links), poolOccupancy, r.URL)
	if !r.Success() {
		line += fmt.Sprintf(" <- ERROR: %s, parent: %s", r.ResponseReason, r.ParentURL)
	}
	fmt.Println(line)
}

// PendingCount reports the number of URLs dispatched but not yet
// completed (including ones still waiting on a semaphore slot). Use
// ActiveCount for true worker-pool occupancy.
func (s *Scheduler) PendingCount() int {
	return len(s.pending)
}

// ActiveCount reports the number of workers currently holding a
// semaphore slot, i.e. true pool occupancy. Bounded by concurrency at
// every observation.
func (s *Scheduler) ActiveCount() int {
	return int(s.active.Load())
}

// HistorySize reports the number of URLs ever enqueued.
func (s *Scheduler) HistorySize() int {
	return len(s.history)
}

// Package lifecycle implements the Lifecycle Controller (component
// C5): it wires up persistence, computes the startup seed set, installs
// signal handling, and on shutdown reaps every worker process group
// still active so no orphaned browser children survive the crawl.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/linkwatch/linkwatch/internal/config"
	"github.com/linkwatch/linkwatch/internal/gateway"
	"github.com/linkwatch/linkwatch/internal/observability"
	"github.com/linkwatch/linkwatch/internal/scheduler"
	"github.com/linkwatch/linkwatch/internal/supervisor"
)

// Controller owns the crawl's full startup-to-shutdown sequence.
type Controller struct {
	cfg    *config.Config
	logger *slog.Logger
}

// New constructs a Controller.
func New(cfg *config.Config, logger *slog.Logger) *Controller {
	return &Controller{cfg: cfg, logger: logger.With("component", "lifecycle")}
}

// Run executes the full sequence: open persistence, seed, install
// signal handling, drive the scheduler to quiescence, and shut down
// cleanly. startURL is the crawl's root.
func (c *Controller) Run(startURL string) error {
	store, err := gateway.Open(c.cfg)
	if err != nil {
		return fmt.Errorf("open persistence: %w", err)
	}
	defer store.Close()

	sup, err := supervisor.New(c.cfg.Obtainer.Type, c.cfg.Crawl.KillGrace, c.cfg.Crawl.MaxRetries, c.logger)
	if err != nil {
		return fmt.Errorf("build supervisor: %w", err)
	}

	sched := scheduler.New(scheduler.Config{
		StartURL:        startURL,
		UserAgent:       c.cfg.Crawl.UserAgent,
		Concurrency:     c.cfg.Crawl.Concurrency,
		ObtainerTimeout: c.cfg.Obtainer.ExecutionTimeout,
	}, sup, store, c.logger)

	if c.cfg.Metrics.Enabled {
		metrics := observability.NewMetrics(c.logger)
		if err := metrics.StartServer(c.cfg.Metrics.Port, c.cfg.Metrics.Path); err != nil {
			c.logger.Warn("failed to start metrics server", "error", err)
		} else {
			sched.SetMetrics(metrics)
			sup.SetMetrics(metrics)
		}
	}

	seeds := c.seed(store, startURL)
	sched.Enqueue(seeds...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		sig := <-sigCh
		c.logger.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	sched.Run(ctx)

	c.shutdown(sup)
	return nil
}

// seed is §4.5 step 2-3: previously-broken parents are re-crawled
// first (their own parent is looked up and restored so the new edge
// attaches in the same place in the graph), then the start URL itself.
func (c *Controller) seed(store gateway.Gateway, startURL string) []scheduler.Seed {
	seeds := make([]scheduler.Seed, 0, 1)

	broken, err := store.SelectBrokenParents(startURL)
	if err != nil {
		c.logger.Warn("select broken parents failed, skipping re-seed", "error", err)
	}
	for _, p := range broken {
		parent, err := store.ParentOf(p)
		if err != nil {
			c.logger.Warn("parent lookup failed during seeding", "url", p, "error", err)
			continue
		}
		seeds = append(seeds, scheduler.Seed{URL: p, Parent: parent})
	}

	seeds = append(seeds, scheduler.Seed{URL: startURL, Parent: ""})
	return seeds
}

// shutdown is §4.5's shutdown path: give in-flight workers a brief
// drain window, then reap whatever worker process groups are still
// active — the same kill protocol the supervisor applies per-worker
// on timeout (§4.2), applied here to the whole remaining pool.
func (c *Controller) shutdown(sup *supervisor.Supervisor) {
	time.Sleep(c.cfg.Crawl.ShutdownDrain)
	sup.ReapAll()
}

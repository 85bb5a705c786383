package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/git-pkgs/npmscan/internal/registry"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	defaultWorkers   = 15
	defaultSaveEvery = 10
	defaultGrace     = 5 * time.Second
)

// RunStatus is the terminal state of a coordinator run.
type RunStatus string

const (
	// Completed means every pending package was resolved and the
	// checkpoint was deleted.
	Completed RunStatus = "completed"
	// Cancelled means the run was interrupted; the checkpoint holds the
	// results collected so far and the scan is resumable.
	Cancelled RunStatus = "cancelled"
)

// Saver persists scan state between runs. Save overwrites the previous
// checkpoint; Remove deletes it once there is nothing left to resume.
type Saver interface {
	Save(state *ScanState) error
	Remove() error
}

// ProgressFunc is called from the collection loop after each completion.
// done counts completions within this run, total the packages pending at
// run start.
type ProgressFunc func(done, total int, name string, result PackageResult)

// Coordinator dispatches one lookup task per pending package onto a fixed
// worker pool and is the sole consumer of their results.
type Coordinator struct {
	fetcher    registry.MetadataFetcher
	window     Window
	saver      Saver
	workers    int
	saveEvery  int
	grace      time.Duration
	onProgress ProgressFunc
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithWorkers sets the number of concurrent in-flight lookups.
func WithWorkers(n int) CoordinatorOption {
	return func(c *Coordinator) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithSaver enables periodic checkpointing through s.
func WithSaver(s Saver) CoordinatorOption {
	return func(c *Coordinator) {
		c.saver = s
	}
}

// WithSaveEvery sets the checkpoint cadence in completed tasks.
func WithSaveEvery(n int) CoordinatorOption {
	return func(c *Coordinator) {
		if n > 0 {
			c.saveEvery = n
		}
	}
}

// WithGrace sets how long a cancelled run waits for in-flight lookups
// before abandoning them.
func WithGrace(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		c.grace = d
	}
}

// WithProgress sets the per-completion callback.
func WithProgress(fn ProgressFunc) CoordinatorOption {
	return func(c *Coordinator) {
		c.onProgress = fn
	}
}

// NewCoordinator creates a Coordinator scanning against window through
// fetcher.
func NewCoordinator(fetcher registry.MetadataFetcher, window Window, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		fetcher:   fetcher,
		window:    window,
		workers:   defaultWorkers,
		saveEvery: defaultSaveEvery,
		grace:     defaultGrace,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// outcome is what a worker hands back to the collection loop. A skipped
// outcome means the task observed cancellation and the package stays
// pending.
type outcome struct {
	name    string
	result  PackageResult
	skipped bool
}

// Run scans every pending package in state. It returns Completed when all
// packages resolved (checkpoint deleted), or Cancelled when ctx was
// cancelled (checkpoint saved unconditionally, no report produced).
// Re-running with a loaded checkpoint never re-fetches a resolved package.
func (c *Coordinator) Run(ctx context.Context, state *ScanState) (RunStatus, error) {
	pending := state.Pending()
	if len(pending) == 0 {
		return c.finish(state)
	}

	jobs := make(chan string)
	// Buffered to the full pending set so workers never block on send and
	// abandoning a drain cannot leak them.
	results := make(chan outcome, len(pending))

	go func() {
		defer close(jobs)
		for _, name := range pending {
			select {
			case jobs <- name:
			case <-ctx.Done():
				return
			}
		}
	}()

	g := new(errgroup.Group)
	for i := 0; i < c.workers; i++ {
		g.Go(func() error {
			for name := range jobs {
				results <- c.scanOne(ctx, name)
			}
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(results)
	}()

	total := len(pending)
	completed := 0

	for {
		select {
		case out, ok := <-results:
			if !ok {
				if ctx.Err() != nil {
					return c.cancel(state)
				}
				return c.finish(state)
			}
			c.apply(state, out, &completed, total, true)
		case <-ctx.Done():
			c.drain(state, results, &completed, total)
			return c.cancel(state)
		}
	}
}

// scanOne runs a single lookup task: cancellation check, fetch, filter.
// Failures are converted to LookupFailed at this boundary; a failure
// caused by cancellation leaves the package unresolved instead.
func (c *Coordinator) scanOne(ctx context.Context, name string) (out outcome) {
	out.name = name

	if ctx.Err() != nil {
		out.skipped = true
		return out
	}

	defer func() {
		if r := recover(); r != nil {
			out.skipped = false
			out.result = LookupFailed(fmt.Sprintf("panic: %v", r))
		}
	}()

	meta, err := c.fetcher.FetchMetadata(ctx, name)
	if err != nil {
		if ctx.Err() != nil {
			out.skipped = true
			return out
		}
		out.result = LookupFailed(err.Error())
		return out
	}

	out.result = Found(FilterVersions(meta, c.window))
	return out
}

// apply merges one outcome into state, exactly once per package, and
// checkpoints on the configured cadence.
func (c *Coordinator) apply(state *ScanState, out outcome, completed *int, total int, checkpoint bool) {
	if out.skipped {
		return
	}
	if !state.Apply(out.name, out.result) {
		return
	}

	*completed++
	if c.onProgress != nil {
		c.onProgress(*completed, total, out.name, out.result)
	}

	if checkpoint && c.saver != nil && *completed%c.saveEvery == 0 {
		if err := c.saver.Save(state); err != nil {
			logrus.Warnf("checkpoint save failed: %v", err)
		}
	}
}

// drain collects results that were already in flight when cancellation was
// observed, up to the grace period. Tasks that do not finish in time are
// abandoned; cadence checkpointing is suspended, the final save covers
// everything collected.
func (c *Coordinator) drain(state *ScanState, results <-chan outcome, completed *int, total int) {
	timer := time.NewTimer(c.grace)
	defer timer.Stop()

	for {
		select {
		case out, ok := <-results:
			if !ok {
				return
			}
			c.apply(state, out, completed, total, false)
		case <-timer.C:
			return
		}
	}
}

// cancel persists the state unconditionally and exits without a report.
func (c *Coordinator) cancel(state *ScanState) (RunStatus, error) {
	if c.saver != nil {
		if err := c.saver.Save(state); err != nil {
			logrus.Errorf("saving checkpoint on cancel: %v", err)
		}
	}
	return Cancelled, nil
}

// finish deletes the checkpoint: a fully resolved scan has nothing left
// to resume.
func (c *Coordinator) finish(state *ScanState) (RunStatus, error) {
	if c.saver != nil {
		if err := c.saver.Remove(); err != nil {
			logrus.Warnf("removing checkpoint: %v", err)
		}
	}
	return Completed, nil
}

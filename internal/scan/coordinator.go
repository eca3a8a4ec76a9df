// Package scan orchestrates the parallel scan-and-merge pipeline: one
// worker per volume, each writing into a private catalog store, followed
// by a deterministic, single-threaded merge into the final catalog.
package scan

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"zipdex/internal/archive"
	"zipdex/internal/catalog"
	"zipdex/internal/model"
	"zipdex/internal/progress"
	"zipdex/internal/volume"
	"zipdex/internal/walker"
)

// State is the coordinator's lifecycle position.
type State int32

const (
	Idle State = iota
	Partitioning
	Running
	Merging
	Done
	Aborted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Partitioning:
		return "partitioning"
	case Running:
		return "running"
	case Merging:
		return "merging"
	case Done:
		return "done"
	case Aborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Options configures a scan run.
type Options struct {
	Policy      walker.Policy
	Concurrency int                     // Max volumes scanned in parallel; 1 is sequential
	Categories  map[model.Category]bool // nil indexes every category
	Hash        bool                    // Compute content fingerprints (second pass per archive)
	StoreDir    string                  // Directory for isolated job stores; "" uses the OS temp dir
}

// Coordinator owns one scan run. Workers share nothing mutable: each owns
// a private store, and they talk to the coordinator only through their
// completion results and the progress reporter.
type Coordinator struct {
	final    *catalog.Store
	prober   *archive.Prober
	clock    archive.Clock
	reporter progress.Reporter
	logger   progress.Logger
	opts     Options

	state atomic.Int32
}

// New creates a Coordinator that merges results into final.
func New(final *catalog.Store, prober *archive.Prober, clock archive.Clock, reporter progress.Reporter, logger progress.Logger, opts Options) *Coordinator {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Coordinator{
		final:    final,
		prober:   prober,
		clock:    clock,
		reporter: reporter,
		logger:   logger,
		opts:     opts,
	}
}

// State returns the coordinator's current lifecycle state. Safe to call
// from any goroutine.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

func (c *Coordinator) setState(s State) {
	c.state.Store(int32(s))
	c.logger.Debug("scan state changed", "state", s.String())
}

// Run scans the given volumes and merges the results into the final
// catalog. A single volume's failure does not cancel its siblings; the
// run aborts only when every job fails or ctx is cancelled. The returned
// summary enumerates every per-volume outcome, including failures.
func (c *Coordinator) Run(ctx context.Context, vols []volume.Volume) (*model.ScanSummary, error) {
	start := c.clock.Now()

	c.setState(Partitioning)
	jobs := c.partition(vols)
	defer func() {
		for _, j := range jobs {
			j.dispose()
		}
	}()

	c.setState(Running)
	g := new(errgroup.Group)
	g.SetLimit(c.opts.Concurrency)
	for _, j := range jobs {
		j := j
		g.Go(func() error {
			j.run(ctx)
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		c.setState(Aborted)
		return c.summarize(jobs, start), fmt.Errorf("scan cancelled: %w", err)
	}

	succeeded := 0
	for _, j := range jobs {
		if j.result.Status == model.JobSucceeded {
			succeeded++
		}
	}
	if succeeded == 0 && len(jobs) > 0 {
		c.setState(Aborted)
		return c.summarize(jobs, start), errors.New("all volumes failed to scan")
	}

	c.setState(Merging)
	if err := c.merge(ctx, jobs); err != nil {
		c.setState(Aborted)
		return c.summarize(jobs, start), err
	}

	c.setState(Done)
	summary := c.summarize(jobs, start)
	c.logger.Info("scan complete",
		"archives", summary.TotalArchives,
		"entries", summary.TotalEntries,
		"volumes", len(summary.PerVolume),
		"duration", summary.Duration.Truncate(time.Millisecond),
	)
	return summary, nil
}

// partition builds one job per volume, each with its own isolated store.
// A job whose store cannot be created is marked failed up front.
func (c *Coordinator) partition(vols []volume.Volume) []*job {
	jobs := make([]*job, 0, len(vols))
	for _, v := range vols {
		j := &job{
			coordinator: c,
			vol:         v,
			result: model.VolumeResult{
				Volume: v.Label,
				Root:   v.Root,
			},
		}
		store, err := catalog.OpenIsolated(c.opts.StoreDir)
		if err != nil {
			j.fail(fmt.Errorf("creating isolated store: %w", err))
		} else {
			j.store = store
		}
		jobs = append(jobs, j)
	}
	return jobs
}

// merge imports every succeeded job's private store into the final
// catalog, one source at a time, ordered by volume label then root so the
// result is reproducible. Each source commits atomically; a failure rolls
// back only that source and is recorded against its volume. Cancellation
// is honored between sources, never mid-transaction.
func (c *Coordinator) merge(ctx context.Context, jobs []*job) error {
	ordered := make([]*job, 0, len(jobs))
	for _, j := range jobs {
		if j.result.Status == model.JobSucceeded && j.store != nil {
			ordered = append(ordered, j)
		}
	}
	sort.Slice(ordered, func(i, k int) bool {
		if ordered[i].vol.Label != ordered[k].vol.Label {
			return ordered[i].vol.Label < ordered[k].vol.Label
		}
		return ordered[i].vol.Root < ordered[k].vol.Root
	})

	for _, j := range ordered {
		if err := ctx.Err(); err != nil {
			// Committed merges stay committed; the catalog is valid, just partial.
			return fmt.Errorf("merge cancelled: %w", err)
		}

		summary, err := c.final.MergeFrom(ctx, j.store)
		if err != nil {
			j.fail(fmt.Errorf("merging volume %s: %w", j.vol.Label, err))
			c.logger.Error("merge failed", "volume", j.vol.Label, "error", err)
			continue
		}

		c.logger.Info("volume merged",
			"volume", j.vol.Label,
			"archives", summary.Archives,
			"entries", summary.Entries,
			"skipped_archives", summary.SkippedArchives,
			"elapsed", summary.Elapsed.Truncate(time.Millisecond),
		)
		j.dispose()
	}
	return nil
}

// summarize flattens job results into the machine-readable scan summary.
func (c *Coordinator) summarize(jobs []*job, start time.Time) *model.ScanSummary {
	summary := &model.ScanSummary{
		Duration: c.clock.Now().Sub(start),
	}
	for _, j := range jobs {
		summary.PerVolume = append(summary.PerVolume, j.result)
		if j.result.Status == model.JobSucceeded {
			summary.TotalArchives += j.result.Archives
			summary.TotalEntries += j.result.Entries
		}
	}
	return summary
}

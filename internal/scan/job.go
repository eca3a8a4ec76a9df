package scan

import (
	"context"
	"errors"
	"fmt"
	"os"

	"zipdex/internal/archive"
	"zipdex/internal/catalog"
	"zipdex/internal/model"
	"zipdex/internal/volume"
	"zipdex/internal/walker"
)

// job is the per-volume unit of work. Each job owns a private catalog
// store; nothing it touches is shared with sibling jobs, so workers need
// no locking. The job's store is handed to the coordinator at merge time
// and disposed afterwards.
type job struct {
	coordinator *Coordinator
	vol         volume.Volume
	store       *catalog.Store
	result      model.VolumeResult
}

func (j *job) fail(err error) {
	j.result.Status = model.JobFailed
	j.result.Err = err.Error()
}

func (j *job) skip(path string, reason error) {
	j.result.Skipped = append(j.result.Skipped, model.SkippedFile{
		Path:   path,
		Reason: reason.Error(),
	})
	j.coordinator.logger.Warn("skipped during scan", "volume", j.vol.Label, "path", path, "reason", reason)
}

func (j *job) dispose() {
	if j.store != nil {
		j.store.Dispose()
		j.store = nil
	}
}

// run walks the job's volume, probes every discovered archive, and writes
// the findings into the private store. Failures of individual archives
// are recorded and skipped; only an unreadable root or a store failure
// fails the whole job. Cancellation is observed at archive boundaries,
// never mid-probe.
func (j *job) run(ctx context.Context) {
	if j.result.Status == model.JobFailed {
		return // store creation already failed during partitioning
	}

	c := j.coordinator
	start := c.clock.Now()

	// An absent or unreadable root is a job failure, not a silent empty
	// result: the caller needs to know the volume was never scanned.
	if _, err := os.Stat(j.vol.Root); err != nil {
		j.fail(fmt.Errorf("volume root unreadable: %w", err))
		return
	}

	visit := func(path string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := j.processArchive(ctx, path); err != nil {
			return err
		}
		c.reporter.Event(model.ProgressEvent{
			Job:         j.vol.Label,
			Archives:    j.result.Archives,
			Entries:     j.result.Entries,
			Elapsed:     c.clock.Now().Sub(start),
			CurrentFile: path,
		})
		return nil
	}

	err := walker.Discover(j.vol.Root, c.opts.Policy, visit, j.skip)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			j.fail(fmt.Errorf("scan cancelled: %w", err))
		} else {
			j.fail(err)
		}
		return
	}

	j.result.Status = model.JobSucceeded
	c.logger.Info("volume scanned",
		"volume", j.vol.Label,
		"archives", j.result.Archives,
		"entries", j.result.Entries,
		"skipped", len(j.result.Skipped),
	)
}

// processArchive probes one archive and records it in the private store.
// Probe failures are per-archive skips; store failures abort the job
// because nothing further can be persisted.
func (j *job) processArchive(ctx context.Context, path string) error {
	c := j.coordinator

	rec, entries, err := c.prober.Probe(path)
	if err != nil {
		j.skip(path, err)
		return nil
	}
	rec.Volume = j.vol.Label

	entries = filterCategories(entries, c.opts.Categories)
	if len(entries) == 0 {
		// Nothing indexable inside; don't record an empty archive.
		return nil
	}

	if c.opts.Hash {
		if hash, err := archive.HashArchive(path); err == nil {
			rec.Hash = hash
		} else {
			j.skip(path, fmt.Errorf("fingerprinting archive: %w", err))
		}
		for i := range entries {
			hash, err := archive.HashEntry(path, entries[i].Path)
			if err != nil {
				j.skip(path+"!"+entries[i].Path, fmt.Errorf("fingerprinting entry: %w", err))
				continue
			}
			entries[i].Hash = hash
		}
	}

	if err := j.store.InsertArchive(ctx, rec); err != nil {
		return fmt.Errorf("recording archive %s: %w", path, err)
	}
	if err := j.store.InsertEntries(ctx, entries); err != nil {
		return fmt.Errorf("recording entries of %s: %w", path, err)
	}

	j.result.Archives++
	j.result.Entries += len(entries)
	return nil
}

// filterCategories drops entries not in the wanted set. A nil set keeps
// everything.
func filterCategories(entries []model.EntryRecord, wanted map[model.Category]bool) []model.EntryRecord {
	if wanted == nil {
		return entries
	}
	kept := entries[:0]
	for _, e := range entries {
		if wanted[e.Category] {
			kept = append(kept, e)
		}
	}
	return kept
}

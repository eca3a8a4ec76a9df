package model

import "time"

// ArchiveRecord represents one ZIP archive discovered on a volume.
// The ID is a UUID minted when the archive is first probed, never a
// per-store sequence number, so records can move between stores without
// re-keying.
type ArchiveRecord struct {
	ID         string    // UUID, immutable once assigned
	Path       string    // Absolute path of the archive file
	Volume     string    // Label of the volume the archive was found on
	Size       int64     // Archive file size in bytes
	Hash       string    // SHA-256 of the archive file; empty unless requested
	ModifiedAt time.Time // Archive file mtime
	ScannedAt  time.Time // When the archive was probed
}

// EntryRecord represents one file stored inside an archive.
// (ArchiveID, Path) is unique within a catalog.
type EntryRecord struct {
	ArchiveID string   // Owning ArchiveRecord ID
	Path      string   // Entry path within the archive
	Size      int64    // Uncompressed size in bytes
	Hash      string   // SHA-256 of the entry content; empty unless requested
	Category  Category // Detected file-type category
}

// Category classifies an entry by its file extension.
type Category string

const (
	CategoryVideo    Category = "video"
	CategoryImage    Category = "image"
	CategoryAudio    Category = "audio"
	CategoryDocument Category = "document"
	CategoryArchive  Category = "archive"
	CategoryOther    Category = "other"
)

// JobStatus is the terminal state of a per-volume scan job.
type JobStatus string

const (
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// ProgressEvent is a point-in-time status update emitted by a running
// scan or extraction. Events are consumed by a progress reporter and
// never persisted.
type ProgressEvent struct {
	Job         string        // Job identifier (volume label, or "extract")
	Archives    int           // Archives processed so far
	Entries     int           // Entries indexed so far
	Elapsed     time.Duration // Time since the job started
	CurrentFile string        // File currently being processed, if any
	CurrentSize int64         // Size of the current file, if known
}

// MergeSummary reports the outcome of merging one source store.
type MergeSummary struct {
	Archives        int           // Archive records merged
	Entries         int           // Entry records merged
	SkippedArchives int           // Archive records skipped as duplicates
	SkippedEntries  int           // Entry records skipped as duplicates
	Elapsed         time.Duration
}

// SkippedFile records a path a job could not process and why. Skips are
// reported in the final summary so a retry can target them precisely.
type SkippedFile struct {
	Path   string
	Reason string
}

// VolumeResult is the per-volume portion of a scan summary.
type VolumeResult struct {
	Volume   string
	Root     string
	Archives int
	Entries  int
	Status   JobStatus
	Err      string        // Failure reason when Status is JobFailed
	Skipped  []SkippedFile // Per-archive failures that did not fail the job
}

// ScanSummary is the machine-readable result of a full scan.
type ScanSummary struct {
	TotalArchives int
	TotalEntries  int
	PerVolume     []VolumeResult
	Duration      time.Duration
}

// CatalogStats summarizes a catalog's contents.
type CatalogStats struct {
	Volumes    int
	Archives   int
	Entries    int
	TotalBytes int64
}

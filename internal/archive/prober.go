package archive

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zip"

	"zipdex/internal/model"
)

// Error taxonomy for probing. Callers branch on these to decide whether a
// failure is worth retrying or the archive is simply not usable.
var (
	// ErrCorruptArchive means the file looks like a ZIP container but its
	// headers could not be read.
	ErrCorruptArchive = errors.New("corrupt archive")

	// ErrUnsupportedArchive means the file is not a recognized container.
	ErrUnsupportedArchive = errors.New("unsupported archive")

	// ErrIOFailure is a transient I/O problem; the operation may be retried.
	ErrIOFailure = errors.New("i/o failure")
)

// Prober opens ZIP archives and lists their contents. Probing reads only
// the central directory, never entry payloads.
type Prober struct {
	clock Clock
	idgen IDGenerator
}

// NewProber creates a Prober. Pass RealClock and UUIDGenerator outside of tests.
func NewProber(clock Clock, idgen IDGenerator) *Prober {
	return &Prober{clock: clock, idgen: idgen}
}

// Probe lists the archive at path and returns its record plus one entry
// record per file inside it. The archive ID is a freshly minted UUID.
// Directory entries and zero-byte entries are skipped, not errors.
// The returned ArchiveRecord has no volume label; the caller assigns it.
func (p *Prober) Probe(path string) (*model.ArchiveRecord, []model.EntryRecord, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: stat %s: %v", ErrIOFailure, path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open %s: %v", ErrIOFailure, path, err)
	}
	defer f.Close()

	// Distinguish "not a ZIP at all" from "ZIP with unreadable headers"
	// by checking the local-file magic before parsing.
	var magic [4]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("%w: %s is too small to be an archive", ErrUnsupportedArchive, path)
		}
		return nil, nil, fmt.Errorf("%w: reading %s: %v", ErrIOFailure, path, err)
	}
	if magic[0] != 'P' || magic[1] != 'K' {
		return nil, nil, fmt.Errorf("%w: %s is not a ZIP container", ErrUnsupportedArchive, path)
	}

	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrCorruptArchive, path, err)
	}

	rec := &model.ArchiveRecord{
		ID:         p.idgen.New(),
		Path:       path,
		Size:       info.Size(),
		ModifiedAt: info.ModTime(),
		ScannedAt:  p.clock.Now(),
	}

	var entries []model.EntryRecord
	for _, zf := range zr.File {
		fi := zf.FileInfo()
		if fi.IsDir() || zf.UncompressedSize64 == 0 {
			continue
		}
		entries = append(entries, model.EntryRecord{
			ArchiveID: rec.ID,
			Path:      zf.Name,
			Size:      int64(zf.UncompressedSize64),
			Category:  DetectCategory(zf.Name),
		})
	}

	return rec, entries, nil
}

// HashArchive computes the SHA-256 of the raw archive file. This is an
// explicitly requested second pass, never part of Probe.
func HashArchive(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %v", ErrIOFailure, path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("%w: hashing %s: %v", ErrIOFailure, path, err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// HashEntry computes the SHA-256 of one entry's uncompressed content.
func HashEntry(archivePath, entryPath string) (string, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %v", ErrCorruptArchive, archivePath, err)
	}
	defer zr.Close()

	for _, zf := range zr.File {
		if zf.Name != entryPath {
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			return "", fmt.Errorf("%w: open entry %s: %v", ErrCorruptArchive, entryPath, err)
		}
		defer rc.Close()

		h := sha256.New()
		if _, err := io.Copy(h, rc); err != nil {
			return "", fmt.Errorf("%w: hashing entry %s: %v", ErrIOFailure, entryPath, err)
		}
		return fmt.Sprintf("%x", h.Sum(nil)), nil
	}

	return "", fmt.Errorf("entry not found in archive: %s", entryPath)
}

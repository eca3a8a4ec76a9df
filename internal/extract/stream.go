package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zip"

	"zipdex/internal/catalog"
	"zipdex/internal/model"
)

// chunkSize bounds how much of an entry is in memory at once.
const chunkSize = 1 << 20

// extractOne streams a single entry from its source archive to destDir.
// The destination name is the entry's basename, suffixed with a counter
// on collision. A mid-stream failure removes the partial output file.
func (e *Extractor) extractOne(_ context.Context, m catalog.Match, destDir string) Result {
	start := time.Now()
	res := Result{EntryPath: m.Entry.Path}

	zr, err := zip.OpenReader(m.Archive.Path)
	if err != nil {
		res.Err = fmt.Errorf("opening archive %s: %w", m.Archive.Path, err)
		res.Duration = time.Since(start)
		return res
	}
	defer zr.Close()

	var zf *zip.File
	for _, f := range zr.File {
		if f.Name == m.Entry.Path {
			zf = f
			break
		}
	}
	if zf == nil {
		res.Err = fmt.Errorf("entry %s no longer present in %s", m.Entry.Path, m.Archive.Path)
		res.Duration = time.Since(start)
		return res
	}

	rc, err := zf.Open()
	if err != nil {
		res.Err = fmt.Errorf("opening entry %s: %w", m.Entry.Path, err)
		res.Duration = time.Since(start)
		return res
	}
	defer rc.Close()

	destPath, err := claimDestination(destDir, filepath.Base(m.Entry.Path))
	if err != nil {
		res.Err = err
		res.Duration = time.Since(start)
		return res
	}

	written, err := e.streamTo(destPath, rc, m.Entry)
	res.BytesWritten = written
	res.Duration = time.Since(start)
	if err != nil {
		res.Err = err
		return res
	}
	res.OutputPath = destPath
	return res
}

// streamTo copies r into the already-created file at destPath in bounded
// chunks, reporting throughput through the throttled reporter. On any
// failure the partially written file is removed so no partial output is
// ever left behind.
func (e *Extractor) streamTo(destPath string, r io.Reader, entry model.EntryRecord) (int64, error) {
	f, err := os.OpenFile(destPath, os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDestinationUnwritable, err)
	}

	start := time.Now()
	buf := make([]byte, chunkSize)
	var written int64

	fail := func(err error) (int64, error) {
		f.Close()
		os.Remove(destPath)
		e.reporter.Reset("extract")
		return written, err
	}

	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			wn, writeErr := f.Write(buf[:n])
			written += int64(wn)
			if writeErr != nil {
				return fail(fmt.Errorf("writing %s: %w", destPath, writeErr))
			}
			e.reporter.Event(model.ProgressEvent{
				Job:         "extract",
				Elapsed:     time.Since(start),
				CurrentFile: entry.Path,
				CurrentSize: written,
			})
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fail(fmt.Errorf("reading %s: %w", entry.Path, readErr))
		}
	}

	if err := f.Close(); err != nil {
		os.Remove(destPath)
		e.reporter.Reset("extract")
		return written, fmt.Errorf("closing %s: %w", destPath, err)
	}

	e.reporter.Reset("extract")
	return written, nil
}

// ensureDestination creates the destination directory if needed.
func ensureDestination(destDir string) error {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrDestinationUnwritable, err)
	}
	return nil
}

// claimDestination atomically creates the output file, appending a
// numeric suffix on name collisions rather than overwriting.
func claimDestination(destDir, name string) (string, error) {
	ext := filepath.Ext(name)
	stem := name[:len(name)-len(ext)]

	for i := 0; ; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s.%d%s", stem, i, ext)
		}
		path := filepath.Join(destDir, candidate)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			f.Close()
			return path, nil
		}
		if os.IsExist(err) {
			continue
		}
		if os.IsPermission(err) {
			return "", fmt.Errorf("%w: %v", ErrDestinationUnwritable, err)
		}
		return "", fmt.Errorf("creating output file: %w", err)
	}
}

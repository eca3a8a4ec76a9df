// Package app wires configuration, logging, the catalog store, and the
// pipeline layers together for the command-line interface.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"zipdex/internal/archive"
	"zipdex/internal/catalog"
	"zipdex/internal/config"
	"zipdex/internal/extract"
	"zipdex/internal/model"
	"zipdex/internal/progress"
	"zipdex/internal/scan"
	"zipdex/internal/volume"
	"zipdex/internal/walker"
)

// App holds the initialized application state for one CLI invocation.
type App struct {
	Config *config.Config
	Store  *catalog.Store
	Logger *slog.Logger

	logFile *os.File
	plog    progress.Logger
	clock   archive.Clock
	idgen   archive.IDGenerator
}

// New loads the config from configPath, sets up logging tagged with the
// operation name, and opens the final catalog.
func New(configPath, operation string) (*App, error) {
	cfg, err := config.ReadFromFile(configPath)
	if err != nil {
		return nil, err
	}

	logger, logFile, err := newLogger(cfg.LogDir, operation)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	store, err := catalog.Open(filepath.Join(cfg.DataDir, "catalog.db"))
	if err != nil {
		logFile.Close()
		return nil, err
	}

	return &App{
		Config:  cfg,
		Store:   store,
		Logger:  logger,
		logFile: logFile,
		plog:    &slogAdapter{l: logger},
		clock:   &archive.RealClock{},
		idgen:   &archive.UUIDGenerator{},
	}, nil
}

// Close releases the catalog and log file.
func (a *App) Close() error {
	err := a.Store.Close()
	if a.logFile != nil {
		a.logFile.Close()
	}
	return err
}

// ScanOptions are the per-invocation overrides for a scan.
type ScanOptions struct {
	Roots       []string // Explicit roots to scan; empty enumerates all volumes
	Mode        string   // "marker" or "full"; empty uses the configured mode
	Hash        bool     // Compute content fingerprints
	Concurrency int      // Override; 0 uses the configured value
}

// Scan runs a full scan-and-merge over the selected volumes.
func (a *App) Scan(ctx context.Context, opts ScanOptions) (*model.ScanSummary, error) {
	vols, err := a.selectVolumes(opts.Roots)
	if err != nil {
		return nil, err
	}
	if len(vols) == 0 {
		return nil, fmt.Errorf("no volumes to scan")
	}

	mode := a.Config.Scan.Mode
	if opts.Mode != "" {
		mode = opts.Mode
	}
	policy := walker.Policy{
		MarkerFolder: a.Config.Scan.MarkerFolder,
		ExcludedDirs: a.Config.Scan.ExcludedDirs,
	}
	if mode == "full" {
		policy.Mode = walker.FullTree
	} else {
		policy.Mode = walker.MarkerOnly
	}

	concurrency := a.Config.Scan.Concurrency
	if opts.Concurrency > 0 {
		concurrency = opts.Concurrency
	}

	coordinator := scan.New(
		a.Store,
		archive.NewProber(a.clock, a.idgen),
		a.clock,
		progress.NewThrottle(progress.LogReporter{L: a.plog}, 0),
		a.plog,
		scan.Options{
			Policy:      policy,
			Concurrency: concurrency,
			Categories:  archive.ParseCategories(a.Config.Scan.Categories),
			Hash:        opts.Hash,
		},
	)
	return coordinator.Run(ctx, vols)
}

// selectVolumes maps explicit roots to volumes, or enumerates the system
// when none are given. Configured exclusions apply only to enumeration;
// an explicitly named root is always scanned.
func (a *App) selectVolumes(roots []string) ([]volume.Volume, error) {
	if len(roots) == 0 {
		return volume.Enumerate(a.Config.Scan.ExcludedVolumes)
	}

	vols := make([]volume.Volume, 0, len(roots))
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolving root %s: %w", root, err)
		}
		vols = append(vols, volume.Volume{Label: volume.LabelFor(abs), Root: abs})
	}
	return vols, nil
}

// Extractor builds an extractor over the final catalog. chooser may be
// nil for non-interactive use.
func (a *App) Extractor(chooser extract.Chooser) *extract.Extractor {
	return extract.New(a.Store, progress.LogReporter{L: a.plog}, a.plog, chooser)
}

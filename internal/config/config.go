package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for zipdex.
type Config struct {
	DataDir string     `toml:"data_dir"` // Catalog database location
	LogDir  string     `toml:"log_dir"`
	Scan    ScanConfig `toml:"scan"`
}

// ScanConfig holds scan behavior settings.
type ScanConfig struct {
	// Mode selects discovery behavior: "marker" scans only marker folders
	// found directly under each volume root; "full" scans the whole tree.
	Mode string `toml:"mode"`

	// MarkerFolder is the folder name looked for in marker mode.
	// Matched case-insensitively against direct children of the root.
	MarkerFolder string `toml:"marker_folder"`

	// ExcludedDirs are directory names skipped in full mode.
	ExcludedDirs []string `toml:"excluded_dirs"`

	// ExcludedVolumes are volume roots never scanned.
	ExcludedVolumes []string `toml:"excluded_volumes"`

	// Categories limits which entry categories are indexed.
	// Empty means all categories.
	Categories []string `toml:"categories"`

	// Concurrency bounds the number of volumes scanned in parallel.
	// 1 scans volumes sequentially.
	Concurrency int `toml:"concurrency"`
}

// DefaultExcludedDirs are skipped in full-volume mode unless overridden.
var DefaultExcludedDirs = []string{
	"System Volume Information", "$RECYCLE.BIN", "Windows",
	"Program Files", "Program Files (x86)",
	".git", "__pycache__", "node_modules",
}

// NewConfig creates a Config with defaults rooted at baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		DataDir: filepath.Join(baseDir, "data"),
		LogDir:  filepath.Join(baseDir, "log"),
		Scan: ScanConfig{
			Mode:         "marker",
			MarkerFolder: "googletakeout",
			ExcludedDirs: DefaultExcludedDirs,
			Categories:   []string{"video"},
			Concurrency:  4,
		},
	}
}

// Validate checks config invariants that later layers depend on.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	switch c.Scan.Mode {
	case "marker", "full":
	default:
		return fmt.Errorf("unknown scan mode: %q", c.Scan.Mode)
	}
	if c.Scan.Mode == "marker" && c.Scan.MarkerFolder == "" {
		return fmt.Errorf("marker_folder is required in marker mode")
	}
	if c.Scan.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1")
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config in %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path.
// It is an error if the file already exists.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}

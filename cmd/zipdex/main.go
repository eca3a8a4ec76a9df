package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"zipdex/internal/app"
	"zipdex/internal/catalog"
	"zipdex/internal/config"
	"zipdex/internal/extract"
	"zipdex/internal/model"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "Scan", "Extract").
func newApp(operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	a, err := app.New(defaults["config_path"], operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:   "zipdex",
	Short: "Catalog and extract files stored inside ZIP archives across volumes",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Data Dir: %s\n", cfg.DataDir)
		fmt.Printf("Log Dir:  %s\n", cfg.LogDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Data Dir:      %s\n", cfg.DataDir)
		fmt.Printf("Log Dir:       %s\n", cfg.LogDir)
		fmt.Printf("Scan Mode:     %s\n", cfg.Scan.Mode)
		fmt.Printf("Marker Folder: %s\n", cfg.Scan.MarkerFolder)
		fmt.Printf("Categories:    %s\n", strings.Join(cfg.Scan.Categories, ", "))
		fmt.Printf("Concurrency:   %d\n", cfg.Scan.Concurrency)
		return nil
	},
}

// scan command
var scanCmd = &cobra.Command{
	Use:   "scan [ROOT...]",
	Short: "Scan volumes for ZIP archives and index their contents",
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, _ := cmd.Flags().GetString("mode")
		hash, _ := cmd.Flags().GetBool("hash")
		concurrency, _ := cmd.Flags().GetInt("concurrency")

		a, err := newApp("Scan")
		if err != nil {
			return err
		}
		defer a.Close()

		summary, err := a.Scan(cmd.Context(), app.ScanOptions{
			Roots:       args,
			Mode:        mode,
			Hash:        hash,
			Concurrency: concurrency,
		})
		if summary != nil {
			printScanSummary(summary)
		}
		return err
	},
}

func printScanSummary(s *model.ScanSummary) {
	for _, v := range s.PerVolume {
		switch v.Status {
		case model.JobSucceeded:
			fmt.Printf("%-12s %s: %d archive(s), %d entries", v.Volume, v.Root, v.Archives, v.Entries)
			if len(v.Skipped) > 0 {
				fmt.Printf(", %d skipped", len(v.Skipped))
			}
			fmt.Println()
		default:
			fmt.Printf("%-12s %s: FAILED: %s\n", v.Volume, v.Root, v.Err)
		}
		for _, sk := range v.Skipped {
			fmt.Printf("  skipped %s: %s\n", sk.Path, sk.Reason)
		}
	}
	fmt.Printf("\nTotal: %d archive(s), %d entries in %s\n",
		s.TotalArchives, s.TotalEntries, s.Duration.Truncate(time.Millisecond))
}

// search command
var searchCmd = &cobra.Command{
	Use:   "search PATTERN",
	Short: "Search cataloged entries by name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		regex, _ := cmd.Flags().GetBool("regex")
		minSize, _ := cmd.Flags().GetInt64("min-size")
		maxSize, _ := cmd.Flags().GetInt64("max-size")
		categories, _ := cmd.Flags().GetStringSlice("category")
		csvPath, _ := cmd.Flags().GetString("csv")

		a, err := newApp("Search")
		if err != nil {
			return err
		}
		defer a.Close()

		f := catalog.Filter{MinSize: minSize, MaxSize: maxSize}
		if regex {
			f.Regexp = args[0]
		} else {
			f.Substring = args[0]
		}
		for _, c := range categories {
			f.Categories = append(f.Categories, model.Category(strings.ToLower(c)))
		}

		matches, err := a.Store.Query(cmd.Context(), f)
		if err != nil {
			return err
		}

		if csvPath != "" {
			f, err := os.Create(csvPath)
			if err != nil {
				return fmt.Errorf("creating CSV file: %w", err)
			}
			defer f.Close()
			if err := writeMatchesCSV(f, matches); err != nil {
				return err
			}
			fmt.Printf("Exported %d match(es) to %s\n", len(matches), csvPath)
			return nil
		}

		if len(matches) == 0 {
			fmt.Println("No matches.")
			return nil
		}
		for _, m := range matches {
			fmt.Printf("%-10s  %12d  %-8s  %s  (%s)\n",
				m.Archive.Volume, m.Entry.Size, m.Entry.Category, m.Entry.Path, m.Archive.Path)
		}
		fmt.Printf("\n%d match(es)\n", len(matches))
		return nil
	},
}

func writeMatchesCSV(w io.Writer, matches []catalog.Match) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"volume", "archive", "entry", "size", "category", "hash"}); err != nil {
		return err
	}
	for _, m := range matches {
		rec := []string{
			m.Archive.Volume,
			m.Archive.Path,
			m.Entry.Path,
			strconv.FormatInt(m.Entry.Size, 10),
			string(m.Entry.Category),
			m.Entry.Hash,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog contents",
}

var listArchivesCmd = &cobra.Command{
	Use:   "archives",
	Short: "List cataloged archives",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("ListArchives")
		if err != nil {
			return err
		}
		defer a.Close()

		infos, err := a.Store.ListArchives(cmd.Context(), limit)
		if err != nil {
			return err
		}

		if len(infos) == 0 {
			fmt.Println("No archives cataloged.")
			return nil
		}
		for _, info := range infos {
			fmt.Printf("%s  %-10s  %6d entries  %s\n",
				info.ID, info.Volume, info.EntryCount, info.Path)
		}
		return nil
	},
}

var listFilesCmd = &cobra.Command{
	Use:   "files",
	Short: "List cataloged entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		archiveID, _ := cmd.Flags().GetString("archive")
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("ListFiles")
		if err != nil {
			return err
		}
		defer a.Close()

		matches, err := a.Store.Query(cmd.Context(), catalog.Filter{ArchiveID: archiveID})
		if err != nil {
			return err
		}
		if limit > 0 && len(matches) > limit {
			matches = matches[:limit]
		}

		if len(matches) == 0 {
			fmt.Println("No entries cataloged.")
			return nil
		}
		for _, m := range matches {
			fmt.Printf("%-10s  %12d  %-8s  %s\n",
				m.Archive.Volume, m.Entry.Size, m.Entry.Category, m.Entry.Path)
		}
		return nil
	},
}

// stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show catalog statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Stats")
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.Store.Stats(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Volumes:  %d\n", stats.Volumes)
		fmt.Printf("Archives: %d\n", stats.Archives)
		fmt.Printf("Entries:  %d\n", stats.Entries)
		fmt.Printf("Total:    %d byte(s)\n", stats.TotalBytes)
		return nil
	},
}

// dupes command
var dupesCmd = &cobra.Command{
	Use:   "dupes",
	Short: "List entries sharing a content hash",
	Long: "List entries sharing a content hash.\n\n" +
		"Hashes are only available for archives scanned with --hash.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("FindDuplicates")
		if err != nil {
			return err
		}
		defer a.Close()

		groups, err := a.Store.FindDuplicates(cmd.Context())
		if err != nil {
			return err
		}

		if len(groups) == 0 {
			fmt.Println("No duplicates found.")
			return nil
		}
		for _, g := range groups {
			fmt.Printf("%s:\n", g.Hash[:12])
			for _, m := range g.Entries {
				fmt.Printf("  %-10s  %s  (%s)\n", m.Archive.Volume, m.Entry.Path, m.Archive.Path)
			}
		}
		return nil
	},
}

// extract command
var extractCmd = &cobra.Command{
	Use:   "extract [PATTERN]",
	Short: "Extract matching entries to a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		regex, _ := cmd.Flags().GetBool("regex")
		archiveID, _ := cmd.Flags().GetString("archive")
		filter, _ := cmd.Flags().GetString("filter")
		out, _ := cmd.Flags().GetString("out")

		req := extract.Request{}
		switch {
		case archiveID != "":
			req.Kind = extract.SelectArchive
			req.Value = archiveID
			req.SecondaryFilter = filter
		case len(args) == 1:
			req.Kind = extract.SelectPattern
			req.Value = args[0]
			req.Regexp = regex
		default:
			return errors.New("either a PATTERN or --archive is required")
		}

		a, err := newApp("Extract")
		if err != nil {
			return err
		}
		defer a.Close()

		return runExtraction(cmd.Context(), a, req, out, &stdinChooser{})
	},
}

// extract-all command
var extractAllCmd = &cobra.Command{
	Use:   "extract-all",
	Short: "Extract every cataloged entry to a directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("yes")
		filter, _ := cmd.Flags().GetString("filter")
		out, _ := cmd.Flags().GetString("out")

		req := extract.Request{
			Kind:            extract.SelectAll,
			SecondaryFilter: filter,
			ConfirmAll:      confirm,
		}

		a, err := newApp("ExtractAll")
		if err != nil {
			return err
		}
		defer a.Close()

		err = runExtraction(cmd.Context(), a, req, out, nil)
		if errors.Is(err, extract.ErrConfirmationRequired) {
			return fmt.Errorf("extracting everything requires --yes")
		}
		return err
	},
}

func runExtraction(ctx context.Context, a *app.App, req extract.Request, out string, chooser extract.Chooser) error {
	ex := a.Extractor(chooser)

	pairs, err := ex.Resolve(ctx, req)
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		fmt.Println("Nothing to extract.")
		return nil
	}

	results, err := ex.Extract(ctx, req, pairs, out)
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Printf("FAILED  %s: %v\n", r.EntryPath, r.Err)
			continue
		}
		fmt.Printf("%s -> %s (%d bytes, %s)\n",
			r.EntryPath, r.OutputPath, r.BytesWritten, r.Duration.Truncate(time.Millisecond))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d extraction(s) failed", failed, len(results))
	}
	return nil
}

// stdinChooser prompts on stdout and reads a selection from stdin when a
// pattern matches more than one entry.
type stdinChooser struct{}

func (stdinChooser) Choose(matches []catalog.Match) ([]catalog.Match, error) {
	fmt.Printf("Pattern matched %d entries:\n", len(matches))
	for i, m := range matches {
		fmt.Printf("  [%d] %-10s  %s  (%s)\n", i+1, m.Archive.Volume, m.Entry.Path, m.Archive.Path)
	}
	fmt.Printf("Select [1-%d, a=all, q=quit]: ", len(matches))

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("reading selection: %w", err)
	}
	line = strings.TrimSpace(line)

	switch line {
	case "a", "A":
		return matches, nil
	case "q", "Q", "":
		return nil, nil
	}

	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(matches) {
		return nil, fmt.Errorf("invalid selection %q", line)
	}
	return matches[n-1 : n], nil
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// list subcommands
	listCmd.AddCommand(listArchivesCmd)
	listCmd.AddCommand(listFilesCmd)
	listArchivesCmd.Flags().IntP("limit", "n", 0, "Maximum number of archives to show (0 = all)")
	listFilesCmd.Flags().String("archive", "", "Restrict to one archive by identifier")
	listFilesCmd.Flags().IntP("limit", "n", 0, "Maximum number of entries to show (0 = all)")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().String("mode", "", "Discovery mode: marker or full (default from config)")
	scanCmd.Flags().Bool("hash", false, "Compute SHA-256 fingerprints of archives and entries")
	scanCmd.Flags().IntP("concurrency", "j", 0, "Volumes scanned in parallel (default from config)")
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().BoolP("regex", "r", false, "Treat PATTERN as a regular expression")
	searchCmd.Flags().Int64("min-size", 0, "Minimum entry size in bytes")
	searchCmd.Flags().Int64("max-size", 0, "Maximum entry size in bytes")
	searchCmd.Flags().StringSliceP("category", "c", nil, "Restrict to categories (video, image, audio, document, archive, other)")
	searchCmd.Flags().String("csv", "", "Write results as CSV to the given file")
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(dupesCmd)
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().BoolP("regex", "r", false, "Treat PATTERN as a regular expression")
	extractCmd.Flags().String("archive", "", "Extract every entry of one archive by identifier")
	extractCmd.Flags().String("filter", "", "Narrow --archive extraction by entry name substring")
	extractCmd.Flags().StringP("out", "o", ".", "Destination directory")
	rootCmd.AddCommand(extractAllCmd)
	extractAllCmd.Flags().BoolP("yes", "y", false, "Confirm extracting every cataloged entry")
	extractAllCmd.Flags().String("filter", "", "Narrow extraction by entry name substring")
	extractAllCmd.Flags().StringP("out", "o", ".", "Destination directory")
}

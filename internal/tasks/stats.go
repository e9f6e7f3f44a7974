package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"

	"github.com/desertthunder/plstat/internal/formatter"
	"github.com/desertthunder/plstat/internal/models"
	"github.com/desertthunder/plstat/internal/playlist"
	"github.com/desertthunder/plstat/internal/shared"
)

// SnapshotStore records per-playlist snapshots.
type SnapshotStore interface {
	CreateMany(snapshots []*models.Snapshot) error
}

// StatsOpts contains configuration for the built-in statistics updater.
type StatsOpts struct {
	Root       string                // Repository working tree
	OutputDir  string                // Relative to Root (default: stats)
	Extensions []string              // Playlist file extensions (default: .m3u)
	NumWorkers int                   // Concurrent parsers (default: 4)
	Snapshots  SnapshotStore         // Optional snapshot persistence
	Logger     *log.Logger
	Bar        io.Writer             // Progress bar output, nil for none
	Progress   chan<- ProgressUpdate // Optional progress channel
	Now        func() time.Time      // Clock, defaults to time.Now
}

// StatsResult reports what an update did.
type StatsResult struct {
	Summary *models.Summary
	Parsed  int      // Playlists parsed this run
	Reused  int      // Playlists whose previous stats were kept
	Written []string // Files written
	Removed []string // Stale statistics files deleted
}

// StatsUpdater computes playlist statistics in process and writes them under the output directory.
type StatsUpdater struct {
	opts   StatsOpts
	logger *log.Logger
}

type statsJob struct {
	index int
	path  string
}

type statsOutcome struct {
	index  int
	stats  models.PlaylistStats
	reused bool
	err    error
}

// NewStatsUpdater creates a StatsUpdater, filling defaults.
func NewStatsUpdater(opts StatsOpts) *StatsUpdater {
	if opts.Root == "" {
		opts.Root = "."
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "stats"
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = []string{".m3u"}
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &StatsUpdater{opts: opts, logger: logger}
}

// Update implements services.Updater.
func (u *StatsUpdater) Update(ctx context.Context, force bool) error {
	_, err := u.UpdateStats(ctx, force)
	return err
}

// UpdateStats scans, parses and writes statistics.
//
// Without force, playlists whose content hash matches the previous summary keep their previous statistics,
// so an unchanged tree produces byte-identical output.
func (u *StatsUpdater) UpdateStats(ctx context.Context, force bool) (*StatsResult, error) {
	paths, err := u.Scan()
	if err != nil {
		return nil, err
	}
	u.sendProgress(scanUpdate(len(paths)))
	u.logger.Info("scanned playlists", "count", len(paths), "force", force)

	var previous *models.Summary
	if !force {
		previous, err = u.LoadSummary()
		if err != nil {
			u.logger.Warn("ignoring unreadable previous summary", "error", err)
			previous = nil
		}
	}

	now := u.opts.Now().UTC()
	stats, reused, err := u.computeAll(ctx, paths, previous, now)
	if err != nil {
		return nil, err
	}

	summary := playlist.Summarize(stats, now)
	if previous != nil && reused == len(paths) && samePaths(previous, summary) {
		summary.UpdatedAt = previous.UpdatedAt
	}

	result := &StatsResult{Summary: summary, Parsed: len(paths) - reused, Reused: reused}
	outputDir := filepath.Join(u.opts.Root, u.opts.OutputDir)

	written, err := formatter.WriteStatsFiles(outputDir, summary)
	if err != nil {
		return result, fmt.Errorf("failed to write statistics: %w", err)
	}
	result.Written = written.Written
	result.Removed = u.removeStale(outputDir, previous, summary)
	u.sendProgress(writeStatsUpdate(len(result.Written)))

	u.recordSnapshots(ctx, summary, previous, force)

	u.logger.Info("statistics updated",
		"playlists", len(summary.Playlists),
		"parsed", result.Parsed,
		"reused", result.Reused,
		"written", len(result.Written),
		"entries", summary.TotalEntries,
		"size", humanize.Bytes(uint64(max(summary.TotalSize, 0))),
	)
	return result, nil
}

// Scan lists playlist files under Root as slash-separated relative paths, skipping the output directory and hidden directories.
func (u *StatsUpdater) Scan() ([]string, error) {
	root := u.opts.Root
	output := filepath.Clean(u.opts.OutputDir)

	var paths []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if rel == "." {
				return nil
			}
			if strings.HasPrefix(d.Name(), ".") || d.Name() == "node_modules" || rel == output {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && u.matchesExtension(d.Name()) {
			paths = append(paths, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	return paths, nil
}

func (u *StatsUpdater) matchesExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range u.opts.Extensions {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}

// LoadSummary reads the previous summary.json, returning nil when none exists.
func (u *StatsUpdater) LoadSummary() (*models.Summary, error) {
	return LoadSummary(filepath.Join(u.opts.Root, u.opts.OutputDir))
}

// LoadSummary reads summary.json from outputDir, returning nil when it does not exist.
func LoadSummary(outputDir string) (*models.Summary, error) {
	data, err := os.ReadFile(filepath.Join(outputDir, formatter.SummaryFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read summary: %w", err)
	}
	var summary models.Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("%w: summary: %v", shared.ErrInvalidInput, err)
	}
	return &summary, nil
}

// computeAll parses playlists on a worker pool. Results keep the order of paths.
func (u *StatsUpdater) computeAll(ctx context.Context, paths []string, previous *models.Summary, now time.Time) ([]models.PlaylistStats, int, error) {
	jobs := make(chan statsJob, len(paths))
	outcomes := make(chan statsOutcome, len(paths))

	var wg sync.WaitGroup
	for i := 0; i < u.opts.NumWorkers; i++ {
		wg.Add(1)
		go u.statsWorker(ctx, &wg, jobs, outcomes, previous, now)
	}

	for i, p := range paths {
		jobs <- statsJob{index: i, path: p}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	var bar *progressbar.ProgressBar
	if u.opts.Bar != nil && len(paths) > 0 {
		bar = progressbar.NewOptions(len(paths),
			progressbar.OptionSetWriter(u.opts.Bar),
			progressbar.OptionSetDescription("parsing playlists"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	stats := make([]models.PlaylistStats, len(paths))
	var errs []error
	reused, completed := 0, 0
	for out := range outcomes {
		completed++
		if bar != nil {
			_ = bar.Add(1)
		}
		if out.err != nil {
			errs = append(errs, out.err)
			continue
		}
		stats[out.index] = out.stats
		if out.reused {
			reused++
		}
		u.sendProgress(parseUpdate(completed, len(paths), out.stats.Path, out.reused))
	}
	if bar != nil {
		_ = bar.Finish()
	}

	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	if len(errs) > 0 {
		return nil, 0, errors.Join(errs...)
	}
	return stats, reused, nil
}

func (u *StatsUpdater) statsWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan statsJob,
	outcomes chan<- statsOutcome,
	previous *models.Summary,
	now time.Time,
) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}
		outcomes <- u.computeOne(job, previous, now)
	}
}

func (u *StatsUpdater) computeOne(job statsJob, previous *models.Summary, now time.Time) statsOutcome {
	data, err := os.ReadFile(filepath.Join(u.opts.Root, filepath.FromSlash(job.path)))
	if err != nil {
		return statsOutcome{index: job.index, err: fmt.Errorf("failed to read %s: %w", job.path, err)}
	}

	if prev, ok := previous.Find(job.path); ok && prev.Hash == playlist.Hash(data) {
		return statsOutcome{index: job.index, stats: prev, reused: true}
	}

	pl, err := playlist.FromBytes(job.path, data)
	if err != nil {
		return statsOutcome{index: job.index, err: err}
	}
	u.logger.Debug("parsed playlist", "path", job.path, "entries", len(pl.Entries), "size", humanize.Bytes(uint64(pl.Size)))
	return statsOutcome{index: job.index, stats: playlist.Compute(pl, now)}
}

func (u *StatsUpdater) removeStale(outputDir string, previous, current *models.Summary) []string {
	if previous == nil {
		return nil
	}
	var removed []string
	for _, p := range previous.Playlists {
		if _, ok := current.Find(p.Path); ok {
			continue
		}
		name := formatter.StatsFilePath(outputDir, p.Path)
		if err := os.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			u.logger.Warn("failed to remove stale statistics", "path", name, "error", err)
			continue
		}
		removed = append(removed, name)
	}
	return removed
}

func (u *StatsUpdater) recordSnapshots(ctx context.Context, summary, previous *models.Summary, force bool) {
	if u.opts.Snapshots == nil {
		return
	}
	runID := RunIDFrom(ctx)
	var snapshots []*models.Snapshot
	for _, s := range summary.Playlists {
		if prev, ok := previous.Find(s.Path); ok && prev.Hash == s.Hash && !force {
			continue
		}
		snapshots = append(snapshots, models.NewSnapshot(runID, s))
	}
	if len(snapshots) == 0 {
		return
	}
	if err := u.opts.Snapshots.CreateMany(snapshots); err != nil {
		u.logger.Warn("failed to record snapshots", "error", err)
	}
}

func (u *StatsUpdater) sendProgress(update ProgressUpdate) {
	if u.opts.Progress == nil {
		return
	}
	select {
	case u.opts.Progress <- update:
	default:
	}
}

func samePaths(a, b *models.Summary) bool {
	if len(a.Playlists) != len(b.Playlists) {
		return false
	}
	for i := range a.Playlists {
		if a.Playlists[i].Path != b.Playlists[i].Path {
			return false
		}
	}
	return true
}

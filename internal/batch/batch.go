package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"snapmerge/internal/classify"
	"snapmerge/internal/compositor"
	"snapmerge/internal/config"
	"snapmerge/internal/errs"
	"snapmerge/internal/fileutil"
	"snapmerge/internal/journal"
	"snapmerge/internal/logging"
	"snapmerge/internal/pairing"
	"snapmerge/internal/unpack"
)

// Options selects the batch inputs and behavior for a single run.
type Options struct {
	Input     string
	Output    string
	Overwrite bool
	DryRun    bool
	Workers   int
}

// Result is the terminal outcome of one top-level input entry.
type Result struct {
	Name    string
	Kind    classify.Kind
	Action  journal.Action
	Output  string
	Err     error
	Elapsed time.Duration
}

// Summary aggregates one run: every entry outcome plus the tallies the CLI
// and journal report.
type Summary struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Results  []Result
	Merged   int
	Copied   int
	Skipped  int
	Failed   int
}

// Runner walks a source directory and restores each entry into the output
// directory. Entry failures are isolated: one bad export never stops the
// rest of the batch.
type Runner struct {
	cfg        *config.Config
	classifier *classify.Classifier
	compositor *compositor.Compositor
	logger     *slog.Logger
	store      *journal.Store
}

// New constructs a batch runner.
func New(cfg *config.Config, classifier *classify.Classifier, comp *compositor.Compositor, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{
		cfg:        cfg,
		classifier: classifier,
		compositor: comp,
		logger:     logging.NewComponentLogger(logger, "batch"),
	}
}

// WithJournal attaches a run-history store. Without one, runs are not
// recorded.
func (r *Runner) WithJournal(store *journal.Store) {
	r.store = store
}

// Run processes every top-level entry of opts.Input. Per-entry failures are
// collected in the summary; the returned error covers only setup problems
// such as a missing input directory or a concurrent run holding the lock.
func (r *Runner) Run(ctx context.Context, opts Options) (Summary, error) {
	summary := Summary{RunID: uuid.NewString(), Started: time.Now()}

	info, err := os.Stat(opts.Input)
	if err != nil || !info.IsDir() {
		return summary, errs.Wrap(errs.ErrNotFound, "batch", "open input directory", opts.Input, err)
	}

	if !opts.DryRun {
		if err := fileutil.EnsureDir(opts.Output); err != nil {
			return summary, errs.Wrap(errs.ErrInvalidArgument, "batch", "create output directory", opts.Output, err)
		}

		lock := flock.New(r.cfg.LockPath())
		locked, err := lock.TryLock()
		if err != nil {
			return summary, errs.Wrap(errs.ErrInvalidArgument, "batch", "acquire lock", r.cfg.LockPath(), err)
		}
		if !locked {
			return summary, errs.Wrap(errs.ErrInvalidArgument, "batch", "acquire lock",
				fmt.Sprintf("%s is held by another run", r.cfg.LockPath()), nil)
		}
		defer func() { _ = lock.Unlock() }()
	}

	existing := snapshotExisting(opts.Output)

	entries, err := os.ReadDir(opts.Input)
	if err != nil {
		return summary, errs.Wrap(errs.ErrNotFound, "batch", "read input directory", opts.Input, err)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = r.cfg.Batch.Workers
	}
	if workers < 1 {
		workers = 1
	}

	results := make([]Result, len(entries))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	for i, entry := range entries {
		i, entry := i, entry
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = r.processEntry(gctx, opts, existing, entry.Name())
			return nil
		})
	}
	waitErr := group.Wait()

	for _, result := range results {
		if result.Name == "" {
			continue
		}
		summary.Results = append(summary.Results, result)
		switch result.Action {
		case journal.ActionMerged:
			summary.Merged++
		case journal.ActionCopied:
			summary.Copied++
		case journal.ActionSkipped:
			summary.Skipped++
		case journal.ActionFailed:
			summary.Failed++
		}
	}
	summary.Finished = time.Now()

	r.record(ctx, opts, summary)
	r.logger.Info("batch finished",
		logging.String("run_id", summary.RunID),
		logging.Bool("dry_run", opts.DryRun),
		logging.Int("merged", summary.Merged),
		logging.Int("copied", summary.Copied),
		logging.Int("skipped", summary.Skipped),
		logging.Int("failed", summary.Failed),
		logging.Duration("elapsed", summary.Finished.Sub(summary.Started)),
	)

	if waitErr != nil {
		return summary, waitErr
	}
	return summary, nil
}

func (r *Runner) processEntry(ctx context.Context, opts Options, existing map[string]struct{}, name string) Result {
	started := time.Now()
	result := Result{Name: name}
	path := filepath.Join(opts.Input, name)
	stem := fileutil.Stem(name)

	if _, found := existing[strings.ToLower(stem)]; found && !opts.Overwrite {
		result.Action = journal.ActionSkipped
		result.Elapsed = time.Since(started)
		r.logger.Info("skipped entry", logging.String("entry", name), logging.String("reason", "output exists"))
		return result
	}

	result.Kind = r.classifier.Classify(ctx, path)
	outputPath, action, err := r.restore(ctx, opts, path, stem, result.Kind)
	result.Output = outputPath
	result.Action = action
	result.Err = err
	result.Elapsed = time.Since(started)

	if err != nil {
		result.Action = journal.ActionFailed
		r.logger.Error("entry failed",
			logging.String("entry", name),
			logging.String("kind", string(result.Kind)),
			logging.Error(err),
		)
		return result
	}
	r.logger.Info("entry done",
		logging.String("entry", name),
		logging.String("kind", string(result.Kind)),
		logging.String("action", string(result.Action)),
		logging.String("output", result.Output),
		logging.Duration("elapsed", result.Elapsed),
	)
	return result
}

func (r *Runner) restore(ctx context.Context, opts Options, path, stem string, kind classify.Kind) (string, journal.Action, error) {
	outputBase := filepath.Join(opts.Output, stem)

	switch kind {
	case classify.KindArchive:
		if opts.DryRun {
			return outputBase, journal.ActionMerged, unpack.Validate(path)
		}
		var written string
		err := unpack.WithUnpacked(ctx, path, r.cfg.Paths.ScratchDir, func(dir string) error {
			pair, err := pairing.Resolve(ctx, dir, r.classifier)
			if err != nil {
				return err
			}
			written, err = r.compositor.Combine(ctx, pair.Media, pair.Overlay, outputBase)
			return err
		})
		return written, journal.ActionMerged, err

	case classify.KindDirectory:
		pair, err := pairing.Resolve(ctx, path, r.classifier)
		if err != nil {
			return "", journal.ActionFailed, err
		}
		if opts.DryRun {
			return outputBase, journal.ActionMerged, nil
		}
		written, err := r.compositor.Combine(ctx, pair.Media, pair.Overlay, outputBase)
		return written, journal.ActionMerged, err

	case classify.KindVideo:
		// Standalone videos carry no overlay and are preserved verbatim.
		dest := filepath.Join(opts.Output, filepath.Base(path))
		if opts.DryRun {
			return dest, journal.ActionCopied, nil
		}
		return dest, journal.ActionCopied, fileutil.CopyFile(path, dest)

	case classify.KindImage:
		dest, err := r.imageDestination(opts.Output, path)
		if err != nil {
			return "", journal.ActionFailed, err
		}
		if opts.DryRun {
			return dest, journal.ActionCopied, nil
		}
		return dest, journal.ActionCopied, fileutil.CopyFile(path, dest)

	default:
		return "", journal.ActionFailed, errs.Wrap(errs.ErrUnsupportedEntry, "batch", "classify entry",
			fmt.Sprintf("%s is not an archive, capture directory, image, or video", path), nil)
	}
}

// imageDestination restores the canonical extension for standalone images:
// names already carrying a matching extension keep it, everything else gets
// the decoded format's extension appended.
func (r *Runner) imageDestination(outputDir, path string) (string, error) {
	format, err := classify.ImageFormat(path)
	if err != nil {
		return "", err
	}
	name := filepath.Base(path)
	if !classify.HasMatchingExtension(name, format) {
		name += classify.ExtensionForFormat(format)
	}
	return filepath.Join(outputDir, name), nil
}

// snapshotExisting captures the output directory's occupied stems once, before
// any entry is processed. Skip decisions are extension-agnostic: "clip" is
// occupied whether the artifact is clip.jpg or clip.mp4.
func snapshotExisting(outputDir string) map[string]struct{} {
	existing := make(map[string]struct{})
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return existing
	}
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		existing[strings.ToLower(fileutil.Stem(name))] = struct{}{}
	}
	return existing
}

func (r *Runner) record(ctx context.Context, opts Options, summary Summary) {
	if r.store == nil || opts.DryRun {
		return
	}
	run := journal.Run{
		ID:         summary.RunID,
		SourceDir:  opts.Input,
		DestDir:    opts.Output,
		DryRun:     opts.DryRun,
		StartedAt:  summary.Started,
		FinishedAt: summary.Finished,
		Merged:     summary.Merged,
		Copied:     summary.Copied,
		Skipped:    summary.Skipped,
		Failed:     summary.Failed,
	}
	entries := make([]journal.Entry, 0, len(summary.Results))
	for _, result := range summary.Results {
		entry := journal.Entry{
			RunID:      summary.RunID,
			Name:       result.Name,
			Kind:       string(result.Kind),
			Action:     result.Action,
			OutputPath: result.Output,
			Elapsed:    result.Elapsed,
		}
		if result.Err != nil {
			entry.Error = result.Err.Error()
		}
		entries = append(entries, entry)
	}
	if err := r.store.RecordRun(ctx, run, entries); err != nil && !errors.Is(err, context.Canceled) {
		r.logger.Warn("journal write failed", logging.Error(err))
	}
}

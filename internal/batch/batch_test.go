package batch

import (
	"archive/zip"
	"context"
	"errors"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"testing"

	"snapmerge/internal/classify"
	"snapmerge/internal/compositor"
	"snapmerge/internal/config"
	"snapmerge/internal/errs"
	"snapmerge/internal/journal"
	"snapmerge/internal/testsupport"
)

type fixture struct {
	cfg    *config.Config
	runner *Runner
	input  string
	output string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	classifier := classify.New(testsupport.ExtensionProber{})
	comp := compositor.New(cfg, classifier, nil)
	runner := New(cfg, classifier, comp, nil)

	base := t.TempDir()
	input := filepath.Join(base, "exports")
	output := filepath.Join(base, "restored")
	if err := os.MkdirAll(input, 0o755); err != nil {
		t.Fatal(err)
	}
	return fixture{cfg: cfg, runner: runner, input: input, output: output}
}

// writePairDir creates a capture directory with one media image and one
// overlay.
func writePairDir(t *testing.T, dir string) {
	t.Helper()
	testsupport.WriteJPEG(t, filepath.Join(dir, "main.jpg"), 80, 60, color.RGBA{B: 255, A: 255})
	testsupport.WriteOverlayPNG(t, filepath.Join(dir, "overlay.png"), 80, 60)
}

// writePairZip packs a media/overlay pair into a zip archive at path.
func writePairZip(t *testing.T, path string) {
	t.Helper()
	scratch := t.TempDir()
	testsupport.WritePNG(t, filepath.Join(scratch, "main.png"), 64, 48, color.RGBA{G: 255, A: 255})
	testsupport.WriteOverlayPNG(t, filepath.Join(scratch, "overlay.png"), 64, 48)

	out, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer out.Close()
	writer := zip.NewWriter(out)
	for _, name := range []string{"main.png", "overlay.png"} {
		member, err := writer.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		src, err := os.Open(filepath.Join(scratch, name))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := io.Copy(member, src); err != nil {
			t.Fatal(err)
		}
		src.Close()
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}
}

func actionFor(t *testing.T, summary Summary, name string) Result {
	t.Helper()
	for _, result := range summary.Results {
		if result.Name == name {
			return result
		}
	}
	t.Fatalf("no result for %s in %+v", name, summary.Results)
	return Result{}
}

func TestRunRestoresMixedBatch(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	writePairDir(t, filepath.Join(fx.input, "beach"))
	writePairZip(t, filepath.Join(fx.input, "party.zip"))
	testsupport.WriteFile(t, filepath.Join(fx.input, "clip.mp4"), 2048)
	testsupport.WriteJPEG(t, filepath.Join(fx.input, "photo"), 32, 32, color.RGBA{R: 255, A: 255})
	testsupport.WriteFile(t, filepath.Join(fx.input, "notes.txt"), 16)

	summary, err := fx.runner.Run(ctx, Options{Input: fx.input, Output: fx.output})
	if err != nil {
		t.Fatal(err)
	}

	if summary.Merged != 2 || summary.Copied != 2 || summary.Failed != 1 || summary.Skipped != 0 {
		t.Fatalf("unexpected tallies: %+v", summary)
	}
	if got := actionFor(t, summary, "beach"); got.Action != journal.ActionMerged {
		t.Fatalf("beach: %+v", got)
	}
	if got := actionFor(t, summary, "notes.txt"); !errors.Is(got.Err, errs.ErrUnsupportedEntry) {
		t.Fatalf("notes.txt should fail as unsupported: %+v", got)
	}

	for _, name := range []string{"beach.jpg", "party.png", "clip.mp4", "photo.jpg"} {
		if _, err := os.Stat(filepath.Join(fx.output, name)); err != nil {
			t.Fatalf("expected output %s: %v", name, err)
		}
	}

	// Scratch must be empty again after archive extraction.
	leftovers, err := os.ReadDir(fx.cfg.Paths.ScratchDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(leftovers) != 0 {
		t.Fatalf("scratch not cleaned: %v", leftovers)
	}
}

func TestRunSkipsOccupiedStems(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	writePairDir(t, filepath.Join(fx.input, "beach"))
	if err := os.MkdirAll(fx.output, 0o755); err != nil {
		t.Fatal(err)
	}
	// Different extension, same stem: still occupied.
	testsupport.WriteFile(t, filepath.Join(fx.output, "beach.mp4"), 8)

	summary, err := fx.runner.Run(ctx, Options{Input: fx.input, Output: fx.output})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Skipped != 1 || summary.Merged != 0 {
		t.Fatalf("expected skip: %+v", summary)
	}

	summary, err = fx.runner.Run(ctx, Options{Input: fx.input, Output: fx.output, Overwrite: true})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Merged != 1 || summary.Skipped != 0 {
		t.Fatalf("overwrite should merge: %+v", summary)
	}
	if _, err := os.Stat(filepath.Join(fx.output, "beach.jpg")); err != nil {
		t.Fatalf("merged output missing after overwrite: %v", err)
	}
}

func TestRunIsRepeatable(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	writePairDir(t, filepath.Join(fx.input, "beach"))
	if _, err := fx.runner.Run(ctx, Options{Input: fx.input, Output: fx.output}); err != nil {
		t.Fatal(err)
	}
	summary, err := fx.runner.Run(ctx, Options{Input: fx.input, Output: fx.output})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Skipped != 1 || summary.Merged != 0 {
		t.Fatalf("second run should skip everything: %+v", summary)
	}
}

func TestRunIsolatesEntryFailures(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	writePairDir(t, filepath.Join(fx.input, "beach"))
	// Archive suffix but not a zip: extraction fails, batch continues.
	testsupport.WriteFile(t, filepath.Join(fx.input, "broken.zip"), 64)

	summary, err := fx.runner.Run(ctx, Options{Input: fx.input, Output: fx.output})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Merged != 1 || summary.Failed != 1 {
		t.Fatalf("expected one merge and one failure: %+v", summary)
	}
	if got := actionFor(t, summary, "broken.zip"); !errors.Is(got.Err, errs.ErrInvalidArchive) {
		t.Fatalf("broken.zip error: %v", got.Err)
	}
	if _, err := os.Stat(filepath.Join(fx.output, "beach.jpg")); err != nil {
		t.Fatalf("good entry should still restore: %v", err)
	}
}

func TestRunDryRunWritesNothing(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	writePairDir(t, filepath.Join(fx.input, "beach"))
	writePairZip(t, filepath.Join(fx.input, "party.zip"))
	testsupport.WriteFile(t, filepath.Join(fx.input, "clip.mp4"), 512)

	summary, err := fx.runner.Run(ctx, Options{Input: fx.input, Output: fx.output, DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Merged != 2 || summary.Copied != 1 {
		t.Fatalf("dry run tallies: %+v", summary)
	}
	if _, err := os.Stat(fx.output); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("dry run must not create the output directory: %v", err)
	}
}

func TestRunWithWorkers(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	for _, name := range []string{"one", "two", "three", "four"} {
		writePairDir(t, filepath.Join(fx.input, name))
	}
	summary, err := fx.runner.Run(ctx, Options{Input: fx.input, Output: fx.output, Workers: 3})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Merged != 4 {
		t.Fatalf("expected 4 merges: %+v", summary)
	}
}

func TestRunRecordsJournal(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	store, err := journal.Open(fx.cfg.JournalPath())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	fx.runner.WithJournal(store)

	writePairDir(t, filepath.Join(fx.input, "beach"))
	summary, err := fx.runner.Run(ctx, Options{Input: fx.input, Output: fx.output})
	if err != nil {
		t.Fatal(err)
	}

	runs, err := store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != summary.RunID || runs[0].Merged != 1 {
		t.Fatalf("journal run mismatch: %+v", runs)
	}
	entries, err := store.RunEntries(ctx, summary.RunID)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name != "beach" || entries[0].Action != journal.ActionMerged {
		t.Fatalf("journal entries mismatch: %+v", entries)
	}

	// Dry runs leave no trace in history.
	if _, err := fx.runner.Run(ctx, Options{Input: fx.input, Output: fx.output, DryRun: true}); err != nil {
		t.Fatal(err)
	}
	runs, err = store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("dry run must not be journaled: %+v", runs)
	}
}

func TestRunMissingInput(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.runner.Run(context.Background(), Options{Input: filepath.Join(fx.input, "absent"), Output: fx.output})
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

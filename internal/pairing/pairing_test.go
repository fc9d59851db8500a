package pairing

import (
	"context"
	"errors"
	"image/color"
	"path/filepath"
	"strings"
	"testing"

	"snapmerge/internal/classify"
	"snapmerge/internal/errs"
	"snapmerge/internal/testsupport"
)

func newClassifier() *classify.Classifier {
	return classify.New(testsupport.ExtensionProber{})
}

func TestResolveImagePair(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteJPEG(t, filepath.Join(dir, "x_main.jpg"), 8, 8, color.White)
	testsupport.WriteOverlayPNG(t, filepath.Join(dir, "x_overlay.png"), 8, 8)

	pair, err := Resolve(context.Background(), dir, newClassifier())
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(pair.Media) != "x_main.jpg" {
		t.Fatalf("unexpected media %s", pair.Media)
	}
	if filepath.Base(pair.Overlay) != "x_overlay.png" {
		t.Fatalf("unexpected overlay %s", pair.Overlay)
	}
	if pair.MediaKind != classify.KindImage {
		t.Fatalf("unexpected media kind %s", pair.MediaKind)
	}
}

func TestResolveVideoPairCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "Clip_MAIN.mp4"), 64)
	testsupport.WriteOverlayPNG(t, filepath.Join(dir, "Clip_OVERLAY.png"), 8, 8)

	pair, err := Resolve(context.Background(), dir, newClassifier())
	if err != nil {
		t.Fatal(err)
	}
	if pair.MediaKind != classify.KindVideo {
		t.Fatalf("unexpected media kind %s", pair.MediaKind)
	}
}

func TestResolveMissingOverlay(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteJPEG(t, filepath.Join(dir, "x_main.jpg"), 8, 8, color.White)

	_, err := Resolve(context.Background(), dir, newClassifier())
	if !errors.Is(err, errs.ErrPairing) {
		t.Fatalf("expected ErrPairing, got %v", err)
	}
	if !strings.Contains(err.Error(), "0 overlay candidates") || !strings.Contains(err.Error(), dir) {
		t.Fatalf("error must name the count and directory: %v", err)
	}
}

func TestResolveAmbiguousMedia(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteJPEG(t, filepath.Join(dir, "a_main.jpg"), 8, 8, color.White)
	testsupport.WriteJPEG(t, filepath.Join(dir, "b_main.jpg"), 8, 8, color.White)
	testsupport.WriteOverlayPNG(t, filepath.Join(dir, "x_overlay.png"), 8, 8)

	_, err := Resolve(context.Background(), dir, newClassifier())
	if !errors.Is(err, errs.ErrPairing) {
		t.Fatalf("expected ErrPairing, got %v", err)
	}
	if !strings.Contains(err.Error(), "2 media candidates") {
		t.Fatalf("error must name the count: %v", err)
	}
}

func TestResolveOverlayMustBeImage(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteJPEG(t, filepath.Join(dir, "x_main.jpg"), 8, 8, color.White)
	// Name matches but content is not an image.
	testsupport.WriteFile(t, filepath.Join(dir, "x_overlay.png"), 32)

	_, err := Resolve(context.Background(), dir, newClassifier())
	if !errors.Is(err, errs.ErrPairing) {
		t.Fatalf("expected ErrPairing for undecodable overlay, got %v", err)
	}
}

func TestResolveOverlayNamePriority(t *testing.T) {
	// A name containing both substrings counts as overlay only.
	dir := t.TempDir()
	testsupport.WriteJPEG(t, filepath.Join(dir, "x_main.jpg"), 8, 8, color.White)
	testsupport.WriteOverlayPNG(t, filepath.Join(dir, "main_overlay.png"), 8, 8)

	pair, err := Resolve(context.Background(), dir, newClassifier())
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(pair.Media) != "x_main.jpg" {
		t.Fatalf("overlay-named file leaked into media role: %s", pair.Media)
	}
}

func TestResolveMissingDirectory(t *testing.T) {
	_, err := Resolve(context.Background(), filepath.Join(t.TempDir(), "ghost"), newClassifier())
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveIgnoresSubdirectories(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteJPEG(t, filepath.Join(dir, "x_main.jpg"), 8, 8, color.White)
	testsupport.WriteOverlayPNG(t, filepath.Join(dir, "x_overlay.png"), 8, 8)
	// Nested pair must not be picked up; the scan is non-recursive.
	testsupport.WriteOverlayPNG(t, filepath.Join(dir, "nested", "y_overlay.png"), 8, 8)

	pair, err := Resolve(context.Background(), dir, newClassifier())
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(pair.Overlay) != "x_overlay.png" {
		t.Fatalf("unexpected overlay %s", pair.Overlay)
	}
}

// Package pairing resolves the media/overlay pair inside one capture
// directory. The export convention names the base capture with a "main"
// substring and the transparent layer with an "overlay" substring; both
// matches are case-insensitive and must be unique.
package pairing

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"snapmerge/internal/classify"
	"snapmerge/internal/errs"
)

// Pair is the resolved unit of work for one merge: exactly one media entry
// (image or video) and exactly one overlay image.
type Pair struct {
	Media     string
	Overlay   string
	MediaKind classify.Kind
}

// Resolve scans the direct children of dir and returns the unique
// media/overlay pair. Zero or multiple candidates for either role fail with
// ErrPairing naming the directory and the count found; ambiguous pairs are
// rejected, never guessed.
func Resolve(ctx context.Context, dir string, classifier *classify.Classifier) (Pair, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return Pair{}, errs.Wrap(errs.ErrNotFound, "pairing", "open directory", dir, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return Pair{}, errs.Wrap(errs.ErrNotFound, "pairing", "read directory", dir, err)
	}

	var mediaCandidates, overlayCandidates []Pair
	for _, entry := range entries {
		name := entry.Name()
		lower := strings.ToLower(name)
		path := filepath.Join(dir, name)
		kind := classifier.Classify(ctx, path)

		// Overlay takes priority when a name matches both substrings.
		switch {
		case strings.Contains(lower, "overlay") && kind == classify.KindImage:
			overlayCandidates = append(overlayCandidates, Pair{Overlay: path})
		case strings.Contains(lower, "main") && (kind == classify.KindImage || kind == classify.KindVideo):
			mediaCandidates = append(mediaCandidates, Pair{Media: path, MediaKind: kind})
		}
	}

	if len(mediaCandidates) != 1 {
		return Pair{}, errs.Wrap(errs.ErrPairing, "pairing", "resolve media",
			fmt.Sprintf("found %d media candidates in %s, need exactly 1", len(mediaCandidates), dir), nil)
	}
	if len(overlayCandidates) != 1 {
		return Pair{}, errs.Wrap(errs.ErrPairing, "pairing", "resolve overlay",
			fmt.Sprintf("found %d overlay candidates in %s, need exactly 1", len(overlayCandidates), dir), nil)
	}

	return Pair{
		Media:     mediaCandidates[0].Media,
		Overlay:   overlayCandidates[0].Overlay,
		MediaKind: mediaCandidates[0].MediaKind,
	}, nil
}

package classify

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"strings"

	// Registered decoders determine which formats count as images.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"snapmerge/internal/errs"
	"snapmerge/internal/media/ffprobe"
)

// Kind is the semantic type of a filesystem entry, derived by probing content
// rather than trusting extensions.
type Kind string

const (
	KindImage       Kind = "image"
	KindVideo       Kind = "video"
	KindArchive     Kind = "archive"
	KindDirectory   Kind = "directory"
	KindUnsupported Kind = "unsupported"
)

// archiveSuffixes are matched against the lowercase file name. Archive
// identity stays extension-based: contents are not inspected until
// extraction.
var archiveSuffixes = []string{".zip", ".tar.gz", ".tgz", ".tar"}

// VideoProber reports whether a file is a decodable video. The production
// implementation shells out to ffprobe; tests substitute fakes.
type VideoProber interface {
	IsVideo(ctx context.Context, path string) bool
}

// ToolProber probes videos with the ffprobe binary.
type ToolProber struct {
	Binary string
}

// IsVideo reports whether ffprobe finds a video stream with real dimensions.
// Still images are never routed here: Classify checks the image decoders
// first, so a PNG's single "video stream" cannot misclassify it.
func (p ToolProber) IsVideo(ctx context.Context, path string) bool {
	result, err := ffprobe.Inspect(ctx, p.Binary, path)
	if err != nil {
		return false
	}
	_, _, ok := result.Dimensions()
	return ok
}

// Classifier decides the Kind of filesystem entries.
type Classifier struct {
	prober VideoProber
}

// New constructs a classifier around the provided video prober.
func New(prober VideoProber) *Classifier {
	return &Classifier{prober: prober}
}

// Classify determines the kind of the entry at path. It never fails: missing
// paths and anything that is neither a regular file nor a directory report
// KindUnsupported, so it is safe to call speculatively on every entry.
func (c *Classifier) Classify(ctx context.Context, path string) Kind {
	info, err := os.Stat(path)
	if err != nil {
		return KindUnsupported
	}
	if info.IsDir() {
		return KindDirectory
	}
	if !info.Mode().IsRegular() {
		return KindUnsupported
	}
	if IsArchivePath(path) {
		return KindArchive
	}
	if isImage(path) {
		return KindImage
	}
	if c.prober != nil && c.prober.IsVideo(ctx, path) {
		return KindVideo
	}
	return KindUnsupported
}

// IsArchivePath reports whether the file name carries a supported archive
// suffix (case-insensitive).
func IsArchivePath(path string) bool {
	lower := strings.ToLower(filepath.Base(path))
	for _, suffix := range archiveSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

func isImage(path string) bool {
	_, err := decodeFormat(path)
	return err == nil
}

// ImageFormat returns the decoded format name ("png", "jpeg", "gif") of an
// image file. It fails with ErrUnsupportedMedia when the file does not decode
// as a registered image format.
func ImageFormat(path string) (string, error) {
	format, err := decodeFormat(path)
	if err != nil {
		return "", errs.Wrap(errs.ErrUnsupportedMedia, "classify", "decode image header", path, err)
	}
	return format, nil
}

func decodeFormat(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	_, format, err := image.DecodeConfig(file)
	if err != nil {
		return "", err
	}
	return format, nil
}

// ExtensionForFormat maps a decoded image format name to its canonical file
// extension, including the leading dot.
func ExtensionForFormat(format string) string {
	switch strings.ToLower(format) {
	case "jpeg":
		return ".jpg"
	case "png":
		return ".png"
	case "gif":
		return ".gif"
	default:
		return "." + strings.ToLower(format)
	}
}

// HasMatchingExtension reports whether the file name already carries an
// extension matching the decoded format. ".jpg" and ".jpeg" both match
// "jpeg".
func HasMatchingExtension(name, format string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	switch strings.ToLower(format) {
	case "jpeg":
		return ext == ".jpg" || ext == ".jpeg"
	case "png":
		return ext == ".png"
	case "gif":
		return ext == ".gif"
	default:
		return ext == "."+strings.ToLower(format)
	}
}

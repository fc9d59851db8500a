package compositor

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	xdraw "golang.org/x/image/draw"

	"snapmerge/internal/classify"
	"snapmerge/internal/config"
	"snapmerge/internal/errs"
	"snapmerge/internal/logging"
	"snapmerge/internal/media/ffmpeg"
	"snapmerge/internal/media/ffprobe"
)

// ProbeFunc inspects a video container. Tests substitute fakes for the
// ffprobe-backed default.
type ProbeFunc func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// Compositor merges one media/overlay pair into a single output artifact,
// choosing the image or video strategy from the media's probed kind.
type Compositor struct {
	cfg        *config.Config
	classifier *classify.Classifier
	logger     *slog.Logger
	run        ffmpeg.Runner
	probe      ProbeFunc
}

// New constructs a compositor using the real ffmpeg/ffprobe tools.
func New(cfg *config.Config, classifier *classify.Classifier, logger *slog.Logger) *Compositor {
	return &Compositor{
		cfg:        cfg,
		classifier: classifier,
		logger:     logging.NewComponentLogger(logger, "compositor"),
		run:        ffmpeg.Run,
		probe:      ffprobe.Inspect,
	}
}

// WithVideoTools injects replacement video tooling (used in tests).
func (c *Compositor) WithVideoTools(run ffmpeg.Runner, probe ProbeFunc) {
	if run != nil {
		c.run = run
	}
	if probe != nil {
		c.probe = probe
	}
}

// mediaExtensions are the output extensions the compositor itself assigns.
// outputBase carrying one of these means the caller tried to pick the
// extension, which is its contract violation to make.
var mediaExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".mp4": {}, ".mov": {},
}

// Combine merges media and overlay and writes the result next to outputBase,
// returning the path actually written. outputBase must carry no media
// extension; the compositor alone chooses the final one. The write is
// temp-then-rename so no partial artifact survives a failure.
func (c *Compositor) Combine(ctx context.Context, media, overlay, outputBase string) (string, error) {
	if ext := strings.ToLower(filepath.Ext(outputBase)); ext != "" {
		if _, clash := mediaExtensions[ext]; clash {
			return "", errs.Wrap(errs.ErrInvalidArgument, "compositor", "check output base",
				fmt.Sprintf("%s carries extension %q; the compositor chooses the extension", outputBase, ext), nil)
		}
	}
	for _, input := range []string{media, overlay} {
		info, err := os.Stat(input)
		if err != nil {
			return "", errs.Wrap(errs.ErrNotFound, "compositor", "stat input", input, err)
		}
		if !info.Mode().IsRegular() {
			return "", errs.Wrap(errs.ErrNotFound, "compositor", "stat input",
				fmt.Sprintf("%s is not a regular file", input), nil)
		}
	}
	if err := os.MkdirAll(filepath.Dir(outputBase), 0o755); err != nil {
		return "", errs.Wrap(errs.ErrCodec, "compositor", "create output directory", filepath.Dir(outputBase), err)
	}

	switch kind := c.classifier.Classify(ctx, media); kind {
	case classify.KindImage:
		return c.combineImage(ctx, media, overlay, outputBase)
	case classify.KindVideo:
		return c.combineVideo(ctx, media, overlay, outputBase)
	default:
		return "", errs.Wrap(errs.ErrUnsupportedMedia, "compositor", "classify media",
			fmt.Sprintf("%s is neither a decodable image nor a video", media), nil)
	}
}

func (c *Compositor) combineImage(_ context.Context, media, overlay, outputBase string) (string, error) {
	base, format, err := decodeImage(media)
	if err != nil {
		return "", errs.Wrap(errs.ErrCodec, "compositor", "decode media image", media, err)
	}
	layer, _, err := decodeImage(overlay)
	if err != nil {
		return "", errs.Wrap(errs.ErrCodec, "compositor", "decode overlay image", overlay, err)
	}

	bounds := base.Bounds()
	// Media is authoritative for output resolution; the overlay is rescaled,
	// never the reverse.
	if layer.Bounds().Dx() != bounds.Dx() || layer.Bounds().Dy() != bounds.Dy() {
		scaled := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), layer, layer.Bounds(), xdraw.Src, nil)
		layer = scaled
	}

	merged := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(merged, merged.Bounds(), base, bounds.Min, draw.Src)
	draw.Draw(merged, merged.Bounds(), layer, layer.Bounds().Min, draw.Over)
	flatten(merged)

	outputPath := outputBase + classify.ExtensionForFormat(format)
	if err := c.encodeAtomically(merged, format, outputPath); err != nil {
		return "", err
	}

	if c.logger != nil {
		c.logger.Info("merged image pair",
			logging.String("media", media),
			logging.String("output", outputPath),
			logging.String("format", format),
			logging.Int("width", bounds.Dx()),
			logging.Int("height", bounds.Dy()),
		)
	}
	return outputPath, nil
}

func decodeImage(path string) (image.Image, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, "", err
	}
	return img, format, nil
}

// flatten forces every pixel opaque; alpha is discarded before encoding.
func flatten(img *image.RGBA) {
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xFF
	}
}

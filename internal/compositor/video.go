package compositor

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"snapmerge/internal/errs"
	"snapmerge/internal/logging"
	"snapmerge/internal/media/ffmpeg"
)

func (c *Compositor) combineVideo(ctx context.Context, media, overlay, outputBase string) (string, error) {
	probed, err := c.probe(ctx, c.cfg.Tools.FFprobe, media)
	if err != nil {
		return "", errs.Wrap(errs.ErrCodec, "compositor", "probe video", media, err)
	}
	width, height, ok := probed.Dimensions()
	if !ok {
		return "", errs.Wrap(errs.ErrCodec, "compositor", "probe video",
			fmt.Sprintf("%s reports no frame dimensions", media), nil)
	}

	overlayWidth, overlayHeight, err := imageDimensions(overlay)
	if err != nil {
		return "", errs.Wrap(errs.ErrCodec, "compositor", "decode overlay header", overlay, err)
	}

	outputPath := outputBase + ".mp4"
	tmpPath := filepath.Join(filepath.Dir(outputPath), ".merge-"+filepath.Base(outputPath)+".tmp")

	job := ffmpeg.OverlayJob{
		MediaPath:    media,
		OverlayPath:  overlay,
		OutputPath:   tmpPath,
		FrameWidth:   width,
		FrameHeight:  height,
		ScaleOverlay: overlayWidth != width || overlayHeight != height,
		HasAudio:     probed.HasAudio(),
		Preset:       c.cfg.Video.Preset,
		CRF:          c.cfg.Video.CRF,
		AudioBitrate: c.cfg.Video.AudioBitrate,
	}

	started := time.Now()
	if err := c.run(ctx, c.cfg.Tools.FFmpeg, ffmpeg.BuildOverlayArgs(job)...); err != nil {
		_ = os.Remove(tmpPath)
		return "", errs.Wrap(errs.ErrCodec, "compositor", "composite video", media, err)
	}
	if _, err := os.Stat(tmpPath); err != nil {
		return "", errs.Wrap(errs.ErrCodec, "compositor", "composite video",
			fmt.Sprintf("ffmpeg produced no output for %s", media), err)
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", errs.Wrap(errs.ErrCodec, "compositor", "finalize output", outputPath, err)
	}

	if c.logger != nil {
		c.logger.Info("merged video pair",
			logging.String("media", media),
			logging.String("output", outputPath),
			logging.Int("width", width),
			logging.Int("height", height),
			logging.Float64("duration_seconds", probed.DurationSeconds()),
			logging.Bool("audio", job.HasAudio),
			logging.Duration("encode_time", time.Since(started)),
		)
	}
	return outputPath, nil
}

func imageDimensions(path string) (int, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer file.Close()

	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

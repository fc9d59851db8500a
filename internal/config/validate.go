package config

import (
	"fmt"
	"strings"
)

var validPresets = map[string]struct{}{
	"ultrafast": {}, "superfast": {}, "veryfast": {}, "faster": {}, "fast": {},
	"medium": {}, "slow": {}, "slower": {}, "veryslow": {},
}

// Validate checks configuration invariants after normalization.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		problems = append(problems, "paths.scratch_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		problems = append(problems, "paths.log_dir must not be empty")
	}
	if c.Tools.FFmpeg == "" {
		problems = append(problems, "tools.ffmpeg must not be empty")
	}
	if c.Tools.FFprobe == "" {
		problems = append(problems, "tools.ffprobe must not be empty")
	}
	if c.Output.JPEGQuality < 1 || c.Output.JPEGQuality > 100 {
		problems = append(problems, fmt.Sprintf("output.jpeg_quality must be between 1 and 100, got %d", c.Output.JPEGQuality))
	}
	if _, ok := validPresets[c.Video.Preset]; !ok {
		problems = append(problems, fmt.Sprintf("video.preset %q is not a known x264 preset", c.Video.Preset))
	}
	if c.Video.CRF < 0 || c.Video.CRF > 51 {
		problems = append(problems, fmt.Sprintf("video.crf must be between 0 and 51, got %d", c.Video.CRF))
	}
	if c.Batch.Workers < 1 {
		problems = append(problems, fmt.Sprintf("batch.workers must be at least 1, got %d", c.Batch.Workers))
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not supported (console, json)", c.Logging.Format))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// OverlayJob describes one static-overlay composite over a full video stream.
type OverlayJob struct {
	MediaPath    string
	OverlayPath  string
	OutputPath   string
	FrameWidth   int
	FrameHeight  int
	ScaleOverlay bool // overlay dimensions differ from the frame
	HasAudio     bool
	Preset       string
	CRF          int
	AudioBitrate string
}

// Runner executes an external command. Tests inject fakes to avoid requiring
// an ffmpeg installation.
type Runner func(ctx context.Context, name string, args ...string) error

// BuildOverlayArgs constructs the complete ffmpeg argument slice for an
// overlay composite: the overlay is optionally rescaled to the frame size,
// anchored at the frame center, and held for the full stream duration
// (overlay's default eof_action repeats the still frame). Audio is
// re-encoded as AAC when the source carries a track.
func BuildOverlayArgs(job OverlayJob) []string {
	args := make([]string, 0, 32)
	args = append(args, "-hide_banner", "-nostdin", "-y", "-loglevel", "error")
	args = append(args, "-i", job.MediaPath, "-i", job.OverlayPath)

	var filter strings.Builder
	overlayInput := "[1:v]"
	if job.ScaleOverlay {
		fmt.Fprintf(&filter, "[1:v]scale=%d:%d[ovr];", job.FrameWidth, job.FrameHeight)
		overlayInput = "[ovr]"
	}
	filter.WriteString("[0:v]")
	filter.WriteString(overlayInput)
	filter.WriteString("overlay=(main_w-overlay_w)/2:(main_h-overlay_h)/2:format=auto[vout]")

	args = append(args, "-filter_complex", filter.String())
	args = append(args, "-map", "[vout]")
	if job.HasAudio {
		args = append(args, "-map", "0:a", "-c:a", "aac", "-b:a", job.AudioBitrate)
	}
	args = append(args,
		"-c:v", "libx264",
		"-preset", job.Preset,
		"-crf", strconv.Itoa(job.CRF),
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		"-f", "mp4",
		job.OutputPath,
	)
	return args
}

// Run executes the binary with stderr captured; on failure the tail of
// stderr is folded into the returned error for diagnosis.
func Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			return fmt.Errorf("%s: %w", name, err)
		}
		return fmt.Errorf("%s: %w: %s", name, err, tail(detail, 400))
	}
	return nil
}

func tail(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max:]
}

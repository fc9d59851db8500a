package ffmpeg

import (
	"slices"
	"strings"
	"testing"
)

func TestBuildOverlayArgsScaled(t *testing.T) {
	job := OverlayJob{
		MediaPath:    "/in/clip_main.mp4",
		OverlayPath:  "/in/clip_overlay.png",
		OutputPath:   "/out/.merge-clip.tmp",
		FrameWidth:   640,
		FrameHeight:  480,
		ScaleOverlay: true,
		HasAudio:     true,
		Preset:       "medium",
		CRF:          20,
		AudioBitrate: "192k",
	}

	args := BuildOverlayArgs(job)

	filter := argAfter(t, args, "-filter_complex")
	if !strings.Contains(filter, "scale=640:480") {
		t.Fatalf("expected overlay scale in filter, got %q", filter)
	}
	if !strings.Contains(filter, "overlay=(main_w-overlay_w)/2:(main_h-overlay_h)/2") {
		t.Fatalf("expected centered overlay, got %q", filter)
	}
	if !slices.Contains(args, "-c:a") {
		t.Fatal("expected audio encode args")
	}
	if argAfter(t, args, "-crf") != "20" {
		t.Fatal("crf not propagated")
	}
	if args[len(args)-1] != job.OutputPath {
		t.Fatalf("output path must be last, got %q", args[len(args)-1])
	}
}

func TestBuildOverlayArgsUnscaledNoAudio(t *testing.T) {
	job := OverlayJob{
		MediaPath:    "m.mp4",
		OverlayPath:  "o.png",
		OutputPath:   "out.tmp",
		FrameWidth:   1280,
		FrameHeight:  720,
		ScaleOverlay: false,
		HasAudio:     false,
		Preset:       "fast",
		CRF:          23,
		AudioBitrate: "192k",
	}

	args := BuildOverlayArgs(job)

	filter := argAfter(t, args, "-filter_complex")
	if strings.Contains(filter, "scale=") {
		t.Fatalf("unexpected scale for matching dimensions: %q", filter)
	}
	if slices.Contains(args, "-c:a") {
		t.Fatal("unexpected audio args for silent source")
	}
	// Container must be forced: the temp output name carries no .mp4 suffix.
	i := slices.Index(args, "-f")
	if i < 0 || args[i+1] != "mp4" {
		t.Fatal("expected explicit mp4 container")
	}
}

func argAfter(t *testing.T, args []string, flag string) string {
	t.Helper()
	i := slices.Index(args, flag)
	if i < 0 || i+1 >= len(args) {
		t.Fatalf("flag %s missing from %v", flag, args)
	}
	return args[i+1]
}

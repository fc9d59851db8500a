package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestConsoleHandlerFormatsComponentAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "debug", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}

	scoped := NewComponentLogger(logger, "compositor")
	scoped.Info("merged pair", String("output", "/out/clip.mp4"), Int("width", 640))

	line := buf.String()
	if !strings.Contains(line, "INFO compositor: merged pair") {
		t.Fatalf("unexpected line %q", line)
	}
	if !strings.Contains(line, "output=/out/clip.mp4") || !strings.Contains(line, "width=640") {
		t.Fatalf("missing attrs in %q", line)
	}
}

func TestConsoleHandlerQuotesAwkwardValues(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("copied", String("name", "my photo.jpg"))
	if !strings.Contains(buf.String(), `name="my photo.jpg"`) {
		t.Fatalf("expected quoted value, got %q", buf.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "warn", Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("should be dropped")
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "should be dropped") {
		t.Fatalf("info record leaked through warn level: %q", out)
	}
	if !strings.Contains(out, "kept") {
		t.Fatalf("warn record missing: %q", out)
	}
}

func TestJSONHandler(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("batch complete", Int("merged", 3))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode json record: %v", err)
	}
	if record["msg"] != "batch complete" {
		t.Fatalf("unexpected msg %v", record["msg"])
	}
	if record["level"] != "info" {
		t.Fatalf("unexpected level %v", record["level"])
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

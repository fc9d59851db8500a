package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	err := Wrap(ErrPairing, "pairing", "resolve overlay", "found 2 overlay candidates in /tmp/x", nil)
	if !errors.Is(err, ErrPairing) {
		t.Fatalf("expected ErrPairing, got %v", err)
	}
	want := "pairing failed: pairing: resolve overlay: found 2 overlay candidates in /tmp/x"
	if err.Error() != want {
		t.Fatalf("message mismatch:\n got %q\nwant %q", err.Error(), want)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("decode header: unexpected EOF")
	err := Wrap(ErrCodec, "compositor", "decode media", "/tmp/photo_main.jpg", cause)
	if !errors.Is(err, ErrCodec) {
		t.Fatalf("expected ErrCodec, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to survive, got %v", err)
	}
}

func TestWrapNilMarkerDefaultsToCodec(t *testing.T) {
	err := Wrap(nil, "compositor", "encode", "ran out of ideas", nil)
	if !errors.Is(err, ErrCodec) {
		t.Fatalf("expected fallback ErrCodec, got %v", err)
	}
}

func TestWrapEmptyContext(t *testing.T) {
	err := Wrap(ErrNotFound, "", "", "", nil)
	if err.Error() != "not found: pipeline failure" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

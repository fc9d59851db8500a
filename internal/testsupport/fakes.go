package testsupport

import (
	"context"
	"path/filepath"
	"strings"
)

// ExtensionProber is a test double for video probing that trusts file
// extensions instead of invoking ffprobe.
type ExtensionProber struct{}

// IsVideo reports .mp4/.mov files as video.
func (ExtensionProber) IsVideo(_ context.Context, path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4", ".mov":
		return true
	default:
		return false
	}
}

// NeverVideo is a prober that classifies nothing as video.
type NeverVideo struct{}

func (NeverVideo) IsVideo(context.Context, string) bool { return false }

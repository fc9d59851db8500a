// Package fileutil provides small filesystem helpers shared across the
// pipeline: streaming copies and output-name stem handling.
package fileutil

import (
	"io"
	"os"
	"path/filepath"
	"strings"
)

// CopyFile streams src to dst using io.Copy with default permissions (0o644).
func CopyFile(src, dst string) error {
	return CopyFileMode(src, dst, 0o644)
}

// CopyFileMode streams src to dst, setting the given file mode on dst.
func CopyFileMode(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// Stem returns the file name without its extension. The compound archive
// suffix ".tar.gz" counts as a single extension so "clip.tar.gz" and
// "clip.zip" share the stem "clip".
func Stem(name string) string {
	base := filepath.Base(name)
	if lower := strings.ToLower(base); strings.HasSuffix(lower, ".tar.gz") {
		return base[:len(base)-len(".tar.gz")]
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// EnsureDir creates dir and any missing parents.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

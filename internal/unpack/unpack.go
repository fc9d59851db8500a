// Package unpack extracts export archives into private scratch directories.
// Extraction is scoped: the scratch directory is removed on every exit path,
// whether the caller's work succeeds or fails.
package unpack

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"snapmerge/internal/classify"
	"snapmerge/internal/errs"
)

// Validate checks that the archive exists, is non-empty, and carries a
// supported suffix. It performs no extraction, which makes it usable for
// dry runs.
func Validate(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errs.Wrap(errs.ErrInvalidArchive, "unpack", "stat archive", path, err)
	}
	if info.IsDir() || !info.Mode().IsRegular() {
		return errs.Wrap(errs.ErrInvalidArchive, "unpack", "stat archive",
			fmt.Sprintf("%s is not a regular file", path), nil)
	}
	if info.Size() == 0 {
		return errs.Wrap(errs.ErrInvalidArchive, "unpack", "stat archive",
			fmt.Sprintf("%s is empty", path), nil)
	}
	if !classify.IsArchivePath(path) {
		return errs.Wrap(errs.ErrInvalidArchive, "unpack", "check format",
			fmt.Sprintf("%s is not a supported archive format", path), nil)
	}
	return nil
}

// WithUnpacked validates and extracts the archive into a fresh scratch
// directory under scratchRoot, enforces the two-entry invariant (one media,
// one overlay, nothing else), and invokes fn with the extracted directory.
// The scratch directory is removed before WithUnpacked returns, regardless
// of the outcome.
func WithUnpacked(ctx context.Context, archivePath, scratchRoot string, fn func(dir string) error) error {
	if err := Validate(archivePath); err != nil {
		return err
	}

	if scratchRoot == "" {
		scratchRoot = os.TempDir()
	}
	if err := os.MkdirAll(scratchRoot, 0o755); err != nil {
		return errs.Wrap(errs.ErrInvalidArchive, "unpack", "create scratch root", scratchRoot, err)
	}

	scratch := filepath.Join(scratchRoot, "unpack-"+uuid.NewString())
	if err := os.Mkdir(scratch, 0o755); err != nil {
		return errs.Wrap(errs.ErrInvalidArchive, "unpack", "create scratch dir", scratch, err)
	}
	defer os.RemoveAll(scratch)

	if err := extract(ctx, archivePath, scratch); err != nil {
		return err
	}

	entries, err := os.ReadDir(scratch)
	if err != nil {
		return errs.Wrap(errs.ErrInvalidArchive, "unpack", "read extracted entries", scratch, err)
	}
	if len(entries) != 2 {
		return errs.Wrap(errs.ErrInvalidArchive, "unpack", "check contents",
			fmt.Sprintf("%s extracted to %d top-level entries, need exactly 2", archivePath, len(entries)), nil)
	}

	return fn(scratch)
}

func extract(ctx context.Context, archivePath, dest string) error {
	lower := strings.ToLower(filepath.Base(archivePath))
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return extractZip(ctx, archivePath, dest)
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return extractTar(ctx, archivePath, dest, true)
	case strings.HasSuffix(lower, ".tar"):
		return extractTar(ctx, archivePath, dest, false)
	default:
		return errs.Wrap(errs.ErrInvalidArchive, "unpack", "check format", archivePath, nil)
	}
}

func extractZip(ctx context.Context, archivePath, dest string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return errs.Wrap(errs.ErrInvalidArchive, "unpack", "open zip", archivePath, err)
	}
	defer reader.Close()

	for _, member := range reader.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		target, err := memberPath(dest, member.Name)
		if err != nil {
			return errs.Wrap(errs.ErrInvalidArchive, "unpack", "extract zip member", archivePath, err)
		}
		if member.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return errs.Wrap(errs.ErrInvalidArchive, "unpack", "extract zip member", member.Name, err)
			}
			continue
		}
		src, err := member.Open()
		if err != nil {
			return errs.Wrap(errs.ErrInvalidArchive, "unpack", "extract zip member", member.Name, err)
		}
		err = writeMember(target, src)
		src.Close()
		if err != nil {
			return errs.Wrap(errs.ErrInvalidArchive, "unpack", "extract zip member", member.Name, err)
		}
	}
	return nil
}

func extractTar(ctx context.Context, archivePath, dest string, gzipped bool) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return errs.Wrap(errs.ErrInvalidArchive, "unpack", "open tar", archivePath, err)
	}
	defer file.Close()

	var stream io.Reader = file
	if gzipped {
		gz, err := gzip.NewReader(file)
		if err != nil {
			return errs.Wrap(errs.ErrInvalidArchive, "unpack", "open gzip", archivePath, err)
		}
		defer gz.Close()
		stream = gz
	}

	reader := tar.NewReader(stream)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		header, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errs.Wrap(errs.ErrInvalidArchive, "unpack", "read tar", archivePath, err)
		}
		target, err := memberPath(dest, header.Name)
		if err != nil {
			return errs.Wrap(errs.ErrInvalidArchive, "unpack", "extract tar member", archivePath, err)
		}
		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return errs.Wrap(errs.ErrInvalidArchive, "unpack", "extract tar member", header.Name, err)
			}
		case tar.TypeReg:
			if err := writeMember(target, reader); err != nil {
				return errs.Wrap(errs.ErrInvalidArchive, "unpack", "extract tar member", header.Name, err)
			}
		default:
			// Links and devices have no place in a media export.
			return errs.Wrap(errs.ErrInvalidArchive, "unpack", "extract tar member",
				fmt.Sprintf("unsupported member type for %s", header.Name), nil)
		}
	}
}

// memberPath resolves a member name inside dest, rejecting absolute names
// and traversal outside the scratch directory.
func memberPath(dest, name string) (string, error) {
	cleaned := filepath.Clean(strings.TrimPrefix(name, "./"))
	if cleaned == "." || cleaned == "" {
		return dest, nil
	}
	if filepath.IsAbs(cleaned) || !filepath.IsLocal(cleaned) {
		return "", fmt.Errorf("member name %q escapes extraction directory", name)
	}
	return filepath.Join(dest, cleaned), nil
}

func writeMember(target string, src io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, src); err != nil {
		return err
	}
	return out.Close()
}

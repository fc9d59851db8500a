package compositor

import (
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"snapmerge/internal/errs"
)

// encodeAtomically writes the merged image in the media's native format via
// a temporary file in the destination directory, then renames into place.
func (c *Compositor) encodeAtomically(img image.Image, format, outputPath string) error {
	dir := filepath.Dir(outputPath)
	tmpPath := filepath.Join(dir, ".merge-"+filepath.Base(outputPath)+".tmp")

	out, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return errs.Wrap(errs.ErrCodec, "compositor", "create output", tmpPath, err)
	}

	encodeErr := c.encode(out, img, format)
	closeErr := out.Close()
	if encodeErr == nil {
		encodeErr = closeErr
	}
	if encodeErr != nil {
		_ = os.Remove(tmpPath)
		return errs.Wrap(errs.ErrCodec, "compositor", "encode image", outputPath, encodeErr)
	}

	if err := os.Rename(tmpPath, outputPath); err != nil {
		_ = os.Remove(tmpPath)
		return errs.Wrap(errs.ErrCodec, "compositor", "finalize output", outputPath, err)
	}
	return nil
}

func (c *Compositor) encode(w io.Writer, img image.Image, format string) error {
	switch format {
	case "png":
		return png.Encode(w, img)
	case "jpeg":
		quality := c.cfg.Output.JPEGQuality
		if quality <= 0 {
			quality = jpeg.DefaultQuality
		}
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	case "gif":
		return gif.Encode(w, img, nil)
	default:
		return fmt.Errorf("no encoder registered for format %q", format)
	}
}

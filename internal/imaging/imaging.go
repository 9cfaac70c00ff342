// Package imaging converts raster images to WebP.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path"
	"strings"

	"github.com/gen2brain/webp"
)

// Options tune the WebP encoder.
type Options struct {
	Quality  int
	Lossless bool
}

// Convertible reports whether a file with this name is re-encoded to WebP.
// Everything else is copied unchanged.
func Convertible(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

// DestName returns the output name for a slash-separated relative path:
// convertible images get a .webp extension.
func DestName(rel string) string {
	if !Convertible(rel) {
		return rel
	}
	return strings.TrimSuffix(rel, path.Ext(rel)) + ".webp"
}

// Encode decodes a JPEG or PNG from r and writes it to w as WebP.
func Encode(w io.Writer, r io.Reader, opts Options) error {
	img, format, err := image.Decode(r)
	if err != nil {
		return fmt.Errorf("decoding image: %w", err)
	}
	if format != "jpeg" && format != "png" {
		return fmt.Errorf("unsupported source format %q", format)
	}

	if err := webp.Encode(w, img, webp.Options{
		Quality:  opts.Quality,
		Lossless: opts.Lossless,
	}); err != nil {
		return fmt.Errorf("encoding webp: %w", err)
	}
	return nil
}

// ConvertFile reads src and returns its WebP encoding.
func ConvertFile(src string, opts Options) ([]byte, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	if err := Encode(&buf, f, opts); err != nil {
		return nil, fmt.Errorf("%s: %w", src, err)
	}
	return buf.Bytes(), nil
}

// Package preview derives locally displayable previews of query images.
package preview

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/cloo-solutions/vsearch/internal/domain"
	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
)

const (
	DefaultMaxDim      = 512
	DefaultMaxPixels   = 40_000_000
	DefaultMaxRawBytes = 1 << 20
	jpegQuality        = 85
	fallbackMIME       = "application/octet-stream"
)

// ErrTooManyPixels is returned for images whose declared dimensions exceed
// the pixel cap. They are never decoded.
var ErrTooManyPixels = errors.New("image exceeds the preview pixel limit")

// Detect returns the MIME type of data, preferring content sniffing over the
// declared type.
func Detect(data []byte, declared string) string {
	if len(data) > 0 {
		m := mimetype.Detect(data)
		if !m.Is(fallbackMIME) {
			return m.String()
		}
	}
	if declared = strings.TrimSpace(declared); declared != "" {
		return declared
	}
	return fallbackMIME
}

// Previewer turns query images into data: URIs.
type Previewer struct {
	MaxDim int
	// MaxPixels bounds width*height of images that are decoded for a
	// thumbnail.
	MaxPixels int
	// MaxRawBytes bounds images embedded unchanged when no thumbnail can be
	// made. Larger ones get no preview.
	MaxRawBytes int
}

// Option configures a Previewer.
type Option func(*Previewer)

// WithMaxPixels sets the decode pixel cap. Non-positive values keep the
// default.
func WithMaxPixels(n int) Option {
	return func(p *Previewer) {
		if n > 0 {
			p.MaxPixels = n
		}
	}
}

// WithMaxRawBytes sets the raw fallback cap. Non-positive values keep the
// default.
func WithMaxRawBytes(n int) Option {
	return func(p *Previewer) {
		if n > 0 {
			p.MaxRawBytes = n
		}
	}
}

// New returns a Previewer that fits previews into maxDim x maxDim.
func New(maxDim int, opts ...Option) *Previewer {
	if maxDim <= 0 {
		maxDim = DefaultMaxDim
	}
	p := &Previewer{
		MaxDim:      maxDim,
		MaxPixels:   DefaultMaxPixels,
		MaxRawBytes: DefaultMaxRawBytes,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Derive returns a data: URI for img. Decodable images within MaxPixels are
// downscaled to fit MaxDim. Anything else is embedded as-is when it fits
// MaxRawBytes, otherwise Derive returns "".
func (p *Previewer) Derive(img *domain.QueryImage) string {
	if img == nil || len(img.Data) == 0 {
		return ""
	}

	maxDim, maxPixels, maxRaw := DefaultMaxDim, DefaultMaxPixels, DefaultMaxRawBytes
	if p != nil {
		if p.MaxDim > 0 {
			maxDim = p.MaxDim
		}
		if p.MaxPixels > 0 {
			maxPixels = p.MaxPixels
		}
		if p.MaxRawBytes > 0 {
			maxRaw = p.MaxRawBytes
		}
	}

	thumb, mimeType, err := thumbnail(img.Data, maxDim, maxPixels)
	if err == nil {
		return DataURI(mimeType, thumb)
	}
	if len(img.Data) > maxRaw {
		return ""
	}
	return DataURI(Detect(img.Data, img.MimeType), img.Data)
}

// DataURI encodes data as a base64 data: URI.
func DataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// checkPixels reads only the image header. Formats without a registered
// decoder fail here as they would in imaging.Decode.
func checkPixels(data []byte, maxPixels int) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("invalid image dimensions %dx%d", cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return fmt.Errorf("%w: %dx%d", ErrTooManyPixels, cfg.Width, cfg.Height)
	}
	return nil
}

func thumbnail(data []byte, maxDim, maxPixels int) ([]byte, string, error) {
	if err := checkPixels(data, maxPixels); err != nil {
		return nil, "", err
	}

	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", err
	}

	var out image.Image = src
	b := src.Bounds()
	if b.Dx() > maxDim || b.Dy() > maxDim {
		out = imaging.Fit(src, maxDim, maxDim, imaging.Lanczos)
	}

	format, mimeType := imaging.JPEG, "image/jpeg"
	switch Detect(data, "") {
	case "image/png", "image/gif":
		// keep transparency
		format, mimeType = imaging.PNG, "image/png"
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, format, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mimeType, nil
}

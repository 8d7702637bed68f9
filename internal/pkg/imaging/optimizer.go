package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Config for image optimization
type Config struct {
	MaxWidth    int // images wider than this are scaled down (default 1920)
	JPEGQuality int // JPEG quality 1-100 (default 85)
}

// DefaultConfig returns default optimization config
func DefaultConfig() Config {
	return Config{
		MaxWidth:    1920,
		JPEGQuality: 85,
	}
}

// Result contains the optimized content and its pixel dimensions
type Result struct {
	Data   []byte
	Width  int
	Height int
}

// Optimizer shrinks and recompresses uploaded images.
// Failures are expected to be swallowed by the caller: an image that cannot
// be optimized is stored as-is.
type Optimizer struct {
	config Config
}

// NewOptimizer creates an optimizer
func NewOptimizer(config Config) *Optimizer {
	return &Optimizer{config: config}
}

// Optimize resizes an image down to MaxWidth (preserving aspect ratio, never
// enlarging) and recompresses it. JPEG and PNG are re-encoded; GIF and WebP
// pass through unchanged since re-encoding would drop animation or require
// an encoder Go doesn't ship.
func (o *Optimizer) Optimize(data []byte, contentType string) (*Result, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	result := &Result{
		Data:   data,
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
	}

	switch contentType {
	case "image/jpeg", "image/png":
	default:
		return result, nil
	}

	if result.Width > o.config.MaxWidth {
		img = imaging.Resize(img, o.config.MaxWidth, 0, imaging.Lanczos)
		result.Width = img.Bounds().Dx()
		result.Height = img.Bounds().Dy()
	}

	encoded, err := o.encode(img, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	result.Data = encoded

	return result, nil
}

func (o *Optimizer) encode(img image.Image, contentType string) ([]byte, error) {
	var buf bytes.Buffer

	switch contentType {
	case "image/png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, err
		}
	default:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: o.config.JPEGQuality}); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

package compress

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/indieinfra/ingest/media"
)

const (
	OutputMediaType = "image/jpeg"
	outputExt       = ".jpg"

	minQuality    = 0.1
	maxIterations = 10

	// DefaultMaxPixels bounds the decoded size of a source image.
	DefaultMaxPixels = 50_000_000
)

// ErrTooManyPixels is wrapped in a decode-failure when an image header
// declares more pixels than the transformer accepts.
var ErrTooManyPixels = errors.New("image exceeds the pixel budget")

var (
	CompressDefaults = Options{
		MaxWidth:  1920,
		MaxHeight: 1920,
		Quality:   0.8,
		MaxBytes:  512 * 1024,
	}

	ThumbnailDefaults = Options{
		MaxWidth:  200,
		MaxHeight: 200,
		Quality:   0.7,
		MaxBytes:  52428,
	}
)

// Transformer is the codec backend driven by a Worker. Returned errors should
// be *Error values; anything else is reported as a transform failure.
type Transformer interface {
	Transform(ctx context.Context, f *media.File, opts Options, progress func(float64)) (*media.File, error)
	Measure(ctx context.Context, f *media.File) (Dimensions, error)
}

// ImageTransformer re-encodes images to JPEG within a dimension and byte
// budget, preserving aspect ratio. Sources whose header declares more than
// MaxPixels pixels are rejected before they are decoded.
type ImageTransformer struct {
	Scaler        draw.Scaler
	MaxIterations int
	MaxPixels     int64
}

func NewImageTransformer() *ImageTransformer {
	return &ImageTransformer{
		Scaler:        draw.BiLinear,
		MaxIterations: maxIterations,
		MaxPixels:     DefaultMaxPixels,
	}
}

func (t *ImageTransformer) Transform(ctx context.Context, f *media.File, opts Options, progress func(float64)) (*media.File, error) {
	if progress == nil {
		progress = func(float64) {}
	}

	src, err := decode(f, t.maxPixels())
	if err != nil {
		return nil, err
	}
	progress(20)

	bounds := src.Bounds()
	width, height := fitWithin(bounds.Dx(), bounds.Dy(), opts.MaxWidth, opts.MaxHeight)
	quality := opts.Quality
	if quality <= 0 || quality > 1 {
		quality = CompressDefaults.Quality
	}

	iterations := t.MaxIterations
	if iterations <= 0 {
		iterations = 1
	}

	var (
		scaled *image.RGBA
		best   []byte
	)

	for i := 0; i < iterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, newError(ErrTransformFailure, f.Name, err)
		}

		if scaled == nil || scaled.Bounds().Dx() != width || scaled.Bounds().Dy() != height {
			scaled = t.scale(src, width, height)
		}

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: jpegQuality(quality)}); err != nil {
			return nil, newError(ErrTransformFailure, f.Name, err)
		}

		best = buf.Bytes()
		if opts.MaxBytes <= 0 || int64(len(best)) <= opts.MaxBytes {
			break
		}

		progress(20 + 80*float64(i+1)/float64(iterations+1))

		if quality-0.1 >= minQuality-1e-9 {
			quality -= 0.1
			continue
		}

		if width == 1 && height == 1 {
			break
		}
		width = max(1, int(float64(width)*0.8))
		height = max(1, int(float64(height)*0.8))
	}

	progress(100)
	return media.NewFile(outputName(f.Name), OutputMediaType, best), nil
}

func (t *ImageTransformer) Measure(ctx context.Context, f *media.File) (Dimensions, error) {
	data, err := f.Bytes()
	if err != nil {
		return Dimensions{}, newError(ErrDecodeFailure, f.Name, err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Dimensions{}, newError(ErrDecodeFailure, f.Name, err)
	}

	return Dimensions{Width: cfg.Width, Height: cfg.Height}, nil
}

func (t *ImageTransformer) scale(src image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	// JPEG has no alpha channel; flatten onto white.
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	scaler := t.Scaler
	if scaler == nil {
		scaler = draw.BiLinear
	}
	scaler.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	return dst
}

func (t *ImageTransformer) maxPixels() int64 {
	if t.MaxPixels <= 0 {
		return DefaultMaxPixels
	}
	return t.MaxPixels
}

// decode reads the header first so oversized sources are never decoded.
func decode(f *media.File, maxPixels int64) (image.Image, error) {
	data, err := f.Bytes()
	if err != nil {
		return nil, newError(ErrDecodeFailure, f.Name, err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, newError(ErrUnsupportedFormat, f.Name, err)
		}
		return nil, newError(ErrDecodeFailure, f.Name, err)
	}

	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > maxPixels {
		return nil, newError(ErrDecodeFailure, f.Name,
			fmt.Errorf("%dx%d: %w (%d)", cfg.Width, cfg.Height, ErrTooManyPixels, maxPixels))
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, newError(ErrUnsupportedFormat, f.Name, err)
		}
		return nil, newError(ErrDecodeFailure, f.Name, err)
	}

	return img, nil
}

// fitWithin scales w x h down to fit maxW x maxH. Non-positive limits are
// ignored; images are never scaled up.
func fitWithin(w, h, maxW, maxH int) (int, int) {
	scale := 1.0
	if maxW > 0 && w > maxW {
		scale = math.Min(scale, float64(maxW)/float64(w))
	}
	if maxH > 0 && h > maxH {
		scale = math.Min(scale, float64(maxH)/float64(h))
	}

	if scale >= 1 {
		return w, h
	}

	return max(1, int(math.Round(float64(w)*scale))), max(1, int(math.Round(float64(h)*scale)))
}

func jpegQuality(q float64) int {
	return min(100, max(1, int(math.Round(q*100))))
}

func outputName(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if base == "" {
		base = "image"
	}
	return base + outputExt
}

// Package codec binds the bridge to pure-Go WebP libraries:
// golang.org/x/image/webp for decoding and github.com/gen2brain/webp for
// encoding.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/gen2brain/webp"
	xdraw "golang.org/x/image/draw"
	xwebp "golang.org/x/image/webp"

	"github.com/Skryldev/webpio/bitstream"
	"github.com/Skryldev/webpio/config"
	"github.com/Skryldev/webpio/core"
	apperrors "github.com/Skryldev/webpio/errors"
)

// Go is the pure-Go codec binding.  It is stateless and safe for concurrent
// use.
type Go struct{}

func NewGo() *Go { return &Go{} }

// Register adds the Go codec to reg under config.BackendGo.
func Register(reg core.Registry) {
	reg.RegisterCodec(string(config.BackendGo), NewGo())
}

func (g *Go) Name() string { return string(config.BackendGo) }

func (g *Go) GetFeatures(data []byte) (core.Features, error) {
	return bitstream.ParseFeatures(data)
}

// DecodeInto decodes the full frame, then crops and rescales it to the
// output geometry before packing.  BypassFiltering has no effect here: the
// decoder always runs its loop filter.
func (g *Go) DecodeInto(data []byte, cfg *core.DecoderConfig) error {
	img, err := xwebp.Decode(bytes.NewReader(data))
	if err != nil {
		return decodeError(err)
	}

	if cfg.Options.Crop.Enabled {
		left, top := core.CropOrigin(cfg.Options.Crop)
		r := image.Rect(left, top, left+cfg.Options.Crop.Width, top+cfg.Options.Crop.Height).
			Add(img.Bounds().Min)
		sub, ok := img.(interface {
			SubImage(image.Rectangle) image.Image
		})
		if !ok {
			return apperrors.New(apperrors.StatusUnsupportedFeature, "go.crop",
				fmt.Errorf("%w: %T cannot be cropped", apperrors.ErrUnsupported, img))
		}
		img = sub.SubImage(r)
	}

	out := &cfg.Output
	if b := img.Bounds(); b.Dx() != out.Width || b.Dy() != out.Height {
		img = rescale(img, out.Width, out.Height, cfg.Options.NoFancyUpsampling)
	}
	return core.WriteImage(out, img, cfg.Options.UseThreads)
}

func rescale(src image.Image, w, h int, pointwise bool) image.Image {
	var sampler xdraw.Interpolator = xdraw.BiLinear
	if pointwise {
		sampler = xdraw.NearestNeighbor
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	sampler.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

// Encode compresses pic with gen2brain/webp.  Options the library does not
// expose are ignored.  Lossless encodes always keep the colour of fully
// transparent pixels.
func (g *Go) Encode(pic *core.Picture, opts *core.EncoderOptions, w io.Writer) error {
	img := pic.Image()
	if img == nil {
		return apperrors.New(apperrors.StatusInvalidParam, "go.encode", apperrors.ErrEmptyInput)
	}
	err := webp.Encode(w, img, webp.Options{
		Quality:  libraryQuality(opts.Quality),
		Lossless: opts.Lossless,
		Method:   opts.Method,
		Exact:    opts.Exact || opts.Lossless,
	})
	if err != nil {
		// The sink reports its own status (out of memory).
		return apperrors.Wrap(apperrors.StatusBitstreamError, "go.encode", err)
	}
	return nil
}

// libraryQuality rounds q to the library's integer scale.  The library reads
// zero as "use the default of 75", so the lowest quality it can be asked for
// is 1.
func libraryQuality(q float32) int {
	v := int(q + 0.5)
	if v < 1 {
		return 1
	}
	return v
}

func decodeError(err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return apperrors.New(apperrors.StatusNotEnoughData, "go.decode",
			fmt.Errorf("%w: %w", apperrors.ErrNotEnoughData, err))
	}
	return apperrors.New(apperrors.StatusBitstreamError, "go.decode",
		fmt.Errorf("%w: %w", apperrors.ErrBitstream, err))
}

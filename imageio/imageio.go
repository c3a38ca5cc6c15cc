// Package imageio plugs the bridge into Go's image ecosystem: it decodes WebP
// payloads into image.Image values and encodes any image.Image.
//
// The package does not call image.RegisterFormat; golang.org/x/image/webp
// already owns the "webp" name there.  Use Lookup to find the plugin by
// format name, MIME type or file suffix instead.
package imageio

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"strings"
	"sync"

	"github.com/Skryldev/webpio/adapters/codec"
	"github.com/Skryldev/webpio/config"
	"github.com/Skryldev/webpio/core"
	apperrors "github.com/Skryldev/webpio/errors"
	"github.com/Skryldev/webpio/utils"
)

// Plugin describes the WebP format to format-lookup callers.
type Plugin struct {
	Name      string
	Names     []string
	MIMETypes []string
	Suffixes  []string
	Codec     *Codec
}

// Lookup finds the plugin by format name ("webp"), MIME type ("image/webp")
// or file suffix ("webp" or ".webp"), ignoring case.
func Lookup(key string) (*Plugin, bool) {
	k := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(key)), ".")
	p := plugin()
	for _, list := range [][]string{p.Names, p.MIMETypes, p.Suffixes} {
		for _, v := range list {
			if k == strings.ToLower(v) {
				return p, true
			}
		}
	}
	return nil, false
}

var (
	defaultOnce   sync.Once
	defaultPlugin *Plugin
)

func plugin() *Plugin {
	defaultOnce.Do(func() {
		reg := core.NewRegistry()
		codec.Register(reg)
		defaultPlugin = &Plugin{
			Name:      "webp",
			Names:     []string{"webp", "WebP", "WEBP"},
			MIMETypes: []string{utils.MIMEWebP},
			Suffixes:  []string{"webp"},
			Codec:     New(core.New(config.Default(), reg)),
		}
	})
	return defaultPlugin
}

// Codec reads and writes image.Image values through a Bridge.
type Codec struct {
	bridge *core.Bridge
}

// New returns a Codec using b.
func New(b *core.Bridge) *Codec { return &Codec{bridge: b} }

// Decode decodes a WebP image with the default codec.
func Decode(r io.Reader) (image.Image, error) {
	return plugin().Codec.Decode(context.Background(), r, core.DefaultDecoderOptions())
}

// DecodeConfig returns the dimensions and colour model without decoding
// pixels.
func DecodeConfig(r io.Reader) (image.Config, error) {
	return plugin().Codec.DecodeConfig(context.Background(), r)
}

// DecodeWithOptions decodes with crop, scale and filtering options.
func DecodeWithOptions(ctx context.Context, r io.Reader, opts *core.DecoderOptions) (image.Image, error) {
	return plugin().Codec.Decode(ctx, r, opts)
}

// Encode writes img as WebP with the default codec.  A nil opts uses the
// codec defaults.
func Encode(w io.Writer, img image.Image, opts *core.EncoderOptions) error {
	return plugin().Codec.Encode(context.Background(), w, img, opts)
}

// ── Codec ────────────────────────────────────────────────────────────────────

func (c *Codec) read(ctx context.Context, r io.Reader) ([]byte, error) {
	cfg := c.bridge.Config()
	data, err := utils.ReadPayload(ctx, r, cfg.MaxPayloadBytes, cfg.ChunkSize)
	if err != nil {
		if err == utils.ErrTooLarge {
			return nil, apperrors.New(apperrors.StatusOutOfMemory, "imageio.read", err)
		}
		return nil, apperrors.Wrap(apperrors.StatusNotEnoughData, "imageio.read", err)
	}
	return data, nil
}

// Decode decodes r into an *image.NRGBA that owns the decoded pixels.
func (c *Codec) Decode(ctx context.Context, r io.Reader, opts *core.DecoderOptions) (image.Image, error) {
	data, err := c.read(ctx, r)
	if err != nil {
		return nil, err
	}
	res, err := c.bridge.DecodeMode(ctx, data, opts, core.ModeRGBA)
	if err != nil {
		return nil, err
	}
	return &image.NRGBA{
		Pix:    res.Pixels,
		Stride: res.Stride(),
		Rect:   image.Rect(0, 0, res.Width, res.Height),
	}, nil
}

func (c *Codec) DecodeConfig(ctx context.Context, r io.Reader) (image.Config, error) {
	data, err := c.read(ctx, r)
	if err != nil {
		return image.Config{}, err
	}
	size, err := c.bridge.GetInfo(data)
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{ColorModel: color.NRGBAModel, Width: size.Width, Height: size.Height}, nil
}

// Encode imports translucent images as RGBA and opaque ones as RGB.
func (c *Codec) Encode(ctx context.Context, w io.Writer, img image.Image, opts *core.EncoderOptions) error {
	if img == nil {
		return apperrors.New(apperrors.StatusInvalidParam, "imageio.encode", apperrors.ErrEmptyInput)
	}
	if opts == nil {
		opts = core.DefaultEncoderOptions()
	}
	b := img.Bounds()
	var (
		pix    []byte
		stride int
		layout core.ChannelLayout
	)
	if hasTranslucency(img) {
		pix, stride = rgbaPixels(img)
		layout = core.LayoutRGBA
	} else {
		pix, stride = rgbPixels(img)
		layout = core.LayoutRGB
	}
	out, err := c.bridge.Encode(ctx, pix, b.Dx(), b.Dy(), stride, layout, opts)
	if err != nil {
		return err
	}
	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("imageio.encode: write: %w", err)
	}
	return nil
}

// hasTranslucency reports whether the image's colour model can carry alpha.
func hasTranslucency(img image.Image) bool {
	switch m := img.(type) {
	case *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64,
		*image.NYCbCrA, *image.Alpha, *image.Alpha16:
		return true
	case *image.Paletted:
		for _, c := range m.Palette {
			if _, _, _, a := c.RGBA(); a != 0xffff {
				return true
			}
		}
		return false
	case *image.Gray, *image.Gray16, *image.YCbCr, *image.CMYK:
		return false
	}
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	return true
}

// rgbaPixels returns non-premultiplied RGBA samples.  An *image.NRGBA is used
// in place.
func rgbaPixels(img image.Image) ([]byte, int) {
	if m, ok := img.(*image.NRGBA); ok {
		return m.Pix[m.PixOffset(m.Rect.Min.X, m.Rect.Min.Y):], m.Stride
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst.Pix, dst.Stride
}

func rgbPixels(img image.Image) ([]byte, int) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]byte, w*h*3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			i := (y*w + x) * 3
			out[i], out[i+1], out[i+2] = c.R, c.G, c.B
		}
	}
	return out, w * 3
}

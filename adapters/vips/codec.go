//go:build vips

// Package vips binds the bridge to libvips through govips.  It needs cgo and
// libvips at build time, so it is only compiled with the "vips" build tag.
package vips

import (
	"bytes"
	"fmt"
	"image/png"
	"io"
	"runtime"

	govips "github.com/davidbyttow/govips/v2/vips"

	"github.com/Skryldev/webpio/bitstream"
	"github.com/Skryldev/webpio/config"
	"github.com/Skryldev/webpio/core"
	apperrors "github.com/Skryldev/webpio/errors"
)

// BackendConfig configures the libvips backend.
type BackendConfig struct {
	MaxCacheSize int
	MaxWorkers   int
	ReportLeaks  bool
}

// Codec is a libvips-powered core.Codec.
// Safe for concurrent use across goroutines.
type Codec struct {
	cfg BackendConfig
}

// NewCodec initialises libvips and returns a ready Codec.
// Call Shutdown() when the process exits.
func NewCodec(cfg BackendConfig) *Codec {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = runtime.NumCPU()
	}
	govips.Startup(&govips.Config{
		ConcurrencyLevel: cfg.MaxWorkers,
		MaxCacheSize:     cfg.MaxCacheSize,
		ReportLeaks:      cfg.ReportLeaks,
	})
	return &Codec{cfg: cfg}
}

// Register adds c to reg under config.BackendVips.
func Register(reg core.Registry, c *Codec) {
	reg.RegisterCodec(string(config.BackendVips), c)
}

// Shutdown releases all libvips resources. Call once at process exit.
func (c *Codec) Shutdown() {
	govips.Shutdown()
}

func (c *Codec) Name() string { return string(config.BackendVips) }

// GetFeatures reads the container headers; libvips is not involved.
func (c *Codec) GetFeatures(data []byte) (core.Features, error) {
	return bitstream.ParseFeatures(data)
}

// ─── Decode ───────────────────────────────────────────────────────────────────

func (c *Codec) DecodeInto(data []byte, cfg *core.DecoderConfig) error {
	ref, err := govips.NewImageFromBuffer(data)
	if err != nil {
		return apperrors.New(apperrors.StatusBitstreamError, "vips.decode",
			fmt.Errorf("%w: %w", apperrors.ErrBitstream, err))
	}
	defer ref.Close()

	if crop := cfg.Options.Crop; crop.Enabled {
		left, top := core.CropOrigin(crop)
		if err := ref.ExtractArea(left, top, crop.Width, crop.Height); err != nil {
			return apperrors.Wrap(apperrors.StatusBitstreamError, "vips.crop", err)
		}
	}

	out := &cfg.Output
	if ref.Width() != out.Width || ref.Height() != out.Height {
		kernel := govips.KernelLinear
		if cfg.Options.NoFancyUpsampling {
			kernel = govips.KernelNearest
		}
		hs := float64(out.Width) / float64(ref.Width())
		vs := float64(out.Height) / float64(ref.Height())
		if err := ref.ResizeWithVScale(hs, vs, kernel); err != nil {
			return apperrors.Wrap(apperrors.StatusBitstreamError, "vips.resize", err)
		}
	}

	// PNG keeps 8-bit samples and alpha exactly.
	ep := govips.NewPngExportParams()
	ep.StripMetadata = true
	buf, _, err := ref.ExportPng(ep)
	if err != nil {
		return apperrors.Wrap(apperrors.StatusBitstreamError, "vips.export", err)
	}
	img, err := png.Decode(bytes.NewReader(buf))
	if err != nil {
		return apperrors.Wrap(apperrors.StatusBitstreamError, "vips.export", err)
	}
	return core.WriteImage(out, img, cfg.Options.UseThreads)
}

// ─── Encode ───────────────────────────────────────────────────────────────────

func (c *Codec) Encode(pic *core.Picture, opts *core.EncoderOptions, w io.Writer) error {
	img := pic.Image()
	if img == nil {
		return apperrors.New(apperrors.StatusInvalidParam, "vips.encode", apperrors.ErrEmptyInput)
	}
	var staged bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.NoCompression}
	if err := enc.Encode(&staged, img); err != nil {
		return apperrors.Wrap(apperrors.StatusBitstreamError, "vips.encode.stage", err)
	}
	ref, err := govips.NewImageFromBuffer(staged.Bytes())
	if err != nil {
		return apperrors.Wrap(apperrors.StatusBitstreamError, "vips.encode.load", err)
	}
	defer ref.Close()

	ep := govips.NewWebpExportParams()
	ep.Quality = int(opts.Quality + 0.5)
	ep.Lossless = opts.Lossless
	ep.ReductionEffort = opts.Method
	ep.StripMetadata = true
	buf, _, err := ref.ExportWebp(ep)
	if err != nil {
		return apperrors.Wrap(apperrors.StatusBitstreamError, "vips.encode.webp", err)
	}
	_, err = w.Write(buf)
	return err
}

// compile-time interface check
var _ core.Codec = (*Codec)(nil)

// Package webpio bridges WebP bitstreams and packed 32-bit pixel buffers.
//
// A Bridge reads headers, resolves crop-then-scale output geometry, decodes
// into caller-visible memory in the host's channel order, and encodes RGB or
// RGBA buffers into exact-size WebP payloads.  The compression itself is done
// by a pluggable codec library (pure Go by default, libvips with the "vips"
// build tag).
package webpio

import (
	"context"
	"encoding/binary"
	"image"
	"io"

	"github.com/Skryldev/webpio/adapters/codec"
	"github.com/Skryldev/webpio/config"
	"github.com/Skryldev/webpio/core"
	"github.com/Skryldev/webpio/hooks"
	"github.com/Skryldev/webpio/host"
	"github.com/Skryldev/webpio/imageio"
)

// Re-export channel layouts for convenience.
const (
	RGB  = core.LayoutRGB
	RGBA = core.LayoutRGBA
)

// DefaultConfig returns a sensible production configuration.
func DefaultConfig() config.Config { return config.Default() }

// DefaultDecoderOptions returns options that decode the full frame.
func DefaultDecoderOptions() *core.DecoderOptions { return core.DefaultDecoderOptions() }

// DefaultEncoderOptions returns the codec library's stock encoder settings.
func DefaultEncoderOptions() *core.EncoderOptions { return core.DefaultEncoderOptions() }

// Bridge is the primary entry point.
type Bridge struct {
	inner *core.Bridge
	reg   *core.DefaultRegistry
	host  *host.Host
	image *imageio.Codec
}

// New creates a fully wired Bridge with the pure-Go codec registered.  Pass
// a custom config.Config to override defaults.
func New(cfg config.Config) *Bridge {
	reg := core.NewRegistry()
	codec.Register(reg)

	inner := core.New(cfg, reg)
	return &Bridge{
		inner: inner,
		reg:   reg,
		host:  host.New(inner),
		image: imageio.New(inner),
	}
}

// SetLogger attaches a structured logger.
func (b *Bridge) SetLogger(l core.Logger) { b.inner.SetLogger(l) }

// SetMetrics feeds every call into m.
func (b *Bridge) SetMetrics(m core.MetricsCollector) { b.inner.AddHook(hooks.NewMetricsHook(m)) }

// AddHook registers an observer for bridge calls.
func (b *Bridge) AddHook(h core.Hook) { b.inner.AddHook(h) }

// RegisterCodec registers a codec library binding under name.  Select it
// with config.Config.Backend.
func (b *Bridge) RegisterCodec(name string, c core.Codec) { b.reg.RegisterCodec(name, c) }

// Start starts the background worker pool.
func (b *Bridge) Start() { b.inner.Start() }

// Stop shuts down the worker pool.
func (b *Bridge) Stop() { b.inner.Stop() }

// GetInfo returns the intrinsic size of a payload from its headers.
func (b *Bridge) GetInfo(data []byte) (core.Size, error) { return b.inner.GetInfo(data) }

// GetFeatures returns size, alpha, animation and format from the headers.
func (b *Bridge) GetFeatures(data []byte) (core.Features, error) { return b.inner.GetFeatures(data) }

// Decode decodes into a new buffer whose 32-bit words, read in the host's
// native byte order, are 0xAARRGGBB.
func (b *Bridge) Decode(ctx context.Context, data []byte, opts *core.DecoderOptions) (*core.DecodeResult, error) {
	return b.inner.Decode(ctx, data, opts, binary.NativeEndian)
}

// DecodeOrder is Decode for an explicit word byte order.
func (b *Bridge) DecodeOrder(ctx context.Context, data []byte, opts *core.DecoderOptions, order binary.ByteOrder) (*core.DecodeResult, error) {
	return b.inner.Decode(ctx, data, opts, order)
}

// DecodeInto decodes into dst, which must hold the resolved geometry.
func (b *Bridge) DecodeInto(ctx context.Context, data []byte, opts *core.DecoderOptions, mode core.ColorMode, dst []byte) (*core.DecodeResult, error) {
	return b.inner.DecodeInto(ctx, data, opts, mode, dst)
}

// Encode compresses an RGB or RGBA buffer whose rows are stride bytes apart.
func (b *Bridge) Encode(ctx context.Context, pixels []byte, width, height, stride int, layout core.ChannelLayout, opts *core.EncoderOptions) ([]byte, error) {
	return b.inner.Encode(ctx, pixels, width, height, stride, layout, opts)
}

// DecodeImage decodes r into an image.Image.
func (b *Bridge) DecodeImage(ctx context.Context, r io.Reader, opts *core.DecoderOptions) (image.Image, error) {
	return b.image.Decode(ctx, r, opts)
}

// EncodeImage writes img to w.
func (b *Bridge) EncodeImage(ctx context.Context, w io.Writer, img image.Image, opts *core.EncoderOptions) error {
	return b.image.Encode(ctx, w, img, opts)
}

// Batch decodes multiple payloads concurrently.
func (b *Bridge) Batch(ctx context.Context, reqs []core.DecodeRequest) ([]*core.DecodeResult, []error) {
	return b.inner.Batch(ctx, reqs)
}

// Submit enqueues an async job for the worker pool and returns its ID.
func (b *Bridge) Submit(job core.Job) (string, error) { return b.inner.Submit(job) }

// Host returns the handle-based surface for foreign callers.
func (b *Bridge) Host() *host.Host { return b.host }

// Stats returns lightweight call statistics.
func (b *Bridge) Stats() (processed, errors int64) {
	return b.inner.ProcessedCount(), b.inner.ErrorCount()
}

package core

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	apperrors "github.com/Skryldev/webpio/errors"
)

// maxStride is the largest output row pitch the codec library accepts.
const maxStride = 1 << 31

// GetFeatures reads the bitstream headers of data.
func (b *Bridge) GetFeatures(data []byte) (Features, error) {
	if len(data) == 0 {
		return Features{}, apperrors.New(apperrors.StatusInvalidParam, "decode.features", apperrors.ErrEmptyInput)
	}
	c, err := b.codec()
	if err != nil {
		return Features{}, err
	}
	f, err := c.GetFeatures(data)
	if err != nil {
		return Features{}, apperrors.Wrap(apperrors.StatusBitstreamError, "decode.features", err)
	}
	return f, nil
}

// GetInfo returns the intrinsic size of data without decoding pixels.
func (b *Bridge) GetInfo(data []byte) (Size, error) {
	f, err := b.GetFeatures(data)
	if err != nil {
		return Size{}, err
	}
	return Size{Width: f.Width, Height: f.Height}, nil
}

// OutputSize returns the geometry Decode would produce for data and opts,
// for callers that allocate their own destination.
func (b *Bridge) OutputSize(data []byte, opts *DecoderOptions) (Size, error) {
	if opts == nil {
		return Size{}, apperrors.New(apperrors.StatusInvalidParam, "decode.geometry", fmt.Errorf("%w: nil options", apperrors.ErrInvalidParam))
	}
	f, err := b.GetFeatures(data)
	if err != nil {
		return Size{}, err
	}
	size, err := ResolveOutputGeometry(Size{Width: f.Width, Height: f.Height}, opts.Crop, opts.Scale)
	if err != nil {
		return Size{}, err
	}
	if _, _, err := b.outputSize(size); err != nil {
		return Size{}, err
	}
	return size, nil
}

// Decode decodes data into a newly allocated packed-pixel buffer.  The mode
// is chosen from order so that each pixel, read as a 32-bit integer in that
// order, carries alpha in its most significant byte.
func (b *Bridge) Decode(ctx context.Context, data []byte, opts *DecoderOptions, order binary.ByteOrder) (*DecodeResult, error) {
	return b.decode(ctx, data, opts, ModeForByteOrder(order), nil, false)
}

// DecodeMode is Decode with an explicit channel order.
func (b *Bridge) DecodeMode(ctx context.Context, data []byte, opts *DecoderOptions, mode ColorMode) (*DecodeResult, error) {
	return b.decode(ctx, data, opts, mode, nil, false)
}

// DecodeInto decodes straight into dst, which must hold at least
// width*height*4 bytes of the resolved geometry.  dst is only borrowed for the
// duration of the call.  On failure its content is unspecified.
func (b *Bridge) DecodeInto(ctx context.Context, data []byte, opts *DecoderOptions, mode ColorMode, dst []byte) (*DecodeResult, error) {
	return b.decode(ctx, data, opts, mode, dst, true)
}

// decode allocates the output unless external is set, in which case dst is
// the caller's buffer.
func (b *Bridge) decode(ctx context.Context, data []byte, opts *DecoderOptions, mode ColorMode, dst []byte, external bool) (res *DecodeResult, err error) {
	res = &DecodeResult{Mode: mode}
	info := CallInfo{Op: "decode", Backend: string(b.cfg.Backend), InputBytes: len(data)}
	start := time.Now()
	defer func() {
		res.Status = apperrors.StatusOf(err)
		if err == nil {
			info.Width, info.Height = res.Width, res.Height
			info.OutputBytes = len(res.Pixels)
		}
		b.end(ctx, info, start, err)
	}()

	if err = b.begin(ctx, info); err != nil {
		return res, err
	}
	if opts == nil {
		return res, apperrors.New(apperrors.StatusInvalidParam, "decode", fmt.Errorf("%w: nil options", apperrors.ErrInvalidParam))
	}
	if external && dst == nil {
		return res, apperrors.New(apperrors.StatusInvalidParam, "decode", fmt.Errorf("%w: nil destination", apperrors.ErrInvalidParam))
	}
	if len(data) == 0 {
		return res, apperrors.New(apperrors.StatusInvalidParam, "decode", apperrors.ErrEmptyInput)
	}
	c, err := b.codec()
	if err != nil {
		return res, err
	}

	// 1. Features; nothing is allocated before they are known.
	features, err := c.GetFeatures(data)
	if err != nil {
		return res, apperrors.Wrap(apperrors.StatusBitstreamError, "decode.features", err)
	}
	if features.HasAnimation {
		return res, apperrors.New(apperrors.StatusUnsupportedFeature, "decode",
			fmt.Errorf("%w: animated bitstream", apperrors.ErrUnsupported))
	}

	// 2. Output geometry.
	size, err := ResolveOutputGeometry(Size{Width: features.Width, Height: features.Height}, opts.Crop, opts.Scale)
	if err != nil {
		return res, err
	}

	// 3. Destination buffer.
	stride, n, err := b.outputSize(size)
	if err != nil {
		return res, err
	}
	if !external {
		dst = make([]byte, n)
	} else if int64(len(dst)) < n {
		return res, apperrors.New(apperrors.StatusInvalidParam, "decode",
			fmt.Errorf("%w: destination holds %d bytes, need %d", apperrors.ErrInvalidParam, len(dst), n))
	}

	// 4-5. Decode into external memory in the requested channel order.
	cfg := &DecoderConfig{
		Input:   features,
		Options: *opts,
		Output: OutputBuffer{
			Mode:   mode,
			Width:  size.Width,
			Height: size.Height,
			Stride: stride,
			Pix:    dst[:n],
		},
	}
	res.Width, res.Height = size.Width, size.Height
	res.HasAlpha = features.HasAlpha
	res.Pixels = cfg.Output.Pix
	if err = c.DecodeInto(data, cfg); err != nil {
		return res, apperrors.Wrap(apperrors.StatusBitstreamError, "decode", err)
	}
	return res, nil
}

// outputSize returns the stride and byte size of a packed buffer for size.
func (b *Bridge) outputSize(size Size) (stride int, n int64, err error) {
	s := int64(size.Width) * BytesPerPixel
	if s >= maxStride {
		return 0, 0, apperrors.New(apperrors.StatusInvalidParam, "decode.buffer",
			fmt.Errorf("%w: row of %d pixels too wide", apperrors.ErrInvalidParam, size.Width))
	}
	n = s * int64(size.Height)
	pixels := int64(size.Width) * int64(size.Height)
	if (b.cfg.MaxPixels > 0 && pixels > b.cfg.MaxPixels) || n > math.MaxInt32*BytesPerPixel {
		return 0, 0, apperrors.New(apperrors.StatusOutOfMemory, "decode.buffer",
			fmt.Errorf("%w: %dx%d output", apperrors.ErrOutOfMemory, size.Width, size.Height))
	}
	return int(s), n, nil
}

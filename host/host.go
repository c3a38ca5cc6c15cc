// Package host exposes the bridge the way a foreign runtime sees it: options
// objects live behind opaque handles with explicit create and delete, every
// option is read and written through typed accessors, payloads are addressed
// by (offset, length) into a larger array, and decoded pixels come back as
// one int32 per pixel with alpha in the most significant byte.
package host

import (
	"context"
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/Skryldev/webpio/core"
	apperrors "github.com/Skryldev/webpio/errors"
)

// Flags are the out-values of a decode.
type Flags struct {
	Status   apperrors.Status
	Width    int
	Height   int
	HasAlpha bool
}

// Host owns the option objects handed out to a caller.  All methods are safe
// for concurrent use.
type Host struct {
	bridge   *core.Bridge
	decoders *table[core.DecoderOptions]
	encoders *table[core.EncoderOptions]
}

// New returns a Host calling into b.
func New(b *core.Bridge) *Host {
	return &Host{
		bridge:   b,
		decoders: newTable[core.DecoderOptions](),
		encoders: newTable[core.EncoderOptions](),
	}
}

// Live returns the number of decoder and encoder handles not yet deleted.
func (h *Host) Live() (decoders, encoders int) {
	return h.decoders.len(), h.encoders.len()
}

// ── Decoder options ──────────────────────────────────────────────────────────

// CreateDecoderOptions allocates zeroed decoder options.
func (h *Host) CreateDecoderOptions() Handle {
	return h.decoders.create(core.DefaultDecoderOptions())
}

// DeleteDecoderOptions releases the options behind hd.  The handle is invalid
// afterwards.
func (h *Host) DeleteDecoderOptions(hd Handle) error {
	return h.decoders.delete("host.decoder.delete", hd)
}

func (h *Host) GetDecoderInt(hd Handle, f Field) (v int32, err error) {
	a, err := lookup("host.decoder.get", decoderInts, f)
	if err != nil {
		return 0, err
	}
	err = h.decoders.with("host.decoder.get", hd, func(o *core.DecoderOptions) error {
		v = a.get(o)
		return nil
	})
	return v, err
}

func (h *Host) SetDecoderInt(hd Handle, f Field, v int32) error {
	a, err := lookup("host.decoder.set", decoderInts, f)
	if err != nil {
		return err
	}
	return h.decoders.with("host.decoder.set", hd, func(o *core.DecoderOptions) error {
		a.set(o, v)
		return nil
	})
}

func (h *Host) IsDecoderFlag(hd Handle, f Field) (v bool, err error) {
	a, err := lookup("host.decoder.is", decoderFlags, f)
	if err != nil {
		return false, err
	}
	err = h.decoders.with("host.decoder.is", hd, func(o *core.DecoderOptions) error {
		v = a.get(o)
		return nil
	})
	return v, err
}

func (h *Host) SetDecoderFlag(hd Handle, f Field, v bool) error {
	a, err := lookup("host.decoder.set", decoderFlags, f)
	if err != nil {
		return err
	}
	return h.decoders.with("host.decoder.set", hd, func(o *core.DecoderOptions) error {
		a.set(o, v)
		return nil
	})
}

// ── Encoder options ──────────────────────────────────────────────────────────

// CreateEncoderOptions allocates encoder options holding the codec defaults.
func (h *Host) CreateEncoderOptions() Handle {
	return h.encoders.create(core.DefaultEncoderOptions())
}

// DeleteEncoderOptions releases the options behind he.
func (h *Host) DeleteEncoderOptions(he Handle) error {
	return h.encoders.delete("host.encoder.delete", he)
}

func (h *Host) GetEncoderInt(he Handle, f Field) (v int32, err error) {
	a, err := lookup("host.encoder.get", encoderInts, f)
	if err != nil {
		return 0, err
	}
	err = h.encoders.with("host.encoder.get", he, func(o *core.EncoderOptions) error {
		v = a.get(o)
		return nil
	})
	return v, err
}

func (h *Host) SetEncoderInt(he Handle, f Field, v int32) error {
	a, err := lookup("host.encoder.set", encoderInts, f)
	if err != nil {
		return err
	}
	return h.encoders.with("host.encoder.set", he, func(o *core.EncoderOptions) error {
		a.set(o, v)
		return nil
	})
}

func (h *Host) GetEncoderFloat(he Handle, f Field) (v float32, err error) {
	a, err := lookup("host.encoder.get", encoderFloats, f)
	if err != nil {
		return 0, err
	}
	err = h.encoders.with("host.encoder.get", he, func(o *core.EncoderOptions) error {
		v = a.get(o)
		return nil
	})
	return v, err
}

func (h *Host) SetEncoderFloat(he Handle, f Field, v float32) error {
	a, err := lookup("host.encoder.set", encoderFloats, f)
	if err != nil {
		return err
	}
	return h.encoders.with("host.encoder.set", he, func(o *core.EncoderOptions) error {
		a.set(o, v)
		return nil
	})
}

// ── Codec calls ──────────────────────────────────────────────────────────────

// GetInfo returns the intrinsic size of data[offset:offset+length].
func (h *Host) GetInfo(data []byte, offset, length int) (width, height int, err error) {
	payload, err := window("host.info", data, offset, length)
	if err != nil {
		return 0, 0, err
	}
	size, err := h.bridge.GetInfo(payload)
	if err != nil {
		return 0, 0, err
	}
	return size.Width, size.Height, nil
}

// Decode decodes data[offset:offset+length] with the options behind hd into
// one int32 per pixel.  bigEndian must describe the byte order the caller
// reads the int32 values in; alpha then sits in the most significant byte.
// The flags are filled on every path; pixels are nil unless the status is OK.
func (h *Host) Decode(ctx context.Context, hd Handle, data []byte, offset, length int, bigEndian bool) ([]int32, Flags, error) {
	fail := func(err error) ([]int32, Flags, error) {
		return nil, Flags{Status: apperrors.StatusOf(err)}, err
	}
	opts, err := h.decoders.snapshot("host.decode", hd)
	if err != nil {
		return fail(err)
	}
	payload, err := window("host.decode", data, offset, length)
	if err != nil {
		return fail(err)
	}
	size, err := h.bridge.OutputSize(payload, &opts)
	if err != nil {
		return fail(err)
	}

	pixels := make([]int32, size.Width*size.Height)
	dst := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(pixels))), len(pixels)*core.BytesPerPixel)

	var order binary.ByteOrder = binary.LittleEndian
	if bigEndian {
		order = binary.BigEndian
	}
	res, err := h.bridge.DecodeInto(ctx, payload, &opts, core.ModeForByteOrder(order), dst)
	flags := Flags{Status: res.Status, Width: res.Width, Height: res.Height, HasAlpha: res.HasAlpha}
	if err != nil {
		return nil, flags, err
	}
	return pixels, flags, nil
}

// EncodeRGBA compresses width x height RGBA pixels, rows stride bytes apart.
func (h *Host) EncodeRGBA(ctx context.Context, he Handle, data []byte, width, height, stride int) ([]byte, error) {
	return h.encode(ctx, he, core.LayoutRGBA, data, width, height, stride)
}

// EncodeRGB compresses width x height RGB pixels, rows stride bytes apart.
func (h *Host) EncodeRGB(ctx context.Context, he Handle, data []byte, width, height, stride int) ([]byte, error) {
	return h.encode(ctx, he, core.LayoutRGB, data, width, height, stride)
}

func (h *Host) encode(ctx context.Context, he Handle, layout core.ChannelLayout, data []byte, width, height, stride int) ([]byte, error) {
	opts, err := h.encoders.snapshot("host.encode", he)
	if err != nil {
		return nil, err
	}
	return h.bridge.Encode(ctx, data, width, height, stride, layout, &opts)
}

// window bounds-checks a payload slice.
func window(op string, data []byte, offset, length int) ([]byte, error) {
	if data == nil || offset < 0 || length < 0 || int64(offset)+int64(length) > int64(len(data)) {
		return nil, apperrors.New(apperrors.StatusInvalidParam, op,
			fmt.Errorf("%w: offset %d length %d exceeds array of %d", apperrors.ErrInvalidParam, offset, length, len(data)))
	}
	return data[offset : offset+length], nil
}

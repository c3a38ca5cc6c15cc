package core

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/Skryldev/webpio/errors"
)

// Encode compresses width x height pixels laid out per layout, rows stride
// bytes apart, and returns a slice whose length and capacity are exactly the
// compressed size.  Picture and sink memory is released on every path.
func (b *Bridge) Encode(ctx context.Context, pixels []byte, width, height, stride int, layout ChannelLayout, opts *EncoderOptions) (out []byte, err error) {
	info := CallInfo{
		Op:         "encode",
		Backend:    string(b.cfg.Backend),
		InputBytes: len(pixels),
		Width:      width,
		Height:     height,
	}
	start := time.Now()
	defer func() {
		info.OutputBytes = len(out)
		b.end(ctx, info, start, err)
	}()

	if err = b.begin(ctx, info); err != nil {
		return nil, err
	}
	if opts == nil {
		return nil, apperrors.New(apperrors.StatusInvalidParam, "encode", fmt.Errorf("%w: nil options", apperrors.ErrInvalidParam))
	}
	if err = opts.Validate(); err != nil {
		return nil, err
	}
	c, err := b.codec()
	if err != nil {
		return nil, err
	}

	pic, err := NewPicture(b.alloc, width, height)
	if err != nil {
		return nil, err
	}
	defer pic.Free()
	if b.cfg.MaxPixels > 0 && int64(width)*int64(height) > b.cfg.MaxPixels {
		return nil, apperrors.New(apperrors.StatusOutOfMemory, "picture.init",
			fmt.Errorf("%w: %dx%d picture", apperrors.ErrOutOfMemory, width, height))
	}

	pic.UseARGB = opts.Lossless
	if err = pic.Import(layout, pixels, stride); err != nil {
		return nil, err
	}

	sink := NewMemorySink(b.alloc)
	defer sink.Free()
	spare := NewMemorySink(b.alloc)
	defer spare.Free()
	best, err := b.runEncoder(c, pic, opts, sink, spare)
	if err != nil {
		return nil, err
	}

	out = make([]byte, best.Len())
	copy(out, best.Bytes())
	return out, nil
}

// runEncoder drives one encode, or a quality search when a target size is set
// on a lossy encode.  The search keeps the smallest output seen, so more
// passes never yield a larger result; it returns the sink holding it.
func (b *Bridge) runEncoder(c Codec, pic *Picture, opts *EncoderOptions, first, second *MemorySink) (*MemorySink, error) {
	if opts.TargetSize <= 0 || opts.Lossless {
		return first, encodeOnce(c, pic, opts, first)
	}

	attempts := opts.Pass
	if attempts < 1 {
		attempts = 1
	}
	step := b.cfg.AdaptiveStep
	if step <= 0 {
		step = 5
	}
	sinks := [2]*MemorySink{first, second}
	best := -1
	o := *opts
	for i := 0; i < attempts; i++ {
		cur := 0
		if best == 0 {
			cur = 1
		}
		s := sinks[cur]
		s.Reset()
		if err := encodeOnce(c, pic, &o, s); err != nil {
			return nil, err
		}
		if best < 0 || s.Len() < sinks[best].Len() {
			best = cur
		}
		if sinks[best].Len() <= opts.TargetSize || o.Quality == 0 {
			break
		}
		if b.logger != nil {
			b.logger.Debug("encode.target_size.retry", "size", s.Len(), "best", sinks[best].Len(),
				"target", opts.TargetSize, "quality", o.Quality)
		}
		o.Quality -= step
		if o.Quality < 0 {
			o.Quality = 0
		}
	}
	return sinks[best], nil
}

func encodeOnce(c Codec, pic *Picture, opts *EncoderOptions, sink *MemorySink) error {
	if err := c.Encode(pic, opts, sink); err != nil {
		return apperrors.Wrap(apperrors.StatusBitstreamError, "encode",
			fmt.Errorf("%w: %w", apperrors.ErrEncodeFailed, err))
	}
	if sink.Len() == 0 {
		return apperrors.New(apperrors.StatusBitstreamError, "encode",
			fmt.Errorf("%w: codec produced no output", apperrors.ErrEncodeFailed))
	}
	return nil
}

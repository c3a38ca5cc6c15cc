package core

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/Skryldev/webpio/bitstream"
	apperrors "github.com/Skryldev/webpio/errors"
)

// Features are the bitstream properties read from the headers.
type Features = bitstream.Features

// ColorMode is the byte order of one decoded pixel in memory.
type ColorMode int

const (
	ModeRGBA ColorMode = iota // R, G, B, A
	ModeARGB                  // A, R, G, B: alpha-first 32-bit word on big-endian hosts
	ModeBGRA                  // B, G, R, A: alpha-first 32-bit word on little-endian hosts
)

func (m ColorMode) String() string {
	switch m {
	case ModeRGBA:
		return "rgba"
	case ModeARGB:
		return "argb"
	case ModeBGRA:
		return "bgra"
	}
	return "unknown"
}

// BytesPerPixel is 4 for every supported mode.
const BytesPerPixel = 4

// ModeForByteOrder picks the mode whose bytes, read as a 32-bit integer in
// order, put alpha in the most significant byte.
func ModeForByteOrder(order binary.ByteOrder) ColorMode {
	if order != nil && order.Uint32([]byte{0, 0, 0, 1}) == 1 {
		return ModeARGB
	}
	return ModeBGRA
}

// ChannelLayout is the interleaving of caller pixels handed to Encode.
type ChannelLayout int

const (
	LayoutRGB ChannelLayout = iota + 1
	LayoutRGBA
)

// BytesPerPixel returns the size of one pixel in the layout.
func (l ChannelLayout) BytesPerPixel() int {
	switch l {
	case LayoutRGB:
		return 3
	case LayoutRGBA:
		return 4
	}
	return 0
}

func (l ChannelLayout) String() string {
	switch l {
	case LayoutRGB:
		return "rgb"
	case LayoutRGBA:
		return "rgba"
	}
	return "unknown"
}

// OutputBuffer describes caller-owned destination memory for a decode.
type OutputBuffer struct {
	Mode   ColorMode
	Width  int
	Height int
	Stride int
	Pix    []byte // externally owned; never retained past DecodeInto
}

// DecoderConfig is everything a codec needs to decode one payload.
type DecoderConfig struct {
	Input   Features
	Options DecoderOptions
	Output  OutputBuffer
}

// DecodeResult is constructed once per decode call and then owned by the
// caller.  Geometry and Pixels are only meaningful when Status is StatusOK.
type DecodeResult struct {
	Status   apperrors.Status
	Width    int
	Height   int
	HasAlpha bool
	Mode     ColorMode
	Pixels   []byte
}

// Stride is the row pitch of Pixels in bytes.
func (r *DecodeResult) Stride() int { return r.Width * BytesPerPixel }

// CallInfo describes one bridge call for hooks.
type CallInfo struct {
	Op          string // "decode", "encode", "features"
	Backend     string
	InputBytes  int
	OutputBytes int
	Width       int
	Height      int
}

// Hook is an optional observer invoked around bridge calls.
type Hook interface {
	BeforeCall(ctx context.Context, info CallInfo)
	AfterCall(ctx context.Context, info CallInfo, d time.Duration, err error)
}

// ── async jobs ────────────────────────────────────────────────────────────────

// JobKind selects the operation a Job runs.
type JobKind int

const (
	JobDecode JobKind = iota
	JobEncode
)

// DecodeRequest is the input of a decode job or a Batch entry.
type DecodeRequest struct {
	Data    []byte
	Options *DecoderOptions
	Mode    ColorMode
}

// EncodeRequest is the input of an encode job.
type EncodeRequest struct {
	Pixels  []byte
	Width   int
	Height  int
	Stride  int
	Layout  ChannelLayout
	Options *EncoderOptions
}

// Job encapsulates a single unit of work for the worker pool.
type Job struct {
	ID     string
	Ctx    context.Context //nolint:containedctx // intentional for async jobs
	Kind   JobKind
	Decode DecodeRequest
	Encode EncodeRequest
	// Result channel; nil for fire-and-forget.
	ResultCh chan<- JobResult
}

// JobResult wraps the outcome of an async job.
type JobResult struct {
	JobID   string
	Decoded *DecodeResult
	Encoded []byte
	Err     error
}

package core

import "io"

// Codec is the binding to a WebP codec library.  Implementations live in
// adapters/.  They must be safe for concurrent calls on independent data.
type Codec interface {
	// Name is the registry key of the backend.
	Name() string
	// GetFeatures reads the bitstream headers without decoding pixels.
	GetFeatures(data []byte) (Features, error)
	// DecodeInto decodes data into cfg.Output.Pix, which the caller owns.
	// cfg.Output geometry is already resolved; the codec applies the crop and
	// scale from cfg.Options to reach it.
	DecodeInto(data []byte, cfg *DecoderConfig) error
	// Encode compresses pic and writes the bitstream to w.
	Encode(pic *Picture, opts *EncoderOptions, w io.Writer) error
}

// Allocator hands out the scratch memory of pictures and memory sinks.
// Every successful Alloc is paired with exactly one Free.
type Allocator interface {
	Alloc(n int) ([]byte, error)
	Free(b []byte)
}

// MetricsCollector receives performance observations from the bridge.
type MetricsCollector interface {
	RecordCallTime(op string, d interface{ Seconds() float64 })
	RecordThroughput(op string, in, out int64)
	RecordError(op string, kind string)
}

// Logger is a minimal structured logging interface.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

// Registry maps backend names to Codec implementations.
type Registry interface {
	CodecFor(name string) (Codec, bool)
	RegisterCodec(name string, c Codec)
	Names() []string
}

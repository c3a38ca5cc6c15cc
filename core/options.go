package core

import (
	"fmt"

	apperrors "github.com/Skryldev/webpio/errors"
)

// DecoderOptions are the per-decode knobs.  The zero value decodes the full
// frame with default filtering.
type DecoderOptions struct {
	BypassFiltering   bool // skip the in-loop filter
	NoFancyUpsampling bool // pointwise upsampling / nearest-neighbour rescale
	Crop              Crop // applied first
	Scale             Scale
	UseThreads        bool
}

// DefaultDecoderOptions returns zeroed options.
func DefaultDecoderOptions() *DecoderOptions { return &DecoderOptions{} }

// EncoderOptions mirror the codec library's encoder configuration.
type EncoderOptions struct {
	Quality          float32 // 0..100
	TargetSize       int     // bytes; 0 = off
	TargetPSNR       float32 // dB; 0 = off
	Method           int     // 0 (fast) .. 6 (slower, better)
	Segments         int     // 1..4
	SNSStrength      int     // 0..100
	FilterStrength   int     // 0..100
	FilterSharpness  int     // 0..7
	FilterType       int     // 0 = simple, 1 = strong
	Autofilter       bool
	Pass             int // 1..10
	ShowCompressed   bool
	Preprocessing    int // bit mask: 1 = segment smoothing, 2 = pseudo-random dithering, 4 = alpha dithering
	Partitions       int // log2 of the token partition count, 0..3
	PartitionLimit   int // 0..100
	AlphaCompression int // 0 = none, 1 = lossless
	AlphaFiltering   int // 0..2
	AlphaQuality     int // 0..100
	Lossless         bool
	Exact            bool // keep RGB under fully transparent pixels; implied by Lossless
	EmulateJPEGSize  bool
	ThreadLevel      int
	LowMemory        bool
}

// DefaultEncoderOptions returns the codec library's stock configuration.
func DefaultEncoderOptions() *EncoderOptions {
	return &EncoderOptions{
		Quality:          75,
		Method:           4,
		Segments:         4,
		SNSStrength:      50,
		FilterStrength:   60,
		FilterType:       1,
		Pass:             1,
		AlphaCompression: 1,
		AlphaFiltering:   1,
		AlphaQuality:     100,
	}
}

type intRange struct {
	name     string
	v        int
	min, max int
}

// Validate checks every field against its legal range.
func (o *EncoderOptions) Validate() error {
	if o.Quality < 0 || o.Quality > 100 {
		return invalidOption("quality", o.Quality)
	}
	if o.TargetSize < 0 {
		return invalidOption("target_size", o.TargetSize)
	}
	if o.TargetPSNR < 0 {
		return invalidOption("target_psnr", o.TargetPSNR)
	}
	ranges := []intRange{
		{"method", o.Method, 0, 6},
		{"segments", o.Segments, 1, 4},
		{"sns_strength", o.SNSStrength, 0, 100},
		{"filter_strength", o.FilterStrength, 0, 100},
		{"filter_sharpness", o.FilterSharpness, 0, 7},
		{"filter_type", o.FilterType, 0, 1},
		{"pass", o.Pass, 1, 10},
		{"preprocessing", o.Preprocessing, 0, 7},
		{"partitions", o.Partitions, 0, 3},
		{"partition_limit", o.PartitionLimit, 0, 100},
		{"alpha_compression", o.AlphaCompression, 0, 1},
		{"alpha_filtering", o.AlphaFiltering, 0, 2},
		{"alpha_quality", o.AlphaQuality, 0, 100},
		{"thread_level", o.ThreadLevel, 0, 1},
	}
	for _, r := range ranges {
		if r.v < r.min || r.v > r.max {
			return invalidOption(r.name, r.v)
		}
	}
	return nil
}

func invalidOption(name string, v any) error {
	return apperrors.New(apperrors.StatusInvalidParam, "options.validate",
		fmt.Errorf("%w: %s=%v", apperrors.ErrInvalidParam, name, v))
}

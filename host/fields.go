package host

import (
	"fmt"
	"sort"

	"github.com/Skryldev/webpio/core"
	apperrors "github.com/Skryldev/webpio/errors"
)

// Field names one option reachable through the accessor tables.
type Field string

// Decoder fields.
const (
	CropLeft          Field = "crop_left"
	CropTop           Field = "crop_top"
	CropWidth         Field = "crop_width"
	CropHeight        Field = "crop_height"
	ScaledWidth       Field = "scaled_width"
	ScaledHeight      Field = "scaled_height"
	UseCropping       Field = "use_cropping"
	UseScaling        Field = "use_scaling"
	UseThreads        Field = "use_threads"
	BypassFiltering   Field = "bypass_filtering"
	NoFancyUpsampling Field = "no_fancy_upsampling"
)

// Encoder fields.
const (
	Quality          Field = "quality"
	TargetSize       Field = "target_size"
	TargetPSNR       Field = "target_psnr"
	Method           Field = "method"
	Segments         Field = "segments"
	SNSStrength      Field = "sns_strength"
	FilterStrength   Field = "filter_strength"
	FilterSharpness  Field = "filter_sharpness"
	FilterType       Field = "filter_type"
	Autofilter       Field = "autofilter"
	Pass             Field = "pass"
	ShowCompressed   Field = "show_compressed"
	Preprocessing    Field = "preprocessing"
	Partitions       Field = "partitions"
	PartitionLimit   Field = "partition_limit"
	AlphaCompression Field = "alpha_compression"
	AlphaFiltering   Field = "alpha_filtering"
	AlphaQuality     Field = "alpha_quality"
	Lossless         Field = "lossless"
	Exact            Field = "exact"
	EmulateJPEGSize  Field = "emulate_jpeg_size"
	ThreadLevel      Field = "thread_level"
	LowMemory        Field = "low_memory"
)

type accessor[T any, V any] struct {
	get func(*T) V
	set func(*T, V)
}

func intField[T any](p func(*T) *int) accessor[T, int32] {
	return accessor[T, int32]{
		get: func(o *T) int32 { return int32(*p(o)) },
		set: func(o *T, v int32) { *p(o) = int(v) },
	}
}

// boolIntField exposes a bool as 0/1; any non-zero value sets it.
func boolIntField[T any](p func(*T) *bool) accessor[T, int32] {
	return accessor[T, int32]{
		get: func(o *T) int32 {
			if *p(o) {
				return 1
			}
			return 0
		},
		set: func(o *T, v int32) { *p(o) = v != 0 },
	}
}

func boolField[T any](p func(*T) *bool) accessor[T, bool] {
	return accessor[T, bool]{
		get: func(o *T) bool { return *p(o) },
		set: func(o *T, v bool) { *p(o) = v },
	}
}

func floatField[T any](p func(*T) *float32) accessor[T, float32] {
	return accessor[T, float32]{
		get: func(o *T) float32 { return *p(o) },
		set: func(o *T, v float32) { *p(o) = v },
	}
}

type (
	decOpts = core.DecoderOptions
	encOpts = core.EncoderOptions
)

var decoderInts = map[Field]accessor[decOpts, int32]{
	CropLeft:     intField(func(o *decOpts) *int { return &o.Crop.Left }),
	CropTop:      intField(func(o *decOpts) *int { return &o.Crop.Top }),
	CropWidth:    intField(func(o *decOpts) *int { return &o.Crop.Width }),
	CropHeight:   intField(func(o *decOpts) *int { return &o.Crop.Height }),
	ScaledWidth:  intField(func(o *decOpts) *int { return &o.Scale.Width }),
	ScaledHeight: intField(func(o *decOpts) *int { return &o.Scale.Height }),
}

var decoderFlags = map[Field]accessor[decOpts, bool]{
	UseCropping:       boolField(func(o *decOpts) *bool { return &o.Crop.Enabled }),
	UseScaling:        boolField(func(o *decOpts) *bool { return &o.Scale.Enabled }),
	UseThreads:        boolField(func(o *decOpts) *bool { return &o.UseThreads }),
	BypassFiltering:   boolField(func(o *decOpts) *bool { return &o.BypassFiltering }),
	NoFancyUpsampling: boolField(func(o *decOpts) *bool { return &o.NoFancyUpsampling }),
}

var encoderInts = map[Field]accessor[encOpts, int32]{
	TargetSize:       intField(func(o *encOpts) *int { return &o.TargetSize }),
	Method:           intField(func(o *encOpts) *int { return &o.Method }),
	Segments:         intField(func(o *encOpts) *int { return &o.Segments }),
	SNSStrength:      intField(func(o *encOpts) *int { return &o.SNSStrength }),
	FilterStrength:   intField(func(o *encOpts) *int { return &o.FilterStrength }),
	FilterSharpness:  intField(func(o *encOpts) *int { return &o.FilterSharpness }),
	FilterType:       intField(func(o *encOpts) *int { return &o.FilterType }),
	Autofilter:       boolIntField(func(o *encOpts) *bool { return &o.Autofilter }),
	Pass:             intField(func(o *encOpts) *int { return &o.Pass }),
	ShowCompressed:   boolIntField(func(o *encOpts) *bool { return &o.ShowCompressed }),
	Preprocessing:    intField(func(o *encOpts) *int { return &o.Preprocessing }),
	Partitions:       intField(func(o *encOpts) *int { return &o.Partitions }),
	PartitionLimit:   intField(func(o *encOpts) *int { return &o.PartitionLimit }),
	AlphaCompression: intField(func(o *encOpts) *int { return &o.AlphaCompression }),
	AlphaFiltering:   intField(func(o *encOpts) *int { return &o.AlphaFiltering }),
	AlphaQuality:     intField(func(o *encOpts) *int { return &o.AlphaQuality }),
	Lossless:         boolIntField(func(o *encOpts) *bool { return &o.Lossless }),
	Exact:            boolIntField(func(o *encOpts) *bool { return &o.Exact }),
	EmulateJPEGSize:  boolIntField(func(o *encOpts) *bool { return &o.EmulateJPEGSize }),
	ThreadLevel:      intField(func(o *encOpts) *int { return &o.ThreadLevel }),
	LowMemory:        boolIntField(func(o *encOpts) *bool { return &o.LowMemory }),
}

var encoderFloats = map[Field]accessor[encOpts, float32]{
	Quality:    floatField(func(o *encOpts) *float32 { return &o.Quality }),
	TargetPSNR: floatField(func(o *encOpts) *float32 { return &o.TargetPSNR }),
}

func lookup[T any, V any](op string, m map[Field]accessor[T, V], f Field) (accessor[T, V], error) {
	a, ok := m[f]
	if !ok {
		return a, apperrors.New(apperrors.StatusInvalidParam, op,
			fmt.Errorf("%w: unknown field %q", apperrors.ErrInvalidParam, f))
	}
	return a, nil
}

// DecoderFields lists every decoder field, integers first.
func DecoderFields() []Field { return append(keys(decoderInts), keys(decoderFlags)...) }

// EncoderFields lists every encoder field, floats first.
func EncoderFields() []Field { return append(keys(encoderFloats), keys(encoderInts)...) }

func keys[V any](m map[Field]V) []Field {
	out := make([]Field, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

package core

import (
	"math"

	apperrors "github.com/Skryldev/webpio/errors"
)

// Size is a raster size in pixels.
type Size struct {
	Width  int
	Height int
}

// Crop selects a sub-rectangle of the intrinsic frame.  Left and Top are
// snapped down to even values before they are checked.
type Crop struct {
	Enabled bool
	Left    int
	Top     int
	Width   int
	Height  int
}

// Scale rescales the (cropped) frame.  A zero Width or Height is derived from
// the other axis, keeping the aspect ratio.
type Scale struct {
	Enabled bool
	Width   int
	Height  int
}

// ResolveScaledSize returns the rescaled size of a srcW x srcH region.  A zero
// request on one axis is derived with half-up integer rounding; both zero is
// invalid.
func ResolveScaledSize(srcW, srcH, reqW, reqH int) (Size, error) {
	if srcW <= 0 || srcH <= 0 || !fitsInt32(srcW, srcH, reqW, reqH) {
		return Size{}, invalidGeometry("geometry.scale")
	}
	sw, sh := int64(srcW), int64(srcH)
	w, h := int64(reqW), int64(reqH)
	if w == 0 {
		w = (sw*h + sh/2) / sh
	}
	if h == 0 {
		h = (sh*w + sw/2) / sw
	}
	if w <= 0 || h <= 0 || w > math.MaxInt32 || h > math.MaxInt32 {
		return Size{}, invalidGeometry("geometry.scale")
	}
	return Size{Width: int(w), Height: int(h)}, nil
}

// ResolveOutputGeometry composes intrinsic -> crop -> scale.  Scaling is
// always relative to the cropped region.
func ResolveOutputGeometry(intrinsic Size, crop Crop, scale Scale) (Size, error) {
	w, h := int64(intrinsic.Width), int64(intrinsic.Height)
	if w <= 0 || h <= 0 || !fitsInt32(intrinsic.Width, intrinsic.Height) {
		return Size{}, invalidGeometry("geometry.intrinsic")
	}

	if crop.Enabled {
		if !fitsInt32(crop.Left, crop.Top, crop.Width, crop.Height) {
			return Size{}, invalidGeometry("geometry.crop")
		}
		x := int64(crop.Left) &^ 1
		y := int64(crop.Top) &^ 1
		cw, ch := int64(crop.Width), int64(crop.Height)
		if x < 0 || y < 0 || cw <= 0 || ch <= 0 || x+cw > w || y+ch > h {
			return Size{}, invalidGeometry("geometry.crop")
		}
		w, h = cw, ch
	}

	if scale.Enabled {
		s, err := ResolveScaledSize(int(w), int(h), scale.Width, scale.Height)
		if err != nil {
			return Size{}, err
		}
		w, h = int64(s.Width), int64(s.Height)
	}
	return Size{Width: int(w), Height: int(h)}, nil
}

// CropOrigin returns the even-snapped origin the decoder actually uses.
func CropOrigin(c Crop) (left, top int) {
	return c.Left &^ 1, c.Top &^ 1
}

func fitsInt32(vs ...int) bool {
	for _, v := range vs {
		if v < math.MinInt32 || v > math.MaxInt32 {
			return false
		}
	}
	return true
}

func invalidGeometry(op string) error {
	return apperrors.New(apperrors.StatusInvalidParam, op, apperrors.ErrInvalidParam)
}

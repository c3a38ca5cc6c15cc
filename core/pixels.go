package core

import (
	"fmt"
	"image"
	"image/color"
	"runtime"
	"sync"

	apperrors "github.com/Skryldev/webpio/errors"
)

// CheckOutput verifies that out can hold its declared geometry.
func CheckOutput(out *OutputBuffer) error {
	if out.Width <= 0 || out.Height <= 0 || out.Stride < out.Width*BytesPerPixel {
		return apperrors.New(apperrors.StatusInvalidParam, "output.check",
			fmt.Errorf("%w: %dx%d stride %d", apperrors.ErrInvalidParam, out.Width, out.Height, out.Stride))
	}
	need := int64(out.Height-1)*int64(out.Stride) + int64(out.Width*BytesPerPixel)
	if int64(len(out.Pix)) < need {
		return apperrors.New(apperrors.StatusInvalidParam, "output.check",
			fmt.Errorf("%w: buffer holds %d bytes, need %d", apperrors.ErrInvalidParam, len(out.Pix), need))
	}
	return nil
}

// WriteImage packs src into out in out.Mode.  src must have exactly the output
// geometry.  With parallel set, row bands are packed on separate goroutines.
func WriteImage(out *OutputBuffer, src image.Image, parallel bool) error {
	if err := CheckOutput(out); err != nil {
		return err
	}
	b := src.Bounds()
	if b.Dx() != out.Width || b.Dy() != out.Height {
		return apperrors.New(apperrors.StatusInvalidParam, "output.write",
			fmt.Errorf("%w: image %dx%d, buffer %dx%d", apperrors.ErrInvalidParam,
				b.Dx(), b.Dy(), out.Width, out.Height))
	}
	read := rowReader(src)

	bands := 1
	if parallel {
		bands = runtime.NumCPU()
		if bands > out.Height {
			bands = out.Height
		}
	}
	if bands <= 1 {
		for y := 0; y < out.Height; y++ {
			packRow(out, y, b.Min, read)
		}
		return nil
	}

	var wg sync.WaitGroup
	per := (out.Height + bands - 1) / bands
	for y0 := 0; y0 < out.Height; y0 += per {
		y1 := y0 + per
		if y1 > out.Height {
			y1 = out.Height
		}
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			for y := y0; y < y1; y++ {
				packRow(out, y, b.Min, read)
			}
		}(y0, y1)
	}
	wg.Wait()
	return nil
}

// pixelFunc returns the non-premultiplied colour at absolute (x, y).
type pixelFunc func(x, y int) (r, g, b, a uint8)

func packRow(out *OutputBuffer, y int, origin image.Point, read pixelFunc) {
	row := out.Pix[y*out.Stride : y*out.Stride+out.Width*BytesPerPixel]
	for x := 0; x < out.Width; x++ {
		r, g, b, a := read(origin.X+x, origin.Y+y)
		d := row[x*4 : x*4+4]
		switch out.Mode {
		case ModeARGB:
			d[0], d[1], d[2], d[3] = a, r, g, b
		case ModeBGRA:
			d[0], d[1], d[2], d[3] = b, g, r, a
		default:
			d[0], d[1], d[2], d[3] = r, g, b, a
		}
	}
}

func rowReader(src image.Image) pixelFunc {
	switch m := src.(type) {
	case *image.NRGBA:
		return func(x, y int) (uint8, uint8, uint8, uint8) {
			i := m.PixOffset(x, y)
			return m.Pix[i], m.Pix[i+1], m.Pix[i+2], m.Pix[i+3]
		}
	case *image.NYCbCrA:
		return func(x, y int) (uint8, uint8, uint8, uint8) {
			yi, ci := m.YOffset(x, y), m.COffset(x, y)
			r, g, b := color.YCbCrToRGB(m.Y[yi], m.Cb[ci], m.Cr[ci])
			return r, g, b, m.A[m.AOffset(x, y)]
		}
	case *image.YCbCr:
		return func(x, y int) (uint8, uint8, uint8, uint8) {
			yi, ci := m.YOffset(x, y), m.COffset(x, y)
			r, g, b := color.YCbCrToRGB(m.Y[yi], m.Cb[ci], m.Cr[ci])
			return r, g, b, 0xff
		}
	}
	return func(x, y int) (uint8, uint8, uint8, uint8) {
		c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
		return c.R, c.G, c.B, c.A
	}
}

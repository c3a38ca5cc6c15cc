package core

import (
	"fmt"
	"image"
	"image/color"

	"github.com/Skryldev/webpio/config"
	apperrors "github.com/Skryldev/webpio/errors"
)

// Picture is the encoder's input.  Set UseARGB before Import: ARGB pictures
// keep exact 8-bit samples, the others hold 4:2:0 Y'CbCr planes plus a full
// resolution alpha plane.
type Picture struct {
	Width   int
	Height  int
	UseARGB bool

	alloc    Allocator
	buf      []byte
	img      image.Image
	hasAlpha bool
}

// NewPicture sizes a picture.  Storage is taken on Import.
func NewPicture(alloc Allocator, width, height int) (*Picture, error) {
	if width <= 0 || height <= 0 || width > config.MaxDimension || height > config.MaxDimension {
		return nil, apperrors.New(apperrors.StatusInvalidParam, "picture.init",
			fmt.Errorf("%w: %dx%d", apperrors.ErrInvalidParam, width, height))
	}
	return &Picture{Width: width, Height: height, alloc: alloc}, nil
}

// Import copies pix, laid out per layout with rows stride bytes apart, into
// the picture.  Rows may be padded: stride only has to cover one row.
func (p *Picture) Import(layout ChannelLayout, pix []byte, stride int) error {
	bpp := layout.BytesPerPixel()
	if bpp == 0 {
		return apperrors.New(apperrors.StatusInvalidParam, "picture.import",
			fmt.Errorf("%w: layout %d", apperrors.ErrInvalidParam, layout))
	}
	rowBytes := int64(p.Width) * int64(bpp)
	need := int64(p.Height-1)*int64(stride) + rowBytes
	if int64(stride) < rowBytes || int64(len(pix)) < need {
		return apperrors.New(apperrors.StatusInvalidParam, "picture.import",
			fmt.Errorf("%w: stride %d, %d bytes for %dx%d %s", apperrors.ErrInvalidParam,
				stride, len(pix), p.Width, p.Height, layout))
	}
	if p.buf != nil {
		p.Free()
	}
	p.hasAlpha = layout == LayoutRGBA
	if p.UseARGB {
		return p.importARGB(bpp, pix, stride)
	}
	return p.importYUV(bpp, pix, stride)
}

func (p *Picture) importARGB(bpp int, pix []byte, stride int) error {
	w, h := p.Width, p.Height
	buf, err := p.alloc.Alloc(w * h * 4)
	if err != nil {
		return err
	}
	p.buf = buf
	for y := 0; y < h; y++ {
		src := pix[y*stride : y*stride+w*bpp]
		dst := buf[y*w*4 : (y+1)*w*4]
		if bpp == 4 {
			copy(dst, src)
			continue
		}
		for x := 0; x < w; x++ {
			dst[x*4+0] = src[x*3+0]
			dst[x*4+1] = src[x*3+1]
			dst[x*4+2] = src[x*3+2]
			dst[x*4+3] = 0xff
		}
	}
	p.img = &image.NRGBA{Pix: buf, Stride: w * 4, Rect: image.Rect(0, 0, w, h)}
	return nil
}

func (p *Picture) importYUV(bpp int, pix []byte, stride int) error {
	w, h := p.Width, p.Height
	cw, ch := (w+1)/2, (h+1)/2
	ySize, cSize := w*h, cw*ch
	// Y, Cb, Cr and A planes are contiguous in buf.
	buf, err := p.alloc.Alloc(2*ySize + 2*cSize)
	if err != nil {
		return err
	}
	p.buf = buf

	ycc := image.YCbCr{
		Y:              buf[:ySize],
		Cb:             buf[ySize : ySize+cSize],
		Cr:             buf[ySize+cSize : ySize+2*cSize],
		YStride:        w,
		CStride:        cw,
		SubsampleRatio: image.YCbCrSubsampleRatio420,
		Rect:           image.Rect(0, 0, w, h),
	}
	at := func(x, y int) (r, g, b uint8) {
		o := y*stride + x*bpp
		return pix[o], pix[o+1], pix[o+2]
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b := at(x, y)
			yy, _, _ := color.RGBToYCbCr(r, g, b)
			ycc.Y[y*w+x] = yy
		}
	}
	// Chroma is taken from the average colour of each 2x2 block.
	for cy := 0; cy < ch; cy++ {
		for cx := 0; cx < cw; cx++ {
			var sr, sg, sb, n int
			for dy := 0; dy < 2; dy++ {
				for dx := 0; dx < 2; dx++ {
					x, y := cx*2+dx, cy*2+dy
					if x >= w || y >= h {
						continue
					}
					r, g, b := at(x, y)
					sr, sg, sb, n = sr+int(r), sg+int(g), sb+int(b), n+1
				}
			}
			_, cb, cr := color.RGBToYCbCr(uint8((sr+n/2)/n), uint8((sg+n/2)/n), uint8((sb+n/2)/n))
			ycc.Cb[cy*cw+cx] = cb
			ycc.Cr[cy*cw+cx] = cr
		}
	}

	// RGB input gets an opaque alpha plane so the planes reach the codec as
	// they are instead of being converted back to RGB and subsampled again.
	a := buf[ySize+2*cSize:]
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if p.hasAlpha {
				a[y*w+x] = pix[y*stride+x*bpp+3]
			} else {
				a[y*w+x] = 0xff
			}
		}
	}
	p.img = &image.NYCbCrA{YCbCr: ycc, A: a, AStride: w}
	return nil
}

// Image returns the imported samples.  It is nil before Import and after Free.
func (p *Picture) Image() image.Image { return p.img }

// HasAlpha reports whether the imported layout carried an alpha channel.
func (p *Picture) HasAlpha() bool { return p.hasAlpha }

// Free releases the picture storage.  It is safe to call more than once.
func (p *Picture) Free() {
	if p.buf != nil {
		p.alloc.Free(p.buf)
	}
	p.buf = nil
	p.img = nil
}

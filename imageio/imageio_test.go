package imageio_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/Skryldev/webpio/core"
	"github.com/Skryldev/webpio/imageio"
)

func lossless() *core.EncoderOptions {
	o := core.DefaultEncoderOptions()
	o.Lossless = true
	return o
}

func TestNRGBARoundTrip(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 23, 11))
	for y := 0; y < 11; y++ {
		for x := 0; x < 23; x++ {
			src.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 11), G: uint8(y * 23), B: uint8(x ^ y), A: uint8(1 + x*y)})
		}
	}
	var buf bytes.Buffer
	if err := imageio.Encode(&buf, src, lossless()); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	cfg, err := imageio.DecodeConfig(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("DecodeConfig: %v", err)
	}
	if cfg.Width != 23 || cfg.Height != 11 {
		t.Fatalf("config = %dx%d", cfg.Width, cfg.Height)
	}

	got, err := imageio.Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	n, ok := got.(*image.NRGBA)
	if !ok {
		t.Fatalf("decoded %T", got)
	}
	if !bytes.Equal(n.Pix, src.Pix) {
		t.Error("pixels changed")
	}
}

func TestOpaqueImageUsesRGB(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range src.Pix {
		src.Pix[i] = uint8(i * 4)
	}
	var buf bytes.Buffer
	if err := imageio.Encode(&buf, src, lossless()); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := imageio.Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			c := got.At(x, y).(color.NRGBA)
			v := src.GrayAt(x, y).Y
			if c.R != v || c.G != v || c.B != v || c.A != 0xff {
				t.Fatalf("(%d,%d) = %v, want gray %d", x, y, c, v)
			}
		}
	}
}

func TestSubImageEncode(t *testing.T) {
	full := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for i := range full.Pix {
		full.Pix[i] = uint8(i) | 1
	}
	sub := full.SubImage(image.Rect(4, 4, 12, 10)).(*image.NRGBA)
	var buf bytes.Buffer
	if err := imageio.Encode(&buf, sub, lossless()); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := imageio.Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if b := got.Bounds(); b.Dx() != 8 || b.Dy() != 6 {
		t.Fatalf("bounds = %v", b)
	}
	if got.At(0, 0) != sub.At(4, 4) {
		t.Errorf("origin = %v, want %v", got.At(0, 0), sub.At(4, 4))
	}
}

func TestDecodeWithOptionsScales(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 40, 20))
	for i := range src.Pix {
		src.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	if err := imageio.Encode(&buf, src, nil); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	opts := core.DefaultDecoderOptions()
	opts.Scale = core.Scale{Enabled: true, Height: 5}
	got, err := imageio.DecodeWithOptions(context.Background(), &buf, opts)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if b := got.Bounds(); b.Dx() != 10 || b.Dy() != 5 {
		t.Fatalf("bounds = %v, want 10x5", b)
	}
}

func TestLookup(t *testing.T) {
	for _, key := range []string{"webp", "WEBP", "image/webp", ".webp", "WebP"} {
		p, ok := imageio.Lookup(key)
		if !ok || p.Name != "webp" || p.Codec == nil {
			t.Errorf("Lookup(%q) = %v, %v", key, p, ok)
		}
	}
	for _, key := range []string{"png", "image/jpeg", ""} {
		if _, ok := imageio.Lookup(key); ok {
			t.Errorf("Lookup(%q) matched", key)
		}
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := imageio.Decode(bytes.NewReader([]byte("not a webp"))); err == nil {
		t.Fatal("expected error")
	}
	if _, err := imageio.Decode(bytes.NewReader(nil)); err == nil {
		t.Fatal("expected error for empty input")
	}
}

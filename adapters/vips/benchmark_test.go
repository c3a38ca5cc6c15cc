//go:build vips

package vips_test

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/Skryldev/webpio/adapters/codec"
	"github.com/Skryldev/webpio/adapters/vips"
	"github.com/Skryldev/webpio/config"
	"github.com/Skryldev/webpio/core"
)

var backend *vips.Codec

func TestMain(m *testing.M) {
	backend = vips.NewCodec(vips.BackendConfig{})
	defer backend.Shutdown()
	m.Run()
}

func makePixels(w, h int) []byte {
	pix := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 4
			pix[i+0] = uint8(x * 255 / w)
			pix[i+1] = uint8(y * 255 / h)
			pix[i+2] = 128
			pix[i+3] = 255
		}
	}
	return pix
}

func newBridge(tb testing.TB, b config.Backend) *core.Bridge {
	tb.Helper()
	cfg := config.Default()
	cfg.Backend = b
	reg := core.NewRegistry()
	codec.Register(reg)
	vips.Register(reg, backend)
	return core.New(cfg, reg)
}

func makeWebP(tb testing.TB, w, h int) []byte {
	tb.Helper()
	br := newBridge(tb, config.BackendGo)
	out, err := br.Encode(context.Background(), makePixels(w, h), w, h, w*4, core.LayoutRGBA, core.DefaultEncoderOptions())
	if err != nil {
		tb.Fatal(err)
	}
	return out
}

func TestVipsRoundTrip(t *testing.T) {
	br := newBridge(t, config.BackendVips)
	const w, h = 33, 17
	opts := core.DefaultEncoderOptions()
	opts.Lossless = true
	enc, err := br.Encode(context.Background(), makePixels(w, h), w, h, w*4, core.LayoutRGBA, opts)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	dopts := core.DefaultDecoderOptions()
	dopts.Crop = core.Crop{Enabled: true, Left: 3, Top: 1, Width: 20, Height: 10}
	dopts.Scale = core.Scale{Enabled: true, Width: 10}
	res, err := br.Decode(context.Background(), enc, dopts, binary.LittleEndian)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if res.Width != 10 || res.Height != 5 {
		t.Fatalf("size = %dx%d, want 10x5", res.Width, res.Height)
	}
}

// ─── Decode ───────────────────────────────────────────────────────────────────

func benchDecode(b *testing.B, be config.Backend, opts *core.DecoderOptions) {
	raw := makeWebP(b, 1920, 1080)
	br := newBridge(b, be)

	b.ReportAllocs()
	b.SetBytes(int64(len(raw)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := br.Decode(context.Background(), raw, opts, binary.LittleEndian); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDecode_Go_1920x1080(b *testing.B) {
	benchDecode(b, config.BackendGo, core.DefaultDecoderOptions())
}

func BenchmarkDecode_Vips_1920x1080(b *testing.B) {
	benchDecode(b, config.BackendVips, core.DefaultDecoderOptions())
}

// ─── Scale ────────────────────────────────────────────────────────────────────

func scaled() *core.DecoderOptions {
	o := core.DefaultDecoderOptions()
	o.Scale = core.Scale{Enabled: true, Width: 960}
	return o
}

func BenchmarkScale_Go_1920to960(b *testing.B)   { benchDecode(b, config.BackendGo, scaled()) }
func BenchmarkScale_Vips_1920to960(b *testing.B) { benchDecode(b, config.BackendVips, scaled()) }

// ─── Encode ───────────────────────────────────────────────────────────────────

func benchEncode(b *testing.B, be config.Backend) {
	pix := makePixels(800, 600)
	br := newBridge(b, be)
	opts := core.DefaultEncoderOptions()
	opts.Quality = 80

	b.ReportAllocs()
	b.SetBytes(int64(len(pix)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := br.Encode(context.Background(), pix, 800, 600, 800*4, core.LayoutRGBA, opts); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEncode_Go(b *testing.B)   { benchEncode(b, config.BackendGo) }
func BenchmarkEncode_Vips(b *testing.B) { benchEncode(b, config.BackendVips) }

package webpio_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"image"
	"image/color"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Skryldev/webpio"
	"github.com/Skryldev/webpio/config"
	"github.com/Skryldev/webpio/core"
	apperrors "github.com/Skryldev/webpio/errors"
	"github.com/Skryldev/webpio/hooks"
)

// ── Test helpers ──────────────────────────────────────────────────────────────

func newPixels(w, h int) []byte {
	pix := make([]byte, w*h*4)
	for i := 0; i < w*h; i++ {
		pix[i*4+0] = 200
		pix[i*4+1] = uint8(i)
		pix[i*4+2] = 50
		pix[i*4+3] = 255
	}
	return pix
}

func newBridge(t *testing.T) *webpio.Bridge {
	t.Helper()
	cfg := webpio.DefaultConfig()
	cfg.WorkerCount = 2
	cfg.QueueSize = 16
	b := webpio.New(cfg)
	b.Start()
	t.Cleanup(b.Stop)
	return b
}

func newWebP(t *testing.T, b *webpio.Bridge, w, h int) []byte {
	t.Helper()
	out, err := b.Encode(context.Background(), newPixels(w, h), w, h, w*4, webpio.RGBA, webpio.DefaultEncoderOptions())
	if err != nil {
		t.Fatalf("encode test webp: %v", err)
	}
	return out
}

// ── Unit tests ────────────────────────────────────────────────────────────────

func TestDecode_NativeOrder(t *testing.T) {
	b := newBridge(t)
	raw := newWebP(t, b, 64, 48)

	res, err := b.Decode(context.Background(), raw, webpio.DefaultDecoderOptions())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if res.Width != 64 || res.Height != 48 || len(res.Pixels) != 64*48*4 {
		t.Fatalf("result %dx%d, %d bytes", res.Width, res.Height, len(res.Pixels))
	}
	for p := 0; p < 64*48; p++ {
		if a := binary.NativeEndian.Uint32(res.Pixels[p*4:]) >> 24; a != 0xff {
			t.Fatalf("pixel %d alpha = %#x", p, a)
		}
	}
}

func TestDecode_ContextCancel(t *testing.T) {
	b := newBridge(t)
	raw := newWebP(t, b, 16, 16)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	res, err := b.Decode(ctx, raw, webpio.DefaultDecoderOptions())
	if err == nil {
		t.Fatal("expected context cancellation error, got nil")
	}
	if res.Status != apperrors.StatusUserAbort {
		t.Errorf("status = %s, want user_abort", res.Status)
	}
}

func TestDecode_NilOptions(t *testing.T) {
	b := newBridge(t)
	raw := newWebP(t, b, 8, 8)
	_, err := b.Decode(context.Background(), raw, nil)
	if !apperrors.IsKind(err, apperrors.KindInvalidParameter) {
		t.Fatalf("err = %v", err)
	}
}

func TestDecodeInto_ShortBuffer(t *testing.T) {
	b := newBridge(t)
	raw := newWebP(t, b, 10, 10)
	dst := make([]byte, 10*10*4-1)
	res, err := b.DecodeInto(context.Background(), raw, webpio.DefaultDecoderOptions(), core.ModeBGRA, dst)
	if err == nil || res.Status != apperrors.StatusInvalidParam {
		t.Fatalf("short buffer: %v, %v", res.Status, err)
	}
}

func TestEncode_Image(t *testing.T) {
	b := newBridge(t)
	img := image.NewNRGBA(image.Rect(0, 0, 30, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 30; x++ {
			img.Set(x, y, color.NRGBA{R: 50, G: 50, B: 200, A: 128})
		}
	}
	var buf bytes.Buffer
	if err := b.EncodeImage(context.Background(), &buf, img, nil); err != nil {
		t.Fatalf("EncodeImage: %v", err)
	}
	f, err := b.GetFeatures(buf.Bytes())
	if err != nil {
		t.Fatalf("GetFeatures: %v", err)
	}
	if f.Width != 30 || f.Height != 20 || !f.HasAlpha {
		t.Errorf("features = %+v", f)
	}
	got, err := b.DecodeImage(context.Background(), &buf, webpio.DefaultDecoderOptions())
	if err != nil {
		t.Fatalf("DecodeImage: %v", err)
	}
	if got.Bounds().Dx() != 30 {
		t.Errorf("width = %d", got.Bounds().Dx())
	}
}

func TestEncode_InvalidOptions(t *testing.T) {
	b := newBridge(t)
	opts := webpio.DefaultEncoderOptions()
	opts.Method = 9
	_, err := b.Encode(context.Background(), newPixels(4, 4), 4, 4, 16, webpio.RGBA, opts)
	if apperrors.StatusOf(err) != apperrors.StatusInvalidParam {
		t.Fatalf("err = %v", err)
	}
}

func TestEncode_TargetSize(t *testing.T) {
	b := newBridge(t)
	const w, h = 128, 128
	pix := make([]byte, w*h*3)
	for i := range pix {
		pix[i] = uint8(i*7919 ^ i>>3)
	}
	opts := webpio.DefaultEncoderOptions()
	opts.Quality = 100
	full, err := b.Encode(context.Background(), pix, w, h, w*3, webpio.RGB, opts)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	opts.TargetSize = len(full) / 2
	opts.Pass = 10
	small, err := b.Encode(context.Background(), pix, w, h, w*3, webpio.RGB, opts)
	if err != nil {
		t.Fatalf("Encode with target: %v", err)
	}
	if len(small) >= len(full) {
		t.Errorf("target size not pursued: %d >= %d", len(small), len(full))
	}
}

// ── Concurrency tests ─────────────────────────────────────────────────────────

func TestDecode_ConcurrentSafety(t *testing.T) {
	b := newBridge(t)
	raw := newWebP(t, b, 100, 100)

	const goroutines = 20
	var wg sync.WaitGroup
	errs := make([]error, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			opts := webpio.DefaultDecoderOptions()
			opts.Scale = core.Scale{Enabled: true, Width: 50}
			_, errs[idx] = b.Decode(context.Background(), raw, opts)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("goroutine %d: %v", i, err)
		}
	}
}

// ── Batch test ────────────────────────────────────────────────────────────────

func TestBatch(t *testing.T) {
	b := newBridge(t)
	raw := newWebP(t, b, 40, 40)

	reqs := make([]core.DecodeRequest, 5)
	for i := range reqs {
		reqs[i] = core.DecodeRequest{Data: raw, Options: webpio.DefaultDecoderOptions(), Mode: core.ModeRGBA}
	}
	reqs[4].Data = []byte("broken")

	results, errs := b.Batch(context.Background(), reqs)
	for i := 0; i < 4; i++ {
		if errs[i] != nil {
			t.Errorf("batch[%d]: %v", i, errs[i])
		}
		if results[i] == nil || results[i].Width != 40 {
			t.Errorf("batch[%d]: bad result", i)
		}
	}
	if errs[4] == nil {
		t.Error("batch[4]: expected error")
	}
}

// ── Async worker pool test ────────────────────────────────────────────────────

func TestWorkerPool_Async(t *testing.T) {
	b := newBridge(t)
	raw := newWebP(t, b, 100, 100)

	opts := webpio.DefaultDecoderOptions()
	opts.Scale = core.Scale{Enabled: true, Width: 50}
	resultCh := make(chan core.JobResult, 2)
	id, err := b.Submit(core.Job{
		Kind:     core.JobDecode,
		Decode:   core.DecodeRequest{Data: raw, Options: opts, Mode: core.ModeARGB},
		ResultCh: resultCh,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id == "" {
		t.Fatal("no job ID assigned")
	}

	_, err = b.Submit(core.Job{
		ID:       "encode-1",
		Kind:     core.JobEncode,
		Encode:   core.EncodeRequest{Pixels: newPixels(8, 8), Width: 8, Height: 8, Stride: 32, Layout: core.LayoutRGBA, Options: webpio.DefaultEncoderOptions()},
		ResultCh: resultCh,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	for i := 0; i < 2; i++ {
		select {
		case res := <-resultCh:
			if res.Err != nil {
				t.Fatalf("async job %s error: %v", res.JobID, res.Err)
			}
			switch res.JobID {
			case id:
				if res.Decoded.Width != 50 {
					t.Errorf("async width: got %d, want 50", res.Decoded.Width)
				}
			case "encode-1":
				if len(res.Encoded) == 0 {
					t.Error("async encode produced nothing")
				}
			default:
				t.Errorf("unexpected job %q", res.JobID)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("async job timed out")
		}
	}
}

// ── Hooks /Metrics test ──────────────────────────────────────────────────────

func TestMetricsHook(t *testing.T) {
	m := hooks.NewInMemoryMetrics()
	b := newBridge(t)
	b.SetMetrics(m)
	b.AddHook(hooks.NewLoggingHook(hooks.NewSlogLogger(slog.New(slog.DiscardHandler))))

	raw := newWebP(t, b, 32, 32)
	if _, err := b.Decode(context.Background(), raw, webpio.DefaultDecoderOptions()); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	b.Decode(context.Background(), []byte("junk"), webpio.DefaultDecoderOptions())

	snap := m.Snapshot()
	if snap.Calls["decode"] != 2 || snap.Calls["encode"] != 1 {
		t.Errorf("calls = %v", snap.Calls)
	}
	if snap.Errors["decode.codec"] != 1 {
		t.Errorf("errors = %v", snap.Errors)
	}
	if snap.BytesOut < 32*32*4 {
		t.Errorf("bytes out = %d", snap.BytesOut)
	}
	if processed, failed := b.Stats(); processed != 2 || failed != 1 {
		t.Errorf("stats = %d, %d", processed, failed)
	}
}

// ── Config validation test ────────────────────────────────────────────────────

func TestConfigValidation(t *testing.T) {
	cfg := config.Default()
	cfg.DefaultQuality = 101 // invalid
	if err := config.Validate(cfg); err == nil {
		t.Error("expected validation error for quality=101")
	}
}

func TestUnknownBackend(t *testing.T) {
	cfg := webpio.DefaultConfig()
	cfg.Backend = config.BackendVips
	b := webpio.New(cfg)
	_, err := b.GetInfo([]byte("RIFF\x00\x00\x00\x00WEBP"))
	if apperrors.StatusOf(err) != apperrors.StatusInvalidParam {
		t.Fatalf("err = %v", err)
	}
}

// ── Benchmarks ────────────────────────────────────────────────────────────────

func BenchmarkDecode_1920x1080(b *testing.B) {
	br := webpio.New(webpio.DefaultConfig())
	pix := newPixels(1920, 1080)
	raw, err := br.Encode(context.Background(), pix, 1920, 1080, 1920*4, webpio.RGBA, webpio.DefaultEncoderOptions())
	if err != nil {
		b.Fatal(err)
	}
	opts := webpio.DefaultDecoderOptions()

	b.ReportAllocs()
	b.SetBytes(int64(len(raw)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := br.Decode(context.Background(), raw, opts); err != nil {
			b.Fatalf("Decode: %v", err)
		}
	}
}

package core_test

import (
	"image"
	"io"
	"sync"
	"testing"

	"github.com/Skryldev/webpio/config"
	"github.com/Skryldev/webpio/core"
	apperrors "github.com/Skryldev/webpio/errors"
)

// fakeCodec records what the bridge hands it and returns canned results.
type fakeCodec struct {
	features   core.Features
	featureErr error
	decodeErr  error
	encodeErr  error
	// encodeSize returns the output length for a quality; nil means 100 bytes.
	encodeSize func(q float32) int

	decodeCalls int
	lastDecode  *core.DecoderConfig
	qualities   []float32
	useARGB     []bool
	lastPic     []byte
	lastAlpha   []byte // alpha plane of a Y'CbCr picture
}

func (f *fakeCodec) Name() string { return "fake" }

func (f *fakeCodec) GetFeatures([]byte) (core.Features, error) {
	return f.features, f.featureErr
}

func (f *fakeCodec) DecodeInto(_ []byte, cfg *core.DecoderConfig) error {
	f.decodeCalls++
	f.lastDecode = cfg
	if f.decodeErr != nil {
		return f.decodeErr
	}
	for i := range cfg.Output.Pix {
		cfg.Output.Pix[i] = byte(i)
	}
	return nil
}

func (f *fakeCodec) Encode(pic *core.Picture, opts *core.EncoderOptions, w io.Writer) error {
	f.qualities = append(f.qualities, opts.Quality)
	f.useARGB = append(f.useARGB, pic.UseARGB)
	switch m := pic.Image().(type) {
	case *image.NRGBA:
		f.lastPic = append([]byte(nil), m.Pix...)
	case *image.NYCbCrA:
		f.lastAlpha = append([]byte(nil), m.A...)
	}
	if f.encodeErr != nil {
		return f.encodeErr
	}
	n := 100
	if f.encodeSize != nil {
		n = f.encodeSize(opts.Quality)
	}
	// Several small writes so the sink has to grow.
	chunk := make([]byte, 3000)
	for n > 0 {
		c := min(n, len(chunk))
		if _, err := w.Write(chunk[:c]); err != nil {
			return err
		}
		n -= c
	}
	return nil
}

// trackingAllocator counts allocations and can fail the n-th one.
type trackingAllocator struct {
	mu     sync.Mutex
	allocs int
	frees  int
	failAt int // 1-based; 0 never fails
}

func (a *trackingAllocator) Alloc(n int) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failAt > 0 && a.allocs+1 == a.failAt {
		a.failAt = 0
		return nil, apperrors.New(apperrors.StatusOutOfMemory, "alloc", nil)
	}
	a.allocs++
	return make([]byte, n), nil
}

func (a *trackingAllocator) Free([]byte) {
	a.mu.Lock()
	a.frees++
	a.mu.Unlock()
}

func (a *trackingAllocator) assertBalanced(t *testing.T) {
	t.Helper()
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.allocs != a.frees {
		t.Errorf("allocator leak: %d allocs, %d frees", a.allocs, a.frees)
	}
}

func newFakeBridge(t *testing.T, fc *fakeCodec, mutate ...func(*config.Config)) (*core.Bridge, *trackingAllocator) {
	t.Helper()
	cfg := config.Default()
	cfg.Backend = "fake"
	for _, m := range mutate {
		m(&cfg)
	}
	reg := core.NewRegistry()
	reg.RegisterCodec("fake", fc)
	b := core.New(cfg, reg)
	alloc := &trackingAllocator{}
	b.SetAllocator(alloc)
	return b, alloc
}

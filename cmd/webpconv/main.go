// Command webpconv converts between WebP and PNG/JPEG and prints WebP header
// information.
//
//	webpconv info   -in photo.webp
//	webpconv decode -in photo.webp -out photo.jpg -crop 10,10,200,100 -scale 100,0
//	webpconv encode -in photo.png  -out photo.webp -quality 80 -lossless
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/Skryldev/webpio"
	"github.com/Skryldev/webpio/config"
	"github.com/Skryldev/webpio/core"
	apperrors "github.com/Skryldev/webpio/errors"
	"github.com/Skryldev/webpio/hooks"
	"github.com/Skryldev/webpio/utils"
)

// backendSetup registers optional codec bindings; see vips.go.
var backendSetup = func(*webpio.Bridge, config.Config) (cleanup func()) { return func() {} }

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	if err := run(os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "webpconv:", err)
		os.Exit(exitCode(err))
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: webpconv info|decode|encode [flags]")
}

func exitCode(err error) int {
	switch apperrors.KindOf(err) {
	case apperrors.KindInvalidParameter:
		return 2
	case apperrors.KindOutOfMemory:
		return 3
	}
	return 1
}

type options struct {
	in, out    string
	backend    string
	logLevel   string
	quality    float64
	method     int
	lossless   bool
	targetSize int
	crop       string
	scale      string
	threads    bool
	pointwise  bool
}

func run(cmd string, args []string) error {
	var o options
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.StringVar(&o.in, "in", "-", "input file (- for stdin)")
	fs.StringVar(&o.out, "out", "-", "output file (- for stdout)")
	fs.StringVar(&o.backend, "backend", string(config.BackendGo), "codec backend: go or vips")
	fs.StringVar(&o.logLevel, "log-level", "warn", "debug, info, warn or error")
	fs.Float64Var(&o.quality, "quality", 75, "encode quality 0-100")
	fs.IntVar(&o.method, "method", 4, "encode method 0 (fast) - 6 (small)")
	fs.BoolVar(&o.lossless, "lossless", false, "lossless encode")
	fs.IntVar(&o.targetSize, "target-size", 0, "lossy encode target size in bytes")
	fs.StringVar(&o.crop, "crop", "", "decode crop left,top,width,height")
	fs.StringVar(&o.scale, "scale", "", "decode scale width,height (0 keeps aspect)")
	fs.BoolVar(&o.threads, "threads", false, "parallel pixel packing")
	fs.BoolVar(&o.pointwise, "no-fancy-upsampling", false, "nearest-neighbour rescale")
	if err := fs.Parse(args); err != nil {
		return apperrors.New(apperrors.StatusInvalidParam, "flags", err)
	}

	cfg := config.Default()
	cfg.Backend = config.Backend(o.backend)
	cfg.LogLevel = o.logLevel
	cfg.DefaultQuality = float32(o.quality)
	cfg.DefaultMethod = o.method
	if err := config.Validate(cfg); err != nil {
		return apperrors.New(apperrors.StatusInvalidParam, "config", err)
	}
	level, _ := config.ParseLogLevel(cfg.LogLevel)
	logger := hooks.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	br := webpio.New(cfg)
	br.SetLogger(logger)
	br.AddHook(hooks.NewLoggingHook(logger))
	defer backendSetup(br, cfg)()

	ctx := context.Background()
	switch cmd {
	case "info":
		return info(ctx, br, cfg, o)
	case "decode":
		return decode(ctx, br, cfg, o)
	case "encode":
		return encode(ctx, br, cfg, o)
	}
	usage()
	return apperrors.New(apperrors.StatusInvalidParam, "command", fmt.Errorf("unknown command %q", cmd))
}

func readInput(ctx context.Context, cfg config.Config, path string) ([]byte, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, apperrors.New(apperrors.StatusInvalidParam, "open", err)
		}
		defer f.Close()
		r = f
	}
	data, err := utils.ReadPayload(ctx, r, cfg.MaxPayloadBytes, cfg.ChunkSize)
	if errors.Is(err, utils.ErrTooLarge) {
		return nil, apperrors.New(apperrors.StatusOutOfMemory, "read", err)
	}
	return data, err
}

func writeOutput(cfg config.Config, path string, fn func(io.Writer) error) error {
	var w io.Writer = os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return fn(&utils.ChunkedWriter{W: w, ChunkSize: cfg.ChunkSize})
}

func info(ctx context.Context, br *webpio.Bridge, cfg config.Config, o options) error {
	data, err := readInput(ctx, cfg, o.in)
	if err != nil {
		return err
	}
	f, err := br.GetFeatures(data)
	if err != nil {
		return err
	}
	fmt.Printf("%dx%d format=%s alpha=%t animation=%t\n", f.Width, f.Height, f.Format, f.HasAlpha, f.HasAnimation)
	return nil
}

func decode(ctx context.Context, br *webpio.Bridge, cfg config.Config, o options) error {
	data, err := readInput(ctx, cfg, o.in)
	if err != nil {
		return err
	}
	if ct := utils.DetectContentType(data); ct != utils.MIMEWebP {
		return apperrors.New(apperrors.StatusBitstreamError, "decode", fmt.Errorf("%w: input is %s", apperrors.ErrBitstream, ct))
	}
	opts := webpio.DefaultDecoderOptions()
	opts.UseThreads = o.threads
	opts.NoFancyUpsampling = o.pointwise
	if o.crop != "" {
		v, err := ints(o.crop, 4)
		if err != nil {
			return err
		}
		opts.Crop = core.Crop{Enabled: true, Left: v[0], Top: v[1], Width: v[2], Height: v[3]}
	}
	if o.scale != "" {
		v, err := ints(o.scale, 2)
		if err != nil {
			return err
		}
		opts.Scale = core.Scale{Enabled: true, Width: v[0], Height: v[1]}
	}

	img, err := br.DecodeImage(ctx, bytes.NewReader(data), opts)
	if err != nil {
		return err
	}
	return writeOutput(cfg, o.out, func(w io.Writer) error { return writeRaster(w, o.out, img) })
}

// writeRaster picks the output format from the file suffix; PNG otherwise.
func writeRaster(w io.Writer, path string, img image.Image) error {
	if utils.HasSuffix(path, "jpg", "jpeg") {
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
	}
	return png.Encode(w, img)
}

func encode(ctx context.Context, br *webpio.Bridge, cfg config.Config, o options) error {
	data, err := readInput(ctx, cfg, o.in)
	if err != nil {
		return err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return apperrors.New(apperrors.StatusBitstreamError, "encode.input",
			fmt.Errorf("%w: %s input: %w", apperrors.ErrUnsupported, utils.DetectContentType(data), err))
	}

	opts := webpio.DefaultEncoderOptions()
	opts.Quality = cfg.DefaultQuality
	opts.Method = cfg.DefaultMethod
	opts.Lossless = o.lossless
	opts.TargetSize = o.targetSize
	if o.targetSize > 0 {
		opts.Pass = 10
	}
	return writeOutput(cfg, o.out, func(w io.Writer) error { return br.EncodeImage(ctx, w, img, opts) })
}

func ints(s string, n int) ([]int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, apperrors.New(apperrors.StatusInvalidParam, "flags",
			fmt.Errorf("%w: %q needs %d comma-separated integers", apperrors.ErrInvalidParam, s, n))
	}
	out := make([]int, n)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, apperrors.New(apperrors.StatusInvalidParam, "flags", err)
		}
		out[i] = v
	}
	return out, nil
}

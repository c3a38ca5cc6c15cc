package core

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Skryldev/webpio/config"
	apperrors "github.com/Skryldev/webpio/errors"
)

// Bridge is the central orchestrator between callers and a codec library.
// Calls are stateless and safe for concurrent use with distinct buffers.
type Bridge struct {
	cfg      config.Config
	registry Registry
	alloc    Allocator
	hooks    []Hook
	logger   Logger

	// Worker pool.
	jobQueue chan Job
	wg       sync.WaitGroup
	once     sync.Once
	stopOnce sync.Once
	shutdown chan struct{}

	// Atomic counters for lightweight internal metrics.
	processedCount int64
	errorCount     int64
}

// New creates a Bridge with the given config.  Call Start() before
// submitting jobs; call Stop() when done.
func New(cfg config.Config, reg Registry) *Bridge {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	var limit int64
	if cfg.MaxPixels > 0 {
		limit = cfg.MaxPixels * BytesPerPixel
	}
	return &Bridge{
		cfg:      cfg,
		registry: reg,
		alloc:    HeapAllocator{Limit: limit},
		jobQueue: make(chan Job, queueSize),
		shutdown: make(chan struct{}),
	}
}

// SetLogger attaches a structured logger.
func (b *Bridge) SetLogger(l Logger) { b.logger = l }

// SetAllocator replaces the allocator used for pictures and memory sinks.
func (b *Bridge) SetAllocator(a Allocator) { b.alloc = a }

// AddHook registers a call hook.
func (b *Bridge) AddHook(h Hook) { b.hooks = append(b.hooks, h) }

// Registry returns the underlying registry so callers can register codecs
// after construction.
func (b *Bridge) Registry() Registry { return b.registry }

// Config returns the configuration the bridge was built with.
func (b *Bridge) Config() config.Config { return b.cfg }

// codec resolves the configured backend.
func (b *Bridge) codec() (Codec, error) {
	c, ok := b.registry.CodecFor(string(b.cfg.Backend))
	if !ok {
		return nil, apperrors.New(apperrors.StatusInvalidParam, "bridge.codec",
			fmt.Errorf("%w: no codec registered for backend %q", apperrors.ErrInvalidParam, b.cfg.Backend))
	}
	return c, nil
}

// Start launches the worker pool.  It is idempotent.
func (b *Bridge) Start() {
	b.once.Do(func() {
		workerCount := b.cfg.WorkerCount
		if workerCount <= 0 {
			workerCount = runtime.NumCPU()
		}
		for i := 0; i < workerCount; i++ {
			b.wg.Add(1)
			go b.worker()
		}
	})
}

// Stop shuts down all workers.  Queued jobs that were not picked up are
// dropped.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() { close(b.shutdown) })
	b.wg.Wait()
}

// Submit enqueues an async job.  Returns ErrWorkerPoolFull if the queue is
// full.  Jobs without an ID get a random one.
func (b *Bridge) Submit(job Job) (string, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Ctx == nil {
		job.Ctx = context.Background()
	}
	select {
	case b.jobQueue <- job:
		return job.ID, nil
	default:
		return job.ID, apperrors.New(apperrors.StatusSuspended, "submit", apperrors.ErrWorkerPoolFull)
	}
}

// Batch decodes multiple payloads concurrently (fan-out / fan-in).
func (b *Bridge) Batch(ctx context.Context, reqs []DecodeRequest) ([]*DecodeResult, []error) {
	results := make([]*DecodeResult, len(reqs))
	errs := make([]error, len(reqs))
	var wg sync.WaitGroup

	for i, req := range reqs {
		wg.Add(1)
		go func(idx int, r DecodeRequest) {
			defer wg.Done()
			results[idx], errs[idx] = b.DecodeMode(ctx, r.Data, r.Options, r.Mode)
		}(i, req)
	}
	wg.Wait()
	return results, errs
}

// ── worker pool internals ──────────────────────────────────────────────────────

func (b *Bridge) worker() {
	defer b.wg.Done()
	for {
		select {
		case <-b.shutdown:
			return
		case job, ok := <-b.jobQueue:
			if !ok {
				return
			}
			b.processJob(job)
		}
	}
}

func (b *Bridge) processJob(job Job) {
	res := JobResult{JobID: job.ID}
	switch job.Kind {
	case JobDecode:
		r := job.Decode
		res.Decoded, res.Err = b.DecodeMode(job.Ctx, r.Data, r.Options, r.Mode)
	case JobEncode:
		r := job.Encode
		res.Encoded, res.Err = b.Encode(job.Ctx, r.Pixels, r.Width, r.Height, r.Stride, r.Layout, r.Options)
	default:
		res.Err = apperrors.New(apperrors.StatusInvalidParam, "job",
			fmt.Errorf("%w: job kind %d", apperrors.ErrInvalidParam, job.Kind))
	}
	if res.Err != nil && b.logger != nil {
		b.logger.Warn("bridge.job.failed", "job", job.ID, "status", apperrors.StatusOf(res.Err).String(), "error", res.Err.Error())
	}
	if job.ResultCh != nil {
		job.ResultCh <- res
	}
}

// ── call bookkeeping ──────────────────────────────────────────────────────────

// begin checks ctx before any work starts; calls are never interrupted once
// they run.
func (b *Bridge) begin(ctx context.Context, info CallInfo) error {
	for _, h := range b.hooks {
		h.BeforeCall(ctx, info)
	}
	if err := ctx.Err(); err != nil {
		return apperrors.New(apperrors.StatusUserAbort, info.Op, err)
	}
	return nil
}

func (b *Bridge) end(ctx context.Context, info CallInfo, start time.Time, err error) {
	d := time.Since(start)
	for _, h := range b.hooks {
		h.AfterCall(ctx, info, d, err)
	}
	if err != nil {
		atomic.AddInt64(&b.errorCount, 1)
		return
	}
	atomic.AddInt64(&b.processedCount, 1)
}

// ProcessedCount returns the total number of successful calls.
func (b *Bridge) ProcessedCount() int64 { return atomic.LoadInt64(&b.processedCount) }

// ErrorCount returns the total number of failed calls.
func (b *Bridge) ErrorCount() int64 { return atomic.LoadInt64(&b.errorCount) }

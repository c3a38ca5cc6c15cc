package utils

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
)

// ErrTooLarge is returned by LimitedReader once the source exceeds Max bytes.
var ErrTooLarge = errors.New("payload exceeds size limit")

// maxPooledBuffer is the largest buffer kept for reuse.
const maxPooledBuffer = 8 << 20

var bufPool = sync.Pool{
	New: func() interface{} { return new(bytes.Buffer) },
}

// AcquireBuffer returns a reset buffer from the pool.
func AcquireBuffer() *bytes.Buffer {
	b := bufPool.Get().(*bytes.Buffer)
	b.Reset()
	return b
}

// ReleaseBuffer returns b to the pool.  Callers must not use b after this call.
func ReleaseBuffer(b *bytes.Buffer) {
	if b.Cap() > maxPooledBuffer {
		return
	}
	bufPool.Put(b)
}

// DrainReader reads r to EOF into a pooled buffer, at most chunkSize bytes
// per Read, checking ctx between reads.  Pass the buffer back with
// ReleaseBuffer once its bytes are no longer used.
func DrainReader(ctx context.Context, r io.Reader, chunkSize int) (*bytes.Buffer, error) {
	if chunkSize <= 0 {
		chunkSize = 32 * 1024
	}
	buf := AcquireBuffer()
	for {
		if err := ctx.Err(); err != nil {
			ReleaseBuffer(buf)
			return nil, err
		}
		buf.Grow(chunkSize)
		free := buf.AvailableBuffer()[:chunkSize]
		n, err := r.Read(free)
		buf.Write(free[:n])
		if err == io.EOF {
			return buf, nil
		}
		if err != nil {
			ReleaseBuffer(buf)
			return nil, err
		}
	}
}

// ReadPayload drains r into a freshly allocated slice, refusing sources
// longer than max bytes (0 = no limit).
func ReadPayload(ctx context.Context, r io.Reader, max int64, chunkSize int) ([]byte, error) {
	if max > 0 {
		r = &LimitedReader{R: r, Max: max}
	}
	buf, err := DrainReader(ctx, r, chunkSize)
	if err != nil {
		return nil, err
	}
	defer ReleaseBuffer(buf)
	return CloneBytes(buf.Bytes()), nil
}

// LimitedReader wraps r and returns ErrTooLarge when more than Max bytes are
// available.
type LimitedReader struct {
	R   io.Reader
	Max int64
	n   int64
}

func (l *LimitedReader) Read(p []byte) (int, error) {
	if l.Max <= 0 {
		return l.R.Read(p)
	}
	if l.n >= l.Max {
		var one [1]byte
		n, err := l.R.Read(one[:])
		if n > 0 {
			return 0, ErrTooLarge
		}
		return 0, err
	}
	remain := l.Max - l.n
	if int64(len(p)) > remain {
		p = p[:remain]
	}
	n, err := l.R.Read(p)
	l.n += int64(n)
	return n, err
}

// ChunkedWriter splits writes into fixed-size chunks.
type ChunkedWriter struct {
	W         io.Writer
	ChunkSize int
}

func (c *ChunkedWriter) Write(p []byte) (int, error) {
	if c.ChunkSize <= 0 {
		return c.W.Write(p)
	}
	total := 0
	for len(p) > 0 {
		end := c.ChunkSize
		if end > len(p) {
			end = len(p)
		}
		n, err := c.W.Write(p[:end])
		total += n
		if err != nil {
			return total, err
		}
		p = p[end:]
	}
	return total, nil
}

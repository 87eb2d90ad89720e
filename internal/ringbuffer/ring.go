// Package ringbuffer implements a bounded single-producer, single-consumer
// byte pipe used to overlap file reads with hashing.
package ringbuffer

import (
	"errors"
	"io"
	"sync"
)

// ErrClosed is returned when writing to a buffer whose writer side was closed.
var ErrClosed = errors.New("ringbuffer: write to closed buffer")

// RingBuffer is a fixed-size circular buffer. At most one goroutine may
// write (Write, ReadFrom) and one may read (Read, WriteTo) at a time.
type RingBuffer struct {
	m        sync.Mutex
	readable *sync.Cond
	writable *sync.Cond
	buf      []byte

	start int // next byte to read
	size  int // bytes buffered

	err error // set once closed; io.EOF for a clean close
}

func New(size int) *RingBuffer {
	r := &RingBuffer{buf: make([]byte, size)}
	r.readable = sync.NewCond(&r.m)
	r.writable = sync.NewCond(&r.m)
	return r
}

// Read reads buffered bytes, blocking while the buffer is empty and open.
// Once the buffer is closed and drained it returns the close error.
func (r *RingBuffer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	r.m.Lock()
	defer r.m.Unlock()
	for r.size == 0 && r.err == nil {
		r.readable.Wait()
	}
	if r.size == 0 {
		return 0, r.err
	}

	w := 0
	for w < len(p) && r.size > 0 {
		n := copy(p[w:], r.filled())
		r.consume(n)
		w += n
	}
	r.writable.Signal()
	return w, nil
}

// Write copies p into the buffer, blocking while it is full.
func (r *RingBuffer) Write(p []byte) (int, error) {
	r.m.Lock()
	defer r.m.Unlock()

	w := 0
	for w < len(p) {
		for r.full() && r.err == nil {
			r.writable.Wait()
		}
		if r.err != nil {
			return w, ErrClosed
		}
		n := copy(r.free(), p[w:])
		r.size += n
		w += n
		r.readable.Signal()
	}
	return w, nil
}

// ReadFrom reads rio into the buffer until EOF. The read itself runs without
// the lock held, directly into the free region, so the consumer can drain
// concurrently.
func (r *RingBuffer) ReadFrom(rio io.Reader) (int64, error) {
	var w int64
	for {
		r.m.Lock()
		for r.full() && r.err == nil {
			r.writable.Wait()
		}
		if r.err != nil {
			r.m.Unlock()
			return w, ErrClosed
		}
		span := r.free()
		r.m.Unlock()

		n, err := rio.Read(span)

		if n > 0 {
			r.m.Lock()
			r.size += n
			r.readable.Signal()
			r.m.Unlock()
			w += int64(n)
		}

		if err != nil {
			if err == io.EOF {
				return w, nil
			}
			return w, err
		}
	}
}

// WriteTo drains the buffer into wio until the writer side is closed. A clean
// close yields a nil error, any other close error is returned.
func (r *RingBuffer) WriteTo(wio io.Writer) (int64, error) {
	var w int64
	for {
		r.m.Lock()
		for r.size == 0 && r.err == nil {
			r.readable.Wait()
		}
		if r.size == 0 {
			err := r.err
			r.m.Unlock()
			if err == io.EOF {
				return w, nil
			}
			return w, err
		}
		span := r.filled()
		r.m.Unlock()

		n, err := wio.Write(span)

		r.m.Lock()
		r.consume(n)
		r.writable.Signal()
		r.m.Unlock()
		w += int64(n)

		if err != nil {
			return w, err
		}
	}
}

func (r *RingBuffer) Len() int {
	r.m.Lock()
	defer r.m.Unlock()
	return r.size
}

func (r *RingBuffer) Size() int {
	return len(r.buf)
}

// CloseWriter marks the end of the stream.
func (r *RingBuffer) CloseWriter() {
	r.CloseWithError(io.EOF)
}

// CloseWithError closes the buffer. The first close wins. Buffered bytes can
// still be read; after that readers see err.
func (r *RingBuffer) CloseWithError(err error) {
	r.m.Lock()
	defer r.m.Unlock()
	if r.err == nil {
		r.err = err
	}
	r.readable.Broadcast()
	r.writable.Broadcast()
}

// Reset empties and reopens the buffer. It must not race with readers or
// writers.
func (r *RingBuffer) Reset() {
	r.m.Lock()
	defer r.m.Unlock()
	r.err = nil
	r.start = 0
	r.size = 0
}

// Bytes returns a copy of the buffered bytes without consuming them.
func (r *RingBuffer) Bytes() []byte {
	r.m.Lock()
	defer r.m.Unlock()

	v := make([]byte, 0, r.size)
	end := r.start + r.size
	if end <= len(r.buf) {
		return append(v, r.buf[r.start:end]...)
	}
	v = append(v, r.buf[r.start:]...)
	return append(v, r.buf[:end-len(r.buf)]...)
}

func (r *RingBuffer) full() bool {
	return r.size == len(r.buf)
}

// filled returns the contiguous readable region starting at start.
func (r *RingBuffer) filled() []byte {
	end := min(r.start+r.size, len(r.buf))
	return r.buf[r.start:end]
}

// free returns the contiguous writable region following the buffered bytes.
func (r *RingBuffer) free() []byte {
	end := (r.start + r.size) % len(r.buf)
	n := min(len(r.buf)-r.size, len(r.buf)-end)
	return r.buf[end : end+n]
}

// consume advances start past n read bytes. start+size stays fixed, so a
// span handed out by free remains valid while the producer fills it.
func (r *RingBuffer) consume(n int) {
	r.start = (r.start + n) % len(r.buf)
	r.size -= n
}

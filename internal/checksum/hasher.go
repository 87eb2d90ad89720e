// Package checksum hashes files concurrently and checks sha1sum style
// checksum lists.
package checksum

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/autobrr/sha1brr/internal/display"
	"github.com/autobrr/sha1brr/internal/logging"
	"github.com/autobrr/sha1brr/internal/ringbuffer"
	"github.com/autobrr/sha1brr/internal/sha1"
	"github.com/autobrr/sha1brr/internal/types"
	pionlog "github.com/pion/logging"
)

// Options configures HashFiles and Verify.
type Options struct {
	Provider sha1.Provider

	// Workers is the number of files hashed in parallel. Zero picks a count
	// from the workload.
	Workers int

	// BufferSize is the ring buffer size per worker. Zero picks a size from
	// the workload.
	BufferSize int

	Display       display.Displayer
	LoggerFactory pionlog.LoggerFactory
}

type fileHasher struct {
	files    []types.EntryFile
	provider sha1.Provider
	display  display.Displayer
	log      pionlog.LeveledLogger

	bufferPool *sync.Pool
	readSize   int

	bytesHashed atomic.Int64
	completed   atomic.Int64
	startTime   time.Time
}

func newFileHasher(files []types.EntryFile, opts Options) *fileHasher {
	d := opts.Display
	if d == nil {
		d = display.Nop{}
	}
	return &fileHasher{
		files:    files,
		provider: sha1.Resolve(opts.Provider),
		display:  d,
		log:      logging.Logger(opts.LoggerFactory, "checksum"),
	}
}

// optimizeForWorkload determines read buffer size and number of worker
// goroutines based on the size and count of the input files.
func (h *fileHasher) optimizeForWorkload() (int, int) {
	if len(h.files) == 0 {
		return 0, 0
	}

	var totalSize int64
	for _, f := range h.files {
		totalSize += f.Length
	}
	avgFileSize := totalSize / int64(len(h.files))

	var readSize, numWorkers int

	// smaller buffers for small files, fewer workers for huge ones since
	// those are bound by disk throughput rather than CPU
	switch {
	case len(h.files) == 1:
		readSize = 1 << 20
		if totalSize < 1<<20 {
			readSize = 64 << 10
		}
		numWorkers = 1
	case avgFileSize < 1<<20:
		readSize = 64 << 10
		numWorkers = min(8, runtime.NumCPU())
	case avgFileSize < 1<<30:
		readSize = 1 << 20
		numWorkers = min(4, runtime.NumCPU())
	default:
		readSize = 4 << 20
		numWorkers = min(2, runtime.NumCPU())
	}

	if numWorkers > len(h.files) {
		numWorkers = len(h.files)
	}
	return readSize, max(numWorkers, 1)
}

// HashFiles hashes every path and returns one result per path, in order.
// Per-file failures are reported in the result, not as the returned error;
// the returned error is only set when ctx is cancelled.
func HashFiles(ctx context.Context, paths []string, opts Options) ([]types.FileDigest, error) {
	files := make([]types.EntryFile, len(paths))
	var offset int64
	for i, p := range paths {
		files[i] = types.EntryFile{Path: p, Offset: offset}
		if fi, err := os.Stat(p); err == nil {
			files[i].Length = fi.Size()
			offset += fi.Size()
		}
	}

	h := newFileHasher(files, opts)
	return h.hashFiles(ctx, opts.Workers, opts.BufferSize)
}

func (h *fileHasher) hashFiles(ctx context.Context, workers, bufSize int) ([]types.FileDigest, error) {
	results := make([]types.FileDigest, len(h.files))
	if len(h.files) == 0 {
		return results, nil
	}

	readSize, numWorkers := h.optimizeForWorkload()
	if workers > 0 {
		numWorkers = min(workers, len(h.files))
	}
	if bufSize > 0 {
		readSize = bufSize
	}
	h.readSize = readSize
	h.bufferPool = &sync.Pool{
		New: func() interface{} {
			return ringbuffer.New(h.readSize)
		},
	}
	h.log.Debugf("hashing %d files with %d workers, %d byte buffers, provider %s",
		len(h.files), numWorkers, readSize, h.provider)

	h.startTime = time.Now()
	h.display.ShowFiles(h.files)
	h.display.ShowProgress(len(h.files))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = h.hashFile(h.files[idx])
				h.completed.Add(1)
			}
		}()
	}

	done := make(chan struct{})
	monitorDone := make(chan struct{})
	go func() {
		h.monitorProgress(done)
		close(monitorDone)
	}()

	var err error
feed:
	for i := range h.files {
		if err = ctx.Err(); err != nil {
			break
		}
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
	close(done)
	<-monitorDone

	h.display.UpdateProgress(int(h.completed.Load()), h.rate())
	h.display.FinishProgress()
	return results, err
}

func (h *fileHasher) monitorProgress(done <-chan struct{}) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			h.display.UpdateProgress(int(h.completed.Load()), h.rate())
		}
	}
}

func (h *fileHasher) rate() float64 {
	elapsed := time.Since(h.startTime).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(h.bytesHashed.Load()) / elapsed
}

func (h *fileHasher) hashFile(file types.EntryFile) types.FileDigest {
	res := types.FileDigest{Path: file.Path}

	f, err := os.Open(file.Path)
	if err != nil {
		res.Err = err
		return res
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		res.Err = err
		return res
	}
	if fi.IsDir() {
		res.Err = fmt.Errorf("is a directory")
		return res
	}

	rb := h.bufferPool.Get().(*ringbuffer.RingBuffer)
	rb.Reset()
	defer h.bufferPool.Put(rb)

	digest, n, err := h.stream(f, rb)
	res.Digest = digest
	res.Size = n
	res.Err = err
	return res
}

// stream reads r on a separate goroutine through rb while the hasher
// consumes it on this one.
func (h *fileHasher) stream(r io.Reader, rb *ringbuffer.RingBuffer) (string, int64, error) {
	readErr := make(chan error, 1)
	go func() {
		_, err := rb.ReadFrom(r)
		if err != nil {
			rb.CloseWithError(err)
		} else {
			rb.CloseWriter()
		}
		readErr <- err
	}()

	hasher := sha1.NewWithProvider(h.provider)
	n, err := rb.WriteTo(countingWriter{w: hasher, n: &h.bytesHashed})
	if err != nil {
		// unblock the reader if the hasher side failed
		rb.CloseWithError(err)
	}
	if rerr := <-readErr; rerr != nil && !errors.Is(rerr, ringbuffer.ErrClosed) {
		return "", n, rerr
	}
	if err != nil {
		return "", n, err
	}

	digest, err := hasher.Digest()
	return digest, n, err
}

// HashReader hashes everything read from r.
func HashReader(r io.Reader, p sha1.Provider) (string, error) {
	hasher := sha1.NewWithProvider(p)
	if _, err := io.Copy(hasher, r); err != nil {
		return "", err
	}
	return hasher.Digest()
}

type countingWriter struct {
	w io.Writer
	n *atomic.Int64
}

func (c countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n.Add(int64(n))
	return n, err
}

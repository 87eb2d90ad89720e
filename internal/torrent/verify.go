// Package torrent verifies content on disk against the SHA-1 piece hashes of
// a BitTorrent v1 metainfo file.
package torrent

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anacrolix/torrent/metainfo"
	"github.com/autobrr/sha1brr/internal/display"
	"github.com/autobrr/sha1brr/internal/logging"
	"github.com/autobrr/sha1brr/internal/sha1"
	"github.com/autobrr/sha1brr/internal/types"
	pionlog "github.com/pion/logging"
)

// VerifyOptions holds options for the verification process
type VerifyOptions struct {
	TorrentPath string
	ContentPath string
	Provider    sha1.Provider
	Workers     int

	Display       display.Displayer
	LoggerFactory pionlog.LoggerFactory
}

// fileEntry is a file of the torrent laid out at its offset in the
// concatenated piece stream
type fileEntry struct {
	path    string
	length  int64
	offset  int64
	missing bool
}

type pieceVerifier struct {
	pieces    []byte
	pieceLen  int64
	numPieces int
	totalLen  int64
	files     []fileEntry
	provider  sha1.Provider
	display   display.Displayer
	log       pionlog.LeveledLogger

	goodPieces    atomic.Uint64
	badPieces     atomic.Uint64
	missingPieces atomic.Uint64
	completed     atomic.Uint64
	bytesVerified atomic.Int64

	badPieceIndices []int
	mutex           sync.Mutex

	startTime time.Time
}

// VerifyData checks the integrity of content files against a torrent file.
func VerifyData(ctx context.Context, opts VerifyOptions) (*types.VerificationResult, error) {
	mi, err := metainfo.LoadFromFile(opts.TorrentPath)
	if err != nil {
		return nil, fmt.Errorf("could not load torrent file %q: %w", opts.TorrentPath, err)
	}

	info, err := mi.UnmarshalInfo()
	if err != nil {
		return nil, fmt.Errorf("could not unmarshal info dictionary from %q: %w", opts.TorrentPath, err)
	}
	if info.PieceLength <= 0 {
		return nil, fmt.Errorf("invalid piece length %d in %q", info.PieceLength, opts.TorrentPath)
	}
	if len(info.Pieces)%sha1.Size != 0 {
		return nil, fmt.Errorf("pieces field of %q is not a multiple of %d bytes", opts.TorrentPath, sha1.Size)
	}

	files, missingFiles, err := mapFiles(&info, filepath.Clean(opts.ContentPath))
	if err != nil {
		return nil, err
	}

	v := newPieceVerifier(&info, files, opts)
	v.log.Debugf("verifying %d pieces of %d bytes across %d files", v.numPieces, v.pieceLen, len(files))

	if err := v.verifyPieces(ctx, opts.Workers); err != nil {
		return nil, fmt.Errorf("verification failed: %w", err)
	}

	completion := 0.0
	if v.numPieces > 0 {
		completion = (float64(v.goodPieces.Load()) / float64(v.numPieces)) * 100.0
	}

	return &types.VerificationResult{
		TotalPieces:     v.numPieces,
		GoodPieces:      int(v.goodPieces.Load()),
		BadPieces:       int(v.badPieces.Load()),
		MissingPieces:   int(v.missingPieces.Load()),
		Completion:      completion,
		BadPieceIndices: v.sortedBadPieces(),
		MissingFiles:    missingFiles,
	}, nil
}

func newPieceVerifier(info *metainfo.Info, files []fileEntry, opts VerifyOptions) *pieceVerifier {
	d := opts.Display
	if d == nil {
		d = display.Nop{}
	}
	var total int64
	for _, f := range files {
		total += f.length
	}
	return &pieceVerifier{
		pieces:    info.Pieces,
		pieceLen:  info.PieceLength,
		numPieces: len(info.Pieces) / sha1.Size,
		totalLen:  total,
		files:     files,
		provider:  sha1.Resolve(opts.Provider),
		display:   d,
		log:       logging.Logger(opts.LoggerFactory, "torrent"),
	}
}

// mapFiles lays out the torrent's files in metainfo order and marks those
// that are absent or have the wrong size on disk.
func mapFiles(info *metainfo.Info, contentPath string) ([]fileEntry, []string, error) {
	var files []fileEntry
	var missing []string

	if !info.IsDir() {
		path := contentPath
		fi, err := os.Stat(path)
		if err == nil && fi.IsDir() {
			// a directory holding the single file
			path = filepath.Join(contentPath, info.Name)
			fi, err = os.Stat(path)
			if err == nil && fi.IsDir() {
				return nil, nil, fmt.Errorf("expected content file %q, but found a directory", path)
			}
		}
		entry := fileEntry{path: path, length: info.Length}
		switch {
		case os.IsNotExist(err):
			entry.missing = true
			missing = append(missing, info.Name)
		case err != nil:
			return nil, nil, fmt.Errorf("could not stat content file %q: %w", path, err)
		case fi.Size() != info.Length:
			entry.missing = true
			missing = append(missing, info.Name+" (size mismatch)")
		}
		return append(files, entry), missing, nil
	}

	var offset int64
	for _, f := range info.UpvertedFiles() {
		rel := filepath.Join(f.Path...)
		entry := fileEntry{
			path:   filepath.Join(contentPath, rel),
			length: f.Length,
			offset: offset,
		}
		offset += f.Length

		fi, err := os.Stat(entry.path)
		switch {
		case os.IsNotExist(err):
			entry.missing = true
			missing = append(missing, filepath.ToSlash(rel))
		case err != nil:
			return nil, nil, fmt.Errorf("could not stat content file %q: %w", entry.path, err)
		case fi.IsDir() || fi.Size() != f.Length:
			entry.missing = true
			missing = append(missing, filepath.ToSlash(rel)+" (size mismatch)")
		}
		files = append(files, entry)
	}
	return files, missing, nil
}

func (v *pieceVerifier) optimizeForWorkload() int {
	numWorkers := runtime.NumCPU()
	switch {
	case v.totalLen < 1<<20:
		numWorkers = 1
	case len(v.files) == 1 && v.totalLen < 1<<30:
		numWorkers = min(4, numWorkers)
	}
	return max(min(numWorkers, v.numPieces), 1)
}

// verifyPieces splits the pieces into contiguous ranges, one per worker.
func (v *pieceVerifier) verifyPieces(ctx context.Context, workers int) error {
	if v.numPieces == 0 {
		return nil
	}

	numWorkers := v.optimizeForWorkload()
	if workers > 0 {
		numWorkers = min(workers, v.numPieces)
	}

	v.startTime = time.Now()
	v.display.ShowProgress(v.numPieces)

	piecesPerWorker := (v.numPieces + numWorkers - 1) / numWorkers
	errorsCh := make(chan error, numWorkers)

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		start := i * piecesPerWorker
		end := min(start+piecesPerWorker, v.numPieces)
		if start >= end {
			break
		}

		wg.Add(1)
		go func(startPiece, endPiece int) {
			defer wg.Done()
			if err := v.verifyPieceRange(ctx, startPiece, endPiece); err != nil {
				errorsCh <- err
			}
		}(start, end)
	}

	done := make(chan struct{})
	monitorDone := make(chan struct{})
	go func() {
		defer close(monitorDone)
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				v.display.UpdateProgress(int(v.completed.Load()), v.rate())
			}
		}
	}()

	wg.Wait()
	close(done)
	<-monitorDone
	close(errorsCh)

	v.display.UpdateProgress(int(v.completed.Load()), v.rate())
	v.display.FinishProgress()

	if err, ok := <-errorsCh; ok {
		return err
	}
	return nil
}

func (v *pieceVerifier) rate() float64 {
	elapsed := time.Since(v.startTime).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(v.bytesVerified.Load()) / elapsed
}

// verifyPieceRange hashes pieces [startPiece, endPiece).
func (v *pieceVerifier) verifyPieceRange(ctx context.Context, startPiece, endPiece int) error {
	readers := make(map[string]*os.File)
	defer func() {
		for _, f := range readers {
			f.Close()
		}
	}()

	buf := make([]byte, min(v.pieceLen, 4<<20))

	for piece := startPiece; piece < endPiece; piece++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		sum, status := v.hashPiece(piece, readers, buf)
		switch {
		case status == pieceMissing:
			v.missingPieces.Add(1)
		case status == pieceOK && bytes.Equal(sum[:], v.pieces[piece*sha1.Size:(piece+1)*sha1.Size]):
			v.goodPieces.Add(1)
		default:
			v.badPieces.Add(1)
			v.mutex.Lock()
			v.badPieceIndices = append(v.badPieceIndices, piece)
			v.mutex.Unlock()
		}
		v.completed.Add(1)
	}
	return nil
}

type pieceStatus int

const (
	pieceOK pieceStatus = iota
	pieceMissing
	pieceUnreadable
)

func (v *pieceVerifier) hashPiece(piece int, readers map[string]*os.File, buf []byte) ([sha1.Size]byte, pieceStatus) {
	var zero [sha1.Size]byte

	start := int64(piece) * v.pieceLen
	end := min(start+v.pieceLen, v.totalLen)
	hasher := sha1.NewWithProvider(v.provider)

	for _, file := range v.files {
		if file.offset+file.length <= start || file.offset >= end {
			continue
		}
		if file.missing {
			return zero, pieceMissing
		}

		from := max(start, file.offset) - file.offset
		to := min(end, file.offset+file.length) - file.offset

		f, ok := readers[file.path]
		if !ok {
			var err error
			f, err = os.Open(file.path)
			if err != nil {
				v.log.Warnf("could not open %s: %v", file.path, err)
				return zero, pieceUnreadable
			}
			readers[file.path] = f
		}

		r := io.NewSectionReader(f, from, to-from)
		n, err := io.CopyBuffer(hasher, r, buf)
		v.bytesVerified.Add(n)
		if err != nil || n != to-from {
			v.log.Warnf("short read of %s at %d: %v", file.path, from, err)
			return zero, pieceUnreadable
		}
	}

	sum, err := hasher.Sum()
	if err != nil {
		return zero, pieceUnreadable
	}
	return sum, pieceOK
}

func (v *pieceVerifier) sortedBadPieces() []int {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	out := append([]int(nil), v.badPieceIndices...)
	slices.Sort(out)
	return out
}

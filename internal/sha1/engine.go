package sha1

import (
	"encoding/binary"
	"math/bits"
	"sync"
	"sync/atomic"
)

const (
	init0 = 0x67452301
	init1 = 0xEFCDAB89
	init2 = 0x98BADCFE
	init3 = 0x10325476
	init4 = 0xC3D2E1F0

	_K0 = 0x5A827999
	_K1 = 0x6ED9EBA1
	_K2 = 0x8F1BBCDC
	_K3 = 0xCA62C1D6
)

// Scratch is the 80-word message buffer an Engine works in. Words 0-15 hold
// the block being filled, 16-79 are only meaningful inside a block pass.
//
// A Scratch may be shared between engines to save allocations, but only one
// engine may own it at a time. Ownership starts in NewEngineWithScratch and
// ends when that engine is finalized.
type Scratch struct {
	w      [80]uint32
	leased atomic.Bool
}

// scratchPool recycles buffers of finalized engines
var scratchPool = sync.Pool{
	New: func() interface{} {
		return new(Scratch)
	},
}

// Engine is the portable SHA-1 implementation. It is not safe for concurrent
// use.
type Engine struct {
	h [5]uint32
	s *Scratch

	// cursor: next byte goes into s.w[word] at bit offset shift
	word  int
	shift uint

	nbits  uint64
	pooled bool
	done   bool
}

var _ Hasher = (*Engine)(nil)

// NewEngine returns a portable engine with its own scratch buffer.
func NewEngine() *Engine {
	s := scratchPool.Get().(*Scratch)
	s.leased.Store(true)
	e := &Engine{s: s, pooled: true}
	e.init()
	return e
}

// NewEngineWithScratch returns a portable engine working in s. The caller
// must not hand s to another engine until this one is finalized; doing so
// returns ErrScratchInUse.
func NewEngineWithScratch(s *Scratch) (*Engine, error) {
	if !s.leased.CompareAndSwap(false, true) {
		return nil, ErrScratchInUse
	}
	e := &Engine{s: s}
	e.init()
	return e, nil
}

func (e *Engine) init() {
	e.h = [5]uint32{init0, init1, init2, init3, init4}
	clear(e.s.w[:16])
	e.word = 0
	e.shift = 24
	e.nbits = 0
}

// Write implements io.Writer. It never fails before finalization.
func (e *Engine) Write(p []byte) (int, error) {
	if e.done {
		return 0, ErrFinalized
	}
	n := len(p)
	for len(p) > 0 {
		if e.word == 0 && e.shift == 24 && len(p) >= BlockSize {
			w := &e.s.w
			for i := 0; i < 16; i++ {
				w[i] = binary.BigEndian.Uint32(p[i*4:])
			}
			e.nbits += BlockSize * 8
			e.processBlock()
			p = p[BlockSize:]
			continue
		}
		e.nbits += 8
		e.put(p[0])
		p = p[1:]
	}
	return n, nil
}

// WriteString implements io.StringWriter. Each byte of s is hashed as is.
func (e *Engine) WriteString(s string) (int, error) {
	if e.done {
		return 0, ErrFinalized
	}
	for i := 0; i < len(s); i++ {
		e.nbits += 8
		e.put(s[i])
	}
	return len(s), nil
}

// put writes one byte at the cursor, running a block pass when word 15
// fills up.
func (e *Engine) put(b byte) {
	e.s.w[e.word] |= uint32(b) << e.shift
	if e.shift > 0 {
		e.shift -= 8
		return
	}
	e.shift = 24
	e.word++
	if e.word == 16 {
		e.processBlock()
	}
}

// Sum finalizes the engine and returns the raw digest.
func (e *Engine) Sum() ([Size]byte, error) {
	var digest [Size]byte
	if e.done {
		return digest, ErrFinalized
	}
	e.finish()
	for i, s := range e.h {
		binary.BigEndian.PutUint32(digest[i*4:], s)
	}
	return digest, nil
}

// Digest finalizes the engine and returns the hex digest.
func (e *Engine) Digest() (string, error) {
	sum, err := e.Sum()
	if err != nil {
		return "", err
	}
	return encode(sum), nil
}

func (e *Engine) finish() {
	e.put(0x80)

	// no room left for the 8 length bytes in this block
	if e.word > 14 || (e.word == 14 && e.shift != 24) {
		e.processBlock()
	}

	first := e.word
	if e.shift != 24 {
		first++
	}
	clear(e.s.w[first:14])
	e.word = 14
	e.shift = 24

	// the last byte completes word 15 and runs the final pass
	for i := 56; i >= 0; i -= 8 {
		e.put(byte(e.nbits >> uint(i)))
	}

	e.done = true
	e.release()
}

func (e *Engine) release() {
	s := e.s
	e.s = nil
	s.leased.Store(false)
	if e.pooled {
		scratchPool.Put(s)
	}
}

// processBlock compresses words 0-15 into the chaining values and clears
// them for the next block.
func (e *Engine) processBlock() {
	w := &e.s.w
	for i := 16; i < 80; i++ {
		w[i] = bits.RotateLeft32(w[i-3]^w[i-8]^w[i-14]^w[i-16], 1)
	}

	a, b, c, d, h4 := e.h[0], e.h[1], e.h[2], e.h[3], e.h[4]

	// Each of the four 20-iteration rounds differs only in the
	// computation of f and the choice of K.
	i := 0
	for ; i < 20; i++ {
		f := d ^ (b & (c ^ d))
		t := bits.RotateLeft32(a, 5) + f + h4 + _K0 + w[i]
		a, b, c, d, h4 = t, a, bits.RotateLeft32(b, 30), c, d
	}
	for ; i < 40; i++ {
		f := b ^ c ^ d
		t := bits.RotateLeft32(a, 5) + f + h4 + _K1 + w[i]
		a, b, c, d, h4 = t, a, bits.RotateLeft32(b, 30), c, d
	}
	for ; i < 60; i++ {
		f := (b & c) | (d & (b | c))
		t := bits.RotateLeft32(a, 5) + f + h4 + _K2 + w[i]
		a, b, c, d, h4 = t, a, bits.RotateLeft32(b, 30), c, d
	}
	for ; i < 80; i++ {
		f := b ^ c ^ d
		t := bits.RotateLeft32(a, 5) + f + h4 + _K3 + w[i]
		a, b, c, d, h4 = t, a, bits.RotateLeft32(b, 30), c, d
	}

	e.h[0] += a
	e.h[1] += b
	e.h[2] += c
	e.h[3] += d
	e.h[4] += h4

	clear(w[:16])
	e.word = 0
	e.shift = 24
}

// Package sha1 computes SHA-1 digests incrementally. Hashing is delegated to
// the native provider when the CPU has SHA extensions and falls back to a
// portable engine built on 32-bit arithmetic otherwise.
package sha1

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Size is the size of a SHA-1 checksum in bytes.
const Size = 20

// BlockSize is the block size of SHA-1 in bytes.
const BlockSize = 64

var (
	// ErrFinalized is returned when a hasher is written to or summed after
	// its digest was already produced.
	ErrFinalized = errors.New("sha1: hasher already finalized")

	// ErrScratchInUse is returned when a shared scratch buffer is handed to
	// a second engine while another one still owns it.
	ErrScratchInUse = errors.New("sha1: scratch buffer already in use")

	// ErrUnknownProvider is returned by ParseProvider.
	ErrUnknownProvider = errors.New("sha1: unknown provider")
)

// Hasher is an incremental SHA-1 computation. Sum and Digest are terminal:
// only one of them may be called, once.
type Hasher interface {
	io.Writer
	io.StringWriter

	// Sum finalizes the hash and returns the raw digest.
	Sum() ([Size]byte, error)

	// Digest finalizes the hash and returns the 40 character lowercase hex digest.
	Digest() (string, error)
}

// Provider names a Hasher implementation.
type Provider int

const (
	ProviderAuto Provider = iota
	ProviderNative
	ProviderPortable
)

// providerEnv overrides the startup choice of New.
const providerEnv = "SHA1BRR_PROVIDER"

func (p Provider) String() string {
	switch p {
	case ProviderNative:
		return "native"
	case ProviderPortable:
		return "portable"
	default:
		return "auto"
	}
}

// ParseProvider parses "auto", "native" or "portable". An empty string is auto.
func ParseProvider(s string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ProviderAuto, nil
	case "native":
		return ProviderNative, nil
	case "portable", "generic":
		return ProviderPortable, nil
	}
	return ProviderAuto, fmt.Errorf("%w: %q", ErrUnknownProvider, s)
}

// Resolve turns ProviderAuto into the concrete provider for this machine.
func Resolve(p Provider) Provider {
	if p != ProviderAuto {
		return p
	}
	if NativeAvailable() {
		return ProviderNative
	}
	return ProviderPortable
}

var (
	defaultOnce     sync.Once
	defaultProvider Provider
)

// Default returns the provider used by New. It is decided once per process
// from SHA1BRR_PROVIDER and CPU capability detection.
func Default() Provider {
	defaultOnce.Do(func() {
		p, err := ProviderFromEnv()
		if err != nil {
			// callers that can report it check ProviderFromEnv themselves
			p = ProviderAuto
		}
		defaultProvider = Resolve(p)
	})
	return defaultProvider
}

// ProviderFromEnv parses SHA1BRR_PROVIDER. An unset variable is auto.
func ProviderFromEnv() (Provider, error) {
	v := os.Getenv(providerEnv)
	p, err := ParseProvider(v)
	if err != nil {
		return ProviderAuto, fmt.Errorf("%s=%q: %w", providerEnv, v, ErrUnknownProvider)
	}
	return p, nil
}

// New returns a fresh Hasher using the provider chosen at startup.
func New() Hasher {
	return NewWithProvider(Default())
}

// NewWithProvider returns a fresh Hasher backed by p.
func NewWithProvider(p Provider) Hasher {
	if Resolve(p) == ProviderNative {
		return newNative()
	}
	return NewEngine()
}

// Sum returns the hex digest of data in one call.
func Sum(data string) string {
	sum := SumBytes([]byte(data))
	return encode(sum)
}

// SumBytes returns the raw digest of data.
func SumBytes(data []byte) [Size]byte {
	h := New()
	// a fresh hasher only fails after finalization
	if _, err := h.Write(data); err != nil {
		panic(err)
	}
	sum, err := h.Sum()
	if err != nil {
		panic(err)
	}
	return sum
}

func encode(sum [Size]byte) string {
	return hex.EncodeToString(sum[:])
}

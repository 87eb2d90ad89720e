package sha1

import (
	"runtime"
	"sync"

	"github.com/klauspost/cpuid/v2"
)

var (
	detectOnce sync.Once
	hasNative  bool
)

// NativeAvailable reports whether the CPU has SHA-1 instructions the native
// provider can use. The check runs once per process.
func NativeAvailable() bool {
	detectOnce.Do(func() {
		hasNative = useHWHash()
	})
	return hasNative
}

// useHWHash returns true if hardware SHA1 acceleration should be used
func useHWHash() bool {
	// Only use hardware acceleration on amd64 and arm64
	switch runtime.GOARCH {
	case "amd64":
		return cpuid.CPU.Has(cpuid.SHA)
	case "arm64":
		return cpuid.CPU.Has(cpuid.SHA1)
	default:
		return false
	}
}

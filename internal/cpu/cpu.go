// Package cpu provides CPU feature detection for inference kernel selection.
//
// The detected Features value is the runtime's capability object: it is
// obtained once at startup and handed to the vector engine, which selects a
// lane-parallel kernel set when SIMD is present and the scalar set otherwise.
// Nothing in the portable core probes hardware registers directly.
//
// Detection runs lazily on the first call to DetectFeatures and is cached
// with sync.Once.
package cpu

import (
	"sync"
)

// SIMDLevel represents a SIMD instruction set extension level.
// Levels are not strictly comparable across architectures (AVX2 vs NEON).
type SIMDLevel int

const (
	// SIMDNone indicates no SIMD optimization (pure Go scalar path).
	SIMDNone SIMDLevel = iota

	// SIMDSSE2 indicates x86-64 SSE2 (baseline for amd64).
	SIMDSSE2

	// SIMDAVX indicates x86-64 AVX.
	SIMDAVX

	// SIMDAVX2 indicates x86-64 AVX2.
	SIMDAVX2

	// SIMDAVX512 indicates x86-64 AVX-512F.
	SIMDAVX512

	// SIMDNEON indicates ARM NEON / Advanced SIMD.
	SIMDNEON
)

// String returns a human-readable name for the SIMD level.
func (s SIMDLevel) String() string {
	switch s {
	case SIMDNone:
		return "None"
	case SIMDSSE2:
		return "SSE2"
	case SIMDAVX:
		return "AVX"
	case SIMDAVX2:
		return "AVX2"
	case SIMDAVX512:
		return "AVX-512"
	case SIMDNEON:
		return "NEON"
	default:
		return "Unknown"
	}
}

// Features describes CPU capabilities relevant to kernel selection.
type Features struct {
	HasSSE2   bool
	HasAVX    bool
	HasAVX2   bool
	HasAVX512 bool
	HasNEON   bool

	// ForceGeneric disables every SIMD kernel (testing/debugging).
	ForceGeneric bool

	// Architecture is runtime.GOARCH.
	Architecture string
}

// Best returns the widest SIMD level these features support.
func (f Features) Best() SIMDLevel {
	switch {
	case f.ForceGeneric:
		return SIMDNone
	case f.HasAVX512:
		return SIMDAVX512
	case f.HasAVX2:
		return SIMDAVX2
	case f.HasAVX:
		return SIMDAVX
	case f.HasNEON:
		return SIMDNEON
	case f.HasSSE2:
		return SIMDSSE2
	default:
		return SIMDNone
	}
}

// SIMD reports whether any vector unit is usable.
func (f Features) SIMD() bool {
	return f.Best() != SIMDNone
}

// LaneWidth returns the number of float32 elements one vector register of
// the best supported level holds. It is 1 when no SIMD is usable.
func (f Features) LaneWidth() int {
	return LaneWidthFor(f.Best())
}

// LaneWidthFor returns the float32 lane count of the given level.
func LaneWidthFor(level SIMDLevel) int {
	switch level {
	case SIMDAVX512:
		return 16
	case SIMDAVX, SIMDAVX2:
		return 8
	case SIMDSSE2, SIMDNEON:
		return 4
	default:
		return 1
	}
}

var (
	detectedFeatures Features
	detectOnce       sync.Once
	detectMutex      sync.Mutex

	// forcedFeatures overrides hardware detection in tests.
	forcedFeatures *Features
	forcedMutex    sync.RWMutex
)

// DetectFeatures returns the CPU features available on the current system.
//
// Detection is performed once and cached. Safe for concurrent use.
func DetectFeatures() Features {
	forcedMutex.RLock()
	forced := forcedFeatures
	forcedMutex.RUnlock()

	if forced != nil {
		return *forced
	}

	detectMutex.Lock()
	detectOnce.Do(func() {
		detectedFeatures = detectFeaturesImpl()
	})
	features := detectedFeatures
	detectMutex.Unlock()

	return features
}

// SetForcedFeatures overrides CPU feature detection with f.
// This is intended for testing purposes only.
func SetForcedFeatures(f Features) {
	forcedMutex.Lock()
	defer forcedMutex.Unlock()
	forced := f
	forcedFeatures = &forced
}

// ResetDetection clears any forced features and the detection cache.
func ResetDetection() {
	forcedMutex.Lock()
	forcedFeatures = nil
	forcedMutex.Unlock()

	detectMutex.Lock()
	detectOnce = sync.Once{}
	detectedFeatures = Features{}
	detectMutex.Unlock()
}

// Supports returns true if features allow kernels built for level.
func Supports(features Features, level SIMDLevel) bool {
	if features.ForceGeneric {
		return level == SIMDNone
	}

	switch level {
	case SIMDNone:
		return true
	case SIMDSSE2:
		return features.HasSSE2
	case SIMDAVX:
		return features.HasAVX
	case SIMDAVX2:
		return features.HasAVX2
	case SIMDAVX512:
		return features.HasAVX512
	case SIMDNEON:
		return features.HasNEON
	default:
		return false
	}
}

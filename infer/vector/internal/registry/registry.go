// Package registry holds the kernel variants of the vector engine.
//
// Kernel packages register an OpEntry from init(); the engine picks the
// highest-priority entry the detected CPU supports.
package registry

import (
	"sync"

	"github.com/cwbudde/algo-infer/internal/cpu"
)

// OpEntry is one registered kernel set.
//
// Every slice kernel panics when its slices differ in length; validation
// of caller input happens in the engine before a kernel is reached.
type OpEntry struct {
	// Name identifies the variant (e.g. "generic", "avx2").
	Name string

	// SIMDLevel is the instruction set the variant assumes.
	SIMDLevel cpu.SIMDLevel

	// Priority orders compatible variants; higher wins.
	//   - generic: 0
	//   - SSE2: 10
	//   - NEON: 15
	//   - AVX2: 20
	//   - AVX-512: 30
	Priority int

	// Lanes is the number of float32 elements processed per step.
	Lanes int

	// Add computes dst[i] = a[i] + b[i].
	Add func(dst, a, b []float32)

	// Mul computes dst[i] = a[i] * b[i].
	Mul func(dst, a, b []float32)

	// Quantize computes dst[i] = clamp(round(src[i]*127), -127, 127).
	Quantize func(dst []int8, src []float32)

	// Dequantize computes dst[i] = src[i] / 127.
	Dequantize func(dst []float32, src []int8)

	// DotQ8 returns sum(a[i] * b[i]) with a 32-bit accumulator.
	DotQ8 func(a, b []int8) int32
}

// OpRegistry stores the registered variants.
type OpRegistry struct {
	mu      sync.RWMutex
	entries []OpEntry
	sorted  bool
}

// Global is the registry used by the engine.
var Global = &OpRegistry{}

// Register adds a variant. Registrations should finish before the first
// Lookup.
func (r *OpRegistry) Register(entry OpEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, entry)
	r.sorted = false
}

// Lookup returns the highest-priority variant compatible with features, or
// nil if none is.
func (r *OpRegistry) Lookup(features cpu.Features) *OpEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.sorted {
		r.sortByPriority()
		r.sorted = true
	}

	for i := range r.entries {
		entry := &r.entries[i]
		if cpu.Supports(features, entry.SIMDLevel) {
			return entry
		}
	}
	return nil
}

// Find returns the variant registered under name, or nil.
func (r *OpRegistry) Find(name string) *OpEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := range r.entries {
		if r.entries[i].Name == name {
			return &r.entries[i]
		}
	}
	return nil
}

// ListEntries returns a copy of the registered variants.
func (r *OpRegistry) ListEntries() []OpEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]OpEntry, len(r.entries))
	copy(entries, r.entries)
	return entries
}

// sortByPriority orders entries by descending priority; r.mu must be held.
// Insertion sort: the registry holds a handful of entries.
func (r *OpRegistry) sortByPriority() {
	for i := 1; i < len(r.entries); i++ {
		key := r.entries[i]
		j := i - 1
		for j >= 0 && r.entries[j].Priority < key.Priority {
			r.entries[j+1] = r.entries[j]
			j--
		}
		r.entries[j+1] = key
	}
}

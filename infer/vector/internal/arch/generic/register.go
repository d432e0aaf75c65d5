package generic

import (
	"github.com/cwbudde/algo-infer/infer/vector/internal/registry"
	"github.com/cwbudde/algo-infer/internal/cpu"
)

// init registers the scalar kernels as the lowest-priority fallback, used
// when no SIMD unit is present or ForceGeneric is set.
func init() {
	registry.Global.Register(registry.OpEntry{
		Name:      "generic",
		SIMDLevel: cpu.SIMDNone,
		Priority:  0,
		Lanes:     1,

		Add:        Add,
		Mul:        Mul,
		Quantize:   Quantize,
		Dequantize: Dequantize,
		DotQ8:      DotQ8,
	})
}

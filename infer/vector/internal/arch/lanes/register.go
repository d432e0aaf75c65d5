package lanes

import (
	"fmt"

	"github.com/cwbudde/algo-infer/infer/vector/internal/registry"
	"github.com/cwbudde/algo-infer/internal/cpu"
)

// variants maps each SIMD level to its priority. The lane width follows
// the register size of the level.
var variants = []struct {
	level    cpu.SIMDLevel
	name     string
	priority int
}{
	{cpu.SIMDSSE2, "sse2", 10},
	{cpu.SIMDNEON, "neon", 15},
	{cpu.SIMDAVX2, "avx2", 20},
	{cpu.SIMDAVX512, "avx512", 30},
}

func init() {
	for _, v := range variants {
		k := Kernels{Width: cpu.LaneWidthFor(v.level)}
		if k.Width%4 != 0 {
			panic(fmt.Sprintf("lanes: width %d of %s is not a multiple of 4", k.Width, v.name))
		}
		registry.Global.Register(registry.OpEntry{
			Name:      v.name,
			SIMDLevel: v.level,
			Priority:  v.priority,
			Lanes:     k.Width,

			Add:        k.Add,
			Mul:        k.Mul,
			Quantize:   k.Quantize,
			Dequantize: k.Dequantize,
			DotQ8:      k.DotQ8,
		})
	}
}

package vector

// Kernel packages register themselves with the registry from init().
import (
	_ "github.com/cwbudde/algo-infer/infer/vector/internal/arch/generic"
	_ "github.com/cwbudde/algo-infer/infer/vector/internal/arch/lanes"
)

//go:build !amd64 && !arm64

package cpu

import (
	"runtime"

	"golang.org/x/sys/cpu"
)

// detectFeaturesImpl handles the remaining architectures. 32-bit ARM boards
// (the Pi Zero class) expose NEON through the ARM feature set.
func detectFeaturesImpl() Features {
	return Features{
		HasNEON:      runtime.GOARCH == "arm" && cpu.ARM.HasNEON,
		Architecture: runtime.GOARCH,
	}
}

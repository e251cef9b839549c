package core

import (
	"golang.org/x/sys/cpu"
)

// HasAccel reports whether the running CPU supports the instruction sets
// the accelerated kernel path (package kernel) targets. Unlike the
// teacher's import-time panic, a library must degrade gracefully when a
// faster path isn't available rather than refuse to run at all.
func HasAccel() bool {
	return cpu.X86.HasAVX2 || cpu.ARM64.HasASIMD
}

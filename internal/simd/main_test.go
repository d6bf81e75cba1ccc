package simd

import (
	"fmt"
	"os"
	"runtime"
	"testing"
)

// TestMain runs before all tests and prints ISA diagnostic information.
func TestMain(m *testing.M) {
	fmt.Printf("=== SIMD ISA Diagnostics ===\n")
	fmt.Printf("GOOS=%s GOARCH=%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("%s=%q\n", EnvOverride, os.Getenv(EnvOverride))
	fmt.Printf("CPU features: %v\n", CPUFeatures().Names())
	fmt.Printf("Active ISA: %s (lane words: %d)\n", ActiveISA(), LaneWords())
	fmt.Printf("Override: %v\n", IsOverridden())
	fmt.Printf("============================\n\n")

	os.Exit(m.Run())
}

package simd

import (
	"os"
	"runtime"
	"strings"
)

// EnvOverride names the environment variable that forces an ISA.
const EnvOverride = "VECSCAN_SIMD"

// ISA is an instruction set the kernels can be tuned for.
type ISA uint8

const (
	Generic ISA = iota
	NEON
	SVE2
	AVX2
	AVX512
)

var isaNames = [...]string{
	Generic: "generic",
	NEON:    "neon",
	SVE2:    "sve2",
	AVX2:    "avx2",
	AVX512:  "avx512",
}

func (i ISA) String() string {
	if int(i) < len(isaNames) {
		return isaNames[i]
	}
	return "unknown"
}

// ParseISA is the inverse of String. Case and surrounding space are ignored.
func ParseISA(s string) (ISA, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range isaNames {
		if name == s {
			return ISA(i), true
		}
	}
	return Generic, false
}

// Features are the CPU features detected at startup. Only the fields of the
// running architecture are ever set.
type Features struct {
	ASIMD    bool
	SVE2     bool
	AVX2     bool // with FMA
	AVX512F  bool
	AVX512BW bool
}

// Supports reports whether isa can run on a CPU with f.
func (f Features) Supports(isa ISA) bool {
	switch isa {
	case Generic:
		return true
	case NEON:
		return f.ASIMD
	case SVE2:
		return f.SVE2
	case AVX2:
		return f.AVX2
	case AVX512:
		return f.AVX512F && f.AVX512BW
	}
	return false
}

// Names lists the set features in declaration order.
func (f Features) Names() []string {
	var names []string
	for _, ft := range []struct {
		name string
		set  bool
	}{
		{"asimd", f.ASIMD},
		{"sve2", f.SVE2},
		{"avx2", f.AVX2},
		{"avx512f", f.AVX512F},
		{"avx512bw", f.AVX512BW},
	} {
		if ft.set {
			names = append(names, ft.name)
		}
	}
	return names
}

// best returns the widest supported ISA. Apple silicon runs NEON faster than
// SVE2.
func (f Features) best(goos string) ISA {
	switch {
	case f.Supports(AVX512):
		return AVX512
	case f.Supports(AVX2):
		return AVX2
	case f.SVE2 && goos != "darwin":
		return SVE2
	case f.ASIMD:
		return NEON
	}
	return Generic
}

// resolveISA applies override when it names an ISA that f supports and
// otherwise falls back to the best one.
func resolveISA(f Features, goos, override string) (isa ISA, overridden bool) {
	if forced, ok := ParseISA(override); ok && f.Supports(forced) {
		return forced, true
	}
	return f.best(goos), false
}

var (
	features   Features
	activeISA  ISA
	overridden bool
)

// initCapabilities runs once from the platform init.
func initCapabilities(f Features) {
	features = f
	activeISA, overridden = resolveISA(f, runtime.GOOS, os.Getenv(EnvOverride))
	selectKernels(activeISA)
}

// ActiveISA returns the ISA the dispatched kernels were selected for.
func ActiveISA() ISA {
	return activeISA
}

// IsOverridden reports whether EnvOverride selected the active ISA.
func IsOverridden() bool {
	return overridden
}

// CPUFeatures returns the features detected at startup.
func CPUFeatures() Features {
	return features
}

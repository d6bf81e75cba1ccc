// Package accel provides the accelerated Hamming distance path.
//
// An acceleration module is a build-produced artifact registered under a
// name and version. Loading a module instantiates it and validates its
// exports (a linear memory region and a hammingDistance entry point) before
// the first call. A module that fails validation is reported as
// ErrUnavailable so callers can fall back to distance.Hamming.
//
//	k, err := accel.Load(accel.BuiltinName)
//	if err != nil {
//		// use the scalar path
//	}
//	d, err := k.Hamming(a, b)
//
// The accelerated path never changes a result: for every pair of packed
// vectors it returns exactly what the scalar path returns.
package accel

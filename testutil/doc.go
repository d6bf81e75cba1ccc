// Package testutil provides testing utilities for vecscan.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating random dense and packed vectors and a
// full-sort reference ranking to check the bounded top-k against.
//
// # Random Vector Generation
//
//	rng := testutil.NewRNG(seed)
//	vec := make([]float32, 128)
//	rng.FillUniform(vec)       // uniform [0, 1)
//	bv := rng.BitVector(300)   // random packed vector, zero padding
//
// # Reference Ranking
//
//	want := testutil.ExactTopK(scored, k, true)
package testutil

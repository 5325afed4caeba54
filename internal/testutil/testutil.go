// Package testutil provides shared utilities for testing.
package testutil

import (
	gofuzz "github.com/google/gofuzz"
)

// RandomBuffers returns n pseudo-random buffers of up to maxLen bytes, deterministically derived
// from seed. Some buffers are empty.
func RandomBuffers(seed int64, n, maxLen int) [][]byte {
	f := gofuzz.NewWithSeed(seed).NilChance(0).NumElements(0, maxLen)
	bufs := make([][]byte, n)
	for i := range bufs {
		f.Fuzz(&bufs[i])
	}
	return bufs
}

// WithPrefix returns buffers which all begin with prefix, followed by pseudo-random bytes. This
// gets random input past a target's signature check.
func WithPrefix(prefix []byte, seed int64, n, maxLen int) [][]byte {
	bufs := RandomBuffers(seed, n, maxLen)
	for i, b := range bufs {
		bufs[i] = append(append([]byte(nil), prefix...), b...)
	}
	return bufs
}

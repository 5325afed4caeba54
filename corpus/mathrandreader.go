package corpus

import (
	mathRand "math/rand"
)

// MathRandReader is a deterministic io.Reader of pseudo-random bytes. Two readers created with the
// same seed yield the same stream, which keeps generated corpora reproducible.
type MathRandReader struct {
	r *mathRand.Rand
}

// NewMathRandReader creates a reader seeded with seed.
func NewMathRandReader(seed int64) *MathRandReader {
	return &MathRandReader{mathRand.New(mathRand.NewSource(seed))}
}

func (m *MathRandReader) Read(buf []byte) (int, error) {
	return m.r.Read(buf)
}

// Intn returns a pseudo-random number in [0, n). n must be positive.
func (m *MathRandReader) Intn(n int) int {
	return m.r.Intn(n)
}

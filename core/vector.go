package core

import "math"

// NormalizeVector returns v scaled to unit length. The input is not
// modified; a zero vector yields zeros.
func NormalizeVector(v []float32) []float32 {
	out := make([]float32, len(v))
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return out
	}
	scale := 1 / math.Sqrt(sumSquares)
	for i, x := range v {
		out[i] = float32(float64(x) * scale)
	}
	return out
}

// Dot is the inner product over the shorter of a and b.
func Dot(a, b []float32) float32 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var sum float32
	for i, x := range a {
		sum += x * b[i]
	}
	return sum
}

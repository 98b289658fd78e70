package nn

import "math"

// l2Floor is the norm at or below which L2Normalize leaves its input as is.
const l2Floor = 1e-8

// L2Normalize returns v scaled to unit length. Near-zero vectors are
// returned unchanged.
func L2Normalize(v []float32) []float32 {
	out := append([]float32(nil), v...)
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm <= l2Floor {
		return out
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / norm)
	}
	return out
}

// Norm returns the Euclidean norm of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Cosine returns the cosine similarity of a and b, or 0 when either is zero
// or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	na, nb := Norm(a), Norm(b)
	if na <= l2Floor || nb <= l2Floor {
		return 0
	}
	return dot / (na * nb)
}

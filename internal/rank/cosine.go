package rank

import "gonum.org/v1/gonum/floats"

// cosineSimilarity returns the cosine similarity of a and b in [-1, 1].
// Vectors of differing length or either all-zero return 0, matching the
// teacher's convention of treating a degenerate comparison as "no signal"
// rather than propagating a division-by-zero NaN.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	fa, fb := toFloat64(a), toFloat64(b)
	na, nb := floats.Norm(fa, 2), floats.Norm(fb, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(floats.Dot(fa, fb) / (na * nb))
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

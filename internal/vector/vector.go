// Package vector holds the fixed-dimension normalization and similarity math
// shared by the embedding adapter, the RAG engine, and the job matcher.
package vector

import "math"

// Dimensions is the fixed length of every stored or queried embedding.
// Provider output is normalized to this length before it touches the store;
// all similarity math assumes equal-length operands.
const Dimensions = 768

// Normalize forces vec to exactly Dimensions entries: longer vectors are
// truncated, shorter ones zero-padded. The input slice is not modified.
func Normalize(vec []float32) []float32 {
	out := make([]float32, Dimensions)
	copy(out, vec)
	return out
}

// Cosine returns the cosine similarity dot(a,b) / (|a| * |b|) in [-1, 1].
// A zero-magnitude operand yields 0.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Round4 rounds a similarity score to 4 decimal places, the precision
// reported in job-match results.
func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

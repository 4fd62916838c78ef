package vector

import (
	"math"
	"sort"
)

// CosineSimilarity returns the cosine of the angle between a and b, or 0
// when either vector is empty, zero, or the dimensions differ.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA <= 0 || normB <= 0 {
		return 0
	}
	return dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}

// RankTopK orders results by descending score and truncates to k. The sort
// is stable, so equal scores keep their insertion order.
func RankTopK(results []Result, k int) []Result {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results
}

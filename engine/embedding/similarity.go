package embedding

import (
	"math"
	"sort"
)

// Cosine returns the cosine similarity of a and b. A zero-norm vector on
// either side yields 0; the function never divides by zero and never panics
// on mismatched lengths (the shorter prefix is compared).
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

// Match is one candidate index with its similarity to the query.
type Match struct {
	Index int
	Score float64
}

// FindMostSimilar scores every candidate against query and returns the
// indices with similarity >= threshold, sorted descending by score. Ties
// keep candidate order.
func FindMostSimilar(query []float32, candidates [][]float32, threshold float64) []Match {
	var matches []Match
	for i, c := range candidates {
		if score := Cosine(query, c); score >= threshold {
			matches = append(matches, Match{Index: i, Score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

package search

import (
	"math"

	"github.com/viterin/vek/vek32"

	"github.com/mnemo-ai/mnemo/pkg/models"
)

// CosineSimilarity calculates the cosine similarity between two vectors.
// The vectors must be of the same length: a mismatch fails with a
// DimensionMismatchError rather than silently coercing. A zero-norm vector
// yields 0.0, never NaN.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, models.NewDimensionMismatchError(len(a), len(b))
	}
	if len(a) == 0 {
		return 0, nil
	}

	dot := float64(vek32.Dot(a, b))
	normA := math.Sqrt(float64(vek32.Dot(a, a)))
	normB := math.Sqrt(float64(vek32.Dot(b, b)))

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	sim := dot / (normA * normB)
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return 0, nil
	}

	return sim, nil
}

package vectorstore

import (
	"errors"
	"fmt"
	"sort"

	"flirtbot/internal/domain"
)

// ErrDimensionMismatch is returned when a vector does not match the index dimension.
var ErrDimensionMismatch = errors.New("vectorstore: dimension mismatch")

// Index is an exact nearest-neighbour index over one language.
type Index = domain.LanguageIndex

// Metric selects the distance used by the in-process index.
type Metric string

const (
	// MetricL2 is squared Euclidean distance.
	MetricL2 Metric = "l2"
	// MetricCosine is 1 - cosine similarity.
	MetricCosine Metric = "cosine"
)

// ParseMetric maps a config value to a Metric. Empty means MetricL2.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case "", MetricL2:
		return MetricL2, nil
	case MetricCosine:
		return MetricCosine, nil
	default:
		return "", fmt.Errorf("vectorstore: unknown metric %q", s)
	}
}

// CheckDimensions verifies every vector has the same length and returns it.
// An empty input has dimension 0.
func CheckDimensions(vectors []domain.Embedding) (int, error) {
	if len(vectors) == 0 {
		return 0, nil
	}
	dim := len(vectors[0])
	if dim == 0 {
		return 0, fmt.Errorf("%w: empty vector at position 0", ErrDimensionMismatch)
	}
	for i, v := range vectors {
		if len(v) != dim {
			return 0, fmt.Errorf("%w: vector %d has %d, want %d", ErrDimensionMismatch, i, len(v), dim)
		}
	}
	return dim, nil
}

// SortNeighbors orders hits by ascending distance, then ascending position.
func SortNeighbors(hits []domain.Neighbor) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].Position < hits[j].Position
	})
}

// TopK sorts hits and truncates them to k. k <= 0 yields nil.
func TopK(hits []domain.Neighbor, k int) []domain.Neighbor {
	if k <= 0 || len(hits) == 0 {
		return nil
	}
	SortNeighbors(hits)
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k]
}

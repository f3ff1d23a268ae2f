package flat

import (
	"context"
	"fmt"
	"sync"

	"github.com/viant/vec/search"

	"flirtbot/internal/domain"
	"flirtbot/internal/vectorstore"
)

// Index is an in-memory exact index that scans every stored vector on Search.
type Index struct {
	metric vectorstore.Metric

	mu        sync.RWMutex
	dimension int
	vectors   []domain.Embedding
	mags      []float32
}

// New returns an empty index using the given metric.
func New(metric vectorstore.Metric) *Index {
	if metric == "" {
		metric = vectorstore.MetricL2
	}
	return &Index{metric: metric}
}

// Build replaces the index contents with copies of vectors.
func (x *Index) Build(ctx context.Context, vectors []domain.Embedding) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dim, err := vectorstore.CheckDimensions(vectors)
	if err != nil {
		return err
	}
	stored := make([]domain.Embedding, len(vectors))
	for i, v := range vectors {
		stored[i] = append(domain.Embedding(nil), v...)
	}
	var mags []float32
	if x.metric == vectorstore.MetricCosine {
		mags = make([]float32, len(stored))
		for i, v := range stored {
			mags[i] = search.Float32s(v).Magnitude()
		}
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.dimension = dim
	x.vectors = stored
	x.mags = mags
	return nil
}

// Search returns the k closest vectors by ascending distance, lowest position first on ties.
func (x *Index) Search(ctx context.Context, query domain.Embedding, k int) ([]domain.Neighbor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	if k <= 0 || len(x.vectors) == 0 {
		return nil, nil
	}
	if len(query) != x.dimension {
		return nil, fmt.Errorf("%w: query has %d, index has %d", vectorstore.ErrDimensionMismatch, len(query), x.dimension)
	}

	hits := make([]domain.Neighbor, len(x.vectors))
	switch x.metric {
	case vectorstore.MetricCosine:
		q := search.Float32s(query)
		qm := q.Magnitude()
		for i, v := range x.vectors {
			hits[i] = domain.Neighbor{Position: i, Distance: cosine(q, v, qm, x.mags[i])}
		}
	default:
		for i, v := range x.vectors {
			hits[i] = domain.Neighbor{Position: i, Distance: squaredL2(query, v)}
		}
	}
	return vectorstore.TopK(hits, k), nil
}

// Len returns the number of stored vectors.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.vectors)
}

// Dimension returns the vector length, or 0 when empty.
func (x *Index) Dimension() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.dimension
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// cosine treats a zero vector as orthogonal to everything.
func cosine(q search.Float32s, v []float32, qm, vm float32) float64 {
	if qm == 0 || vm == 0 {
		return 1
	}
	return float64(q.CosineDistance(v))
}

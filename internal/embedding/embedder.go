package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"

	"flirtbot/internal/domain"
)

var (
	// ErrEmptyText is returned by embedders that refuse blank input.
	ErrEmptyText = errors.New("embedding: empty text")
	// ErrNotPrepared is returned when Encode is called before Prepare on a corpus-fitted embedder.
	ErrNotPrepared = errors.New("embedding: embedder not prepared")
)

// Embedder converts free text into a numeric vector representation.
type Embedder = domain.Embedder

// EncodeOne embeds a single text as a one-element batch.
func EncodeOne(ctx context.Context, e Embedder, text string) (domain.Embedding, error) {
	out, err := e.Encode(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("embedding: %s returned %d vectors for 1 text", e.Name(), len(out))
	}
	return out[0], nil
}

// Normalize scales vec to unit L2 norm in place. Zero vectors are left unchanged.
func Normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	inv := 1 / math.Sqrt(sum)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) * inv)
	}
}

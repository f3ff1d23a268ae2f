package embedding

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flirtbot/internal/domain"
)

type brokenEmbedder struct {
	out []domain.Embedding
	err error
}

func (b brokenEmbedder) Name() string             { return "broken" }
func (b brokenEmbedder) Prepare(_ []string) error { return nil }
func (b brokenEmbedder) Dimension() int           { return 2 }
func (b brokenEmbedder) Encode(_ context.Context, _ []string) ([]domain.Embedding, error) {
	return b.out, b.err
}

func TestEncodeOne(t *testing.T) {
	v, err := EncodeOne(context.Background(), brokenEmbedder{out: []domain.Embedding{{1, 2}}}, "x")
	require.NoError(t, err)
	assert.Equal(t, domain.Embedding{1, 2}, v)

	_, err = EncodeOne(context.Background(), brokenEmbedder{out: nil}, "x")
	assert.Error(t, err)

	boom := errors.New("boom")
	_, err = EncodeOne(context.Background(), brokenEmbedder{err: boom}, "x")
	assert.ErrorIs(t, err, boom)
}

func TestNormalize(t *testing.T) {
	v := []float32{3, 4}
	Normalize(v)
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	assert.InDelta(t, 1, math.Sqrt(norm), 1e-6)

	zero := []float32{0, 0}
	Normalize(zero)
	assert.Equal(t, []float32{0, 0}, zero)
}

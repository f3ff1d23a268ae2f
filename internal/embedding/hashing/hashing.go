// Package hashing provides a stateless embedder based on feature hashing.
//
// Features are words, adjacent word pairs and the marks ? and !, so word order
// and questions change the vector. It runs offline but has no notion of
// meaning; the openai embedder pointed at all-minilm is the semantic mode.
package hashing

import (
	"context"
	"hash/fnv"
	"regexp"
	"strings"

	"flirtbot/internal/domain"
	"flirtbot/internal/embedding"
)

// DefaultDimension matches the output size of all-MiniLM-L6-v2.
const DefaultDimension = 384

var tokenRe = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+|[?!]`)

// Embedder hashes each feature into one of dim buckets and L2-normalizes the counts.
type Embedder struct {
	dim      int
	synonyms map[string]string
}

// NewEmbedder creates a hashing embedder. Synonyms map a word to a canonical form before hashing.
func NewEmbedder(dim int, synonyms map[string]string) *Embedder {
	if dim <= 0 {
		dim = DefaultDimension
	}
	if synonyms == nil {
		synonyms = map[string]string{}
	}
	return &Embedder{dim: dim, synonyms: synonyms}
}

// Name identifies the embedder in logs.
func (e *Embedder) Name() string { return "hashing" }

// Prepare is a no-op; the embedder has no corpus-dependent state.
func (e *Embedder) Prepare(_ []string) error { return nil }

// Dimension returns the configured vector length.
func (e *Embedder) Dimension() int { return e.dim }

// Encode embeds each text. Blank text yields the zero vector.
func (e *Embedder) Encode(ctx context.Context, texts []string) ([]domain.Embedding, error) {
	out := make([]domain.Embedding, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.embed(t)
	}
	return out, nil
}

func (e *Embedder) embed(text string) domain.Embedding {
	vec := make([]float32, e.dim)
	add := func(feature string) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(feature))
		vec[h.Sum32()%uint32(e.dim)] += 1
	}
	var prev string
	for _, tok := range tokenRe.FindAllString(strings.ToLower(text), -1) {
		if canonical, ok := e.synonyms[tok]; ok {
			tok = canonical
		}
		add(tok)
		if prev != "" {
			add(prev + " " + tok)
		}
		prev = tok
	}
	embedding.Normalize(vec)
	return vec
}

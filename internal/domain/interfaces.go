package domain

import (
	"context"
	"sort"
)

// CorpusEntry is a single line of the corpus together with its language.
type CorpusEntry struct {
	Text     string
	Language string
}

// LanguageCorpus holds the lines of one language in source order.
// The position of a line is the position its embedding gets in the index.
type LanguageCorpus []string

// Corpus maps a language name to its lines.
type Corpus map[string]LanguageCorpus

// Languages returns the language names in sorted order.
func (c Corpus) Languages() []string {
	out := make([]string, 0, len(c))
	for lang := range c {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// Len returns the total number of lines across languages.
func (c Corpus) Len() int {
	n := 0
	for _, lines := range c {
		n += len(lines)
	}
	return n
}

// Texts returns every line, languages in sorted order, source order within a language.
func (c Corpus) Texts() []string {
	out := make([]string, 0, c.Len())
	for _, lang := range c.Languages() {
		out = append(out, c[lang]...)
	}
	return out
}

// Embedding is a fixed-length vector produced by an Embedder.
type Embedding = []float32

// Neighbor is a search hit: the position of a stored vector and its distance to the query.
type Neighbor struct {
	Position int
	Distance float64
}

// Embedder converts free text into numeric vectors.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	// Encode returns one embedding per text, in input order.
	Encode(ctx context.Context, texts []string) ([]Embedding, error)
}

// LanguageIndex is an exact nearest-neighbour index over the embeddings of one language.
type LanguageIndex interface {
	Build(ctx context.Context, vectors []Embedding) error
	// Search returns up to k neighbours by ascending distance, ties broken by lowest position.
	Search(ctx context.Context, query Embedding, k int) ([]Neighbor, error)
	Len() int
	Dimension() int
}

// IndexFactory creates an empty index for the given language.
type IndexFactory func(language string) (LanguageIndex, error)

// Responder answers a single (text, language) query with a corpus line.
type Responder interface {
	Respond(ctx context.Context, text, language string) (string, bool)
	Languages() []string
}

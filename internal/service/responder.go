package service

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"flirtbot/internal/domain"
	"flirtbot/internal/embedding"
)

// Options tunes catalog construction.
type Options struct {
	// Workers bounds how many languages are embedded and indexed at once. Zero means GOMAXPROCS.
	Workers int
	Logger  *slog.Logger
}

type languageEntry struct {
	index domain.LanguageIndex
	lines domain.LanguageCorpus
}

// Catalog is the immutable set of per-language indexes built at startup.
type Catalog struct {
	entries   map[string]languageEntry
	languages []string
}

// LanguageStats describes one language of a built catalog.
type LanguageStats struct {
	Language  string
	Lines     int
	Dimension int
}

// Build prepares the embedder on every line, then embeds and indexes each language in parallel.
// Any failure aborts the whole build.
func Build(ctx context.Context, corpus domain.Corpus, embedder domain.Embedder, newIndex domain.IndexFactory, opts Options) (*Catalog, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if len(corpus) == 0 {
		return nil, fmt.Errorf("service: no languages to index")
	}
	start := time.Now()
	if err := embedder.Prepare(corpus.Texts()); err != nil {
		return nil, fmt.Errorf("service: prepare %s: %w", embedder.Name(), err)
	}

	languages := corpus.Languages()
	built := make([]languageEntry, len(languages))

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, lang := range languages {
		g.Go(func() error {
			lines := corpus[lang]
			vecs, err := embedder.Encode(gctx, lines)
			if err != nil {
				return fmt.Errorf("service: embed %s: %w", lang, err)
			}
			if len(vecs) != len(lines) {
				return fmt.Errorf("service: embed %s: got %d vectors for %d lines", lang, len(vecs), len(lines))
			}
			idx, err := newIndex(lang)
			if err != nil {
				return fmt.Errorf("service: new index %s: %w", lang, err)
			}
			if err := idx.Build(gctx, vecs); err != nil {
				return fmt.Errorf("service: build index %s: %w", lang, err)
			}
			if idx.Len() != len(lines) {
				return fmt.Errorf("service: index %s holds %d vectors for %d lines", lang, idx.Len(), len(lines))
			}
			built[i] = languageEntry{index: idx, lines: lines}
			logger.Debug("language indexed", "language", lang, "lines", len(lines), "dimension", idx.Dimension())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c := &Catalog{entries: make(map[string]languageEntry, len(languages)), languages: languages}
	for i, lang := range languages {
		c.entries[lang] = built[i]
	}
	logger.Info("catalog built",
		"embedder", embedder.Name(),
		"languages", len(languages),
		"lines", corpus.Len(),
		"took", time.Since(start).Round(time.Millisecond),
	)
	return c, nil
}

// Languages returns the indexed languages in sorted order.
func (c *Catalog) Languages() []string {
	return append([]string(nil), c.languages...)
}

// Stats reports the size of every language in sorted order.
func (c *Catalog) Stats() []LanguageStats {
	out := make([]LanguageStats, 0, len(c.languages))
	for _, lang := range c.languages {
		e := c.entries[lang]
		out = append(out, LanguageStats{Language: lang, Lines: len(e.lines), Dimension: e.index.Dimension()})
	}
	return out
}

// Responder answers queries against a Catalog.
type Responder struct {
	catalog  *Catalog
	embedder domain.Embedder
	logger   *slog.Logger
}

// NewResponder returns a Responder. The embedder must be the one the catalog was built with.
func NewResponder(catalog *Catalog, embedder domain.Embedder, logger *slog.Logger) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{catalog: catalog, embedder: embedder, logger: logger}
}

// Languages returns the languages this responder can answer in.
func (r *Responder) Languages() []string { return r.catalog.Languages() }

// Respond returns the corpus line of language closest to text.
// Unknown languages and any embedding or search failure yield ok == false.
func (r *Responder) Respond(ctx context.Context, text, language string) (string, bool) {
	entry, ok := r.catalog.entries[language]
	if !ok {
		r.logger.Debug("unknown language", "language", language)
		return "", false
	}
	if strings.TrimSpace(text) == "" {
		r.logger.Debug("blank input", "language", language)
		return "", false
	}
	vec, err := embedding.EncodeOne(ctx, r.embedder, text)
	if err != nil {
		r.logger.Warn("embed query failed", "language", language, "err", err)
		return "", false
	}
	hits, err := entry.index.Search(ctx, vec, 1)
	if err != nil {
		r.logger.Warn("search failed", "language", language, "err", err)
		return "", false
	}
	if len(hits) == 0 {
		return "", false
	}
	pos := hits[0].Position
	if pos < 0 || pos >= len(entry.lines) {
		r.logger.Error("index returned position out of range", "language", language, "position", pos, "lines", len(entry.lines))
		return "", false
	}
	return entry.lines[pos], true
}

var _ domain.Responder = (*Responder)(nil)

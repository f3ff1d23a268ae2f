package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"flirtbot/internal/config"
	"flirtbot/internal/corpus"
	"flirtbot/internal/domain"
	"flirtbot/internal/embedding/hashing"
	"flirtbot/internal/embedding/openai"
	"flirtbot/internal/embedding/tfidf"
	"flirtbot/internal/service"
	"flirtbot/internal/vectorstore"
	"flirtbot/internal/vectorstore/flat"
	"flirtbot/internal/vectorstore/qdrant"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func newEmbedder(cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case "hashing", "":
		var dim int
		var synonyms map[string]string
		if cfg.Hashing != nil {
			dim, synonyms = cfg.Hashing.Dimension, cfg.Hashing.Synonyms
		}
		return hashing.NewEmbedder(dim, synonyms), nil
	case "tfidf":
		return tfidf.NewEmbedder(), nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		return openai.NewClient(openai.Config{
			BaseURL:    cfg.OpenAI.BaseURL,
			APIKeyEnv:  cfg.OpenAI.APIKeyEnv,
			Model:      cfg.OpenAI.Model,
			Timeout:    time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			BatchSize:  cfg.OpenAI.BatchSize,
			MaxRetries: cfg.OpenAI.MaxRetries,
			RetryBase:  time.Duration(cfg.OpenAI.RetryBaseMillis) * time.Millisecond,
		})
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}

// newIndexFactory returns the per-language index constructor and whatever must be closed on exit.
func newIndexFactory(cfg config.IndexConfig) (domain.IndexFactory, io.Closer, error) {
	switch cfg.Type {
	case "flat", "":
		metric, err := vectorstore.ParseMetric(cfg.Metric)
		if err != nil {
			return nil, nil, err
		}
		return func(string) (domain.LanguageIndex, error) { return flat.New(metric), nil }, nopCloser{}, nil
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, nil, fmt.Errorf("qdrant config missing")
		}
		qcfg := qdrant.Config{
			Addr:      cfg.Qdrant.Addr,
			Prefix:    cfg.Qdrant.Prefix,
			BatchSize: cfg.Qdrant.BatchSize,
		}
		if cfg.Qdrant.APIKeyEnv != "" {
			qcfg.APIKey = os.Getenv(cfg.Qdrant.APIKeyEnv)
		}
		conn, err := qdrant.Dial(qcfg)
		if err != nil {
			return nil, nil, err
		}
		return qdrant.NewFactory(conn, qcfg), conn, nil
	default:
		return nil, nil, fmt.Errorf("unknown index: %s", cfg.Type)
	}
}

func corpusSource(cfg config.CorpusConfig) corpus.Source {
	return corpus.Source{
		Type:  cfg.Type,
		Path:  cfg.Path,
		Table: cfg.Table,
		Columns: corpus.Columns{
			Text:     cfg.TextColumn,
			Language: cfg.LanguageColumn,
		},
	}
}

// buildResponder loads the corpus and builds every language index. The returned
// closer releases backend connections.
func buildResponder(ctx context.Context, cfg *config.AppConfig, log *slog.Logger) (*service.Responder, io.Closer, error) {
	lines, report, err := corpus.Load(ctx, corpusSource(cfg.Corpus))
	if err != nil {
		return nil, nil, err
	}
	if report.Skipped > 0 {
		log.Warn("skipped corpus rows with empty text or language", "path", cfg.Corpus.Path, "skipped", report.Skipped)
	}
	log.Info("corpus loaded", "path", cfg.Corpus.Path, "rows", report.Rows, "languages", len(lines))

	emb, err := newEmbedder(cfg.Embedder)
	if err != nil {
		return nil, nil, err
	}
	factory, closer, err := newIndexFactory(cfg.Index)
	if err != nil {
		return nil, nil, err
	}
	catalog, err := service.Build(ctx, lines, emb, factory, service.Options{Workers: cfg.Build.Workers, Logger: log})
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}
	for _, st := range catalog.Stats() {
		log.Info("language ready", "language", st.Language, "lines", st.Lines, "dimension", st.Dimension)
	}
	return service.NewResponder(catalog, emb, log), closer, nil
}

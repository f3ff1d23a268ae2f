package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flirtbot/internal/config"
	"flirtbot/internal/embedding/hashing"
	"flirtbot/internal/embedding/openai"
	"flirtbot/internal/embedding/tfidf"
	"flirtbot/internal/vectorstore/flat"
)

const testCSV = `pickup_line,language
Hi,english
Are you a magnet?,english
Kya aap chai hain?,pakistani
`

func writeFixture(t *testing.T) (dir, cfgPath string) {
	t.Helper()
	dir = t.TempDir()
	csvPath := filepath.Join(dir, "lines.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(testCSV), 0o644))
	cfgPath = filepath.Join(dir, "flirtbot.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("corpus:\n  path: "+csvPath+"\nlog:\n  level: error\n"), 0o644))
	return dir, cfgPath
}

func TestNewEmbedder(t *testing.T) {
	e, err := newEmbedder(config.EmbedderConfig{Type: "hashing", Hashing: &config.HashingEmbedderConfig{Dimension: 8}})
	require.NoError(t, err)
	assert.IsType(t, &hashing.Embedder{}, e)
	assert.Equal(t, 8, e.Dimension())

	e, err = newEmbedder(config.EmbedderConfig{Type: "tfidf"})
	require.NoError(t, err)
	assert.IsType(t, &tfidf.Embedder{}, e)

	e, err = newEmbedder(config.EmbedderConfig{Type: "openai", OpenAI: &config.OpenAIEmbedderConfig{Model: "all-minilm"}})
	require.NoError(t, err)
	assert.IsType(t, &openai.Client{}, e)

	_, err = newEmbedder(config.EmbedderConfig{Type: "openai"})
	assert.Error(t, err)
	_, err = newEmbedder(config.EmbedderConfig{Type: "word2vec"})
	assert.Error(t, err)
}

func TestNewIndexFactory(t *testing.T) {
	factory, closer, err := newIndexFactory(config.IndexConfig{Type: "flat", Metric: "cosine"})
	require.NoError(t, err)
	defer closer.Close()
	idx, err := factory("english")
	require.NoError(t, err)
	assert.IsType(t, &flat.Index{}, idx)

	_, _, err = newIndexFactory(config.IndexConfig{Type: "flat", Metric: "hamming"})
	assert.Error(t, err)
	_, _, err = newIndexFactory(config.IndexConfig{Type: "faiss"})
	assert.Error(t, err)
	_, _, err = newIndexFactory(config.IndexConfig{Type: "qdrant"})
	assert.Error(t, err)
}

func TestBuildResponderFromCSV(t *testing.T) {
	_, cfgPath := writeFixture(t)
	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	r, closer, err := buildResponder(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer closer.Close()

	assert.Equal(t, []string{"english", "pakistani"}, r.Languages())
	line, ok := r.Respond(context.Background(), "Hi", "english")
	require.True(t, ok)
	assert.Equal(t, "Hi", line)
	_, ok = r.Respond(context.Background(), "Hi", "french")
	assert.False(t, ok)
}

func TestBuildResponderMissingCorpus(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	cfg.Corpus.Path = filepath.Join(t.TempDir(), "missing.csv")
	_, _, err = buildResponder(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestAskAndImportCommands(t *testing.T) {
	dir, cfgPath := writeFixture(t)
	t.Setenv("HOME", dir)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	rootCmd.SetArgs([]string{"--config", cfgPath, "ask", "--lang", "english", "Are", "you", "a", "magnet?"})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "Are you a magnet?\n", out.String())

	rootCmd.SetArgs([]string{"--config", cfgPath, "ask", "--lang", "french", "Hi"})
	assert.ErrorIs(t, rootCmd.Execute(), errNoResponse)

	out.Reset()
	dbPath := filepath.Join(dir, "lines.db")
	rootCmd.SetArgs([]string{"--config", cfgPath, "import", filepath.Join(dir, "lines.csv"), dbPath})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "imported 3 rows")

	sqliteCfg := filepath.Join(dir, "sqlite.yaml")
	require.NoError(t, os.WriteFile(sqliteCfg, []byte("corpus:\n  path: "+dbPath+"\nlog:\n  level: error\n"), 0o644))
	out.Reset()
	rootCmd.SetArgs([]string{"--config", sqliteCfg, "ask", "--lang", "pakistani", "chai"})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "Kya aap chai hain?\n", out.String())
}

package corpus

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"flirtbot/internal/domain"
)

var (
	// ErrMissingColumn is returned when a required column is absent from the source.
	ErrMissingColumn = errors.New("corpus: missing required column")
	// ErrEmptyCorpus is returned when the source holds no usable rows.
	ErrEmptyCorpus = errors.New("corpus: no usable rows")
)

// Columns names the text and language columns of a tabular source.
type Columns struct {
	Text     string
	Language string
}

// DefaultColumns matches the pickup line dataset layout.
var DefaultColumns = Columns{Text: "pickup_line", Language: "language"}

func (c Columns) withDefaults() Columns {
	if c.Text == "" {
		c.Text = DefaultColumns.Text
	}
	if c.Language == "" {
		c.Language = DefaultColumns.Language
	}
	return c
}

// Source describes where the corpus is read from.
type Source struct {
	// Type is "csv" or "sqlite"; empty selects by file extension.
	Type    string
	Path    string
	Table   string
	Columns Columns
}

// Report summarizes a load.
type Report struct {
	Rows    int
	Skipped int
}

// Load reads the source and partitions it by language.
func Load(ctx context.Context, src Source) (domain.Corpus, Report, error) {
	kind := src.Type
	if kind == "" {
		kind = typeFromPath(src.Path)
	}
	switch kind {
	case "csv":
		return LoadCSV(src.Path, src.Columns)
	case "sqlite":
		if _, err := os.Stat(src.Path); err != nil {
			return nil, Report{}, fmt.Errorf("corpus: open %s: %w", src.Path, err)
		}
		db, err := OpenSQLite(src.Path)
		if err != nil {
			return nil, Report{}, err
		}
		defer db.Close()
		return LoadSQLite(ctx, db, src.Table, src.Columns)
	default:
		return nil, Report{}, fmt.Errorf("corpus: unknown source type %q", kind)
	}
}

func typeFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".sqlite", ".sqlite3", ".db":
		return "sqlite"
	default:
		return "csv"
	}
}

// LoadCSV reads a CSV file with a header row and partitions it by language.
func LoadCSV(path string, cols Columns) (domain.Corpus, Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Report{}, fmt.Errorf("corpus: open %s: %w", path, err)
	}
	defer f.Close()
	entries, err := ReadCSV(f, cols)
	if err != nil {
		return nil, Report{}, fmt.Errorf("corpus: %s: %w", path, err)
	}
	return finish(entries)
}

// ReadCSV parses CSV records into entries, in file order.
func ReadCSV(r io.Reader, cols Columns) ([]domain.CorpusEntry, error) {
	cols = cols.withDefaults()
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyCorpus
		}
		return nil, err
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	textIdx, langIdx := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case cols.Text:
			textIdx = i
		case cols.Language:
			langIdx = i
		}
	}
	if textIdx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, cols.Text)
	}
	if langIdx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, cols.Language)
	}
	var entries []domain.CorpusEntry
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, domain.CorpusEntry{
			Text:     record[textIdx],
			Language: strings.TrimSpace(record[langIdx]),
		})
	}
	return entries, nil
}

// Partition groups entries by language, keeping source order within a language.
// Entries with blank text or language are skipped and counted.
func Partition(entries []domain.CorpusEntry) (domain.Corpus, int) {
	c := make(domain.Corpus)
	skipped := 0
	for _, e := range entries {
		if strings.TrimSpace(e.Text) == "" || e.Language == "" {
			skipped++
			continue
		}
		c[e.Language] = append(c[e.Language], e.Text)
	}
	return c, skipped
}

func finish(entries []domain.CorpusEntry) (domain.Corpus, Report, error) {
	c, skipped := Partition(entries)
	rep := Report{Rows: len(entries), Skipped: skipped}
	if len(c) == 0 {
		return nil, rep, ErrEmptyCorpus
	}
	return c, rep, nil
}

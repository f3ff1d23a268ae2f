package corpus

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	_ "modernc.org/sqlite" // register pure-Go SQLite driver

	"flirtbot/internal/domain"
)

// DefaultTable is the table read when Source.Table is empty.
const DefaultTable = "pickup_lines"

// ErrMissingTable is returned when the corpus table does not exist.
var ErrMissingTable = errors.New("corpus: missing table")

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// OpenSQLite opens a SQLite database using the modernc.org/sqlite driver.
// Pass ":memory:" for an in-memory database.
func OpenSQLite(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("corpus: open sqlite %s: %w", dsn, err)
	}
	return db, nil
}

// LoadSQLite reads the corpus table ordered by rowid and partitions it by language.
func LoadSQLite(ctx context.Context, db *sql.DB, table string, cols Columns) (domain.Corpus, Report, error) {
	if table == "" {
		table = DefaultTable
	}
	cols = cols.withDefaults()
	if err := checkIdents(table, cols.Text, cols.Language); err != nil {
		return nil, Report{}, err
	}
	if err := checkColumns(ctx, db, table, cols); err != nil {
		return nil, Report{}, err
	}
	q := fmt.Sprintf(`SELECT "%s", "%s" FROM "%s" ORDER BY rowid`, cols.Text, cols.Language, table)
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, Report{}, fmt.Errorf("corpus: query %s: %w", table, err)
	}
	defer rows.Close()
	var entries []domain.CorpusEntry
	for rows.Next() {
		var text, lang sql.NullString
		if err := rows.Scan(&text, &lang); err != nil {
			return nil, Report{}, fmt.Errorf("corpus: scan %s: %w", table, err)
		}
		entries = append(entries, domain.CorpusEntry{Text: text.String, Language: strings.TrimSpace(lang.String)})
	}
	if err := rows.Err(); err != nil {
		return nil, Report{}, fmt.Errorf("corpus: read %s: %w", table, err)
	}
	return finish(entries)
}

func checkColumns(ctx context.Context, db *sql.DB, table string, cols Columns) error {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info("%s")`, table))
	if err != nil {
		return fmt.Errorf("corpus: inspect %s: %w", table, err)
	}
	defer rows.Close()
	have := map[string]bool{}
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("corpus: inspect %s: %w", table, err)
		}
		have[name] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("corpus: inspect %s: %w", table, err)
	}
	if len(have) == 0 {
		return fmt.Errorf("%w: %q", ErrMissingTable, table)
	}
	for _, c := range []string{cols.Text, cols.Language} {
		if !have[c] {
			return fmt.Errorf("%w: %q in table %q", ErrMissingColumn, c, table)
		}
	}
	return nil
}

// ImportCSV copies the usable rows of a CSV corpus into a SQLite table,
// creating it if needed. Existing rows are replaced in the same transaction,
// so importing a file twice leaves one copy. It returns the number of rows written.
func ImportCSV(ctx context.Context, db *sql.DB, table, csvPath string, cols Columns) (int, error) {
	if table == "" {
		table = DefaultTable
	}
	cols = cols.withDefaults()
	if err := checkIdents(table, cols.Text, cols.Language); err != nil {
		return 0, err
	}
	f, err := os.Open(csvPath)
	if err != nil {
		return 0, fmt.Errorf("corpus: open %s: %w", csvPath, err)
	}
	defer f.Close()
	entries, err := ReadCSV(f, cols)
	if err != nil {
		return 0, fmt.Errorf("corpus: %s: %w", csvPath, err)
	}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS "%s" ("%s" TEXT NOT NULL, "%s" TEXT NOT NULL)`, table, cols.Text, cols.Language)
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return 0, fmt.Errorf("corpus: create %s: %w", table, err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM "%s"`, table)); err != nil {
		return 0, fmt.Errorf("corpus: clear %s: %w", table, err)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO "%s"("%s", "%s") VALUES(?, ?)`, table, cols.Text, cols.Language))
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	n := 0
	for _, e := range entries {
		if strings.TrimSpace(e.Text) == "" || e.Language == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, e.Text, e.Language); err != nil {
			return 0, fmt.Errorf("corpus: insert into %s: %w", table, err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

func checkIdents(names ...string) error {
	for _, n := range names {
		if !identRe.MatchString(n) {
			return fmt.Errorf("corpus: invalid identifier %q", n)
		}
	}
	return nil
}

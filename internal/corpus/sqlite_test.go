package corpus

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flirtbot/internal/domain"
)

func TestImportCSVThenLoadSQLite(t *testing.T) {
	ctx := context.Background()
	csvPath := writeFile(t, "lines.csv", sampleCSV)
	dbPath := filepath.Join(t.TempDir(), "lines.sqlite")

	db, err := OpenSQLite(dbPath)
	require.NoError(t, err)
	defer db.Close()

	n, err := ImportCSV(ctx, db, "", csvPath, Columns{})
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	c, rep, err := LoadSQLite(ctx, db, "", Columns{})
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Skipped)
	assert.Equal(t, domain.LanguageCorpus{"Hi", "Are you a magnet?", "Do you have a map?"}, c["english"])
	assert.Equal(t, domain.LanguageCorpus{"Aap ki aankhein", "Chand sa chehra"}, c["pakistani"])

	// The same file through the generic entry point.
	c2, _, err := Load(ctx, Source{Path: dbPath})
	require.NoError(t, err)
	assert.Equal(t, c, c2)
}

func TestImportCSVReplacesRows(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "lines.sqlite"))
	require.NoError(t, err)
	defer db.Close()

	first := writeFile(t, "first.csv", "pickup_line,language\nHi,english\n")
	for range 2 {
		n, err := ImportCSV(ctx, db, "", first, Columns{})
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	}
	c, _, err := LoadSQLite(ctx, db, "", Columns{})
	require.NoError(t, err)
	assert.Equal(t, domain.Corpus{"english": {"Hi"}}, c)

	second := writeFile(t, "second.csv", "pickup_line,language\nHello,english\nSalaam,pakistani\n")
	_, err = ImportCSV(ctx, db, "", second, Columns{})
	require.NoError(t, err)
	c, _, err = LoadSQLite(ctx, db, "", Columns{})
	require.NoError(t, err)
	assert.Equal(t, domain.Corpus{"english": {"Hello"}, "pakistani": {"Salaam"}}, c)
}

func TestLoadSQLiteMissingTableAndColumn(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "lines.sqlite"))
	require.NoError(t, err)
	defer db.Close()

	_, _, err = LoadSQLite(ctx, db, "pickup_lines", Columns{})
	assert.ErrorIs(t, err, ErrMissingTable)

	_, err = db.ExecContext(ctx, `CREATE TABLE pickup_lines (pickup_line TEXT)`)
	require.NoError(t, err)
	_, _, err = LoadSQLite(ctx, db, "pickup_lines", Columns{})
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestLoadSQLiteRejectsBadIdentifiers(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "lines.sqlite"))
	require.NoError(t, err)
	defer db.Close()

	_, _, err = LoadSQLite(context.Background(), db, `lines"; DROP TABLE x; --`, Columns{})
	assert.Error(t, err)
}

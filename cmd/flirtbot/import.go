package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"flirtbot/internal/corpus"
)

var importTable string

var importCmd = &cobra.Command{
	Use:   "import <csv> <sqlite-db>",
	Short: "Copy a CSV corpus into a SQLite table",
	Long:  "Copy a CSV corpus into a SQLite table. Rows already in the table are replaced.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := corpus.OpenSQLite(args[1])
		if err != nil {
			return err
		}
		defer db.Close()

		cols := corpus.Columns{Text: appConfig.Corpus.TextColumn, Language: appConfig.Corpus.LanguageColumn}
		n, err := corpus.ImportCSV(cmd.Context(), db, importTable, args[0], cols)
		if err != nil {
			return err
		}
		logger.Info("corpus imported", "csv", args[0], "db", args[1], "rows", n)
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d rows into %s\n", n, args[1])
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importTable, "table", corpus.DefaultTable, "destination table")
}

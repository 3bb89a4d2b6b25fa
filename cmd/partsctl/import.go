package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/partflow/internal/core"
)

var importFlags struct {
	encoding    string
	groupColumn int
}

var importCmd = &cobra.Command{
	Use:   "import <file.csv>...",
	Short: "Import parts from catalog CSV files",
	Long: `Import reads each catalog file and creates a part for every designation
code not yet in the catalog. Rows for existing parts are skipped, never
updated. Route templates are derived from the operations column.

Example:
  partsctl import --user ivanov naborka3.csv
  partsctl import --encoding windows-1251 export.csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importFlags.encoding, "encoding", "", "file encoding: utf-8 or windows-1251 (default from config)")
	importCmd.Flags().IntVar(&importFlags.groupColumn, "group-column", -1, "zero-based column holding group labels (default 1)")
}

func runImport(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, true)
	if err != nil {
		return err
	}

	for _, path := range args {
		res, err := importFile(cmd, a.service, path)
		if err != nil {
			return err
		}

		if flagJSON {
			if err := printJSON(cmd, res); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: added %d, skipped %d\n", filepath.Base(path), res.Added, res.Skipped)
		for _, row := range res.SkippedRows {
			fmt.Fprintf(cmd.OutOrStdout(), "  line %d %s: %s\n", row.Line, row.Code, row.Reason)
		}
	}
	return nil
}

func importFile(cmd *cobra.Command, svc *core.Service, path string) (core.ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return core.ImportResult{}, err
	}
	defer f.Close()

	opts := core.ImportOptions{FileName: filepath.Base(path), Encoding: importFlags.encoding}
	if importFlags.groupColumn >= 0 {
		col := importFlags.groupColumn
		opts.GroupColumn = &col
	}
	return svc.ImportParts(cmd.Context(), f, actingUser(), opts)
}

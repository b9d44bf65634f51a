package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"golang-social-analytics-service/internal/export"
	"golang-social-analytics-service/internal/models"
)

// Flags for the export command
var (
	exportAccount  string
	exportCategory string
	exportFormat   string
	exportOutput   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a stored dataset to CSV or XLSX",
	Long: `Export writes the stored dataset for an account and category to a
file or stdout, including the derived metric columns.

Examples:
  socialstats export --account <id> --category daily-summary --format csv
  socialstats export --account <id> --category per-item --format xlsx --output posts.xlsx`,

	PreRunE: validateExportFlags,
	RunE:    runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportAccount, "account", "a", "", "account identifier (default: last selected account)")
	exportCmd.Flags().StringVarP(&exportCategory, "category", "c", "", "dataset category: daily-summary or per-item (required)")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "output format: csv or xlsx")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file path (default: stdout, required for xlsx)")

	exportCmd.MarkFlagRequired("category")
}

func validateExportFlags(cmd *cobra.Command, args []string) error {
	category := models.Category(exportCategory)
	if !category.IsSupported() {
		return fmt.Errorf("invalid category '%s'. Valid categories: %s, %s",
			exportCategory, models.CategoryDailySummary, models.CategoryPerItem)
	}

	format := export.Format(exportFormat)
	if !format.IsValid() {
		return fmt.Errorf("invalid format '%s'. Valid formats: %s, %s",
			exportFormat, export.FormatCSV, export.FormatXLSX)
	}
	if format == export.FormatXLSX && exportOutput == "" {
		return fmt.Errorf("xlsx export requires --output")
	}

	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	accountID := exportAccount
	if accountID == "" {
		accountID = e.manager.LastAccount()
	}
	if accountID == "" {
		return fmt.Errorf("no account given and no last selected account; use --account")
	}

	category := models.Category(exportCategory)
	rows := e.manager.LoadDataset(ctx, accountID, category)
	if len(rows) == 0 {
		return fmt.Errorf("no %s dataset stored for account %s", category, accountID)
	}

	var out io.Writer = os.Stdout
	if exportOutput != "" {
		file, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer file.Close()
		out = file
	}

	if err := export.Write(out, rows, category, export.Format(exportFormat)); err != nil {
		return err
	}

	if exportOutput != "" {
		fmt.Fprintf(os.Stderr, "Exported %d rows to %s\n", len(rows), exportOutput)
	}
	return nil
}

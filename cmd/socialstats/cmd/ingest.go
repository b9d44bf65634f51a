package cmd

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"golang-social-analytics-service/cmd/socialstats/config"
	"golang-social-analytics-service/internal/detector"
	"golang-social-analytics-service/internal/models"
	"golang-social-analytics-service/internal/processor"
	apperrors "golang-social-analytics-service/pkg/errors"
)

// Flags for the ingest command
var (
	ingestFile     string
	ingestAccount  string
	ingestCategory string
	ingestMaxRows  int
	ingestStrict   bool
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest an exported statistics file into an account",
	Long: `Ingest parses an exported statistics CSV file, detects its source
category, maps the vendor columns to internal fields, computes derived
metrics, and stores the processed dataset for the given account.

Re-ingesting the same account and category replaces the previous dataset.

Examples:
  # Ingest with automatic type detection
  socialstats ingest --file export.csv --account 1700000000000-ab12cd34

  # Force the category when detection is ambiguous
  socialstats ingest --file posts.csv --account <id> --category per-item

  # Fail instead of warning when required columns are missing
  socialstats ingest --file export.csv --account <id> --strict`,

	PreRunE: validateIngestFlags,
	RunE:    runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVarP(&ingestFile, "file", "f", "", "path to the exported CSV file (required)")
	ingestCmd.Flags().StringVarP(&ingestAccount, "account", "a", "", "account identifier (default: last selected account)")
	ingestCmd.Flags().StringVarP(&ingestCategory, "category", "c", "", "force the category: daily-summary or per-item")
	ingestCmd.Flags().IntVar(&ingestMaxRows, "max-rows", 0, "override the row processing ceiling")
	ingestCmd.Flags().BoolVar(&ingestStrict, "strict", false, "treat missing required columns as a hard failure")

	ingestCmd.MarkFlagRequired("file")

	viper.BindPFlag("ingest-max-rows", ingestCmd.Flags().Lookup("max-rows"))
}

func validateIngestFlags(cmd *cobra.Command, args []string) error {
	if ingestFile == "" {
		return fmt.Errorf("file is required")
	}

	info, err := os.Stat(ingestFile)
	if os.IsNotExist(err) {
		return fmt.Errorf("file does not exist: %s", ingestFile)
	}
	if err != nil {
		return fmt.Errorf("error accessing file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("expected a file, got a directory: %s", ingestFile)
	}

	if ingestCategory != "" {
		category := models.Category(ingestCategory)
		if !category.IsSupported() {
			return fmt.Errorf("invalid category '%s'. Valid categories: %s, %s",
				ingestCategory, models.CategoryDailySummary, models.CategoryPerItem)
		}
	}

	return nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	raw, err := os.ReadFile(ingestFile)
	if err != nil {
		if os.IsPermission(err) {
			return apperrors.FileError(apperrors.CodeFilePermission, ingestFile, err)
		}
		return apperrors.FileError(apperrors.CodeFileNotFound, ingestFile, err)
	}
	rawText := string(raw)

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	accountID := ingestAccount
	if accountID == "" {
		accountID = e.manager.LastAccount()
	}
	if accountID == "" {
		return fmt.Errorf("no account given and no last selected account; use --account or create one with 'socialstats accounts create'")
	}
	account := e.manager.GetAccount(ctx, accountID)
	if account == nil {
		return fmt.Errorf("account not found: %s", accountID)
	}

	category := models.Category(ingestCategory)
	if category == "" {
		category, err = detectCategory(rawText)
		if err != nil {
			return err
		}
	}

	table, err := e.mapper.Get(category)
	if err != nil {
		return err
	}

	pipeline, err := processor.NewPipeline(config.CreatePipelineConfig(ingestMaxRows, 0))
	if err != nil {
		return err
	}

	result, err := pipeline.Process(ctx, rawText, table, processor.Options{
		ForcedCategory: category,
	})
	if err != nil {
		return err
	}

	if len(result.Metadata.MissingColumns) > 0 {
		fmt.Fprintf(os.Stderr, "Warning: missing required columns: %s\n",
			strings.Join(result.Metadata.MissingColumns, ", "))
		if ingestStrict {
			return fmt.Errorf("aborting: required columns are missing (strict mode)")
		}
	}

	if err := e.manager.SaveDataset(ctx, account.ID, result.Category, result.Rows); err != nil {
		return err
	}
	if err := e.manager.SetLastAccount(account.ID); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not remember account selection: %v\n", err)
	}

	fmt.Printf("Ingested %d rows into %s (%s)\n", result.Metadata.RowCount, account.Name, result.Category)
	if result.Metadata.IsLimited {
		fmt.Printf("Note: file had %d rows, truncated to %d\n", result.Metadata.TotalRows, result.Metadata.RowCount)
	}
	if !result.Metadata.DateRange.IsZero() {
		fmt.Printf("Date range: %s to %s\n", result.Metadata.DateRange.Start, result.Metadata.DateRange.End)
	}

	return nil
}

// detectCategory reads the header row of the raw text and runs detection.
// The resolved category decides which mapping table the pipeline uses, so
// detection happens before processing and is passed back in as forced.
func detectCategory(rawText string) (models.Category, error) {
	reader := csv.NewReader(strings.NewReader(rawText))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		return models.CategoryUnknown, apperrors.ParseError(err.Error(), err)
	}

	category, err := detector.Detect(headers)
	if err != nil {
		return models.CategoryUnknown, err
	}
	if !category.IsSupported() {
		label := category.PlatformLabel()
		return category, apperrors.WrongPlatformError(label,
			"this file appears to come from "+label+", which is not a supported source")
	}
	return category, nil
}

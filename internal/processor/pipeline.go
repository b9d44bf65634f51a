// Package processor implements the ingestion pipeline: it parses delimited
// text, resolves the source category, validates required columns, maps and
// derives every row in batches, and returns the processed dataset with its
// metadata bundle.
//
// Hard failures (unparseable text, empty files, unsupported platforms)
// reject the whole operation; missing required columns are a soft warning
// recorded in the metadata so the caller can decide whether to block.
package processor

import (
	"context"
	"encoding/csv"
	"strings"
	"time"

	"golang-social-analytics-service/internal/detector"
	"golang-social-analytics-service/internal/mapping"
	"golang-social-analytics-service/internal/models"
	apperrors "golang-social-analytics-service/pkg/errors"
	"golang-social-analytics-service/pkg/logger"
)

// Config holds configuration for the batch pipeline
type Config struct {
	// MaxRows caps the number of rows processed from one file. Files
	// beyond the cap are truncated and flagged in the metadata.
	MaxRows int
	// BatchSize is the number of rows mapped and derived per batch. The
	// final result is identical to single-pass processing; batching only
	// exists so a host can yield between batches.
	BatchSize int
	// Delimiter is the field separator of the input text
	Delimiter rune
}

// DefaultConfig returns a configuration with the standard limits
func DefaultConfig() *Config {
	return &Config{
		MaxRows:   5000,
		BatchSize: 500,
		Delimiter: ',',
	}
}

// Validate validates the pipeline configuration
func (c *Config) Validate() error {
	if c.MaxRows <= 0 {
		return apperrors.InvalidInputError("pipeline config", "MaxRows must be positive")
	}
	if c.BatchSize <= 0 {
		return apperrors.InvalidInputError("pipeline config", "BatchSize must be positive")
	}
	return nil
}

// Options adjusts a single Process invocation.
type Options struct {
	// ForcedCategory overrides type detection when set to a valid category
	ForcedCategory models.Category
	// OnBatch, when set, is invoked after each processed batch with the
	// number of rows processed so far and the total to process. Hosts use
	// it to yield between batches.
	OnBatch func(processed, total int)
}

// Pipeline orchestrates one ingestion run end to end.
type Pipeline struct {
	config *Config
	logger logger.Logger
}

// NewPipeline creates a Pipeline with the given configuration
func NewPipeline(config *Config) (*Pipeline, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Pipeline{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("pipeline"),
	}, nil
}

// Process runs the full ingestion pipeline over raw delimited text using
// the given mapping table. See the package comment for failure semantics.
func (p *Pipeline) Process(ctx context.Context, rawText string, table mapping.Table, opts Options) (*models.ProcessResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	headers, rawRows, err := p.parse(rawText)
	if err != nil {
		return nil, err
	}
	if len(rawRows) == 0 {
		return nil, apperrors.EmptyFileError()
	}

	category := opts.ForcedCategory
	if category == "" {
		category, err = detector.Detect(headers)
		if err != nil {
			return nil, err
		}
	}

	if !category.IsSupported() {
		label := category.PlatformLabel()
		p.logger.WithFields(logger.Fields{
			"category": category.String(),
			"platform": label,
		}).Warn("Rejecting file from unsupported platform")
		return nil, apperrors.WrongPlatformError(label,
			"this file appears to come from "+label+", which is not a supported source")
	}

	validation, err := mapping.ValidateRequired(headers, table, category)
	if err != nil {
		return nil, err
	}
	if !validation.IsValid {
		p.logger.WithField("missing", validation.Missing).
			Warn("File is missing required columns, proceeding anyway")
	}

	totalRows := len(rawRows)
	limited := false
	if totalRows > p.config.MaxRows {
		p.logger.WithFields(logger.Fields{
			"total_rows": totalRows,
			"max_rows":   p.config.MaxRows,
		}).Warn("Row limit exceeded, truncating")
		rawRows = rawRows[:p.config.MaxRows]
		limited = true
	}

	rows, err := p.processBatches(ctx, headers, rawRows, table, category, opts.OnBatch)
	if err != nil {
		return nil, err
	}

	metadata := models.ProcessMetadata{
		Category:       category,
		RowCount:       len(rows),
		TotalRows:      totalRows,
		IsLimited:      limited,
		CapturedAt:     time.Now().UTC(),
		DateRange:      dateRange(rows, category),
		Headers:        headers,
		MissingColumns: validation.Missing,
	}

	p.logger.WithFields(logger.Fields{
		"category":  category.String(),
		"row_count": len(rows),
		"limited":   limited,
	}).Info("Processed file")

	return &models.ProcessResult{
		Rows:     rows,
		Category: category,
		Metadata: metadata,
	}, nil
}

// parse reads the raw text as delimited data with a header row. Blank
// lines and all-empty records are skipped.
func (p *Pipeline) parse(rawText string) ([]string, []map[string]interface{}, error) {
	reader := csv.NewReader(strings.NewReader(rawText))
	reader.Comma = p.config.Delimiter
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, apperrors.ParseError(err.Error(), err)
	}
	if len(records) == 0 {
		return nil, nil, apperrors.EmptyFileError()
	}

	headers := make([]string, len(records[0]))
	copy(headers, records[0])

	rows := make([]map[string]interface{}, 0, len(records)-1)
	for _, record := range records[1:] {
		if isEmptyRecord(record) {
			continue
		}
		raw := make(map[string]interface{}, len(headers))
		for i, header := range headers {
			if i < len(record) {
				raw[header] = record[i]
			}
		}
		rows = append(rows, raw)
	}

	return headers, rows, nil
}

func isEmptyRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// processBatches maps and derives rows in fixed-size batches, checking for
// cancellation and notifying the host between batches. The concatenated
// result is identical to single-pass processing.
func (p *Pipeline) processBatches(ctx context.Context, headers []string, rawRows []map[string]interface{}, table mapping.Table, category models.Category, onBatch func(processed, total int)) ([]models.Row, error) {
	total := len(rawRows)
	rows := make([]models.Row, 0, total)

	tracker := logger.NewProgressTracker(logger.ProgressConfig{
		Operation: "process rows",
		Total:     int64(total),
		Logger:    p.logger,
	})

	for start := 0; start < total; start += p.config.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, apperrors.InternalError("row processing", err)
		}

		end := start + p.config.BatchSize
		if end > total {
			end = total
		}

		for _, raw := range rawRows[start:end] {
			row := DeriveRow(mapping.MapRow(raw, table), category)
			rows = append(rows, row)
		}

		tracker.Add(int64(end - start))
		if onBatch != nil {
			onBatch(end, total)
		}
	}

	tracker.Complete()
	return rows, nil
}

// dateRange extracts the min and max of the category's primary-date field
// across all rows, skipping empty values. ISO-style date strings order
// lexicographically, which matches chronological order.
func dateRange(rows []models.Row, category models.Category) models.DateRange {
	field := models.PrimaryDateField(category)
	if field == "" {
		return models.DateRange{}
	}

	var r models.DateRange
	for _, row := range rows {
		value := row.StringValue(field)
		if value == "" {
			continue
		}
		if r.Start == "" || value < r.Start {
			r.Start = value
		}
		if r.End == "" || value > r.End {
			r.End = value
		}
	}
	return r
}

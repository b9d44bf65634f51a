// Package export renders stored datasets to CSV and XLSX files for the
// presentation layer. Column order is stable: the primary date first, the
// raw metric columns in a fixed order, any remaining columns sorted, and
// the derived metrics last.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/xuri/excelize/v2"

	"golang-social-analytics-service/internal/models"
	apperrors "golang-social-analytics-service/pkg/errors"
)

// Format selects the output encoding
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// IsValid checks if the format is supported
func (f Format) IsValid() bool {
	return f == FormatCSV || f == FormatXLSX
}

// preferredOrder lists the leading columns per category, after the primary
// date field.
var preferredOrder = map[models.Category][]string{
	models.CategoryDailySummary: {
		models.FieldReach,
		models.FieldLikes,
		models.FieldComments,
		models.FieldShares,
		models.FieldProfileViews,
		models.FieldFollows,
	},
	models.CategoryPerItem: {
		models.FieldDescription,
		models.FieldPostType,
		models.FieldViews,
		models.FieldLikes,
		models.FieldComments,
		models.FieldShares,
		models.FieldFavorites,
		models.FieldDuration,
	},
}

// derived metrics always render last
var trailingOrder = []string{
	models.FieldInteractions,
	models.FieldEngagementRate,
	models.FieldPublicationCount,
}

// Write renders rows in the given format
func Write(w io.Writer, rows []models.Row, category models.Category, format Format) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, rows, category)
	case FormatXLSX:
		return WriteXLSX(w, rows, category)
	default:
		return apperrors.InvalidInputError("export", "unsupported format "+string(format))
	}
}

// WriteCSV renders rows as CSV with a header row of display names
func WriteCSV(w io.Writer, rows []models.Row, category models.Category) error {
	columns := columnOrder(rows, category)

	writer := csv.NewWriter(w)
	if err := writer.Write(headerNames(columns)); err != nil {
		return apperrors.InternalError("csv export", err)
	}

	record := make([]string, len(columns))
	for _, row := range rows {
		for i, column := range columns {
			record[i] = cellString(row[column])
		}
		if err := writer.Write(record); err != nil {
			return apperrors.InternalError("csv export", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return apperrors.InternalError("csv export", err)
	}
	return nil
}

// WriteXLSX renders rows as a single-sheet spreadsheet
func WriteXLSX(w io.Writer, rows []models.Row, category models.Category) error {
	columns := columnOrder(rows, category)

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, name := range headerNames(columns) {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return apperrors.InternalError("xlsx export", err)
		}
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return apperrors.InternalError("xlsx export", err)
		}
	}

	for r, row := range rows {
		for c, column := range columns {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return apperrors.InternalError("xlsx export", err)
			}
			if err := f.SetCellValue(sheet, cell, row[column]); err != nil {
				return apperrors.InternalError("xlsx export", err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return apperrors.InternalError("xlsx export", err)
	}
	return nil
}

// columnOrder computes the stable column sequence for a set of rows
func columnOrder(rows []models.Row, category models.Category) []string {
	present := make(map[string]bool)
	for _, row := range rows {
		for key := range row {
			present[key] = true
		}
	}

	var columns []string
	taken := make(map[string]bool)
	add := func(key string) {
		if present[key] && !taken[key] {
			columns = append(columns, key)
			taken[key] = true
		}
	}

	add(models.PrimaryDateField(category))
	for _, key := range preferredOrder[category] {
		add(key)
	}

	trailing := make(map[string]bool, len(trailingOrder))
	for _, key := range trailingOrder {
		trailing[key] = true
	}

	var rest []string
	for key := range present {
		if !taken[key] && !trailing[key] && key != models.FieldAccountID {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	for _, key := range rest {
		add(key)
	}

	for _, key := range trailingOrder {
		add(key)
	}
	return columns
}

func headerNames(columns []string) []string {
	names := make([]string, len(columns))
	for i, column := range columns {
		names[i] = models.DisplayName(column)
	}
	return names
}

func cellString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

package mapping

import "golang-social-analytics-service/internal/models"

// Table maps external column header strings, as they literally appear in a
// vendor export, to stable internal field names. The mapping is not
// required to be 1:1 on the internal side: the Swedish and English names
// for the same field coexist so both locales import without configuration.
type Table map[string]string

// Clone returns a copy of the table
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

var dailySummaryDefaults = Table{
	// Swedish export headers
	"Datum":             models.FieldDate,
	"Målgrupp som nåtts": models.FieldReach,
	"Räckvidd":          models.FieldReach,
	"Gilla-markeringar": models.FieldLikes,
	"Kommentarer":       models.FieldComments,
	"Delningar":         models.FieldShares,
	"Profilbesök":       models.FieldProfileViews,
	"Nya följare":       models.FieldFollows,

	// English export headers
	"Date":             models.FieldDate,
	"Accounts reached": models.FieldReach,
	"Reach":            models.FieldReach,
	"Likes":            models.FieldLikes,
	"Comments":         models.FieldComments,
	"Shares":           models.FieldShares,
	"Profile visits":   models.FieldProfileViews,
	"New follows":      models.FieldFollows,
}

var perItemDefaults = Table{
	// Swedish export headers
	"Publiceringstid":   models.FieldPublishTime,
	"Beskrivning":       models.FieldDescription,
	"Bildtext":          models.FieldDescription,
	"Inläggstyp":        models.FieldPostType,
	"Visningar":         models.FieldViews,
	"Gilla-markeringar": models.FieldLikes,
	"Kommentarer":       models.FieldComments,
	"Delningar":         models.FieldShares,
	"Sparade objekt":    models.FieldFavorites,
	"Varaktighet":       models.FieldDuration,

	// English export headers
	"Publish time": models.FieldPublishTime,
	"Description":  models.FieldDescription,
	"Caption":      models.FieldDescription,
	"Post type":    models.FieldPostType,
	"Views":        models.FieldViews,
	"Likes":        models.FieldLikes,
	"Comments":     models.FieldComments,
	"Shares":       models.FieldShares,
	"Saves":        models.FieldFavorites,
	"Duration":     models.FieldDuration,
}

// DefaultTable returns the built-in external-to-internal mapping for a
// category, merging both supported locales. Unsupported categories get an
// empty table.
func DefaultTable(category models.Category) Table {
	switch category {
	case models.CategoryDailySummary:
		return dailySummaryDefaults.Clone()
	case models.CategoryPerItem:
		return perItemDefaults.Clone()
	default:
		return Table{}
	}
}

package processor

import (
	"github.com/shopspring/decimal"

	"golang-social-analytics-service/internal/models"
	"golang-social-analytics-service/internal/normalize"
)

// DeriveRow computes the per-row derived metrics for a mapped row and
// returns a new row; the input is not mutated. All additive inputs pass
// through numeric coercion first, so missing or malformed source fields
// never propagate NaN. Deriving an already-derived row recomputes the same
// values from the base fields, making the function idempotent.
func DeriveRow(row models.Row, category models.Category) models.Row {
	out := row.Clone()

	switch category {
	case models.CategoryDailySummary:
		interactions := normalize.ToNumber(row[models.FieldLikes]) +
			normalize.ToNumber(row[models.FieldComments]) +
			normalize.ToNumber(row[models.FieldShares])
		out[models.FieldInteractions] = interactions
		out[models.FieldEngagementRate] = engagementRate(interactions, normalize.ToNumber(row[models.FieldReach]))

	case models.CategoryPerItem:
		interactions := normalize.ToNumber(row[models.FieldLikes]) +
			normalize.ToNumber(row[models.FieldComments]) +
			normalize.ToNumber(row[models.FieldShares]) +
			normalize.ToNumber(row[models.FieldFavorites])
		out[models.FieldInteractions] = interactions
		out[models.FieldEngagementRate] = engagementRate(interactions, normalize.ToNumber(row[models.FieldViews]))
		// Enables count aggregation over stored rows later
		out[models.FieldPublicationCount] = float64(1)
	}

	return out
}

// engagementRate returns interactions/denominator as a percentage rounded
// to two decimal places, or exactly 0 when the denominator is not positive.
func engagementRate(interactions, denominator float64) float64 {
	if denominator <= 0 {
		return 0
	}
	rate := decimal.NewFromFloat(interactions).
		Div(decimal.NewFromFloat(denominator)).
		Mul(decimal.NewFromInt(100)).
		Round(2)
	return rate.InexactFloat64()
}

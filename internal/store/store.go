// Package store persists accounts and per-account datasets across two
// storage tiers: a small synchronous JSON key/value file (the fast tier)
// and an embedded sqlite database (the durable tier).
//
// The durable tier is the system of record and always receives a copy of
// every dataset; the fast tier opportunistically holds small payloads as a
// read fast path. The Manager is the sole owner of write access to both
// and keeps them consistent enough that loads never mix rows from
// different uploads of the same account and category.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"golang-social-analytics-service/internal/models"
)

// DatasetTier is the strategy interface both storage backends implement
// for dataset records. It keeps the dual-write policy testable with
// in-memory fakes.
type DatasetTier interface {
	// SaveDataset stores a dataset record with replace semantics: any
	// existing record for the same account and category is removed first.
	SaveDataset(ctx context.Context, record *models.DatasetRecord) error
	// LoadDataset returns the most recent record for the account and
	// category, or nil when none exists.
	LoadDataset(ctx context.Context, accountID string, category models.Category) (*models.DatasetRecord, error)
	// DeleteDataset removes the record for the account and category
	DeleteDataset(ctx context.Context, accountID string, category models.Category) error
	// DeleteAccountDatasets removes every dataset owned by the account
	DeleteAccountDatasets(ctx context.Context, accountID string) error
}

// supportedCategories are the dataset categories the tiers persist
var supportedCategories = []models.Category{
	models.CategoryDailySummary,
	models.CategoryPerItem,
}

// NewAccountID generates an opaque account identifier: a millisecond
// timestamp prefix keeps identifiers roughly monotonic, and a short random
// suffix avoids same-millisecond collisions.
func NewAccountID() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// isoDateLayouts are the date formats recognized when normalizing primary
// date fields on save. Values matching none of these are stored unchanged.
var isoDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"02.01.2006",
}

// NormalizeDate converts a date string to canonical RFC 3339 form where
// parseable, returning the value unchanged otherwise.
func NormalizeDate(value string) string {
	for _, layout := range isoDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	return value
}

// StorageStats is a best-effort snapshot of storage usage. Degraded is set
// when any probe failed and the corresponding numbers are zeroed.
type StorageStats struct {
	FastTierBytes    int64                   `json:"fastTierBytes"`
	DurableTierBytes int64                   `json:"durableTierBytes"`
	AccountCount     int                     `json:"accountCount"`
	DatasetCounts    map[models.Category]int `json:"datasetCounts"`
	Degraded         bool                    `json:"degraded"`
}

// WipeResult is the first-class outcome of a destructive wipe. Complete is
// false when the durable tier did not acknowledge the deletion within the
// timeout; the deletion may still finish in the background, so callers
// must not report a data-loss-free success.
type WipeResult struct {
	Complete bool   `json:"complete"`
	Detail   string `json:"detail,omitempty"`
}

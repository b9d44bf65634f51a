// Package models defines the core data types for the analytics tool:
// accounts, dataset rows, processing metadata, and the closed category
// enumeration with its per-category field tables.
//
// Rows are string-keyed maps rather than fixed structs because the set of
// columns in a vendor export varies by locale and schema revision; the
// required and derived fields per category are enumerated here as constant
// tables instead of being inferred at runtime.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Category classifies an uploaded file into one of a closed set of sources.
type Category string

const (
	// CategoryDailySummary is a daily account-level statistics export
	CategoryDailySummary Category = "daily-summary"
	// CategoryPerItem is a per-post statistics export
	CategoryPerItem Category = "per-item"
	// CategoryFacebook is a recognized but unsupported Facebook export
	CategoryFacebook Category = "facebook"
	// CategoryTikTok is a recognized but unsupported TikTok export
	CategoryTikTok Category = "tiktok"
	// CategoryUnknown is the fallback when no category matches
	CategoryUnknown Category = "unknown"
)

// String returns the string representation of the category
func (c Category) String() string {
	return string(c)
}

// IsValid checks if the category is a member of the closed enumeration
func (c Category) IsValid() bool {
	switch c {
	case CategoryDailySummary, CategoryPerItem, CategoryFacebook, CategoryTikTok, CategoryUnknown:
		return true
	}
	return false
}

// IsSupported reports whether datasets of this category can be ingested
func (c Category) IsSupported() bool {
	return c == CategoryDailySummary || c == CategoryPerItem
}

// PlatformLabel returns a human-readable platform name for diagnostics
func (c Category) PlatformLabel() string {
	switch c {
	case CategoryFacebook:
		return "Facebook"
	case CategoryTikTok:
		return "TikTok"
	case CategoryDailySummary, CategoryPerItem:
		return "Instagram"
	default:
		return "Unknown platform"
	}
}

// Internal field names. These are the stable, locale-independent keys used
// throughout the core regardless of the external column header text.
const (
	FieldAccountID        = "accountId"
	FieldDate             = "date"
	FieldPublishTime      = "publish_time"
	FieldDescription      = "description"
	FieldPostType         = "post_type"
	FieldDuration         = "duration"
	FieldReach            = "reach"
	FieldViews            = "views"
	FieldLikes            = "likes"
	FieldComments         = "comments"
	FieldShares           = "shares"
	FieldFavorites        = "favorites"
	FieldFollows          = "follows"
	FieldProfileViews     = "profile_views"
	FieldInteractions     = "interactions"
	FieldEngagementRate   = "engagement_rate"
	FieldPublicationCount = "publication_count"
)

// requiredFields enumerates the mandatory internal fields per category.
var requiredFields = map[Category][]string{
	CategoryDailySummary: {FieldDate, FieldReach, FieldLikes, FieldComments, FieldShares},
	CategoryPerItem:      {FieldPublishTime, FieldViews, FieldLikes, FieldComments, FieldShares},
}

// RequiredFields returns the mandatory internal fields for a category.
// Unsupported categories have no required fields.
func RequiredFields(category Category) []string {
	fields := requiredFields[category]
	out := make([]string, len(fields))
	copy(out, fields)
	return out
}

// PrimaryDateField returns the internal field holding the category's
// primary date: capture date for daily summaries, publish time for
// per-item rows. Empty for unsupported categories.
func PrimaryDateField(category Category) string {
	switch category {
	case CategoryDailySummary:
		return FieldDate
	case CategoryPerItem:
		return FieldPublishTime
	default:
		return ""
	}
}

// displayNames maps internal field names to the names shown to users, for
// example in missing-column warnings.
var displayNames = map[string]string{
	FieldDate:         "Date",
	FieldPublishTime:  "Publish time",
	FieldDescription:  "Description",
	FieldPostType:     "Post type",
	FieldDuration:     "Duration",
	FieldReach:        "Reach",
	FieldViews:        "Views",
	FieldLikes:        "Likes",
	FieldComments:     "Comments",
	FieldShares:       "Shares",
	FieldFavorites:    "Saves",
	FieldFollows:      "Follows",
	FieldProfileViews: "Profile visits",
}

// DisplayName returns the human-readable name for an internal field,
// falling back to the field name itself when none is registered.
func DisplayName(field string) string {
	if name, ok := displayNames[field]; ok {
		return name
	}
	return field
}

// Row is a single processed record: internal field name to value. Values
// are ISO-8601 date strings, finite float64 numbers, or short text.
type Row map[string]interface{}

// Clone returns a shallow copy of the row
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// StringValue returns the row value as a string, empty if absent or not text
func (r Row) StringValue(field string) string {
	if v, ok := r[field].(string); ok {
		return v
	}
	return ""
}

// Account is a user-defined analysis bucket that datasets attach to.
type Account struct {
	ID                    string    `json:"id"`
	Name                  string    `json:"name"`
	Handle                string    `json:"handle,omitempty"`
	Description           string    `json:"description,omitempty"`
	DailySummaryUploaded  bool      `json:"dailySummaryUploaded"`
	DailySummaryUpdatedAt time.Time `json:"dailySummaryUpdatedAt,omitempty"`
	PerItemUploaded       bool      `json:"perItemUploaded"`
	PerItemUpdatedAt      time.Time `json:"perItemUpdatedAt,omitempty"`
	CreatedAt             time.Time `json:"createdAt"`
}

// NewAccount creates a new Account with the given display name
func NewAccount(name string) *Account {
	return &Account{
		Name:      strings.TrimSpace(name),
		CreatedAt: time.Now().UTC(),
	}
}

// Validate performs basic validation on the Account
func (a *Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("account name cannot be empty")
	}
	return nil
}

// MarkUploaded records that a dataset category was (re)uploaded
func (a *Account) MarkUploaded(category Category, at time.Time) {
	switch category {
	case CategoryDailySummary:
		a.DailySummaryUploaded = true
		a.DailySummaryUpdatedAt = at
	case CategoryPerItem:
		a.PerItemUploaded = true
		a.PerItemUpdatedAt = at
	}
}

// String returns a string representation of the Account
func (a *Account) String() string {
	return fmt.Sprintf("Account{ID: %s, Name: %s}", a.ID, a.Name)
}

// DatasetRecord holds one ingested dataset for an account and category.
type DatasetRecord struct {
	AccountID  string    `json:"accountId"`
	Category   Category  `json:"category"`
	CapturedAt time.Time `json:"capturedAt"`
	Rows       []Row     `json:"rows"`
}

// Validate performs basic validation on the DatasetRecord
func (d *DatasetRecord) Validate() error {
	if strings.TrimSpace(d.AccountID) == "" {
		return fmt.Errorf("dataset account ID cannot be empty")
	}
	if !d.Category.IsSupported() {
		return fmt.Errorf("unsupported dataset category: %s", d.Category)
	}
	return nil
}

// EstimatedSize returns the serialized payload size in bytes, used for
// storage tier selection. Returns 0 when the record cannot be serialized.
func (d *DatasetRecord) EstimatedSize() int {
	data, err := json.Marshal(d.Rows)
	if err != nil {
		return 0
	}
	return len(data)
}

// DateRange is the min/max of a dataset's primary-date field.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// IsZero reports whether no dates were found
func (r DateRange) IsZero() bool {
	return r.Start == "" && r.End == ""
}

// PlatformMismatch describes a file detected as belonging to a different,
// unsupported source.
type PlatformMismatch struct {
	Platform string `json:"platform"`
	Message  string `json:"message"`
}

// ProcessMetadata is the ephemeral bundle of facts about one ingestion run.
type ProcessMetadata struct {
	Category         Category          `json:"category"`
	RowCount         int               `json:"rowCount"`
	TotalRows        int               `json:"totalRows"`
	IsLimited        bool              `json:"isLimited"`
	CapturedAt       time.Time         `json:"capturedAt"`
	DateRange        DateRange         `json:"dateRange"`
	Headers          []string          `json:"headers"`
	MissingColumns   []string          `json:"missingColumns"`
	PlatformMismatch *PlatformMismatch `json:"platformMismatch,omitempty"`
}

// ProcessResult bundles the processed rows with their metadata.
type ProcessResult struct {
	Rows     []Row           `json:"rows"`
	Category Category        `json:"category"`
	Metadata ProcessMetadata `json:"metadata"`
}

// Package mapping maintains the bidirectional relationship between vendor
// column headers and internal field names: built-in bilingual defaults,
// persisted user overrides, row mapping, and required-column validation.
package mapping

import (
	"sort"
	"strings"
	"sync"

	"golang-social-analytics-service/internal/models"
	"golang-social-analytics-service/internal/normalize"
	apperrors "golang-social-analytics-service/pkg/errors"
	"golang-social-analytics-service/pkg/logger"
)

// tableKeyPrefix is the fast-tier key scheme for persisted mapping tables
const tableKeyPrefix = "column_mapping_"

// KV is the small synchronous key/value surface the mapper persists tables
// through. The fast storage tier satisfies it.
type KV interface {
	GetJSON(key string, out interface{}) (bool, error)
	SetJSON(key string, value interface{}) error
}

// Mapper owns the active mapping table per category. Tables are cached in
// memory; every write replaces the cache entry so a read in the same
// session never observes stale data. The cache is instance-owned, not a
// package singleton, so tests can construct isolated mappers.
type Mapper struct {
	kv     KV
	cache  map[models.Category]Table
	mutex  sync.Mutex
	logger logger.Logger
}

// NewMapper creates a Mapper persisting through kv. A nil kv yields a
// memory-only mapper, useful in tests.
func NewMapper(kv KV) *Mapper {
	return &Mapper{
		kv:     kv,
		cache:  make(map[models.Category]Table),
		logger: logger.GetGlobalLogger().WithComponent("mapping"),
	}
}

// Get returns the active mapping table for a category: the cached copy,
// else the persisted user table, else the built-in defaults.
func (m *Mapper) Get(category models.Category) (Table, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.getLocked(category)
}

func (m *Mapper) getLocked(category models.Category) (Table, error) {
	if table, ok := m.cache[category]; ok {
		return table.Clone(), nil
	}

	table := DefaultTable(category)
	if m.kv != nil {
		var stored Table
		found, err := m.kv.GetJSON(tableKey(category), &stored)
		if err != nil {
			// Read failures degrade to defaults; log for diagnostics
			m.logger.WithError(err).WithField("category", category.String()).
				Warn("Failed to load persisted mapping table, using defaults")
		} else if found {
			table = stored
		}
	}

	m.cache[category] = table
	return table.Clone(), nil
}

// Set records a user override mapping externalName to internalName. It
// rejects an empty external name, and rejects reassigning an external name
// that already maps to a different internal field, leaving the table
// untouched in both cases. On success the table is persisted and the cache
// entry replaced.
func (m *Mapper) Set(category models.Category, externalName, internalName string) (Table, error) {
	if strings.TrimSpace(externalName) == "" {
		return nil, apperrors.MappingError(apperrors.CodeEmptyMappingKey, externalName, internalName)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	table, err := m.getLocked(category)
	if err != nil {
		return nil, err
	}

	if existing, ok := table[externalName]; ok && existing != internalName {
		return nil, apperrors.MappingError(apperrors.CodeMappingConflict, externalName, internalName).
			WithContext("existing_internal_name", existing)
	}

	table[externalName] = internalName
	if err := m.persistLocked(category, table); err != nil {
		return nil, err
	}

	m.logger.WithFields(logger.Fields{
		"category": category.String(),
		"external": externalName,
		"internal": internalName,
	}).Info("Saved column mapping override")

	return table.Clone(), nil
}

// Reset restores the built-in defaults for a category and persists them.
func (m *Mapper) Reset(category models.Category) (Table, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	table := DefaultTable(category)
	if err := m.persistLocked(category, table); err != nil {
		return nil, err
	}

	m.logger.WithField("category", category.String()).Info("Reset column mapping to defaults")
	return table.Clone(), nil
}

// Invalidate drops the cached table for a category, forcing the next read
// to reload from storage. Useful for test isolation and teardown.
func (m *Mapper) Invalidate(category models.Category) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.cache, category)
}

func (m *Mapper) persistLocked(category models.Category, table Table) error {
	if m.kv != nil {
		if err := m.kv.SetJSON(tableKey(category), table); err != nil {
			return apperrors.StorageWriteError("save mapping table", err)
		}
	}
	// Replace, never mutate in place: readers hold clones
	m.cache[category] = table
	return nil
}

func tableKey(category models.Category) string {
	return tableKeyPrefix + category.String()
}

// MapRow translates a raw parsed row to internal field names. External keys
// are matched against the table after normalization; the first match wins.
// Keys with no mapping pass through unchanged under their original name, so
// unmapped columns are preserved rather than dropped. Numeric-looking
// string values are opportunistically parsed to numbers.
func MapRow(raw map[string]interface{}, table Table) models.Row {
	index := normalizedIndex(table)

	row := make(models.Row, len(raw))
	for externalKey, value := range raw {
		key := externalKey
		if internal, ok := index[normalize.Header(externalKey)]; ok {
			key = internal
		}
		row[key] = normalize.ParseIfNumber(value)
	}
	return row
}

// normalizedIndex builds a normalized-external-name lookup. Table keys are
// visited in sorted order so that two externals normalizing to the same
// string resolve deterministically.
func normalizedIndex(table Table) map[string]string {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	index := make(map[string]string, len(table))
	for _, k := range keys {
		nk := normalize.Header(k)
		if _, exists := index[nk]; !exists {
			index[nk] = table[k]
		}
	}
	return index
}

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang-social-analytics-service/internal/models"
	apperrors "golang-social-analytics-service/pkg/errors"
	"golang-social-analytics-service/pkg/logger"
)

const (
	accountsKey      = "accounts"
	lastAccountKey   = "last_account"
	datasetKeyPrefix = "dataset_"

	// defaultQuota bounds the fast tier's total serialized size, in the
	// spirit of a browser's synchronous key/value store.
	defaultQuota = 5 << 20
)

// FastTier is the small-capacity synchronous store: a JSON file holding a
// flat key/value map. Writes rewrite the whole file through a rename, so a
// reader never observes a partially written state.
type FastTier struct {
	path   string
	quota  int64
	data   map[string]json.RawMessage
	mutex  sync.RWMutex
	logger logger.Logger
}

// OpenFastTier opens or creates the fast tier file at path. A quota of 0
// selects the default.
func OpenFastTier(path string, quota int64) (*FastTier, error) {
	if quota <= 0 {
		quota = defaultQuota
	}

	t := &FastTier{
		path:   path,
		quota:  quota,
		data:   make(map[string]json.RawMessage),
		logger: logger.GetGlobalLogger().WithComponent("fast_tier"),
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return t, nil
	}
	if err != nil {
		return nil, apperrors.FileError(apperrors.CodeFilePermission, path, err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &t.data); err != nil {
			return nil, apperrors.FileError(apperrors.CodeFileCorrupted, path, err)
		}
	}

	return t, nil
}

// GetJSON reads a key into out, reporting whether the key existed
func (t *FastTier) GetJSON(key string, out interface{}) (bool, error) {
	t.mutex.RLock()
	raw, ok := t.data[key]
	t.mutex.RUnlock()

	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, apperrors.StorageReadError("fast tier get "+key, err)
	}
	return true, nil
}

// SetJSON stores a value under key, rejecting writes that would exceed the
// tier's quota.
func (t *FastTier) SetJSON(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return apperrors.StorageWriteError("fast tier set "+key, err)
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()

	previous, hadPrevious := t.data[key]
	t.data[key] = raw

	if t.totalSizeLocked() > t.quota {
		// Roll back so an oversized write never evicts other keys
		if hadPrevious {
			t.data[key] = previous
		} else {
			delete(t.data, key)
		}
		return apperrors.StorageWriteError("fast tier set "+key,
			fmt.Errorf("quota of %d bytes exceeded", t.quota))
	}

	if err := t.flushLocked(); err != nil {
		if hadPrevious {
			t.data[key] = previous
		} else {
			delete(t.data, key)
		}
		return err
	}
	return nil
}

// Delete removes a key. Deleting a missing key is not an error.
func (t *FastTier) Delete(key string) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if _, ok := t.data[key]; !ok {
		return nil
	}
	delete(t.data, key)
	return t.flushLocked()
}

// Keys returns all stored keys with the given prefix, sorted
func (t *FastTier) Keys(prefix string) []string {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	var keys []string
	for k := range t.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// TotalSize returns the serialized size of all stored values in bytes
func (t *FastTier) TotalSize() int64 {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.totalSizeLocked()
}

func (t *FastTier) totalSizeLocked() int64 {
	var size int64
	for k, v := range t.data {
		size += int64(len(k) + len(v))
	}
	return size
}

// Clear removes every key from the tier
func (t *FastTier) Clear() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.data = make(map[string]json.RawMessage)
	return t.flushLocked()
}

func (t *FastTier) flushLocked() error {
	raw, err := json.Marshal(t.data)
	if err != nil {
		return apperrors.StorageWriteError("fast tier flush", err)
	}

	dir := filepath.Dir(t.path)
	tmp, err := os.CreateTemp(dir, ".fasttier-*")
	if err != nil {
		return apperrors.StorageWriteError("fast tier flush", err)
	}

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return apperrors.StorageWriteError("fast tier flush", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return apperrors.StorageWriteError("fast tier flush", err)
	}

	if err := os.Rename(tmp.Name(), t.path); err != nil {
		os.Remove(tmp.Name())
		return apperrors.StorageWriteError("fast tier flush", err)
	}
	return nil
}

// Dataset storage over the key/value surface. Keys follow the
// deterministic scheme dataset_<accountID>_<category>.

func datasetKey(accountID string, category models.Category) string {
	return datasetKeyPrefix + accountID + "_" + category.String()
}

// SaveDataset stores a dataset record, replacing any previous record for
// the same account and category (a single key overwrite).
func (t *FastTier) SaveDataset(ctx context.Context, record *models.DatasetRecord) error {
	if err := record.Validate(); err != nil {
		return apperrors.StorageWriteError("fast tier save dataset", err)
	}
	return t.SetJSON(datasetKey(record.AccountID, record.Category), record)
}

// LoadDataset returns the stored record, or nil when absent
func (t *FastTier) LoadDataset(ctx context.Context, accountID string, category models.Category) (*models.DatasetRecord, error) {
	var record models.DatasetRecord
	found, err := t.GetJSON(datasetKey(accountID, category), &record)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &record, nil
}

// DeleteDataset removes the record for the account and category
func (t *FastTier) DeleteDataset(ctx context.Context, accountID string, category models.Category) error {
	return t.Delete(datasetKey(accountID, category))
}

// DeleteAccountDatasets removes every dataset snapshot for the account
func (t *FastTier) DeleteAccountDatasets(ctx context.Context, accountID string) error {
	for _, category := range supportedCategories {
		if err := t.DeleteDataset(ctx, accountID, category); err != nil {
			return err
		}
	}
	return nil
}

// Account list snapshot, stored as one JSON array under a fixed key.

// LoadAccounts returns the account list snapshot, empty when absent
func (t *FastTier) LoadAccounts() ([]*models.Account, error) {
	var accounts []*models.Account
	if _, err := t.GetJSON(accountsKey, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// SaveAccounts replaces the account list snapshot
func (t *FastTier) SaveAccounts(accounts []*models.Account) error {
	return t.SetJSON(accountsKey, accounts)
}

// LastAccount returns the last-selected-account marker, empty if unset
func (t *FastTier) LastAccount() string {
	var id string
	if _, err := t.GetJSON(lastAccountKey, &id); err != nil {
		t.logger.WithError(err).Warn("Failed to read last account marker")
		return ""
	}
	return id
}

// SetLastAccount stores the last-selected-account marker
func (t *FastTier) SetLastAccount(id string) error {
	return t.SetJSON(lastAccountKey, id)
}

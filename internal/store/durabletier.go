package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"golang-social-analytics-service/internal/models"
	apperrors "golang-social-analytics-service/pkg/errors"
	"golang-social-analytics-service/pkg/logger"
)

// DurableTier is the larger-capacity authoritative store, backed by an
// embedded sqlite database with one table per logical collection:
// accounts, daily-summary datasets, and per-item datasets. The dataset
// tables are indexed by owning account identifier.
type DurableTier struct {
	db     *sql.DB
	logger logger.Logger
}

const durableSchema = `
CREATE TABLE IF NOT EXISTS accounts (
	id   TEXT PRIMARY KEY,
	data TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS daily_summary_datasets (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	account_id  TEXT NOT NULL,
	captured_at TEXT NOT NULL,
	rows        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_daily_summary_account ON daily_summary_datasets(account_id);
CREATE TABLE IF NOT EXISTS per_item_datasets (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	account_id  TEXT NOT NULL,
	captured_at TEXT NOT NULL,
	rows        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_per_item_account ON per_item_datasets(account_id);
`

// OpenDurableTier opens or creates the sqlite database at path
func OpenDurableTier(path string) (*DurableTier, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, apperrors.StorageWriteError("open durable tier", err)
	}

	// The pure-Go driver serializes writes; a single connection avoids
	// SQLITE_BUSY on concurrent statements.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(durableSchema); err != nil {
		db.Close()
		return nil, apperrors.StorageWriteError("create durable tier schema", err)
	}

	return &DurableTier{
		db:     db,
		logger: logger.GetGlobalLogger().WithComponent("durable_tier"),
	}, nil
}

// Close releases the underlying database handle
func (t *DurableTier) Close() error {
	return t.db.Close()
}

func datasetTable(category models.Category) (string, error) {
	switch category {
	case models.CategoryDailySummary:
		return "daily_summary_datasets", nil
	case models.CategoryPerItem:
		return "per_item_datasets", nil
	default:
		return "", apperrors.InvalidInputError("dataset table", "unsupported category "+category.String())
	}
}

// SaveDataset stores a dataset record with replace semantics: the delete
// and insert for the account and category run in one transaction, so a
// concurrent reader never observes a mid-transition empty state.
func (t *DurableTier) SaveDataset(ctx context.Context, record *models.DatasetRecord) error {
	if err := record.Validate(); err != nil {
		return apperrors.StorageWriteError("durable tier save dataset", err)
	}

	table, err := datasetTable(record.Category)
	if err != nil {
		return err
	}

	rows, err := json.Marshal(record.Rows)
	if err != nil {
		return apperrors.StorageWriteError("durable tier save dataset", err)
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.StorageWriteError("durable tier save dataset", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE account_id = ?", record.AccountID); err != nil {
		return apperrors.StorageWriteError("durable tier save dataset", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO "+table+" (account_id, captured_at, rows) VALUES (?, ?, ?)",
		record.AccountID, record.CapturedAt.UTC().Format(time.RFC3339Nano), string(rows)); err != nil {
		return apperrors.StorageWriteError("durable tier save dataset", err)
	}

	if err := tx.Commit(); err != nil {
		return apperrors.StorageWriteError("durable tier save dataset", err)
	}
	return nil
}

// LoadDataset returns the most recent record for the account and category
// by capture timestamp, or nil when none exists.
func (t *DurableTier) LoadDataset(ctx context.Context, accountID string, category models.Category) (*models.DatasetRecord, error) {
	table, err := datasetTable(category)
	if err != nil {
		return nil, err
	}

	row := t.db.QueryRowContext(ctx,
		"SELECT captured_at, rows FROM "+table+" WHERE account_id = ? ORDER BY captured_at DESC LIMIT 1",
		accountID)

	var capturedAt, rawRows string
	if err := row.Scan(&capturedAt, &rawRows); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, apperrors.StorageReadError("durable tier load dataset", err)
	}

	record := &models.DatasetRecord{
		AccountID: accountID,
		Category:  category,
	}
	if ts, err := time.Parse(time.RFC3339Nano, capturedAt); err == nil {
		record.CapturedAt = ts
	}
	if err := json.Unmarshal([]byte(rawRows), &record.Rows); err != nil {
		return nil, apperrors.StorageReadError("durable tier load dataset", err)
	}
	return record, nil
}

// DeleteDataset removes all records for the account and category
func (t *DurableTier) DeleteDataset(ctx context.Context, accountID string, category models.Category) error {
	table, err := datasetTable(category)
	if err != nil {
		return err
	}
	if _, err := t.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE account_id = ?", accountID); err != nil {
		return apperrors.StorageWriteError("durable tier delete dataset", err)
	}
	return nil
}

// DeleteAccountDatasets removes every dataset owned by the account
func (t *DurableTier) DeleteAccountDatasets(ctx context.Context, accountID string) error {
	for _, category := range supportedCategories {
		if err := t.DeleteDataset(ctx, accountID, category); err != nil {
			return err
		}
	}
	return nil
}

// ListAccounts returns all stored accounts ordered by creation time
func (t *DurableTier) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	rows, err := t.db.QueryContext(ctx, "SELECT data FROM accounts")
	if err != nil {
		return nil, apperrors.StorageReadError("durable tier list accounts", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, apperrors.StorageReadError("durable tier list accounts", err)
		}
		var account models.Account
		if err := json.Unmarshal([]byte(data), &account); err != nil {
			return nil, apperrors.StorageReadError("durable tier list accounts", err)
		}
		accounts = append(accounts, &account)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.StorageReadError("durable tier list accounts", err)
	}

	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
	})
	return accounts, nil
}

// GetAccount returns the account with the given id, or nil when absent
func (t *DurableTier) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	row := t.db.QueryRowContext(ctx, "SELECT data FROM accounts WHERE id = ?", id)

	var data string
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, apperrors.StorageReadError("durable tier get account", err)
	}

	var account models.Account
	if err := json.Unmarshal([]byte(data), &account); err != nil {
		return nil, apperrors.StorageReadError("durable tier get account", err)
	}
	return &account, nil
}

// SaveAccount inserts or replaces an account record
func (t *DurableTier) SaveAccount(ctx context.Context, account *models.Account) error {
	data, err := json.Marshal(account)
	if err != nil {
		return apperrors.StorageWriteError("durable tier save account", err)
	}
	if _, err := t.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO accounts (id, data) VALUES (?, ?)",
		account.ID, string(data)); err != nil {
		return apperrors.StorageWriteError("durable tier save account", err)
	}
	return nil
}

// DeleteAccount removes the account and cascades to its datasets, all in
// one transaction.
func (t *DurableTier) DeleteAccount(ctx context.Context, id string) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.StorageWriteError("durable tier delete account", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		"DELETE FROM accounts WHERE id = ?",
		"DELETE FROM daily_summary_datasets WHERE account_id = ?",
		"DELETE FROM per_item_datasets WHERE account_id = ?",
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return apperrors.StorageWriteError("durable tier delete account", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.StorageWriteError("durable tier delete account", err)
	}
	return nil
}

// Usage returns the database size in bytes via the sqlite page counters
func (t *DurableTier) Usage(ctx context.Context) (int64, error) {
	var pageCount, pageSize int64
	if err := t.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0, apperrors.StorageReadError("durable tier usage", err)
	}
	if err := t.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0, apperrors.StorageReadError("durable tier usage", err)
	}
	return pageCount * pageSize, nil
}

// CountDatasets returns the number of stored dataset records per category
func (t *DurableTier) CountDatasets(ctx context.Context) (map[models.Category]int, error) {
	counts := make(map[models.Category]int, len(supportedCategories))
	for _, category := range supportedCategories {
		table, err := datasetTable(category)
		if err != nil {
			return nil, err
		}
		var n int
		if err := t.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, apperrors.StorageReadError("durable tier count datasets", err)
		}
		counts[category] = n
	}
	return counts, nil
}

// CountAccounts returns the number of stored accounts
func (t *DurableTier) CountAccounts(ctx context.Context) (int, error) {
	var n int
	if err := t.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM accounts").Scan(&n); err != nil {
		return 0, apperrors.StorageReadError("durable tier count accounts", err)
	}
	return n, nil
}

// Wipe deletes every record from every collection
func (t *DurableTier) Wipe(ctx context.Context) error {
	for _, stmt := range []string{
		"DELETE FROM accounts",
		"DELETE FROM daily_summary_datasets",
		"DELETE FROM per_item_datasets",
	} {
		if _, err := t.db.ExecContext(ctx, stmt); err != nil {
			return apperrors.StorageWriteError("durable tier wipe", err)
		}
	}
	return nil
}

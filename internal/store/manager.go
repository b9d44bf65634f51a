package store

import (
	"context"
	"time"

	"golang-social-analytics-service/internal/models"
	apperrors "golang-social-analytics-service/pkg/errors"
	"golang-social-analytics-service/pkg/logger"
)

// durableStore is the surface the Manager needs from the durable tier
type durableStore interface {
	DatasetTier
	ListAccounts(ctx context.Context) ([]*models.Account, error)
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	SaveAccount(ctx context.Context, account *models.Account) error
	DeleteAccount(ctx context.Context, id string) error
	Usage(ctx context.Context) (int64, error)
	CountDatasets(ctx context.Context) (map[models.Category]int, error)
	CountAccounts(ctx context.Context) (int, error)
	Wipe(ctx context.Context) error
}

// fastStore is the surface the Manager needs from the fast tier
type fastStore interface {
	DatasetTier
	LoadAccounts() ([]*models.Account, error)
	SaveAccounts(accounts []*models.Account) error
	LastAccount() string
	SetLastAccount(id string) error
	TotalSize() int64
	Clear() error
}

// ManagerConfig holds the Manager's policy knobs
type ManagerConfig struct {
	// FastTierThreshold is the serialized payload size below which a
	// dataset is also written to the fast tier. The durable tier always
	// receives a copy regardless of size.
	FastTierThreshold int64
	// WipeTimeout bounds how long a destructive wipe waits for the
	// durable tier before reporting a may-be-incomplete result.
	WipeTimeout time.Duration
}

// DefaultManagerConfig returns the standard tier policy
func DefaultManagerConfig() *ManagerConfig {
	return &ManagerConfig{
		FastTierThreshold: 1 << 20,
		WipeTimeout:       5 * time.Second,
	}
}

// Manager owns both storage tiers and is their sole writer. Read paths
// never return errors to the caller: a failed read degrades to an empty
// result and is logged. Write paths always surface failures so a lost
// persist is never silently hidden.
type Manager struct {
	fast    fastStore
	durable durableStore
	config  *ManagerConfig
	logger  logger.Logger
}

// NewManager creates a Manager over the two concrete tiers
func NewManager(fast *FastTier, durable *DurableTier, config *ManagerConfig) *Manager {
	return newManager(fast, durable, config)
}

func newManager(fast fastStore, durable durableStore, config *ManagerConfig) *Manager {
	if config == nil {
		config = DefaultManagerConfig()
	}
	return &Manager{
		fast:    fast,
		durable: durable,
		config:  config,
		logger:  logger.GetGlobalLogger().WithComponent("store_manager"),
	}
}

// ListAccounts returns all accounts. The durable tier is authoritative;
// the fast-tier snapshot serves as fallback when it cannot be read.
func (m *Manager) ListAccounts(ctx context.Context) []*models.Account {
	accounts, err := m.durable.ListAccounts(ctx)
	if err == nil {
		return accounts
	}
	m.logger.WithError(err).Warn("Durable tier account list failed, falling back to fast tier")

	accounts, err = m.fast.LoadAccounts()
	if err != nil {
		m.logger.WithError(err).Warn("Fast tier account list failed")
		return nil
	}
	return accounts
}

// GetAccount returns the account with the given id, or nil when absent or
// unreadable.
func (m *Manager) GetAccount(ctx context.Context, id string) *models.Account {
	account, err := m.durable.GetAccount(ctx, id)
	if err != nil {
		m.logger.WithError(err).WithField("account_id", id).Warn("Account read failed")
		return nil
	}
	return account
}

// SaveAccount inserts or updates an account. A missing identifier marks an
// insert and a new id is generated.
func (m *Manager) SaveAccount(ctx context.Context, account *models.Account) (*models.Account, error) {
	if err := account.Validate(); err != nil {
		return nil, apperrors.InvalidInputError("save account", err.Error())
	}

	if account.ID == "" {
		account.ID = NewAccountID()
		if account.CreatedAt.IsZero() {
			account.CreatedAt = time.Now().UTC()
		}
	}

	if err := m.durable.SaveAccount(ctx, account); err != nil {
		return nil, err
	}

	m.refreshAccountSnapshot(ctx)
	return account, nil
}

// DeleteAccount removes the account and cascades to all its dataset
// records across both tiers.
func (m *Manager) DeleteAccount(ctx context.Context, id string) error {
	if err := m.durable.DeleteAccount(ctx, id); err != nil {
		return err
	}
	if err := m.fast.DeleteAccountDatasets(ctx, id); err != nil {
		return err
	}

	if m.fast.LastAccount() == id {
		if err := m.fast.SetLastAccount(""); err != nil {
			m.logger.WithError(err).Warn("Failed to clear last account marker")
		}
	}

	m.refreshAccountSnapshot(ctx)
	return nil
}

// SaveDataset persists a dataset with replace semantics. Every row is
// stamped with the owning account id and the primary-date field is
// normalized to ISO form where parseable. The durable tier always receives
// the record; the fast tier only when the payload is small enough.
func (m *Manager) SaveDataset(ctx context.Context, accountID string, category models.Category, rows []models.Row) error {
	record := &models.DatasetRecord{
		AccountID:  accountID,
		Category:   category,
		CapturedAt: time.Now().UTC(),
		Rows:       prepareRows(rows, accountID, category),
	}
	if err := record.Validate(); err != nil {
		return apperrors.InvalidInputError("save dataset", err.Error())
	}

	if err := m.durable.SaveDataset(ctx, record); err != nil {
		return err
	}

	if int64(record.EstimatedSize()) < m.config.FastTierThreshold {
		if err := m.fast.SaveDataset(ctx, record); err != nil {
			// Fast tier is a cache; the durable copy already succeeded
			m.logger.WithError(err).Warn("Fast tier dataset write failed")
		}
	} else {
		// Drop any stale small snapshot so tiers cannot disagree
		if err := m.fast.DeleteDataset(ctx, accountID, category); err != nil {
			m.logger.WithError(err).Warn("Fast tier dataset cleanup failed")
		}
	}

	m.markUploaded(ctx, accountID, category, record.CapturedAt)
	return nil
}

// LoadDataset returns the rows for an account and category: the durable
// tier first, the fast tier as fallback, an empty sequence when neither
// has data. Every returned row carries the account id regardless of the
// storage path taken.
func (m *Manager) LoadDataset(ctx context.Context, accountID string, category models.Category) []models.Row {
	record, err := m.durable.LoadDataset(ctx, accountID, category)
	if err != nil {
		m.logger.WithError(err).Warn("Durable tier dataset read failed, falling back to fast tier")
		record = nil
	}

	if record == nil {
		record, err = m.fast.LoadDataset(ctx, accountID, category)
		if err != nil {
			m.logger.WithError(err).Warn("Fast tier dataset read failed")
			record = nil
		}
	}

	if record == nil {
		return []models.Row{}
	}

	rows := make([]models.Row, len(record.Rows))
	for i, row := range record.Rows {
		stamped := row.Clone()
		stamped[models.FieldAccountID] = accountID
		rows[i] = stamped
	}
	return rows
}

// LastAccount returns the last-selected-account marker, empty if unset
func (m *Manager) LastAccount() string {
	return m.fast.LastAccount()
}

// SetLastAccount stores the last-selected-account marker
func (m *Manager) SetLastAccount(id string) error {
	return m.fast.SetLastAccount(id)
}

// Stats returns a best-effort storage usage snapshot. It never fails;
// unreadable numbers are zeroed and the Degraded flag set.
func (m *Manager) Stats(ctx context.Context) StorageStats {
	stats := StorageStats{
		FastTierBytes: m.fast.TotalSize(),
		DatasetCounts: make(map[models.Category]int),
	}

	if usage, err := m.durable.Usage(ctx); err != nil {
		m.logger.WithError(err).Warn("Durable tier usage probe failed")
		stats.Degraded = true
	} else {
		stats.DurableTierBytes = usage
	}

	if counts, err := m.durable.CountDatasets(ctx); err != nil {
		m.logger.WithError(err).Warn("Dataset count probe failed")
		stats.Degraded = true
	} else {
		stats.DatasetCounts = counts
	}

	if n, err := m.durable.CountAccounts(ctx); err != nil {
		m.logger.WithError(err).Warn("Account count probe failed")
		stats.Degraded = true
	} else {
		stats.AccountCount = n
	}

	return stats
}

// Wipe destroys all stored data. The durable deletion races the configured
// timeout: on timeout the result reports Complete=false because the
// deletion may still be pending, and callers must not present the outcome
// as a clean reset.
func (m *Manager) Wipe(ctx context.Context) (WipeResult, error) {
	if err := m.fast.Clear(); err != nil {
		return WipeResult{}, err
	}

	done := make(chan error, 1)
	go func() {
		done <- m.durable.Wipe(context.Background())
	}()

	select {
	case err := <-done:
		if err != nil {
			return WipeResult{}, err
		}
		return WipeResult{Complete: true}, nil
	case <-time.After(m.config.WipeTimeout):
		m.logger.Warn("Durable tier wipe timed out, deletion may still be pending")
		return WipeResult{Complete: false, Detail: "durable tier deletion still pending"}, nil
	case <-ctx.Done():
		return WipeResult{Complete: false, Detail: "wipe cancelled before durable tier acknowledged"}, nil
	}
}

// prepareRows stamps the account id and ISO-normalizes the primary date on
// a copy of every row.
func prepareRows(rows []models.Row, accountID string, category models.Category) []models.Row {
	dateField := models.PrimaryDateField(category)

	out := make([]models.Row, len(rows))
	for i, row := range rows {
		prepared := row.Clone()
		prepared[models.FieldAccountID] = accountID
		if dateField != "" {
			if value := prepared.StringValue(dateField); value != "" {
				prepared[dateField] = NormalizeDate(value)
			}
		}
		out[i] = prepared
	}
	return out
}

// markUploaded updates the owning account's upload status and timestamp
// for the category. Best-effort: a missing account is not an error.
func (m *Manager) markUploaded(ctx context.Context, accountID string, category models.Category, at time.Time) {
	account, err := m.durable.GetAccount(ctx, accountID)
	if err != nil || account == nil {
		if err != nil {
			m.logger.WithError(err).Warn("Account status update skipped")
		}
		return
	}

	account.MarkUploaded(category, at)
	if err := m.durable.SaveAccount(ctx, account); err != nil {
		m.logger.WithError(err).Warn("Account status update failed")
		return
	}
	m.refreshAccountSnapshot(ctx)
}

// refreshAccountSnapshot rewrites the fast-tier account list from the
// durable tier, best-effort.
func (m *Manager) refreshAccountSnapshot(ctx context.Context) {
	accounts, err := m.durable.ListAccounts(ctx)
	if err != nil {
		m.logger.WithError(err).Warn("Account snapshot refresh failed")
		return
	}
	if err := m.fast.SaveAccounts(accounts); err != nil {
		m.logger.WithError(err).Warn("Account snapshot write failed")
	}
}

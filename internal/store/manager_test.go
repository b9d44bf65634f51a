package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang-social-analytics-service/internal/models"
)

// fakeDurable is an in-memory durableStore for exercising manager policy
// without a database.
type fakeDurable struct {
	accounts map[string]*models.Account
	datasets map[string]*models.DatasetRecord

	saveDatasetErr error
	loadDatasetErr error
	listErr        error
	usageErr       error
	wipeErr        error
	wipeBlock      chan struct{}
}

func newFakeDurable() *fakeDurable {
	return &fakeDurable{
		accounts: make(map[string]*models.Account),
		datasets: make(map[string]*models.DatasetRecord),
	}
}

func recordKey(accountID string, category models.Category) string {
	return accountID + "|" + category.String()
}

func (f *fakeDurable) SaveDataset(ctx context.Context, record *models.DatasetRecord) error {
	if f.saveDatasetErr != nil {
		return f.saveDatasetErr
	}
	f.datasets[recordKey(record.AccountID, record.Category)] = record
	return nil
}

func (f *fakeDurable) LoadDataset(ctx context.Context, accountID string, category models.Category) (*models.DatasetRecord, error) {
	if f.loadDatasetErr != nil {
		return nil, f.loadDatasetErr
	}
	return f.datasets[recordKey(accountID, category)], nil
}

func (f *fakeDurable) DeleteDataset(ctx context.Context, accountID string, category models.Category) error {
	delete(f.datasets, recordKey(accountID, category))
	return nil
}

func (f *fakeDurable) DeleteAccountDatasets(ctx context.Context, accountID string) error {
	for _, category := range supportedCategories {
		delete(f.datasets, recordKey(accountID, category))
	}
	return nil
}

func (f *fakeDurable) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*models.Account
	for _, account := range f.accounts {
		out = append(out, account)
	}
	return out, nil
}

func (f *fakeDurable) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	return f.accounts[id], nil
}

func (f *fakeDurable) SaveAccount(ctx context.Context, account *models.Account) error {
	copied := *account
	f.accounts[account.ID] = &copied
	return nil
}

func (f *fakeDurable) DeleteAccount(ctx context.Context, id string) error {
	delete(f.accounts, id)
	return f.DeleteAccountDatasets(ctx, id)
}

func (f *fakeDurable) Usage(ctx context.Context) (int64, error) {
	if f.usageErr != nil {
		return 0, f.usageErr
	}
	return 4096, nil
}

func (f *fakeDurable) CountDatasets(ctx context.Context) (map[models.Category]int, error) {
	counts := make(map[models.Category]int)
	for _, record := range f.datasets {
		counts[record.Category]++
	}
	return counts, nil
}

func (f *fakeDurable) CountAccounts(ctx context.Context) (int, error) {
	return len(f.accounts), nil
}

func (f *fakeDurable) Wipe(ctx context.Context) error {
	if f.wipeBlock != nil {
		<-f.wipeBlock
	}
	if f.wipeErr != nil {
		return f.wipeErr
	}
	f.accounts = make(map[string]*models.Account)
	f.datasets = make(map[string]*models.DatasetRecord)
	return nil
}

// fakeFast is an in-memory fastStore.
type fakeFast struct {
	datasets    map[string]*models.DatasetRecord
	accounts    []*models.Account
	lastAccount string

	saveDatasetErr error
	loadErr        error
	cleared        bool
}

func newFakeFast() *fakeFast {
	return &fakeFast{datasets: make(map[string]*models.DatasetRecord)}
}

func (f *fakeFast) SaveDataset(ctx context.Context, record *models.DatasetRecord) error {
	if f.saveDatasetErr != nil {
		return f.saveDatasetErr
	}
	f.datasets[recordKey(record.AccountID, record.Category)] = record
	return nil
}

func (f *fakeFast) LoadDataset(ctx context.Context, accountID string, category models.Category) (*models.DatasetRecord, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.datasets[recordKey(accountID, category)], nil
}

func (f *fakeFast) DeleteDataset(ctx context.Context, accountID string, category models.Category) error {
	delete(f.datasets, recordKey(accountID, category))
	return nil
}

func (f *fakeFast) DeleteAccountDatasets(ctx context.Context, accountID string) error {
	for _, category := range supportedCategories {
		delete(f.datasets, recordKey(accountID, category))
	}
	return nil
}

func (f *fakeFast) LoadAccounts() ([]*models.Account, error) {
	return f.accounts, nil
}

func (f *fakeFast) SaveAccounts(accounts []*models.Account) error {
	f.accounts = accounts
	return nil
}

func (f *fakeFast) LastAccount() string {
	return f.lastAccount
}

func (f *fakeFast) SetLastAccount(id string) error {
	f.lastAccount = id
	return nil
}

func (f *fakeFast) TotalSize() int64 {
	return int64(len(f.datasets) * 100)
}

func (f *fakeFast) Clear() error {
	f.datasets = make(map[string]*models.DatasetRecord)
	f.accounts = nil
	f.lastAccount = ""
	f.cleared = true
	return nil
}

func newTestManager(fast *fakeFast, durable *fakeDurable, config *ManagerConfig) *Manager {
	return newManager(fast, durable, config)
}

func TestManagerSaveDatasetDualWrite(t *testing.T) {
	fast := newFakeFast()
	durable := newFakeDurable()
	manager := newTestManager(fast, durable, nil)
	ctx := context.Background()

	rows := []models.Row{{models.FieldDate: "2024-03-01", models.FieldLikes: float64(5)}}
	if err := manager.SaveDataset(ctx, "acct-1", models.CategoryDailySummary, rows); err != nil {
		t.Fatalf("SaveDataset() unexpected error: %v", err)
	}

	key := recordKey("acct-1", models.CategoryDailySummary)
	if durable.datasets[key] == nil {
		t.Fatal("durable tier must always receive the dataset")
	}
	if fast.datasets[key] == nil {
		t.Fatal("small dataset must also reach the fast tier")
	}

	stored := durable.datasets[key].Rows[0]
	if stored[models.FieldAccountID] != "acct-1" {
		t.Errorf("stored row account id = %v, want acct-1", stored[models.FieldAccountID])
	}
	if stored[models.FieldDate] != "2024-03-01T00:00:00Z" {
		t.Errorf("stored row date = %v, want ISO normalized form", stored[models.FieldDate])
	}
	// The caller's rows are untouched.
	if _, ok := rows[0][models.FieldAccountID]; ok {
		t.Error("SaveDataset() must not mutate the input rows")
	}
}

func TestManagerSaveDatasetLargePayloadSkipsFastTier(t *testing.T) {
	fast := newFakeFast()
	durable := newFakeDurable()
	config := &ManagerConfig{FastTierThreshold: 1, WipeTimeout: time.Second}
	manager := newTestManager(fast, durable, config)
	ctx := context.Background()

	key := recordKey("acct-1", models.CategoryDailySummary)

	// A stale small snapshot from an earlier upload.
	fast.datasets[key] = &models.DatasetRecord{
		AccountID: "acct-1", Category: models.CategoryDailySummary,
		Rows: []models.Row{{models.FieldLikes: float64(1)}},
	}

	rows := []models.Row{{models.FieldDate: "2024-03-01", models.FieldLikes: float64(5)}}
	if err := manager.SaveDataset(ctx, "acct-1", models.CategoryDailySummary, rows); err != nil {
		t.Fatalf("SaveDataset() unexpected error: %v", err)
	}

	if durable.datasets[key] == nil {
		t.Error("durable tier must receive the dataset regardless of size")
	}
	if fast.datasets[key] != nil {
		t.Error("oversized save must remove the stale fast tier snapshot")
	}
}

func TestManagerSaveDatasetDurableFailureSurfaces(t *testing.T) {
	fast := newFakeFast()
	durable := newFakeDurable()
	durable.saveDatasetErr = errors.New("disk full")
	manager := newTestManager(fast, durable, nil)

	rows := []models.Row{{models.FieldLikes: float64(5)}}
	err := manager.SaveDataset(context.Background(), "acct-1", models.CategoryDailySummary, rows)
	if err == nil {
		t.Fatal("durable write failure must surface to the caller")
	}
	if len(fast.datasets) != 0 {
		t.Error("fast tier must not be written when the durable write failed")
	}
}

func TestManagerSaveDatasetFastFailureIsTolerated(t *testing.T) {
	fast := newFakeFast()
	fast.saveDatasetErr = errors.New("quota exceeded")
	durable := newFakeDurable()
	manager := newTestManager(fast, durable, nil)

	rows := []models.Row{{models.FieldLikes: float64(5)}}
	if err := manager.SaveDataset(context.Background(), "acct-1", models.CategoryDailySummary, rows); err != nil {
		t.Errorf("fast tier failure must not fail the save, got: %v", err)
	}
}

func TestManagerSaveDatasetRejectsInvalidInput(t *testing.T) {
	manager := newTestManager(newFakeFast(), newFakeDurable(), nil)

	if err := manager.SaveDataset(context.Background(), "", models.CategoryDailySummary, nil); err == nil {
		t.Error("missing account id must be rejected")
	}
	if err := manager.SaveDataset(context.Background(), "acct-1", models.CategoryFacebook, nil); err == nil {
		t.Error("unsupported category must be rejected")
	}
}

func TestManagerSaveDatasetMarksAccountUploaded(t *testing.T) {
	fast := newFakeFast()
	durable := newFakeDurable()
	durable.accounts["acct-1"] = &models.Account{ID: "acct-1", Name: "Konto"}
	manager := newTestManager(fast, durable, nil)

	rows := []models.Row{{models.FieldLikes: float64(5)}}
	if err := manager.SaveDataset(context.Background(), "acct-1", models.CategoryDailySummary, rows); err != nil {
		t.Fatalf("SaveDataset() unexpected error: %v", err)
	}

	account := durable.accounts["acct-1"]
	if !account.DailySummaryUploaded {
		t.Error("upload status not recorded on the account")
	}
	if account.DailySummaryUpdatedAt.IsZero() {
		t.Error("upload timestamp not recorded")
	}
}

func TestManagerLoadDataset(t *testing.T) {
	fast := newFakeFast()
	durable := newFakeDurable()
	manager := newTestManager(fast, durable, nil)
	ctx := context.Background()

	key := recordKey("acct-1", models.CategoryDailySummary)
	durable.datasets[key] = &models.DatasetRecord{
		AccountID: "acct-1", Category: models.CategoryDailySummary,
		Rows: []models.Row{{models.FieldLikes: float64(5)}},
	}

	rows := manager.LoadDataset(ctx, "acct-1", models.CategoryDailySummary)
	if len(rows) != 1 || rows[0][models.FieldLikes] != float64(5) {
		t.Fatalf("LoadDataset() = %v, want one row from the durable tier", rows)
	}
	if rows[0][models.FieldAccountID] != "acct-1" {
		t.Error("loaded rows must carry the account id")
	}
}

func TestManagerLoadDatasetFallsBackToFastTier(t *testing.T) {
	fast := newFakeFast()
	durable := newFakeDurable()
	durable.loadDatasetErr = errors.New("database locked")
	manager := newTestManager(fast, durable, nil)

	key := recordKey("acct-1", models.CategoryDailySummary)
	fast.datasets[key] = &models.DatasetRecord{
		AccountID: "stale-id", Category: models.CategoryDailySummary,
		Rows: []models.Row{{models.FieldLikes: float64(7)}},
	}

	rows := manager.LoadDataset(context.Background(), "acct-1", models.CategoryDailySummary)
	if len(rows) != 1 || rows[0][models.FieldLikes] != float64(7) {
		t.Fatalf("LoadDataset() = %v, want the fast tier copy", rows)
	}
	// The requested id wins over whatever the snapshot carried.
	if rows[0][models.FieldAccountID] != "acct-1" {
		t.Errorf("account id = %v, want re-stamped acct-1", rows[0][models.FieldAccountID])
	}
}

func TestManagerLoadDatasetDegradesToEmpty(t *testing.T) {
	fast := newFakeFast()
	fast.loadErr = errors.New("corrupt file")
	durable := newFakeDurable()
	durable.loadDatasetErr = errors.New("database gone")
	manager := newTestManager(fast, durable, nil)

	rows := manager.LoadDataset(context.Background(), "acct-1", models.CategoryDailySummary)
	if rows == nil || len(rows) != 0 {
		t.Errorf("LoadDataset() = %v, want an empty non-nil slice", rows)
	}
}

func TestManagerSaveAccountGeneratesID(t *testing.T) {
	fast := newFakeFast()
	durable := newFakeDurable()
	manager := newTestManager(fast, durable, nil)

	account, err := manager.SaveAccount(context.Background(), models.NewAccount("Nytt konto"))
	if err != nil {
		t.Fatalf("SaveAccount() unexpected error: %v", err)
	}
	if account.ID == "" {
		t.Fatal("SaveAccount() must assign an id to a new account")
	}
	if durable.accounts[account.ID] == nil {
		t.Error("account not written to the durable tier")
	}
	if len(fast.accounts) != 1 {
		t.Error("fast tier snapshot not refreshed after the save")
	}
}

func TestManagerSaveAccountRejectsBlankName(t *testing.T) {
	manager := newTestManager(newFakeFast(), newFakeDurable(), nil)

	_, err := manager.SaveAccount(context.Background(), models.NewAccount("   "))
	if err == nil {
		t.Error("blank account name must be rejected")
	}
}

func TestManagerDeleteAccountCascades(t *testing.T) {
	fast := newFakeFast()
	durable := newFakeDurable()
	manager := newTestManager(fast, durable, nil)
	ctx := context.Background()

	durable.accounts["acct-1"] = &models.Account{ID: "acct-1", Name: "Konto"}
	for _, category := range supportedCategories {
		record := &models.DatasetRecord{AccountID: "acct-1", Category: category, Rows: []models.Row{{}}}
		durable.datasets[recordKey("acct-1", category)] = record
		fast.datasets[recordKey("acct-1", category)] = record
	}
	fast.lastAccount = "acct-1"

	if err := manager.DeleteAccount(ctx, "acct-1"); err != nil {
		t.Fatalf("DeleteAccount() unexpected error: %v", err)
	}

	if durable.accounts["acct-1"] != nil {
		t.Error("account survived the delete")
	}
	if len(durable.datasets) != 0 || len(fast.datasets) != 0 {
		t.Error("datasets survived the cascade delete")
	}
	if fast.lastAccount != "" {
		t.Error("last account marker must be cleared when it names the deleted account")
	}
}

func TestManagerDeleteAccountKeepsUnrelatedMarker(t *testing.T) {
	fast := newFakeFast()
	durable := newFakeDurable()
	manager := newTestManager(fast, durable, nil)

	durable.accounts["acct-1"] = &models.Account{ID: "acct-1", Name: "Konto"}
	fast.lastAccount = "acct-2"

	if err := manager.DeleteAccount(context.Background(), "acct-1"); err != nil {
		t.Fatalf("DeleteAccount() unexpected error: %v", err)
	}
	if fast.lastAccount != "acct-2" {
		t.Error("marker for a different account must survive")
	}
}

func TestManagerListAccountsFallsBack(t *testing.T) {
	fast := newFakeFast()
	fast.accounts = []*models.Account{{ID: "a1", Name: "Snapshot"}}
	durable := newFakeDurable()
	durable.listErr = errors.New("database locked")
	manager := newTestManager(fast, durable, nil)

	accounts := manager.ListAccounts(context.Background())
	if len(accounts) != 1 || accounts[0].Name != "Snapshot" {
		t.Errorf("ListAccounts() = %v, want the fast tier snapshot", accounts)
	}
}

func TestManagerStats(t *testing.T) {
	fast := newFakeFast()
	durable := newFakeDurable()
	durable.datasets[recordKey("a1", models.CategoryDailySummary)] = &models.DatasetRecord{
		AccountID: "a1", Category: models.CategoryDailySummary,
	}
	durable.accounts["a1"] = &models.Account{ID: "a1", Name: "Konto"}
	manager := newTestManager(fast, durable, nil)

	stats := manager.Stats(context.Background())
	if stats.Degraded {
		t.Error("healthy tiers must not report degraded stats")
	}
	if stats.DurableTierBytes != 4096 {
		t.Errorf("durable bytes = %d, want 4096", stats.DurableTierBytes)
	}
	if stats.AccountCount != 1 {
		t.Errorf("account count = %d, want 1", stats.AccountCount)
	}
	if stats.DatasetCounts[models.CategoryDailySummary] != 1 {
		t.Errorf("daily summary count = %d, want 1", stats.DatasetCounts[models.CategoryDailySummary])
	}
}

func TestManagerStatsDegraded(t *testing.T) {
	fast := newFakeFast()
	durable := newFakeDurable()
	durable.usageErr = errors.New("probe failed")
	manager := newTestManager(fast, durable, nil)

	stats := manager.Stats(context.Background())
	if !stats.Degraded {
		t.Error("a failed probe must set the degraded flag")
	}
	if stats.DurableTierBytes != 0 {
		t.Errorf("unreadable usage must be zeroed, got %d", stats.DurableTierBytes)
	}
}

func TestManagerWipe(t *testing.T) {
	fast := newFakeFast()
	fast.datasets[recordKey("a1", models.CategoryDailySummary)] = &models.DatasetRecord{}
	durable := newFakeDurable()
	durable.accounts["a1"] = &models.Account{ID: "a1", Name: "Konto"}
	manager := newTestManager(fast, durable, nil)

	result, err := manager.Wipe(context.Background())
	if err != nil {
		t.Fatalf("Wipe() unexpected error: %v", err)
	}
	if !result.Complete {
		t.Errorf("Wipe() result = %+v, want complete", result)
	}
	if !fast.cleared {
		t.Error("fast tier not cleared")
	}
	if len(durable.accounts) != 0 {
		t.Error("durable tier not wiped")
	}
}

func TestManagerWipeTimeout(t *testing.T) {
	fast := newFakeFast()
	durable := newFakeDurable()
	durable.wipeBlock = make(chan struct{})
	t.Cleanup(func() {
		close(durable.wipeBlock)
	})

	config := &ManagerConfig{FastTierThreshold: 1 << 20, WipeTimeout: 20 * time.Millisecond}
	manager := newTestManager(fast, durable, config)

	result, err := manager.Wipe(context.Background())
	if err != nil {
		t.Fatalf("Wipe() unexpected error: %v", err)
	}
	if result.Complete {
		t.Error("a timed-out wipe must not report completion")
	}
	if result.Detail == "" {
		t.Error("a timed-out wipe must explain the pending deletion")
	}
	if !fast.cleared {
		t.Error("fast tier must still be cleared on timeout")
	}
}

func TestManagerWipeDurableFailure(t *testing.T) {
	fast := newFakeFast()
	durable := newFakeDurable()
	durable.wipeErr = errors.New("deletion failed")
	manager := newTestManager(fast, durable, nil)

	if _, err := manager.Wipe(context.Background()); err == nil {
		t.Error("durable wipe failure must surface")
	}
}

func TestManagerLastAccount(t *testing.T) {
	fast := newFakeFast()
	manager := newTestManager(fast, newFakeDurable(), nil)

	if got := manager.LastAccount(); got != "" {
		t.Errorf("unset marker = %q, want empty", got)
	}
	if err := manager.SetLastAccount("acct-3"); err != nil {
		t.Fatalf("SetLastAccount() unexpected error: %v", err)
	}
	if got := manager.LastAccount(); got != "acct-3" {
		t.Errorf("LastAccount() = %q, want acct-3", got)
	}
}

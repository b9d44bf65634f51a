package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang-social-analytics-service/internal/models"
	apperrors "golang-social-analytics-service/pkg/errors"
)

func newTestFastTier(t *testing.T, quota int64) *FastTier {
	t.Helper()
	tier, err := OpenFastTier(filepath.Join(t.TempDir(), "state.json"), quota)
	if err != nil {
		t.Fatalf("OpenFastTier() unexpected error: %v", err)
	}
	return tier
}

func TestFastTierGetSetDelete(t *testing.T) {
	tier := newTestFastTier(t, 0)

	var out string
	found, err := tier.GetJSON("missing", &out)
	if err != nil || found {
		t.Errorf("GetJSON(missing) = %v, %v, want absent without error", found, err)
	}

	if err := tier.SetJSON("greeting", "hej"); err != nil {
		t.Fatalf("SetJSON() unexpected error: %v", err)
	}
	found, err = tier.GetJSON("greeting", &out)
	if err != nil || !found || out != "hej" {
		t.Errorf("GetJSON(greeting) = %q, %v, %v", out, found, err)
	}

	if err := tier.Delete("greeting"); err != nil {
		t.Fatalf("Delete() unexpected error: %v", err)
	}
	found, _ = tier.GetJSON("greeting", &out)
	if found {
		t.Error("deleted key still present")
	}

	if err := tier.Delete("never-existed"); err != nil {
		t.Errorf("deleting a missing key must not error, got: %v", err)
	}
}

func TestFastTierPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	first, err := OpenFastTier(path, 0)
	if err != nil {
		t.Fatalf("OpenFastTier() unexpected error: %v", err)
	}
	if err := first.SetJSON("key", map[string]int{"count": 7}); err != nil {
		t.Fatalf("SetJSON() unexpected error: %v", err)
	}

	second, err := OpenFastTier(path, 0)
	if err != nil {
		t.Fatalf("OpenFastTier() reopen error: %v", err)
	}
	var out map[string]int
	found, err := second.GetJSON("key", &out)
	if err != nil || !found || out["count"] != 7 {
		t.Errorf("reopened tier lost data: %v, %v, %v", out, found, err)
	}
}

func TestFastTierOpenCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	_, err := OpenFastTier(path, 0)
	if !apperrors.HasCode(err, apperrors.CodeFileCorrupted) {
		t.Errorf("OpenFastTier() error = %v, want code %v", err, apperrors.CodeFileCorrupted)
	}
}

func TestFastTierQuota(t *testing.T) {
	tier := newTestFastTier(t, 64)

	if err := tier.SetJSON("small", "x"); err != nil {
		t.Fatalf("small write should fit, got: %v", err)
	}

	err := tier.SetJSON("big", strings.Repeat("a", 256))
	if !apperrors.HasCode(err, apperrors.CodeWriteFailed) {
		t.Fatalf("oversized write error = %v, want code %v", err, apperrors.CodeWriteFailed)
	}

	// The rejected write must not evict anything, including itself.
	var out string
	if found, _ := tier.GetJSON("big", &out); found {
		t.Error("rejected key must not be stored")
	}
	if found, _ := tier.GetJSON("small", &out); !found || out != "x" {
		t.Error("existing key lost after a rejected write")
	}
}

func TestFastTierQuotaRollbackKeepsPreviousValue(t *testing.T) {
	tier := newTestFastTier(t, 64)

	if err := tier.SetJSON("key", "before"); err != nil {
		t.Fatalf("SetJSON() unexpected error: %v", err)
	}
	if err := tier.SetJSON("key", strings.Repeat("a", 256)); err == nil {
		t.Fatal("oversized overwrite should fail")
	}

	var out string
	if found, _ := tier.GetJSON("key", &out); !found || out != "before" {
		t.Errorf("previous value lost after rejected overwrite: %q", out)
	}
}

func TestFastTierKeysAndTotalSize(t *testing.T) {
	tier := newTestFastTier(t, 0)

	for _, key := range []string{"dataset_b", "dataset_a", "other"} {
		if err := tier.SetJSON(key, 1); err != nil {
			t.Fatalf("SetJSON(%q) unexpected error: %v", key, err)
		}
	}

	keys := tier.Keys("dataset_")
	if len(keys) != 2 || keys[0] != "dataset_a" || keys[1] != "dataset_b" {
		t.Errorf("Keys(dataset_) = %v, want sorted [dataset_a dataset_b]", keys)
	}

	if tier.TotalSize() <= 0 {
		t.Error("TotalSize() must be positive after writes")
	}

	if err := tier.Clear(); err != nil {
		t.Fatalf("Clear() unexpected error: %v", err)
	}
	if tier.TotalSize() != 0 {
		t.Errorf("TotalSize() after Clear() = %d, want 0", tier.TotalSize())
	}
}

func TestFastTierDatasets(t *testing.T) {
	tier := newTestFastTier(t, 0)
	ctx := context.Background()

	record := &models.DatasetRecord{
		AccountID:  "acct-1",
		Category:   models.CategoryDailySummary,
		CapturedAt: time.Now().UTC(),
		Rows:       []models.Row{{models.FieldLikes: float64(5)}},
	}
	if err := tier.SaveDataset(ctx, record); err != nil {
		t.Fatalf("SaveDataset() unexpected error: %v", err)
	}

	loaded, err := tier.LoadDataset(ctx, "acct-1", models.CategoryDailySummary)
	if err != nil {
		t.Fatalf("LoadDataset() unexpected error: %v", err)
	}
	if loaded == nil || len(loaded.Rows) != 1 {
		t.Fatalf("LoadDataset() = %+v, want one row", loaded)
	}
	if loaded.Rows[0][models.FieldLikes] != float64(5) {
		t.Errorf("likes = %v, want 5", loaded.Rows[0][models.FieldLikes])
	}

	// Replace semantics: a second save fully supersedes the first.
	record.Rows = []models.Row{{models.FieldLikes: float64(9)}, {models.FieldLikes: float64(8)}}
	if err := tier.SaveDataset(ctx, record); err != nil {
		t.Fatalf("SaveDataset() replace error: %v", err)
	}
	loaded, _ = tier.LoadDataset(ctx, "acct-1", models.CategoryDailySummary)
	if len(loaded.Rows) != 2 {
		t.Errorf("replaced dataset has %d rows, want 2", len(loaded.Rows))
	}

	// Other categories and accounts are unaffected.
	if other, _ := tier.LoadDataset(ctx, "acct-1", models.CategoryPerItem); other != nil {
		t.Error("per item dataset should not exist")
	}

	if err := tier.DeleteAccountDatasets(ctx, "acct-1"); err != nil {
		t.Fatalf("DeleteAccountDatasets() unexpected error: %v", err)
	}
	if gone, _ := tier.LoadDataset(ctx, "acct-1", models.CategoryDailySummary); gone != nil {
		t.Error("account datasets should be gone after cascade delete")
	}
}

func TestFastTierSaveDatasetRejectsInvalidRecord(t *testing.T) {
	tier := newTestFastTier(t, 0)

	bad := &models.DatasetRecord{Category: models.CategoryDailySummary}
	if err := tier.SaveDataset(context.Background(), bad); err == nil {
		t.Error("record without an account id must be rejected")
	}
}

func TestFastTierAccountsSnapshot(t *testing.T) {
	tier := newTestFastTier(t, 0)

	accounts, err := tier.LoadAccounts()
	if err != nil || len(accounts) != 0 {
		t.Errorf("fresh tier accounts = %v, %v, want empty", accounts, err)
	}

	snapshot := []*models.Account{
		{ID: "a1", Name: "Konto ett"},
		{ID: "a2", Name: "Konto två"},
	}
	if err := tier.SaveAccounts(snapshot); err != nil {
		t.Fatalf("SaveAccounts() unexpected error: %v", err)
	}

	accounts, err = tier.LoadAccounts()
	if err != nil || len(accounts) != 2 {
		t.Fatalf("LoadAccounts() = %v, %v, want 2 accounts", accounts, err)
	}
	if accounts[0].Name != "Konto ett" {
		t.Errorf("account name = %q, want Konto ett", accounts[0].Name)
	}
}

func TestFastTierLastAccount(t *testing.T) {
	tier := newTestFastTier(t, 0)

	if got := tier.LastAccount(); got != "" {
		t.Errorf("unset marker = %q, want empty", got)
	}
	if err := tier.SetLastAccount("acct-9"); err != nil {
		t.Fatalf("SetLastAccount() unexpected error: %v", err)
	}
	if got := tier.LastAccount(); got != "acct-9" {
		t.Errorf("LastAccount() = %q, want acct-9", got)
	}
}

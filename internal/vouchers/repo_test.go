package vouchers

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupVouchersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())), &gorm.Config{})
	require.NoError(t, err)

	// in-memory sqlite handles one writer; funnel through a single conn
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	sequences := `
CREATE TABLE IF NOT EXISTS voucher_sequences (
  prefix TEXT PRIMARY KEY,
  last_value INTEGER NOT NULL DEFAULT 0,
  updated_at DATETIME
);`
	receipts := `
CREATE TABLE IF NOT EXISTS receipts (
  id TEXT PRIMARY KEY,
  voucher_id TEXT NOT NULL UNIQUE,
  client_id TEXT NOT NULL,
  client_info TEXT,
  metal_type TEXT NOT NULL DEFAULT 'gold',
  given_items TEXT,
  received_items TEXT,
  totals TEXT,
  balance NUMERIC NOT NULL DEFAULT 0,
  previous_balance NUMERIC NOT NULL DEFAULT 0,
  new_balance NUMERIC NOT NULL DEFAULT 0,
  is_completed INTEGER NOT NULL DEFAULT 0,
  notes TEXT,
  issue_date DATETIME,
  delivery_date DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(sequences).Error)
	require.NoError(t, db.Exec(receipts).Error)
	return db
}

func seedReceipt(t *testing.T, db *gorm.DB, voucherID string) {
	t.Helper()
	require.NoError(t, db.Exec(
		`INSERT INTO receipts (id, voucher_id, client_id, issue_date) VALUES (?, ?, ?, CURRENT_TIMESTAMP)`,
		uuid.NewString(), voucherID, uuid.NewString(),
	).Error)
}

func TestNextValueStartsAtOne(t *testing.T) {
	db := setupVouchersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	first, err := repo.NextValue(ctx, "WK")
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)

	second, err := repo.NextValue(ctx, "WK")
	require.NoError(t, err)
	assert.Equal(t, int64(2), second)
}

func TestNextValueSeedsFromExistingReceipts(t *testing.T) {
	db := setupVouchersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seedReceipt(t, db, "GS-2504-0007")
	seedReceipt(t, db, "GS-2504-0003")
	seedReceipt(t, db, "GS-2505-0099") // different prefix, ignored

	value, err := repo.NextValue(ctx, "GS-2504")
	require.NoError(t, err)
	assert.Equal(t, int64(8), value)
}

func TestNextValueUnparseableSuffixRestartsAtOne(t *testing.T) {
	db := setupVouchersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seedReceipt(t, db, "LEGACY-abc")

	value, err := repo.NextValue(ctx, "LEGACY")
	require.NoError(t, err)
	assert.Equal(t, int64(1), value)
}

func TestNextValueIsDistinctUnderConcurrency(t *testing.T) {
	db := setupVouchersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	const mints = 50
	results := make([]int64, mints)
	errs := make([]error, mints)

	var wg sync.WaitGroup
	for i := 0; i < mints; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = repo.NextValue(ctx, "GS-2505")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "mint %d", i)
	}

	sort.Slice(results, func(i, j int) bool { return results[i] < results[j] })
	for i, value := range results {
		assert.Equal(t, int64(i+1), value, "expected dense sequential values, got %v", results)
	}
}

func TestTrailingNumber(t *testing.T) {
	cases := []struct {
		voucherID string
		want      int64
	}{
		{"WK-0004", 4},
		{"GS-2504-0123", 123},
		{"GS-2504-", 0},
		{"no-separator-here-xyz", 0},
		{"plain", 0},
		{"NEG--12", 12},
	}

	for _, tc := range cases {
		t.Run(tc.voucherID, func(t *testing.T) {
			assert.Equal(t, tc.want, TrailingNumber(tc.voucherID), fmt.Sprintf("voucher %q", tc.voucherID))
		})
	}
}

package receipts

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/karatworks/goldbooks-backend/internal/ledger"
	"github.com/karatworks/goldbooks-backend/internal/vouchers"
	"github.com/karatworks/goldbooks-backend/pkg/db/models"
	"github.com/karatworks/goldbooks-backend/pkg/enums"
	pkgerrors "github.com/karatworks/goldbooks-backend/pkg/errors"
	"github.com/karatworks/goldbooks-backend/pkg/pagination"
	"github.com/karatworks/goldbooks-backend/pkg/types"
)

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupReceiptsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS clients (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  shop_name TEXT,
  phone TEXT,
  address TEXT,
  email TEXT,
  metal_type TEXT NOT NULL DEFAULT 'gold',
  tags TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  balance NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS receipts (
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
);`,
		`CREATE TABLE IF NOT EXISTS balance_entries (
  id TEXT PRIMARY KEY,
  client_id TEXT NOT NULL,
  receipt_id TEXT,
  delta NUMERIC NOT NULL,
  balance_after NUMERIC NOT NULL,
  reason TEXT NOT NULL,
  description TEXT,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS voucher_sequences (
  prefix TEXT PRIMARY KEY,
  last_value INTEGER NOT NULL DEFAULT 0,
  updated_at DATETIME
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newReceiptService(t *testing.T, db *gorm.DB) Service {
	t.Helper()

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(db))
	require.NoError(t, err)
	voucherSvc, err := vouchers.NewService(vouchers.NewRepository(db), 4)
	require.NoError(t, err)

	svc, err := NewService(NewRepository(db), ledgerSvc, voucherSvc, testTxRunner{db: db}, nil, Options{
		DefaultPrefix: "GB",
		MintAttempts:  3,
	})
	require.NoError(t, err)
	return svc
}

func newTestClient(t *testing.T, db *gorm.DB, name string) *models.Client {
	t.Helper()

	shop := name + " & Co"
	phone := "98765-43210"
	client := &models.Client{
		ID:        uuid.New(),
		Name:      name,
		ShopName:  &shop,
		Phone:     &phone,
		MetalType: enums.MetalTypeGold,
		IsActive:  true,
		Balance:   decimal.Zero,
	}
	require.NoError(t, db.Create(client).Error)
	return client
}

func simpleItems() ([]types.GivenItem, []types.ReceivedItem) {
	given := []types.GivenItem{
		{Description: "chain", GrossWeight: dec("100"), StoneWeight: dec("0"), MeltingTouch: dec("50")},
	}
	received := []types.ReceivedItem{
		{Description: "fine gold", ReceivedAmount: dec("20"), MeltingPercent: dec("50")},
	}
	// given final 50, received final 10, delta 40
	return given, received
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func clientBalance(t *testing.T, db *gorm.DB, clientID uuid.UUID) decimal.Decimal {
	t.Helper()
	var client models.Client
	require.NoError(t, db.First(&client, "id = ?", clientID).Error)
	return client.Balance
}

func TestCreateReceiptAppliesLedgerAndSnapshots(t *testing.T) {
	db := setupReceiptsTestDB(t)
	svc := newReceiptService(t, db)
	ctx := context.Background()
	client := newTestClient(t, db, "Meena")

	given, received := simpleItems()
	issue := time.Date(2026, 4, 12, 0, 0, 0, 0, time.UTC)

	receipt, err := svc.Create(ctx, CreateReceiptInput{
		ClientID:      client.ID,
		GivenItems:    given,
		ReceivedItems: received,
		IssueDate:     issue,
	})
	require.NoError(t, err)

	assert.Equal(t, "GB-2604-0001", receipt.VoucherID)
	assert.True(t, receipt.Balance.Equal(dec("40")), "delta %s", receipt.Balance)
	assert.True(t, receipt.PreviousBalance.IsZero())
	assert.True(t, receipt.NewBalance.Equal(dec("40")))
	assert.True(t, receipt.Totals.FinalWeight.Equal(dec("50")))
	assert.Equal(t, "Meena", receipt.ClientInfo.Name)
	assert.Equal(t, "Meena & Co", receipt.ClientInfo.ShopName)

	assert.True(t, clientBalance(t, db, client.ID).Equal(dec("40")))

	var entries []models.BalanceEntry
	require.NoError(t, db.Where("client_id = ?", client.ID).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, enums.BalanceEntryReasonReceiptCreated, entries[0].Reason)
	assert.True(t, entries[0].Delta.Equal(dec("40")))
}

func TestCreateReceiptSequentialVouchers(t *testing.T) {
	db := setupReceiptsTestDB(t)
	svc := newReceiptService(t, db)
	ctx := context.Background()
	client := newTestClient(t, db, "Ravi")

	given, received := simpleItems()

	for i := 1; i <= 3; i++ {
		receipt, err := svc.Create(ctx, CreateReceiptInput{
			ClientID:      client.ID,
			GivenItems:    given,
			ReceivedItems: received,
			VoucherPrefix: "SEQ",
		})
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("SEQ-%04d", i), receipt.VoucherID)
	}
}

func TestCreateReceiptVoucherOverrideConflict(t *testing.T) {
	db := setupReceiptsTestDB(t)
	svc := newReceiptService(t, db)
	ctx := context.Background()
	client := newTestClient(t, db, "Noor")

	given, received := simpleItems()
	override := "MANUAL-0001"

	_, err := svc.Create(ctx, CreateReceiptInput{
		ClientID:      client.ID,
		GivenItems:    given,
		ReceivedItems: received,
		VoucherID:     &override,
	})
	require.NoError(t, err)

	balanceBefore := clientBalance(t, db, client.ID)

	_, err = svc.Create(ctx, CreateReceiptInput{
		ClientID:      client.ID,
		GivenItems:    given,
		ReceivedItems: received,
		VoucherID:     &override,
	})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeConflict, appErr.Code())

	// failed create must roll the ledger mutation back
	assert.True(t, clientBalance(t, db, client.ID).Equal(balanceBefore))
}

func TestCreateReceiptUnknownClient(t *testing.T) {
	db := setupReceiptsTestDB(t)
	svc := newReceiptService(t, db)

	given, received := simpleItems()
	_, err := svc.Create(context.Background(), CreateReceiptInput{
		ClientID:      uuid.New(),
		GivenItems:    given,
		ReceivedItems: received,
		VoucherPrefix: "GHOST",
	})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())

	var count int64
	require.NoError(t, db.Table("voucher_sequences").Where("prefix = ?", "GHOST").Count(&count).Error)
	assert.Zero(t, count, "failed create must not leave a sequence row")
}

func TestCreateReceiptValidationRejectedBeforeMutation(t *testing.T) {
	db := setupReceiptsTestDB(t)
	svc := newReceiptService(t, db)
	client := newTestClient(t, db, "Badal")

	_, err := svc.Create(context.Background(), CreateReceiptInput{
		ClientID: client.ID,
		GivenItems: []types.GivenItem{
			{GrossWeight: dec("5"), StoneWeight: dec("9"), MeltingTouch: dec("90")},
		},
	})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())

	assert.True(t, clientBalance(t, db, client.ID).IsZero())
}

func TestDeleteReceiptRestoresBalance(t *testing.T) {
	db := setupReceiptsTestDB(t)
	svc := newReceiptService(t, db)
	ctx := context.Background()
	client := newTestClient(t, db, "Lalita")

	given, received := simpleItems()
	receipt, err := svc.Create(ctx, CreateReceiptInput{
		ClientID:      client.ID,
		GivenItems:    given,
		ReceivedItems: received,
		VoucherPrefix: "DEL",
	})
	require.NoError(t, err)
	require.True(t, clientBalance(t, db, client.ID).Equal(dec("40")))

	require.NoError(t, svc.Delete(ctx, receipt.ID))

	assert.True(t, clientBalance(t, db, client.ID).IsZero(), "create then delete must leave balance unchanged")

	_, err = svc.Get(ctx, receipt.ID)
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())

	var reversals int64
	require.NoError(t, db.Table("balance_entries").
		Where("client_id = ? AND reason = ?", client.ID, enums.BalanceEntryReasonReceiptReversed).
		Count(&reversals).Error)
	assert.Equal(t, int64(1), reversals)
}

func TestUpdateReceiptAdjustsByDifference(t *testing.T) {
	db := setupReceiptsTestDB(t)
	svc := newReceiptService(t, db)
	ctx := context.Background()
	client := newTestClient(t, db, "Heera")

	given, received := simpleItems()
	receipt, err := svc.Create(ctx, CreateReceiptInput{
		ClientID:      client.ID,
		GivenItems:    given,
		ReceivedItems: received,
		VoucherPrefix: "UPD",
	})
	require.NoError(t, err)

	// new delta: given 200g at 50% = 100, received unchanged at 10 => 90
	newGiven := []types.GivenItem{
		{Description: "bangles", GrossWeight: dec("200"), StoneWeight: dec("0"), MeltingTouch: dec("50")},
	}
	updated, err := svc.Update(ctx, receipt.ID, UpdateReceiptInput{GivenItems: &newGiven})
	require.NoError(t, err)

	assert.True(t, updated.Balance.Equal(dec("90")), "new delta %s", updated.Balance)
	assert.True(t, updated.PreviousBalance.Equal(receipt.PreviousBalance), "previous balance is a historical snapshot")
	assert.True(t, updated.NewBalance.Equal(dec("90")))

	// client moved by the adjustment (90 - 40 = 50), not by the full new delta
	assert.True(t, clientBalance(t, db, client.ID).Equal(dec("90")))

	var adjustments []models.BalanceEntry
	require.NoError(t, db.Where("client_id = ? AND reason = ?", client.ID, enums.BalanceEntryReasonReceiptUpdated).
		Find(&adjustments).Error)
	require.Len(t, adjustments, 1)
	assert.True(t, adjustments[0].Delta.Equal(dec("50")))
}

func TestUpdateReceiptNonFinancialSkipsLedger(t *testing.T) {
	db := setupReceiptsTestDB(t)
	svc := newReceiptService(t, db)
	ctx := context.Background()
	client := newTestClient(t, db, "Sona")

	given, received := simpleItems()
	receipt, err := svc.Create(ctx, CreateReceiptInput{
		ClientID:      client.ID,
		GivenItems:    given,
		ReceivedItems: received,
		VoucherPrefix: "NOTE",
	})
	require.NoError(t, err)

	notes := "picked up by brother"
	done := true
	updated, err := svc.Update(ctx, receipt.ID, UpdateReceiptInput{Notes: &notes, IsCompleted: &done})
	require.NoError(t, err)

	assert.Equal(t, &notes, updated.Notes)
	assert.True(t, updated.IsCompleted)
	assert.True(t, updated.Balance.Equal(receipt.Balance))

	var entryCount int64
	require.NoError(t, db.Table("balance_entries").Where("client_id = ?", client.ID).Count(&entryCount).Error)
	assert.Equal(t, int64(1), entryCount, "non-financial update must not touch the ledger")
}

func TestUpdateReceiptNotFound(t *testing.T) {
	db := setupReceiptsTestDB(t)
	svc := newReceiptService(t, db)

	notes := "x"
	_, err := svc.Update(context.Background(), uuid.New(), UpdateReceiptInput{Notes: &notes})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}

func TestListReceiptsFiltersByClient(t *testing.T) {
	db := setupReceiptsTestDB(t)
	svc := newReceiptService(t, db)
	ctx := context.Background()
	alpha := newTestClient(t, db, "Alpha")
	beta := newTestClient(t, db, "Beta")

	given, received := simpleItems()
	for i := 0; i < 2; i++ {
		_, err := svc.Create(ctx, CreateReceiptInput{ClientID: alpha.ID, GivenItems: given, ReceivedItems: received, VoucherPrefix: "LISTA"})
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, CreateReceiptInput{ClientID: beta.ID, GivenItems: given, ReceivedItems: received, VoucherPrefix: "LISTB"})
	require.NoError(t, err)

	result, err := svc.List(ctx, ListFilter{ClientID: &alpha.ID}, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, result.Receipts, 2)
	for _, r := range result.Receipts {
		assert.Equal(t, alpha.ID, r.ClientID)
	}
}

package repository

import (
	"context"
	"testing"

	"assetledger/internal/config"
	"assetledger/internal/infrastructure/database"
	"assetledger/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(&config.DatabaseConfig{Driver: database.DriverSQLite, DSN: ":memory:", LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAccountRepository_CreateAndFind(t *testing.T) {
	repo := NewAccountRepository(newTestDB(t))
	ctx := context.Background()

	account, err := repo.Find(ctx, nil, 1, 1)
	require.NoError(t, err)
	assert.Nil(t, account)

	account, err = repo.Create(ctx, 1, 1)
	require.NoError(t, err)
	assert.NotZero(t, account.ID)
	assert.True(t, account.IsActive)
	assert.True(t, account.AvailableBalance.IsZero())

	_, err = repo.Create(ctx, 1, 1)
	assert.ErrorIs(t, err, ErrAccountExists)

	_, err = repo.Create(ctx, 1, 2)
	require.NoError(t, err)
	_, err = repo.Create(ctx, 2, 1)
	require.NoError(t, err)

	accounts, err := repo.FindByUserID(ctx, 1)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, int64(1), accounts[0].AssetTypeID)
	assert.Equal(t, int64(2), accounts[1].AssetTypeID)
}

func TestAccountRepository_ApplyDelta(t *testing.T) {
	db := newTestDB(t)
	repo := NewAccountRepository(db)
	ctx := context.Background()

	_, err := repo.Create(ctx, 1, 1)
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		account, err := repo.ApplyDelta(ctx, tx, 1, 1, model.BalanceDelta{
			Available: dec("100"),
			Frozen:    decimal.Zero,
			Income:    dec("100"),
			Expense:   decimal.Zero,
		})
		require.NoError(t, err)
		assert.True(t, dec("100").Equal(account.AvailableBalance))

		account, err = repo.ApplyDelta(ctx, tx, 1, 1, model.BalanceDelta{
			Available: dec("-60.5"),
			Frozen:    dec("20.25"),
			Income:    decimal.Zero,
			Expense:   decimal.Zero,
		})
		require.NoError(t, err)
		assert.True(t, dec("39.5").Equal(account.AvailableBalance))
		assert.True(t, dec("20.25").Equal(account.FrozenBalance))
		assert.True(t, dec("100").Equal(account.TotalIncome))
		return nil
	})
	require.NoError(t, err)

	// 相对更新不校验结果，是否允许为负由调用方决定
	account, err := repo.ApplyDelta(ctx, nil, 1, 1, model.BalanceDelta{Available: dec("-50")})
	require.NoError(t, err)
	assert.True(t, dec("-10.5").Equal(account.AvailableBalance))

	_, err = repo.ApplyDelta(ctx, nil, 9, 1, model.BalanceDelta{Available: dec("1")})
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestAccountRepository_ApplyDeltaRollback(t *testing.T) {
	db := newTestDB(t)
	repo := NewAccountRepository(db)
	ctx := context.Background()

	_, err := repo.Create(ctx, 1, 1)
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := repo.ApplyDelta(ctx, tx, 1, 1, model.BalanceDelta{Available: dec("5")})
		require.NoError(t, err)
		return ErrAccountNotFound
	})
	require.ErrorIs(t, err, ErrAccountNotFound)

	account, err := repo.Find(ctx, nil, 1, 1)
	require.NoError(t, err)
	assert.True(t, account.AvailableBalance.IsZero())
}

func TestAccountRepository_ApplyDeltaKeepsScale(t *testing.T) {
	db := newTestDB(t)
	repo := NewAccountRepository(db)
	ctx := context.Background()

	_, err := repo.Create(ctx, 1, 1)
	require.NoError(t, err)

	steps := []struct {
		delta string
		want  string
	}{
		{"0.3", "0.3"},
		{"-0.1", "0.2"},
		{"-0.2", "0"},
		{"0.000001", "0.000001"},
		{"123456789.123456", "123456789.123457"},
	}
	for _, step := range steps {
		account, err := repo.ApplyDelta(ctx, nil, 1, 1, model.BalanceDelta{Available: dec(step.delta)})
		require.NoError(t, err)
		assert.True(t, dec(step.want).Equal(account.AvailableBalance), "want %s, got %s", step.want, account.AvailableBalance)
	}

	account, err := repo.Find(ctx, nil, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, "123456789.123457", account.AvailableBalance.String())
}

func TestAccountRepository_IsActive(t *testing.T) {
	db := newTestDB(t)
	repo := NewAccountRepository(db)
	ctx := context.Background()

	active, err := repo.IsActive(ctx, nil, 1, 1)
	require.NoError(t, err)
	assert.False(t, active)

	_, err = repo.Create(ctx, 1, 1)
	require.NoError(t, err)
	active, err = repo.IsActive(ctx, nil, 1, 1)
	require.NoError(t, err)
	assert.True(t, active)

	require.NoError(t, db.Model(&model.Account{}).Where("user_id = ?", 1).Update("is_active", false).Error)
	active, err = repo.IsActive(ctx, nil, 1, 1)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestAccountLogRepository(t *testing.T) {
	db := newTestDB(t)
	accounts := NewAccountRepository(db)
	logs := NewAccountLogRepository(db)
	ctx := context.Background()

	account, err := accounts.Create(ctx, 1, 1)
	require.NoError(t, err)

	exists, err := logs.Exists(ctx, nil, account.ID, 1, "ORDER-1")
	require.NoError(t, err)
	assert.False(t, exists)

	delta := model.BalanceDelta{Available: dec("10"), Income: dec("10")}
	require.NoError(t, logs.Append(ctx, nil, model.NewAccountLog(account, 1, delta, "BAT1", "ORDER-1", "recharge")))

	exists, err = logs.Exists(ctx, nil, account.ID, 1, "ORDER-1")
	require.NoError(t, err)
	assert.True(t, exists)

	err = logs.Append(ctx, nil, model.NewAccountLog(account, 1, delta, "BAT2", "ORDER-1", "recharge"))
	assert.ErrorIs(t, err, ErrDuplicateOrder)

	// 不同操作类型可以使用相同订单号
	require.NoError(t, logs.Append(ctx, nil, model.NewAccountLog(account, 2, delta, "BAT2", "ORDER-1", "withdraw")))
}

func TestCatalogRepository(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&model.AssetType{ID: 2, Name: "POINT", IsActive: true}).Error)
	require.NoError(t, db.Create(&model.AssetType{ID: 1, Name: "CNY", IsActive: true}).Error)
	require.NoError(t, db.Create(&model.AssetType{ID: 3, Name: "OLD", IsActive: false}).Error)
	require.NoError(t, db.Create(&model.ActionType{
		ID:                     1,
		Name:                   "recharge",
		AvailableBalanceChange: model.ChangeInc,
		FrozenBalanceChange:    model.ChangeNone,
		TotalIncomeChange:      model.ChangeInc,
		TotalExpenseChange:     model.ChangeNone,
		IsActive:               true,
	}).Error)

	repo := NewCatalogRepository(db)
	assetTypes, err := repo.ListActiveAssetTypes(ctx)
	require.NoError(t, err)
	require.Len(t, assetTypes, 2)
	assert.Equal(t, "CNY", assetTypes[0].Name)
	assert.Equal(t, "POINT", assetTypes[1].Name)

	actionTypes, err := repo.ListActiveActionTypes(ctx)
	require.NoError(t, err)
	require.Len(t, actionTypes, 1)
	assert.Equal(t, model.ChangeInc, actionTypes[0].AvailableBalanceChange)
	assert.Equal(t, model.ChangeNone, actionTypes[0].FrozenBalanceChange)
}

func TestOutboxRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewOutboxRepository(db)
	ctx := context.Background()

	for _, key := range []string{"BAT1", "BAT2"} {
		require.NoError(t, repo.Create(ctx, nil, &model.OutboxMessage{
			MessageKey: key,
			Topic:      "account-action",
			Payload:    "{}",
			Status:     model.OutboxStatusPending,
		}))
	}

	messages, err := repo.GetPendingMessages(ctx, 10)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "BAT1", messages[0].MessageKey)

	require.NoError(t, repo.MarkSent(ctx, messages[0].ID))

	failed, err := repo.RecordFailure(ctx, messages[1], 2)
	require.NoError(t, err)
	assert.False(t, failed)

	messages, err = repo.GetPendingMessages(ctx, 10)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, 1, messages[0].RetryCount)

	failed, err = repo.RecordFailure(ctx, messages[0], 2)
	require.NoError(t, err)
	assert.True(t, failed)

	messages, err = repo.GetPendingMessages(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

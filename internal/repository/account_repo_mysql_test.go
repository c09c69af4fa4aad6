package repository

import (
	"context"
	"errors"
	"testing"

	"assetledger/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMySQLMock(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	return db, mock
}

var accountColumns = []string{
	"id", "user_id", "asset_type_id",
	"available_balance", "frozen_balance", "total_income", "total_expense", "is_active",
}

// 余额变更必须是单条相对更新语句，不能先查后改
func TestAccountRepository_ApplyDeltaMySQL(t *testing.T) {
	db, mock := newMySQLMock(t)
	repo := NewAccountRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `account` SET `available_balance`=available_balance \\+ CAST\\(\\? AS DECIMAL\\(30,6\\)\\)," +
		"`frozen_balance`=frozen_balance \\+ CAST\\(\\? AS DECIMAL\\(30,6\\)\\)," +
		"`total_expense`=total_expense \\+ CAST\\(\\? AS DECIMAL\\(30,6\\)\\)," +
		"`total_income`=total_income \\+ CAST\\(\\? AS DECIMAL\\(30,6\\)\\).*WHERE user_id = \\? AND asset_type_id = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT \\* FROM `account` WHERE user_id = \\? AND asset_type_id = \\?").
		WillReturnRows(sqlmock.NewRows(accountColumns).
			AddRow(7, 1, 1, "39.500000", "0.000000", "100.000000", "60.500000", true))

	account, err := repo.ApplyDelta(context.Background(), nil, 1, 1, model.BalanceDelta{
		Available: dec("-60.5"),
		Expense:   dec("60.5"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), account.ID)
	assert.True(t, dec("39.5").Equal(account.AvailableBalance))
	assert.True(t, dec("60.5").Equal(account.TotalExpense))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_ApplyDeltaMySQLError(t *testing.T) {
	db, mock := newMySQLMock(t)
	repo := NewAccountRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `account` SET").WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectRollback()

	_, err := repo.ApplyDelta(context.Background(), nil, 1, 1, model.BalanceDelta{Available: dec("1")})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"assetledger/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrAccountNotFound = errors.New("账户不存在")
	ErrAccountExists   = errors.New("账户已存在")
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx == nil {
		return r.db
	}
	return tx
}

// Create 创建账户，余额全部为 0 且默认启用
func (r *AccountRepository) Create(ctx context.Context, userID, assetTypeID int64) (*model.Account, error) {
	account := &model.Account{
		UserID:      userID,
		AssetTypeID: assetTypeID,
		IsActive:    true,
	}
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAccountExists
		}
		return nil, err
	}
	// 重新读取一次，拿到数据库默认值
	return r.Find(ctx, nil, userID, assetTypeID)
}

// Find 按 (user_id, asset_type_id) 查询账户，不存在时返回 nil, nil
func (r *AccountRepository) Find(ctx context.Context, tx *gorm.DB, userID, assetTypeID int64) (*model.Account, error) {
	var account model.Account
	err := r.conn(tx).WithContext(ctx).
		Where("user_id = ? AND asset_type_id = ?", userID, assetTypeID).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// FindByUserID 查询用户的全部资产账户
func (r *AccountRepository) FindByUserID(ctx context.Context, userID int64) ([]*model.Account, error) {
	var accounts []*model.Account
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("asset_type_id ASC").
		Find(&accounts).Error
	return accounts, err
}

// ApplyDelta 在事务内以相对更新的方式变更四个余额字段，并返回更新后的账户
//
// 单条 UPDATE ... SET col = col + ? 由数据库行锁串行化同一账户的并发变更，
// 不需要先查后改，也不需要应用层加锁。更新后的读取在同一事务内，读到的是本事务写入的值
func (r *AccountRepository) ApplyDelta(ctx context.Context, tx *gorm.DB, userID, assetTypeID int64, delta model.BalanceDelta) (*model.Account, error) {
	db := r.conn(tx)
	result := db.WithContext(ctx).
		Model(&model.Account{}).
		Where("user_id = ? AND asset_type_id = ?", userID, assetTypeID).
		Updates(map[string]interface{}{
			"available_balance": addExpr(db, "available_balance", delta.Available),
			"frozen_balance":    addExpr(db, "frozen_balance", delta.Frozen),
			"total_income":      addExpr(db, "total_income", delta.Income),
			"total_expense":     addExpr(db, "total_expense", delta.Expense),
		})

	if result.Error != nil {
		return nil, result.Error
	}

	// MySQL 在值未变化时 RowsAffected 为 0，这里以重新读取的结果为准
	account, err := r.Find(ctx, tx, userID, assetTypeID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

// IsActive 账户是否存在且已启用
func (r *AccountRepository) IsActive(ctx context.Context, tx *gorm.DB, userID, assetTypeID int64) (bool, error) {
	var count int64
	err := r.conn(tx).WithContext(ctx).
		Model(&model.Account{}).
		Where("user_id = ? AND asset_type_id = ? AND is_active = ?", userID, assetTypeID, true).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// addExpr 生成 col = col + delta 的表达式
// SQLite 没有定点小数类型，余额以浮点数存储，每次更新后舍入到 model.AmountScale 位，避免误差累积
func addExpr(db *gorm.DB, column string, delta decimal.Decimal) clause.Expr {
	if db.Dialector.Name() == "sqlite" {
		return gorm.Expr(fmt.Sprintf("ROUND(%s + CAST(? AS REAL), %d)", column, model.AmountScale), delta)
	}
	return gorm.Expr(fmt.Sprintf("%s + CAST(? AS DECIMAL(30,%d))", column, model.AmountScale), delta)
}

package repository

import (
	"context"
	"errors"

	"assetledger/internal/model"

	"gorm.io/gorm"
)

var ErrDuplicateOrder = errors.New("该订单号已处理")

type AccountLogRepository struct {
	db *gorm.DB
}

func NewAccountLogRepository(db *gorm.DB) *AccountLogRepository {
	return &AccountLogRepository{db: db}
}

// Exists 幂等检查：同一账户、同一操作类型下订单号是否已经处理过
func (r *AccountLogRepository) Exists(ctx context.Context, tx *gorm.DB, accountID, actionTypeID int64, orderNumber string) (bool, error) {
	if tx == nil {
		tx = r.db
	}
	var count int64
	err := tx.WithContext(ctx).
		Model(&model.AccountLog{}).
		Where("account_id = ? AND action_type_id = ? AND order_number = ?", accountID, actionTypeID, orderNumber).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Append 写入操作日志，必须与对应的余额变更处于同一事务
func (r *AccountLogRepository) Append(ctx context.Context, tx *gorm.DB, entry *model.AccountLog) error {
	if tx == nil {
		tx = r.db
	}
	if err := tx.WithContext(ctx).Create(entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateOrder
		}
		return err
	}
	return nil
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AccountLog 账户操作日志表
// 每次成功的账户操作写入一条，只追加，不修改，不删除
//
// (account_id, action_type_id, order_number) 唯一，同时作为幂等键：
// 同一账户、同一操作类型的同一个订单号只会被处理一次
type AccountLog struct {
	ID                     int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID              int64           `gorm:"not null;uniqueIndex:uk_account_log_idempotency,priority:1" json:"account_id"`
	ActionTypeID           int64           `gorm:"not null;uniqueIndex:uk_account_log_idempotency,priority:2" json:"action_type_id"`
	BatchNo                string          `gorm:"type:varchar(32);index;not null" json:"batch_no"`
	AmountAvailableBalance decimal.Decimal `gorm:"type:decimal(30,6);not null" json:"amount_available_balance"`
	AmountFrozenBalance    decimal.Decimal `gorm:"type:decimal(30,6);not null" json:"amount_frozen_balance"`
	AmountTotalIncome      decimal.Decimal `gorm:"type:decimal(30,6);not null" json:"amount_total_income"`
	AmountTotalExpense     decimal.Decimal `gorm:"type:decimal(30,6);not null" json:"amount_total_expense"`
	AvailableBalanceAfter  decimal.Decimal `gorm:"type:decimal(30,6);not null" json:"available_balance_after"`
	FrozenBalanceAfter     decimal.Decimal `gorm:"type:decimal(30,6);not null" json:"frozen_balance_after"`
	TotalIncomeAfter       decimal.Decimal `gorm:"type:decimal(30,6);not null" json:"total_income_after"`
	TotalExpenseAfter      decimal.Decimal `gorm:"type:decimal(30,6);not null" json:"total_expense_after"`
	OrderNumber            string          `gorm:"type:varchar(128);not null;uniqueIndex:uk_account_log_idempotency,priority:3" json:"order_number"`
	Description            string          `gorm:"type:varchar(256);not null" json:"description"`
	CreatedAt              time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (AccountLog) TableName() string {
	return "account_log"
}

func (l *AccountLog) AfterFind(tx *gorm.DB) error {
	for _, d := range []*decimal.Decimal{
		&l.AmountAvailableBalance, &l.AmountFrozenBalance, &l.AmountTotalIncome, &l.AmountTotalExpense,
		&l.AvailableBalanceAfter, &l.FrozenBalanceAfter, &l.TotalIncomeAfter, &l.TotalExpenseAfter,
	} {
		*d = d.Round(AmountScale)
	}
	return nil
}

// NewAccountLog 由变动值和操作后的账户快照组装日志
func NewAccountLog(account *Account, actionTypeID int64, delta BalanceDelta, batchNo, orderNumber, description string) *AccountLog {
	return &AccountLog{
		AccountID:              account.ID,
		ActionTypeID:           actionTypeID,
		BatchNo:                batchNo,
		AmountAvailableBalance: delta.Available,
		AmountFrozenBalance:    delta.Frozen,
		AmountTotalIncome:      delta.Income,
		AmountTotalExpense:     delta.Expense,
		AvailableBalanceAfter:  account.AvailableBalance,
		FrozenBalanceAfter:     account.FrozenBalance,
		TotalIncomeAfter:       account.TotalIncome,
		TotalExpenseAfter:      account.TotalExpense,
		OrderNumber:            orderNumber,
		Description:            description,
	}
}

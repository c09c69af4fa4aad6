package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Account 资产账户表
// 每个用户每种资产类型一个账户，余额只允许通过账户操作（ActionType）变更
type Account struct {
	ID               int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID           int64           `gorm:"not null;uniqueIndex:uk_account_user_asset" json:"user_id"`
	AssetTypeID      int64           `gorm:"not null;uniqueIndex:uk_account_user_asset" json:"asset_type_id"`
	AvailableBalance decimal.Decimal `gorm:"type:decimal(30,6);not null;default:0" json:"available_balance"` // 可用余额
	FrozenBalance    decimal.Decimal `gorm:"type:decimal(30,6);not null;default:0" json:"frozen_balance"`    // 冻结余额
	TotalIncome      decimal.Decimal `gorm:"type:decimal(30,6);not null;default:0" json:"total_income"`      // 累计收入
	TotalExpense     decimal.Decimal `gorm:"type:decimal(30,6);not null;default:0" json:"total_expense"`     // 累计支出
	IsActive         bool            `gorm:"not null" json:"is_active"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"-"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"-"`
}

func (Account) TableName() string {
	return "account"
}

// AfterFind 读出的余额按 AmountScale 舍入
// SQLite 以浮点数存储 decimal 列，不舍入会读到 0.19999999999999998 这类值
func (a *Account) AfterFind(tx *gorm.DB) error {
	a.AvailableBalance = a.AvailableBalance.Round(AmountScale)
	a.FrozenBalance = a.FrozenBalance.Round(AmountScale)
	a.TotalIncome = a.TotalIncome.Round(AmountScale)
	a.TotalExpense = a.TotalExpense.Round(AmountScale)
	return nil
}

// BalanceDelta 一次账户操作对四个余额字段的带符号变动
type BalanceDelta struct {
	Available decimal.Decimal
	Frozen    decimal.Decimal
	Income    decimal.Decimal
	Expense   decimal.Decimal
}

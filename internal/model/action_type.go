package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AmountScale 金额精度：最多 6 位小数，超出部分截断而非四舍五入
const AmountScale = 6

// Change 账户操作对单个余额字段的影响
type Change string

const (
	ChangeInc  Change = "INC"  // 增加
	ChangeDec  Change = "DEC"  // 扣减
	ChangeNone Change = "NONE" // 不变
)

// ParseChange 解析配置或数据库中的取值，大小写不敏感
func ParseChange(s string) (Change, error) {
	switch c := Change(strings.ToUpper(strings.TrimSpace(s))); c {
	case ChangeInc, ChangeDec, ChangeNone:
		return c, nil
	}
	return "", fmt.Errorf("无效的变动类型: %q", s)
}

// Calculate 按变动类型计算带符号的变动值
// 金额先取绝对值并截断到 6 位小数
func (c Change) Calculate(amount decimal.Decimal) decimal.Decimal {
	magnitude := amount.Abs().Truncate(AmountScale)
	switch c {
	case ChangeInc:
		return magnitude
	case ChangeDec:
		return magnitude.Neg()
	default:
		return decimal.Zero
	}
}

func (c Change) Value() (driver.Value, error) {
	if _, err := ParseChange(string(c)); err != nil {
		return nil, err
	}
	return string(c), nil
}

func (c *Change) Scan(value interface{}) error {
	var raw string
	switch v := value.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("无法解析变动类型: %T", value)
	}
	parsed, err := ParseChange(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ActionType 账户操作类型表
// 定义一次操作对可用余额、冻结余额、累计收入、累计支出四个字段的影响
type ActionType struct {
	ID                     int64     `gorm:"primaryKey" json:"id"`
	Name                   string    `gorm:"type:varchar(64);not null" json:"name"`
	Description            string    `gorm:"type:varchar(256);not null;default:''" json:"description"`
	AvailableBalanceChange Change    `gorm:"type:varchar(8);not null" json:"available_balance_change"`
	FrozenBalanceChange    Change    `gorm:"type:varchar(8);not null" json:"frozen_balance_change"`
	TotalIncomeChange      Change    `gorm:"type:varchar(8);not null" json:"total_income_change"`
	TotalExpenseChange     Change    `gorm:"type:varchar(8);not null" json:"total_expense_change"`
	IsActive               bool      `gorm:"not null" json:"-"`
	CreatedAt              time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt              time.Time `gorm:"autoUpdateTime" json:"-"`
}

func (ActionType) TableName() string {
	return "action_type"
}

// Delta 计算该操作类型在给定金额下的四个字段变动
func (a *ActionType) Delta(amount decimal.Decimal) BalanceDelta {
	return BalanceDelta{
		Available: a.AvailableBalanceChange.Calculate(amount),
		Frozen:    a.FrozenBalanceChange.Calculate(amount),
		Income:    a.TotalIncomeChange.Calculate(amount),
		Expense:   a.TotalExpenseChange.Calculate(amount),
	}
}

// Shortfall 扣减字段中是否存在小于 need 的余额，用于操作前后的余额校验
// 操作前传入本次扣减金额，操作后传入零值即可判断是否为负
func (a *ActionType) Shortfall(account *Account, need decimal.Decimal) bool {
	if a.AvailableBalanceChange == ChangeDec && account.AvailableBalance.LessThan(need) {
		return true
	}
	if a.FrozenBalanceChange == ChangeDec && account.FrozenBalance.LessThan(need) {
		return true
	}
	return false
}

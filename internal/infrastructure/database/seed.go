package database

import (
	"context"
	"fmt"

	"assetledger/internal/config"
	"assetledger/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Seed 写入配置中的资产类型与操作类型，已存在的记录保持不变
func Seed(ctx context.Context, db *gorm.DB, cfg *config.CatalogConfig) error {
	for _, s := range cfg.AssetTypes {
		assetType := &model.AssetType{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			IsActive:    true,
		}
		if err := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(assetType).Error; err != nil {
			return fmt.Errorf("写入资产类型失败: id=%d, err=%w", s.ID, err)
		}
	}

	for _, s := range cfg.ActionTypes {
		actionType, err := actionTypeFromSeed(s)
		if err != nil {
			return err
		}
		if err := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(actionType).Error; err != nil {
			return fmt.Errorf("写入操作类型失败: id=%d, err=%w", s.ID, err)
		}
	}
	return nil
}

func actionTypeFromSeed(s config.ActionTypeSeed) (*model.ActionType, error) {
	changes := make([]model.Change, 0, 4)
	for _, raw := range []string{s.Available, s.Frozen, s.Income, s.Expense} {
		if raw == "" {
			raw = string(model.ChangeNone)
		}
		c, err := model.ParseChange(raw)
		if err != nil {
			return nil, fmt.Errorf("操作类型 %d 配置错误: %w", s.ID, err)
		}
		changes = append(changes, c)
	}

	return &model.ActionType{
		ID:                     s.ID,
		Name:                   s.Name,
		Description:            s.Description,
		AvailableBalanceChange: changes[0],
		FrozenBalanceChange:    changes[1],
		TotalIncomeChange:      changes[2],
		TotalExpenseChange:     changes[3],
		IsActive:               true,
	}, nil
}

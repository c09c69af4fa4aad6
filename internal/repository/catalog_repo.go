package repository

import (
	"context"

	"assetledger/internal/model"

	"gorm.io/gorm"
)

// CatalogRepository 读取资产类型与操作类型
type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) ListActiveAssetTypes(ctx context.Context) ([]*model.AssetType, error) {
	var assetTypes []*model.AssetType
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("id ASC").
		Find(&assetTypes).Error
	return assetTypes, err
}

func (r *CatalogRepository) ListActiveActionTypes(ctx context.Context) ([]*model.ActionType, error) {
	var actionTypes []*model.ActionType
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("id ASC").
		Find(&actionTypes).Error
	return actionTypes, err
}

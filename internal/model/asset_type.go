package model

import (
	"time"
)

// AssetType 资产类型表
type AssetType struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(64);not null" json:"name"`
	Description string    `gorm:"type:varchar(256);not null;default:''" json:"description"`
	IsActive    bool      `gorm:"not null" json:"-"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"-"`
}

func (AssetType) TableName() string {
	return "asset_type"
}

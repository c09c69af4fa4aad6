// Package catalog 保存资产类型与操作类型的只读快照。
//
// 进程启动时加载一次，之后不再修改，可以被任意数量的请求并发读取而无需加锁。
// 数据库中的定义发生变化时需要重启进程才能生效。
package catalog

import (
	"context"
	"fmt"
	"sort"

	"assetledger/internal/model"
	"assetledger/internal/repository"

	"gorm.io/gorm"
)

type Catalog struct {
	assetTypes  map[int64]model.AssetType
	actionTypes map[int64]model.ActionType
}

// New 由给定的定义构造目录，未启用的条目会被忽略
func New(assetTypes []*model.AssetType, actionTypes []*model.ActionType) *Catalog {
	c := &Catalog{
		assetTypes:  make(map[int64]model.AssetType, len(assetTypes)),
		actionTypes: make(map[int64]model.ActionType, len(actionTypes)),
	}
	for _, a := range assetTypes {
		if a != nil && a.IsActive {
			c.assetTypes[a.ID] = *a
		}
	}
	for _, a := range actionTypes {
		if a != nil && a.IsActive {
			c.actionTypes[a.ID] = *a
		}
	}
	return c
}

// Load 从数据库加载全部启用的资产类型与操作类型
func Load(ctx context.Context, db *gorm.DB) (*Catalog, error) {
	repo := repository.NewCatalogRepository(db)

	assetTypes, err := repo.ListActiveAssetTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("加载资产类型失败: %w", err)
	}

	actionTypes, err := repo.ListActiveActionTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("加载操作类型失败: %w", err)
	}

	return New(assetTypes, actionTypes), nil
}

// ActionType 按 id 查询操作类型，未知或未启用时 ok 为 false
func (c *Catalog) ActionType(id int64) (model.ActionType, bool) {
	a, ok := c.actionTypes[id]
	return a, ok
}

func (c *Catalog) IsActionTypeActive(id int64) bool {
	_, ok := c.actionTypes[id]
	return ok
}

func (c *Catalog) IsAssetTypeActive(id int64) bool {
	_, ok := c.assetTypes[id]
	return ok
}

// AssetTypes 按 id 升序返回资产类型副本
func (c *Catalog) AssetTypes() []model.AssetType {
	list := make([]model.AssetType, 0, len(c.assetTypes))
	for _, a := range c.assetTypes {
		list = append(list, a)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// ActionTypes 按 id 升序返回操作类型副本
func (c *Catalog) ActionTypes() []model.ActionType {
	list := make([]model.ActionType, 0, len(c.actionTypes))
	for _, a := range c.actionTypes {
		list = append(list, a)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const orderMarkerPrefix = "ledger:order"

// OrderMarker 记录已经提交的幂等键 (account_id, action_type_id, order_number)
//
// 只在事务提交之后写入，日志表中的记录永不删除，所以标记存在一定意味着已处理。
// 标记缺失不代表未处理，仍需以数据库查询和唯一索引为准
type OrderMarker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewOrderMarker(client *redis.Client, ttl time.Duration) *OrderMarker {
	return &OrderMarker{client: client, ttl: ttl}
}

func orderMarkerKey(accountID, actionTypeID int64, orderNumber string) string {
	return fmt.Sprintf("%s:%d:%d:%s", orderMarkerPrefix, accountID, actionTypeID, orderNumber)
}

// IsProcessed 查询幂等键是否已标记
func (m *OrderMarker) IsProcessed(ctx context.Context, accountID, actionTypeID int64, orderNumber string) (bool, error) {
	n, err := m.client.Exists(ctx, orderMarkerKey(accountID, actionTypeID, orderNumber)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkProcessed 标记一批已提交的幂等键
func (m *OrderMarker) MarkProcessed(ctx context.Context, keys []OrderKey) error {
	if len(keys) == 0 {
		return nil
	}
	pipe := m.client.Pipeline()
	for _, k := range keys {
		pipe.Set(ctx, orderMarkerKey(k.AccountID, k.ActionTypeID, k.OrderNumber), 1, m.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// OrderKey 幂等键
type OrderKey struct {
	AccountID    int64
	ActionTypeID int64
	OrderNumber  string
}

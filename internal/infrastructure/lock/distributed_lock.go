package lock

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// 基于 Redis 的互斥锁，只用于后台任务的单实例执行，账户余额的并发控制交给数据库行锁
//
// 加锁：SET key value NX PX ttl，value 为持有者标识
// 释放：Lua 脚本先校验持有者再删除，避免锁过期后误删其他实例的锁

const unlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`

// DistributedLock 分布式锁
type DistributedLock struct {
	client     *redis.Client
	key        string
	value      string
	expiration time.Duration
}

func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TryLock 非阻塞获取锁
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
}

// Unlock 释放锁，锁已过期或被其他实例持有时不做任何事
func (l *DistributedLock) Unlock(ctx context.Context) error {
	return l.client.Eval(ctx, unlockScript, []string{l.key}, l.value).Err()
}

// NewOutboxLock 消息投递任务锁，多实例部署时同一时刻只有一个实例扫描消息表
func NewOutboxLock(client *redis.Client, owner string, expiration time.Duration) *DistributedLock {
	return NewDistributedLock(client, "ledger:lock:outbox", owner, expiration)
}

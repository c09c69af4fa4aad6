package idgen

import (
	"fmt"
	"sync"
	"time"
)

// 雪花算法 ID 生成器
//
// 64 位结构：1 位符号位 | 41 位毫秒时间戳 | 10 位机器 ID | 12 位序列号
// 同一机器内严格递增，多机器之间依靠机器 ID 区分

const (
	epoch          = int64(1704067200000) // 2024-01-01 00:00:00 UTC
	workerIDBits   = 10
	sequenceBits   = 12
	maxWorkerID    = -1 ^ (-1 << workerIDBits)
	maxSequence    = -1 ^ (-1 << sequenceBits)
	workerIDShift  = sequenceBits
	timestampShift = sequenceBits + workerIDBits
)

type Snowflake struct {
	mu        sync.Mutex
	timestamp int64
	workerID  int64
	sequence  int64
}

var (
	defaultGenerator *Snowflake
	defaultMu        sync.Mutex
)

// NewSnowflake 创建生成器，workerID 取值 0-1023
func NewSnowflake(workerID int64) (*Snowflake, error) {
	if workerID < 0 || workerID > maxWorkerID {
		return nil, fmt.Errorf("workerID 必须在 0-%d 之间", maxWorkerID)
	}
	return &Snowflake{workerID: workerID}, nil
}

// Init 初始化默认生成器，只有第一次成功的调用生效
// workerID 非法时返回错误，默认生成器保持未初始化
func Init(workerID int64) error {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultGenerator != nil {
		return nil
	}
	s, err := NewSnowflake(workerID)
	if err != nil {
		return err
	}
	defaultGenerator = s
	return nil
}

// NextID 使用默认生成器生成 ID，未初始化时使用 workerID = 1
func NextID() int64 {
	return defaultSnowflake().Generate()
}

func defaultSnowflake() *Snowflake {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultGenerator == nil {
		defaultGenerator = &Snowflake{workerID: 1}
	}
	return defaultGenerator
}

func (s *Snowflake) Generate() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()

	if now == s.timestamp {
		s.sequence = (s.sequence + 1) & maxSequence
		if s.sequence == 0 {
			// 当前毫秒序列号用完，等待下一毫秒
			for now <= s.timestamp {
				now = time.Now().UnixMilli()
			}
		}
	} else {
		s.sequence = 0
	}

	s.timestamp = now

	return ((now - epoch) << timestampShift) |
		(s.workerID << workerIDShift) |
		s.sequence
}

// GenerateBatchNo 生成账户操作批次号
// 格式：BAT + 雪花 ID，例如 BAT1234567890123456789
func GenerateBatchNo() string {
	return fmt.Sprintf("BAT%d", NextID())
}

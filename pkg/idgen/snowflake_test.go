package idgen

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSnowflake_InvalidWorkerID(t *testing.T) {
	_, err := NewSnowflake(-1)
	assert.Error(t, err)

	_, err = NewSnowflake(maxWorkerID + 1)
	assert.Error(t, err)
}

// resetDefault 清空默认生成器，测试结束后恢复
func resetDefault(t *testing.T) {
	t.Helper()
	defaultMu.Lock()
	saved := defaultGenerator
	defaultGenerator = nil
	defaultMu.Unlock()

	t.Cleanup(func() {
		defaultMu.Lock()
		defaultGenerator = saved
		defaultMu.Unlock()
	})
}

func TestInit_InvalidWorkerIDKeepsDefaultUsable(t *testing.T) {
	resetDefault(t)

	require.Error(t, Init(-1))
	require.Error(t, Init(maxWorkerID+1))

	// 初始化失败后，后续的合法初始化仍然生效
	require.NoError(t, Init(5))
	id := NextID()
	assert.Equal(t, int64(5), (id>>workerIDShift)&maxWorkerID)

	// 已初始化后再次调用不改变机器 ID
	require.NoError(t, Init(9))
	assert.Equal(t, int64(5), (NextID()>>workerIDShift)&maxWorkerID)
}

func TestNextID_WithoutInit(t *testing.T) {
	resetDefault(t)

	require.Error(t, Init(-1))
	assert.NotPanics(t, func() {
		id := NextID()
		assert.Equal(t, int64(1), (id>>workerIDShift)&maxWorkerID)
	})
	assert.True(t, strings.HasPrefix(GenerateBatchNo(), "BAT"))
}

func TestSnowflake_GenerateIsUniqueAndIncreasing(t *testing.T) {
	s, err := NewSnowflake(7)
	require.NoError(t, err)

	prev := s.Generate()
	for i := 0; i < 10000; i++ {
		id := s.Generate()
		require.Greater(t, id, prev)
		prev = id
	}
}

func TestGenerateBatchNo_ConcurrentUnique(t *testing.T) {
	const workers, perWorker = 8, 500

	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, workers*perWorker)
		wg   sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				no := GenerateBatchNo()
				mu.Lock()
				seen[no] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
	for no := range seen {
		assert.True(t, strings.HasPrefix(no, "BAT"))
		assert.LessOrEqual(t, len(no), 32)
		break
	}
}

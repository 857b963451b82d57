package entitylock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/smallbiznis/microgrid/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestManagerSerialisesSameKey(t *testing.T) {
	m := NewManager(config.Config{}, nil, zap.NewNop())

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := m.Lock(context.Background(), "hh:Saraipani/39")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Empty(t, m.slots)
}

func TestManagerDifferentKeysDoNotBlock(t *testing.T) {
	m := NewManager(config.Config{}, nil, zap.NewNop())

	unlockA, err := m.Lock(context.Background(), "hh:a")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	unlockB, err := m.Lock(ctx, "hh:b")
	require.NoError(t, err)
	unlockB()
}

func TestManagerHonoursContext(t *testing.T) {
	m := NewManager(config.Config{}, nil, zap.NewNop())

	unlock, err := m.Lock(context.Background(), "vec:saraipani")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = m.Lock(ctx, "vec:saraipani")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	assert.Empty(t, m.slots)
}

func TestRedisLockerWithoutClient(t *testing.T) {
	assert.Nil(t, NewRedisClient(config.Config{}))
	assert.Nil(t, NewRedisLocker(nil))

	var l *RedisLocker
	_, _, err := l.TryLock(context.Background(), "k", time.Second)
	assert.Error(t, err)
	assert.NoError(t, l.Release(context.Background(), "k", "t"))
}

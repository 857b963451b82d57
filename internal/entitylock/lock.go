package entitylock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/smallbiznis/microgrid/internal/config"
	"go.uber.org/zap"
)

var ErrLockTimeout = errors.New("entity_lock_timeout")

const retryInterval = 25 * time.Millisecond

// Locker serialises read-modify-write cycles on one entity.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type slot struct {
	ch   chan struct{}
	refs int
}

// Manager is a keyed mutex, optionally backed by redis so several
// processes sharing one database also exclude each other.
type Manager struct {
	mu    sync.Mutex
	slots map[string]*slot

	remote *RedisLocker
	ttl    time.Duration
	log    *zap.Logger
}

func NewManager(cfg config.Config, remote *RedisLocker, log *zap.Logger) *Manager {
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		slots:  make(map[string]*slot),
		remote: remote,
		ttl:    ttl,
		log:    log.Named("entitylock"),
	}
}

// Lock blocks until key is free or ctx ends.
func (m *Manager) Lock(ctx context.Context, key string) (func(), error) {
	s := m.acquireSlot(key)
	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		m.releaseSlot(key, s, false)
		return nil, ctx.Err()
	}

	if m.remote == nil {
		return func() { m.releaseSlot(key, s, true) }, nil
	}

	token, err := m.lockRemote(ctx, key)
	if err != nil {
		m.releaseSlot(key, s, true)
		return nil, err
	}
	return func() {
		// the caller's ctx may already be cancelled
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := m.remote.Release(releaseCtx, redisKey(key), token); err != nil {
			m.log.Warn("release redis lock", zap.String("key", key), zap.Error(err))
		}
		m.releaseSlot(key, s, true)
	}, nil
}

func (m *Manager) lockRemote(ctx context.Context, key string) (string, error) {
	deadline := time.Now().Add(m.ttl)
	for {
		token, ok, err := m.remote.TryLock(ctx, redisKey(key), m.ttl)
		if err != nil {
			return "", err
		}
		if ok {
			return token, nil
		}
		if time.Now().After(deadline) {
			return "", ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(retryInterval):
		}
	}
}

func (m *Manager) acquireSlot(key string) *slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		m.slots[key] = s
	}
	s.refs++
	return s
}

func (m *Manager) releaseSlot(key string, s *slot, held bool) {
	if held {
		<-s.ch
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(m.slots, key)
	}
}

func redisKey(key string) string {
	return "microgrid:lock:" + key
}

package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "wallet_lock:"

// unlockScript deletes the lock only when held by the caller, so an expired
// lock taken over by another holder is never released by the old one.
const unlockScript = `if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('del', KEYS[1]) else return 0 end`

// RedisLocker serializes per-wallet critical sections across processes using
// a Redis SetNX lock. Implements ports.WalletLocker.
type RedisLocker struct {
	client      goredis.UniversalClient
	holdTimeout time.Duration // Lock TTL; bounds damage if a holder dies
	waitTimeout time.Duration // Max time to wait for a busy wallet
}

// NewRedisLocker creates a Redis-backed wallet locker.
func NewRedisLocker(client goredis.UniversalClient, holdTimeout, waitTimeout time.Duration) *RedisLocker {
	return &RedisLocker{
		client:      client,
		holdTimeout: holdTimeout,
		waitTimeout: waitTimeout,
	}
}

// WithWalletLock acquires the lock for address, runs fn, and releases.
// Acquisition retries with exponential backoff up to the wait timeout.
func (l *RedisLocker) WithWalletLock(ctx context.Context, address string, fn func(ctx context.Context) error) error {
	key := keyPrefix + address
	owner := uuid.New().String()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 5 * time.Millisecond
	bo.MaxInterval = 100 * time.Millisecond
	bo.MaxElapsedTime = l.waitTimeout

	acquire := func() error {
		ok, err := l.client.SetNX(ctx, key, owner, l.holdTimeout).Result()
		if err != nil {
			return backoff.Permanent(fmt.Errorf("acquire wallet lock: %w", err))
		}
		if !ok {
			return fmt.Errorf("wallet %s is locked", address)
		}
		return nil
	}

	if err := backoff.Retry(acquire, backoff.WithContext(bo, ctx)); err != nil {
		return err
	}

	defer func() {
		// Best effort; TTL reclaims the lock if this fails.
		_, _ = l.client.Eval(context.WithoutCancel(ctx), unlockScript, []string{key}, owner).Result()
	}()

	return fn(ctx)
}

// LocalLocker serializes per-wallet critical sections within one process
// using keyed mutexes. Suitable for single-instance deployments and tests.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLocalLocker creates an in-process wallet locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *LocalLocker) walletMutex(address string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[address]
	if !ok {
		m = &sync.Mutex{}
		l.locks[address] = m
	}
	return m
}

// WithWalletLock runs fn while holding the in-process lock for address.
func (l *LocalLocker) WithWalletLock(ctx context.Context, address string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := l.walletMutex(address)
	m.Lock()
	defer m.Unlock()
	return fn(ctx)
}

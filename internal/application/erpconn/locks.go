package erpconn

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bizpulse/backend/internal/domain/erp"
)

// CredentialVault encrypts and decrypts credential blobs. The concrete
// implementation lives in the infrastructure layer.
type CredentialVault interface {
	Encrypt(creds erp.Credentials) (string, error)
	Decrypt(blob string) (erp.Credentials, error)
}

// DistributedLock serializes syncs for one connection across replicas.
// Acquire is non-blocking: a lock already held elsewhere returns false.
type DistributedLock interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), acquired bool, err error)
}

// NoopLock is the single-replica implementation: the in-process keyed
// mutex already provides the serialization.
type NoopLock struct{}

// Acquire always succeeds with a no-op release.
func (NoopLock) Acquire(_ context.Context, _ string, _ time.Duration) (func(), bool, error) {
	return func() {}, true, nil
}

// keyedMutex hands out one mutex per connection ID. Entries are never
// evicted; the map is bounded by the number of connections.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[uuid.UUID]*sync.Mutex)}
}

// lock blocks until the per-key mutex is held and returns its unlock func.
func (k *keyedMutex) lock(key uuid.UUID) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}

package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memEntry[V Keyed] struct {
	val       V
	expiresAt time.Time
}

// MemStore is an in memory Store that expires records lazily. It is the
// default backend, suitable for a single process deployment.
type MemStore[V Keyed] struct {
	mut     sync.RWMutex
	ttl     time.Duration
	entries map[uuid.UUID]memEntry[V]
	acsIdx  map[uuid.UUID]uuid.UUID

	// now is replaceable in tests
	now func() time.Time
}

// NewMemStore returns a MemStore expiring records after ttl.
func NewMemStore[V Keyed](ttl time.Duration) (*MemStore[V], error) {
	if ttl <= 0 {
		return nil, newError("invalid ttl %v", ttl)
	}
	return &MemStore[V]{
		ttl:     ttl,
		entries: make(map[uuid.UUID]memEntry[V]),
		acsIdx:  make(map[uuid.UUID]uuid.UUID),
		now:     time.Now,
	}, nil
}

// Save implements Store.
func (self *MemStore[V]) Save(ctx context.Context, v V) error {
	self.mut.Lock()
	defer self.mut.Unlock()

	self.purgeExpired()
	self.entries[v.Key()] = memEntry[V]{val: v, expiresAt: self.now().Add(self.ttl)}
	self.acsIdx[v.ACSKey()] = v.Key()

	return nil
}

// Update implements Store.
func (self *MemStore[V]) Update(ctx context.Context, v V) error {
	self.mut.Lock()
	defer self.mut.Unlock()

	entry, found := self.entries[v.Key()]
	if !found || self.now().After(entry.expiresAt) {
		return flagError(ErrNotFound, "no live record under %s", v.Key())
	}
	entry.val = v
	self.entries[v.Key()] = entry
	self.acsIdx[v.ACSKey()] = v.Key()

	return nil
}

// Load implements Store.
func (self *MemStore[V]) Load(ctx context.Context, key uuid.UUID) (V, error) {
	var zero V

	self.mut.RLock()
	defer self.mut.RUnlock()

	entry, found := self.entries[key]
	if !found || self.now().After(entry.expiresAt) {
		return zero, flagError(ErrNotFound, "no live record under %s", key)
	}
	return entry.val, nil
}

// FindByACSKey implements Store.
func (self *MemStore[V]) FindByACSKey(ctx context.Context, acsKey uuid.UUID) (V, error) {
	var zero V

	self.mut.RLock()
	key, found := self.acsIdx[acsKey]
	self.mut.RUnlock()
	if !found {
		return zero, flagError(ErrNotFound, "no record indexed under %s", acsKey)
	}
	return self.Load(ctx, key)
}

// Close implements Store.
func (self *MemStore[V]) Close() error {
	return nil
}

// purgeExpired drops expired entries, caller holds the write lock.
func (self *MemStore[V]) purgeExpired() {
	now := self.now()
	for key, entry := range self.entries {
		if now.After(entry.expiresAt) {
			delete(self.acsIdx, entry.val.ACSKey())
			delete(self.entries, key)
		}
	}
}

var _ Store[Keyed] = (*MemStore[Keyed])(nil)

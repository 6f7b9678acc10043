package token

import (
	"maps"
	"sync"
)

// MemoryRepo keeps the durable entries in process memory. It suits a single
// long-lived process; nothing survives a restart.
type MemoryRepo struct {
	entries map[string]string
	lock    sync.RWMutex
}

var _ Repo = (*MemoryRepo)(nil)

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{entries: make(map[string]string)}
}

func (r *MemoryRepo) Load(key string) (string, bool, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	v, ok := r.entries[key]
	return v, ok, nil
}

func (r *MemoryRepo) Save(entries map[string]string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	maps.Copy(r.entries, entries)
	return nil
}

func (r *MemoryRepo) Delete(keys ...string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	for _, k := range keys {
		delete(r.entries, k)
	}
	return nil
}

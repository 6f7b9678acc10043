package tokenfakerepo

import (
	"maps"
	"sync"

	"github.com/jrsteele09/taskflow-client/token"
)

var _ token.Repo = (*FakeTokenRepo)(nil)

// FakeTokenRepo is an in-memory token.Repo. Errors can be injected to drive
// the failure paths of the Store.
type FakeTokenRepo struct {
	entries map[string]string
	lock    sync.RWMutex

	LoadErr   error
	SaveErr   error
	DeleteErr error

	saves int
}

func NewFakeTokensRepo() *FakeTokenRepo {
	return &FakeTokenRepo{
		entries: make(map[string]string),
	}
}

// Seed writes entries directly, bypassing any injected error.
func (tr *FakeTokenRepo) Seed(entries map[string]string) *FakeTokenRepo {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	maps.Copy(tr.entries, entries)
	return tr
}

func (tr *FakeTokenRepo) Load(key string) (string, bool, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()
	if tr.LoadErr != nil {
		return "", false, tr.LoadErr
	}
	v, ok := tr.entries[key]
	return v, ok, nil
}

func (tr *FakeTokenRepo) Save(entries map[string]string) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	if tr.SaveErr != nil {
		return tr.SaveErr
	}
	maps.Copy(tr.entries, entries)
	tr.saves++
	return nil
}

func (tr *FakeTokenRepo) Delete(keys ...string) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	if tr.DeleteErr != nil {
		return tr.DeleteErr
	}
	for _, k := range keys {
		delete(tr.entries, k)
	}
	return nil
}

// Snapshot returns a copy of every stored entry.
func (tr *FakeTokenRepo) Snapshot() map[string]string {
	tr.lock.RLock()
	defer tr.lock.RUnlock()
	return maps.Clone(tr.entries)
}

// Saves counts successful Save calls.
func (tr *FakeTokenRepo) Saves() int {
	tr.lock.RLock()
	defer tr.lock.RUnlock()
	return tr.saves
}

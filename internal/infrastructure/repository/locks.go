package repository

import "sync"

// lockTable hands out one RWMutex per file name. Entries are reference
// counted and dropped once nobody holds or waits on them.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*nameLock
}

type nameLock struct {
	sync.RWMutex
	refs int
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*nameLock)}
}

func (t *lockTable) RLock(name string) func() {
	l := t.acquire(name)
	l.RLock()
	return func() {
		l.RUnlock()
		t.release(name, l)
	}
}

func (t *lockTable) Lock(name string) func() {
	l := t.acquire(name)
	l.Lock()
	return func() {
		l.Unlock()
		t.release(name, l)
	}
}

func (t *lockTable) acquire(name string) *nameLock {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.locks[name]
	if !ok {
		l = &nameLock{}
		t.locks[name] = l
	}
	l.refs++
	return l
}

func (t *lockTable) release(name string, l *nameLock) {
	t.mu.Lock()
	defer t.mu.Unlock()

	l.refs--
	if l.refs == 0 {
		delete(t.locks, name)
	}
}

func (t *lockTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}

package indexer

import "sync"

// docLocks hands out one mutex per document ID so writes to the same
// document serialize while different documents proceed in parallel. Entries
// are reference counted and removed once the last holder releases.
type docLocks struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newDocLocks() *docLocks {
	return &docLocks{locks: make(map[string]*lockEntry)}
}

// lock blocks until the document's mutex is held and returns the release
// function.
func (d *docLocks) lock(id string) func() {
	d.mu.Lock()
	entry, ok := d.locks[id]
	if !ok {
		entry = &lockEntry{}
		d.locks[id] = entry
	}
	entry.refs++
	d.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		d.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(d.locks, id)
		}
		d.mu.Unlock()
	}
}

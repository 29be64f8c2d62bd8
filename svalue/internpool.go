package svalue

import (
	"sync"

	"github.com/zeebo/xxh3"
)

// InternPool is a process-wide, reference-counted string intern pool
// (§5 "Shared-resource policy": cores only read from it during queries).
// A single InternPool is normally shared across every DataStore in a
// process; queries only ever call Lookup, never Intern. datastore never
// calls Intern itself: callers intern strings first and pass the
// resulting ids in the Values they hand to AddEntity/AddLabels.
type InternPool struct {
	mu      sync.RWMutex
	byHash  map[uint64][]uint64 // hash -> candidate ids, handles collisions
	strings map[uint64]string
	refs    map[uint64]uint32
	nextID  uint64
}

// NewInternPool creates an empty pool.
func NewInternPool() *InternPool {
	return &InternPool{
		byHash:  make(map[uint64][]uint64),
		strings: make(map[uint64]string),
		refs:    make(map[uint64]uint32),
	}
}

// Intern returns the id for s, creating and reference-counting a new entry
// if s has not been seen before, or incrementing the refcount of the
// existing entry otherwise.
func (p *InternPool) Intern(s string) uint64 {
	h := xxh3.HashString(s)

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, id := range p.byHash[h] {
		if p.strings[id] == s {
			p.refs[id]++
			return id
		}
	}

	p.nextID++
	id := p.nextID
	p.byHash[h] = append(p.byHash[h], id)
	p.strings[id] = s
	p.refs[id] = 1
	return id
}

// Lookup resolves an interned id back to its string. Reads only, safe for
// concurrent use by any number of queries.
func (p *InternPool) Lookup(id uint64) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.strings[id]
	return s, ok
}

// Release decrements the refcount for id, freeing the entry once it
// reaches zero.
func (p *InternPool) Release(id uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.refs[id]--
	if p.refs[id] > 0 {
		return
	}

	s, ok := p.strings[id]
	if !ok {
		return
	}
	delete(p.refs, id)
	delete(p.strings, id)

	h := xxh3.HashString(s)
	ids := p.byHash[h]
	for i, other := range ids {
		if other == id {
			p.byHash[h] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(p.byHash[h]) == 0 {
		delete(p.byHash, h)
	}
}

// Len returns the number of distinct strings currently interned.
func (p *InternPool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.strings)
}

package book

import (
	"sync"

	"vantage/internal/common"

	"github.com/shopspring/decimal"
)

const indexShardCount = 32

type indexEntry struct {
	symbol string
	price  decimal.Decimal
	side   common.Side
}

// orderIndex is a sharded concurrent map from order id to its resting
// location, giving O(1) cancel lookups without scanning ladders. Manual
// sharding (rather than sync.Map) is used because cancel needs an atomic
// read-then-delete against a single shard lock, not sync.Map's independent
// per-key atomics.
type orderIndex struct {
	shards [indexShardCount]*indexShard
}

type indexShard struct {
	mu sync.RWMutex
	m  map[uint64]indexEntry
}

func newOrderIndex() *orderIndex {
	idx := &orderIndex{}
	for i := range idx.shards {
		idx.shards[i] = &indexShard{m: make(map[uint64]indexEntry)}
	}
	return idx
}

func (idx *orderIndex) shardFor(id uint64) *indexShard {
	return idx.shards[id%indexShardCount]
}

func (idx *orderIndex) set(id uint64, e indexEntry) {
	s := idx.shardFor(id)
	s.mu.Lock()
	s.m[id] = e
	s.mu.Unlock()
}

func (idx *orderIndex) get(id uint64) (indexEntry, bool) {
	s := idx.shardFor(id)
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.m[id]
	return e, ok
}

func (idx *orderIndex) delete(id uint64) {
	s := idx.shardFor(id)
	s.mu.Lock()
	delete(s.m, id)
	s.mu.Unlock()
}

// Len reports the total number of tracked order ids, across all shards.
func (idx *orderIndex) Len() int {
	n := 0
	for _, s := range idx.shards {
		s.mu.RLock()
		n += len(s.m)
		s.mu.RUnlock()
	}
	return n
}

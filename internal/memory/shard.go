package memory

import (
	"hash/fnv"
	"sync"
)

const shardCount = 32

// shard is one lock stripe of a shardedMap.
type shard[V any] struct {
	mu sync.RWMutex
	m  map[string]V
}

// shardedMap spreads per-user state over shardCount independently locked
// maps so that unrelated users do not contend.
type shardedMap[V any] struct {
	shards [shardCount]*shard[V]
}

func newShardedMap[V any]() *shardedMap[V] {
	s := &shardedMap[V]{}
	for i := range s.shards {
		s.shards[i] = &shard[V]{m: make(map[string]V)}
	}
	return s
}

func (s *shardedMap[V]) shardFor(key string) *shard[V] {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return s.shards[h.Sum32()%shardCount]
}

// sum adds f(v) over every entry, locking one shard at a time.
func (s *shardedMap[V]) sum(f func(V) int) int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, v := range sh.m {
			total += f(v)
		}
		sh.mu.RUnlock()
	}
	return total
}

func (s *shardedMap[V]) delete(key string) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	delete(sh.m, key)
	sh.mu.Unlock()
}

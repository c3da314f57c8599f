package ingest

import (
	"hash/fnv"
	"sync"
)

// lockShards is a fixed-size table of mutexes, one per shard, used to
// serialize writes to the same doc_id without forcing every request
// through a single global lock. Distinct doc_ids land in the same shard
// occasionally (a hash collision), which only costs extra, harmless
// serialization — never a correctness problem.
type lockShards struct {
	shards []sync.Mutex
}

func newLockShards(n int) *lockShards {
	if n <= 0 {
		n = 64
	}
	return &lockShards{shards: make([]sync.Mutex, n)}
}

func (l *lockShards) shardFor(docID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(docID))
	return &l.shards[h.Sum32()%uint32(len(l.shards))]
}

// Lock acquires docID's shard and returns a func to release it.
func (l *lockShards) Lock(docID string) func() {
	m := l.shardFor(docID)
	m.Lock()
	return m.Unlock
}

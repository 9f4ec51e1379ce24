package repository

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/cadence/pkg/metrics"
)

type record[V any] struct {
	value V
	// lastSeen is unix nanoseconds; updated under the shard read lock.
	lastSeen atomic.Int64
}

type shard[V any] struct {
	mu   sync.RWMutex
	byID map[string]*record[V]
}

// ShardedStore is an in-memory Store split across fnv-hashed shards.
type ShardedStore[V any] struct {
	shards []*shard[V]
	opts   options

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

var _ Store[int] = (*ShardedStore[int])(nil)

// NewShardedStore constructs a store and starts its metrics updater, which
// stops when ctx is done or Close is called.
func NewShardedStore[V any](ctx context.Context, opts ...Option) *ShardedStore[V] {
	o := options{
		shardCount:            defaultShardCount,
		metricsUpdateInterval: defaultMetricsUpdateInterval,
		onCount:               metrics.UpdateSessionsActive,
	}
	for _, opt := range opts {
		opt(&o)
	}

	s := &ShardedStore[V]{
		shards:   make([]*shard[V], o.shardCount),
		opts:     o,
		stopChan: make(chan struct{}),
	}
	for i := range s.shards {
		s.shards[i] = &shard[V]{byID: make(map[string]*record[V])}
	}

	s.startMetricsUpdater(ctx)
	return s
}

func (s *ShardedStore[V]) shardFor(id string) *shard[V] {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

// Put implements Store.Put.
func (s *ShardedStore[V]) Put(_ context.Context, id string, v V, now time.Time) {
	r := &record[V]{value: v}
	r.lastSeen.Store(now.UnixNano())

	sh := s.shardFor(id)
	sh.mu.Lock()
	sh.byID[id] = r
	sh.mu.Unlock()
}

// Get implements Store.Get.
func (s *ShardedStore[V]) Get(_ context.Context, id string, now time.Time) (V, error) {
	sh := s.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	r, ok := sh.byID[id]
	if !ok {
		var zero V
		return zero, ErrNotFound
	}
	r.lastSeen.Store(now.UnixNano())
	return r.value, nil
}

// Delete implements Store.Delete.
func (s *ShardedStore[V]) Delete(_ context.Context, id string) bool {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.byID[id]; !ok {
		return false
	}
	delete(sh.byID, id)
	return true
}

// Range implements Store.Range. Values are collected per shard before fn
// runs, so fn may call back into the store.
func (s *ShardedStore[V]) Range(_ context.Context, fn func(id string, v V) bool) {
	type pair struct {
		id string
		v  V
	}
	for _, sh := range s.shards {
		sh.mu.RLock()
		batch := make([]pair, 0, len(sh.byID))
		for id, r := range sh.byID {
			batch = append(batch, pair{id: id, v: r.value})
		}
		sh.mu.RUnlock()

		for _, p := range batch {
			if !fn(p.id, p.v) {
				return
			}
		}
	}
}

// Count implements Store.Count.
func (s *ShardedStore[V]) Count(_ context.Context) int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.byID)
		sh.mu.RUnlock()
	}
	return n
}

// EvictIdle implements Store.EvictIdle.
func (s *ShardedStore[V]) EvictIdle(_ context.Context, cutoff time.Time) []V {
	limit := cutoff.UnixNano()
	var evicted []V
	for _, sh := range s.shards {
		sh.mu.Lock()
		for id, r := range sh.byID {
			if r.lastSeen.Load() < limit {
				evicted = append(evicted, r.value)
				delete(sh.byID, id)
			}
		}
		sh.mu.Unlock()
	}
	return evicted
}

// Close stops the background metrics updater.
func (s *ShardedStore[V]) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *ShardedStore[V]) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.opts.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.opts.onCount(s.Count(ctx))
			}
		}
	}()
}

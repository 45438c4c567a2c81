// Package tilecache is a sharded in-memory LRU of encoded tiles.
//
// Loads are coalesced: concurrent misses for one key run the loader once
// and share its result. Failed loads are not cached.
package tilecache

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"
)

// ErrLoadPanicked is returned to callers waiting on a load that panicked.
// The panic itself propagates in the loading goroutine.
var ErrLoadPanicked = errors.New("tilecache: loader panicked")

// shardCount must be a power of 2.
const shardCount = 16

// Key identifies a tile.
type Key struct {
	Z, X, Y int
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%d/%d", k.Z, k.X, k.Y)
}

func (k Key) hash() uint64 {
	var buf [24]byte
	for i, v := range [...]int{k.Z, k.X, k.Y} {
		u := uint64(v)
		for b := 0; b < 8; b++ {
			buf[i*8+b] = byte(u >> (8 * b))
		}
	}
	h := fnv.New64a()
	_, _ = h.Write(buf[:]) // fnv.Write never returns an error
	return h.Sum64()
}

// LoadFunc renders a tile on a miss.
type LoadFunc func(ctx context.Context, k Key) ([]byte, error)

// Stats holds cache counters.
type Stats struct {
	Len       int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Coalesced uint64
	Evictions uint64
	Expired   uint64
}

// Cache is a thread-safe LRU of tile bytes.
type Cache struct {
	shards   [shardCount]*shard
	capacity int // per shard
	ttl      time.Duration
	now      func() time.Time

	hits      atomic.Uint64
	misses    atomic.Uint64
	coalesced atomic.Uint64
	evictions atomic.Uint64
	expired   atomic.Uint64
}

type shard struct {
	mu       sync.Mutex
	entries  map[Key]*entry
	lru      recency
	inflight map[Key]*call
}

// call is a load in progress.
type call struct {
	done chan struct{}
	data []byte
	err  error
}

// New creates a cache holding about entries tiles. A ttl of zero keeps
// tiles until evicted.
func New(entries int, ttl time.Duration) *Cache {
	perShard := (entries + shardCount - 1) / shardCount
	if perShard < 1 {
		perShard = 1
	}
	c := &Cache{capacity: perShard, ttl: ttl, now: time.Now}
	for i := range c.shards {
		c.shards[i] = &shard{
			entries:  make(map[Key]*entry),
			inflight: make(map[Key]*call),
		}
	}
	return c
}

func (c *Cache) shard(k Key) *shard {
	return c.shards[k.hash()&(shardCount-1)]
}

// Get returns a cached tile.
func (c *Cache) Get(k Key) ([]byte, bool) {
	s := c.shard(k)
	s.mu.Lock()
	data, ok := c.lookup(s, k)
	s.mu.Unlock()
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return data, ok
}

// lookup returns a live entry and refreshes its recency. Caller holds s.mu.
func (c *Cache) lookup(s *shard, k Key) ([]byte, bool) {
	e, ok := s.entries[k]
	if !ok {
		return nil, false
	}
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		s.lru.unlink(e)
		delete(s.entries, k)
		c.expired.Add(1)
		return nil, false
	}
	s.lru.moveToFront(e)
	return e.data, true
}

// Set stores a tile, evicting the least recently used tiles of its shard
// when full. data must not be modified afterwards.
func (c *Cache) Set(k Key, data []byte) {
	s := c.shard(k)
	s.mu.Lock()
	c.store(s, k, data)
	s.mu.Unlock()
}

// store inserts or replaces k. Caller holds s.mu.
func (c *Cache) store(s *shard, k Key, data []byte) {
	var expires time.Time
	if c.ttl > 0 {
		expires = c.now().Add(c.ttl)
	}
	if e, ok := s.entries[k]; ok {
		e.data = data
		e.expires = expires
		s.lru.moveToFront(e)
		return
	}
	for s.lru.len >= c.capacity {
		old := s.lru.oldest()
		s.lru.unlink(old)
		delete(s.entries, old.key)
		c.evictions.Add(1)
	}
	e := &entry{key: k, data: data, expires: expires}
	s.entries[k] = e
	s.lru.pushFront(e)
}

// GetOrLoad returns the cached tile or runs load once for all concurrent
// callers asking for k. The loader runs without any lock held and with
// the first caller's ctx; a caller whose ctx ends stops waiting but the
// load continues for the others.
func (c *Cache) GetOrLoad(ctx context.Context, k Key, load LoadFunc) ([]byte, error) {
	s := c.shard(k)
	s.mu.Lock()
	if data, ok := c.lookup(s, k); ok {
		s.mu.Unlock()
		c.hits.Add(1)
		return data, nil
	}
	if cl, ok := s.inflight[k]; ok {
		s.mu.Unlock()
		c.coalesced.Add(1)
		select {
		case <-cl.done:
			return cl.data, cl.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	// err stays ErrLoadPanicked unless load returns.
	cl := &call{done: make(chan struct{}), err: ErrLoadPanicked}
	s.inflight[k] = cl
	s.mu.Unlock()
	c.misses.Add(1)

	defer func() {
		s.mu.Lock()
		delete(s.inflight, k)
		if cl.err == nil {
			c.store(s, k, cl.data)
		}
		s.mu.Unlock()
		close(cl.done)
	}()
	cl.data, cl.err = load(ctx, k)
	return cl.data, cl.err
}

// Delete removes k and reports whether it was present.
func (c *Cache) Delete(k Key) bool {
	s := c.shard(k)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[k]
	if !ok {
		return false
	}
	s.lru.unlink(e)
	delete(s.entries, k)
	return true
}

// Clear removes every tile.
func (c *Cache) Clear() {
	for _, s := range c.shards {
		s.mu.Lock()
		s.entries = make(map[Key]*entry)
		s.lru = recency{}
		s.mu.Unlock()
	}
}

// Len returns the number of cached tiles, expired ones included until
// they are next looked up.
func (c *Cache) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.Lock()
		n += len(s.entries)
		s.mu.Unlock()
	}
	return n
}

// Stats returns current counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Len:       c.Len(),
		Capacity:  c.capacity * shardCount,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Coalesced: c.coalesced.Load(),
		Evictions: c.evictions.Load(),
		Expired:   c.expired.Load(),
	}
}

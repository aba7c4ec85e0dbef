package authority

import (
	"container/list"
	"hash/fnv"
	"sync"
	"time"

	"github.com/miekg/dns"
)

// forwardCacheEntry is one cached, positive forward response. Negative
// caching is explicitly excluded per spec.md §1 Non-goals.
type forwardCacheEntry struct {
	key     string
	answers []dns.RR
	expiry  time.Time
}

type forwardShard struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	lruList    *list.List
	maxEntries int
}

// forwardCache is a sharded, positive-only, in-memory LRU cache for
// forwarded responses, adapted from the teacher's
// internal/cache.ShardedCache (entries/lruList/mu per shard, fnv-hashed
// key routes to a shard), trimmed to drop DNSSEC validation and negative
// caching, neither of which are in scope here.
type forwardCache struct {
	shards    []*forwardShard
	numShards int
	minTTL    time.Duration
	maxTTL    time.Duration
}

func newForwardCache(numShards, maxEntriesPerShard int, minTTL, maxTTL time.Duration) *forwardCache {
	if numShards <= 0 {
		numShards = 16
	}
	c := &forwardCache{numShards: numShards, minTTL: minTTL, maxTTL: maxTTL}
	c.shards = make([]*forwardShard, numShards)
	for i := range c.shards {
		c.shards[i] = &forwardShard{
			entries:    make(map[string]*list.Element),
			lruList:    list.New(),
			maxEntries: maxEntriesPerShard,
		}
	}
	return c
}

func (c *forwardCache) shardFor(key string) *forwardShard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return c.shards[h.Sum32()%uint32(c.numShards)]
}

func cacheKey(name string, qtype uint16) string {
	return name + "|" + dns.TypeToString[qtype]
}

func (c *forwardCache) get(name string, qtype uint16) ([]dns.RR, bool) {
	key := cacheKey(name, qtype)
	shard := c.shardFor(key)

	shard.mu.Lock()
	defer shard.mu.Unlock()

	el, ok := shard.entries[key]
	if !ok {
		return nil, false
	}
	entry := el.Value.(*forwardCacheEntry)
	if time.Now().After(entry.expiry) {
		shard.lruList.Remove(el)
		delete(shard.entries, key)
		return nil, false
	}
	shard.lruList.MoveToFront(el)
	return entry.answers, true
}

// set clamps the TTL implied by answers to [minTTL,maxTTL] before caching,
// the same clamp shape as the teacher's caching_resolver.getTTL.
func (c *forwardCache) set(name string, qtype uint16, answers []dns.RR) {
	if len(answers) == 0 {
		return
	}
	ttl := time.Duration(answers[0].Header().Ttl) * time.Second
	if ttl < c.minTTL {
		ttl = c.minTTL
	}
	if ttl > c.maxTTL {
		ttl = c.maxTTL
	}

	key := cacheKey(name, qtype)
	shard := c.shardFor(key)
	entry := &forwardCacheEntry{key: key, answers: answers, expiry: time.Now().Add(ttl)}

	shard.mu.Lock()
	defer shard.mu.Unlock()

	if el, ok := shard.entries[key]; ok {
		shard.lruList.Remove(el)
		delete(shard.entries, key)
	}
	el := shard.lruList.PushFront(entry)
	shard.entries[key] = el

	if shard.maxEntries > 0 {
		for shard.lruList.Len() > shard.maxEntries {
			oldest := shard.lruList.Back()
			if oldest == nil {
				break
			}
			shard.lruList.Remove(oldest)
			delete(shard.entries, oldest.Value.(*forwardCacheEntry).key)
		}
	}
}

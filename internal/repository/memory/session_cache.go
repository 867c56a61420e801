package memory

import (
	"container/list"
	"encoding/json"
	"sync"
	"time"

	"evidence-intel-be/internal/entity"

	"github.com/google/uuid"
)

// sweepInterval bounds how often the passive expiry sweep runs. There is no
// dedicated timer; accesses do the housekeeping.
const sweepInterval = 5 * time.Minute

// cacheEntry holds a JSON snapshot, not the live session pointer. Callers
// mutate their sessions after Put (the research pipeline does, while pollers
// read), so the cache must never share a pointer between them.
type cacheEntry struct {
	id         uuid.UUID
	raw        []byte
	insertedAt time.Time
	accessedAt time.Time
}

// SessionCache is an LRU+TTL front for the session store. The store stays
// authoritative; entries here carry no cross-process coherence guarantee.
// TTL is measured from insertion, LRU order from last access. Every Get hands
// out a private copy decoded from the stored snapshot.
type SessionCache struct {
	mu        sync.Mutex
	maxSize   int
	ttl       time.Duration
	ll        *list.List // front = most recently used
	items     map[uuid.UUID]*list.Element
	lastSweep time.Time
	now       func() time.Time // injectable clock for tests
}

func NewSessionCache(maxSize int, ttl time.Duration) *SessionCache {
	return &SessionCache{
		maxSize:   maxSize,
		ttl:       ttl,
		ll:        list.New(),
		items:     make(map[uuid.UUID]*list.Element),
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// Get returns a copy of the cached session. An entry older than the TTL is
// purged on the touching access and reported as a miss. A hit refreshes the
// access time and promotes the entry to most-recently-used.
func (c *SessionCache) Get(id uuid.UUID) (*entity.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maybeSweep()

	elem, ok := c.items[id]
	if !ok {
		return nil, false
	}
	entry := elem.Value.(*cacheEntry)
	if c.expired(entry) {
		c.removeElement(elem)
		return nil, false
	}

	var session entity.Session
	if err := json.Unmarshal(entry.raw, &session); err != nil {
		// A snapshot that no longer decodes is useless; drop it and let the
		// store serve the read.
		c.removeElement(elem)
		return nil, false
	}

	entry.accessedAt = c.now()
	c.ll.MoveToFront(elem)
	return &session, true
}

// Put inserts or refreshes a session snapshot. When the cache is at capacity
// it first purges expired entries, then evicts the single least-recently-used
// entry if still full. A session that fails to encode is simply not cached.
func (c *SessionCache) Put(session *entity.Session) {
	if session == nil {
		return
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.maybeSweep()

	if elem, ok := c.items[session.Id]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.raw = raw
		entry.insertedAt = c.now()
		entry.accessedAt = c.now()
		c.ll.MoveToFront(elem)
		return
	}

	if c.ll.Len() >= c.maxSize {
		c.purgeExpired()
		if c.ll.Len() >= c.maxSize {
			if back := c.ll.Back(); back != nil {
				c.removeElement(back)
			}
		}
	}

	entry := &cacheEntry{
		id:         session.Id,
		raw:        raw,
		insertedAt: c.now(),
		accessedAt: c.now(),
	}
	c.items[session.Id] = c.ll.PushFront(entry)
}

// Invalidate drops one entry; used when a session is deleted from the store.
func (c *SessionCache) Invalidate(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[id]; ok {
		c.removeElement(elem)
	}
}

// Len reports live (non-expired) entry count.
func (c *SessionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purgeExpired()
	return c.ll.Len()
}

func (c *SessionCache) expired(entry *cacheEntry) bool {
	return c.now().Sub(entry.insertedAt) >= c.ttl
}

func (c *SessionCache) removeElement(elem *list.Element) {
	entry := elem.Value.(*cacheEntry)
	c.ll.Remove(elem)
	delete(c.items, entry.id)
}

func (c *SessionCache) purgeExpired() {
	for elem := c.ll.Back(); elem != nil; {
		prev := elem.Prev()
		if c.expired(elem.Value.(*cacheEntry)) {
			c.removeElement(elem)
		}
		elem = prev
	}
}

// maybeSweep opportunistically purges everything expired when enough time has
// passed since the last sweep. Called with the lock held.
func (c *SessionCache) maybeSweep() {
	if c.now().Sub(c.lastSweep) <= sweepInterval {
		return
	}
	c.purgeExpired()
	c.lastSweep = c.now()
}

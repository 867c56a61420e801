package memory

import (
	"testing"
	"time"

	"evidence-intel-be/internal/entity"

	"github.com/stretchr/testify/assert"
)

func newSession(name string) *entity.Session {
	return entity.NewSession("steward@example.com", entity.ProductDescriptor{
		Name:       name,
		Indication: "Revision Hip",
	})
}

// fakeClock lets tests advance time without sleeping.
type fakeClock struct {
	t time.Time
}

func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(maxSize int, ttl time.Duration) (*SessionCache, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	c := NewSessionCache(maxSize, ttl)
	c.now = func() time.Time { return clock.t }
	c.lastSweep = clock.t
	return c, clock
}

func TestLRUEvictionOrder(t *testing.T) {
	cache, _ := newTestCache(2, time.Hour)
	a, b, c := newSession("A"), newSession("B"), newSession("C")

	cache.Put(a)
	cache.Put(b)
	cache.Put(c) // at capacity: A is least recently used, evicted

	_, foundA := cache.Get(a.Id)
	_, foundB := cache.Get(b.Id)
	_, foundC := cache.Get(c.Id)
	assert.False(t, foundA)
	assert.True(t, foundB)
	assert.True(t, foundC)
}

func TestAccessPromotesEntry(t *testing.T) {
	cache, _ := newTestCache(2, time.Hour)
	a, b, c := newSession("A"), newSession("B"), newSession("C")

	cache.Put(a)
	cache.Put(b)

	// Touch A so B becomes the LRU victim.
	_, found := cache.Get(a.Id)
	assert.True(t, found)

	cache.Put(c)

	_, foundA := cache.Get(a.Id)
	_, foundB := cache.Get(b.Id)
	assert.True(t, foundA)
	assert.False(t, foundB)
}

func TestTTLExpiryIsAMiss(t *testing.T) {
	cache, clock := newTestCache(10, 30*time.Minute)
	a := newSession("A")
	cache.Put(a)

	clock.advance(29 * time.Minute)
	_, found := cache.Get(a.Id)
	assert.True(t, found)

	clock.advance(2 * time.Minute) // 31m since insertion: TTL runs from insert, not access
	_, found = cache.Get(a.Id)
	assert.False(t, found)
	assert.Zero(t, cache.Len(), "expired entry must be purged on the touching access")
}

func TestPutRefreshesExistingEntry(t *testing.T) {
	cache, clock := newTestCache(10, 30*time.Minute)
	a := newSession("A")
	cache.Put(a)

	clock.advance(25 * time.Minute)
	cache.Put(a) // re-insert resets the TTL window

	clock.advance(10 * time.Minute)
	_, found := cache.Get(a.Id)
	assert.True(t, found)
}

func TestCapacityPrefersPurgingExpiredOverEvicting(t *testing.T) {
	cache, clock := newTestCache(2, 10*time.Minute)
	a, b, c := newSession("A"), newSession("B"), newSession("C")

	cache.Put(a)
	clock.advance(11 * time.Minute) // A expires
	cache.Put(b)
	cache.Put(c) // full, but purging expired A makes room: B survives

	_, foundB := cache.Get(b.Id)
	_, foundC := cache.Get(c.Id)
	assert.True(t, foundB)
	assert.True(t, foundC)
}

func TestPassiveSweepPurgesAllExpired(t *testing.T) {
	cache, clock := newTestCache(10, time.Minute)
	cache.Put(newSession("A"))
	cache.Put(newSession("B"))

	clock.advance(6 * time.Minute) // past TTL and past the sweep interval

	// Any access triggers the sweep.
	_, found := cache.Get(newSession("X").Id)
	assert.False(t, found)
	assert.Zero(t, cache.Len())
}

func TestInvalidateDropsEntry(t *testing.T) {
	cache, _ := newTestCache(2, time.Hour)
	a := newSession("A")
	cache.Put(a)
	cache.Invalidate(a.Id)

	_, found := cache.Get(a.Id)
	assert.False(t, found)
}

func TestGetReturnsIsolatedCopy(t *testing.T) {
	cache, _ := newTestCache(4, time.Hour)
	original := newSession("A")
	original.ResearchReports["competitive_analysis"] = "draft"
	cache.Put(original)

	// The caller's pointer is not the cached state: mutating it after Put
	// must not leak into later reads.
	original.CurrentPhase = entity.PhaseComplete
	original.ResearchReports["competitive_analysis"] = "mutated"

	first, found := cache.Get(original.Id)
	assert.True(t, found)
	assert.NotSame(t, original, first)
	assert.Equal(t, entity.PhaseContextCapture, first.CurrentPhase)
	assert.Equal(t, "draft", first.ResearchReports["competitive_analysis"])

	// And two reads never share state with each other.
	first.ResearchReports["competitive_analysis"] = "scribbled"
	second, found := cache.Get(original.Id)
	assert.True(t, found)
	assert.NotSame(t, first, second)
	assert.Equal(t, "draft", second.ResearchReports["competitive_analysis"])
}

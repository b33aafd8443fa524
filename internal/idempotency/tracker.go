package idempotency

import (
	"time"

	goCache "github.com/patrickmn/go-cache"
)

// DefaultCleanupInterval is how often expired ids are removed from the set
const DefaultCleanupInterval = 1 * time.Hour

// Tracker remembers recently processed order ids so a redelivered webhook
// can be short-circuited instead of creating a duplicate deal. Entries age
// out after the configured TTL; this is an in-process cache, not durable
// state, so a restart forgets everything it has seen.
type Tracker interface {
	// Seen reports whether the order id was processed within the TTL window
	Seen(orderID string) bool

	// MarkProcessed records the order id as processed
	MarkProcessed(orderID string)
}

type cacheTracker struct {
	cache *goCache.Cache
}

// NewTracker creates a Tracker with the given retention window
func NewTracker(ttl time.Duration) Tracker {
	return &cacheTracker{
		cache: goCache.New(ttl, DefaultCleanupInterval),
	}
}

func (t *cacheTracker) Seen(orderID string) bool {
	if orderID == "" {
		return false
	}
	_, found := t.cache.Get(orderID)
	return found
}

func (t *cacheTracker) MarkProcessed(orderID string) {
	if orderID == "" {
		return
	}
	t.cache.SetDefault(orderID, struct{}{})
}

type noopTracker struct{}

// NewNoopTracker returns a Tracker that never suppresses anything, used when
// dedup is disabled and redeliveries intentionally create duplicate deals
func NewNoopTracker() Tracker {
	return noopTracker{}
}

func (noopTracker) Seen(string) bool     { return false }
func (noopTracker) MarkProcessed(string) {}

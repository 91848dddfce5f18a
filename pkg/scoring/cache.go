package scoring

import (
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/petroagent/memcurator-go/pkg/namespace"
)

const (
	defaultCacheTTL = 5 * time.Minute
	defaultCacheCap = 10000
)

// scoreCache is a TTL cache of computed relevance scores keyed by
// (item, role, query, domain focus, strategy).
type scoreCache struct {
	cache *gocache.Cache
	cap   int
}

func newScoreCache(ttl time.Duration, cap int) *scoreCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if cap <= 0 {
		cap = defaultCacheCap
	}
	return &scoreCache{
		cache: gocache.New(ttl, 2*ttl),
		cap:   cap,
	}
}

// cacheKey builds the lookup key. The query is truncated so long queries
// with identical prefixes share entries without unbounded key growth.
func cacheKey(itemID int64, role namespace.AgentRole, query string, focus namespace.Domain, strategy string) string {
	if len(query) > 40 {
		query = query[:40]
	}
	return fmt.Sprintf("%d|%s|%s|%s|%s", itemID, role, query, focus, strategy)
}

func (c *scoreCache) get(key string) (*RelevanceScore, bool) {
	if v, ok := c.cache.Get(key); ok {
		return v.(*RelevanceScore), true
	}
	return nil, false
}

func (c *scoreCache) put(key string, score *RelevanceScore) {
	if c.cache.ItemCount() >= c.cap {
		c.cache.DeleteExpired()
		if c.cache.ItemCount() >= c.cap {
			// Still full after compaction: drop everything rather than
			// grow without bound. Scores are cheap to recompute.
			c.cache.Flush()
		}
	}
	c.cache.SetDefault(key, score)
}

package media

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"redditscraper/pkg/reddit"
)

const (
	DefaultCacheSize = 2000
	DefaultCacheTTL  = 30 * time.Minute
)

// Cache memoizes Resolve per post object. Keys are pointers, so the
// records of a new fetch never hit entries of an older one.
type Cache struct {
	lru    *expirable.LRU[*reddit.Post, *Descriptor]
	lookup func(hit bool)
}

// NewCache creates a cache holding up to size descriptors for ttl
func NewCache(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &Cache{lru: expirable.NewLRU[*reddit.Post, *Descriptor](size, nil, ttl)}
}

// Resolve returns the cached descriptor or resolves and stores it.
// "No descriptor" results are cached too.
func (c *Cache) Resolve(post *reddit.Post) *Descriptor {
	if post == nil {
		return nil
	}
	d, ok := c.lru.Get(post)
	if c.lookup != nil {
		c.lookup(ok)
	}
	if ok {
		return d
	}
	d = Resolve(post)
	c.lru.Add(post, d)
	return d
}

// OnLookup registers fn to be told whether each lookup hit
func (c *Cache) OnLookup(fn func(hit bool)) {
	c.lookup = fn
}

// Purge drops every entry
func (c *Cache) Purge() {
	c.lru.Purge()
}

func (c *Cache) Len() int {
	return c.lru.Len()
}

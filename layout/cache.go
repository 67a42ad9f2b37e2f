package layout

import (
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ByLCY/furigana/internal/log"
)

const (
	DefaultCacheExpiration      = 10 * time.Minute
	DefaultCacheCleanupInterval = 30 * time.Minute
)

// Cache 以 (字体 ID, 行宽, 文本) 为键缓存 Model。Model 不会被修改，
// 因此命中时可以直接共享。可被多个 goroutine 同时使用。
type Cache struct {
	cache *gocache.Cache
}

// NewCache creates a cache; expiration <= 0 keeps entries until flushed.
func NewCache(expiration, cleanupInterval time.Duration) *Cache {
	if expiration <= 0 {
		expiration = gocache.NoExpiration
	}
	return &Cache{cache: gocache.New(expiration, cleanupInterval)}
}

func cacheKey(text string, maxWidth float64, fonts Fonts) string {
	if maxWidth <= 0 {
		maxWidth = Unbounded
	}
	return fonts.ID + "\x00" + strconv.FormatFloat(maxWidth, 'g', -1, 64) + "\x00" + text
}

// Layout 与包级 Layout 相同，但会先查缓存。nil 的 Cache 退化为直接计算。
func (c *Cache) Layout(text string, cons Constraints, fonts Fonts) Model {
	if c == nil || fonts.ID == "" {
		return Layout(text, cons, fonts)
	}
	key := cacheKey(text, cons.MaxWidth, fonts)
	if v, ok := c.cache.Get(key); ok {
		if m, ok := v.(Model); ok {
			log.Debug(log.CatCache, "layout cache hit", "font", fonts.ID, "maxWidth", cons.MaxWidth)
			return m
		}
		log.Error(log.CatCache, "wrong type in layout cache", "font", fonts.ID)
	}
	m := Layout(text, cons, fonts)
	c.cache.SetDefault(key, m)
	return m
}

// Len returns the number of cached models, including expired ones not yet cleaned up.
func (c *Cache) Len() int { return c.cache.ItemCount() }

// Flush drops every cached model. A nil cache is a no-op.
func (c *Cache) Flush() {
	if c == nil {
		return
	}
	c.cache.Flush()
}

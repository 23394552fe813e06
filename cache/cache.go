package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache memoizes generated SQL templates so a repeated question with the
// same filter shape skips the model call entirely.
type Cache struct {
	store *gocache.Cache
}

func New(defaultTTL, cleanupInterval time.Duration) *Cache {
	return &Cache{
		store: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Key hashes the question together with the filter summary. Only the
// filter shape participates, never the literal values, so the key is as
// value-blind as the prompt itself.
func Key(question, filterSummary string) string {
	h := sha256.Sum256([]byte(question + "|" + filterSummary))
	return hex.EncodeToString(h[:])
}

func (c *Cache) GetSQL(key string) (string, bool) {
	v, ok := c.store.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (c *Cache) SetSQL(key, sqlTemplate string) {
	c.store.Set(key, sqlTemplate, gocache.DefaultExpiration)
}

func (c *Cache) Delete(key string) {
	c.store.Delete(key)
}

func (c *Cache) Flush() {
	c.store.Flush()
}

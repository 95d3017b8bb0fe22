package upstream

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/clinicadmin/clinicadmin/pkg/ordered"
)

const schemaCacheSize = 64

// SchemaCache keeps recently fetched form lists. Entries are keyed by form
// kind and caller token and expire after the configured TTL.
type SchemaCache struct {
	lru *expirable.LRU[string, []*ordered.Object]
}

// NewSchemaCache returns nil when ttl is not positive, which disables
// caching.
func NewSchemaCache(ttl time.Duration) *SchemaCache {
	if ttl <= 0 {
		return nil
	}
	return &SchemaCache{lru: expirable.NewLRU[string, []*ordered.Object](schemaCacheSize, nil, ttl)}
}

func cacheKey(kind, token string) string {
	return kind + "\x00" + token
}

// Get returns clones so callers can mutate what they receive.
func (c *SchemaCache) Get(kind, token string) ([]*ordered.Object, bool) {
	if c == nil {
		return nil, false
	}
	forms, ok := c.lru.Get(cacheKey(kind, token))
	if !ok {
		return nil, false
	}
	return cloneAll(forms), true
}

func (c *SchemaCache) Add(kind, token string, forms []*ordered.Object) {
	if c == nil {
		return
	}
	c.lru.Add(cacheKey(kind, token), cloneAll(forms))
}

// Invalidate drops every cached list, for every token.
func (c *SchemaCache) Invalidate() {
	if c == nil {
		return
	}
	c.lru.Purge()
}

func (c *SchemaCache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

func cloneAll(forms []*ordered.Object) []*ordered.Object {
	out := make([]*ordered.Object, len(forms))
	for i, f := range forms {
		out[i] = f.Clone()
	}
	return out
}

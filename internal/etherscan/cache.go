package etherscan

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache stores raw ABI JSON by contract address
type Cache interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte) error
}

// LRUCache keeps recent ABIs in memory in front of an optional slower cache
type LRUCache struct {
	mem  *lru.Cache[string, []byte]
	next Cache
}

func NewLRUCache(size int, next Cache) (*LRUCache, error) {
	mem, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, err
	}
	return &LRUCache{mem: mem, next: next}, nil
}

func (c *LRUCache) Get(key string) ([]byte, bool) {
	key = cacheKey(key)
	if v, ok := c.mem.Get(key); ok {
		return v, true
	}
	if c.next == nil {
		return nil, false
	}
	v, ok := c.next.Get(key)
	if ok {
		c.mem.Add(key, v)
	}
	return v, ok
}

func (c *LRUCache) Put(key string, value []byte) error {
	key = cacheKey(key)
	c.mem.Add(key, value)
	if c.next != nil {
		return c.next.Put(key, value)
	}
	return nil
}

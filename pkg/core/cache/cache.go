package cache

import (
	"sync"
	"time"
)

// ResultCache 运行结果缓存接口（对外导出）
// key 通常是注册的DAG名称，value 是该DAG最近一次的运行结果
type ResultCache interface {
	// Set 设置缓存值，ttl<=0 表示永不过期
	Set(key string, value any, ttl time.Duration) error

	// Get 获取缓存值，过期视为不存在
	Get(key string) (any, bool)

	// Delete 删除缓存值
	Delete(key string) error

	// Clear 清空所有缓存
	Clear() error
}

// cacheEntry 缓存条目（内部使用）
type cacheEntry struct {
	value      any
	expireTime time.Time // 零值表示永不过期
}

func (e *cacheEntry) expired(now time.Time) bool {
	return !e.expireTime.IsZero() && now.After(e.expireTime)
}

// DefaultCleanInterval 默认过期清理间隔
const DefaultCleanInterval = time.Minute

// MemoryResultCache 内存结果缓存实现（对外导出）
type MemoryResultCache struct {
	mu    sync.RWMutex
	cache map[string]*cacheEntry

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewMemoryResultCache 创建内存结果缓存实例（对外导出）
func NewMemoryResultCache() *MemoryResultCache {
	return NewMemoryResultCacheWithInterval(DefaultCleanInterval)
}

// NewMemoryResultCacheWithInterval 指定清理间隔创建缓存（对外导出）
func NewMemoryResultCacheWithInterval(interval time.Duration) *MemoryResultCache {
	if interval <= 0 {
		interval = DefaultCleanInterval
	}
	c := &MemoryResultCache{
		cache: make(map[string]*cacheEntry),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	// 启动清理协程，定期清理过期缓存
	go c.cleanupExpired(interval)
	return c
}

// Set 设置缓存值
func (c *MemoryResultCache) Set(key string, value any, ttl time.Duration) error {
	if key == "" {
		return nil // 空key，忽略
	}

	entry := &cacheEntry{value: value}
	if ttl > 0 {
		entry.expireTime = time.Now().Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[key] = entry
	return nil
}

// Get 获取缓存值
func (c *MemoryResultCache) Get(key string) (any, bool) {
	if key == "" {
		return nil, false
	}

	c.mu.RLock()
	entry, exists := c.cache[key]
	c.mu.RUnlock()
	if !exists {
		return nil, false
	}

	if entry.expired(time.Now()) {
		c.mu.Lock()
		// 期间可能已被重新Set
		if current, ok := c.cache[key]; ok && current == entry {
			delete(c.cache, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return entry.value, true
}

// Delete 删除缓存值
func (c *MemoryResultCache) Delete(key string) error {
	if key == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cache, key)
	return nil
}

// Clear 清空所有缓存
func (c *MemoryResultCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]*cacheEntry)
	return nil
}

// Len 返回当前条目数（含未清理的过期条目）
func (c *MemoryResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// Close 停止清理协程，可重复调用
func (c *MemoryResultCache) Close() error {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
	<-c.done
	return nil
}

// cleanupExpired 清理过期缓存（内部方法）
func (c *MemoryResultCache) cleanupExpired(interval time.Duration) {
	defer close(c.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.purge(time.Now())
		}
	}
}

func (c *MemoryResultCache) purge(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, entry := range c.cache {
		if entry.expired(now) {
			delete(c.cache, key)
		}
	}
}

package build

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultCacheSize bounds the conversion cache kept across watch rebuilds.
const DefaultCacheSize = 64 << 20

// BuildCache caches derived outputs keyed by the content they were derived
// from, with LRU eviction and an optional TTL.
type BuildCache struct {
	entries     map[string]*CacheEntry
	mutex       sync.Mutex
	maxSize     int64
	currentSize int64
	ttl         time.Duration
	// LRU list with dummy head and tail
	head *CacheEntry
	tail *CacheEntry

	hits      int64
	misses    int64
	evictions int64
}

// CacheEntry is one cached output.
type CacheEntry struct {
	Key       string
	Value     []byte
	CreatedAt time.Time
	Size      int64

	prev *CacheEntry
	next *CacheEntry
}

// CacheStats is a point-in-time view of the cache.
type CacheStats struct {
	Entries   int   `json:"entries"`
	Size      int64 `json:"size"`
	MaxSize   int64 `json:"max_size"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

// NewBuildCache creates a cache holding at most maxSize bytes. A zero ttl
// keeps entries until they are evicted.
func NewBuildCache(maxSize int64, ttl time.Duration) *BuildCache {
	cache := &BuildCache{
		entries: make(map[string]*CacheEntry),
		maxSize: maxSize,
		ttl:     ttl,
		head:    &CacheEntry{},
		tail:    &CacheEntry{},
	}
	cache.head.next = cache.tail
	cache.tail.prev = cache.head
	return cache
}

// ContentKey derives a cache key from input bytes plus whatever options
// change the output.
func ContentKey(data []byte, options ...string) string {
	h := sha256.New()
	h.Write(data)
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(options, "\x00")))
	return hex.EncodeToString(h.Sum(nil))
}

// Get retrieves a value from the cache
func (bc *BuildCache) Get(key string) ([]byte, bool) {
	bc.mutex.Lock()
	defer bc.mutex.Unlock()

	entry, exists := bc.entries[key]
	if !exists {
		atomic.AddInt64(&bc.misses, 1)
		return nil, false
	}

	if bc.ttl > 0 && time.Since(entry.CreatedAt) > bc.ttl {
		bc.remove(entry)
		atomic.AddInt64(&bc.misses, 1)
		return nil, false
	}

	bc.moveToFront(entry)
	atomic.AddInt64(&bc.hits, 1)
	return entry.Value, true
}

// Set stores a value in the cache. Values larger than the cache are not
// stored.
func (bc *BuildCache) Set(key string, value []byte) {
	size := int64(len(value))
	bc.mutex.Lock()
	defer bc.mutex.Unlock()

	if existing, ok := bc.entries[key]; ok {
		bc.remove(existing)
	}
	if size > bc.maxSize {
		return
	}

	bc.evictIfNeeded(size)

	entry := &CacheEntry{
		Key:       key,
		Value:     value,
		CreatedAt: time.Now(),
		Size:      size,
	}
	bc.entries[key] = entry
	bc.currentSize += size
	bc.addToFront(entry)
}

// evictIfNeeded evicts entries if cache would exceed max size
func (bc *BuildCache) evictIfNeeded(newSize int64) {
	for bc.currentSize+newSize > bc.maxSize && bc.tail.prev != bc.head {
		bc.remove(bc.tail.prev)
		atomic.AddInt64(&bc.evictions, 1)
	}
}

// Clear drops every entry and resets the statistics.
func (bc *BuildCache) Clear() {
	bc.mutex.Lock()
	defer bc.mutex.Unlock()

	bc.entries = make(map[string]*CacheEntry)
	bc.currentSize = 0
	bc.head.next = bc.tail
	bc.tail.prev = bc.head

	atomic.StoreInt64(&bc.hits, 0)
	atomic.StoreInt64(&bc.misses, 0)
	atomic.StoreInt64(&bc.evictions, 0)
}

// Stats returns cache statistics.
func (bc *BuildCache) Stats() CacheStats {
	bc.mutex.Lock()
	defer bc.mutex.Unlock()

	return CacheStats{
		Entries:   len(bc.entries),
		Size:      bc.currentSize,
		MaxSize:   bc.maxSize,
		Hits:      atomic.LoadInt64(&bc.hits),
		Misses:    atomic.LoadInt64(&bc.misses),
		Evictions: atomic.LoadInt64(&bc.evictions),
	}
}

func (bc *BuildCache) remove(entry *CacheEntry) {
	bc.removeFromList(entry)
	delete(bc.entries, entry.Key)
	bc.currentSize -= entry.Size
}

// LRU doubly-linked list operations
func (bc *BuildCache) addToFront(entry *CacheEntry) {
	entry.prev = bc.head
	entry.next = bc.head.next
	bc.head.next.prev = entry
	bc.head.next = entry
}

func (bc *BuildCache) removeFromList(entry *CacheEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
}

func (bc *BuildCache) moveToFront(entry *CacheEntry) {
	bc.removeFromList(entry)
	bc.addToFront(entry)
}

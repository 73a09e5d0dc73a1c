package answer

import (
	"strings"
	"sync"
	"time"
)

type cacheEntry struct {
	Answer     string
	Confidence int
	Timestamp  time.Time
	HitCount   int
}

// answerCache is the in-process answer store. Entries expire on TTL and
// the oldest entries are trimmed once the cache outgrows its bound.
type answerCache struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	entries    map[string]*cacheEntry
}

func newAnswerCache(ttl time.Duration, maxEntries int) *answerCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &answerCache{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    map[string]*cacheEntry{},
	}
}

// Get returns a live entry and bumps its hit count. Expired entries are
// dropped on read.
func (c *answerCache) Get(key string) (cacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return cacheEntry{}, false
	}
	if time.Since(e.Timestamp) > c.ttl {
		delete(c.entries, key)
		return cacheEntry{}, false
	}
	e.HitCount++
	return *e, true
}

func (c *answerCache) Put(key, answer string, confidence int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &cacheEntry{
		Answer:     answer,
		Confidence: confidence,
		Timestamp:  time.Now(),
	}
}

func (c *answerCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *answerCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]*cacheEntry{}
}

// Sweep drops expired entries, then trims the least-recently-written
// entries while the cache is over its bound. Returns how many were removed.
func (c *answerCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.entries {
		if time.Since(e.Timestamp) > c.ttl {
			delete(c.entries, k)
			removed++
		}
	}
	for len(c.entries) > c.maxEntries {
		oldestKey := ""
		var oldest time.Time
		for k, e := range c.entries {
			if oldestKey == "" || e.Timestamp.Before(oldest) {
				oldestKey, oldest = k, e.Timestamp
			}
		}
		delete(c.entries, oldestKey)
		removed++
	}
	return removed
}

var diacriticFold = map[rune]rune{
	'á': 'a', 'à': 'a', 'â': 'a', 'ä': 'a', 'ã': 'a', 'å': 'a',
	'é': 'e', 'è': 'e', 'ê': 'e', 'ë': 'e',
	'í': 'i', 'ì': 'i', 'î': 'i', 'ï': 'i',
	'ó': 'o', 'ò': 'o', 'ô': 'o', 'ö': 'o', 'õ': 'o',
	'ú': 'u', 'ù': 'u', 'û': 'u', 'ü': 'u',
	'ñ': 'n', 'ç': 'c', 'ý': 'y',
}

// cacheKey normalizes the question (lowercase, diacritics folded,
// punctuation stripped, whitespace collapsed) and appends the source scope
// so the same wording against different lessons never collides.
func cacheKey(question, source string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(question) {
		if f, ok := diacriticFold[r]; ok {
			r = f
		}
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String()) + "|" + source
}

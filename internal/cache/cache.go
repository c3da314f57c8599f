// Package cache provides the two-tier (in-memory LRU + persistent store)
// doc-id -> content-hash lookup the Ingestion Core's dedup check uses, so
// a repeated CapturePayload for the same document doesn't round-trip
// SQLite on every request.
package cache

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
)

// Entry is one memoized doc-id -> content-hash mapping.
type Entry struct {
	ContentHash string
	UpdatedAt   time.Time
}

// Expired reports whether the entry is stale enough that the persistent
// tier should be consulted again rather than trusted outright.
func (e *Entry) Expired(ttl time.Duration) bool {
	return time.Since(e.UpdatedAt) > ttl
}

// DocStore is the persistence interface backing the cache's second tier —
// satisfied by *internal/store.Store.
type DocStore interface {
	GetDocumentContentHash(docID string) (string, bool, error)
}

// DedupCache is the ingestion Processor's dedup lookup: before chunking,
// the Processor consults this cache to see whether docID's content hash is
// unchanged and, on a match, skips the chunker. The store's UpsertDocument
// is still called, and reports the document as "skipped".
type DedupCache struct {
	memory *lru.Cache[string, *Entry]
	store  DocStore
	ttl    time.Duration
}

// New builds a DedupCache. ttlSeconds bounds how long a memory entry is
// trusted before falling back to the store; maxMemoryEntries bounds the
// LRU's size.
func New(store DocStore, ttlSeconds, maxMemoryEntries int) (*DedupCache, error) {
	if maxMemoryEntries <= 0 {
		maxMemoryEntries = 1000
	}

	memCache, err := lru.New[string, *Entry](maxMemoryEntries)
	if err != nil {
		return nil, fmt.Errorf("cache: creating LRU: %w", err)
	}

	return &DedupCache{
		memory: memCache,
		store:  store,
		ttl:    time.Duration(ttlSeconds) * time.Second,
	}, nil
}

// Lookup returns docID's last known content hash and whether it was found,
// checking the in-memory tier first and falling back to the store.
func (c *DedupCache) Lookup(docID string) (string, bool) {
	if entry, ok := c.memory.Get(docID); ok && !entry.Expired(c.ttl) {
		return entry.ContentHash, true
	}

	if c.store == nil {
		return "", false
	}

	hash, found, err := c.store.GetDocumentContentHash(docID)
	if err != nil || !found {
		return "", false
	}

	c.memory.Add(docID, &Entry{ContentHash: hash, UpdatedAt: time.Now()})
	return hash, true
}

// Note records docID's latest content hash in the memory tier immediately
// after a successful store write, so the next lookup doesn't have to hit
// SQLite even before the TTL-governed re-check would have.
func (c *DedupCache) Note(docID, contentHash string) {
	c.memory.Add(docID, &Entry{ContentHash: contentHash, UpdatedAt: time.Now()})
}

// StartPurger starts a background goroutine that periodically evicts
// stale entries from the in-memory tier so a document pruned out of the
// store doesn't linger as a false dedup hit forever. Runs every 5 minutes
// until ctx is cancelled; the returned channel closes when the goroutine
// exits, letting callers synchronize shutdown ordering.
func (c *DedupCache) StartPurger(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	ticker := time.NewTicker(5 * time.Minute)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Error().Interface("panic", r).Msg("dedup cache purger: recovered from panic")
						}
					}()
					c.purge()
				}()
			}
		}
	}()
	return done
}

func (c *DedupCache) purge() {
	keys := c.memory.Keys()
	for _, key := range keys {
		if entry, ok := c.memory.Peek(key); ok && entry.Expired(c.ttl) {
			c.memory.Remove(key)
		}
	}
}

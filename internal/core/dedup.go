package core

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"
	"sync"
	"time"
)

// FindingDedup remembers recently published findings so the same result for
// the same snapshot is not published again within the TTL. Findings are
// fingerprinted on analysis, source, scope and details; ID and timestamp
// never take part.
type FindingDedup struct {
	mu      sync.Mutex
	seen    map[string]time.Time
	ttl     time.Duration
	maxSize int
}

// NewFindingDedup creates a dedup cache. TTL controls how long a fingerprint
// is remembered. maxSize caps memory usage by evicting oldest entries.
func NewFindingDedup(ttl time.Duration, maxSize int) *FindingDedup {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &FindingDedup{
		seen:    make(map[string]time.Time, maxSize/2),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// IsDuplicate reports whether an equivalent finding was seen within the TTL
// for the same scope (typically a snapshot ID). If not, it records it.
func (d *FindingDedup) IsDuplicate(f *Finding, scope string) bool {
	key := d.fingerprint(f, scope)

	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	if seenAt, ok := d.seen[key]; ok && now.Sub(seenAt) < d.ttl {
		return true
	}

	d.seen[key] = now
	if len(d.seen) > d.maxSize {
		d.evictLocked(now)
	}
	return false
}

func (d *FindingDedup) fingerprint(f *Finding, scope string) string {
	h := sha256.New()
	for _, part := range []string{f.Analysis, f.Source, scope, f.Severity.String()} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	// Map keys are sorted by encoding/json, so equal details hash equally.
	if details, err := json.Marshal(f.Details); err == nil {
		h.Write(details)
	} else {
		h.Write([]byte(f.Summary))
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}

// evictLocked removes expired entries, then the oldest half if still over
// capacity.
func (d *FindingDedup) evictLocked(now time.Time) {
	d.expireLocked(now)
	if len(d.seen) <= d.maxSize {
		return
	}
	type aged struct {
		key string
		at  time.Time
	}
	entries := make([]aged, 0, len(d.seen))
	for k, t := range d.seen {
		entries = append(entries, aged{k, t})
	}
	slices.SortFunc(entries, func(a, b aged) int { return a.at.Compare(b.at) })
	for _, e := range entries[:len(entries)/2] {
		delete(d.seen, e.key)
	}
}

func (d *FindingDedup) expireLocked(now time.Time) {
	for k, t := range d.seen {
		if now.Sub(t) >= d.ttl {
			delete(d.seen, k)
		}
	}
}

// StartCleanup runs a background goroutine that periodically evicts expired
// entries. Call the returned function to stop it.
func (d *FindingDedup) StartCleanup(interval time.Duration) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				d.mu.Lock()
				d.expireLocked(time.Now())
				d.mu.Unlock()
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

// Size returns the current number of entries in the cache.
func (d *FindingDedup) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

// Package keyring rotates between multiple API credential sets for one
// venue, so a key that trips rate limits or turns invalid can be
// benched without interrupting dispatch.
package keyring

import (
	"sync"
	"time"

	"nakula/pkg/core"
)

// RotationStrategy controls when the ring advances to the next key.
type RotationStrategy int

const (
	// RotationRoundRobin advances only on explicit Rotate calls.
	RotationRoundRobin RotationStrategy = iota
	// RotationOnError advances whenever a request using the current
	// key fails.
	RotationOnError
	// RotationOnRateLimit advances only on rate-limit rejections.
	RotationOnRateLimit
)

// Entry is one credential set in the ring.
type Entry struct {
	ID          string
	Credentials core.Credentials
	Disabled    bool
	LastUsed    time.Time
	ErrorCount  int
}

// Ring holds the credential entries and the rotation cursor.
type Ring struct {
	mu       sync.RWMutex
	entries  []*Entry
	current  int
	strategy RotationStrategy
}

// New creates a Ring over copies of the given entries.
func New(entries []*Entry, strategy RotationStrategy) *Ring {
	copied := make([]*Entry, len(entries))
	for i, e := range entries {
		c := *e
		copied[i] = &c
	}
	return &Ring{
		entries:  copied,
		strategy: strategy,
	}
}

// Current returns the active non-disabled entry, or nil when every
// entry is disabled or the ring is empty.
func (r *Ring) Current() *Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := 0; i < len(r.entries); i++ {
		idx := (r.current + i) % len(r.entries)
		if !r.entries[idx].Disabled {
			return r.entries[idx]
		}
	}
	return nil
}

// Rotate advances to the next non-disabled entry.
func (r *Ring) Rotate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rotateLocked()
}

func (r *Ring) rotateLocked() {
	if len(r.entries) == 0 {
		return
	}
	start := r.current
	for {
		r.current = (r.current + 1) % len(r.entries)
		if !r.entries[r.current].Disabled || r.current == start {
			return
		}
	}
}

// OnError records a failure against the current entry and rotates when
// the strategy calls for it.
func (r *Ring) OnError() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.entries) == 0 {
		return
	}
	r.entries[r.current].ErrorCount++
	if r.strategy == RotationOnError {
		r.rotateLocked()
	}
}

// OnRateLimit records a rate-limit rejection against the current entry
// and rotates under the on-error and on-rate-limit strategies.
func (r *Ring) OnRateLimit() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.entries) == 0 {
		return
	}
	r.entries[r.current].ErrorCount++
	if r.strategy == RotationOnError || r.strategy == RotationOnRateLimit {
		r.rotateLocked()
	}
}

// MarkUsed stamps the current entry's last-used time.
func (r *Ring) MarkUsed() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.entries) == 0 {
		return
	}
	r.entries[r.current].LastUsed = time.Now()
}

// Disable benches the entry with the given ID.
func (r *Ring) Disable(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.ID == id {
			e.Disabled = true
			return
		}
	}
}

// Enable returns a benched entry to rotation and clears its error count.
func (r *Ring) Enable(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.ID == id {
			e.Disabled = false
			e.ErrorCount = 0
			return
		}
	}
}

// Add appends an entry unless its ID is already present.
func (r *Ring) Add(entry *Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.ID == entry.ID {
			return
		}
	}
	c := *entry
	r.entries = append(r.entries, &c)
}

// Remove deletes the entry with the given ID.
func (r *Ring) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, e := range r.entries {
		if e.ID == id {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			if r.current >= len(r.entries) && len(r.entries) > 0 {
				r.current = 0
			}
			return
		}
	}
}

// Len returns the number of entries, disabled included.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

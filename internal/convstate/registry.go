// Package convstate holds the ephemeral "what question was just asked to
// whom" state for multi-step conversational flows. Each (chat, user) key
// carries at most one pending entry: "awaiting a fulfillment link for request
// X", "awaiting a filter value of kind Y", or "a confirm keyboard is open for
// title Z". Entries are written when a flow asks a follow-up question and
// consumed exactly once by the reply that resolves it, whether that reply is
// free text or a button tap.
package convstate

import (
	"context"
	"sync"
	"time"
)

// Kind tags the flow a pending entry belongs to.
type Kind int

const (
	// KindAwaitLink marks an entry waiting for the fulfillment link of a
	// request the operator chose to complete.
	KindAwaitLink Kind = iota + 1
	// KindAwaitFilterValue marks an entry waiting for a free-text filter
	// value (title or requester id) in the admin triage flow.
	KindAwaitFilterValue
	// KindConfirmTitle marks an open confirm keyboard for the /request flow.
	// The typed title lives here rather than in the button payload, which is
	// size-capped by the chat platform.
	KindConfirmTitle
)

// Key identifies one conversation: the chat and the user whose next
// free-text message will consume the entry.
type Key struct {
	ChatID int64
	UserID string
}

// Entry is the pending step awaiting free-text input.
type Entry struct {
	Kind Kind

	// RequestID and Title are set for KindAwaitLink; KindConfirmTitle
	// carries Title alone.
	RequestID string
	Title     string

	// FilterKind is set for KindAwaitFilterValue: "title" or "requester".
	FilterKind string

	createdAt time.Time
}

// Registry stores at most one Entry per Key. Set overwrites, Take atomically
// reads-and-clears; there is deliberately no Peek, so two free-text messages
// racing on the same key can never both observe the same entry.
//
// A TTL bounds how long an abandoned entry is honored. TTL zero disables
// expiry, matching the behavior of keeping the step open forever.
type Registry struct {
	mu      sync.Mutex
	entries map[Key]Entry
	ttl     time.Duration
	now     func() time.Time
}

// NewRegistry constructs a Registry. ttl <= 0 disables expiry.
func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		entries: make(map[Key]Entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Set records entry as the pending step for key, replacing any existing one.
func (r *Registry) Set(key Key, entry Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.createdAt = r.now()
	r.entries[key] = entry
}

// Take removes and returns the pending entry for key. The second return is
// false when no live entry exists; an expired entry is dropped and reported
// as absent.
func (r *Registry) Take(key Key) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		return Entry{}, false
	}
	delete(r.entries, key)
	if r.expired(e) {
		return Entry{}, false
	}
	return e, true
}

// TakeKind removes and returns the pending entry for key only when it has the
// given kind. A live entry of another kind is left in place, so a stale
// button cannot swallow a step that belongs to a different flow.
func (r *Registry) TakeKind(key Key, kind Kind) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok || e.Kind != kind {
		return Entry{}, false
	}
	delete(r.entries, key)
	if r.expired(e) {
		return Entry{}, false
	}
	return e, true
}

// Clear drops any pending entry for key without consuming it.
func (r *Registry) Clear(key Key) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, key)
}

// Len reports the number of stored entries, including not-yet-reaped expired
// ones.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// StartReaper periodically removes expired entries until ctx is done. It is a
// no-op when expiry is disabled.
func (r *Registry) StartReaper(ctx context.Context, interval time.Duration) {
	if r.ttl <= 0 {
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				r.reap()
			}
		}
	}()
}

func (r *Registry) reap() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, e := range r.entries {
		if r.expired(e) {
			delete(r.entries, k)
		}
	}
}

func (r *Registry) expired(e Entry) bool {
	return r.ttl > 0 && r.now().Sub(e.createdAt) >= r.ttl
}

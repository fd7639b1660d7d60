package auth

import (
	"sync"
	"time"
)

// Revoker remembers logged-out token ids until they expire.
type Revoker struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

// NewRevoker creates an empty in-memory denylist.
func NewRevoker(now func() time.Time) *Revoker {
	if now == nil {
		now = time.Now
	}
	return &Revoker{revoked: make(map[string]time.Time), now: now}
}

// Revoke denies id until expiresAt.
func (r *Revoker) Revoke(id string, expiresAt time.Time) {
	if id == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked()
	r.revoked[id] = expiresAt
}

// Revoked reports whether id is currently denied.
func (r *Revoker) Revoked(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked()
	_, ok := r.revoked[id]
	return ok
}

// Len returns the number of live entries.
func (r *Revoker) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked()
	return len(r.revoked)
}

func (r *Revoker) pruneLocked() {
	now := r.now()
	for id, exp := range r.revoked {
		if !exp.After(now) {
			delete(r.revoked, id)
		}
	}
}

package memory

import (
	"context"
	"sync"
	"time"
)

// Revocations is a process-local session denylist.
type Revocations struct {
	mu    sync.Mutex
	until map[string]time.Time
}

func NewRevocations() *Revocations {
	return &Revocations{until: make(map[string]time.Time)}
}

func (r *Revocations) Revoke(_ context.Context, jti string, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.until[jti] = until
	return nil
}

func (r *Revocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	exp, ok := r.until[jti]
	if !ok {
		return false, nil
	}
	if time.Now().After(exp) {
		delete(r.until, jti)
		return false, nil
	}
	return true, nil
}

// EventGuard remembers claimed keys for a while.
type EventGuard struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

func NewEventGuard() *EventGuard {
	return &EventGuard{seen: make(map[string]time.Time)}
}

func (g *EventGuard) FirstSeen(_ context.Context, eventID string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := time.Now()
	if exp, ok := g.seen[eventID]; ok && now.Before(exp) {
		return false, nil
	}
	g.seen[eventID] = now.Add(ttl)
	return true, nil
}

func (g *EventGuard) Release(_ context.Context, eventID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.seen, eventID)
	return nil
}

// Package correlation turns the fire-and-forget broker into a call/response
// abstraction. A registry entry pairs an opaque token with a single-shot
// waiter; the dispatcher resolves waiters as replies arrive on the response
// queues.
package correlation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/skillstorm/reimbursement/internal/clock"
	"github.com/skillstorm/reimbursement/internal/idgen"
)

// ErrTimeout is returned by Waiter.Wait when no reply arrived within the
// bound. Callers map it to their own unavailability error.
var ErrTimeout = errors.New("correlation: reply timeout")

// Waiter receives at most one payload for a registered token.
type Waiter[T any] struct {
	token    string
	registry *Registry[T]
	ch       chan T
}

// Token returns the correlation token to put on the outbound envelope.
func (w *Waiter[T]) Token() string { return w.token }

// Wait blocks until the reply arrives, the timeout elapses or ctx is done.
// On timeout the registry entry is expired so a late reply is dropped rather
// than delivered to nobody.
func (w *Waiter[T]) Wait(ctx context.Context, timeout time.Duration) (T, error) {
	var zero T
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case payload := <-w.ch:
		return payload, nil
	case <-timer.C:
		w.registry.Expire(w.token)
		// A completion may have raced the timeout; prefer the payload.
		select {
		case payload := <-w.ch:
			return payload, nil
		default:
		}
		return zero, ErrTimeout
	case <-ctx.Done():
		w.registry.Expire(w.token)
		return zero, ctx.Err()
	}
}

type pending[T any] struct {
	ch        chan T
	createdAt time.Time
}

// Registry is a thread-safe store of outstanding request waiters keyed by
// correlation token. Entries are removed on completion or expiry so the map
// never grows unbounded.
type Registry[T any] struct {
	mu      sync.Mutex
	waiters map[string]*pending[T]
}

// NewRegistry creates an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{waiters: make(map[string]*pending[T])}
}

// Register creates a fresh token and a waiter that can be awaited exactly
// once.
func (r *Registry[T]) Register() (string, *Waiter[T]) {
	token := idgen.New()
	entry := &pending[T]{ch: make(chan T, 1), createdAt: clock.Now()}
	r.mu.Lock()
	r.waiters[token] = entry
	r.mu.Unlock()
	return token, &Waiter[T]{token: token, registry: r, ch: entry.ch}
}

// Complete resolves the waiter registered under token and removes the entry.
// Unknown tokens — already resolved or expired — are reported as false and
// otherwise ignored; duplicate and late replies are the expected case, not
// an error.
func (r *Registry[T]) Complete(token string, payload T) bool {
	r.mu.Lock()
	entry, ok := r.waiters[token]
	if ok {
		delete(r.waiters, token)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	entry.ch <- payload // buffered; never blocks
	return true
}

// Expire removes the entry for token. The waiter observes the removal as a
// timeout. Expiring an unknown token is a no-op.
func (r *Registry[T]) Expire(token string) {
	r.mu.Lock()
	delete(r.waiters, token)
	r.mu.Unlock()
}

// Outstanding returns the number of unresolved waiters.
func (r *Registry[T]) Outstanding() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waiters)
}

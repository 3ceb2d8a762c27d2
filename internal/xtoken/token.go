// Package xtoken implements the exclusivity token: a uuid-identified
// one-permit fair gate. Endpoints that share a Token share ownership —
// acquiring the permit for one transitively controls every endpoint
// carrying that same Token.
package xtoken

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// Token is a single-holder gate. Its ID is the stable identity of the
// controllable unit (see spec: "the token's uuid is the 'controllable
// unit' identity used in user state").
type Token struct {
	ID  uuid.UUID
	sem *semaphore.Weighted
}

// New creates a fresh token with a random identity and a free permit.
func New() *Token {
	return &Token{
		ID:  uuid.New(),
		sem: semaphore.NewWeighted(1),
	}
}

// TryAcquire attempts to take the permit without blocking. Reports whether
// it succeeded.
func (t *Token) TryAcquire() bool {
	return t.sem.TryAcquire(1)
}

// Acquire blocks until the permit is available or ctx is done. If ctx is
// cancelled before the permit is obtained, no permit is held and the
// semaphore's internal waiter is removed — the permit goes to the next
// waiter in line, never to this caller.
func (t *Token) Acquire(ctx context.Context) error {
	return t.sem.Acquire(ctx, 1)
}

// Release gives the permit back, waking the next FIFO waiter if any.
func (t *Token) Release() {
	t.sem.Release(1)
}

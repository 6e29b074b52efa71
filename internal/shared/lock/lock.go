// Package lock provides the per-key exclusive leases used to keep at most one
// live analysis job per company. Local leases cover a single process; Redis
// leases extend the guarantee across API replicas.
package lock

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrNotHeld is returned when releasing or refreshing a lease that expired or was taken over.
var ErrNotHeld = errors.New("lock not held by this owner")

// Lease is an acquired lock.
type Lease interface {
	Release(ctx context.Context) error
	Refresh(ctx context.Context) error
}

// Locker hands out non-blocking exclusive leases keyed by name.
type Locker interface {
	TryAcquire(ctx context.Context, key string) (Lease, bool, error)
}

// Local is an in-process Locker.
type Local struct {
	mu   sync.Mutex
	held map[string]string
}

// NewLocal constructs a Local locker.
func NewLocal() *Local {
	return &Local{held: make(map[string]string)}
}

// TryAcquire takes key if nobody holds it.
func (l *Local) TryAcquire(ctx context.Context, key string) (Lease, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[key]; busy {
		return nil, false, nil
	}
	token := uuid.NewString()
	l.held[key] = token
	return &localLease{owner: l, key: key, token: token}, true, nil
}

type localLease struct {
	owner *Local
	key   string
	token string
}

func (l *localLease) Release(context.Context) error {
	l.owner.mu.Lock()
	defer l.owner.mu.Unlock()
	if l.owner.held[l.key] != l.token {
		return ErrNotHeld
	}
	delete(l.owner.held, l.key)
	return nil
}

func (l *localLease) Refresh(context.Context) error {
	l.owner.mu.Lock()
	defer l.owner.mu.Unlock()
	if l.owner.held[l.key] != l.token {
		return ErrNotHeld
	}
	return nil
}

var _ Locker = (*Local)(nil)

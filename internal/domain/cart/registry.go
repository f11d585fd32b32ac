package cart

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

type entry struct {
	cart     *Cart
	lastUsed time.Time
}

// Registry keeps the carts of the current process in memory. Carts that have
// not been looked up for a while can be dropped with Sweep.
type Registry struct {
	clock clockwork.Clock
	newID func() string

	mu    sync.Mutex
	carts map[string]*entry
}

// NewRegistry returns an empty Registry that stamps cart use with clock. A nil
// clock means the real clock.
func NewRegistry(clock clockwork.Clock) *Registry {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Registry{
		clock: clock,
		newID: func() string { return uuid.New().String() },
		carts: make(map[string]*entry),
	}
}

// Create allocates a new empty cart.
func (r *Registry) Create() *Cart {
	c := New(r.newID())

	r.mu.Lock()
	r.carts[c.ID()] = &entry{cart: c, lastUsed: r.clock.Now()}
	r.mu.Unlock()

	return c
}

// Get returns the cart with the given id or ErrNotFound. A successful lookup
// counts as use of the cart.
func (r *Registry) Get(id string) (*Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.carts[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.lastUsed = r.clock.Now()
	return e.cart, nil
}

// Sweep drops carts unused for longer than idle and returns how many were
// dropped. Carts listed in keep are in use by someone else and are marked as
// used at now instead.
func (r *Registry) Sweep(now time.Time, idle time.Duration, keep map[string]struct{}) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int
	for id, e := range r.carts {
		if _, held := keep[id]; held {
			e.lastUsed = now
			continue
		}
		if now.Sub(e.lastUsed) > idle {
			delete(r.carts, id)
			n++
		}
	}
	return n
}

// Len returns the number of carts held.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.carts)
}

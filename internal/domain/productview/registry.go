package productview

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/mbjj-storefront/internal/domain/cart"
	"github.com/xenking/mbjj-storefront/internal/domain/product"
)

// ErrViewNotFound is returned for unknown or already closed view ids.
var ErrViewNotFound = errors.New("view not found")

// View is an open product view bound to a cart.
type View struct {
	ID   string
	Cart *cart.Cart
	*Controller
}

// Registry tracks open views.
type Registry struct {
	catalog product.Repository
	carts   *cart.Registry
	opts    Options
	newID   func() string

	mu    sync.RWMutex
	views map[string]*View
}

// NewRegistry creates a Registry whose views read from catalog and add to
// carts held by carts.
func NewRegistry(catalog product.Repository, carts *cart.Registry, opts Options) *Registry {
	return &Registry{
		catalog: catalog,
		carts:   carts,
		opts:    opts.withDefaults(),
		newID:   func() string { return uuid.New().String() },
		views:   make(map[string]*View),
	}
}

// Open creates a view of productID bound to the cart cartID, or to a fresh
// cart when cartID is empty.
//
// An unknown cartID yields cart.ErrNotFound. A missing product yields a nil
// View with the not-found state and no session is kept.
func (r *Registry) Open(ctx context.Context, productID, cartID string) (*View, State, error) {
	var c *cart.Cart
	if cartID != "" {
		var err error
		if c, err = r.carts.Get(cartID); err != nil {
			return nil, State{}, errors.Wrapf(err, "open view of %s", productID)
		}
	}

	ctrl := NewController(r.catalog, nil, r.opts)
	state, err := ctrl.Load(ctx, productID)
	if err != nil {
		return nil, State{}, errors.Wrap(err, "load product")
	}
	if !state.Found {
		ctrl.Close()
		return nil, state, nil
	}

	if c == nil {
		c = r.carts.Create()
	}
	// Not yet shared with any other goroutine.
	ctrl.cart = c

	v := &View{ID: r.newID(), Cart: c, Controller: ctrl}

	r.mu.Lock()
	r.views[v.ID] = v
	r.mu.Unlock()

	r.opts.Logger.Debug("View opened",
		zap.String("view_id", v.ID),
		zap.String("product_id", productID),
		zap.String("cart_id", c.ID()),
	)
	return v, state, nil
}

// Get returns the open view with the given id.
func (r *Registry) Get(id string) (*View, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.views[id]
	if !ok {
		return nil, ErrViewNotFound
	}
	return v, nil
}

// Close tears down and forgets the view with the given id.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	v, ok := r.views[id]
	delete(r.views, id)
	r.mu.Unlock()

	if !ok {
		return ErrViewNotFound
	}
	v.Controller.Close()
	return nil
}

// CloseAll tears down every open view.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	views := r.views
	r.views = make(map[string]*View)
	r.mu.Unlock()

	for _, v := range views {
		v.Controller.Close()
	}
	if len(views) > 0 {
		r.opts.Logger.Info("Closed open views", zap.Int("count", len(views)))
	}
}

// Len returns the number of open views.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.views)
}

// StartJanitor closes views idle for longer than idle, checking every
// interval, and then drops carts that no open view holds and that have not
// been used for idle either. The goroutine exits when ctx is done.
func (r *Registry) StartJanitor(ctx context.Context, interval, idle time.Duration) {
	ticker := r.opts.Clock.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.Chan():
				r.sweep(now, idle)
			}
		}
	}()
}

func (r *Registry) sweep(now time.Time, idle time.Duration) {
	var expired []*View
	held := make(map[string]struct{})

	r.mu.Lock()
	for id, v := range r.views {
		if v.IdleFor(now) > idle {
			expired = append(expired, v)
			delete(r.views, id)
			continue
		}
		held[v.Cart.ID()] = struct{}{}
	}
	r.mu.Unlock()

	for _, v := range expired {
		v.Controller.Close()
	}
	dropped := r.carts.Sweep(now, idle, held)
	if len(expired) > 0 || dropped > 0 {
		r.opts.Logger.Debug("Expired idle views",
			zap.Int("views", len(expired)),
			zap.Int("carts", dropped),
		)
	}
}

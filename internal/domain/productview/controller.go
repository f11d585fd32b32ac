// Package productview implements the state of an open product detail page:
// image choice, variant selection, quantity bounds and the add-to-cart cycle
// with its transient confirmation flag.
//
// Rejected operations (quantity below one, image index out of range, adding
// to cart while out of stock or while a confirmation is showing, any
// operation on a closed view) leave the state unchanged and report false, or
// zero for AddToCart, instead of returning an error.
package productview

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/xenking/mbjj-storefront/internal/domain/cart"
	"github.com/xenking/mbjj-storefront/internal/domain/product"
	"github.com/xenking/mbjj-storefront/internal/domain/variant"
)

// DefaultConfirmationTTL is how long the "added to cart" confirmation stays
// visible when Options.ConfirmationTTL is zero.
const DefaultConfirmationTTL = 3 * time.Second

// Options configures a Controller.
type Options struct {
	// Clock schedules the confirmation auto-clear. Defaults to the real clock.
	Clock clockwork.Clock
	// ConfirmationTTL defaults to DefaultConfirmationTTL.
	ConfirmationTTL time.Duration
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.ConfirmationTTL <= 0 {
		o.ConfirmationTTL = DefaultConfirmationTTL
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// State is a snapshot of a view.
type State struct {
	// RequestedID is the identifier passed to Load.
	RequestedID string
	// Found is false when RequestedID has no catalog entry.
	Found   bool
	Product product.Product
	Sizes   []string
	Colors  []string

	Selection variant.Selection
	// SelectionMatches reports whether Selection is an actual variant. It is
	// informational and never blocks an operation.
	SelectionMatches bool

	ImageIndex   int
	Quantity     int
	Confirmed    bool
	CanAddToCart bool
	Related      []product.Product
	Closed       bool
}

// Controller owns the state of one product view. It is safe for concurrent
// use: requests and the confirmation timer run on different goroutines.
type Controller struct {
	catalog product.Repository
	cart    cart.Adder
	clock   clockwork.Clock
	ttl     time.Duration
	lg      *zap.Logger

	mu          sync.Mutex
	requestedID string
	product     *product.Product
	resolver    *variant.Resolver
	related     []product.Product
	imageIndex  int
	quantity    int
	confirmed   bool
	timer       clockwork.Timer
	cycle       uint64
	closed      bool
	lastActive  time.Time
}

// NewController returns a Controller that reads from catalog and adds to c.
func NewController(catalog product.Repository, c cart.Adder, opts Options) *Controller {
	opts = opts.withDefaults()
	return &Controller{
		catalog:    catalog,
		cart:       c,
		clock:      opts.Clock,
		ttl:        opts.ConfirmationTTL,
		lg:         opts.Logger,
		quantity:   1,
		lastActive: opts.Clock.Now(),
	}
}

// Load looks up id in the catalog and resets the view to it. A missing product
// is not an error: the returned state has Found == false. Other catalog
// failures are returned.
func (c *Controller) Load(ctx context.Context, id string) (State, error) {
	p, err := c.catalog.GetByID(ctx, id)
	if err != nil && !errors.Is(err, product.ErrNotFound) {
		return State{}, errors.Wrapf(err, "get product %s", id)
	}

	var related []product.Product
	if p != nil {
		sameCategory, err := c.catalog.ListByCategory(ctx, p.Category)
		if err != nil {
			return State{}, errors.Wrapf(err, "list category %s", p.Category)
		}
		related = product.Related(sameCategory, *p, product.RelatedLimit)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return c.stateLocked(), nil
	}

	c.stopTimerLocked()
	c.requestedID = id
	c.product = p
	c.related = related
	c.imageIndex = 0
	c.quantity = 1
	c.confirmed = false
	c.resolver = nil
	if p != nil {
		c.resolver = variant.NewResolver(p.Variants)
	}
	c.touchLocked()

	return c.stateLocked(), nil
}

// SetImageIndex selects the active image. Out of range indices are rejected.
func (c *Controller) SetImageIndex(i int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.activeLocked() || i < 0 || i >= len(c.product.Images) {
		c.lg.Debug("Image index rejected", zap.Int("index", i))
		return false
	}
	c.imageIndex = i
	c.touchLocked()
	return true
}

// SetQuantity sets the quantity. Values below 1 are ignored and the previous
// quantity is kept.
func (c *Controller) SetQuantity(q int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.activeLocked() || q < 1 {
		c.lg.Debug("Quantity rejected", zap.Int("quantity", q))
		return false
	}
	c.quantity = q
	c.touchLocked()
	return true
}

// SelectSize merges size into the current selection.
func (c *Controller) SelectSize(size string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.activeLocked() {
		return false
	}
	c.resolver.SelectSize(size)
	c.touchLocked()
	return true
}

// SelectColor merges color into the current selection.
func (c *Controller) SelectColor(color string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.activeLocked() {
		return false
	}
	c.resolver.SelectColor(color)
	c.touchLocked()
	return true
}

// AddToCart adds the current quantity of the product to the cart, raises the
// confirmation flag, resets the quantity to 1 and schedules the flag to clear
// after the confirmation TTL. It returns the quantity added.
//
// It is rejected (0, nil) when the product is out of stock or a confirmation
// is still showing. A cart failure leaves the state unchanged.
func (c *Controller) AddToCart(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.canAddLocked() {
		c.lg.Debug("Add to cart rejected",
			zap.String("product_id", c.requestedID),
			zap.Bool("confirmed", c.confirmed),
		)
		return 0, nil
	}

	added := c.quantity
	if err := c.cart.Add(ctx, *c.product, added); err != nil {
		return 0, errors.Wrap(err, "add to cart")
	}

	c.confirmed = true
	c.quantity = 1
	c.scheduleClearLocked()
	c.touchLocked()
	return added, nil
}

// Close tears the view down and cancels a pending confirmation clear. Every
// later operation is rejected. Close is idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	c.stopTimerLocked()
}

// State returns a snapshot of the view.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Visit returns a snapshot of the view and counts as activity, so a view that
// is only being read is not expired as idle.
func (c *Controller) Visit() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.touchLocked()
	}
	return c.stateLocked()
}

// IdleFor reports how long the view has gone without a successful operation
// or a Visit.
func (c *Controller) IdleFor(now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return now.Sub(c.lastActive)
}

func (c *Controller) activeLocked() bool {
	return !c.closed && c.product != nil
}

func (c *Controller) canAddLocked() bool {
	return c.activeLocked() && c.product.InStock && !c.confirmed
}

// scheduleClearLocked starts a new confirmation cycle, cancelling the clear
// of the previous one.
func (c *Controller) scheduleClearLocked() {
	c.stopTimerLocked()
	cycle := c.cycle
	c.timer = c.clock.AfterFunc(c.ttl, func() {
		c.clearConfirmation(cycle)
	})
}

func (c *Controller) clearConfirmation(cycle uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// A stopped timer may still fire if it raced with Stop; the cycle check
	// discards such stale callbacks.
	if c.closed || cycle != c.cycle {
		return
	}
	c.confirmed = false
	c.timer = nil
}

// stopTimerLocked cancels the pending clear and invalidates its cycle.
func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.cycle++
}

func (c *Controller) touchLocked() {
	c.lastActive = c.clock.Now()
}

func (c *Controller) stateLocked() State {
	s := State{
		RequestedID: c.requestedID,
		Found:       c.product != nil,
		ImageIndex:  c.imageIndex,
		Quantity:    c.quantity,
		Confirmed:   c.confirmed,
		Closed:      c.closed,
	}
	if c.product == nil {
		return s
	}

	s.Product = c.product.Clone()
	s.Sizes = c.resolver.AvailableSizes()
	s.Colors = c.resolver.AvailableColors()
	s.Selection = c.resolver.Selection()
	s.SelectionMatches = c.resolver.Matches()
	s.Related = make([]product.Product, len(c.related))
	for i, p := range c.related {
		s.Related[i] = p.Clone()
	}
	s.CanAddToCart = c.canAddLocked()
	return s
}

package console

import (
	"context"
	"slices"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/hungrypanda/internal/domain/apperr"
	"github.com/xenking/hungrypanda/internal/domain/order"
)

// ErrNothingSelected is returned by BulkUpdate with an empty selection.
var ErrNothingSelected = &apperr.ValidationError{Field: "ids", Message: "no orders selected"}

// Backend is the authoritative order store the console reconciles against.
// *order.Service satisfies it.
type Backend interface {
	List(ctx context.Context, f order.Filter) ([]order.Order, error)
	Transition(ctx context.Context, id string, to order.Status) (*order.Order, error)
}

// Result reports the outcome of a single status update.
type Result struct {
	OrderID string
	// Order is the updated order on success.
	Order *order.Order
	Err   error
	// Reverted is set when an optimistic local change was rolled back.
	Reverted bool
}

// OK reports whether the update was applied.
func (r Result) OK() bool { return r.Err == nil }

// BulkResult reports the outcome of BulkUpdate.
//
// Ids are processed in selection order and processing stops at the first
// failure: Applied holds the ids committed before it, Failed the failing
// update, and Skipped the ids never attempted.
type BulkResult struct {
	Applied []string
	Failed  *Result
	Skipped []string
}

// Console is an admin's working copy of the order list.
type Console struct {
	backend  Backend
	orders   []order.Order
	selected []string
}

// New creates an empty console over backend. Call Load before use.
func New(backend Backend) *Console {
	return &Console{backend: backend}
}

// Load replaces the local list with the authoritative one and drops
// selections of orders that no longer exist.
func (c *Console) Load(ctx context.Context) error {
	orders, err := c.backend.List(ctx, order.Filter{})
	if err != nil {
		return errors.Wrap(err, "load orders")
	}
	c.orders = orders
	c.selected = slices.DeleteFunc(c.selected, func(id string) bool {
		return c.index(id) < 0
	})
	return nil
}

// Orders returns a copy of the local list.
func (c *Console) Orders() []order.Order {
	return slices.Clone(c.orders)
}

// View returns the local list filtered and sorted by q.
func (c *Console) View(q Query) []order.Order {
	return q.Apply(c.orders)
}

// Order returns the local copy of an order.
func (c *Console) Order(id string) (order.Order, bool) {
	i := c.index(id)
	if i < 0 {
		return order.Order{}, false
	}
	return c.orders[i], true
}

// UpdateStatus changes one order's status. The local copy is updated before
// the backend is called; if the backend rejects the change the list is
// reloaded so the local state matches the store again.
func (c *Console) UpdateStatus(ctx context.Context, id string, to order.Status) Result {
	i := c.index(id)
	if i < 0 {
		return Result{OrderID: id, Err: apperr.NotFound("order", id)}
	}
	prev := c.orders[i]
	if !prev.Status.CanTransitionTo(to) {
		return Result{OrderID: id, Err: &order.InvalidTransitionError{From: prev.Status, To: to}}
	}

	c.orders[i].Status = to

	updated, err := c.backend.Transition(ctx, id, to)
	if err != nil {
		c.reconcile(ctx, prev)
		return Result{OrderID: id, Err: err, Reverted: true}
	}
	if j := c.index(id); j >= 0 {
		c.orders[j] = *updated
	}
	return Result{OrderID: id, Order: updated}
}

// BulkUpdate moves every selected order to status to, stopping at the first
// failure. Successful updates stay committed. After a failure the list is
// reloaded and the failed and skipped ids remain selected; on full success
// the selection is cleared.
func (c *Console) BulkUpdate(ctx context.Context, to order.Status) (BulkResult, error) {
	if len(c.selected) == 0 {
		return BulkResult{}, ErrNothingSelected
	}

	ids := slices.Clone(c.selected)
	var res BulkResult
	for n, id := range ids {
		r := c.UpdateStatus(ctx, id, to)
		if !r.OK() {
			res.Failed = &r
			res.Skipped = slices.Clone(ids[n+1:])
			break
		}
		res.Applied = append(res.Applied, id)
	}

	if res.Failed == nil {
		c.selected = nil
	} else {
		c.selected = slices.DeleteFunc(c.selected, func(id string) bool {
			return slices.Contains(res.Applied, id)
		})
		// Local validation failures skip UpdateStatus's reconcile.
		if !res.Failed.Reverted {
			if err := c.Load(ctx); err != nil {
				zctx.From(ctx).Warn("Reload orders after bulk failure", zap.Error(err))
			}
		}
	}

	zctx.From(ctx).Info("Bulk status update",
		zap.Stringer("to", to),
		zap.Int("applied", len(res.Applied)),
		zap.Int("skipped", len(res.Skipped)),
		zap.Bool("failed", res.Failed != nil),
	)
	return res, nil
}

// Select adds id to the selection. Unknown and already selected ids are
// ignored.
func (c *Console) Select(id string) {
	if c.index(id) < 0 || c.IsSelected(id) {
		return
	}
	c.selected = append(c.selected, id)
}

// Deselect removes id from the selection.
func (c *Console) Deselect(id string) {
	c.selected = slices.DeleteFunc(c.selected, func(s string) bool { return s == id })
}

// Toggle flips the selection state of id.
func (c *Console) Toggle(id string) {
	if c.IsSelected(id) {
		c.Deselect(id)
		return
	}
	c.Select(id)
}

// SelectAll selects every order in visible, in its order. If all of them
// are already selected, it clears them instead.
func (c *Console) SelectAll(visible []order.Order) {
	all := len(visible) > 0
	for i := range visible {
		if !c.IsSelected(visible[i].ID) {
			all = false
			break
		}
	}
	if all {
		for i := range visible {
			c.Deselect(visible[i].ID)
		}
		return
	}
	for i := range visible {
		c.Select(visible[i].ID)
	}
}

// ClearSelection empties the selection.
func (c *Console) ClearSelection() {
	c.selected = nil
}

// IsSelected reports whether id is selected.
func (c *Console) IsSelected(id string) bool {
	return slices.Contains(c.selected, id)
}

// Selected returns the selected ids in selection order.
func (c *Console) Selected() []string {
	return slices.Clone(c.selected)
}

// SelectedView returns the selected orders that pass q, in view order. It
// is what an export of the current selection contains.
func (c *Console) SelectedView(q Query) []order.Order {
	return slices.DeleteFunc(c.View(q), func(o order.Order) bool {
		return !c.IsSelected(o.ID)
	})
}

// reconcile reloads the authoritative list. If that fails too, the single
// optimistic change is undone from prev.
func (c *Console) reconcile(ctx context.Context, prev order.Order) {
	if err := c.Load(ctx); err != nil {
		zctx.From(ctx).Warn("Reload orders after failed update",
			zap.String("order_id", prev.ID),
			zap.Error(err),
		)
		if i := c.index(prev.ID); i >= 0 {
			c.orders[i] = prev
		}
	}
}

func (c *Console) index(id string) int {
	return slices.IndexFunc(c.orders, func(o order.Order) bool { return o.ID == id })
}

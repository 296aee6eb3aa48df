package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/hungrypanda/internal/domain/apperr"
	"github.com/xenking/hungrypanda/internal/domain/auth"
	"github.com/xenking/hungrypanda/internal/domain/catalog"
	"github.com/xenking/hungrypanda/internal/domain/pricing"
)

// ErrEmptyItems is returned when an order request has no lines.
var ErrEmptyItems = &apperr.ValidationError{Field: "items", Message: "order must contain at least one item"}

// LineRequest is a requested (menu item, quantity) pair. Prices are never
// accepted from the caller.
type LineRequest struct {
	MenuItemID string
	Quantity   int
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	Items           []LineRequest
	DeliveryAddress string
	PaymentMethod   string
}

// MenuResolver batch-loads menu items. Unknown ids are simply absent from
// the result.
type MenuResolver interface {
	GetMenuItems(ctx context.Context, ids []string) ([]catalog.MenuItem, error)
}

// Service encapsulates order placement and lifecycle management.
type Service struct {
	menu   MenuResolver
	orders Repository
	events Publisher

	created     metric.Int64Counter
	transitions metric.Int64Counter

	now   func() time.Time
	newID func() string
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	menu MenuResolver,
	orders Repository,
	events Publisher,
	meter metric.Meter,
) (*Service, error) {
	created, err := meter.Int64Counter("orders.created",
		metric.WithDescription("Number of orders placed"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "orders.created counter")
	}
	transitions, err := meter.Int64Counter("orders.transitions",
		metric.WithDescription("Number of order status transitions"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "orders.transitions counter")
	}
	if events == nil {
		events = NopPublisher{}
	}
	return &Service{
		menu:        menu,
		orders:      orders,
		events:      events,
		created:     created,
		transitions: transitions,
		now:         time.Now,
		newID:       uuid.NewString,
	}, nil
}

// PlaceOrder validates the request, resolves all menu items in one batch,
// freezes their current prices, persists the order as PENDING, and returns
// it. Nothing is written unless every line resolves.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	caller, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	address := strings.TrimSpace(req.DeliveryAddress)
	if address == "" {
		return nil, apperr.Invalid("deliveryAddress", "delivery address is required")
	}
	if req.PaymentMethod == "" {
		return nil, apperr.Invalid("paymentMethod", "payment method is required")
	}
	method, err := ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, apperr.Invalid("paymentMethod", err.Error())
	}

	// Merge repeated menu items, keeping first-seen order.
	var (
		ids        []string
		quantities = make(map[string]int, len(req.Items))
	)
	for _, line := range req.Items {
		if line.MenuItemID == "" {
			return nil, apperr.Invalid("menuItemId", "menu item is required")
		}
		if line.Quantity <= 0 {
			return nil, apperr.Invalid("quantity", fmt.Sprintf("quantity must be greater than 0 for menu item %s", line.MenuItemID))
		}
		merged, seen := quantities[line.MenuItemID]
		if !seen {
			ids = append(ids, line.MenuItemID)
		}
		if line.Quantity > pricing.MaxQuantity-merged {
			return nil, apperr.Invalid("quantity", fmt.Sprintf("quantity must not exceed %d for menu item %s", pricing.MaxQuantity, line.MenuItemID))
		}
		quantities[line.MenuItemID] = merged + line.Quantity
	}

	// Batch fetch all menu items in a single query.
	fetched, err := s.menu.GetMenuItems(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get menu items")
	}
	byID := make(map[string]catalog.MenuItem, len(fetched))
	for _, m := range fetched {
		byID[m.ID] = m
	}

	items := make([]Item, 0, len(ids))
	lines := make([]pricing.Line, 0, len(ids))
	for _, id := range ids {
		m, ok := byID[id]
		if !ok {
			return nil, apperr.NotFound("menu item", id)
		}
		it := Item{
			ID:         s.newID(),
			MenuItemID: m.ID,
			Name:       m.Name,
			Quantity:   quantities[id],
			Price:      m.Price,
		}
		items = append(items, it)
		lines = append(lines, pricing.Line{Price: it.Price, Quantity: it.Quantity})
	}

	now := s.now().UTC()
	o := &Order{
		ID:              s.newID(),
		UserID:          caller.UserID,
		Items:           items,
		Status:          StatusPending,
		TotalAmount:     pricing.Total(lines),
		DeliveryAddress: address,
		PaymentMethod:   method,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	s.created.Add(ctx, 1, metric.WithAttributes(attribute.String("payment_method", string(method))))
	zctx.From(ctx).Info("Order placed",
		zap.String("order_id", o.ID),
		zap.String("user_id", o.UserID),
		zap.String("total", pricing.String(o.TotalAmount)),
	)
	s.publish(ctx, Event{Type: EventCreated, Order: o, OccurredAt: now})

	return o, nil
}

// Get returns an order visible to the caller: its owner or an admin.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	caller, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}
	if !caller.CanAccess(o.UserID) {
		return nil, apperr.ErrForbidden
	}
	return o, nil
}

// List returns orders newest first. Customers only ever see their own
// orders; admins see all orders or those of f.UserID.
func (s *Service) List(ctx context.Context, f Filter) ([]Order, error) {
	caller, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin {
		f.UserID = caller.UserID
	}
	orders, err := s.orders.List(ctx, f)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// Transition moves an order to status to. Admin only. Illegal edges,
// including self-transitions, fail with *InvalidTransitionError and persist
// nothing. Concurrent transitions of one order are last-write-wins.
func (s *Service) Transition(ctx context.Context, id string, to Status) (*Order, error) {
	if _, err := auth.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	if !to.Valid() {
		return nil, apperr.Invalid("status", fmt.Sprintf("unknown status %s", to))
	}

	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}
	from := o.Status
	now := s.now().UTC()
	if err := o.Transition(to, now); err != nil {
		return nil, err
	}
	if err := s.orders.UpdateStatus(ctx, o.ID, o.Status, o.UpdatedAt); err != nil {
		return nil, errors.Wrap(err, "update order status")
	}

	s.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from.String()),
		attribute.String("to", to.String()),
	))
	zctx.From(ctx).Info("Order status changed",
		zap.String("order_id", o.ID),
		zap.Stringer("from", from),
		zap.Stringer("to", to),
	)
	s.publish(ctx, Event{Type: EventStatusChanged, Order: o, Previous: from, OccurredAt: now})

	return o, nil
}

func (s *Service) publish(ctx context.Context, ev Event) {
	if err := s.events.Publish(ctx, ev); err != nil {
		zctx.From(ctx).Warn("Publish order event",
			zap.String("type", string(ev.Type)),
			zap.String("order_id", ev.Order.ID),
			zap.Error(err),
		)
	}
}

package console

import (
	"context"

	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/hungrypanda/internal/domain/order"
)

// RecentOrdersLimit is how many orders the dashboard lists.
const RecentOrdersLimit = 5

// StatsSource provides the aggregate counts behind the dashboard.
type StatsSource interface {
	CountOrders(ctx context.Context) (int, error)
	CountRestaurants(ctx context.Context) (int, error)
	CountMenuItems(ctx context.Context) (int, error)
	CountOrdersByStatus(ctx context.Context) (map[order.Status]int, error)
	RecentOrders(ctx context.Context, limit int) ([]order.Order, error)
}

// Stats is the admin dashboard summary.
type Stats struct {
	TotalOrders      int
	TotalRestaurants int
	TotalMenuItems   int
	OrdersByStatus   map[order.Status]int
	RecentOrders     []order.Order
}

// Dashboard gathers Stats, querying src concurrently.
func Dashboard(ctx context.Context, src StatsSource) (*Stats, error) {
	var s Stats
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		s.TotalOrders, err = src.CountOrders(ctx)
		return errors.Wrap(err, "count orders")
	})
	g.Go(func() (err error) {
		s.TotalRestaurants, err = src.CountRestaurants(ctx)
		return errors.Wrap(err, "count restaurants")
	})
	g.Go(func() (err error) {
		s.TotalMenuItems, err = src.CountMenuItems(ctx)
		return errors.Wrap(err, "count menu items")
	})
	g.Go(func() (err error) {
		s.OrdersByStatus, err = src.CountOrdersByStatus(ctx)
		return errors.Wrap(err, "count orders by status")
	})
	g.Go(func() (err error) {
		s.RecentOrders, err = src.RecentOrders(ctx, RecentOrdersLimit)
		return errors.Wrap(err, "recent orders")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &s, nil
}

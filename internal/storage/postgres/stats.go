package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/hungrypanda/internal/domain/apperr"
	"github.com/xenking/hungrypanda/internal/domain/console"
	"github.com/xenking/hungrypanda/internal/domain/order"
)

const (
	countOrdersSQL         = `SELECT count(*) FROM orders`
	countRestaurantsSQL    = `SELECT count(*) FROM restaurants`
	countMenuItemsSQL      = `SELECT count(*) FROM menu_items`
	countOrdersByStatusSQL = `SELECT status, count(*) FROM orders GROUP BY status`
)

var _ console.StatsSource = (*StatsRepository)(nil)

// StatsRepository answers the admin dashboard queries.
type StatsRepository struct {
	pool   *pgxpool.Pool
	orders *OrderRepository
}

// NewStatsRepository returns a StatsRepository that uses the given pool.
func NewStatsRepository(pool *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{pool: pool, orders: NewOrderRepository(pool)}
}

func (r *StatsRepository) CountOrders(ctx context.Context) (int, error) {
	return r.count(ctx, "orders", countOrdersSQL)
}

func (r *StatsRepository) CountRestaurants(ctx context.Context) (int, error) {
	return r.count(ctx, "restaurants", countRestaurantsSQL)
}

func (r *StatsRepository) CountMenuItems(ctx context.Context) (int, error) {
	return r.count(ctx, "menu items", countMenuItemsSQL)
}

func (r *StatsRepository) CountOrdersByStatus(ctx context.Context) (map[order.Status]int, error) {
	rows, err := r.pool.Query(ctx, countOrdersByStatusSQL)
	if err != nil {
		return nil, apperr.Transient("count orders by status", err)
	}
	out := make(map[order.Status]int, len(order.Statuses))
	var (
		status string
		n      int
	)
	_, err = pgx.ForEachRow(rows, []any{&status, &n}, func() error {
		s, err := order.ParseStatus(status)
		if err != nil {
			return err
		}
		out[s] = n
		return nil
	})
	if err != nil {
		return nil, apperr.Transient("count orders by status", err)
	}
	return out, nil
}

func (r *StatsRepository) RecentOrders(ctx context.Context, limit int) ([]order.Order, error) {
	return r.orders.List(ctx, order.Filter{Limit: limit})
}

func (r *StatsRepository) count(ctx context.Context, what, sql string) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, sql).Scan(&n); err != nil {
		return 0, apperr.Transient("count "+what, err)
	}
	return n, nil
}

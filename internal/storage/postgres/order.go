package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/hungrypanda/internal/domain/apperr"
	"github.com/xenking/hungrypanda/internal/domain/order"
)

const (
	orderColumns = `id, user_id, status, total_amount, delivery_address, payment_method, created_at, updated_at`

	insertOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listOrdersSQL = `SELECT ` + orderColumns + `
		FROM orders
		WHERE ($1 = '' OR user_id = $1)
		  AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC, id
		LIMIT NULLIF($3, 0)`

	// Display names are resolved at read time; menu items referenced by an
	// order cannot be deleted, so the join always matches.
	listOrderItemsSQL = `SELECT oi.order_id, oi.id, oi.menu_item_id, mi.name, oi.quantity, oi.price
		FROM order_items oi
		JOIN menu_items mi ON mi.id = oi.menu_item_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.order_id, oi.line_no, oi.id`

	updateOrderStatusSQL = `UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order and all its items in one transaction.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertOrderSQL,
			o.ID, o.UserID, o.Status.String(), o.TotalAmount, o.DeliveryAddress, string(o.PaymentMethod),
			o.CreatedAt, o.UpdatedAt,
		); err != nil {
			return errors.Wrapf(err, "insert order %s", o.ID)
		}

		rows := make([][]any, len(o.Items))
		for i, it := range o.Items {
			rows[i] = []any{it.ID, o.ID, int32(i), it.MenuItemID, it.Quantity, it.Price}
		}
		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"order_items"},
			[]string{"id", "order_id", "line_no", "menu_item_id", "quantity", "price"},
			pgx.CopyFromRows(rows),
		); err != nil {
			return errors.Wrapf(err, "insert items of order %s", o.ID)
		}
		return nil
	})
	if err != nil {
		return apperr.Transient("create order", err)
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, apperr.Transient("get order", err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		return nil, lookupError(err, "order", id)
	}

	orders := []order.Order{o}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// List returns orders newest first, each with its items.
func (r *OrderRepository) List(ctx context.Context, f order.Filter) ([]order.Order, error) {
	var status string
	if f.Status.Valid() {
		status = f.Status.String()
	}
	rows, err := r.pool.Query(ctx, listOrdersSQL, f.UserID, status, f.Limit)
	if err != nil {
		return nil, apperr.Transient("list orders", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, apperr.Transient("list orders", err)
	}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateStatus overwrites the status. Concurrent writers are last-write-wins.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status order.Status, updatedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, status.String(), updatedAt)
	if err != nil {
		return apperr.Transient("update order status", err)
	}
	return expectOne(tag, "order", id)
}

// attachItems loads the items of all orders in a single query.
func (r *OrderRepository) attachItems(ctx context.Context, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	rows, err := r.pool.Query(ctx, listOrderItemsSQL, ids)
	if err != nil {
		return apperr.Transient("list order items", err)
	}
	var (
		orderID string
		it      order.Item
	)
	_, err = pgx.ForEachRow(rows, []any{&orderID, &it.ID, &it.MenuItemID, &it.Name, &it.Quantity, &it.Price}, func() error {
		i := index[orderID]
		orders[i].Items = append(orders[i].Items, it)
		return nil
	})
	if err != nil {
		return apperr.Transient("list order items", err)
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o       order.Order
		status  string
		payment string
	)
	if err := row.Scan(
		&o.ID, &o.UserID, &status, &o.TotalAmount, &o.DeliveryAddress, &payment,
		&o.CreatedAt, &o.UpdatedAt,
	); err != nil {
		return o, err
	}
	s, err := order.ParseStatus(status)
	if err != nil {
		return o, errors.Wrapf(err, "order %s", o.ID)
	}
	o.Status = s
	o.PaymentMethod = order.PaymentMethod(payment)
	return o, nil
}

package handler

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/xenking/hungrypanda/internal/domain/apperr"
	"github.com/xenking/hungrypanda/internal/domain/auth"
	"github.com/xenking/hungrypanda/internal/domain/cart"
	"github.com/xenking/hungrypanda/internal/domain/catalog"
	"github.com/xenking/hungrypanda/internal/domain/order"
)

// memCatalog is an in-memory catalog.Repository.
type memCatalog struct {
	mu          sync.Mutex
	restaurants map[string]catalog.Restaurant
	items       map[string]catalog.MenuItem
	// referenced reports whether an order uses a menu item.
	referenced func(menuItemID string) bool
}

func newMemCatalog() *memCatalog {
	return &memCatalog{
		restaurants: map[string]catalog.Restaurant{},
		items:       map[string]catalog.MenuItem{},
		referenced:  func(string) bool { return false },
	}
}

func (m *memCatalog) ListRestaurants(_ context.Context, search string) ([]catalog.Restaurant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []catalog.Restaurant
	for _, r := range m.restaurants {
		if search == "" || strings.Contains(strings.ToLower(r.Name+" "+r.Address+" "+r.Description), strings.ToLower(search)) {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b catalog.Restaurant) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (m *memCatalog) GetRestaurant(_ context.Context, id string) (*catalog.Restaurant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.restaurants[id]
	if !ok {
		return nil, apperr.NotFound("restaurant", id)
	}
	return &r, nil
}

func (m *memCatalog) CreateRestaurant(_ context.Context, r *catalog.Restaurant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restaurants[r.ID] = *r
	return nil
}

func (m *memCatalog) UpdateRestaurant(_ context.Context, r *catalog.Restaurant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.restaurants[r.ID]; !ok {
		return apperr.NotFound("restaurant", r.ID)
	}
	m.restaurants[r.ID] = *r
	return nil
}

func (m *memCatalog) DeleteRestaurant(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.restaurants[id]; !ok {
		return apperr.NotFound("restaurant", id)
	}
	for _, it := range m.items {
		if it.RestaurantID == id && m.referenced(it.ID) {
			return &apperr.ReferentialError{Entity: "restaurant", ID: id}
		}
	}
	delete(m.restaurants, id)
	return nil
}

func (m *memCatalog) ListMenuItems(_ context.Context, f catalog.MenuFilter) ([]catalog.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []catalog.MenuItem
	for _, it := range m.items {
		if f.RestaurantID != "" && it.RestaurantID != f.RestaurantID {
			continue
		}
		if f.Category != "" && it.Category != f.Category {
			continue
		}
		out = append(out, it)
	}
	slices.SortFunc(out, func(a, b catalog.MenuItem) int { return strings.Compare(a.Name, b.Name) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memCatalog) ListCategories(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, it := range m.items {
		if !slices.Contains(out, it.Category) {
			out = append(out, it.Category)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (m *memCatalog) GetMenuItem(_ context.Context, id string) (*catalog.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound("menu item", id)
	}
	return &it, nil
}

func (m *memCatalog) GetMenuItems(_ context.Context, ids []string) ([]catalog.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []catalog.MenuItem
	for _, id := range ids {
		if it, ok := m.items[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memCatalog) CreateMenuItem(_ context.Context, it *catalog.MenuItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[it.ID] = *it
	return nil
}

func (m *memCatalog) UpdateMenuItem(_ context.Context, it *catalog.MenuItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[it.ID]; !ok {
		return apperr.NotFound("menu item", it.ID)
	}
	m.items[it.ID] = *it
	return nil
}

func (m *memCatalog) DeleteMenuItem(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return apperr.NotFound("menu item", id)
	}
	if m.referenced(id) {
		return &apperr.ReferentialError{Entity: "menu item", ID: id}
	}
	delete(m.items, id)
	return nil
}

// memOrders is an in-memory order.Repository.
type memOrders struct {
	mu     sync.Mutex
	orders []order.Order
}

func (m *memOrders) Create(_ context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append(m.orders, *o)
	return nil
}

func (m *memOrders) Get(_ context.Context, id string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ID == id {
			return &o, nil
		}
	}
	return nil, apperr.NotFound("order", id)
}

func (m *memOrders) List(_ context.Context, f order.Filter) ([]order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []order.Order
	for _, o := range m.orders {
		if f.UserID != "" && o.UserID != f.UserID {
			continue
		}
		if f.Status.Valid() && o.Status != f.Status {
			continue
		}
		out = append(out, o)
	}
	slices.SortStableFunc(out, func(a, b order.Order) int { return b.CreatedAt.Compare(a.CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memOrders) UpdateStatus(_ context.Context, id string, status order.Status, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.orders {
		if m.orders[i].ID == id {
			m.orders[i].Status = status
			m.orders[i].UpdatedAt = updatedAt
			return nil
		}
	}
	return apperr.NotFound("order", id)
}

func (m *memOrders) references(menuItemID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		for _, it := range o.Items {
			if it.MenuItemID == menuItemID {
				return true
			}
		}
	}
	return false
}

// memCarts is an in-memory cart.Store.
type memCarts struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memCarts) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	if !ok {
		return nil, cart.ErrNoSnapshot
	}
	return b, nil
}

func (m *memCarts) Update(_ context.Context, key string, fn func([]byte) ([]byte, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next, err := fn(m.data[key])
	if err != nil {
		return err
	}
	if next == nil {
		delete(m.data, key)
		return nil
	}
	m.data[key] = next
	return nil
}

func (m *memCarts) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// memKeys is an in-memory auth.Repository keyed by hash.
type memKeys map[string]auth.APIKeyInfo

func (m memKeys) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	info, ok := m[hash]
	if !ok {
		return nil, apperr.NotFound("api key", "")
	}
	return &info, nil
}

// statsFromOrders answers dashboard queries from the fakes.
type statsFromOrders struct {
	catalog *memCatalog
	orders  *memOrders
}

func (s statsFromOrders) CountOrders(ctx context.Context) (int, error) {
	all, _ := s.orders.List(ctx, order.Filter{})
	return len(all), nil
}

func (s statsFromOrders) CountRestaurants(ctx context.Context) (int, error) {
	all, _ := s.catalog.ListRestaurants(ctx, "")
	return len(all), nil
}

func (s statsFromOrders) CountMenuItems(ctx context.Context) (int, error) {
	all, _ := s.catalog.ListMenuItems(ctx, catalog.MenuFilter{})
	return len(all), nil
}

func (s statsFromOrders) CountOrdersByStatus(ctx context.Context) (map[order.Status]int, error) {
	all, _ := s.orders.List(ctx, order.Filter{})
	out := map[order.Status]int{}
	for _, o := range all {
		out[o.Status]++
	}
	return out, nil
}

func (s statsFromOrders) RecentOrders(ctx context.Context, limit int) ([]order.Order, error) {
	return s.orders.List(ctx, order.Filter{Limit: limit})
}

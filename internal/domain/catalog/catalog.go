// Package catalog holds restaurants and their menu items.
package catalog

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Restaurant is a venue that owns zero or more menu items.
type Restaurant struct {
	ID          string
	Name        string
	Address     string
	Description string
	Cuisine     string
	Phone       string
	ImageURL    string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Menu is populated only by lookups that ask for it.
	Menu []MenuItem
}

// MenuItem is a priced dish offered by a restaurant.
type MenuItem struct {
	ID           string
	Name         string
	Description  string
	Price        decimal.Decimal
	Category     string
	RestaurantID string
	ImageURL     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MenuFilter narrows menu item listings. Zero fields match everything.
type MenuFilter struct {
	RestaurantID string
	Category     string
	Search       string
	Limit        int
}

// Repository defines persistence operations for the catalog.
//
// Lookups of a single entity return *apperr.NotFoundError when it does not
// exist; deletes return *apperr.ReferentialError when historical orders still
// reference the entity.
type Repository interface {
	ListRestaurants(ctx context.Context, search string) ([]Restaurant, error)
	GetRestaurant(ctx context.Context, id string) (*Restaurant, error)
	CreateRestaurant(ctx context.Context, r *Restaurant) error
	UpdateRestaurant(ctx context.Context, r *Restaurant) error
	DeleteRestaurant(ctx context.Context, id string) error

	ListMenuItems(ctx context.Context, filter MenuFilter) ([]MenuItem, error)
	ListCategories(ctx context.Context) ([]string, error)
	GetMenuItem(ctx context.Context, id string) (*MenuItem, error)
	GetMenuItems(ctx context.Context, ids []string) ([]MenuItem, error)
	CreateMenuItem(ctx context.Context, m *MenuItem) error
	UpdateMenuItem(ctx context.Context, m *MenuItem) error
	DeleteMenuItem(ctx context.Context, id string) error
}

package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/hungrypanda/internal/domain/apperr"
	"github.com/xenking/hungrypanda/internal/domain/auth"
)

// Service implements catalog browsing for everyone and catalog management
// for administrators.
type Service struct {
	repo  Repository
	now   func() time.Time
	newID func() string
}

// NewService creates a catalog Service backed by repo.
func NewService(repo Repository) *Service {
	return &Service{
		repo:  repo,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// ListRestaurants returns restaurants ordered by name, optionally narrowed by
// a case-insensitive search over name, address, and description.
func (s *Service) ListRestaurants(ctx context.Context, search string) ([]Restaurant, error) {
	restaurants, err := s.repo.ListRestaurants(ctx, strings.TrimSpace(search))
	if err != nil {
		return nil, errors.Wrap(err, "list restaurants")
	}
	return restaurants, nil
}

// GetRestaurant returns a restaurant together with its menu.
func (s *Service) GetRestaurant(ctx context.Context, id string) (*Restaurant, error) {
	r, err := s.repo.GetRestaurant(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get restaurant")
	}
	menu, err := s.repo.ListMenuItems(ctx, MenuFilter{RestaurantID: id})
	if err != nil {
		return nil, errors.Wrap(err, "list menu")
	}
	r.Menu = menu
	return r, nil
}

// ListMenuItems returns menu items matching filter.
func (s *Service) ListMenuItems(ctx context.Context, filter MenuFilter) ([]MenuItem, error) {
	items, err := s.repo.ListMenuItems(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "list menu items")
	}
	return items, nil
}

// Categories returns the distinct menu categories.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list categories")
	}
	return categories, nil
}

// GetMenuItem returns a single menu item.
func (s *Service) GetMenuItem(ctx context.Context, id string) (*MenuItem, error) {
	m, err := s.repo.GetMenuItem(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get menu item")
	}
	return m, nil
}

// CreateRestaurant validates and stores a new restaurant. Admin only.
func (s *Service) CreateRestaurant(ctx context.Context, in RestaurantInput) (*Restaurant, error) {
	if _, err := auth.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	r := &Restaurant{ID: s.newID(), CreatedAt: now}
	applyRestaurantInput(r, in, now)
	if err := s.repo.CreateRestaurant(ctx, r); err != nil {
		return nil, errors.Wrap(err, "create restaurant")
	}
	return r, nil
}

// UpdateRestaurant validates and overwrites an existing restaurant. Admin only.
func (s *Service) UpdateRestaurant(ctx context.Context, id string, in RestaurantInput) (*Restaurant, error) {
	if _, err := auth.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	r, err := s.repo.GetRestaurant(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get restaurant")
	}
	applyRestaurantInput(r, in, s.now().UTC())
	if err := s.repo.UpdateRestaurant(ctx, r); err != nil {
		return nil, errors.Wrap(err, "update restaurant")
	}
	return r, nil
}

// DeleteRestaurant removes a restaurant and its menu. It fails with
// *apperr.ReferentialError when any of its items appear in past orders.
func (s *Service) DeleteRestaurant(ctx context.Context, id string) error {
	if _, err := auth.RequireAdmin(ctx); err != nil {
		return err
	}
	if err := s.repo.DeleteRestaurant(ctx, id); err != nil {
		return errors.Wrap(err, "delete restaurant")
	}
	return nil
}

// CreateMenuItem validates and stores a new menu item. Admin only.
func (s *Service) CreateMenuItem(ctx context.Context, in MenuItemInput) (*MenuItem, error) {
	if _, err := auth.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := s.validateMenuItem(ctx, &in); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	m := &MenuItem{ID: s.newID(), CreatedAt: now}
	applyMenuItemInput(m, in, now)
	if err := s.repo.CreateMenuItem(ctx, m); err != nil {
		return nil, errors.Wrap(err, "create menu item")
	}
	return m, nil
}

// UpdateMenuItem validates and overwrites an existing menu item. Admin only.
// Orders placed earlier keep the price frozen at their creation time.
func (s *Service) UpdateMenuItem(ctx context.Context, id string, in MenuItemInput) (*MenuItem, error) {
	if _, err := auth.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := s.validateMenuItem(ctx, &in); err != nil {
		return nil, err
	}

	m, err := s.repo.GetMenuItem(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get menu item")
	}
	applyMenuItemInput(m, in, s.now().UTC())
	if err := s.repo.UpdateMenuItem(ctx, m); err != nil {
		return nil, errors.Wrap(err, "update menu item")
	}
	return m, nil
}

// DeleteMenuItem removes a menu item that no order references. Admin only.
func (s *Service) DeleteMenuItem(ctx context.Context, id string) error {
	if _, err := auth.RequireAdmin(ctx); err != nil {
		return err
	}
	if err := s.repo.DeleteMenuItem(ctx, id); err != nil {
		return errors.Wrap(err, "delete menu item")
	}
	return nil
}

func (s *Service) validateMenuItem(ctx context.Context, in *MenuItemInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	if _, err := s.repo.GetRestaurant(ctx, in.RestaurantID); err != nil {
		if apperr.IsNotFound(err) {
			return apperr.Invalid("restaurantId", "restaurant does not exist")
		}
		return errors.Wrap(err, "get restaurant")
	}
	return nil
}

func applyRestaurantInput(r *Restaurant, in RestaurantInput, now time.Time) {
	r.Name = in.Name
	r.Address = in.Address
	r.Description = in.Description
	r.Cuisine = in.Cuisine
	r.Phone = in.Phone
	r.ImageURL = in.ImageURL
	r.UpdatedAt = now
}

func applyMenuItemInput(m *MenuItem, in MenuItemInput, now time.Time) {
	m.Name = in.Name
	m.Description = in.Description
	m.Price = in.Price.Round(2)
	m.Category = in.Category
	m.RestaurantID = in.RestaurantID
	m.ImageURL = in.ImageURL
	m.UpdatedAt = now
}

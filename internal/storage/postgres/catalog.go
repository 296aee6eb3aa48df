package postgres

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/hungrypanda/internal/domain/apperr"
	"github.com/xenking/hungrypanda/internal/domain/catalog"
)

const (
	restaurantColumns = `id, name, address, description, cuisine, phone, image_url, created_at, updated_at`

	listRestaurantsSQL = `SELECT ` + restaurantColumns + `
		FROM restaurants
		WHERE $1 = '' OR name ILIKE $1 OR address ILIKE $1 OR description ILIKE $1
		ORDER BY name, id`

	getRestaurantSQL = `SELECT ` + restaurantColumns + ` FROM restaurants WHERE id = $1`

	insertRestaurantSQL = `INSERT INTO restaurants (` + restaurantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	updateRestaurantSQL = `UPDATE restaurants
		SET name = $2, address = $3, description = $4, cuisine = $5, phone = $6, image_url = $7, updated_at = $8
		WHERE id = $1`

	deleteRestaurantSQL = `DELETE FROM restaurants WHERE id = $1`

	menuItemColumns = `id, name, description, price, category, restaurant_id, image_url, created_at, updated_at`

	listMenuItemsSQL = `SELECT ` + menuItemColumns + `
		FROM menu_items
		WHERE ($1 = '' OR restaurant_id = $1)
		  AND ($2 = '' OR category = $2)
		  AND ($3 = '' OR name ILIKE $3 OR description ILIKE $3)
		ORDER BY category, name, id
		LIMIT NULLIF($4, 0)`

	listCategoriesSQL = `SELECT DISTINCT category FROM menu_items ORDER BY category`

	getMenuItemSQL = `SELECT ` + menuItemColumns + ` FROM menu_items WHERE id = $1`

	getMenuItemsSQL = `SELECT ` + menuItemColumns + ` FROM menu_items WHERE id = ANY($1)`

	insertMenuItemSQL = `INSERT INTO menu_items (` + menuItemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	updateMenuItemSQL = `UPDATE menu_items
		SET name = $2, description = $3, price = $4, category = $5, restaurant_id = $6, image_url = $7, updated_at = $8
		WHERE id = $1`

	deleteMenuItemSQL = `DELETE FROM menu_items WHERE id = $1`
)

var _ catalog.Repository = (*CatalogRepository)(nil)

// CatalogRepository implements catalog.Repository backed by PostgreSQL.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// ListRestaurants returns restaurants ordered by name. A non-empty search is
// matched case-insensitively against name, address and description.
func (r *CatalogRepository) ListRestaurants(ctx context.Context, search string) ([]catalog.Restaurant, error) {
	rows, err := r.pool.Query(ctx, listRestaurantsSQL, likePattern(search))
	if err != nil {
		return nil, apperr.Transient("list restaurants", err)
	}
	out, err := pgx.CollectRows(rows, scanRestaurant)
	if err != nil {
		return nil, apperr.Transient("list restaurants", err)
	}
	return out, nil
}

// GetRestaurant returns a single restaurant without its menu.
func (r *CatalogRepository) GetRestaurant(ctx context.Context, id string) (*catalog.Restaurant, error) {
	rows, err := r.pool.Query(ctx, getRestaurantSQL, id)
	if err != nil {
		return nil, apperr.Transient("get restaurant", err)
	}
	rest, err := pgx.CollectExactlyOneRow(rows, scanRestaurant)
	if err != nil {
		return nil, lookupError(err, "restaurant", id)
	}
	return &rest, nil
}

func (r *CatalogRepository) CreateRestaurant(ctx context.Context, rest *catalog.Restaurant) error {
	_, err := r.pool.Exec(ctx, insertRestaurantSQL,
		rest.ID, rest.Name, rest.Address, rest.Description, rest.Cuisine, rest.Phone, rest.ImageURL,
		rest.CreatedAt, rest.UpdatedAt,
	)
	if err != nil {
		return apperr.Transient("insert restaurant", err)
	}
	return nil
}

func (r *CatalogRepository) UpdateRestaurant(ctx context.Context, rest *catalog.Restaurant) error {
	tag, err := r.pool.Exec(ctx, updateRestaurantSQL,
		rest.ID, rest.Name, rest.Address, rest.Description, rest.Cuisine, rest.Phone, rest.ImageURL,
		rest.UpdatedAt,
	)
	if err != nil {
		return apperr.Transient("update restaurant", err)
	}
	return expectOne(tag, "restaurant", rest.ID)
}

// DeleteRestaurant removes a restaurant and, by cascade, its menu. The
// cascade fails when any of those menu items is referenced by an order.
func (r *CatalogRepository) DeleteRestaurant(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteRestaurantSQL, id)
	if err != nil {
		return deleteError(err, "restaurant", id)
	}
	return expectOne(tag, "restaurant", id)
}

func (r *CatalogRepository) ListMenuItems(ctx context.Context, f catalog.MenuFilter) ([]catalog.MenuItem, error) {
	rows, err := r.pool.Query(ctx, listMenuItemsSQL, f.RestaurantID, f.Category, likePattern(f.Search), f.Limit)
	if err != nil {
		return nil, apperr.Transient("list menu items", err)
	}
	out, err := pgx.CollectRows(rows, scanMenuItem)
	if err != nil {
		return nil, apperr.Transient("list menu items", err)
	}
	return out, nil
}

func (r *CatalogRepository) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, listCategoriesSQL)
	if err != nil {
		return nil, apperr.Transient("list categories", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, apperr.Transient("list categories", err)
	}
	return out, nil
}

func (r *CatalogRepository) GetMenuItem(ctx context.Context, id string) (*catalog.MenuItem, error) {
	rows, err := r.pool.Query(ctx, getMenuItemSQL, id)
	if err != nil {
		return nil, apperr.Transient("get menu item", err)
	}
	m, err := pgx.CollectExactlyOneRow(rows, scanMenuItem)
	if err != nil {
		return nil, lookupError(err, "menu item", id)
	}
	return &m, nil
}

// GetMenuItems returns the menu items matching any of ids in one query.
// Unknown ids are absent from the result.
func (r *CatalogRepository) GetMenuItems(ctx context.Context, ids []string) ([]catalog.MenuItem, error) {
	rows, err := r.pool.Query(ctx, getMenuItemsSQL, ids)
	if err != nil {
		return nil, apperr.Transient("get menu items", err)
	}
	out, err := pgx.CollectRows(rows, scanMenuItem)
	if err != nil {
		return nil, apperr.Transient("get menu items", err)
	}
	return out, nil
}

func (r *CatalogRepository) CreateMenuItem(ctx context.Context, m *catalog.MenuItem) error {
	_, err := r.pool.Exec(ctx, insertMenuItemSQL,
		m.ID, m.Name, m.Description, m.Price, m.Category, m.RestaurantID, m.ImageURL,
		m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return apperr.Transient("insert menu item", err)
	}
	return nil
}

func (r *CatalogRepository) UpdateMenuItem(ctx context.Context, m *catalog.MenuItem) error {
	tag, err := r.pool.Exec(ctx, updateMenuItemSQL,
		m.ID, m.Name, m.Description, m.Price, m.Category, m.RestaurantID, m.ImageURL,
		m.UpdatedAt,
	)
	if err != nil {
		return apperr.Transient("update menu item", err)
	}
	return expectOne(tag, "menu item", m.ID)
}

// DeleteMenuItem removes a menu item no order references.
func (r *CatalogRepository) DeleteMenuItem(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteMenuItemSQL, id)
	if err != nil {
		return deleteError(err, "menu item", id)
	}
	return expectOne(tag, "menu item", id)
}

func scanRestaurant(row pgx.CollectableRow) (catalog.Restaurant, error) {
	var r catalog.Restaurant
	err := row.Scan(
		&r.ID, &r.Name, &r.Address, &r.Description, &r.Cuisine, &r.Phone, &r.ImageURL,
		&r.CreatedAt, &r.UpdatedAt,
	)
	return r, err
}

func scanMenuItem(row pgx.CollectableRow) (catalog.MenuItem, error) {
	var m catalog.MenuItem
	err := row.Scan(
		&m.ID, &m.Name, &m.Description, &m.Price, &m.Category, &m.RestaurantID, &m.ImageURL,
		&m.CreatedAt, &m.UpdatedAt,
	)
	return m, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern wraps search for a substring ILIKE match. It returns "" for
// an empty search so the query can skip the predicate.
func likePattern(search string) string {
	search = strings.TrimSpace(search)
	if search == "" {
		return ""
	}
	return "%" + likeEscaper.Replace(search) + "%"
}

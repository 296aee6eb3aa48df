package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/hungrypanda/internal/domain/apperr"
	"github.com/xenking/hungrypanda/internal/domain/catalog"
)

const (
	upsertRestaurantSQL = `INSERT INTO restaurants (` + restaurantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, address = EXCLUDED.address, description = EXCLUDED.description,
		    cuisine = EXCLUDED.cuisine, phone = EXCLUDED.phone, image_url = EXCLUDED.image_url,
		    updated_at = EXCLUDED.updated_at`

	upsertMenuItemSQL = `INSERT INTO menu_items (` + menuItemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, description = EXCLUDED.description, price = EXCLUDED.price,
		    category = EXCLUDED.category, restaurant_id = EXCLUDED.restaurant_id,
		    image_url = EXCLUDED.image_url, updated_at = EXCLUDED.updated_at`
)

// Import upserts restaurants and their Menu items by id in one transaction.
// Existing rows keep their created_at.
func (r *CatalogRepository) Import(ctx context.Context, restaurants []catalog.Restaurant) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return apperr.Transient("begin import", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, rest := range restaurants {
		batch.Queue(upsertRestaurantSQL,
			rest.ID, rest.Name, rest.Address, rest.Description, rest.Cuisine, rest.Phone, rest.ImageURL,
			rest.CreatedAt, rest.UpdatedAt,
		)
		for _, m := range rest.Menu {
			batch.Queue(upsertMenuItemSQL,
				m.ID, m.Name, m.Description, m.Price, m.Category, rest.ID, m.ImageURL,
				m.CreatedAt, m.UpdatedAt,
			)
		}
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return errors.Wrap(err, "upsert catalog")
	}
	if err := tx.Commit(ctx); err != nil {
		return apperr.Transient("commit import", err)
	}
	return nil
}

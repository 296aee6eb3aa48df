package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/hungrypanda/internal/domain/apperr"
	"github.com/xenking/hungrypanda/internal/domain/catalog"
)

// ErrNoSnapshot is returned by Store.Get when nothing is stored for a key.
var ErrNoSnapshot = errors.New("cart snapshot not found")

// ErrEmptyCart is returned by Checkout for a cart with no lines.
var ErrEmptyCart = &apperr.ValidationError{Field: "items", Message: "cart is empty"}

// Store persists raw cart snapshots by session key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	// Update replaces the snapshot under key with fn's result so that no
	// other Update on the same key interleaves. fn gets nil when nothing is
	// stored and may run more than once. A nil result deletes the key; an
	// error from fn aborts the update and is returned as is.
	Update(ctx context.Context, key string, fn func(data []byte) ([]byte, error)) error
}

// MenuLookup resolves catalog items added to the cart.
type MenuLookup interface {
	GetMenuItem(ctx context.Context, id string) (*catalog.MenuItem, error)
}

// PlaceFunc turns checkout lines into an order.
type PlaceFunc func(ctx context.Context, lines []Line) error

// Manager owns each session's cart: it loads the stored snapshot, applies a
// mutation, and saves the result before returning.
type Manager struct {
	store Store
	menu  MenuLookup
}

// NewManager creates a Manager.
func NewManager(store Store, menu MenuLookup) *Manager {
	return &Manager{store: store, menu: menu}
}

// Load returns the cart stored under key. A missing snapshot yields an empty
// cart; a corrupt one is deleted and replaced by an empty cart.
func (m *Manager) Load(ctx context.Context, key string) (*Cart, error) {
	data, err := m.store.Get(ctx, key)
	if errors.Is(err, ErrNoSnapshot) {
		return New(), nil
	}
	if err != nil {
		return nil, apperr.Transient("load cart", err)
	}

	c, ok := m.decode(ctx, key, data)
	if !ok {
		if err := m.store.Delete(ctx, key); err != nil {
			return nil, apperr.Transient("delete cart", err)
		}
	}
	return c, nil
}

// decode parses a stored snapshot. A corrupt snapshot is logged and reported
// as an empty cart with ok set to false.
func (m *Manager) decode(ctx context.Context, key string, data []byte) (_ *Cart, ok bool) {
	if data == nil {
		return New(), true
	}
	c, err := UnmarshalSnapshot(data)
	if err != nil {
		zctx.From(ctx).Warn("Discarding corrupt cart snapshot",
			zap.String("key", key),
			zap.Error(err),
		)
		return New(), false
	}
	return c, true
}

// mutate applies change to the stored cart inside a single store Update and
// returns the saved cart. Errors from change are returned unwrapped and
// leave the snapshot as it was.
func (m *Manager) mutate(ctx context.Context, key string, change func(*Cart) error) (*Cart, error) {
	var (
		saved     *Cart
		changeErr error
	)
	err := m.store.Update(ctx, key, func(data []byte) ([]byte, error) {
		c, _ := m.decode(ctx, key, data)
		if changeErr = change(c); changeErr != nil {
			return nil, changeErr
		}
		saved = c
		if c.IsEmpty() {
			return nil, nil
		}
		return c.MarshalSnapshot(), nil
	})
	switch {
	case changeErr != nil:
		return nil, changeErr
	case err != nil:
		return nil, apperr.Transient("save cart", err)
	}
	return saved, nil
}

// AddItem resolves menuItemID from the catalog and adds it to the cart.
func (m *Manager) AddItem(ctx context.Context, key, menuItemID string, quantity int, opts AddOptions) (*Cart, error) {
	mi, err := m.menu.GetMenuItem(ctx, menuItemID)
	if err != nil {
		return nil, errors.Wrap(err, "get menu item")
	}
	item := MenuItem{
		ID:           mi.ID,
		Name:         mi.Name,
		Price:        mi.Price,
		ImageURL:     mi.ImageURL,
		RestaurantID: mi.RestaurantID,
	}
	return m.mutate(ctx, key, func(c *Cart) error {
		_, err := c.Add(item, quantity, opts)
		return err
	})
}

// UpdateQuantity changes a line's quantity; zero or less removes it.
func (m *Manager) UpdateQuantity(ctx context.Context, key, itemID string, quantity int) (*Cart, error) {
	return m.mutate(ctx, key, func(c *Cart) error {
		return c.UpdateQuantity(itemID, quantity)
	})
}

// RemoveItem deletes a line.
func (m *Manager) RemoveItem(ctx context.Context, key, itemID string) (*Cart, error) {
	return m.mutate(ctx, key, func(c *Cart) error {
		return c.Remove(itemID)
	})
}

// Clear deletes the stored cart. It returns only after the snapshot is gone.
func (m *Manager) Clear(ctx context.Context, key string) error {
	if err := m.store.Delete(ctx, key); err != nil {
		return apperr.Transient("delete cart", err)
	}
	return nil
}

// Checkout hands the cart lines to place. Once place succeeds the ordered
// quantities are taken out of the cart; anything added meanwhile stays. On
// failure the cart is left as it was.
func (m *Manager) Checkout(ctx context.Context, key string, place PlaceFunc) error {
	c, err := m.Load(ctx, key)
	if err != nil {
		return err
	}
	if c.IsEmpty() {
		return ErrEmptyCart
	}
	lines := c.Lines()
	if err := place(ctx, lines); err != nil {
		return err
	}
	if _, err := m.mutate(ctx, key, func(c *Cart) error {
		c.subtract(lines)
		return nil
	}); err != nil {
		// The order already exists.
		zctx.From(ctx).Error("Clear cart after checkout", zap.String("key", key), zap.Error(err))
	}
	return nil
}

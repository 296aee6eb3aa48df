// Package cart implements the single-restaurant shopping cart.
//
// A Cart holds at most one line per menu item, and every line belongs to the
// same restaurant. TotalItems and TotalAmount are recomputed after each
// mutation and cannot be set from outside the package.
package cart

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/hungrypanda/internal/domain/apperr"
	"github.com/xenking/hungrypanda/internal/domain/pricing"
)

// MenuItem is the snapshot of a catalog item taken when it was added.
type MenuItem struct {
	ID           string
	Name         string
	Price        decimal.Decimal
	ImageURL     string
	RestaurantID string
}

// Item is a cart line.
type Item struct {
	ID       string
	MenuItem MenuItem
	Quantity int
}

// Line is a (menu item, quantity) pair handed to checkout.
type Line struct {
	MenuItemID string
	Quantity   int
}

// AddOptions control Add.
type AddOptions struct {
	// ReplaceCart confirms that a cart holding another restaurant's items
	// should be emptied before the new item is added.
	ReplaceCart bool
}

// RestaurantConflictError is returned by Add when the item comes from a
// different restaurant than the current cart contents and the caller did not
// confirm replacing the cart.
type RestaurantConflictError struct {
	Current   string
	Requested string
}

func (e *RestaurantConflictError) Error() string {
	return fmt.Sprintf("cart holds items from restaurant %s, cannot add item from restaurant %s", e.Current, e.Requested)
}

var errQuantityTooLarge = apperr.Invalid("quantity", fmt.Sprintf("quantity must not exceed %d", pricing.MaxQuantity))

// Cart is the aggregate. The zero value is an empty cart.
type Cart struct {
	items        []Item
	restaurantID string
	totalItems   int
	totalAmount  decimal.Decimal

	newID func() string
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// Items returns a copy of the cart lines in insertion order.
func (c *Cart) Items() []Item {
	return slices.Clone(c.items)
}

// RestaurantID is the restaurant every line belongs to, or "" when empty.
func (c *Cart) RestaurantID() string { return c.restaurantID }

// TotalItems is the sum of line quantities.
func (c *Cart) TotalItems() int { return c.totalItems }

// TotalAmount is the rounded sum of line totals.
func (c *Cart) TotalAmount() decimal.Decimal { return c.totalAmount }

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool { return len(c.items) == 0 }

// Contains reports whether a line exists for menuItemID.
func (c *Cart) Contains(menuItemID string) bool {
	return c.indexByMenuItem(menuItemID) >= 0
}

// Lines returns the checkout input for the current contents.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.items))
	for i, it := range c.items {
		out[i] = Line{MenuItemID: it.MenuItem.ID, Quantity: it.Quantity}
	}
	return out
}

// Add puts quantity units of m into the cart. An existing line for the same
// menu item has its quantity increased; otherwise a new line is appended.
//
// Adding from another restaurant fails with *RestaurantConflictError and
// leaves the cart untouched, unless opts.ReplaceCart is set, in which case
// the cart is cleared first.
func (c *Cart) Add(m MenuItem, quantity int, opts AddOptions) (Item, error) {
	switch {
	case m.ID == "":
		return Item{}, apperr.Invalid("menuItemId", "menu item is required")
	case m.RestaurantID == "":
		return Item{}, apperr.Invalid("restaurantId", "menu item has no restaurant")
	case quantity <= 0:
		return Item{}, apperr.Invalid("quantity", "quantity must be greater than 0")
	case quantity > pricing.MaxQuantity:
		return Item{}, errQuantityTooLarge
	case m.Price.IsNegative():
		return Item{}, apperr.Invalid("price", "price must not be negative")
	}

	if c.restaurantID != "" && c.restaurantID != m.RestaurantID {
		if !opts.ReplaceCart {
			return Item{}, &RestaurantConflictError{Current: c.restaurantID, Requested: m.RestaurantID}
		}
		c.Clear()
	}

	if i := c.indexByMenuItem(m.ID); i >= 0 {
		if c.items[i].Quantity > pricing.MaxQuantity-quantity {
			return Item{}, errQuantityTooLarge
		}
		c.items[i].Quantity += quantity
		c.recompute()
		return c.items[i], nil
	}

	it := Item{ID: c.generateID(), MenuItem: m, Quantity: quantity}
	c.items = append(c.items, it)
	c.restaurantID = m.RestaurantID
	c.recompute()
	return it, nil
}

// Remove deletes the line with the given cart item id.
func (c *Cart) Remove(itemID string) error {
	i := c.indexByID(itemID)
	if i < 0 {
		return apperr.NotFound("cart item", itemID)
	}
	c.items = slices.Delete(c.items, i, i+1)
	if len(c.items) == 0 {
		c.restaurantID = ""
	}
	c.recompute()
	return nil
}

// UpdateQuantity sets the quantity of a line. A quantity of zero or less
// removes the line, exactly like Remove.
func (c *Cart) UpdateQuantity(itemID string, quantity int) error {
	if quantity <= 0 {
		return c.Remove(itemID)
	}
	if quantity > pricing.MaxQuantity {
		return errQuantityTooLarge
	}
	i := c.indexByID(itemID)
	if i < 0 {
		return apperr.NotFound("cart item", itemID)
	}
	c.items[i].Quantity = quantity
	c.recompute()
	return nil
}

// subtract takes ordered lines out of the cart. Lines whose quantity drops
// to zero are removed; lines added after the order was placed stay.
func (c *Cart) subtract(ordered []Line) {
	for _, l := range ordered {
		i := c.indexByMenuItem(l.MenuItemID)
		if i < 0 {
			continue
		}
		if c.items[i].Quantity <= l.Quantity {
			c.items = slices.Delete(c.items, i, i+1)
			continue
		}
		c.items[i].Quantity -= l.Quantity
	}
	if len(c.items) == 0 {
		c.restaurantID = ""
	}
	c.recompute()
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.items = nil
	c.restaurantID = ""
	c.recompute()
}

func (c *Cart) recompute() {
	lines := make([]pricing.Line, len(c.items))
	for i, it := range c.items {
		lines[i] = pricing.Line{Price: it.MenuItem.Price, Quantity: it.Quantity}
	}
	c.totalItems = pricing.Quantity(lines)
	c.totalAmount = pricing.Total(lines)
}

func (c *Cart) indexByID(itemID string) int {
	return slices.IndexFunc(c.items, func(it Item) bool { return it.ID == itemID })
}

func (c *Cart) indexByMenuItem(menuItemID string) int {
	return slices.IndexFunc(c.items, func(it Item) bool { return it.MenuItem.ID == menuItemID })
}

func (c *Cart) generateID() string {
	if c.newID != nil {
		return c.newID()
	}
	return uuid.NewString()
}

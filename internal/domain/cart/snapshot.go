package cart

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/hungrypanda/internal/domain/pricing"
)

// MarshalSnapshot encodes the cart lines for storage. Derived totals are not
// stored; they are recomputed on load.
func (c *Cart) MarshalSnapshot() []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("restaurantId")
	e.Str(c.restaurantID)
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range c.items {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(it.ID)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("menuItem")
		e.ObjStart()
		e.FieldStart("id")
		e.Str(it.MenuItem.ID)
		e.FieldStart("name")
		e.Str(it.MenuItem.Name)
		e.FieldStart("price")
		e.Str(it.MenuItem.Price.String())
		e.FieldStart("imageUrl")
		e.Str(it.MenuItem.ImageURL)
		e.FieldStart("restaurantId")
		e.Str(it.MenuItem.RestaurantID)
		e.ObjEnd()
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
	return e.Bytes()
}

// UnmarshalSnapshot decodes a stored cart. It rejects snapshots that violate
// the cart invariants so a corrupt value never reaches callers.
func UnmarshalSnapshot(data []byte) (*Cart, error) {
	c := New()
	d := jx.DecodeBytes(data)
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "items":
			return d.Arr(func(d *jx.Decoder) error {
				it, err := decodeItem(d)
				if err != nil {
					return err
				}
				c.items = append(c.items, it)
				return nil
			})
		default:
			// restaurantId is derived from the lines.
			return d.Skip()
		}
	}); err != nil {
		return nil, errors.Wrap(err, "decode cart snapshot")
	}

	seenID := make(map[string]struct{}, len(c.items))
	seenMenu := make(map[string]struct{}, len(c.items))
	for _, it := range c.items {
		if it.ID == "" || it.MenuItem.ID == "" || it.MenuItem.RestaurantID == "" {
			return nil, errors.New("cart snapshot line is missing ids")
		}
		if it.Quantity <= 0 || it.Quantity > pricing.MaxQuantity {
			return nil, errors.Errorf("cart snapshot line %s has quantity %d", it.ID, it.Quantity)
		}
		if it.MenuItem.Price.IsNegative() {
			return nil, errors.Errorf("cart snapshot line %s has negative price", it.ID)
		}
		if c.restaurantID == "" {
			c.restaurantID = it.MenuItem.RestaurantID
		} else if c.restaurantID != it.MenuItem.RestaurantID {
			return nil, errors.New("cart snapshot spans multiple restaurants")
		}
		if _, dup := seenID[it.ID]; dup {
			return nil, errors.Errorf("cart snapshot repeats line %s", it.ID)
		}
		if _, dup := seenMenu[it.MenuItem.ID]; dup {
			return nil, errors.Errorf("cart snapshot repeats menu item %s", it.MenuItem.ID)
		}
		seenID[it.ID] = struct{}{}
		seenMenu[it.MenuItem.ID] = struct{}{}
	}
	c.recompute()
	return c, nil
}

func decodeItem(d *jx.Decoder) (Item, error) {
	var it Item
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "id":
			it.ID, err = d.Str()
		case "quantity":
			it.Quantity, err = d.Int()
		case "menuItem":
			it.MenuItem, err = decodeMenuItem(d)
		default:
			err = d.Skip()
		}
		return err
	})
	return it, err
}

func decodeMenuItem(d *jx.Decoder) (MenuItem, error) {
	var m MenuItem
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "id":
			m.ID, err = d.Str()
		case "name":
			m.Name, err = d.Str()
		case "price":
			var s string
			if s, err = d.Str(); err != nil {
				return err
			}
			m.Price, err = decimal.NewFromString(s)
		case "imageUrl":
			m.ImageURL, err = d.Str()
		case "restaurantId":
			m.RestaurantID, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return m, err
}

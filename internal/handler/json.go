package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/hungrypanda/internal/domain/apperr"
	"github.com/xenking/hungrypanda/internal/domain/cart"
	"github.com/xenking/hungrypanda/internal/domain/catalog"
	"github.com/xenking/hungrypanda/internal/domain/console"
	"github.com/xenking/hungrypanda/internal/domain/order"
	"github.com/xenking/hungrypanda/internal/domain/pricing"
)

// maxBodySize bounds request bodies; the largest legitimate one is a bulk
// status update.
const maxBodySize = 1 << 20

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	encode(&e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func encodeMoney(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(pricing.String(d)))
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339))
}

func strField(e *jx.Encoder, name, v string) {
	e.Field(name, func(e *jx.Encoder) { e.Str(v) })
}

// optField omits empty optional strings.
func optField(e *jx.Encoder, name, v string) {
	if v != "" {
		strField(e, name, v)
	}
}

func encodeStrings(e *jx.Encoder, vs []string) {
	e.Arr(func(e *jx.Encoder) {
		for _, v := range vs {
			e.Str(v)
		}
	})
}

func encodeRestaurant(e *jx.Encoder, r *catalog.Restaurant, withMenu bool) {
	e.Obj(func(e *jx.Encoder) {
		strField(e, "id", r.ID)
		strField(e, "name", r.Name)
		strField(e, "address", r.Address)
		optField(e, "description", r.Description)
		optField(e, "cuisine", r.Cuisine)
		optField(e, "phone", r.Phone)
		optField(e, "imageUrl", r.ImageURL)
		e.Field("createdAt", func(e *jx.Encoder) { encodeTime(e, r.CreatedAt) })
		e.Field("updatedAt", func(e *jx.Encoder) { encodeTime(e, r.UpdatedAt) })
		if withMenu {
			e.Field("menu", func(e *jx.Encoder) { encodeMenuItems(e, r.Menu) })
		}
	})
}

func encodeMenuItem(e *jx.Encoder, m *catalog.MenuItem) {
	e.Obj(func(e *jx.Encoder) {
		strField(e, "id", m.ID)
		strField(e, "name", m.Name)
		optField(e, "description", m.Description)
		e.Field("price", func(e *jx.Encoder) { encodeMoney(e, m.Price) })
		strField(e, "category", m.Category)
		strField(e, "restaurantId", m.RestaurantID)
		optField(e, "imageUrl", m.ImageURL)
		e.Field("createdAt", func(e *jx.Encoder) { encodeTime(e, m.CreatedAt) })
		e.Field("updatedAt", func(e *jx.Encoder) { encodeTime(e, m.UpdatedAt) })
	})
}

func encodeMenuItems(e *jx.Encoder, items []catalog.MenuItem) {
	e.Arr(func(e *jx.Encoder) {
		for i := range items {
			encodeMenuItem(e, &items[i])
		}
	})
}

func encodeCart(e *jx.Encoder, c *cart.Cart) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range c.Items() {
					e.Obj(func(e *jx.Encoder) {
						strField(e, "id", it.ID)
						e.Field("menuItem", func(e *jx.Encoder) {
							e.Obj(func(e *jx.Encoder) {
								strField(e, "id", it.MenuItem.ID)
								strField(e, "name", it.MenuItem.Name)
								e.Field("price", func(e *jx.Encoder) { encodeMoney(e, it.MenuItem.Price) })
								optField(e, "imageUrl", it.MenuItem.ImageURL)
								strField(e, "restaurantId", it.MenuItem.RestaurantID)
							})
						})
						e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
						e.Field("lineTotal", func(e *jx.Encoder) {
							encodeMoney(e, pricing.LineTotal(it.MenuItem.Price, it.Quantity))
						})
					})
				}
			})
		})
		e.Field("restaurantId", func(e *jx.Encoder) {
			if id := c.RestaurantID(); id != "" {
				e.Str(id)
				return
			}
			e.Null()
		})
		e.Field("totalItems", func(e *jx.Encoder) { e.Int(c.TotalItems()) })
		e.Field("totalAmount", func(e *jx.Encoder) { encodeMoney(e, c.TotalAmount()) })
	})
}

func encodeStatuses(e *jx.Encoder, ss []order.Status) {
	e.Arr(func(e *jx.Encoder) {
		for _, s := range ss {
			e.Str(s.String())
		}
	})
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.Obj(func(e *jx.Encoder) {
		strField(e, "id", o.ID)
		strField(e, "userId", o.UserID)
		strField(e, "status", o.Status.String())
		e.Field("allowedTransitions", func(e *jx.Encoder) { encodeStatuses(e, o.Status.Next()) })
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range o.Items {
					e.Obj(func(e *jx.Encoder) {
						strField(e, "id", it.ID)
						strField(e, "menuItemId", it.MenuItemID)
						strField(e, "name", it.Name)
						e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
						e.Field("price", func(e *jx.Encoder) { encodeMoney(e, it.Price) })
						e.Field("lineTotal", func(e *jx.Encoder) { encodeMoney(e, it.LineTotal()) })
					})
				}
			})
		})
		e.Field("totalAmount", func(e *jx.Encoder) { encodeMoney(e, o.TotalAmount) })
		strField(e, "deliveryAddress", o.DeliveryAddress)
		strField(e, "paymentMethod", string(o.PaymentMethod))
		e.Field("createdAt", func(e *jx.Encoder) { encodeTime(e, o.CreatedAt) })
		e.Field("updatedAt", func(e *jx.Encoder) { encodeTime(e, o.UpdatedAt) })
	})
}

func encodeOrders(e *jx.Encoder, orders []order.Order) {
	e.Arr(func(e *jx.Encoder) {
		for i := range orders {
			encodeOrder(e, &orders[i])
		}
	})
}

func encodeBulkResult(e *jx.Encoder, res console.BulkResult) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("applied", func(e *jx.Encoder) { encodeStrings(e, res.Applied) })
		e.Field("skipped", func(e *jx.Encoder) { encodeStrings(e, res.Skipped) })
		e.Field("failed", func(e *jx.Encoder) {
			if res.Failed == nil {
				e.Null()
				return
			}
			p := problemFor(res.Failed.Err)
			e.Obj(func(e *jx.Encoder) {
				strField(e, "orderId", res.Failed.OrderID)
				e.Field("reverted", func(e *jx.Encoder) { e.Bool(res.Failed.Reverted) })
				e.Field("error", func(e *jx.Encoder) { p.encode(e) })
			})
		})
	})
}

func encodeStats(e *jx.Encoder, s *console.Stats) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("totalOrders", func(e *jx.Encoder) { e.Int(s.TotalOrders) })
		e.Field("totalRestaurants", func(e *jx.Encoder) { e.Int(s.TotalRestaurants) })
		e.Field("totalMenuItems", func(e *jx.Encoder) { e.Int(s.TotalMenuItems) })
		e.Field("ordersByStatus", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				for _, st := range order.Statuses {
					e.Field(st.String(), func(e *jx.Encoder) { e.Int(s.OrdersByStatus[st]) })
				}
			})
		})
		e.Field("recentOrders", func(e *jx.Encoder) { encodeOrders(e, s.RecentOrders) })
	})
}

// decodeBody walks the top-level object of the request body, handing each
// key to field. Unknown keys must be skipped by field.
func decodeBody(r *http.Request, field func(d *jx.Decoder, key string) error) error {
	d := jx.Decode(io.LimitReader(r.Body, maxBodySize), 4096)
	if err := d.Obj(field); err != nil {
		var ve *apperr.ValidationError
		if errors.As(err, &ve) {
			return ve
		}
		return apperr.Invalid("body", "malformed JSON body: "+err.Error())
	}
	return nil
}

func readString(d *jx.Decoder, field string) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	s, err := d.Str()
	if err != nil {
		return "", apperr.Invalid(field, "must be a string")
	}
	return s, nil
}

func readInt(d *jx.Decoder, field string) (int, error) {
	if d.Next() != jx.Number {
		_ = d.Skip()
		return 0, apperr.Invalid(field, "must be an integer")
	}
	n, err := d.Int()
	if err != nil {
		return 0, apperr.Invalid(field, "must be an integer")
	}
	return n, nil
}

func readBool(d *jx.Decoder, field string) (bool, error) {
	if d.Next() != jx.Bool {
		_ = d.Skip()
		return false, apperr.Invalid(field, "must be a boolean")
	}
	return d.Bool()
}

// readDecimal accepts a JSON number or a numeric string.
func readDecimal(d *jx.Decoder, field string) (decimal.Decimal, error) {
	var raw string
	switch d.Next() {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, apperr.Invalid(field, "must be a number")
		}
		raw = n.String()
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, apperr.Invalid(field, "must be a number")
		}
		raw = s
	default:
		_ = d.Skip()
		return decimal.Decimal{}, apperr.Invalid(field, "must be a number")
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, apperr.Invalid(field, "must be a number")
	}
	return v, nil
}

func readStrings(d *jx.Decoder, field string) ([]string, error) {
	if d.Next() != jx.Array {
		_ = d.Skip()
		return nil, apperr.Invalid(field, "must be an array of strings")
	}
	var out []string
	err := d.Arr(func(d *jx.Decoder) error {
		s, err := d.Str()
		if err != nil {
			return apperr.Invalid(field, "must be an array of strings")
		}
		out = append(out, s)
		return nil
	})
	return out, err
}

func errMissing(field string) error {
	return apperr.Invalid(field, "is required")
}

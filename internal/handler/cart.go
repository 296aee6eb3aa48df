package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/hungrypanda/internal/domain/auth"
	"github.com/xenking/hungrypanda/internal/domain/cart"
	"github.com/xenking/hungrypanda/internal/domain/order"
)

// cartKey is the session a cart is stored under: one cart per user.
func cartKey(r *http.Request) (string, error) {
	id, err := auth.RequireUser(r.Context())
	if err != nil {
		return "", err
	}
	return id.UserID, nil
}

func (h *Handler) writeCart(w http.ResponseWriter, c *cart.Cart) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCart(e, c) })
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	key, err := cartKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.carts.Load(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeCart(w, c)
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	key, err := cartKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var (
		menuItemID string
		quantity   = 1
		opts       cart.AddOptions
	)
	err = decodeBody(r, func(d *jx.Decoder, k string) error {
		var err error
		switch k {
		case "menuItemId":
			menuItemID, err = readString(d, k)
		case "quantity":
			quantity, err = readInt(d, k)
		case "replaceCart":
			opts.ReplaceCart, err = readBool(d, k)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	c, err := h.carts.AddItem(r.Context(), key, menuItemID, quantity, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeCart(w, c)
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	key, err := cartKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var (
		quantity int
		seen     bool
	)
	err = decodeBody(r, func(d *jx.Decoder, k string) error {
		if k != "quantity" {
			return d.Skip()
		}
		seen = true
		var err error
		quantity, err = readInt(d, k)
		return err
	})
	if err == nil && !seen {
		err = errMissing("quantity")
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	c, err := h.carts.UpdateQuantity(r.Context(), key, pathID(r), quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeCart(w, c)
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	key, err := cartKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.carts.RemoveItem(r.Context(), key, pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeCart(w, c)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	key, err := cartKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.carts.Clear(r.Context(), key); err != nil {
		writeError(w, r, err)
		return
	}
	h.writeCart(w, cart.New())
}

// checkout places an order from the cart contents. The cart is emptied only
// once the order exists.
func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	key, err := cartKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req order.PlaceOrderRequest
	err = decodeBody(r, func(d *jx.Decoder, k string) error {
		var err error
		switch k {
		case "deliveryAddress":
			req.DeliveryAddress, err = readString(d, k)
		case "paymentMethod":
			req.PaymentMethod, err = readString(d, k)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	var placed *order.Order
	err = h.carts.Checkout(r.Context(), key, func(ctx context.Context, lines []cart.Line) error {
		req.Items = make([]order.LineRequest, len(lines))
		for i, l := range lines {
			req.Items[i] = order.LineRequest{MenuItemID: l.MenuItemID, Quantity: l.Quantity}
		}
		o, err := h.orders.PlaceOrder(ctx, req)
		if err != nil {
			return err
		}
		placed = o
		return nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeOrder(w, http.StatusCreated, placed)
}

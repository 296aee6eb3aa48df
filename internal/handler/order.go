package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/skip2/go-qrcode"

	"github.com/xenking/hungrypanda/internal/domain/apperr"
	"github.com/xenking/hungrypanda/internal/domain/order"
)

const (
	defaultQRSize = 256
	minQRSize     = 128
	maxQRSize     = 1024
)

func (h *Handler) writeOrder(w http.ResponseWriter, status int, o *order.Order) {
	writeJSON(w, status, func(e *jx.Encoder) { encodeOrder(e, o) })
}

// parseStatus accepts status names in any case.
func parseStatus(field, v string) (order.Status, error) {
	s, err := order.ParseStatus(strings.ToUpper(strings.TrimSpace(v)))
	if err != nil {
		return 0, apperr.Invalid(field, err.Error())
	}
	return s, nil
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := order.Filter{UserID: q.Get("userId")}
	if v := q.Get("status"); v != "" && !strings.EqualFold(v, "all") {
		s, err := parseStatus("status", v)
		if err != nil {
			writeError(w, r, err)
			return
		}
		f.Status = s
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, r, apperr.Invalid("limit", "must be a non-negative integer"))
			return
		}
		f.Limit = n
	}

	orders, err := h.orders.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrders(e, orders) })
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req order.PlaceOrderRequest
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "items":
			req.Items, err = readLines(d)
		case "deliveryAddress":
			req.DeliveryAddress, err = readString(d, key)
		case "paymentMethod":
			req.PaymentMethod, err = readString(d, key)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.orders.PlaceOrder(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/orders/"+o.ID)
	h.writeOrder(w, http.StatusCreated, o)
}

// readLines decodes [{"menuItemId","quantity"}]. Any price sent by the
// client is ignored.
func readLines(d *jx.Decoder) ([]order.LineRequest, error) {
	if d.Next() != jx.Array {
		_ = d.Skip()
		return nil, apperr.Invalid("items", "must be an array")
	}
	var lines []order.LineRequest
	err := d.Arr(func(d *jx.Decoder) error {
		var l order.LineRequest
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "menuItemId":
				l.MenuItemID, err = readString(d, "menuItemId")
			case "quantity":
				l.Quantity, err = readInt(d, "quantity")
			default:
				err = d.Skip()
			}
			return err
		}); err != nil {
			return err
		}
		lines = append(lines, l)
		return nil
	})
	return lines, err
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeOrder(w, http.StatusOK, o)
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var raw string
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		if key != "status" {
			return d.Skip()
		}
		var err error
		raw, err = readString(d, key)
		return err
	})
	if err == nil && raw == "" {
		err = errMissing("status")
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	to, err := parseStatus("status", raw)
	if err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.orders.Transition(r.Context(), pathID(r), to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeOrder(w, http.StatusOK, o)
}

// orderQR renders a PNG QR code of the order's tracking URL. Only callers
// who may read the order get its code.
func (h *Handler) orderQR(w http.ResponseWriter, r *http.Request) {
	size := defaultQRSize
	if v := r.URL.Query().Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < minQRSize || n > maxQRSize {
			writeError(w, r, apperr.Invalid("size", "must be an integer between 128 and 1024"))
			return
		}
		size = n
	}

	o, err := h.orders.Get(r.Context(), pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	png, err := qrcode.Encode(h.trackingURL(o.ID), qrcode.Medium, size)
	if err != nil {
		writeError(w, r, errors.Wrap(err, "encode qr code"))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (h *Handler) trackingURL(orderID string) string {
	return h.publicBaseURL + "/orders/" + orderID
}

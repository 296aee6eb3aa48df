package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/jx"

	"github.com/xenking/hungrypanda/internal/domain/apperr"
	"github.com/xenking/hungrypanda/internal/domain/catalog"
)

func (h *Handler) listRestaurants(w http.ResponseWriter, r *http.Request) {
	rests, err := h.catalog.ListRestaurants(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range rests {
				encodeRestaurant(e, &rests[i], false)
			}
		})
	})
}

func (h *Handler) getRestaurant(w http.ResponseWriter, r *http.Request) {
	rest, err := h.catalog.GetRestaurant(r.Context(), pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeRestaurant(e, rest, true) })
}

func (h *Handler) listMenuItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := catalog.MenuFilter{
		RestaurantID: q.Get("restaurantId"),
		Category:     q.Get("category"),
		Search:       q.Get("q"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, r, apperr.Invalid("limit", "must be a non-negative integer"))
			return
		}
		f.Limit = n
	}
	items, err := h.catalog.ListMenuItems(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeMenuItems(e, items) })
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.catalog.Categories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeStrings(e, cats) })
}

func (h *Handler) getMenuItem(w http.ResponseWriter, r *http.Request) {
	m, err := h.catalog.GetMenuItem(r.Context(), pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeMenuItem(e, m) })
}

func decodeRestaurantInput(r *http.Request) (catalog.RestaurantInput, error) {
	var in catalog.RestaurantInput
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			in.Name, err = readString(d, key)
		case "address":
			in.Address, err = readString(d, key)
		case "description":
			in.Description, err = readString(d, key)
		case "cuisine":
			in.Cuisine, err = readString(d, key)
		case "phone":
			in.Phone, err = readString(d, key)
		case "imageUrl":
			in.ImageURL, err = readString(d, key)
		default:
			err = d.Skip()
		}
		return err
	})
	return in, err
}

func decodeMenuItemInput(r *http.Request) (catalog.MenuItemInput, error) {
	var in catalog.MenuItemInput
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			in.Name, err = readString(d, key)
		case "description":
			in.Description, err = readString(d, key)
		case "price":
			in.Price, err = readDecimal(d, key)
		case "category":
			in.Category, err = readString(d, key)
		case "restaurantId":
			in.RestaurantID, err = readString(d, key)
		case "imageUrl":
			in.ImageURL, err = readString(d, key)
		default:
			err = d.Skip()
		}
		return err
	})
	return in, err
}

func (h *Handler) createRestaurant(w http.ResponseWriter, r *http.Request) {
	in, err := decodeRestaurantInput(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rest, err := h.catalog.CreateRestaurant(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeRestaurant(e, rest, false) })
}

func (h *Handler) updateRestaurant(w http.ResponseWriter, r *http.Request) {
	in, err := decodeRestaurantInput(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rest, err := h.catalog.UpdateRestaurant(r.Context(), pathID(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeRestaurant(e, rest, false) })
}

func (h *Handler) deleteRestaurant(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteRestaurant(r.Context(), pathID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) createMenuItem(w http.ResponseWriter, r *http.Request) {
	in, err := decodeMenuItemInput(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	m, err := h.catalog.CreateMenuItem(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeMenuItem(e, m) })
}

func (h *Handler) updateMenuItem(w http.ResponseWriter, r *http.Request) {
	in, err := decodeMenuItemInput(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	m, err := h.catalog.UpdateMenuItem(r.Context(), pathID(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeMenuItem(e, m) })
}

func (h *Handler) deleteMenuItem(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteMenuItem(r.Context(), pathID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

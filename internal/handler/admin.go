package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/hungrypanda/internal/domain/apperr"
	"github.com/xenking/hungrypanda/internal/domain/console"
)

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := console.Dashboard(r.Context(), h.stats)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeStats(e, stats) })
}

// loadConsole returns a console over the authoritative order list.
func (h *Handler) loadConsole(r *http.Request) (*console.Console, error) {
	c := console.New(h.orders)
	if err := c.Load(r.Context()); err != nil {
		return nil, err
	}
	return c, nil
}

func consoleQuery(r *http.Request) (console.Query, error) {
	q := r.URL.Query()
	return console.ParseQuery(q.Get("q"), q.Get("status"), q.Get("sort"), q.Get("order"))
}

func (h *Handler) consoleOrders(w http.ResponseWriter, r *http.Request) {
	q, err := consoleQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.loadConsole(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view := c.View(q)
	total := len(c.Orders())
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("orders", func(e *jx.Encoder) { encodeOrders(e, view) })
			e.Field("matched", func(e *jx.Encoder) { e.Int(len(view)) })
			e.Field("total", func(e *jx.Encoder) { e.Int(total) })
		})
	})
}

// bulkStatus moves the listed orders to one status, in list order, stopping
// at the first failure. A partial failure is still a 200: the body says
// which ids were applied, which failed and which were skipped.
func (h *Handler) bulkStatus(w http.ResponseWriter, r *http.Request) {
	var (
		ids    []string
		status string
	)
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "ids":
			ids, err = readStrings(d, key)
		case "status":
			status, err = readString(d, key)
		default:
			err = d.Skip()
		}
		return err
	})
	if err == nil && status == "" {
		err = errMissing("status")
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	to, err := parseStatus("status", status)
	if err != nil {
		writeError(w, r, err)
		return
	}

	c, err := h.loadConsole(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	for _, id := range ids {
		if _, ok := c.Order(id); !ok {
			writeError(w, r, apperr.NotFound("order", id))
			return
		}
		c.Select(id)
	}

	res, err := c.BulkUpdate(r.Context(), to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeBulkResult(e, res) })
}

// exportOrders streams the filtered console view as CSV. An ids parameter
// (comma separated or repeated) narrows the view to that selection.
func (h *Handler) exportOrders(w http.ResponseWriter, r *http.Request) {
	q, err := consoleQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.loadConsole(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rows := c.View(q)
	if ids := selectionIDs(r); len(ids) > 0 {
		for _, id := range ids {
			c.Select(id)
		}
		rows = c.SelectedView(q)
	}

	filename := "orders-" + time.Now().UTC().Format("2006-01-02") + ".csv"
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	if err := console.ExportCSV(w, rows); err != nil {
		zctx.From(r.Context()).Warn("Write CSV export", zap.Error(err))
	}
}

func selectionIDs(r *http.Request) []string {
	var ids []string
	for _, v := range r.URL.Query()["ids"] {
		for id := range strings.SplitSeq(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

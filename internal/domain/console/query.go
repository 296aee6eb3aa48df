// Package console implements the admin order console: filtering and sorting
// of the order list, optimistic status updates with reconciliation, bulk
// updates over a selection, CSV export, and dashboard statistics.
package console

import (
	"cmp"
	"slices"
	"strings"

	"github.com/xenking/hungrypanda/internal/domain/apperr"
	"github.com/xenking/hungrypanda/internal/domain/order"
)

// SortKey selects the column orders are sorted by.
type SortKey string

const (
	SortByID        SortKey = "id"
	SortByCreatedAt SortKey = "createdAt"
	SortByStatus    SortKey = "status"
	SortByTotal     SortKey = "total"
)

// Query is the console view state. A zero Status matches every status.
type Query struct {
	Search     string
	Status     order.Status
	SortKey    SortKey
	Descending bool
}

// DefaultQuery shows every order, newest first.
var DefaultQuery = Query{SortKey: SortByCreatedAt, Descending: true}

// ParseQuery builds a Query from its wire form. Empty values fall back to
// DefaultQuery; status "all" matches every status; direction is "asc" or
// "desc".
func ParseQuery(search, status, sort, direction string) (Query, error) {
	q := DefaultQuery
	q.Search = strings.TrimSpace(search)

	if status != "" && !strings.EqualFold(status, "all") {
		s, err := order.ParseStatus(strings.ToUpper(status))
		if err != nil {
			return Query{}, apperr.Invalid("status", err.Error())
		}
		q.Status = s
	}

	switch key := SortKey(sort); key {
	case "":
	case SortByID, SortByCreatedAt, SortByStatus, SortByTotal:
		q.SortKey = key
	default:
		return Query{}, apperr.Invalid("sort", "unknown sort key "+sort)
	}

	switch strings.ToLower(direction) {
	case "":
	case "asc":
		q.Descending = false
	case "desc":
		q.Descending = true
	default:
		return Query{}, apperr.Invalid("order", "sort direction must be asc or desc")
	}
	return q, nil
}

// Matches reports whether o passes the search and status filters. Search is
// a case-insensitive substring match over the order id and item names.
func (q Query) Matches(o *order.Order) bool {
	if q.Status != 0 && o.Status != q.Status {
		return false
	}
	if q.Search == "" {
		return true
	}
	needle := strings.ToLower(q.Search)
	if strings.Contains(strings.ToLower(o.ID), needle) {
		return true
	}
	for _, it := range o.Items {
		if strings.Contains(strings.ToLower(it.Name), needle) {
			return true
		}
	}
	return false
}

// Apply returns the filtered, sorted view of orders. The input is not
// modified. Sorting is stable, so orders that compare equal keep their
// input order.
func (q Query) Apply(orders []order.Order) []order.Order {
	out := make([]order.Order, 0, len(orders))
	for i := range orders {
		if q.Matches(&orders[i]) {
			out = append(out, orders[i])
		}
	}

	cmpFn := q.compare()
	slices.SortStableFunc(out, func(a, b order.Order) int {
		c := cmpFn(&a, &b)
		if q.Descending {
			return -c
		}
		return c
	})
	return out
}

func (q Query) compare() func(a, b *order.Order) int {
	switch q.SortKey {
	case SortByID:
		return func(a, b *order.Order) int { return cmp.Compare(a.ID, b.ID) }
	case SortByStatus:
		return func(a, b *order.Order) int { return cmp.Compare(a.Status, b.Status) }
	case SortByTotal:
		return func(a, b *order.Order) int { return a.TotalAmount.Cmp(b.TotalAmount) }
	default:
		return func(a, b *order.Order) int { return a.CreatedAt.Compare(b.CreatedAt) }
	}
}

package console

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/hungrypanda/internal/domain/order"
	"github.com/xenking/hungrypanda/internal/domain/pricing"
)

var exportHeader = []string{"Order ID", "Date", "Status", "Total", "Items", "Delivery Address"}

// ExportCSV writes one row per order, in the given order, after a header
// row. Items are rendered as "2x Burger; 1x Fries".
func ExportCSV(w io.Writer, orders []order.Order) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return errors.Wrap(err, "write header")
	}
	for i := range orders {
		o := &orders[i]
		if err := cw.Write([]string{
			o.ID,
			o.CreatedAt.UTC().Format("2006-01-02 15:04"),
			o.Status.String(),
			pricing.String(o.TotalAmount),
			itemSummary(o.Items),
			o.DeliveryAddress,
		}); err != nil {
			return errors.Wrapf(err, "write order %s", o.ID)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv")
}

func itemSummary(items []order.Item) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = fmt.Sprintf("%dx %s", it.Quantity, it.Name)
	}
	return strings.Join(parts, "; ")
}

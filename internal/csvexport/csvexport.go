package csvexport

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ariefcatur/restobill/internal/orders"
	"github.com/gocarina/gocsv"
)

const dateLayout = "2006-01-02 15:04:05"

// Row is one order in the sales export.
type Row struct {
	OrderID       string `csv:"Order ID"`
	Date          string `csv:"Date"`
	Items         string `csv:"Items"`
	Total         string `csv:"Total"`
	PaymentMethod string `csv:"Payment Method"`
	Cashier       string `csv:"Cashier"`
}

func Rows(list []orders.Order, loc *time.Location) []*Row {
	if loc == nil {
		loc = time.Local
	}
	out := make([]*Row, 0, len(list))
	for _, o := range list {
		items := make([]string, 0, len(o.Items))
		for _, it := range o.Items {
			items = append(items, fmt.Sprintf("%dx %s", it.Quantity, it.Name))
		}
		out = append(out, &Row{
			OrderID:       o.ID,
			Date:          o.Timestamp.In(loc).Format(dateLayout),
			Items:         strings.Join(items, "; "),
			Total:         o.Total.StringFixed(2),
			PaymentMethod: string(o.PaymentMethod),
			Cashier:       o.CashierID,
		})
	}
	return out
}

// Write streams the orders as CSV with a header row.
func Write(w io.Writer, list []orders.Order, loc *time.Location) error {
	return gocsv.Marshal(Rows(list, loc), w)
}

// Filename is the suggested download name for an export taken at t.
func Filename(t time.Time) string {
	return "sales_export_" + t.Format("2006-01-02") + ".csv"
}

// Package receipt lays out a completed order for an 80mm thermal printer.
//
// The formatter never recomputes money: every figure printed comes from the
// stored Order, so the paper always matches what was charged.
package receipt

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ariefcatur/restobill/internal/orders"
	"github.com/shopspring/decimal"
)

const (
	DefaultWidth      = 40
	DefaultTimeLayout = "2006-01-02 15:04"

	qtyCol   = 4
	priceCol = 10
)

// Business is the identity block printed at the top and bottom.
type Business struct {
	Name     string
	Address  string
	Phone    string
	Footer   []string
	Width    int
	Location *time.Location
	Layout   string
}

func (b Business) width() int {
	if b.Width < qtyCol+priceCol+8 {
		return DefaultWidth
	}
	return b.Width
}

// ShortID is the last six characters of the order id, upper-cased.
func ShortID(id string) string {
	if len(id) > 6 {
		id = id[len(id)-6:]
	}
	return strings.ToUpper(id)
}

func Money(v decimal.Decimal) string { return "$" + v.StringFixed(2) }

// Format returns the receipt as printable lines.
func Format(o orders.Order, b Business) []string {
	w := b.width()
	rule := strings.Repeat("-", w)
	loc := b.Location
	if loc == nil {
		loc = time.Local
	}
	layout := b.Layout
	if layout == "" {
		layout = DefaultTimeLayout
	}

	var out []string
	out = append(out, center(b.Name, w))
	if b.Address != "" {
		out = append(out, center(b.Address, w))
	}
	if b.Phone != "" {
		out = append(out, center("Tel: "+b.Phone, w))
	}
	out = append(out, rule)

	table := "Takeaway"
	if o.TableName != nil && *o.TableName != "" {
		table = *o.TableName
	}
	out = append(out,
		pair("Order #:", ShortID(o.ID), w),
		pair("Date:", o.Timestamp.In(loc).Format(layout), w),
		pair("Table:", table, w),
		rule,
		itemRow("Item", "Qty", "Price", w),
	)
	for _, it := range o.Items {
		out = append(out, itemRow(it.Name, fmt.Sprint(it.Quantity), it.Amount().StringFixed(2), w))
	}
	out = append(out,
		rule,
		pair("Subtotal:", Money(o.Subtotal), w),
		pair("Discount:", "-"+Money(o.DiscountAmount), w),
		pair(fmt.Sprintf("Tax (%s%%):", orders.TaxRate.Shift(2).String()), Money(o.Tax), w),
		pair("Total:", Money(o.Total), w),
	)
	if len(b.Footer) > 0 {
		out = append(out, rule)
		for _, f := range b.Footer {
			out = append(out, center(f, w))
		}
	}
	return out
}

// Render joins Format's lines with newlines.
func Render(o orders.Order, b Business) string {
	return strings.Join(Format(o, b), "\n") + "\n"
}

func itemRow(name, qty, price string, w int) string {
	nameW := w - qtyCol - priceCol
	return fmt.Sprintf("%-*s%*s%*s", nameW, truncate(name, nameW-1), qtyCol, qty, priceCol, price)
}

func pair(label, value string, w int) string {
	gap := w - utf8.RuneCountInString(label) - utf8.RuneCountInString(value)
	if gap < 1 {
		gap = 1
	}
	return label + strings.Repeat(" ", gap) + value
}

func center(s string, w int) string {
	s = truncate(s, w)
	pad := (w - utf8.RuneCountInString(s)) / 2
	return strings.Repeat(" ", pad) + s
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

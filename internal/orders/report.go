package orders

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type DaySales struct {
	Date   string          `json:"date"` // YYYY-MM-DD in the report location
	Sales  decimal.Decimal `json:"sales"`
	Orders int             `json:"orders"`
}

type SalesSummary struct {
	TotalSales decimal.Decimal `json:"total_sales"`
	OrderCount int             `json:"order_count"`
	Daily      []DaySales      `json:"daily"`
}

// Summarize totals all orders and buckets them per calendar day in loc.
// Only the most recent `days` buckets that have sales are returned.
func Summarize(orders []Order, days int, loc *time.Location) SalesSummary {
	if loc == nil {
		loc = time.UTC
	}
	s := SalesSummary{TotalSales: decimal.Zero}
	byDay := map[string]*DaySales{}
	for _, o := range orders {
		s.TotalSales = s.TotalSales.Add(o.Total)
		s.OrderCount++
		key := o.Timestamp.In(loc).Format(time.DateOnly)
		d, ok := byDay[key]
		if !ok {
			d = &DaySales{Date: key, Sales: decimal.Zero}
			byDay[key] = d
		}
		d.Sales = d.Sales.Add(o.Total)
		d.Orders++
	}

	s.Daily = make([]DaySales, 0, len(byDay))
	for _, d := range byDay {
		s.Daily = append(s.Daily, *d)
	}
	sort.Slice(s.Daily, func(i, j int) bool { return s.Daily[i].Date < s.Daily[j].Date })
	if days > 0 && len(s.Daily) > days {
		s.Daily = s.Daily[len(s.Daily)-days:]
	}
	return s
}

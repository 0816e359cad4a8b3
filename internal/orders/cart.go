package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart is the in-progress order of one terminal. It is not safe for
// concurrent use; Terminal serializes access.
type Cart struct {
	lines    []CartLine
	discount decimal.Decimal
	newID    func() string
}

func NewCart() *Cart {
	return &Cart{discount: decimal.Zero, newID: uuid.NewString}
}

// AddItem bumps the quantity of the line holding product, or appends a new line.
func (c *Cart) AddItem(p Product) CartLine {
	for i := range c.lines {
		if c.lines[i].ID == p.ID {
			c.lines[i].Quantity++
			return c.lines[i]
		}
	}
	l := CartLine{Product: p, LineID: c.newID(), Quantity: 1}
	c.lines = append(c.lines, l)
	return l
}

// ChangeQuantity never lets a line drop below 1; use RemoveItem for that.
func (c *Cart) ChangeQuantity(lineID string, delta int) (CartLine, bool) {
	for i := range c.lines {
		if c.lines[i].LineID == lineID {
			c.lines[i].Quantity = max(1, c.lines[i].Quantity+delta)
			return c.lines[i], true
		}
	}
	return CartLine{}, false
}

func (c *Cart) RemoveItem(lineID string) bool {
	for i := range c.lines {
		if c.lines[i].LineID == lineID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return true
		}
	}
	return false
}

// SetDiscountPercent clamps into [0, 100] and returns the value kept.
func (c *Cart) SetDiscountPercent(p decimal.Decimal) decimal.Decimal {
	c.discount = ClampPercent(p)
	return c.discount
}

func (c *Cart) DiscountPercent() decimal.Decimal { return c.discount }

// Lines returns a copy.
func (c *Cart) Lines() []CartLine {
	out := make([]CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Len() int { return len(c.lines) }

func (c *Cart) Totals() Totals { return ComputeTotals(c.lines, c.discount) }

// Reset empties the cart and zeroes the discount.
func (c *Cart) Reset() {
	c.lines = nil
	c.discount = decimal.Zero
}

package orders

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Terminal owns the state of one POS screen: its cart, the selected table
// and the cashier. All mutations go through the mutex, so a checkout is a
// single transition with no half-cleared window visible to readers.
type Terminal struct {
	ID        string
	CashierID string
	OpenedAt  time.Time

	mu    sync.Mutex
	cart  *Cart
	table *Table
	used  time.Time // last cashier action, read by Terminals.Sweep
}

type TerminalView struct {
	ID              string          `json:"id"`
	CashierID       string          `json:"cashier_id"`
	Table           *Table          `json:"table"`
	Lines           []CartLine      `json:"lines"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	Totals          Totals          `json:"totals"`
	CanCheckout     bool            `json:"can_checkout"`
}

func NewTerminal(cashierID string) *Terminal {
	now := time.Now().UTC()
	return &Terminal{
		ID:        uuid.NewString(),
		CashierID: cashierID,
		OpenedAt:  now,
		cart:      NewCart(),
		used:      now,
	}
}

func (t *Terminal) View() TerminalView {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.touchLocked()
	return t.viewLocked()
}

func (t *Terminal) touchLocked() { t.used = time.Now().UTC() }

// LastUsed is the time of the latest read or change through this terminal.
func (t *Terminal) LastUsed() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.used
}

func (t *Terminal) viewLocked() TerminalView {
	v := TerminalView{
		ID:              t.ID,
		CashierID:       t.CashierID,
		Lines:           t.cart.Lines(),
		DiscountPercent: t.cart.DiscountPercent(),
		Totals:          t.cart.Totals(),
		CanCheckout:     t.cart.Len() > 0,
	}
	if t.table != nil {
		tb := *t.table
		v.Table = &tb
	}
	return v
}

func (t *Terminal) AddItem(p Product) TerminalView {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cart.AddItem(p)
	t.touchLocked()
	return t.viewLocked()
}

func (t *Terminal) ChangeQuantity(lineID string, delta int) (TerminalView, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.cart.ChangeQuantity(lineID, delta)
	t.touchLocked()
	return t.viewLocked(), ok
}

func (t *Terminal) RemoveItem(lineID string) TerminalView {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cart.RemoveItem(lineID)
	t.touchLocked()
	return t.viewLocked()
}

func (t *Terminal) SetDiscountPercent(p decimal.Decimal) TerminalView {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cart.SetDiscountPercent(p)
	t.touchLocked()
	return t.viewLocked()
}

// SelectTable sets the dine-in table; nil switches back to takeaway.
// It returns the previously selected table, if any.
func (t *Terminal) SelectTable(tb *Table) (prev *Table) {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev = t.table
	t.touchLocked()
	if tb == nil {
		t.table = nil
		return prev
	}
	cp := *tb
	t.table = &cp
	return prev
}

// Checkout runs the register against this terminal's cart. On success the
// table selection is cleared along with the cart; a replayed key leaves
// both alone.
func (t *Terminal) Checkout(ctx context.Context, reg *Register, method PaymentMethod, externalID string) (Order, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	o, replayed, err := reg.Checkout(ctx, t.cart, CheckoutRequest{
		PaymentMethod: method,
		Table:         t.table,
		CashierID:     t.CashierID,
		ExternalID:    externalID,
	})
	if err != nil {
		return Order{}, false, err
	}
	if !replayed {
		t.table = nil
	}
	t.touchLocked()
	return o, replayed, nil
}

// ErrTooManyTerminals is returned by Open once Max terminals are open.
var ErrTooManyTerminals = errors.New("too many open terminals")

// Terminals is the registry of open POS screens.
type Terminals struct {
	Max int // 0 = unlimited

	mu sync.RWMutex
	m  map[string]*Terminal
}

func NewTerminals() *Terminals {
	return &Terminals{m: map[string]*Terminal{}}
}

func (ts *Terminals) Open(cashierID string) (*Terminal, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.Max > 0 && len(ts.m) >= ts.Max {
		return nil, ErrTooManyTerminals
	}
	t := NewTerminal(cashierID)
	ts.m[t.ID] = t
	return t, nil
}

func (ts *Terminals) Get(id string) (*Terminal, bool) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	t, ok := ts.m[id]
	return t, ok
}

func (ts *Terminals) Close(id string) {
	ts.mu.Lock()
	delete(ts.m, id)
	ts.mu.Unlock()
}

func (ts *Terminals) Len() int {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return len(ts.m)
}

// Sweep closes every terminal unused for longer than idle and returns them,
// so the caller can free the tables they still hold.
func (ts *Terminals) Sweep(idle time.Duration, now time.Time) []*Terminal {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	var closed []*Terminal
	for id, t := range ts.m {
		if now.Sub(t.LastUsed()) > idle {
			delete(ts.m, id)
			closed = append(closed, t)
		}
	}
	return closed
}

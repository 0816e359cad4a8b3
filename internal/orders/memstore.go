package orders

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// MemStore keeps everything in process memory. It backs STORAGE=memory and
// the tests.
type MemStore struct {
	mu         sync.RWMutex
	categories []Category
	products   map[string]Product
	tables     map[string]Table
	orders     []Order
	byExternal map[string]int
}

func NewMemStore() *MemStore {
	return &MemStore{
		products:   map[string]Product{},
		tables:     map[string]Table{},
		byExternal: map[string]int{},
	}
}

// NewDemoMemStore returns a store seeded with the demo menu and tables.
func NewDemoMemStore() *MemStore {
	s := NewMemStore()
	s.categories = []Category{
		{ID: "coffee", Name: "Coffee"},
		{ID: "food", Name: "Food"},
		{ID: "drinks", Name: "Cold Drinks"},
	}
	for _, p := range []Product{
		{ID: "p-espresso", CategoryID: "coffee", Name: "Espresso", Price: decimal.RequireFromString("3.00")},
		{ID: "p-latte", CategoryID: "coffee", Name: "Caffe Latte", Price: decimal.RequireFromString("4.50")},
		{ID: "p-cappuccino", CategoryID: "coffee", Name: "Cappuccino", Price: decimal.RequireFromString("4.25")},
		{ID: "p-croissant", CategoryID: "food", Name: "Butter Croissant", Price: decimal.RequireFromString("3.75")},
		{ID: "p-club", CategoryID: "food", Name: "Club Sandwich", Price: decimal.RequireFromString("9.50")},
		{ID: "p-lemonade", CategoryID: "drinks", Name: "Fresh Lemonade", Price: decimal.RequireFromString("3.95")},
		{ID: "p-icedtea", CategoryID: "drinks", Name: "Iced Tea", Price: decimal.RequireFromString("2.95")},
	} {
		p.IsAvailable = true
		s.products[p.ID] = p
	}
	for i := 1; i <= 6; i++ {
		id := fmt.Sprintf("t%d", i)
		s.tables[id] = Table{ID: id, Name: fmt.Sprintf("Table %d", i), Status: TableAvailable}
	}
	return s
}

func (s *MemStore) AddTable(t Table) {
	s.mu.Lock()
	s.tables[t.ID] = t
	s.mu.Unlock()
}

func (s *MemStore) GetProducts(ctx context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemStore) GetCategories(ctx context.Context) ([]Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Category, len(s.categories))
	copy(out, s.categories)
	return out, nil
}

func (s *MemStore) GetTables(ctx context.Context) ([]Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Table, 0, len(s.tables))
	for _, t := range s.tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemStore) GetOrders(ctx context.Context) ([]Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Order, len(s.orders))
	for i, o := range s.orders {
		out[i] = cloneOrder(o)
	}
	return out, nil
}

func (s *MemStore) GetOrder(ctx context.Context, id string) (Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.orders {
		if o.ID == id {
			return cloneOrder(o), nil
		}
	}
	return Order{}, ErrNotFound
}

func (s *MemStore) GetOrderByExternalID(ctx context.Context, externalID string) (Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i, ok := s.byExternal[externalID]; ok && externalID != "" {
		return cloneOrder(s.orders[i]), nil
	}
	return Order{}, ErrNotFound
}

func (s *MemStore) CreateOrder(ctx context.Context, o Order) (Order, bool, error) {
	if err := ctx.Err(); err != nil {
		return Order{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ExternalID != "" {
		if i, ok := s.byExternal[o.ExternalID]; ok {
			return cloneOrder(s.orders[i]), true, nil
		}
	}
	o = cloneOrder(o)
	s.orders = append(s.orders, o)
	if o.ExternalID != "" {
		s.byExternal[o.ExternalID] = len(s.orders) - 1
	}
	return cloneOrder(o), false, nil
}

func (s *MemStore) SaveProduct(ctx context.Context, p Product) error {
	s.mu.Lock()
	s.products[p.ID] = p
	s.mu.Unlock()
	return nil
}

func (s *MemStore) DeleteProduct(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *MemStore) SetTableStatus(ctx context.Context, id string, to TableStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[id]
	if !ok {
		return ErrNotFound
	}
	if !CanTransition(t.Status, to) {
		return fmt.Errorf("table %s %s -> %s: %w", id, t.Status, to, ErrInvalidTransition)
	}
	t.Status = to
	s.tables[id] = t
	return nil
}

// the item slice is the only shared backing array in an Order
func cloneOrder(o Order) Order {
	items := make([]CartLine, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	return o
}

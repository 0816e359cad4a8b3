package orders

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AllCategories matches every product in FilterProducts.
const AllCategories = "all"

// FilterProducts keeps products in categoryID (empty or "all" = any) whose
// name contains query, case-insensitively.
func FilterProducts(products []Product, categoryID, query string) []Product {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if categoryID != "" && categoryID != AllCategories && p.CategoryID != categoryID {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// FindProduct returns the product with id from a catalog listing.
func FindProduct(products []Product, id string) (Product, bool) {
	for _, p := range products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

// PrepareProduct normalizes a product before SaveProduct: it trims the name,
// requires name and a category from categories, floors the price at zero
// and rounds it to cents, and assigns an id to new products.
func PrepareProduct(p Product, categories []Category) (Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.CategoryID = strings.TrimSpace(p.CategoryID)
	if p.Name == "" {
		return Product{}, &ValidationError{Field: "name", Msg: "required"}
	}
	if p.CategoryID == "" {
		return Product{}, &ValidationError{Field: "category_id", Msg: "required"}
	}
	if !hasCategory(categories, p.CategoryID) {
		return Product{}, &ValidationError{Field: "category_id", Msg: "unknown category " + p.CategoryID}
	}
	// products.price is NUMERIC(12,2); every store keeps the same cents
	p.Price = ClampPrice(p.Price).Round(2)
	if p.ID == "" {
		p.ID = uuid.NewString()
		p.IsAvailable = true
	}
	return p, nil
}

func hasCategory(categories []Category, id string) bool {
	for _, c := range categories {
		if c.ID == id {
			return true
		}
	}
	return false
}

// ParseDecimal reads user-entered numbers; anything malformed reads as zero.
func ParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

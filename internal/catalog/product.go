package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// LowStockThreshold is the stock level at or below which a product is flagged.
const LowStockThreshold = 5

// Field names as they appear in the catalog file and in history events.
const (
	FieldID       = "id"
	FieldName     = "nombre"
	FieldPrice    = "precio"
	FieldStock    = "stock"
	FieldCategory = "categoria"
)

type Product struct {
	ID       int     `json:"id"`
	Name     string  `json:"nombre"`
	Price    float64 `json:"precio"`
	Stock    int     `json:"stock"`
	Category string  `json:"categoria"`
}

func (p Product) LowStock() bool { return p.Stock <= LowStockThreshold }

func (p Product) String() string {
	return fmt.Sprintf("%d - %s (price %s, stock %d, category %s)",
		p.ID, p.Name, FormatPrice(p.Price), p.Stock, p.Category)
}

// Catalog is the whole persisted document.
type Catalog struct {
	Products []Product `json:"productos"`
}

// Find matches an exact id when query is numeric, otherwise a case-insensitive
// substring of name or category.
func (c Catalog) Find(query string) []Product {
	query = strings.TrimSpace(query)
	var out []Product
	if isDigits(query) {
		id, err := strconv.Atoi(query)
		if err != nil {
			return nil
		}
		for _, p := range c.Products {
			if p.ID == id {
				out = append(out, p)
			}
		}
		return out
	}
	q := strings.ToLower(query)
	for _, p := range c.Products {
		if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Category), q) {
			out = append(out, p)
		}
	}
	return out
}

// Get returns the product with the given id.
func (c Catalog) Get(id int) (Product, bool) {
	if i := c.index(id); i >= 0 {
		return c.Products[i], true
	}
	return Product{}, false
}

// LowStock lists products at or below LowStockThreshold in catalog order.
func (c Catalog) LowStock() []Product {
	var out []Product
	for _, p := range c.Products {
		if p.LowStock() {
			out = append(out, p)
		}
	}
	return out
}

func (c Catalog) index(id int) int {
	for i, p := range c.Products {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// FormatPrice prints a price without trailing zeros.
func FormatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

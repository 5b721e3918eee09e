package operation

import (
	"fmt"
	"strconv"
	"strings"

	"stockbot/internal/catalog"
)

// Operation is one fully typed request. The concrete types below are the only
// implementations; callers dispatch with a type switch.
type Operation interface {
	Kind() Kind
	String() string
}

type LookupProduct struct {
	Query string `json:"query" desc:"Product id, or text contained in the name or category"`
}

type AddProduct struct {
	ID       int     `json:"id" desc:"New unique product id"`
	Name     string  `json:"nombre" desc:"Product name"`
	Price    float64 `json:"precio" desc:"Unit price, greater than zero"`
	Stock    int     `json:"stock" desc:"Units in stock, zero or more"`
	Category string  `json:"categoria" desc:"Product category"`
}

type UpdateProduct struct {
	ID       int      `json:"id" desc:"Id of the product to change"`
	Name     *string  `json:"nombre,omitempty" desc:"New name"`
	Price    *float64 `json:"precio,omitempty" desc:"New unit price"`
	Stock    *int     `json:"stock,omitempty" desc:"New stock level"`
	Category *string  `json:"categoria,omitempty" desc:"New category"`
}

type UpdateStock struct {
	ID    int `json:"id" desc:"Id of the product"`
	Stock int `json:"stock" desc:"New stock level, zero or more"`
}

type UpdatePrice struct {
	ID    int     `json:"id" desc:"Id of the product"`
	Price float64 `json:"precio" desc:"New unit price, greater than zero"`
}

type GenerateReport struct {
	Days int `json:"dias,omitempty" param:"optional" desc:"Window in days for recent activity (default 7)"`
}

func (LookupProduct) Kind() Kind  { return KindLookupProduct }
func (AddProduct) Kind() Kind     { return KindAddProduct }
func (UpdateProduct) Kind() Kind  { return KindUpdateProduct }
func (UpdateStock) Kind() Kind    { return KindUpdateStock }
func (UpdatePrice) Kind() Kind    { return KindUpdatePrice }
func (GenerateReport) Kind() Kind { return KindGenerateReport }

func (o LookupProduct) String() string {
	return fmt.Sprintf("%s(query=%q)", o.Kind(), o.Query)
}

func (o AddProduct) String() string {
	return fmt.Sprintf("%s(id=%d, nombre=%q, precio=%s, stock=%d, categoria=%q)",
		o.Kind(), o.ID, o.Name, catalog.FormatPrice(o.Price), o.Stock, o.Category)
}

func (o UpdateProduct) String() string {
	parts := []string{"id=" + strconv.Itoa(o.ID)}
	if o.Name != nil {
		parts = append(parts, fmt.Sprintf("nombre=%q", *o.Name))
	}
	if o.Price != nil {
		parts = append(parts, "precio="+catalog.FormatPrice(*o.Price))
	}
	if o.Stock != nil {
		parts = append(parts, "stock="+strconv.Itoa(*o.Stock))
	}
	if o.Category != nil {
		parts = append(parts, fmt.Sprintf("categoria=%q", *o.Category))
	}
	return fmt.Sprintf("%s(%s)", o.Kind(), strings.Join(parts, ", "))
}

func (o UpdateStock) String() string {
	return fmt.Sprintf("%s(id=%d, stock=%d)", o.Kind(), o.ID, o.Stock)
}

func (o UpdatePrice) String() string {
	return fmt.Sprintf("%s(id=%d, precio=%s)", o.Kind(), o.ID, catalog.FormatPrice(o.Price))
}

func (o GenerateReport) String() string {
	if o.Days <= 0 {
		return fmt.Sprintf("%s()", o.Kind())
	}
	return fmt.Sprintf("%s(dias=%d)", o.Kind(), o.Days)
}

// Changes converts the optional fields into a catalog change set.
func (o UpdateProduct) Changes() catalog.Changes {
	return catalog.Changes{Name: o.Name, Price: o.Price, Stock: o.Stock, Category: o.Category}
}

// Product converts the request into the record to insert.
func (o AddProduct) Product() catalog.Product {
	return catalog.Product{
		ID:       o.ID,
		Name:     strings.TrimSpace(o.Name),
		Price:    o.Price,
		Stock:    o.Stock,
		Category: strings.TrimSpace(o.Category),
	}
}

// Build turns decoded arguments into a typed operation. Arguments are expected
// to have passed validation; missing required values still fail here.
func Build(kind Kind, a Args) (Operation, error) {
	switch kind {
	case KindLookupProduct:
		q := a.str(a.Query)
		if q == "" && a.ID != nil {
			q = strconv.Itoa(int(*a.ID))
		}
		if q == "" {
			return nil, missing(kind, "query")
		}
		return LookupProduct{Query: q}, nil
	case KindAddProduct:
		if a.ID == nil || a.Name == nil || a.Price == nil || a.Stock == nil || a.Category == nil {
			return nil, missing(kind, "id, nombre, precio, stock, categoria")
		}
		return AddProduct{
			ID:       int(*a.ID),
			Name:     *a.Name,
			Price:    *a.Price,
			Stock:    int(*a.Stock),
			Category: *a.Category,
		}, nil
	case KindUpdateProduct:
		if a.ID == nil {
			return nil, missing(kind, "id")
		}
		op := UpdateProduct{ID: int(*a.ID), Price: a.Price}
		if a.Name != nil {
			name := strings.TrimSpace(*a.Name)
			op.Name = &name
		}
		if a.Stock != nil {
			stock := int(*a.Stock)
			op.Stock = &stock
		}
		if a.Category != nil {
			category := strings.TrimSpace(*a.Category)
			op.Category = &category
		}
		return op, nil
	case KindUpdateStock:
		if a.ID == nil || a.Stock == nil {
			return nil, missing(kind, "id, stock")
		}
		return UpdateStock{ID: int(*a.ID), Stock: int(*a.Stock)}, nil
	case KindUpdatePrice:
		if a.ID == nil || a.Price == nil {
			return nil, missing(kind, "id, precio")
		}
		return UpdatePrice{ID: int(*a.ID), Price: *a.Price}, nil
	case KindGenerateReport:
		op := GenerateReport{}
		if a.Days != nil {
			op.Days = int(*a.Days)
		}
		return op, nil
	}
	return nil, fmt.Errorf("%w: unknown operation %q", ErrMalformedInput, kind)
}

func missing(kind Kind, fields string) error {
	return fmt.Errorf("%w: %s requires %s", ErrMalformedInput, kind, fields)
}

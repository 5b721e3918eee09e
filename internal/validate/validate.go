package validate

import (
	"errors"
	"math"
	"strings"

	"stockbot/internal/operation"
)

var ErrValidationFailed = errors.New("validate: invalid arguments")

// Error carries every violation found in one call.
type Error struct {
	Kind     operation.Kind
	Problems []string
}

func (e *Error) Error() string {
	return "validate: invalid arguments for " + string(e.Kind) + ": " + strings.Join(e.Problems, "; ")
}

func (e *Error) Unwrap() error { return ErrValidationFailed }

// Check is Validate returning an *Error when anything is wrong.
func Check(kind operation.Kind, a operation.Args) error {
	if problems := Validate(kind, a); len(problems) > 0 {
		return &Error{Kind: kind, Problems: problems}
	}
	return nil
}

// Validate returns every rule violation for the arguments; empty means valid.
// Rules are independent and none stops the others from running.
func Validate(kind operation.Kind, a operation.Args) []string {
	var problems []string
	add := func(msg string) { problems = append(problems, msg) }

	if a.ID != nil {
		checkPositiveInt("id", *a.ID, add)
	} else if needsID(kind) {
		add("id is required")
	}

	switch kind {
	case operation.KindUpdatePrice:
		if a.Price == nil {
			add("price is required")
		} else {
			checkPrice(*a.Price, add)
		}
	case operation.KindUpdateStock:
		if a.Stock == nil {
			add("stock is required")
		} else {
			checkStock(*a.Stock, add)
		}
	case operation.KindAddProduct, operation.KindUpdateProduct:
		if a.Price != nil {
			checkPrice(*a.Price, add)
		}
		if a.Stock != nil {
			checkStock(*a.Stock, add)
		}
		if kind == operation.KindAddProduct {
			if blank(a.Name) {
				add("name cannot be empty")
			}
			if blank(a.Category) {
				add("category cannot be empty")
			}
			if a.Price == nil {
				add("price is required")
			}
			if a.Stock == nil {
				add("stock is required")
			}
		} else {
			if a.Name != nil && blank(a.Name) {
				add("name cannot be empty")
			}
			if a.Category != nil && blank(a.Category) {
				add("category cannot be empty")
			}
			if a.Name == nil && a.Price == nil && a.Stock == nil && a.Category == nil {
				add("nothing to update: give at least one of nombre, precio, stock, categoria")
			}
		}
	case operation.KindGenerateReport:
		if a.Days != nil {
			checkPositiveInt("days", *a.Days, add)
		}
	case operation.KindLookupProduct:
		if blank(a.Query) && a.ID == nil {
			add("query is required")
		}
	}
	return problems
}

func needsID(kind operation.Kind) bool {
	switch kind {
	case operation.KindAddProduct, operation.KindUpdateProduct, operation.KindUpdateStock, operation.KindUpdatePrice:
		return true
	}
	return false
}

// NaN and infinities arrive from numeric strings ("NaN", "Inf") and must never
// reach a proposal: the catalog file cannot encode them.
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func inIntRange(v float64) bool {
	return finite(v) && math.Abs(v) <= math.MaxInt32
}

func checkPrice(v float64, add func(string)) {
	switch {
	case !finite(v):
		add("price must be a finite number")
	case v <= 0:
		add("price must be greater than 0")
	}
}

func checkStock(v float64, add func(string)) {
	if !inIntRange(v) {
		add("stock is out of range")
		return
	}
	if v < 0 {
		add("stock cannot be negative")
	}
	if v != math.Trunc(v) {
		add("stock must be a whole number")
	}
}

func checkPositiveInt(name string, v float64, add func(string)) {
	switch {
	case !inIntRange(v):
		add(name + " is out of range")
	case v != math.Trunc(v) || v <= 0:
		add(name + " must be a positive integer")
	}
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

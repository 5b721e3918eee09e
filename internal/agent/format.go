package agent

import (
	"fmt"
	"strings"

	"stockbot/internal/audit"
	"stockbot/internal/catalog"
)

// FormatLookup renders lookup results. Exactly one match gets the detail view
// with the low-stock flag; zero or several matches are listed as they are.
func FormatLookup(query string, products []catalog.Product) string {
	switch len(products) {
	case 0:
		return fmt.Sprintf("No product matches %q.", query)
	case 1:
		p := products[0]
		var b strings.Builder
		b.WriteString("Product found\n")
		fmt.Fprintf(&b, "ID: %d\n", p.ID)
		fmt.Fprintf(&b, "Name: %s\n", p.Name)
		fmt.Fprintf(&b, "Price: %s\n", catalog.FormatPrice(p.Price))
		fmt.Fprintf(&b, "Category: %s\n", p.Category)
		fmt.Fprintf(&b, "Stock: %d", p.Stock)
		if p.LowStock() {
			fmt.Fprintf(&b, "\nWarning: low stock (%d or fewer units).", catalog.LowStockThreshold)
		}
		return b.String()
	}
	lines := make([]string, 0, len(products)+1)
	lines = append(lines, fmt.Sprintf("%d products match %q:", len(products), query))
	for _, p := range products {
		lines = append(lines, "- "+p.String())
	}
	return strings.Join(lines, "\n")
}

// FormatHistory renders the history command output.
func FormatHistory(events []audit.Event) string {
	if len(events) == 0 {
		return "The history is empty."
	}
	var b strings.Builder
	b.WriteString("Recent history:\n")
	for _, ev := range events {
		b.WriteString("\n- ")
		b.WriteString(ev.String())
	}
	return b.String()
}

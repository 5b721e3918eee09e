package report

import (
	"fmt"
	"time"

	"stockbot/internal/audit"
	"stockbot/internal/catalog"
)

// DefaultDays is the activity window used when none is given.
const DefaultDays = 7

// Report is a point-in-time summary of the catalog and its recent history.
type Report struct {
	GeneratedAt    time.Time
	Days           int
	LowStock       []catalog.Product
	NewProducts    []audit.Event
	StockMovements []audit.Event
	PriceChanges   []audit.Event
}

// Build computes the four lists. It is pure: products and events are only read.
// Events whose timestamp does not parse are left out of every window.
func Build(products []catalog.Product, events []audit.Event, days int, now time.Time) Report {
	if days <= 0 {
		days = DefaultDays
	}
	cutoff := now.AddDate(0, 0, -days)
	r := Report{
		GeneratedAt: now,
		Days:        days,
		LowStock:    catalog.Catalog{Products: products}.LowStock(),
	}
	r.NewProducts = audit.Since(events, cutoff, func(ev audit.Event) bool {
		return ev.Action == audit.ActionAdd
	})
	r.StockMovements = audit.Since(events, cutoff, func(ev audit.Event) bool {
		return ev.Action == audit.ActionUpdateStock
	})
	r.PriceChanges = audit.Since(events, cutoff, func(ev audit.Event) bool {
		return ev.Field == catalog.FieldPrice
	})
	return r
}

// Section is one titled block of the rendered document.
type Section struct {
	Title string
	Lines []string
}

// EmptyLine marks a section with no entries.
const EmptyLine = "None."

// Sections returns the four blocks in their fixed order. An empty block holds
// the single line EmptyLine.
func (r Report) Sections() []Section {
	low := make([]string, 0, len(r.LowStock))
	for _, p := range r.LowStock {
		low = append(low, fmt.Sprintf("%d - %s -> Stock: %d", p.ID, p.Name, p.Stock))
	}
	added := make([]string, 0, len(r.NewProducts))
	for _, ev := range r.NewProducts {
		added = append(added, fmt.Sprintf("%s - ID %d %s = %s, added by %s",
			ev.Timestamp, ev.ProductID, ev.Field, audit.FormatValue(ev.NewValue), ev.Actor))
	}
	moves := make([]string, 0, len(r.StockMovements))
	for _, ev := range r.StockMovements {
		moves = append(moves, fmt.Sprintf("%s - %s changed ID %d %s -> %s",
			ev.Timestamp, ev.Actor, ev.ProductID, audit.FormatValue(ev.OldValue), audit.FormatValue(ev.NewValue)))
	}
	prices := make([]string, 0, len(r.PriceChanges))
	for _, ev := range r.PriceChanges {
		prices = append(prices, fmt.Sprintf("%s - %s changed price of ID %d %s -> %s",
			ev.Timestamp, ev.Actor, ev.ProductID, audit.FormatValue(ev.OldValue), audit.FormatValue(ev.NewValue)))
	}

	out := []Section{
		{Title: "Low stock products", Lines: low},
		{Title: fmt.Sprintf("New products (last %d days)", r.Days), Lines: added},
		{Title: "Stock movements", Lines: moves},
		{Title: "Price changes", Lines: prices},
	}
	for i := range out {
		if len(out[i].Lines) == 0 {
			out[i].Lines = []string{EmptyLine}
		}
	}
	return out
}

// Title is the document heading.
func (r Report) Title() string { return "Inventory Report" }

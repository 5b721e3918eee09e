package catalog

import (
	"fmt"
	"strings"

	"stockbot/internal/audit"
)

// Changes carries the fields to overwrite; nil fields are left untouched.
type Changes struct {
	Name     *string
	Price    *float64
	Stock    *int
	Category *string
}

func (c Changes) Empty() bool {
	return c.Name == nil && c.Price == nil && c.Stock == nil && c.Category == nil
}

// apply mutates p in place and returns one event per field whose value actually changed.
func (c Changes) apply(p *Product, actor string, action audit.Action) []audit.Event {
	var events []audit.Event
	record := func(field string, oldV, newV any) {
		events = append(events, audit.Event{
			Actor:     actor,
			Action:    action,
			ProductID: p.ID,
			Field:     field,
			OldValue:  oldV,
			NewValue:  newV,
		})
	}
	if c.Name != nil && *c.Name != p.Name {
		record(FieldName, p.Name, *c.Name)
		p.Name = *c.Name
	}
	if c.Price != nil && *c.Price != p.Price {
		record(FieldPrice, p.Price, *c.Price)
		p.Price = *c.Price
	}
	if c.Stock != nil && *c.Stock != p.Stock {
		record(FieldStock, p.Stock, *c.Stock)
		p.Stock = *c.Stock
	}
	if c.Category != nil && *c.Category != p.Category {
		record(FieldCategory, p.Category, *c.Category)
		p.Category = *c.Category
	}
	return events
}

// creationEvents records every field of a new product with a null previous value.
func creationEvents(p Product, actor string, action audit.Action) []audit.Event {
	fields := []struct {
		name  string
		value any
	}{
		{FieldID, p.ID},
		{FieldName, p.Name},
		{FieldPrice, p.Price},
		{FieldStock, p.Stock},
		{FieldCategory, p.Category},
	}
	events := make([]audit.Event, 0, len(fields))
	for _, f := range fields {
		events = append(events, audit.Event{
			Actor:     actor,
			Action:    action,
			ProductID: p.ID,
			Field:     f.name,
			OldValue:  nil,
			NewValue:  f.value,
		})
	}
	return events
}

func describeEvents(events []audit.Event) string {
	parts := make([]string, 0, len(events))
	for _, ev := range events {
		parts = append(parts, fmt.Sprintf("%s %s -> %s", ev.Field, audit.FormatValue(ev.OldValue), audit.FormatValue(ev.NewValue)))
	}
	return strings.Join(parts, "; ")
}

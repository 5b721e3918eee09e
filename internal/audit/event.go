package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// TimeLayout is the on-disk timestamp format of the history file.
const TimeLayout = "2006-01-02 15:04:05"

var ErrMalformed = errors.New("audit: malformed history document")

// Action tags which mutation produced an event. The values are the tags already
// present in deployed history files and must not change.
type Action string

const (
	ActionAdd              Action = "agregar_producto"
	ActionUpdateProduct    Action = "actualizar_producto"
	ActionUpdateStock      Action = "actualizar_stock"
	ActionUpdatePrice      Action = "actualizar_precio"
	ActionBulkImportUpdate Action = "importar_masivo"
	ActionBulkImportNew    Action = "importar_nuevo_producto"
)

// Event is one immutable record of a single field change.
// OldValue is nil for fields of a freshly created product.
type Event struct {
	Actor     string `json:"usuario"`
	Action    Action `json:"accion"`
	ProductID int    `json:"producto_id"`
	Field     string `json:"campo"`
	OldValue  any    `json:"valor_anterior"`
	NewValue  any    `json:"valor_nuevo"`
	Timestamp string `json:"fecha"`
}

// Time parses the event timestamp in local time.
func (e Event) Time() (time.Time, error) {
	return time.ParseInLocation(TimeLayout, strings.TrimSpace(e.Timestamp), time.Local)
}

// String renders the event as a single history line.
func (e Event) String() string {
	return fmt.Sprintf("%s | %s | %s | product %d | %s: %s -> %s",
		e.Timestamp, e.Actor, e.Action, e.ProductID, e.Field, FormatValue(e.OldValue), FormatValue(e.NewValue))
}

// FormatValue prints a history value the way it is shown to users.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case float64:
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%g", x)
	case float32:
		return FormatValue(float64(x))
	default:
		return fmt.Sprint(x)
	}
}

// Document is the whole history file.
type Document struct {
	Events []Event `json:"historial"`
}

// Store is an append-only sink for events.
type Store interface {
	Append(ctx context.Context, events ...Event) error
	Load(ctx context.Context) ([]Event, error)
}

// Stamp assigns the same timestamp to every event that has none.
func Stamp(events []Event, now time.Time) []Event {
	ts := now.Format(TimeLayout)
	for i := range events {
		if strings.TrimSpace(events[i].Timestamp) == "" {
			events[i].Timestamp = ts
		}
	}
	return events
}

package operation

import "strings"

// Kind names an operation the assistant can run. The string value is also the
// tool name declared to the model.
type Kind string

const (
	KindLookupProduct  Kind = "lookup_product"
	KindAddProduct     Kind = "add_product"
	KindUpdateProduct  Kind = "update_product"
	KindUpdateStock    Kind = "update_stock"
	KindUpdatePrice    Kind = "update_price"
	KindGenerateReport Kind = "generate_report"
)

var kinds = []Kind{
	KindLookupProduct,
	KindAddProduct,
	KindUpdateProduct,
	KindUpdateStock,
	KindUpdatePrice,
	KindGenerateReport,
}

// legacyNames are the tool names used by the first deployment; models primed
// with older conversations still emit them.
var legacyNames = map[string]Kind{
	"leer_producto":       KindLookupProduct,
	"agregar_producto":    KindAddProduct,
	"actualizar_producto": KindUpdateProduct,
	"actualizar_stock":    KindUpdateStock,
	"actualizar_precio":   KindUpdatePrice,
	"generar_reporte":     KindGenerateReport,
}

// Kinds returns every kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

// ParseKind resolves a tool name (current or legacy) to a Kind.
func ParseKind(name string) (Kind, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, k := range kinds {
		if string(k) == n {
			return k, true
		}
	}
	k, ok := legacyNames[n]
	return k, ok
}

// Mutating reports whether the kind changes the catalog and therefore needs
// explicit confirmation.
func (k Kind) Mutating() bool {
	switch k {
	case KindAddProduct, KindUpdateProduct, KindUpdateStock, KindUpdatePrice:
		return true
	}
	return false
}

func (k Kind) String() string { return string(k) }

package operation

import (
	"fmt"
	"reflect"
	"strings"
)

// Param describes one argument of a declared tool.
type Param struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
}

// Spec is the tool contract handed to the model.
type Spec struct {
	Kind        Kind    `json:"name"`
	Description string  `json:"description"`
	Params      []Param `json:"params"`
}

var descriptions = map[Kind]string{
	KindLookupProduct:  "Look up products by id, or by text contained in the name or category.",
	KindAddProduct:     "Add a new product to the catalog.",
	KindUpdateProduct:  "Change several fields of an existing product at once.",
	KindUpdateStock:    "Change only the stock of a product.",
	KindUpdatePrice:    "Change only the price of a product.",
	KindGenerateReport: "Generate the inventory PDF report covering the last N days.",
}

var shapes = map[Kind]any{
	KindLookupProduct:  LookupProduct{},
	KindAddProduct:     AddProduct{},
	KindUpdateProduct:  UpdateProduct{},
	KindUpdateStock:    UpdateStock{},
	KindUpdatePrice:    UpdatePrice{},
	KindGenerateReport: GenerateReport{},
}

// Specs lists every tool in Kinds order. Parameters are derived from the typed
// operation structs so the declared contract and the decoded shape agree.
func Specs() []Spec {
	out := make([]Spec, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, Spec{
			Kind:        k,
			Description: descriptions[k],
			Params:      mustParams(shapes[k]),
		})
	}
	return out
}

// SpecsFor lists only the tools in allowed, keeping Kinds order.
func SpecsFor(allowed func(Kind) bool) []Spec {
	var out []Spec
	for _, s := range Specs() {
		if allowed == nil || allowed(s.Kind) {
			out = append(out, s)
		}
	}
	return out
}

// Required returns the names of the required parameters.
func (s Spec) Required() []string {
	var out []string
	for _, p := range s.Params {
		if p.Required {
			out = append(out, p.Name)
		}
	}
	return out
}

// JSONSchema renders the parameters as a JSON-schema object, the shape both
// chat-completions and function-declaration APIs expect.
func (s Spec) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.Params))
	for _, p := range s.Params {
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		props[p.Name] = prop
	}
	required := s.Required()
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// paramsFromStruct reads json/desc/param tags. Pointer fields and fields tagged
// param:"optional" are optional; everything else is required.
func paramsFromStruct(v any) ([]Param, error) {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("operation: expected struct, got %v", t)
	}
	params := make([]Param, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := strings.Split(f.Tag.Get("json"), ",")[0]
		if name == "" || name == "-" {
			continue
		}
		required := f.Type.Kind() != reflect.Pointer
		if strings.TrimSpace(f.Tag.Get("param")) == "optional" {
			required = false
		}
		params = append(params, Param{
			Name:        name,
			Type:        schemaType(f.Type),
			Required:    required,
			Description: strings.TrimSpace(f.Tag.Get("desc")),
		})
	}
	return params, nil
}

func mustParams(v any) []Param {
	p, err := paramsFromStruct(v)
	if err != nil {
		panic(err)
	}
	return p
}

func schemaType(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	default:
		return "object"
	}
}

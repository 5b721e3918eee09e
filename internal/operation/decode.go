package operation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrMalformedInput = errors.New("operation: malformed arguments")

// Args is the loose form of a tool call's arguments. Nil means the key was
// absent (or null). Numbers are kept as float64 so the validator can tell a
// fractional stock from a whole one.
type Args struct {
	ID       *float64
	Name     *string
	Price    *float64
	Stock    *float64
	Category *string
	Query    *string
	Days     *float64
}

// keyAliases maps English argument names some models prefer to the declared ones.
var keyAliases = map[string]string{
	"name":       "nombre",
	"price":      "precio",
	"category":   "categoria",
	"days":       "dias",
	"product_id": "id",
}

// Decode parses the model's flat argument object. An empty payload decodes to
// empty Args; anything that is not a JSON object, or a value of the wrong
// primitive type, is ErrMalformedInput. Unknown keys are ignored.
func Decode(raw json.RawMessage) (Args, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Args{}, nil
	}
	// some backends send the arguments as a JSON string holding the object
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return Args{}, fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}
		return Decode(json.RawMessage(inner))
	}
	if raw[0] != '{' {
		return Args{}, fmt.Errorf("%w: arguments are not an object", ErrMalformedInput)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Args{}, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	var a Args
	for key, v := range fields {
		k := strings.ToLower(strings.TrimSpace(key))
		if alias, ok := keyAliases[k]; ok {
			k = alias
		}
		if isNull(v) {
			continue
		}
		var err error
		switch k {
		case "id":
			a.ID, err = decodeNumber(k, v)
		case "precio":
			a.Price, err = decodeNumber(k, v)
		case "stock":
			a.Stock, err = decodeNumber(k, v)
		case "dias":
			a.Days, err = decodeNumber(k, v)
		case "nombre":
			a.Name, err = decodeString(k, v, false)
		case "categoria":
			a.Category, err = decodeString(k, v, false)
		case "query":
			a.Query, err = decodeString(k, v, true)
		}
		if err != nil {
			return Args{}, err
		}
	}
	return a, nil
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

// decodeNumber accepts JSON numbers and numeric strings ("12.5").
func decodeNumber(key string, v json.RawMessage) (*float64, error) {
	var f float64
	if err := json.Unmarshal(v, &f); err == nil {
		return &f, nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
		if parsed, perr := strconv.ParseFloat(s, 64); perr == nil {
			return &parsed, nil
		}
	}
	return nil, fmt.Errorf("%w: %q must be a number, got %s", ErrMalformedInput, key, string(v))
}

// decodeString accepts JSON strings; numbers are accepted only when allowNumber
// is set, for free-text fields like the lookup query.
func decodeString(key string, v json.RawMessage, allowNumber bool) (*string, error) {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return &s, nil
	}
	if allowNumber {
		var n json.Number
		if err := json.Unmarshal(v, &n); err == nil {
			s = n.String()
			return &s, nil
		}
	}
	return nil, fmt.Errorf("%w: %q must be a string, got %s", ErrMalformedInput, key, string(v))
}

func (Args) str(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

package permission

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"stockbot/internal/operation"
)

var ErrDenied = errors.New("permission: operation not allowed for role")

// Role names.
const (
	RoleReader     = "reader"
	RoleOperator   = "operator"
	RoleSupervisor = "supervisor"
	RoleAdmin      = "admin"
)

// aliases maps role names used by older user directories.
var aliases = map[string]string{
	"lector":   RoleReader,
	"empleado": RoleReader,
	"operador": RoleOperator,
}

// table is fixed at startup and never written afterwards.
var table = map[string]map[operation.Kind]bool{
	RoleReader: {
		operation.KindLookupProduct: true,
	},
	RoleOperator: {
		operation.KindLookupProduct: true,
		operation.KindUpdateStock:   true,
		operation.KindUpdateProduct: true,
	},
	RoleSupervisor: {
		operation.KindLookupProduct: true,
		operation.KindUpdateStock:   true,
		operation.KindUpdateProduct: true,
		operation.KindUpdatePrice:   true,
	},
	RoleAdmin: {
		operation.KindLookupProduct:  true,
		operation.KindAddProduct:     true,
		operation.KindUpdateProduct:  true,
		operation.KindUpdateStock:    true,
		operation.KindUpdatePrice:    true,
		operation.KindGenerateReport: true,
	},
}

// Normalize maps a stored role name to its canonical form.
func Normalize(role string) string {
	r := strings.ToLower(strings.TrimSpace(role))
	if canonical, ok := aliases[r]; ok {
		return canonical
	}
	return r
}

// Allowed reports whether role may run op. Unknown roles are denied everything.
func Allowed(role string, op operation.Kind) bool {
	return table[Normalize(role)][op]
}

// Check is Allowed returning an error that names the blocked operation.
func Check(role string, op operation.Kind) error {
	if Allowed(role, op) {
		return nil
	}
	return fmt.Errorf("%w: role %q cannot run %s", ErrDenied, role, op)
}

// Known reports whether role (or one of its aliases) is defined.
func Known(role string) bool {
	_, ok := table[Normalize(role)]
	return ok
}

// Operations lists what role may run, sorted by name.
func Operations(role string) []operation.Kind {
	var out []operation.Kind
	for k, ok := range table[Normalize(role)] {
		if ok {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

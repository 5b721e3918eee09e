package intent

import (
	"regexp"
	"strconv"
	"strings"
)

// Class is the route chosen for a message.
type Class int

const (
	Delegate Class = iota
	LocalCommand
	Lookup
)

func (c Class) String() string {
	switch c {
	case LocalCommand:
		return "local_command"
	case Lookup:
		return "lookup"
	default:
		return "delegate"
	}
}

// Command names a local command.
type Command string

const CommandHistory Command = "history"

// Intent is the classification of one message.
type Intent struct {
	Class     Class
	Command   Command
	ProductID int
	Text      string
}

var localCommands = map[string]Command{
	"show history":  CommandHistory,
	"history":       CommandHistory,
	"ver historial": CommandHistory,
	"historial":     CommandHistory,
}

// lookupPattern matches "producto 12", "info about product 12", "id 30",
// "muéstrame el producto 7" and similar.
var lookupPattern = regexp.MustCompile(
	`(?i)\b(?:producto|product|informaci[oó]n|info|ver|mostrar|mu[eé]strame|show|find|datos|dato|id)` +
		`\s*(?:(?:del|de|sobre|about|of|for|el|la|the)\s+)*` +
		`(?:(?:producto|product|id)\b\s*)?#?(\d+)\b`)

// mutationWords mark messages that mention a product id but ask for a change;
// those go to the model instead of the lookup shortcut.
var mutationWords = regexp.MustCompile(
	`(?i)\b(?:actualiza\w*|cambia\w*|modifica\w*|pon|poner|sube|subir|baja|bajar|agrega\w*|a[nñ]ade\w*|a[nñ]adir|elimina\w*|borra\w*|set|update|change|add|increase|decrease|raise|lower)\b`)

// Resolve classifies raw input. Matching is on the trimmed text; local commands
// must match exactly (case-insensitive).
func Resolve(text string) Intent {
	trimmed := strings.TrimSpace(text)
	norm := strings.ToLower(trimmed)
	if cmd, ok := localCommands[norm]; ok {
		return Intent{Class: LocalCommand, Command: cmd, Text: trimmed}
	}
	if id, ok := LookupID(trimmed); ok {
		return Intent{Class: Lookup, ProductID: id, Text: trimmed}
	}
	return Intent{Class: Delegate, Text: trimmed}
}

// LookupID extracts the product id of a direct lookup request.
func LookupID(text string) (int, bool) {
	if mutationWords.MatchString(text) {
		return 0, false
	}
	m := lookupPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return id, true
}

var (
	affirmative = set("yes", "y", "ok", "okay", "confirm", "confirmed", "si", "sí", "s", "vale", "confirmo", "confirmar", "dale")
	negative    = set("no", "n", "cancel", "cancelar", "cancela", "nope")
)

func set(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// normalizeReply lowercases and drops surrounding whitespace and punctuation,
// so "Sí!" and " ok. " count.
func normalizeReply(text string) string {
	return strings.Trim(strings.ToLower(strings.TrimSpace(text)), " .,!¡?¿")
}

// Affirmative reports whether text is an explicit confirmation.
func Affirmative(text string) bool {
	_, ok := affirmative[normalizeReply(text)]
	return ok
}

// Negative reports whether text is an explicit rejection.
func Negative(text string) bool {
	_, ok := negative[normalizeReply(text)]
	return ok
}

package inventory

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeCategory deja la categoría en minúsculas (reglas del español) y sin espacios extremos,
// para que "Medicamentos" y " medicamentos" caigan en el mismo alcance de reportes.
func NormalizeCategory(category string) string {
	return cases.Lower(language.Spanish).String(strings.TrimSpace(category))
}

// Package normalize normaliza textos de negocio (códigos de insumo).
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Code normaliza un código de insumo: quita tildes, colapsa espacios internos a guion,
// y pasa a mayúsculas. "  guá 001 " -> "GUA-001".
func Code(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = strings.Join(strings.Fields(out), "-")
	return strings.ToUpper(out)
}

// Name recorta y colapsa espacios, sin cambiar mayúsculas ni tildes.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

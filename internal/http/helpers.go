package http

import (
	"strings"
	"unicode/utf8"

	"budgetly/internal/catalog"
	"budgetly/internal/core"
)

// formatMoney renders m with the currency symbol from the catalog, e.g.
// "£1,234.50". Unknown or unset currencies fall back to the bare amount.
func formatMoney(cat catalog.Catalog, code core.Currency, m core.Money) string {
	neg := m.Cents < 0
	if neg {
		m.Cents = -m.Cents
	}
	s := groupThousands(m.String())
	if c, ok := cat.Currency(code); ok && c.Symbol != "" {
		s = c.Symbol + s
	}
	if neg {
		return "-" + s
	}
	return s
}

// groupThousands inserts commas into the integer part of a "1234.56" string.
func groupThousands(s string) string {
	intPart, frac, _ := strings.Cut(s, ".")
	if len(intPart) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// sanitizeUserID accepts opaque user identifiers from the auth proxy.
func sanitizeUserID(s string) string {
	s = sanitizeInput(s)
	if len(s) > 128 || strings.ContainsAny(s, "\t\r\n") {
		return ""
	}
	return s
}

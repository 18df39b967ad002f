package objectstore

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SortNatural sorts names case-insensitively with digit runs compared as
// numbers, so doc2.pdf sorts before doc10.pdf.
func SortNatural(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		return naturalLess(names[i], names[j])
	})
}

func naturalLess(a, b string) bool {
	a, b = strings.ToLower(a), strings.ToLower(b)
	for a != "" && b != "" {
		ca, na := utf8.DecodeRuneInString(a)
		cb, nb := utf8.DecodeRuneInString(b)
		if unicode.IsDigit(ca) && unicode.IsDigit(cb) {
			da, resta := splitDigits(a)
			db, restb := splitDigits(b)
			if da != db {
				// Numeric runs compare by length first, then lexically;
				// leading zeros are stripped beforehand.
				if len(da) != len(db) {
					return len(da) < len(db)
				}
				return da < db
			}
			a, b = resta, restb
			continue
		}
		if ca != cb {
			return ca < cb
		}
		a, b = a[na:], b[nb:]
	}
	return len(a) < len(b)
}

func splitDigits(s string) (digits, rest string) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	digits = strings.TrimLeft(s[:i], "0")
	if digits == "" {
		digits = "0"
	}
	return digits, s[i:]
}

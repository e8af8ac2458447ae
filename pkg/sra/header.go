package sra

import "strings"

// PrettyHeader turns a camelCase or PascalCase attribute name into
// snake_case. An underscore goes before an uppercase letter that follows a
// lowercase one, or that precedes a lowercase one and is not the first
// character, so acronym runs stay together: "LibraryLayout" becomes
// "library_layout", "ID" becomes "id" and "RNASeq" becomes "rna_seq".
// Only ASCII letters take part in the boundary test.
func PrettyHeader(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)

	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUpper(c) && i > 0 {
			afterLower := isLower(s[i-1])
			beforeLower := i+1 < len(s) && isLower(s[i+1])
			if afterLower || beforeLower {
				b.WriteByte('_')
			}
		}
		b.WriteByte(c)
	}

	return strings.ToLower(b.String())
}

func isUpper(c byte) bool { return 'A' <= c && c <= 'Z' }

func isLower(c byte) bool { return 'a' <= c && c <= 'z' }

package asm

import (
	"strconv"
	"strings"
)

// EscapeString quotes s as a GNU as string literal. Bytes are escaped
// individually; non-printable ones become three-digit octal escapes.
func EscapeString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			b.WriteString(`\"`)
		case c == '\\':
			b.WriteString(`\\`)
		case c >= 0x20 && c <= 0x7e:
			b.WriteByte(c)
		case c == '\b':
			b.WriteString(`\b`)
		case c == '\t':
			b.WriteString(`\t`)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\f':
			b.WriteString(`\f`)
		case c == '\r':
			b.WriteString(`\r`)
		default:
			oct := strconv.FormatUint(uint64(c), 8)
			b.WriteByte('\\')
			b.WriteString(strings.Repeat("0", 3-len(oct)))
			b.WriteString(oct)
		}
	}
	b.WriteByte('"')
	return b.String()
}

package receipt

import "strings"

const upperhex = "0123456789ABCDEF"

// EscapeComponent percent-encodes s the way a browser's encodeURIComponent
// does: every byte of the UTF-8 form is escaped except A-Z a-z 0-9 and
// - _ . ! ~ * ' ( ).
//
// url.QueryEscape is not equivalent: it writes spaces as '+' and escapes
// ! ' ( ) *, which would change the bytes of every receipt URL.
func EscapeComponent(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}

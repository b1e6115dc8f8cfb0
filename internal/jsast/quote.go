package jsast

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// QuoteString renders s as a double-quoted JavaScript string literal.
func QuoteString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		case '\u2028', '\u2029':
			fmt.Fprintf(&b, `\u%04x`, r)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\u%04x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

// UnquoteString decodes a single- or double-quoted ECMAScript 5 string
// literal, including legacy octal escapes and line continuations. Lone
// surrogates decode to U+FFFD.
func UnquoteString(lit string) (string, error) {
	if len(lit) < 2 || (lit[0] != '"' && lit[0] != '\'') || lit[len(lit)-1] != lit[0] {
		return "", fmt.Errorf("not a string literal: %s", lit)
	}
	body := lit[1 : len(lit)-1]
	if !strings.Contains(body, `\`) {
		return body, nil
	}

	var b strings.Builder
	b.Grow(len(body))
	for i := 0; i < len(body); {
		c := body[i]
		if c != '\\' {
			b.WriteByte(c)
			i++
			continue
		}
		i++
		if i >= len(body) {
			return "", fmt.Errorf("unterminated escape in %s", lit)
		}
		r, size := utf8.DecodeRuneInString(body[i:])
		switch r {
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'v':
			b.WriteByte('\v')
		case '\r':
			if i+1 < len(body) && body[i+1] == '\n' {
				size = 2
			}
		case '\n', '\u2028', '\u2029':
		case 'x':
			v, err := parseHex(body, i+1, 2)
			if err != nil {
				return "", fmt.Errorf("invalid escape in %s: %w", lit, err)
			}
			b.WriteRune(rune(v))
			size = 3
		case 'u':
			v, err := parseHex(body, i+1, 4)
			if err != nil {
				return "", fmt.Errorf("invalid escape in %s: %w", lit, err)
			}
			size = 5
			if utf16.IsSurrogate(rune(v)) {
				lo, ok := lowSurrogate(body, i+5)
				if ok && v < 0xdc00 {
					b.WriteRune(utf16.DecodeRune(rune(v), lo))
					size += 6
				} else {
					b.WriteRune(utf8.RuneError)
				}
			} else {
				b.WriteRune(rune(v))
			}
		case '0', '1', '2', '3', '4', '5', '6', '7':
			maxLen := 2
			if r <= '3' {
				maxLen = 3
			}
			size = 1
			for size < maxLen && i+size < len(body) && body[i+size] >= '0' && body[i+size] <= '7' {
				size++
			}
			v, _ := strconv.ParseUint(body[i:i+size], 8, 32)
			b.WriteRune(rune(v))
		default:
			b.WriteRune(r)
		}
		i += size
	}
	return b.String(), nil
}

func parseHex(s string, start, n int) (uint64, error) {
	if start+n > len(s) {
		return 0, fmt.Errorf("truncated hex escape")
	}
	return strconv.ParseUint(s[start:start+n], 16, 32)
}

func lowSurrogate(s string, start int) (rune, bool) {
	if start+6 > len(s) || s[start] != '\\' || s[start+1] != 'u' {
		return 0, false
	}
	v, err := parseHex(s, start+2, 4)
	if err != nil || v < 0xdc00 || v > 0xdfff {
		return 0, false
	}
	return rune(v), true
}

package syntax

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// StringValue returns the decoded value of a string literal node. Template
// strings and anything else that is not a plain string literal report false.
func (n *Node) StringValue() (string, bool) {
	if n == nil || n.Kind != "string" {
		return "", false
	}
	raw := n.Text()
	if len(raw) < 2 {
		return "", false
	}
	quote := raw[0]
	if (quote != '\'' && quote != '"') || raw[len(raw)-1] != quote {
		return "", false
	}
	return unescape(raw[1 : len(raw)-1]), true
}

// unescape decodes JavaScript string escape sequences. Malformed escapes
// decode to the escaped character itself, as JavaScript engines do in
// sloppy mode.
func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch e := s[i]; e {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '0':
			b.WriteByte(0)
		case '\n':
			// line continuation
		case '\r':
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
		case 'x':
			if r, ok := parseHex(s, i+1, 2); ok {
				b.WriteRune(r)
				i += 2
			} else {
				b.WriteByte(e)
			}
		case 'u':
			if i+1 < len(s) && s[i+1] == '{' {
				end := strings.IndexByte(s[i+1:], '}')
				if end > 1 {
					if r, ok := parseHex(s, i+2, end-1); ok {
						b.WriteRune(r)
						i += end + 1
						continue
					}
				}
				b.WriteByte(e)
			} else if r, ok := parseHex(s, i+1, 4); ok {
				b.WriteRune(r)
				i += 4
			} else {
				b.WriteByte(e)
			}
		default:
			r, size := utf8.DecodeRuneInString(s[i:])
			b.WriteRune(r)
			i += size - 1
		}
	}
	return b.String()
}

func parseHex(s string, at, width int) (rune, bool) {
	if at+width > len(s) {
		return 0, false
	}
	v, err := strconv.ParseUint(s[at:at+width], 16, 32)
	if err != nil || v > utf8.MaxRune {
		return 0, false
	}
	return rune(v), true
}

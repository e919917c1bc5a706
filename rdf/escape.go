package rdf

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	unicodeSurrogateHighStart = 0xD800
	unicodeSurrogateHighEnd   = 0xDBFF
	unicodeSurrogateLowStart  = 0xDC00
	unicodeSurrogateLowEnd    = 0xDFFF
	unicodeSurrogateBase      = 0x10000
)

// UnescapeString decodes the string escapes (ECHAR and UCHAR) shared by
// N-Triples, N-Quads, Turtle and TriG.
func UnescapeString(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}
	var builder strings.Builder
	builder.Grow(len(s))
	for pos := 0; pos < len(s); {
		ch := s[pos]
		if ch != '\\' {
			builder.WriteByte(ch)
			pos++
			continue
		}
		if pos+1 >= len(s) {
			return "", fmt.Errorf("unterminated escape")
		}
		switch next := s[pos+1]; next {
		case 'n':
			builder.WriteByte('\n')
		case 't':
			builder.WriteByte('\t')
		case 'r':
			builder.WriteByte('\r')
		case 'b':
			builder.WriteByte('\b')
		case 'f':
			builder.WriteByte('\f')
		case '"', '\'', '\\':
			builder.WriteByte(next)
		case 'u', 'U':
			width := 4
			if next == 'U' {
				width = 8
			}
			r, advance, err := decodeUnicodeEscape(s, pos, width)
			if err != nil {
				return "", err
			}
			builder.WriteRune(r)
			pos += advance
			continue
		default:
			return "", fmt.Errorf("invalid escape sequence \\%c", next)
		}
		pos += 2
	}
	return builder.String(), nil
}

// decodeUnicodeEscape decodes \uXXXX or \UXXXXXXXX at s[pos:]. A high
// surrogate must be followed by an escaped low surrogate.
func decodeUnicodeEscape(s string, pos, width int) (rune, int, error) {
	end := pos + 2 + width
	if end > len(s) {
		return 0, 0, fmt.Errorf("truncated unicode escape")
	}
	codePoint, ok := decodeHex(s[pos+2 : end])
	if !ok {
		return 0, 0, fmt.Errorf("invalid unicode escape %q", s[pos:end])
	}
	if codePoint >= unicodeSurrogateHighStart && codePoint <= unicodeSurrogateHighEnd {
		if end+6 > len(s) || s[end] != '\\' || s[end+1] != 'u' {
			return 0, 0, fmt.Errorf("unpaired surrogate in %q", s[pos:end])
		}
		low, ok := decodeHex(s[end+2 : end+6])
		if !ok || low < unicodeSurrogateLowStart || low > unicodeSurrogateLowEnd {
			return 0, 0, fmt.Errorf("unpaired surrogate in %q", s[pos:end])
		}
		combined := unicodeSurrogateBase + (codePoint-unicodeSurrogateHighStart)<<10 + (low - unicodeSurrogateLowStart)
		return combined, end + 6 - pos, nil
	}
	if codePoint >= unicodeSurrogateLowStart && codePoint <= unicodeSurrogateLowEnd || codePoint > utf8.MaxRune {
		return 0, 0, fmt.Errorf("invalid code point in %q", s[pos:end])
	}
	return codePoint, end - pos, nil
}

func decodeHex(hex string) (rune, bool) {
	var value rune
	for i := 0; i < len(hex); i++ {
		ch := hex[i]
		switch {
		case ch >= '0' && ch <= '9':
			value = value*16 + rune(ch-'0')
		case ch >= 'a' && ch <= 'f':
			value = value*16 + rune(ch-'a') + 10
		case ch >= 'A' && ch <= 'F':
			value = value*16 + rune(ch-'A') + 10
		default:
			return 0, false
		}
	}
	return value, true
}

// escapeLiteral escapes a lexical form for a double-quoted N-Triples or
// Turtle string.
func escapeLiteral(s string) string {
	var builder strings.Builder
	builder.Grow(len(s) + 2)
	for _, r := range s {
		switch r {
		case '"':
			builder.WriteString(`\"`)
		case '\\':
			builder.WriteString(`\\`)
		case '\n':
			builder.WriteString(`\n`)
		case '\r':
			builder.WriteString(`\r`)
		case '\t':
			builder.WriteString(`\t`)
		case '\b':
			builder.WriteString(`\b`)
		case '\f':
			builder.WriteString(`\f`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&builder, `\u%04X`, r)
			} else {
				builder.WriteRune(r)
			}
		}
	}
	return builder.String()
}

// escapeIRI escapes characters that may not appear inside <...>.
func escapeIRI(s string) string {
	needs := false
	for i := 0; i < len(s); i++ {
		if isIRIExcluded(s[i]) {
			needs = true
			break
		}
	}
	if !needs {
		return s
	}
	var builder strings.Builder
	for i := 0; i < len(s); i++ {
		if isIRIExcluded(s[i]) {
			fmt.Fprintf(&builder, `\u%04X`, s[i])
			continue
		}
		builder.WriteByte(s[i])
	}
	return builder.String()
}

func isIRIExcluded(ch byte) bool {
	switch ch {
	case '<', '>', '"', '{', '}', '|', '^', '`', '\\':
		return true
	}
	return ch <= 0x20
}

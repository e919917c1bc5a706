package jsonld

import "strings"

// StripBlankGraphLabels removes blank node graph labels from N-Quads text.
// Graph engines without named graph support may label every statement with a
// placeholder blank graph; on any line whose fourth term is a blank node
// label, exactly that term is dropped. Quoted literals count as one term.
// Other lines are returned unchanged.
func StripBlankGraphLabels(nquads string) string {
	lines := strings.Split(nquads, "\n")
	for i, line := range lines {
		spans := termSpans(line, 4)
		if len(spans) < 4 || !strings.HasPrefix(line[spans[3][0]:], "_:") {
			continue
		}
		lines[i] = line[:spans[2][1]] + line[spans[3][1]:]
	}
	return strings.Join(lines, "\n")
}

// termSpans returns the [start, end) offsets of up to max N-Quads terms of
// line. A term is an IRI in angle brackets, a quoted literal with its
// language tag or datatype, or any other run of non-space bytes.
func termSpans(line string, max int) [][2]int {
	var spans [][2]int
	i := 0
	for len(spans) < max {
		for i < len(line) && isNQuadsSpace(line[i]) {
			i++
		}
		if i >= len(line) {
			break
		}
		start := i
		switch line[i] {
		case '<':
			i = skipIRI(line, i)
		case '"':
			i = skipLiteral(line, i)
		default:
			for i < len(line) && !isNQuadsSpace(line[i]) {
				i++
			}
		}
		spans = append(spans, [2]int{start, i})
	}
	return spans
}

func skipIRI(line string, i int) int {
	if end := strings.IndexByte(line[i:], '>'); end >= 0 {
		return i + end + 1
	}
	return len(line)
}

func skipLiteral(line string, i int) int {
	i++
	for i < len(line) && line[i] != '"' {
		if line[i] == '\\' {
			i++
		}
		i++
	}
	if i >= len(line) {
		return len(line)
	}
	i++
	switch {
	case strings.HasPrefix(line[i:], "^^<"):
		return skipIRI(line, i+2)
	case i < len(line) && line[i] == '@':
		for i < len(line) && !isNQuadsSpace(line[i]) {
			i++
		}
	}
	return i
}

func isNQuadsSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r'
}

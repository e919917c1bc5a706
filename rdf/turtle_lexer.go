package rdf

import (
	"fmt"
	"strings"
)

type turtleTokenKind int

const (
	tokEOF turtleTokenKind = iota
	tokIRIRef
	tokPName
	tokBlankNode
	tokString
	tokInteger
	tokDecimal
	tokDouble
	tokBoolean
	tokA
	tokPrefix
	tokBase
	tokGraph
	tokLangTag
	tokDatatypeMark
	tokDot
	tokComma
	tokSemicolon
	tokLBracket
	tokRBracket
	tokLParen
	tokRParen
	tokLBrace
	tokRBrace
)

func (k turtleTokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokIRIRef:
		return "IRI"
	case tokPName:
		return "prefixed name"
	case tokBlankNode:
		return "blank node"
	case tokString:
		return "string"
	case tokInteger, tokDecimal, tokDouble:
		return "number"
	case tokBoolean:
		return "boolean"
	case tokA:
		return "'a'"
	case tokPrefix:
		return "prefix directive"
	case tokBase:
		return "base directive"
	case tokGraph:
		return "GRAPH"
	case tokLangTag:
		return "language tag"
	case tokDatatypeMark:
		return "'^^'"
	case tokDot:
		return "'.'"
	case tokComma:
		return "','"
	case tokSemicolon:
		return "';'"
	case tokLBracket:
		return "'['"
	case tokRBracket:
		return "']'"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokLBrace:
		return "'{'"
	case tokRBrace:
		return "'}'"
	default:
		return fmt.Sprintf("token(%d)", int(k))
	}
}

type turtleToken struct {
	kind turtleTokenKind
	// text is the unescaped value: IRI without brackets, string contents,
	// prefixed name, blank node label, language tag or keyword spelling.
	text   string
	line   int
	column int
}

var punctuation = map[byte]turtleTokenKind{
	',': tokComma, ';': tokSemicolon, '[': tokLBracket, ']': tokRBracket,
	'(': tokLParen, ')': tokRParen, '{': tokLBrace, '}': tokRBrace,
}

type turtleScanner struct {
	input     string
	pos       int
	line      int
	lineStart int
}

func newTurtleScanner(input string) *turtleScanner {
	input = strings.TrimPrefix(input, "\ufeff")
	return &turtleScanner{input: input, line: 1}
}

func (s *turtleScanner) errorf(format string, args ...interface{}) error {
	return &ParseError{
		Format:    "turtle",
		Statement: s.currentLine(),
		Line:      s.line,
		Column:    s.pos - s.lineStart + 1,
		Err:       fmt.Errorf(format, args...),
	}
}

func (s *turtleScanner) currentLine() string {
	end := strings.IndexByte(s.input[s.lineStart:], '\n')
	if end < 0 {
		return s.input[s.lineStart:]
	}
	return s.input[s.lineStart : s.lineStart+end]
}

func (s *turtleScanner) advance(n int) {
	for i := 0; i < n && s.pos < len(s.input); i++ {
		if s.input[s.pos] == '\n' {
			s.line++
			s.lineStart = s.pos + 1
		}
		s.pos++
	}
}

func (s *turtleScanner) skipWS() {
	for s.pos < len(s.input) {
		switch s.input[s.pos] {
		case ' ', '\t', '\r', '\n':
			s.advance(1)
		case '#':
			for s.pos < len(s.input) && s.input[s.pos] != '\n' {
				s.pos++
			}
		default:
			return
		}
	}
}

func (s *turtleScanner) peekByte(offset int) byte {
	if s.pos+offset < len(s.input) {
		return s.input[s.pos+offset]
	}
	return 0
}

func (s *turtleScanner) nextToken() (turtleToken, error) {
	s.skipWS()
	tok := turtleToken{line: s.line, column: s.pos - s.lineStart + 1}
	if s.pos >= len(s.input) {
		tok.kind = tokEOF
		return tok, nil
	}

	ch := s.input[s.pos]
	if kind, ok := punctuation[ch]; ok {
		s.advance(1)
		tok.kind = kind
		return tok, nil
	}

	switch {
	case ch == '<':
		value, err := s.scanIRIRef()
		tok.kind, tok.text = tokIRIRef, value
		return tok, err
	case ch == '"' || ch == '\'':
		value, err := s.scanString()
		tok.kind, tok.text = tokString, value
		return tok, err
	case ch == '^':
		if s.peekByte(1) != '^' {
			return tok, s.errorf("expected '^^'")
		}
		s.advance(2)
		tok.kind = tokDatatypeMark
		return tok, nil
	case ch == '@':
		word := s.scanLangTag()
		switch word {
		case "":
			return tok, s.errorf("empty language tag")
		case "prefix":
			tok.kind, tok.text = tokPrefix, "@prefix"
		case "base":
			tok.kind, tok.text = tokBase, "@base"
		default:
			tok.kind, tok.text = tokLangTag, word
		}
		return tok, nil
	case ch == '_' && s.peekByte(1) == ':':
		s.advance(2)
		label := s.scanWord()
		if label == "" {
			return tok, s.errorf("blank node label missing")
		}
		tok.kind, tok.text = tokBlankNode, label
		return tok, nil
	case ch == '.' && !isDigit(s.peekByte(1)):
		s.advance(1)
		tok.kind = tokDot
		return tok, nil
	}

	word := s.scanWord()
	if word == "" {
		return tok, s.errorf("unexpected character %q", ch)
	}
	tok.text = word
	switch {
	case word == "a":
		tok.kind = tokA
	case word == "true" || word == "false":
		tok.kind = tokBoolean
	case strings.EqualFold(word, "PREFIX"):
		tok.kind = tokPrefix
	case strings.EqualFold(word, "BASE"):
		tok.kind = tokBase
	case strings.EqualFold(word, "GRAPH"):
		tok.kind = tokGraph
	case isNumericStart(word):
		kind, ok := classifyNumber(word)
		if !ok {
			return tok, s.errorf("invalid number %q", word)
		}
		tok.kind = kind
	case strings.Contains(word, ":"):
		tok.kind, tok.text = tokPName, unescapeLocalName(word)
	default:
		return tok, s.errorf("unexpected word %q", word)
	}
	return tok, nil
}

func (s *turtleScanner) scanIRIRef() (string, error) {
	s.advance(1)
	start := s.pos
	for s.pos < len(s.input) {
		switch s.input[s.pos] {
		case '>':
			raw := s.input[start:s.pos]
			s.advance(1)
			value, err := UnescapeString(raw)
			if err != nil {
				return "", s.errorf("invalid IRI escape: %v", err)
			}
			return value, nil
		case '\n', ' ', '<', '"':
			return "", s.errorf("invalid character in IRI")
		}
		s.pos++
	}
	return "", s.errorf("unterminated IRI")
}

func (s *turtleScanner) scanString() (string, error) {
	quote := s.input[s.pos]
	long := strings.Repeat(string(quote), 3)
	if strings.HasPrefix(s.input[s.pos:], long) {
		s.advance(3)
		start := s.pos
		for s.pos < len(s.input) {
			if s.input[s.pos] == '\\' {
				s.advance(2)
				continue
			}
			if strings.HasPrefix(s.input[s.pos:], long) {
				// A long string may end with up to two extra quote characters.
				for strings.HasPrefix(s.input[s.pos+1:], long) {
					s.advance(1)
				}
				raw := s.input[start:s.pos]
				s.advance(3)
				return s.unescape(raw)
			}
			s.advance(1)
		}
		return "", s.errorf("unterminated long string")
	}

	s.advance(1)
	start := s.pos
	for s.pos < len(s.input) {
		switch s.input[s.pos] {
		case '\\':
			s.pos += 2
			continue
		case '\n':
			return "", s.errorf("newline in string")
		case quote:
			raw := s.input[start:s.pos]
			s.advance(1)
			return s.unescape(raw)
		}
		s.pos++
	}
	return "", s.errorf("unterminated string")
}

func (s *turtleScanner) unescape(raw string) (string, error) {
	value, err := UnescapeString(raw)
	if err != nil {
		return "", s.errorf("%v", err)
	}
	return value, nil
}

func (s *turtleScanner) scanLangTag() string {
	s.advance(1)
	start := s.pos
	for s.pos < len(s.input) {
		ch := s.input[s.pos]
		if !(isLetter(ch) || isDigit(ch) || ch == '-') {
			break
		}
		s.pos++
	}
	return s.input[start:s.pos]
}

// scanWord reads a bare lexeme: prefixed name, keyword, number or blank
// node label. A '.' is part of the word only when followed by a name
// character, so "ex:a." ends a statement.
func (s *turtleScanner) scanWord() string {
	start := s.pos
	for s.pos < len(s.input) {
		ch := s.input[s.pos]
		if ch == '\\' && s.pos+1 < len(s.input) {
			s.pos += 2
			continue
		}
		if ch == '.' {
			next := s.peekByte(1)
			if next == 0 || isWordDelimiter(next) || next == '.' {
				break
			}
			s.pos++
			continue
		}
		if isWordDelimiter(ch) {
			break
		}
		s.pos++
	}
	return s.input[start:s.pos]
}

func isWordDelimiter(ch byte) bool {
	switch ch {
	case ' ', '\t', '\r', '\n', '<', '>', '"', '\'', '(', ')', '[', ']', '{', '}', ',', ';', '#', '^', '@':
		return true
	}
	return false
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isNumericStart(word string) bool {
	if word == "" {
		return false
	}
	ch := word[0]
	if ch == '+' || ch == '-' {
		if len(word) == 1 {
			return false
		}
		ch = word[1]
	}
	return isDigit(ch) || ch == '.'
}

// classifyNumber returns the token kind for INTEGER, DECIMAL or DOUBLE.
func classifyNumber(word string) (turtleTokenKind, bool) {
	body := strings.TrimLeft(word, "+-")
	if len(word)-len(body) > 1 || body == "" {
		return 0, false
	}
	mantissa, exponent, hasExp := strings.Cut(strings.ToLower(body), "e")
	if hasExp {
		exponent = strings.TrimLeft(exponent, "+-")
		if exponent == "" || !allDigits(exponent) {
			return 0, false
		}
	}
	intPart, fracPart, hasDot := strings.Cut(mantissa, ".")
	if intPart == "" && fracPart == "" {
		return 0, false
	}
	if (intPart != "" && !allDigits(intPart)) || (fracPart != "" && !allDigits(fracPart)) {
		return 0, false
	}
	switch {
	case hasExp:
		return tokDouble, true
	case hasDot:
		if fracPart == "" {
			return 0, false
		}
		return tokDecimal, true
	default:
		return tokInteger, true
	}
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

// unescapeLocalName removes reserved-character escapes from a prefixed name.
func unescapeLocalName(word string) string {
	if !strings.Contains(word, `\`) {
		return word
	}
	var builder strings.Builder
	for i := 0; i < len(word); i++ {
		if word[i] == '\\' && i+1 < len(word) {
			i++
		}
		builder.WriteByte(word[i])
	}
	return builder.String()
}

package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mooshifrew/fhirpath-go/pkg/types"
)

const eof = -1

// Lexer converts a FHIRPath expression into a sequence of tokens.
// The implementation is based on Rob Pike's "Lexical Scanning in Go" technique.
type Lexer struct {
	input   string // Input string being scanned
	length  int    // Length of input string
	start   int    // Start position of current token
	current int    // Current position in input
	width   int    // Width of last rune read
	err     error  // First error encountered
}

// NewLexer creates a new lexer from the provided input string.
// The input is tokenized by successive calls to the Next method.
func NewLexer(input string) *Lexer {
	return &Lexer{
		input:  input,
		length: len(input),
	}
}

// Next returns the next token from the input.
// When the end of the input is reached, Next returns TokenEOF for all
// subsequent calls.
func (l *Lexer) Next() Token {
	l.skipWhitespace()

	if l.err != nil {
		return l.errorToken(types.ErrCommentNotClosed, l.err.Error())
	}

	ch := l.nextRune()
	if ch == eof {
		return l.eofToken()
	}

	// Two-character symbols first (!=, <=, >=)
	if rts := lookupSymbol2(ch); rts != nil {
		for _, rt := range rts {
			if l.acceptRune(rt.r) {
				return l.newToken(rt.tt)
			}
		}
	}

	// Single-character symbols
	if tt := lookupSymbol1(ch); tt > 0 {
		return l.newToken(tt)
	}

	// String literals (single or double quoted)
	if ch == '\'' || ch == '"' {
		l.ignore()
		return l.scanString(ch)
	}

	// Number literals
	if ch >= '0' && ch <= '9' {
		l.backup()
		return l.scanNumber()
	}

	// Temporal literals: @2020-03-14T10:00:00Z, @T14:30
	if ch == '@' {
		l.ignore()
		return l.scanTemporal()
	}

	// Escaped field names (backtick quoted)
	if ch == '`' {
		l.ignore()
		return l.scanEscapedName(TokenNameEsc)
	}

	// Variables: $this, $index, $total
	if ch == '$' {
		l.ignore()
		return l.scanVariable()
	}

	// Environment variables: %resource, %`vs-name`
	if ch == '%' {
		l.ignore()
		if l.acceptRune('`') {
			l.ignore()
			return l.scanEscapedName(TokenEnvVar)
		}
		return l.scanEnvName()
	}

	// Names and keywords
	l.backup()
	return l.scanName()
}

// Err returns the first error encountered during lexing, if any.
func (l *Lexer) Err() error {
	return l.err
}

// scanString reads a string literal from the current position.
// The opening quote has already been consumed.
func (l *Lexer) scanString(quote rune) Token {
	var sb strings.Builder
	for {
		ch := l.nextRune()
		switch ch {
		case quote:
			l.backup()
			t := l.newToken(TokenString)
			t.Value = sb.String()
			l.acceptRune(quote)
			l.ignore()
			return t
		case '\\':
			esc := l.nextRune()
			switch esc {
			case quote:
				sb.WriteRune(quote)
			case '\\':
				sb.WriteRune('\\')
			case '/':
				sb.WriteRune('/')
			case 'f':
				sb.WriteRune('\f')
			case 'n':
				sb.WriteRune('\n')
			case 'r':
				sb.WriteRune('\r')
			case 't':
				sb.WriteRune('\t')
			case 'u':
				r, ok := l.scanUnicodeEscape()
				if !ok {
					return l.errorToken(types.ErrInvalidEscape, "invalid unicode escape")
				}
				sb.WriteRune(r)
			default:
				return l.errorToken(types.ErrInvalidEscape, "unsupported escape sequence")
			}
		case eof:
			return l.errorToken(types.ErrStringNotClosed, "string literal not terminated")
		default:
			sb.WriteRune(ch)
		}
	}
}

// scanUnicodeEscape reads the 4 hex digits of a \uXXXX escape.
func (l *Lexer) scanUnicodeEscape() (rune, bool) {
	var r rune
	for i := 0; i < 4; i++ {
		ch := l.nextRune()
		var d rune
		switch {
		case ch >= '0' && ch <= '9':
			d = ch - '0'
		case ch >= 'a' && ch <= 'f':
			d = ch - 'a' + 10
		case ch >= 'A' && ch <= 'F':
			d = ch - 'A' + 10
		default:
			return 0, false
		}
		r = r*16 + d
	}
	return r, true
}

// scanNumber reads an integer or decimal literal.
func (l *Lexer) scanNumber() Token {
	l.acceptAll(isDigit)
	// A '.' is part of the number only when followed by a digit;
	// otherwise it is a path step ("5.toString()").
	if l.peekRune() == '.' {
		mark := l.current
		l.nextRune()
		if !l.acceptAll(isDigit) {
			l.current = mark
			l.width = 0
		}
	}
	return l.newToken(TokenNumber)
}

// scanTemporal reads a date/dateTime/time literal after the '@' marker.
func (l *Lexer) scanTemporal() Token {
	l.acceptAll(func(r rune) bool {
		return isDigit(r) || r == '-' || r == ':' || r == '+' || r == '.' ||
			r == 'T' || r == 'Z'
	})
	t := l.newToken(TokenTemporal)
	if t.Value == "" {
		return l.errorToken(types.ErrSyntaxError, "empty temporal literal")
	}
	return t
}

// scanEscapedName reads a backtick-delimited name. The opening backtick
// has already been consumed and ignored.
func (l *Lexer) scanEscapedName(tt TokenType) Token {
	for {
		switch l.nextRune() {
		case '`':
			l.backup()
			t := l.newToken(tt)
			l.acceptRune('`')
			l.ignore()
			return t
		case eof:
			return l.errorToken(types.ErrStringNotClosed, "delimited name not terminated")
		}
	}
}

// scanVariable reads the name after '$'.
func (l *Lexer) scanVariable() Token {
	if !l.acceptAll(isNameRune) {
		return l.errorToken(types.ErrSyntaxError, "expected variable name after $")
	}
	return l.newToken(TokenVariable)
}

// scanEnvName reads the name after '%'.
func (l *Lexer) scanEnvName() Token {
	if !l.acceptAll(isNameRune) {
		return l.errorToken(types.ErrSyntaxError, "expected variable name after %")
	}
	return l.newToken(TokenEnvVar)
}

// scanName reads an identifier or keyword.
func (l *Lexer) scanName() Token {
	if !l.acceptAll(isNameRune) {
		ch := l.nextRune()
		return l.errorToken(types.ErrSyntaxError, "unexpected character "+string(ch))
	}
	t := l.newToken(TokenName)
	if tt := lookupKeyword(t.Value); tt > 0 {
		t.Type = tt
	}
	return t
}

// skipWhitespace consumes whitespace and comments.
func (l *Lexer) skipWhitespace() {
	for {
		ch := l.nextRune()
		switch {
		case ch == eof:
			l.backup()
			l.ignore()
			return
		case unicode.IsSpace(ch):
			// keep consuming
		case ch == '/' && l.peekRune() == '/':
			l.skipLineComment()
		case ch == '/' && l.peekRune() == '*':
			if !l.skipBlockComment() {
				l.err = types.NewError(types.ErrCommentNotClosed, "block comment not terminated", l.start)
				return
			}
		default:
			l.backup()
			l.ignore()
			return
		}
	}
}

func (l *Lexer) skipLineComment() {
	for {
		ch := l.nextRune()
		if ch == eof || ch == '\n' {
			return
		}
	}
}

func (l *Lexer) skipBlockComment() bool {
	l.nextRune() // consume '*'
	for {
		ch := l.nextRune()
		if ch == eof {
			return false
		}
		if ch == '*' && l.peekRune() == '/' {
			l.nextRune()
			return true
		}
	}
}

// nextRune reads the next rune from the input.
func (l *Lexer) nextRune() rune {
	if l.current >= l.length {
		l.width = 0
		return eof
	}
	r, w := utf8.DecodeRuneInString(l.input[l.current:])
	l.width = w
	l.current += w
	return r
}

// backup steps back one rune.
func (l *Lexer) backup() {
	l.current -= l.width
	l.width = 0
}

// peekRune returns the next rune without consuming it. It must not
// touch width: a caller may still need to backup() the rune it read
// before peeking.
func (l *Lexer) peekRune() rune {
	if l.current >= l.length {
		return eof
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.current:])
	return r
}

// acceptRune consumes the next rune when it equals r.
func (l *Lexer) acceptRune(r rune) bool {
	if l.nextRune() == r {
		return true
	}
	l.backup()
	return false
}

// acceptAll consumes runes while pred holds; reports whether any were consumed.
func (l *Lexer) acceptAll(pred func(rune) bool) bool {
	accepted := false
	for {
		ch := l.nextRune()
		if ch == eof || !pred(ch) {
			break
		}
		accepted = true
	}
	l.backup()
	return accepted
}

// ignore discards the input scanned so far.
func (l *Lexer) ignore() {
	l.start = l.current
}

// newToken produces a token spanning the scanned input and advances start.
func (l *Lexer) newToken(tt TokenType) Token {
	t := Token{Type: tt, Value: l.input[l.start:l.current], Position: l.start}
	l.start = l.current
	return t
}

func (l *Lexer) eofToken() Token {
	return Token{Type: TokenEOF, Position: l.length}
}

func (l *Lexer) errorToken(code types.ErrorCode, msg string) Token {
	if l.err == nil {
		l.err = types.NewError(code, msg, l.start)
	}
	return Token{Type: TokenError, Value: msg, Position: l.start}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isNameRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

package parser

import "testing"

func lexAll(t *testing.T, input string) []Token {
	t.Helper()
	l := NewLexer(input)
	var out []Token
	for {
		tok := l.Next()
		if tok.Type == TokenEOF {
			return out
		}
		if tok.Type == TokenError {
			t.Fatalf("lex %q: error token %q at %d", input, tok.Value, tok.Position)
		}
		out = append(out, tok)
	}
}

func TestLexDivisionSlash(t *testing.T) {
	// The '/' read while probing for a comment opener must be restored
	// when the next character is neither '/' nor '*'.
	tests := []struct {
		input string
		want  []TokenType
	}{
		{"7 / 2", []TokenType{TokenNumber, TokenDiv, TokenNumber}},
		{"7/2", []TokenType{TokenNumber, TokenDiv, TokenNumber}},
		{"a / b / c", []TokenType{TokenName, TokenDiv, TokenName, TokenDiv, TokenName}},
		{"1 / 0", []TokenType{TokenNumber, TokenDiv, TokenNumber}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			toks := lexAll(t, tt.input)
			if len(toks) != len(tt.want) {
				t.Fatalf("got %d tokens, want %d: %v", len(toks), len(tt.want), toks)
			}
			for i, want := range tt.want {
				if toks[i].Type != want {
					t.Errorf("token %d = %s, want %s", i, toks[i].Type, want)
				}
			}
		})
	}
}

func TestLexSlashBeforeComment(t *testing.T) {
	// A real division followed by a comment: both must survive.
	toks := lexAll(t, "8 / 4 // rest of line\n+ 1")
	want := []TokenType{TokenNumber, TokenDiv, TokenNumber, TokenPlus, TokenNumber}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	for i, w := range want {
		if toks[i].Type != w {
			t.Errorf("token %d = %s, want %s", i, toks[i].Type, w)
		}
	}
}

func TestLexPeekDoesNotLoseRunes(t *testing.T) {
	// peekRune is used while a consumed rune is still pending backup;
	// the token values must come out intact.
	toks := lexAll(t, "3.7 / x")
	if len(toks) != 3 {
		t.Fatalf("got %d tokens: %v", len(toks), toks)
	}
	if toks[0].Value != "3.7" {
		t.Errorf("number value = %q, want 3.7", toks[0].Value)
	}
	if toks[2].Value != "x" {
		t.Errorf("name value = %q, want x", toks[2].Value)
	}
}

package lexer

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// kinds возвращает виды токенов без завершающего EOF.
func kinds(t *testing.T, src string) []TokenType {
	t.Helper()
	toks, err := Tokenize(src)
	if err != nil {
		t.Fatalf("Tokenize(%q): %v", src, err)
	}
	out := make([]TokenType, 0, len(toks))
	for _, tok := range toks {
		if tok.Type != EOF {
			out = append(out, tok.Type)
		}
	}
	return out
}

func values(t *testing.T, src string) []string {
	t.Helper()
	toks, err := Tokenize(src)
	if err != nil {
		t.Fatalf("Tokenize(%q): %v", src, err)
	}
	out := make([]string, 0, len(toks))
	for _, tok := range toks {
		if tok.Type != EOF {
			out = append(out, tok.Value)
		}
	}
	return out
}

func TestTokenize_Operators(t *testing.T) {
	got := kinds(t, "+ - * / ^ = == != > < >= <= and or not ! ->")
	want := []TokenType{
		Plus, Minus, Multiply, Divide, Exponent, Assign, Equals, NotEquals,
		Greater, Less, GreaterEquals, LessEquals, And, Or, Not, Not, Arrow,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestTokenize_Punctuation(t *testing.T) {
	got := kinds(t, "( ) , . : ; [ ]")
	want := []TokenType{OpenParen, CloseParen, Comma, Dot, Colon, Semicolon, OpenBracket, CloseBracket}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestTokenize_Keywords(t *testing.T) {
	got := kinds(t, "workflow return true false workflows")
	want := []TokenType{Workflow, Return, True, False, Symbol}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestTokenize_Numbers(t *testing.T) {
	tests := []struct {
		src  string
		want []string
	}{
		{"42", []string{"42"}},
		{"3.14", []string{"3.14"}},
		{".5", []string{".5"}},
		{"1.", []string{"1."}},
		{"1e10", []string{"1e10"}},
		{"2.5E-3", []string{"2.5E-3"}},
		// 'e' без цифр остаётся отдельным токеном
		{"2e", []string{"2", "e"}},
		{"3ex", []string{"3", "ex"}},
		{"4e+", []string{"4", "e", "+"}},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, values(t, tt.src)); diff != "" {
				t.Errorf("values mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTokenize_DotAfterOperand(t *testing.T) {
	// После символа '.' — доступ к атрибуту
	if diff := cmp.Diff([]TokenType{Symbol, Dot, Symbol}, kinds(t, "res.x")); diff != "" {
		t.Errorf("kinds mismatch (-want +got):\n%s", diff)
	}
	// После оператора — число
	if diff := cmp.Diff([]TokenType{Symbol, Plus, Number}, kinds(t, "a+.5")); diff != "" {
		t.Errorf("kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestTokenize_Strings(t *testing.T) {
	toks, err := Tokenize(`"hello \"world\"" 'it\'s'`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toks[0].Type != String || toks[0].Value != `hello "world"` {
		t.Errorf("unexpected token %+v", toks[0])
	}
	if toks[1].Type != String || toks[1].Value != "it's" {
		t.Errorf("unexpected token %+v", toks[1])
	}
}

func TestTokenize_Positions(t *testing.T) {
	toks, err := Tokenize("a = 1\n  b = 2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	b := toks[3]
	if b.Value != "b" || b.Line != 2 || b.Column != 3 || b.Offset != 8 {
		t.Errorf("unexpected position for b: %+v", b)
	}
	if last := toks[len(toks)-1]; last.Type != EOF {
		t.Errorf("expected trailing EOF, got %s", last.Type)
	}
}

func TestTokenize_Comments(t *testing.T) {
	got := kinds(t, "a = 1 # comment\nb")
	want := []TokenType{Symbol, Assign, Number, Symbol}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestTokenize_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unterminated string", `"abc`},
		{"unknown character", "a @ b"},
		{"bad escape", `"\q"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tokenize(tt.src)
			var synErr *SyntaxError
			if !errors.As(err, &synErr) {
				t.Fatalf("expected SyntaxError, got %v", err)
			}
		})
	}
}

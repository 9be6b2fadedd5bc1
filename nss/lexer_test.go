package nss_test

import (
	"testing"

	"github.com/aurora-toolkit/core/nss"
	"github.com/aurora-toolkit/core/nss/token"
)

func tokenize(t *testing.T, src string) []token.Token {
	t.Helper()
	lx, err := nss.NewLexer([]byte(src), nil)
	if err != nil {
		t.Fatalf("NewLexer: %v", err)
	}
	toks, err := lx.Tokenize()
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	return toks
}

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, tk := range toks {
		out[i] = tk.Kind
	}
	return out
}

func TestTokenizeKeywordsAndIdents(t *testing.T) {
	toks := tokenize(t, "int foo; effect e; itemproperty ip;")
	want := []token.Kind{
		token.KwInt, token.Ident, token.Semicolon,
		token.KwEffect, token.Ident, token.Semicolon,
		token.KwItemProperty, token.Ident, token.Semicolon,
		token.EOF,
	}
	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(got), len(want), toks)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %s, want %s", i, got[i], want[i])
		}
	}
	if toks[1].Val != "foo" {
		t.Errorf("identifier text = %q, want %q", toks[1].Val, "foo")
	}
}

func TestTokenizeNumberLiterals(t *testing.T) {
	tests := []struct {
		src  string
		kind token.Kind
		val  string
	}{
		{"42", token.Int, "42"},
		{"0x1F", token.Int, "0x1F"},
		{"0XdeadBEEF", token.Int, "0XdeadBEEF"},
		{"1.0", token.Float, "1.0"},
		{"3f", token.Float, "3f"},
		{"2.5F", token.Float, "2.5F"},
	}
	for _, tc := range tests {
		t.Run(tc.src, func(t *testing.T) {
			toks := tokenize(t, tc.src)
			if toks[0].Kind != tc.kind || toks[0].Val != tc.val {
				t.Errorf("got (%s, %q), want (%s, %q)", toks[0].Kind, toks[0].Val, tc.kind, tc.val)
			}
		})
	}
}

// A digit sequence followed by a bare dot is an int and a Dot token,
// not a float: the fractional form requires a digit after the dot.
func TestTokenizeTrailingDotIsNotFloat(t *testing.T) {
	toks := tokenize(t, "2.")
	got := kinds(toks)
	want := []token.Kind{token.Int, token.Dot, token.EOF}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: got %s, want %s (%v)", i, got[i], want[i], toks)
		}
	}
}

func TestTokenizeOperators(t *testing.T) {
	toks := tokenize(t, "a ++ += + == = <= << < && & || |")
	want := []token.Kind{
		token.Ident, token.Inc, token.PlusAssign, token.Plus,
		token.Eq, token.Assign, token.Leq, token.Shl, token.Lt,
		token.AndAnd, token.Amp, token.OrOr, token.Pipe, token.EOF,
	}
	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(got), len(want), toks)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestTokenizeComments(t *testing.T) {
	src := `int a; // trailing comment
/* block
   spanning lines */ int b;`
	toks := tokenize(t, src)
	want := []token.Kind{
		token.KwInt, token.Ident, token.Semicolon,
		token.KwInt, token.Ident, token.Semicolon, token.EOF,
	}
	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(got), len(want), toks)
	}
	if toks[4].Line != 3 {
		t.Errorf("token after block comment on line %d, want 3", toks[4].Line)
	}
}

func TestTokenizeString(t *testing.T) {
	toks := tokenize(t, `"hello world"`)
	if toks[0].Kind != token.String || toks[0].Val != "hello world" {
		t.Fatalf("got (%s, %q)", toks[0].Kind, toks[0].Val)
	}
}

// The language has no string escapes: a backslash is a literal
// character and the first closing quote ends the string.
func TestTokenizeStringBackslashIsLiteral(t *testing.T) {
	toks := tokenize(t, `"a\n"`)
	if toks[0].Val != `a\n` {
		t.Errorf("string value = %q, want %q", toks[0].Val, `a\n`)
	}
}

func TestTokenizeUnterminatedString(t *testing.T) {
	lx, err := nss.NewLexer([]byte(`"oops`), nil)
	if err != nil {
		t.Fatalf("NewLexer: %v", err)
	}
	if _, err := lx.Tokenize(); err == nil {
		t.Fatal("expected an error for an unterminated string")
	}
}

func TestTokenizeUnexpectedCharacter(t *testing.T) {
	lx, err := nss.NewLexer([]byte("int a = @;"), nil)
	if err != nil {
		t.Fatalf("NewLexer: %v", err)
	}
	if _, err := lx.Tokenize(); err == nil {
		t.Fatal("expected an error for an unexpected character")
	}
}

func TestTokenizeLineAndColumn(t *testing.T) {
	toks := tokenize(t, "int a;\nfloat b;")
	if toks[0].Line != 1 || toks[0].Col != 1 {
		t.Errorf("first token at %d:%d, want 1:1", toks[0].Line, toks[0].Col)
	}
	if toks[3].Line != 2 || toks[3].Col != 1 {
		t.Errorf("second-line token at %d:%d, want 2:1", toks[3].Line, toks[3].Col)
	}
}

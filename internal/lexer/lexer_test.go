package lexer

import (
	"fmt"
	"strings"
	"testing"
)

func TestLexGoldenRepresentativeValidInput(t *testing.T) {
	t.Parallel()

	src := []byte("/dts-v1/;\n\n/ {\n\tcompat: compatible = \"acme,board\";\n\tuart0: serial@10000000 {\n\t\treg = <0x10000000 0x100>;\n\t\tstatus = \"okay\";\n\t};\n};\n")

	res := Lex(src)
	if len(res.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %+v", res.Diagnostics)
	}

	got := renderTokens(res.Tokens)
	want := strings.TrimSpace(`
DtsV1("/dts-v1/")
Semi(";")
Newline("\n")
Newline("\n")
Slash("/")
Whitespace(" ")
LBrace("{")
Newline("\n")
Whitespace("\t")
Identifier("compat")
Colon(":")
Whitespace(" ")
Identifier("compatible")
Whitespace(" ")
Equal("=")
Whitespace(" ")
String("\"acme,board\"")
Semi(";")
Newline("\n")
Whitespace("\t")
Identifier("uart0")
Colon(":")
Whitespace(" ")
Identifier("serial")
At("@")
Integer("10000000")
Whitespace(" ")
LBrace("{")
Newline("\n")
Whitespace("\t\t")
Identifier("reg")
Whitespace(" ")
Equal("=")
Whitespace(" ")
LAngle("<")
Integer("0x10000000")
Whitespace(" ")
Integer("0x100")
RAngle(">")
Semi(";")
Newline("\n")
Whitespace("\t\t")
Identifier("status")
Whitespace(" ")
Equal("=")
Whitespace(" ")
String("\"okay\"")
Semi(";")
Newline("\n")
Whitespace("\t")
RBrace("}")
Semi(";")
Newline("\n")
RBrace("}")
Semi(";")
Newline("\n")
Eof("")
`)
	if got != want {
		t.Fatalf("golden mismatch\n--- got ---\n%s\n--- want ---\n%s", got, want)
	}
}

func TestLexMalformedInputsEmitErrorTokensAndDiagnostics(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		src          []byte
		wantDiagCode DiagnosticCode
		wantKind     TokenKind
		wantFlag     Flags
	}{
		"unterminated block comment": {
			src:          []byte("/* abc"),
			wantDiagCode: DiagnosticUnterminatedBlockComment,
			wantKind:     Error,
			wantFlag:     FlagMalformed,
		},
		"invalid byte": {
			src:          []byte{0xff},
			wantDiagCode: DiagnosticInvalidByte,
			wantKind:     Error,
			wantFlag:     FlagMalformed,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			res := Lex(tc.src)
			if len(res.Diagnostics) == 0 {
				t.Fatalf("expected diagnostics for %q", tc.src)
			}
			if res.Diagnostics[0].Code != tc.wantDiagCode {
				t.Fatalf("diagnostic code = %s, want %s", res.Diagnostics[0].Code, tc.wantDiagCode)
			}
			if len(res.Tokens) == 0 || res.Tokens[0].Kind != tc.wantKind {
				t.Fatalf("expected first token to be %s, got %+v", tc.wantKind, res.Tokens)
			}
			if !res.Tokens[0].Flags.Has(tc.wantFlag) {
				t.Fatalf("expected flag %v on token, got %v", tc.wantFlag, res.Tokens[0].Flags)
			}
			if got := res.Tokens[len(res.Tokens)-1].Kind; got != Eof {
				t.Fatalf("expected Eof token at end, got %s", got)
			}
		})
	}
}

// TestLexUnterminatedStringIsStillAStringToken asserts spec's "tokenized
// as a String with a trailing unterminated flag" rule: an unterminated
// string literal is a String token (so the parser can still consume it as
// a value), carrying FlagUnterminated, plus the diagnostic.
func TestLexUnterminatedStringIsStillAStringToken(t *testing.T) {
	t.Parallel()

	res := Lex([]byte(`"abc`))
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].Code != DiagnosticUnterminatedString {
		t.Fatalf("diagnostics = %+v, want exactly one DiagnosticUnterminatedString", res.Diagnostics)
	}
	if len(res.Tokens) == 0 || res.Tokens[0].Kind != String {
		t.Fatalf("expected first token to be String, got %+v", res.Tokens)
	}
	if !res.Tokens[0].Flags.Has(FlagUnterminated) {
		t.Fatalf("expected FlagUnterminated on token, got %v", res.Tokens[0].Flags)
	}
	if got := res.Tokens[len(res.Tokens)-1].Kind; got != Eof {
		t.Fatalf("expected Eof token at end, got %s", got)
	}
}

func TestLexTokenStreamIsTotal(t *testing.T) {
	t.Parallel()

	src := []byte("/ {\n\treg = <1 2>;\n}; // trailing\n")
	res := Lex(src)

	var rebuilt strings.Builder
	for i, tok := range res.Tokens {
		if tok.Kind == Eof {
			if i != len(res.Tokens)-1 {
				t.Fatalf("Eof token not last: index %d of %d", i, len(res.Tokens))
			}
			continue
		}
		rebuilt.WriteString(tok.Text)
	}
	if rebuilt.String() != string(src) {
		t.Fatalf("token stream is not total: rebuilt = %q, want %q", rebuilt.String(), string(src))
	}
}

func TestLexSlashKeywordsAreDistinctFromPlainSlash(t *testing.T) {
	t.Parallel()

	cases := []struct {
		src  string
		want TokenKind
	}{
		{"/dts-v1/", DtsV1},
		{"/memreserve/", MemReserve},
		{"/include/", IncludeDirective},
		{"/delete-node/", DeleteNodeKw},
		{"/delete-property/", DeletePropertyKw},
		{"/ {", Slash},
		{"/nonexistent/", Slash},
	}
	for _, tc := range cases {
		res := Lex([]byte(tc.src))
		if got := res.Tokens[0].Kind; got != tc.want {
			t.Fatalf("Lex(%q) first token kind = %s, want %s", tc.src, got, tc.want)
		}
	}
}

func TestLexPreservesLiteralSpellings(t *testing.T) {
	t.Parallel()

	src := []byte(`"a\"b" 0XBeEf // c1
# include <foo.h>
`)
	res := Lex(src)
	if len(res.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %+v", res.Diagnostics)
	}

	var gotStrings, gotInts, gotDirectives []string
	for _, tok := range res.Tokens {
		switch tok.Kind {
		case String:
			gotStrings = append(gotStrings, tok.Text)
		case Integer:
			gotInts = append(gotInts, tok.Text)
		case Directive:
			gotDirectives = append(gotDirectives, tok.Text)
		}
	}

	if fmt.Sprint(gotStrings) != fmt.Sprint([]string{`"a\"b"`}) {
		t.Fatalf("strings = %v", gotStrings)
	}
	if fmt.Sprint(gotInts) != fmt.Sprint([]string{"0XBeEf"}) {
		t.Fatalf("ints = %v", gotInts)
	}
	if fmt.Sprint(gotDirectives) != fmt.Sprint([]string{"# include <foo.h>"}) {
		t.Fatalf("directives = %v", gotDirectives)
	}
}

func TestLexNoPanicsOnMalformedCorpusSamples(t *testing.T) {
	t.Parallel()

	inputs := [][]byte{
		[]byte(`"`),
		[]byte(`/*`),
		[]byte(`0x`),
		{0xff, '{', 0xfe},
		[]byte("/ {\n reg = <1 \"unterminated\n};\n"),
	}

	for _, src := range inputs {
		t.Run(fmt.Sprintf("%q", src), func(t *testing.T) {
			t.Parallel()
			_ = Lex(src)
		})
	}
}

func renderTokens(tokens []Token) string {
	lines := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		lines = append(lines, fmt.Sprintf("%s(%q)", tok.Kind, tok.Text))
	}
	return strings.Join(lines, "\n")
}

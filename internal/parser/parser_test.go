package parser

import (
	"testing"

	"github.com/devicetree-lang/dts-core/internal/ast"
	"github.com/devicetree-lang/dts-core/internal/diag"
	"github.com/devicetree-lang/dts-core/internal/text"
)

func diagPositions(diags []diag.Diagnostic) []text.Pos {
	out := make([]text.Pos, len(diags))
	for i, d := range diags {
		out[i] = d.Range.End
	}
	return out
}

// TestEndToEndScenarios exercises every input/observable pair listed in
// spec §8.
func TestEndToEndScenarios(t *testing.T) {
	t.Parallel()

	t.Run("empty root node missing semicolon", func(t *testing.T) {
		res := ParseSource("t.dts", []byte("/{}"))
		if len(res.Diagnostics) != 1 {
			t.Fatalf("diagnostics = %+v, want exactly 1", res.Diagnostics)
		}
		if _, ok := res.Diagnostics[0].Kinds[0].(diag.SyntaxIssue); !ok || res.Diagnostics[0].Kinds[0] != diag.EndStatement {
			t.Fatalf("kind = %v, want EndStatement", res.Diagnostics[0].Kinds[0])
		}
		want := text.Pos{Line: 0, Col: 2, Len: 1}
		if got := res.Diagnostics[0].Range.Start; got != want {
			t.Fatalf("diagnostic anchor = %+v, want %+v", got, want)
		}
		if len(res.Root.Declarations) != 1 {
			t.Fatalf("declarations = %d, want 1", len(res.Root.Declarations))
		}
		if _, ok := res.Root.Declarations[0].(*ast.DtcRootNode); !ok {
			t.Fatalf("declaration type = %T, want *ast.DtcRootNode", res.Root.Declarations[0])
		}
	})

	t.Run("child node missing outer semicolon", func(t *testing.T) {
		res := ParseSource("t.dts", []byte("/{ node {}};"))
		if len(res.Diagnostics) != 1 {
			t.Fatalf("diagnostics = %+v, want exactly 1", res.Diagnostics)
		}
		want := text.Pos{Line: 0, Col: 9, Len: 1}
		if got := res.Diagnostics[0].Range.Start; got != want {
			t.Fatalf("diagnostic anchor = %+v, want %+v", got, want)
		}
		root := res.Root.Declarations[0].(*ast.DtcRootNode)
		if len(root.Body) != 1 {
			t.Fatalf("root body = %d declarations, want 1", len(root.Body))
		}
		child, ok := root.Body[0].(*ast.DtcChildNode)
		if !ok || child.Name == nil || child.Name.Name != "node" {
			t.Fatalf("child = %+v, want a DtcChildNode named \"node\"", root.Body[0])
		}
	})

	t.Run("both semicolons missing", func(t *testing.T) {
		res := ParseSource("t.dts", []byte("/{ node {}}"))
		if len(res.Diagnostics) != 2 {
			t.Fatalf("diagnostics = %+v, want exactly 2", res.Diagnostics)
		}
		for _, d := range res.Diagnostics {
			if d.Kinds[0] != diag.EndStatement {
				t.Fatalf("kind = %v, want EndStatement", d.Kinds[0])
			}
		}
		wantFirst := text.Pos{Line: 0, Col: 9, Len: 1}
		wantSecond := text.Pos{Line: 0, Col: 10, Len: 1}
		if res.Diagnostics[0].Range.Start != wantFirst {
			t.Fatalf("first anchor = %+v, want %+v", res.Diagnostics[0].Range.Start, wantFirst)
		}
		if res.Diagnostics[1].Range.Start != wantSecond {
			t.Fatalf("second anchor = %+v, want %+v", res.Diagnostics[1].Range.Start, wantSecond)
		}
	})

	t.Run("node with address clean", func(t *testing.T) {
		res := ParseSource("t.dts", []byte("/{node1@20{};};"))
		if len(res.Diagnostics) != 0 {
			t.Fatalf("diagnostics = %+v, want none", res.Diagnostics)
		}
		root := res.Root.Declarations[0].(*ast.DtcRootNode)
		child := root.Body[0].(*ast.DtcChildNode)
		if child.Name.Name != "node1" || !child.Name.HasAddress || child.Name.Address != 0x20 {
			t.Fatalf("child name = %+v, want name=node1 address=0x20", child.Name)
		}
		r := ast.RangeOf(res.Tokens, child)
		lastCol := res.Tokens[child.LastToken()].Pos.Col
		if r.Start.Col != 2 || lastCol != 12 {
			t.Fatalf("child range cols = %d..%d, want 2..12", r.Start.Col, lastCol)
		}
	})

	t.Run("at with no address", func(t *testing.T) {
		res := ParseSource("t.dts", []byte("/{node1@{};};"))
		if len(res.Diagnostics) != 1 || res.Diagnostics[0].Kinds[0] != diag.NodeAddress {
			t.Fatalf("diagnostics = %+v, want exactly 1 NodeAddress", res.Diagnostics)
		}
		want := text.Pos{Line: 0, Col: 7, Len: 1} // the '@' token
		if got := res.Diagnostics[0].Range.Start; got != want {
			t.Fatalf("diagnostic anchor = %+v, want %+v", got, want)
		}
	})

	t.Run("whitespace around address", func(t *testing.T) {
		res := ParseSource("t.dts", []byte("/{node1@ 20{};};"))
		if len(res.Diagnostics) != 1 || res.Diagnostics[0].Kinds[0] != diag.NodeNameAddressWhitespace {
			t.Fatalf("diagnostics = %+v, want exactly 1 NodeNameAddressWhitespace", res.Diagnostics)
		}
		wantStart := text.Pos{Line: 0, Col: 7, Len: 1}
		wantEnd := text.Pos{Line: 0, Col: 9, Len: 2}
		if res.Diagnostics[0].Range.Start != wantStart {
			t.Fatalf("span start = %+v, want %+v", res.Diagnostics[0].Range.Start, wantStart)
		}
		if res.Diagnostics[0].Range.End != wantEnd.End() {
			t.Fatalf("span end = %+v, want %+v", res.Diagnostics[0].Range.End, wantEnd.End())
		}
		root := res.Root.Declarations[0].(*ast.DtcRootNode)
		child := root.Body[0].(*ast.DtcChildNode)
		if child.Name.Name != "node1" || child.Name.Address != 0x20 {
			t.Fatalf("child name = %+v, want name=node1 address=0x20", child.Name)
		}
		r := ast.RangeOf(res.Tokens, child)
		lastCol := res.Tokens[child.LastToken()].Pos.Col
		if r.Start.Col != 2 || lastCol != 13 {
			t.Fatalf("child range cols = %d..%d, want 2..13", r.Start.Col, lastCol)
		}
	})

	t.Run("ref node clean", func(t *testing.T) {
		res := ParseSource("t.dts", []byte("&label{};"))
		if len(res.Diagnostics) != 0 {
			t.Fatalf("diagnostics = %+v, want none", res.Diagnostics)
		}
		ref, ok := res.Root.Declarations[0].(*ast.DtcRefNode)
		if !ok || ref.Ref == nil || ref.Ref.Name != "label" {
			t.Fatalf("declaration = %+v, want DtcRefNode referencing \"label\"", res.Root.Declarations[0])
		}
		r := ast.RangeOf(res.Tokens, ref)
		lastCol := res.Tokens[ref.LastToken()].Pos.Col
		if r.Start.Col != 0 || lastCol != 8 {
			t.Fatalf("ref node range cols = %d..%d, want 0..8", r.Start.Col, lastCol)
		}
	})
}

// TestUnterminatedStringConsumedAsValue asserts that an unterminated
// string literal still parses as a StringValue (spec §4.1: "tokenized as
// a String with a trailing unterminated flag consumed later by the
// parser"), alongside the UnterminatedString diagnostic, rather than
// falling through to an UnexpectedToken recovery.
func TestUnterminatedStringConsumedAsValue(t *testing.T) {
	t.Parallel()

	res := ParseSource("t.dts", []byte("prop = \"abc\n;"))
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].Kinds[0] != diag.UnterminatedString {
		t.Fatalf("diagnostics = %+v, want exactly one UnterminatedString", res.Diagnostics)
	}
	if len(res.Root.Declarations) != 1 {
		t.Fatalf("declarations = %d, want 1", len(res.Root.Declarations))
	}
	prop, ok := res.Root.Declarations[0].(*ast.DtcProperty)
	if !ok || len(prop.Values) != 1 {
		t.Fatalf("declaration = %+v, want a DtcProperty with one value", res.Root.Declarations[0])
	}
	if _, ok := prop.Values[0].(*ast.StringValue); !ok {
		t.Fatalf("value = %T, want *ast.StringValue", prop.Values[0])
	}
}

// TestParserTotality asserts the parser never panics and always produces
// a RootDoc plus a finite diagnostics slice, even on pathological input.
func TestParserTotality(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		";;;;;",
		"/{",
		"/{node@@@{",
		"/delete-node/",
		"&",
		"prop = <1 2 (3",
		"prop = [1 2",
		"prop = \"unterminated",
		"\x00\x01\xff",
	}
	for _, in := range inputs {
		res := ParseSource("t.dts", []byte(in))
		if res.Root == nil {
			t.Fatalf("ParseSource(%q) returned nil Root", in)
		}
	}
}

// TestRangeMonotonicity checks spec §8's range-monotonicity invariant
// over a representative nested document.
func TestRangeMonotonicity(t *testing.T) {
	t.Parallel()

	res := ParseSource("t.dts", []byte(`/dts-v1/;
label: / {
	compatible = "a", "b";
	child@0 {
		reg = <0 1>;
	};
};
`))
	var walk func(n ast.Node)
	walk = func(n ast.Node) {
		nr := ast.RangeOf(res.Tokens, n)
		for _, c := range n.Children() {
			if c == nil {
				continue
			}
			cr := ast.RangeOf(res.Tokens, c)
			if cr.Start.Less(nr.Start) && cr.Start != nr.Start {
				t.Fatalf("child starts before parent: child=%+v parent=%+v", cr, nr)
			}
			if nr.End.Less(cr.End) && nr.End != cr.End {
				t.Fatalf("child ends after parent: child=%+v parent=%+v", cr, nr)
			}
			walk(c)
		}
	}
	for _, d := range res.Root.Declarations {
		walk(d)
	}
}

// TestTotalTokenization checks spec §8's total-tokenization invariant:
// concatenating token lexemes reconstructs the source byte-for-byte.
func TestTotalTokenization(t *testing.T) {
	t.Parallel()

	src := "/dts-v1/;\n/{ a = <1>; b@1{}; };\n"
	res := ParseSource("t.dts", []byte(src))
	var rebuilt string
	for _, tok := range res.Tokens {
		rebuilt += tok.Text
	}
	if rebuilt != src {
		t.Fatalf("rebuilt = %q, want %q", rebuilt, src)
	}
}

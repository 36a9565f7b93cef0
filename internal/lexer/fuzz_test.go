package lexer

import "testing"

func FuzzLex(f *testing.F) {
	addCommonSeeds(f)

	f.Fuzz(func(t *testing.T, src []byte) {
		t.Helper()

		// Keep the target responsive; fuzzing should explore shape, not spend cycles on huge blobs.
		if len(src) > 512*1024 {
			t.Skip()
		}

		res := Lex(src)
		if len(res.Tokens) == 0 {
			t.Fatal("lexer returned no tokens")
		}
		last := res.Tokens[len(res.Tokens)-1]
		if last.Kind != Eof {
			t.Fatalf("last token kind = %v, want Eof", last.Kind)
		}

		var rebuilt []byte
		for i, tok := range res.Tokens {
			if tok.Kind == Eof {
				if i != len(res.Tokens)-1 {
					t.Fatalf("token[%d] is Eof but not last (len=%d)", i, len(res.Tokens))
				}
				continue
			}
			rebuilt = append(rebuilt, []byte(tok.Text)...)
		}
		if string(rebuilt) != string(src) {
			t.Fatalf("token stream is not total: rebuilt %d bytes, want %d", len(rebuilt), len(src))
		}
	})
}

func addCommonSeeds(f *testing.F) {
	f.Helper()

	for _, s := range [][]byte{
		nil,
		[]byte(""),
		[]byte("/dts-v1/;\n/ {\n\treg = <1 2>;\n};\n"),
		[]byte("/ { uart0: serial@0 { status = \"disabled\"; }; };\n"),
		[]byte("\"unterminated\n"),
		[]byte("/* unterminated block comment"),
		{0xff, 0xfe, 0xfd},
		[]byte("/delete-node/ &uart0;\n"),
		[]byte("#include \"board.dtsi\"\n/ {};\n"),
	} {
		f.Add(s)
	}
}

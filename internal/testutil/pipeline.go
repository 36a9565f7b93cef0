package testutil

import (
	gocontext "context"
	"fmt"
	"strings"

	"github.com/devicetree-lang/dts-core/internal/bindings"
	"github.com/devicetree-lang/dts-core/internal/context"
	"github.com/devicetree-lang/dts-core/internal/diag"
	"github.com/devicetree-lang/dts-core/internal/lexer"
	"github.com/devicetree-lang/dts-core/internal/parser"
	"github.com/devicetree-lang/dts-core/internal/runtime"
	"github.com/devicetree-lang/dts-core/internal/validate"
)

// RunPipeline drives one or more source files through the full
// lexer/parser -> ContextBuilder -> Validator pipeline, in the given
// order, and returns the merged tree plus every diagnostic collected
// along the way, sorted via diag.SortDiagnostics.
func RunPipeline(sources map[string][]byte, order []string) (*runtime.Tree, []diag.Diagnostic) {
	var files []context.FileResult
	var diags []diag.Diagnostic
	tokensByURI := make(map[string][]lexer.Token, len(order))

	for _, uri := range order {
		res := parser.ParseSource(uri, sources[uri])
		files = append(files, context.FileResult{Root: res.Root, Tokens: res.Tokens})
		tokensByURI[uri] = res.Tokens
		diags = append(diags, res.Diagnostics...)
	}

	tree, ctxDiags := context.Build(gocontext.Background(), files)
	diags = append(diags, ctxDiags...)

	validateDiags := validate.Validate(gocontext.Background(), tree, func(uri string) []lexer.Token {
		return tokensByURI[uri]
	}, bindings.Standard())
	diags = append(diags, validateDiags...)

	diag.SortDiagnostics(diags)
	return tree, diags
}

// FormatDiagnostics renders diags, already in diag.SortDiagnostics order,
// as deterministic lines suitable for a golden-file comparison:
// "<severity> <kind> <message>". Position is intentionally omitted: it is
// covered by internal/parser's dedicated range-anchor tests, and including
// it here would make these fixtures brittle to unrelated token-index
// shifts elsewhere in a source file.
func FormatDiagnostics(diags []diag.Diagnostic) string {
	var b strings.Builder
	for _, d := range diags {
		kind := "?"
		if len(d.Kinds) > 0 {
			kind = d.Kinds[0].String()
		}
		fmt.Fprintf(&b, "%s %s %s\n", d.Severity, kind, d.Message)
	}
	return b.String()
}

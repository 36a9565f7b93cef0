package bindings

import (
	"fmt"
	"strings"

	"github.com/devicetree-lang/dts-core/internal/ast"
	"github.com/devicetree-lang/dts-core/internal/diag"
	"github.com/devicetree-lang/dts-core/internal/runtime"
	"github.com/devicetree-lang/dts-core/internal/types"
)

// requiredIfUnitAddress demonstrates spec §4.5's "required as a function
// of the owning node": a node named with a unit address (`name@addr`)
// ordinarily must carry a `reg` describing that address; one without a
// unit address need not.
func requiredIfUnitAddress(n *runtime.Node) types.Requirement {
	if strings.Contains(n.Name, "@") {
		return types.RequirementRequired
	}
	return types.RequirementOptional
}

// interruptsExtendedCheck implements spec §4.6's illustrative
// `interrupts-extended` additionalCheck: it warns when the property
// coexists with `interrupts`/`interrupt-parent`, then walks the encoded
// cell sequence as a run of `[&parent, cell...]` tuples, validating each
// phandle and its parent's declared `#interrupt-cells` width.
func interruptsExtendedCheck(cc *types.CheckContext) []diag.Diagnostic {
	var out []diag.Diagnostic
	p := cc.Property
	n := cc.Node

	if other := n.PropertyByName("interrupts"); other != nil {
		out = append(out, ignoredIssue(cc, other, "interrupts is ignored: node also has interrupts-extended"))
	}
	if other := n.PropertyByName("interrupt-parent"); other != nil {
		out = append(out, ignoredIssue(cc, other, "interrupt-parent is ignored: node also has interrupts-extended"))
	}

	if p.CurrentAst == nil || len(p.CurrentAst.Values) == 0 {
		return out
	}
	arr, ok := p.CurrentAst.Values[0].(*ast.ArrayValues)
	if !ok {
		return out
	}

	cells := arr.Cells
	for i := 0; i < len(cells); {
		c := cells[i]
		if !c.IsRef || c.Ref == nil {
			i++
			continue
		}
		parent := resolveCellRef(cc, c.Ref)
		if parent == nil {
			out = append(out, issueAt(cc, p.URI, arr, diag.InterruptsParentNodeNotFound,
				fmt.Sprintf("interrupt parent %q could not be resolved", cellRefName(c.Ref))))
			i++
			continue
		}
		width, ok := interruptCellsOf(parent)
		if !ok {
			out = append(out, issueAt(cc, p.URI, arr, diag.PropertyRequiresOtherPropertyInNode,
				fmt.Sprintf("node %q is used as an interrupt parent but has no #interrupt-cells", parent.PathString())))
			i++
			continue
		}
		i++
		if i+width > len(cells) {
			out = append(out, issueAt(cc, p.URI, arr, diag.InterruptsValueCellMissMatch,
				fmt.Sprintf("interrupt specifier for %q is truncated: expected %d cells", parent.PathString(), width)))
			break
		}
		i += width
	}
	return out
}

func resolveCellRef(cc *types.CheckContext, ref *ast.CellRef) *runtime.Node {
	if ref.Label != "" {
		return cc.Tree.ResolveLabel(ref.Label)
	}
	if ref.Path != "" {
		segs := strings.Split(strings.Trim(ref.Path, "/"), "/")
		if len(segs) == 1 && segs[0] == "" {
			return cc.Tree.Root
		}
		return cc.Tree.ResolvePath(segs)
	}
	return nil
}

func cellRefName(ref *ast.CellRef) string {
	if ref.Label != "" {
		return ref.Label
	}
	return ref.Path
}

// interruptCellsOf reads a resolved parent's `#interrupt-cells` u32
// value.
func interruptCellsOf(n *runtime.Node) (int, bool) {
	p := n.PropertyByName("#interrupt-cells")
	if p == nil || p.CurrentAst == nil || len(p.CurrentAst.Values) != 1 {
		return 0, false
	}
	arr, ok := p.CurrentAst.Values[0].(*ast.ArrayValues)
	if !ok || len(arr.Cells) != 1 || arr.Cells[0].IsRef {
		return 0, false
	}
	return int(arr.Cells[0].Lit), true
}

func ignoredIssue(cc *types.CheckContext, other *runtime.Property, msg string) diag.Diagnostic {
	return issueAt(cc, other.URI, other.CurrentAst, diag.Ignored, msg)
}

func issueAt(cc *types.CheckContext, uri string, el ast.Node, kind diag.StandardTypeIssue, msg string) diag.Diagnostic {
	return diag.Diagnostic{
		Kinds:    []diag.Kind{kind},
		URI:      uri,
		Range:    ast.RangeOf(cc.TokensFor(uri), el),
		Severity: diag.DefaultSeverity(kind),
		Message:  msg,
		Source:   "validator",
	}
}

// Package validate implements the Validator: walking a RuntimeTree and
// checking each node's properties against a types.Catalogue (spec §4.6).
package validate

import (
	"context"
	"fmt"

	"github.com/devicetree-lang/dts-core/internal/ast"
	"github.com/devicetree-lang/dts-core/internal/diag"
	"github.com/devicetree-lang/dts-core/internal/lexer"
	"github.com/devicetree-lang/dts-core/internal/runtime"
	"github.com/devicetree-lang/dts-core/internal/types"
)

// TokensByURI resolves a file's token slice by URI, needed to turn an AST
// element's token-index range back into a diag.Range when a diagnostic
// concerns a property defined in a file other than the one currently
// being checked.
type TokensByURI func(uri string) []lexer.Token

// Validate walks tree, matching every node's properties (and every
// binding the node qualifies for) against cat, and returns every
// StandardTypeIssue diagnostic found, sorted via diag.SortDiagnostics.
func Validate(ctx context.Context, tree *runtime.Tree, tokensByURI TokensByURI, cat *types.Catalogue) []diag.Diagnostic {
	v := &validator{tree: tree, tokens: tokensByURI, cat: cat}
	tree.Walk(func(n *runtime.Node) {
		if ctx != nil {
			if err := ctx.Err(); err != nil {
				return
			}
		}
		v.checkNode(n)
	})
	diag.SortDiagnostics(v.issues)
	return v.issues
}

type validator struct {
	tree   *runtime.Tree
	tokens TokensByURI
	cat    *types.Catalogue
	issues []diag.Diagnostic
}

func (v *validator) checkNode(n *runtime.Node) {
	seen := make(map[string]bool)
	for _, p := range n.Properties {
		seen[p.Name] = true
		for _, b := range v.cat.Match(p.Name) {
			v.checkProperty(n, p, b)
		}
	}
	// Bindings that matched nothing on this node still need their
	// Required check run, to catch REQUIRED/OMITTED violations on an
	// absent property. Literal-name bindings only: a pattern binding with
	// nothing to match against carries no name to report against.
	for name, b := range v.cat.AllLiteral() {
		if seen[name] {
			continue
		}
		v.checkRequirement(n, nil, b)
	}
}

func (v *validator) checkRequirement(n *runtime.Node, p *runtime.Property, b *types.Binding) {
	req := types.RequirementOptional
	if b.Required != nil {
		req = b.Required(n)
	}
	switch {
	case req == types.RequirementRequired && p == nil:
		v.addNodeIssue(diag.Required, n, "required property %q is missing", b.Name)
	case req == types.RequirementOmitted && p != nil:
		v.addPropIssue(diag.Omitted, n, p, "property %q must not be present", b.Name)
	}
}

func (v *validator) checkProperty(n *runtime.Node, p *runtime.Property, b *types.Binding) {
	v.checkRequirement(n, p, b)
	if p.CurrentAst == nil {
		return
	}
	profile := types.ValueProfile(p.CurrentAst.Values)
	name := p.Name

	switch {
	case len(b.TypeSpec) > 1 && !b.List:
		if len(profile) != len(b.TypeSpec) {
			v.addPropIssue(diag.ExpectedCompositeLength, n, p,
				"property %q expects %d values, found %d", name, len(b.TypeSpec), len(profile))
			break
		}
		for i, slot := range b.TypeSpec {
			if !slot.Accepts(profile[i]) {
				v.addPropValueIssue(expectedKind(slot), n, p, i,
					"property %q value %d must be %v, found %v", name, i, slot.Names(), profile[i])
			}
		}
	case len(b.TypeSpec) == 1:
		slot := b.TypeSpec[0]
		switch {
		case slot.Accepts(types.Stringlist) && len(profile) > 0:
			if !slot.Accepts(profile[0]) {
				v.addPropValueIssue(expectedKind(slot), n, p, 0,
					"property %q must be %v, found %v", name, slot.Names(), profile[0])
			}
		case b.List:
			for i, pt := range profile {
				if !slot.Accepts(pt) {
					v.addPropValueIssue(expectedKind(slot), n, p, i,
						"property %q value %d must be %v, found %v", name, i, slot.Names(), pt)
				}
			}
		case len(profile) > 1:
			v.addPropIssue(diag.ExpectedOne, n, p, "property %q expects a single value, found %d", name, len(profile))
		case len(profile) == 1:
			if !slot.Accepts(profile[0]) {
				v.addPropValueIssue(expectedKind(slot), n, p, 0,
					"property %q must be %v, found %v", name, slot.Names(), profile[0])
			}
		}
	}

	if len(b.Enum) > 0 {
		v.checkEnum(n, p, b)
	}

	if b.AdditionalCheck != nil {
		cc := &types.CheckContext{
			Tree:      v.tree,
			Node:      n,
			Property:  p,
			Catalogue: v.cat,
			TokensFor: v.tokens,
		}
		v.issues = append(v.issues, b.AdditionalCheck(cc)...)
	}
}

func (v *validator) checkEnum(n *runtime.Node, p *runtime.Property, b *types.Binding) {
	for i, val := range p.CurrentAst.Values {
		sv, ok := val.(*ast.StringValue)
		if !ok {
			continue
		}
		ok = false
		for _, allowed := range b.Enum {
			if sv.Value == allowed {
				ok = true
				break
			}
		}
		if !ok {
			v.addPropValueIssue(diag.ExpectedEnum, n, p, i,
				"property %q value %q is not one of %v", p.Name, sv.Value, b.Enum)
		}
	}
}

func expectedKind(s types.Slot) diag.StandardTypeIssue {
	switch {
	case s.Accepts(types.Empty) && !s.Accepts(types.U32) && !s.Accepts(types.String):
		return diag.ExpectedEmpty
	case s.Accepts(types.Stringlist):
		return diag.ExpectedStringlist
	case s.Accepts(types.String):
		return diag.ExpectedString
	case s.Accepts(types.PropEncodedArray):
		return diag.ExpectedPropEncodedArray
	case s.Accepts(types.U64):
		return diag.ExpectedU64
	default:
		return diag.ExpectedU32
	}
}

func (v *validator) addNodeIssue(kind diag.Kind, n *runtime.Node, format string, args ...any) {
	def := lastDefinition(n)
	uri, el := "", ast.Node(nil)
	if def != nil {
		uri, el = def.URI, def.Node
	}
	v.issues = append(v.issues, diag.Diagnostic{
		Kinds:    []diag.Kind{kind},
		URI:      uri,
		Range:    ast.RangeOf(v.tokens(uri), el),
		Severity: diag.DefaultSeverity(kind),
		Message:  fmt.Sprintf(format, args...),
		Source:   "validator",
	})
}

func (v *validator) addPropIssue(kind diag.Kind, n *runtime.Node, p *runtime.Property, format string, args ...any) {
	v.issues = append(v.issues, diag.Diagnostic{
		Kinds:    []diag.Kind{kind},
		URI:      p.URI,
		Range:    ast.RangeOf(v.tokens(p.URI), p.CurrentAst),
		Severity: diag.DefaultSeverity(kind),
		Message:  fmt.Sprintf(format, args...),
		Source:   "validator",
	})
}

// addPropValueIssue ranges the diagnostic over one specific value in the
// property's value list when idx is in range, falling back to the whole
// property's range otherwise.
func (v *validator) addPropValueIssue(kind diag.Kind, n *runtime.Node, p *runtime.Property, idx int, format string, args ...any) {
	el := ast.Node(p.CurrentAst)
	if p.CurrentAst != nil && idx >= 0 && idx < len(p.CurrentAst.Values) {
		el = p.CurrentAst.Values[idx]
	}
	v.issues = append(v.issues, diag.Diagnostic{
		Kinds:    []diag.Kind{kind},
		URI:      p.URI,
		Range:    ast.RangeOf(v.tokens(p.URI), el),
		Severity: diag.DefaultSeverity(kind),
		Message:  fmt.Sprintf(format, args...),
		Source:   "validator",
	})
}

func lastDefinition(n *runtime.Node) *runtime.NodeDefinition {
	if len(n.Definitions) == 0 {
		return nil
	}
	d := n.Definitions[len(n.Definitions)-1]
	return &d
}

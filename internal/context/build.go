// Package context implements the ContextBuilder: folding a sequence of
// per-file ASTs into one logical RuntimeTree, applying override ("last
// wins") and node/property deletion semantics, and collecting cross-file
// diagnostics (spec §4.4, §3.4).
package context

import (
	"context"
	"fmt"

	"github.com/devicetree-lang/dts-core/internal/ast"
	"github.com/devicetree-lang/dts-core/internal/diag"
	"github.com/devicetree-lang/dts-core/internal/lexer"
	"github.com/devicetree-lang/dts-core/internal/runtime"
)

// FileResult pairs one file's parsed root document with the token slice
// it was parsed against. The fold needs both: the AST's Base.First/Last
// fields are indices into the owning file's own token slice, so computing
// a diagnostic's Range requires knowing which slice a given AST element
// belongs to.
type FileResult struct {
	Root   *ast.RootDoc
	Tokens []lexer.Token
}

// Build folds files in caller order (spec's fileMap) into a single
// RuntimeTree, returning the tree plus every ContextIssue diagnostic
// collected along the way. Build never fails outright; a cancelled ctx
// simply stops folding further files and returns what has been built so
// far, consistent with spec §7's "every stage is total" propagation
// policy.
func Build(ctx context.Context, files []FileResult) (*runtime.Tree, []diag.Diagnostic) {
	docs := make([]*ast.RootDoc, 0, len(files))
	for _, f := range files {
		docs = append(docs, f.Root)
	}

	b := &builder{
		tree:       runtime.NewTree(),
		labelPath:  resolveLabelPaths(docs),
		tokensByFn: make(map[string][]lexer.Token, len(files)),
	}
	for _, f := range files {
		if ctx != nil {
			if err := ctx.Err(); err != nil {
				break
			}
		}
		b.foldFile(f)
	}
	b.collectLabelIssues()

	diag.SortDiagnostics(b.issues)
	return b.tree, b.issues
}

type builder struct {
	tree      *runtime.Tree
	labelPath map[string][]string
	issues    []diag.Diagnostic

	// tokensByFn records each visited file's token slice by URI, so
	// diagnostics that link back to a definition from a different file
	// than the one currently being folded can still compute a Range.
	tokensByFn map[string][]lexer.Token

	// current file context, set for the duration of foldFile.
	uri    string
	tokens []lexer.Token
}

// nodeName returns a child node's runtime name: its identifier, followed
// by "@" and the unit address in hex when the node has one.
func nodeName(n *ast.NodeName) string {
	if n.HasAddress {
		return fmt.Sprintf("%s@%x", n.Name, n.Address)
	}
	return n.Name
}

func (b *builder) foldFile(f FileResult) {
	b.uri = f.Root.URI
	b.tokens = f.Tokens
	b.tokensByFn[b.uri] = f.Tokens
	for _, decl := range f.Root.Declarations {
		b.foldTopDecl(decl)
	}
}

func (b *builder) foldTopDecl(decl ast.Node) {
	switch d := decl.(type) {
	case *ast.DtcRootNode:
		root := b.tree.Root
		root.AddDefinition(b.uri, d)
		root.AddLabels(b.uri, d.Labels)
		b.foldBody(root, d.Body)
	case *ast.DtcRefNode:
		b.foldRefNode(d)
	case *ast.DeleteNode:
		b.foldDeleteNode(b.tree.Root, d)
	case *ast.DeleteProperty:
		b.foldDeleteProperty(b.tree.Root, d)
	case *ast.DtcProperty:
		b.foldProperty(b.tree.Root, d)
	}
}

// foldBody folds one AST body (the children of a single DtcRootNode,
// DtcChildNode, or DtcRefNode occurrence) into parent, enforcing
// sibling-name uniqueness within this one body list (spec §4.4 point 3)
// — a name reused across two different files/occurrences is an override,
// not a duplicate.
func (b *builder) foldBody(parent *runtime.Node, body []ast.Node) {
	seen := make(map[string]bool)
	for _, decl := range body {
		switch d := decl.(type) {
		case *ast.DtcChildNode:
			if d.Name == nil || d.Name.Name == "" {
				continue
			}
			name := nodeName(d.Name)
			if seen[name] {
				b.addIssue(diag.DuplicateNodeName, d, nil, "duplicate child node %q in this block", name)
			}
			seen[name] = true

			child := parent.GetOrCreateChild(name)
			child.AddDefinition(b.uri, d)
			child.AddLabels(b.uri, d.Labels)
			b.foldBody(child, d.Body)
		case *ast.DeleteNode:
			b.foldDeleteNode(parent, d)
		case *ast.DeleteProperty:
			b.foldDeleteProperty(parent, d)
		case *ast.DtcProperty:
			b.foldProperty(parent, d)
		}
	}
}

func (b *builder) foldRefNode(d *ast.DtcRefNode) {
	target := b.resolveRef(d.Ref)
	if target == nil {
		b.addIssue(diag.UnableToResolveChildNode, d, nil, "unable to resolve reference to %q", refName(d.Ref))
		return
	}
	target.AddReference(b.uri, d)
	target.AddLabels(b.uri, d.Labels)
	b.foldBody(target, d.Body)
}

// resolveRef implements spec §4.4's resolvePath for an in-context &label
// reference: find the structural path recorded for ref.Name (computed up
// front by resolveLabelPaths) and look it up in the tree being built.
// Ties are broken by document + include order because labelPath already
// records the first occurrence seen during that deterministic walk.
func (b *builder) resolveRef(ref *ast.LabelRef) *runtime.Node {
	if ref == nil || ref.Name == "" {
		return nil
	}
	path, ok := b.labelPath[ref.Name]
	if !ok {
		return nil
	}
	return b.tree.ResolvePath(path)
}

func refName(ref *ast.LabelRef) string {
	if ref == nil {
		return ""
	}
	return ref.Name
}

func (b *builder) foldProperty(node *runtime.Node, d *ast.DtcProperty) {
	_, prev := node.SetProperty(b.uri, d)
	if prev != nil {
		b.addIssueLinkedURI(diag.DuplicatePropertyName, prev.URI, prev.CurrentAst, diag.TagUnnecessary,
			[]linkedRef{{b.uri, d}},
			"property %q is replaced by a later definition", d.PropertyName)
	}
}

func (b *builder) foldDeleteNode(parent *runtime.Node, d *ast.DeleteNode) {
	switch {
	case d.Ref != nil:
		target := b.resolveRef(d.Ref)
		if target == nil {
			b.addIssue(diag.UnableToResolveChildNode, d, nil, "unable to resolve reference to %q", refName(d.Ref))
			return
		}
		if target.Parent != nil {
			target.Parent.RemoveChild(target.Name)
		}
	case d.Name != "":
		if parent.ChildByName(d.Name) == nil {
			b.addIssue(diag.NodeDoesNotExist, d, nil, "node %q does not exist", d.Name)
			return
		}
		parent.RemoveChild(d.Name)
	}
}

func (b *builder) foldDeleteProperty(node *runtime.Node, d *ast.DeleteProperty) {
	if d.Name == "" {
		return
	}
	if node.PropertyByName(d.Name) == nil {
		b.addIssue(diag.PropertyDoesNotExist, d, nil, "property %q does not exist", d.Name)
		return
	}
	node.RemoveProperty(d.Name)
}

// linkedRef is an AST element plus the URI of the file it belongs to, for
// diagnostics whose LinkedTo spans a different file than the one that
// triggered them.
type linkedRef struct {
	uri string
	el  ast.Node
}

func (b *builder) addIssue(kind diag.Kind, el ast.Node, linked []linkedRef, format string, args ...any) {
	b.addIssueLinkedURI(kind, b.uri, el, 0, linked, format, args...)
}

func (b *builder) addIssueLinkedURI(kind diag.Kind, elURI string, el ast.Node, tags diag.Tag, linked []linkedRef, format string, args ...any) {
	d := diag.Diagnostic{
		Kinds:        []diag.Kind{kind},
		URI:          elURI,
		Range:        ast.RangeOf(b.tokensByFn[elURI], el),
		Severity:     diag.DefaultSeverity(kind),
		Tags:         tags,
		TemplateArgs: formatArgs(args),
		Message:      fmt.Sprintf(format, args...),
		Source:       "context",
	}
	for _, l := range linked {
		d.LinkedTo = append(d.LinkedTo, diag.AstRef{URI: l.uri, Range: ast.RangeOf(b.tokensByFn[l.uri], l.el)})
	}
	b.issues = append(b.issues, d)
}

func formatArgs(args []any) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		out = append(out, toString(a))
	}
	return out
}

func toString(a any) string {
	if s, ok := a.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", a)
}

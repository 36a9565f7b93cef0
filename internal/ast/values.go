package ast

// PropertyValue is implemented by every `name = <values>;` value variant:
// StringValue, ArrayValues, LabelRefValue, NodePathValue, ByteString.
type PropertyValue interface {
	Node
	isPropertyValue()
}

// StringValue is a quoted string literal value.
type StringValue struct {
	Base
	Value string
}

// Children returns nil; StringValue is a leaf.
func (s *StringValue) Children() []Node { return nil }
func (*StringValue) isPropertyValue()    {}

// Cell is one element of an ArrayValues cell list: either a literal
// integer or a reference (`&label` or `&{/path}`) that the context
// builder resolves to a phandle once the runtime tree is assembled.
type Cell struct {
	IsRef  bool
	Lit    int64    // valid when !IsRef && !IsExpr
	Ref    *CellRef // valid when IsRef
	IsExpr bool     // valid when set instead of Lit, for parenthesized arithmetic this module does not evaluate
	Expr   string   // raw token span backing IsExpr
}

// CellRef is a `&label` or `&{/path}` cell appearing inside a `<...>`
// array, recorded for later phandle resolution by internal/context.
type CellRef struct {
	Base
	Label string // set for &label form
	Path  string // set for &{/path} form
}

// Children returns nil; CellRef is a leaf.
func (c *CellRef) Children() []Node { return nil }

// ArrayValues is a `<cell cell ...>` property value.
type ArrayValues struct {
	Base
	Cells []Cell
}

// Children returns the CellRef nodes among the array's cells.
func (a *ArrayValues) Children() []Node {
	var out []Node
	for _, c := range a.Cells {
		if c.IsRef && c.Ref != nil {
			out = append(out, c.Ref)
		}
	}
	return out
}
func (*ArrayValues) isPropertyValue() {}

// LabelRefValue is a bare `&label` used directly as a property value
// (as opposed to one cell inside an ArrayValues).
type LabelRefValue struct {
	Base
	Ref *LabelRef
}

// Children returns the referenced label.
func (l *LabelRefValue) Children() []Node {
	if l.Ref == nil {
		return nil
	}
	return []Node{l.Ref}
}
func (*LabelRefValue) isPropertyValue() {}

// NodePathValue is a `&{/path/to/node}` value.
type NodePathValue struct {
	Base
	Path string
}

// Children returns nil; NodePathValue is a leaf.
func (n *NodePathValue) Children() []Node { return nil }
func (*NodePathValue) isPropertyValue()    {}

// ByteString is a `[ab cd ef]` hex bytestring value.
type ByteString struct {
	Base
	Bytes []byte
}

// Children returns nil; ByteString is a leaf.
func (b *ByteString) Children() []Node { return nil }
func (*ByteString) isPropertyValue()    {}

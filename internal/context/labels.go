package context

import "github.com/devicetree-lang/dts-core/internal/ast"

// resolveLabelPaths computes, for every label assignment reachable across
// docs, the absolute path segments of the node it structurally sits on.
// It is a fixed-point pass over the raw AST (spec §4.4 resolvePath):
// a DtcRefNode's own body can only be placed once its target label is
// known, and that label may be defined by a DtcChildNode appearing later
// in the same or a different file, so the walk repeats until no new
// mapping is discovered or a generous iteration cap is hit.
func resolveLabelPaths(docs []*ast.RootDoc) map[string][]string {
	labelPath := make(map[string][]string)

	cap := 16
	for _, d := range docs {
		cap += countDecls(d.Declarations)
	}

	for iter := 0; iter < cap; iter++ {
		changed := false
		for _, doc := range docs {
			for _, decl := range doc.Declarations {
				if walkDeclForLabels(decl, nil, labelPath) {
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}
	return labelPath
}

func countDecls(decls []ast.Node) int {
	n := len(decls)
	for _, d := range decls {
		switch v := d.(type) {
		case *ast.DtcRootNode:
			n += countDecls(v.Body)
		case *ast.DtcChildNode:
			n += countDecls(v.Body)
		case *ast.DtcRefNode:
			n += countDecls(v.Body)
		}
	}
	return n
}

func walkDeclForLabels(decl ast.Node, path []string, labelPath map[string][]string) bool {
	changed := false
	switch d := decl.(type) {
	case *ast.DtcRootNode:
		if recordLabels(d.Labels, path, labelPath) {
			changed = true
		}
		for _, child := range d.Body {
			if walkDeclForLabels(child, path, labelPath) {
				changed = true
			}
		}
	case *ast.DtcChildNode:
		if d.Name == nil || d.Name.Name == "" {
			return changed
		}
		childPath := appendPath(path, nodeName(d.Name))
		if recordLabels(d.Labels, childPath, labelPath) {
			changed = true
		}
		for _, child := range d.Body {
			if walkDeclForLabels(child, childPath, labelPath) {
				changed = true
			}
		}
	case *ast.DtcRefNode:
		if d.Ref == nil || d.Ref.Name == "" {
			return changed
		}
		target, ok := labelPath[d.Ref.Name]
		if !ok {
			return changed // not resolvable yet this iteration
		}
		if recordLabels(d.Labels, target, labelPath) {
			changed = true
		}
		for _, child := range d.Body {
			if walkDeclForLabels(child, target, labelPath) {
				changed = true
			}
		}
	}
	return changed
}

func recordLabels(labels []*ast.LabelAssign, path []string, labelPath map[string][]string) bool {
	changed := false
	for _, la := range labels {
		if la == nil || la.Name == "" {
			continue
		}
		if _, exists := labelPath[la.Name]; exists {
			continue
		}
		labelPath[la.Name] = appendPath(nil, path...)
		changed = true
	}
	return changed
}

func appendPath(base []string, more ...string) []string {
	out := make([]string, 0, len(base)+len(more))
	out = append(out, base...)
	out = append(out, more...)
	return out
}

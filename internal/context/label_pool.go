package context

import (
	"github.com/devicetree-lang/dts-core/internal/diag"
	"github.com/devicetree-lang/dts-core/internal/runtime"
)

// labelOwner identifies whichever Node or Property a label assignment
// belongs to, so two assignments of the same label text can be compared
// for "is this actually the same logical object" (spec §3.4 invariant c).
type labelOwner any

type labelEntry struct {
	name   string
	owner  labelOwner
	uri    string
	assign *runtime.LabelDef
}

// collectLabelIssues walks the final (post-deletion) tree, grouping every
// surviving label assignment by text. A name claimed by more than one
// distinct owner is flagged LABEL_ALREADY_IN_USE on the last-seen
// assignment, with the earlier ones linked; a label reasserted several
// times on the very same owner (e.g. by two files that both contribute a
// definition to the same node) is not a conflict.
func (b *builder) collectLabelIssues() {
	var entries []labelEntry

	b.tree.Walk(func(n *runtime.Node) {
		for i := range n.Labels {
			ld := n.Labels[i]
			entries = append(entries, labelEntry{name: ld.Assign.Name, owner: n, uri: ld.URI, assign: &ld})
		}
		for _, p := range n.Properties {
			for _, ld := range p.Labels() {
				ld := ld
				entries = append(entries, labelEntry{name: ld.Assign.Name, owner: p, uri: ld.URI, assign: &ld})
			}
		}
	})

	groups := make(map[string][]labelEntry)
	var order []string
	for _, e := range entries {
		if _, ok := groups[e.name]; !ok {
			order = append(order, e.name)
		}
		groups[e.name] = append(groups[e.name], e)
	}

	for _, name := range order {
		g := groups[name]
		owners := make(map[labelOwner]bool)
		for _, e := range g {
			owners[e.owner] = true
		}
		if len(owners) <= 1 {
			continue
		}
		last := g[len(g)-1]
		var linked []linkedRef
		for _, e := range g[:len(g)-1] {
			if e.owner == last.owner {
				continue
			}
			linked = append(linked, linkedRef{uri: e.uri, el: e.assign.Assign})
		}
		b.addIssueLinkedURI(diag.LabelAlreadyInUse, last.uri, last.assign.Assign, 0, linked,
			"label %q is already assigned elsewhere", name)
	}
}
